package route

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"faq-agent/api"
	"faq-agent/service"
)

func Register(r *gin.Engine, chatSvc *service.ChatService, tickets *service.TicketManager) {

	// 503 while the session store is unreachable
	r.GET("/health", func(c *gin.Context) {
		if err := chatSvc.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// conversation turns
	chatGroup := r.Group("/chat")
	{
		chatGroup.POST("", api.ChatHandler(chatSvc)) // POST /chat
	}

	// ticket administration
	ticketGroup := r.Group("/tickets")
	{
		ticketGroup.GET("/:id", api.GetTicketHandler(tickets))
		ticketGroup.POST("/:id/close", api.CloseTicketHandler(tickets))
	}

	knowledgeGroup := r.Group("/knowledge")
	{
		knowledgeGroup.POST("/preview", api.PreviewHandler(chatSvc))
	}
}
