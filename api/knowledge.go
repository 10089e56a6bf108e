package api

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"faq-agent/internal/transport"
	"faq-agent/model"
	"faq-agent/service"
)

type PreviewRequest struct {
	Question     string `json:"question" binding:"required"`
	UseTestIndex bool   `json:"useTestIndex"`
}

type PreviewResponse struct {
	Outcome  service.OutcomeKind     `json:"outcome"`
	Messages []model.OutboundMessage `json:"messages"`
}

// PreviewHandler shows how a question would be answered, without a session.
func PreviewHandler(chatSvc *service.ChatService) gin.HandlerFunc {
	dispatcher := service.NewResponseDispatcher()

	return func(c *gin.Context) {
		var req PreviewRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		outcome, err := chatSvc.Preview(c.Request.Context(), req.Question, req.UseTestIndex)
		if err != nil {
			log.Printf("[API] preview question=%q: %v", req.Question, err)
			c.JSON(http.StatusBadGateway, gin.H{"error": "knowledge base query failed"})
			return
		}

		rec := transport.NewRecorder(model.Activity{})
		respond := service.Respond{Question: req.Question, Outcome: outcome}
		if err := dispatcher.Dispatch(c.Request.Context(), rec, respond); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, PreviewResponse{Outcome: outcome.Kind(), Messages: rec.Messages()})
	}
}
