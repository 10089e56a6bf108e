package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"faq-agent/internal/transport"
	"faq-agent/model"
	"faq-agent/service"
)

// ChatHandler runs one conversation turn. Everything the bot sends during
// the turn comes back in the response body.
func ChatHandler(chatSvc *service.ChatService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var act model.Activity
		if err := c.ShouldBindJSON(&act); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
			return
		}

		rec := transport.NewRecorder(act)
		state, err := chatSvc.HandleTurn(c.Request.Context(), act, rec)
		if err != nil {
			if errors.Is(err, service.ErrValidation) {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			// knowledge and storage errors are not shown to the user
			c.JSON(http.StatusInternalServerError, gin.H{"error": "the request could not be processed, please try again later"})
			return
		}

		c.JSON(http.StatusOK, model.ChatResponse{
			ConversationID: act.ConversationID,
			State:          state,
			Messages:       rec.Messages(),
		})
	}
}
