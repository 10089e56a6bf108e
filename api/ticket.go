package api

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"faq-agent/model"
	"faq-agent/service"
)

type CloseTicketRequest struct {
	Name     string `json:"name"`
	ObjectID string `json:"object_id"`
}

func GetTicketHandler(tickets *service.TicketManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		ticket, err := tickets.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			writeTicketError(c, err)
			return
		}
		c.JSON(http.StatusOK, ticket)
	}
}

func CloseTicketHandler(tickets *service.TicketManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CloseTicketRequest
		// empty body is allowed
		if c.Request.ContentLength != 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
				return
			}
		}

		by := model.Participant{Name: req.Name, ObjectID: req.ObjectID}
		ticket, err := tickets.Close(c.Request.Context(), c.Param("id"), by)
		if err != nil {
			writeTicketError(c, err)
			return
		}
		c.JSON(http.StatusOK, ticket)
	}
}

func writeTicketError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Printf("[API] %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrTicketNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, service.ErrValidation), errors.Is(err, service.ErrMissingTicketID):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
