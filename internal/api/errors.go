package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/chani890/MediWait/internal/model"
	"github.com/chani890/MediWait/internal/queue"
	"github.com/chani890/MediWait/internal/store"
)

type errorResponse struct {
	Error     string            `json:"error"`
	Code      string            `json:"code"`
	Retryable bool              `json:"retryable,omitempty"`
	Current   []model.Reception `json:"current,omitempty"`
}

// respondError maps queue errors to HTTP statuses. Anything unknown is a 500
// and is logged.
func (h *Handler) respondError(c *gin.Context, err error) {
	var alreadyCalled *queue.AlreadyCalledError
	switch {
	case errors.As(err, &alreadyCalled):
		c.JSON(http.StatusConflict, errorResponse{Error: err.Error(), Code: "ALREADY_CALLED", Current: alreadyCalled.Receptions})
	case errors.Is(err, queue.ErrInvalidTransition):
		c.JSON(http.StatusConflict, errorResponse{Error: err.Error(), Code: "INVALID_TRANSITION"})
	case errors.Is(err, queue.ErrNoPatientsWaiting):
		c.JSON(http.StatusNotFound, errorResponse{Error: err.Error(), Code: "NO_PATIENTS_WAITING"})
	case errors.Is(err, queue.ErrConcurrentModification):
		c.JSON(http.StatusConflict, errorResponse{Error: err.Error(), Code: "CONCURRENT_MODIFICATION", Retryable: true})
	case errors.Is(err, queue.ErrIllegalState):
		c.JSON(http.StatusConflict, errorResponse{Error: err.Error(), Code: "ILLEGAL_STATE"})
	case errors.Is(err, queue.ErrNotFound), errors.Is(err, store.ErrSubscriptionNotFound):
		c.JSON(http.StatusNotFound, errorResponse{Error: err.Error(), Code: "NOT_FOUND"})
	case errors.Is(err, queue.ErrNotWaiting):
		c.JSON(http.StatusConflict, errorResponse{Error: err.Error(), Code: "NOT_WAITING"})
	case errors.Is(err, queue.ErrNotificationFailed):
		c.JSON(http.StatusBadGateway, errorResponse{Error: err.Error(), Code: "NOTIFICATION_FAILED", Retryable: true})
	case errors.Is(err, queue.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error(), Code: "INVALID_INPUT"})
	default:
		_ = c.Error(err)
		h.log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal server error", Code: "INTERNAL"})
	}
}

func badRequest(c *gin.Context) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
}
