package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/chani890/MediWait/internal/model"
	"github.com/chani890/MediWait/internal/queue"
)

type receptionResponse struct {
	model.Reception
	Position int `json:"position"`
}

// Register handles patient self-intake.
func (h *Handler) Register(c *gin.Context) {
	var req queue.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}

	r, err := h.queue.Register(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.respondReception(c, http.StatusCreated, r)
}

// GetReception returns a reception with its current place in line.
func (h *Handler) GetReception(c *gin.Context) {
	r, err := h.queue.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.respondReception(c, http.StatusOK, r)
}

// GetPosition returns only the place in line.
func (h *Handler) GetPosition(c *gin.Context) {
	id := c.Param("id")
	pos, err := h.queue.WaitingPosition(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "position": pos})
}

// GetWaitingCount returns how many confirmed patients are waiting.
func (h *Handler) GetWaitingCount(c *gin.Context) {
	n, err := h.queue.WaitingCount(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"waitingCount": n})
}

func (h *Handler) respondReception(c *gin.Context, status int, r model.Reception) {
	pos, err := h.queue.WaitingPosition(c.Request.Context(), r.ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(status, receptionResponse{Reception: r, Position: pos})
}
