package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/chani890/MediWait/internal/queue"
)

func (h *Handler) ListPending(c *gin.Context) {
	list, err := h.queue.Pending(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// ListConfirmed returns the waiting queue in call order.
func (h *Handler) ListConfirmed(c *gin.Context) {
	list, err := h.queue.Confirmed(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) Confirm(c *gin.Context) {
	r, err := h.queue.Confirm(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.respondReception(c, http.StatusOK, r)
}

// ManualRegister registers and confirms a patient at the front desk.
func (h *Handler) ManualRegister(c *gin.Context) {
	var req queue.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}

	r, err := h.queue.ManualRegister(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.respondReception(c, http.StatusCreated, r)
}

func (h *Handler) DeleteReception(c *gin.Context) {
	if err := h.queue.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ForceDeleteReception is the admin delete, allowed for CALLED receptions.
func (h *Handler) ForceDeleteReception(c *gin.Context) {
	if err := h.queue.ForceDelete(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
