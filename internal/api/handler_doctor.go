package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/chani890/MediWait/internal/model"
)

// CallNext calls the next confirmed patient into the exam room.
func (h *Handler) CallNext(c *gin.Context) {
	r, err := h.queue.CallNextWithRetry(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

func (h *Handler) CurrentPatients(c *gin.Context) {
	list, err := h.queue.CurrentPatients(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) Complete(c *gin.Context) {
	h.applyTransition(c, h.queue.Complete)
}

func (h *Handler) NoResponse(c *gin.Context) {
	h.applyTransition(c, h.queue.MarkNoResponse)
}

func (h *Handler) Cancel(c *gin.Context) {
	h.applyTransition(c, h.queue.Cancel)
}

func (h *Handler) applyTransition(c *gin.Context, fn func(context.Context, string) (model.Reception, error)) {
	r, err := fn(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}
