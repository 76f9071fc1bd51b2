package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/chani890/MediWait/internal/parse"
)

type notificationRequest struct {
	Enabled  *bool `json:"enabled" binding:"required"`
	NotifyAt *int  `json:"notifyAt"`
}

// SetNotification changes a reception's wait notification settings.
func (h *Handler) SetNotification(c *gin.Context) {
	var req notificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}

	r, err := h.queue.SetNotify(c.Request.Context(), c.Param("id"), *req.Enabled, req.NotifyAt)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.respondReception(c, http.StatusOK, r)
}

// SendWaitingNotification sends the wait SMS to a confirmed patient now.
func (h *Handler) SendWaitingNotification(c *gin.Context) {
	r, err := h.queue.SendWaitNotification(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.respondReception(c, http.StatusOK, r)
}

type smsModeRequest struct {
	SimulationMode *bool `json:"simulationMode" binding:"required"`
}

func (h *Handler) GetSMSMode(c *gin.Context) {
	if h.sms == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "sms is not configured"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"simulationMode": h.sms.Simulation()})
}

// SetSMSMode switches between simulated and real delivery.
func (h *Handler) SetSMSMode(c *gin.Context) {
	if h.sms == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "sms is not configured"})
		return
	}
	var req smsModeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}

	h.sms.SetSimulation(*req.SimulationMode)
	h.log.Info().Bool("simulation", *req.SimulationMode).Msg("sms mode changed")
	c.JSON(http.StatusOK, gin.H{"simulationMode": h.sms.Simulation()})
}

type testSMSRequest struct {
	PhoneNumber string `json:"phoneNumber" binding:"required"`
	Message     string `json:"message" binding:"required"`
}

// TestSMS sends an arbitrary message through the current SMS mode.
func (h *Handler) TestSMS(c *gin.Context) {
	if h.sms == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "sms is not configured"})
		return
	}
	var req testSMSRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}
	phone, err := parse.NormalizePhone(req.PhoneNumber)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error(), Code: "INVALID_INPUT"})
		return
	}

	simulation := h.sms.Simulation()
	if err := h.sms.Send(c.Request.Context(), phone, req.Message); err != nil {
		h.log.Warn().Err(err).Msg("test sms failed")
		c.JSON(http.StatusBadGateway, errorResponse{Error: err.Error(), Code: "NOTIFICATION_FAILED", Retryable: true})
		return
	}
	c.JSON(http.StatusOK, gin.H{"to": parse.FormatPhone(phone), "simulationMode": simulation})
}
