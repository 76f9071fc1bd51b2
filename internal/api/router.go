package api

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/chani890/MediWait/config"
	"github.com/chani890/MediWait/internal/mw"
)

// NewRouter creates and configures a new Gin router.
// responses caches the display endpoints; it may be nil.
func NewRouter(h *Handler, responses *mw.ResponseCache, cfg config.ServerConfig, logger zerolog.Logger) *gin.Engine {
	if !cfg.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), mw.RequestID(), mw.Logger(logger))

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst)
	caching := func(c *gin.Context) { c.Next() }
	if responses != nil {
		caching = responses.Middleware()
	}

	r.GET("/healthz", h.Health)

	api := r.Group("/api")
	{
		patient := api.Group("/patient")
		patient.POST("/register", rateLimiter, h.Register)
		patient.GET("/waiting-count", caching, h.GetWaitingCount)
		patient.GET("/reception/:id", h.GetReception)
		patient.GET("/reception/:id/position", h.GetPosition)

		nurse := api.Group("/nurse")
		nurse.GET("/pending", h.ListPending)
		nurse.GET("/confirmed", h.ListConfirmed)
		nurse.POST("/confirm/:id", h.Confirm)
		nurse.POST("/manual-register", h.ManualRegister)
		nurse.DELETE("/reception/:id", h.DeleteReception)
		nurse.PUT("/reception/:id/notification", h.SetNotification)
		nurse.POST("/reception/:id/send-waiting-notification", h.SendWaitingNotification)
		nurse.GET("/sms-mode", h.GetSMSMode)
		nurse.POST("/sms-mode", h.SetSMSMode)
		nurse.POST("/test-sms", h.TestSMS)

		doctor := api.Group("/doctor")
		doctor.GET("/waiting-queue", caching, h.ListConfirmed)
		doctor.POST("/call-next", h.CallNext)
		doctor.GET("/current-patients", caching, h.CurrentPatients)
		doctor.POST("/complete/:id", h.Complete)
		doctor.POST("/no-response/:id", h.NoResponse)
		doctor.POST("/cancel/:id", h.Cancel)

		admin := api.Group("/admin")
		admin.DELETE("/reception/:id/force", h.ForceDeleteReception)

		api.GET("/events", h.Events)

		api.GET("/subscriptions", rateLimiter, h.GetSubscription)
		api.PUT("/subscriptions", rateLimiter, h.PutSubscription)
		api.DELETE("/subscriptions", rateLimiter, h.DeleteSubscription)
		api.GET("/vapid_public_key", h.GetVAPIDPublicKey)
	}

	return r
}
