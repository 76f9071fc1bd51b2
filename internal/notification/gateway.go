package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/chani890/MediWait/config"
	"github.com/chani890/MediWait/internal/parse"
)

// ErrProviderFailure is returned by the fail provider.
var ErrProviderFailure = errors.New("sms provider failure")

// Gateway sends a text message to a phone number. A nil error means the
// provider accepted the message; delivery is not guaranteed.
type Gateway interface {
	Send(ctx context.Context, destination, message string) error
}

// NewGateway builds the provider named in cfg. A webhook provider without a
// URL falls back to logging, which is also the simulation mode.
func NewGateway(cfg config.NotificationConfig, logger zerolog.Logger) Gateway {
	logger = logger.With().Str("component", "sms").Logger()
	switch cfg.Provider {
	case "noop":
		return NoopGateway{}
	case "fail":
		return FailGateway{}
	case "webhook":
		if cfg.WebhookURL == "" {
			logger.Warn().Msg("webhook provider has no url, falling back to log provider")
			return LogGateway{log: logger}
		}
		return NewWebhookGateway(cfg.WebhookURL, cfg.WebhookToken, time.Duration(cfg.TimeoutSeconds)*time.Second)
	default:
		return LogGateway{log: logger}
	}
}

// LogGateway only logs the message.
type LogGateway struct {
	log zerolog.Logger
}

func NewLogGateway(logger zerolog.Logger) LogGateway {
	return LogGateway{log: logger.With().Str("component", "sms").Logger()}
}

func (g LogGateway) Send(ctx context.Context, destination, message string) error {
	g.log.Info().Str("to", parse.FormatPhone(destination)).Str("message", message).Msg("sms (simulated)")
	return nil
}

// SwitchableGateway routes messages to the live provider or, in simulation
// mode, to a LogGateway. The mode can be changed while the server runs.
type SwitchableGateway struct {
	live       Gateway
	simulated  Gateway
	simulation atomic.Bool
}

func NewSwitchableGateway(live Gateway, logger zerolog.Logger, simulation bool) *SwitchableGateway {
	g := &SwitchableGateway{live: live, simulated: NewLogGateway(logger)}
	g.simulation.Store(simulation)
	return g
}

func (g *SwitchableGateway) Send(ctx context.Context, destination, message string) error {
	if g.simulation.Load() {
		return g.simulated.Send(ctx, destination, message)
	}
	return g.live.Send(ctx, destination, message)
}

func (g *SwitchableGateway) Simulation() bool {
	return g.simulation.Load()
}

func (g *SwitchableGateway) SetSimulation(on bool) {
	g.simulation.Store(on)
}

type NoopGateway struct{}

func (NoopGateway) Send(ctx context.Context, destination, message string) error {
	return nil
}

// FailGateway rejects every message.
type FailGateway struct{}

func (FailGateway) Send(ctx context.Context, destination, message string) error {
	return ErrProviderFailure
}

// WebhookGateway posts messages as JSON to an SMS relay.
type WebhookGateway struct {
	url    string
	token  string
	client *http.Client
}

func NewWebhookGateway(url, token string, timeout time.Duration) *WebhookGateway {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &WebhookGateway{
		url:    url,
		token:  token,
		client: &http.Client{Timeout: timeout},
	}
}

func (g *WebhookGateway) Send(ctx context.Context, destination, message string) error {
	body, err := json.Marshal(map[string]string{
		"channel":   "sms",
		"recipient": destination,
		"message":   message,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal sms payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create sms request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if g.token != "" {
		req.Header.Set("Authorization", "Bearer "+g.token)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("sms request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("sms provider rejected request: status %d", resp.StatusCode)
	}
	return nil
}
