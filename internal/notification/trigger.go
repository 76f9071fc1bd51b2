package notification

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/chani890/MediWait/config"
	"github.com/chani890/MediWait/internal/model"
	"github.com/chani890/MediWait/internal/parse"
	"github.com/chani890/MediWait/internal/store"
)

// Trigger sends the wait notification to each confirmed patient whose
// number of people ahead has reached their threshold. A send is recorded on
// the reception so it happens once per waiting episode.
type Trigger struct {
	mu               sync.Mutex
	store            store.ReceptionStore
	gateway          Gateway
	defaultThreshold int
	callSMS          bool
	clinic           string
	log              zerolog.Logger
}

func NewTrigger(st store.ReceptionStore, gw Gateway, cfg config.NotificationConfig, logger zerolog.Logger) *Trigger {
	return &Trigger{
		store:            st,
		gateway:          gw,
		defaultThreshold: cfg.DefaultThreshold,
		callSMS:          cfg.CallSMS,
		clinic:           cfg.ClinicName,
		log:              logger.With().Str("component", "notification").Logger(),
	}
}

// Threshold returns the number of people ahead at which r is notified.
func (t *Trigger) Threshold(r model.Reception) int {
	if r.NotifyAt != nil {
		return *r.NotifyAt
	}
	return t.defaultThreshold
}

// Evaluate scans the confirmed queue and sends every due notification. It
// returns how many were sent. Gateway failures are logged and retried on the
// next evaluation; only storage errors are returned.
func (t *Trigger) Evaluate(ctx context.Context) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	confirmed, err := t.store.ListByStatus(ctx, model.StatusConfirmed)
	if err != nil {
		return 0, err
	}

	sent := 0
	var errs []error
	for ahead, r := range confirmed {
		if !r.NotifyEnabled || r.NotificationSent || ahead != t.Threshold(r) {
			continue
		}

		logger := t.log.With().Str("reception_id", r.ID).Int("ahead", ahead).Logger()
		phone, err := parse.NormalizePhone(r.Patient.PhoneNumber)
		if err != nil {
			logger.Warn().Err(err).Msg("skipping wait notification")
			continue
		}
		if err := t.gateway.Send(ctx, phone, WaitMessage(t.clinic, r.Patient.Name, ahead)); err != nil {
			logger.Warn().Err(err).Msg("wait notification failed, will retry")
			continue
		}

		marked, err := t.store.MarkNotificationSent(ctx, r.ID)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if !marked {
			// Called or removed while the message was in flight.
			logger.Debug().Msg("reception left the queue before the send was recorded")
			continue
		}
		logger.Info().Msg("wait notification sent")
		sent++
	}
	return sent, errors.Join(errs...)
}

// NotifyCalled tells the patient to enter the exam room. It is a no-op when
// call messages are disabled or the patient opted out.
func (t *Trigger) NotifyCalled(ctx context.Context, r model.Reception) error {
	if !t.callSMS || !r.NotifyEnabled {
		return nil
	}
	phone, err := parse.NormalizePhone(r.Patient.PhoneNumber)
	if err != nil {
		return err
	}
	return t.gateway.Send(ctx, phone, CallMessage(t.clinic, r.Patient.Name))
}

// NotifyWaiting sends the wait message to r regardless of its threshold and
// opt-out, and records the send. It runs under the same lock as Evaluate so
// the two never message the same patient at once.
func (t *Trigger) NotifyWaiting(ctx context.Context, r model.Reception, ahead int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	phone, err := parse.NormalizePhone(r.Patient.PhoneNumber)
	if err != nil {
		return err
	}
	if err := t.gateway.Send(ctx, phone, WaitMessage(t.clinic, r.Patient.Name, ahead)); err != nil {
		return err
	}
	if _, err := t.store.MarkNotificationSent(ctx, r.ID); err != nil {
		return err
	}
	return nil
}
