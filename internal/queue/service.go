package queue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/chani890/MediWait/internal/model"
	"github.com/chani890/MediWait/internal/parse"
	"github.com/chani890/MediWait/internal/store"
)

// RegisterRequest is the intake form. Wait notifications are on unless
// NotifyEnabled is explicitly false.
type RegisterRequest struct {
	Name          string `json:"name"`
	BirthDate     string `json:"birthDate"`
	PhoneNumber   string `json:"phoneNumber"`
	IsGuardian    bool   `json:"isGuardian"`
	NotifyEnabled *bool  `json:"notifyEnabled,omitempty"`
	NotifyAt      *int   `json:"notifyAt,omitempty"`
}

// Service is the queue core. Every status change goes through the store's
// compare-and-set; afterwards events are published and the notification
// trigger re-evaluates the queue.
type Service struct {
	store         store.Store
	arbitrator    *Arbitrator
	publisher     Publisher
	trigger       Trigger
	cleaners      []DependentCleaner
	forceCleaners []DependentCleaner
	retryAttempts int
	now           func() time.Time
	log           zerolog.Logger
}

// Option configures a Service.
type Option func(*Service)

func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

func WithTrigger(t Trigger) Option {
	return func(s *Service) { s.trigger = t }
}

// WithCleaners registers collaborators run before every delete.
func WithCleaners(c ...DependentCleaner) Option {
	return func(s *Service) { s.cleaners = append(s.cleaners, c...) }
}

// WithForceCleaners registers collaborators run only before a force delete,
// after the regular cleaners.
func WithForceCleaners(c ...DependentCleaner) Option {
	return func(s *Service) { s.forceCleaners = append(s.forceCleaners, c...) }
}

func WithRetryAttempts(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.retryAttempts = n
		}
	}
}

// WithClock replaces the wall clock, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.log = l.With().Str("component", "queue").Logger() }
}

func NewService(st store.Store, opts ...Option) *Service {
	s := &Service{
		store:         st,
		publisher:     nopPublisher{},
		trigger:       nopTrigger{},
		retryAttempts: 3,
		now:           utcNow,
		log:           zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.arbitrator = NewArbitrator(st, s.now)
	return s
}

// Register creates a PENDING reception for the patient described by req,
// reusing the patient record when name and phone match an existing one.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (model.Reception, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return model.Reception{}, invalidInput("name is required")
	}
	phone, err := parse.NormalizePhone(req.PhoneNumber)
	if err != nil {
		return model.Reception{}, invalidInput("%v", err)
	}
	if !parse.ValidBirthDate(req.BirthDate) {
		return model.Reception{}, invalidInput("birth date must be YYYY-MM-DD")
	}
	if req.NotifyAt != nil && *req.NotifyAt < 0 {
		return model.Reception{}, invalidInput("notifyAt must not be negative")
	}

	patient, created, err := s.store.FindOrCreate(ctx, name, req.BirthDate, phone)
	if err != nil {
		return model.Reception{}, err
	}

	r := model.Reception{
		PatientID:     patient.ID,
		IsGuardian:    req.IsGuardian,
		NotifyEnabled: req.NotifyEnabled == nil || *req.NotifyEnabled,
		NotifyAt:      req.NotifyAt,
		CreatedAt:     s.now(),
	}
	if _, err := s.store.Create(ctx, &r); err != nil {
		return model.Reception{}, err
	}
	r.Patient = patient

	s.log.Info().
		Str("reception_id", r.ID).
		Str("patient_id", patient.ID).
		Bool("new_patient", created).
		Msg("reception registered")
	s.publish(ctx, EventNewReception, &r, "")
	return r, nil
}

// ManualRegister is staff intake: the patient is registered and confirmed in
// one step. A reception whose confirmation fails is removed again, so the
// request can simply be retried.
func (s *Service) ManualRegister(ctx context.Context, req RegisterRequest) (model.Reception, error) {
	r, err := s.Register(ctx, req)
	if err != nil {
		return model.Reception{}, err
	}
	confirmed, err := s.Confirm(ctx, r.ID)
	if err != nil {
		if delErr := s.Delete(ctx, r.ID); delErr != nil {
			s.log.Error().Err(delErr).Str("reception_id", r.ID).Msg("failed to remove unconfirmed manual registration")
		}
		return model.Reception{}, err
	}
	return confirmed, nil
}

// Confirm moves a PENDING reception to CONFIRMED.
func (s *Service) Confirm(ctx context.Context, id string) (model.Reception, error) {
	return s.transition(ctx, id, model.ActionConfirm)
}

// Complete moves the CALLED reception to DONE.
func (s *Service) Complete(ctx context.Context, id string) (model.Reception, error) {
	return s.transition(ctx, id, model.ActionComplete)
}

// MarkNoResponse moves a CALLED reception to NO_RESPONSE. NO_RESPONSE is
// terminal: the patient has to register again.
func (s *Service) MarkNoResponse(ctx context.Context, id string) (model.Reception, error) {
	return s.transition(ctx, id, model.ActionNoResponse)
}

// Cancel moves a CALLED reception to CANCELED.
func (s *Service) Cancel(ctx context.Context, id string) (model.Reception, error) {
	return s.transition(ctx, id, model.ActionCancel)
}

func (s *Service) transition(ctx context.Context, id, action string) (model.Reception, error) {
	from, to, column, ok := model.Transition(action)
	if !ok {
		return model.Reception{}, fmt.Errorf("unknown action %q", action)
	}

	r, err := s.store.Get(ctx, id)
	if err != nil {
		return model.Reception{}, err
	}
	if !model.ValidTransition(action, r.Status) {
		return model.Reception{}, &TransitionError{ReceptionID: id, Action: action, From: r.Status}
	}

	now := s.now()
	applied, err := s.store.CompareAndSetStatus(ctx, id, from, to, column, now)
	if err != nil {
		return model.Reception{}, err
	}
	if !applied {
		// Someone else moved it between the read and the update.
		current, err := s.store.Get(ctx, id)
		if err != nil {
			return model.Reception{}, err
		}
		if current.Status != from {
			return model.Reception{}, &TransitionError{ReceptionID: id, Action: action, From: current.Status}
		}
		return model.Reception{}, ErrConcurrentModification
	}

	r.Status = to
	r.UpdatedAt = now
	switch column {
	case model.ColumnConfirmedAt:
		r.ConfirmedAt = &now
	case model.ColumnCalledAt:
		r.CalledAt = &now
	case model.ColumnCompletedAt:
		r.CompletedAt = &now
	}

	s.log.Info().
		Str("reception_id", id).
		Str("from", string(from)).
		Str("to", string(to)).
		Msg("reception status changed")
	s.afterChange(ctx, &r, from)
	return r, nil
}

// CallNext calls the earliest-confirmed patient. See Arbitrator.CallNext.
func (s *Service) CallNext(ctx context.Context) (model.Reception, error) {
	r, err := s.arbitrator.CallNext(ctx)
	if err != nil {
		return model.Reception{}, err
	}

	s.log.Info().
		Str("reception_id", r.ID).
		Str("patient", r.Patient.Name).
		Msg("patient called")
	s.publish(ctx, EventDoctorCall, &r, string(model.StatusConfirmed))
	if err := s.trigger.NotifyCalled(ctx, r); err != nil {
		s.log.Warn().Err(err).Str("reception_id", r.ID).Msg("call notification failed")
	}
	s.afterChange(ctx, &r, model.StatusConfirmed)
	return r, nil
}

// CallNextWithRetry retries CallNext while it loses compare-and-set races.
func (s *Service) CallNextWithRetry(ctx context.Context) (model.Reception, error) {
	var err error
	for attempt := 1; attempt <= s.retryAttempts; attempt++ {
		var r model.Reception
		r, err = s.CallNext(ctx)
		if !errors.Is(err, ErrConcurrentModification) {
			return r, err
		}
		s.log.Debug().Int("attempt", attempt).Msg("call-next lost a race, retrying")
		if ctx.Err() != nil {
			return model.Reception{}, ctx.Err()
		}
	}
	return model.Reception{}, err
}

// Delete removes a PENDING or CONFIRMED reception, and also finished
// NO_RESPONSE or CANCELED ones. CALLED and DONE receptions are protected.
// Dependent records are removed first.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.delete(ctx, id, false)
}

// ForceDelete is the admin delete: it also removes a CALLED reception after
// clearing its prescriptions. DONE stays protected.
func (s *Service) ForceDelete(ctx context.Context, id string) error {
	return s.delete(ctx, id, true)
}

func (s *Service) delete(ctx context.Context, id string, force bool) error {
	protected := []model.ReceptionStatus{model.StatusCalled, model.StatusDone}
	cleaners := s.cleaners
	if force {
		protected = []model.ReceptionStatus{model.StatusDone}
		cleaners = append(append([]DependentCleaner(nil), s.cleaners...), s.forceCleaners...)
	}

	r, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	for _, p := range protected {
		if r.Status == p {
			return fmt.Errorf("%w: reception %s is %s", ErrIllegalState, id, r.Status)
		}
	}

	for _, c := range cleaners {
		if err := c.DeleteForReception(ctx, id); err != nil {
			return fmt.Errorf("failed to remove records of reception %s: %w", id, err)
		}
	}

	if err := s.store.Delete(ctx, id, protected...); err != nil {
		return err
	}

	s.log.Info().
		Str("reception_id", id).
		Str("status", string(r.Status)).
		Bool("force", force).
		Msg("reception deleted")
	s.afterChange(ctx, nil, r.Status)
	return nil
}

// SetNotify turns the wait notification of a reception on or off and, when
// notifyAt is set, moves its threshold. The queue is re-evaluated at once, so
// a patient already at the new threshold is notified now.
func (s *Service) SetNotify(ctx context.Context, id string, enabled bool, notifyAt *int) (model.Reception, error) {
	if notifyAt != nil && *notifyAt < 0 {
		return model.Reception{}, invalidInput("notifyAt must not be negative")
	}
	if err := s.store.UpdateNotify(ctx, id, enabled, notifyAt, s.now()); err != nil {
		return model.Reception{}, err
	}

	s.log.Info().
		Str("reception_id", id).
		Bool("enabled", enabled).
		Msg("notification settings updated")
	s.afterChange(ctx, nil, "")
	return s.store.Get(ctx, id)
}

// SendWaitNotification is the manual wait SMS sent by staff. It ignores the
// patient's opt-out and threshold, and records the send like an automatic one.
func (s *Service) SendWaitNotification(ctx context.Context, id string) (model.Reception, error) {
	r, err := s.store.Get(ctx, id)
	if err != nil {
		return model.Reception{}, err
	}
	if r.Status != model.StatusConfirmed {
		return model.Reception{}, fmt.Errorf("%w: reception %s is %s", ErrNotWaiting, id, r.Status)
	}

	pos, err := s.WaitingPosition(ctx, id)
	if err != nil {
		return model.Reception{}, err
	}
	if pos == 0 {
		// Called between the two reads.
		return model.Reception{}, fmt.Errorf("%w: reception %s left the queue", ErrNotWaiting, id)
	}
	if err := s.trigger.NotifyWaiting(ctx, r, pos-1); err != nil {
		s.log.Warn().Err(err).Str("reception_id", id).Msg("manual wait notification failed")
		return model.Reception{}, fmt.Errorf("%w: %v", ErrNotificationFailed, err)
	}
	s.log.Info().Str("reception_id", id).Int("ahead", pos-1).Msg("manual wait notification sent")
	return s.store.Get(ctx, id)
}

// Get returns a reception with its patient.
func (s *Service) Get(ctx context.Context, id string) (model.Reception, error) {
	return s.store.Get(ctx, id)
}

// WaitingPosition returns the reception's place in line, 0 when it is not
// waiting.
func (s *Service) WaitingPosition(ctx context.Context, id string) (int, error) {
	r, err := s.store.Get(ctx, id)
	if err != nil {
		return 0, err
	}
	if r.Status != model.StatusPending && r.Status != model.StatusConfirmed {
		return 0, nil
	}

	confirmed, err := s.store.ListByStatus(ctx, model.StatusConfirmed)
	if err != nil {
		return 0, err
	}
	var pending []model.Reception
	if r.Status == model.StatusPending {
		if pending, err = s.store.ListByStatus(ctx, model.StatusPending); err != nil {
			return 0, err
		}
	}
	return WaitingPosition(r, pending, confirmed), nil
}

// WaitingCount is the number of confirmed patients waiting to be called.
func (s *Service) WaitingCount(ctx context.Context) (int64, error) {
	return s.store.CountByStatus(ctx, model.StatusConfirmed)
}

func (s *Service) Pending(ctx context.Context) ([]model.Reception, error) {
	return s.store.ListByStatus(ctx, model.StatusPending)
}

// Confirmed is the waiting queue in call order.
func (s *Service) Confirmed(ctx context.Context) ([]model.Reception, error) {
	return s.store.ListByStatus(ctx, model.StatusConfirmed)
}

// CurrentPatients returns the reception(s) in the exam room.
func (s *Service) CurrentPatients(ctx context.Context) ([]model.Reception, error) {
	return s.store.ListByStatus(ctx, model.StatusCalled)
}

func (s *Service) afterChange(ctx context.Context, r *model.Reception, previous model.ReceptionStatus) {
	if r != nil {
		s.publish(ctx, EventStatusChange, r, string(previous))
	}
	s.publish(ctx, EventQueueUpdate, nil, "")

	sent, err := s.trigger.Evaluate(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("notification evaluation failed")
		return
	}
	if sent > 0 {
		s.log.Debug().Int("sent", sent).Msg("wait notifications sent")
	}
}

func (s *Service) publish(ctx context.Context, kind EventKind, r *model.Reception, previous string) {
	waiting, err := s.store.CountByStatus(ctx, model.StatusConfirmed)
	if err != nil {
		s.log.Warn().Err(err).Msg("failed to count waiting patients for event")
	}
	s.publisher.Publish(Event{Kind: kind, Reception: r, Previous: previous, Waiting: waiting})
}
