package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/plenasaude/quote-assistant/internal/observability/metrics"
	"github.com/plenasaude/quote-assistant/pkg/logging"
)

const testModePrefix = "[TEST] "

// ErrMissingSessionID is returned when a message arrives without a session ID.
var ErrMissingSessionID = errors.New("conversation: session id is required")

// LeadPublisher hands qualified leads to the sales team.
type LeadPublisher interface {
	PublishLead(ctx context.Context, lead QualifiedLead) error
}

// LeadPublisherFunc adapts a function to LeadPublisher.
type LeadPublisherFunc func(ctx context.Context, lead QualifiedLead) error

func (f LeadPublisherFunc) PublishLead(ctx context.Context, lead QualifiedLead) error {
	return f(ctx, lead)
}

// ReturnTracker gives back the snapshot of an abandoned session when its
// customer writes again. A successful restore removes the snapshot.
type ReturnTracker interface {
	Restore(ctx context.Context, phone string) (Session, bool, error)
}

// Reply is the response to one inbound message.
type Reply struct {
	SessionID string        `json:"session_id"`
	Text      string        `json:"reply"`
	State     State         `json:"state"`
	Category  EventCategory `json:"category"`
}

// Service runs conversation turns against a session store. Turns for the same
// session are serialized; turns for different sessions run concurrently.
type Service struct {
	machine  *Machine
	store    SessionStore
	sink     EventSink
	leads    LeadPublisher
	returns  ReturnTracker
	metrics  *metrics.ConversationMetrics
	logger   *logging.Logger
	testMode bool
	now      func() time.Time
	locks    *keyedMutex
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

func WithEventSink(sink EventSink) ServiceOption {
	return func(s *Service) {
		if sink != nil {
			s.sink = sink
		}
	}
}

func WithLeadPublisher(p LeadPublisher) ServiceOption {
	return func(s *Service) { s.leads = p }
}

func WithReturnTracker(t ReturnTracker) ServiceOption {
	return func(s *Service) { s.returns = t }
}

func WithMetrics(m *metrics.ConversationMetrics) ServiceOption {
	return func(s *Service) { s.metrics = m }
}

func WithLogger(logger *logging.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithTestMode prefixes every reply with "[TEST] ".
func WithTestMode(enabled bool) ServiceOption {
	return func(s *Service) { s.testMode = enabled }
}

func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService creates a conversation service.
func NewService(machine *Machine, store SessionStore, opts ...ServiceOption) *Service {
	if machine == nil {
		panic("conversation: machine cannot be nil")
	}
	if store == nil {
		store = NewMemoryStore()
	}
	s := &Service{
		machine: machine,
		store:   store,
		sink:    NopSink{},
		logger:  logging.Default(),
		now:     time.Now,
		locks:   newKeyedMutex(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetReturnTracker wires the remarketing registry after construction.
func (s *Service) SetReturnTracker(t ReturnTracker) {
	s.returns = t
}

// SubmitOption customizes a single SubmitMessage call.
type SubmitOption func(*submitConfig)

type submitConfig struct {
	returningPhone string
}

// WithReturningPhone identifies the sender so an abandoned conversation can be
// resumed from its saved snapshot.
func WithReturningPhone(phone string) SubmitOption {
	return func(c *submitConfig) { c.returningPhone = strings.TrimSpace(phone) }
}

// SubmitMessage processes one inbound message for sessionID and returns the
// reply. Side-effect failures after the session is saved are logged only.
func (s *Service) SubmitMessage(ctx context.Context, sessionID, text string, opts ...SubmitOption) (Reply, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return Reply{}, ErrMissingSessionID
	}
	var cfg submitConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	unlock := s.locks.Lock(sessionID)
	defer unlock()

	now := s.now()
	log := s.logger.WithSession(sessionID)

	sess, err := s.store.Load(ctx, sessionID)
	switch {
	case errors.Is(err, ErrSessionNotFound):
		sess = NewSession(sessionID, now)
	case err != nil:
		return Reply{}, fmt.Errorf("conversation: load session: %w", err)
	}
	if sess.Contact == "" && cfg.returningPhone != "" {
		sess.Contact = cfg.returningPhone
	}

	phone := cfg.returningPhone
	if phone == "" && !sess.Active {
		phone = sess.Destination()
	}
	if phone != "" && s.returns != nil {
		snapshot, ok, err := s.returns.Restore(ctx, phone)
		if err != nil {
			log.Warn("remarketing restore failed", "error", err)
		} else if ok {
			snapshot.ID = sessionID
			if snapshot.Contact == "" {
				snapshot.Contact = sess.Contact
			}
			resumed, out := s.machine.Resume(snapshot, now)
			if category, answer, ok := MatchFAQ(text); ok {
				out.Reply = joinReply(answer, out.Reply)
				out.FAQCategory = category
			}
			log.Info("customer returned from remarketing", "state", resumed.State.String(), "retry_count", resumed.RetryCount)
			return s.finish(ctx, log, resumed, text, out)
		}
	}

	next, out := s.machine.Step(sess, text, now)
	return s.finish(ctx, log, next, text, out)
}

func (s *Service) finish(ctx context.Context, log *logging.Logger, sess Session, input string, out Outcome) (Reply, error) {
	if err := s.store.Save(ctx, sess); err != nil {
		return Reply{}, fmt.Errorf("conversation: save session: %w", err)
	}

	s.metrics.ObserveTurn(sess.State.String())
	if out.FAQCategory != "" {
		s.metrics.ObserveFAQ(string(out.FAQCategory))
	}
	if out.Quote != nil {
		s.metrics.ObserveQuote(string(out.Quote.PlanType), string(out.Quote.Tier), out.Quote.MonthlyValue)
	}
	if out.Lead != nil && s.leads != nil {
		if err := s.leads.PublishLead(ctx, *out.Lead); err != nil {
			log.Error("failed to publish lead", "error", err)
		} else {
			s.metrics.ObserveLead()
		}
	}

	reply := out.Reply
	if s.testMode {
		reply = testModePrefix + reply
	}

	eventState := sess.State
	if out.Category == EventQuote {
		eventState = StatePresentQuote
	}
	snapshot := sess.Clone()
	if err := s.sink.Record(ctx, Event{
		Time:      s.now(),
		Category:  out.Category,
		SessionID: sess.ID,
		Input:     input,
		Reply:     reply,
		State:     eventState,
		Snapshot:  &snapshot,
	}); err != nil {
		log.Warn("failed to record conversation event", "error", err)
	}

	log.Debug("conversation turn processed", "state", sess.State.String(), "category", string(out.Category))
	return Reply{SessionID: sess.ID, Text: reply, State: sess.State, Category: out.Category}, nil
}

// Session returns the stored session.
func (s *Service) Session(ctx context.Context, sessionID string) (Session, error) {
	return s.store.Load(ctx, sessionID)
}

// Sessions lists all stored sessions.
func (s *Service) Sessions(ctx context.Context) ([]Session, error) {
	return s.store.List(ctx)
}

// EndSession discards a session.
func (s *Service) EndSession(ctx context.Context, sessionID string) error {
	unlock := s.locks.Lock(sessionID)
	defer unlock()
	if _, err := s.store.Load(ctx, sessionID); err != nil {
		return err
	}
	return s.store.Delete(ctx, sessionID)
}

// Update runs fn on the stored session while holding the session lock, and
// saves the session when fn reports a change.
func (s *Service) Update(ctx context.Context, sessionID string, fn func(*Session) (bool, error)) error {
	unlock := s.locks.Lock(sessionID)
	defer unlock()

	sess, err := s.store.Load(ctx, sessionID)
	if err != nil {
		return err
	}
	changed, err := fn(&sess)
	if err != nil || !changed {
		return err
	}
	return s.store.Save(ctx, sess)
}

// Record forwards an event to the service's sink.
func (s *Service) Record(ctx context.Context, evt Event) error {
	if evt.Time.IsZero() {
		evt.Time = s.now()
	}
	return s.sink.Record(ctx, evt)
}
