package remarketing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/plenasaude/quote-assistant/internal/conversation"
	"github.com/plenasaude/quote-assistant/internal/observability/metrics"
	"github.com/plenasaude/quote-assistant/pkg/logging"
)

// maxAttemptsLimit bounds how many messages one abandoned session can receive.
const maxAttemptsLimit = 10

// Config controls when abandoned sessions are re-engaged.
type Config struct {
	Inactivity    time.Duration
	RetryInterval time.Duration
	MaxAttempts   int
}

func (c Config) withDefaults() Config {
	if c.Inactivity <= 0 {
		c.Inactivity = 24 * time.Hour
	}
	if c.RetryInterval <= 0 {
		c.RetryInterval = 24 * time.Hour
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.MaxAttempts > maxAttemptsLimit {
		c.MaxAttempts = maxAttemptsLimit
	}
	return c
}

// SessionSource exposes the live sessions the scheduler inspects.
// conversation.Service satisfies it.
type SessionSource interface {
	Sessions(ctx context.Context) ([]conversation.Session, error)
	Update(ctx context.Context, sessionID string, fn func(*conversation.Session) (bool, error)) error
}

// Outbound is a re-engagement message ready for delivery.
type Outbound struct {
	Phone     string `json:"phone"`
	SessionID string `json:"session_id"`
	Stage     Stage  `json:"stage"`
	Attempt   int    `json:"attempt"`
	Message   string `json:"message"`
}

// Scheduler finds abandoned sessions, registers their snapshots and decides
// which customers receive another message.
type Scheduler struct {
	sessions SessionSource
	registry Registry
	cfg      Config
	sink     conversation.EventSink
	metrics  *metrics.RemarketingMetrics
	logger   *logging.Logger
	locks    *phoneLocks
}

type Option func(*Scheduler)

func WithEventSink(sink conversation.EventSink) Option {
	return func(s *Scheduler) {
		if sink != nil {
			s.sink = sink
		}
	}
}

func WithMetrics(m *metrics.RemarketingMetrics) Option {
	return func(s *Scheduler) { s.metrics = m }
}

func WithLogger(logger *logging.Logger) Option {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func NewScheduler(sessions SessionSource, registry Registry, cfg Config, opts ...Option) *Scheduler {
	if sessions == nil || registry == nil {
		panic("remarketing: session source and registry are required")
	}
	s := &Scheduler{
		sessions: sessions,
		registry: registry,
		cfg:      cfg.withDefaults(),
		sink:     conversation.NopSink{},
		logger:   logging.Default(),
		locks:    newPhoneLocks(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Config returns the effective configuration.
func (s *Scheduler) Config() Config {
	return s.cfg
}

// Sweep evicts exhausted entries, schedules retries for registered customers
// whose retry interval elapsed and registers newly abandoned sessions.
// Running it twice at the same instant produces no further messages.
//
// The registry listing may be stale by the time an entry is handled, since a
// customer can return concurrently. Every change re-reads the entry under the
// session and phone locks and skips it when it was taken or modified.
func (s *Scheduler) Sweep(ctx context.Context, now time.Time) ([]Outbound, error) {
	entries, err := s.registry.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("remarketing: list registry: %w", err)
	}

	var out []Outbound
	registered := make(map[string]bool, len(entries))
	for _, e := range entries {
		registered[e.Phone] = true
		if e.Attempts >= s.cfg.MaxAttempts {
			if err := s.evict(ctx, e, now); err != nil {
				return out, err
			}
			continue
		}
		if now.Sub(e.LastAttempt) <= s.cfg.RetryInterval {
			continue
		}
		msg, ok, err := s.retry(ctx, e, now)
		if err != nil {
			return out, err
		}
		if ok {
			out = append(out, msg)
		}
	}

	sessions, err := s.sessions.Sessions(ctx)
	if err != nil {
		return out, fmt.Errorf("remarketing: list sessions: %w", err)
	}
	for _, sess := range sessions {
		phone := sess.Destination()
		if registered[phone] || !s.abandoned(sess, now) {
			continue
		}
		msg, ok, err := s.register(ctx, sess.ID, now)
		if err != nil {
			return out, err
		}
		if ok {
			registered[phone] = true
			out = append(out, msg)
		}
	}
	return out, nil
}

// Restore removes the registry entry for phone and returns its snapshot,
// reactivated and carrying the number of attempts made.
func (s *Scheduler) Restore(ctx context.Context, phone string) (conversation.Session, bool, error) {
	if phone == "" {
		return conversation.Session{}, false, nil
	}
	unlock := s.locks.Lock(phone)
	e, err := s.registry.Take(ctx, phone)
	unlock()
	if errors.Is(err, ErrEntryNotFound) {
		return conversation.Session{}, false, nil
	}
	if err != nil {
		return conversation.Session{}, false, fmt.Errorf("remarketing: restore %s: %w", phone, err)
	}
	snap := e.Snapshot.Clone()
	snap.RetryCount = e.Attempts
	snap.Active = true
	s.logger.Info("remarketing: customer returned",
		"session_id", snap.ID, "state", snap.State.String(), "attempts", e.Attempts)
	return snap, true, nil
}

// Entries lists the registry.
func (s *Scheduler) Entries(ctx context.Context) ([]Entry, error) {
	return s.registry.List(ctx)
}

func (s *Scheduler) abandoned(sess conversation.Session, now time.Time) bool {
	if !sess.Active || sess.Destination() == "" {
		return false
	}
	if sess.State == conversation.StateStart || sess.State == conversation.StateClose {
		return false
	}
	if sess.RetryCount >= s.cfg.MaxAttempts {
		return false
	}
	return now.Sub(sess.LastInteraction) > s.cfg.Inactivity
}

// register marks the session inactive and stores its snapshot while holding
// the session lock, so a concurrent turn either sees the entry or never
// observes the session as abandoned.
func (s *Scheduler) register(ctx context.Context, sessionID string, now time.Time) (Outbound, bool, error) {
	var entry Entry
	marked := false
	err := s.sessions.Update(ctx, sessionID, func(sess *conversation.Session) (bool, error) {
		if !s.abandoned(*sess, now) {
			return false, nil
		}
		phone := sess.Destination()
		unlock := s.locks.Lock(phone)
		defer unlock()

		if _, err := s.registry.Get(ctx, phone); err == nil {
			return false, nil
		} else if !errors.Is(err, ErrEntryNotFound) {
			return false, fmt.Errorf("remarketing: lookup %s: %w", phone, err)
		}

		sess.Active = false
		sess.RetryCount++
		entry = Entry{
			Phone:        phone,
			Snapshot:     sess.Clone(),
			Attempts:     sess.RetryCount,
			LastAttempt:  now,
			RegisteredAt: now,
		}
		if err := s.registry.Put(ctx, entry); err != nil {
			return false, fmt.Errorf("remarketing: register %s: %w", phone, err)
		}
		marked = true
		return true, nil
	})
	if errors.Is(err, conversation.ErrSessionNotFound) {
		return Outbound{}, false, nil
	}
	if err != nil {
		return Outbound{}, false, err
	}
	if !marked {
		return Outbound{}, false, nil
	}
	return s.sent(ctx, entry, now), true, nil
}

// retry sends the next attempt for a listed entry. It reports false when the
// customer returned or another sweep already advanced the entry.
func (s *Scheduler) retry(ctx context.Context, listed Entry, now time.Time) (Outbound, bool, error) {
	var next Entry
	advanced := false
	err := s.sessions.Update(ctx, listed.Snapshot.ID, func(sess *conversation.Session) (bool, error) {
		if sess.Active {
			// The customer is talking on this session again.
			return false, s.discard(ctx, listed)
		}
		var err error
		next, advanced, err = s.advance(ctx, listed, now)
		if err != nil || !advanced {
			return false, err
		}
		if sess.RetryCount == next.Attempts {
			return false, nil
		}
		sess.RetryCount = next.Attempts
		return true, nil
	})
	if errors.Is(err, conversation.ErrSessionNotFound) {
		next, advanced, err = s.advance(ctx, listed, now)
	}
	if err != nil {
		return Outbound{}, false, err
	}
	if !advanced {
		s.logger.Debug("remarketing: skipped stale entry", "session_id", listed.Snapshot.ID)
		return Outbound{}, false, nil
	}
	return s.sent(ctx, next, now), true, nil
}

// advance bumps the attempt count of the stored entry when it still matches
// the listed one.
func (s *Scheduler) advance(ctx context.Context, listed Entry, now time.Time) (Entry, bool, error) {
	unlock := s.locks.Lock(listed.Phone)
	defer unlock()

	current, ok, err := s.current(ctx, listed)
	if err != nil || !ok {
		return Entry{}, false, err
	}
	current.Attempts++
	current.LastAttempt = now
	current.Snapshot.RetryCount = current.Attempts
	if err := s.registry.Put(ctx, current); err != nil {
		return Entry{}, false, fmt.Errorf("remarketing: update %s: %w", current.Phone, err)
	}
	return current, true, nil
}

// discard drops a listed entry whose session is live again.
func (s *Scheduler) discard(ctx context.Context, listed Entry) error {
	unlock := s.locks.Lock(listed.Phone)
	defer unlock()

	if _, ok, err := s.current(ctx, listed); err != nil || !ok {
		return err
	}
	if err := s.registry.Delete(ctx, listed.Phone); err != nil {
		return fmt.Errorf("remarketing: discard %s: %w", listed.Phone, err)
	}
	return nil
}

// current re-reads the entry for listed.Phone and reports whether it is still
// the one that was listed.
func (s *Scheduler) current(ctx context.Context, listed Entry) (Entry, bool, error) {
	current, err := s.registry.Get(ctx, listed.Phone)
	if errors.Is(err, ErrEntryNotFound) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("remarketing: lookup %s: %w", listed.Phone, err)
	}
	if current.Attempts != listed.Attempts || !current.LastAttempt.Equal(listed.LastAttempt) {
		return Entry{}, false, nil
	}
	return current, true, nil
}

func (s *Scheduler) evict(ctx context.Context, listed Entry, now time.Time) error {
	unlock := s.locks.Lock(listed.Phone)
	e, ok, err := s.current(ctx, listed)
	if err == nil && ok {
		if err = s.registry.Delete(ctx, e.Phone); err != nil {
			err = fmt.Errorf("remarketing: evict %s: %w", e.Phone, err)
		}
	}
	unlock()
	if err != nil || !ok {
		return err
	}
	s.metrics.ObserveEvicted()
	s.logger.Info("remarketing: attempt limit reached",
		"session_id", e.Snapshot.ID, "attempts", e.Attempts)
	snap := e.Snapshot.Clone()
	s.record(ctx, conversation.Event{
		Time:      now,
		Category:  conversation.EventRemarketingEvicted,
		SessionID: snap.ID,
		State:     snap.State,
		Snapshot:  &snap,
	})
	return nil
}

func (s *Scheduler) sent(ctx context.Context, e Entry, now time.Time) Outbound {
	stage := StageFor(e.Snapshot.State)
	msg := Outbound{
		Phone:     e.Phone,
		SessionID: e.Snapshot.ID,
		Stage:     stage,
		Attempt:   e.Attempts,
		Message:   Message(stage, e.Attempts, e.Snapshot.FirstName()),
	}
	s.metrics.ObserveSent(string(stage), e.Attempts)
	snap := e.Snapshot.Clone()
	s.record(ctx, conversation.Event{
		Time:      now,
		Category:  conversation.EventRemarketingSent,
		SessionID: snap.ID,
		Reply:     msg.Message,
		State:     snap.State,
		Snapshot:  &snap,
	})
	return msg
}

func (s *Scheduler) record(ctx context.Context, evt conversation.Event) {
	if err := s.sink.Record(ctx, evt); err != nil {
		s.logger.Warn("remarketing: failed to record event", "category", evt.Category, "error", err)
	}
}
