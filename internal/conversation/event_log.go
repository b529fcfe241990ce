package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/plenasaude/quote-assistant/pkg/logging"
)

// EventCategory classifies a diagnostic event.
type EventCategory string

const (
	EventNormalFlow         EventCategory = "normal_flow"
	EventFAQ                EventCategory = "faq"
	EventQuote              EventCategory = "quote"
	EventLeadQualified      EventCategory = "lead_qualified"
	EventClosed             EventCategory = "closed"
	EventRemarketingReturn  EventCategory = "remarketing_return"
	EventRemarketingSent    EventCategory = "remarketing_sent"
	EventRemarketingEvicted EventCategory = "remarketing_evicted"
)

// Event is one append-only diagnostic record.
type Event struct {
	Time      time.Time     `json:"time"`
	Category  EventCategory `json:"category"`
	SessionID string        `json:"session_id"`
	Input     string        `json:"input,omitempty"`
	Reply     string        `json:"reply,omitempty"`
	State     State         `json:"state"`
	Snapshot  *Session      `json:"snapshot,omitempty"`
}

// EventSink receives diagnostic events. Implementations must be safe for
// concurrent use.
type EventSink interface {
	Record(ctx context.Context, evt Event) error
}

// NopSink discards events.
type NopSink struct{}

func (NopSink) Record(context.Context, Event) error { return nil }

// LogSink emits events as structured log lines.
type LogSink struct {
	logger *logging.Logger
}

// NewLogSink creates a sink writing to logger.
func NewLogSink(logger *logging.Logger) *LogSink {
	if logger == nil {
		logger = logging.Default()
	}
	return &LogSink{logger: logger}
}

func (l *LogSink) Record(ctx context.Context, evt Event) error {
	l.logger.InfoContext(ctx, "conversation event",
		"category", string(evt.Category),
		"session_id", evt.SessionID,
		"state", evt.State.String(),
		"input_len", len(evt.Input),
	)
	return nil
}

// TextSink appends human-readable records to a writer.
//
//	[2026-01-02T15:04:05Z] faq session=abc state=collect_ages
//	input: what is the grace period?
//	reply: Grace periods ...
//	snapshot: {"id":"abc",...}
type TextSink struct {
	mu sync.Mutex
	w  io.Writer
}

// NewTextSink creates a sink over w. The caller owns w.
func NewTextSink(w io.Writer) *TextSink {
	return &TextSink{w: w}
}

func (t *TextSink) Record(_ context.Context, evt Event) error {
	snapshot := []byte("{}")
	if evt.Snapshot != nil {
		data, err := json.Marshal(evt.Snapshot)
		if err != nil {
			return fmt.Errorf("conversation: encode snapshot: %w", err)
		}
		snapshot = data
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	_, err := fmt.Fprintf(t.w, "[%s] %s session=%s state=%s\ninput: %s\nreply: %s\nsnapshot: %s\n%s\n",
		evt.Time.UTC().Format(time.RFC3339), evt.Category, evt.SessionID, evt.State,
		evt.Input, evt.Reply, snapshot, "----")
	if err != nil {
		return fmt.Errorf("conversation: write event: %w", err)
	}
	return nil
}

// MultiSink fans an event out to several sinks.
type MultiSink []EventSink

func (m MultiSink) Record(ctx context.Context, evt Event) error {
	var errs []error
	for _, sink := range m {
		if sink == nil {
			continue
		}
		if err := sink.Record(ctx, evt); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
