package remarketing

import (
	"context"
	"fmt"
	"time"

	"github.com/plenasaude/quote-assistant/pkg/logging"
)

// SMSSender abstracts outbound SMS sending.
type SMSSender interface {
	SendSMS(ctx context.Context, to, body string) error
}

// Worker runs the sweep on an interval and delivers the resulting messages.
type Worker struct {
	scheduler *Scheduler
	sender    SMSSender
	interval  time.Duration
	now       func() time.Time
	logger    *logging.Logger
}

// NewWorker creates a remarketing worker.
func NewWorker(scheduler *Scheduler, sender SMSSender, interval time.Duration, logger *logging.Logger) *Worker {
	if logger == nil {
		logger = logging.Default()
	}
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	return &Worker{
		scheduler: scheduler,
		sender:    sender,
		interval:  interval,
		now:       func() time.Time { return time.Now().UTC() },
		logger:    logger,
	}
}

// Run sweeps until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("remarketing worker: started", "interval", w.interval.String())
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("remarketing worker: stopped")
			return
		case <-ticker.C:
			if _, err := w.ProcessDue(ctx); err != nil {
				w.logger.Error("remarketing worker: sweep failed", "error", err)
			}
		}
	}
}

// ProcessDue runs one sweep and sends every resulting message. Delivery
// failures are logged; the registry already reflects the attempt.
func (w *Worker) ProcessDue(ctx context.Context) ([]Outbound, error) {
	out, err := w.scheduler.Sweep(ctx, w.now())
	if err != nil {
		return out, fmt.Errorf("remarketing worker: sweep: %w", err)
	}
	if len(out) == 0 {
		return out, nil
	}

	w.logger.Info("remarketing worker: sending messages", "count", len(out))
	for _, msg := range out {
		if w.sender == nil {
			continue
		}
		if err := w.sender.SendSMS(ctx, msg.Phone, msg.Message); err != nil {
			w.logger.Error("remarketing worker: failed to send",
				"session_id", msg.SessionID, "attempt", msg.Attempt, "error", err)
			continue
		}
		w.logger.Info("remarketing worker: message sent",
			"session_id", msg.SessionID, "stage", string(msg.Stage), "attempt", msg.Attempt)
	}
	return out, nil
}
