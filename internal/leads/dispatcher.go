package leads

import (
	"context"
	"fmt"

	"github.com/plenasaude/quote-assistant/internal/conversation"
	"github.com/plenasaude/quote-assistant/pkg/logging"
)

// Queue hands a persisted lead to downstream consumers.
type Queue interface {
	Enqueue(ctx context.Context, lead *Lead) error
}

// Notifier tells a broker about a new lead.
type Notifier interface {
	NotifyLead(ctx context.Context, lead *Lead) error
}

// Dispatcher persists qualified leads and fans them out to the handoff
// queue and the broker notifier. Both are optional.
type Dispatcher struct {
	repo     Repository
	queue    Queue
	notifier Notifier
	logger   *logging.Logger
}

var _ conversation.LeadPublisher = (*Dispatcher)(nil)

func NewDispatcher(repo Repository, queue Queue, notifier Notifier, logger *logging.Logger) *Dispatcher {
	if repo == nil {
		panic("leads: repository required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Dispatcher{repo: repo, queue: queue, notifier: notifier, logger: logger}
}

// Publish persists the lead, then enqueues and notifies. Only persistence
// errors are returned; delivery failures are logged.
func (d *Dispatcher) Publish(ctx context.Context, req *CreateLeadRequest) (*Lead, error) {
	lead, err := d.repo.Create(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("leads: persist: %w", err)
	}
	d.logger.Info("lead created", "id", lead.ID, "session_id", lead.SessionID, "plan", lead.PlanName)

	if d.queue != nil {
		if err := d.queue.Enqueue(ctx, lead); err != nil {
			d.logger.Error("leads: failed to enqueue lead", "id", lead.ID, "error", err)
		}
	}
	if d.notifier != nil {
		if err := d.notifier.NotifyLead(ctx, lead); err != nil {
			d.logger.Error("leads: failed to notify broker", "id", lead.ID, "error", err)
		}
	}
	return lead, nil
}

// PublishLead adapts Publish to the conversation service.
func (d *Dispatcher) PublishLead(ctx context.Context, q conversation.QualifiedLead) error {
	_, err := d.Publish(ctx, RequestFromQualified(q))
	return err
}
