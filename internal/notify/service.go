package notify

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/plenasaude/quote-assistant/internal/leads"
	"github.com/plenasaude/quote-assistant/pkg/logging"
)

// BrokerNotifier e-mails the broker desk when a customer accepts a quote.
type BrokerNotifier struct {
	email  EmailSender
	to     string
	logger *logging.Logger
}

var _ leads.Notifier = (*BrokerNotifier)(nil)

// NewBrokerNotifier creates a notifier. An empty recipient disables it.
func NewBrokerNotifier(email EmailSender, to string, logger *logging.Logger) *BrokerNotifier {
	if logger == nil {
		logger = logging.Default()
	}
	return &BrokerNotifier{email: email, to: strings.TrimSpace(to), logger: logger}
}

// NotifyLead sends the lead summary to the broker desk.
func (n *BrokerNotifier) NotifyLead(ctx context.Context, lead *leads.Lead) error {
	if n.email == nil || n.to == "" {
		n.logger.Debug("notify: broker email not configured, skipping", "lead_id", lead.ID)
		return nil
	}
	msg := leadEmail(lead)
	msg.To = n.to
	msg.ToName = "Plena Saúde brokers"
	if err := n.email.Send(ctx, msg); err != nil {
		return fmt.Errorf("notify: broker email: %w", err)
	}
	return nil
}

type field struct {
	label string
	value string
}

func leadFields(lead *leads.Lead) []field {
	fields := []field{
		{"Name", lead.Name},
		{"Phone", lead.Phone},
		{"Email", lead.Email},
	}
	if lead.CompanyName != "" {
		fields = append(fields, field{"Company", lead.CompanyName})
	}
	return append(fields,
		field{"Region", lead.Region},
		field{"Plan", fmt.Sprintf("%s (%s)", lead.PlanName, lead.PlanType)},
		field{"Lives", fmt.Sprintf("%d", lead.Lives)},
		field{"Monthly value", fmt.Sprintf("R$ %.2f", lead.MonthlyValue)},
		field{"Session", lead.SessionID},
	)
}

func leadEmail(lead *leads.Lead) EmailMessage {
	fields := leadFields(lead)

	var text, markup strings.Builder
	text.WriteString("A customer accepted a Plena Saúde quote and is waiting for a broker.\n\n")
	markup.WriteString("<p>A customer accepted a Plena Saúde quote and is waiting for a broker.</p><table>")
	for _, f := range fields {
		if f.value == "" {
			continue
		}
		fmt.Fprintf(&text, "%s: %s\n", f.label, f.value)
		fmt.Fprintf(&markup, "<tr><th align=\"left\">%s</th><td>%s</td></tr>", f.label, html.EscapeString(f.value))
	}
	text.WriteString("\nPayment of the first boleto is collected when the contract is signed.")
	markup.WriteString("</table><p>Payment of the first boleto is collected when the contract is signed.</p>")

	return EmailMessage{
		Subject: fmt.Sprintf("New lead: %s - %s (R$ %.2f)", lead.Name, lead.PlanName, lead.MonthlyValue),
		Body:    text.String(),
		HTML:    markup.String(),
	}
}
