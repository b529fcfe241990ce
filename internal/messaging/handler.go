package messaging

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/plenasaude/quote-assistant/internal/conversation"
	"github.com/plenasaude/quote-assistant/internal/observability/metrics"
	"github.com/plenasaude/quote-assistant/pkg/logging"
)

var twilioTracer = otel.Tracer("plena.internal.messaging.twilio")

type conversationSubmitter interface {
	SubmitMessage(ctx context.Context, sessionID, text string, opts ...conversation.SubmitOption) (conversation.Reply, error)
}

// Handler handles messaging webhook requests.
type Handler struct {
	webhookSecret string
	service       conversationSubmitter
	metrics       *metrics.MessagingMetrics
	logger        *logging.Logger
}

// NewHandler creates a new messaging handler. An empty webhookSecret skips
// signature validation.
func NewHandler(webhookSecret string, service conversationSubmitter, m *metrics.MessagingMetrics, logger *logging.Logger) *Handler {
	if service == nil {
		panic("messaging: conversation service cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		webhookSecret: webhookSecret,
		service:       service,
		metrics:       m,
		logger:        logger,
	}
}

// RegisterRoutes mounts the Twilio webhook.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/messaging/twilio/webhook", h.TwilioWebhook)
}

type twimlResponse struct {
	XMLName xml.Name `xml:"Response"`
	Message string   `xml:"Message,omitempty"`
}

// TwilioWebhook handles POST /messaging/twilio/webhook requests. The
// sender's number is both the session ID and the remarketing lookup key.
func (h *Handler) TwilioWebhook(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	defer func() { h.metrics.ObserveWebhookLatency(time.Since(started).Seconds()) }()

	ctx, span := twilioTracer.Start(r.Context(), "messaging.twilio.webhook")
	defer span.End()

	if h.webhookSecret != "" && !ValidateTwilioSignature(r, h.webhookSecret, buildAbsoluteURL(r)) {
		h.logger.Warn("invalid twilio signature")
		span.RecordError(errors.New("invalid twilio signature"))
		h.metrics.ObserveInbound("unauthorized")
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	webhook, err := ParseTwilioWebhook(r)
	if err != nil {
		h.logger.Error("failed to parse twilio webhook", "error", err)
		span.RecordError(err)
		h.metrics.ObserveInbound("bad_request")
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	from := NormalizeE164(webhook.From)
	if from == "" {
		h.metrics.ObserveInbound("bad_request")
		http.Error(w, "missing From", http.StatusBadRequest)
		return
	}
	span.SetAttributes(attribute.String("twilio.message_sid", webhook.MessageSid))

	reply, err := h.service.SubmitMessage(ctx, from, webhook.Body, conversation.WithReturningPhone(from))
	if err != nil {
		h.logger.Error("failed to process inbound sms", "error", err, "message_sid", webhook.MessageSid)
		span.RecordError(err)
		h.metrics.ObserveInbound("error")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	h.metrics.ObserveInbound("ok")

	body, err := xml.Marshal(twimlResponse{Message: reply.Text})
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, xml.Header)
	w.Write(body)
}

func buildAbsoluteURL(r *http.Request) string {
	if r.URL == nil {
		return ""
	}
	if r.URL.Scheme != "" {
		return r.URL.String()
	}
	scheme := r.Header.Get("X-Forwarded-Proto")
	if scheme == "" {
		scheme = "https"
		if r.TLS == nil {
			scheme = "http"
		}
	}
	host := r.Header.Get("X-Forwarded-Host")
	if host == "" {
		host = r.Host
	}
	return fmt.Sprintf("%s://%s%s", scheme, host, r.URL.RequestURI())
}
