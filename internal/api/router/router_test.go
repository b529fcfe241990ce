package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/plenasaude/quote-assistant/internal/conversation"
	httpmiddleware "github.com/plenasaude/quote-assistant/internal/http/middleware"
	"github.com/plenasaude/quote-assistant/internal/leads"
	"github.com/plenasaude/quote-assistant/internal/messaging"
	"github.com/plenasaude/quote-assistant/internal/observability/metrics"
	"github.com/plenasaude/quote-assistant/internal/pricing"
	"github.com/plenasaude/quote-assistant/internal/remarketing"
	"github.com/plenasaude/quote-assistant/pkg/logging"
)

func newTestRouter(t *testing.T, adminSecret string) http.Handler {
	t.Helper()

	logger := logging.NewWithWriter("error", &bytes.Buffer{})
	engine, err := pricing.NewDefaultEngine()
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	reg := prometheus.NewRegistry()
	leadRepo := leads.NewInMemoryRepository()
	svc := conversation.NewService(conversation.NewMachine(engine), conversation.NewMemoryStore(),
		conversation.WithLogger(logger),
		conversation.WithMetrics(metrics.NewConversationMetrics(reg)),
		conversation.WithLeadPublisher(leads.NewDispatcher(leadRepo, nil, nil, logger)),
	)
	scheduler := remarketing.NewScheduler(svc, remarketing.NewMemoryRegistry(), remarketing.Config{}, remarketing.WithLogger(logger))

	return New(&Config{
		Logger:              logger,
		ConversationHandler: conversation.NewHandler(svc, logger),
		MessagingHandler:    messaging.NewHandler("", svc, metrics.NewMessagingMetrics(reg), logger),
		LeadsHandler:        leads.NewHandler(leadRepo, logger),
		RemarketingHandler:  remarketing.NewHandler(remarketing.NewWorker(scheduler, nil, time.Minute, logger), logger),
		MetricsHandler:      promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		AdminAuthSecret:     adminSecret,
		CORSAllowedOrigins:  []string{"https://plena.example"},
	})
}

func TestRouterHealthEndpoint(t *testing.T) {
	rr := httptest.NewRecorder()
	newTestRouter(t, "").ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	var resp map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode health response: %v", err)
	}
	if resp["status"] != "ok" {
		t.Errorf("expected status 'ok', got %q", resp["status"])
	}
}

func TestRouterConversationToLeadFlow(t *testing.T) {
	router := newTestRouter(t, "")
	inputs := []string{"Hi", "Maria", "11999990000", "m@x.com", "2", "4", "35,32,5,3", "2", "2", "2", "1", "yes"}
	for _, in := range inputs {
		body, _ := json.Marshal(map[string]string{"session_id": "web-1", "message": in})
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/conversations/message", bytes.NewReader(body)))
		if rr.Code != http.StatusOK {
			t.Fatalf("input %q: expected 200, got %d: %s", in, rr.Code, rr.Body.String())
		}
	}

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/admin/leads", nil))
	var resp leads.ListLeadsResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode leads: %v", err)
	}
	if resp.Count != 1 || resp.Leads[0].MonthlyValue != 852.15 {
		t.Fatalf("expected one lead at 852.15, got %+v", resp)
	}

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rr.Body.String(), "plena_leads_total 1") {
		t.Fatalf("expected lead counter in metrics output")
	}
}

func TestRouterAdminRequiresToken(t *testing.T) {
	router := newTestRouter(t, "secret")

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/admin/remarketing", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Audience:  jwt.ClaimStrings{httpmiddleware.AdminAudience},
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	}).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/admin/remarketing", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("health must stay public, got %d", rr.Code)
	}
}

func TestRouterCORSPreflight(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/conversations/message", nil)
	req.Header.Set("Origin", "https://plena.example")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rr := httptest.NewRecorder()
	newTestRouter(t, "").ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}
}
