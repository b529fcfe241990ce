package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/plenasaude/quote-assistant/internal/conversation"
	httpmiddleware "github.com/plenasaude/quote-assistant/internal/http/middleware"
	"github.com/plenasaude/quote-assistant/internal/leads"
	"github.com/plenasaude/quote-assistant/internal/messaging"
	"github.com/plenasaude/quote-assistant/internal/remarketing"
	"github.com/plenasaude/quote-assistant/pkg/logging"
)

// Config holds router configuration. Nil handlers are not mounted.
type Config struct {
	Logger              *logging.Logger
	ConversationHandler *conversation.Handler
	MessagingHandler    *messaging.Handler
	LeadsHandler        *leads.Handler
	RemarketingHandler  *remarketing.Handler
	MetricsHandler      http.Handler
	AdminAuthSecret     string
	CORSAllowedOrigins  []string
	// RateLimitPerSecond applies per client IP to the public routes; 0 disables it.
	RateLimitPerSecond float64
	RateLimitBurst     int
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(httpmiddleware.RequestLogger(logger))
	r.Use(middleware.Recoverer)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}

	r.Get("/health", healthCheck)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Group(func(public chi.Router) {
		if cfg.RateLimitPerSecond > 0 {
			public.Use(httpmiddleware.RateLimit(cfg.RateLimitPerSecond, cfg.RateLimitBurst))
		}
		if cfg.ConversationHandler != nil {
			cfg.ConversationHandler.Routes(public)
		}
		if cfg.MessagingHandler != nil {
			cfg.MessagingHandler.RegisterRoutes(public)
		}
	})

	r.Group(func(admin chi.Router) {
		if cfg.AdminAuthSecret != "" {
			admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))
		} else {
			logger.Warn("admin endpoints are not authenticated; set ADMIN_JWT_SECRET")
		}
		if cfg.LeadsHandler != nil {
			cfg.LeadsHandler.RegisterRoutes(admin)
		}
		if cfg.RemarketingHandler != nil {
			cfg.RemarketingHandler.RegisterRoutes(admin)
		}
	})

	return r
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
