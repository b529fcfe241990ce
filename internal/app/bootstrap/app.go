package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/plenasaude/quote-assistant/internal/api/router"
	appconfig "github.com/plenasaude/quote-assistant/internal/config"
	"github.com/plenasaude/quote-assistant/internal/conversation"
	"github.com/plenasaude/quote-assistant/internal/leads"
	"github.com/plenasaude/quote-assistant/internal/messaging"
	"github.com/plenasaude/quote-assistant/internal/notify"
	"github.com/plenasaude/quote-assistant/internal/observability/metrics"
	"github.com/plenasaude/quote-assistant/internal/pricing"
	"github.com/plenasaude/quote-assistant/internal/remarketing"
	"github.com/plenasaude/quote-assistant/pkg/logging"
)

// Options carries process-level dependencies the caller owns.
type Options struct {
	Logger *logging.Logger
	// AWS is nil when no AWS-backed component should be built.
	AWS *aws.Config
	// Registry defaults to a fresh prometheus registry.
	Registry *prometheus.Registry
}

// App is the fully wired quote assistant.
type App struct {
	Config    *appconfig.Config
	Engine    *pricing.Engine
	Service   *conversation.Service
	Scheduler *remarketing.Scheduler
	Worker    *remarketing.Worker
	Leads     leads.Repository
	Router    http.Handler

	closers []io.Closer
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// Build wires every component from configuration. Backends that cannot be
// reached fall back to their in-memory versions.
func Build(ctx context.Context, cfg *appconfig.Config, opts Options) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Default()
	}
	reg := opts.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	app := &App{Config: cfg}

	tables, err := pricing.LoadTables(cfg.PricingTablePath)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: load pricing tables: %w", err)
	}
	engine, err := pricing.NewEngine(tables)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: pricing engine: %w", err)
	}
	app.Engine = engine

	var redisClient *redis.Client
	if needsRedis(cfg) {
		if redisClient = BuildRedisClient(ctx, cfg, logger, true); redisClient != nil {
			app.closers = append(app.closers, redisClient)
		}
	}

	pool := ConnectPostgresPool(ctx, cfg.DatabaseURL, logger)
	if pool != nil {
		app.closers = append(app.closers, closerFunc(func() error { pool.Close(); return nil }))
	}
	app.Leads = BuildLeadsRepository(pool, logger)

	sinks := conversation.MultiSink{conversation.NewLogSink(logger)}
	if cfg.InteractionLogPath != "" {
		f, err := os.OpenFile(cfg.InteractionLogPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			_ = app.Close()
			return nil, fmt.Errorf("bootstrap: open interaction log: %w", err)
		}
		app.closers = append(app.closers, f)
		sinks = append(sinks, conversation.NewTextSink(f))
	}

	convMetrics := metrics.NewConversationMetrics(reg)
	msgMetrics := metrics.NewMessagingMetrics(reg)
	remarketingMetrics := metrics.NewRemarketingMetrics(reg)

	notifier := notify.NewBrokerNotifier(BuildEmailSender(cfg, opts.AWS, logger), cfg.BrokerEmail, logger)
	dispatcher := leads.NewDispatcher(app.Leads, BuildLeadQueue(cfg, opts.AWS), notifier, logger)

	app.Service = conversation.NewService(conversation.NewMachine(engine), BuildSessionStore(cfg, redisClient, logger),
		conversation.WithLogger(logger),
		conversation.WithEventSink(sinks),
		conversation.WithMetrics(convMetrics),
		conversation.WithLeadPublisher(dispatcher),
		conversation.WithTestMode(cfg.TestMode),
	)

	app.Scheduler = remarketing.NewScheduler(app.Service, BuildRegistry(cfg, redisClient, opts.AWS, logger), remarketingConfig(cfg),
		remarketing.WithEventSink(sinks),
		remarketing.WithMetrics(remarketingMetrics),
		remarketing.WithLogger(logger),
	)
	app.Service.SetReturnTracker(app.Scheduler)
	app.Worker = remarketing.NewWorker(app.Scheduler, BuildSMSSender(cfg, msgMetrics, logger), cfg.RemarketingSweepInterval, logger)

	app.Router = router.New(&router.Config{
		Logger:              logger,
		ConversationHandler: conversation.NewHandler(app.Service, logger),
		MessagingHandler:    messaging.NewHandler(cfg.TwilioWebhookSecret, app.Service, msgMetrics, logger),
		LeadsHandler:        leads.NewHandler(app.Leads, logger),
		RemarketingHandler:  remarketing.NewHandler(app.Worker, logger),
		MetricsHandler:      promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		AdminAuthSecret:     cfg.AdminJWTSecret,
		CORSAllowedOrigins:  cfg.CORSAllowedOrigins,
		RateLimitPerSecond:  cfg.RateLimitPerSecond,
		RateLimitBurst:      cfg.RateLimitBurst,
	})
	return app, nil
}

// Close releases connections and files in reverse order of creation.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
