// Command simulator replays scripted customer conversations against an
// in-memory quote assistant and prints the transcript.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	appconfig "github.com/plenasaude/quote-assistant/internal/config"
	"github.com/plenasaude/quote-assistant/internal/conversation"
	"github.com/plenasaude/quote-assistant/internal/leads"
	"github.com/plenasaude/quote-assistant/internal/pricing"
	"github.com/plenasaude/quote-assistant/internal/remarketing"
	"github.com/plenasaude/quote-assistant/pkg/logging"
)

func main() {
	cfg := appconfig.Load()

	name := flag.String("scenario", "all", "scenario to replay: all, family, business, faq, remarketing")
	testMode := flag.Bool("test-mode", cfg.TestMode, "prefix replies with [TEST]")
	logPath := flag.String("log", cfg.InteractionLogPath, "append interaction records to this file")
	flag.Parse()

	logger := logging.NewWithWriter(cfg.LogLevel, os.Stderr)

	var eventLog io.Writer
	if *logPath != "" {
		f, err := os.OpenFile(*logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			logger.Error("failed to open interaction log", "path", *logPath, "error", err)
			os.Exit(1)
		}
		defer f.Close()
		eventLog = f
	}

	sim, err := newSimulator(cfg.PricingTablePath, *testMode, eventLog, os.Stdout, logger)
	if err != nil {
		logger.Error("failed to start simulator", "error", err)
		os.Exit(1)
	}

	selected := scenarios
	if *name != "all" {
		sc, ok := findScenario(*name)
		if !ok {
			fmt.Fprintf(os.Stderr, "unknown scenario %q\n", *name)
			os.Exit(2)
		}
		selected = []scenario{sc}
	}

	ctx := context.Background()
	for _, sc := range selected {
		if err := sim.play(ctx, sc); err != nil {
			logger.Error("scenario failed", "scenario", sc.name, "error", err)
			os.Exit(1)
		}
	}
	fmt.Fprintf(os.Stdout, "\n%d lead(s) handed to brokers\n", sim.leadCount(ctx))
}

// clock is a virtual clock advanced by scenario pauses.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

type simulator struct {
	clock     *clock
	service   *conversation.Service
	scheduler *remarketing.Scheduler
	leads     leads.Repository
	out       io.Writer
}

func newSimulator(tablePath string, testMode bool, eventLog, out io.Writer, logger *logging.Logger) (*simulator, error) {
	tables, err := pricing.LoadTables(tablePath)
	if err != nil {
		return nil, err
	}
	engine, err := pricing.NewEngine(tables)
	if err != nil {
		return nil, err
	}

	sinks := conversation.MultiSink{conversation.NewLogSink(logger)}
	if eventLog != nil {
		sinks = append(sinks, conversation.NewTextSink(eventLog))
	}

	clk := &clock{now: time.Now().UTC()}
	repo := leads.NewInMemoryRepository()
	svc := conversation.NewService(conversation.NewMachine(engine), conversation.NewMemoryStore(),
		conversation.WithClock(clk.Now),
		conversation.WithLogger(logger),
		conversation.WithEventSink(sinks),
		conversation.WithTestMode(testMode),
		conversation.WithLeadPublisher(leads.NewDispatcher(repo, nil, nil, logger)),
	)
	scheduler := remarketing.NewScheduler(svc, remarketing.NewMemoryRegistry(), remarketing.Config{},
		remarketing.WithEventSink(sinks),
		remarketing.WithLogger(logger),
	)
	svc.SetReturnTracker(scheduler)

	return &simulator{clock: clk, service: svc, scheduler: scheduler, leads: repo, out: out}, nil
}

func (s *simulator) play(ctx context.Context, sc scenario) error {
	fmt.Fprintf(s.out, "\n=== %s (%s) ===\n", sc.name, sc.sessionID)
	for _, st := range sc.steps {
		if st.pause > 0 {
			now := s.clock.Advance(st.pause)
			fmt.Fprintf(s.out, "\n... %s later ...\n", st.pause)
			sent, err := s.scheduler.Sweep(ctx, now)
			if err != nil {
				return fmt.Errorf("sweep: %w", err)
			}
			for _, o := range sent {
				fmt.Fprintf(s.out, "[remarketing attempt %d -> %s]\n%s\n", o.Attempt, o.Phone, o.Message)
			}
			continue
		}

		s.clock.Advance(time.Minute)
		fmt.Fprintf(s.out, "\n> %s\n", st.text)
		reply, err := s.service.SubmitMessage(ctx, sc.sessionID, st.text, conversation.WithReturningPhone(sc.sessionID))
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "%s\n", reply.Text)
	}
	return nil
}

func (s *simulator) leadCount(ctx context.Context) int {
	all, err := s.leads.List(ctx, leads.ListLeadsFilter{Limit: 100})
	if err != nil {
		return 0
	}
	return len(all)
}
