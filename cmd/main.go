package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/Vovarama1992/supchat/internal/ai"
	"github.com/Vovarama1992/supchat/internal/config"
	"github.com/Vovarama1992/supchat/internal/events"
	"github.com/Vovarama1992/supchat/internal/people"
	"github.com/Vovarama1992/supchat/internal/supchat"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

// run returns instead of exiting so deferred cleanup always happens.
func run() error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))

	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	logger.Info("starting simulation", slog.Uint64("seed", seed))
	rngFor := func(stream uint64) *rand.Rand { return rand.New(rand.NewPCG(seed, stream)) }

	// --- Events ---
	var pubs events.Multi
	if cfg.AMQPURL != "" {
		amqpPub, err := events.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange, logger)
		if err != nil {
			return fmt.Errorf("amqp error: %w", err)
		}
		defer amqpPub.Close()
		pubs = append(pubs, amqpPub)
	}
	if cfg.WebhookURL != "" {
		pubs = append(pubs, events.NewWebhookPublisher(cfg.WebhookURL))
	}

	// --- Core wiring ---
	dir := supchat.NewDirectory(rngFor(1))
	svc := supchat.NewService(dir, pubs, logger)

	opts := []supchat.Option{
		supchat.WithLogger(logger),
		supchat.WithProbabilities(cfg.CloseProbability, cfg.CsatProbability),
	}
	switch {
	case cfg.OpenAIAPIKey != "":
		aiClient, err := ai.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIModel, logger)
		if err != nil {
			return fmt.Errorf("ai error: %w", err)
		}
		opts = append(opts, supchat.WithReplier(aiClient))
	case cfg.CannedReplies:
		opts = append(opts, supchat.WithReplier(ai.NewCanned(rngFor(4))))
	}
	platform := supchat.NewPlatform(dir, svc, people.NewBuilder(rngFor(2)), rngFor(3), opts...)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := simulate(ctx, cfg, platform, logger); err != nil {
		return fmt.Errorf("simulation error: %w", err)
	}

	if err := export(ctx, cfg, dir.Snapshot()); err != nil {
		return fmt.Errorf("export error: %w", err)
	}

	if cfg.Serve {
		return serve(ctx, cfg, svc, platform, logger)
	}
	return nil
}

func simulate(ctx context.Context, cfg config.Config, platform *supchat.Platform, logger *slog.Logger) error {
	if err := platform.Seed(cfg.Clients, cfg.Agents); err != nil {
		return err
	}

	report, err := platform.StartChats(ctx, cfg.Chats)
	if err != nil {
		return err
	}
	logger.Info("chats started", slog.Int("opened", len(report.Opened)), slog.Int("failed", len(report.Failures)))

	for i := range cfg.Steps {
		step, err := platform.Step(ctx)
		if err != nil {
			// ErrAgentNotFound lands here: the directory is corrupt.
			return fmt.Errorf("step %d: %w", i+1, err)
		}
		logger.Info("step done",
			slog.Int("step", i+1),
			slog.Int("closed", len(step.Closed)),
			slog.Int("rated", len(step.Rated)),
			slog.Int("replies", step.Replies),
		)
	}
	return nil
}

func export(ctx context.Context, cfg config.Config, snap supchat.Snapshot) error {
	if cfg.ExportPath != "" {
		if err := supchat.NewFileRepo(cfg.ExportPath).Save(ctx, snap); err != nil {
			return err
		}
	}
	if cfg.DatabaseURL == "" {
		return nil
	}

	// --- DB ---
	db, err := sql.Open(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("db open: %w", err)
	}
	defer db.Close()

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		return fmt.Errorf("db ping: %w", err)
	}

	repo := supchat.NewSQLRepo(db, cfg.DatabaseDriver)
	if err := repo.Migrate(ctx); err != nil {
		return err
	}
	return repo.Save(ctx, snap)
}

func serve(ctx context.Context, cfg config.Config, svc supchat.Service, platform *supchat.Platform, logger *slog.Logger) error {
	// --- Router ---
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	supchat.RegisterRoutes(r, supchat.NewHandler(svc, platform, logger))

	// --- health ---
	r.Get("/ping", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("pong"))
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 3 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Printf("listening on %s", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}
