package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"github.com/rs/cors"

	"github.com/auraplay/backend/internal/auth"
	"github.com/auraplay/backend/internal/config"
	"github.com/auraplay/backend/internal/daily"
	"github.com/auraplay/backend/internal/gameplay"
	"github.com/auraplay/backend/internal/hooks"
	"github.com/auraplay/backend/internal/ledger"
	"github.com/auraplay/backend/internal/middleware"
	"github.com/auraplay/backend/internal/notify"
	"github.com/auraplay/backend/internal/profile"
	"github.com/auraplay/backend/internal/quests"
	"github.com/auraplay/backend/internal/router"
	"github.com/auraplay/backend/internal/security"
	"github.com/auraplay/backend/internal/storage"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("Unable to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		slog.Error("Cannot reach PostgreSQL. Ensure Postgres is running, e.g. make dev-up", "error", err)
		os.Exit(1)
	}
	slog.Info("Connected to PostgreSQL")

	if err := storage.Migrate(ctx, pool); err != nil {
		slog.Error("Schema migration failed", "error", err)
		os.Exit(1)
	}

	// River migrations
	migrator, err := rivermigrate.New(riverpgxv5.New(pool), nil)
	if err != nil {
		slog.Error("Failed to create River migrator", "error", err)
		os.Exit(1)
	}
	if _, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil); err != nil {
		slog.Error("River migrate up failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Migrations applied")

	// Notify: insert func is set after the River client exists (breaks the
	// init cycle between the ledger service and the queue).
	var insertMu sync.Mutex
	var insertFn notify.InsertFunc
	insertEvent := func(ctx context.Context, args notify.BalanceEventJobArgs) error {
		insertMu.Lock()
		fn := insertFn
		insertMu.Unlock()
		if fn == nil {
			panic("river insert not wired")
		}
		return fn(ctx, args)
	}
	notifier := notify.NewEnqueuer(insertEvent, logger)

	// Ledger
	ledgerRepo := ledger.NewRepository(pool)
	ledgerSvc := ledger.NewService(ledgerRepo, notifier, logger)

	// Engines
	dailyRepo := daily.NewRepository(pool)
	dailySvc, err := daily.NewService(dailyRepo, ledgerSvc, cfg.DailySchedule, logger)
	if err != nil {
		slog.Error("Failed to build daily reward engine", "error", err)
		os.Exit(1)
	}

	questRepo := quests.NewRepository(pool)
	questSvc := quests.NewService(questRepo, ledgerSvc, quests.DefaultCatalog(cfg.CatalogVersion), cfg.QuestBatchSize, cfg.RerollCap, logger)

	securityRepo := security.NewRepository(pool)
	securitySvc := security.NewService(securityRepo, ledgerSvc, cfg.SecurityReward, cfg.PasswordMaxAgeDays, logger)

	// Gameplay boundary
	validator, err := gameplay.NewValidator(cfg.SchemaDir)
	if err != nil {
		slog.Error("Schema validator init failed", "schema_dir", cfg.SchemaDir, "error", err)
		os.Exit(1)
	}
	gameplaySvc := gameplay.NewService(ledgerRepo, ledgerSvc, questSvc, validator, logger)

	// Workers
	hookRepo := hooks.NewRepository(pool)
	workers := river.NewWorkers()
	river.AddWorker(workers, notify.NewBalanceEventWorker(hookRepo, logger))
	river.AddWorker(workers, notify.NewQuestPruneWorker(questRepo, logger))

	riverClient, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: cfg.NotifyWorkerConcurrency},
		},
		Workers: workers,
		PeriodicJobs: []*river.PeriodicJob{
			river.NewPeriodicJob(
				river.PeriodicInterval(6*time.Hour),
				func() (river.JobArgs, *river.InsertOpts) {
					return notify.QuestPruneJobArgs{KeepDays: cfg.QuestRetentionDays}, nil
				},
				&river.PeriodicJobOpts{RunOnStart: true},
			),
		},
	})
	if err != nil {
		slog.Error("Failed to create River client", "error", err)
		os.Exit(1)
	}

	insertMu.Lock()
	insertFn = func(ctx context.Context, args notify.BalanceEventJobArgs) error {
		_, err := riverClient.Insert(ctx, args, nil)
		return err
	}
	insertMu.Unlock()

	// Auth
	authRepo := auth.NewRepository(pool)
	authSvc := auth.NewService(authRepo, cfg.JWTSecret)

	// Handlers
	apiKeyRepo := auth.NewAPIKeyRepo(pool)
	deps := router.Deps{
		Auth:     auth.NewHandler(authSvc, logger),
		Daily:    daily.NewHandler(dailySvc, authSvc, logger),
		Quests:   quests.NewHandler(questSvc, authSvc, logger),
		Security: security.NewHandler(securitySvc, authSvc, logger),
		Profile:  profile.NewHandler(authSvc, authRepo, ledgerRepo, dailySvc, questSvc, securitySvc, logger),
		Hooks:    hooks.NewHandler(hookRepo, authSvc, logger),
		Gameplay: gameplay.NewHandler(gameplaySvc, logger),
		APIKeys:  apiKeyRepo,
		StakeCheck: middleware.StakeCheck(pool, middleware.StakeLimits{
			Min:      cfg.WagerMinStake,
			Max:      cfg.WagerMaxStake,
			DailyCap: cfg.WagerDailyCap,
		}),
	}
	apiRouter := router.New(deps)

	mux := http.NewServeMux()
	mux.Handle("/api/", middleware.RequestTimeout(cfg.RequestTimeout)(apiRouter))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := pool.Ping(r.Context()); err != nil {
			http.Error(w, "database unreachable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}).Handler(mux)

	// Start River client (delivers balance events, prunes stale quests)
	riverCtx, stopRiver := context.WithCancel(ctx)
	defer stopRiver()
	go func() {
		if err := riverClient.Start(riverCtx); err != nil && riverCtx.Err() == nil {
			slog.Error("River client stopped", "error", err)
		}
	}()

	serverAddr := "0.0.0.0:" + cfg.Port
	slog.Info("Starting HTTP server", "addr", serverAddr)
	if err := http.ListenAndServe(serverAddr, corsHandler); err != nil {
		slog.Error("HTTP server failed", "error", err)
		os.Exit(1)
	}
}
