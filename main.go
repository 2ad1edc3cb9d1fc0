package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/arisefit/arise/arise"
	"github.com/arisefit/arise/arise/database"
	"github.com/arisefit/arise/arise/database/models"
	"github.com/arisefit/arise/arise/logger"
	"github.com/arisefit/arise/arise/progression"
	"github.com/arisefit/arise/cmd"
)

var (
	version = "dev"
	commit  = "unknown"
)

const leaderboardRetention = 90 * 24 * time.Hour

func main() {
	customHandler := logger.NewHandler()
	slog.SetDefault(slog.New(customHandler))

	// Subcommands (migrate) run through cobra; everything else is the daemon.
	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		cmd.Execute()
		return
	}

	slog.Info("Starting Arise progression engine",
		slog.String("version", version),
		slog.String("commit", commit))

	shouldRebuild := flag.Bool("rebuild-leaderboards", false, "Recompute the current leaderboard periods on startup")
	path := flag.String("config", "config.toml", "path to config")
	flag.Parse()

	cfg, err := arise.LoadConfig(*path)
	if err != nil {
		slog.Error("Failed to load configuration", slog.Any("error", err))
		os.Exit(-1)
	}
	customHandler.SetLevel(cfg.Log.Level)
	slog.Info("Configuration loaded successfully")

	slog.Info("Initializing database connection...")
	dbStartTime := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	db, err := database.New(ctx, cfg.DB)
	if err != nil {
		slog.Error("Database connection failed",
			slog.String("error", err.Error()),
			slog.Duration("attempted_for", time.Since(dbStartTime)))
		os.Exit(-1)
	}
	defer db.Close()

	slog.Info("Database connected successfully",
		slog.String("database", cfg.DB.Database),
		slog.Duration("took", time.Since(dbStartTime)))

	slog.Info("Initializing database schema...")
	if err := db.InitializeSchema(ctx); err != nil {
		slog.Error("Failed to initialize database schema",
			slog.String("error", err.Error()))
		os.Exit(-1)
	}

	if err := db.InitializeQuestData(ctx); err != nil {
		slog.Error("Failed to seed quest templates",
			slog.String("error", err.Error()))
		os.Exit(-1)
	}

	app := arise.New(*cfg, version, commit)
	app.DB = db

	if err := app.Setup(ctx); err != nil {
		slog.Error("Failed to initialize engine",
			slog.Any("error", err))
		os.Exit(-1)
	}

	if *shouldRebuild {
		slog.Info("Rebuilding leaderboard periods...")
		for _, periodType := range []string{models.ScopeDaily, models.ScopeWeekly} {
			if err := app.Leaderboards.Rebuild(ctx, periodType, app.Now()); err != nil {
				slog.Error("Leaderboard rebuild failed",
					slog.String("period_type", periodType),
					slog.Any("error", err))
				os.Exit(-1)
			}
		}
	}

	maintCtx, maintCancel := context.WithCancel(context.Background())
	defer maintCancel()
	go runDailyMaintenance(maintCtx, app)
	go runWeeklyMaintenance(maintCtx, app)

	slog.Info("Engine is running. Press CTRL-C to exit.")
	s := make(chan os.Signal, 1)
	signal.Notify(s, syscall.SIGINT, syscall.SIGTERM)
	<-s
	slog.Info("Shutting down...")
}

// runDailyMaintenance prunes expired quest instances and stale leaderboard
// periods shortly after each daily boundary.
func runDailyMaintenance(ctx context.Context, app *arise.App) {
	for {
		next := progression.NextDailyBoundary(app.Now()).Add(5 * time.Minute)
		timer := time.NewTimer(time.Until(next))

		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return
		}

		opCtx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)

		// Only instances a full week past expiry are dropped, so a weekly
		// quest that expired yesterday still shows up in status views.
		cutoff := app.Now().AddDate(0, 0, -7)
		if n, err := app.QuestRepo.DeleteExpiredInstances(opCtx, cutoff); err != nil {
			logger.LogError("Failed to prune expired quest instances", err)
		} else if n > 0 {
			logger.LogSystem("Pruned expired quest instances", slog.Int64("count", n))
		}

		before := app.Now().Add(-leaderboardRetention)
		if n, err := app.LeaderboardRepo.DeletePeriodsBefore(opCtx, before); err != nil {
			logger.LogError("Failed to prune old leaderboard periods", err)
		} else if n > 0 {
			logger.LogSystem("Pruned old leaderboard periods", slog.Int64("count", n))
		}

		cancel()
	}
}

// runWeeklyMaintenance resets every user's streak grace flag at the weekly
// boundary.
func runWeeklyMaintenance(ctx context.Context, app *arise.App) {
	for {
		next := progression.NextWeeklyBoundary(app.Now())
		timer := time.NewTimer(time.Until(next))

		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return
		}

		opCtx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		if err := app.Progression.ResetWeeklyGrace(opCtx); err != nil {
			logger.LogError("Failed to reset weekly grace flags", err)
		}
		cancel()
	}
}
