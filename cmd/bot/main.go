// Command bot plays one cell conquest match over stdin/stdout. Side channels
// (metrics, spectators, Redis, Postgres) are off unless configured.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/freeeve/cellwar/internal/auth"
	"github.com/freeeve/cellwar/internal/bot"
	"github.com/freeeve/cellwar/internal/config"
	"github.com/freeeve/cellwar/internal/journal"
	"github.com/freeeve/cellwar/internal/logger"
	"github.com/freeeve/cellwar/internal/metrics"
	"github.com/freeeve/cellwar/internal/middleware"
	"github.com/freeeve/cellwar/internal/repository"
	"github.com/freeeve/cellwar/internal/repository/postgres"
	redisrepo "github.com/freeeve/cellwar/internal/repository/redis"
	"github.com/freeeve/cellwar/internal/watch"
	"github.com/freeeve/cellwar/pkg/conquest"
	"github.com/freeeve/cellwar/pkg/wire"
)

const (
	connectTimeout  = 3 * time.Second
	shutdownTimeout = 5 * time.Second
)

func main() {
	logger.Init()
	cfg := config.Load()

	flag.StringVar(&cfg.Strategy, "strategy", cfg.Strategy, "bot strategy (heuristic, hold, random)")
	flag.Int64Var(&cfg.Seed, "seed", cfg.Seed, "random seed (0 = random)")
	flag.StringVar(&cfg.ConfigFile, "tuning", cfg.ConfigFile, "YAML file overriding heuristic thresholds")
	flag.IntVar(&cfg.RoutingCutoff, "routing-cutoff", cfg.RoutingCutoff, "longest link used as a routing edge")
	flag.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "Prometheus listen address (empty = off)")
	flag.StringVar(&cfg.WatchAddr, "watch-addr", cfg.WatchAddr, "spectator WebSocket listen address (empty = off)")
	flag.StringVar(&cfg.RedisURL, "redis", cfg.RedisURL, "Redis URL for live round data (empty = off)")
	flag.StringVar(&cfg.DatabaseURL, "db", cfg.DatabaseURL, "Postgres URL for the match archive (empty = off)")
	matchID := flag.String("match", "", "match id (default: random UUID)")
	flag.Parse()

	if *matchID == "" {
		*matchID = uuid.NewString()
	}

	tuning, err := config.LoadTuning(cfg.ConfigFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Tuning load failed")
	}
	if cfg.Seed != 0 {
		bot.SeedBotRng(cfg.Seed)
	}
	log.Info().
		Str("matchId", *matchID).
		Str("strategy", cfg.Strategy).
		Int64("seed", cfg.Seed).
		Msg("Config loaded")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mc, err := metrics.New(nil)
	if err != nil {
		log.Fatal().Err(err).Msg("Metrics registration failed")
	}

	var servers []*http.Server
	if cfg.MetricsAddr != "" {
		servers = append(servers, serve("metrics", cfg.MetricsAddr, mc.Handler()))
	}

	// Spectators
	var broadcaster bot.Broadcaster = bot.NoopBroadcaster{}
	var hub *watch.Hub
	if cfg.WatchAddr != "" {
		hub = watch.NewHub(mc)
		jwtMgr := auth.NewJWTManager(cfg.WatchSecret)
		routes := middleware.Chain(watch.NewHandler(hub, jwtMgr).Routes(),
			middleware.Recover, middleware.Logger, middleware.CORS("*"))
		servers = append(servers, serve("watch", cfg.WatchAddr, routes))
		broadcaster = hub
	}

	// Storage sinks. A sink that cannot connect is skipped: the match is
	// played either way.
	var sinks []repository.RoundSink
	if cfg.RedisURL != "" {
		cctx, cancel := context.WithTimeout(ctx, connectTimeout)
		rc, err := redisrepo.NewClient(cctx, cfg.RedisURL)
		cancel()
		if err != nil {
			log.Warn().Err(err).Msg("Redis unavailable, live round data disabled")
		} else {
			defer rc.Close()
			sinks = append(sinks, rc)
		}
	}
	if cfg.DatabaseURL != "" {
		cctx, cancel := context.WithTimeout(ctx, connectTimeout)
		db, err := postgres.Connect(cctx, cfg.DatabaseURL)
		cancel()
		if err != nil {
			log.Warn().Err(err).Msg("Postgres unavailable, match archive disabled")
		} else {
			defer db.Close()
			sinks = append(sinks, postgres.NewMatchRepo(db))
		}
	}
	var recorder bot.Recorder = bot.NoopRecorder{}
	var rec *journal.Recorder
	if len(sinks) > 0 {
		rec = journal.New(mc, journal.DefaultBuffer, sinks...)
		recorder = rec
	}

	player := bot.NewPlayer(os.Stdin, os.Stdout, bot.PlayerConfig{
		MatchID:  *matchID,
		Seed:     cfg.Seed,
		Strategy: bot.StrategyForName(cfg.Strategy, tuning, mc),
		Engine: conquest.Options{
			RoutingCutoff:    cfg.RoutingCutoff,
			OverlapTolerance: tuning.OverlapTolerance,
			Rand:             bot.BotRand(),
		},
		Metrics:     mc,
		Recorder:    recorder,
		Broadcaster: broadcaster,
	})
	runErr := player.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if rec != nil {
		if err := rec.Close(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("Journal did not drain")
		}
	}
	if hub != nil {
		hub.CloseAll()
	}
	for _, srv := range servers {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Str("addr", srv.Addr).Msg("Server shutdown error")
		}
	}

	switch {
	case runErr == nil:
		log.Info().Msg("Bot stopped")
	case errors.Is(runErr, context.Canceled):
		log.Info().Msg("Bot interrupted")
	case errors.Is(runErr, wire.ErrMatchOver):
		log.Info().Msg("No match on input")
	case errors.Is(runErr, wire.ErrProtocol), errors.Is(runErr, conquest.ErrUnknownCell):
		log.Fatal().Err(runErr).Msg("Invalid match input")
	default:
		log.Fatal().Err(runErr).Msg("Match failed")
	}
}

func serve(name, addr string, h http.Handler) *http.Server {
	srv := &http.Server{
		Addr:         addr,
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		log.Info().Str("addr", addr).Msgf("%s server listening", name)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Str("addr", addr).Msgf("%s server error", name)
		}
	}()
	return srv
}
