package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	appcfg "github.com/anikeaty08/linera-game/internal/config"
	"github.com/anikeaty08/linera-game/internal/game"
	"github.com/anikeaty08/linera-game/internal/hostlink"
	"github.com/anikeaty08/linera-game/internal/lobby"
	"github.com/anikeaty08/linera-game/internal/msgcat"
	"github.com/anikeaty08/linera-game/internal/obslog"
	"github.com/anikeaty08/linera-game/internal/stats"
	"github.com/anikeaty08/linera-game/internal/store"
	"github.com/anikeaty08/linera-game/pkg/gamedto"
)

const lobbySweepInterval = time.Minute

func main() {
	envErr := godotenv.Load()
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	logger := obslog.L()
	defer func() { _ = logger.Sync() }()
	if envErr != nil {
		logger.Debug("dotenv_skipped", zap.Error(envErr))
	}

	cfg, err := appcfg.Load()
	if err != nil {
		logger.Fatal("config_error", zap.Error(err))
	}

	games, err := store.NewRedisStore(cfg.RedisURL, store.WithTTL(cfg.GameTTL))
	if err != nil {
		logger.Fatal("store_init_error", zap.Error(err))
	}
	defer func() { _ = games.Close() }()

	var statsRepo stats.Repository
	if cfg.DatabaseURL != "" {
		db, err := stats.Open(cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("stats_repo_init_error", zap.Error(err))
		}
		defer func() { _ = db.Close() }()
		statsRepo = db
	} else {
		logger.Warn("stats_memory_fallback", zap.String("reason", "DATABASE_URL not set"))
		statsRepo = stats.NewMemoryRepository()
	}
	statsSvc := stats.NewService(statsRepo)

	orch := game.NewOrchestrator(games,
		game.WithTables(cfg.Tables),
		game.WithRecorder(statsSvc),
		game.WithLogger(logger),
	)
	lobbies := lobby.NewManager(games.Client(), orch)

	catalog, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		logger.Fatal("catalog_init_error", zap.Error(err))
	}

	headers := hostlink.BearerToken(cfg.HostToken)
	var client *hostlink.Client
	if cfg.HostBaseURL != "" {
		client = hostlink.NewClient(cfg.HostBaseURL, hostlink.WithHeaderProvider(headers))
		hctx, hcancel := context.WithTimeout(context.Background(), 5*time.Second)
		if h, err := client.Health(hctx); err != nil {
			logger.Warn("host_health_error", zap.Error(err))
		} else {
			logger.Info("host_health", zap.Bool("ok", h.OK), zap.String("version", h.Version))
		}
		hcancel()
	}

	var router *hostlink.Router
	feed := hostlink.NewFeed(cfg.HostWSURL,
		func(ctx context.Context, env gamedto.Envelope) { router.Handle(ctx, env) },
		hostlink.WithFeedHeaders(headers),
		hostlink.WithStateListener(func(s hostlink.State) {
			logger.Info("hostlink_ws_state", zap.String("state", string(s)))
		}),
	)
	router = hostlink.NewRouter(orch, hostlink.NewEgress(cfg.HostTransport, client, feed, logger), catalog,
		hostlink.WithLobbies(lobbies),
		hostlink.WithStats(statsSvc),
	)

	if cfg.HostWSURL != "" {
		cctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := feed.Connect(cctx); err != nil {
			cancel()
			logger.Fatal("hostlink_ws_connect_error", zap.Error(err))
		}
		cancel()
	} else {
		logger.Warn("hostlink_ws_disabled", zap.String("reason", "HOST_WS_URL not set"))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go sweepLobbies(ctx, lobbies, logger)

	logger.Info("game_node_started", zap.String("transport", cfg.HostTransport))
	<-ctx.Done()
	logger.Info("game_node_stopping")

	sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer scancel()
	_ = feed.Close(sctx)
}

// sweepLobbies expires stale lobbies so the open index stays small.
func sweepLobbies(ctx context.Context, lobbies *lobby.Manager, logger *zap.Logger) {
	t := time.NewTicker(lobbySweepInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			open, err := lobbies.ListOpen(ctx, uint64(now.UnixMicro()))
			if err != nil {
				logger.Warn("lobby_sweep_error", zap.Error(err))
				continue
			}
			logger.Debug("lobby_sweep", zap.Int("open", len(open)))
		}
	}
}
