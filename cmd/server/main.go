package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/mbeoliero/buildingchat/internal/config"
	"github.com/mbeoliero/buildingchat/internal/gateway"
	"github.com/mbeoliero/buildingchat/internal/notify"
	"github.com/mbeoliero/buildingchat/internal/presence"
	"github.com/mbeoliero/buildingchat/internal/repository"
	"github.com/mbeoliero/buildingchat/internal/repository/memory"
	"github.com/mbeoliero/buildingchat/internal/router"
	"github.com/mbeoliero/buildingchat/internal/service"
	"github.com/mbeoliero/buildingchat/internal/typing"
	"github.com/mbeoliero/buildingchat/pkg/constant"
	"github.com/mbeoliero/buildingchat/pkg/idgen"
	"github.com/mbeoliero/kit/log"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	configPath := "config/config.yaml"
	if p := os.Getenv("BUILDINGCHAT_CONFIG"); p != "" {
		configPath = p
	}

	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		log.CtxError(ctx, "failed to load config: %v", err)
		panic(err)
	}

	log.CtxInfo(ctx, "config loaded: mode=%s, store=%s", cfg.Server.Mode, cfg.Store.Driver)

	// Initialize Redis key prefix
	constant.InitRedisKeyPrefix(cfg.Redis.KeyPrefix)
	log.CtxInfo(ctx, "redis key prefix: %s", constant.GetRedisKeyPrefix())

	// Initialize repositories
	var repos *repository.Repositories
	switch cfg.Store.Driver {
	case config.StoreDriverMemory:
		repos = memory.NewRepositories()
		log.CtxWarn(ctx, "using in-memory store, data is lost on restart")
	default:
		repos, err = repository.NewRepositories(cfg)
		if err != nil {
			log.CtxError(ctx, "failed to initialize repositories: %v", err)
			panic(err)
		}

		// Check database connection
		if err := repos.CheckConnection(ctx); err != nil {
			log.CtxError(ctx, "database connection check failed: %v", err)
			panic(err)
		}
		log.CtxInfo(ctx, "database connection established")
	}
	defer repos.Close()

	// Message ids
	ids, err := idgen.NewSonyflakeGenerator(cfg.Store.MachineId)
	if err != nil {
		log.CtxError(ctx, "failed to initialize id generator: %v", err)
		panic(err)
	}

	registry := presence.NewRegistry(repos.Redis)
	tracker := typing.NewTracker(cfg.Chat.TypingTTL)

	notifier := notify.NewFromConfig(cfg, repos.Redis)
	go notifier.Run(ctx)

	// Initialize services
	services := service.NewServices(cfg, repos, registry, tracker, notifier, ids)

	// Initialize WebSocket server
	wsServer := gateway.NewWsServer(cfg, services, registry)
	services.SetPusher(wsServer)
	wsServer.Run(ctx)
	log.CtxInfo(ctx, "websocket server started")

	go services.Typing.Run(ctx, cfg.Chat.TypingSweepInterval)

	// Create Hertz server
	h := server.Default(
		server.WithHostPorts(fmt.Sprintf(":%d", cfg.Server.HTTPPort)),
	)

	// Sessions share the Hertz port unless a dedicated one is configured
	var wsHTTP *http.Server
	if cfg.Server.WSPort == cfg.Server.HTTPPort {
		router.SetupRouter(h, cfg, router.NewHandlers(services), wsServer)
	} else {
		router.SetupRouter(h, cfg, router.NewHandlers(services), nil)

		mux := http.NewServeMux()
		mux.HandleFunc("/ws", wsServer.HandleConnection)
		wsHTTP = &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.WSPort),
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			log.CtxInfo(ctx, "websocket listener starting on port %d", cfg.Server.WSPort)
			if err := wsHTTP.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.CtxError(ctx, "websocket listener error: %v", err)
			}
		}()
	}

	log.CtxInfo(ctx, "server starting on port %d", cfg.Server.HTTPPort)

	// Start server in goroutine
	go func() {
		h.Spin()
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.CtxInfo(ctx, "shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	// Graceful shutdown
	if err := h.Shutdown(shutdownCtx); err != nil {
		log.CtxError(ctx, "server shutdown error: %v", err)
	}
	if wsHTTP != nil {
		if err := wsHTTP.Shutdown(shutdownCtx); err != nil {
			log.CtxError(ctx, "websocket listener shutdown error: %v", err)
		}
	}
	cancel()

	log.CtxInfo(ctx, "server stopped")
}
