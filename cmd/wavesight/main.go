package main

//	@title						WaveSight API
//	@version					0.1.0
//	@description				Wireless device telemetry, health, and positioning API.
//	@BasePath					/api/v1
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT Bearer token. Format: "Bearer {token}"

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/HerbHall/wavesight/api/swagger"
	"github.com/HerbHall/wavesight/internal/atlas"
	"github.com/HerbHall/wavesight/internal/auth"
	"github.com/HerbHall/wavesight/internal/config"
	"github.com/HerbHall/wavesight/internal/event"
	"github.com/HerbHall/wavesight/internal/mqtt"
	"github.com/HerbHall/wavesight/internal/registry"
	"github.com/HerbHall/wavesight/internal/seed"
	"github.com/HerbHall/wavesight/internal/server"
	"github.com/HerbHall/wavesight/internal/store"
	"github.com/HerbHall/wavesight/internal/telemetry"
	"github.com/HerbHall/wavesight/internal/version"
	"github.com/HerbHall/wavesight/internal/vitals"
	"github.com/HerbHall/wavesight/internal/webhook"
	"github.com/HerbHall/wavesight/internal/ws"
	"github.com/HerbHall/wavesight/pkg/plugin"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "", "path to configuration file")
	showVersion := flag.Bool("version", false, "print version information and exit")
	demo := flag.Bool("demo", false, "seed a demo fleet and reject mutating API requests")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Info())
		os.Exit(0)
	}

	// Config loads first so the logger can honor logging.level/format.
	viperCfg, err := server.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	cfg := config.New(viperCfg)

	logger, err := config.NewLogger(viperCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("WaveSight server starting", zap.String("version", version.Short()))

	if f := viperCfg.ConfigFileUsed(); f != "" {
		logger.Info("configuration loaded",
			zap.String("component", "config"),
			zap.String("source", f),
		)
	} else {
		logger.Warn("no configuration file found, using defaults",
			zap.String("component", "config"),
		)
	}

	dsn := viperCfg.GetString("database.dsn")
	if dsn == "" {
		dsn = "wavesight.db"
	}
	db, err := store.New(dsn)
	if err != nil {
		logger.Fatal("failed to open database", zap.Error(err))
	}
	defer db.Close()

	logger.Info("database initialized",
		zap.String("component", "database"),
		zap.String("dsn", dsn),
	)

	bus := event.NewBus(logger.Named("event"), 0)
	logger.Info("event bus created", zap.String("component", "event"))

	reg := registry.New(logger.Named("registry"))
	logger.Info("plugin registry created", zap.String("component", "registry"))

	// Plugin composition is compile-time. The telemetry and atlas
	// instances are held directly so the demo seeder can drive them.
	telemetryMod := telemetry.New()
	atlasMod := atlas.New()
	modules := []plugin.Plugin{
		telemetryMod,
		vitals.New(),
		atlasMod,
		mqtt.New(),
		webhook.New(),
	}
	for _, m := range modules {
		if err := reg.Register(m); err != nil {
			logger.Fatal("failed to register plugin", zap.Error(err))
		}
	}

	if err := reg.Validate(); err != nil {
		logger.Fatal("plugin validation failed", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := reg.InitAll(ctx, func(name string) plugin.Dependencies {
		return plugin.Dependencies{
			Config:  cfg.Sub("plugins." + name),
			Logger:  logger.Named(name),
			Store:   db,
			Bus:     bus,
			Plugins: reg,
		}
	}); err != nil {
		logger.Fatal("failed to initialize plugins", zap.Error(err))
	}

	if err := reg.StartAll(ctx); err != nil {
		logger.Fatal("failed to start plugins", zap.Error(err))
	}

	// Auth is opt-in: without a JWT secret every surface is open, which
	// suits lab deployments behind a trusted network.
	var authHandler *auth.Handler
	var tokens *auth.TokenService
	if secret := viperCfg.GetString("auth.jwt_secret"); secret != "" {
		keyStore, err := auth.NewKeyStore(ctx, db)
		if err != nil {
			logger.Fatal("failed to initialize agent key store", zap.Error(err))
		}
		tokenTTL := viperCfg.GetDuration("auth.token_ttl")
		if tokenTTL == 0 {
			tokenTTL = time.Hour
		}
		tokens = auth.NewTokenService([]byte(secret), tokenTTL)
		authService := auth.NewService(keyStore, tokens, viperCfg.GetString("auth.management_token"), logger.Named("auth"))
		authHandler = auth.NewHandler(authService, logger.Named("auth"))
		logger.Info("auth service initialized",
			zap.String("component", "auth"),
			zap.Duration("token_ttl", tokenTTL),
			zap.Bool("management_surface", viperCfg.GetString("auth.management_token") != ""),
		)
	} else {
		logger.Warn("auth.jwt_secret not set, API is unauthenticated",
			zap.String("component", "auth"),
		)
	}

	// Real-time event stream over WebSocket.
	wsCfg := ws.Config{
		InboxCapacity: viperCfg.GetInt("subscribe.inbox_capacity"),
		WriteDeadline: viperCfg.GetDuration("subscribe.write_deadline"),
	}
	wsHandler := ws.NewHandler(wsCfg, tokens, bus, logger.Named("ws"))
	logger.Info("websocket handler initialized", zap.String("component", "ws"))

	// Demo mode seeds a synthetic fleet through the real pipeline. The
	// seeder runs after StartAll so positioning and health recompute are
	// wired; it is idempotent across restarts of a persistent store.
	demoMode := *demo || viperCfg.GetBool("server.demo_mode")
	if demoMode {
		if err := seed.SeedDemoFleet(ctx, telemetryMod, atlasMod); err != nil {
			logger.Error("demo fleet seed failed", zap.Error(err))
		} else {
			logger.Info("demo fleet ready",
				zap.String("component", "seed"),
				zap.Int("devices", len(telemetryMod.DeviceIDs())),
			)
		}
	}

	addr := viperCfg.GetString("server.host") + ":" + viperCfg.GetString("server.port")
	if addr == ":" {
		addr = "0.0.0.0:8080"
	}
	logger.Info("HTTP server configured",
		zap.String("component", "server"),
		zap.String("addr", addr),
	)
	readyCheck := server.ReadinessChecker(func(ctx context.Context) error {
		return db.DB().PingContext(ctx)
	})
	opts := server.Options{
		ExtraRoutes: []server.SimpleRouteRegistrar{wsHandler},
		DevMode:     viperCfg.GetBool("server.dev_mode"),
		DemoMode:    demoMode,
	}
	if authHandler != nil {
		opts.Auth = authHandler
	}
	srv := server.New(addr, reg, logger, readyCheck, opts)

	go func() {
		if err := srv.Start(); err != nil {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	logger.Info("WaveSight server ready", zap.String("addr", addr))

	// Print human-readable banner for users watching docker logs.
	port := viperCfg.GetString("server.port")
	if port == "" {
		port = "8080"
	}
	fmt.Fprintf(os.Stderr, "\n  WaveSight %s is ready!\n  API at http://localhost:%s/api/v1, stream at ws://localhost:%s/api/v1/stream\n\n", version.Short(), port, port)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh

	logger.Info("received shutdown signal", zap.String("signal", sig.String()))

	// Plugins stop before the HTTP listener drains so no handler races
	// a half-stopped pipeline.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	reg.StopAll(shutdownCtx)

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}

	logger.Info("WaveSight server stopped")
}
