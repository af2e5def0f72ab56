package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/cors"
	"go.uber.org/zap"

	mcphub "github.com/toolhubio/mcp-toolhub/pkg/mcp-hub"
	"github.com/toolhubio/mcp-toolhub/pkg/upstreams"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the upstream configuration file")
	addr := flag.String("addr", ":8700", "listen address for the hub endpoint")
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := upstreams.LoadConfigFile(*configPath)
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	store := upstreams.NewStore(logger)
	defer store.Close()

	// Build the hub before loading so the warm-up hook is in place.
	hub := mcphub.NewHub(store, &mcphub.HubOptions{Logger: logger})

	if err := store.LoadStatic(cfg); err != nil {
		logger.Warn("some upstream entries failed to load", zap.Error(err))
	}

	gateway, err := mcphub.NewGateway(hub, &mcphub.Options{
		Addr:   *addr,
		Logger: logger,
		CORS:   &cors.Options{AllowedOrigins: []string{"*"}},
	})
	if err != nil {
		logger.Fatal("failed to build gateway", zap.Error(err))
	}
	if err := gateway.Sync(ctx); err != nil {
		logger.Warn("initial catalog sync failed", zap.Error(err))
	}

	logger.Info("hub serving Streamable MCP",
		zap.String("addr", *addr), zap.String("path", "/mcp"))
	if err := gateway.ListenAndServe(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("hub server stopped", zap.Error(err))
	}
}
