package main

import (
	"context"
	"fmt"
	"log"

	"github.com/relaykit/go-submitq/pkg/api"
	"github.com/relaykit/go-submitq/pkg/config"
	"github.com/relaykit/go-submitq/pkg/logger"
	"github.com/relaykit/go-submitq/pkg/processor"
	"github.com/relaykit/go-submitq/pkg/ratelimit"
	"github.com/relaykit/go-submitq/pkg/store"
	"github.com/relaykit/go-submitq/pkg/telemetry"
	"github.com/relaykit/go-submitq/pkg/transport"
)

func main() {
	ctx := context.Background()

	// Load configuration from file or environment
	cfg, err := config.LoadFromFile("./cmd/submitq-relay")
	if err != nil {
		log.Fatal("Error loading configuration: ", err)
	}

	// Validate the configuration
	err = cfg.Validate()
	if err != nil {
		log.Fatal("Invalid configuration: ", err)
	}

	zlog, err := logger.Setup(cfg.Logging)
	if err != nil {
		log.Fatal("Failed to initialize logger: ", err)
	}
	defer zlog.Sync() //nolint:errcheck

	// Initialize telemetry (tracing)
	shutdownTelemetry, err := telemetry.Init(cfg.Observability)
	if err != nil {
		log.Fatal("Failed to initialize telemetry: ", err)
	}
	defer shutdownTelemetry() // Ensure telemetry is properly shut down on exit

	// Initialize the repository
	repo, err := store.NewRepository(ctx, cfg.Store)
	if err != nil {
		log.Fatal("Failed to initialize repository: ", err)
	}
	defer repo.Close() //nolint:errcheck

	client := transport.NewHTTPTransport(cfg.Endpoint.URL, cfg.Endpoint.Timeout, repo, zlog)
	limiter := ratelimit.New(repo)

	proc := processor.NewSubmissionProcessor(repo, client, limiter, zlog)

	// Probe the endpoint in the background so queued submissions drain as
	// soon as connectivity returns.
	watcher := processor.NewConnectivityWatcher(cfg.Endpoint.URL, cfg.ProbeInterval, proc, zlog)
	watcher.Start()
	defer watcher.Stop()

	router := api.SetupRouter(zlog, cfg.Server, proc, repo)
	if err := router.Run(fmt.Sprintf(":%d", cfg.Server.Port)); err != nil {
		log.Fatal("Server stopped: ", err)
	}
}
