package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/mcav91/partfs/internal/logger"
	"github.com/mcav91/partfs/internal/server"
	"github.com/mcav91/partfs/pkg/config"
	"github.com/mcav91/partfs/pkg/locking"
	"github.com/mcav91/partfs/pkg/upload"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (default: "+config.GetDefaultConfigPath()+")")
	logLevel := flag.String("log-level", "", "Override log level (DEBUG, INFO, WARN, ERROR)")
	listenAddr := flag.String("listen", "", "Override listen address")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// CLI flags beat file and environment values
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}
	if *listenAddr != "" {
		cfg.Server.ListenAddress = *listenAddr
	}

	logger.SetLevel(cfg.Logging.Level)
	logger.SetFormat(cfg.Logging.Format)
	if err := logger.SetOutput(cfg.Logging.Output); err != nil {
		log.Fatalf("Failed to set log output: %v", err)
	}

	fmt.Println("PartFS - Chunked Upload Server")
	logger.Info("Log level set to: %s", cfg.Logging.Level)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	srv, err := buildServer(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to assemble server: %v", err)
	}

	if err := srv.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("Server failed: %v", err)
	}
}

// buildServer wires storage, locking, metadata, notification and the upload
// pipeline into a ready-to-run HTTP server.
func buildServer(ctx context.Context, cfg *config.Config) (*server.Server, error) {
	store, err := config.CreateStore(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("creating storage backend: %w", err)
	}
	logger.Info("Storage backend ready: type=%s, pass_through=%t", cfg.Storage.Type, store.IsPassThrough())

	updater, err := config.CreateMetadataUpdater(ctx, cfg.Metadata)
	if err != nil {
		return nil, fmt.Errorf("creating metadata store: %w", err)
	}

	notifier, err := config.CreateNotifier(cfg.Notify)
	if err != nil {
		return nil, fmt.Errorf("creating notifier: %w", err)
	}

	committer, err := upload.NewCommitter(upload.CommitterConfig{
		Target: store,
		StagingArea: upload.NewStagingArea(upload.StagingAreaConfig{
			PartFileColocated: cfg.Upload.PartFileColocated,
			PartsPrefix:       cfg.Upload.PartsPrefix,
		}),
		Locks:          locking.NewMemoryLockManager(),
		Metadata:       updater,
		Notifier:       notifier,
		MaxUploadBytes: cfg.Upload.MaxUploadBytes,
	})
	if err != nil {
		return nil, fmt.Errorf("creating committer: %w", err)
	}

	handler, err := server.NewHandler(server.HandlerConfig{
		Committer:         committer,
		Assembler:         upload.NewAssembler(store),
		Reads:             store,
		BlockedExtensions: cfg.Upload.BlockedExtensions,
	})
	if err != nil {
		return nil, fmt.Errorf("creating handler: %w", err)
	}

	return server.NewServer(handler, server.ServerConfig{
		Addr:            cfg.Server.ListenAddress,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
}
