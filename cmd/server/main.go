/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the gasbook ledger server: configuration, blob
  store, persistence engine, one-time legacy import, HTTP surface, and
  graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (env / .env, flag overrides)
  2. Open the bbolt blob store
  3. Engine.Init: load snapshot, reseed if missing or rejected
  4. Run the legacy importer (no-op after its first completion)
  5. Start the HTTP server

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM: stop accepting connections, wait for active
  requests (30s timeout), close the engine and blob store, exit.
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/hearth/gasbook/api"
	"github.com/hearth/gasbook/blob"
	"github.com/hearth/gasbook/config"
	"github.com/hearth/gasbook/engine"
	"github.com/hearth/gasbook/ledger"
	"github.com/hearth/gasbook/legacy"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	port := flag.Int("port", cfg.Port, "HTTP server port")
	blobPath := flag.String("blob", cfg.BlobPath, "Blob store file path")
	seedPath := flag.String("seed", cfg.SeedPath, "Seed image path (empty: build from schema)")
	legacyPath := flag.String("legacy", cfg.LegacyPath, "Legacy store file path (empty: skip)")
	flag.Parse()

	if err := os.MkdirAll(filepath.Dir(*blobPath), 0o755); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	blobs, err := blob.OpenBolt(*blobPath)
	if err != nil {
		log.Fatalf("Failed to open blob store: %v", err)
	}
	defer blobs.Close()

	var seed engine.SeedSource
	if *seedPath != "" {
		seed = engine.FileSeed(*seedPath)
	} else {
		seed = engine.NewDDLSeed()
	}

	ctx := context.Background()

	eng := engine.New(blobs, cfg.BlobName, seed)
	if err := eng.Init(ctx); err != nil {
		log.Fatalf("Failed to initialize engine: %v", err)
	}
	defer eng.Close()

	led := ledger.New(eng)

	var src legacy.Source = &legacy.MapSource{Unavailable: true}
	if *legacyPath != "" {
		src = legacy.NewBoltSource(*legacyPath)
	}
	importer := legacy.NewImporter(eng, src)

	res, err := importer.Run(ctx)
	switch {
	case err != nil:
		log.Fatalf("Legacy import failed: %v", err)
	case res.Skipped:
		log.Printf("Legacy import already complete")
	default:
		log.Printf("Legacy import: %d days, %d sales migrated, %d days skipped",
			res.MigratedDays, res.MigratedSales, res.SkippedDays)
	}

	handler := api.NewHandler(led, eng, importer)
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", *port),
		Handler: api.NewRouter(handler),
	}

	go func() {
		log.Printf("gasbook listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
}
