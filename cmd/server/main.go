// Package main is the entry point for the BookLinks API server.
//
// The main package is kept minimal. Its job is to:
//  1. Read configuration (defaults, optional file named by BOOKLINKS_CONFIG, env vars)
//  2. Build the logger
//  3. Start the server
//
// All actual logic lives in the internal/ packages. The maintenance jobs
// have their own executable in cmd/booklinksctl.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/booklinks/booklinks/internal/config"
	"github.com/booklinks/booklinks/internal/logger"
	"github.com/booklinks/booklinks/internal/server"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log, closeLog := logger.New(logger.Options{
		Level:      cfg.LogLevel,
		Format:     cfg.LogFormat,
		File:       cfg.LogFile,
		MaxSizeMB:  cfg.LogFileMaxSizeMB,
		MaxBackups: cfg.LogFileBackups,
		MaxAgeDays: cfg.LogFileMaxAge,
	}, os.Stdout)
	defer closeLog.Close()
	slog.SetDefault(log)

	srv, err := server.New(cfg, log)
	if err != nil {
		log.Error("failed to create server", slog.String("error", err.Error()))
		closeLog.Close()
		os.Exit(1)
	}

	// Start blocks until SIGINT/SIGTERM and releases the server's resources.
	if err := srv.Start(); err != nil {
		log.Error("server error", slog.String("error", err.Error()))
		closeLog.Close()
		os.Exit(1)
	}
}
