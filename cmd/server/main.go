// Package main implements the hackterm server, which hosts terminals over HTTP and WebSocket.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"hackterm/internal/config"
	"hackterm/internal/logging"
)

const (
	// HTTP server timeouts.
	readTimeout  = 15 * time.Second
	writeTimeout = 15 * time.Second
	idleTimeout  = 60 * time.Second
	// Graceful shutdown window.
	shutdownTimeout = 10 * time.Second
	// How often idle terminals are evicted from memory.
	janitorSchedule = "@every 1m"
)

var (
	addr     = flag.String("addr", "", "Listen address (default $HACKTERM_ADDR or :8080)")
	stateDir = flag.String("state-dir", "", "Directory holding one state file per terminal")
	catalog  = flag.String("catalog", "", "Path to a catalog YAML file (default: embedded catalog)")
	logLevel = flag.String("log-level", "", "Log level (debug, info, warn, error)")
	logFile  = flag.String("log-file", "", "Also write logs to this file")
)

func main() {
	flag.Parse()

	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load .env: %v\n", err)
		os.Exit(1)
	}
	settings := config.FromEnv()
	if *addr != "" {
		settings.Addr = *addr
	}
	if *stateDir != "" {
		settings.StateDir = *stateDir
	}
	if *catalog != "" {
		settings.Catalog = *catalog
	}
	if *logLevel != "" {
		settings.LogLevel = *logLevel
	}
	if *logFile != "" {
		settings.LogFile = *logFile
	}

	closer := logging.Setup(settings.LogLevel, settings.LogFile, logging.JSON)
	defer closer.Close() //nolint:errcheck // best effort on exit

	cat, err := config.Default()
	if settings.Catalog != "" {
		cat, err = config.LoadFile(settings.Catalog)
	}
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load catalog")
	}

	server := newServer(settings, cat)

	janitor := cron.New()
	if _, err := janitor.AddFunc(janitorSchedule, server.evictIdle); err != nil {
		logrus.WithError(err).Fatal("Failed to schedule idle terminal janitor")
	}
	janitor.Start()

	logrus.WithFields(logrus.Fields{
		"state_dir": settings.StateDir,
		"idle_ttl":  settings.IdleTTL,
		"quota":     settings.QuotaBytes,
	}).Info("Terminal server configured")

	srv := &http.Server{
		Addr:           settings.Addr,
		Handler:        server.routes(),
		ReadTimeout:    readTimeout,
		WriteTimeout:   writeTimeout,
		IdleTimeout:    idleTimeout,
		MaxHeaderBytes: 1 << 16, // 64KB max header size
	}

	go func() {
		logrus.WithField("addr", settings.Addr).Info("Server starting")
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Fatal("Server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logrus.Info("Shutting down server...")
	server.setHealthy(false)
	<-janitor.Stop().Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("Server shutdown error")
	} else {
		logrus.Info("Server shutdown complete")
	}
}
