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

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/edge-response-mcp/internal/config"
	"github.com/ironsheep/edge-response-mcp/internal/detection"
	"github.com/ironsheep/edge-response-mcp/internal/httpapi"
	"github.com/ironsheep/edge-response-mcp/internal/logging"
	"github.com/ironsheep/edge-response-mcp/internal/server"
	"github.com/ironsheep/edge-response-mcp/internal/session"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func usage() {
	fmt.Println("erf-mcp - edge response function analysis over MCP or HTTP")
	fmt.Println()
	fmt.Println("Usage: erf-mcp [options]")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --config PATH     YAML configuration file (defaults when omitted)")
	fmt.Println("  --http ADDR       Serve the HTTP API on ADDR instead of MCP on stdio")
	fmt.Println("  --version, -v     Print version information")
	fmt.Println("  --help, -h        Print this help message")
	fmt.Println()
	fmt.Println("Environment variables:")
	fmt.Printf("  %s=debug    Override the configured log level\n", logging.EnvLevel)
	fmt.Println()
	fmt.Println("Without --http the server communicates via MCP protocol over stdin/stdout.")
	fmt.Println("Configure it in your MCP client (e.g., Claude Desktop).")
}

func main() {
	// Handle --version and -v flags
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("erf-mcp %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			fmt.Printf("  Detector:   %s\n", detection.Backend)
			return
		case "--help", "-h", "help":
			usage()
			return
		}
	}

	configPath := flag.String("config", "", "YAML configuration file")
	httpAddr := flag.String("http", "", "serve the HTTP API on this address")
	flag.Usage = usage
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *httpAddr != "" {
		cfg.Server.HTTPAddr = *httpAddr
	}

	// Logs go to stderr; stdout is for MCP protocol
	logger := logging.New(logging.LevelFromEnv(cfg.Server.LogLevel), cfg.Server.LogFormat, os.Stderr)
	logger.WithFields(logrus.Fields{
		"version":  Version,
		"built":    BuildTime,
		"commit":   GitCommit,
		"detector": detection.Backend,
	}).Debug("Edge response server starting")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sess := session.New(cfg, logger)

	if cfg.Server.HTTPAddr != "" {
		if err := serveHTTP(ctx, cfg, sess, logger); err != nil {
			logger.WithError(err).Fatal("HTTP server error")
		}
		return
	}

	// Reads from stdin block, so a signal ends the process without waiting
	// for the scanner.
	srv := server.New(sess, logger, Version)
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	select {
	case err := <-done:
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.WithError(err).Fatal("Server error")
		}
	case <-ctx.Done():
		logger.Debug("Interrupted, exiting")
	}
}

func serveHTTP(ctx context.Context, cfg *config.Config, sess *session.Session, logger *logrus.Logger) error {
	httpServer := &http.Server{
		Addr:         cfg.Server.HTTPAddr,
		Handler:      httpapi.NewHandler(sess, logger, Version),
		ReadTimeout:  cfg.Server.RequestTimeout,
		WriteTimeout: cfg.Server.RequestTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.WithFields(logrus.Fields{
			"address": cfg.Server.HTTPAddr,
			"timeout": cfg.Server.RequestTimeout,
		}).Info("Starting HTTP server")

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("Server exited")
	return nil
}
