// Command apistub serves an in-memory inspection API for local development.
package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"inspectsync/infrastructure/config"
	"inspectsync/interfaces/apistub"
	"inspectsync/logging"
)

func main() {
	addr := flag.String("addr", ":8000", "Listen address")
	token := flag.String("token", os.Getenv("APISTUB_TOKEN"), "Bearer token callers must present (empty accepts any)")
	advanceEvery := flag.Duration("advance-every", 2*time.Second, "How often processing advances one step (0 disables)")
	httpLog := flag.String("http-log", "-", `Request log destination: "-" for stderr, a file path, or "" to disable`)
	httpLogJSON := flag.Bool("http-log-json", false, "Write request logs as JSON")
	corsOrigins := flag.String("cors-origins", "http://localhost:3000", "Comma-separated browser origins allowed to call the stub")
	flag.Parse()

	loadEnvironment()
	logger := logging.NewLogger(config.LoadLoggingConfigFromEnv())
	logging.SetDefault(logger)

	requestLog, closeLog, err := openRequestLog(*httpLog)
	if err != nil {
		logger.Error("Failed to open HTTP log file", "error", err, "path", *httpLog)
		os.Exit(1)
	}
	defer closeLog()

	stub := apistub.New(apistub.Options{
		Token:       *token,
		CORSOrigins: splitList(*corsOrigins),
		HTTPLog:     requestLog,
		HTTPLogJSON: *httpLogJSON,
		Logger:      logger,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if *advanceEvery > 0 {
		go stub.Run(ctx, *advanceEvery)
	}

	startServer(stub, *addr, logger, cancel)
}

func loadEnvironment() {
	if err := godotenv.Load(); err == nil {
		println("Loaded configuration from .env file")
	}
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func openRequestLog(path string) (io.Writer, func(), error) {
	switch path {
	case "":
		return nil, func() {}, nil
	case "-":
		return os.Stderr, func() {}, nil
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { f.Close() }, nil
}

func startServer(handler http.Handler, addr string, logger *logging.Logger, appCancel context.CancelFunc) {
	server := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	done := make(chan struct{})
	go func() {
		defer close(done)
		<-sig
		logger.Info("Shutdown signal received")
		appCancel()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
	}()

	logger.Info("API stub listening", "address", addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server failed", "error", err)
		os.Exit(1)
	}

	<-done
	logger.Info("Server stopped")
}
