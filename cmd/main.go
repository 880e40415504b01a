package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/andesco/igproxy/handlers"
	"github.com/andesco/igproxy/pkg/profilelib"

	"github.com/akamensky/argparse"
	"golang.org/x/term"
)

func main() {
	parser := argparse.NewParser("igproxy", "Public profile lookup proxy")

	portEnv := os.Getenv("PORT")
	if portEnv == "" {
		portEnv = "8080"
	}
	port := parser.String("p", "port", &argparse.Options{
		Required: false,
		Default:  portEnv,
		Help:     "Port the webserver will listen on",
	})
	configPath := parser.String("c", "config", &argparse.Options{
		Required: false,
		Default:  os.Getenv("CONFIG"),
		Help:     "Path to a YAML config file. Environment variables override its values",
	})
	prefork := parser.Flag("P", "prefork", &argparse.Options{
		Required: false,
		Help:     "This will spawn multiple processes listening",
	})
	printConfig := parser.Flag("C", "print-config", &argparse.Options{
		Required: false,
		Help:     "Print the effective configuration as YAML and exit",
	})

	if err := parser.Parse(os.Args); err != nil {
		fmt.Print(parser.Usage(err))
		os.Exit(2)
	}

	logger := initLogger()

	cfg, err := profilelib.LoadConfig(*configPath)
	if err != nil {
		logger.Error("could not load config", "error", err)
		os.Exit(1)
	}

	if *printConfig {
		out, err := cfg.YAML()
		if err != nil {
			logger.Error("could not render config", "error", err)
			os.Exit(1)
		}
		os.Stdout.Write(out)
		return
	}

	fetcher, err := profilelib.NewFetcher(cfg, profilelib.WithLogger(logger))
	if err != nil {
		logger.Error("could not create fetcher", "error", err)
		os.Exit(1)
	}

	backend, err := profilelib.OpenCache(context.Background(), cfg.Cache)
	if err != nil {
		logger.Error("could not open cache", "backend", cfg.Cache.Backend, "error", err)
		os.Exit(1)
	}
	svc := profilelib.NewService(fetcher, backend)
	defer svc.Close()

	app := handlers.NewApp(svc, handlers.AppConfig{Prefork: *prefork, Logger: logger})

	go func() {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
		<-stop
		logger.Info("shutting down")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			logger.Error("shutdown failed", "error", err)
		}
	}()

	logger.Info("listening", "port", *port, "cache", cfg.Cache.Backend, "max_retries", cfg.Retry.MaxAttempts)
	if err := app.Listen(":" + *port); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}

// initLogger sets up slog: text when attached to a terminal, JSON otherwise.
// LOG_LEVEL selects debug/info/warn/error.
func initLogger() *slog.Logger {
	var level slog.Level
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if term.IsTerminal(int(os.Stdout.Fd())) {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}
