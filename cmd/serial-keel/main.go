// Package main is the entry point for the serial-keel broker.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/nugget/serial-keel/internal/buildinfo"
	"github.com/nugget/serial-keel/internal/config"
	"github.com/nugget/serial-keel/internal/controlcenter"
	"github.com/nugget/serial-keel/internal/logging"
	"github.com/nugget/serial-keel/internal/transport"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	addr := flag.String("addr", ":3123", "listen address for the websocket server")
	logLevel := flag.String("log-level", "info", "trace, debug, info, warn, error")
	logJSON := flag.Bool("log-json", false, "emit JSON log lines instead of text")
	flag.Parse()

	logger, err := logging.New(logging.Options{Level: *logLevel, JSON: *logJSON, Writer: os.Stdout})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
	}

	if flag.NArg() > 0 {
		switch flag.Arg(0) {
		case "serve":
			runServe(logger, *configPath, *addr)
			return
		case "docs":
			runDocs(flag.Args()[1:])
			return
		case "version":
			fmt.Println(buildinfo.String())
			for k, v := range buildinfo.BuildInfo() {
				fmt.Printf("  %-12s %s\n", k+":", v)
			}
			return
		default:
			fmt.Fprintf(os.Stderr, "unknown command: %s\n", flag.Arg(0))
			os.Exit(1)
		}
	}

	fmt.Println("serial-keel - multi-tenant serial port brokerage")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  serve    Start the websocket broker")
	fmt.Println("  docs     Emit example requests/responses/sessions as JSON")
	fmt.Println("  version  Show version")
	fmt.Println()
	fmt.Println("Flags:")
	flag.PrintDefaults()
}

func runServe(logger *slog.Logger, configPath, addr string) {
	logger.Info("starting serial-keel", "version", buildinfo.Version, "commit", buildinfo.GitCommit, "built", buildinfo.BuildTime)

	cfgPath, err := config.FindConfig(configPath)
	var cfg *config.Config
	if err != nil {
		logger.Warn("no config file found, using defaults", "error", err)
		cfg = config.Default()
	} else {
		cfg, err = config.Load(cfgPath)
		if err != nil {
			logger.Error("failed to load config", "path", cfgPath, "error", err)
			os.Exit(1)
		}
		logger.Info("config loaded", "path", cfgPath, "endpoints", len(cfg.Endpoints), "groups", len(cfg.Groups))
	}

	cc, err := controlcenter.New(cfg, logger)
	if err != nil {
		logger.Error("failed to start control center", "error", err)
		os.Exit(1)
	}

	srv := transport.NewServer(addr, cc, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		logger.Info("shutdown signal received")
		cancel()
		_ = srv.Shutdown(context.Background())
	}()

	if err := srv.Start(ctx); err != nil {
		if ctx.Err() == nil {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}

	logger.Info("serial-keel stopped")
}
