package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dperique/browser-tab-cleaner/internal/api"
	"github.com/dperique/browser-tab-cleaner/internal/browser"
	"github.com/dperique/browser-tab-cleaner/internal/classify"
	"github.com/dperique/browser-tab-cleaner/internal/cleaner"
	"github.com/dperique/browser-tab-cleaner/internal/config"
	"github.com/dperique/browser-tab-cleaner/internal/netutil"
	"github.com/dperique/browser-tab-cleaner/internal/notify"
	"github.com/dperique/browser-tab-cleaner/internal/tabsource"
	"gopkg.in/natefinch/lumberjack.v2"
)

func main() {
	dryRun := flag.Bool("dry-run", false, "report matching tabs without closing them")
	jenkinsOnly := flag.Bool("jenkins-only", false, "only close Jenkins-related tabs")
	emptyOnly := flag.Bool("empty-only", false, "only close empty/failed tabs")
	launch := flag.Bool("launch", false, "launch a browser with remote debugging if none is running")
	serve := flag.Bool("serve", false, "run the HTTP inspection API instead of a one-shot pass")
	flag.Parse()

	if *jenkinsOnly && *emptyOnly {
		fmt.Fprintln(os.Stderr, "cannot combine -jenkins-only and -empty-only")
		os.Exit(2)
	}
	mode := classify.ModeAll
	switch {
	case *jenkinsOnly:
		mode = classify.ModeJenkinsOnly
	case *emptyOnly:
		mode = classify.ModeEmptyOnly
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		os.Exit(1)
	}

	if err := setupLogger(cfg.LogLevel, cfg.LogFile); err != nil {
		fmt.Fprintln(os.Stderr, "logger setup failed:", err)
		os.Exit(1)
	}

	if cfg.CDPPort == 0 {
		if port, ok := netutil.ProbeDebugPort(cfg.CDPAddress, cfg.CDPPortCandidates, time.Second); ok {
			cfg.CDPPort = port
			slog.Info("found debugging endpoint", "address", cfg.CDPAddress, "port", port)
		} else {
			cfg.CDPPort = 9222
			slog.Debug("no live debugging port among candidates, assuming default",
				"candidates", cfg.CDPPortCandidates, "port", cfg.CDPPort)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *launch {
		l := browser.NewLauncher(browser.Config{
			CDPAddress: cfg.CDPAddress,
			CDPPort:    cfg.CDPPort,
			StartURL:   cfg.StartURL,
			ProfileDir: cfg.ProfileDir,
		})
		if err := l.Launch(ctx); err != nil {
			slog.Error("browser launch failed", "error", err)
			os.Exit(1)
		}
	}

	httpClient := &http.Client{Timeout: time.Duration(cfg.RequestTimeoutMS) * time.Millisecond}
	src := tabsource.New(cfg.CDPURL(), httpClient)
	if err := src.Connect(ctx); err != nil {
		slog.Debug("websocket command channel unavailable, closes will use HTTP", "error", err)
	}
	defer src.Shutdown()

	closeDelay := time.Duration(cfg.CloseDelayMS) * time.Millisecond

	if *serve {
		runServer(ctx, cfg, src, closeDelay)
		return
	}

	report, err := cleaner.Run(ctx, os.Stdout, src, classify.New(mode, cfg.Rules), cleaner.Options{
		DryRun:     *dryRun,
		CloseDelay: closeDelay,
	})
	if err != nil {
		slog.Error("cleanup pass failed", "error", err)
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	slog.Info("cleanup pass done",
		"mode", mode, "dry_run", *dryRun,
		"scanned", report.Scanned, "matched", report.Matched,
		"closed", report.Closed, "failed", report.Failed)

	if cfg.NtfyEndpoint != "" && !*dryRun {
		msg := fmt.Sprintf("tab cleanup (%s): scanned %d, matched %d, closed %d, failed %d",
			mode, report.Scanned, report.Matched, report.Closed, report.Failed)
		if err := notify.Send(ctx, httpClient, cfg.NtfyEndpoint, msg); err != nil {
			slog.Warn("failed to send run summary notification", "error", err)
		}
	}
}

func runServer(ctx context.Context, cfg *config.Config, src *tabsource.Source, closeDelay time.Duration) {
	bindAddr, err := netutil.SelectBindAddr(cfg.BindAddr, cfg.BindCandidates, cfg.BindAutoFallback)
	if err != nil {
		slog.Error("failed to select bind address", "preferred", cfg.BindAddr, "error", err)
		os.Exit(1)
	}

	svc := cleaner.NewService(src, cfg.Rules, closeDelay)
	srv := &http.Server{Addr: bindAddr, Handler: api.NewServer(svc)}

	go func() {
		slog.Info("inspection API listening", "addr", bindAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("inspection API failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("inspection API shutdown failed", "error", err)
	}
}

func setupLogger(level, filename string) error {
	if err := os.MkdirAll("logs", 0o755); err != nil {
		return err
	}

	logWriter := &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    25,
		MaxBackups: 5,
		MaxAge:     14,
		Compress:   true,
	}

	var slogLevel slog.Level
	switch level {
	case "debug":
		slogLevel = slog.LevelDebug
	case "warn":
		slogLevel = slog.LevelWarn
	case "error":
		slogLevel = slog.LevelError
	default:
		slogLevel = slog.LevelInfo
	}

	// Report output owns stdout; logs go to stderr and the rotating file.
	h := slog.NewTextHandler(io.MultiWriter(os.Stderr, logWriter), &slog.HandlerOptions{Level: slogLevel})
	slog.SetDefault(slog.New(h))
	return nil
}
