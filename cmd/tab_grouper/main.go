package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/dgnsrekt/tab_grouper/internal/api"
	"github.com/dgnsrekt/tab_grouper/internal/cdpcontrol"
	"github.com/dgnsrekt/tab_grouper/internal/config"
	"github.com/dgnsrekt/tab_grouper/internal/controller"
	"github.com/dgnsrekt/tab_grouper/internal/runner"
	"github.com/dgnsrekt/tab_grouper/internal/settings"
	"github.com/dgnsrekt/tab_grouper/internal/storage"
	"github.com/dgnsrekt/tab_grouper/internal/watch"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if err := setupLogger(cfg.LogLevel, cfg.LogFile); err != nil {
		_, _ = io.WriteString(os.Stderr, "logger setup failed: "+err.Error()+"\n")
		os.Exit(1)
	}

	slog.Info("tab_grouper config loaded",
		"bind_addr", cfg.BindAddr,
		"cdp_url", cfg.CDPURL(),
		"extension_id", cfg.ExtensionID,
		"eval_timeout_ms", cfg.EvalTimeoutMS,
		"settings_file", cfg.SettingsFile,
		"history_dir", cfg.HistoryDir,
		"watch_source", cfg.WatchSource,
		"ignore_urls", cfg.IgnoreURLs,
		"log_level", cfg.LogLevel,
		"log_file", cfg.LogFile,
	)

	store := settings.NewStore(cfg.SettingsFile)
	if err := store.Load(); err != nil {
		slog.Error("failed to load settings", "path", cfg.SettingsFile, "error", err)
		os.Exit(1)
	}

	filter, err := watch.NewURLFilter(cfg.IgnoreURLs)
	if err != nil {
		slog.Error("invalid ignore pattern", "patterns", cfg.IgnoreURLs, "error", err)
		os.Exit(1)
	}

	cdpClient := cdpcontrol.NewClient(cfg.CDPURL(), cfg.ExtensionID, cfg.EvalTimeout())
	if err := cdpClient.Connect(context.Background()); err != nil {
		slog.Error("failed to connect to browser", "cdp_url", cfg.CDPURL(), "error", err)
		os.Exit(1)
	}
	defer func() { _ = cdpClient.Close() }()

	history := storage.NewHistoryWriter(cfg.HistoryDir, "runs", "", cfg.HistoryBuffer, cfg.HistoryMaxSizeMB)
	defer func() { _ = history.Close() }()

	svc := controller.NewService(cdpClient, store, history)

	opts := runner.DefaultOptions()
	opts.Debounce = time.Duration(cfg.DebounceMS) * time.Millisecond
	opts.Throttle = time.Duration(cfg.ThrottleMS) * time.Millisecond
	opts.MaxRetries = cfg.MaxRetries
	sched := runner.New(func(ctx context.Context, trigger string) error {
		_, err := svc.Run(ctx, trigger)
		return err
	}, opts)
	defer sched.Stop()

	store.OnChange(func(settings.Settings) { sched.TriggerDefault("settings_changed") })

	var source watch.Source = watch.RawSource{Client: cdpClient}
	if cfg.WatchSource == config.WatchSourceChromedp {
		source = watch.ChromedpSource{CDPURL: cfg.CDPURL()}
	}
	source = watch.Merge(source, watch.TabStripSource{Client: cdpClient})
	watcher := watch.NewTargetWatcher(source, sched, filter)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := watcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("target watcher stopped", "error", err)
		}
	}()
	if err := store.Watch(ctx); err != nil {
		slog.Warn("settings file not watched", "path", cfg.SettingsFile, "error", err)
	}

	srv := &http.Server{Addr: cfg.BindAddr, Handler: api.NewServer(svc, store, sched)}
	go func() {
		slog.Info("tab_grouper listening", "addr", cfg.BindAddr, "docs", "http://"+cfg.BindAddr+"/docs")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			stop()
		}
	}()

	sched.Trigger("startup", 0)

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown failed", "error", err)
	}
}

func setupLogger(level, filename string) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		return err
	}

	logWriter := &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    25,
		MaxBackups: 10,
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

	h := slog.NewTextHandler(io.MultiWriter(os.Stdout, logWriter), &slog.HandlerOptions{Level: slogLevel})
	slog.SetDefault(slog.New(h))
	return nil
}
