// Command globe-term is an interactive terminal host for the globe navigator:
// arrow keys drag the camera and a flick keeps it coasting.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/signalsfoundry/globe-navigator/internal/config"
	"github.com/signalsfoundry/globe-navigator/internal/logging"
	"github.com/signalsfoundry/globe-navigator/internal/observability"
	"github.com/signalsfoundry/globe-navigator/internal/session"
	"github.com/signalsfoundry/globe-navigator/timectrl"
)

func main() {
	configPath := flag.String("config", "", "path to a navigator YAML config")
	logFile := flag.String("log-file", "globe-term.log", "log file; the terminal belongs to the screen")
	watch := flag.Bool("watch", false, "hot-reload throttle and coast tuning when the config file changes")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "globe-term: %v\n", err)
		os.Exit(1)
	}
	if cfg.Logging.File == "" {
		cfg.Logging.File = *logFile
	}
	log := logging.New(cfg.LoggingConfig())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, cfg, *configPath, *watch, log); err != nil {
		log.Error(ctx, "globe-term exited", logging.Error(err))
		fmt.Fprintf(os.Stderr, "globe-term: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Navigator, configPath string, watch bool, log logging.Logger) error {
	tracing, err := observability.InitTracing(ctx, cfg.TracingConfig(), log)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer tracing.Shutdown(context.Background())

	collector, err := observability.NewNavigatorCollector(nil)
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}
	if cfg.MetricsAddr != "" {
		srv := serveMetrics(cfg.MetricsAddr, collector, log)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("open terminal: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("init terminal: %w", err)
	}
	defer screen.Fini()

	sess := session.New(session.Options{
		Config:  cfg,
		Mode:    timectrl.RealTime,
		Logger:  log,
		Metrics: collector,

		TracerProvider: tracing.Provider,
	})

	if watch && configPath != "" {
		w, err := config.NewWatcher(configPath)
		if err != nil {
			return fmt.Errorf("watch config: %w", err)
		}
		defer w.Close()
		sess.Watch(ctx, w)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	a := newApp(screen, sess, log)
	go pollEvents(runCtx, screen, sess.Looper, func(ev tcell.Event) {
		if !a.handleEvent(runCtx, ev) {
			cancel()
		}
	})

	log.Info(ctx, "globe-term started", logging.String("session_id", sess.Controller.SessionID()))
	if err := sess.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// pollEvents hands terminal events to the loop goroutine until ctx ends or
// the screen is finalized.
func pollEvents(ctx context.Context, screen tcell.Screen, looper *timectrl.Looper, handle func(tcell.Event)) {
	for {
		ev := screen.PollEvent()
		if ev == nil {
			return
		}
		if ctx.Err() != nil {
			return
		}
		looper.Post(func() { handle(ev) })
	}
}

func serveMetrics(addr string, collector *observability.NavigatorCollector, log logging.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn(context.Background(), "metrics server exited", logging.Error(err))
		}
	}()
	return srv
}
