// Command navsim replays a scripted gesture sequence against a headless
// navigator and writes every overlay update as a JSON line.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/signalsfoundry/globe-navigator/core"
	"github.com/signalsfoundry/globe-navigator/internal/config"
	"github.com/signalsfoundry/globe-navigator/internal/logging"
	"github.com/signalsfoundry/globe-navigator/internal/navsvc"
	"github.com/signalsfoundry/globe-navigator/internal/observability"
	"github.com/signalsfoundry/globe-navigator/internal/session"
	"github.com/signalsfoundry/globe-navigator/overlay"
	"github.com/signalsfoundry/globe-navigator/timectrl"
)

// defaultScript is a short eastward flick used when no script is given.
const defaultScript = `
duration_ms: 4000
gestures:
  - {at_ms: 0,   dlon: 0.4}
  - {at_ms: 60,  dlon: 0.4}
  - {at_ms: 120, dlon: 0.4}
  - {at_ms: 180, dlon: 0.4}
`

type options struct {
	configPath string
	scriptPath string
	outPath    string
	realtime   bool
	watch      bool
}

// summary is what a finished replay reports.
type summary struct {
	Frames   int64
	Final    core.OverlayUpdate
	HasFinal bool
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", "", "path to a navigator YAML config")
	flag.StringVar(&opts.scriptPath, "script", "", "path to a YAML gesture script (default: built-in flick)")
	flag.StringVar(&opts.outPath, "out", "-", "where to write overlay JSON lines (- for stdout)")
	flag.BoolVar(&opts.realtime, "realtime", false, "pace frames in real time instead of replaying as fast as possible")
	flag.BoolVar(&opts.watch, "watch", false, "hot-reload throttle and coast tuning when the config file changes")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, opts); err != nil {
		fmt.Fprintf(os.Stderr, "navsim: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	script, err := loadScript(opts.scriptPath)
	if err != nil {
		return err
	}

	out, closeOut, err := openOutput(opts.outPath)
	if err != nil {
		return err
	}
	defer closeOut()

	log := newLogger(cfg, opts.outPath)

	tracingCfg := cfg.TracingConfig()
	tracingCfg.Output = os.Stderr
	tracing, err := observability.InitTracing(ctx, tracingCfg, log)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer tracing.Shutdown(context.Background())

	collector, err := observability.NewNavigatorCollector(nil)
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}
	metricsSrv := serveMetrics(cfg.MetricsAddr, collector, log)

	grpcSrv, err := serveGRPC(cfg.GRPCAddr, collector, log)
	if err != nil {
		return err
	}

	mode := timectrl.Accelerated
	if opts.realtime {
		mode = timectrl.RealTime
	}
	sink := overlay.NewJSONLinesSink(out)
	sess := session.New(session.Options{
		Config:   cfg,
		Mode:     mode,
		Logger:   log,
		Metrics:  collector,
		Overlays: []core.OverlaySink{sink, overlay.LogSink{Log: log}},

		TracerProvider: tracing.Provider,
		OnRunningChange: func(running bool) {
			if grpcSrv != nil {
				grpcSrv.SetRunning(running)
			}
		},
	})

	if opts.watch && opts.configPath != "" {
		w, err := config.NewWatcher(opts.configPath)
		if err != nil {
			return fmt.Errorf("watch config: %w", err)
		}
		defer w.Close()
		sess.Watch(ctx, w)
	}

	res, err := replay(ctx, sess, script)
	shutdown(log, metricsSrv, grpcSrv)
	if err != nil {
		return err
	}
	if err := sink.Err(); err != nil {
		return err
	}

	fields := []logging.Field{
		logging.Int64("frames", res.Frames),
		logging.String("mode", mode.String()),
	}
	if res.HasFinal {
		pos := res.Final.Camera.LookAt
		fields = append(fields,
			logging.Float64("latitude", pos.Latitude),
			logging.Float64("longitude", pos.Longitude),
		)
	}
	log.Info(ctx, "replay complete", fields...)
	return nil
}

// replay runs sess until script finishes or ctx is cancelled. An interrupted
// replay still reports what it reached.
func replay(ctx context.Context, sess *session.Session, script session.Script) (summary, error) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	sess.Play(script, cancel)
	err := sess.Run(runCtx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return summary{}, err
	}

	res := summary{Frames: sess.Looper.Frames()}
	res.Final, res.HasFinal = sess.Latest.Update()
	return res, nil
}

func loadScript(path string) (session.Script, error) {
	if path == "" {
		return session.ParseScript([]byte(defaultScript))
	}
	return session.LoadScript(path)
}

func openOutput(path string) (io.Writer, func(), error) {
	if path == "" || path == "-" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open output: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}

// newLogger keeps stdout free for JSON lines when they go there.
func newLogger(cfg config.Navigator, outPath string) logging.Logger {
	lc := cfg.LoggingConfig()
	if lc.File == "" && (outPath == "" || outPath == "-") {
		return logging.NewWriter(os.Stderr, lc)
	}
	return logging.New(lc)
}

func serveMetrics(addr string, collector *observability.NavigatorCollector, log logging.Logger) *http.Server {
	if addr == "" || collector == nil {
		return nil
	}
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

	log.Info(context.Background(), "serving Prometheus metrics", logging.String("addr", addr))
	return srv
}

func serveGRPC(addr string, collector *observability.NavigatorCollector, log logging.Logger) (*navsvc.Server, error) {
	if addr == "" {
		return nil, nil
	}
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen for gRPC on %s: %w", addr, err)
	}
	srv := navsvc.NewServer(collector, log)
	go func() {
		if err := srv.Serve(lis); err != nil {
			log.Error(context.Background(), "gRPC server exited", logging.Error(err))
		}
	}()
	return srv, nil
}

func shutdown(log logging.Logger, metricsSrv *http.Server, grpcSrv *navsvc.Server) {
	if grpcSrv != nil {
		grpcSrv.GracefulStop()
	}
	if metricsSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := metricsSrv.Shutdown(ctx); err != nil {
			log.Warn(ctx, "metrics server shutdown failed", logging.Error(err))
		}
	}
}
