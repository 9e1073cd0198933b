package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"billdash/internal/apiclient"
	"billdash/internal/dashboard"
	"billdash/internal/dashboard/render"
	"billdash/internal/platform/config"
	"billdash/internal/platform/logger"
	"billdash/internal/platform/metrics"
	platformredis "billdash/internal/platform/redis"
	"billdash/internal/platform/tracer"
	"billdash/internal/session"
	"billdash/internal/session/store"
	"billdash/internal/session/store/file"
	"billdash/internal/session/store/memory"
	redisstore "billdash/internal/session/store/redis"
	"billdash/internal/session/store/sqlite"
)

// app holds everything a command needs. close releases the session backend,
// flushes spans and writes the metrics textfile.
type app struct {
	cfg      config.Client
	pages    *dashboard.Pages
	sessions *session.Manager
	printer  *render.Printer
	logger   *slog.Logger
	stdin    io.Reader
	stderr   io.Writer

	registry *prometheus.Registry
	closers  []func(context.Context) error
}

func newApp(ctx context.Context, cfg config.Client, stdin io.Reader, stdout, stderr io.Writer) (*app, error) {
	log := logger.New(logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, Output: stderr})
	a := &app{
		cfg:      cfg,
		logger:   log,
		stdin:    stdin,
		stderr:   stderr,
		printer:  render.New(stdout, colorEnabled(stdout)),
		registry: prometheus.NewRegistry(),
	}

	st, err := a.openStore(ctx)
	if err != nil {
		return nil, err
	}
	a.sessions = session.NewManager(st, log)

	shutdownTracing, err := tracer.Setup(ctx, tracer.ExportConfig{
		ServiceName: "billdash-cli",
		Endpoint:    cfg.Telemetry.Endpoint,
		Insecure:    cfg.Telemetry.Insecure,
	})
	if err != nil {
		log.Warn("tracing disabled", "error", err)
	}
	a.closers = append(a.closers, func(ctx context.Context) error { return shutdownTracing(ctx) })

	client := apiclient.New(cfg.APIURL,
		apiclient.WithHTTPClient(newHTTPClient()),
		apiclient.WithTokenSource(a.sessions),
		apiclient.WithLogger(log),
		apiclient.WithMetrics(metrics.New(a.registry)),
		apiclient.WithTracer(tracer.NewOTel()),
	)
	a.pages = dashboard.New(client, a.sessions, dashboard.WithLogger(log))
	return a, nil
}

// newHTTPClient traces outgoing calls and leaves deadlines to the transport
// and the command context.
func newHTTPClient() *http.Client {
	return &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
}

func (a *app) openStore(ctx context.Context) (store.Store, error) {
	switch a.cfg.SessionBackend {
	case config.BackendFile:
		return file.New(a.cfg.SessionPath), nil
	case config.BackendSQLite:
		st, err := sqlite.Open(ctx, a.cfg.SessionPath)
		if err != nil {
			return nil, fmt.Errorf("open session database: %w", err)
		}
		a.closers = append(a.closers, func(context.Context) error { return st.Close() })
		return st, nil
	case config.BackendRedis:
		client, err := platformredis.New(ctx, a.cfg.RedisURL, platformredis.Options{PoolSize: 2, DialTimeout: 3 * time.Second})
		if err != nil {
			return nil, fmt.Errorf("connect session redis: %w", err)
		}
		client.RegisterPoolMetrics(a.registry)
		a.closers = append(a.closers, func(context.Context) error {
			client.RecordPoolStats()
			return client.Close()
		})
		return redisstore.New(client), nil
	case config.BackendMemory:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown session backend %q", a.cfg.SessionBackend)
	}
}

// close runs closers in reverse order and writes metrics when configured.
// Metrics are written last so pool stats recorded by closers are included.
func (a *app) close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if a.cfg.MetricsFile != "" {
		if err := prometheus.WriteToTextfile(a.cfg.MetricsFile, a.registry); err != nil {
			errs = append(errs, fmt.Errorf("write metrics: %w", err))
		}
	}
	return errors.Join(errs...)
}

func colorEnabled(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	return ok && isatty.IsTerminal(f.Fd())
}
