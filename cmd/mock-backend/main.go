package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/otel"

	"billdash/internal/audit"
	"billdash/internal/mockbackend"
	"billdash/internal/platform/config"
	"billdash/internal/platform/health"
	"billdash/internal/platform/httpserver"
	"billdash/internal/platform/kafka/producer"
	"billdash/internal/platform/logger"
	"billdash/internal/platform/tracer"
)

// main runs the local billing API the dashboard is developed against.
func main() {
	seed := flag.Bool("seed", false, "create demo accounts ("+mockbackend.DemoAdminEmail+", "+mockbackend.DemoMemberEmail+")")
	flag.Parse()

	if err := config.LoadDotEnv(); err != nil {
		logger.New(logger.Options{}).Error("failed to load .env", "error", err)
		os.Exit(1)
	}
	cfg := config.MockBackendFromEnv()
	log := logger.New(logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracer.Setup(ctx, tracer.ExportConfig{
		ServiceName: "billdash-mock-backend",
		Endpoint:    cfg.Telemetry.Endpoint,
		Insecure:    cfg.Telemetry.Insecure,
	})
	if err != nil {
		log.Error("tracing disabled", "error", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	backendCfg := mockbackend.Config{
		SigningKey:     cfg.SigningKey,
		MonthlyLimit:   cfg.MonthlyLimit,
		Logger:         log,
		Registry:       reg,
		TracerProvider: otel.GetTracerProvider(),
		AuthRateLimit:  cfg.AuthRateLimit,
		AuthRateWindow: time.Minute,
	}

	var kafkaProducer *producer.Producer
	if cfg.KafkaBrokers != "" {
		kafkaProducer, err = producer.New(producer.DefaultConfig(cfg.KafkaBrokers), log)
		if err != nil {
			log.Error("failed to create kafka producer", "error", err)
			os.Exit(1)
		}
		backendCfg.AuditSink = audit.NewKafkaSink(kafkaProducer, cfg.AuditTopic)
		backendCfg.ReadinessChecks = map[string]health.CheckFunc{"kafka": kafkaProducer.Ping}
		log.Info("audit events forwarded to kafka", "topic", cfg.AuditTopic)
	}

	app := mockbackend.New(backendCfg)
	if *seed {
		if err := app.SeedDemo(ctx); err != nil {
			log.Error("seeding failed", "error", err)
			os.Exit(1)
		}
		log.Info("demo accounts seeded",
			"admin", mockbackend.DemoAdminEmail,
			"member", mockbackend.DemoMemberEmail,
		)
	}

	if app.Limiter != nil {
		go app.Limiter.RunCleanup(ctx, 5*time.Minute, log)
	}

	srv := httpserver.New(cfg.Addr, app.Router)
	log.Info("starting mock backend", "addr", cfg.Addr, "monthly_limit", cfg.MonthlyLimit, "auth_rate_limit", cfg.AuthRateLimit)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down server gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
	app.Close()
	if kafkaProducer != nil {
		if err := kafkaProducer.Close(shutdownCtx); err != nil {
			log.Warn("kafka producer close failed", "error", err)
		}
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Warn("trace flush failed", "error", err)
	}
	log.Info("server stopped")
}
