package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	athletestore "vigorlog/internal/athlete/store"
	"vigorlog/internal/audit"
	consenthandler "vigorlog/internal/consent/handler"
	consentservice "vigorlog/internal/consent/service"
	consentstore "vigorlog/internal/consent/store"
	requeststore "vigorlog/internal/consent/store/request"
	"vigorlog/internal/consent/token"
	"vigorlog/internal/platform/config"
	"vigorlog/internal/platform/database"
	"vigorlog/internal/platform/health"
	"vigorlog/internal/platform/httpserver"
	"vigorlog/internal/platform/kafka/producer"
	"vigorlog/internal/platform/logger"
	"vigorlog/internal/platform/metrics"
	platformredis "vigorlog/internal/platform/redis"
	"vigorlog/internal/registration"
	registrationhandler "vigorlog/internal/registration/handler"
	"vigorlog/internal/seeder"
	httptransport "vigorlog/internal/transport/http"
)

// main wires dependencies and keeps the server lifecycle small. Business
// logic lives in the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.Environment)

	log.Info("initializing vigorlog",
		"addr", cfg.Addr,
		"store_backend", cfg.StoreBackend,
		"kafka_enabled", len(cfg.KafkaBrokers) > 0,
		"redis_enabled", cfg.RedisURL != "",
	)

	m := metrics.New()
	healthHandler := health.New(cfg.Environment)

	// Persistence. Everything defaults to in-memory; Postgres and Redis attach
	// when configured.
	var (
		accountStore consentservice.AccountStore
		regAccounts  registration.AccountStore
		records      consentservice.RecordStore
		regRecords   registration.RecordStore
		requestStore consentservice.RequestStore
		auditStore   audit.Store
	)

	if cfg.StoreBackend == "postgres" {
		pool, err := database.Connect(context.Background(), cfg.PostgresURL)
		if err != nil {
			log.Error("postgres backend requested but unavailable", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		healthHandler.RegisterCheck("postgres", func() error {
			return pool.Health(context.Background())
		})

		pgAccounts := athletestore.NewPostgres(pool.DB())
		pgRecords := consentstore.NewPostgres(pool.DB())
		accountStore = pgAccounts
		regAccounts = pgAccounts
		records = pgRecords
		regRecords = pgRecords
		requestStore = requeststore.NewPostgres(pool.DB())
		auditStore = audit.NewPostgresStore(pool.DB())
	} else {
		memAccounts := athletestore.New()
		memRecords := consentstore.New()
		accountStore = memAccounts
		regAccounts = memAccounts
		records = memRecords
		regRecords = memRecords
		requestStore = requeststore.New()
		auditStore = audit.NewInMemoryStore()
	}

	if cfg.RedisURL != "" {
		redisClient, err := platformredis.New(cfg.RedisURL)
		if err != nil {
			log.Error("redis unavailable", "error", err)
			os.Exit(1)
		}
		defer redisClient.Close()
		healthHandler.RegisterCheck("redis", func() error {
			return redisClient.Health(context.Background())
		})
		requestStore = requeststore.NewRedis(redisClient.Client)
	}

	if len(cfg.KafkaBrokers) > 0 {
		producerCfg := producer.DefaultConfig()
		producerCfg.Brokers = strings.Join(cfg.KafkaBrokers, ",")
		kafkaProducer, err := producer.New(producerCfg, log)
		if err != nil {
			log.Error("kafka unavailable", "error", err)
			os.Exit(1)
		}
		defer kafkaProducer.Close()
		healthHandler.RegisterCheck("kafka", func() error {
			if !kafkaProducer.Healthy(context.Background()) {
				return errors.New("kafka unreachable")
			}
			return nil
		})
		auditStore = audit.NewKafkaSink(kafkaProducer, cfg.AuditTopic)
	}

	auditor := audit.NewPublisher(auditStore,
		audit.WithAsyncBuffer(cfg.AuditBufferSize),
		audit.WithPublisherLogger(log),
	)
	defer auditor.Close()

	tokenService := token.NewService(cfg.JWTSigningKey, cfg.TokenIssuer)

	consentSvc := consentservice.NewService(records, requestStore, accountStore, auditor, log,
		consentservice.WithMetrics(m),
		consentservice.WithDocumentVersion(cfg.ConsentDocVer),
	)
	registrationSvc := registration.NewService(regAccounts, regRecords, auditor, log,
		registration.WithMetrics(m),
		registration.WithDocumentVersion(cfg.ConsentDocVer),
	)

	if cfg.SeedDemo {
		if err := seeder.Seed(context.Background(), registrationSvc, log); err != nil {
			log.Error("demo seeding failed", "error", err)
			os.Exit(1)
		}
	}

	router := httptransport.NewRouter(log, m,
		registrationhandler.New(registrationSvc, log),
		consenthandler.New(consentSvc, tokenService, log),
		healthHandler,
	)

	appServer := httpserver.New(cfg.Addr, router)

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsServer := httpserver.New(cfg.MetricsAddr, metricsMux)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		log.Info("starting http server", "addr", cfg.Addr)
		if err := appServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		log.Info("starting metrics server", "addr", cfg.MetricsAddr)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		log.Info("shutting down gracefully")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := appServer.Shutdown(shutdownCtx); err != nil {
			log.Error("app server shutdown failed", "error", err)
		}
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			log.Error("metrics server shutdown failed", "error", err)
		}
		return nil
	})

	if err := group.Wait(); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}
