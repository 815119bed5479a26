// cmd/worker-manager/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"organmatch/internal/api"
	"organmatch/internal/app"
	"organmatch/internal/common/aws"
	"organmatch/internal/common/camunda"
	"organmatch/internal/common/config"
	"organmatch/internal/common/database"
	"organmatch/internal/common/logger"
	"organmatch/internal/common/observability"
	"organmatch/internal/matching/service"
	"organmatch/internal/repository"
	"organmatch/pkg/registry"

	cde "organmatch/internal/workers/matching/check-donor-eligibility"
	fdm "organmatch/internal/workers/matching/find-donor-matches"
	ltp "organmatch/internal/workers/matching/label-training-pairs"
	ndh "organmatch/internal/workers/matching/notify-donor-hospitals"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting worker manager...",
		zap.String("environment", cfg.App.Environment),
		zap.String("donorSource", cfg.Matching.DonorSource),
	)

	obs := observability.NewWithTracing(cfg.App.Name, observability.TracingConfig{
		JaegerEndpoint: cfg.Tracing.JaegerEndpoint,
		SampleRatio:    cfg.Tracing.SampleRatio,
	})
	defer obs.Shutdown()

	ctx := context.Background()
	checks := map[string]api.ReadinessCheck{}

	// --- Storage ---
	var stores app.Stores

	needPostgres := cfg.Matching.DonorSource == config.DonorSourcePostgres ||
		config.IsWorkerEnabled(cfg, ltp.TaskType)
	if needPostgres {
		err = retryWithBackoff(func() error {
			var err error
			stores.Postgres, err = database.NewPostgres(cfg.Database.Postgres)
			if err != nil {
				return err
			}
			return stores.Postgres.Ping(ctx)
		}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
		if err != nil {
			zapLog.Fatal("postgres failed after retries", zap.Error(err))
		}
		defer stores.Postgres.Close()

		if err := stores.Postgres.Migrate(ctx); err != nil {
			zapLog.Fatal("postgres migration failed", zap.Error(err))
		}
		checks["postgres"] = stores.Postgres.Ping
		zapLog.Info("PostgreSQL connected successfully")
	}

	if cfg.Matching.DonorSource == config.DonorSourceElasticsearch {
		err = retryWithBackoff(func() error {
			var err error
			stores.Elasticsearch, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return stores.Elasticsearch.Ping()
		}, 15, 2*time.Second, zapLog, "Elasticsearch connection")
		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}

		if err := stores.Elasticsearch.EnsureIndex(ctx, cfg.Database.Elasticsearch.DonorIndex, database.DonorIndexMapping); err != nil {
			zapLog.Fatal("elasticsearch index setup failed", zap.Error(err))
		}
		es := stores.Elasticsearch
		checks["elasticsearch"] = func(context.Context) error { return es.Ping() }
		zapLog.Info("Elasticsearch connected successfully")
	}

	if cfg.Matching.CacheTTL > 0 {
		err = retryWithBackoff(func() error {
			var err error
			stores.Redis, err = database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			return stores.Redis.Ping(ctx)
		}, 10, 2*time.Second, zapLog, "Redis connection")
		if err != nil {
			zapLog.Fatal("redis failed after retries", zap.Error(err))
		}
		defer stores.Redis.Close()
		checks["redis"] = stores.Redis.Ping
		zapLog.Info("Redis connected successfully")
	}

	// --- Matching core ---
	resolver, err := app.Resolver(cfg.Reference)
	if err != nil {
		zapLog.Fatal("region table load failed", zap.Error(err))
	}
	scorer, err := app.Oracle(cfg.Model)
	if err != nil {
		zapLog.Fatal("scoring oracle setup failed", zap.Error(err))
	}
	donors, err := app.DonorSource(cfg, stores, log)
	if err != nil {
		zapLog.Fatal("donor source setup failed", zap.Error(err))
	}

	matchService := service.NewMatchService(app.Engine(cfg.Matching, resolver, scorer), donors, log)
	zapLog.Info("Matching engine ready",
		zap.Int("regions", resolver.Len()),
		zap.Int("ageWindowYears", cfg.Matching.AgeWindowYears),
		zap.Float64("maxDistanceKm", cfg.Matching.MaxDistanceKm),
	)

	// --- Zeebe ---
	zeebe, err := camunda.NewClientWithConfig(&camunda.ClientConfig{
		GatewayAddress:         cfg.Camunda.BrokerAddress,
		UsePlaintextConnection: true,
		ConnectionTimeout:      10 * time.Second,
		RequestTimeout:         config.GetDuration(cfg.Camunda.RequestTimeout),
		RetryConfig:            &camunda.RetryConfig{MaxRetries: 10, BaseDelay: 2 * time.Second, MaxDelay: 30 * time.Second},
	})
	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	checks["zeebe"] = zeebe.HealthCheck
	zapLog.Info("Zeebe client connected successfully")

	// --- Workers ---
	var workers []*camunda.Worker
	start := func(taskType string, handler camunda.JobHandler) {
		if !config.IsWorkerEnabled(cfg, taskType) {
			zapLog.Info("worker disabled", zap.String("taskType", taskType))
			return
		}
		workers = append(workers, camunda.StartWorker(zeebe.GetClient(), taskType, config.GetWorkerConfig(cfg, taskType), handler, obs, log))
	}

	start(fdm.TaskType, fdm.NewHandler(fdm.LoadConfig(config.GetWorkerConfig(cfg, fdm.TaskType)), matchService, log))
	start(cde.TaskType, cde.NewHandler(cde.LoadConfig(config.GetWorkerConfig(cfg, cde.TaskType)), matchService, log))

	if stores.Postgres != nil {
		store := repository.NewPostgresStore(stores.Postgres.DB)
		training := service.NewTrainingService(store, store, app.Labeler(cfg, resolver), log)
		start(ltp.TaskType, ltp.NewHandler(ltp.LoadConfig(config.GetWorkerConfig(cfg, ltp.TaskType)), training, log))
	}

	if config.IsWorkerEnabled(cfg, ndh.TaskType) {
		notifyCfg := ndh.LoadConfig(config.GetWorkerConfig(cfg, ndh.TaskType), cfg.Notifications)
		var (
			mailer ndh.Sender
			sms    ndh.SMSSender
		)
		if notifyCfg.EmailEnabled || notifyCfg.SMSEnabled {
			awsCfg, err := aws.LoadConfig(ctx, cfg.Notifications.AWS.Region)
			if err != nil {
				zapLog.Fatal("AWS config load failed", zap.Error(err))
			}
			if notifyCfg.EmailEnabled {
				mailer = aws.NewMailer(awsCfg, cfg.Notifications.Email.FromEmail)
			}
			if notifyCfg.SMSEnabled {
				sms = aws.NewSMSSender(awsCfg)
			}
		}
		start(ndh.TaskType, ndh.NewHandler(notifyCfg, mailer, sms, log))
	}
	zapLog.Info("Workers registered", zap.Int("count", len(workers)))

	// --- HTTP API, Health & Metrics ---
	server := api.NewServer(cfg.Server, api.Options{
		Matcher:       matchService,
		Regions:       resolver,
		Checks:        checks,
		Activities:    registry.Default(),
		Observability: obs,
		Logger:        log,
	})
	go func() {
		if err := server.Start(); err != nil {
			zapLog.Error("API server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownTimeout))
	defer cancel()

	for _, w := range workers {
		w.Stop()
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("API server shutdown error", zap.Error(err))
	}
	if err := zeebe.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}

	zapLog.Info("Worker manager stopped gracefully")
}
