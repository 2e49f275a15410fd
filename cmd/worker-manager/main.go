// cmd/worker-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"go.uber.org/zap"

	"content-testing-workers/internal/common/aws"
	"content-testing-workers/internal/common/camunda"
	"content-testing-workers/internal/common/config"
	"content-testing-workers/internal/common/database"
	"content-testing-workers/internal/common/logger"
	"content-testing-workers/internal/common/observability"
	"content-testing-workers/internal/contenttest"
	"content-testing-workers/internal/grading"
	"content-testing-workers/internal/history"
	"content-testing-workers/internal/notify"
	"content-testing-workers/internal/problem"
	"content-testing-workers/pkg/registry"

	cct "content-testing-workers/internal/workers/content-testing/create-content-test"
	dct "content-testing-workers/internal/workers/content-testing/delete-content-test"
	pvd "content-testing-workers/internal/workers/content-testing/parse-video-descriptor"
	rct "content-testing-workers/internal/workers/content-testing/rematch-content-test"
	rnt "content-testing-workers/internal/workers/content-testing/run-content-test"
	rpt "content-testing-workers/internal/workers/content-testing/run-problem-tests"
	scr "content-testing-workers/internal/workers/content-testing/search-content-test-runs"
	sct "content-testing-workers/internal/workers/content-testing/summarize-content-test"
	uct "content-testing-workers/internal/workers/content-testing/update-content-test"
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
		zap.NewExample().Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting worker manager...", zap.String("environment", cfg.App.Environment))

	obs, err := observability.New(observability.Options{
		ServiceName:      cfg.Observability.ServiceName,
		TraceSampleRatio: cfg.Observability.TraceSampleRatio,
	})
	if err != nil {
		zapLog.Fatal("observability setup failed", zap.Error(err))
	}
	defer obs.Shutdown(context.Background())

	ctx := context.Background()

	// --- Zeebe ---
	zeebe, err := camunda.NewClientWithConfig(&camunda.ClientConfig{
		GatewayAddress:         cfg.Camunda.BrokerAddress,
		UsePlaintextConnection: true,
		ConnectionTimeout:      config.GetDuration(cfg.Camunda.RequestTimeout),
	})
	if err != nil {
		zapLog.Fatal("zeebe client failed", zap.Error(err))
	}
	if err := zeebe.Connect(ctx); err != nil {
		zapLog.Fatal("zeebe gateway unreachable", zap.Error(err))
	}
	zapLog.Info("Zeebe client connected successfully")

	// --- PostgreSQL ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Database.Postgres.Migrate {
		if err := database.Migrate(ctx, pg.DB); err != nil {
			zapLog.Fatal("schema migration failed", zap.Error(err))
		}
	}

	// --- Redis (problem XML cache) ---
	var source problem.Source = problem.NewPostgresSource(pg.DB)
	if ttl := cfg.ContentTesting.CacheTTL(); ttl > 0 {
		rdb := database.NewRedis(cfg.Database.Redis)
		if err := retryWithBackoff(func() error { return rdb.Ping(ctx) }, 5, time.Second, zapLog, "Redis connection"); err != nil {
			zapLog.Warn("redis unavailable, problem cache disabled", zap.Error(err))
			rdb.Close()
		} else {
			defer rdb.Close()
			source = problem.NewCachedSource(source, rdb.Client, ttl, log)
		}
	}

	// --- Elasticsearch (run history) ---
	es, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
	if err != nil {
		zapLog.Fatal("elasticsearch client failed", zap.Error(err))
	}
	err = retryWithBackoff(func() error {
		return es.EnsureIndex(ctx, cfg.Database.Elasticsearch.RunsIndex, history.Mapping)
	}, 10, 2*time.Second, zapLog, "Elasticsearch index setup")
	if err != nil {
		zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
	}
	runs := history.NewESHistory(es.Client, cfg.Database.Elasticsearch.RunsIndex)

	opts := []contenttest.Option{contenttest.WithHistory(runs)}
	if cfg.Notifications.Enabled {
		n, err := newNotifier(ctx, cfg.Notifications, log)
		if err != nil {
			zapLog.Fatal("notifications setup failed", zap.Error(err))
		}
		opts = append(opts, contenttest.WithNotifier(n))
	}

	service := contenttest.NewService(
		contenttest.Config{
			PreserveOnSlotChange: cfg.ContentTesting.PreserveOnSlotChange,
			RunConcurrency:       cfg.ContentTesting.RunConcurrency,
		},
		contenttest.NewPostgresRepository(pg.DB),
		problem.NewProvider(source),
		grading.NewHTTPGrader(cfg.Grader),
		log,
		opts...,
	)

	reg, err := registry.LoadRegistry(cfg.RegistryPath)
	if err != nil {
		zapLog.Fatal("activity registry load failed", zap.Error(err))
	}

	// --- Workers ---
	client := zeebe.GetClient()
	handlers := []struct {
		taskType string
		handle   worker.JobHandler
	}{
		{cct.TaskType, cct.NewHandler(cct.LoadConfig(), service, reg, log).Handle},
		{uct.TaskType, uct.NewHandler(uct.LoadConfig(), service, reg, log).Handle},
		{rct.TaskType, rct.NewHandler(rct.LoadConfig(), service, reg, log).Handle},
		{rnt.TaskType, rnt.NewHandler(rnt.LoadConfig(), service, reg, log).Handle},
		{rpt.TaskType, rpt.NewHandler(rpt.LoadConfig(), service, reg, log).Handle},
		{sct.TaskType, sct.NewHandler(sct.LoadConfig(), service, reg, log).Handle},
		{dct.TaskType, dct.NewHandler(dct.LoadConfig(), service, reg, log).Handle},
		{scr.TaskType, scr.NewHandler(scr.LoadConfig(), runs, reg, log).Handle},
		{pvd.TaskType, pvd.NewHandler(pvd.LoadConfig(), reg, log).Handle},
	}

	var workers []worker.JobWorker
	for _, h := range handlers {
		if a, ok := reg.FindByTaskType(h.taskType); !ok || !a.Implemented() {
			zapLog.Warn("task type not marked implemented in registry", zap.String("taskType", h.taskType))
		}
		wcfg := config.GetWorkerConfig(cfg, h.taskType)
		if jw := camunda.StartWorker(client, h.taskType, wcfg, h.handle, obs, log); jw != nil {
			workers = append(workers, jw)
		}
	}
	zapLog.Info("workers registered", zap.Int("started", len(workers)), zap.Int("known", len(handlers)))

	// --- Health & Metrics Server ---
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, "healthy")
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		rctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := pg.Ping(rctx); err != nil {
			writeStatus(w, http.StatusServiceUnavailable, "postgres unavailable")
			return
		}
		if err := es.Ping(rctx); err != nil {
			writeStatus(w, http.StatusServiceUnavailable, "elasticsearch unavailable")
			return
		}
		if err := zeebe.HealthCheck(rctx); err != nil {
			writeStatus(w, http.StatusServiceUnavailable, "zeebe unavailable")
			return
		}
		writeStatus(w, http.StatusOK, "ready")
	})
	mux.Handle("/metrics", obs.Handler())
	mux.Handle("/debug/pprof/", http.DefaultServeMux)

	srv := &http.Server{Addr: cfg.Observability.MetricsAddress, Handler: mux}
	go func() {
		zapLog.Info("Health/Metrics server listening", zap.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, jw := range workers {
		jw.Close()
		jw.AwaitClose()
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error stopping health server", zap.Error(err))
	}
	if err := zeebe.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}

	zapLog.Info("Worker manager stopped gracefully")
}

func newNotifier(ctx context.Context, cfg config.NotificationConfig, log logger.Logger) (*notify.Notifier, error) {
	awsCfg, err := aws.LoadConfig(ctx, cfg.Region)
	if err != nil {
		return nil, err
	}
	var opts []notify.Option
	if cfg.SNSTopicARN != "" {
		opts = append(opts, notify.WithPublisher(aws.NewSNSClient(awsCfg, cfg.SNSTopicARN)))
	}
	if len(cfg.SESRecipients) > 0 {
		opts = append(opts, notify.WithMailer(aws.NewSESClient(awsCfg, cfg.SESFromEmail), cfg.SESRecipients))
	}
	return notify.New(log, opts...), nil
}

func writeStatus(w http.ResponseWriter, code int, status string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{
		"status": status,
		"time":   time.Now().Format(time.RFC3339),
	})
}
