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

	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"insight-engine/internal/common/camunda"
	"insight-engine/internal/common/config"
	"insight-engine/internal/common/database"
	"insight-engine/internal/common/logger"
	"insight-engine/internal/common/observability"
	"insight-engine/internal/engine"
	"insight-engine/internal/engine/analytics"
	"insight-engine/internal/engine/builder"
	"insight-engine/internal/engine/embedding"
	"insight-engine/internal/engine/forecast"
	"insight-engine/internal/engine/risk"
	"insight-engine/internal/sources"
	"insight-engine/internal/store"

	aia "insight-engine/internal/workers/insights/aggregate-insight-analytics"
	ear "insight-engine/internal/workers/insights/evaluate-activity-risk"
	gp "insight-engine/internal/workers/insights/generate-predictions"
	gr "insight-engine/internal/workers/insights/generate-recommendations"
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
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	zapLog := logger.New("info", "console")
	defer zapLog.Sync()

	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting worker manager...")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	obs := observability.New(observability.Options{
		ServiceName:    cfg.App.Name,
		JaegerEndpoint: cfg.Tracing.JaegerEndpoint,
	})
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init Zeebe Client with retry ---
	var camundaClient *camunda.Client
	err = retryWithBackoff(func() error {
		var err error
		camundaClient, err = camunda.NewClientWithConfig(&camunda.ClientConfig{
			GatewayAddress:         cfg.Camunda.BrokerAddress,
			UsePlaintextConnection: true,
			ConnectionTimeout:      10 * time.Second,
			RequestTimeout:         time.Duration(cfg.Camunda.RequestTimeout) * time.Millisecond,
		})
		return err
	}, 10, 2*time.Second, zapLog, "Zeebe client initialization")

	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	zeebeClient := camundaClient.GetClient()
	zapLog.Info("Zeebe client connected successfully")

	// --- Init PostgreSQL with retry ---
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
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Elasticsearch with retry ---
	var esClient *database.ElasticsearchClient
	err = retryWithBackoff(func() error {
		var err error
		esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			return err
		}
		return esClient.Ping()
	}, 15, 2*time.Second, zapLog, "Elasticsearch connection")

	if err != nil {
		zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
	}
	zapLog.Info("Elasticsearch connected successfully")

	// --- Init Redis with retry ---
	var redis *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redis, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return redis.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")

	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redis.Close()
	zapLog.Info("Redis connected successfully")

	// --- Build the engine and its collaborators ---
	embeddings := embedding.NewService(embedding.Config{
		APIKey:   cfg.OpenAI.APIKey,
		BaseURL:  cfg.OpenAI.BaseURL,
		Model:    cfg.OpenAI.EmbeddingModel,
		Timeout:  time.Duration(cfg.OpenAI.Timeout) * time.Millisecond,
		CacheTTL: time.Duration(cfg.Engine.EmbeddingCacheTTLMins) * time.Minute,
	}, redis.Client, log)

	documents := sources.NewESDocumentRepository(esClient.Client, cfg.Database.Elasticsearch.DocumentIndex, log)
	tasks := sources.NewPGTaskRepository(pg.DB, log)
	activity := sources.NewPGActivityProvider(pg.DB, tasks, log)
	metricSeries := sources.NewPGMetricSeriesProvider(pg.DB, log)

	insightStore := store.NewPGInsightStore(pg.DB, log)
	predictionStore := store.NewPGPredictionStore(pg.DB, log)
	interactionLog := store.NewPGInteractionLog(pg.DB, log)
	trainingData := store.NewPGTrainingDataStore(pg.DB, log)

	eng := engine.New(
		engine.Config{
			MaxConcurrency:      cfg.Engine.MaxConcurrency,
			RecentDocumentCount: cfg.Engine.RecentDocumentCount,
			RecommendationCap:   cfg.Engine.RecommendationCap,
		},
		embeddings,
		forecast.New(log),
		risk.NewEvaluator(log),
		builder.New(log),
		documents,
		obs,
		log,
	)

	zapLog.Info("Engine initialized")

	// --- Register workers ---
	var workers []*camunda.Worker

	if cfg.Workers[gr.TaskType].Enabled {
		handler := gr.NewHandler(
			&gr.Config{
				Timeout: time.Duration(cfg.Workers[gr.TaskType].Timeout) * time.Millisecond,
			},
			eng, insightStore, log,
		)
		workers = append(workers, startWorker(zeebeClient, gr.TaskType, cfg.Workers[gr.TaskType], handler, log))
	}

	if cfg.Workers[gp.TaskType].Enabled {
		handler := gp.NewHandler(
			&gp.Config{
				Timeout:          time.Duration(cfg.Workers[gp.TaskType].Timeout) * time.Millisecond,
				SampleWindowDays: 90,
			},
			eng, metricSeries, predictionStore, insightStore, log,
		)
		workers = append(workers, startWorker(zeebeClient, gp.TaskType, cfg.Workers[gp.TaskType], handler, log))
	}

	if cfg.Workers[ear.TaskType].Enabled {
		handler := ear.NewHandler(
			&ear.Config{
				Timeout: time.Duration(cfg.Workers[ear.TaskType].Timeout) * time.Millisecond,
			},
			eng, activity, insightStore, log,
		)
		workers = append(workers, startWorker(zeebeClient, ear.TaskType, cfg.Workers[ear.TaskType], handler, log))
	}

	if cfg.Workers[aia.TaskType].Enabled {
		handler := aia.NewHandler(
			&aia.Config{
				Timeout:       time.Duration(cfg.Workers[aia.TaskType].Timeout) * time.Millisecond,
				FetchPageSize: 200,
			},
			analytics.New(log), insightStore, interactionLog, trainingData, log,
		)
		workers = append(workers, startWorker(zeebeClient, aia.TaskType, cfg.Workers[aia.TaskType], handler, log))
	}

	zapLog.Info("All workers registered")

	// --- Health/Metrics server ---
	go func() {
		http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{
				"status": "healthy",
				"time":   time.Now().Format(time.RFC3339),
			})
		})
		http.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{
				"status": "ready",
				"time":   time.Now().Format(time.RFC3339),
			})
		})
		http.Handle("/metrics", promhttp.Handler())
		zapLog.Info("Health/Metrics server listening on :8080")
		if err := http.ListenAndServe(":8080", nil); err != nil {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")

	for _, w := range workers {
		w.Stop()
	}
	if err := camundaClient.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}

	zapLog.Info("Worker manager stopped gracefully")
}

func startWorker(client zbc.Client, taskType string, wcfg config.WorkerConfig, handler camunda.JobHandler, log logger.Logger) *camunda.Worker {
	return camunda.NewWorker(
		client,
		taskType,
		wcfg.MaxJobsActive,
		time.Duration(wcfg.Timeout)*time.Millisecond,
		handler,
		log,
	)
}
