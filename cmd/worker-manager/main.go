// cmd/worker-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"h2-siting-workers/internal/common/aws"
	"h2-siting-workers/internal/common/camunda"
	"h2-siting-workers/internal/common/config"
	"h2-siting-workers/internal/common/database"
	"h2-siting-workers/internal/common/events"
	"h2-siting-workers/internal/common/logger"
	"h2-siting-workers/internal/common/observability"
	"h2-siting-workers/internal/datastore"
	"h2-siting-workers/internal/siting/analysis"
	"h2-siting-workers/internal/siting/recommend"
	"h2-siting-workers/internal/siting/scoring"

	usw "h2-siting-workers/internal/workers/admin/update-scoring-weights"
	nsr "h2-siting-workers/internal/workers/communication/notify-siting-results"
	as "h2-siting-workers/internal/workers/siting/analyze-site"
	cs "h2-siting-workers/internal/workers/siting/compare-sites"
	fsp "h2-siting-workers/internal/workers/siting/forecast-site-production"
	gr "h2-siting-workers/internal/workers/siting/generate-recommendations"
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
	cfg, err := config.Load()
	if err != nil {
		logger.New("info", "console").Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()

	// Wrap zap logger with our logger interface
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting siting worker manager...",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	obs, err := observability.New(cfg.App.Name, nil)
	if err != nil {
		zapLog.Fatal("observability init failed", zap.Error(err))
	}
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init Zeebe Client with retry ---
	var zeebe *camunda.Client
	err = retryWithBackoff(func() error {
		var err error
		zeebe, err = camunda.NewClientWithConfig(&camunda.ClientConfig{
			GatewayAddress:         cfg.Camunda.BrokerAddress,
			UsePlaintextConnection: true,
			ConnectionTimeout:      10 * time.Second,
			RequestTimeout:         config.GetDuration(cfg.Camunda.RequestTimeout),
		})
		return err
	}, 10, 2*time.Second, zapLog, "Zeebe client initialization")
	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
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

	// --- Init Redis with retry ---
	rdb := database.NewRedis(cfg.Database.Redis)
	err = retryWithBackoff(func() error {
		return database.PingRedis(ctx, rdb)
	}, 10, 2*time.Second, zapLog, "Redis connection")
	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer rdb.Close()
	zapLog.Info("Redis connected successfully")

	// --- Init Elasticsearch (optional) ---
	var esClient *elasticsearch.Client
	if cfg.Database.Elasticsearch.Index != "" {
		err = retryWithBackoff(func() error {
			var err error
			esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return database.PingElasticsearch(ctx, esClient)
		}, 15, 2*time.Second, zapLog, "Elasticsearch connection")
		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}
		zapLog.Info("Elasticsearch connected successfully")
	}

	// --- Scoring core ---
	profiles, err := scoring.NewConfigStore(scoring.Profile{
		Weights:    cfg.Scoring.Weights,
		Thresholds: cfg.Scoring.Thresholds,
	})
	if err != nil {
		zapLog.Fatal("invalid scoring profile", zap.Error(err))
	}
	weightStore := datastore.NewWeightStore(rdb)
	if p, err := weightStore.Sync(ctx, profiles); err != nil {
		zapLog.Warn("stored scoring profile unavailable, using configured profile", zap.Error(err))
	} else {
		zapLog.Info("scoring profile loaded", zap.Any("weights", p.Weights))
	}

	scorer := scoring.NewScorer()
	engine := recommend.NewEngine(scorer, profiles,
		recommend.WithWorkers(cfg.Scoring.Engine.Workers),
		recommend.WithParallelThreshold(cfg.Scoring.Engine.ParallelThreshold),
		recommend.WithMaxGridPoints(cfg.Scoring.Grid.MaxPoints),
		recommend.WithLogger(log.WithFields(map[string]interface{}{"component": "engine"})),
	)
	analyzer := analysis.NewAnalyzer(scorer)
	// Sources beyond the last distance tier cannot move a score, so that is the lookup margin.
	repo := datastore.NewSiteRepository(pg.DB, cfg.Scoring.Thresholds.MaxDistance, log)

	// --- Result sinks ---
	genOpts := gr.HandlerOptions{
		Config:        gr.NewConfig(cfg),
		Observability: obs,
		Loader:        repo,
		Engine:        engine,
		Profiles:      profiles,
		Weights:       weightStore,
		Logger:        log,
	}
	if ttl := time.Duration(cfg.Database.Redis.CacheTTL) * time.Second; ttl > 0 {
		genOpts.Cache = datastore.NewRecommendationCache(rdb, ttl)
	}
	if esClient != nil {
		index := datastore.NewRecommendationIndex(esClient, cfg.Database.Elasticsearch.Index)
		if err := index.EnsureIndex(ctx); err != nil {
			zapLog.Fatal("failed to prepare recommendation index", zap.Error(err))
		}
		genOpts.Index = index
	}
	publisher := newPublisher(cfg, zapLog)
	defer publisher.Close()
	genOpts.Publisher = publisher

	notifyOpts := nsr.HandlerOptions{Config: nsr.NewConfig(cfg), Logger: log}
	if cfg.Notifications.SNS.Enabled {
		sns, err := aws.NewSNSClient(ctx, cfg.Notifications.AWS.Region)
		if err != nil {
			zapLog.Fatal("failed to create SNS client", zap.Error(err))
		}
		notifyOpts.Topic = sns
	}
	if cfg.Notifications.Email.Enabled {
		ses, err := aws.NewSESClient(ctx, cfg.Notifications.AWS.Region)
		if err != nil {
			zapLog.Fatal("failed to create SES client", zap.Error(err))
		}
		notifyOpts.Email = ses
	}

	// --- Register workers ---
	handlers := map[string]func() (camunda.JobHandler, error){
		gr.TaskType: func() (camunda.JobHandler, error) {
			return gr.NewHandler(genOpts)
		},
		cs.TaskType: func() (camunda.JobHandler, error) {
			return cs.NewHandler(cs.HandlerOptions{
				Config: cs.NewConfig(cfg), Loader: repo, Analyzer: analyzer,
				Profiles: profiles, Weights: weightStore, Logger: log,
			})
		},
		as.TaskType: func() (camunda.JobHandler, error) {
			return as.NewHandler(as.HandlerOptions{
				Config: as.NewConfig(cfg), Loader: repo, Analyzer: analyzer,
				Profiles: profiles, Weights: weightStore, Logger: log,
			})
		},
		fsp.TaskType: func() (camunda.JobHandler, error) {
			return fsp.NewHandler(fsp.HandlerOptions{
				Config: fsp.NewConfig(cfg), Loader: repo, Scorer: scorer,
				Profiles: profiles, Logger: log,
			})
		},
		usw.TaskType: func() (camunda.JobHandler, error) {
			return usw.NewHandler(usw.HandlerOptions{
				Config: usw.NewConfig(cfg), Store: weightStore, Profiles: profiles, Logger: log,
			})
		},
		nsr.TaskType: func() (camunda.JobHandler, error) {
			return nsr.NewHandler(notifyOpts)
		},
	}

	var jobWorkers []worker.JobWorker
	for taskType, build := range handlers {
		if !config.IsWorkerEnabled(cfg, taskType) {
			zapLog.Info("worker disabled", zap.String("taskType", taskType))
			continue
		}
		handler, err := build()
		if err != nil {
			zapLog.Fatal("failed to create handler", zap.String("taskType", taskType), zap.Error(err))
		}
		if w := camunda.StartWorker(zeebe.GetClient(), taskType, config.GetWorkerConfig(cfg, taskType), handler, zapLog); w != nil {
			jobWorkers = append(jobWorkers, w)
		}
	}
	zapLog.Info("Workers registered", zap.Int("count", len(jobWorkers)))

	// --- Health & Metrics Server ---
	server := newHTTPServer(cfg.Metrics.Address, zeebe, pg, rdb)
	go func() {
		zapLog.Info("Health/Metrics server listening", zap.String("address", cfg.Metrics.Address))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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

	for _, w := range jobWorkers {
		w.Close()
	}
	for _, w := range jobWorkers {
		w.AwaitClose()
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error stopping health server", zap.Error(err))
	}
	if err := zeebe.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}

	zapLog.Info("Worker manager stopped gracefully")
}

func newPublisher(cfg *config.Config, log *zap.Logger) events.Publisher {
	if !cfg.Kafka.Enabled() {
		log.Info("Kafka not configured, recommendation events disabled")
		return events.NopPublisher{}
	}
	log.Info("Publishing recommendation events", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
	return events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, config.GetDuration(cfg.Kafka.WriteTimeout))
}

func newHTTPServer(addr string, zeebe *camunda.Client, pg *database.PostgresClient, rdb redis.UniversalClient) *http.Server {
	writeStatus := func(w http.ResponseWriter, code int, body map[string]string) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		json.NewEncoder(w).Encode(body)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		checks := map[string]func(context.Context) error{
			"zeebe":    zeebe.HealthCheck,
			"postgres": pg.Ping,
			"redis":    func(ctx context.Context) error { return database.PingRedis(ctx, rdb) },
		}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				writeStatus(w, http.StatusServiceUnavailable, map[string]string{
					"status": "not ready",
					"check":  name,
					"error":  err.Error(),
				})
				return
			}
		}
		writeStatus(w, http.StatusOK, map[string]string{
			"status": "ready",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/debug/pprof/", http.DefaultServeMux)

	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
