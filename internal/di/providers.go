package di

import (
	"context"
	"fmt"
	"time"

	"CreditRisk/internal/catalog"
	"CreditRisk/internal/domain/models"
	"CreditRisk/internal/domain/repository"
	domsvc "CreditRisk/internal/domain/service"
	"CreditRisk/internal/handler/api"
	"CreditRisk/internal/handler/web"
	internalrepo "CreditRisk/internal/repository"
	"CreditRisk/internal/service/ratelimit"
	"CreditRisk/internal/services/features"
	"CreditRisk/internal/services/inference"
	"CreditRisk/internal/usecase"
	"CreditRisk/pkg/cache"
	pkgch "CreditRisk/pkg/clickhouse"
	"CreditRisk/pkg/config"
	xhttp "CreditRisk/pkg/http"
	"CreditRisk/pkg/http/middleware"
	pkgkafka "CreditRisk/pkg/kafka"
	applogger "CreditRisk/pkg/logger"
	"CreditRisk/pkg/metrics"
	"CreditRisk/pkg/queue"
	"CreditRisk/pkg/server"

	"github.com/redis/go-redis/v9"
)

// ProvideKafkaProducer creates a Kafka producer when audit or log collection needs one.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if cfg.Audit.Backend != usecase.AuditKafka && cfg.Logging.CollectTopic == "" {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideLogger creates the app logger and attaches the error collector when configured.
func ProvideLogger(cfg *config.Config, producer *pkgkafka.Producer) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	if cfg.Logging.CollectTopic != "" && producer != nil {
		l.AddCollector(&applogger.CollectionConfig{
			Topic:     cfg.Logging.CollectTopic,
			Publisher: producer,
		})
	}
	return l, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideCatalog loads the encoding catalog, the embedded one unless a file is configured.
func ProvideCatalog(cfg *config.Config) (*catalog.Catalog, error) {
	if cfg.Catalog.Path == "" {
		return catalog.Default()
	}
	return catalog.LoadFile(cfg.Catalog.Path)
}

// ProvideAssembler builds the feature assembler and checks it against the schema.
func ProvideAssembler(cat *catalog.Catalog) (*features.Assembler, error) {
	asm := features.NewAssembler(cat, models.FeatureSchema(), models.NumericSpecs())
	if err := asm.Verify(); err != nil {
		return nil, fmt.Errorf("feature assembler: %w", err)
	}
	return asm, nil
}

// ProvideModel loads the inference engine. A load failure is kept in the Model and
// disables prediction instead of stopping start-up.
func ProvideModel(cfg *config.Config) usecase.Model {
	var p domsvc.VersionedPredictor
	switch cfg.Model.Backend {
	case "remote":
		p = inference.NewRemotePredictor(cfg)
	default:
		f, err := inference.LoadForest(cfg.Model.ArtifactPath, models.FeatureSchema())
		if err != nil {
			return usecase.Model{Err: err}
		}
		p = f
	}
	if cfg.Model.Serialize {
		p = inference.NewSerialized(p)
	}
	return usecase.Model{Predictor: p}
}

// ProvideCacheService creates the configured cache backend, or nil for "none".
func ProvideCacheService(cfg *config.Config) (cache.Service, error) {
	switch cfg.Cache.Backend {
	case "none":
		return nil, nil
	case "redis", "layered":
		rc, err := cache.NewRedisCache(
			cache.WithRedisHost(cfg.Cache.Redis.Host),
			cache.WithRedisPort(cfg.Cache.Redis.Port),
			cache.WithRedisPassword(cfg.Cache.Redis.Password),
			cache.WithRedisDB(cfg.Cache.Redis.DB),
			cache.WithRedisPrefix(cfg.Cache.Redis.Prefix),
			cache.WithRedisPool(cfg.Cache.Redis.PoolSize, cfg.Cache.Redis.MinIdleConns, cfg.Cache.Redis.PoolTimeout),
		)
		if err != nil {
			return nil, fmt.Errorf("redis cache: %w", err)
		}
		if cfg.Cache.Backend == "redis" {
			return rc, nil
		}
		return cache.NewLayeredCache(rc,
			cache.WithLayeredMemorySize(cfg.Cache.MemoryMaxSize),
			cache.WithLayeredMemoryTTL(time.Minute),
		), nil
	default:
		return cache.NewMemoryCache(
			cache.WithMemoryMaxSize(cfg.Cache.MemoryMaxSize),
			cache.WithMemoryCleanup(cfg.Cache.MemoryCleanup),
		), nil
	}
}

// ProvidePredictionCache adapts the cache service for predictions.
func ProvidePredictionCache(svc cache.Service, cfg *config.Config) repository.PredictionCache {
	if svc == nil {
		return nil
	}
	return internalrepo.NewPredictionCache(svc, cfg.Cache.TTL)
}

// ProvideClickHouseClient connects to ClickHouse and prepares the audit table
// when auditing to ClickHouse or ingesting the audit topic.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if cfg.Audit.Backend != usecase.AuditClickHouse && !cfg.Audit.Ingest {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := client.InitSchema(ctx, internalrepo.AuditSchema(cfg.ClickHouse.Database)); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

// ProvideAuditRecorder routes audit events to the configured backend.
func ProvideAuditRecorder(
	cfg *config.Config,
	producer *pkgkafka.Producer,
	chClient *pkgch.Client,
	metrics repository.Metrics,
) *usecase.AuditRecorder {
	var pub, store repository.AuditSink
	if producer != nil {
		pub = internalrepo.NewKafkaAuditPublisher(producer, cfg.Kafka.Topic)
	}
	if chClient != nil {
		store = internalrepo.NewClickHouseAuditStore(chClient.DB(), cfg.ClickHouse.Database+"."+internalrepo.AuditTable)
	}
	return usecase.NewAuditRecorder(pub, store, metrics, cfg.Audit.Backend)
}

// ProvideAuditQueue moves audit delivery onto a Redis work queue when audit.async is set.
func ProvideAuditQueue(cfg *config.Config, log *applogger.Logger, audit *usecase.AuditRecorder) *queue.RedisQueue {
	if !cfg.Audit.Async || cfg.Audit.Backend == usecase.AuditNone {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Cache.Redis.Host, cfg.Cache.Redis.Port),
		Password: cfg.Cache.Redis.Password,
		DB:       cfg.Cache.Redis.DB,
	})
	q := queue.NewRedisQueue(log, &queue.Config{
		Workers:    cfg.Audit.Queue.Workers,
		RetryLimit: cfg.Audit.Queue.RetryLimit,
		RetryDelay: cfg.Audit.Queue.RetryDelay,
	}, client, queue.WithKeyPrefix(cfg.Audit.Queue.Prefix))
	q.RegisterJob(usecase.NewAuditJob(audit))
	audit.UseQueue(q)
	return q
}

// ProvideAuditIngest consumes the Kafka audit topic into ClickHouse when audit.ingest is set.
func ProvideAuditIngest(
	cfg *config.Config,
	log *applogger.Logger,
	chClient *pkgch.Client,
	metrics repository.Metrics,
) (*pkgkafka.Consumer, error) {
	if !cfg.Audit.Ingest {
		return nil, nil
	}
	store := internalrepo.NewClickHouseAuditStore(chClient.DB(), cfg.ClickHouse.Database+"."+internalrepo.AuditTable)
	handler := usecase.NewAuditIngestHandler(cfg.Kafka.Topic, store, metrics)
	cc := cfg.Kafka.Consumer
	consumer, err := pkgkafka.NewConsumer(log, handler,
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cc.GroupID),
		pkgkafka.WithConsumerWorkers(cc.Workers),
		pkgkafka.WithConsumerBufferSize(cc.BufferSize),
		pkgkafka.WithConsumerRetry(cc.RetryMax, cc.BackoffMin, cc.BackoffMax),
		pkgkafka.WithConsumerDLQ(cc.DLQTopic),
		pkgkafka.WithConsumerFetch(cc.MinBytes, cc.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideRiskAssessor creates the submission boundary.
func ProvideRiskAssessor(
	cat *catalog.Catalog,
	asm *features.Assembler,
	model usecase.Model,
	pc repository.PredictionCache,
	audit *usecase.AuditRecorder,
	metrics repository.Metrics,
	log *applogger.Logger,
) *usecase.RiskAssessor {
	return usecase.NewRiskAssessor(cat, asm, model, pc, audit, metrics, log)
}

// ProvideLimiter creates the per-client submission limiter, or nil when disabled.
func ProvideLimiter(cfg *config.Config) *ratelimit.Limiter {
	if !cfg.RateLimit.Enabled {
		return nil
	}
	return ratelimit.New(cfg.RateLimit.Capacity, cfg.RateLimit.RefillPerSec)
}

// ProvideAllower exposes the limiter to the middleware, keeping a disabled limiter a nil interface.
func ProvideAllower(l *ratelimit.Limiter) middleware.Allower {
	if l == nil {
		return nil
	}
	return l
}

// ProvideHandlers registers the HTML form and the JSON API.
func ProvideHandlers(log *applogger.Logger, assessor *usecase.RiskAssessor, allower middleware.Allower) (xhttp.Handler, error) {
	form, err := web.NewFormHandler(log, assessor, allower)
	if err != nil {
		return nil, fmt.Errorf("web handler: %w", err)
	}
	return xhttp.Handlers{form, api.NewAssessmentHandler(log, assessor, allower)}, nil
}

// ProvideHTTPServer creates the Echo server.
func ProvideHTTPServer(cfg *config.Config, log *applogger.Logger, handler xhttp.Handler) *xhttp.Server {
	return xhttp.NewServer(handler,
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithCORS(cfg.Server.CORS.Enabled, cfg.Server.CORS.AllowOrigins, cfg.Server.CORS.MaxAge),
		xhttp.WithMetrics(cfg.Metrics.Enabled, cfg.Metrics.Path, cfg.Metrics.SlowThreshold),
		xhttp.WithLogger(log),
	)
}

// ProvideResources groups the clients the app closes on shutdown.
func ProvideResources(
	chClient *pkgch.Client,
	producer *pkgkafka.Producer,
	svc cache.Service,
	q *queue.RedisQueue,
	consumer *pkgkafka.Consumer,
	limiter *ratelimit.Limiter,
) server.Resources {
	return server.Resources{
		ClickHouse: chClient,
		Producer:   producer,
		Consumer:   consumer,
		Cache:      svc,
		Queue:      q,
		Limiter:    limiter,
	}
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	log *applogger.Logger,
	srv *xhttp.Server,
	assessor *usecase.RiskAssessor,
	audit *usecase.AuditRecorder,
	res server.Resources,
) *server.App {
	return server.New(cfg, log, srv, assessor, audit, res)
}
