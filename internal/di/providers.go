package di

import (
	"context"
	"fmt"
	"os"
	"time"

	"IdxLens/internal/domain/models"
	"IdxLens/internal/domain/repository"
	"IdxLens/internal/handler/api"
	internalrepo "IdxLens/internal/repository"
	"IdxLens/internal/scheduler"
	icache "IdxLens/internal/service/cache"
	apimetrics "IdxLens/internal/service/metrics"
	"IdxLens/internal/service/ratelimit"
	"IdxLens/internal/services/analytics"
	"IdxLens/internal/services/forecast"
	"IdxLens/internal/usecase"
	pkgch "IdxLens/pkg/clickhouse"
	"IdxLens/pkg/config"
	pkgkafka "IdxLens/pkg/kafka"
	applogger "IdxLens/pkg/logger"
	"IdxLens/pkg/metrics"
	"IdxLens/pkg/server"
	"IdxLens/pkg/util"

	"github.com/prometheus/client_golang/prometheus"
)

// RecordBackend is a store that can both serve and ingest records.
type RecordBackend interface {
	repository.RecordStore
	repository.RecordWriter
}

// ProvideLogger builds the application logger. When the collector is on,
// repeated errors are aggregated and shipped through the producer.
func ProvideLogger(cfg *config.Config, producer *pkgkafka.Producer) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: cfg.Log.TimeFormat,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	if cfg.Log.Collector.Enabled && producer != nil {
		l.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   cfg.Log.Collector.Interval,
			CountThreshold: cfg.Log.Collector.Threshold,
			Topic:          cfg.Log.Collector.Topic,
			Publisher:      producer,
			IncludeWarn:    cfg.Log.Collector.IncludeWarn,
			OnError: func(err error) {
				fmt.Fprintf(os.Stderr, "log collector publish failed: %v\n", err)
			},
		})
	}
	return l, nil
}

// ProvideClickHouseClient creates a ClickHouse client when ClickHouse is the
// record source; otherwise it returns nil.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if cfg.Data.Source != "clickhouse" {
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
	return client, nil
}

// ProvideRecordBackend loads the CSV export into memory or opens the
// ClickHouse table, creating its schema.
func ProvideRecordBackend(cfg *config.Config, ch *pkgch.Client, l *applogger.Logger) (RecordBackend, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if ch == nil {
		store, err := internalrepo.LoadCSVFile(ctx, cfg.Data.CSVPath, cfg.Data.Symbol, l)
		if err != nil {
			return nil, fmt.Errorf("csv record store: %w", err)
		}
		return store, nil
	}

	store := internalrepo.NewCHRecordStore(ch, cfg.ClickHouse.Database)
	store.SetLogger(l)
	if err := store.Init(ctx); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return store, nil
}

func ProvideRecordStore(b RecordBackend) repository.RecordStore { return b }

func ProvideRecordWriter(b RecordBackend) repository.RecordWriter { return b }

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideKafkaProducer creates a Kafka producer, or nil when Kafka is off.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
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
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideReportPublisher publishes reports through the producer. It is nil
// when Kafka is off.
func ProvideReportPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.ReportPublisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaReportPublisher(producer, cfg.Kafka.ReportTopic)
}

// ForecastOptions converts the forecast section into engine options.
func ForecastOptions(f config.Forecast) (forecast.Options, error) {
	o := forecast.DefaultOptions()
	o.HorizonDays = f.HorizonDays
	o.MaxHorizonDays = f.MaxHorizonDays
	o.IntervalWidth = f.IntervalWidth
	o.Samples = f.Samples
	o.Seed = f.Seed
	o.ChangepointPriorScale = f.ChangepointPriorScale
	o.SeasonalityPriorScale = f.SeasonalityPriorScale
	o.NChangepoints = f.NChangepoints
	o.ChangepointRange = f.ChangepointRange
	o.MinHistory = f.MinHistory
	o.MaxConditionNumber = f.MaxConditionNumber
	o.FitTimeout = f.FitTimeout

	weekly, yearly := forecast.WeeklySeasonality(), forecast.YearlySeasonality()
	weekly.Mode = forecast.SeasonalityMode(f.Weekly)
	yearly.Mode = forecast.SeasonalityMode(f.Yearly)
	o.Seasonalities = []forecast.Seasonality{weekly, yearly}

	for _, s := range f.Changepoints {
		d, ok := util.ParseDate(s)
		if !ok {
			return o, models.NewValidationError("changepoints", fmt.Sprintf("unparseable date %q", s))
		}
		o.Changepoints = append(o.Changepoints, d)
	}
	if err := o.Validate(); err != nil {
		return o, fmt.Errorf("forecast config: %w", err)
	}
	return o, nil
}

func ProvideForecastEngine(cfg *config.Config, l *applogger.Logger) (*forecast.Engine, error) {
	o, err := ForecastOptions(cfg.Analytics.Forecast)
	if err != nil {
		return nil, err
	}
	e := forecast.NewEngine(o)
	e.SetLogger(l)
	return e, nil
}

func ProvideRecordsUseCase(store repository.RecordStore, m repository.Metrics) *usecase.RecordsUseCase {
	return usecase.NewRecordsUseCase(store, m)
}

func ProvideAnalysisUseCase(
	store repository.RecordStore,
	engine *forecast.Engine,
	m repository.Metrics,
	pub repository.ReportPublisher,
	cfg *config.Config,
	l *applogger.Logger,
) *usecase.AnalysisUseCase {
	uc := usecase.NewAnalysisUseCase(store,
		analytics.NewMovingAverageCalculator(),
		analytics.NewReturnsAnalyzer(),
		analytics.NewVolumeAnalyzer(),
		engine, m,
		usecase.AnalysisConfig{
			Windows: cfg.Analytics.MovingAverageWindows,
			Workers: cfg.Analytics.Workers,
			Timeout: cfg.Analytics.Timeout,
		},
	)
	uc.SetLogger(l)
	uc.SetPublisher(pub)
	return uc
}

// Caches groups the response cache and the scheduler lease store. Responses
// is nil when caching is off; Locks is always usable.
type Caches struct {
	Responses icache.BytesCache
	Locks     icache.Locker
	Redis     *icache.RedisCache
}

func ProvideCaches(cfg *config.Config) *Caches {
	switch cfg.Cache.Backend {
	case "redis":
		r := icache.NewRedisCache(icache.RedisConfig{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
		})
		return &Caches{Responses: r, Locks: r, Redis: r}
	case "none":
		return &Caches{Locks: icache.NewTTLCache(0)}
	default:
		c := icache.NewTTLCache(cfg.Cache.MaxEntries)
		return &Caches{Responses: c, Locks: c}
	}
}

func ProvideAPIHandler(
	records *usecase.RecordsUseCase,
	analysis *usecase.AnalysisUseCase,
	caches *Caches,
	cfg *config.Config,
	l *applogger.Logger,
) *api.AnalyticsHandler {
	h := api.NewAnalyticsHandler(records, analysis)
	h.SetLogger(l)
	if caches.Responses != nil {
		h.SetCache(caches.Responses, cfg.Cache.TTL)
	}
	h.SetRateLimiter(ratelimit.New(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
	if cfg.Metrics.Enabled {
		h.SetMetrics(apimetrics.NewEndpoints(prometheus.DefaultRegisterer))
	}
	return h
}

// ProvideIngestHandler returns nil unless Kafka ingestion is enabled.
func ProvideIngestHandler(w repository.RecordWriter, m repository.Metrics, cfg *config.Config, l *applogger.Logger) *usecase.IngestHandler {
	if !cfg.Kafka.Ingest.Enabled {
		return nil
	}
	h := usecase.NewIngestHandler(cfg.Kafka.Ingest.Topic, w, m)
	h.SetLogger(l)
	return h
}

// ProvideKafkaConsumer creates the ingest consumer, or nil when ingestion is off.
func ProvideKafkaConsumer(cfg *config.Config, l *applogger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Ingest.Enabled {
		return nil, nil
	}
	in := cfg.Kafka.Ingest
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(in.GroupID),
		pkgkafka.WithConsumerAutoOffsetReset(in.StartOffset),
		pkgkafka.WithConsumerWorkers(in.Workers),
		pkgkafka.WithConsumerBufferSize(in.BufferSize),
		pkgkafka.WithConsumerRetry(in.RetryMax, in.BackoffMin, in.BackoffMax),
		pkgkafka.WithConsumerDLQ(in.DLQTopic),
		pkgkafka.WithConsumerFetch(in.MinBytes, in.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.SetLogger(l)
	return consumer, nil
}

// ProvideScheduler returns nil unless the daily report is enabled.
func ProvideScheduler(
	cfg *config.Config,
	analysis *usecase.AnalysisUseCase,
	store repository.RecordStore,
	caches *Caches,
	l *applogger.Logger,
) (*scheduler.Scheduler, error) {
	if !cfg.Scheduler.Enabled {
		return nil, nil
	}
	loc, err := time.LoadLocation(cfg.Scheduler.Timezone)
	if err != nil {
		return nil, fmt.Errorf("scheduler timezone: %w", err)
	}
	s := scheduler.New(scheduler.Config{
		Spec:         cfg.Scheduler.Spec,
		Location:     loc,
		Symbols:      cfg.SchedulerSymbols(),
		LookbackDays: cfg.Scheduler.LookbackDays,
		Timeout:      cfg.Scheduler.Timeout,
		LockTTL:      cfg.Scheduler.LockTTL,
	}, analysis, store, caches.Locks, l)
	if err := s.Register(); err != nil {
		return nil, err
	}
	return s, nil
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	handler *api.AnalyticsHandler,
	backend RecordBackend,
	chClient *pkgch.Client,
	producer *pkgkafka.Producer,
	consumer *pkgkafka.Consumer,
	ingest *usecase.IngestHandler,
	sched *scheduler.Scheduler,
	caches *Caches,
) *server.App {
	deps := server.Deps{
		Handler:    handler,
		Records:    backend,
		ClickHouse: chClient,
		Producer:   producer,
		Consumer:   consumer,
		Ingest:     ingest,
		Scheduler:  sched,
	}
	// Left unset when nil so the interface stays nil.
	if caches.Redis != nil {
		deps.Redis = caches.Redis
	}
	return server.New(cfg, l, deps)
}
