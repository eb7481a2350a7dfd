package di

import (
	"context"
	"fmt"
	"time"

	"RegimeEdge/internal/domain/repository"
	domsvc "RegimeEdge/internal/domain/service"
	"RegimeEdge/internal/handler/api"
	internalrepo "RegimeEdge/internal/repository"
	svcmetrics "RegimeEdge/internal/service/metrics"
	"RegimeEdge/internal/services/analytics"
	"RegimeEdge/internal/usecase"
	"RegimeEdge/pkg/cache"
	pkgch "RegimeEdge/pkg/clickhouse"
	"RegimeEdge/pkg/config"
	xhttp "RegimeEdge/pkg/http"
	pkgkafka "RegimeEdge/pkg/kafka"
	applogger "RegimeEdge/pkg/logger"
	"RegimeEdge/pkg/metrics"
	"RegimeEdge/pkg/server"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(applogger.String("env", cfg.Environment)), nil
}

// ProvideRegistry creates the Prometheus registry served on the metrics path.
func ProvideRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics(reg *prometheus.Registry) repository.Metrics {
	svcmetrics.Register(reg)
	return metrics.New(reg)
}

// ProvideKafkaProducer creates a Kafka producer, or nil when Kafka is disabled.
// Error lines are shipped to the collector topic when one is configured.
func ProvideKafkaProducer(cfg *config.Config, reg *prometheus.Registry, l *applogger.Logger) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithTimeouts(cfg.Kafka.WriteTimeout, cfg.Kafka.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Async),
		pkgkafka.WithHashByKey(true),
		pkgkafka.WithRegisterer(reg),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}

	if cfg.Logging.CollectorTopic != "" {
		l.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   cfg.Logging.FlushInterval,
			CountThreshold: cfg.Logging.FlushCount,
			Topic:          cfg.Logging.CollectorTopic,
			Publisher:      producer,
		}, "error", "warn")
	}
	return producer, nil
}

// ProvideSignalPublisher creates the Kafka signal publisher, or nil without a producer.
func ProvideSignalPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.SignalPublisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaPublisher(producer, cfg.Kafka.Topic)
}

// ProvideClickHouseClient connects to ClickHouse when it is the configured provider.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if cfg.Provider.Type != "clickhouse" {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, nil
}

// ProvidePriceStore creates the ClickHouse price store and ensures its tables.
func ProvidePriceStore(client *pkgch.Client, cfg *config.Config) (repository.PriceStore, error) {
	if client == nil {
		return nil, nil
	}
	store := internalrepo.NewClickHouseStore(client.DB(), cfg.ClickHouse.DailyTable, cfg.ClickHouse.IntradayTable)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.InitSchema(ctx, store.Schema()); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return store, nil
}

// ProvideYahooProvider creates the Yahoo chart API provider behind a circuit breaker.
func ProvideYahooProvider(cfg *config.Config, l *applogger.Logger) *internalrepo.YahooProvider {
	b := cfg.Provider.Breaker
	cb := internalrepo.NewBreaker("yahoo", b.MaxRequests, b.Interval, b.Timeout, b.ConsecutiveFails, l)
	client := xhttp.NewClient(
		xhttp.WithTimeout(cfg.Provider.Timeout),
		xhttp.WithUserAgent(cfg.Provider.UserAgent),
	)
	return internalrepo.NewYahooProvider(client, cfg.Provider.BaseURL,
		internalrepo.WithYahooBreaker(cb),
		internalrepo.WithYahooLogger(l),
	)
}

// ProvidePriceProvider picks the store when one is configured, Yahoo otherwise.
func ProvidePriceProvider(store repository.PriceStore, yahoo *internalrepo.YahooProvider) repository.PriceProvider {
	if store != nil {
		return store
	}
	return yahoo
}

// ProvideCache creates the score cache backend: memory, or memory in front of Redis.
func ProvideCache(cfg *config.Config) (cache.Service, error) {
	if !cfg.Redis.Enabled {
		return cache.NewMemoryCache(cache.WithMemoryMaxSize(64)), nil
	}
	rc, err := cache.NewRedisCache(
		cache.WithRedisHost(cfg.Redis.Host),
		cache.WithRedisPort(cfg.Redis.Port),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
		cache.WithRedisPrefix(cfg.Redis.Prefix),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return cache.NewLayeredCache(rc, cache.WithLayeredMemorySize(64), cache.WithLayeredMemoryTTL(5*time.Minute)), nil
}

func ProvideScoreCache(svc cache.Service, cfg *config.Config, l *applogger.Logger) *analytics.ScoreCache {
	return analytics.NewScoreCache(svc, cfg.Regime.CacheTTL, l)
}

func ProvideClassifier(cfg *config.Config, sc *analytics.ScoreCache, l *applogger.Logger, m repository.Metrics) domsvc.RegimeClassifier {
	return analytics.NewRollingClassifier(
		analytics.WithWindow(cfg.Regime.Window),
		analytics.WithMaxLag(cfg.Regime.MaxLag),
		analytics.WithThreshold(cfg.Regime.Threshold),
		analytics.WithScoreCache(sc),
		analytics.WithLogger(l),
		analytics.WithMetrics(m),
	)
}

func ProvideRegimeService(provider repository.PriceProvider, classifier domsvc.RegimeClassifier, cfg *config.Config, l *applogger.Logger, m repository.Metrics) *usecase.RegimeService {
	return usecase.NewRegimeService(provider, classifier, cfg.Pair.Leading, cfg.Pair.Target, cfg.Regime.StartTime(), l, m)
}

func ProvideSignalGenerator(provider repository.PriceProvider, cfg *config.Config, l *applogger.Logger) *usecase.SignalGenerator {
	return usecase.NewSignalGenerator(provider, usecase.GeneratorConfig{
		Leading:          cfg.Pair.Leading,
		Target:           cfg.Pair.Target,
		ChangeThreshold:  cfg.Signal.ChangeThreshold,
		IntradayLookback: cfg.Signal.IntradayLookback,
		Bar:              repository.IntervalFromDuration(cfg.Signal.BarInterval),
		FallbackDays:     cfg.Signal.FallbackDays,
	}, l)
}

func ProvideSignalService(regime *usecase.RegimeService, gen *usecase.SignalGenerator, pub repository.SignalPublisher, m repository.Metrics, l *applogger.Logger) *usecase.SignalService {
	return usecase.NewSignalService(regime, gen, pub, m, l)
}

// ProvideSignalHandler creates the HTTP handler. /healthz checks the store when one is used.
func ProvideSignalHandler(svc *usecase.SignalService, store repository.PriceStore, cfg *config.Config, l *applogger.Logger) *api.SignalHandler {
	opts := []api.Option{api.WithLogger(l)}
	if store != nil {
		opts = append(opts, api.WithHealthCheck(store.Health))
	}
	return api.NewSignalHandler(svc, api.Config{
		Leading:   cfg.Pair.Leading,
		Target:    cfg.Pair.Target,
		Window:    cfg.Regime.Window,
		MaxLag:    cfg.Regime.MaxLag,
		Threshold: cfg.Regime.Threshold,
		Refresh:   int(cfg.Signal.RefreshInterval.Seconds()),
	}, opts...)
}

func ProvideHTTPServer(h *api.SignalHandler, cfg *config.Config, reg *prometheus.Registry, l *applogger.Logger) *xhttp.Server {
	opts := []xhttp.ServerOption{
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithSlowRequest(cfg.Server.SlowRequest),
		xhttp.WithLogger(l),
	}
	if cfg.Metrics.Enabled {
		opts = append(opts, xhttp.WithMetrics(cfg.Metrics.Path, reg, reg))
	}
	return xhttp.NewServer(h, opts...)
}

// ProvideApp creates the application.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	srv *xhttp.Server,
	h *api.SignalHandler,
	svc *usecase.SignalService,
	yahoo *internalrepo.YahooProvider,
	store repository.PriceStore,
	chClient *pkgch.Client,
	producer *pkgkafka.Producer,
	cacheSvc cache.Service,
) *server.App {
	return server.New(cfg, l, srv, h, svc, yahoo, store, chClient, producer, cacheSvc)
}
