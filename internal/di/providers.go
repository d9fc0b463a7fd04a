package di

import (
	"context"
	"fmt"
	"time"

	domsvc "CryptoPredict/internal/domain/service"
	"CryptoPredict/internal/handler/api"
	"CryptoPredict/internal/refdata"
	"CryptoPredict/internal/repository"
	"CryptoPredict/internal/service/binance"
	"CryptoPredict/internal/service/finnhub"
	"CryptoPredict/internal/service/kronos"
	"CryptoPredict/internal/service/ratelimit"
	"CryptoPredict/internal/sources"
	"CryptoPredict/internal/usecase"
	"CryptoPredict/pkg/cache"
	pkgch "CryptoPredict/pkg/clickhouse"
	"CryptoPredict/pkg/config"
	xhttp "CryptoPredict/pkg/http"
	pkgkafka "CryptoPredict/pkg/kafka"
	"CryptoPredict/pkg/logger"
	"CryptoPredict/pkg/metrics"
	"CryptoPredict/pkg/server"

	"github.com/labstack/echo/v4"
)

// Limits are the middlewares wrapping the prediction route.
type Limits []echo.MiddlewareFunc

// ProvideLogger builds the application logger from the log section.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	l, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(logger.String("env", cfg.Environment)), nil
}

// ProvideMetrics returns the recorder on the default registry served at /metrics.
func ProvideMetrics() *metrics.Recorder {
	return metrics.Default()
}

func ProvideRefData() *refdata.Table {
	return refdata.Default()
}

// ProvideKafkaProducer returns nil when Kafka is disabled. When log digests are enabled
// the producer also receives aggregated ERROR entries.
func ProvideKafkaProducer(cfg *config.Config, l *logger.Logger) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithWriteTimeout(cfg.Kafka.WriteTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}

	if cfg.Log.Digest.Enabled {
		l.AttachCollector(&logger.CollectorConfig{
			FlushInterval:  cfg.Log.Digest.FlushInterval,
			CountThreshold: cfg.Log.Digest.Threshold,
			Topic:          cfg.Log.Digest.Topic,
			Publisher:      producer,
		})
	}
	l.Info("kafka producer ready",
		logger.Strings("brokers", cfg.Kafka.Brokers),
		logger.String("topic", cfg.Kafka.Topic),
	)
	return producer, nil
}

// ProvideClickHouseClient returns nil when ClickHouse is disabled.
func ProvideClickHouseClient(cfg *config.Config, l *logger.Logger) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithDialTimeout(cfg.ClickHouse.DialTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	l.Info("clickhouse connected",
		logger.String("host", cfg.ClickHouse.Host),
		logger.String("database", cfg.ClickHouse.Database),
	)
	return client, nil
}

// ProvideCounter uses Redis when enabled so limits hold across replicas, else process memory.
func ProvideCounter(cfg *config.Config) (cache.Counter, error) {
	if !cfg.Redis.Enabled {
		return cache.NewMemoryCounter(), nil
	}
	c, err := cache.NewRedisCounter(
		cache.WithRedisAddr(cfg.Redis.Addr),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
	)
	if err != nil {
		return nil, fmt.Errorf("redis counter: %w", err)
	}
	return c, nil
}

// ProvideForecastSink fans events out to every enabled sink.
func ProvideForecastSink(
	cfg *config.Config,
	l *logger.Logger,
	rec *metrics.Recorder,
	producer *pkgkafka.Producer,
	ch *pkgch.Client,
) (domsvc.ForecastSink, error) {
	var sinks []repository.NamedSink
	if producer != nil {
		sinks = append(sinks, repository.NamedSink{
			Name: "kafka",
			Sink: repository.NewKafkaForecastPublisher(producer, cfg.Kafka.Topic),
		})
	}
	if ch != nil {
		store, err := repository.NewClickHouseForecastStore(ch, cfg.ClickHouse.Table)
		if err != nil {
			return nil, err
		}
		store.SetLogger(l)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := store.Init(ctx); err != nil {
			return nil, fmt.Errorf("clickhouse schema: %w", err)
		}
		sinks = append(sinks, repository.NamedSink{Name: "clickhouse", Sink: store})
	}
	if len(sinks) == 0 {
		return repository.NopSink{}, nil
	}
	ms := repository.NewMultiSink(rec, sinks...)
	l.Info("forecast sinks enabled", logger.Int("count", ms.Len()))
	return ms, nil
}

// ProvideNopSink is used by one-shot commands that should leave no trace.
func ProvideNopSink() domsvc.ForecastSink {
	return repository.NopSink{}
}

func ProvideBinanceClient(cfg *config.Config) *binance.Client {
	return binance.New(cfg.Binance.BaseURL,
		xhttp.WithTimeout(cfg.Upstream.Timeout),
		xhttp.WithRateLimit(cfg.Binance.RPS, cfg.Binance.Burst),
	)
}

func ProvideFinnhubClient(cfg *config.Config) *finnhub.Client {
	return finnhub.New(cfg.Finnhub.APIKey, cfg.Finnhub.BaseURL,
		xhttp.WithTimeout(cfg.Upstream.Timeout),
		xhttp.WithRateLimit(cfg.Finnhub.RPS, 1),
	)
}

// ProvideKronosRunner prefers the model service when one is configured.
func ProvideKronosRunner(cfg *config.Config) kronos.Runner {
	if cfg.Kronos.ServiceURL != "" {
		timeout := cfg.Kronos.Timeout
		if timeout <= 0 {
			timeout = cfg.Upstream.Timeout
		}
		return kronos.NewHTTPRunner(cfg.Kronos.ServiceURL, xhttp.WithTimeout(timeout))
	}
	return kronos.NewProcessRunner(cfg.Kronos.Python, cfg.Kronos.Script, cfg.Kronos.WorkDir)
}

func sourceOptions(ref *refdata.Table, l *logger.Logger, name string) []sources.Option {
	return []sources.Option{
		sources.WithRefData(ref),
		sources.WithLogger(l.With(logger.String("source", name))),
	}
}

func ProvideBinanceSource(cfg *config.Config, c *binance.Client, ref *refdata.Table, l *logger.Logger) *sources.Binance {
	return sources.NewBinance(c, cfg.Binance.KlineLimit, sourceOptions(ref, l, sources.BinanceLabel)...)
}

// ProvideSources lists the cascade in priority order. The synthetic source must stay last.
func ProvideSources(
	bs *sources.Binance,
	fc *finnhub.Client,
	runner kronos.Runner,
	ref *refdata.Table,
	l *logger.Logger,
) []domsvc.Source {
	return []domsvc.Source{
		bs,
		sources.NewFinnhub(fc, sourceOptions(ref, l, sources.FinnhubLabel)...),
		sources.NewKronos(runner, sourceOptions(ref, l, sources.KronosLabel)...),
		sources.NewSynthetic(sourceOptions(ref, l, sources.SyntheticLabel)...),
	}
}

func ProvideCascade(
	cfg *config.Config,
	srcs []domsvc.Source,
	sink domsvc.ForecastSink,
	rec *metrics.Recorder,
	l *logger.Logger,
) *usecase.Cascade {
	return usecase.NewCascade(srcs,
		usecase.WithAttemptTimeout(cfg.Upstream.Timeout),
		usecase.WithSink(sink),
		usecase.WithMetrics(rec),
		usecase.WithCascadeLogger(l.With(logger.String("component", "cascade"))),
	)
}

func ProvideMarketService(
	cfg *config.Config,
	bs *sources.Binance,
	ref *refdata.Table,
	rec *metrics.Recorder,
	l *logger.Logger,
) *usecase.MarketService {
	return usecase.NewMarketService(bs, ref, cfg.Popular.Symbols,
		usecase.WithQuoteTimeout(cfg.Upstream.Timeout),
		usecase.WithMarketMetrics(rec),
		usecase.WithMarketLogger(l.With(logger.String("component", "market"))),
	)
}

// ProvideLimits rate limits prediction requests per client when enabled.
func ProvideLimits(cfg *config.Config, counter cache.Counter, l *logger.Logger) (Limits, error) {
	if !cfg.RateLimit.Enabled {
		return nil, nil
	}
	lim, err := ratelimit.New(counter, "predict", cfg.RateLimit.Requests, cfg.RateLimit.Window)
	if err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}
	return Limits{lim.Middleware(l)}, nil
}

func ProvideHandler(l *logger.Logger, cascade *usecase.Cascade, market *usecase.MarketService, limits Limits) xhttp.Handler {
	return xhttp.Handlers{
		api.NewForecastHandler(l, cascade, limits...),
		api.NewMarketHandler(l, market),
	}
}

// ProvideApp assembles the server and everything it must close on shutdown.
func ProvideApp(
	cfg *config.Config,
	l *logger.Logger,
	handler xhttp.Handler,
	cascade *usecase.Cascade,
	producer *pkgkafka.Producer,
	ch *pkgch.Client,
	counter cache.Counter,
) *server.App {
	app := server.New(cfg, l, handler, cascade)
	app.AddCloser("rate limit counters", counter)
	if ch != nil {
		app.AddCloser("clickhouse", ch)
	}
	if producer != nil {
		app.AddCloser("kafka producer", producer)
	}
	return app
}
