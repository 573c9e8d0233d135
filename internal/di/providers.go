package di

import (
	"context"
	"fmt"
	"strings"
	"time"

	domrepo "TurtleDesk/internal/domain/repository"
	domsvc "TurtleDesk/internal/domain/service"
	"TurtleDesk/internal/handler/api"
	"TurtleDesk/internal/handler/web"
	"TurtleDesk/internal/middleware"
	"TurtleDesk/internal/repository"
	"TurtleDesk/internal/service/analysisclient"
	"TurtleDesk/internal/service/market"
	"TurtleDesk/internal/service/notify"
	"TurtleDesk/internal/service/ratelimit"
	"TurtleDesk/internal/service/stream"
	"TurtleDesk/internal/usecase"
	"TurtleDesk/pkg/cache"
	pkgch "TurtleDesk/pkg/clickhouse"
	"TurtleDesk/pkg/config"
	"TurtleDesk/pkg/database"
	xhttp "TurtleDesk/pkg/http"
	httpmw "TurtleDesk/pkg/http/middleware"
	pkgkafka "TurtleDesk/pkg/kafka"
	applogger "TurtleDesk/pkg/logger"
	"TurtleDesk/pkg/metrics"
	"TurtleDesk/pkg/queue"
	"TurtleDesk/pkg/server"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	hubHistory   = 50
	slowQuery    = 500 * time.Millisecond
	remoteRetry  = 1
	pingDeadline = 5 * time.Second
)

func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	return applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
}

// ProvideDatabase opens the relational store and routes SQL logs through l.
func ProvideDatabase(cfg *config.Config, l *applogger.Logger) (*gorm.DB, error) {
	level := gormlogger.Warn
	if cfg.Log.Level == "debug" {
		level = gormlogger.Info
	}
	db, err := database.Open(database.Config{
		Driver:          cfg.Database.Driver,
		DSN:             cfg.DSN(),
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, &gorm.Config{Logger: database.NewLogger(l, level, slowQuery)})
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingDeadline)
	defer cancel()
	if err := database.Ping(ctx, db); err != nil {
		_ = database.Close(db)
		return nil, err
	}
	return db, nil
}

func ProvideStore(db *gorm.DB) *repository.GormStore {
	return repository.NewGormStore(db)
}

func ProvideMetrics() domrepo.Metrics {
	return metrics.New(prometheus.DefaultRegisterer)
}

// ProvideRedis returns nil when redis is disabled.
func ProvideRedis(cfg *config.Config) (*redis.Client, error) {
	if !cfg.Redis.Enabled {
		return nil, nil
	}
	client, err := cache.NewRedisClient(
		cache.WithRedisAddr(cfg.Redis.Host, cfg.Redis.Port),
		cache.WithRedisAuth(cfg.Redis.Password, cfg.Redis.DB),
	)
	if err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}
	return client, nil
}

// ProvideCache layers an in-process LRU over redis when redis is enabled.
func ProvideCache(cfg *config.Config, rc *redis.Client) cache.Service {
	if rc == nil {
		return cache.NewMemoryCache(cache.WithMaxEntries(cfg.Cache.MemoryMaxSize))
	}
	return cache.NewLayeredCache(
		cache.NewRedisCache(rc, cfg.Redis.Prefix+":cache"),
		time.Minute,
		cache.WithMaxEntries(cfg.Cache.MemoryMaxSize),
	)
}

func ProvideMarketData(cfg *config.Config, c cache.Service, l *applogger.Logger) (domrepo.MarketData, error) {
	src, err := market.New(cfg)
	if err != nil {
		return nil, err
	}
	if cfg.Cache.HistoryTTL <= 0 {
		return src, nil
	}
	return market.NewCached(src, c, cfg.Cache.HistoryTTL, l), nil
}

// ProvideKafkaProducer returns nil unless brokers are configured.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if len(cfg.Kafka.Brokers) == 0 {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithBatching(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.Linger),
		pkgkafka.WithWriteTimeout(cfg.Kafka.Producer.WriteTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideClickHouseClient returns nil when clickhouse is disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithAddr(cfg.ClickHouse.Host, cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, nil
}

func ProvideEventStore(ch *pkgch.Client, l *applogger.Logger) *repository.CHEventStore {
	if ch == nil {
		return nil
	}
	return repository.NewCHEventStore(ch, l)
}

// eventStore keeps a nil *CHEventStore from becoming a non-nil interface.
func eventStore(s *repository.CHEventStore) domrepo.EventStore {
	if s == nil {
		return nil
	}
	return s
}

func ProvideEventPublisher(cfg *config.Config, producer *pkgkafka.Producer, store *repository.CHEventStore) domrepo.EventPublisher {
	switch cfg.Events.Backend {
	case "kafka":
		if producer != nil {
			return repository.NewKafkaEventPublisher(producer, cfg.Kafka.Topic)
		}
	case "clickhouse":
		if store != nil {
			return repository.NewStoreEventPublisher(store)
		}
	}
	return repository.NopEventPublisher{}
}

func ProvideSignalEventProcessor(pub domrepo.EventPublisher, m domrepo.Metrics) *usecase.SignalEventProcessor {
	return usecase.NewSignalEventProcessor(pub, m)
}

func ProvideHub(l *applogger.Logger) *stream.Hub {
	return stream.NewHub(l, hubHistory)
}

// ProvideNotifier builds the enabled channels. With none enabled the result reports Enabled() == false.
func ProvideNotifier(cfg *config.Config, l *applogger.Logger, m domrepo.Metrics) (*notify.Multi, error) {
	var channels []domsvc.Notifier
	if e := cfg.Notify.Email; e.Enabled {
		from := e.From
		if from == "" {
			from = e.Username
		}
		channels = append(channels, notify.NewEmail(e.Host, e.Port, e.Username, e.Password, from, e.To))
	}
	if t := cfg.Notify.Telegram; t.Enabled {
		tg, err := notify.NewTelegram(t.Token, "", t.ChatID)
		if err != nil {
			return nil, err
		}
		channels = append(channels, tg)
	}
	return notify.NewMulti(l, m, channels...), nil
}

func ProvideNotifyUseCase(n *notify.Multi, store *repository.GormStore, l *applogger.Logger) *usecase.NotifyUseCase {
	return usecase.NewNotifyUseCase(n, store.Alerts(), l)
}

// ProvideQueue returns nil unless queue.enabled.
func ProvideQueue(cfg *config.Config, rc *redis.Client, l *applogger.Logger, job *usecase.NotifyUseCase) *queue.RedisQueue {
	if !cfg.Queue.Enabled || rc == nil {
		return nil
	}
	q := queue.NewRedisQueue(l, rc, queue.Config{
		Workers:    cfg.Queue.Workers,
		RetryLimit: cfg.Queue.RetryLimit,
		RetryDelay: cfg.Queue.RetryDelay,
		KeyPrefix:  cfg.Redis.Prefix + ":queue",
	})
	q.RegisterJob(job)
	return q
}

// ProvidePipeline returns nil when the queue handles delivery.
func ProvidePipeline(cfg *config.Config, proc *usecase.NotifyUseCase, m domrepo.Metrics, l *applogger.Logger, q *queue.RedisQueue) *middleware.SignalPipeline {
	if q != nil {
		return nil
	}
	return middleware.NewSignalPipeline(proc, m, l,
		middleware.WithCooldown(cfg.Notify.Cooldown),
		middleware.WithBufferSize(cfg.Notify.BufferSize),
	)
}

// ProvideDispatcher picks the queue or the in-process pipeline, or nothing when no channel is enabled.
func ProvideDispatcher(n *notify.Multi, q *queue.RedisQueue, p *middleware.SignalPipeline) domsvc.Dispatcher {
	switch {
	case !n.Enabled():
		return nil
	case q != nil:
		return usecase.NewQueueDispatcher(q)
	case p != nil:
		return p
	default:
		return nil
	}
}

func ProvideAnalyzeUseCase(
	cfg *config.Config,
	md domrepo.MarketData,
	store *repository.GormStore,
	events *usecase.SignalEventProcessor,
	dispatcher domsvc.Dispatcher,
	hub *stream.Hub,
	m domrepo.Metrics,
	l *applogger.Logger,
) *usecase.AnalyzeUseCase {
	return usecase.NewAnalyzeUseCase(md, store, events, dispatcher, hub, m, l, usecase.StrategyDefaults{
		Period:      cfg.Strategy.Period,
		Interval:    cfg.Strategy.Interval,
		EntryPeriod: cfg.Strategy.EntryPeriod,
		ExitPeriod:  cfg.Strategy.ExitPeriod,
	})
}

func ProvideStocksUseCase(store *repository.GormStore, md domrepo.MarketData) *usecase.StocksUseCase {
	return usecase.NewStocksUseCase(store, md)
}

func ProvideBatchUseCase(cfg *config.Config, uc *usecase.AnalyzeUseCase) *usecase.BatchUseCase {
	return usecase.NewBatchUseCase(uc, cfg.Strategy.BatchLimit)
}

func ProvideEventsUseCase(store *repository.CHEventStore) *usecase.EventsUseCase {
	return usecase.NewEventsUseCase(eventStore(store))
}

// ProvideKafkaConsumer returns nil unless events.consume is set.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
	if !cfg.Events.Consume {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

func ProvideKafkaSignalsHandler(cfg *config.Config, store *repository.CHEventStore, m domrepo.Metrics) *usecase.KafkaSignalsHandler {
	if store == nil {
		return nil
	}
	return usecase.NewKafkaSignalsHandler(cfg.Kafka.Topic, store, m)
}

// ProvideLimiter returns nil when rate limiting is off.
func ProvideLimiter(cfg *config.Config) *ratelimit.Limiter {
	if !cfg.RateLimit.Enabled {
		return nil
	}
	return ratelimit.New(cfg.RateLimit.Capacity, cfg.RateLimit.Refill)
}

func ProvideAPIHandler(
	l *applogger.Logger,
	uc *usecase.AnalyzeUseCase,
	stocks *usecase.StocksUseCase,
	batch *usecase.BatchUseCase,
	events *usecase.EventsUseCase,
) *api.Handler {
	return api.NewHandler(l, uc, stocks, batch, events)
}

// ProvideWebHandler points the analysis page at web.analysis_url when set, else at the local analyzer.
func ProvideWebHandler(cfg *config.Config, l *applogger.Logger, uc *usecase.AnalyzeUseCase, hub *stream.Hub) *web.Handler {
	var analyzer domsvc.Analyzer = uc
	if cfg.Web.AnalysisURL != "" {
		analyzer = analysisclient.New(cfg.Web.AnalysisURL, cfg.Web.Timeout).WithRetry(remoteRetry)
	}
	return web.NewHandler(l, analyzer, hub)
}

func ProvideHTTPServer(
	cfg *config.Config,
	l *applogger.Logger,
	apiH *api.Handler,
	webH *web.Handler,
	limiter *ratelimit.Limiter,
) (*xhttp.Server, error) {
	renderer, err := web.NewRenderer()
	if err != nil {
		return nil, err
	}
	opts := []xhttp.ServerOption{
		xhttp.WithHost(cfg.Server.Host),
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithCORS(cfg.Server.CORS),
		xhttp.WithLogger(l),
		xhttp.WithRenderer(renderer),
	}
	if limiter != nil {
		opts = append(opts, xhttp.WithMiddleware(httpmw.RateLimit(limiter, skipRateLimit)))
	}
	return xhttp.NewServer([]xhttp.Handler{apiH, webH}, opts...), nil
}

// skipRateLimit limits POST /analyze and everything under /api.
func skipRateLimit(c echo.Context) bool {
	path := c.Request().URL.Path
	if strings.HasPrefix(path, "/api/") {
		return false
	}
	return !(path == "/analyze" && c.Request().Method == echo.POST)
}

func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	db *gorm.DB,
	store *repository.GormStore,
	srv *xhttp.Server,
	uc *usecase.AnalyzeUseCase,
	hub *stream.Hub,
	pipeline *middleware.SignalPipeline,
	q *queue.RedisQueue,
	consumer *pkgkafka.Consumer,
	signals *usecase.KafkaSignalsHandler,
	events *repository.CHEventStore,
	ch *pkgch.Client,
	producer *pkgkafka.Producer,
	rc *redis.Client,
	limiter *ratelimit.Limiter,
) *server.App {
	if producer != nil && cfg.Log.Topic != "" {
		l.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   cfg.Log.FlushInterval,
			CountThreshold: cfg.Log.FlushCount,
			Topic:          cfg.Log.Topic,
			Publisher:      producer,
		})
	}

	c := server.Components{
		Logger:     l,
		DB:         db,
		Store:      store,
		HTTP:       srv,
		Analyzer:   uc,
		Hub:        hub,
		Pipeline:   pipeline,
		Queue:      q,
		Consumer:   consumer,
		EventStore: events,
		ClickHouse: ch,
		Producer:   producer,
		Redis:      rc,
		Limiter:    limiter,
	}
	if signals != nil {
		c.Signals = signals
	}
	return server.New(cfg, c)
}
