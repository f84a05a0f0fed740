package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/guildwarden/warden/automod"
	"github.com/guildwarden/warden/automod/cachestore"
	"github.com/guildwarden/warden/automod/casestore"
	"github.com/guildwarden/warden/automod/countstore"
	"github.com/guildwarden/warden/automod/engine"
	"github.com/guildwarden/warden/automod/ratestore"
	"github.com/guildwarden/warden/automod/rules"
	"github.com/guildwarden/warden/automod/seenstore"
	"github.com/guildwarden/warden/pkg/robusthttp"
	"github.com/guildwarden/warden/util/cliutil"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
	"gorm.io/plugin/opentelemetry/tracing"
)

// confirmed guild memberships are trusted for this long
const memberCacheTTL = 5 * time.Minute

type Server struct {
	logger *slog.Logger
	engine *automod.Engine
	db     *gorm.DB
	// only set when rate windows are kept in process memory
	memRates *ratestore.MemRateStore
	kafka    *engine.KafkaNotifier
}

type Config struct {
	Logger           *slog.Logger
	DatabaseURL      string
	MaxDBConnections int
	// trace SQL queries through OpenTelemetry
	DBTracing bool
	RedisURL         string
	// "sql" or "redis"
	WarningStore    string
	SlackWebhookURL string
	KafkaBrokers    []string
	KafkaTopic      string
	SystemID        string
	Moderators      []string
	// outbound platform calls per second; zero for unlimited
	ActionRateLimit float64
	ActionTimeout   time.Duration
	SeenTTL         time.Duration
}

// Sets up stores and the automod engine. The engine's Platform is left for the caller to attach.
//
// Failing to open the case ledger is fatal.
func NewServer(config Config) (*Server, error) {
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	}

	db, err := cliutil.SetupDatabase(config.DatabaseURL, config.MaxDBConnections)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if config.DBTracing {
		if err := db.Use(tracing.NewPlugin()); err != nil {
			return nil, err
		}
	}
	cases, err := casestore.NewSQLCaseStore(db)
	if err != nil {
		return nil, fmt.Errorf("initializing case ledger: %w", err)
	}

	var rates ratestore.RateStore
	var seen seenstore.SeenStore
	var members cachestore.MemberCache
	var memRates *ratestore.MemRateStore
	if config.RedisURL != "" {
		// check redis connection up front, rather than on the first message
		opt, err := redis.ParseURL(config.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parsing redis URL: %v", err)
		}
		rdb := redis.NewClient(opt)
		_, err = rdb.Ping(context.TODO()).Result()
		rdb.Close()
		if err != nil {
			return nil, fmt.Errorf("redis ping failed: %v", err)
		}

		rts, err := ratestore.NewRedisRateStore(config.RedisURL, ratestore.DefaultWindow, ratestore.DefaultLimit)
		if err != nil {
			return nil, fmt.Errorf("initializing redis ratestore: %v", err)
		}
		rates = rts

		sn, err := seenstore.NewRedisSeenStore(config.RedisURL, config.SeenTTL)
		if err != nil {
			return nil, fmt.Errorf("initializing redis seenstore: %v", err)
		}
		seen = sn

		mc, err := cachestore.NewRedisMemberCache(config.RedisURL, memberCacheTTL)
		if err != nil {
			return nil, fmt.Errorf("initializing redis member cache: %v", err)
		}
		members = mc
	} else {
		memRates = ratestore.NewMemRateStore(ratestore.DefaultWindow, ratestore.DefaultLimit)
		rates = memRates
		seen = seenstore.NewMemSeenStore(50_000, config.SeenTTL)
		members = cachestore.NewMemMemberCache(10_000, memberCacheTTL)
	}

	warnings, err := openWarningStore(config.WarningStore, config.RedisURL, db)
	if err != nil {
		return nil, err
	}

	var notifiers []engine.Notifier
	if config.SlackWebhookURL != "" {
		logger.Info("configuring slack case notifications")
		notifiers = append(notifiers, &engine.SlackNotifier{
			SlackWebhookURL: config.SlackWebhookURL,
			Client:          robusthttp.NewClient(robusthttp.WithLogger(logger)),
		})
	}
	var kn *engine.KafkaNotifier
	if len(config.KafkaBrokers) > 0 && config.KafkaTopic != "" {
		logger.Info("configuring kafka case events", "topic", config.KafkaTopic)
		kn = engine.NewKafkaNotifier(config.KafkaBrokers, config.KafkaTopic)
		notifiers = append(notifiers, kn)
	}

	var limiter *rate.Limiter
	if config.ActionRateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(config.ActionRateLimit), 1)
	}

	eng := automod.Engine{
		Logger:        logger,
		Rules:         rules.DefaultRules(),
		Rates:         rates,
		Warnings:      warnings,
		Cases:         cases,
		Seen:          seen,
		Members:       members,
		Notifiers:     notifiers,
		Limiter:       limiter,
		SystemID:      config.SystemID,
		Moderators:    config.Moderators,
		ActionTimeout: config.ActionTimeout,
	}

	s := &Server{
		logger:   logger,
		engine:   &eng,
		db:       db,
		memRates: memRates,
		kafka:    kn,
	}
	return s, nil
}

// Selects the warning count backend: "sql" (the default) or "redis".
func openWarningStore(kind, redisURL string, db *gorm.DB) (countstore.CountStore, error) {
	switch kind {
	case "", "sql":
		cnt, err := countstore.NewSQLCountStore(db)
		if err != nil {
			return nil, fmt.Errorf("initializing warning store: %w", err)
		}
		return cnt, nil
	case "redis":
		if redisURL == "" {
			return nil, fmt.Errorf("redis warning store requires a redis URL")
		}
		cnt, err := countstore.NewRedisCountStore(redisURL)
		if err != nil {
			return nil, fmt.Errorf("initializing redis countstore: %v", err)
		}
		return cnt, nil
	default:
		return nil, fmt.Errorf("unknown warning store: %s", kind)
	}
}

// Serves prometheus metrics until the context is cancelled.
func (s *Server) RunMetrics(ctx context.Context, listen string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              listen,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()
	s.logger.Info("serving metrics", "listen", listen)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics listener: %w", err)
	}
	return nil
}

// Periodically drops idle in-memory rate windows. Returns immediately when windows live in redis, which expires them itself.
func (s *Server) RunSweeper(ctx context.Context, interval time.Duration) error {
	if s.memRates == nil {
		return nil
	}
	return s.memRates.RunSweeper(ctx, interval)
}

func (s *Server) Close() error {
	var errs []error
	if s.kafka != nil {
		errs = append(errs, s.kafka.Close())
	}
	if sqldb, err := s.db.DB(); err == nil {
		errs = append(errs, sqldb.Close())
	}
	return errors.Join(errs...)
}
