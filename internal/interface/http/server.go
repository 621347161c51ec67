package httpapi

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"oee-monitor/internal/application/aggregation"
	"oee-monitor/internal/application/realtime"
	"oee-monitor/internal/domain/oee"
	"oee-monitor/internal/infra/memory"
	authinfra "oee-monitor/internal/infrastructure/auth"
	"oee-monitor/internal/infrastructure/cache"
	"oee-monitor/internal/infrastructure/config"
	"oee-monitor/internal/infrastructure/metrics"
	"oee-monitor/internal/infrastructure/notify"
	"oee-monitor/internal/infrastructure/persistence/postgres"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	errCodeBadRequest        = "BAD_REQUEST"
	errCodeUnauthorized      = "AUTH_UNAUTHORIZED"
	errCodeForbidden         = "AUTH_FORBIDDEN"
	errCodeNotFound          = "NOT_FOUND"
	errCodeInternal          = "INTERNAL_ERROR"
	errCodeAggregationFailed = "AGGREGATION_FAILED"
)

// Repository 為 API 使用的全部資料存取（Postgres 或記憶體）。
type Repository interface {
	aggregation.Repository
	aggregation.QueryRepository
	realtime.Repository
}

// Server 組合 OEE 彙總、即時查詢與稽核查詢的 HTTP API。
type Server struct {
	engine       *gin.Engine
	logger       *zap.Logger
	db           *sql.DB
	store        *memory.Store
	repo         Repository
	resolver     *oee.ShiftResolver
	orchestrator *aggregation.Orchestrator
	queryUC      *aggregation.QueryUseCase
	realtimeSvc  *realtime.Service
	tokenSvc     *authinfra.JWTIssuer
	metrics      *metrics.Collector
	worker       *aggregation.BackgroundWorker
	redis        *cache.RedisBackend
	authDisabled bool
	autoInterval time.Duration
	now          func() time.Time
}

// Option 調整 Server 的可選依賴。
type Option func(*Server)

// WithClock 注入時間來源，供測試使用。
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// NewServer 建立 API 伺服器；db 為 nil 時使用記憶體資料存儲並載入示範設備。
func NewServer(cfg config.Config, db *sql.DB, logger *zap.Logger, opts ...Option) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		logger:       logger,
		db:           db,
		authDisabled: cfg.Auth.Disabled,
		autoInterval: cfg.Aggregation.AutoInterval,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	resolver, err := cfg.OEE.Resolver()
	if err != nil {
		return nil, err
	}
	s.resolver = resolver
	policy := cfg.OEE.Policy()

	if db != nil {
		s.repo = postgres.NewRepo(db)
	} else {
		s.store = memory.NewStore()
		date, _ := resolver.Current(s.now())
		s.store.SeedDemo(resolver, date)
		s.repo = s.store
	}

	s.metrics = metrics.NewCollector()
	s.tokenSvc = authinfra.NewJWTIssuer(cfg.Auth.Secret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)

	orchOpts := []aggregation.Option{
		aggregation.WithObserver(s.metrics),
		aggregation.WithClock(s.now),
		aggregation.WithMaxBackfillDays(cfg.Aggregation.MaxBackfillDays),
		aggregation.WithNotifier(notify.FromConfig(cfg.Notifier.Telegram, "OEE")),
	}
	s.orchestrator = aggregation.NewOrchestrator(s.repo, resolver, policy, logger.Named("aggregation"), orchOpts...)
	s.queryUC = aggregation.NewQueryUseCase(s.repo)

	backend := s.realtimeBackend(cfg.Realtime)
	rtCache := realtime.NewCache(backend, cfg.Realtime.TTL, cfg.Realtime.Bucket, s.now,
		realtime.WithCacheObserver(s.metrics),
		realtime.WithCacheLogger(logger.Named("realtime")),
	)
	s.realtimeSvc = realtime.NewService(s.repo, resolver, policy, rtCache, logger.Named("realtime"))

	s.engine = s.newEngine()
	return s, nil
}

// realtimeBackend 優先使用 Redis 共享快取，連線失敗時退回本機快取。
func (s *Server) realtimeBackend(cfg config.RealtimeConfig) realtime.Backend {
	retention := cfg.SweepInterval
	if cfg.Redis.Addr != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		rb, err := cache.NewRedisBackend(ctx, cfg.Redis, retention)
		if err == nil {
			s.redis = rb
			s.logger.Info("realtime cache using redis", zap.String("addr", cfg.Redis.Addr))
			return rb
		}
		s.logger.Warn("redis unavailable, falling back to in-process cache", zap.Error(err))
	}
	return realtime.NewMemoryBackend(retention, cfg.SweepInterval)
}

// Handler 回傳 HTTP handler。
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Store 主要用於測試注入初始資料；使用 DB 時為 nil。
func (s *Server) Store() *memory.Store {
	return s.store
}

// Orchestrator 回傳批次彙總流程，供一次性指令重用。
func (s *Server) Orchestrator() *aggregation.Orchestrator {
	return s.orchestrator
}

// StartWorker 於 auto_interval > 0 時啟動背景彙總。
func (s *Server) StartWorker() {
	if s.autoInterval <= 0 || s.worker != nil {
		return
	}
	s.worker = aggregation.NewBackgroundWorker(s.orchestrator, s.autoInterval, s.logger.Named("worker"))
	s.worker.Start()
}

// Close 停止背景工作並釋放快取連線。
func (s *Server) Close() error {
	if s.worker != nil {
		s.worker.Stop()
		s.worker = nil
	}
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			return fmt.Errorf("close redis: %w", err)
		}
	}
	return nil
}
