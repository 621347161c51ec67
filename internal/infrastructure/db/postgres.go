package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"oee-monitor/internal/infrastructure/config"

	"github.com/cenkalti/backoff/v4"
	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
)

// Connect 建立 PostgreSQL 連線池；若未設定 DSN 則回傳 nil。
// 啟動時資料庫可能尚未就緒，Ping 以指數退避重試直到 ConnectTimeout。
func Connect(ctx context.Context, cfg config.DBConfig, logger *zap.Logger) (*sql.DB, error) {
	if cfg.DSN == "" {
		return nil, nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := sql.Open("pgx", cfg.DSN)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxIdleTime(cfg.MaxIdleTime)

	if err := pingWithRetry(ctx, db, cfg.ConnectTimeout, logger); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// Pinger 為可檢查連線的資料庫。
type Pinger interface {
	PingContext(ctx context.Context) error
}

func pingWithRetry(ctx context.Context, db Pinger, timeout time.Duration, logger *zap.Logger) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	bo.MaxInterval = 5 * time.Second
	if timeout > 0 {
		bo.MaxElapsedTime = timeout
	}

	attempt := 0
	op := func() error {
		attempt++
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return db.PingContext(pingCtx)
	}
	notify := func(err error, wait time.Duration) {
		logger.Warn("database not ready", zap.Int("attempt", attempt), zap.Duration("retry_in", wait), zap.Error(err))
	}
	if err := backoff.RetryNotify(op, backoff.WithContext(bo, ctx), notify); err != nil {
		return fmt.Errorf("ping database after %d attempts: %w", attempt, err)
	}
	return nil
}
