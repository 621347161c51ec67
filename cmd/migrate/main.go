package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"time"

	"oee-monitor/internal/infrastructure/config"
	"oee-monitor/internal/infrastructure/logging"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to config file")
	migrationsPath := flag.String("dir", "db/migrations", "path to migrations directory")
	flag.Parse()

	cfg, err := config.LoadFromFile(*cfgPath)
	if err != nil {
		log.Fatalf("讀取組態失敗: %v", err)
	}
	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		log.Fatalf("初始化 logger 失敗: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if cfg.DB.DSN == "" {
		logger.Fatal("db.dsn is not set, cannot run migrations")
	}

	files, err := migrationFiles(*migrationsPath)
	if err != nil {
		logger.Fatal("load migrations failed", zap.Error(err))
	}

	db, err := sql.Open("postgres", cfg.DB.DSN)
	if err != nil {
		logger.Fatal("open database failed", zap.Error(err))
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	for _, f := range files {
		sqlBytes, err := os.ReadFile(f)
		if err != nil {
			logger.Fatal("read migration failed", zap.String("file", f), zap.Error(err))
		}
		logger.Info("applying migration", zap.String("file", filepath.Base(f)))
		if _, err := db.ExecContext(ctx, string(sqlBytes)); err != nil {
			logger.Fatal("apply migration failed", zap.String("file", filepath.Base(f)), zap.Error(err))
		}
	}

	logger.Info("migrations complete", zap.Int("files", len(files)))
}

// migrationFiles 依檔名排序回傳目錄下所有 .sql 檔。
func migrationFiles(dir string) ([]string, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve migrations path: %w", err)
	}
	if _, err := os.Stat(absDir); err != nil {
		return nil, fmt.Errorf("migrations directory: %w", err)
	}
	files, err := filepath.Glob(filepath.Join(absDir, "*.sql"))
	if err != nil {
		return nil, fmt.Errorf("glob migrations: %w", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no .sql migration files in %s", absDir)
	}
	sort.Strings(files)
	return files, nil
}
