// aggregate 執行一次 OEE 批次彙總後結束，供 cron 等外部排程呼叫。
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"
	_ "time/tzdata"

	"oee-monitor/internal/application/aggregation"
	"oee-monitor/internal/domain/oee"
	"oee-monitor/internal/infrastructure/config"
	"oee-monitor/internal/infrastructure/db"
	"oee-monitor/internal/infrastructure/logging"
	"oee-monitor/internal/infrastructure/metrics"
	"oee-monitor/internal/infrastructure/notify"
	"oee-monitor/internal/infrastructure/persistence/postgres"

	"go.uber.org/zap"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to config file")
	dateStr := flag.String("date", "", "target production date YYYY-MM-DD (default: today)")
	endStr := flag.String("end", "", "optional end date YYYY-MM-DD; when set, backfill [date, end]")
	timeout := flag.Duration("timeout", 10*time.Minute, "overall timeout")
	flag.Parse()

	cfg, err := config.LoadFromFile(*cfgPath)
	if err != nil {
		log.Fatalf("load config failed: %v", err)
	}
	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		log.Fatalf("init logger failed: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := run(ctx, cfg, logger, *dateStr, *endStr); err != nil {
		logger.Error("aggregation command failed", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger, dateStr, endStr string) error {
	resolver, err := cfg.OEE.Resolver()
	if err != nil {
		return err
	}

	pool, err := db.Connect(ctx, cfg.DB, logger)
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}
	if pool == nil {
		return errors.New("db.dsn is required for batch aggregation")
	}
	defer pool.Close()

	opts := []aggregation.Option{
		aggregation.WithObserver(metrics.NewCollector()),
		aggregation.WithMaxBackfillDays(cfg.Aggregation.MaxBackfillDays),
		aggregation.WithNotifier(notify.FromConfig(cfg.Notifier.Telegram, "OEE")),
	}
	orch := aggregation.NewOrchestrator(postgres.NewRepo(pool), resolver, cfg.OEE.Policy(), logger.Named("aggregation"), opts...)

	from := resolver.Date(time.Now())
	if dateStr != "" {
		if from, err = resolver.ParseDate(dateStr); err != nil {
			return fmt.Errorf("invalid -date: %w", err)
		}
	}

	if endStr == "" {
		res, err := orch.Execute(ctx, from)
		if err != nil {
			return err
		}
		logger.Info("aggregation finished",
			zap.String("run_id", res.RunID),
			zap.String("date", res.Date.Format(oee.DateLayout)),
			zap.Int("processed", res.ProcessedRecords),
			zap.Int("skipped", len(res.Skipped)),
		)
		return nil
	}

	to, err := resolver.ParseDate(endStr)
	if err != nil {
		return fmt.Errorf("invalid -end: %w", err)
	}
	results, err := orch.Backfill(ctx, from, to)
	for _, res := range results {
		logger.Info("backfill day finished",
			zap.String("run_id", res.RunID),
			zap.String("date", res.Date.Format(oee.DateLayout)),
			zap.String("status", string(res.Status)),
			zap.Int("processed", res.ProcessedRecords),
		)
	}
	return err
}
