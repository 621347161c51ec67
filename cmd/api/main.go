package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"oee-monitor/internal/infrastructure/config"
	"oee-monitor/internal/infrastructure/db"
	"oee-monitor/internal/infrastructure/logging"
	httpapi "oee-monitor/internal/interface/http"

	"go.uber.org/zap"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.LoadFromFile(*cfgPath)
	if err != nil {
		log.Fatalf("CRITICAL: load config failed: %v", err)
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		log.Fatalf("CRITICAL: init logger failed: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	logger.Info("configuration loaded", zap.String("http_addr", cfg.HTTP.Addr), zap.String("timezone", cfg.OEE.Timezone))

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DB.ConnectTimeout+5*time.Second)
	pool, err := db.Connect(ctx, cfg.DB, logger)
	cancel()
	switch {
	case err != nil:
		logger.Warn("database connection failed, falling back to in-memory store", zap.Error(err))
		pool = nil
	case pool == nil:
		logger.Info("no DB_DSN provided; running with in-memory store only")
	default:
		defer pool.Close()
		logger.Info("database connected successfully")
	}

	apiServer, err := httpapi.NewServer(cfg, pool, logger)
	if err != nil {
		return err
	}
	apiServer.StartWorker()
	defer func() {
		if err := apiServer.Close(); err != nil {
			logger.Warn("close server resources failed", zap.Error(err))
		}
	}()

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting HTTP server", zap.String("addr", cfg.HTTP.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sig)

	select {
	case err := <-errCh:
		return err
	case s := <-sig:
		logger.Info("shutting down", zap.String("signal", s.String()))
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()
	return srv.Shutdown(shutdownCtx)
}
