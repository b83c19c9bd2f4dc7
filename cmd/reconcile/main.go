package main

import (
	"context"
	"log"
	"time"

	"go.uber.org/zap"

	"docverify/internal/cache"
	"docverify/internal/config"
	"docverify/internal/database"
	"docverify/internal/modules/verification"
	"docverify/internal/pkg/logger"
	"docverify/internal/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	zl, err := logger.New(cfg.AppEnv, cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	db, err := database.Connect(cfg.DatabaseURL, database.Options{MaxOpenConns: 2}, zl)
	if err != nil {
		zl.Fatal("db connect failed", zap.Error(err))
	}

	var statusCache verification.StatusCache
	if cfg.RedisURL != "" {
		rc, err := cache.NewFromURL(cfg.RedisURL, "docverify:")
		if err != nil {
			zl.Fatal("redis config invalid", zap.Error(err))
		}
		defer func() { _ = rc.Close() }()
		statusCache = rc
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	r := verification.NewReconciler(
		repository.NewDocumentRepository(db),
		repository.NewVerificationRepository(db),
		statusCache,
		zl,
	)
	report, err := r.Run(ctx)
	if err != nil {
		zl.Fatal("reconcile failed", zap.Error(err))
	}

	zl.Info("reconcile completed",
		zap.Int("checked", report.Checked),
		zap.Int("repaired", report.Repaired),
		zap.Int("failed", report.Failed),
	)
	if report.Failed > 0 {
		zl.Fatal("some documents could not be repaired", zap.Int("failed", report.Failed))
	}
}
