package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"docverify/internal/cache"
	"docverify/internal/config"
	"docverify/internal/database"
	"docverify/internal/middleware"
	"docverify/internal/modules/attestation"
	"docverify/internal/modules/audit"
	"docverify/internal/modules/notification"
	"docverify/internal/modules/verification"
	jwtsvc "docverify/internal/pkg/jwt"
	"docverify/internal/pkg/logger"
	"docverify/internal/repository"
	"docverify/internal/storage"
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

	if err := run(cfg, zl); err != nil {
		zl.Fatal("api stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, zl *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(cfg.DatabaseURL, database.Options{
		MaxOpenConns: cfg.DBMaxOpenConns,
		MaxIdleConns: cfg.DBMaxIdleConns,
	}, zl)
	if err != nil {
		return err
	}
	if err := database.Migrate(db); err != nil {
		return err
	}

	store, local, err := openStore(ctx, cfg.Storage)
	if err != nil {
		return err
	}

	var (
		statusCache verification.StatusCache
		redisPing   func(context.Context) error
	)
	if cfg.RedisURL != "" {
		rc, err := cache.NewFromURL(cfg.RedisURL, "docverify:")
		if err != nil {
			return err
		}
		defer func() { _ = rc.Close() }()
		if err := rc.Ping(ctx); err != nil {
			zl.Warn("redis unreachable, status cache disabled", zap.Error(err))
		} else {
			statusCache = rc
			redisPing = rc.Ping
		}
	}

	documentRepo := repository.NewDocumentRepository(db)
	verificationRepo := repository.NewVerificationRepository(db)

	j := jwtsvc.New(cfg.JWTSecret, cfg.JWTTTL)

	hub := notification.NewHub()
	defer hub.Close()
	notificationService := notification.NewService(repository.NewNotificationRepository(db), hub, zl)
	notificationHandler := notification.NewHandler(notificationService, hub, j, cfg.CORSAllowedOrigins, zl)

	auditService := audit.NewService(repository.NewAuditLogRepository(db))
	auditHandler := audit.NewHandler(auditService, zl)

	verificationService := verification.NewService(verification.Deps{
		Documents: documentRepo,
		States:    verificationRepo,
		Profiles:  repository.NewProfileRepository(db),
		Tx:        repository.NewTransactor(db),
		Store:     store,
		Stamper: attestation.NewStamper(attestation.StamperConfig{
			LogoPath: cfg.Attest.LogoPath,
			Label:    cfg.Attest.Label,
			Timeout:  cfg.Attest.StampTimeout,
		}, zl),
		Relocator:  attestation.NewRelocator(store),
		Dispatcher: verification.NewDispatcher(notificationService, auditService),
		Cache:      statusCache,
	}, verification.Options{
		ReplaceOriginal: cfg.Attest.ReplaceOriginal,
		StatusCacheTTL:  cfg.StatusCacheTTL,
		SignedURLTTL:    cfg.Storage.SignedURLTTL,
	}, zl)
	verificationHandler := verification.NewHandler(verificationService)

	if cfg.ReconcileOnStart {
		report, err := verification.NewReconciler(documentRepo, verificationRepo, statusCache, zl).Run(ctx)
		if err != nil {
			zl.Error("startup reconcile failed", zap.Error(err))
		} else {
			zl.Info("startup reconcile finished",
				zap.Int("checked", report.Checked),
				zap.Int("repaired", report.Repaired),
				zap.Int("failed", report.Failed),
			)
		}
	}

	if cfg.IsProd() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(middleware.Recovery(zl), middleware.RequestLogger(zl), middleware.CORS(cfg.CORSAllowedOrigins))

	r.GET("/healthz", healthz(db, redisPing))
	if local != nil {
		r.GET(cfg.Storage.PublicBase+"/*path", local.ServeSigned())
	}

	v1 := r.Group("/api/v1")
	{
		// token in query string
		notificationHandler.RegisterWebSocket(v1)

		protected := v1.Group("")
		protected.Use(middleware.JWTAuth(j))
		{
			verificationHandler.RegisterRoutes(protected)
			notificationHandler.RegisterRoutes(protected)

			admin := protected.Group("/admin")
			admin.Use(middleware.AdminOnly())
			auditHandler.RegisterRoutes(admin)
		}
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zl.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	zl.Info("shutting down")
	shutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutCtx)
}

func healthz(db *gorm.DB, redisPing func(context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		checks := gin.H{"database": "ok"}
		healthy := true
		if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
			checks["database"] = "down"
			healthy = false
		}
		if redisPing != nil {
			checks["redis"] = "ok"
			if err := redisPing(ctx); err != nil {
				checks["redis"] = "down"
				healthy = false
			}
		}

		status := http.StatusOK
		if !healthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"healthy": healthy, "checks": checks})
	}
}

// openStore returns the configured object store. local is non-nil only for
// the filesystem backend, which serves its own signed links.
func openStore(ctx context.Context, cfg config.StorageConfig) (storage.ObjectStore, *storage.LocalStore, error) {
	if cfg.Backend == "minio" {
		ms, err := storage.NewMinioStore(ctx, storage.MinioConfig{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
		})
		return ms, nil, err
	}

	ls, err := storage.NewLocalStore(cfg.LocalDir, cfg.PublicBase, cfg.SigningKey,
		storage.WithPublicKeys(attestation.IsVerifiedPath))
	if err != nil {
		return nil, nil, err
	}
	return ls, ls, nil
}
