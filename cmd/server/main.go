package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"contratos/internal/client/boletoapi"
	"contratos/internal/config"
	cronrunner "contratos/internal/cron"
	"contratos/internal/db"
	"contratos/internal/handler"
	"contratos/internal/logger"
	gormrepository "contratos/internal/repository/gorm"
	"contratos/internal/service"
)

func main() {
	cfgPath := os.Getenv("GC_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}

	envOnly := false
	if envOnlyRaw := os.Getenv("GC_ENV_ONLY"); envOnlyRaw != "" {
		envOnly = strings.EqualFold(envOnlyRaw, "true") || envOnlyRaw == "1"
	}

	cfg, err := config.Load(cfgPath, envOnly)
	if err != nil {
		panic(err)
	}

	logger, err := logger.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	dbConn, err := db.Open(cfg.DB)
	if err != nil {
		logger.Fatal("db open failed", zap.Error(err))
	}
	defer db.Close(dbConn)

	if err := db.SetTimezone(dbConn, cfg.DB.Timezone); err != nil {
		logger.Warn("failed to set timezone", zap.Error(err))
	}
	if err := db.AutoMigrate(dbConn); err != nil {
		logger.Fatal("auto-migrate failed", zap.Error(err))
	}

	store := gormrepository.New(dbConn.Gorm)
	slipClient := boletoapi.NewClient(nil, cfg.BoletoAPI.BaseURL, cfg.BoletoAPI.Timeout)

	indexSvc := &service.IndexService{Repo: store, Logger: logger}
	contractSvc := &service.ContractService{Repo: store, Logger: logger}
	readjustSvc := &service.ReadjustmentService{
		Repo:    store,
		Indices: indexSvc,
		Config:  cfg.Billing,
		Logger:  logger,
	}
	slipSvc := &service.SlipService{
		Repo:   store,
		Client: slipClient,
		Config: cfg.Billing,
		Logger: logger,
	}
	remittanceSvc := &service.RemittanceService{Repo: store, Client: slipClient, Logger: logger}
	settlementSvc := &service.SettlementService{Repo: store, Logger: logger}
	overdueSvc := &service.OverdueService{Repo: store, Config: cfg.Billing, Logger: logger}

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(corsMiddleware())

	healthHandler := &handler.HealthHandler{DB: dbConn.Gorm}
	healthHandler.Register(engine)
	contractHandler := &handler.ContractHandler{
		Repo:          store,
		Contracts:     contractSvc,
		Readjustments: readjustSvc,
		Slips:         slipSvc,
	}
	contractHandler.Register(engine)
	installmentHandler := &handler.InstallmentHandler{Slips: slipSvc, Overdue: overdueSvc}
	installmentHandler.Register(engine)
	indexHandler := &handler.IndexHandler{
		Repo:          store,
		Indices:       indexSvc,
		Readjustments: readjustSvc,
	}
	indexHandler.Register(engine)
	accountHandler := &handler.AccountHandler{
		Repo:        store,
		Remittances: remittanceSvc,
		Settlements: settlementSvc,
	}
	accountHandler.Register(engine)

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: engine,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cronRunner := cronrunner.New(logger, ctx)
	if cfg.Cron.Enabled {
		_, err = cronRunner.Add(cfg.Cron.ReadjustmentScan, func(ctx context.Context) {
			if err := readjustSvc.RunOnce(ctx); err != nil {
				logger.Warn("cron readjustment sweep failed", zap.Error(err))
			}
		})
		if err != nil {
			logger.Fatal("bad readjustment cron spec", zap.Error(err))
		}
		_, err = cronRunner.Add(cfg.Cron.IssuanceScan, func(ctx context.Context) {
			if err := slipSvc.RunOnce(ctx); err != nil {
				logger.Warn("cron issuance sweep failed", zap.Error(err))
			}
		})
		if err != nil {
			logger.Fatal("bad issuance cron spec", zap.Error(err))
		}
		_, err = cronRunner.Add(cfg.Cron.OverdueScan, func(ctx context.Context) {
			if err := overdueSvc.RunOnce(ctx); err != nil {
				logger.Warn("cron overdue sweep failed", zap.Error(err))
			}
		})
		if err != nil {
			logger.Fatal("bad overdue cron spec", zap.Error(err))
		}
		cronRunner.Start()
		defer cronRunner.Stop()
	}

	errCh := make(chan error, 1)

	go func() {
		logger.Info("http server starting", zap.String("addr", cfg.Server.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown requested")
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
