package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"tradingbot/internal/client/quote"
	"tradingbot/internal/config"
	cronrunner "tradingbot/internal/cron"
	"tradingbot/internal/db"
	"tradingbot/internal/engine"
	"tradingbot/internal/handler"
	"tradingbot/internal/ledger"
	"tradingbot/internal/logger"
	"tradingbot/internal/notify"
	gormrepository "tradingbot/internal/repository/gorm"
)

func main() {
	cfgPath := os.Getenv("BOT_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}

	envOnly := false
	if envOnlyRaw := os.Getenv("BOT_ENV_ONLY"); envOnlyRaw != "" {
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
	if err := store.EnsureAccount(context.Background(), cfg.Trading.AccountID, decimal.NewFromFloat(cfg.Trading.OpeningBalance)); err != nil {
		logger.Fatal("account bootstrap failed", zap.Error(err))
	}

	quoteHTTP := &http.Client{Timeout: cfg.Quote.Timeout}
	quoteClient := quote.NewClient(quoteHTTP, cfg.Quote.BaseURL)
	notifyHTTP := &http.Client{Timeout: cfg.Notify.Timeout}
	notifier := notify.NewClient(notifyHTTP, cfg.Notify.BaseURL, cfg.Notify.Recipient)

	book := &ledger.Ledger{
		Repo:      store,
		Logger:    logger,
		AccountID: cfg.Trading.AccountID,
	}

	loc := time.Local
	if cfg.Trading.Timezone != "" {
		if l, err := time.LoadLocation(cfg.Trading.Timezone); err == nil {
			loc = l
		} else {
			logger.Warn("invalid trading timezone, using local", zap.String("timezone", cfg.Trading.Timezone))
		}
	}

	queue := engine.NewQueue(cfg.Trading.QueueCapacity, logger)
	evaluator := &engine.Evaluator{
		Quote:      quoteClient,
		Ledger:     book,
		Strategies: store,
		Notifier:   notifier,
		Logger:     logger,
		LotSize:    decimal.NewFromInt(cfg.Trading.LotSize),
		Restricted: engine.RestrictedSet(cfg.Trading.RestrictedExchanges),
		Location:   loc,
	}
	producer := &engine.Producer{
		Quote:      quoteClient,
		Strategies: store,
		Queue:      queue,
		Logger:     logger,
	}

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	healthHandler := &handler.HealthHandler{DB: dbConn.Gorm}
	healthHandler.Register(router)
	strategyHandler := &handler.StrategyHandler{Repo: store}
	strategyHandler.Register(router)
	portfolioHandler := &handler.PortfolioHandler{Repo: store, AccountID: cfg.Trading.AccountID}
	portfolioHandler.Register(router)

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The single consumer: evaluation runs inline here, which is what keeps
	// ledger mutations for one stock code serialized.
	go func() {
		if err := queue.Run(ctx, evaluator.Evaluate); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("event queue stopped", zap.Error(err))
		}
	}()

	cronRunner := cronrunner.New(logger, ctx)
	if cfg.Cron.Enabled {
		for exchange, spec := range cfg.Cron.Exchanges {
			exchange := exchange
			_, err := cronRunner.Add(spec, func(ctx context.Context) {
				if err := producer.Produce(ctx, exchange); err != nil {
					logger.Warn("producer tick failed",
						zap.String("exchange", exchange),
						zap.Error(err),
					)
				}
			})
			if err != nil {
				logger.Fatal("cron register failed",
					zap.String("exchange", exchange),
					zap.String("spec", spec),
					zap.Error(err),
				)
			}
		}
	}
	cronRunner.Start()
	defer cronRunner.Stop()

	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.Server.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server stopped", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown failed", zap.Error(err))
	}
}
