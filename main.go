package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bnpl-service/internal/config"
	"bnpl-service/internal/database"
	"bnpl-service/internal/deadletter"
	grpcServer "bnpl-service/internal/grpc"
	"bnpl-service/internal/handlers"
	"bnpl-service/internal/services"
	"bnpl-service/internal/worker"
	"bnpl-service/pkg/common"

	"github.com/alecthomas/kingpin/v2"
	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const shutdownTimeout = 15 * time.Second

func main() {
	configPath := kingpin.Flag("config", "Path to the application config file").Short('c').Default("config.yml").String()
	kingpin.Parse()

	cfg, k, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}
	if !cfg.IsProdMode {
		k.Print()
	}

	logger, err := common.NewLogger(cfg.Application, cfg.Logger.Level)
	if err != nil {
		log.Fatalf("Error building logger: %v", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	decimal.MarshalJSONWithoutQuotes = true
	gin.SetMode(cfg.HTTP.GinMode)

	db, err := database.Connect(cfg.Database, logger)
	if err != nil {
		logger.Fatal("cannot connect to database", zap.Error(err))
	}
	defer func() {
		_ = database.Close(db)
	}()
	if err := database.Migrate(db, logger); err != nil {
		logger.Fatal("cannot migrate database", zap.Error(err))
	}

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.Redis.URI, Password: cfg.Redis.Password})
	defer asynqClient.Close()
	notifier := worker.NewNotifier(asynqClient)

	// Failed top-ups are still rolled back without Redis, just not parked.
	var deadLetter services.DeadLetterSink
	if redisClient, err := deadletter.Connect(ctx, cfg.Redis.URI, cfg.Redis.Password); err != nil {
		logger.Warn("dead-letter queue disabled", zap.Error(err))
	} else {
		defer redisClient.Close()
		deadLetter = deadletter.NewQueue(redisClient, logger)
	}

	cashback := services.NewCashbackService(db, logger)
	ledger := services.NewInstalmentPaymentService(db, logger, cashback, notifier)
	h := &handlers.Handler{
		Transactions: services.NewTransactionService(db, logger, ledger, notifier),
		Ledger:       ledger,
		Payouts:      services.NewMerchantPaymentService(db, logger, notifier, cfg.Payout.RevenueWindowMonths),
		Payments:     services.NewPaymentService(db, logger, ledger, notifier),
		Tiers:        services.NewTierService(db, logger),
		Cashback:     cashback,
		TopUps:       services.NewTopUpService(db, logger, notifier, deadLetter, cfg.Stripe.WebhookSecret, cfg.Stripe.Tolerance, cfg.Stripe.Currency),
		Logger:       logger,
	}
	reminders := services.NewReminderService(db, logger, notifier)

	// gRPC health
	health := grpcServer.NewServer(func() error { return database.Ping(db) }, logger)
	health.CheckDatabase()

	c := cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger)))
	if err := reminders.Register(c, cfg.Scheduler.ReminderSpec); err != nil {
		logger.Fatal("cannot schedule reminders", zap.Error(err))
	}
	if err := health.RegisterProbe(c, cfg.Scheduler.HealthSpec); err != nil {
		logger.Fatal("cannot schedule health probe", zap.Error(err))
	}
	c.Start()
	defer c.Stop()

	lis, err := net.Listen("tcp", ":"+cfg.GRPC.Port)
	if err != nil {
		logger.Fatal("cannot listen for gRPC", zap.String("port", cfg.GRPC.Port), zap.Error(err))
	}
	go func() {
		logger.Info("gRPC server starting", zap.String("port", cfg.GRPC.Port))
		if err := health.Serve(lis); err != nil {
			logger.Error("gRPC server stopped", zap.Error(err))
		}
	}()

	r := gin.New()
	r.Use(gin.Recovery())
	h.RegisterRoutes(r, cfg.Auth.JWTSecret)

	srv := &http.Server{
		Addr:              ":" + cfg.HTTP.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("HTTP server starting", zap.String("port", cfg.HTTP.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server stopped", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown failed", zap.Error(err))
	}
	health.Stop(shutdownCtx)
}
