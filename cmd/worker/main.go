package main

import (
	"log"

	"bnpl-service/internal/config"
	"bnpl-service/internal/consumers"
	"bnpl-service/internal/database"
	"bnpl-service/internal/worker"
	"bnpl-service/pkg/common"

	"github.com/alecthomas/kingpin/v2"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

func main() {
	configPath := kingpin.Flag("config", "Path to the application config file").Short('c').Default("config.yml").String()
	kingpin.Parse()

	cfg, _, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}

	logger, err := common.NewLogger(cfg.Application+"-worker", cfg.Logger.Level)
	if err != nil {
		log.Fatalf("Error building logger: %v", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	db, err := database.Connect(cfg.Database, logger)
	if err != nil {
		logger.Fatal("cannot connect to database", zap.Error(err))
	}
	defer func() {
		_ = database.Close(db)
	}()

	processor := consumers.NewNotificationProcessor(db, logger, cfg.Notification.WebhookURL)
	w := worker.NewWorker(processor, logger)

	redisOpt := asynq.RedisClientOpt{Addr: cfg.Redis.URI, Password: cfg.Redis.Password}
	srv := worker.NewServer(redisOpt, cfg.Worker.Concurrency, logger)

	logger.Info("starting notification worker", zap.Int("concurrency", cfg.Worker.Concurrency))
	if err := srv.Run(w.Mux()); err != nil {
		logger.Fatal("worker stopped", zap.Error(err))
	}
}
