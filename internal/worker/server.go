package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"bnpl-service/internal/consumers"
	"bnpl-service/internal/services"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

type Worker struct {
	Processor *consumers.NotificationProcessor
	Logger    *zap.Logger
}

func NewWorker(processor *consumers.NotificationProcessor, logger *zap.Logger) *Worker {
	return &Worker{
		Processor: processor,
		Logger:    logger,
	}
}

func (w *Worker) HandleNotification(ctx context.Context, t *asynq.Task) error {
	var p services.NotificationDTO
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("json.Unmarshal failed: %v: %w", err, asynq.SkipRetry)
	}
	taskID, _ := asynq.GetTaskID(ctx)
	return w.Processor.ProcessNotification(ctx, taskID, p)
}

func (w *Worker) HandleReminder(ctx context.Context, t *asynq.Task) error {
	var p services.NotificationDTO
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("json.Unmarshal failed: %v: %w", err, asynq.SkipRetry)
	}
	taskID, _ := asynq.GetTaskID(ctx)
	if retried, _ := asynq.GetRetryCount(ctx); retried == 0 {
		w.Logger.Info("sending reminder", zap.String("task_id", taskID), zap.String("customer_id", p.CustomerID))
	}
	return w.Processor.ProcessNotification(ctx, taskID, p)
}

// Mux routes every task type to its handler.
func (w *Worker) Mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeNotificationSend, w.HandleNotification)
	mux.HandleFunc(TypeNotificationReminder, w.HandleReminder)
	return mux
}

// NewServer builds the asynq server with the critical/default/low queues.
func NewServer(redisOpt asynq.RedisClientOpt, concurrency int, logger *zap.Logger) *asynq.Server {
	if concurrency <= 0 {
		concurrency = 10
	}
	return asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: concurrency,
			Queues: map[string]int{
				QueueCritical: 6,
				QueueDefault:  3,
				QueueLow:      1,
			},
			Logger: logger.Sugar(),
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Error("task failed", zap.String("type", task.Type()), zap.Error(err))
			}),
		},
	)
}
