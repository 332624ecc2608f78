package worker

import (
	"context"
	"encoding/json"
	"errors"

	"bnpl-service/internal/models"
	"bnpl-service/internal/services"

	"github.com/hibiken/asynq"
)

// Task Types
const (
	TypeNotificationSend     = "notification:send"
	TypeNotificationReminder = "notification:reminder"
)

const (
	QueueCritical = "critical"
	QueueDefault  = "default"
	QueueLow      = "low"
)

// Task Creators

func NewNotificationTask(payload services.NotificationDTO) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeNotificationSend, data, asynq.MaxRetry(5)), nil
}

func NewReminderTask(payload services.NotificationDTO) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeNotificationReminder, data, asynq.MaxRetry(3)), nil
}

type enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Notifier hands notifications to the worker through asynq. It implements
// services.Notifier.
type Notifier struct {
	client enqueuer
}

func NewNotifier(client *asynq.Client) *Notifier {
	return &Notifier{client: client}
}

// Notify enqueues dto. High priority notifications go to the critical queue.
// A DedupKey becomes the asynq task id, so a second enqueue with the same key
// is dropped and reported as success.
func (n *Notifier) Notify(ctx context.Context, dto services.NotificationDTO) error {
	var (
		task *asynq.Task
		err  error
	)
	if dto.Reminder {
		task, err = NewReminderTask(dto)
	} else {
		task, err = NewNotificationTask(dto)
	}
	if err != nil {
		return err
	}

	opts := []asynq.Option{asynq.Queue(queueFor(dto))}
	if dto.DedupKey != "" {
		opts = append(opts, asynq.TaskID(dto.DedupKey))
	}

	_, err = n.client.EnqueueContext(ctx, task, opts...)
	if errors.Is(err, asynq.ErrTaskIDConflict) || errors.Is(err, asynq.ErrDuplicateTask) {
		return nil
	}
	return err
}

func queueFor(dto services.NotificationDTO) string {
	switch {
	case dto.Reminder:
		return QueueDefault
	case dto.Priority == models.PriorityHigh:
		return QueueCritical
	}
	return QueueLow
}
