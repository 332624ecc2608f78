package consumers

import (
	"context"
	"fmt"

	"bnpl-service/internal/models"
	"bnpl-service/internal/services"
	"bnpl-service/pkg/common"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// poster matches common.Post.
type poster func(ctx context.Context, url string, payload interface{}, headers map[string]string) (interface{}, error)

type NotificationProcessor struct {
	DB         *gorm.DB
	Logger     *zap.Logger
	WebhookURL string

	post poster
}

func NewNotificationProcessor(db *gorm.DB, logger *zap.Logger, webhookURL string) *NotificationProcessor {
	return &NotificationProcessor{
		DB:         db,
		Logger:     logger,
		WebhookURL: webhookURL,
		post:       common.Post,
	}
}

// ProcessNotification stores the notification and forwards it to the
// configured webhook. A forwarding failure is returned so the task is
// retried; the stored row is not duplicated on retry because the row id is
// derived from the task id.
func (p *NotificationProcessor) ProcessNotification(ctx context.Context, taskID string, dto services.NotificationDTO) error {
	if dto.CustomerID == "" && dto.MerchantID == "" {
		return fmt.Errorf("notification %q has no recipient", dto.Title)
	}

	n := models.Notification{
		ID:          notificationID(taskID),
		Title:       dto.Title,
		Description: dto.Description,
		Priority:    dto.Priority,
	}
	if n.Priority == "" {
		n.Priority = models.PriorityLow
	}
	if dto.CustomerID != "" {
		n.CustomerID = &dto.CustomerID
	}
	if dto.MerchantID != "" {
		n.MerchantID = &dto.MerchantID
	}

	stored, err := p.store(ctx, &n)
	if err != nil {
		p.Logger.Error("failed to store notification", zap.String("task_id", taskID), zap.Error(err))
		return err
	}
	if stored {
		p.Logger.Info("notification stored",
			zap.String("notification_id", n.ID),
			zap.String("title", n.Title),
			zap.String("customer_id", dto.CustomerID),
			zap.String("merchant_id", dto.MerchantID))
	}

	if p.WebhookURL == "" {
		return nil
	}
	if _, err := p.post(ctx, p.WebhookURL, n, map[string]string{"X-Notification-Id": n.ID}); err != nil {
		p.Logger.Warn("notification webhook failed", zap.String("notification_id", n.ID), zap.Error(err))
		return err
	}
	return nil
}

// notificationID maps a task id onto a stable UUID. Reminder task ids are
// longer than the id column.
func notificationID(taskID string) string {
	if taskID == "" {
		return ""
	}
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("bnpl-task:"+taskID)).String()
}

// store inserts n unless a row with the same id exists.
func (p *NotificationProcessor) store(ctx context.Context, n *models.Notification) (bool, error) {
	db := p.DB.WithContext(ctx)
	if n.ID != "" {
		var count int64
		if err := db.Model(&models.Notification{}).Where("id = ?", n.ID).Count(&count).Error; err != nil {
			return false, err
		}
		if count > 0 {
			return false, nil
		}
	}
	if err := db.Create(n).Error; err != nil {
		return false, err
	}
	return true, nil
}
