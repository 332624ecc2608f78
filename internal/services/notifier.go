package services

import (
	"context"

	"bnpl-service/internal/models"

	"go.uber.org/zap"
)

// NotificationDTO is the payload of one outbound notification. Exactly one
// of CustomerID and MerchantID is normally set.
type NotificationDTO struct {
	CustomerID  string                      `json:"customer_id,omitempty"`
	MerchantID  string                      `json:"merchant_id,omitempty"`
	Title       string                      `json:"title"`
	Description string                      `json:"description"`
	Priority    models.NotificationPriority `json:"priority"`

	// Reminder marks due-date reminders; DedupKey collapses repeats of the
	// same reminder.
	Reminder bool   `json:"reminder,omitempty"`
	DedupKey string `json:"dedup_key,omitempty"`
}

// Notifier hands notifications to the delivery pipeline without waiting for
// delivery.
type Notifier interface {
	Notify(ctx context.Context, n NotificationDTO) error
}

// notify never fails the caller; enqueue errors are only logged.
func notify(ctx context.Context, n Notifier, log *zap.Logger, dto NotificationDTO) {
	if n == nil {
		return
	}
	if err := n.Notify(ctx, dto); err != nil {
		log.Warn("failed to enqueue notification",
			zap.String("title", dto.Title),
			zap.String("customer_id", dto.CustomerID),
			zap.String("merchant_id", dto.MerchantID),
			zap.Error(err))
	}
}
