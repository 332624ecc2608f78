package services

import (
	"context"
	"strconv"
	"time"

	"bnpl-service/internal/models"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const reminderHorizon = 24 * time.Hour

// ReminderService nudges customers about instalments falling due soon. It
// only reads ledger state.
type ReminderService struct {
	DB       *gorm.DB
	Logger   *zap.Logger
	Notifier Notifier
}

func NewReminderService(db *gorm.DB, logger *zap.Logger, notifier Notifier) *ReminderService {
	return &ReminderService{DB: db, Logger: logger, Notifier: notifier}
}

// SendDueReminders enqueues one reminder per unpaid instalment due within the
// next 24 hours and returns how many were enqueued.
func (s *ReminderService) SendDueReminders(ctx context.Context, now time.Time) (int, error) {
	now = now.UTC()

	var due []models.InstalmentPayment
	err := s.DB.WithContext(ctx).
		Preload("Transaction").
		Where("status = ?", models.InstalmentUnpaid).
		Where("due_date >= ? AND due_date <= ?", now, now.Add(reminderHorizon)).
		Order("due_date ASC").
		Find(&due).Error
	if err != nil {
		return 0, err
	}
	if len(due) == 0 || s.Notifier == nil {
		return 0, nil
	}

	sent := 0
	day := now.Format("2006-01-02")
	for _, p := range due {
		if p.Transaction == nil {
			continue
		}
		err := s.Notifier.Notify(ctx, NotificationDTO{
			CustomerID:  p.Transaction.CustomerID,
			Title:       "Instalment due soon",
			Description: "Instalment " + strconv.Itoa(p.InstalmentNumber) + " of transaction " + p.Transaction.ReferenceNo + " (" + p.TotalDue().StringFixed(2) + ") is due on " + p.DueDate.Format("2 Jan 2006") + ".",
			Priority:    models.PriorityHigh,
			Reminder:    true,
			DedupKey:    "reminder:" + p.ID + ":" + day,
		})
		if err != nil {
			s.Logger.Warn("failed to enqueue reminder", zap.String("instalment_payment_id", p.ID), zap.Error(err))
			continue
		}
		sent++
	}
	return sent, nil
}

// Register adds the reminder job to c under spec.
func (s *ReminderService) Register(c *cron.Cron, spec string) error {
	_, err := c.AddFunc(spec, func() {
		n, err := s.SendDueReminders(context.Background(), time.Now())
		if err != nil {
			s.Logger.Error("due-date reminder run failed", zap.Error(err))
			return
		}
		s.Logger.Info("due-date reminders enqueued", zap.Int("count", n))
	})
	if err != nil {
		return err
	}
	s.Logger.Info("due-date reminder job scheduled", zap.String("spec", spec))
	return nil
}
