package services

import (
	"context"
	"testing"
	"time"

	"bnpl-service/internal/models"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendDueReminders(t *testing.T) {
	db := setup(t)
	s := newStack(db)

	customer := createCustomer(t, db, "0")
	merchant := createMerchant(t, db, "Corner Shop", "0", "0")
	txn := insertTransaction(t, db, customer, merchant, createPlan(t, db, 3, 3), "300", time.Now())

	now := time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)
	for i, due := range []struct {
		at     time.Time
		status models.InstalmentPaymentStatus
	}{
		{now.Add(3 * time.Hour), models.InstalmentUnpaid},
		{now.Add(5 * time.Hour), models.InstalmentPaid},
		{now.Add(72 * time.Hour), models.InstalmentUnpaid},
	} {
		p := models.InstalmentPayment{
			TransactionID:    txn.ID,
			InstalmentNumber: i + 1,
			AmountDue:        dec("100"),
			Status:           due.status,
			DueDate:          due.at,
		}
		require.NoError(t, db.Create(&p).Error)
	}

	n, err := s.Reminders.SendDueReminders(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.Len(t, s.Notifier.sent, 1)
	sent := s.Notifier.sent[0]
	assert.Equal(t, customer.ID, sent.CustomerID)
	assert.True(t, sent.Reminder)
	assert.Equal(t, models.PriorityHigh, sent.Priority)
	assert.Contains(t, sent.Description, txn.ReferenceNo)
	assert.Contains(t, sent.DedupKey, "2024-05-10")

	// a second run on the same day reuses the same key so the queue drops it
	_, err = s.Reminders.SendDueReminders(context.Background(), now.Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, s.Notifier.sent, 2)
	assert.Equal(t, sent.DedupKey, s.Notifier.sent[1].DedupKey)
}

func TestReminderRegister(t *testing.T) {
	db := setup(t)
	s := newStack(db)

	c := cron.New()
	require.NoError(t, s.Reminders.Register(c, "0 8 * * *"))
	assert.Len(t, c.Entries(), 1)

	assert.Error(t, s.Reminders.Register(c, "not a schedule"))
}
