package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type WebhookEventStatus string

const (
	WebhookProcessed WebhookEventStatus = "PROCESSED"
	WebhookIgnored   WebhookEventStatus = "IGNORED"
)

// WebhookEvent records every applied provider event. The unique
// (provider, provider_event_id) pair is the idempotency key.
type WebhookEvent struct {
	ID              string             `gorm:"column:id;type:varchar(36);primaryKey" json:"id"`
	Provider        string             `gorm:"column:provider;size:50;not null;uniqueIndex:idx_webhook_provider_event" json:"provider"`
	ProviderEventID string             `gorm:"column:provider_event_id;size:255;not null;uniqueIndex:idx_webhook_provider_event" json:"provider_event_id"`
	EventType       string             `gorm:"column:event_type;size:100;not null" json:"event_type"`
	CustomerID      string             `gorm:"column:customer_id;type:varchar(36)" json:"customer_id"`
	Amount          decimal.Decimal    `gorm:"column:amount;type:decimal(20,2);not null;default:0" json:"amount"`
	Status          WebhookEventStatus `gorm:"column:status;size:20;not null" json:"status"`
	Payload         datatypes.JSON     `gorm:"column:payload" json:"payload"`
	CreatedAt       time.Time          `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (WebhookEvent) TableName() string {
	return "webhook_events"
}
