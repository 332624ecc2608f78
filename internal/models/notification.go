package models

import "time"

type NotificationPriority string

const (
	PriorityHigh NotificationPriority = "HIGH"
	PriorityLow  NotificationPriority = "LOW"
)

type Notification struct {
	ID          string               `gorm:"column:id;type:varchar(36);primaryKey" json:"notification_id"`
	Title       string               `gorm:"column:title;size:255;not null" json:"title"`
	Description string               `gorm:"column:description;type:text" json:"description"`
	Priority    NotificationPriority `gorm:"column:priority;size:10;not null;default:LOW" json:"priority"`
	IsRead      bool                 `gorm:"column:is_read;not null;default:false" json:"is_read"`
	CustomerID  *string              `gorm:"column:customer_id;type:varchar(36);index" json:"customer_id,omitempty"`
	MerchantID  *string              `gorm:"column:merchant_id;type:varchar(36);index" json:"merchant_id,omitempty"`
	CreateTime  time.Time            `gorm:"column:create_time;autoCreateTime" json:"create_time"`
}

func (Notification) TableName() string {
	return "notifications"
}
