package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type AccountStatus string

const (
	AccountPendingEmailVerification AccountStatus = "PENDING_EMAIL_VERIFICATION"
	AccountPendingPhoneVerification AccountStatus = "PENDING_PHONE_VERIFICATION"
	AccountActive                   AccountStatus = "ACTIVE"
	AccountSuspended                AccountStatus = "SUSPENDED"
)

type Customer struct {
	ID            string          `gorm:"column:id;type:varchar(36);primaryKey" json:"customer_id"`
	Name          string          `gorm:"column:name;size:255;not null" json:"name"`
	Email         string          `gorm:"column:email;size:255;not null;uniqueIndex" json:"email"`
	ContactNumber string          `gorm:"column:contact_number;size:50" json:"contact_number"`
	Status        AccountStatus   `gorm:"column:status;size:50;default:ACTIVE" json:"status"`
	WalletBalance decimal.Decimal `gorm:"column:wallet_balance;type:decimal(20,2);not null;default:0" json:"wallet_balance"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Customer) TableName() string {
	return "customers"
}
