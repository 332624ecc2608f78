package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionStatus string

const (
	TransactionInProgress TransactionStatus = "IN_PROGRESS"
	TransactionFullyPaid  TransactionStatus = "FULLY_PAID"
)

type Transaction struct {
	ID                 string            `gorm:"column:id;type:varchar(36);primaryKey" json:"transaction_id"`
	ReferenceNo        string            `gorm:"column:reference_no;size:64;not null;uniqueIndex" json:"reference_no"`
	Amount             decimal.Decimal   `gorm:"column:amount;type:decimal(20,2);not null" json:"amount"`
	DateOfTransaction  time.Time         `gorm:"column:date_of_transaction;not null;index" json:"date_of_transaction"`
	Status             TransactionStatus `gorm:"column:status;size:20;not null;default:IN_PROGRESS" json:"status"`
	FullyPaidDate      *time.Time        `gorm:"column:fully_paid_date" json:"fully_paid_date"`
	CashbackPercentage decimal.Decimal   `gorm:"column:cashback_percentage;type:decimal(5,2);not null;default:0" json:"cashback_percentage"`
	CustomerID         string            `gorm:"column:customer_id;type:varchar(36);not null;index" json:"customer_id"`
	MerchantID         string            `gorm:"column:merchant_id;type:varchar(36);not null;index" json:"merchant_id"`
	InstalmentPlanID   string            `gorm:"column:instalment_plan_id;type:varchar(36);not null" json:"instalment_plan_id"`
	MerchantPaymentID  *string           `gorm:"column:merchant_payment_id;type:varchar(36)" json:"merchant_payment_id"`
	CreatedAt          time.Time         `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time         `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`

	Customer           *Customer           `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
	Merchant           *Merchant           `gorm:"foreignKey:MerchantID" json:"merchant,omitempty"`
	InstalmentPlan     *InstalmentPlan     `gorm:"foreignKey:InstalmentPlanID" json:"instalment_plan,omitempty"`
	InstalmentPayments []InstalmentPayment `gorm:"foreignKey:TransactionID;constraint:OnDelete:CASCADE" json:"instalment_payments,omitempty"`
	Issues             []Issue             `gorm:"foreignKey:TransactionID" json:"issues,omitempty"`
}

func (Transaction) TableName() string {
	return "transactions"
}
