package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentType string

const (
	PaymentTopUp             PaymentType = "TOP_UP"
	PaymentInstalmentPayment PaymentType = "INSTALMENT_PAYMENT"
	PaymentRefund            PaymentType = "REFUND"
	PaymentOther             PaymentType = "OTHER"
)

// PaymentHistory is append-only.
type PaymentHistory struct {
	ID          string          `gorm:"column:id;type:varchar(36);primaryKey" json:"payment_history_id"`
	CustomerID  string          `gorm:"column:customer_id;type:varchar(36);not null;index" json:"customer_id"`
	Amount      decimal.Decimal `gorm:"column:amount;type:decimal(20,2);not null" json:"amount"`
	PaymentType PaymentType     `gorm:"column:payment_type;size:30;not null" json:"payment_type"`
	PaymentDate time.Time       `gorm:"column:payment_date;not null;index" json:"payment_date"`
}

func (PaymentHistory) TableName() string {
	return "payment_histories"
}
