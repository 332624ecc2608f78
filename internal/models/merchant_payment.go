package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type MerchantPaymentStatus string

const (
	MerchantPaymentPending MerchantPaymentStatus = "PENDING_PAYMENT"
	MerchantPaymentPaid    MerchantPaymentStatus = "PAID"
)

// MerchantPayment is a payout batch. FinalPaymentAmount is always
// TotalAmountFromTransactions - TransactionFees - WithdrawalFee.
type MerchantPayment struct {
	ID                          string                `gorm:"column:id;type:varchar(36);primaryKey" json:"merchant_payment_id"`
	MerchantID                  string                `gorm:"column:merchant_id;type:varchar(36);not null;index" json:"merchant_id"`
	FromBank                    string                `gorm:"column:from_bank;size:255" json:"from_bank"`
	ToMerchantBankAccountNo     string                `gorm:"column:to_merchant_bank_account_no;size:64;not null" json:"to_merchant_bank_account_no"`
	Evidence                    []byte                `gorm:"column:evidence" json:"evidence,omitempty"`
	Status                      MerchantPaymentStatus `gorm:"column:status;size:20;not null;default:PENDING_PAYMENT" json:"status"`
	TotalAmountFromTransactions decimal.Decimal       `gorm:"column:total_amount_from_transactions;type:decimal(20,2);not null" json:"total_amount_from_transactions"`
	TransactionFeePercentage    decimal.Decimal       `gorm:"column:transaction_fee_percentage;type:decimal(5,2);not null" json:"transaction_fee_percentage"`
	TransactionFees             decimal.Decimal       `gorm:"column:transaction_fees;type:decimal(20,2);not null" json:"transaction_fees"`
	WithdrawalFeePercentage     decimal.Decimal       `gorm:"column:withdrawal_fee_percentage;type:decimal(5,2);not null" json:"withdrawal_fee_percentage"`
	WithdrawalFee               decimal.Decimal       `gorm:"column:withdrawal_fee;type:decimal(20,2);not null" json:"withdrawal_fee"`
	FinalPaymentAmount          decimal.Decimal       `gorm:"column:final_payment_amount;type:decimal(20,2);not null" json:"final_payment_amount"`
	CreatedAt                   time.Time             `gorm:"column:created_at;autoCreateTime;index" json:"created_at"`
	UpdatedAt                   time.Time             `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`

	Merchant *Merchant `gorm:"foreignKey:MerchantID" json:"merchant,omitempty"`
	Issues   []Issue   `gorm:"foreignKey:MerchantPaymentID" json:"issues,omitempty"`
}

func (MerchantPayment) TableName() string {
	return "merchant_payments"
}
