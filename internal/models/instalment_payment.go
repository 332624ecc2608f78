package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type InstalmentPaymentStatus string

const (
	InstalmentPaid   InstalmentPaymentStatus = "PAID"
	InstalmentUnpaid InstalmentPaymentStatus = "UNPAID"
)

type InstalmentPayment struct {
	ID                               string                  `gorm:"column:id;type:varchar(36);primaryKey" json:"instalment_payment_id"`
	TransactionID                    string                  `gorm:"column:transaction_id;type:varchar(36);not null;uniqueIndex:idx_payment_trx_number" json:"transaction_id"`
	InstalmentNumber                 int                     `gorm:"column:instalment_number;not null;uniqueIndex:idx_payment_trx_number" json:"instalment_number"`
	AmountDue                        decimal.Decimal         `gorm:"column:amount_due;type:decimal(20,2);not null" json:"amount_due"`
	LatePaymentAmountDue             decimal.Decimal         `gorm:"column:late_payment_amount_due;type:decimal(20,2);not null;default:0" json:"late_payment_amount_due"`
	Status                           InstalmentPaymentStatus `gorm:"column:status;size:20;not null;default:UNPAID;index" json:"status"`
	DueDate                          time.Time               `gorm:"column:due_date;not null;index" json:"due_date"`
	PaidDate                         *time.Time              `gorm:"column:paid_date" json:"paid_date"`
	AmountDiscountFromVoucher        decimal.Decimal         `gorm:"column:amount_discount_from_voucher;type:decimal(20,2);not null;default:0" json:"amount_discount_from_voucher"`
	AmountDeductedFromWallet         decimal.Decimal         `gorm:"column:amount_deducted_from_wallet;type:decimal(20,2);not null;default:0" json:"amount_deducted_from_wallet"`
	AmountDeductedFromCashbackWallet decimal.Decimal         `gorm:"column:amount_deducted_from_cashback_wallet;type:decimal(20,2);not null;default:0" json:"amount_deducted_from_cashback_wallet"`
	VoucherAssignedID                *string                 `gorm:"column:voucher_assigned_id;type:varchar(36)" json:"voucher_assigned_id"`
	CashbackWalletID                 *string                 `gorm:"column:cashback_wallet_id;type:varchar(36)" json:"cashback_wallet_id"`
	CreatedAt                        time.Time               `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt                        time.Time               `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`

	Transaction     *Transaction     `gorm:"foreignKey:TransactionID" json:"transaction,omitempty"`
	VoucherAssigned *VoucherAssigned `gorm:"foreignKey:VoucherAssignedID" json:"voucher_assigned,omitempty"`
	CashbackWallet  *CashbackWallet  `gorm:"foreignKey:CashbackWalletID" json:"cashback_wallet,omitempty"`
}

func (InstalmentPayment) TableName() string {
	return "instalment_payments"
}

// TotalDue is the principal slice plus any late payment penalty.
func (p InstalmentPayment) TotalDue() decimal.Decimal {
	return p.AmountDue.Add(p.LatePaymentAmountDue)
}
