package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MerchantSize buckets merchants by trailing monthly revenue. A null
// MonthlyRevenueMax means the bucket is open ended.
type MerchantSize struct {
	ID                string              `gorm:"column:id;type:varchar(36);primaryKey" json:"merchant_size_id"`
	Name              string              `gorm:"column:name;size:255;not null" json:"name"`
	MonthlyRevenueMin decimal.Decimal     `gorm:"column:monthly_revenue_min;type:decimal(20,2);not null" json:"monthly_revenue_min"`
	MonthlyRevenueMax decimal.NullDecimal `gorm:"column:monthly_revenue_max;type:decimal(20,2)" json:"monthly_revenue_max"`
	CreatedAt         time.Time           `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time           `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (MerchantSize) TableName() string {
	return "merchant_sizes"
}

type WithdrawalFeeRate struct {
	ID                       string              `gorm:"column:id;type:varchar(36);primaryKey" json:"withdrawal_fee_rate_id"`
	Name                     string              `gorm:"column:name;size:255;not null" json:"name"`
	WalletBalanceMin         decimal.Decimal     `gorm:"column:wallet_balance_min;type:decimal(20,2);not null" json:"wallet_balance_min"`
	WalletBalanceMax         decimal.NullDecimal `gorm:"column:wallet_balance_max;type:decimal(20,2)" json:"wallet_balance_max"`
	MonthlyRevenueMin        decimal.Decimal     `gorm:"column:monthly_revenue_min;type:decimal(20,2);not null;default:0" json:"monthly_revenue_min"`
	MonthlyRevenueMax        decimal.NullDecimal `gorm:"column:monthly_revenue_max;type:decimal(20,2)" json:"monthly_revenue_max"`
	PercentageTransactionFee decimal.Decimal     `gorm:"column:percentage_transaction_fee;type:decimal(5,2);not null" json:"percentage_transaction_fee"`
	PercentageWithdrawalFee  decimal.Decimal     `gorm:"column:percentage_withdrawal_fee;type:decimal(5,2);not null" json:"percentage_withdrawal_fee"`
	MerchantSizeID           string              `gorm:"column:merchant_size_id;type:varchar(36);not null;index" json:"merchant_size_id"`
	CreatedAt                time.Time           `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt                time.Time           `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`

	MerchantSize *MerchantSize `gorm:"foreignKey:MerchantSizeID" json:"merchant_size,omitempty"`
}

func (WithdrawalFeeRate) TableName() string {
	return "withdrawal_fee_rates"
}
