package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CashbackWallet holds cashback a customer earned at one merchant and can
// only spend there.
type CashbackWallet struct {
	ID            string          `gorm:"column:id;type:varchar(36);primaryKey" json:"cashback_wallet_id"`
	CustomerID    string          `gorm:"column:customer_id;type:varchar(36);not null;uniqueIndex:idx_cashback_customer_merchant" json:"customer_id"`
	MerchantID    string          `gorm:"column:merchant_id;type:varchar(36);not null;uniqueIndex:idx_cashback_customer_merchant" json:"merchant_id"`
	WalletBalance decimal.Decimal `gorm:"column:wallet_balance;type:decimal(20,2);not null;default:0" json:"wallet_balance"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`

	Merchant *Merchant `gorm:"foreignKey:MerchantID" json:"merchant,omitempty"`
}

func (CashbackWallet) TableName() string {
	return "cashback_wallets"
}
