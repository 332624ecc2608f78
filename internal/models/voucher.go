package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type VoucherAssignedStatus string

const (
	VoucherAvailable   VoucherAssignedStatus = "AVAILABLE"
	VoucherExpired     VoucherAssignedStatus = "EXPIRED"
	VoucherUsed        VoucherAssignedStatus = "USED"
	VoucherUnavailable VoucherAssignedStatus = "UNAVAILABLE"
)

type Voucher struct {
	ID                 string          `gorm:"column:id;type:varchar(36);primaryKey" json:"voucher_id"`
	Title              string          `gorm:"column:title;size:255;not null" json:"title"`
	Description        string          `gorm:"column:description;type:text" json:"description"`
	PercentageDiscount decimal.Decimal `gorm:"column:percentage_discount;type:decimal(5,2);not null;default:0" json:"percentage_discount"`
	AmountDiscount     decimal.Decimal `gorm:"column:amount_discount;type:decimal(20,2);not null;default:0" json:"amount_discount"`
	ExpiryDate         time.Time       `gorm:"column:expiry_date;not null" json:"expiry_date"`
	UsageLimit         int             `gorm:"column:usage_limit;not null;default:1" json:"usage_limit"`
	IsActive           bool            `gorm:"column:is_active;not null;default:true" json:"is_active"`
	CreatedAt          time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time       `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Voucher) TableName() string {
	return "vouchers"
}

// VoucherAssigned is one customer's claim on a voucher.
type VoucherAssigned struct {
	ID             string                `gorm:"column:id;type:varchar(36);primaryKey" json:"voucher_assigned_id"`
	VoucherID      string                `gorm:"column:voucher_id;type:varchar(36);not null;index" json:"voucher_id"`
	CustomerID     string                `gorm:"column:customer_id;type:varchar(36);not null;index" json:"customer_id"`
	Status         VoucherAssignedStatus `gorm:"column:status;size:20;not null;default:AVAILABLE" json:"status"`
	RemainingUses  int                   `gorm:"column:remaining_uses;not null" json:"remaining_uses"`
	DateTimeIssued time.Time             `gorm:"column:date_time_issued;autoCreateTime" json:"date_time_issued"`

	Voucher *Voucher `gorm:"foreignKey:VoucherID" json:"voucher,omitempty"`
}

func (VoucherAssigned) TableName() string {
	return "voucher_assigned"
}
