package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type InstalmentPlanStatus string

const (
	PlanActive   InstalmentPlanStatus = "ACTIVE"
	PlanInactive InstalmentPlanStatus = "INACTIVE"
)

// InstalmentPlan is a template for splitting a purchase. TimePeriod is in weeks.
type InstalmentPlan struct {
	ID                  string               `gorm:"column:id;type:varchar(36);primaryKey" json:"instalment_plan_id"`
	Name                string               `gorm:"column:name;size:255;not null" json:"name"`
	Description         string               `gorm:"column:description;type:text" json:"description"`
	NumberOfInstalments int                  `gorm:"column:number_of_instalments;not null" json:"number_of_instalments"`
	TimePeriod          int                  `gorm:"column:time_period;not null" json:"time_period"`
	InterestRate        decimal.Decimal      `gorm:"column:interest_rate;type:decimal(5,2);not null;default:0" json:"interest_rate"`
	MinimumAmount       decimal.Decimal      `gorm:"column:minimum_amount;type:decimal(20,2);not null;default:0" json:"minimum_amount"`
	MaximumAmount       decimal.Decimal      `gorm:"column:maximum_amount;type:decimal(20,2);not null;default:0" json:"maximum_amount"`
	Status              InstalmentPlanStatus `gorm:"column:status;size:20;not null;default:ACTIVE" json:"status"`
	CreditTiers         string               `gorm:"column:credit_tiers;size:255" json:"credit_tiers"`
	CreatedAt           time.Time            `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time            `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (InstalmentPlan) TableName() string {
	return "instalment_plans"
}
