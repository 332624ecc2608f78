package models

import "time"

type IssueStatus string

const (
	IssuePendingOutcome IssueStatus = "PENDING_OUTCOME"
	IssueResolved       IssueStatus = "RESOLVED"
	IssueCancelled      IssueStatus = "CANCELLED"
)

type IssueCategory string

const (
	IssueCategoryAccount         IssueCategory = "ACCOUNT"
	IssueCategoryTransaction     IssueCategory = "TRANSACTION"
	IssueCategoryMerchantPayment IssueCategory = "MERCHANT_PAYMENT"
	IssueCategoryOthers          IssueCategory = "OTHERS"
)

// Issue is a dispute raised against a transaction or a payout. Only its
// summary columns are read here.
type Issue struct {
	ID                string        `gorm:"column:id;type:varchar(36);primaryKey" json:"issue_id"`
	Title             string        `gorm:"column:title;size:255;not null" json:"title"`
	Description       string        `gorm:"column:description;type:text" json:"description"`
	Category          IssueCategory `gorm:"column:category;size:30" json:"category,omitempty"`
	Outcome           string        `gorm:"column:outcome;type:text" json:"outcome,omitempty"`
	Status            IssueStatus   `gorm:"column:status;size:30;not null;default:PENDING_OUTCOME" json:"status"`
	CreateTime        time.Time     `gorm:"column:create_time;autoCreateTime" json:"create_time"`
	CustomerID        *string       `gorm:"column:customer_id;type:varchar(36)" json:"customer_id,omitempty"`
	MerchantID        *string       `gorm:"column:merchant_id;type:varchar(36)" json:"merchant_id,omitempty"`
	TransactionID     *string       `gorm:"column:transaction_id;type:varchar(36);index" json:"transaction_id,omitempty"`
	MerchantPaymentID *string       `gorm:"column:merchant_payment_id;type:varchar(36);index" json:"merchant_payment_id,omitempty"`
}

func (Issue) TableName() string {
	return "issues"
}
