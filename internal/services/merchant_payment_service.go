package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"bnpl-service/internal/models"
	"bnpl-service/pkg/common"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// MaxEvidenceSize caps a proof-of-payment upload.
const MaxEvidenceSize = 10 << 20

var ErrInsufficientBalance = errors.New("insufficient wallet balance")

// MerchantPaymentService is the payout engine.
type MerchantPaymentService struct {
	DB                  *gorm.DB
	Logger              *zap.Logger
	Notifier            Notifier
	RevenueWindowMonths int
}

func NewMerchantPaymentService(db *gorm.DB, logger *zap.Logger, notifier Notifier, revenueWindowMonths int) *MerchantPaymentService {
	if revenueWindowMonths <= 0 {
		revenueWindowMonths = 1
	}
	return &MerchantPaymentService{DB: db, Logger: logger, Notifier: notifier, RevenueWindowMonths: revenueWindowMonths}
}

type WithdrawalInfo struct {
	MonthlyRevenue    decimal.Decimal           `json:"monthly_revenue"`
	WalletBalance     decimal.Decimal           `json:"wallet_balance"`
	MerchantSize      *models.MerchantSize      `json:"merchant_size"`
	WithdrawalFeeRate *models.WithdrawalFeeRate `json:"withdrawal_fee_rate"`
}

type CreateMerchantPaymentDTO struct {
	TotalAmountFromTransactions decimal.Decimal `json:"total_amount_from_transactions"`
	ToMerchantBankAccountNo     string          `json:"to_merchant_bank_account_no"`
	FromBank                    string          `json:"from_bank"`
}

type UpdateMerchantPaymentDTO struct {
	Status   *models.MerchantPaymentStatus `json:"status"`
	Evidence []byte                        `json:"evidence"`
}

type Sorting struct {
	Field string `json:"field"`
	Order string `json:"order"`
}

type MerchantPaymentFilterDTO struct {
	CreateFrom *time.Time                   `json:"create_from"`
	CreateTo   *time.Time                   `json:"create_to"`
	SearchTerm string                       `json:"search_term"`
	MerchantID string                       `json:"merchant_id"`
	Status     models.MerchantPaymentStatus `json:"status"`
	Sorting    *Sorting                     `json:"sorting"`
}

var sortableColumns = map[string]string{
	"created_at":                     "created_at",
	"total_amount_from_transactions": "total_amount_from_transactions",
	"final_payment_amount":           "final_payment_amount",
	"status":                         "status",
}

type payoutFees struct {
	TransactionFees decimal.Decimal
	WithdrawalFee   decimal.Decimal
	Final           decimal.Decimal
}

// computePayoutFees derives the fees for amount from the fee tier. The final
// amount is always amount minus both fees.
func computePayoutFees(amount decimal.Decimal, rate *models.WithdrawalFeeRate) payoutFees {
	txFees := common.PercentOf(amount, rate.PercentageTransactionFee)
	wdFee := common.PercentOf(amount, rate.PercentageWithdrawalFee)
	return payoutFees{
		TransactionFees: txFees,
		WithdrawalFee:   wdFee,
		Final:           amount.Sub(txFees).Sub(wdFee),
	}
}

// monthlyRevenue sums the merchant's transactions dated on or after since.
func monthlyRevenue(db *gorm.DB, merchantID string, since time.Time) (decimal.Decimal, error) {
	var revenue decimal.Decimal
	err := db.Model(&models.Transaction{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("merchant_id = ? AND date_of_transaction >= ?", merchantID, since).
		Row().Scan(&revenue)
	if err != nil {
		return decimal.Zero, err
	}
	return common.RoundMoney(revenue), nil
}

func (s *MerchantPaymentService) windowStart(now time.Time) time.Time {
	return now.UTC().AddDate(0, -s.RevenueWindowMonths, 0)
}

// CalculateWithdrawalInfo reports the merchant's current revenue, balance and
// matching tiers. Tiers that do not match are returned as nil.
func (s *MerchantPaymentService) CalculateWithdrawalInfo(ctx context.Context, merchantID string) (*WithdrawalInfo, error) {
	db := s.DB.WithContext(ctx)

	var merchant models.Merchant
	if err := db.First(&merchant, "id = ?", merchantID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.NotFoundErr("Merchant")
		}
		return nil, err
	}

	revenue, err := monthlyRevenue(db, merchantID, s.windowStart(time.Now()))
	if err != nil {
		return nil, err
	}
	info := &WithdrawalInfo{MonthlyRevenue: revenue, WalletBalance: merchant.WalletBalance}

	size, err := findMerchantSize(db, revenue)
	if errors.Is(err, ErrTierNotFound) {
		return info, nil
	}
	if err != nil {
		return nil, err
	}
	info.MerchantSize = size

	rate, err := findWithdrawalFeeRate(db, size.ID, merchant.WalletBalance)
	if errors.Is(err, ErrTierNotFound) {
		return info, nil
	}
	if err != nil {
		return nil, err
	}
	info.WithdrawalFeeRate = rate
	return info, nil
}

// CreatePayment opens a payout for the merchant. Fees are always recomputed
// from the tiers; the wallet is debited in the same unit of work.
func (s *MerchantPaymentService) CreatePayment(ctx context.Context, actor common.Actor, merchantID string, dto CreateMerchantPaymentDTO) (*models.MerchantPayment, error) {
	v := common.ValidationErrs()
	amount := dto.TotalAmountFromTransactions
	if !amount.IsPositive() {
		v.Add("total_amount_from_transactions", "must be positive")
	} else if !common.IsMoney(amount) {
		v.Add("total_amount_from_transactions", "must have at most two decimal places")
	}
	if strings.TrimSpace(dto.ToMerchantBankAccountNo) == "" {
		v.Add("to_merchant_bank_account_no", "is required")
	}
	if err := v.Err(); err != nil {
		return nil, common.ValidationFailedErr(err)
	}

	var payout models.MerchantPayment
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var merchant models.Merchant
		if err := tx.First(&merchant, "id = ?", merchantID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return common.NotFoundErr("Merchant")
			}
			return err
		}
		if amount.GreaterThan(merchant.WalletBalance) {
			return common.E(common.Invalid, "Requested amount exceeds wallet balance", ErrInsufficientBalance)
		}

		revenue, err := monthlyRevenue(tx, merchantID, s.windowStart(time.Now()))
		if err != nil {
			return err
		}
		size, err := findMerchantSize(tx, revenue)
		if err != nil {
			return err
		}
		rate, err := findWithdrawalFeeRate(tx, size.ID, merchant.WalletBalance)
		if err != nil {
			return err
		}

		fees := computePayoutFees(amount, rate)
		if fees.Final.IsNegative() {
			return common.E(common.Invalid, "Fees exceed the requested amount", nil)
		}

		res := tx.Model(&models.Merchant{}).
			Where("id = ? AND wallet_balance >= ?", merchantID, amount).
			Update("wallet_balance", gorm.Expr("wallet_balance - ?", amount))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return common.E(common.Invalid, "Requested amount exceeds wallet balance", ErrInsufficientBalance)
		}

		payout = models.MerchantPayment{
			MerchantID:                  merchantID,
			FromBank:                    dto.FromBank,
			ToMerchantBankAccountNo:     dto.ToMerchantBankAccountNo,
			Status:                      models.MerchantPaymentPending,
			TotalAmountFromTransactions: amount,
			TransactionFeePercentage:    rate.PercentageTransactionFee,
			TransactionFees:             fees.TransactionFees,
			WithdrawalFeePercentage:     rate.PercentageWithdrawalFee,
			WithdrawalFee:               fees.WithdrawalFee,
			FinalPaymentAmount:          fees.Final,
		}
		if err := tx.Create(&payout).Error; err != nil {
			return err
		}
		return writeAudit(tx, auditOptions{
			Actor:      actor,
			EntityType: "merchant_payment",
			EntityID:   payout.ID,
			Action:     models.AuditCreate,
			After:      payout,
		})
	})
	if err != nil {
		s.Logger.Error("merchant payment creation failed",
			zap.String("merchant_id", merchantID),
			zap.String("amount", amount.StringFixed(2)),
			zap.Error(err))
		return nil, err
	}

	s.Logger.Info("merchant payment created",
		zap.String("merchant_payment_id", payout.ID),
		zap.String("merchant_id", merchantID),
		zap.String("amount", payout.TotalAmountFromTransactions.StringFixed(2)),
		zap.String("transaction_fees", payout.TransactionFees.StringFixed(2)),
		zap.String("withdrawal_fee", payout.WithdrawalFee.StringFixed(2)),
		zap.String("final_payment_amount", payout.FinalPaymentAmount.StringFixed(2)))
	notify(ctx, s.Notifier, s.Logger, NotificationDTO{
		MerchantID:  merchantID,
		Title:       "Withdrawal requested",
		Description: "Your withdrawal of " + payout.TotalAmountFromTransactions.StringFixed(2) + " is pending payment. You will receive " + payout.FinalPaymentAmount.StringFixed(2) + ".",
		Priority:    models.PriorityLow,
	})

	return s.GetByID(ctx, payout.ID)
}

func (s *MerchantPaymentService) UpdatePayment(ctx context.Context, actor common.Actor, id string, dto UpdateMerchantPaymentDTO) (*models.MerchantPayment, error) {
	if len(dto.Evidence) > MaxEvidenceSize {
		return nil, common.E(common.Invalid, "evidence exceeds 10MB", nil)
	}

	var (
		before    models.MerchantPayment
		paidNow   bool
		changeSet = map[string]interface{}{}
	)
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Audit snapshots leave out the evidence blob.
		if err := tx.Omit("evidence").First(&before, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return common.NotFoundErr("Merchant payment")
			}
			return err
		}

		if dto.Status != nil && *dto.Status != before.Status {
			switch {
			case before.Status == models.MerchantPaymentPending && *dto.Status == models.MerchantPaymentPaid:
				changeSet["status"] = models.MerchantPaymentPaid
				paidNow = true
			case before.Status == models.MerchantPaymentPaid && *dto.Status == models.MerchantPaymentPending:
				return common.E(common.Conflict, "A paid merchant payment cannot return to pending", nil)
			default:
				return common.E(common.Invalid, "Unknown merchant payment status "+string(*dto.Status), nil)
			}
		}
		if len(dto.Evidence) > 0 {
			changeSet["evidence"] = dto.Evidence
		}
		if len(changeSet) == 0 {
			return nil
		}

		q := tx.Model(&models.MerchantPayment{}).Where("id = ?", id)
		if paidNow {
			q = q.Where("status = ?", models.MerchantPaymentPending)
		}
		res := q.Updates(changeSet)
		if res.Error != nil {
			return res.Error
		}
		if paidNow && res.RowsAffected == 0 {
			return common.E(common.Conflict, "Merchant payment is already paid", nil)
		}

		var after models.MerchantPayment
		if err := tx.Omit("evidence").First(&after, "id = ?", id).Error; err != nil {
			return err
		}
		return writeAudit(tx, auditOptions{
			Actor:      actor,
			EntityType: "merchant_payment",
			EntityID:   id,
			Action:     models.AuditUpdate,
			Before:     before,
			After:      after,
		})
	})
	if err != nil {
		return nil, err
	}

	if len(changeSet) > 0 {
		s.Logger.Info("merchant payment updated",
			zap.String("merchant_payment_id", id),
			zap.Bool("paid", paidNow),
			zap.Bool("evidence", len(dto.Evidence) > 0))
	}
	if paidNow {
		notify(ctx, s.Notifier, s.Logger, NotificationDTO{
			MerchantID:  before.MerchantID,
			Title:       "Withdrawal paid",
			Description: "Your withdrawal of " + before.TotalAmountFromTransactions.StringFixed(2) + " has been paid out.",
			Priority:    models.PriorityHigh,
		})
	}
	return s.GetByID(ctx, id)
}

func (s *MerchantPaymentService) GetByID(ctx context.Context, id string) (*models.MerchantPayment, error) {
	var payout models.MerchantPayment
	err := s.DB.WithContext(ctx).
		Preload("Merchant").
		Preload("Issues", func(db *gorm.DB) *gorm.DB {
			return db.Select("id", "create_time", "status", "title", "description", "merchant_payment_id")
		}).
		First(&payout, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, common.NotFoundErr("Merchant payment")
	}
	if err != nil {
		return nil, err
	}
	return &payout, nil
}

// GetPayments lists payouts newest first. An empty merchantID lists every
// merchant's payouts.
func (s *MerchantPaymentService) GetPayments(ctx context.Context, merchantID, search string) ([]models.MerchantPayment, error) {
	q := s.DB.WithContext(ctx).Preload("Merchant").Omit("evidence")
	if merchantID != "" {
		q = q.Where("merchant_id = ?", merchantID)
	}
	q = s.search(q, search)

	var payouts []models.MerchantPayment
	if err := q.Order("created_at DESC").Find(&payouts).Error; err != nil {
		return nil, err
	}
	return payouts, nil
}

func (s *MerchantPaymentService) ListByFilter(ctx context.Context, filter MerchantPaymentFilterDTO) ([]models.MerchantPayment, error) {
	v := common.ValidationErrs()
	if filter.CreateFrom == nil {
		v.Add("create_from", "is required")
	}
	if filter.CreateTo == nil {
		v.Add("create_to", "is required")
	}
	if filter.CreateFrom != nil && filter.CreateTo != nil && filter.CreateTo.Before(*filter.CreateFrom) {
		v.Add("create_to", "must not be before create_from")
	}
	order := "created_at DESC"
	if filter.Sorting != nil && filter.Sorting.Field != "" {
		col, ok := sortableColumns[filter.Sorting.Field]
		if !ok {
			v.Add("sorting.field", "is not sortable")
		}
		dir := strings.ToUpper(filter.Sorting.Order)
		switch dir {
		case "":
			dir = "DESC"
		case "ASC", "DESC":
		default:
			v.Add("sorting.order", "must be asc or desc")
		}
		order = col + " " + dir
	}
	if err := v.Err(); err != nil {
		return nil, common.ValidationFailedErr(err)
	}

	q := s.DB.WithContext(ctx).
		Preload("Merchant").
		Omit("evidence").
		Where("created_at >= ? AND created_at <= ?", filter.CreateFrom.UTC(), filter.CreateTo.UTC())
	if filter.MerchantID != "" {
		q = q.Where("merchant_id = ?", filter.MerchantID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	q = s.search(q, filter.SearchTerm)

	var payouts []models.MerchantPayment
	if err := q.Order(order).Find(&payouts).Error; err != nil {
		return nil, err
	}
	return payouts, nil
}

// search matches the term against merchant name and email, and against the
// total or final amount when the term is numeric.
func (s *MerchantPaymentService) search(q *gorm.DB, term string) *gorm.DB {
	term = strings.TrimSpace(term)
	if term == "" {
		return q
	}
	like := "%" + strings.ToLower(term) + "%"
	matching := s.DB.Model(&models.Merchant{}).Select("id").Where("LOWER(name) LIKE ? OR LOWER(email) LIKE ?", like, like)

	cond := s.DB.Where("merchant_id IN (?)", matching)
	if amount, err := decimal.NewFromString(term); err == nil {
		cond = cond.Or("total_amount_from_transactions = ?", amount).Or("final_payment_amount = ?", amount)
	}
	return q.Where(cond)
}
