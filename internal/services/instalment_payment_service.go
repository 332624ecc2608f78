package services

import (
	"context"
	"errors"
	"time"

	"bnpl-service/internal/models"
	"bnpl-service/internal/schedule"
	"bnpl-service/pkg/common"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// InstalmentPaymentService is the ledger of individual instalment payments.
type InstalmentPaymentService struct {
	DB       *gorm.DB
	Logger   *zap.Logger
	Cashback *CashbackService
	Notifier Notifier
}

func NewInstalmentPaymentService(db *gorm.DB, logger *zap.Logger, cashback *CashbackService, notifier Notifier) *InstalmentPaymentService {
	return &InstalmentPaymentService{DB: db, Logger: logger, Cashback: cashback, Notifier: notifier}
}

// UpdateInstalmentPaymentDTO is a partial update. Nil pointers and unset
// OptionalIDs leave the stored value alone.
type UpdateInstalmentPaymentDTO struct {
	Status                           *models.InstalmentPaymentStatus `json:"status"`
	PaidDate                         *time.Time                      `json:"paid_date"`
	LatePaymentAmountDue             *decimal.Decimal                `json:"late_payment_amount_due"`
	AmountDiscountFromVoucher        *decimal.Decimal                `json:"amount_discount_from_voucher"`
	AmountDeductedFromWallet         *decimal.Decimal                `json:"amount_deducted_from_wallet"`
	AmountDeductedFromCashbackWallet *decimal.Decimal                `json:"amount_deducted_from_cashback_wallet"`
	VoucherAssignedID                common.OptionalID               `json:"voucher_assigned_id"`
	CashbackWalletID                 common.OptionalID               `json:"cashback_wallet_id"`
}

// settlement describes a transaction that became fully paid.
type settlement struct {
	Transaction models.Transaction
	Cashback    decimal.Decimal
}

// CreateForTransaction persists the schedule of txn using tx. Callers run it
// in the same unit of work that inserts txn.
func (s *InstalmentPaymentService) CreateForTransaction(tx *gorm.DB, txn *models.Transaction, plan *models.InstalmentPlan) ([]models.InstalmentPayment, error) {
	items, err := schedule.Generate(txn.Amount, plan.NumberOfInstalments, plan.TimePeriod, txn.DateOfTransaction)
	if err != nil {
		return nil, common.E(common.Invalid, "cannot schedule instalments", err)
	}

	payments := make([]models.InstalmentPayment, len(items))
	for i, item := range items {
		payments[i] = models.InstalmentPayment{
			TransactionID:    txn.ID,
			InstalmentNumber: item.Number,
			AmountDue:        item.AmountDue,
			Status:           models.InstalmentUnpaid,
			DueDate:          item.DueDate,
		}
	}
	if err := tx.Create(&payments).Error; err != nil {
		return nil, err
	}
	return payments, nil
}

func (s *InstalmentPaymentService) GetAll(ctx context.Context, page common.Page) ([]models.InstalmentPayment, int64, error) {
	var (
		payments []models.InstalmentPayment
		total    int64
	)
	db := s.DB.WithContext(ctx)
	if err := db.Model(&models.InstalmentPayment{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := db.Order("due_date ASC").
		Order("instalment_number ASC").
		Offset(page.Offset()).
		Limit(page.Limit).
		Find(&payments).Error
	if err != nil {
		return nil, 0, err
	}
	return payments, total, nil
}

func (s *InstalmentPaymentService) GetByID(ctx context.Context, id string) (*models.InstalmentPayment, error) {
	var payment models.InstalmentPayment
	err := s.DB.WithContext(ctx).
		Preload("Transaction").
		Preload("VoucherAssigned.Voucher").
		Preload("CashbackWallet").
		First(&payment, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, common.NotFoundErr("Instalment payment")
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (s *InstalmentPaymentService) GetByTransaction(ctx context.Context, transactionID string) ([]models.InstalmentPayment, error) {
	db := s.DB.WithContext(ctx)

	var count int64
	if err := db.Model(&models.Transaction{}).Where("id = ?", transactionID).Count(&count).Error; err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, common.NotFoundErr("Transaction")
	}

	var payments []models.InstalmentPayment
	err := db.Where("transaction_id = ?", transactionID).
		Order("instalment_number ASC").
		Find(&payments).Error
	if err != nil {
		return nil, err
	}
	return payments, nil
}

// GetCustomerOutstanding lists the customer's unpaid instalments, soonest first.
func (s *InstalmentPaymentService) GetCustomerOutstanding(ctx context.Context, customerID string) ([]models.InstalmentPayment, error) {
	db := s.DB.WithContext(ctx)
	owned := db.Model(&models.Transaction{}).Select("id").Where("customer_id = ?", customerID)

	var payments []models.InstalmentPayment
	err := db.Preload("Transaction.Merchant").
		Where("transaction_id IN (?)", owned).
		Where("status = ?", models.InstalmentUnpaid).
		Order("due_date ASC").
		Find(&payments).Error
	if err != nil {
		return nil, err
	}
	return payments, nil
}

func (s *InstalmentPaymentService) GetMerchantPayments(ctx context.Context, merchantID string) ([]models.InstalmentPayment, error) {
	db := s.DB.WithContext(ctx)
	sold := db.Model(&models.Transaction{}).Select("id").Where("merchant_id = ?", merchantID)

	var payments []models.InstalmentPayment
	err := db.Preload("Transaction").
		Where("transaction_id IN (?)", sold).
		Order("due_date ASC").
		Find(&payments).Error
	if err != nil {
		return nil, err
	}
	return payments, nil
}

// Update applies a partial update to one instalment payment. Marking it PAID
// may complete the owning transaction within the same unit of work.
func (s *InstalmentPaymentService) Update(ctx context.Context, actor common.Actor, id string, dto UpdateInstalmentPaymentDTO) (*models.InstalmentPayment, error) {
	var done *settlement
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		_, done, err = s.applyUpdate(tx, actor, id, dto, time.Now().UTC())
		return err
	})
	if err != nil {
		s.Logger.Error("instalment payment update failed", zap.String("instalment_payment_id", id), zap.Error(err))
		return nil, err
	}

	s.afterSettlement(ctx, done)
	return s.GetByID(ctx, id)
}

func (s *InstalmentPaymentService) applyUpdate(tx *gorm.DB, actor common.Actor, id string, dto UpdateInstalmentPaymentDTO, now time.Time) (*models.InstalmentPayment, *settlement, error) {
	var payment models.InstalmentPayment
	if err := tx.First(&payment, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, common.NotFoundErr("Instalment payment")
		}
		return nil, nil, err
	}

	v := common.ValidationErrs()
	updates := map[string]interface{}{}
	setAmount := func(column string, amount *decimal.Decimal) {
		if amount == nil {
			return
		}
		if amount.IsNegative() || !common.IsMoney(*amount) {
			v.Add(column, "must be a non-negative amount with at most two decimal places")
			return
		}
		updates[column] = *amount
	}
	setAmount("late_payment_amount_due", dto.LatePaymentAmountDue)
	setAmount("amount_discount_from_voucher", dto.AmountDiscountFromVoucher)
	setAmount("amount_deducted_from_wallet", dto.AmountDeductedFromWallet)
	setAmount("amount_deducted_from_cashback_wallet", dto.AmountDeductedFromCashbackWallet)

	markPaid := false
	if dto.Status != nil {
		switch *dto.Status {
		case models.InstalmentPaid:
			if payment.Status == models.InstalmentPaid {
				return nil, nil, common.E(common.Conflict, "Instalment payment is already paid", nil)
			}
			markPaid = true
		case models.InstalmentUnpaid:
			if payment.Status == models.InstalmentPaid {
				return nil, nil, common.E(common.Conflict, "A paid instalment payment cannot be reopened", nil)
			}
		default:
			v.Add("status", "must be PAID or UNPAID")
		}
	}
	if dto.PaidDate != nil && !markPaid && payment.Status != models.InstalmentPaid {
		v.Add("paid_date", "can only be set on a paid instalment payment")
	}
	if err := v.Err(); err != nil {
		return nil, nil, common.ValidationFailedErr(err)
	}

	if err := connectLink(tx, "voucher_assigned_id", "Assigned voucher", payment.VoucherAssignedID, dto.VoucherAssignedID, &models.VoucherAssigned{}, updates); err != nil {
		return nil, nil, err
	}
	if err := connectLink(tx, "cashback_wallet_id", "Cashback wallet", payment.CashbackWalletID, dto.CashbackWalletID, &models.CashbackWallet{}, updates); err != nil {
		return nil, nil, err
	}

	if markPaid {
		// Serialises sibling payments of the same transaction.
		if err := lockTransaction(tx, payment.TransactionID, now); err != nil {
			return nil, nil, err
		}
		paid := now
		if dto.PaidDate != nil {
			paid = dto.PaidDate.UTC()
		}
		updates["status"] = models.InstalmentPaid
		updates["paid_date"] = paid
	} else if dto.PaidDate != nil {
		updates["paid_date"] = dto.PaidDate.UTC()
	}

	if len(updates) > 0 {
		q := tx.Model(&models.InstalmentPayment{}).Where("id = ?", payment.ID)
		if markPaid {
			q = q.Where("status = ?", models.InstalmentUnpaid)
		}
		res := q.Updates(updates)
		if res.Error != nil {
			return nil, nil, res.Error
		}
		if markPaid && res.RowsAffected == 0 {
			return nil, nil, common.E(common.Conflict, "Instalment payment is already paid", nil)
		}
	}

	var after models.InstalmentPayment
	if err := tx.First(&after, "id = ?", payment.ID).Error; err != nil {
		return nil, nil, err
	}
	if len(updates) > 0 {
		err := writeAudit(tx, auditOptions{
			Actor:      actor,
			EntityType: "instalment_payment",
			EntityID:   payment.ID,
			Action:     models.AuditUpdate,
			Before:     payment,
			After:      after,
		})
		if err != nil {
			return nil, nil, err
		}
	}

	if !markPaid {
		return &after, nil, nil
	}
	done, err := completeIfSettled(tx, s.Cashback, payment.TransactionID, now)
	if err != nil {
		return nil, nil, err
	}
	return &after, done, nil
}

// connectLink resolves an optional link update. Links are connect-only: an
// existing link can neither be cleared nor pointed somewhere else.
func connectLink(tx *gorm.DB, column, entity string, current *string, opt common.OptionalID, model interface{}, updates map[string]interface{}) error {
	if !opt.Set {
		return nil
	}
	if !opt.Valid {
		if current != nil {
			return common.E(common.Conflict, entity+" link cannot be removed", nil)
		}
		return nil
	}
	if current != nil {
		if *current == opt.ID {
			return nil
		}
		return common.E(common.Conflict, "Instalment payment is already linked to another "+lowerFirst(entity), nil)
	}

	var count int64
	if err := tx.Model(model).Where("id = ?", opt.ID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return common.NotFoundErr(entity)
	}
	updates[column] = opt.ID
	return nil
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	b := []byte(s)
	if b[0] >= 'A' && b[0] <= 'Z' {
		b[0] += 'a' - 'A'
	}
	return string(b)
}

func (s *InstalmentPaymentService) afterSettlement(ctx context.Context, done *settlement) {
	if done == nil {
		return
	}
	txn := done.Transaction
	s.Logger.Info("transaction fully paid",
		zap.String("transaction_id", txn.ID),
		zap.String("reference_no", txn.ReferenceNo),
		zap.String("cashback", done.Cashback.StringFixed(2)))

	desc := "All instalments of transaction " + txn.ReferenceNo + " have been paid."
	if done.Cashback.IsPositive() {
		desc += " Cashback of " + done.Cashback.StringFixed(2) + " has been added to your cashback wallet."
	}
	notify(ctx, s.Notifier, s.Logger, NotificationDTO{
		CustomerID:  txn.CustomerID,
		Title:       "Transaction fully paid",
		Description: desc,
		Priority:    models.PriorityHigh,
	})
	notify(ctx, s.Notifier, s.Logger, NotificationDTO{
		MerchantID:  txn.MerchantID,
		Title:       "Transaction fully paid",
		Description: "Transaction " + txn.ReferenceNo + " has been fully paid by the customer.",
		Priority:    models.PriorityHigh,
	})
}
