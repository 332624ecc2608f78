package services

import (
	"context"
	"errors"
	"time"

	"bnpl-service/internal/models"
	"bnpl-service/pkg/common"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type TransactionService struct {
	DB       *gorm.DB
	Logger   *zap.Logger
	Ledger   *InstalmentPaymentService
	Notifier Notifier
}

func NewTransactionService(db *gorm.DB, logger *zap.Logger, ledger *InstalmentPaymentService, notifier Notifier) *TransactionService {
	return &TransactionService{DB: db, Logger: logger, Ledger: ledger, Notifier: notifier}
}

type CreateTransactionDTO struct {
	Amount             decimal.Decimal  `json:"amount"`
	CustomerID         string           `json:"customer_id"`
	MerchantID         string           `json:"merchant_id"`
	InstalmentPlanID   string           `json:"instalment_plan_id"`
	DateOfTransaction  *time.Time       `json:"date_of_transaction"`
	ReferenceNo        string           `json:"reference_no"`
	CashbackPercentage *decimal.Decimal `json:"cashback_percentage"`
}

type UpdateTransactionDTO struct {
	ReferenceNo       *string                   `json:"reference_no"`
	MerchantPaymentID common.OptionalID         `json:"merchant_payment_id"`
	Status            *models.TransactionStatus `json:"status"`
}

func (dto CreateTransactionDTO) validate() error {
	v := common.ValidationErrs()
	if dto.CustomerID == "" {
		v.Add("customer_id", "is required")
	}
	if dto.MerchantID == "" {
		v.Add("merchant_id", "is required")
	}
	if dto.InstalmentPlanID == "" {
		v.Add("instalment_plan_id", "is required")
	}
	if !dto.Amount.IsPositive() {
		v.Add("amount", "must be positive")
	} else if !common.IsMoney(dto.Amount) {
		v.Add("amount", "must have at most two decimal places")
	}
	if dto.CashbackPercentage != nil {
		checkPercentage(v, "cashback_percentage", *dto.CashbackPercentage)
	}
	return v.Err()
}

// Create records a purchase together with its full instalment schedule and
// credits the merchant wallet with the principal, all in one unit of work.
func (s *TransactionService) Create(ctx context.Context, dto CreateTransactionDTO) (*models.Transaction, error) {
	if err := dto.validate(); err != nil {
		return nil, common.ValidationFailedErr(err)
	}

	purchase := time.Now().UTC()
	if dto.DateOfTransaction != nil {
		purchase = dto.DateOfTransaction.UTC()
	}
	ref := dto.ReferenceNo
	if ref == "" {
		ref = common.GenerateReferenceNo("BNPL")
	}

	var txn models.Transaction
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var plan models.InstalmentPlan
		if err := tx.First(&plan, "id = ?", dto.InstalmentPlanID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return common.NotFoundErr("Instalment plan")
			}
			return err
		}
		if err := checkPlanAccepts(&plan, dto.Amount); err != nil {
			return err
		}

		var customer models.Customer
		if err := tx.Select("id").First(&customer, "id = ?", dto.CustomerID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return common.NotFoundErr("Customer")
			}
			return err
		}
		var merchant models.Merchant
		if err := tx.First(&merchant, "id = ?", dto.MerchantID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return common.NotFoundErr("Merchant")
			}
			return err
		}

		var dup int64
		if err := tx.Model(&models.Transaction{}).Where("reference_no = ?", ref).Count(&dup).Error; err != nil {
			return err
		}
		if dup > 0 {
			return common.E(common.Conflict, "Reference number "+ref+" is already in use", nil)
		}

		cashback := merchant.Cashback
		if dto.CashbackPercentage != nil {
			cashback = *dto.CashbackPercentage
		}

		txn = models.Transaction{
			ReferenceNo:        ref,
			Amount:             dto.Amount,
			DateOfTransaction:  purchase,
			Status:             models.TransactionInProgress,
			CashbackPercentage: cashback,
			CustomerID:         dto.CustomerID,
			MerchantID:         dto.MerchantID,
			InstalmentPlanID:   plan.ID,
		}
		if err := tx.Create(&txn).Error; err != nil {
			return err
		}
		if _, err := s.Ledger.CreateForTransaction(tx, &txn, &plan); err != nil {
			return err
		}

		return tx.Model(&models.Merchant{}).
			Where("id = ?", merchant.ID).
			Update("wallet_balance", gorm.Expr("wallet_balance + ?", dto.Amount)).Error
	})
	if err != nil {
		s.Logger.Error("transaction creation failed",
			zap.String("customer_id", dto.CustomerID),
			zap.String("merchant_id", dto.MerchantID),
			zap.Error(err))
		return nil, err
	}

	s.Logger.Info("transaction created",
		zap.String("transaction_id", txn.ID),
		zap.String("reference_no", txn.ReferenceNo),
		zap.String("amount", txn.Amount.StringFixed(2)),
		zap.String("merchant_id", txn.MerchantID))
	notify(ctx, s.Notifier, s.Logger, NotificationDTO{
		MerchantID:  txn.MerchantID,
		Title:       "New transaction",
		Description: "Transaction " + txn.ReferenceNo + " of " + txn.Amount.StringFixed(2) + " has been created.",
		Priority:    models.PriorityLow,
	})

	return s.GetByID(ctx, txn.ID)
}

func checkPlanAccepts(plan *models.InstalmentPlan, amount decimal.Decimal) error {
	if plan.Status != models.PlanActive {
		return common.E(common.Invalid, "Instalment plan is not active", nil)
	}
	if plan.MinimumAmount.IsPositive() && amount.LessThan(plan.MinimumAmount) {
		return common.E(common.Invalid, "Amount is below the plan minimum of "+plan.MinimumAmount.StringFixed(2), nil)
	}
	if plan.MaximumAmount.IsPositive() && amount.GreaterThan(plan.MaximumAmount) {
		return common.E(common.Invalid, "Amount is above the plan maximum of "+plan.MaximumAmount.StringFixed(2), nil)
	}
	return nil
}

func (s *TransactionService) GetByID(ctx context.Context, id string) (*models.Transaction, error) {
	var txn models.Transaction
	err := s.DB.WithContext(ctx).
		Preload("Merchant").
		Preload("InstalmentPlan").
		Preload("Customer", func(db *gorm.DB) *gorm.DB {
			return db.Select("id", "name", "email")
		}).
		Preload("InstalmentPayments", func(db *gorm.DB) *gorm.DB {
			return db.Order("due_date ASC")
		}).
		Preload("Issues", func(db *gorm.DB) *gorm.DB {
			return db.Select("id", "title", "description", "status", "create_time", "transaction_id")
		}).
		First(&txn, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, common.NotFoundErr("Transaction")
	}
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

func (s *TransactionService) GetByCustomer(ctx context.Context, customerID string) ([]models.Transaction, error) {
	var txns []models.Transaction
	err := s.DB.WithContext(ctx).
		Preload("Merchant").
		Preload("InstalmentPlan").
		Preload("InstalmentPayments", func(db *gorm.DB) *gorm.DB {
			return db.Order("due_date ASC")
		}).
		Where("customer_id = ?", customerID).
		Order("date_of_transaction DESC").
		Find(&txns).Error
	if err != nil {
		return nil, err
	}
	return txns, nil
}

// Update changes the reference number or the payout link. Status is owned by
// the ledger and can only be echoed back unchanged.
func (s *TransactionService) Update(ctx context.Context, actor common.Actor, id string, dto UpdateTransactionDTO) (*models.Transaction, error) {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var before models.Transaction
		if err := tx.First(&before, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return common.NotFoundErr("Transaction")
			}
			return err
		}
		if actor.Role == common.RoleMerchant && before.MerchantID != actor.ID {
			return common.NotFoundErr("Transaction")
		}
		if dto.Status != nil && *dto.Status != before.Status {
			return common.E(common.Conflict, "Transaction status changes only when every instalment is paid", nil)
		}

		updates := map[string]interface{}{}
		if dto.ReferenceNo != nil && *dto.ReferenceNo != before.ReferenceNo {
			if *dto.ReferenceNo == "" {
				return common.E(common.Invalid, "Reference number must not be empty", nil)
			}
			var dup int64
			if err := tx.Model(&models.Transaction{}).Where("reference_no = ? AND id <> ?", *dto.ReferenceNo, id).Count(&dup).Error; err != nil {
				return err
			}
			if dup > 0 {
				return common.E(common.Conflict, "Reference number "+*dto.ReferenceNo+" is already in use", nil)
			}
			updates["reference_no"] = *dto.ReferenceNo
		}
		if dto.MerchantPaymentID.Set {
			if !dto.MerchantPaymentID.Valid {
				updates["merchant_payment_id"] = nil
			} else {
				var payout models.MerchantPayment
				if err := tx.Select("id", "merchant_id").First(&payout, "id = ?", dto.MerchantPaymentID.ID).Error; err != nil {
					if errors.Is(err, gorm.ErrRecordNotFound) {
						return common.NotFoundErr("Merchant payment")
					}
					return err
				}
				if payout.MerchantID != before.MerchantID {
					return common.E(common.Conflict, "Merchant payment belongs to a different merchant", nil)
				}
				updates["merchant_payment_id"] = payout.ID
			}
		}
		if len(updates) == 0 {
			return nil
		}

		if err := tx.Model(&models.Transaction{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return err
		}
		var after models.Transaction
		if err := tx.First(&after, "id = ?", id).Error; err != nil {
			return err
		}
		return writeAudit(tx, auditOptions{
			Actor:      actor,
			EntityType: "transaction",
			EntityID:   id,
			Action:     models.AuditUpdate,
			Before:     before,
			After:      after,
		})
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Info("transaction updated", zap.String("transaction_id", id), zap.String("actor_id", actor.ID))
	return s.GetByID(ctx, id)
}

// lockTransaction takes the row lock on a transaction by touching it.
func lockTransaction(tx *gorm.DB, transactionID string, now time.Time) error {
	res := tx.Model(&models.Transaction{}).Where("id = ?", transactionID).Update("updated_at", now)
	if res.Error != nil {
		return res.Error
	}
	return nil
}

// completeIfSettled flips the transaction to FULLY_PAID when no unpaid
// instalment is left. The status guard makes the flip happen at most once;
// cashback is awarded only by the call that performed it. Callers hold the
// transaction row lock.
func completeIfSettled(tx *gorm.DB, cashback *CashbackService, transactionID string, now time.Time) (*settlement, error) {
	res := tx.Model(&models.Transaction{}).
		Where("id = ? AND status = ?", transactionID, models.TransactionInProgress).
		Where("NOT EXISTS (SELECT 1 FROM instalment_payments WHERE instalment_payments.transaction_id = ? AND instalment_payments.status <> ?)",
			transactionID, models.InstalmentPaid).
		Updates(map[string]interface{}{
			"status":          models.TransactionFullyPaid,
			"fully_paid_date": now,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}

	var txn models.Transaction
	if err := tx.First(&txn, "id = ?", transactionID).Error; err != nil {
		return nil, err
	}
	done := &settlement{Transaction: txn, Cashback: decimal.Zero}
	if cashback != nil {
		amount, err := cashback.Award(tx, &txn)
		if err != nil {
			return nil, err
		}
		done.Cashback = amount
	}
	return done, nil
}
