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

// PaymentService settles instalments from a customer's vouchers and wallets.
type PaymentService struct {
	DB       *gorm.DB
	Logger   *zap.Logger
	Ledger   *InstalmentPaymentService
	Notifier Notifier
}

func NewPaymentService(db *gorm.DB, logger *zap.Logger, ledger *InstalmentPaymentService, notifier Notifier) *PaymentService {
	return &PaymentService{DB: db, Logger: logger, Ledger: ledger, Notifier: notifier}
}

type PayInstalmentDTO struct {
	InstalmentPaymentID      string          `json:"instalment_payment_id"`
	VoucherAssignedID        string          `json:"voucher_assigned_id"`
	CashbackWalletID         string          `json:"cashback_wallet_id"`
	AmountFromCashbackWallet decimal.Decimal `json:"amount_deducted_from_cashback_wallet"`
}

// voucherDiscount prefers the fixed discount and never exceeds due.
func voucherDiscount(v *models.Voucher, due decimal.Decimal) decimal.Decimal {
	discount := v.AmountDiscount
	if !discount.IsPositive() {
		discount = common.PercentOf(due, v.PercentageDiscount)
	}
	if discount.GreaterThan(due) {
		discount = due
	}
	if discount.IsNegative() {
		return decimal.Zero
	}
	return discount
}

// PayInstalment pays one instalment in a single unit of work: an optional
// voucher discount first, then an optional cashback draw, and the rest from
// the customer wallet.
func (s *PaymentService) PayInstalment(ctx context.Context, customerID string, dto PayInstalmentDTO) (*models.InstalmentPayment, error) {
	v := common.ValidationErrs()
	if dto.InstalmentPaymentID == "" {
		v.Add("instalment_payment_id", "is required")
	}
	if dto.CashbackWalletID != "" {
		if !dto.AmountFromCashbackWallet.IsPositive() || !common.IsMoney(dto.AmountFromCashbackWallet) {
			v.Add("amount_deducted_from_cashback_wallet", "must be a positive amount with at most two decimal places")
		}
	}
	if err := v.Err(); err != nil {
		return nil, common.ValidationFailedErr(err)
	}

	actor := common.Actor{ID: customerID, Role: common.RoleCustomer}
	var (
		done       *settlement
		fromWallet decimal.Decimal
	)
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()

		var payment models.InstalmentPayment
		if err := tx.Preload("Transaction").First(&payment, "id = ?", dto.InstalmentPaymentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return common.NotFoundErr("Instalment payment")
			}
			return err
		}
		if payment.Transaction == nil || payment.Transaction.CustomerID != customerID {
			return common.NotFoundErr("Instalment payment")
		}
		if payment.Status == models.InstalmentPaid {
			return common.E(common.Conflict, "Instalment payment is already paid", nil)
		}
		if err := lockTransaction(tx, payment.TransactionID, now); err != nil {
			return err
		}

		paid := models.InstalmentPaid
		update := UpdateInstalmentPaymentDTO{Status: &paid, PaidDate: &now}
		remaining := payment.TotalDue()

		if dto.VoucherAssignedID != "" {
			discount, err := redeemVoucher(tx, customerID, dto.VoucherAssignedID, remaining, now)
			if err != nil {
				return err
			}
			remaining = remaining.Sub(discount)
			update.AmountDiscountFromVoucher = &discount
			update.VoucherAssignedID = common.SomeID(dto.VoucherAssignedID)
		}

		if dto.CashbackWalletID != "" && remaining.IsPositive() {
			drawn, err := drawCashback(tx, customerID, payment.Transaction.MerchantID, dto.CashbackWalletID, decimal.Min(dto.AmountFromCashbackWallet, remaining))
			if err != nil {
				return err
			}
			remaining = remaining.Sub(drawn)
			update.AmountDeductedFromCashbackWallet = &drawn
			update.CashbackWalletID = common.SomeID(dto.CashbackWalletID)
		}

		if remaining.IsPositive() {
			res := tx.Model(&models.Customer{}).
				Where("id = ? AND wallet_balance >= ?", customerID, remaining).
				Update("wallet_balance", gorm.Expr("wallet_balance - ?", remaining))
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return common.E(common.Invalid, "Insufficient wallet balance", ErrInsufficientBalance)
			}
		}
		fromWallet = remaining
		update.AmountDeductedFromWallet = &fromWallet

		history := models.PaymentHistory{
			CustomerID:  customerID,
			Amount:      payment.TotalDue(),
			PaymentType: models.PaymentInstalmentPayment,
			PaymentDate: now,
		}
		if err := tx.Create(&history).Error; err != nil {
			return err
		}

		var err error
		_, done, err = s.Ledger.applyUpdate(tx, actor, payment.ID, update, now)
		return err
	})
	if err != nil {
		s.Logger.Error("instalment payment failed",
			zap.String("instalment_payment_id", dto.InstalmentPaymentID),
			zap.String("customer_id", customerID),
			zap.Error(err))
		return nil, err
	}

	s.Logger.Info("instalment paid",
		zap.String("instalment_payment_id", dto.InstalmentPaymentID),
		zap.String("customer_id", customerID),
		zap.String("from_wallet", fromWallet.StringFixed(2)))
	s.Ledger.afterSettlement(ctx, done)
	return s.Ledger.GetByID(ctx, dto.InstalmentPaymentID)
}

func redeemVoucher(tx *gorm.DB, customerID, voucherAssignedID string, due decimal.Decimal, now time.Time) (decimal.Decimal, error) {
	var assigned models.VoucherAssigned
	if err := tx.Preload("Voucher").First(&assigned, "id = ?", voucherAssignedID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return decimal.Zero, common.NotFoundErr("Assigned voucher")
		}
		return decimal.Zero, err
	}
	if assigned.CustomerID != customerID || assigned.Voucher == nil {
		return decimal.Zero, common.NotFoundErr("Assigned voucher")
	}
	if assigned.Status != models.VoucherAvailable || assigned.RemainingUses <= 0 {
		return decimal.Zero, common.E(common.Conflict, "Voucher is no longer available", nil)
	}
	if !assigned.Voucher.IsActive || assigned.Voucher.ExpiryDate.Before(now) {
		return decimal.Zero, common.E(common.Invalid, "Voucher is inactive or expired", nil)
	}

	// status is assigned first so it sees the pre-decrement remaining_uses.
	res := tx.Exec(
		"UPDATE voucher_assigned SET status = CASE WHEN remaining_uses <= 1 THEN ? ELSE status END, remaining_uses = remaining_uses - 1 WHERE id = ? AND status = ? AND remaining_uses > 0",
		models.VoucherUsed, assigned.ID, models.VoucherAvailable)
	if res.Error != nil {
		return decimal.Zero, res.Error
	}
	if res.RowsAffected == 0 {
		return decimal.Zero, common.E(common.Conflict, "Voucher is no longer available", nil)
	}
	return voucherDiscount(assigned.Voucher, due), nil
}

func drawCashback(tx *gorm.DB, customerID, merchantID, walletID string, amount decimal.Decimal) (decimal.Decimal, error) {
	var wallet models.CashbackWallet
	if err := tx.First(&wallet, "id = ?", walletID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return decimal.Zero, common.NotFoundErr("Cashback wallet")
		}
		return decimal.Zero, err
	}
	if wallet.CustomerID != customerID {
		return decimal.Zero, common.NotFoundErr("Cashback wallet")
	}
	if wallet.MerchantID != merchantID {
		return decimal.Zero, common.E(common.Invalid, "Cashback wallet can only be used at its merchant", nil)
	}

	res := tx.Model(&models.CashbackWallet{}).
		Where("id = ? AND wallet_balance >= ?", walletID, amount).
		Update("wallet_balance", gorm.Expr("wallet_balance - ?", amount))
	if res.Error != nil {
		return decimal.Zero, res.Error
	}
	if res.RowsAffected == 0 {
		return decimal.Zero, common.E(common.Invalid, "Insufficient cashback wallet balance", ErrInsufficientBalance)
	}
	return amount, nil
}

func (s *PaymentService) GetPaymentHistory(ctx context.Context, customerID string) ([]models.PaymentHistory, error) {
	var history []models.PaymentHistory
	err := s.DB.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("payment_date DESC").
		Find(&history).Error
	if err != nil {
		return nil, err
	}
	return history, nil
}
