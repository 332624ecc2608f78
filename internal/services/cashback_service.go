package services

import (
	"context"

	"bnpl-service/internal/models"
	"bnpl-service/pkg/common"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type CashbackService struct {
	DB     *gorm.DB
	Logger *zap.Logger
}

func NewCashbackService(db *gorm.DB, logger *zap.Logger) *CashbackService {
	return &CashbackService{DB: db, Logger: logger}
}

// Award credits the cashback earned on a settled transaction to the
// customer's wallet at that merchant, creating the wallet on first use.
// It must run inside the unit of work that flipped the transaction.
func (s *CashbackService) Award(tx *gorm.DB, txn *models.Transaction) (decimal.Decimal, error) {
	amount := common.PercentOf(txn.Amount, txn.CashbackPercentage)
	if !amount.IsPositive() {
		return decimal.Zero, nil
	}

	res := tx.Model(&models.CashbackWallet{}).
		Where("customer_id = ? AND merchant_id = ?", txn.CustomerID, txn.MerchantID).
		Update("wallet_balance", gorm.Expr("wallet_balance + ?", amount))
	if res.Error != nil {
		return decimal.Zero, res.Error
	}
	if res.RowsAffected == 0 {
		wallet := models.CashbackWallet{
			CustomerID:    txn.CustomerID,
			MerchantID:    txn.MerchantID,
			WalletBalance: amount,
		}
		if err := tx.Create(&wallet).Error; err != nil {
			return decimal.Zero, err
		}
	}

	s.Logger.Info("cashback awarded",
		zap.String("transaction_id", txn.ID),
		zap.String("customer_id", txn.CustomerID),
		zap.String("merchant_id", txn.MerchantID),
		zap.String("amount", amount.StringFixed(2)))
	return amount, nil
}

func (s *CashbackService) GetByCustomer(ctx context.Context, customerID string) ([]models.CashbackWallet, error) {
	var wallets []models.CashbackWallet
	err := s.DB.WithContext(ctx).
		Preload("Merchant").
		Where("customer_id = ?", customerID).
		Order("created_at DESC").
		Find(&wallets).Error
	if err != nil {
		return nil, err
	}
	return wallets, nil
}
