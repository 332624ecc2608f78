package services

import (
	"context"
	"errors"

	"bnpl-service/internal/models"
	"bnpl-service/pkg/common"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var ErrTierNotFound = errors.New("no tier matches")

type TierService struct {
	DB     *gorm.DB
	Logger *zap.Logger
}

func NewTierService(db *gorm.DB, logger *zap.Logger) *TierService {
	return &TierService{DB: db, Logger: logger}
}

type CreateMerchantSizeDTO struct {
	Name              string              `json:"name"`
	MonthlyRevenueMin decimal.Decimal     `json:"monthly_revenue_min"`
	MonthlyRevenueMax decimal.NullDecimal `json:"monthly_revenue_max"`
}

type CreateWithdrawalFeeRateDTO struct {
	Name                     string              `json:"name"`
	MerchantSizeID           string              `json:"merchant_size_id"`
	WalletBalanceMin         decimal.Decimal     `json:"wallet_balance_min"`
	WalletBalanceMax         decimal.NullDecimal `json:"wallet_balance_max"`
	MonthlyRevenueMin        decimal.Decimal     `json:"monthly_revenue_min"`
	MonthlyRevenueMax        decimal.NullDecimal `json:"monthly_revenue_max"`
	PercentageTransactionFee decimal.Decimal     `json:"percentage_transaction_fee"`
	PercentageWithdrawalFee  decimal.Decimal     `json:"percentage_withdrawal_fee"`
}

func (s *TierService) FindMerchantSize(ctx context.Context, revenue decimal.Decimal) (*models.MerchantSize, error) {
	return findMerchantSize(s.DB.WithContext(ctx), revenue)
}

func (s *TierService) FindWithdrawalFeeRate(ctx context.Context, merchantSizeID string, balance decimal.Decimal) (*models.WithdrawalFeeRate, error) {
	return findWithdrawalFeeRate(s.DB.WithContext(ctx), merchantSizeID, balance)
}

// findMerchantSize picks the bucket whose [min, max] range holds revenue.
// When ranges overlap the bucket with the highest minimum wins.
func findMerchantSize(db *gorm.DB, revenue decimal.Decimal) (*models.MerchantSize, error) {
	var size models.MerchantSize
	err := db.
		Where("monthly_revenue_min <= ?", revenue).
		Where("monthly_revenue_max IS NULL OR monthly_revenue_max >= ?", revenue).
		Order("monthly_revenue_min DESC").
		First(&size).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, common.E(common.NotFound, "no merchant size matches monthly revenue "+revenue.StringFixed(2), ErrTierNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &size, nil
}

func findWithdrawalFeeRate(db *gorm.DB, merchantSizeID string, balance decimal.Decimal) (*models.WithdrawalFeeRate, error) {
	var rate models.WithdrawalFeeRate
	err := db.
		Where("merchant_size_id = ?", merchantSizeID).
		Where("wallet_balance_min <= ?", balance).
		Where("wallet_balance_max IS NULL OR wallet_balance_max >= ?", balance).
		Order("wallet_balance_min DESC").
		First(&rate).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, common.E(common.NotFound, "no withdrawal fee rate matches wallet balance "+balance.StringFixed(2), ErrTierNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &rate, nil
}

func (s *TierService) ListMerchantSizes(ctx context.Context) ([]models.MerchantSize, error) {
	var sizes []models.MerchantSize
	if err := s.DB.WithContext(ctx).Order("monthly_revenue_min ASC").Find(&sizes).Error; err != nil {
		return nil, err
	}
	return sizes, nil
}

func (s *TierService) ListWithdrawalFeeRates(ctx context.Context) ([]models.WithdrawalFeeRate, error) {
	var rates []models.WithdrawalFeeRate
	err := s.DB.WithContext(ctx).
		Preload("MerchantSize").
		Order("monthly_revenue_min ASC").
		Order("wallet_balance_min ASC").
		Find(&rates).Error
	if err != nil {
		return nil, err
	}
	return rates, nil
}

func (s *TierService) CreateMerchantSize(ctx context.Context, dto CreateMerchantSizeDTO) (*models.MerchantSize, error) {
	v := common.ValidationErrs()
	if dto.Name == "" {
		v.Add("name", "is required")
	}
	checkRange(v, "monthly_revenue", dto.MonthlyRevenueMin, dto.MonthlyRevenueMax)
	if err := v.Err(); err != nil {
		return nil, common.ValidationFailedErr(err)
	}

	size := models.MerchantSize{
		Name:              dto.Name,
		MonthlyRevenueMin: dto.MonthlyRevenueMin,
		MonthlyRevenueMax: dto.MonthlyRevenueMax,
	}
	if err := s.DB.WithContext(ctx).Create(&size).Error; err != nil {
		return nil, err
	}
	s.Logger.Info("merchant size created", zap.String("merchant_size_id", size.ID), zap.String("name", size.Name))
	return &size, nil
}

func (s *TierService) CreateWithdrawalFeeRate(ctx context.Context, dto CreateWithdrawalFeeRateDTO) (*models.WithdrawalFeeRate, error) {
	v := common.ValidationErrs()
	if dto.Name == "" {
		v.Add("name", "is required")
	}
	if dto.MerchantSizeID == "" {
		v.Add("merchant_size_id", "is required")
	}
	checkRange(v, "wallet_balance", dto.WalletBalanceMin, dto.WalletBalanceMax)
	checkRange(v, "monthly_revenue", dto.MonthlyRevenueMin, dto.MonthlyRevenueMax)
	checkPercentage(v, "percentage_transaction_fee", dto.PercentageTransactionFee)
	checkPercentage(v, "percentage_withdrawal_fee", dto.PercentageWithdrawalFee)
	if err := v.Err(); err != nil {
		return nil, common.ValidationFailedErr(err)
	}

	var rate models.WithdrawalFeeRate
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.MerchantSize{}).Where("id = ?", dto.MerchantSizeID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return common.NotFoundErr("Merchant size")
		}

		rate = models.WithdrawalFeeRate{
			Name:                     dto.Name,
			MerchantSizeID:           dto.MerchantSizeID,
			WalletBalanceMin:         dto.WalletBalanceMin,
			WalletBalanceMax:         dto.WalletBalanceMax,
			MonthlyRevenueMin:        dto.MonthlyRevenueMin,
			MonthlyRevenueMax:        dto.MonthlyRevenueMax,
			PercentageTransactionFee: dto.PercentageTransactionFee,
			PercentageWithdrawalFee:  dto.PercentageWithdrawalFee,
		}
		return tx.Create(&rate).Error
	})
	if err != nil {
		return nil, err
	}
	s.Logger.Info("withdrawal fee rate created", zap.String("withdrawal_fee_rate_id", rate.ID), zap.String("name", rate.Name))
	return &rate, nil
}

func checkRange(v *common.ValidationErrors, field string, min decimal.Decimal, max decimal.NullDecimal) {
	if min.IsNegative() {
		v.Add(field+"_min", "must not be negative")
	}
	if max.Valid && max.Decimal.LessThan(min) {
		v.Add(field+"_max", "must not be below "+field+"_min")
	}
}

func checkPercentage(v *common.ValidationErrors, field string, pct decimal.Decimal) {
	if pct.IsNegative() || pct.GreaterThan(decimal.NewFromInt(100)) {
		v.Add(field, "must be between 0 and 100")
	}
}
