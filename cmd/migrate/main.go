package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"bnpl-service/internal/config"
	"bnpl-service/internal/database"
	"bnpl-service/internal/models"
	"bnpl-service/internal/services"
	"bnpl-service/pkg/common"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database schema and reference data for the BNPL service",
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yml", "Path to the application config file")

	rootCmd.AddCommand(upCmd())
	rootCmd.AddCommand(seedCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func open() (*gorm.DB, *zap.Logger, error) {
	cfg, _, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	logger, err := common.NewLogger(cfg.Application+"-migrate", cfg.Logger.Level)
	if err != nil {
		return nil, nil, err
	}
	db, err := database.Connect(cfg.Database, logger)
	if err != nil {
		return nil, nil, err
	}
	return db, logger, nil
}

func upCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Create or update every table",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, logger, err := open()
			if err != nil {
				return err
			}
			defer database.Close(db)

			if err := database.Migrate(db, logger); err != nil {
				return err
			}
			logger.Info("migrations completed")
			return nil
		},
	}
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Insert the default merchant tiers and instalment plan",
		Long: `Seed creates one merchant size covering all revenue, two withdrawal fee
rates split at a wallet balance of 50000 and a three-instalment plan.
Run it once against an empty database.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, logger, err := open()
			if err != nil {
				return err
			}
			defer database.Close(db)

			if err := database.Migrate(db, logger); err != nil {
				return err
			}
			return seed(cmd.Context(), db, logger)
		},
	}
}

func seed(ctx context.Context, db *gorm.DB, logger *zap.Logger) error {
	var count int64
	if err := db.WithContext(ctx).Model(&models.MerchantSize{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return errors.New("reference data already present")
	}

	tiers := services.NewTierService(db, logger)
	size, err := tiers.CreateMerchantSize(ctx, services.CreateMerchantSizeDTO{
		Name:              "SME",
		MonthlyRevenueMin: decimal.Zero,
	})
	if err != nil {
		return err
	}

	rates := []services.CreateWithdrawalFeeRateDTO{
		{
			Name:                     "Standard",
			MerchantSizeID:           size.ID,
			WalletBalanceMin:         decimal.Zero,
			WalletBalanceMax:         decimal.NewNullDecimal(decimal.RequireFromString("49999.99")),
			PercentageTransactionFee: decimal.NewFromInt(2),
			PercentageWithdrawalFee:  decimal.RequireFromString("1.5"),
		},
		{
			Name:                     "Big business",
			MerchantSizeID:           size.ID,
			WalletBalanceMin:         decimal.NewFromInt(50000),
			PercentageTransactionFee: decimal.NewFromInt(2),
			PercentageWithdrawalFee:  decimal.RequireFromString("0.5"),
		},
	}
	for _, dto := range rates {
		if _, err := tiers.CreateWithdrawalFeeRate(ctx, dto); err != nil {
			return fmt.Errorf("seeding %s: %w", dto.Name, err)
		}
	}

	plan := models.InstalmentPlan{
		Name:                "Pay in 3",
		Description:         "Three payments over six weeks",
		NumberOfInstalments: 3,
		TimePeriod:          6,
		Status:              models.PlanActive,
	}
	if err := db.WithContext(ctx).Create(&plan).Error; err != nil {
		return err
	}

	logger.Info("seed completed", zap.String("merchant_size_id", size.ID), zap.String("instalment_plan_id", plan.ID))
	return nil
}
