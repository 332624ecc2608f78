package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"bnpl-service/internal/models"
	"bnpl-service/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateTransactionSchedulesInstalments(t *testing.T) {
	db := setup(t)
	s := newStack(db)
	ctx := context.Background()

	customer := createCustomer(t, db, "0")
	merchant := createMerchant(t, db, "Corner Shop", "5", "1000")
	plan := createPlan(t, db, 3, 3)
	purchase := time.Date(2024, 3, 1, 14, 30, 0, 0, time.UTC)

	txn, err := s.Transactions.Create(ctx, CreateTransactionDTO{
		Amount:            dec("300"),
		CustomerID:        customer.ID,
		MerchantID:        merchant.ID,
		InstalmentPlanID:  plan.ID,
		DateOfTransaction: &purchase,
	})
	require.NoError(t, err)

	assert.Equal(t, models.TransactionInProgress, txn.Status)
	assert.Nil(t, txn.FullyPaidDate)
	assert.True(t, strings.HasPrefix(txn.ReferenceNo, "BNPL-"), txn.ReferenceNo)
	assertDecimal(t, "5", txn.CashbackPercentage, "cashback defaults to the merchant rate")
	require.NotNil(t, txn.Merchant)
	require.NotNil(t, txn.InstalmentPlan)
	require.NotNil(t, txn.Customer)
	assert.Equal(t, customer.Email, txn.Customer.Email)

	require.Len(t, txn.InstalmentPayments, 3)
	wantDays := []int{8, 15, 22}
	for i, p := range txn.InstalmentPayments {
		assert.Equal(t, i+1, p.InstalmentNumber)
		assertDecimal(t, "100", p.AmountDue)
		assert.Equal(t, models.InstalmentUnpaid, p.Status)
		assert.Equal(t, wantDays[i], p.DueDate.UTC().Day())
	}

	m := reload[models.Merchant](t, db, merchant.ID)
	assertDecimal(t, "1300", m.WalletBalance, "merchant wallet is credited with the principal")

	assert.Contains(t, s.Notifier.titles(), "New transaction")
}

func TestCreateTransactionUnknownPlanCreatesNothing(t *testing.T) {
	db := setup(t)
	s := newStack(db)

	customer := createCustomer(t, db, "0")
	merchant := createMerchant(t, db, "Corner Shop", "0", "0")

	_, err := s.Transactions.Create(context.Background(), CreateTransactionDTO{
		Amount:           dec("120"),
		CustomerID:       customer.ID,
		MerchantID:       merchant.ID,
		InstalmentPlanID: "missing-plan",
	})
	assertKind(t, common.NotFound, err)
	assert.Equal(t, "Instalment plan not found", common.Message(err))

	var txns, payments int64
	db.Model(&models.Transaction{}).Count(&txns)
	db.Model(&models.InstalmentPayment{}).Count(&payments)
	assert.Zero(t, txns)
	assert.Zero(t, payments)
}

func TestCreateTransactionRejectsInvalidInput(t *testing.T) {
	db := setup(t)
	s := newStack(db)
	ctx := context.Background()

	customer := createCustomer(t, db, "0")
	merchant := createMerchant(t, db, "Corner Shop", "0", "0")
	plan := createPlan(t, db, 4, 8)

	inactive := createPlan(t, db, 2, 2)
	require.NoError(t, db.Model(&inactive).Update("status", models.PlanInactive).Error)

	capped := createPlan(t, db, 2, 2)
	require.NoError(t, db.Model(&capped).Updates(map[string]interface{}{"minimum_amount": dec("50"), "maximum_amount": dec("500")}).Error)

	tests := []struct {
		name string
		dto  CreateTransactionDTO
		kind common.Kind
	}{
		{"missing ids", CreateTransactionDTO{Amount: dec("100")}, common.Invalid},
		{"zero amount", CreateTransactionDTO{Amount: dec("0"), CustomerID: customer.ID, MerchantID: merchant.ID, InstalmentPlanID: plan.ID}, common.Invalid},
		{"sub-cent amount", CreateTransactionDTO{Amount: dec("10.001"), CustomerID: customer.ID, MerchantID: merchant.ID, InstalmentPlanID: plan.ID}, common.Invalid},
		{"inactive plan", CreateTransactionDTO{Amount: dec("100"), CustomerID: customer.ID, MerchantID: merchant.ID, InstalmentPlanID: inactive.ID}, common.Invalid},
		{"below plan minimum", CreateTransactionDTO{Amount: dec("20"), CustomerID: customer.ID, MerchantID: merchant.ID, InstalmentPlanID: capped.ID}, common.Invalid},
		{"above plan maximum", CreateTransactionDTO{Amount: dec("501"), CustomerID: customer.ID, MerchantID: merchant.ID, InstalmentPlanID: capped.ID}, common.Invalid},
		{"unknown customer", CreateTransactionDTO{Amount: dec("100"), CustomerID: "nobody", MerchantID: merchant.ID, InstalmentPlanID: plan.ID}, common.NotFound},
		{"unknown merchant", CreateTransactionDTO{Amount: dec("100"), CustomerID: customer.ID, MerchantID: "nobody", InstalmentPlanID: plan.ID}, common.NotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Transactions.Create(ctx, tt.dto)
			assertKind(t, tt.kind, err)
		})
	}
}

func TestCreateTransactionDuplicateReference(t *testing.T) {
	db := setup(t)
	s := newStack(db)
	ctx := context.Background()

	customer := createCustomer(t, db, "0")
	merchant := createMerchant(t, db, "Corner Shop", "0", "0")
	plan := createPlan(t, db, 2, 2)

	dto := CreateTransactionDTO{
		Amount:           dec("80"),
		CustomerID:       customer.ID,
		MerchantID:       merchant.ID,
		InstalmentPlanID: plan.ID,
		ReferenceNo:      "ORDER-1",
	}
	_, err := s.Transactions.Create(ctx, dto)
	require.NoError(t, err)

	_, err = s.Transactions.Create(ctx, dto)
	assertKind(t, common.Conflict, err)

	m := reload[models.Merchant](t, db, merchant.ID)
	assertDecimal(t, "80", m.WalletBalance, "the rejected transaction must not credit the wallet")
}

func TestGetByCustomerNewestFirst(t *testing.T) {
	db := setup(t)
	s := newStack(db)
	ctx := context.Background()

	customer := createCustomer(t, db, "0")
	other := createCustomer(t, db, "0")
	merchant := createMerchant(t, db, "Corner Shop", "0", "0")
	plan := createPlan(t, db, 2, 2)

	for _, d := range []time.Time{
		time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC),
	} {
		at := d
		_, err := s.Transactions.Create(ctx, CreateTransactionDTO{Amount: dec("40"), CustomerID: customer.ID, MerchantID: merchant.ID, InstalmentPlanID: plan.ID, DateOfTransaction: &at})
		require.NoError(t, err)
	}
	_, err := s.Transactions.Create(ctx, CreateTransactionDTO{Amount: dec("40"), CustomerID: other.ID, MerchantID: merchant.ID, InstalmentPlanID: plan.ID})
	require.NoError(t, err)

	txns, err := s.Transactions.GetByCustomer(ctx, customer.ID)
	require.NoError(t, err)
	require.Len(t, txns, 3)
	assert.Equal(t, time.March, txns[0].DateOfTransaction.UTC().Month())
	assert.Equal(t, time.February, txns[1].DateOfTransaction.UTC().Month())
	assert.Equal(t, time.January, txns[2].DateOfTransaction.UTC().Month())
	for _, txn := range txns {
		assert.Len(t, txn.InstalmentPayments, 2)
		assert.NotNil(t, txn.Merchant)
	}
}

func TestGetTransactionNotFound(t *testing.T) {
	db := setup(t)
	s := newStack(db)

	_, err := s.Transactions.GetByID(context.Background(), "missing")
	assertKind(t, common.NotFound, err)
	assert.Equal(t, "Transaction not found", common.Message(err))
}

func TestUpdateTransaction(t *testing.T) {
	db := setup(t)
	s := newStack(db)
	ctx := context.Background()

	customer := createCustomer(t, db, "0")
	merchant := createMerchant(t, db, "Corner Shop", "0", "500")
	plan := createPlan(t, db, 2, 2)
	txn := insertTransaction(t, db, customer, merchant, plan, "100", time.Now())

	t.Run("status cannot be forced", func(t *testing.T) {
		paid := models.TransactionFullyPaid
		_, err := s.Transactions.Update(ctx, admin, txn.ID, UpdateTransactionDTO{Status: &paid})
		assertKind(t, common.Conflict, err)

		got := reload[models.Transaction](t, db, txn.ID)
		assert.Equal(t, models.TransactionInProgress, got.Status)
	})

	t.Run("echoing the current status is allowed", func(t *testing.T) {
		same := models.TransactionInProgress
		ref := "NEW-REF"
		got, err := s.Transactions.Update(ctx, admin, txn.ID, UpdateTransactionDTO{Status: &same, ReferenceNo: &ref})
		require.NoError(t, err)
		assert.Equal(t, "NEW-REF", got.ReferenceNo)
	})

	t.Run("payout link", func(t *testing.T) {
		payout := models.MerchantPayment{MerchantID: merchant.ID, ToMerchantBankAccountNo: "123", Status: models.MerchantPaymentPending}
		require.NoError(t, db.Create(&payout).Error)

		got, err := s.Transactions.Update(ctx, admin, txn.ID, UpdateTransactionDTO{MerchantPaymentID: common.SomeID(payout.ID)})
		require.NoError(t, err)
		require.NotNil(t, got.MerchantPaymentID)
		assert.Equal(t, payout.ID, *got.MerchantPaymentID)

		got, err = s.Transactions.Update(ctx, admin, txn.ID, UpdateTransactionDTO{MerchantPaymentID: common.NullID()})
		require.NoError(t, err)
		assert.Nil(t, got.MerchantPaymentID)

		_, err = s.Transactions.Update(ctx, admin, txn.ID, UpdateTransactionDTO{MerchantPaymentID: common.SomeID("missing")})
		assertKind(t, common.NotFound, err)
	})

	t.Run("merchants only see their own transactions", func(t *testing.T) {
		ref := "OTHER"
		stranger := common.Actor{ID: "another-merchant", Role: common.RoleMerchant}
		_, err := s.Transactions.Update(ctx, stranger, txn.ID, UpdateTransactionDTO{ReferenceNo: &ref})
		assertKind(t, common.NotFound, err)
	})

	var audits int64
	db.Model(&models.AuditLog{}).Where("entity_type = ? AND entity_id = ?", "transaction", txn.ID).Count(&audits)
	assert.Equal(t, int64(3), audits)
}
