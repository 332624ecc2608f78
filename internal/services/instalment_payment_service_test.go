package services

import (
	"context"
	"testing"
	"time"

	"bnpl-service/internal/models"
	"bnpl-service/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTransaction(t *testing.T, s *stack, customer models.Customer, merchant models.Merchant, plan models.InstalmentPlan, amount string) *models.Transaction {
	t.Helper()
	txn, err := s.Transactions.Create(context.Background(), CreateTransactionDTO{
		Amount:           dec(amount),
		CustomerID:       customer.ID,
		MerchantID:       merchant.ID,
		InstalmentPlanID: plan.ID,
	})
	require.NoError(t, err)
	return txn
}

func markPaid(t *testing.T, s *stack, id string) *models.InstalmentPayment {
	t.Helper()
	paid := models.InstalmentPaid
	p, err := s.Ledger.Update(context.Background(), admin, id, UpdateInstalmentPaymentDTO{Status: &paid})
	require.NoError(t, err)
	return p
}

func TestMarkingLastInstalmentCompletesTransaction(t *testing.T) {
	db := setup(t)
	s := newStack(db)

	customer := createCustomer(t, db, "0")
	merchant := createMerchant(t, db, "Corner Shop", "5", "0")
	plan := createPlan(t, db, 3, 3)
	txn := newTransaction(t, s, customer, merchant, plan, "300")
	require.Len(t, txn.InstalmentPayments, 3)

	for i, p := range txn.InstalmentPayments[:2] {
		got := markPaid(t, s, p.ID)
		assert.Equal(t, models.InstalmentPaid, got.Status)
		require.NotNil(t, got.PaidDate)

		current := reload[models.Transaction](t, db, txn.ID)
		assert.Equal(t, models.TransactionInProgress, current.Status, "after instalment %d", i+1)
		assert.Nil(t, current.FullyPaidDate)
	}

	var wallets int64
	db.Model(&models.CashbackWallet{}).Count(&wallets)
	assert.Zero(t, wallets, "no cashback before completion")

	markPaid(t, s, txn.InstalmentPayments[2].ID)

	done := reload[models.Transaction](t, db, txn.ID)
	assert.Equal(t, models.TransactionFullyPaid, done.Status)
	require.NotNil(t, done.FullyPaidDate)

	var wallet models.CashbackWallet
	require.NoError(t, db.Where("customer_id = ? AND merchant_id = ?", customer.ID, merchant.ID).First(&wallet).Error)
	assertDecimal(t, "15", wallet.WalletBalance, "5% of 300")

	var high int
	for _, n := range s.Notifier.sent {
		if n.Title == "Transaction fully paid" {
			assert.Equal(t, models.PriorityHigh, n.Priority)
			high++
		}
	}
	assert.Equal(t, 2, high, "customer and merchant are told once each")
}

func TestCompletionHappensOnce(t *testing.T) {
	db := setup(t)
	s := newStack(db)

	customer := createCustomer(t, db, "0")
	merchant := createMerchant(t, db, "Corner Shop", "10", "0")
	plan := createPlan(t, db, 1, 1)
	txn := newTransaction(t, s, customer, merchant, plan, "50")

	markPaid(t, s, txn.InstalmentPayments[0].ID)
	first := reload[models.Transaction](t, db, txn.ID)
	require.NotNil(t, first.FullyPaidDate)

	paid := models.InstalmentPaid
	_, err := s.Ledger.Update(context.Background(), admin, txn.InstalmentPayments[0].ID, UpdateInstalmentPaymentDTO{Status: &paid})
	assertKind(t, common.Conflict, err)

	// A direct re-check must not flip or award again.
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		done, err := completeIfSettled(tx, s.Cashback, txn.ID, time.Now().UTC())
		assert.Nil(t, done)
		return err
	}))

	again := reload[models.Transaction](t, db, txn.ID)
	assert.True(t, first.FullyPaidDate.Equal(*again.FullyPaidDate), "fully_paid_date is set exactly once")

	var wallet models.CashbackWallet
	require.NoError(t, db.Where("customer_id = ?", customer.ID).First(&wallet).Error)
	assertDecimal(t, "5", wallet.WalletBalance)
}

func TestCashbackAccumulatesPerMerchant(t *testing.T) {
	db := setup(t)
	s := newStack(db)

	customer := createCustomer(t, db, "0")
	merchant := createMerchant(t, db, "Corner Shop", "10", "0")
	plan := createPlan(t, db, 1, 1)

	for _, amount := range []string{"50", "30"} {
		txn := newTransaction(t, s, customer, merchant, plan, amount)
		markPaid(t, s, txn.InstalmentPayments[0].ID)
	}

	wallets, err := s.Cashback.GetByCustomer(context.Background(), customer.ID)
	require.NoError(t, err)
	require.Len(t, wallets, 1)
	assertDecimal(t, "8", wallets[0].WalletBalance)
	require.NotNil(t, wallets[0].Merchant)
	assert.Equal(t, "Corner Shop", wallets[0].Merchant.Name)
}

func TestUpdateRejectsReopeningAndBadInput(t *testing.T) {
	db := setup(t)
	s := newStack(db)
	ctx := context.Background()

	customer := createCustomer(t, db, "0")
	merchant := createMerchant(t, db, "Corner Shop", "0", "0")
	plan := createPlan(t, db, 2, 2)
	txn := newTransaction(t, s, customer, merchant, plan, "100")
	first, second := txn.InstalmentPayments[0], txn.InstalmentPayments[1]

	markPaid(t, s, first.ID)

	unpaid := models.InstalmentUnpaid
	_, err := s.Ledger.Update(ctx, admin, first.ID, UpdateInstalmentPaymentDTO{Status: &unpaid})
	assertKind(t, common.Conflict, err)

	bogus := models.InstalmentPaymentStatus("REFUNDED")
	_, err = s.Ledger.Update(ctx, admin, second.ID, UpdateInstalmentPaymentDTO{Status: &bogus})
	assertKind(t, common.Invalid, err)

	negative := dec("-1")
	_, err = s.Ledger.Update(ctx, admin, second.ID, UpdateInstalmentPaymentDTO{LatePaymentAmountDue: &negative})
	assertKind(t, common.Invalid, err)

	when := time.Now()
	_, err = s.Ledger.Update(ctx, admin, second.ID, UpdateInstalmentPaymentDTO{PaidDate: &when})
	assertKind(t, common.Invalid, err)

	_, err = s.Ledger.Update(ctx, admin, "missing", UpdateInstalmentPaymentDTO{})
	assertKind(t, common.NotFound, err)
	assert.Equal(t, "Instalment payment not found", common.Message(err))

	late := dec("7.50")
	got, err := s.Ledger.Update(ctx, admin, second.ID, UpdateInstalmentPaymentDTO{LatePaymentAmountDue: &late})
	require.NoError(t, err)
	assertDecimal(t, "7.5", got.LatePaymentAmountDue)
	assertDecimal(t, "57.5", got.TotalDue())
	assert.Equal(t, models.TransactionInProgress, reload[models.Transaction](t, db, txn.ID).Status,
		"non-status updates never complete a transaction")
}

func TestDiscountLinksAreConnectOnly(t *testing.T) {
	db := setup(t)
	s := newStack(db)
	ctx := context.Background()

	customer := createCustomer(t, db, "0")
	merchant := createMerchant(t, db, "Corner Shop", "0", "0")
	plan := createPlan(t, db, 2, 2)
	txn := newTransaction(t, s, customer, merchant, plan, "100")
	id := txn.InstalmentPayments[0].ID

	voucher := models.Voucher{Title: "Ten off", AmountDiscount: dec("10"), ExpiryDate: time.Now().Add(24 * time.Hour), UsageLimit: 1, IsActive: true}
	require.NoError(t, db.Create(&voucher).Error)
	va := models.VoucherAssigned{VoucherID: voucher.ID, CustomerID: customer.ID, Status: models.VoucherAvailable, RemainingUses: 1}
	require.NoError(t, db.Create(&va).Error)
	vb := models.VoucherAssigned{VoucherID: voucher.ID, CustomerID: customer.ID, Status: models.VoucherAvailable, RemainingUses: 1}
	require.NoError(t, db.Create(&vb).Error)

	_, err := s.Ledger.Update(ctx, admin, id, UpdateInstalmentPaymentDTO{VoucherAssignedID: common.SomeID("missing")})
	assertKind(t, common.NotFound, err)

	// null on an unlinked payment is a no-op
	_, err = s.Ledger.Update(ctx, admin, id, UpdateInstalmentPaymentDTO{VoucherAssignedID: common.NullID()})
	require.NoError(t, err)

	got, err := s.Ledger.Update(ctx, admin, id, UpdateInstalmentPaymentDTO{VoucherAssignedID: common.SomeID(va.ID)})
	require.NoError(t, err)
	require.NotNil(t, got.VoucherAssignedID)
	assert.Equal(t, va.ID, *got.VoucherAssignedID)

	discount := dec("10")
	got, err = s.Ledger.Update(ctx, admin, id, UpdateInstalmentPaymentDTO{AmountDiscountFromVoucher: &discount})
	require.NoError(t, err)
	require.NotNil(t, got.VoucherAssignedID, "omitting the link leaves it in place")

	_, err = s.Ledger.Update(ctx, admin, id, UpdateInstalmentPaymentDTO{VoucherAssignedID: common.NullID()})
	assertKind(t, common.Conflict, err)

	_, err = s.Ledger.Update(ctx, admin, id, UpdateInstalmentPaymentDTO{VoucherAssignedID: common.SomeID(vb.ID)})
	assertKind(t, common.Conflict, err)

	_, err = s.Ledger.Update(ctx, admin, id, UpdateInstalmentPaymentDTO{VoucherAssignedID: common.SomeID(va.ID)})
	require.NoError(t, err, "reconnecting the same voucher is harmless")
}

func TestLedgerQueries(t *testing.T) {
	db := setup(t)
	s := newStack(db)
	ctx := context.Background()

	customer := createCustomer(t, db, "0")
	other := createCustomer(t, db, "0")
	merchant := createMerchant(t, db, "Corner Shop", "0", "0")
	rival := createMerchant(t, db, "Rival", "0", "0")
	plan := createPlan(t, db, 3, 3)

	mine := newTransaction(t, s, customer, merchant, plan, "90")
	newTransaction(t, s, other, rival, plan, "60")
	markPaid(t, s, mine.InstalmentPayments[0].ID)

	t.Run("by transaction in instalment order", func(t *testing.T) {
		got, err := s.Ledger.GetByTransaction(ctx, mine.ID)
		require.NoError(t, err)
		require.Len(t, got, 3)
		for i, p := range got {
			assert.Equal(t, i+1, p.InstalmentNumber)
		}

		_, err = s.Ledger.GetByTransaction(ctx, "missing")
		assertKind(t, common.NotFound, err)
	})

	t.Run("customer outstanding", func(t *testing.T) {
		got, err := s.Ledger.GetCustomerOutstanding(ctx, customer.ID)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.True(t, got[0].DueDate.Before(got[1].DueDate))
		for _, p := range got {
			assert.Equal(t, models.InstalmentUnpaid, p.Status)
			require.NotNil(t, p.Transaction)
			require.NotNil(t, p.Transaction.Merchant)
			assert.Equal(t, merchant.ID, p.Transaction.Merchant.ID)
		}
	})

	t.Run("merchant instalments", func(t *testing.T) {
		got, err := s.Ledger.GetMerchantPayments(ctx, rival.ID)
		require.NoError(t, err)
		assert.Len(t, got, 3)
	})

	t.Run("paged", func(t *testing.T) {
		got, total, err := s.Ledger.GetAll(ctx, common.Page{Number: 2, Limit: 4})
		require.NoError(t, err)
		assert.Equal(t, int64(6), total)
		assert.Len(t, got, 2)
	})

	t.Run("by id", func(t *testing.T) {
		got, err := s.Ledger.GetByID(ctx, mine.InstalmentPayments[0].ID)
		require.NoError(t, err)
		require.NotNil(t, got.Transaction)
		assert.Equal(t, mine.ID, got.Transaction.ID)
	})
}
