package handlers

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"bnpl-service/internal/middleware"
	"bnpl-service/internal/models"
	"bnpl-service/internal/services"
	"bnpl-service/pkg/common"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	jwtSecret     = "handler-test-secret"
	webhookSecret = "whsec_handlers"
)

var testDB *gorm.DB

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open("file:handlers_test?mode=memory&cache=shared"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		panic(err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		panic(err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(models.All()...); err != nil {
		panic(err)
	}
	testDB = db
	os.Exit(m.Run())
}

type fixture struct {
	db       *gorm.DB
	router   *gin.Engine
	customer models.Customer
	merchant models.Merchant
	plan     models.InstalmentPlan
}

func setup(t *testing.T) *fixture {
	t.Helper()
	db := testDB
	clean := func() {
		all := models.All()
		for i := len(all) - 1; i >= 0; i-- {
			db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(all[i])
		}
	}
	clean()
	t.Cleanup(clean)

	nop := zap.NewNop()
	cashback := services.NewCashbackService(db, nop)
	ledger := services.NewInstalmentPaymentService(db, nop, cashback, nil)
	h := &Handler{
		Transactions: services.NewTransactionService(db, nop, ledger, nil),
		Ledger:       ledger,
		Payouts:      services.NewMerchantPaymentService(db, nop, nil, 1),
		Payments:     services.NewPaymentService(db, nop, ledger, nil),
		Tiers:        services.NewTierService(db, nop),
		Cashback:     cashback,
		TopUps:       services.NewTopUpService(db, nop, nil, nil, webhookSecret, 5*time.Minute, "sgd"),
		Logger:       nop,
	}
	r := gin.New()
	h.RegisterRoutes(r, jwtSecret)

	f := &fixture{db: db, router: r}
	f.customer = models.Customer{Name: "Ann", Email: uuid.NewString() + "@example.com", WalletBalance: decimal.NewFromInt(500)}
	require.NoError(t, db.Create(&f.customer).Error)
	f.merchant = models.Merchant{Name: "Corner Shop", Email: uuid.NewString() + "@example.com", WalletBalance: decimal.NewFromInt(60000)}
	require.NoError(t, db.Create(&f.merchant).Error)
	f.plan = models.InstalmentPlan{Name: "Pay in 3", NumberOfInstalments: 3, TimePeriod: 3, Status: models.PlanActive}
	require.NoError(t, db.Create(&f.plan).Error)
	return f
}

func token(t *testing.T, id string, role common.Role) string {
	t.Helper()
	tok, err := middleware.GenerateToken(jwtSecret, common.Actor{ID: id, Role: role}, time.Hour)
	require.NoError(t, err)
	return tok
}

func (f *fixture) do(method, path, tok string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), dst), w.Body.String())
}

func TestPing(t *testing.T) {
	f := setup(t)
	w := f.do(http.MethodGet, "/ping", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestTransactionRoutes(t *testing.T) {
	f := setup(t)
	cust := token(t, f.customer.ID, common.RoleCustomer)

	w := f.do(http.MethodPost, "/transaction", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do(http.MethodPost, "/transaction", cust, map[string]interface{}{
		"amount":             "300",
		"merchant_id":        f.merchant.ID,
		"instalment_plan_id": f.plan.ID,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created models.Transaction
	decode(t, w, &created)
	assert.Equal(t, f.customer.ID, created.CustomerID, "customer id defaults to the caller")
	assert.Len(t, created.InstalmentPayments, 3)

	w = f.do(http.MethodPost, "/transaction", cust, map[string]interface{}{
		"amount":             "300",
		"customer_id":        "someone-else",
		"merchant_id":        f.merchant.ID,
		"instalment_plan_id": f.plan.ID,
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do(http.MethodGet, "/transaction/user", cust, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var mine []models.Transaction
	decode(t, w, &mine)
	assert.Len(t, mine, 1)

	w = f.do(http.MethodGet, "/transaction/"+created.ID, cust, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = f.do(http.MethodGet, "/transaction/missing", cust, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"status":"error","statusCode":404,"message":"Transaction not found"}`, w.Body.String())

	w = f.do(http.MethodPut, "/transaction/"+created.ID, cust, map[string]string{"reference_no": "X"})
	assert.Equal(t, http.StatusUnauthorized, w.Code, "customers cannot edit transactions")

	w = f.do(http.MethodPut, "/transaction/"+created.ID, token(t, "admin", common.RoleAdmin), map[string]string{"status": "FULLY_PAID"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = f.do(http.MethodPost, "/transaction", cust, "not an object")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTransactionAccess(t *testing.T) {
	f := setup(t)
	cust := token(t, f.customer.ID, common.RoleCustomer)
	merchant := token(t, f.merchant.ID, common.RoleMerchant)

	t.Run("merchants cannot create transactions", func(t *testing.T) {
		w := f.do(http.MethodPost, "/transaction", merchant, map[string]interface{}{
			"amount":             "300",
			"customer_id":        f.customer.ID,
			"merchant_id":        f.merchant.ID,
			"instalment_plan_id": f.plan.ID,
		})
		assert.Equal(t, http.StatusUnauthorized, w.Code)

		var m models.Merchant
		require.NoError(t, f.db.First(&m, "id = ?", f.merchant.ID).Error)
		assert.True(t, m.WalletBalance.Equal(decimal.NewFromInt(60000)), m.WalletBalance.String())
		var count int64
		f.db.Model(&models.Transaction{}).Count(&count)
		assert.Zero(t, count)
	})

	w := f.do(http.MethodPost, "/transaction", cust, map[string]interface{}{
		"amount": "300", "merchant_id": f.merchant.ID, "instalment_plan_id": f.plan.ID,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var txn models.Transaction
	decode(t, w, &txn)
	instalment := txn.InstalmentPayments[0].ID

	paths := []string{
		"/transaction/" + txn.ID,
		"/instalment-payment/" + instalment,
		"/instalment-payment/transaction/" + txn.ID,
	}

	t.Run("outsiders see not found", func(t *testing.T) {
		outsiders := map[string]string{
			"other customer": token(t, "other-customer", common.RoleCustomer),
			"other merchant": token(t, "other-merchant", common.RoleMerchant),
		}
		for name, tok := range outsiders {
			for _, path := range paths {
				w := f.do(http.MethodGet, path, tok, nil)
				assert.Equal(t, http.StatusNotFound, w.Code, "%s %s", name, path)
			}
		}
	})

	t.Run("parties and admins can read", func(t *testing.T) {
		readers := map[string]string{
			"customer": cust,
			"merchant": merchant,
			"admin":    token(t, "admin", common.RoleAdmin),
		}
		for name, tok := range readers {
			for _, path := range paths {
				w := f.do(http.MethodGet, path, tok, nil)
				assert.Equal(t, http.StatusOK, w.Code, "%s %s", name, path)
			}
		}
	})
}

func TestInstalmentPaymentRoutes(t *testing.T) {
	f := setup(t)
	cust := token(t, f.customer.ID, common.RoleCustomer)
	admin := token(t, "admin", common.RoleAdmin)

	w := f.do(http.MethodPost, "/transaction", cust, map[string]interface{}{
		"amount": "300", "merchant_id": f.merchant.ID, "instalment_plan_id": f.plan.ID,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var txn models.Transaction
	decode(t, w, &txn)

	w = f.do(http.MethodGet, "/instalment-payment?page=1&limit=2", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var page common.PaginationResult
	decode(t, w, &page)
	assert.Equal(t, int64(3), page.Count)
	assert.Equal(t, 2, page.LastPage)

	w = f.do(http.MethodGet, "/instalment-payment", cust, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do(http.MethodGet, "/instalment-payment/outstanding", cust, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var outstanding []models.InstalmentPayment
	decode(t, w, &outstanding)
	assert.Len(t, outstanding, 3)

	w = f.do(http.MethodGet, "/instalment-payment/transaction/"+txn.ID, cust, nil)
	require.Equal(t, http.StatusOK, w.Code)

	first := txn.InstalmentPayments[0].ID
	w = f.do(http.MethodPost, "/payment/instalment", cust, map[string]string{"instalment_payment_id": first})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = f.do(http.MethodPut, "/instalment-payment/"+first, admin, map[string]string{"status": "UNPAID"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = f.do(http.MethodGet, "/payment/history", cust, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var history []models.PaymentHistory
	decode(t, w, &history)
	assert.Len(t, history, 1)

	w = f.do(http.MethodGet, "/cashback-wallet", cust, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMerchantPaymentRoutes(t *testing.T) {
	f := setup(t)
	merchant := token(t, f.merchant.ID, common.RoleMerchant)
	admin := token(t, "admin", common.RoleAdmin)

	size := models.MerchantSize{Name: "SME", MonthlyRevenueMin: decimal.Zero}
	require.NoError(t, f.db.Create(&size).Error)
	rate := models.WithdrawalFeeRate{Name: "Big business", MerchantSizeID: size.ID, WalletBalanceMin: decimal.NewFromInt(50000), PercentageTransactionFee: decimal.NewFromInt(2), PercentageWithdrawalFee: decimal.RequireFromString("0.5")}
	require.NoError(t, f.db.Create(&rate).Error)

	w := f.do(http.MethodGet, "/merchantPayment/withdrawal-info", merchant, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(http.MethodPost, "/merchantPayment", merchant, map[string]string{
		"total_amount_from_transactions": "1000",
		"to_merchant_bank_account_no":    "001-234",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var payout models.MerchantPayment
	decode(t, w, &payout)
	assert.True(t, payout.FinalPaymentAmount.Equal(decimal.NewFromInt(975)))

	w = f.do(http.MethodPost, "/merchantPayment", merchant, map[string]string{
		"total_amount_from_transactions": "1000000",
		"to_merchant_bank_account_no":    "001-234",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(http.MethodGet, "/merchantPayment?search=corner", merchant, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var listed []models.MerchantPayment
	decode(t, w, &listed)
	assert.Len(t, listed, 1)

	other := token(t, "another-merchant", common.RoleMerchant)
	w = f.do(http.MethodGet, "/merchantPayment/"+payout.ID, other, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(http.MethodPost, "/merchantPayment/filter", admin, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	from := time.Now().Add(-time.Hour).UTC().Format(time.RFC3339)
	to := time.Now().Add(time.Hour).UTC().Format(time.RFC3339)
	w = f.do(http.MethodPost, "/merchantPayment/filter", admin, map[string]string{"create_from": from, "create_to": to})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("status", "PAID"))
	part, err := mw.CreateFormFile("evidence", "receipt.pdf")
	require.NoError(t, err)
	_, _ = part.Write([]byte("%PDF-1.4 receipt"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPut, "/merchantPayment/"+payout.ID, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+admin)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var stored models.MerchantPayment
	require.NoError(t, f.db.First(&stored, "id = ?", payout.ID).Error)
	assert.Equal(t, models.MerchantPaymentPaid, stored.Status)
	assert.Equal(t, []byte("%PDF-1.4 receipt"), stored.Evidence)

	body.Reset()
	mw = multipart.NewWriter(&body)
	part, err = mw.CreateFormFile("evidence", "huge.pdf")
	require.NoError(t, err)
	_, _ = part.Write(bytes.Repeat([]byte("x"), services.MaxEvidenceSize+1))
	require.NoError(t, mw.Close())
	req = httptest.NewRequest(http.MethodPut, "/merchantPayment/"+payout.ID, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+admin)
	rec = httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "evidence over 10MB is refused")
	require.NoError(t, f.db.First(&stored, "id = ?", payout.ID).Error)
	assert.Equal(t, []byte("%PDF-1.4 receipt"), stored.Evidence)

	w = f.do(http.MethodPut, "/merchantPayment/"+payout.ID, admin, map[string]string{"status": "PENDING_PAYMENT"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = f.do(http.MethodGet, "/withdrawal-fee-rate", merchant, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = f.do(http.MethodGet, "/merchant-size", merchant, nil)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestStripeWebhookRoute(t *testing.T) {
	f := setup(t)

	payload := []byte(`{"id":"evt_h1","type":"payment_intent.succeeded","data":{"object":{"id":"pi","amount":2500,"amount_received":2500,"currency":"sgd","metadata":{"customer_id":"` + f.customer.ID + `"}}}}`)

	send := func(sig string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/webhook/stripe", bytes.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		if sig != "" {
			req.Header.Set("Stripe-Signature", sig)
		}
		w := httptest.NewRecorder()
		f.router.ServeHTTP(w, req)
		return w
	}

	w := send(services.SignStripePayload(payload, webhookSecret, time.Now()))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"message":"Received webhook"}`, w.Body.String())

	w = send(services.SignStripePayload(payload, webhookSecret, time.Now()))
	assert.Equal(t, http.StatusOK, w.Code, "redelivery is acknowledged")

	w = send("")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var c models.Customer
	require.NoError(t, f.db.First(&c, "id = ?", f.customer.ID).Error)
	assert.True(t, c.WalletBalance.Equal(decimal.NewFromInt(525)), c.WalletBalance.String())
}
