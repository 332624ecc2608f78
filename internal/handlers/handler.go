package handlers

import (
	"context"
	"net/http"

	"bnpl-service/internal/middleware"
	"bnpl-service/internal/services"
	"bnpl-service/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler adapts HTTP requests onto the services.
type Handler struct {
	Transactions *services.TransactionService
	Ledger       *services.InstalmentPaymentService
	Payouts      *services.MerchantPaymentService
	Payments     *services.PaymentService
	Tiers        *services.TierService
	Cashback     *services.CashbackService
	TopUps       *services.TopUpService
	Logger       *zap.Logger
}

// RegisterRoutes mounts every route on r. Authenticated routes resolve the
// actor from a bearer token signed with jwtSecret.
func (h *Handler) RegisterRoutes(r *gin.Engine, jwtSecret string) {
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	r.POST("/webhook/stripe", h.StripeWebhook)

	auth := middleware.RequireAuth(jwtSecret)
	customer := middleware.RequireRole(common.RoleCustomer)
	merchant := middleware.RequireRole(common.RoleMerchant)
	admin := middleware.RequireRole(common.RoleAdmin)
	merchantOrAdmin := middleware.RequireRole(common.RoleMerchant, common.RoleAdmin)
	customerOrAdmin := middleware.RequireRole(common.RoleCustomer, common.RoleAdmin)

	api := r.Group("/", auth)

	api.GET("/merchant-size", h.ListMerchantSizes)
	api.GET("/withdrawal-fee-rate", h.ListWithdrawalFeeRates)

	txn := api.Group("/transaction")
	txn.POST("", customerOrAdmin, h.CreateTransaction)
	txn.GET("/user", customer, h.GetCustomerTransactions)
	txn.GET("/:id", h.GetTransaction)
	txn.PUT("/:id", merchantOrAdmin, h.UpdateTransaction)

	ledger := api.Group("/instalment-payment")
	ledger.GET("", admin, h.ListInstalmentPayments)
	ledger.GET("/outstanding", customer, h.GetOutstandingInstalments)
	ledger.GET("/merchant", merchant, h.GetMerchantInstalments)
	ledger.GET("/transaction/:transaction_id", h.GetTransactionInstalments)
	ledger.GET("/:id", h.GetInstalmentPayment)
	ledger.PUT("/:id", admin, h.UpdateInstalmentPayment)

	pay := api.Group("/payment", customer)
	pay.POST("/instalment", h.PayInstalment)
	pay.GET("/history", h.GetPaymentHistory)

	api.GET("/cashback-wallet", customer, h.GetCashbackWallets)

	payout := api.Group("/merchantPayment")
	payout.POST("", merchant, h.CreateMerchantPayment)
	payout.GET("", merchantOrAdmin, h.GetMerchantPayments)
	payout.POST("/filter", admin, h.FilterMerchantPayments)
	payout.GET("/withdrawal-info", merchant, h.GetWithdrawalInfo)
	payout.GET("/:id", merchantOrAdmin, h.GetMerchantPayment)
	payout.PUT("/:id", admin, h.UpdateMerchantPayment)
}

// ctx detaches the service call from the client connection.
func ctx(c *gin.Context) context.Context {
	return context.WithoutCancel(c.Request.Context())
}

func actor(c *gin.Context) common.Actor {
	a, _ := middleware.ActorFrom(c)
	return a
}

// respondError writes the error body for err. Causes of 500s are logged and
// never returned.
func (h *Handler) respondError(c *gin.Context, err error) {
	resp := common.NewErrorResponseFrom(err)
	if resp.StatusCode >= http.StatusInternalServerError {
		h.Logger.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err))
	}
	c.AbortWithStatusJSON(resp.StatusCode, resp)
}

// canView reports whether a may read records belonging to the given customer
// and merchant. Admins see everything.
func canView(a common.Actor, customerID, merchantID string) bool {
	switch a.Role {
	case common.RoleAdmin:
		return true
	case common.RoleCustomer:
		return a.ID == customerID
	case common.RoleMerchant:
		return a.ID == merchantID
	}
	return false
}

func (h *Handler) bind(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		h.respondError(c, common.InvalidBodyErr(err))
		return false
	}
	return true
}
