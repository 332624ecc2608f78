package handlers

import (
	"io"
	"net/http"

	"bnpl-service/internal/services"
	"bnpl-service/pkg/common"

	"github.com/gin-gonic/gin"
)

const maxWebhookBody = 1 << 20

func (h *Handler) PayInstalment(c *gin.Context) {
	var req services.PayInstalmentDTO
	if !h.bind(c, &req) {
		return
	}
	payment, err := h.Payments.PayInstalment(ctx(c), actor(c).ID, req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, payment)
}

func (h *Handler) GetPaymentHistory(c *gin.Context) {
	history, err := h.Payments.GetPaymentHistory(ctx(c), actor(c).ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, history)
}

func (h *Handler) GetCashbackWallets(c *gin.Context) {
	wallets, err := h.Cashback.GetByCustomer(ctx(c), actor(c).ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, wallets)
}

// StripeWebhook needs the raw body: the signature covers the exact bytes.
func (h *Handler) StripeWebhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		h.respondError(c, common.InvalidBodyErr(err))
		return
	}
	if _, err := h.TopUps.HandleStripeWebhook(ctx(c), payload, c.GetHeader("Stripe-Signature")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Received webhook"})
}

func (h *Handler) ListMerchantSizes(c *gin.Context) {
	sizes, err := h.Tiers.ListMerchantSizes(ctx(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sizes)
}

func (h *Handler) ListWithdrawalFeeRates(c *gin.Context) {
	rates, err := h.Tiers.ListWithdrawalFeeRates(ctx(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rates)
}
