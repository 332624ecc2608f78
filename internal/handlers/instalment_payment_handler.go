package handlers

import (
	"net/http"

	"bnpl-service/internal/services"
	"bnpl-service/pkg/common"

	"github.com/gin-gonic/gin"
)

func (h *Handler) ListInstalmentPayments(c *gin.Context) {
	page := common.ParsePage(c.Query("page"), c.Query("limit"))
	payments, total, err := h.Ledger.GetAll(ctx(c), page)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, common.PaginateResponse(payments, total, page, ""))
}

func (h *Handler) GetOutstandingInstalments(c *gin.Context) {
	payments, err := h.Ledger.GetCustomerOutstanding(ctx(c), actor(c).ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, payments)
}

func (h *Handler) GetMerchantInstalments(c *gin.Context) {
	payments, err := h.Ledger.GetMerchantPayments(ctx(c), actor(c).ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, payments)
}

func (h *Handler) GetTransactionInstalments(c *gin.Context) {
	txn, err := h.Transactions.GetByID(ctx(c), c.Param("transaction_id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	if !canView(actor(c), txn.CustomerID, txn.MerchantID) {
		h.respondError(c, common.NotFoundErr("Transaction"))
		return
	}

	payments, err := h.Ledger.GetByTransaction(ctx(c), txn.ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, payments)
}

func (h *Handler) GetInstalmentPayment(c *gin.Context) {
	payment, err := h.Ledger.GetByID(ctx(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	if txn := payment.Transaction; txn == nil || !canView(actor(c), txn.CustomerID, txn.MerchantID) {
		h.respondError(c, common.NotFoundErr("Instalment payment"))
		return
	}
	c.JSON(http.StatusOK, payment)
}

func (h *Handler) UpdateInstalmentPayment(c *gin.Context) {
	var req services.UpdateInstalmentPaymentDTO
	if !h.bind(c, &req) {
		return
	}
	payment, err := h.Ledger.Update(ctx(c), actor(c), c.Param("id"), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, payment)
}
