package handlers

import (
	"net/http"

	"bnpl-service/internal/services"
	"bnpl-service/pkg/common"

	"github.com/gin-gonic/gin"
)

func (h *Handler) CreateTransaction(c *gin.Context) {
	var req services.CreateTransactionDTO
	if !h.bind(c, &req) {
		return
	}
	// Customers may only buy for themselves.
	if a := actor(c); a.Role == common.RoleCustomer {
		if req.CustomerID == "" {
			req.CustomerID = a.ID
		}
		if req.CustomerID != a.ID {
			h.respondError(c, common.E(common.Unauthorized, "Customers can only create their own transactions", nil))
			return
		}
	}

	txn, err := h.Transactions.Create(ctx(c), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, txn)
}

func (h *Handler) GetCustomerTransactions(c *gin.Context) {
	txns, err := h.Transactions.GetByCustomer(ctx(c), actor(c).ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, txns)
}

func (h *Handler) GetTransaction(c *gin.Context) {
	txn, err := h.Transactions.GetByID(ctx(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	if !canView(actor(c), txn.CustomerID, txn.MerchantID) {
		h.respondError(c, common.NotFoundErr("Transaction"))
		return
	}
	c.JSON(http.StatusOK, txn)
}

func (h *Handler) UpdateTransaction(c *gin.Context) {
	var req services.UpdateTransactionDTO
	if !h.bind(c, &req) {
		return
	}
	txn, err := h.Transactions.Update(ctx(c), actor(c), c.Param("id"), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, txn)
}
