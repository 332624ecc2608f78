package handlers

import (
	"io"
	"net/http"
	"strings"

	"bnpl-service/internal/models"
	"bnpl-service/internal/services"
	"bnpl-service/pkg/common"

	"github.com/gin-gonic/gin"
)

func (h *Handler) CreateMerchantPayment(c *gin.Context) {
	var req services.CreateMerchantPaymentDTO
	if !h.bind(c, &req) {
		return
	}
	a := actor(c)
	payout, err := h.Payouts.CreatePayment(ctx(c), a, a.ID, req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, payout)
}

// GetMerchantPayments lists a merchant's own payouts; admins see every
// merchant unless merchant_id narrows the list.
func (h *Handler) GetMerchantPayments(c *gin.Context) {
	merchantID := c.Query("merchant_id")
	if a := actor(c); a.Role == common.RoleMerchant {
		merchantID = a.ID
	}
	payouts, err := h.Payouts.GetPayments(ctx(c), merchantID, c.Query("search"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, payouts)
}

func (h *Handler) FilterMerchantPayments(c *gin.Context) {
	var req services.MerchantPaymentFilterDTO
	if !h.bind(c, &req) {
		return
	}
	payouts, err := h.Payouts.ListByFilter(ctx(c), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, payouts)
}

func (h *Handler) GetWithdrawalInfo(c *gin.Context) {
	info, err := h.Payouts.CalculateWithdrawalInfo(ctx(c), actor(c).ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

func (h *Handler) GetMerchantPayment(c *gin.Context) {
	payout, err := h.Payouts.GetByID(ctx(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	if a := actor(c); a.Role == common.RoleMerchant && payout.MerchantID != a.ID {
		h.respondError(c, common.NotFoundErr("Merchant payment"))
		return
	}
	c.JSON(http.StatusOK, payout)
}

// UpdateMerchantPayment accepts JSON with base64 evidence, or a multipart
// form with a "status" field and an "evidence" file.
func (h *Handler) UpdateMerchantPayment(c *gin.Context) {
	var req services.UpdateMerchantPaymentDTO
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		if err := h.bindEvidenceForm(c, &req); err != nil {
			h.respondError(c, err)
			return
		}
	} else if !h.bind(c, &req) {
		return
	}

	payout, err := h.Payouts.UpdatePayment(ctx(c), actor(c), c.Param("id"), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, payout)
}

func (h *Handler) bindEvidenceForm(c *gin.Context, req *services.UpdateMerchantPaymentDTO) error {
	if status := c.PostForm("status"); status != "" {
		s := models.MerchantPaymentStatus(status)
		req.Status = &s
	}
	fh, err := c.FormFile("evidence")
	if err == http.ErrMissingFile {
		return nil
	}
	if err != nil {
		return common.InvalidBodyErr(err)
	}
	if fh.Size > services.MaxEvidenceSize {
		return common.E(common.Invalid, "evidence exceeds 10MB", nil)
	}
	f, err := fh.Open()
	if err != nil {
		return common.InvalidBodyErr(err)
	}
	defer f.Close()

	// One byte past the cap lets the service reject an oversize file.
	req.Evidence, err = io.ReadAll(io.LimitReader(f, services.MaxEvidenceSize+1))
	if err != nil {
		return common.InvalidBodyErr(err)
	}
	return nil
}
