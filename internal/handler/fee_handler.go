package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-fees-api/internal/service"
	appErrors "github.com/noah-isme/school-fees-api/pkg/errors"
	"github.com/noah-isme/school-fees-api/pkg/response"
)

// FeeHandler exposes the fee ledger endpoints.
type FeeHandler struct {
	fees *service.FeeService
}

// NewFeeHandler constructs FeeHandler.
func NewFeeHandler(fees *service.FeeService) *FeeHandler {
	return &FeeHandler{fees: fees}
}

// RecordPayment godoc
// @Summary Record a manual fee payment
// @Description Office entry for cash or UPI payments; kit fees can only be collected here.
// @Tags Fees
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body service.AdminPaymentRequest true "Payment payload"
// @Success 201 {object} response.Envelope
// @Router /students/{id}/fees/payments [post]
func (h *FeeHandler) RecordPayment(c *gin.Context) {
	var req service.AdminPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.fees.RecordAdminPayment(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Pay godoc
// @Summary Record a student-initiated payment
// @Description Self-service payment; the kit component is not accepted on this path.
// @Tags Fees
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body service.SelfPaymentRequest true "Payment payload"
// @Success 201 {object} response.Envelope
// @Router /students/{id}/fees/pay [post]
func (h *FeeHandler) Pay(c *gin.Context) {
	var req service.SelfPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.fees.RecordSelfPayment(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Verify godoc
// @Summary Verify and record a gateway payment
// @Description Checks the gateway signature before anything is applied; a mismatch records nothing.
// @Tags Fees
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body service.GatewayPaymentRequest true "Gateway callback payload"
// @Success 201 {object} response.Envelope
// @Router /students/{id}/fees/verify [post]
func (h *FeeHandler) Verify(c *gin.Context) {
	var req service.GatewayPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.fees.RecordGatewayPayment(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Summary godoc
// @Summary Get fee structure and payment history
// @Tags Fees
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/fees [get]
func (h *FeeHandler) Summary(c *gin.Context) {
	summary, err := h.fees.GetSummary(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// Receipt godoc
// @Summary Download a payment receipt
// @Tags Fees
// @Produce application/pdf
// @Param id path string true "Student ID"
// @Param paymentId path string true "Payment ID"
// @Success 200 {file} binary
// @Router /students/{id}/fees/payments/{paymentId}/receipt [get]
func (h *FeeHandler) Receipt(c *gin.Context) {
	paymentID := c.Param("paymentId")
	pdf, err := h.fees.Receipt(c.Request.Context(), c.Param("id"), paymentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=receipt-%s.pdf", paymentID))
	c.Data(http.StatusOK, "application/pdf", pdf)
}
