package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-fees-api/internal/service"
	appErrors "github.com/noah-isme/school-fees-api/pkg/errors"
	"github.com/noah-isme/school-fees-api/pkg/response"
)

// PromotionHandler exposes promotion endpoints.
type PromotionHandler struct {
	promotions *service.PromotionService
}

// NewPromotionHandler constructs PromotionHandler.
func NewPromotionHandler(promotions *service.PromotionService) *PromotionHandler {
	return &PromotionHandler{promotions: promotions}
}

// Promote godoc
// @Summary Promote a student to a new class tier
// @Description Archives the current class, fee structure and tracking data, then resets the fee structure for the destination tier. Promoting to "graduated" deactivates the student instead.
// @Tags Promotions
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body service.PromoteRequest true "Promotion payload"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/promote [post]
func (h *PromotionHandler) Promote(c *gin.Context) {
	var req service.PromoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	outcome, err := h.promotions.Promote(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, outcome, nil)
}

// PromoteBatch godoc
// @Summary Promote a batch of students
// @Description Students are processed independently; the response carries a per-student outcome and one failure never rolls back another student's transition.
// @Tags Promotions
// @Accept json
// @Produce json
// @Param payload body service.BatchPromoteRequest true "Batch promotion payload"
// @Success 200 {object} response.Envelope
// @Router /promotions [post]
func (h *PromotionHandler) PromoteBatch(c *gin.Context) {
	var req service.BatchPromoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	outcomes, err := h.promotions.PromoteBatch(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, outcomes, nil)
}

// History godoc
// @Summary Get a student's promotion history
// @Tags Promotions
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/promotions [get]
func (h *PromotionHandler) History(c *gin.Context) {
	records, err := h.promotions.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, nil)
}
