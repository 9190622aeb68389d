package handler

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/school-fees-api/internal/models"
	"github.com/noah-isme/school-fees-api/internal/service"
)

func newPromotionHandler(store *ledgerStoreMock, students *studentStoreMock, promotions *promotionStoreMock) *PromotionHandler {
	svc := service.NewPromotionService(promotions, students, store, nil, nil, validator.New(), zap.NewNop(), 3)
	return NewPromotionHandler(svc)
}

func TestPromotionHandlerPromote(t *testing.T) {
	store := newLedgerStoreMock()
	promotions := &promotionStoreMock{records: make(map[string][]models.PromotionRecord)}
	handler := newPromotionHandler(store, newStudentStoreMock(), promotions)

	w, c := jsonRequest(t, http.MethodPost, "/students/stu-1/promote", service.PromoteRequest{ToClass: "class-4"})
	c.Params = gin.Params{{Key: "id", Value: "stu-1"}}

	handler.Promote(c)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data service.PromotionOutcome `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.True(t, envelope.Data.Promoted)
	assert.Equal(t, "class-3", envelope.Data.FromClass)
	assert.Equal(t, "class-4", envelope.Data.ToClass)
	require.Len(t, promotions.applied, 1)
}

func TestPromotionHandlerPromoteMissingToClass(t *testing.T) {
	promotions := &promotionStoreMock{}
	handler := newPromotionHandler(newLedgerStoreMock(), newStudentStoreMock(), promotions)

	w, c := jsonRequest(t, http.MethodPost, "/students/stu-1/promote", service.PromoteRequest{})
	c.Params = gin.Params{{Key: "id", Value: "stu-1"}}

	handler.Promote(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, promotions.applied)
}

func TestPromotionHandlerPromoteBatch(t *testing.T) {
	store := newLedgerStoreMock()
	students := newStudentStoreMock()
	students.students["stu-2"] = models.Student{ID: "stu-2", ClassName: "class-3", Active: false}
	promotions := &promotionStoreMock{}
	handler := newPromotionHandler(store, students, promotions)

	w, c := jsonRequest(t, http.MethodPost, "/promotions", service.BatchPromoteRequest{
		StudentIDs: []string{"stu-1", "stu-2"},
		ToClass:    "class-4",
	})

	handler.PromoteBatch(c)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data []service.PromotionOutcome `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data, 2)
	assert.True(t, envelope.Data[0].Promoted)
	assert.False(t, envelope.Data[1].Promoted)
	assert.Equal(t, "CONFLICT", envelope.Data[1].ErrorCode)
}

func TestPromotionHandlerHistory(t *testing.T) {
	promotions := &promotionStoreMock{records: map[string][]models.PromotionRecord{
		"stu-1": {{ID: "promo-1", StudentID: "stu-1", FromClass: "class-2", ToClass: "class-3"}},
	}}
	handler := newPromotionHandler(newLedgerStoreMock(), newStudentStoreMock(), promotions)

	w, c := jsonRequest(t, http.MethodGet, "/students/stu-1/promotions", nil)
	c.Params = gin.Params{{Key: "id", Value: "stu-1"}}

	handler.History(c)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data []models.PromotionRecord `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data, 1)
	assert.Equal(t, "class-3", envelope.Data[0].ToClass)
}
