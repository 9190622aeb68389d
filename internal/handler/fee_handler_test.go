package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/school-fees-api/internal/models"
	"github.com/noah-isme/school-fees-api/internal/repository"
	"github.com/noah-isme/school-fees-api/internal/service"
	"github.com/noah-isme/school-fees-api/pkg/receipt"
)

type ledgerStoreMock struct {
	structures map[string]models.FeeStructure
	payments   []models.FeePayment
}

func (m *ledgerStoreMock) GetStructure(ctx context.Context, studentID string) (*models.FeeStructure, error) {
	stored, ok := m.structures[studentID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := stored
	copied.PaidComponents = models.ComponentAmounts{}
	for k, v := range stored.PaidComponents {
		copied.PaidComponents[k] = v
	}
	return &copied, nil
}

func (m *ledgerStoreMock) CreateStructure(ctx context.Context, structure *models.FeeStructure) error {
	if m.structures == nil {
		m.structures = make(map[string]models.FeeStructure)
	}
	m.structures[structure.StudentID] = *structure
	return nil
}

func (m *ledgerStoreMock) ApplyPayment(ctx context.Context, structure *models.FeeStructure, payment *models.FeePayment) error {
	if payment.ID == "" {
		payment.ID = fmt.Sprintf("pay-%d", len(m.payments)+1)
	}
	if payment.Date.IsZero() {
		payment.Date = time.Now().UTC()
	}
	structure.Version++
	m.structures[structure.StudentID] = *structure
	m.payments = append(m.payments, *payment)
	return nil
}

func (m *ledgerStoreMock) ListPayments(ctx context.Context, studentID string) ([]models.FeePayment, error) {
	result := make([]models.FeePayment, 0)
	for _, p := range m.payments {
		if p.StudentID == studentID {
			result = append(result, p)
		}
	}
	return result, nil
}

func (m *ledgerStoreMock) GetPayment(ctx context.Context, studentID, paymentID string) (*models.FeePayment, error) {
	for _, p := range m.payments {
		if p.StudentID == studentID && p.ID == paymentID {
			copied := p
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

type studentStoreMock struct {
	students map[string]models.Student
}

func (m *studentStoreMock) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	result := make([]models.Student, 0, len(m.students))
	for _, s := range m.students {
		result = append(result, s)
	}
	return result, len(result), nil
}

func (m *studentStoreMock) FindByID(ctx context.Context, id string) (*models.Student, error) {
	if s, ok := m.students[id]; ok {
		copied := s
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (m *studentStoreMock) ExistsByAdmissionNo(ctx context.Context, admissionNo, excludeID string) (bool, error) {
	for _, s := range m.students {
		if s.AdmissionNo == admissionNo && s.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *studentStoreMock) Create(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = fmt.Sprintf("stu-%d", len(m.students)+1)
	}
	if m.students == nil {
		m.students = make(map[string]models.Student)
	}
	m.students[student.ID] = *student
	return nil
}

func (m *studentStoreMock) Update(ctx context.Context, student *models.Student) error {
	m.students[student.ID] = *student
	return nil
}

func (m *studentStoreMock) Deactivate(ctx context.Context, id string) error {
	s := m.students[id]
	s.Active = false
	m.students[id] = s
	return nil
}

type promotionStoreMock struct {
	applied []repository.PromoteParams
	records map[string][]models.PromotionRecord
}

func (m *promotionStoreMock) Promote(ctx context.Context, params repository.PromoteParams) error {
	m.applied = append(m.applied, params)
	return nil
}

func (m *promotionStoreMock) History(ctx context.Context, studentID string) ([]models.PromotionRecord, error) {
	return m.records[studentID], nil
}

type pdfRendererStub struct{}

func (pdfRendererStub) Render(data receipt.Data) ([]byte, error) {
	return []byte("%PDF-1.4 stub"), nil
}

func newLedgerStoreMock() *ledgerStoreMock {
	return &ledgerStoreMock{structures: map[string]models.FeeStructure{
		"stu-1": {
			StudentID:         "stu-1",
			TuitionFirstTerm:  27500,
			TuitionSecondTerm: 27500,
			Kit:               15000,
			Total:             70000,
			Balance:           70000,
			PaidComponents:    models.ComponentAmounts{},
		},
	}}
}

func newStudentStoreMock() *studentStoreMock {
	return &studentStoreMock{students: map[string]models.Student{
		"stu-1": {ID: "stu-1", AdmissionNo: "ADM-001", FullName: "Asha Rao", ClassName: "class-3", Active: true},
	}}
}

func newFeeHandler(store *ledgerStoreMock, students *studentStoreMock) *FeeHandler {
	svc := service.NewFeeService(store, students, nil, nil, pdfRendererStub{}, nil, nil, validator.New(), zap.NewNop(), service.FeeServiceConfig{})
	return NewFeeHandler(svc)
}

func jsonRequest(t *testing.T, method, target string, payload interface{}) (*httptest.ResponseRecorder, *gin.Context) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	var body *bytes.Reader
	if raw, ok := payload.([]byte); ok {
		body = bytes.NewReader(raw)
	} else {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, target, body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return w, c
}

func TestFeeHandlerRecordPayment(t *testing.T) {
	handler := newFeeHandler(newLedgerStoreMock(), newStudentStoreMock())

	w, c := jsonRequest(t, http.MethodPost, "/students/stu-1/fees/payments", service.AdminPaymentRequest{
		Breakdown: map[models.FeeComponent]int64{models.ComponentKit: 15000},
		Mode:      models.ModeCash,
	})
	c.Params = gin.Params{{Key: "id", Value: "stu-1"}}

	handler.RecordPayment(c)
	require.Equal(t, http.StatusCreated, w.Code)

	var envelope struct {
		Data service.PaymentResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, int64(55000), envelope.Data.Structure.Balance)
	assert.Equal(t, int64(15000), envelope.Data.Payment.Amount)
}

func TestFeeHandlerRecordPaymentInvalidBody(t *testing.T) {
	handler := newFeeHandler(newLedgerStoreMock(), newStudentStoreMock())

	w, c := jsonRequest(t, http.MethodPost, "/students/stu-1/fees/payments", []byte(`invalid`))
	c.Params = gin.Params{{Key: "id", Value: "stu-1"}}

	handler.RecordPayment(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFeeHandlerRecordPaymentOverpayment(t *testing.T) {
	handler := newFeeHandler(newLedgerStoreMock(), newStudentStoreMock())

	w, c := jsonRequest(t, http.MethodPost, "/students/stu-1/fees/payments", service.AdminPaymentRequest{
		Breakdown: map[models.FeeComponent]int64{models.ComponentKit: 99999},
		Mode:      models.ModeCash,
	})
	c.Params = gin.Params{{Key: "id", Value: "stu-1"}}

	handler.RecordPayment(c)
	require.Equal(t, http.StatusBadRequest, w.Code)

	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, "OVERPAYMENT", envelope.Error.Code)
}

func TestFeeHandlerSummaryStudentNotFound(t *testing.T) {
	handler := newFeeHandler(newLedgerStoreMock(), newStudentStoreMock())

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/students/ghost/fees", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "ghost"}}

	handler.Summary(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestFeeHandlerReceiptDownload(t *testing.T) {
	store := newLedgerStoreMock()
	handler := newFeeHandler(store, newStudentStoreMock())

	w, c := jsonRequest(t, http.MethodPost, "/students/stu-1/fees/payments", service.AdminPaymentRequest{
		Breakdown: map[models.FeeComponent]int64{models.ComponentKit: 15000},
		Mode:      models.ModeCash,
	})
	c.Params = gin.Params{{Key: "id", Value: "stu-1"}}
	handler.RecordPayment(c)
	require.Equal(t, http.StatusCreated, w.Code)
	require.Len(t, store.payments, 1)

	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/students/stu-1/fees/payments/"+store.payments[0].ID+"/receipt", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "stu-1"}, {Key: "paymentId", Value: store.payments[0].ID}}

	handler.Receipt(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF")))
}
