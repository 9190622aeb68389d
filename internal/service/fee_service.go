package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/school-fees-api/internal/models"
	"github.com/noah-isme/school-fees-api/internal/repository"
	appErrors "github.com/noah-isme/school-fees-api/pkg/errors"
	"github.com/noah-isme/school-fees-api/pkg/receipt"
)

type feeRepository interface {
	GetStructure(ctx context.Context, studentID string) (*models.FeeStructure, error)
	CreateStructure(ctx context.Context, structure *models.FeeStructure) error
	ApplyPayment(ctx context.Context, structure *models.FeeStructure, payment *models.FeePayment) error
	ListPayments(ctx context.Context, studentID string) ([]models.FeePayment, error)
	GetPayment(ctx context.Context, studentID, paymentID string) (*models.FeePayment, error)
}

type feeStudentReader interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

type summaryCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

type receiptDispatcher interface {
	PaymentRecorded(student models.Student, structure models.FeeStructure, payment models.FeePayment)
}

type receiptRenderer interface {
	Render(data receipt.Data) ([]byte, error)
}

type paymentObserver interface {
	RecordPayment(mode string, amount int64)
}

// Component sets per entry point. Kit payments are only accepted through the
// admin channel.
var (
	adminComponents   = models.AllComponents
	studentComponents = []models.FeeComponent{
		models.ComponentTuitionFirstTerm,
		models.ComponentTuitionSecondTerm,
		models.ComponentTransport,
	}
)

// AdminPaymentRequest is a manual entry recorded at the school office.
type AdminPaymentRequest struct {
	Breakdown     map[models.FeeComponent]int64 `json:"breakdown" validate:"required"`
	Mode          models.PaymentMode            `json:"mode" validate:"required,oneof=cash upi"`
	PaymentMethod string                        `json:"payment_method"`
	TransactionID string                        `json:"transaction_id"`
}

// SelfPaymentRequest is a student-initiated direct payment.
type SelfPaymentRequest struct {
	Breakdown     map[models.FeeComponent]int64 `json:"breakdown" validate:"required"`
	Mode          string                        `json:"mode" validate:"required"`
	PaymentMethod string                        `json:"payment_method"`
	TransactionID string                        `json:"transaction_id"`
}

// GatewayPaymentRequest is a gateway-verified payment. The signature must
// check out against the shared secret before anything is applied.
type GatewayPaymentRequest struct {
	OrderID       string                        `json:"order_id" validate:"required"`
	PaymentID     string                        `json:"payment_id" validate:"required"`
	Signature     string                        `json:"signature" validate:"required"`
	Breakdown     map[models.FeeComponent]int64 `json:"breakdown" validate:"required"`
	PaymentMethod string                        `json:"payment_method"`
}

// PaymentResult pairs the applied payment with the structure state it left
// behind.
type PaymentResult struct {
	Structure models.FeeStructure `json:"structure"`
	Payment   models.FeePayment   `json:"payment"`
}

// FeeServiceConfig tunes the ledger service.
type FeeServiceConfig struct {
	GatewaySecret   string
	SummaryCacheTTL time.Duration
	MaxApplyRetries int
	SchoolName      string
}

// FeeService owns the fee ledger: it validates and applies payments,
// maintains the paid/balance invariants and records payment history. It is
// the only writer of fee structure state.
type FeeService struct {
	repo      feeRepository
	students  feeStudentReader
	cache     summaryCache
	receipts  receiptDispatcher
	renderer  receiptRenderer
	metrics   paymentObserver
	schedules *FeeScheduleTable
	validator *validator.Validate
	logger    *zap.Logger
	config    FeeServiceConfig
}

// NewFeeService constructs the ledger service.
func NewFeeService(repo feeRepository, students feeStudentReader, cache summaryCache, receipts receiptDispatcher, renderer receiptRenderer, metrics paymentObserver, schedules *FeeScheduleTable, validate *validator.Validate, logger *zap.Logger, cfg FeeServiceConfig) *FeeService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if schedules == nil {
		schedules = DefaultFeeScheduleTable()
	}
	if cfg.MaxApplyRetries <= 0 {
		cfg.MaxApplyRetries = 3
	}
	if cfg.SummaryCacheTTL <= 0 {
		cfg.SummaryCacheTTL = 5 * time.Minute
	}
	return &FeeService{
		repo:      repo,
		students:  students,
		cache:     cache,
		receipts:  receipts,
		renderer:  renderer,
		metrics:   metrics,
		schedules: schedules,
		validator: validate,
		logger:    logger,
		config:    cfg,
	}
}

// InitializeStructure builds and persists a fresh structure for a student.
// Invoked on student creation; promotion uses the schedule table directly
// inside its own transaction.
func (s *FeeService) InitializeStructure(ctx context.Context, student *models.Student, overrides ScheduleOverrides) (*models.FeeStructure, error) {
	structure := s.schedules.NewStructure(student.ClassName, overrides, student.TransportOpted)
	structure.StudentID = student.ID
	if err := s.repo.CreateStructure(ctx, &structure); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create fee structure")
	}
	return &structure, nil
}

// RecordAdminPayment applies a manual office entry. Kit is allowed and the
// mode is restricted to cash or upi; upi entries must reference a transaction.
func (s *FeeService) RecordAdminPayment(ctx context.Context, studentID string, req AdminPaymentRequest) (*PaymentResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payment payload")
	}
	txnID := strings.TrimSpace(req.TransactionID)
	if req.Mode != models.ModeCash && txnID == "" {
		return nil, appErrors.Clone(appErrors.ErrMissingField, "transaction_id is required for non-cash payments")
	}
	if txnID == "" {
		txnID = generateTransactionTag(string(req.Mode))
	}
	meta := paymentMeta{mode: req.Mode, method: req.PaymentMethod, transactionID: txnID}
	return s.applyPayment(ctx, studentID, req.Breakdown, adminComponents, meta)
}

// RecordSelfPayment applies a student-initiated direct payment. Kit is not in
// the allowed set and the transaction reference is optional.
func (s *FeeService) RecordSelfPayment(ctx context.Context, studentID string, req SelfPaymentRequest) (*PaymentResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payment payload")
	}
	txnID := strings.TrimSpace(req.TransactionID)
	if txnID == "" {
		txnID = generateTransactionTag(req.Mode)
	}
	meta := paymentMeta{mode: models.PaymentMode(req.Mode), method: req.PaymentMethod, transactionID: txnID}
	return s.applyPayment(ctx, studentID, req.Breakdown, studentComponents, meta)
}

// RecordGatewayPayment verifies the gateway signature and applies the payment
// with mode fixed to razorpay. A signature mismatch applies nothing.
func (s *FeeService) RecordGatewayPayment(ctx context.Context, studentID string, req GatewayPaymentRequest) (*PaymentResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payment payload")
	}
	if !VerifyGatewaySignature(req.OrderID, req.PaymentID, req.Signature, s.config.GatewaySecret) {
		s.logger.Warn("gateway signature mismatch",
			zap.String("student_id", studentID),
			zap.String("order_id", req.OrderID),
		)
		return nil, appErrors.Clone(appErrors.ErrSignatureMismatch, "")
	}
	meta := paymentMeta{mode: models.ModeRazorpay, method: req.PaymentMethod, transactionID: req.PaymentID}
	return s.applyPayment(ctx, studentID, req.Breakdown, studentComponents, meta)
}

// GetSummary returns the structure plus full payment history, served from
// cache when fresh.
func (s *FeeService) GetSummary(ctx context.Context, studentID string) (*models.FeeSummary, error) {
	key := summaryCacheKey(studentID)
	if s.cache != nil {
		var cached models.FeeSummary
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return &cached, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("fee summary cache read failed", zap.Error(err))
		}
	}

	if _, err := s.students.FindByID(ctx, studentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrStudentNotFound, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	structure, err := s.repo.GetStructure(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotInitialized, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load fee structure")
	}
	payments, err := s.repo.ListPayments(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load payment history")
	}

	summary := &models.FeeSummary{Structure: *structure, Payments: payments}
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, summary, s.config.SummaryCacheTTL); err != nil {
			s.logger.Warn("fee summary cache write failed", zap.Error(err))
		}
	}
	return summary, nil
}

// Receipt renders the PDF receipt for one recorded payment.
func (s *FeeService) Receipt(ctx context.Context, studentID, paymentID string) ([]byte, error) {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrStudentNotFound, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	payment, err := s.repo.GetPayment(ctx, studentID, paymentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "payment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load payment")
	}
	structure, err := s.repo.GetStructure(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotInitialized, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load fee structure")
	}

	pdf, err := s.renderer.Render(receipt.Data{
		SchoolName:    s.config.SchoolName,
		StudentName:   student.FullName,
		ClassName:     student.ClassName,
		TransactionID: payment.TransactionID,
		Mode:          string(payment.Mode),
		Date:          payment.Date,
		Amount:        payment.Amount,
		Balance:       structure.Balance,
		Breakdown:     payment.Breakdown,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render receipt")
	}
	return pdf, nil
}

type paymentMeta struct {
	mode          models.PaymentMode
	method        string
	transactionID string
}

// applyPayment runs the ledger algorithm with optimistic concurrency: read
// the structure, validate and mutate a private copy, then write it back with
// a version check. A lost race re-reads and retries a bounded number of
// times.
func (s *FeeService) applyPayment(ctx context.Context, studentID string, breakdown map[models.FeeComponent]int64, allowed []models.FeeComponent, meta paymentMeta) (*PaymentResult, error) {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrStudentNotFound, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	for attempt := 0; attempt < s.config.MaxApplyRetries; attempt++ {
		structure, err := s.repo.GetStructure(ctx, studentID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotInitialized, "")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load fee structure")
		}

		payment, err := applyToStructure(structure, breakdown, allowed)
		if err != nil {
			return nil, err
		}
		payment.Mode = meta.mode
		payment.PaymentMethod = meta.method
		payment.TransactionID = meta.transactionID

		if err := s.repo.ApplyPayment(ctx, structure, payment); err != nil {
			if errors.Is(err, repository.ErrVersionConflict) {
				s.logger.Debug("fee structure version conflict, retrying",
					zap.String("student_id", studentID),
					zap.Int("attempt", attempt+1),
				)
				continue
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist payment")
		}

		if s.metrics != nil {
			s.metrics.RecordPayment(string(payment.Mode), payment.Amount)
		}
		if s.cache != nil {
			if err := s.cache.Delete(ctx, summaryCacheKey(studentID)); err != nil {
				s.logger.Warn("fee summary cache invalidation failed", zap.Error(err))
			}
		}
		if s.receipts != nil {
			s.receipts.PaymentRecorded(*student, *structure, *payment)
		}
		return &PaymentResult{Structure: *structure, Payment: *payment}, nil
	}

	return nil, appErrors.Clone(appErrors.ErrConcurrentModification, "")
}

// applyToStructure validates the breakdown against the structure and, when
// valid, mutates the structure and returns the payment record. Validation is
// fail-fast: any rejection leaves the structure untouched. The per-component
// ceiling is the original due, reconstructed from remaining-due and
// cumulative paid so that a retired component still accepts a zero amount as
// a no-op.
func applyToStructure(structure *models.FeeStructure, breakdown map[models.FeeComponent]int64, allowed []models.FeeComponent) (*models.FeePayment, error) {
	if len(breakdown) == 0 {
		return nil, appErrors.Clone(appErrors.ErrMissingField, "breakdown is required")
	}

	allowedSet := make(map[models.FeeComponent]struct{}, len(allowed))
	for _, comp := range allowed {
		allowedSet[comp] = struct{}{}
	}
	for comp, amount := range breakdown {
		if _, ok := allowedSet[comp]; !ok {
			return nil, appErrors.Clone(appErrors.ErrInvalidComponent, fmt.Sprintf("component %q is not allowed for this payment", comp))
		}
		if amount < 0 {
			return nil, appErrors.Clone(appErrors.ErrInvalidAmount, fmt.Sprintf("component %q amount must not be negative", comp))
		}
	}

	if structure.PaidComponents == nil {
		structure.PaidComponents = models.ComponentAmounts{}
	}

	// Ceilings are resolved before anything is mutated so the outcome never
	// depends on the order components are processed in.
	ceilings := make(map[models.FeeComponent]int64, len(breakdown))
	for _, comp := range models.AllComponents {
		amount, ok := breakdown[comp]
		if !ok {
			continue
		}
		ceiling := structure.OriginalDue(comp)
		alreadyPaid := structure.PaidComponents[comp]
		if alreadyPaid+amount > ceiling {
			return nil, appErrors.Clone(appErrors.ErrOverpayment,
				fmt.Sprintf("component %q: %d already paid, %d more would exceed the %d due", comp, alreadyPaid, amount, ceiling))
		}
		ceilings[comp] = ceiling
	}

	var totalPaidNow int64
	var term *models.TuitionTerm
	var paidFor models.PaidFor

	for _, comp := range models.AllComponents {
		amount, ok := breakdown[comp]
		if !ok {
			continue
		}
		structure.PaidComponents[comp] += amount
		totalPaidNow += amount
		if structure.PaidComponents[comp] >= ceilings[comp] {
			structure.SetRemainingDue(comp, 0)
		}
		switch comp {
		case models.ComponentTuitionFirstTerm:
			t := models.TermFirst
			term = &t
			paidFor.Tuition = true
		case models.ComponentTuitionSecondTerm:
			t := models.TermSecond
			term = &t
			paidFor.Tuition = true
		case models.ComponentTransport:
			paidFor.Transport = true
		case models.ComponentKit:
			paidFor.Kit = true
		}
	}

	structure.Paid += totalPaidNow
	balance := structure.TuitionFirstTerm + structure.TuitionSecondTerm + structure.Transport + structure.Kit
	if balance < 0 {
		balance = 0
	}
	structure.Balance = balance

	recorded := make(models.ComponentAmounts, len(breakdown))
	for comp, amount := range breakdown {
		recorded[comp] = amount
	}

	return &models.FeePayment{
		StudentID: structure.StudentID,
		Amount:    totalPaidNow,
		Term:      term,
		PaidFor:   paidFor,
		Breakdown: recorded,
	}, nil
}

func summaryCacheKey(studentID string) string {
	return "fees:summary:" + studentID
}

func generateTransactionTag(mode string) string {
	mode = strings.ToUpper(strings.TrimSpace(mode))
	if mode == "" {
		mode = "TXN"
	}
	return fmt.Sprintf("%s-%s", mode, strings.ToUpper(uuid.NewString()[:8]))
}
