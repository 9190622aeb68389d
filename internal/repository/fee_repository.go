package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/school-fees-api/internal/models"
)

// ErrVersionConflict signals that a compare-and-swap write lost the race and
// the caller should re-read and retry.
var ErrVersionConflict = errors.New("fee structure version conflict")

// FeeRepository manages persistence for fee structures and payment history.
type FeeRepository struct {
	db *sqlx.DB
}

// NewFeeRepository constructs a FeeRepository.
func NewFeeRepository(db *sqlx.DB) *FeeRepository {
	return &FeeRepository{db: db}
}

// GetStructure fetches a student's live fee structure.
func (r *FeeRepository) GetStructure(ctx context.Context, studentID string) (*models.FeeStructure, error) {
	const query = `SELECT student_id, tuition_first_term, tuition_second_term, transport, kit,
        total, paid, balance, paid_components, version, created_at, updated_at
        FROM fee_structures WHERE student_id = $1`
	var structure models.FeeStructure
	if err := r.db.GetContext(ctx, &structure, query, studentID); err != nil {
		return nil, err
	}
	return &structure, nil
}

// CreateStructure inserts a freshly initialized structure.
func (r *FeeRepository) CreateStructure(ctx context.Context, structure *models.FeeStructure) error {
	now := time.Now().UTC()
	if structure.CreatedAt.IsZero() {
		structure.CreatedAt = now
	}
	structure.UpdatedAt = now
	const query = `INSERT INTO fee_structures
        (student_id, tuition_first_term, tuition_second_term, transport, kit, total, paid, balance, paid_components, version, created_at, updated_at)
        VALUES (:student_id, :tuition_first_term, :tuition_second_term, :transport, :kit, :total, :paid, :balance, :paid_components, :version, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, structure); err != nil {
		return fmt.Errorf("create fee structure: %w", err)
	}
	return nil
}

// ApplyPayment persists an updated structure and its payment record in one
// transaction. The structure row is updated with a version check; losing the
// check aborts the whole transaction with ErrVersionConflict so nothing is
// partially applied.
func (r *FeeRepository) ApplyPayment(ctx context.Context, structure *models.FeeStructure, payment *models.FeePayment) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin payment transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	structure.UpdatedAt = time.Now().UTC()
	const updateQuery = `UPDATE fee_structures SET
        tuition_first_term = $1, tuition_second_term = $2, transport = $3, kit = $4,
        paid = $5, balance = $6, paid_components = $7, version = version + 1, updated_at = $8
        WHERE student_id = $9 AND version = $10`
	res, err := tx.ExecContext(ctx, updateQuery,
		structure.TuitionFirstTerm,
		structure.TuitionSecondTerm,
		structure.Transport,
		structure.Kit,
		structure.Paid,
		structure.Balance,
		structure.PaidComponents,
		structure.UpdatedAt,
		structure.StudentID,
		structure.Version,
	)
	if err != nil {
		return fmt.Errorf("update fee structure: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update fee structure: %w", err)
	}
	if affected == 0 {
		err = ErrVersionConflict
		return err
	}

	if payment.ID == "" {
		payment.ID = uuid.NewString()
	}
	if payment.Date.IsZero() {
		payment.Date = time.Now().UTC()
	}
	const insertQuery = `INSERT INTO fee_payments
        (id, student_id, amount, mode, transaction_id, payment_method, term, paid_for, breakdown, date)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	if _, err = tx.ExecContext(ctx, insertQuery,
		payment.ID,
		payment.StudentID,
		payment.Amount,
		payment.Mode,
		payment.TransactionID,
		payment.PaymentMethod,
		payment.Term,
		payment.PaidFor,
		payment.Breakdown,
		payment.Date,
	); err != nil {
		return fmt.Errorf("insert fee payment: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit payment transaction: %w", err)
	}
	structure.Version++
	return nil
}

// ListPayments returns the payment history newest first.
func (r *FeeRepository) ListPayments(ctx context.Context, studentID string) ([]models.FeePayment, error) {
	const query = `SELECT id, student_id, amount, mode, transaction_id, payment_method, term, paid_for, breakdown, date
        FROM fee_payments WHERE student_id = $1 ORDER BY date DESC`
	var payments []models.FeePayment
	if err := r.db.SelectContext(ctx, &payments, query, studentID); err != nil {
		return nil, fmt.Errorf("list fee payments: %w", err)
	}
	return payments, nil
}

// GetPayment fetches one payment record belonging to the student.
func (r *FeeRepository) GetPayment(ctx context.Context, studentID, paymentID string) (*models.FeePayment, error) {
	const query = `SELECT id, student_id, amount, mode, transaction_id, payment_method, term, paid_for, breakdown, date
        FROM fee_payments WHERE id = $1 AND student_id = $2`
	var payment models.FeePayment
	if err := r.db.GetContext(ctx, &payment, query, paymentID, studentID); err != nil {
		return nil, err
	}
	return &payment, nil
}

// OutstandingFee pairs a student with their open balance for reminder runs.
type OutstandingFee struct {
	StudentID     string `db:"student_id"`
	FullName      string `db:"full_name"`
	ClassName     string `db:"class_name"`
	GuardianName  string `db:"guardian_name"`
	GuardianEmail string `db:"guardian_email"`
	Balance       int64  `db:"balance"`
}

// ListOutstanding returns active students whose balance is still positive.
func (r *FeeRepository) ListOutstanding(ctx context.Context) ([]OutstandingFee, error) {
	const query = `SELECT s.id AS student_id, s.full_name, s.class_name, s.guardian_name, s.guardian_email, f.balance
        FROM fee_structures f
        JOIN students s ON s.id = f.student_id
        WHERE f.balance > 0 AND s.active = true
        ORDER BY s.class_name, s.full_name`
	var outstanding []OutstandingFee
	if err := r.db.SelectContext(ctx, &outstanding, query); err != nil {
		return nil, fmt.Errorf("list outstanding fees: %w", err)
	}
	return outstanding, nil
}
