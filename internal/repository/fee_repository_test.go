package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-fees-api/internal/models"
)

func newFeeMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestFeeRepositoryGetStructure(t *testing.T) {
	db, mock, cleanup := newFeeMock(t)
	defer cleanup()
	repo := NewFeeRepository(db)

	rows := sqlmock.NewRows([]string{"student_id", "tuition_first_term", "tuition_second_term", "transport", "kit", "total", "paid", "balance", "paid_components", "version", "created_at", "updated_at"}).
		AddRow("stu-1", int64(27500), int64(27500), int64(0), int64(15000), int64(70000), int64(0), int64(70000), []byte(`{}`), int64(2), time.Now(), time.Now())
	mock.ExpectQuery("SELECT student_id, tuition_first_term, tuition_second_term").
		WithArgs("stu-1").
		WillReturnRows(rows)

	structure, err := repo.GetStructure(context.Background(), "stu-1")
	require.NoError(t, err)
	assert.Equal(t, int64(70000), structure.Balance)
	assert.Equal(t, int64(2), structure.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFeeRepositoryCreateStructure(t *testing.T) {
	db, mock, cleanup := newFeeMock(t)
	defer cleanup()
	repo := NewFeeRepository(db)

	mock.ExpectExec("INSERT INTO fee_structures").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	structure := models.FeeStructure{StudentID: "stu-1", TuitionFirstTerm: 27500, TuitionSecondTerm: 27500, Kit: 15000, Total: 70000, Balance: 70000, PaidComponents: models.ComponentAmounts{}}
	require.NoError(t, repo.CreateStructure(context.Background(), &structure))
	assert.False(t, structure.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFeeRepositoryApplyPayment(t *testing.T) {
	db, mock, cleanup := newFeeMock(t)
	defer cleanup()
	repo := NewFeeRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE fee_structures SET").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), "stu-1", int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO fee_payments").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	structure := models.FeeStructure{StudentID: "stu-1", Paid: 42500, Balance: 27500, PaidComponents: models.ComponentAmounts{}, Version: 2}
	payment := models.FeePayment{StudentID: "stu-1", Amount: 42500, Mode: models.ModeCash, Breakdown: models.ComponentAmounts{}}
	require.NoError(t, repo.ApplyPayment(context.Background(), &structure, &payment))

	assert.NotEmpty(t, payment.ID)
	assert.False(t, payment.Date.IsZero())
	assert.Equal(t, int64(3), structure.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFeeRepositoryApplyPaymentVersionConflict(t *testing.T) {
	db, mock, cleanup := newFeeMock(t)
	defer cleanup()
	repo := NewFeeRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE fee_structures SET").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), "stu-1", int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	structure := models.FeeStructure{StudentID: "stu-1", PaidComponents: models.ComponentAmounts{}, Version: 2}
	payment := models.FeePayment{StudentID: "stu-1", Amount: 100}
	err := repo.ApplyPayment(context.Background(), &structure, &payment)
	assert.ErrorIs(t, err, ErrVersionConflict)
	assert.Equal(t, int64(2), structure.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFeeRepositoryListPayments(t *testing.T) {
	db, mock, cleanup := newFeeMock(t)
	defer cleanup()
	repo := NewFeeRepository(db)

	rows := sqlmock.NewRows([]string{"id", "student_id", "amount", "mode", "transaction_id", "payment_method", "term", "paid_for", "breakdown", "date"}).
		AddRow("pay-2", "stu-1", int64(15000), "cash", "CASH-AAAA1111", "", nil, []byte(`{"kit":true}`), []byte(`{"kit":15000}`), time.Now()).
		AddRow("pay-1", "stu-1", int64(27500), "upi", "TXN123", "", "First Term", []byte(`{"tuition":true}`), []byte(`{"tuition.firstTerm":27500}`), time.Now().Add(-time.Hour))
	mock.ExpectQuery("SELECT id, student_id, amount, mode").
		WithArgs("stu-1").
		WillReturnRows(rows)

	payments, err := repo.ListPayments(context.Background(), "stu-1")
	require.NoError(t, err)
	require.Len(t, payments, 2)
	assert.Equal(t, "pay-2", payments[0].ID)
	assert.Nil(t, payments[0].Term)
	require.NotNil(t, payments[1].Term)
	assert.Equal(t, models.TermFirst, *payments[1].Term)
	assert.Equal(t, int64(27500), payments[1].Breakdown[models.ComponentTuitionFirstTerm])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFeeRepositoryListOutstanding(t *testing.T) {
	db, mock, cleanup := newFeeMock(t)
	defer cleanup()
	repo := NewFeeRepository(db)

	rows := sqlmock.NewRows([]string{"student_id", "full_name", "class_name", "guardian_name", "guardian_email", "balance"}).
		AddRow("stu-1", "Asha Rao", "class-3", "R Rao", "rao@example.com", int64(27500))
	mock.ExpectQuery("SELECT s.id AS student_id, s.full_name").
		WillReturnRows(rows)

	outstanding, err := repo.ListOutstanding(context.Background())
	require.NoError(t, err)
	require.Len(t, outstanding, 1)
	assert.Equal(t, int64(27500), outstanding[0].Balance)
	assert.NoError(t, mock.ExpectationsWereMet())
}
