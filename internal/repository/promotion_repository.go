package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/school-fees-api/internal/models"
)

// PromotionRepository persists promotion transitions. Each promotion is one
// transaction: history insert, student update and fee structure replacement
// either all land or none do.
type PromotionRepository struct {
	db *sqlx.DB
}

// NewPromotionRepository constructs a PromotionRepository.
func NewPromotionRepository(db *sqlx.DB) *PromotionRepository {
	return &PromotionRepository{db: db}
}

// PromoteParams carries everything needed for one student transition.
// StructureVersion is the version the snapshot was read at; the fee structure
// write is conditional on it so a concurrent payment forces a retry instead
// of being silently clobbered.
type PromoteParams struct {
	StudentID        string
	FromClass        string
	ToClass          string
	Snapshot         models.PromotionSnapshot
	NewStructure     *models.FeeStructure
	StructureVersion int64
	Graduating       bool
}

// Promote applies one student's transition atomically.
func (r *PromotionRepository) Promote(ctx context.Context, params PromoteParams) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin promotion transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	const historyQuery = `INSERT INTO student_promotions (id, student_id, from_class, to_class, snapshot, promoted_at)
        VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err = tx.ExecContext(ctx, historyQuery, uuid.NewString(), params.StudentID, params.FromClass, params.ToClass, params.Snapshot, now); err != nil {
		return fmt.Errorf("insert promotion history: %w", err)
	}

	if params.Graduating {
		const graduateQuery = `UPDATE students SET active = false, updated_at = $2 WHERE id = $1`
		if _, err = tx.ExecContext(ctx, graduateQuery, params.StudentID, now); err != nil {
			return fmt.Errorf("graduate student: %w", err)
		}
		if err = tx.Commit(); err != nil {
			return fmt.Errorf("commit promotion transaction: %w", err)
		}
		return nil
	}

	const studentQuery = `UPDATE students SET class_name = $2, performance = '{}'::jsonb, attendance = '{}'::jsonb, updated_at = $3 WHERE id = $1`
	if _, err = tx.ExecContext(ctx, studentQuery, params.StudentID, params.ToClass, now); err != nil {
		return fmt.Errorf("update student class: %w", err)
	}

	fresh := params.NewStructure
	const structureQuery = `UPDATE fee_structures SET
        tuition_first_term = $1, tuition_second_term = $2, transport = $3, kit = $4,
        total = $5, paid = $6, balance = $7, paid_components = $8, version = version + 1, updated_at = $9
        WHERE student_id = $10 AND version = $11`
	res, err := tx.ExecContext(ctx, structureQuery,
		fresh.TuitionFirstTerm,
		fresh.TuitionSecondTerm,
		fresh.Transport,
		fresh.Kit,
		fresh.Total,
		fresh.Paid,
		fresh.Balance,
		fresh.PaidComponents,
		now,
		params.StudentID,
		params.StructureVersion,
	)
	if err != nil {
		return fmt.Errorf("replace fee structure: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("replace fee structure: %w", err)
	}
	if affected == 0 {
		err = ErrVersionConflict
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit promotion transaction: %w", err)
	}
	return nil
}

// History returns the promotion archive for a student, newest first.
func (r *PromotionRepository) History(ctx context.Context, studentID string) ([]models.PromotionRecord, error) {
	const query = `SELECT id, student_id, from_class, to_class, snapshot, promoted_at
        FROM student_promotions WHERE student_id = $1 ORDER BY promoted_at DESC`
	var records []models.PromotionRecord
	if err := r.db.SelectContext(ctx, &records, query, studentID); err != nil {
		return nil, fmt.Errorf("list promotion history: %w", err)
	}
	return records, nil
}
