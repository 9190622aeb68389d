package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/school-fees-api/internal/models"
	"github.com/noah-isme/school-fees-api/internal/repository"
	appErrors "github.com/noah-isme/school-fees-api/pkg/errors"
)

type promotionRepository interface {
	Promote(ctx context.Context, params repository.PromoteParams) error
	History(ctx context.Context, studentID string) ([]models.PromotionRecord, error)
}

// PromoteRequest moves one student to a new class tier. Overrides apply to the
// fresh structure created for the destination tier.
type PromoteRequest struct {
	ToClass      string            `json:"to_class" validate:"required"`
	FeeOverrides ScheduleOverrides `json:"fee_overrides"`
}

// BatchPromoteRequest moves a set of students to the same destination tier.
type BatchPromoteRequest struct {
	StudentIDs   []string          `json:"student_ids" validate:"required,min=1,dive,required"`
	ToClass      string            `json:"to_class" validate:"required"`
	FeeOverrides ScheduleOverrides `json:"fee_overrides"`
}

// PromotionOutcome is the per-student result of a batch promotion. Students
// are processed independently; one failure never rolls back another's
// transition.
type PromotionOutcome struct {
	StudentID string `json:"student_id"`
	FromClass string `json:"from_class,omitempty"`
	ToClass   string `json:"to_class,omitempty"`
	Promoted  bool   `json:"promoted"`
	Error     string `json:"error,omitempty"`
	ErrorCode string `json:"error_code,omitempty"`
}

// PromotionService archives a student's current state and resets their fee
// structure for the destination tier. Promotion into the terminal tier
// deactivates the student instead.
type PromotionService struct {
	repo       promotionRepository
	students   studentRepository
	fees       feeRepository
	cache      summaryCache
	schedules  *FeeScheduleTable
	validator  *validator.Validate
	logger     *zap.Logger
	maxRetries int
}

// NewPromotionService constructs a PromotionService.
func NewPromotionService(repo promotionRepository, students studentRepository, fees feeRepository, cache summaryCache, schedules *FeeScheduleTable, validate *validator.Validate, logger *zap.Logger, maxRetries int) *PromotionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if schedules == nil {
		schedules = DefaultFeeScheduleTable()
	}
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &PromotionService{
		repo:       repo,
		students:   students,
		fees:       fees,
		cache:      cache,
		schedules:  schedules,
		validator:  validate,
		logger:     logger,
		maxRetries: maxRetries,
	}
}

// Promote transitions one student. The snapshot and the structure replacement
// happen in a single transaction conditioned on the structure version read
// here; a concurrent payment forces a re-read and retry.
func (s *PromotionService) Promote(ctx context.Context, studentID string, req PromoteRequest) (*PromotionOutcome, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid promotion payload")
	}
	outcome, err := s.promoteOne(ctx, studentID, req.ToClass, req.FeeOverrides)
	if err != nil {
		return nil, err
	}
	return &outcome, nil
}

// PromoteBatch transitions students independently and reports per-student
// outcomes. The call itself only fails on an invalid payload.
func (s *PromotionService) PromoteBatch(ctx context.Context, req BatchPromoteRequest) ([]PromotionOutcome, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid promotion payload")
	}
	outcomes := make([]PromotionOutcome, 0, len(req.StudentIDs))
	for _, studentID := range req.StudentIDs {
		outcome, err := s.promoteOne(ctx, studentID, req.ToClass, req.FeeOverrides)
		if err != nil {
			appErr := appErrors.FromError(err)
			outcome.Promoted = false
			outcome.Error = appErr.Message
			outcome.ErrorCode = appErr.Code
			s.logger.Warn("promotion failed",
				zap.String("student_id", studentID),
				zap.String("to_class", req.ToClass),
				zap.String("error", appErr.Message),
			)
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes, nil
}

// History returns the promotion archive for a student, newest first.
func (s *PromotionService) History(ctx context.Context, studentID string) ([]models.PromotionRecord, error) {
	if _, err := s.students.FindByID(ctx, studentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrStudentNotFound, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	records, err := s.repo.History(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load promotion history")
	}
	return records, nil
}

func (s *PromotionService) promoteOne(ctx context.Context, studentID, toClass string, overrides ScheduleOverrides) (PromotionOutcome, error) {
	outcome := PromotionOutcome{StudentID: studentID, ToClass: toClass}

	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return outcome, appErrors.Clone(appErrors.ErrStudentNotFound, "")
		}
		return outcome, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	outcome.FromClass = student.ClassName
	if !student.Active {
		return outcome, appErrors.Clone(appErrors.ErrConflict, "student is not active")
	}

	graduating := toClass == TierGraduated

	for attempt := 0; attempt < s.maxRetries; attempt++ {
		structure, err := s.fees.GetStructure(ctx, studentID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return outcome, appErrors.Clone(appErrors.ErrNotInitialized, "")
			}
			return outcome, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load fee structure")
		}

		params := repository.PromoteParams{
			StudentID: studentID,
			FromClass: student.ClassName,
			ToClass:   toClass,
			Snapshot: models.PromotionSnapshot{
				ClassName:    student.ClassName,
				FeeStructure: *structure,
				Performance:  student.Performance,
				Attendance:   student.Attendance,
			},
			StructureVersion: structure.Version,
			Graduating:       graduating,
		}
		if !graduating {
			fresh := s.schedules.NewStructure(toClass, overrides, student.TransportOpted)
			fresh.StudentID = studentID
			params.NewStructure = &fresh
		}

		if err := s.repo.Promote(ctx, params); err != nil {
			if errors.Is(err, repository.ErrVersionConflict) {
				s.logger.Debug("promotion version conflict, retrying",
					zap.String("student_id", studentID),
					zap.Int("attempt", attempt+1),
				)
				continue
			}
			return outcome, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to promote student")
		}

		if s.cache != nil {
			if err := s.cache.Delete(ctx, summaryCacheKey(studentID)); err != nil {
				s.logger.Warn("fee summary cache invalidation failed", zap.Error(err))
			}
		}
		outcome.Promoted = true
		return outcome, nil
	}

	return outcome, appErrors.Clone(appErrors.ErrConcurrentModification, "")
}
