package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/school-fees-api/internal/models"
	appErrors "github.com/noah-isme/school-fees-api/pkg/errors"
)

type studentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error)
	FindByID(ctx context.Context, id string) (*models.Student, error)
	ExistsByAdmissionNo(ctx context.Context, admissionNo string, excludeID string) (bool, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
	Deactivate(ctx context.Context, id string) error
}

type feeInitializer interface {
	InitializeStructure(ctx context.Context, student *models.Student, overrides ScheduleOverrides) (*models.FeeStructure, error)
}

// CreateStudentRequest describes student admission payload. Fee overrides let
// the office grant per-student concessions at admission time.
type CreateStudentRequest struct {
	AdmissionNo    string            `json:"admission_no" validate:"required"`
	FullName       string            `json:"full_name" validate:"required"`
	ClassName      string            `json:"class_name" validate:"required"`
	Gender         string            `json:"gender"`
	GuardianName   string            `json:"guardian_name"`
	GuardianEmail  string            `json:"guardian_email" validate:"omitempty,email"`
	Phone          string            `json:"phone"`
	TransportOpted bool              `json:"transport_opted"`
	FeeOverrides   ScheduleOverrides `json:"fee_overrides"`
}

// UpdateStudentRequest describes mutable student fields. Fee fields are not
// here: the structure only changes through payments or promotion.
type UpdateStudentRequest struct {
	FullName      string `json:"full_name" validate:"required"`
	Gender        string `json:"gender"`
	GuardianName  string `json:"guardian_name"`
	GuardianEmail string `json:"guardian_email" validate:"omitempty,email"`
	Phone         string `json:"phone"`
}

// StudentDetail is a student together with their live fee structure.
type StudentDetail struct {
	Student      models.Student       `json:"student"`
	FeeStructure *models.FeeStructure `json:"fee_structure,omitempty"`
}

// StudentService orchestrates student admission and upkeep.
type StudentService struct {
	repo      studentRepository
	fees      feeInitializer
	feeReader feeRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService constructs StudentService.
func NewStudentService(repo studentRepository, fees feeInitializer, feeReader feeRepository, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{repo: repo, fees: fees, feeReader: feeReader, validator: validate, logger: logger}
}

// List returns students with pagination metadata.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, *models.Pagination, error) {
	students, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return students, pagination, nil
}

// Get returns one student with their fee structure.
func (s *StudentService) Get(ctx context.Context, id string) (*StudentDetail, error) {
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrStudentNotFound, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	detail := &StudentDetail{Student: *student}
	structure, err := s.feeReader.GetStructure(ctx, id)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load fee structure")
		}
	} else {
		detail.FeeStructure = structure
	}
	return detail, nil
}

// Create admits a student and initializes their fee structure.
func (s *StudentService) Create(ctx context.Context, req CreateStudentRequest) (*StudentDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	exists, err := s.repo.ExistsByAdmissionNo(ctx, req.AdmissionNo, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate admission number")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "admission number already registered")
	}

	student := &models.Student{
		AdmissionNo:    req.AdmissionNo,
		FullName:       req.FullName,
		ClassName:      req.ClassName,
		Gender:         req.Gender,
		GuardianName:   req.GuardianName,
		GuardianEmail:  req.GuardianEmail,
		Phone:          req.Phone,
		TransportOpted: req.TransportOpted,
		Active:         true,
	}
	if err := s.repo.Create(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
	}

	structure, err := s.fees.InitializeStructure(ctx, student, req.FeeOverrides)
	if err != nil {
		return nil, err
	}
	return &StudentDetail{Student: *student, FeeStructure: structure}, nil
}

// Update modifies student contact details.
func (s *StudentService) Update(ctx context.Context, id string, req UpdateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrStudentNotFound, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	student.FullName = req.FullName
	student.Gender = req.Gender
	student.GuardianName = req.GuardianName
	student.GuardianEmail = req.GuardianEmail
	student.Phone = req.Phone
	if err := s.repo.Update(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student")
	}
	return student, nil
}

// Deactivate marks a student inactive.
func (s *StudentService) Deactivate(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrStudentNotFound, "")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate student")
	}
	return nil
}
