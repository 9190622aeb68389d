package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/school-fees-api/internal/models"
	"github.com/noah-isme/school-fees-api/internal/repository"
	appErrors "github.com/noah-isme/school-fees-api/pkg/errors"
)

type mockPromotionRepo struct {
	applied   []repository.PromoteParams
	records   map[string][]models.PromotionRecord
	conflicts int
	calls     int
}

func (m *mockPromotionRepo) Promote(ctx context.Context, params repository.PromoteParams) error {
	m.calls++
	if m.conflicts > 0 {
		m.conflicts--
		return repository.ErrVersionConflict
	}
	m.applied = append(m.applied, params)
	return nil
}

func (m *mockPromotionRepo) History(ctx context.Context, studentID string) ([]models.PromotionRecord, error) {
	return m.records[studentID], nil
}

func newPromotionFixture(t *testing.T, seed ...models.Student) (*PromotionService, *mockPromotionRepo, *mockStudentRepo, *mockFeeRepo, *mockCache) {
	t.Helper()
	repo := &mockPromotionRepo{records: make(map[string][]models.PromotionRecord)}
	students := newMockStudentRepo(seed...)
	feeRepo := &mockFeeRepo{structures: make(map[string]models.FeeStructure)}
	cache := &mockCache{entries: make(map[string][]byte)}
	svc := NewPromotionService(repo, students, feeRepo, cache, DefaultFeeScheduleTable(), validator.New(), zap.NewNop(), 3)
	return svc, repo, students, feeRepo, cache
}

func TestPromoteArchivesSnapshotAndResetsStructure(t *testing.T) {
	svc, repo, _, feeRepo, cache := newPromotionFixture(t, models.Student{
		ID:             "stu-1",
		ClassName:      "class-3",
		TransportOpted: true,
		Performance:    json.RawMessage(`{"grade":"A"}`),
		Attendance:     json.RawMessage(`{"present":180}`),
		Active:         true,
	})
	structure := scenarioStructure("stu-1")
	structure.Paid = 42500
	structure.Balance = 27500
	structure.Version = 4
	feeRepo.structures["stu-1"] = structure
	cache.entries["fees:summary:stu-1"] = []byte(`{}`)

	outcome, err := svc.Promote(context.Background(), "stu-1", PromoteRequest{ToClass: "class-4"})
	require.NoError(t, err)

	assert.True(t, outcome.Promoted)
	assert.Equal(t, "class-3", outcome.FromClass)
	assert.Equal(t, "class-4", outcome.ToClass)

	require.Len(t, repo.applied, 1)
	params := repo.applied[0]
	assert.Equal(t, "class-3", params.Snapshot.ClassName)
	assert.Equal(t, int64(27500), params.Snapshot.FeeStructure.Balance)
	assert.JSONEq(t, `{"grade":"A"}`, string(params.Snapshot.Performance))
	assert.JSONEq(t, `{"present":180}`, string(params.Snapshot.Attendance))
	assert.Equal(t, int64(4), params.StructureVersion)
	assert.False(t, params.Graduating)

	require.NotNil(t, params.NewStructure)
	assert.Equal(t, "stu-1", params.NewStructure.StudentID)
	assert.Equal(t, int64(71000), params.NewStructure.Total)
	assert.Equal(t, int64(0), params.NewStructure.Paid)

	assert.Contains(t, cache.deleted, "fees:summary:stu-1")
}

func TestPromoteGraduationSkipsNewStructure(t *testing.T) {
	svc, repo, _, feeRepo, _ := newPromotionFixture(t, models.Student{ID: "stu-1", ClassName: "class-4", Active: true})
	feeRepo.structures["stu-1"] = scenarioStructure("stu-1")

	outcome, err := svc.Promote(context.Background(), "stu-1", PromoteRequest{ToClass: TierGraduated})
	require.NoError(t, err)
	assert.True(t, outcome.Promoted)

	require.Len(t, repo.applied, 1)
	assert.True(t, repo.applied[0].Graduating)
	assert.Nil(t, repo.applied[0].NewStructure)
}

func TestPromoteInactiveStudent(t *testing.T) {
	svc, repo, _, feeRepo, _ := newPromotionFixture(t, models.Student{ID: "stu-1", ClassName: "class-3", Active: false})
	feeRepo.structures["stu-1"] = scenarioStructure("stu-1")

	_, err := svc.Promote(context.Background(), "stu-1", PromoteRequest{ToClass: "class-4"})
	assert.Equal(t, appErrors.ErrConflict.Code, errorCode(t, err))
	assert.Zero(t, repo.calls)
}

func TestPromoteUnknownStudent(t *testing.T) {
	svc, _, _, _, _ := newPromotionFixture(t)

	_, err := svc.Promote(context.Background(), "ghost", PromoteRequest{ToClass: "class-4"})
	assert.Equal(t, appErrors.ErrStudentNotFound.Code, errorCode(t, err))
}

func TestPromoteWithoutStructure(t *testing.T) {
	svc, _, _, _, _ := newPromotionFixture(t, models.Student{ID: "stu-1", ClassName: "class-3", Active: true})

	_, err := svc.Promote(context.Background(), "stu-1", PromoteRequest{ToClass: "class-4"})
	assert.Equal(t, appErrors.ErrNotInitialized.Code, errorCode(t, err))
}

func TestPromoteRetriesOnVersionConflict(t *testing.T) {
	svc, repo, _, feeRepo, _ := newPromotionFixture(t, models.Student{ID: "stu-1", ClassName: "class-3", Active: true})
	feeRepo.structures["stu-1"] = scenarioStructure("stu-1")
	repo.conflicts = 1

	outcome, err := svc.Promote(context.Background(), "stu-1", PromoteRequest{ToClass: "class-4"})
	require.NoError(t, err)
	assert.True(t, outcome.Promoted)
	assert.Equal(t, 2, repo.calls)
}

func TestPromoteConcurrentModificationExhausted(t *testing.T) {
	svc, repo, _, feeRepo, _ := newPromotionFixture(t, models.Student{ID: "stu-1", ClassName: "class-3", Active: true})
	feeRepo.structures["stu-1"] = scenarioStructure("stu-1")
	repo.conflicts = 5

	_, err := svc.Promote(context.Background(), "stu-1", PromoteRequest{ToClass: "class-4"})
	assert.Equal(t, appErrors.ErrConcurrentModification.Code, errorCode(t, err))
	assert.Equal(t, 3, repo.calls)
}

func TestPromoteBatchOutcomesAreIndependent(t *testing.T) {
	svc, repo, _, feeRepo, _ := newPromotionFixture(t,
		models.Student{ID: "stu-1", ClassName: "class-3", Active: true},
		models.Student{ID: "stu-2", ClassName: "class-3", Active: false},
		models.Student{ID: "stu-3", ClassName: "class-3", Active: true},
	)
	feeRepo.structures["stu-1"] = scenarioStructure("stu-1")
	feeRepo.structures["stu-3"] = scenarioStructure("stu-3")

	outcomes, err := svc.PromoteBatch(context.Background(), BatchPromoteRequest{
		StudentIDs: []string{"stu-1", "stu-2", "stu-3"},
		ToClass:    "class-4",
	})
	require.NoError(t, err)
	require.Len(t, outcomes, 3)

	assert.True(t, outcomes[0].Promoted)
	assert.Empty(t, outcomes[0].ErrorCode)

	assert.False(t, outcomes[1].Promoted)
	assert.Equal(t, appErrors.ErrConflict.Code, outcomes[1].ErrorCode)
	assert.NotEmpty(t, outcomes[1].Error)

	// the middle failure never blocks the tail of the batch
	assert.True(t, outcomes[2].Promoted)
	assert.Len(t, repo.applied, 2)
}

func TestPromoteBatchRequiresStudents(t *testing.T) {
	svc, _, _, _, _ := newPromotionFixture(t)

	_, err := svc.PromoteBatch(context.Background(), BatchPromoteRequest{ToClass: "class-4"})
	assert.Equal(t, appErrors.ErrValidation.Code, errorCode(t, err))
}

func TestPromotionHistory(t *testing.T) {
	svc, repo, _, _, _ := newPromotionFixture(t, models.Student{ID: "stu-1", Active: true})
	repo.records["stu-1"] = []models.PromotionRecord{
		{ID: "promo-2", StudentID: "stu-1", FromClass: "class-3", ToClass: "class-4"},
		{ID: "promo-1", StudentID: "stu-1", FromClass: "class-2", ToClass: "class-3"},
	}

	records, err := svc.History(context.Background(), "stu-1")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "promo-2", records[0].ID)

	_, err = svc.History(context.Background(), "ghost")
	assert.Equal(t, appErrors.ErrStudentNotFound.Code, errorCode(t, err))
}
