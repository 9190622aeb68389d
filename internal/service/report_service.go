package service

import (
	"context"
	"strconv"

	"github.com/noah-isme/school-fees-api/pkg/export"
	appErrors "github.com/noah-isme/school-fees-api/pkg/errors"
)

// ReportService produces office exports from the fee ledger.
type ReportService struct {
	fees     outstandingLister
	exporter *export.CSVExporter
}

// NewReportService constructs a ReportService.
func NewReportService(fees outstandingLister) *ReportService {
	return &ReportService{fees: fees, exporter: export.NewCSVExporter()}
}

// OutstandingFeesCSV renders the open-balance roster as CSV, ordered by class
// then name.
func (s *ReportService) OutstandingFeesCSV(ctx context.Context) ([]byte, error) {
	outstanding, err := s.fees.ListOutstanding(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list outstanding fees")
	}

	dataset := export.Dataset{
		Headers: []string{"student_id", "full_name", "class_name", "guardian_name", "guardian_email", "balance"},
		Rows:    make([]map[string]string, 0, len(outstanding)),
	}
	for _, entry := range outstanding {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"student_id":     entry.StudentID,
			"full_name":      entry.FullName,
			"class_name":     entry.ClassName,
			"guardian_name":  entry.GuardianName,
			"guardian_email": entry.GuardianEmail,
			"balance":        strconv.FormatInt(entry.Balance, 10),
		})
	}

	data, err := s.exporter.Render(dataset)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render report")
	}
	return data, nil
}
