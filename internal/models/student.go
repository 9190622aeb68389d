package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Student represents a learner registered in the institution. ClassName is
// the tier key the default fee schedule is looked up by.
type Student struct {
	ID             string          `db:"id" json:"id"`
	AdmissionNo    string          `db:"admission_no" json:"admission_no"`
	FullName       string          `db:"full_name" json:"full_name"`
	ClassName      string          `db:"class_name" json:"class_name"`
	Gender         string          `db:"gender" json:"gender"`
	GuardianName   string          `db:"guardian_name" json:"guardian_name"`
	GuardianEmail  string          `db:"guardian_email" json:"guardian_email"`
	Phone          string          `db:"phone" json:"phone"`
	TransportOpted bool            `db:"transport_opted" json:"transport_opted"`
	Performance    json.RawMessage `db:"performance" json:"performance,omitempty"`
	Attendance     json.RawMessage `db:"attendance" json:"attendance,omitempty"`
	Active         bool            `db:"active" json:"active"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at" json:"updated_at"`
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search    string
	ClassName string
	Active    *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// PromotionSnapshot is the immutable per-promotion archive payload. It copies
// the state the student left behind when moving to a new tier.
type PromotionSnapshot struct {
	ClassName    string          `json:"class_name"`
	FeeStructure FeeStructure    `json:"fee_structure"`
	Performance  json.RawMessage `json:"performance,omitempty"`
	Attendance   json.RawMessage `json:"attendance,omitempty"`
}

// Value implements driver.Valuer for JSONB storage.
func (s PromotionSnapshot) Value() (driver.Value, error) {
	return json.Marshal(s)
}

// Scan implements sql.Scanner for JSONB columns.
func (s *PromotionSnapshot) Scan(src interface{}) error {
	if src == nil {
		*s = PromotionSnapshot{}
		return nil
	}
	raw, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("unsupported type %T for PromotionSnapshot", src)
	}
	return json.Unmarshal(raw, s)
}

// PromotionRecord is one archived promotion history row.
type PromotionRecord struct {
	ID         string            `db:"id" json:"id"`
	StudentID  string            `db:"student_id" json:"student_id"`
	FromClass  string            `db:"from_class" json:"from_class"`
	ToClass    string            `db:"to_class" json:"to_class"`
	Snapshot   PromotionSnapshot `db:"snapshot" json:"snapshot"`
	PromotedAt time.Time         `db:"promoted_at" json:"promoted_at"`
}
