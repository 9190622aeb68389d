package service

import "github.com/noah-isme/school-fees-api/internal/models"

// TierGraduated is the terminal tier: promoting into it archives the student
// without creating a new fee structure.
const TierGraduated = "graduated"

// FeeSchedule is the annual default due per component for one class tier.
// Amounts are whole rupees; tuition is split into two terms at
// initialization time.
type FeeSchedule struct {
	Tuition   int64
	Transport int64
	Kit       int64
}

// ScheduleOverrides lets callers replace individual defaults per student.
type ScheduleOverrides struct {
	Tuition   *int64 `json:"tuition,omitempty"`
	Transport *int64 `json:"transport,omitempty"`
	Kit       *int64 `json:"kit,omitempty"`
}

// FeeScheduleTable maps class tiers to their default schedule. The table is
// built once at startup and shared read-only between the fee and promotion
// services.
type FeeScheduleTable struct {
	tiers    map[string]FeeSchedule
	fallback FeeSchedule
}

// DefaultFeeScheduleTable returns the standard schedule table.
func DefaultFeeScheduleTable() *FeeScheduleTable {
	return &FeeScheduleTable{
		tiers: map[string]FeeSchedule{
			"nursery": {Tuition: 30000, Transport: 8000, Kit: 10000},
			"lkg":     {Tuition: 32000, Transport: 8000, Kit: 10000},
			"ukg":     {Tuition: 34000, Transport: 8000, Kit: 12000},
			"class-1": {Tuition: 40000, Transport: 9000, Kit: 12000},
			"class-2": {Tuition: 42000, Transport: 9000, Kit: 12000},
			"class-3": {Tuition: 44000, Transport: 10000, Kit: 15000},
			"class-4": {Tuition: 46000, Transport: 10000, Kit: 15000},
		},
		fallback: FeeSchedule{Tuition: 35000, Transport: 8000, Kit: 10000},
	}
}

// Lookup resolves the schedule for a tier, falling back to the generic default.
func (t *FeeScheduleTable) Lookup(classTier string) FeeSchedule {
	if schedule, ok := t.tiers[classTier]; ok {
		return schedule
	}
	return t.fallback
}

// NewStructure builds a fresh fee structure for the given tier. Overrides win
// over defaults per field, transport is forced to zero when not opted, and
// tuition splits floor/ceil so both terms always sum to the tuition amount.
func (t *FeeScheduleTable) NewStructure(classTier string, overrides ScheduleOverrides, transportOpted bool) models.FeeStructure {
	schedule := t.Lookup(classTier)

	tuition := schedule.Tuition
	if overrides.Tuition != nil {
		tuition = *overrides.Tuition
	}
	transport := schedule.Transport
	if overrides.Transport != nil {
		transport = *overrides.Transport
	}
	if !transportOpted {
		transport = 0
	}
	kit := schedule.Kit
	if overrides.Kit != nil {
		kit = *overrides.Kit
	}

	firstTerm := tuition / 2
	secondTerm := tuition - firstTerm
	total := firstTerm + secondTerm + transport + kit

	return models.FeeStructure{
		TuitionFirstTerm:  firstTerm,
		TuitionSecondTerm: secondTerm,
		Transport:         transport,
		Kit:               kit,
		Total:             total,
		Paid:              0,
		Balance:           total,
		PaidComponents:    models.ComponentAmounts{},
		Version:           0,
	}
}
