package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// FeeComponent identifies one billable category of a student's fee structure.
type FeeComponent string

const (
	ComponentTuitionFirstTerm  FeeComponent = "tuition.firstTerm"
	ComponentTuitionSecondTerm FeeComponent = "tuition.secondTerm"
	ComponentTransport         FeeComponent = "transport"
	ComponentKit               FeeComponent = "kit"
)

// AllComponents fixes the canonical iteration order. Payment batches are
// always processed in this order so that results never depend on map order.
var AllComponents = []FeeComponent{
	ComponentTuitionFirstTerm,
	ComponentTuitionSecondTerm,
	ComponentTransport,
	ComponentKit,
}

// Valid reports whether the component is one of the known categories.
func (c FeeComponent) Valid() bool {
	switch c {
	case ComponentTuitionFirstTerm, ComponentTuitionSecondTerm, ComponentTransport, ComponentKit:
		return true
	}
	return false
}

// PaymentMode is the channel a payment arrived through.
type PaymentMode string

const (
	ModeCash     PaymentMode = "cash"
	ModeUPI      PaymentMode = "upi"
	ModeRazorpay PaymentMode = "razorpay"
)

// TuitionTerm names the tuition installment a payment touched.
type TuitionTerm string

const (
	TermFirst  TuitionTerm = "First Term"
	TermSecond TuitionTerm = "Second Term"
)

// ComponentAmounts is a component-to-amount mapping persisted as JSONB.
// Amounts are whole rupees.
type ComponentAmounts map[FeeComponent]int64

// Value implements driver.Valuer for JSONB storage.
func (m ComponentAmounts) Value() (driver.Value, error) {
	if m == nil {
		m = ComponentAmounts{}
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner for JSONB columns.
func (m *ComponentAmounts) Scan(src interface{}) error {
	if src == nil {
		*m = ComponentAmounts{}
		return nil
	}
	raw, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("unsupported type %T for ComponentAmounts", src)
	}
	return json.Unmarshal(raw, m)
}

// PaidFor flags which component categories a payment touched.
type PaidFor struct {
	Tuition   bool `json:"tuition"`
	Transport bool `json:"transport"`
	Kit       bool `json:"kit"`
}

// Value implements driver.Valuer for JSONB storage.
func (p PaidFor) Value() (driver.Value, error) {
	return json.Marshal(p)
}

// Scan implements sql.Scanner for JSONB columns.
func (p *PaidFor) Scan(src interface{}) error {
	if src == nil {
		*p = PaidFor{}
		return nil
	}
	raw, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("unsupported type %T for PaidFor", src)
	}
	return json.Unmarshal(raw, p)
}

// FeeStructure tracks what a student still owes per component. The per-term
// tuition, transport and kit columns hold remaining-due amounts: they start at
// the original due and are overwritten with zero once the component is fully
// paid. PaidComponents accumulates what has been paid against each component
// and is the ceiling reference for the overpayment guard. Version supports
// compare-and-swap writes.
type FeeStructure struct {
	StudentID         string           `db:"student_id" json:"student_id"`
	TuitionFirstTerm  int64            `db:"tuition_first_term" json:"tuition_first_term"`
	TuitionSecondTerm int64            `db:"tuition_second_term" json:"tuition_second_term"`
	Transport         int64            `db:"transport" json:"transport"`
	Kit               int64            `db:"kit" json:"kit"`
	Total             int64            `db:"total" json:"total"`
	Paid              int64            `db:"paid" json:"paid"`
	Balance           int64            `db:"balance" json:"balance"`
	PaidComponents    ComponentAmounts `db:"paid_components" json:"paid_components"`
	Version           int64            `db:"version" json:"-"`
	CreatedAt         time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time        `db:"updated_at" json:"updated_at"`
}

// RemainingDue returns the live remaining-due value for a component.
func (f *FeeStructure) RemainingDue(c FeeComponent) int64 {
	switch c {
	case ComponentTuitionFirstTerm:
		return f.TuitionFirstTerm
	case ComponentTuitionSecondTerm:
		return f.TuitionSecondTerm
	case ComponentTransport:
		return f.Transport
	case ComponentKit:
		return f.Kit
	}
	return 0
}

// SetRemainingDue overwrites the remaining-due value for a component.
func (f *FeeStructure) SetRemainingDue(c FeeComponent, amount int64) {
	switch c {
	case ComponentTuitionFirstTerm:
		f.TuitionFirstTerm = amount
	case ComponentTuitionSecondTerm:
		f.TuitionSecondTerm = amount
	case ComponentTransport:
		f.Transport = amount
	case ComponentKit:
		f.Kit = amount
	}
}

// OriginalDue reconstructs the amount assigned at initialization time.
// While a component is partially paid its remaining-due column still holds
// the original figure; once retired the column is zero and the cumulative
// paid amount equals the original.
func (f *FeeStructure) OriginalDue(c FeeComponent) int64 {
	remaining := f.RemainingDue(c)
	paid := f.PaidComponents[c]
	if paid > remaining {
		return paid
	}
	return remaining
}

// FeePayment is one append-only payment history entry.
type FeePayment struct {
	ID            string           `db:"id" json:"id"`
	StudentID     string           `db:"student_id" json:"student_id"`
	Amount        int64            `db:"amount" json:"amount"`
	Mode          PaymentMode      `db:"mode" json:"mode"`
	TransactionID string           `db:"transaction_id" json:"transaction_id"`
	PaymentMethod string           `db:"payment_method" json:"payment_method"`
	Term          *TuitionTerm     `db:"term" json:"term,omitempty"`
	PaidFor       PaidFor          `db:"paid_for" json:"paid_for"`
	Breakdown     ComponentAmounts `db:"breakdown" json:"breakdown"`
	Date          time.Time        `db:"date" json:"date"`
}

// FeeSummary is the cached read model for the fee detail endpoint.
type FeeSummary struct {
	Structure FeeStructure `json:"structure"`
	Payments  []FeePayment `json:"payments"`
}
