// Package record defines the resource record variants exchanged with the
// backend and their local pre-submission validation. Records are immutable
// snapshots of backend state; stores never patch them in place.
package record

import "strings"

// RecordType classifies a discipline record.
type RecordType string

const (
	// Delay marks a late arrival.
	Delay RecordType = "delay"
	// Absence marks a missed day.
	Absence RecordType = "absence"
)

// SMSRecipient selects who is notified about a discipline record.
type SMSRecipient string

const (
	SMSNone   SMSRecipient = "none"
	SMSFather SMSRecipient = "father"
	SMSMother SMSRecipient = "mother"
)

// Student is one enrolled student.
type Student struct {
	ID          int64        `json:"id"`
	FirstName   string       `json:"first_name" validate:"required"`
	LastName    string       `json:"last_name" validate:"required"`
	NationalID  string       `json:"national_id" validate:"required,numeric"`
	FatherName  string       `json:"father_name"`
	FatherPhone string       `json:"father_phone" validate:"omitempty,numeric"`
	MotherPhone string       `json:"mother_phone" validate:"omitempty,numeric"`
	ClassID     int64        `json:"class_obj_id,omitempty"`
	Class       *ClassOption `json:"class_obj,omitempty"`
}

func (s Student) RecordID() int64 { return s.ID }

// SearchFields exposes the values Search matches against.
func (s Student) SearchFields() []string {
	return []string{s.FirstName, s.LastName, s.NationalID}
}

// FullName joins the name parts for display surfaces.
func (s Student) FullName() string {
	return strings.TrimSpace(s.FirstName + " " + s.LastName)
}

// DisciplineRecord is one delay or absence entry for a student.
type DisciplineRecord struct {
	ID           int64        `json:"id"`
	Student      int64        `json:"student" validate:"required"`
	RecordType   RecordType   `json:"record_type" validate:"required,oneof=delay absence"`
	Description  string       `json:"description" validate:"required"`
	SMSRecipient SMSRecipient `json:"sms_recipient" validate:"omitempty,oneof=none father mother"`
	RecordDate   string       `json:"record_date" validate:"required,dateonly,notfuture"`
	SMSSent      bool         `json:"sms_sent,omitempty"`
}

func (r DisciplineRecord) RecordID() int64 { return r.ID }

func (r DisciplineRecord) SearchFields() []string {
	return []string{string(r.RecordType), r.Description, r.RecordDate}
}

// ParentVisit records a parent coming in to discuss a student.
type ParentVisit struct {
	ID        int64  `json:"id"`
	Student   int64  `json:"student" validate:"required"`
	VisitDate string `json:"visit_date" validate:"required,dateonly,notfuture"`
	Reason    string `json:"reason" validate:"required"`
	Notes     string `json:"notes,omitempty"`
}

func (v ParentVisit) RecordID() int64 { return v.ID }

func (v ParentVisit) SearchFields() []string {
	return []string{v.VisitDate, v.Reason, v.Notes}
}

// AcademicYear is a selectable school year.
type AcademicYear struct {
	ID       int64  `json:"id"`
	YearName string `json:"year_name"`
}

func (y AcademicYear) RecordID() int64 { return y.ID }

func (y AcademicYear) SearchFields() []string { return []string{y.YearName} }

// ClassOption is one concrete class within a year, grade and field.
type ClassOption struct {
	ID           int64  `json:"id"`
	Grade        string `json:"grade"`
	Field        string `json:"field"`
	ClassNumber  string `json:"class_number"`
	AcademicYear int64  `json:"academic_year,omitempty"`
}

func (c ClassOption) RecordID() int64 { return c.ID }

func (c ClassOption) SearchFields() []string {
	return []string{c.Grade, c.Field, c.ClassNumber}
}
