package model

import (
	"medsys/shared/model"
	"strings"
	"time"
)

const (
	TableName  = "appointments"
	EntityName = "appointment"

	FieldID        = "id"
	FieldPatientID = "patient_id"
	FieldDoctorID  = "doctor_id"
	FieldStartTime = "start_time"
	FieldEndTime   = "end_time"
	FieldStatus    = "status"
	FieldReason    = "reason"
	FieldSlotIndex = "slot_index"
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusAccepted  Status = "ACCEPTED"
	StatusDenied    Status = "DENIED"
	StatusCancelled Status = "CANCELLED"
)

// LiveStatuses are the statuses that still occupy a slot.
func LiveStatuses() []Status {
	return []Status{StatusPending, StatusAccepted}
}

func (s Status) IsLive() bool {
	return s == StatusPending || s == StatusAccepted
}

// ParseStatus accepts any letter case.
func ParseStatus(raw string) (Status, bool) {
	status := Status(strings.ToUpper(strings.TrimSpace(raw)))

	switch status {
	case StatusPending, StatusAccepted, StatusDenied, StatusCancelled:
		return status, true
	default:
		return "", false
	}
}

// Party selects which side of an appointment a query is about.
type Party string

const (
	PartyDoctor  Party = "doctor"
	PartyPatient Party = "patient"
)

// Column returns the appointments column holding the party id.
func (p Party) Column() string {
	if p == PartyDoctor {
		return FieldDoctorID
	}

	return FieldPatientID
}

// Caller is the authenticated identity on whose behalf an operation runs.
type Caller struct {
	ID   string
	Role string
}

func (c Caller) Authenticated() bool {
	return c.ID != ""
}

type Appointment struct {
	ID        string    `db:"id"`
	PatientID string    `db:"patient_id"`
	DoctorID  string    `db:"doctor_id"`
	StartTime time.Time `db:"start_time"`
	EndTime   time.Time `db:"end_time"`
	Status    Status    `db:"status"`
	Reason    *string   `db:"reason"`
	SlotIndex int       `db:"slot_index"`
	model.Metadata
}
