package dto

import (
	"errors"
	"fmt"
	"medsys/internal/domains/appointment/model"
	"medsys/shared"
	"medsys/shared/constant"
	gDto "medsys/shared/dto"
	"medsys/shared/timezone"
	"strings"
	"time"
)

var errInvalidTimeFormat = errors.New("must be an RFC3339 timestamp")

type CreateAppointmentRequest struct {
	DoctorID  string `json:"doctor_id"            validate:"required"`
	PatientID string `json:"patient_id,omitempty" validate:"omitempty"`
	StartTime string `json:"start_time"           validate:"omitempty"`
	EndTime   string `json:"end_time"             validate:"omitempty"`
	Reason    string `json:"reason"               validate:"omitempty,max=500"`
}

// Interval parses the requested start and end. A blank value stays the zero time.
func (r *CreateAppointmentRequest) Interval() (start, end time.Time, err error) {
	start, err = parseInstant(r.StartTime)
	if err != nil {
		return start, end, fmt.Errorf("start_time %w", err)
	}

	end, err = parseInstant(r.EndTime)
	if err != nil {
		return start, end, fmt.Errorf("end_time %w", err)
	}

	return start, end, nil
}

// RequestedPatient falls back to the caller when the payload does not name a patient.
func (r *CreateAppointmentRequest) RequestedPatient(callerID string) string {
	if strings.TrimSpace(r.PatientID) == "" {
		return callerID
	}

	return r.PatientID
}

func (r *CreateAppointmentRequest) ReasonPtr() *string {
	reason := strings.TrimSpace(r.Reason)
	if reason == "" {
		return nil
	}

	return &reason
}

func parseInstant(raw string) (time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return time.Time{}, nil
	}

	parsed, err := timezone.Parse(constant.DateFormat, raw)
	if err != nil {
		return time.Time{}, errInvalidTimeFormat
	}

	return parsed, nil
}

type DecideAppointmentRequest struct {
	Decision string `json:"decision" validate:"omitempty"`
}

type AppointmentResponse struct {
	ID        string  `json:"id"`
	PatientID string  `json:"patient_id"`
	DoctorID  string  `json:"doctor_id"`
	StartTime string  `json:"start_time"`
	EndTime   string  `json:"end_time"`
	Status    string  `json:"status"`
	Reason    *string `json:"reason,omitempty"`
	gDto.Metadata
}

func (r *AppointmentResponse) FromModel(mod model.Appointment) {
	r.ID = mod.ID
	r.PatientID = mod.PatientID
	r.DoctorID = mod.DoctorID
	r.StartTime = timezone.Format(mod.StartTime, constant.DateFormat)
	r.EndTime = timezone.Format(mod.EndTime, constant.DateFormat)
	r.Status = string(mod.Status)
	r.Reason = mod.Reason
	r.Metadata.FromModel(mod.Metadata)
}

type GetAppointmentsResponse struct {
	Appointments []AppointmentResponse `json:"appointments"`
	TotalPage    int                   `json:"total_page"`
	TotalData    int                   `json:"total_data"`
}

func (r *GetAppointmentsResponse) FromModels(models []model.Appointment, totalData, limit int) {
	r.TotalData = totalData
	r.TotalPage = shared.CalculateTotalPage(totalData, limit)

	r.Appointments = make([]AppointmentResponse, len(models))
	for i, mod := range models {
		r.Appointments[i].FromModel(mod)
	}
}

// ListFilter narrows the appointment read endpoints.
type ListFilter struct {
	Status string
	From   string
	To     string
}

type ExportResponse struct {
	URL   string `json:"url"`
	Total int    `json:"total"`
}
