package model

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	AppointmentStatusConfirmed AppointmentStatus = "confirmed"
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
	AppointmentStatusCompleted AppointmentStatus = "completed"
)

// Appointment is only ever written through the scheduling engine's
// validated booking path. Its clinic must match both the doctor's and the
// patient's clinic.
type Appointment struct {
	Base
	ClinicID  uuid.UUID         `db:"clinic_id" json:"clinic_id"`
	DoctorID  uuid.UUID         `db:"doctor_id" json:"doctor_id"`
	PatientID uuid.UUID         `db:"patient_id" json:"patient_id"`
	StartTime time.Time         `db:"start_time" json:"start_time"`
	EndTime   time.Time         `db:"end_time" json:"end_time"`
	Status    AppointmentStatus `db:"status" json:"status"`
}

// Interval returns the booked [start, end) range.
func (a *Appointment) Interval() TimeRange {
	return TimeRange{Start: a.StartTime, End: a.EndTime}
}

type BookAppointmentRequest struct {
	ClinicID  uuid.UUID `json:"clinic_id" binding:"required"`
	DoctorID  uuid.UUID `json:"doctor_id" binding:"required"`
	PatientID uuid.UUID `json:"patient_id" binding:"required"`
	StartTime time.Time `json:"start_time" binding:"required"`
	// EndTime is optional; when omitted the engine applies the configured
	// default appointment duration.
	EndTime        *time.Time `json:"end_time"`
	IdempotencyKey string     `json:"idempotency_key" binding:"omitempty,max=128"`
}

type RescheduleAppointmentRequest struct {
	StartTime time.Time  `json:"start_time" binding:"required"`
	EndTime   *time.Time `json:"end_time"`
}

type AppointmentFilters struct {
	ClinicID  uuid.UUID
	DoctorID  uuid.UUID
	PatientID uuid.UUID
	Status    AppointmentStatus
	StartDate time.Time
	EndDate   time.Time
}
