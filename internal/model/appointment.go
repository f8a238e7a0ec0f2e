package model

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	AppointmentStatusScheduled AppointmentStatus = "SCHEDULED"
	AppointmentStatusConfirmed AppointmentStatus = "CONFIRMED"
	AppointmentStatusCancelled AppointmentStatus = "CANCELLED"
	AppointmentStatusCompleted AppointmentStatus = "COMPLETED"
	AppointmentStatusNoShow    AppointmentStatus = "NO_SHOW"
)

// Valid reports whether s is a known appointment status
func (s AppointmentStatus) Valid() bool {
	switch s {
	case AppointmentStatusScheduled, AppointmentStatusConfirmed,
		AppointmentStatusCancelled, AppointmentStatusCompleted,
		AppointmentStatusNoShow:
		return true
	}
	return false
}

type Appointment struct {
	Base
	DoctorID        uuid.UUID         `json:"doctor_id" db:"doctor_id"`
	PatientID       uuid.UUID         `json:"patient_id" db:"patient_id"`
	StartTime       time.Time         `json:"start_time" db:"start_time"`
	EndTime         time.Time         `json:"end_time" db:"end_time"`
	Status          AppointmentStatus `json:"status" db:"status"`
	Reason          *string           `json:"reason,omitempty" db:"reason"`
	Notes           *string           `json:"notes,omitempty" db:"notes"`
	Symptoms        *string           `json:"symptoms,omitempty" db:"symptoms"`
	ConsultationFee float64           `json:"consultation_fee" db:"consultation_fee"`
	PatientArrived  bool              `json:"patient_arrived" db:"patient_arrived"`
	ReminderSent    bool              `json:"reminder_sent" db:"reminder_sent"`

	// populated by joined queries, not persisted on this row
	DoctorName  *string `json:"doctor_name,omitempty" db:"doctor_name"`
	PatientName *string `json:"patient_name,omitempty" db:"patient_name"`
}

type CreateAppointmentRequest struct {
	DoctorID  uuid.UUID `json:"doctor_id" binding:"required"`
	StartTime time.Time `json:"start_time" binding:"required"`
	EndTime   time.Time `json:"end_time" binding:"required"`
	Reason    *string   `json:"reason"`
	Symptoms  *string   `json:"symptoms"`
}

type UpdateAppointmentRequest struct {
	StartTime *time.Time         `json:"start_time"`
	EndTime   *time.Time         `json:"end_time"`
	Status    *AppointmentStatus `json:"status"`
	Reason    *string            `json:"reason"`
	Notes     *string            `json:"notes"`
	Symptoms  *string            `json:"symptoms"`
}

type AppointmentFilters struct {
	DoctorID  uuid.UUID
	PatientID uuid.UUID
	Status    AppointmentStatus
	StartDate *time.Time
	EndDate   *time.Time
}
