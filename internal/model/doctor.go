package model

import (
	"time"

	"github.com/lib/pq"
)

// Doctor represents a doctor in the directory
type Doctor struct {
	Base
	Name                string         `json:"name" db:"name"`
	Specialization      string         `json:"specialization" db:"specialization"`
	Email               string         `json:"email" db:"email"`
	Phone               string         `json:"phone" db:"phone"`
	Experience          int            `json:"experience" db:"experience"`
	LicenseNumber       string         `json:"license_number" db:"license_number"`
	Hospital            string         `json:"hospital" db:"hospital"`
	Bio                 *string        `json:"bio,omitempty" db:"bio"`
	ProfileImage        *string        `json:"profile_image,omitempty" db:"profile_image"`
	ConsultationFee     float64        `json:"consultation_fee" db:"consultation_fee"`
	AvailableDays       pq.StringArray `json:"available_days" db:"available_days"`
	StartTime           string         `json:"start_time" db:"start_time"`
	EndTime             string         `json:"end_time" db:"end_time"`
	AppointmentDuration int            `json:"appointment_duration" db:"appointment_duration"`
	IsActive            bool           `json:"is_active" db:"is_active"`
}

// AvailableOn reports whether the doctor works on the given weekday
func (d *Doctor) AvailableOn(day time.Weekday) bool {
	for _, name := range d.AvailableDays {
		if name == day.String() {
			return true
		}
	}
	return false
}

// CreateDoctorRequest represents doctor creation parameters
type CreateDoctorRequest struct {
	Name                string   `json:"name" binding:"required,max=100"`
	Specialization      string   `json:"specialization" binding:"required,max=100"`
	Email               string   `json:"email" binding:"required,email"`
	Phone               string   `json:"phone" binding:"required,max=20"`
	Experience          int      `json:"experience" binding:"min=0"`
	LicenseNumber       string   `json:"license_number" binding:"required,max=50"`
	Hospital            string   `json:"hospital" binding:"required,max=200"`
	Bio                 *string  `json:"bio"`
	ProfileImage        *string  `json:"profile_image"`
	ConsultationFee     float64  `json:"consultation_fee" binding:"min=0"`
	AvailableDays       []string `json:"available_days" binding:"required,min=1,dive,oneof=Monday Tuesday Wednesday Thursday Friday Saturday Sunday"`
	StartTime           string   `json:"start_time" binding:"required,hhmm"`
	EndTime             string   `json:"end_time" binding:"required,hhmm"`
	AppointmentDuration int      `json:"appointment_duration" binding:"omitempty,min=5,max=180"`
}

// UpdateDoctorRequest represents doctor update parameters
type UpdateDoctorRequest struct {
	Name                *string  `json:"name" binding:"omitempty,max=100"`
	Specialization      *string  `json:"specialization" binding:"omitempty,max=100"`
	Email               *string  `json:"email" binding:"omitempty,email"`
	Phone               *string  `json:"phone" binding:"omitempty,max=20"`
	Experience          *int     `json:"experience" binding:"omitempty,min=0"`
	LicenseNumber       *string  `json:"license_number" binding:"omitempty,max=50"`
	Hospital            *string  `json:"hospital" binding:"omitempty,max=200"`
	Bio                 *string  `json:"bio"`
	ProfileImage        *string  `json:"profile_image"`
	ConsultationFee     *float64 `json:"consultation_fee" binding:"omitempty,min=0"`
	AvailableDays       []string `json:"available_days" binding:"omitempty,min=1,dive,oneof=Monday Tuesday Wednesday Thursday Friday Saturday Sunday"`
	StartTime           *string  `json:"start_time" binding:"omitempty,hhmm"`
	EndTime             *string  `json:"end_time" binding:"omitempty,hhmm"`
	AppointmentDuration *int     `json:"appointment_duration" binding:"omitempty,min=5,max=180"`
}

// DoctorFilters represents doctor search parameters
type DoctorFilters struct {
	Specialization string `form:"specialization"`
	Search         string `form:"search"`
	Pagination
}

// DoctorList is the paginated doctor directory response
type DoctorList struct {
	Doctors    []*Doctor `json:"doctors"`
	Total      int64     `json:"total"`
	Page       int       `json:"page"`
	Limit      int       `json:"limit"`
	TotalPages int       `json:"total_pages"`
}

// AvailableSlot is a candidate appointment window within working hours
type AvailableSlot struct {
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Available bool      `json:"available"`
}
