package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/medbook/booking-api/internal/model"
)

// All repository interfaces in one file
type (
	UserRepository interface {
		Create(ctx context.Context, user *model.User) error
		Get(ctx context.Context, id uuid.UUID) (*model.User, error)
		GetByEmail(ctx context.Context, email string) (*model.User, error)
		Update(ctx context.Context, user *model.User) error
		Delete(ctx context.Context, id uuid.UUID) error
		List(ctx context.Context) ([]*model.User, error)
	}

	DoctorRepository interface {
		Create(ctx context.Context, doctor *model.Doctor) error
		Get(ctx context.Context, id uuid.UUID) (*model.Doctor, error)
		FindByEmailOrLicense(ctx context.Context, email, licenseNumber string) (*model.Doctor, error)
		Update(ctx context.Context, doctor *model.Doctor) error
		Deactivate(ctx context.Context, id uuid.UUID) error
		List(ctx context.Context, filters *model.DoctorFilters) ([]*model.Doctor, int64, error)
		ListSpecializations(ctx context.Context) ([]string, error)
	}

	AppointmentRepository interface {
		// Create locks the doctor row, re-runs the overlap check and inserts
		// in a single transaction.
		Create(ctx context.Context, appointment *model.Appointment) error
		Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
		Update(ctx context.Context, appointment *model.Appointment) error
		Delete(ctx context.Context, id uuid.UUID) error
		List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error)
		ListForPatient(ctx context.Context, patientID uuid.UUID) ([]*model.Appointment, error)
		ListUpcoming(ctx context.Context, patientID uuid.UUID, limit int) ([]*model.Appointment, error)
		ListForDoctorBetween(ctx context.Context, doctorID uuid.UUID, start, end time.Time) ([]*model.Appointment, error)
		HasConflict(ctx context.Context, doctorID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) (bool, error)
		ListDueReminders(ctx context.Context, within time.Duration, limit int) ([]*model.Appointment, error)
		MarkReminderSent(ctx context.Context, id uuid.UUID) error
	}

	// TokenStore tracks revoked access tokens until they expire on their own.
	TokenStore interface {
		Revoke(ctx context.Context, token string, ttl time.Duration) error
		IsRevoked(ctx context.Context, token string) (bool, error)
	}
)
