package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/medbook/booking-api/internal/model"
	apperrors "github.com/medbook/booking-api/pkg/errors"
)

func (r *doctorRepository) Create(ctx context.Context, doctor *model.Doctor) error {
	query := `
		INSERT INTO doctors (
			id, name, specialization, email, phone, experience,
			license_number, hospital, bio, profile_image, consultation_fee,
			available_days, start_time, end_time, appointment_duration,
			is_active, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`
	doctor.ID = uuid.New()
	doctor.CreatedAt = time.Now()
	doctor.UpdatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		doctor.ID,
		doctor.Name,
		doctor.Specialization,
		doctor.Email,
		doctor.Phone,
		doctor.Experience,
		doctor.LicenseNumber,
		doctor.Hospital,
		doctor.Bio,
		doctor.ProfileImage,
		doctor.ConsultationFee,
		doctor.AvailableDays,
		doctor.StartTime,
		doctor.EndTime,
		doctor.AppointmentDuration,
		doctor.IsActive,
		doctor.CreatedAt,
		doctor.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.Conflict("doctor with this email or license number already exists")
		}
		return fmt.Errorf("failed to create doctor: %w", err)
	}
	return nil
}

func (r *doctorRepository) Get(ctx context.Context, id uuid.UUID) (*model.Doctor, error) {
	query := `SELECT * FROM doctors WHERE id = $1 AND is_active = true`

	var doctor model.Doctor
	if err := r.db.GetContext(ctx, &doctor, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("doctor")
		}
		return nil, fmt.Errorf("failed to get doctor: %w", err)
	}
	return &doctor, nil
}

// FindByEmailOrLicense searches active and inactive doctors, both fields are
// globally unique.
func (r *doctorRepository) FindByEmailOrLicense(ctx context.Context, email, licenseNumber string) (*model.Doctor, error) {
	query := `SELECT * FROM doctors WHERE email = $1 OR license_number = $2 LIMIT 1`

	var doctor model.Doctor
	if err := r.db.GetContext(ctx, &doctor, query, email, licenseNumber); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("doctor")
		}
		return nil, fmt.Errorf("failed to find doctor: %w", err)
	}
	return &doctor, nil
}

func (r *doctorRepository) Update(ctx context.Context, doctor *model.Doctor) error {
	query := `
		UPDATE doctors SET
			name = $1,
			specialization = $2,
			email = $3,
			phone = $4,
			experience = $5,
			license_number = $6,
			hospital = $7,
			bio = $8,
			profile_image = $9,
			consultation_fee = $10,
			available_days = $11,
			start_time = $12,
			end_time = $13,
			appointment_duration = $14,
			updated_at = $15
		WHERE id = $16
	`
	doctor.UpdatedAt = time.Now()

	result, err := r.db.ExecContext(ctx, query,
		doctor.Name,
		doctor.Specialization,
		doctor.Email,
		doctor.Phone,
		doctor.Experience,
		doctor.LicenseNumber,
		doctor.Hospital,
		doctor.Bio,
		doctor.ProfileImage,
		doctor.ConsultationFee,
		doctor.AvailableDays,
		doctor.StartTime,
		doctor.EndTime,
		doctor.AppointmentDuration,
		doctor.UpdatedAt,
		doctor.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.Conflict("doctor with this email or license number already exists")
		}
		return fmt.Errorf("failed to update doctor: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.NotFound("doctor")
	}
	return nil
}

// Deactivate soft-deletes a doctor
func (r *doctorRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE doctors SET is_active = false, updated_at = NOW() WHERE id = $1 AND is_active = true`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to deactivate doctor: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.NotFound("doctor")
	}
	return nil
}

func (r *doctorRepository) List(ctx context.Context, filters *model.DoctorFilters) ([]*model.Doctor, int64, error) {
	where := ` WHERE is_active = true`
	args := []interface{}{}

	if filters.Specialization != "" {
		args = append(args, "%"+filters.Specialization+"%")
		where += fmt.Sprintf(" AND specialization ILIKE $%d", len(args))
	}

	if filters.Search != "" {
		args = append(args, "%"+filters.Search+"%")
		where += fmt.Sprintf(" AND (name ILIKE $%d OR specialization ILIKE $%d OR hospital ILIKE $%d)",
			len(args), len(args), len(args))
	}

	var total int64
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM doctors"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count doctors: %w", err)
	}

	query := "SELECT * FROM doctors" + where + " ORDER BY name ASC"
	args = append(args, filters.Limit)
	query += fmt.Sprintf(" LIMIT $%d", len(args))
	args = append(args, filters.Offset())
	query += fmt.Sprintf(" OFFSET $%d", len(args))

	var doctors []*model.Doctor
	if err := r.db.SelectContext(ctx, &doctors, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list doctors: %w", err)
	}
	return doctors, total, nil
}

func (r *doctorRepository) ListSpecializations(ctx context.Context) ([]string, error) {
	query := `SELECT DISTINCT specialization FROM doctors WHERE is_active = true ORDER BY specialization`

	var specializations []string
	if err := r.db.SelectContext(ctx, &specializations, query); err != nil {
		return nil, fmt.Errorf("failed to list specializations: %w", err)
	}
	return specializations, nil
}
