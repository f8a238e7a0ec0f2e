package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/medbook/booking-api/internal/model"
	apperrors "github.com/medbook/booking-api/pkg/errors"
)

const appointmentColumns = `
	id, doctor_id, patient_id, start_time, end_time, status,
	reason, notes, symptoms, consultation_fee, patient_arrived,
	reminder_sent, created_at, updated_at
`

// Create inserts a new appointment. The doctor row is locked for the duration
// of the transaction so the overlap check and the insert cannot interleave
// with a concurrent booking for the same doctor.
func (r *appointmentRepository) Create(ctx context.Context, appointment *model.Appointment) error {
	appointment.ID = uuid.New()
	appointment.CreatedAt = time.Now()
	appointment.UpdatedAt = time.Now()

	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		var doctorID uuid.UUID
		err := tx.GetContext(ctx, &doctorID,
			`SELECT id FROM doctors WHERE id = $1 AND is_active = true FOR UPDATE`,
			appointment.DoctorID,
		)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperrors.NotFound("doctor")
			}
			return fmt.Errorf("failed to lock doctor row: %w", err)
		}

		var hasConflict bool
		err = tx.GetContext(ctx, &hasConflict, `
			SELECT EXISTS (
				SELECT 1 FROM appointments
				WHERE doctor_id = $1
				AND status != 'CANCELLED'
				AND start_time < $3 AND end_time > $2
			)
		`, appointment.DoctorID, appointment.StartTime, appointment.EndTime)
		if err != nil {
			return fmt.Errorf("failed to check conflicts: %w", err)
		}
		if hasConflict {
			return apperrors.Conflict("doctor is not available at the selected time slot")
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO appointments (`+appointmentColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		`,
			appointment.ID,
			appointment.DoctorID,
			appointment.PatientID,
			appointment.StartTime,
			appointment.EndTime,
			appointment.Status,
			appointment.Reason,
			appointment.Notes,
			appointment.Symptoms,
			appointment.ConsultationFee,
			appointment.PatientArrived,
			appointment.ReminderSent,
			appointment.CreatedAt,
			appointment.UpdatedAt,
		)
		if err != nil {
			if isExclusionViolation(err) {
				return apperrors.Conflict("doctor is not available at the selected time slot")
			}
			return fmt.Errorf("failed to create appointment: %w", err)
		}
		return nil
	})
}

func (r *appointmentRepository) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	query := `
		SELECT a.*, d.name AS doctor_name, u.name AS patient_name
		FROM appointments a
		JOIN doctors d ON d.id = a.doctor_id
		JOIN users u ON u.id = a.patient_id
		WHERE a.id = $1
	`
	var appointment model.Appointment
	if err := r.db.GetContext(ctx, &appointment, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("appointment")
		}
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	return &appointment, nil
}

func (r *appointmentRepository) Update(ctx context.Context, appointment *model.Appointment) error {
	query := `
		UPDATE appointments
		SET start_time = $1, end_time = $2, status = $3, reason = $4,
			notes = $5, symptoms = $6, patient_arrived = $7,
			reminder_sent = $8, updated_at = $9
		WHERE id = $10
	`
	appointment.UpdatedAt = time.Now()

	result, err := r.db.ExecContext(ctx, query,
		appointment.StartTime,
		appointment.EndTime,
		appointment.Status,
		appointment.Reason,
		appointment.Notes,
		appointment.Symptoms,
		appointment.PatientArrived,
		appointment.ReminderSent,
		appointment.UpdatedAt,
		appointment.ID,
	)
	if err != nil {
		if isExclusionViolation(err) {
			return apperrors.Conflict("doctor is not available at the selected time slot")
		}
		return fmt.Errorf("failed to update appointment: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.NotFound("appointment")
	}
	return nil
}

func (r *appointmentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM appointments WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete appointment: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.NotFound("appointment")
	}
	return nil
}

func (r *appointmentRepository) List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	query := `
		SELECT a.*, d.name AS doctor_name, u.name AS patient_name
		FROM appointments a
		JOIN doctors d ON d.id = a.doctor_id
		JOIN users u ON u.id = a.patient_id
		WHERE 1=1
	`
	args := []interface{}{}

	if filters.DoctorID != uuid.Nil {
		args = append(args, filters.DoctorID)
		query += fmt.Sprintf(" AND a.doctor_id = $%d", len(args))
	}

	if filters.PatientID != uuid.Nil {
		args = append(args, filters.PatientID)
		query += fmt.Sprintf(" AND a.patient_id = $%d", len(args))
	}

	if filters.Status != "" {
		args = append(args, filters.Status)
		query += fmt.Sprintf(" AND a.status = $%d", len(args))
	}

	if filters.StartDate != nil {
		args = append(args, *filters.StartDate)
		query += fmt.Sprintf(" AND a.start_time >= $%d", len(args))
	}

	if filters.EndDate != nil {
		args = append(args, *filters.EndDate)
		query += fmt.Sprintf(" AND a.start_time <= $%d", len(args))
	}

	query += " ORDER BY a.start_time ASC"

	var appointments []*model.Appointment
	if err := r.db.SelectContext(ctx, &appointments, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	return appointments, nil
}

func (r *appointmentRepository) ListForPatient(ctx context.Context, patientID uuid.UUID) ([]*model.Appointment, error) {
	query := `
		SELECT a.*, d.name AS doctor_name
		FROM appointments a
		JOIN doctors d ON d.id = a.doctor_id
		WHERE a.patient_id = $1
		ORDER BY a.start_time ASC
	`
	var appointments []*model.Appointment
	if err := r.db.SelectContext(ctx, &appointments, query, patientID); err != nil {
		return nil, fmt.Errorf("failed to list patient appointments: %w", err)
	}
	return appointments, nil
}

func (r *appointmentRepository) ListUpcoming(ctx context.Context, patientID uuid.UUID, limit int) ([]*model.Appointment, error) {
	query := `
		SELECT a.*, d.name AS doctor_name
		FROM appointments a
		JOIN doctors d ON d.id = a.doctor_id
		WHERE a.patient_id = $1
		AND a.start_time > NOW()
		AND a.status = 'SCHEDULED'
		ORDER BY a.start_time ASC
		LIMIT $2
	`
	var appointments []*model.Appointment
	if err := r.db.SelectContext(ctx, &appointments, query, patientID, limit); err != nil {
		return nil, fmt.Errorf("failed to list upcoming appointments: %w", err)
	}
	return appointments, nil
}

func (r *appointmentRepository) ListForDoctorBetween(ctx context.Context, doctorID uuid.UUID, start, end time.Time) ([]*model.Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE doctor_id = $1
		AND start_time >= $2
		AND start_time < $3
		AND status != 'CANCELLED'
		ORDER BY start_time ASC
	`
	var appointments []*model.Appointment
	if err := r.db.SelectContext(ctx, &appointments, query, doctorID, start, end); err != nil {
		return nil, fmt.Errorf("failed to list doctor appointments: %w", err)
	}
	return appointments, nil
}

// HasConflict runs the overlap test: existing.start < new.end AND existing.end > new.start
func (r *appointmentRepository) HasConflict(ctx context.Context, doctorID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM appointments
			WHERE doctor_id = $1
			AND status != 'CANCELLED'
			AND start_time < $3 AND end_time > $2
	`
	args := []interface{}{doctorID, start, end}

	if excludeID != nil {
		query += " AND id != $4"
		args = append(args, *excludeID)
	}
	query += ")"

	var hasConflict bool
	if err := r.db.GetContext(ctx, &hasConflict, query, args...); err != nil {
		return false, fmt.Errorf("failed to check conflicts: %w", err)
	}
	return hasConflict, nil
}

func (r *appointmentRepository) ListDueReminders(ctx context.Context, within time.Duration, limit int) ([]*model.Appointment, error) {
	query := `
		SELECT a.*, d.name AS doctor_name, u.name AS patient_name
		FROM appointments a
		JOIN doctors d ON d.id = a.doctor_id
		JOIN users u ON u.id = a.patient_id
		WHERE a.reminder_sent = false
		AND a.status IN ('SCHEDULED', 'CONFIRMED')
		AND a.start_time > NOW()
		AND a.start_time <= NOW() + $1::interval
		ORDER BY a.start_time ASC
		LIMIT $2
	`
	var appointments []*model.Appointment
	interval := fmt.Sprintf("%d seconds", int(within.Seconds()))
	if err := r.db.SelectContext(ctx, &appointments, query, interval, limit); err != nil {
		return nil, fmt.Errorf("failed to list due reminders: %w", err)
	}
	return appointments, nil
}

func (r *appointmentRepository) MarkReminderSent(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE appointments SET reminder_sent = true, updated_at = NOW() WHERE id = $1`

	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to mark reminder sent: %w", err)
	}
	return nil
}
