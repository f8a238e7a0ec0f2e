package appointment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/medbook/booking-api/internal/email"
	"github.com/medbook/booking-api/internal/model"
	"github.com/medbook/booking-api/internal/repository"
	apperrors "github.com/medbook/booking-api/pkg/errors"
)

// Business rules for booking
const (
	MinAppointmentDuration = 15 * time.Minute
	MaxAppointmentDuration = 3 * time.Hour
	MaxAdvanceMonths       = 6
	MinCancellationNotice  = 24 * time.Hour
	upcomingLimit          = 10
)

type Service struct {
	repo       repository.AppointmentRepository
	doctorRepo repository.DoctorRepository
	userRepo   repository.UserRepository
	emailSvc   email.Service
}

func NewService(repo repository.AppointmentRepository, doctorRepo repository.DoctorRepository,
	userRepo repository.UserRepository, emailSvc email.Service) *Service {
	return &Service{
		repo:       repo,
		doctorRepo: doctorRepo,
		userRepo:   userRepo,
		emailSvc:   emailSvc,
	}
}

func (s *Service) CreateAppointment(ctx context.Context, req *model.CreateAppointmentRequest, currentUser *model.User) (*model.Appointment, error) {
	doctor, err := s.doctorRepo.Get(ctx, req.DoctorID)
	if err != nil {
		return nil, fmt.Errorf("failed to get doctor: %w", err)
	}

	if err := validateAppointmentTimes(req.StartTime, req.EndTime); err != nil {
		return nil, err
	}

	hasConflict, err := s.repo.HasConflict(ctx, req.DoctorID, req.StartTime, req.EndTime, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to check conflicts: %w", err)
	}
	if hasConflict {
		return nil, apperrors.Conflict("doctor is not available at the selected time slot")
	}

	if err := validateDoctorAvailability(doctor, req.StartTime, req.EndTime); err != nil {
		return nil, err
	}

	appointment := &model.Appointment{
		DoctorID:        req.DoctorID,
		PatientID:       currentUser.ID,
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
		Status:          model.AppointmentStatusScheduled,
		Reason:          req.Reason,
		Symptoms:        req.Symptoms,
		ConsultationFee: doctor.ConsultationFee,
	}

	// the repository re-runs the conflict check under a doctor-row lock
	if err := s.repo.Create(ctx, appointment); err != nil {
		return nil, fmt.Errorf("failed to create appointment: %w", err)
	}

	if err := s.emailSvc.SendBookingConfirmation(ctx, currentUser.Email, doctor.Name, appointment.StartTime, appointment.ConsultationFee); err != nil {
		log.Warn().Err(err).Str("appointment_id", appointment.ID.String()).Msg("failed to send booking confirmation")
	}

	log.Info().
		Str("appointment_id", appointment.ID.String()).
		Str("doctor_id", doctor.ID.String()).
		Str("patient_id", currentUser.ID.String()).
		Time("start_time", appointment.StartTime).
		Msg("appointment booked")

	return appointment, nil
}

func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID, currentUser *model.User) (*model.Appointment, error) {
	appointment, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}

	if err := checkOwnership(appointment, currentUser, "view"); err != nil {
		return nil, err
	}
	return appointment, nil
}

func (s *Service) ListAppointments(ctx context.Context) ([]*model.Appointment, error) {
	appointments, err := s.repo.List(ctx, &model.AppointmentFilters{})
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	return appointments, nil
}

func (s *Service) ListUserAppointments(ctx context.Context, patientID uuid.UUID) ([]*model.Appointment, error) {
	appointments, err := s.repo.ListForPatient(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list user appointments: %w", err)
	}
	return appointments, nil
}

func (s *Service) ListUpcomingAppointments(ctx context.Context, patientID uuid.UUID) ([]*model.Appointment, error) {
	appointments, err := s.repo.ListUpcoming(ctx, patientID, upcomingLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list upcoming appointments: %w", err)
	}
	return appointments, nil
}

func (s *Service) ListDoctorAppointments(ctx context.Context, doctorID uuid.UUID, startDate, endDate *time.Time) ([]*model.Appointment, error) {
	appointments, err := s.repo.List(ctx, &model.AppointmentFilters{
		DoctorID:  doctorID,
		StartDate: startDate,
		EndDate:   endDate,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list doctor appointments: %w", err)
	}
	return appointments, nil
}

func (s *Service) UpdateAppointment(ctx context.Context, id uuid.UUID, req *model.UpdateAppointmentRequest, currentUser *model.User) (*model.Appointment, error) {
	appointment, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}

	if err := checkOwnership(appointment, currentUser, "update"); err != nil {
		return nil, err
	}

	if appointment.StartTime.Before(time.Now()) {
		return nil, apperrors.BadRequest("cannot update past appointments")
	}

	if req.StartTime != nil {
		appointment.StartTime = *req.StartTime
	}
	if req.EndTime != nil {
		appointment.EndTime = *req.EndTime
	}

	// a rescheduled interval must still be conflict-free and inside the
	// doctor's working window
	if req.StartTime != nil || req.EndTime != nil {
		if !appointment.StartTime.Before(appointment.EndTime) {
			return nil, apperrors.BadRequest("start time must be before end time")
		}

		hasConflict, err := s.repo.HasConflict(ctx, appointment.DoctorID, appointment.StartTime, appointment.EndTime, &appointment.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to check conflicts: %w", err)
		}
		if hasConflict {
			return nil, apperrors.Conflict("doctor is not available at the selected time slot")
		}

		doctor, err := s.doctorRepo.Get(ctx, appointment.DoctorID)
		if err != nil {
			return nil, fmt.Errorf("failed to get doctor: %w", err)
		}
		if err := validateDoctorAvailability(doctor, appointment.StartTime, appointment.EndTime); err != nil {
			return nil, err
		}
	}

	if req.Status != nil {
		if !req.Status.Valid() {
			return nil, apperrors.BadRequest(fmt.Sprintf("invalid appointment status: %s", *req.Status))
		}
		appointment.Status = *req.Status
	}
	if req.Reason != nil {
		appointment.Reason = req.Reason
	}
	if req.Notes != nil {
		appointment.Notes = req.Notes
	}
	if req.Symptoms != nil {
		appointment.Symptoms = req.Symptoms
	}

	if err := s.repo.Update(ctx, appointment); err != nil {
		return nil, fmt.Errorf("failed to update appointment: %w", err)
	}
	return appointment, nil
}

func (s *Service) CancelAppointment(ctx context.Context, id uuid.UUID, currentUser *model.User) (*model.Appointment, error) {
	appointment, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}

	if err := checkOwnership(appointment, currentUser, "cancel"); err != nil {
		return nil, err
	}

	if appointment.Status == model.AppointmentStatusCompleted {
		return nil, apperrors.BadRequest("cannot cancel completed appointments")
	}
	if appointment.Status == model.AppointmentStatusCancelled {
		return nil, apperrors.BadRequest("appointment is already cancelled")
	}

	if time.Until(appointment.StartTime) < MinCancellationNotice {
		return nil, apperrors.BadRequest("appointments can only be cancelled at least 24 hours in advance")
	}

	appointment.Status = model.AppointmentStatusCancelled
	if err := s.repo.Update(ctx, appointment); err != nil {
		return nil, fmt.Errorf("failed to cancel appointment: %w", err)
	}

	s.notifyCancellation(ctx, appointment)

	log.Info().Str("appointment_id", id.String()).Msg("appointment cancelled")
	return appointment, nil
}

func (s *Service) DeleteAppointment(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete appointment: %w", err)
	}

	log.Info().Str("appointment_id", id.String()).Msg("appointment deleted")
	return nil
}

func (s *Service) notifyCancellation(ctx context.Context, appointment *model.Appointment) {
	patient, err := s.userRepo.Get(ctx, appointment.PatientID)
	if err != nil {
		log.Warn().Err(err).Str("appointment_id", appointment.ID.String()).Msg("failed to load patient for cancellation notice")
		return
	}

	doctorName := ""
	if appointment.DoctorName != nil {
		doctorName = *appointment.DoctorName
	}

	if err := s.emailSvc.SendCancellationNotice(ctx, patient.Email, doctorName, appointment.StartTime); err != nil {
		log.Warn().Err(err).Str("appointment_id", appointment.ID.String()).Msg("failed to send cancellation notice")
	}
}

// checkOwnership rejects patients acting on appointments that are not theirs
func checkOwnership(appointment *model.Appointment, currentUser *model.User, action string) error {
	if currentUser.Role == model.RolePatient && appointment.PatientID != currentUser.ID {
		return apperrors.Forbidden(fmt.Sprintf("you can only %s your own appointments", action))
	}
	return nil
}

func validateAppointmentTimes(startTime, endTime time.Time) error {
	now := time.Now()

	if startTime.Before(now) {
		return apperrors.BadRequest("cannot schedule appointments in the past")
	}

	if !startTime.Before(endTime) {
		return apperrors.BadRequest("start time must be before end time")
	}

	if startTime.After(now.AddDate(0, MaxAdvanceMonths, 0)) {
		return apperrors.BadRequest("cannot schedule appointments more than 6 months in advance")
	}

	duration := endTime.Sub(startTime)
	if duration < MinAppointmentDuration {
		return apperrors.BadRequest("appointment must be at least 15 minutes long")
	}
	if duration > MaxAppointmentDuration {
		return apperrors.BadRequest("appointment cannot be longer than 3 hours")
	}

	return nil
}

// validateDoctorAvailability checks the weekday and the working window,
// compared in minutes since midnight.
func validateDoctorAvailability(doctor *model.Doctor, startTime, endTime time.Time) error {
	if !doctor.AvailableOn(startTime.Weekday()) {
		return apperrors.BadRequest(fmt.Sprintf("doctor is not available on %s", startTime.Weekday()))
	}

	var doctorStartHour, doctorStartMinute, doctorEndHour, doctorEndMinute int
	if _, err := fmt.Sscanf(doctor.StartTime, "%d:%d", &doctorStartHour, &doctorStartMinute); err != nil {
		return fmt.Errorf("malformed doctor start time %q: %w", doctor.StartTime, err)
	}
	if _, err := fmt.Sscanf(doctor.EndTime, "%d:%d", &doctorEndHour, &doctorEndMinute); err != nil {
		return fmt.Errorf("malformed doctor end time %q: %w", doctor.EndTime, err)
	}

	appointmentStart := startTime.Hour()*60 + startTime.Minute()
	appointmentEnd := endTime.Hour()*60 + endTime.Minute()
	doctorStart := doctorStartHour*60 + doctorStartMinute
	doctorEnd := doctorEndHour*60 + doctorEndMinute

	if appointmentStart < doctorStart || appointmentEnd > doctorEnd {
		return apperrors.BadRequest(fmt.Sprintf(
			"appointment must be within doctor's available hours (%s - %s)",
			doctor.StartTime, doctor.EndTime,
		))
	}
	return nil
}
