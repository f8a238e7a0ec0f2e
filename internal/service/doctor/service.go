package doctor

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog/log"

	"github.com/medbook/booking-api/internal/model"
	"github.com/medbook/booking-api/internal/repository"
	apperrors "github.com/medbook/booking-api/pkg/errors"
)

const (
	defaultAppointmentDuration = 30

	specializationsCacheKey = "specializations"
	specializationsCacheTTL = 5 * time.Minute
)

type Service struct {
	repo            repository.DoctorRepository
	appointmentRepo repository.AppointmentRepository
	cache           *gocache.Cache
}

func NewService(repo repository.DoctorRepository, appointmentRepo repository.AppointmentRepository) *Service {
	return &Service{
		repo:            repo,
		appointmentRepo: appointmentRepo,
		cache:           gocache.New(specializationsCacheTTL, 10*time.Minute),
	}
}

func (s *Service) CreateDoctor(ctx context.Context, req *model.CreateDoctorRequest) (*model.Doctor, error) {
	if existing, _ := s.repo.FindByEmailOrLicense(ctx, req.Email, req.LicenseNumber); existing != nil {
		if existing.Email == req.Email {
			return nil, apperrors.Conflict("doctor with this email already exists")
		}
		return nil, apperrors.Conflict("doctor with this license number already exists")
	}

	if err := validateTimeRange(req.StartTime, req.EndTime); err != nil {
		return nil, err
	}

	duration := req.AppointmentDuration
	if duration == 0 {
		duration = defaultAppointmentDuration
	}

	doctor := &model.Doctor{
		Name:                req.Name,
		Specialization:      req.Specialization,
		Email:               req.Email,
		Phone:               req.Phone,
		Experience:          req.Experience,
		LicenseNumber:       req.LicenseNumber,
		Hospital:            req.Hospital,
		Bio:                 req.Bio,
		ProfileImage:        req.ProfileImage,
		ConsultationFee:     req.ConsultationFee,
		AvailableDays:       req.AvailableDays,
		StartTime:           req.StartTime,
		EndTime:             req.EndTime,
		AppointmentDuration: duration,
		IsActive:            true,
	}

	if err := s.repo.Create(ctx, doctor); err != nil {
		return nil, fmt.Errorf("failed to create doctor: %w", err)
	}

	s.cache.Delete(specializationsCacheKey)
	log.Info().Str("doctor_id", doctor.ID.String()).Str("specialization", doctor.Specialization).Msg("doctor created")
	return doctor, nil
}

func (s *Service) GetDoctor(ctx context.Context, id uuid.UUID) (*model.Doctor, error) {
	doctor, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get doctor: %w", err)
	}
	return doctor, nil
}

func (s *Service) ListDoctors(ctx context.Context, filters *model.DoctorFilters) (*model.DoctorList, error) {
	filters.Normalize()

	doctors, total, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list doctors: %w", err)
	}

	return &model.DoctorList{
		Doctors:    doctors,
		Total:      total,
		Page:       filters.Page,
		Limit:      filters.Limit,
		TotalPages: int(math.Ceil(float64(total) / float64(filters.Limit))),
	}, nil
}

func (s *Service) UpdateDoctor(ctx context.Context, id uuid.UUID, req *model.UpdateDoctorRequest) (*model.Doctor, error) {
	doctor, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get doctor: %w", err)
	}

	if req.Email != nil && *req.Email != doctor.Email {
		if existing, _ := s.repo.FindByEmailOrLicense(ctx, *req.Email, ""); existing != nil {
			return nil, apperrors.Conflict("doctor with this email already exists")
		}
		doctor.Email = *req.Email
	}

	if req.LicenseNumber != nil && *req.LicenseNumber != doctor.LicenseNumber {
		if existing, _ := s.repo.FindByEmailOrLicense(ctx, "", *req.LicenseNumber); existing != nil {
			return nil, apperrors.Conflict("doctor with this license number already exists")
		}
		doctor.LicenseNumber = *req.LicenseNumber
	}

	if req.Name != nil {
		doctor.Name = *req.Name
	}
	if req.Specialization != nil {
		doctor.Specialization = *req.Specialization
	}
	if req.Phone != nil {
		doctor.Phone = *req.Phone
	}
	if req.Experience != nil {
		doctor.Experience = *req.Experience
	}
	if req.Hospital != nil {
		doctor.Hospital = *req.Hospital
	}
	if req.Bio != nil {
		doctor.Bio = req.Bio
	}
	if req.ProfileImage != nil {
		doctor.ProfileImage = req.ProfileImage
	}
	if req.ConsultationFee != nil {
		doctor.ConsultationFee = *req.ConsultationFee
	}
	if len(req.AvailableDays) > 0 {
		doctor.AvailableDays = req.AvailableDays
	}
	if req.StartTime != nil {
		doctor.StartTime = *req.StartTime
	}
	if req.EndTime != nil {
		doctor.EndTime = *req.EndTime
	}
	if req.AppointmentDuration != nil {
		doctor.AppointmentDuration = *req.AppointmentDuration
	}

	if err := validateTimeRange(doctor.StartTime, doctor.EndTime); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, doctor); err != nil {
		return nil, fmt.Errorf("failed to update doctor: %w", err)
	}

	s.cache.Delete(specializationsCacheKey)
	return doctor, nil
}

// RemoveDoctor soft-deletes the doctor, existing appointments are untouched
func (s *Service) RemoveDoctor(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return fmt.Errorf("failed to remove doctor: %w", err)
	}

	s.cache.Delete(specializationsCacheKey)
	log.Info().Str("doctor_id", id.String()).Msg("doctor deactivated")
	return nil
}

func (s *Service) GetSpecializations(ctx context.Context) ([]string, error) {
	if cached, ok := s.cache.Get(specializationsCacheKey); ok {
		return cached.([]string), nil
	}

	specializations, err := s.repo.ListSpecializations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list specializations: %w", err)
	}

	s.cache.Set(specializationsCacheKey, specializations, specializationsCacheTTL)
	return specializations, nil
}

// GetAvailableSlots walks the doctor's working window on the given date in
// appointment-duration increments and marks slots overlapping an existing
// non-cancelled appointment as unavailable.
func (s *Service) GetAvailableSlots(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]model.AvailableSlot, error) {
	doctor, err := s.repo.Get(ctx, doctorID)
	if err != nil {
		return nil, fmt.Errorf("failed to get doctor: %w", err)
	}

	if !doctor.AvailableOn(date.Weekday()) {
		return []model.AvailableSlot{}, nil
	}

	startMinutes, err := parseHHMM(doctor.StartTime)
	if err != nil {
		return nil, err
	}
	endMinutes, err := parseHHMM(doctor.EndTime)
	if err != nil {
		return nil, err
	}

	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	booked, err := s.appointmentRepo.ListForDoctorBetween(ctx, doctorID, dayStart, dayStart.Add(24*time.Hour))
	if err != nil {
		return nil, fmt.Errorf("failed to list booked appointments: %w", err)
	}

	duration := time.Duration(doctor.AppointmentDuration) * time.Minute
	windowStart := dayStart.Add(time.Duration(startMinutes) * time.Minute)
	windowEnd := dayStart.Add(time.Duration(endMinutes) * time.Minute)

	slots := []model.AvailableSlot{}
	for current := windowStart; current.Before(windowEnd); current = current.Add(duration) {
		slotEnd := current.Add(duration)
		if slotEnd.After(windowEnd) {
			break
		}

		slots = append(slots, model.AvailableSlot{
			StartTime: current,
			EndTime:   slotEnd,
			Available: !isSlotBooked(current, slotEnd, booked),
		})
	}
	return slots, nil
}

func isSlotBooked(start, end time.Time, appointments []*model.Appointment) bool {
	for _, apt := range appointments {
		if apt.StartTime.Before(end) && apt.EndTime.After(start) {
			return true
		}
	}
	return false
}

func validateTimeRange(startTime, endTime string) error {
	start, err := parseHHMM(startTime)
	if err != nil {
		return err
	}
	end, err := parseHHMM(endTime)
	if err != nil {
		return err
	}
	if start >= end {
		return apperrors.BadRequest("start time must be before end time")
	}
	return nil
}

// parseHHMM converts an "HH:MM" string to minutes since midnight
func parseHHMM(value string) (int, error) {
	var hours, minutes int
	if _, err := fmt.Sscanf(value, "%d:%d", &hours, &minutes); err != nil {
		return 0, apperrors.BadRequest(fmt.Sprintf("invalid time format: %s", value))
	}
	if hours < 0 || hours > 23 || minutes < 0 || minutes > 59 {
		return 0, apperrors.BadRequest(fmt.Sprintf("invalid time format: %s", value))
	}
	return hours*60 + minutes, nil
}
