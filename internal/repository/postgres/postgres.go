package postgres

import (
	"github.com/jmoiron/sqlx"

	"github.com/medbook/booking-api/internal/repository"
)

type userRepository struct {
	BaseRepository
}

type doctorRepository struct {
	BaseRepository
}

type appointmentRepository struct {
	BaseRepository
}

func NewUserRepository(db *sqlx.DB) repository.UserRepository {
	return &userRepository{NewBaseRepository(db)}
}

func NewDoctorRepository(db *sqlx.DB) repository.DoctorRepository {
	return &doctorRepository{NewBaseRepository(db)}
}

func NewAppointmentRepository(db *sqlx.DB) repository.AppointmentRepository {
	return &appointmentRepository{NewBaseRepository(db)}
}
