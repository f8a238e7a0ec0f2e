package model

import (
	"time"
)

// User roles
const (
	RolePatient = "PATIENT"
	RoleAdmin   = "ADMIN"
)

// User represents a registered account
type User struct {
	Base
	Name         string     `json:"name" db:"name"`
	Email        string     `json:"email" db:"email"`
	Password     string     `json:"password,omitempty" db:"-"`
	PasswordHash string     `json:"-" db:"password_hash"`
	Role         string     `json:"role" db:"role"`
	Phone        *string    `json:"phone,omitempty" db:"phone"`
	DateOfBirth  *time.Time `json:"date_of_birth,omitempty" db:"date_of_birth"`
	Address      *string    `json:"address,omitempty" db:"address"`
}

// CreateUserRequest represents user creation parameters
type CreateUserRequest struct {
	Name        string  `json:"name" binding:"required,max=100"`
	Email       string  `json:"email" binding:"required,email"`
	Password    string  `json:"password" binding:"required,min=8"`
	Role        string  `json:"role" binding:"omitempty,oneof=PATIENT ADMIN"`
	Phone       *string `json:"phone" binding:"omitempty,max=20"`
	DateOfBirth *string `json:"date_of_birth" binding:"omitempty,datetime=2006-01-02"`
	Address     *string `json:"address"`
}

// UpdateUserRequest represents user update parameters
type UpdateUserRequest struct {
	Name        *string `json:"name" binding:"omitempty,max=100"`
	Email       *string `json:"email" binding:"omitempty,email"`
	Password    *string `json:"password" binding:"omitempty,min=8"`
	Phone       *string `json:"phone" binding:"omitempty,max=20"`
	DateOfBirth *string `json:"date_of_birth" binding:"omitempty,datetime=2006-01-02"`
	Address     *string `json:"address"`
}
