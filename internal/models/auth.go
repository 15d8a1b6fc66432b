package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LoginRequest holds credentials for authenticating a user.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RegisterRequest creates a student account together with its academic record.
type RegisterRequest struct {
	FirstName         string    `json:"first_name" validate:"required,max=100"`
	LastName          string    `json:"last_name" validate:"required,max=100"`
	Email             string    `json:"email" validate:"required,email"`
	Password          string    `json:"password" validate:"required,min=6"`
	CurrentSemester   int       `json:"current_semester" validate:"required,min=1,max=10"`
	StudyMode         StudyMode `json:"study_mode" validate:"required,oneof=INTENSIVE MODERATE LIGHT"`
	ApprovedCourses   []string  `json:"approved_courses" validate:"omitempty,dive,required"`
	InProgressCourses []string  `json:"in_progress_courses" validate:"omitempty,dive,required"`
}

// AuthResponse returns the issued access token and user info.
type AuthResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresIn   int64     `json:"expires_in"`
	User        UserInfo  `json:"user"`
	IssuedAt    time.Time `json:"issued_at"`
}

// UserInfo describes the authenticated user in responses.
type UserInfo struct {
	ID              string    `json:"id"`
	Email           string    `json:"email"`
	FullName        string    `json:"full_name"`
	CurrentSemester int       `json:"current_semester"`
	StudyMode       StudyMode `json:"study_mode"`
	Role            UserRole  `json:"role"`
}

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	UserID   string   `json:"user_id"`
	Role     UserRole `json:"role"`
	Email    string   `json:"email"`
	FullName string   `json:"full_name"`
	jwt.RegisteredClaims
}
