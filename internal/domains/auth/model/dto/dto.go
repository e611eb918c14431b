package dto

import (
	"medsys/infras/jwt"
	userModel "medsys/internal/domains/user/model"
	userDto "medsys/internal/domains/user/model/dto"
	gModel "medsys/shared/model"
	"strings"
	"time"

	"github.com/google/uuid"
)

const registeredBy = "register"

type RegisterRequest struct {
	Username string  `json:"username"            validate:"required,min=3,max=50,alphanum"`
	Email    string  `json:"email"               validate:"required,email"`
	Password string  `json:"password"            validate:"required,min=8,max=72"`
	FullName *string `json:"full_name,omitempty" validate:"omitempty,max=100"`
	// Role is PATIENT or DOCTOR; admins are only created by seeding.
	Role string `json:"role" validate:"required,oneof=PATIENT DOCTOR"`
}

func (r *RegisterRequest) ToUserModel(hashedPassword string, now time.Time) userModel.User {
	return userModel.User{
		ID:       uuid.NewString(),
		Username: r.Username,
		Email:    strings.ToLower(r.Email),
		Password: hashedPassword,
		Role:     r.Role,
		FullName: r.FullName,
		Active:   true,
		Metadata: gModel.NewMetadata(registeredBy, now),
	}
}

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type UpdateLastLoginRequest struct {
	LastLogin time.Time `db:"last_login" json:"last_login" validate:"required"`
}

type LoginResponse struct {
	AccessToken  string               `json:"access_token"`
	RefreshToken string               `json:"refresh_token"`
	ExpiresIn    int64                `json:"expires_in"`
	User         userDto.UserResponse `json:"user"`
}

func (l *LoginResponse) FromTokenPair(tokenPair *jwt.TokenPair) {
	l.AccessToken = tokenPair.AccessToken
	l.RefreshToken = tokenPair.RefreshToken
	l.ExpiresIn = tokenPair.ExpiresIn
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type RefreshTokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

func (r *RefreshTokenResponse) FromTokenPair(tokenPair *jwt.TokenPair) {
	r.AccessToken = tokenPair.AccessToken
	r.RefreshToken = tokenPair.RefreshToken
	r.ExpiresIn = tokenPair.ExpiresIn
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password"     validate:"required,min=8,max=72"`
}

type UpdatePasswordRequest struct {
	Password string `db:"password" json:"password" validate:"required,min=8,max=72"`
}
