package service_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"medsys/config"
	"medsys/infras/jwt"
	jwtMocks "medsys/infras/jwt/mocks"
	otelMocks "medsys/infras/otel/mocks"
	"medsys/internal/domains/auth/model/dto"
	"medsys/internal/domains/auth/service"
	userMocks "medsys/internal/domains/user/mocks"
	userModel "medsys/internal/domains/user/model"
	cacheMocks "medsys/shared/cache/mocks"
	"medsys/shared/constant"
	"medsys/shared/failure"
	"medsys/shared/password"
)

type fixedClock struct {
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	return c.now
}

var now = time.Date(2026, 1, 9, 8, 0, 0, 0, time.UTC)

type fixture struct {
	repo *userMocks.MockUser
	jwt  *jwtMocks.MockJWT
	svc  service.Auth
}

func newFixture(ctrl *gomock.Controller) *fixture {
	f := &fixture{
		repo: userMocks.NewMockUser(ctrl),
		jwt:  jwtMocks.NewMockJWT(ctrl),
	}

	redis := cacheMocks.NewMockRedisCache(ctrl)
	redis.EXPECT().Clear(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	f.svc = service.New(f.repo, redis, &fixedClock{now: now}, &config.Config{}, otelMocks.NewOtel(), f.jwt)

	return f
}

func TestAuthService_Register(t *testing.T) {
	req := dto.RegisterRequest{
		Username: "drhouse",
		Email:    "house@example.com",
		Password: "password123",
		Role:     constant.RoleDoctor,
	}

	tests := []struct {
		name     string
		setup    func(f *fixture)
		wantCode int
	}{
		{
			name: "registers doctor",
			setup: func(f *fixture) {
				f.repo.EXPECT().Exist(gomock.Any(), gomock.Any()).Return(false, nil)
				f.repo.EXPECT().Insert(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, user userModel.User) error {
						assert.Equal(t, "drhouse", user.Username)
						assert.Equal(t, constant.RoleDoctor, user.Role)
						assert.NoError(t, password.Verify("password123", user.Password))

						return nil
					})
			},
		},
		{
			name: "duplicate username or email",
			setup: func(f *fixture) {
				f.repo.EXPECT().Exist(gomock.Any(), gomock.Any()).Return(true, nil)
			},
			wantCode: http.StatusConflict,
		},
		{
			name: "unique violation on insert",
			setup: func(f *fixture) {
				f.repo.EXPECT().Exist(gomock.Any(), gomock.Any()).Return(false, nil)
				f.repo.EXPECT().Insert(gomock.Any(), gomock.Any()).
					Return(&pq.Error{Code: pq.ErrorCode(constant.PqErrorCodeUniqueViolation)})
			},
			wantCode: http.StatusConflict,
		},
		{
			name: "repository error",
			setup: func(f *fixture) {
				f.repo.EXPECT().Exist(gomock.Any(), gomock.Any()).Return(false, errors.New("db down"))
			},
			wantCode: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			f := newFixture(ctrl)
			tt.setup(f)

			user, err := f.svc.Register(context.Background(), req)
			if tt.wantCode != 0 {
				assert.Equal(t, tt.wantCode, failure.GetCode(err))

				return
			}

			assert.NoError(t, err)
			assert.NotEmpty(t, user.ID)
			assert.Equal(t, now, user.CreatedAt)
		})
	}
}

func TestAuthService_Login(t *testing.T) {
	hashed, err := password.Hash("password")
	assert.NoError(t, err)

	validUser := userModel.User{
		ID:       "user-id-123",
		Username: "jdoe",
		Email:    "jdoe@example.com",
		Password: hashed,
		Role:     constant.RolePatient,
		Active:   true,
	}

	inactive := validUser
	inactive.Active = false

	tests := []struct {
		name     string
		req      dto.LoginRequest
		setup    func(f *fixture)
		wantCode int
	}{
		{
			name: "successful login",
			req:  dto.LoginRequest{Username: "jdoe", Password: "password"},
			setup: func(f *fixture) {
				f.repo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(validUser, nil)
				f.jwt.EXPECT().GenerateTokenPair(validUser.ID, validUser.Username, validUser.Role).
					Return(&jwt.TokenPair{AccessToken: "access-token", RefreshToken: "refresh-token"}, nil)
				f.repo.EXPECT().Update(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
			},
		},
		{
			name: "unknown username",
			req:  dto.LoginRequest{Username: "ghost", Password: "password"},
			setup: func(f *fixture) {
				f.repo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(userModel.User{}, nil)
			},
			wantCode: http.StatusUnauthorized,
		},
		{
			name: "wrong password",
			req:  dto.LoginRequest{Username: "jdoe", Password: "wrong"},
			setup: func(f *fixture) {
				f.repo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(validUser, nil)
			},
			wantCode: http.StatusUnauthorized,
		},
		{
			name: "deactivated account",
			req:  dto.LoginRequest{Username: "jdoe", Password: "password"},
			setup: func(f *fixture) {
				f.repo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(inactive, nil)
			},
			wantCode: http.StatusForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			f := newFixture(ctrl)
			tt.setup(f)

			res, err := f.svc.Login(context.Background(), tt.req)
			if tt.wantCode != 0 {
				assert.Equal(t, tt.wantCode, failure.GetCode(err))

				return
			}

			assert.NoError(t, err)
			assert.Equal(t, "access-token", res.AccessToken)
			assert.Equal(t, "jdoe", res.User.Username)
			assert.NotNil(t, res.User.LastLogin)
		})
	}
}

func TestAuthService_RefreshToken(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newFixture(ctrl)

	f.jwt.EXPECT().RefreshTokens("good").Return(&jwt.TokenPair{AccessToken: "new-access", RefreshToken: "new-refresh"}, nil)
	f.jwt.EXPECT().RefreshTokens("bad").Return(nil, jwt.ErrInvalidToken)

	res, err := f.svc.RefreshToken(context.Background(), dto.RefreshTokenRequest{RefreshToken: "good"})
	assert.NoError(t, err)
	assert.Equal(t, "new-access", res.AccessToken)

	_, err = f.svc.RefreshToken(context.Background(), dto.RefreshTokenRequest{RefreshToken: "bad"})
	assert.Equal(t, http.StatusUnauthorized, failure.GetCode(err))
}

func TestAuthService_ChangePassword(t *testing.T) {
	hashed, err := password.Hash("current-password")
	assert.NoError(t, err)

	user := userModel.User{ID: "user-1", Username: "jdoe", Password: hashed, Active: true}

	tests := []struct {
		name     string
		req      dto.ChangePasswordRequest
		setup    func(f *fixture)
		wantCode int
	}{
		{
			name: "changes password",
			req:  dto.ChangePasswordRequest{CurrentPassword: "current-password", NewPassword: "new-password"},
			setup: func(f *fixture) {
				f.repo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(user, nil)
				f.repo.EXPECT().Update(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
			},
		},
		{
			name: "wrong current password",
			req:  dto.ChangePasswordRequest{CurrentPassword: "nope", NewPassword: "new-password"},
			setup: func(f *fixture) {
				f.repo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(user, nil)
			},
			wantCode: http.StatusBadRequest,
		},
		{
			name: "user not found",
			req:  dto.ChangePasswordRequest{CurrentPassword: "current-password", NewPassword: "new-password"},
			setup: func(f *fixture) {
				f.repo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(userModel.User{}, nil)
			},
			wantCode: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			f := newFixture(ctrl)
			tt.setup(f)

			err := f.svc.ChangePassword(context.Background(), tt.req, "user-1")
			if tt.wantCode != 0 {
				assert.Equal(t, tt.wantCode, failure.GetCode(err))

				return
			}

			assert.NoError(t, err)
		})
	}
}
