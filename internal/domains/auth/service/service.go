package service

//go:generate go run go.uber.org/mock/mockgen -source=./service.go -destination=../mocks/service_mock.go -package=mocks

import (
	"context"
	"fmt"
	"medsys/config"
	"medsys/infras/jwt"
	"medsys/infras/otel"
	"medsys/internal/domains/auth/model/dto"
	userModel "medsys/internal/domains/user/model"
	userRepo "medsys/internal/domains/user/repository"
	"medsys/shared"
	"medsys/shared/cache"
	"medsys/shared/constant"
	"medsys/shared/failure"
	"medsys/shared/password"
	gRepo "medsys/shared/repository"
	"medsys/shared/timezone"

	"github.com/rs/zerolog/log"
)

const (
	cacheUserPrefix = "user"

	msgDuplicateUser      = "Username or email already registered."
	msgInvalidCredentials = "Invalid username or password"
	msgDeactivated        = "User account is deactivated."
	msgInvalidRefresh     = "Invalid refresh token."
	msgWrongPassword      = "Current password is incorrect."
)

type Auth interface {
	Register(ctx context.Context, req dto.RegisterRequest) (userModel.User, error)
	Login(ctx context.Context, req dto.LoginRequest) (dto.LoginResponse, error)
	RefreshToken(ctx context.Context, req dto.RefreshTokenRequest) (dto.RefreshTokenResponse, error)
	ChangePassword(ctx context.Context, req dto.ChangePasswordRequest, userID string) error
}

type serviceImpl struct {
	userRepo   userRepo.User
	cache      cache.RedisCache
	clock      timezone.Clock
	cfg        *config.Config
	otel       otel.Otel
	jwtService jwt.JWT
}

func New(userRepo userRepo.User, cache cache.RedisCache, clock timezone.Clock, cfg *config.Config, otel otel.Otel, jwt jwt.JWT) Auth {
	return &serviceImpl{
		userRepo:   userRepo,
		cache:      cache,
		clock:      clock,
		cfg:        cfg,
		otel:       otel,
		jwtService: jwt,
	}
}

func (s *serviceImpl) Register(ctx context.Context, req dto.RegisterRequest) (user userModel.User, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Register")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	exists, err := s.userRepo.Exist(ctx, userRepo.ByUsernameOrEmail(req.Username, req.Email))
	if err != nil {
		log.Error().Err(err).Msg("failed to check if user exists")

		return user, fmt.Errorf("failed to check if user exists: %w", err)
	}

	if exists {
		return user, failure.Conflict(msgDuplicateUser) // nolint:wrapcheck
	}

	hashedPassword, err := password.Hash(req.Password)
	if err != nil {
		log.Error().Err(err).Msg("failed to hash password")

		return user, fmt.Errorf("failed to hash password: %w", err)
	}

	user = req.ToUserModel(hashedPassword, s.clock.Now())

	err = s.userRepo.Insert(ctx, user)
	if gRepo.IsUniqueViolation(err) {
		return userModel.User{}, failure.Conflict(msgDuplicateUser) // nolint:wrapcheck
	}

	if err != nil {
		log.Error().Err(err).Msg("failed to create user")

		return userModel.User{}, fmt.Errorf("failed to create user: %w", err)
	}

	log.Info().Str("userID", user.ID).Str("role", user.Role).Msg("user registered")

	go func() {
		shared.InvalidateCaches(context.WithoutCancel(ctx), s.cache, cacheUserPrefix)
	}()

	return user, nil
}

func (s *serviceImpl) Login(ctx context.Context, req dto.LoginRequest) (res dto.LoginResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Login")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	user, err := s.userRepo.Get(ctx, userRepo.ByUsername(req.Username))
	if err != nil {
		log.Error().Err(err).Msg("failed to get user")

		return res, fmt.Errorf("failed to get user: %w", err)
	}

	if user.ID == constant.Empty {
		log.Warn().Str("username", req.Username).Msg("login attempt with unknown username")

		return res, failure.Unauthorized(msgInvalidCredentials) // nolint:wrapcheck
	}

	if err = password.Verify(req.Password, user.Password); err != nil {
		log.Warn().Str("username", req.Username).Msg("login attempt with wrong password")

		return res, failure.Unauthorized(msgInvalidCredentials) // nolint:wrapcheck
	}

	if !user.Active {
		return res, failure.Forbidden(msgDeactivated) // nolint:wrapcheck
	}

	tokenPair, err := s.jwtService.GenerateTokenPair(user.ID, user.Username, user.Role)
	if err != nil {
		log.Error().Err(err).Msg("failed to generate tokens")

		return res, fmt.Errorf("failed to generate tokens: %w", err)
	}

	now := s.clock.Now()
	updatedFields := shared.TransformFields(dto.UpdateLastLoginRequest{LastLogin: now}, user.ID, now)

	if err = s.userRepo.Update(ctx, updatedFields, userRepo.ByID(user.ID)); err != nil {
		log.Error().Err(err).Str("userID", user.ID).Msg("failed to update last login")

		return res, fmt.Errorf("failed to update last login: %w", err)
	}

	user.LastLogin = &now

	res.FromTokenPair(tokenPair)
	res.User.FromModel(user)

	return res, nil
}

func (s *serviceImpl) RefreshToken(ctx context.Context, req dto.RefreshTokenRequest) (res dto.RefreshTokenResponse, err error) {
	_, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".RefreshToken")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	tokenPair, err := s.jwtService.RefreshTokens(req.RefreshToken)
	if err != nil {
		log.Warn().Err(err).Msg("failed to refresh tokens")

		return res, failure.Unauthorized(msgInvalidRefresh) // nolint:wrapcheck
	}

	res.FromTokenPair(tokenPair)

	return res, nil
}

func (s *serviceImpl) ChangePassword(ctx context.Context, req dto.ChangePasswordRequest, userID string) (err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".ChangePassword")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	filter := userRepo.ByID(userID)

	user, err := s.userRepo.Get(ctx, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to get user")

		return fmt.Errorf("failed to get user: %w", err)
	}

	if user.ID == constant.Empty {
		return failure.NotFound("User not found.") // nolint:wrapcheck
	}

	if err = password.Verify(req.CurrentPassword, user.Password); err != nil {
		return failure.BadRequestFromString(msgWrongPassword) // nolint:wrapcheck
	}

	hashedPassword, err := password.Hash(req.NewPassword)
	if err != nil {
		log.Error().Err(err).Msg("failed to hash new password")

		return fmt.Errorf("failed to hash new password: %w", err)
	}

	updatedFields := shared.TransformFields(dto.UpdatePasswordRequest{Password: hashedPassword}, userID, s.clock.Now())

	if err = s.userRepo.Update(ctx, updatedFields, filter); err != nil {
		log.Error().Err(err).Msg("failed to update password")

		return fmt.Errorf("failed to update password: %w", err)
	}

	return nil
}
