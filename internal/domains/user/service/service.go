package service

//go:generate go run go.uber.org/mock/mockgen -source=./service.go -destination=../mocks/service_mock.go -package=mocks -mock_names=User=MockUserService

import (
	"context"
	"fmt"
	"medsys/config"
	"medsys/infras/otel"
	"medsys/internal/domains/user/model"
	"medsys/internal/domains/user/model/dto"
	"medsys/internal/domains/user/repository"
	"medsys/shared"
	"medsys/shared/cache"
	"medsys/shared/constant"
	gDto "medsys/shared/dto"
	"medsys/shared/failure"

	"github.com/rs/zerolog/log"
)

const (
	cacheGetUser     = "user:get"
	cacheListDoctors = "user:doctors"
)

type User interface {
	Me(ctx context.Context, userID string) (dto.UserResponse, error)
	ListDoctors(ctx context.Context, params gDto.QueryParams) (dto.GetDoctorsResponse, error)
}

type serviceImpl struct {
	repo  repository.User
	cfg   *config.Config
	cache cache.RedisCache
	otel  otel.Otel
}

func New(repo repository.User, cfg *config.Config, cache cache.RedisCache, otel otel.Otel) User {
	return &serviceImpl{
		repo:  repo,
		cfg:   cfg,
		cache: cache,
		otel:  otel,
	}
}

func (s *serviceImpl) Me(ctx context.Context, userID string) (res dto.UserResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Me")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	cacheKey := shared.BuildCacheKey(cacheGetUser, userID)

	if err = s.cache.Get(ctx, cacheKey, &res); err == nil {
		log.Debug().Str("cacheKey", cacheKey).Msg("cache hit for user")

		return res, nil
	}

	user, err := s.repo.Get(ctx, repository.ByID(userID))
	if err != nil {
		log.Error().Err(err).Msg("failed to get user")

		return res, fmt.Errorf("failed to get user: %w", err)
	}

	if user.ID == constant.Empty {
		return res, failure.NotFound("User not found.") // nolint:wrapcheck
	}

	res.FromModel(user)

	shared.SaveCacheAsync(ctx, s.cache, cacheKey, res, s.cfg.Cache.TTL)

	return res, nil
}

// ListDoctors is the public directory of active doctors.
func (s *serviceImpl) ListDoctors(ctx context.Context, params gDto.QueryParams) (res dto.GetDoctorsResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".ListDoctors")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	params.SortBy = model.TableName + "." + model.FieldUsername
	params.SortDir = gDto.SortDirAsc

	filter := repository.ActiveDoctors()

	cacheKey := shared.BuildCacheKeyWithQuery(cacheListDoctors, params, filter)

	if err = s.cache.Get(ctx, cacheKey, &res); err == nil {
		log.Debug().Str("cacheKey", cacheKey).Msg("cache hit for doctors")

		return res, nil
	}

	total, err := s.repo.Count(ctx, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to count doctors")

		return res, fmt.Errorf("failed to count doctors: %w", err)
	}

	models, err := s.repo.GetAll(ctx, params, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to get doctors")

		return res, fmt.Errorf("failed to get doctors: %w", err)
	}

	res.FromModels(models, total, params.Limit)

	shared.SaveCacheAsync(ctx, s.cache, cacheKey, res, s.cfg.Cache.TTL)

	return res, nil
}
