//go:build wireinject
// +build wireinject

package di

import (
	"medsys/config"
	"medsys/infras/jwt"
	"medsys/infras/kafka"
	"medsys/infras/otel"
	"medsys/infras/postgres"
	"medsys/infras/redis"
	"medsys/infras/s3"
	"medsys/permissions"
	"medsys/shared/cache"
	"medsys/shared/timezone"
	"medsys/transport/event"
	"medsys/transport/http"
	"medsys/transport/http/middleware"
	"medsys/transport/http/router"

	"github.com/google/wire"

	apptEvent "medsys/internal/domains/appointment/event"
	apptRepository "medsys/internal/domains/appointment/repository"
	apptService "medsys/internal/domains/appointment/service"
	authService "medsys/internal/domains/auth/service"
	notificationRepository "medsys/internal/domains/notification/repository"
	notificationService "medsys/internal/domains/notification/service"
	userRepository "medsys/internal/domains/user/repository"
	userService "medsys/internal/domains/user/service"
	appointmentHandler "medsys/internal/handlers/appointment"
	authHandler "medsys/internal/handlers/auth"
	notificationHandler "medsys/internal/handlers/notification"
	userHandler "medsys/internal/handlers/user"
)

var configurations = wire.NewSet(
	config.Get,
	permissions.Get,
)

var infrastructures = wire.NewSet(
	postgres.New,
	otel.New,
	redis.New,
	jwt.New,
	kafka.New,
	s3.New,
)

var middlewares = wire.NewSet(
	middleware.NewAppMiddleware,
	middleware.NewAuthRoleMiddleware,
)

var sharedHelpers = wire.NewSet(
	cache.NewRedisCache,
	cache.NewLocker,
	timezone.NewClock,
)

var userDomain = wire.NewSet(
	userRepository.New,
	userService.New,
)

var authDomain = wire.NewSet(
	authService.New,
)

var appointmentDomain = wire.NewSet(
	apptRepository.New,
	apptEvent.New,
	provideConflictDetector,
	provideValidationPipeline,
	provideCapacityPolicy,
	apptService.New,
)

var notificationDomain = wire.NewSet(
	notificationRepository.New,
	notificationService.New,
)

var domains = wire.NewSet(
	userDomain,
	authDomain,
	appointmentDomain,
	notificationDomain,
)

var routing = wire.NewSet(
	wire.Struct(new(router.DomainHandlers), "*"),
	authHandler.New,
	userHandler.New,
	appointmentHandler.New,
	notificationHandler.New,
	router.New,
)

func InitializeService() *http.HTTP {
	wire.Build(
		configurations,
		infrastructures,
		middlewares,
		sharedHelpers,
		domains,
		routing,
		http.New,
	)

	return &http.HTTP{}
}

func InitializeNotifier() *event.Consumer {
	wire.Build(
		config.Get,
		postgres.New,
		otel.New,
		kafka.New,
		timezone.NewClock,
		notificationDomain,
		event.NewConsumer,
	)

	return &event.Consumer{}
}
