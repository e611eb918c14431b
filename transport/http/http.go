package http

import (
	"context"
	"errors"
	"medsys/config"
	"medsys/shared/constant"
	"medsys/transport/http/middleware"
	"medsys/transport/http/response"
	"medsys/transport/http/router"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	_ "medsys/docs" // swagger docs

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog/log"
	httpSwagger "github.com/swaggo/http-swagger"
)

type ServerState int32

const (
	ServerStateReady ServerState = iota + 1
	ServerStateInGracePeriod
	ServerStateInCleanupPeriod
)

type HTTP struct {
	Config     *config.Config
	Router     router.Router
	App        middleware.AppMiddleware
	AuthRole   middleware.AuthRole
	state      atomic.Int32
	mux        *chi.Mux
	setupOnce  sync.Once
	httpServer *http.Server
}

func New(cfg *config.Config, r router.Router, app middleware.AppMiddleware, authRole middleware.AuthRole) *HTTP {
	return &HTTP{
		Config:   cfg,
		Router:   r,
		App:      app,
		AuthRole: authRole,
	}
}

func (h *HTTP) Serve() {
	h.setup()
	h.setupGracefulShutdown()

	h.httpServer = &http.Server{
		Addr:              net.JoinHostPort(h.Config.Server.Host, h.Config.Server.Port),
		Handler:           h.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Info().Str("port", h.Config.Server.Port).Msg("Starting up HTTP server.")

	if err := h.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("Failed to start HTTP server")
	}
}

// ServeHTTP lets the whole API be mounted as a single handler.
func (h *HTTP) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.setup()
	h.mux.ServeHTTP(w, r)
}

func (h *HTTP) State() ServerState {
	return ServerState(h.state.Load())
}

func (h *HTTP) setup() {
	h.setupOnce.Do(func() {
		h.setupRoutes()
		h.state.Store(int32(ServerStateReady))
	})
}

func (h *HTTP) setupRoutes() {
	h.mux = chi.NewRouter()

	h.mux.Use(chiMiddleware.RequestID)
	h.mux.Use(chiMiddleware.Recoverer)
	h.setupCORS()
	h.mux.Use(h.App.Tracing)
	h.mux.Use(h.App.RateLimit())
	h.mux.Use(h.AuthRole.APIKey)
	h.mux.Use(h.AuthRole.Auth)
	h.mux.Use(h.AuthRole.RBAC)

	h.mux.Get("/health", h.health)

	if h.Config.Server.Env != constant.ServerEnvProduction {
		h.mux.Get("/swagger/*", httpSwagger.Handler())
	}

	h.Router.SetupRoutes(h.mux)
}

func (h *HTTP) setupCORS() {
	corsCfg := h.Config.App.CORS
	if !corsCfg.Enable {
		return
	}

	h.mux.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsCfg.AllowedOrigins,
		AllowedMethods:   corsCfg.AllowedMethods,
		AllowedHeaders:   corsCfg.AllowedHeaders,
		AllowCredentials: corsCfg.AllowCredentials,
		MaxAge:           corsCfg.MaxAgeSeconds,
	}))
}

func (h *HTTP) health(w http.ResponseWriter, _ *http.Request) {
	if h.State() != ServerStateReady {
		response.WithPreparingShutdown(w)

		return
	}

	response.WithMessage(w, http.StatusOK, "OK")
}

func (h *HTTP) setupGracefulShutdown() {
	serverStateCh := make(chan os.Signal, 1)

	signal.Notify(serverStateCh, os.Interrupt, syscall.SIGTERM)

	go h.respondToSigterm(serverStateCh)
}

func (h *HTTP) respondToSigterm(done chan os.Signal) {
	<-done

	if h.Config.Server.Env == constant.ServerEnvDevelopment {
		log.Warn().Msg("Received SIGTERM. Shutting down now.")
		h.shutdown(context.Background())

		return
	}

	shutdownConfig := h.Config.Server.Shutdown

	log.Info().Msg("Received SIGTERM.")
	log.Info().Int64("seconds", shutdownConfig.GracePeriodSeconds).Msg("Entering grace period.")

	h.state.Store(int32(ServerStateInGracePeriod))

	time.Sleep(time.Duration(shutdownConfig.GracePeriodSeconds) * time.Second)

	log.Info().Int64("seconds", shutdownConfig.CleanupPeriodSeconds).Msg("Entering cleanup period.")

	h.state.Store(int32(ServerStateInCleanupPeriod))

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(shutdownConfig.CleanupPeriodSeconds)*time.Second)
	defer cancel()

	h.shutdown(ctx)

	log.Info().Msg("Cleaning up completed. Shutting down now.")
}

func (h *HTTP) shutdown(ctx context.Context) {
	if h.httpServer == nil {
		return
	}

	if err := h.httpServer.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("failed to shut down HTTP server")
	}
}
