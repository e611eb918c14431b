package auth

import (
	"context"
	"medsys/infras/otel"
	"medsys/internal/domains/auth/model/dto"
	"medsys/internal/domains/auth/service"
	userDto "medsys/internal/domains/user/model/dto"
	"medsys/shared/constant"
	"medsys/shared/failure"
	"medsys/shared/validator"
	"medsys/transport/http/response"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

type Handler struct {
	service service.Auth
	otel    otel.Otel
}

func New(service service.Auth, otel otel.Otel) Handler {
	return Handler{
		service: service,
		otel:    otel,
	}
}

func (handler *Handler) Router(r chi.Router) {
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", handler.Register)
		r.Post("/login", handler.Login)
		r.Post("/refresh-token", handler.RefreshToken)
		r.Post("/change-password", handler.ChangePassword)
	})
}

// serve decodes and validates a Req body, runs call inside a handler scope
// and writes the result with status. Service failures are logged at warn.
func serve[Req, Res any](
	handler *Handler, w http.ResponseWriter, r *http.Request,
	op string, status int, call func(ctx context.Context, req Req) (Res, error),
) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+"."+op)
	defer scope.End()

	var req Req
	if err := validator.Validate(r.Body, &req); err != nil {
		scope.TraceError(err)
		log.Warn().Err(err).Str("op", op).Msg("invalid request body")

		response.WithError(w, err)

		return
	}

	res, err := call(ctx, req)
	if err != nil {
		scope.TraceError(err)
		log.Warn().Err(err).Str("op", op).Msg("auth request failed")

		response.WithError(w, err)

		return
	}

	scope.AddEvent(op + " succeeded")

	response.WithJSON(w, status, res)
}

// Register creates an account
// @Summary Register a patient or doctor
// @Description Register a new PATIENT or DOCTOR account. Admins are only seeded.
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body dto.RegisterRequest true "Register Request"
// @Success 201 {object} response.Data[userDto.UserResponse]
// @Failure 400 {object} response.Error
// @Failure 409 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/auth/register [post]
func (handler *Handler) Register(w http.ResponseWriter, r *http.Request) {
	serve(handler, w, r, "Register", http.StatusCreated,
		func(ctx context.Context, req dto.RegisterRequest) (userDto.UserResponse, error) {
			res := userDto.UserResponse{}

			user, err := handler.service.Register(ctx, req)
			if err != nil {
				return res, err
			}

			res.FromModel(user)

			return res, nil
		})
}

// Login
// @Summary Login with username or email
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body dto.LoginRequest true "Login Request"
// @Success 200 {object} response.Data[dto.LoginResponse]
// @Failure 400 {object} response.Error
// @Failure 401 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/auth/login [post]
func (handler *Handler) Login(w http.ResponseWriter, r *http.Request) {
	serve(handler, w, r, "Login", http.StatusOK, handler.service.Login)
}

// RefreshToken exchanges a refresh token for a new pair
// @Summary Refresh tokens
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body dto.RefreshTokenRequest true "Refresh Token Request"
// @Success 200 {object} response.Data[dto.RefreshTokenResponse]
// @Failure 400 {object} response.Error
// @Failure 401 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/auth/refresh-token [post]
func (handler *Handler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	serve(handler, w, r, "RefreshToken", http.StatusOK, handler.service.RefreshToken)
}

// ChangePassword
// @Summary Change the current user's password
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body dto.ChangePasswordRequest true "Change Password Request"
// @Success 200 {object} response.Data[string]
// @Failure 400 {object} response.Error
// @Failure 401 {object} response.Error
// @Router /v1/auth/change-password [post]
// @Security BearerAuth
func (handler *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	serve(handler, w, r, "ChangePassword", http.StatusOK,
		func(ctx context.Context, req dto.ChangePasswordRequest) (string, error) {
			userID, _ := ctx.Value(constant.ContextKeyUserID).(string)
			if userID == constant.Empty {
				return "", failure.Unauthorized("Missing authenticated user.") // nolint:wrapcheck
			}

			if err := handler.service.ChangePassword(ctx, req, userID); err != nil {
				return "", err
			}

			return "Password changed successfully", nil
		})
}
