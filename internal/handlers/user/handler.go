package user

import (
	"medsys/infras/otel"
	"medsys/internal/domains/user/service"
	"medsys/shared/constant"
	gDto "medsys/shared/dto"
	"medsys/transport/http/response"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

type Handler struct {
	service service.User
	otel    otel.Otel
}

func New(service service.User, otel otel.Otel) Handler {
	return Handler{
		service: service,
		otel:    otel,
	}
}

func (handler *Handler) Router(router chi.Router) {
	router.Get("/users/me", handler.GetMe)
	router.Get("/doctors", handler.GetDoctors)
}

// GetMe returns the profile of the authenticated user.
// @Summary Current user profile
// @Tags User
// @Produce json
// @Success 200 {object} response.Data[dto.UserResponse]
// @Failure 401 {object} response.Error
// @Failure 404 {object} response.Error
// @Router /v1/users/me [get]
// @Security BearerAuth
func (handler *Handler) GetMe(writer http.ResponseWriter, request *http.Request) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetMe")
	defer scope.End()

	userID, _ := ctx.Value(constant.ContextKeyUserID).(string)

	res, err := handler.service.Me(ctx, userID)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to get current user")

		response.WithError(writer, err)

		return
	}

	response.WithJSON(writer, http.StatusOK, res)
}

// GetDoctors lists active doctors.
// @Summary Doctor directory
// @Tags User
// @Produce json
// @Param pagination query gDto.QueryParams false "Pagination parameters"
// @Success 200 {object} response.Data[dto.GetDoctorsResponse]
// @Failure 500 {object} response.Error
// @Router /v1/doctors [get]
func (handler *Handler) GetDoctors(writer http.ResponseWriter, request *http.Request) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetDoctors")
	defer scope.End()

	queryParams := gDto.QueryParams{}
	queryParams.FromRequest(request, true)

	res, err := handler.service.ListDoctors(ctx, queryParams)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to list doctors")

		response.WithError(writer, err)

		return
	}

	response.WithJSON(writer, http.StatusOK, res)
}
