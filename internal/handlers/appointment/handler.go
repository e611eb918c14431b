package appointment

import (
	"context"
	"medsys/infras/otel"
	"medsys/internal/domains/appointment/model"
	"medsys/internal/domains/appointment/model/dto"
	"medsys/internal/domains/appointment/service"
	"medsys/shared/constant"
	gDto "medsys/shared/dto"
	"medsys/shared/validator"
	"medsys/transport/http/response"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

type Handler struct {
	service service.Appointment
	otel    otel.Otel
}

func New(service service.Appointment, otel otel.Otel) Handler {
	return Handler{
		service: service,
		otel:    otel,
	}
}

func (handler *Handler) Router(router chi.Router) {
	router.Route("/appointments", func(routerGroup chi.Router) {
		routerGroup.Post("/", handler.CreateAppointment)
		routerGroup.Get("/", handler.GetAppointments)
		routerGroup.Get("/mine", handler.GetMyAppointments)
		routerGroup.Get("/doctor/me", handler.GetDoctorSchedule)
		routerGroup.Get("/export", handler.ExportSchedule)
		routerGroup.Get("/{id}", handler.GetAppointmentByID)
		routerGroup.Post("/{id}/decision", handler.DecideAppointment)
		routerGroup.Post("/{id}/cancel", handler.CancelAppointment)
	})
}

// CallerFromContext rebuilds the authenticated caller the auth middleware stored on ctx.
func CallerFromContext(ctx context.Context) model.Caller {
	id, _ := ctx.Value(constant.ContextKeyUserID).(string)
	role, _ := ctx.Value(constant.ContextKeyUserRole).(string)

	return model.Caller{ID: id, Role: role}
}

func listFilter(r *http.Request) dto.ListFilter {
	query := r.URL.Query()

	return dto.ListFilter{
		Status: query.Get(constant.RequestParamStatus),
		From:   query.Get(constant.RequestParamFrom),
		To:     query.Get(constant.RequestParamTo),
	}
}

// CreateAppointment books a new appointment.
// @Summary Book an appointment
// @Description Runs the validation pipeline and capacity policy, then stores a PENDING appointment.
// @Tags Appointment
// @Accept json
// @Produce json
// @Param request body dto.CreateAppointmentRequest true "Create Appointment Request"
// @Success 201 {object} response.Data[dto.AppointmentResponse]
// @Failure 400 {object} response.Error
// @Failure 401 {object} response.Error
// @Failure 403 {object} response.Error
// @Failure 409 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/appointments [post]
// @Security BearerAuth
func (handler *Handler) CreateAppointment(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".CreateAppointment")
	defer scope.End()

	req := dto.CreateAppointmentRequest{}

	if err := validator.Validate(r.Body, &req); err != nil {
		scope.TraceError(err)
		log.Warn().Err(err).Msg("failed to validate request body")

		response.WithError(w, err)

		return
	}

	res, err := handler.service.Create(ctx, CallerFromContext(ctx), req)
	if err != nil {
		scope.TraceError(err)
		log.Warn().Err(err).Msg("failed to create appointment")

		response.WithError(w, err)

		return
	}

	scope.AddEvent("Appointment created " + res.ID)

	response.WithJSON(w, http.StatusCreated, res)
}

// DecideAppointment accepts or denies a pending appointment.
// @Summary Decide an appointment
// @Description The owning doctor accepts (ACCEPT/ACCEPTED) or denies (DENY/DENIED/REJECT/REJECTED) a pending appointment.
// @Tags Appointment
// @Accept json
// @Produce json
// @Param id path string true "Appointment ID"
// @Param request body dto.DecideAppointmentRequest true "Decision"
// @Success 200 {object} response.Data[dto.AppointmentResponse]
// @Failure 400 {object} response.Error
// @Failure 403 {object} response.Error
// @Failure 404 {object} response.Error
// @Failure 409 {object} response.Error
// @Router /v1/appointments/{id}/decision [post]
// @Security BearerAuth
func (handler *Handler) DecideAppointment(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".DecideAppointment")
	defer scope.End()

	id := chi.URLParam(r, constant.RequestParamID)

	req := dto.DecideAppointmentRequest{}
	if err := validator.Validate(r.Body, &req); err != nil {
		scope.TraceError(err)
		log.Warn().Err(err).Msg("failed to validate request body")

		response.WithError(w, err)

		return
	}

	res, err := handler.service.Decide(ctx, CallerFromContext(ctx), id, req.Decision)
	if err != nil {
		scope.TraceError(err)
		log.Warn().Err(err).Str("id", id).Msg("failed to decide appointment")

		response.WithError(w, err)

		return
	}

	scope.AddEvent("Appointment " + id + " decided as " + res.Status)

	response.WithJSON(w, http.StatusOK, res)
}

// CancelAppointment cancels a future appointment.
// @Summary Cancel an appointment
// @Description The owning patient cancels a pending or accepted appointment that has not started.
// @Tags Appointment
// @Produce json
// @Param id path string true "Appointment ID"
// @Success 200 {object} response.Data[dto.AppointmentResponse]
// @Failure 403 {object} response.Error
// @Failure 404 {object} response.Error
// @Failure 409 {object} response.Error
// @Router /v1/appointments/{id}/cancel [post]
// @Security BearerAuth
func (handler *Handler) CancelAppointment(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".CancelAppointment")
	defer scope.End()

	id := chi.URLParam(r, constant.RequestParamID)

	res, err := handler.service.Cancel(ctx, CallerFromContext(ctx), id)
	if err != nil {
		scope.TraceError(err)
		log.Warn().Err(err).Str("id", id).Msg("failed to cancel appointment")

		response.WithError(w, err)

		return
	}

	scope.AddEvent("Appointment cancelled " + id)

	response.WithJSON(w, http.StatusOK, res)
}

// GetAppointmentByID returns one appointment.
// @Summary Get an appointment
// @Tags Appointment
// @Produce json
// @Param id path string true "Appointment ID"
// @Success 200 {object} response.Data[dto.AppointmentResponse]
// @Failure 403 {object} response.Error
// @Failure 404 {object} response.Error
// @Router /v1/appointments/{id} [get]
// @Security BearerAuth
func (handler *Handler) GetAppointmentByID(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetAppointmentByID")
	defer scope.End()

	id := chi.URLParam(r, constant.RequestParamID)

	res, err := handler.service.Get(ctx, CallerFromContext(ctx), id)
	if err != nil {
		scope.TraceError(err)
		log.Warn().Err(err).Str("id", id).Msg("failed to get appointment")

		response.WithError(w, err)

		return
	}

	response.WithJSON(w, http.StatusOK, res)
}

// GetMyAppointments lists the calling patient's appointments.
// @Summary List my appointments
// @Tags Appointment
// @Produce json
// @Param pagination query gDto.QueryParams false "Pagination parameters"
// @Param status query string false "PENDING, ACCEPTED, DENIED or CANCELLED"
// @Success 200 {object} response.Data[dto.GetAppointmentsResponse]
// @Failure 400 {object} response.Error
// @Router /v1/appointments/mine [get]
// @Security BearerAuth
func (handler *Handler) GetMyAppointments(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetMyAppointments")
	defer scope.End()

	queryParams := gDto.QueryParams{}
	queryParams.FromRequest(r, true)

	res, err := handler.service.ListMine(ctx, CallerFromContext(ctx), queryParams, listFilter(r))
	if err != nil {
		scope.TraceError(err)
		log.Warn().Err(err).Msg("failed to list patient appointments")

		response.WithError(w, err)

		return
	}

	response.WithJSON(w, http.StatusOK, res)
}

// GetDoctorSchedule lists the calling doctor's appointments.
// @Summary List my schedule (doctor)
// @Tags Appointment
// @Produce json
// @Param pagination query gDto.QueryParams false "Pagination parameters"
// @Param status query string false "PENDING, ACCEPTED, DENIED or CANCELLED"
// @Param from query string false "RFC3339 lower bound on start time"
// @Param to query string false "RFC3339 upper bound on start time"
// @Success 200 {object} response.Data[dto.GetAppointmentsResponse]
// @Failure 400 {object} response.Error
// @Failure 403 {object} response.Error
// @Router /v1/appointments/doctor/me [get]
// @Security BearerAuth
func (handler *Handler) GetDoctorSchedule(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetDoctorSchedule")
	defer scope.End()

	queryParams := gDto.QueryParams{}
	queryParams.FromRequest(r, true)

	res, err := handler.service.ListForDoctor(ctx, CallerFromContext(ctx), queryParams, listFilter(r))
	if err != nil {
		scope.TraceError(err)
		log.Warn().Err(err).Msg("failed to list doctor schedule")

		response.WithError(w, err)

		return
	}

	response.WithJSON(w, http.StatusOK, res)
}

// GetAppointments lists every appointment.
// @Summary List all appointments (admin)
// @Tags Appointment
// @Produce json
// @Param pagination query gDto.QueryParams false "Pagination parameters"
// @Param status query string false "PENDING, ACCEPTED, DENIED or CANCELLED"
// @Param from query string false "RFC3339 lower bound on start time"
// @Param to query string false "RFC3339 upper bound on start time"
// @Success 200 {object} response.Data[dto.GetAppointmentsResponse]
// @Failure 400 {object} response.Error
// @Failure 403 {object} response.Error
// @Router /v1/appointments [get]
// @Security BearerAuth
func (handler *Handler) GetAppointments(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetAppointments")
	defer scope.End()

	queryParams := gDto.QueryParams{}
	queryParams.FromRequest(r, true)

	res, err := handler.service.ListAll(ctx, queryParams, listFilter(r))
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to list appointments")

		response.WithError(w, err)

		return
	}

	response.WithJSON(w, http.StatusOK, res)
}

// ExportSchedule uploads the caller's live appointments as an iCalendar file.
// @Summary Export my schedule
// @Tags Appointment
// @Produce json
// @Success 200 {object} response.Data[dto.ExportResponse]
// @Failure 401 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/appointments/export [get]
// @Security BearerAuth
func (handler *Handler) ExportSchedule(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".ExportSchedule")
	defer scope.End()

	res, err := handler.service.Export(ctx, CallerFromContext(ctx))
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to export schedule")

		response.WithError(w, err)

		return
	}

	response.WithJSON(w, http.StatusOK, res)
}
