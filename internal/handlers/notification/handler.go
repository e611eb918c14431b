package notification

import (
	"medsys/infras/otel"
	"medsys/internal/domains/notification/service"
	"medsys/shared/constant"
	gDto "medsys/shared/dto"
	"medsys/transport/http/response"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

type Handler struct {
	service service.Notification
	otel    otel.Otel
}

func New(service service.Notification, otel otel.Otel) Handler {
	return Handler{
		service: service,
		otel:    otel,
	}
}

func (handler *Handler) Router(router chi.Router) {
	router.Route("/notifications", func(routerGroup chi.Router) {
		routerGroup.Get("/", handler.GetNotifications)
		routerGroup.Get("/mine", handler.GetMyNotifications)
		routerGroup.Get("/mine/unread-count", handler.GetUnreadCount)
		routerGroup.Post("/mark-all-read", handler.MarkAllRead)
		routerGroup.Post("/{id}/mark-read", handler.MarkRead)
	})
}

// GetMyNotifications lists the caller's notifications, newest first.
// @Summary List my notifications
// @Tags Notification
// @Produce json
// @Param pagination query gDto.QueryParams false "Pagination parameters"
// @Param status query string false "UNREAD or READ"
// @Success 200 {object} response.Data[dto.GetNotificationsResponse]
// @Failure 400 {object} response.Error
// @Router /v1/notifications/mine [get]
// @Security BearerAuth
func (handler *Handler) GetMyNotifications(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetMyNotifications")
	defer scope.End()

	userID, _ := ctx.Value(constant.ContextKeyUserID).(string)

	queryParams := gDto.QueryParams{}
	queryParams.FromRequest(r, true)

	res, err := handler.service.ListMine(ctx, userID, queryParams, r.URL.Query().Get(constant.RequestParamStatus))
	if err != nil {
		scope.TraceError(err)
		log.Warn().Err(err).Msg("failed to list notifications")

		response.WithError(w, err)

		return
	}

	response.WithJSON(w, http.StatusOK, res)
}

// GetUnreadCount returns how many of the caller's notifications are unread.
// @Summary Unread notification count
// @Tags Notification
// @Produce json
// @Success 200 {object} response.Data[dto.UnreadCountResponse]
// @Router /v1/notifications/mine/unread-count [get]
// @Security BearerAuth
func (handler *Handler) GetUnreadCount(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetUnreadCount")
	defer scope.End()

	userID, _ := ctx.Value(constant.ContextKeyUserID).(string)

	res, err := handler.service.UnreadCount(ctx, userID)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to count unread notifications")

		response.WithError(w, err)

		return
	}

	response.WithJSON(w, http.StatusOK, res)
}

// MarkRead marks one notification as read.
// @Summary Mark notification read
// @Tags Notification
// @Produce json
// @Param id path string true "Notification ID"
// @Success 200 {object} response.Data[dto.NotificationResponse]
// @Failure 403 {object} response.Error
// @Failure 404 {object} response.Error
// @Router /v1/notifications/{id}/mark-read [post]
// @Security BearerAuth
func (handler *Handler) MarkRead(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".MarkRead")
	defer scope.End()

	userID, _ := ctx.Value(constant.ContextKeyUserID).(string)
	id := chi.URLParam(r, constant.RequestParamID)

	res, err := handler.service.MarkRead(ctx, userID, id)
	if err != nil {
		scope.TraceError(err)
		log.Warn().Err(err).Str("id", id).Msg("failed to mark notification read")

		response.WithError(w, err)

		return
	}

	response.WithJSON(w, http.StatusOK, res)
}

// MarkAllRead marks every unread notification of the caller as read.
// @Summary Mark all notifications read
// @Tags Notification
// @Produce json
// @Success 200 {object} response.Data[dto.MarkAllReadResponse]
// @Router /v1/notifications/mark-all-read [post]
// @Security BearerAuth
func (handler *Handler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".MarkAllRead")
	defer scope.End()

	userID, _ := ctx.Value(constant.ContextKeyUserID).(string)

	res, err := handler.service.MarkAllRead(ctx, userID)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to mark all notifications read")

		response.WithError(w, err)

		return
	}

	scope.AddEvent("Notifications marked read for user " + userID)

	response.WithJSON(w, http.StatusOK, res)
}

// GetNotifications lists every notification.
// @Summary List all notifications (admin)
// @Tags Notification
// @Produce json
// @Param pagination query gDto.QueryParams false "Pagination parameters"
// @Param status query string false "UNREAD or READ"
// @Success 200 {object} response.Data[dto.GetNotificationsResponse]
// @Failure 403 {object} response.Error
// @Router /v1/notifications [get]
// @Security BearerAuth
func (handler *Handler) GetNotifications(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetNotifications")
	defer scope.End()

	queryParams := gDto.QueryParams{}
	queryParams.FromRequest(r, true)

	res, err := handler.service.ListAll(ctx, queryParams, r.URL.Query().Get(constant.RequestParamStatus))
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to list notifications")

		response.WithError(w, err)

		return
	}

	response.WithJSON(w, http.StatusOK, res)
}
