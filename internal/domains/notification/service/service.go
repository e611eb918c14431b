package service

//go:generate go run go.uber.org/mock/mockgen -source=./service.go -destination=../mocks/service_mock.go -package=mocks -mock_names=Notification=MockNotificationService

import (
	"context"
	"fmt"
	"medsys/infras/otel"
	"medsys/internal/domains/appointment/event"
	"medsys/internal/domains/notification/model"
	"medsys/internal/domains/notification/model/dto"
	"medsys/internal/domains/notification/repository"
	"medsys/shared"
	"medsys/shared/constant"
	gDto "medsys/shared/dto"
	"medsys/shared/failure"
	gModel "medsys/shared/model"
	gRepo "medsys/shared/repository"
	"medsys/shared/timezone"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	scheduleLayout = "2006-01-02 15:04"
	systemUser     = "notifier"

	msgNotificationNotFound = "Notification not found."
)

type template struct {
	toDoctor bool
	title    string
	message  string
}

var templates = map[event.Kind]template{
	event.KindCreated:   {toDoctor: true, title: "New appointment request", message: "A patient requested an appointment on %s."},
	event.KindAccepted:  {toDoctor: false, title: "Appointment accepted", message: "Your appointment on %s was accepted."},
	event.KindDenied:    {toDoctor: false, title: "Appointment rejected", message: "Your appointment on %s was rejected."},
	event.KindCancelled: {toDoctor: true, title: "Appointment cancelled", message: "The appointment on %s was cancelled by the patient."},
}

type Notification interface {
	HandleAppointmentEvent(ctx context.Context, evt event.Event) error
	ListMine(ctx context.Context, recipientID string, params gDto.QueryParams, status string) (dto.GetNotificationsResponse, error)
	ListAll(ctx context.Context, params gDto.QueryParams, status string) (dto.GetNotificationsResponse, error)
	UnreadCount(ctx context.Context, recipientID string) (dto.UnreadCountResponse, error)
	MarkRead(ctx context.Context, recipientID, id string) (dto.NotificationResponse, error)
	MarkAllRead(ctx context.Context, recipientID string) (dto.MarkAllReadResponse, error)
}

type serviceImpl struct {
	repo  repository.Notification
	clock timezone.Clock
	otel  otel.Otel
}

func New(repo repository.Notification, clock timezone.Clock, otel otel.Otel) Notification {
	return &serviceImpl{
		repo:  repo,
		clock: clock,
		otel:  otel,
	}
}

// HandleAppointmentEvent stores the notification an appointment event produces.
// Redelivered events hit the unique (appointment_id, type, recipient_id) index and are ignored.
func (s *serviceImpl) HandleAppointmentEvent(ctx context.Context, evt event.Event) (err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".HandleAppointmentEvent")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	tmpl, ok := templates[evt.Type]
	if !ok {
		log.Warn().Str("type", string(evt.Type)).Msg("ignoring unknown appointment event")

		return nil
	}

	recipient := evt.PatientID
	if tmpl.toDoctor {
		recipient = evt.DoctorID
	}

	now := s.clock.Now()

	err = s.repo.Insert(ctx, model.Notification{
		ID:            uuid.NewString(),
		RecipientID:   recipient,
		AppointmentID: evt.AppointmentID,
		Type:          string(evt.Type),
		Title:         tmpl.title,
		Message:       fmt.Sprintf(tmpl.message, timezone.Format(evt.StartTime, scheduleLayout)),
		Status:        model.StatusUnread,
		Metadata:      gModel.NewMetadata(systemUser, now),
	})
	if gRepo.IsUniqueViolation(err) {
		log.Info().Str("appointmentID", evt.AppointmentID).Str("type", string(evt.Type)).Msg("notification already stored")

		return nil
	}

	if err != nil {
		log.Error().Err(err).Str("appointmentID", evt.AppointmentID).Msg("failed to store notification")

		return fmt.Errorf("failed to store notification: %w", err)
	}

	return nil
}

func (s *serviceImpl) ListMine(ctx context.Context, recipientID string, params gDto.QueryParams, status string) (res dto.GetNotificationsResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".ListMine")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	filter, err := buildFilter(recipientID, status)
	if err != nil {
		return res, err
	}

	return s.list(ctx, params, filter)
}

func (s *serviceImpl) ListAll(ctx context.Context, params gDto.QueryParams, status string) (res dto.GetNotificationsResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".ListAll")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	filter, err := buildFilter("", status)
	if err != nil {
		return res, err
	}

	return s.list(ctx, params, filter)
}

func (s *serviceImpl) list(ctx context.Context, params gDto.QueryParams, filter gDto.FilterGroup) (res dto.GetNotificationsResponse, err error) {
	params.SortBy = model.TableName + "." + constant.FieldCreatedAt
	params.SortDir = gDto.SortDirDesc

	total, err := s.repo.Count(ctx, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to count notifications")

		return res, fmt.Errorf("failed to count notifications: %w", err)
	}

	models, err := s.repo.GetAll(ctx, params, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to get notifications")

		return res, fmt.Errorf("failed to get notifications: %w", err)
	}

	res.FromModels(models, total, params.Limit)

	return res, nil
}

func (s *serviceImpl) UnreadCount(ctx context.Context, recipientID string) (res dto.UnreadCountResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".UnreadCount")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	filter, _ := buildFilter(recipientID, model.StatusUnread)

	res.Unread, err = s.repo.Count(ctx, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to count unread notifications")

		return res, fmt.Errorf("failed to count unread notifications: %w", err)
	}

	return res, nil
}

// MarkRead is idempotent: a notification already read is returned unchanged.
func (s *serviceImpl) MarkRead(ctx context.Context, recipientID, id string) (res dto.NotificationResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".MarkRead")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	if uuid.Validate(id) != nil {
		return res, failure.NotFound(msgNotificationNotFound) // nolint:wrapcheck
	}

	filter := shared.FilterByID(id, model.FieldID, model.TableName)

	notification, err := s.repo.Get(ctx, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to get notification")

		return res, fmt.Errorf("failed to get notification: %w", err)
	}

	if notification.ID == constant.Empty {
		return res, failure.NotFound(msgNotificationNotFound) // nolint:wrapcheck
	}

	if notification.RecipientID != recipientID {
		return res, failure.Forbidden("You can only read your own notifications.") // nolint:wrapcheck
	}

	if notification.Status != model.StatusRead {
		now := s.clock.Now()

		err = s.repo.Update(ctx, map[string]any{
			model.FieldStatus:        model.StatusRead,
			model.FieldReadAt:        now,
			constant.FieldModifiedAt: now,
			constant.FieldModifiedBy: recipientID,
		}, filter)
		if err != nil {
			log.Error().Err(err).Msg("failed to mark notification read")

			return res, fmt.Errorf("failed to mark notification read: %w", err)
		}

		notification.Status = model.StatusRead
		notification.ReadAt = &now
		notification.Touch(recipientID, now)
	}

	res.FromModel(notification)

	return res, nil
}

func (s *serviceImpl) MarkAllRead(ctx context.Context, recipientID string) (res dto.MarkAllReadResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".MarkAllRead")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	res.Updated, err = s.repo.MarkAllRead(ctx, recipientID, s.clock.Now())
	if err != nil {
		log.Error().Err(err).Msg("failed to mark all notifications read")

		return res, fmt.Errorf("failed to mark all notifications read: %w", err)
	}

	return res, nil
}

func buildFilter(recipientID, status string) (gDto.FilterGroup, error) {
	group := gDto.And()

	if recipientID != "" {
		group.Filters = append(group.Filters, gDto.Filter{
			Field:    model.FieldRecipientID,
			Value:    recipientID,
			Operator: gDto.FilterOperatorEq,
			Table:    model.TableName,
		})
	}

	if status != "" {
		normalized := strings.ToUpper(status)
		if normalized != model.StatusRead && normalized != model.StatusUnread {
			return group, failure.BadRequestFromString(fmt.Sprintf("Invalid status filter: %s", status)) // nolint:wrapcheck
		}

		group.Filters = append(group.Filters, gDto.Filter{
			Field:    model.FieldStatus,
			Value:    normalized,
			Operator: gDto.FilterOperatorEq,
			Table:    model.TableName,
		})
	}

	return group, nil
}
