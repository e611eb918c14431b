package repository

//go:generate go run go.uber.org/mock/mockgen -source=./repository.go -destination=../mocks/repository_mock.go -package=mocks

import (
	"context"
	"medsys/infras/otel"
	"medsys/infras/postgres"
	"medsys/internal/domains/notification/model"
	gDto "medsys/shared/dto"
	gRepo "medsys/shared/repository"
	"time"
)

const markAllReadQuery = `
UPDATE notifications
SET status = :read_status, read_at = :read_at, modified_at = :read_at, modified_by = :recipient_id
WHERE recipient_id = :recipient_id AND status = :unread_status`

type Notification interface {
	Insert(ctx context.Context, model model.Notification) error
	Get(ctx context.Context, filter gDto.FilterGroup, columns ...string) (model.Notification, error)
	GetAll(ctx context.Context, params gDto.QueryParams, filter gDto.FilterGroup, columns ...string) ([]model.Notification, error)
	Count(ctx context.Context, filter gDto.FilterGroup) (int, error)
	Update(ctx context.Context, req map[string]any, filter gDto.FilterGroup) error
	// MarkAllRead flips every unread notification of the recipient and returns how many changed.
	MarkAllRead(ctx context.Context, recipientID string, at time.Time) (int, error)
}

type repositoryImpl struct {
	gRepo.Repository[model.Notification]
}

func New(db *postgres.Connection, otel otel.Otel) Notification {
	return &repositoryImpl{
		Repository: gRepo.NewRepository[model.Notification](model.EntityName, model.TableName, model.FieldID, db, otel),
	}
}

func (r *repositoryImpl) MarkAllRead(ctx context.Context, recipientID string, at time.Time) (int, error) {
	affected, err := r.Exec(ctx, "MarkAllRead", markAllReadQuery, map[string]any{
		"recipient_id":  recipientID,
		"read_at":       at,
		"read_status":   model.StatusRead,
		"unread_status": model.StatusUnread,
	})

	return int(affected), err //nolint:wrapcheck
}
