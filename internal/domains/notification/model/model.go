package model

import (
	"medsys/shared/model"
	"time"
)

const (
	TableName  = "notifications"
	EntityName = "notification"

	FieldID            = "id"
	FieldRecipientID   = "recipient_id"
	FieldAppointmentID = "appointment_id"
	FieldType          = "type"
	FieldTitle         = "title"
	FieldMessage       = "message"
	FieldStatus        = "status"
	FieldReadAt        = "read_at"
)

const (
	StatusUnread = "UNREAD"
	StatusRead   = "READ"
)

type Notification struct {
	ID            string     `db:"id"`
	RecipientID   string     `db:"recipient_id"`
	AppointmentID string     `db:"appointment_id"`
	Type          string     `db:"type"`
	Title         string     `db:"title"`
	Message       string     `db:"message"`
	Status        string     `db:"status"`
	ReadAt        *time.Time `db:"read_at"`
	model.Metadata
}
