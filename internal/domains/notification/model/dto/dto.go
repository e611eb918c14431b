package dto

import (
	"medsys/internal/domains/notification/model"
	"medsys/shared"
	"medsys/shared/constant"
	gDto "medsys/shared/dto"
	"medsys/shared/timezone"
)

type NotificationResponse struct {
	ID            string  `json:"id"`
	RecipientID   string  `json:"recipient_id"`
	AppointmentID string  `json:"appointment_id"`
	Type          string  `json:"type"`
	Title         string  `json:"title"`
	Message       string  `json:"message"`
	Status        string  `json:"status"`
	ReadAt        *string `json:"read_at,omitempty"`
	gDto.Metadata
}

func (r *NotificationResponse) FromModel(mod model.Notification) {
	r.ID = mod.ID
	r.RecipientID = mod.RecipientID
	r.AppointmentID = mod.AppointmentID
	r.Type = mod.Type
	r.Title = mod.Title
	r.Message = mod.Message
	r.Status = mod.Status
	r.Metadata.FromModel(mod.Metadata)

	if mod.ReadAt != nil {
		readAt := timezone.Format(*mod.ReadAt, constant.DateFormat)
		r.ReadAt = &readAt
	}
}

type GetNotificationsResponse struct {
	Notifications []NotificationResponse `json:"notifications"`
	TotalPage     int                    `json:"total_page"`
	TotalData     int                    `json:"total_data"`
}

func (r *GetNotificationsResponse) FromModels(models []model.Notification, totalData, limit int) {
	r.TotalData = totalData
	r.TotalPage = shared.CalculateTotalPage(totalData, limit)

	r.Notifications = make([]NotificationResponse, len(models))
	for i, mod := range models {
		r.Notifications[i].FromModel(mod)
	}
}

type UnreadCountResponse struct {
	Unread int `json:"unread"`
}

type MarkAllReadResponse struct {
	Updated int `json:"updated"`
}
