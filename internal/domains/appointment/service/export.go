package service

import (
	"context"
	"fmt"
	"medsys/internal/domains/appointment/conflict"
	"medsys/internal/domains/appointment/model"
	"medsys/internal/domains/appointment/model/dto"
	"medsys/shared/constant"
	gDto "medsys/shared/dto"
	"path"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	exportDirectory = "exports"
	icsTimeLayout   = "20060102T150405Z"
	icsLineBreak    = "\r\n"
)

var icsEscaper = strings.NewReplacer(`\`, `\\`, ";", `\;`, ",", `\,`, "\n", `\n`)

// Export renders the caller's live appointments as an iCalendar file and uploads it.
func (s *serviceImpl) Export(ctx context.Context, caller model.Caller) (res dto.ExportResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Export")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	filter := gDto.And(
		gDto.FilterGroup{
			Operator: gDto.FilterGroupOperatorOr,
			Filters: []any{
				gDto.Filter{Field: model.FieldPatientID, Value: caller.ID, Operator: gDto.FilterOperatorEq, Table: model.TableName},
				gDto.Filter{Field: model.FieldDoctorID, Value: caller.ID, Operator: gDto.FilterOperatorEq, Table: model.TableName},
			},
		},
		conflict.StatusFilter(model.LiveStatuses()),
	)

	params := gDto.QueryParams{SortBy: model.TableName + "." + model.FieldStartTime, SortDir: gDto.SortDirAsc}

	appointments, err := s.repo.GetAll(ctx, params, filter)
	if err != nil {
		log.Error().Err(err).Str("caller", caller.ID).Msg("failed to load appointments for export")

		return res, fmt.Errorf("failed to load appointments for export: %w", err)
	}

	now := s.clock.Now()
	fileName := fmt.Sprintf("appointments-%s.ics", now.UTC().Format(icsTimeLayout))

	url, err := s.storage.UploadFileBytes(ctx, constant.Empty, path.Join(exportDirectory, caller.ID), fileName,
		constant.ContentTypeCalendar, RenderCalendar(appointments, now))
	if err != nil {
		log.Error().Err(err).Str("caller", caller.ID).Msg("failed to upload appointment export")

		return res, fmt.Errorf("failed to upload appointment export: %w", err)
	}

	res.URL = url
	res.Total = len(appointments)

	return res, nil
}

// RenderCalendar writes appointments as a VCALENDAR document.
func RenderCalendar(appointments []model.Appointment, stamp time.Time) []byte {
	var b strings.Builder

	line := func(format string, args ...any) {
		b.WriteString(fmt.Sprintf(format, args...))
		b.WriteString(icsLineBreak)
	}

	line("BEGIN:VCALENDAR")
	line("VERSION:2.0")
	line("PRODID:-//medsys//appointments//EN")
	line("CALSCALE:GREGORIAN")

	for _, appt := range appointments {
		line("BEGIN:VEVENT")
		line("UID:%s@medsys", appt.ID)
		line("DTSTAMP:%s", stamp.UTC().Format(icsTimeLayout))
		line("DTSTART:%s", appt.StartTime.UTC().Format(icsTimeLayout))
		line("DTEND:%s", appt.EndTime.UTC().Format(icsTimeLayout))
		line("SUMMARY:Appointment (%s)", appt.Status)

		if appt.Reason != nil {
			line("DESCRIPTION:%s", icsEscaper.Replace(*appt.Reason))
		}

		if appt.Status == model.StatusAccepted {
			line("STATUS:CONFIRMED")
		} else {
			line("STATUS:TENTATIVE")
		}

		line("END:VEVENT")
	}

	line("END:VCALENDAR")

	return []byte(b.String())
}
