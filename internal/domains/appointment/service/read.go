package service

import (
	"context"
	"fmt"
	"medsys/internal/domains/appointment/conflict"
	"medsys/internal/domains/appointment/model"
	"medsys/internal/domains/appointment/model/dto"
	"medsys/shared"
	"medsys/shared/constant"
	gDto "medsys/shared/dto"
	"medsys/shared/failure"
	"medsys/shared/timezone"
	"slices"

	"github.com/rs/zerolog/log"
)

var sortableFields = []string{model.FieldStartTime, model.FieldEndTime, model.FieldStatus, constant.FieldCreatedAt}

func (s *serviceImpl) Get(ctx context.Context, caller model.Caller, id string) (res dto.AppointmentResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Get")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	found, err := s.load(ctx, id)
	if err != nil {
		return res, err
	}

	if caller.Role != constant.RoleAdmin && caller.ID != found.PatientID && caller.ID != found.DoctorID {
		return res, failure.Forbidden(msgViewOwn) // nolint:wrapcheck
	}

	return found, nil
}

// load reads one appointment through the cache. Only records loaded from the
// store are cached, whoever asked for them.
func (s *serviceImpl) load(ctx context.Context, id string) (dto.AppointmentResponse, error) {
	var cached dto.AppointmentResponse

	cacheKey := shared.BuildCacheKey(cacheGetAppt, id)

	if err := s.cache.Get(ctx, cacheKey, &cached); err == nil && cached.ID != constant.Empty {
		return cached, nil
	}

	appt, err := s.repo.Load(ctx, id)
	if err != nil {
		return dto.AppointmentResponse{}, err //nolint:wrapcheck
	}

	loaded := dto.AppointmentResponse{}
	loaded.FromModel(appt)

	shared.SaveCacheAsync(ctx, s.cache, cacheKey, loaded, s.cfg.Cache.TTL)

	return loaded, nil
}

func (s *serviceImpl) ListMine(ctx context.Context, caller model.Caller, params gDto.QueryParams, filter dto.ListFilter) (res dto.GetAppointmentsResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".ListMine")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	group, err := buildFilter(model.PartyPatient, caller.ID, filter)
	if err != nil {
		return res, err
	}

	return s.list(ctx, params, group)
}

func (s *serviceImpl) ListForDoctor(ctx context.Context, caller model.Caller, params gDto.QueryParams, filter dto.ListFilter) (res dto.GetAppointmentsResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".ListForDoctor")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	if caller.Role != constant.RoleDoctor {
		return res, failure.Forbidden(msgOnlyDoctors) // nolint:wrapcheck
	}

	group, err := buildFilter(model.PartyDoctor, caller.ID, filter)
	if err != nil {
		return res, err
	}

	return s.list(ctx, params, group)
}

func (s *serviceImpl) ListAll(ctx context.Context, params gDto.QueryParams, filter dto.ListFilter) (res dto.GetAppointmentsResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".ListAll")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	group, err := buildFilter("", "", filter)
	if err != nil {
		return res, err
	}

	return s.list(ctx, params, group)
}

func (s *serviceImpl) list(ctx context.Context, params gDto.QueryParams, filter gDto.FilterGroup) (res dto.GetAppointmentsResponse, err error) {
	if !slices.Contains(sortableFields, params.SortBy) {
		params.SortBy = model.FieldStartTime
	}

	if params.SortDir == "" {
		params.SortDir = gDto.SortDirAsc
	}

	params.SortBy = model.TableName + "." + params.SortBy

	cacheKey := shared.BuildCacheKeyWithQuery(cacheListAppt, params, filter)

	if err = s.cache.Get(ctx, cacheKey, &res); err == nil {
		log.Debug().Str("cacheKey", cacheKey).Msg("cache hit for appointments")

		return res, nil
	}

	total, err := s.count(ctx, filter)
	if err != nil {
		return res, err
	}

	models, err := s.repo.GetAll(ctx, params, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to get appointments")

		return res, fmt.Errorf("failed to get appointments: %w", err)
	}

	res.FromModels(models, total, params.Limit)

	shared.SaveCacheAsync(ctx, s.cache, cacheKey, res, s.cfg.Cache.TTL)

	return res, nil
}

func (s *serviceImpl) count(ctx context.Context, filter gDto.FilterGroup) (res int, err error) {
	cacheKey := shared.BuildCacheKeyWithQuery(cacheCountAppt, gDto.QueryParams{}, filter)

	if err = s.cache.Get(ctx, cacheKey, &res); err == nil {
		return res, nil
	}

	res, err = s.repo.Count(ctx, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to count appointments")

		return res, fmt.Errorf("failed to count appointments: %w", err)
	}

	shared.SaveCacheAsync(ctx, s.cache, cacheKey, res, s.cfg.Cache.TTL)

	return res, nil
}

// buildFilter narrows reads to one party, when given, plus the optional status and start range.
func buildFilter(party model.Party, partyID string, filter dto.ListFilter) (gDto.FilterGroup, error) {
	group := gDto.And()

	if party != "" {
		group.Filters = append(group.Filters, gDto.Filter{
			Field:    party.Column(),
			Value:    partyID,
			Operator: gDto.FilterOperatorEq,
			Table:    model.TableName,
		})
	}

	if filter.Status != "" {
		status, ok := model.ParseStatus(filter.Status)
		if !ok {
			return group, failure.BadRequestFromString(fmt.Sprintf("Invalid status filter: %s", filter.Status)) // nolint:wrapcheck
		}

		group.Filters = append(group.Filters, conflict.StatusFilter([]model.Status{status}))
	}

	if filter.From != "" {
		from, err := timezone.Parse(constant.DateFormat, filter.From)
		if err != nil {
			return group, failure.BadRequestFromString(fmt.Sprintf("Invalid from filter: %s", filter.From)) // nolint:wrapcheck
		}

		group.Filters = append(group.Filters, gDto.Filter{
			ArgName:  "range_from",
			Field:    model.FieldStartTime,
			Value:    from,
			Operator: gDto.FilterOperatorGreaterEq,
			Table:    model.TableName,
		})
	}

	if filter.To != "" {
		to, err := timezone.Parse(constant.DateFormat, filter.To)
		if err != nil {
			return group, failure.BadRequestFromString(fmt.Sprintf("Invalid to filter: %s", filter.To)) // nolint:wrapcheck
		}

		group.Filters = append(group.Filters, gDto.Filter{
			ArgName:  "range_to",
			Field:    model.FieldStartTime,
			Value:    to,
			Operator: gDto.FilterOperatorLessEq,
			Table:    model.TableName,
		})
	}

	return group, nil
}
