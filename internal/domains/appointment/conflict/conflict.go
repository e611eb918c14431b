// Package conflict holds the half-open overlap rule. Two intervals [s1,e1) and
// [s2,e2) overlap when s1 < e2 and e1 > s2, so back-to-back bookings never do.
// The validation checks and the capacity policies count overlaps through Detector.
package conflict

//go:generate go run go.uber.org/mock/mockgen -source=./conflict.go -destination=../mocks/conflict_mock.go -package=mocks

import (
	"context"
	"fmt"
	"medsys/internal/domains/appointment/model"
	gDto "medsys/shared/dto"
	"time"
)

const (
	argStart    = "overlap_start"
	argEnd      = "overlap_end"
	argPartyID  = "overlap_party_id"
	argStatuses = "statuses"
)

// OverlapFilter selects one party's rows in statuses that overlap [start,end).
func OverlapFilter(party model.Party, partyID string, start, end time.Time, statuses []model.Status) gDto.FilterGroup {
	return gDto.And(
		gDto.Filter{
			ArgName:  argPartyID,
			Field:    party.Column(),
			Value:    partyID,
			Operator: gDto.FilterOperatorEq,
			Table:    model.TableName,
		},
		gDto.Filter{
			ArgName:  argEnd,
			Field:    model.FieldStartTime,
			Value:    end,
			Operator: gDto.FilterOperatorLess,
			Table:    model.TableName,
		},
		gDto.Filter{
			ArgName:  argStart,
			Field:    model.FieldEndTime,
			Value:    start,
			Operator: gDto.FilterOperatorGreater,
			Table:    model.TableName,
		},
		StatusFilter(statuses),
	)
}

// StatusFilter restricts rows to the given statuses.
func StatusFilter(statuses []model.Status) gDto.Filter {
	values := make([]string, len(statuses))
	for i, status := range statuses {
		values[i] = string(status)
	}

	return gDto.Filter{
		ArgName:  argStatuses,
		Field:    model.FieldStatus,
		Value:    values,
		Operator: gDto.FilterOperatorIn,
		Table:    model.TableName,
	}
}

// Counter is the store capability the detector needs.
type Counter interface {
	CountOverlapping(ctx context.Context, party model.Party, partyID string, start, end time.Time, statuses []model.Status) (int, error)
}

// Detector counts live appointments of a party overlapping an interval.
type Detector struct {
	counter Counter
}

func NewDetector(counter Counter) *Detector {
	return &Detector{counter: counter}
}

// Count returns how many live appointments of the party overlap [start,end).
// Any value above zero is a conflict.
func (d *Detector) Count(ctx context.Context, party model.Party, partyID string, start, end time.Time) (int, error) {
	count, err := d.counter.CountOverlapping(ctx, party, partyID, start, end, model.LiveStatuses())
	if err != nil {
		return 0, fmt.Errorf("failed to count overlapping %s appointments: %w", party, err)
	}

	return count, nil
}
