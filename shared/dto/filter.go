package dto

import (
	"fmt"
	"maps"
	"reflect"
	"strings"
)

const (
	FilterOperatorEq        = "eq"
	FilterOperatorLike      = "like"
	FilterOperatorIn        = "in"
	FilterOperatorNotEq     = "not_eq"
	FilterOperatorLess      = "less"
	FilterOperatorLessEq    = "less_eq"
	FilterOperatorGreater   = "greater"
	FilterOperatorGreaterEq = "greater_eq"
	FilterIsNotNull         = "is_not_null"
	FilterIsNull            = "is_null"
)

const (
	FilterGroupOperatorAnd = "AND"
	FilterGroupOperatorOr  = "OR"
)

var comparisons = map[string]string{
	FilterOperatorEq:        "=",
	FilterOperatorNotEq:     "!=",
	FilterOperatorLess:      "<",
	FilterOperatorLessEq:    "<=",
	FilterOperatorGreater:   ">",
	FilterOperatorGreaterEq: ">=",
}

// Filter is one predicate on a column. Values are always bound as named
// parameters; ArgName disambiguates two predicates on the same column.
type Filter struct {
	ArgName  string
	Field    string
	Value    any
	Operator string `validate:"required,oneof=eq like in not_eq less less_eq greater greater_eq is_null is_not_null"`
	Table    string
}

func (f *Filter) column() string {
	if f.Table == "" {
		return f.Field
	}

	return f.Table + "." + f.Field
}

func (f *Filter) argName() string {
	if f.ArgName == "" {
		return f.Field
	}

	return f.ArgName
}

// GetWhereClause renders the predicate. Unknown operators render nothing.
func (f *Filter) GetWhereClause() (string, map[string]any) {
	args := map[string]any{}
	column, name := f.column(), f.argName()

	if op, ok := comparisons[f.Operator]; ok {
		args[name] = f.Value

		return fmt.Sprintf("%s %s :%s", column, op, name), args
	}

	switch f.Operator {
	case FilterOperatorLike:
		args[name] = fmt.Sprintf("%%%v%%", f.Value)

		return fmt.Sprintf("LOWER(%s) LIKE LOWER(:%s)", column, name), args
	case FilterOperatorIn:
		return f.inClause(column, name, args)
	case FilterIsNotNull:
		return column + " IS NOT NULL", args
	case FilterIsNull:
		return column + " IS NULL", args
	default:
		return "", args
	}
}

// inClause expands a slice into one parameter per element (name_0, name_1, ...).
// An empty slice matches nothing.
func (f *Filter) inClause(column, name string, args map[string]any) (string, map[string]any) {
	val := reflect.ValueOf(f.Value)
	if !val.IsValid() || (val.Kind() != reflect.Slice && val.Kind() != reflect.Array) {
		args[name] = f.Value

		return fmt.Sprintf("%s IN (:%s)", column, name), args
	}

	if val.Len() == 0 {
		return "FALSE", args
	}

	placeholders := make([]string, val.Len())
	for i := range val.Len() {
		key := fmt.Sprintf("%s_%d", name, i)
		args[key] = val.Index(i).Interface()
		placeholders[i] = ":" + key
	}

	return fmt.Sprintf("%s IN (%s)", column, strings.Join(placeholders, ", ")), args
}

// FilterGroup joins Filters and nested FilterGroups with one operator.
type FilterGroup struct {
	Filters  []any
	Operator string
}

func And(filters ...any) FilterGroup {
	return FilterGroup{Operator: FilterGroupOperatorAnd, Filters: filters}
}

func Or(filters ...any) FilterGroup {
	return FilterGroup{Operator: FilterGroupOperatorOr, Filters: filters}
}

// GetWhereClause renders the group in parentheses, skipping members that
// render empty. An empty group renders "".
func (f *FilterGroup) GetWhereClause() (string, map[string]any) {
	args := map[string]any{}
	parts := make([]string, 0, len(f.Filters))

	for _, member := range f.Filters {
		var (
			where string
			arg   map[string]any
		)

		switch m := member.(type) {
		case Filter:
			where, arg = m.GetWhereClause()
		case FilterGroup:
			where, arg = m.GetWhereClause()
		default:
			continue
		}

		if where == "" {
			continue
		}

		parts = append(parts, where)
		maps.Copy(args, arg)
	}

	if len(parts) == 0 {
		return "", args
	}

	operator := f.Operator
	if operator == "" {
		operator = FilterGroupOperatorAnd
	}

	return "(" + strings.Join(parts, " "+operator+" ") + ")", args
}
