package repository

import (
	"fmt"
	"reflect"
	"slices"
	"strings"
)

type column struct {
	name  string
	table string
	alias string
}

func (c column) qualified() string {
	return c.table + "." + c.name
}

func (c column) selectExpr() string {
	if c.alias != "" {
		return fmt.Sprintf("%s AS %s", c.qualified(), c.alias)
	}

	return c.qualified()
}

// scanColumns walks the db tags of a model, descending into embedded structs
// such as model.Metadata. A table tag points a field at a joined table; only
// fields of the model's own table are insertable.
func scanColumns(table string, typ reflect.Type) (columns []column, insertable []string) {
	for i := range typ.NumField() {
		field := typ.Field(i)

		if field.Anonymous && field.Type.Kind() == reflect.Struct {
			nested, nestedInsert := scanColumns(table, field.Type)
			columns = append(columns, nested...)
			insertable = append(insertable, nestedInsert...)

			continue
		}

		dbTag := field.Tag.Get("db")
		if dbTag == "" || dbTag == "-" {
			continue
		}

		owner := field.Tag.Get("table")
		if owner == "" {
			owner = table
		}

		if owner == table {
			insertable = append(insertable, dbTag)
		}

		if source := field.Tag.Get("column"); source != "" {
			columns = append(columns, column{name: source, table: owner, alias: dbTag})

			continue
		}

		columns = append(columns, column{name: dbTag, table: owner})
	}

	return columns, insertable
}

// SelectColumns renders the select list, optionally narrowed to names.
func (repo *Repository[T]) SelectColumns(names ...string) string {
	exprs := make([]string, 0, len(repo.columns))

	for _, col := range repo.columns {
		if len(names) > 0 && !slices.Contains(names, col.name) {
			continue
		}

		exprs = append(exprs, col.selectExpr())
	}

	return strings.Join(exprs, ", ")
}

// OrderBy renders an ORDER BY for a known column, qualified or bare, and
// returns "" for anything else so user input never reaches the SQL text.
func (repo *Repository[T]) OrderBy(sortBy, sortDir string) string {
	dir := strings.ToUpper(sortDir)
	if dir != "ASC" && dir != "DESC" {
		return ""
	}

	idx := slices.IndexFunc(repo.columns, func(col column) bool {
		return sortBy == col.qualified() || (sortBy == col.name && col.table == repo.table)
	})
	if idx == -1 {
		return ""
	}

	return fmt.Sprintf("ORDER BY %s %s", repo.columns[idx].qualified(), dir)
}
