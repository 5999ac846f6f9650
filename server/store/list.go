package store

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"taskflow/server/models"
	"taskflow/server/query"
)

// listSpec describes a paginated listing. Placeholders are written as ? and
// rebound for the driver.
type listSpec struct {
	columns string
	from    string
	// sort maps a sort id to a column expression.
	sort map[string]string
	// filters maps a filter key to a column expression compared as text.
	filters map[string]string
	search  []string
	order   string
}

// Schema returns what the listing accepts as a query.Schema.
func (l listSpec) Schema() query.Schema {
	var s query.Schema
	for id := range l.sort {
		s.Sortable = append(s.Sortable, id)
	}
	for key := range l.filters {
		s.Filters = append(s.Filters, key)
	}
	slices.Sort(s.Sortable)
	slices.Sort(s.Filters)
	return s
}

type cond struct {
	expr string
	args []any
}

func where(expr string, args ...any) cond { return cond{expr: expr, args: args} }

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (l listSpec) build(d query.Descriptor, fixed []cond) (whereSQL, orderSQL string, args []any) {
	conds := slices.Clone(fixed)
	keys := make([]string, 0, len(d.Filters))
	for key := range d.Filters {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	for _, key := range keys {
		col, ok := l.filters[key]
		vals := d.Filters[key]
		if !ok || len(vals) == 0 {
			continue
		}
		conds = append(conds, where(fmt.Sprintf("(%s)::text = any(?)", col), vals))
	}
	if d.SearchTerm != "" && len(l.search) > 0 {
		pattern := "%" + likeEscaper.Replace(d.SearchTerm) + "%"
		parts := make([]string, len(l.search))
		sargs := make([]any, len(l.search))
		for i, col := range l.search {
			parts[i] = col + " ilike ?"
			sargs[i] = pattern
		}
		conds = append(conds, where("("+strings.Join(parts, " or ")+")", sargs...))
	}

	exprs := make([]string, 0, len(conds))
	for _, c := range conds {
		exprs = append(exprs, c.expr)
		args = append(args, c.args...)
	}
	if len(exprs) > 0 {
		whereSQL = " where " + strings.Join(exprs, " and ")
	}

	order := []string{}
	for _, f := range d.Sort {
		col, ok := l.sort[f.ID]
		if !ok {
			continue
		}
		dir := "asc"
		if f.Desc {
			dir = "desc"
		}
		order = append(order, col+" "+dir)
	}
	order = append(order, l.order)
	orderSQL = " order by " + strings.Join(order, ", ")
	return whereSQL, orderSQL, args
}

// list runs the count and page queries for spec with d applied on top of the
// fixed conditions.
func list[T any](ctx context.Context, h handler, spec listSpec, d query.Descriptor, fixed ...cond) (models.Page[T], error) {
	whereSQL, orderSQL, args := spec.build(d, fixed)

	var total int64
	if err := h.GetContext(ctx, &total, h.Rebind("select count(*) from "+spec.from+whereSQL), args...); err != nil {
		return models.Page[T]{}, fmt.Errorf("count: %w", err)
	}

	items := []T{}
	q := "select " + spec.columns + " from " + spec.from + whereSQL + orderSQL + " limit ? offset ?"
	if err := h.SelectContext(ctx, &items, h.Rebind(q), append(args, d.PageSize, d.Offset())...); err != nil {
		return models.Page[T]{}, err
	}
	return models.NewPage(items, total, d.PageNumber, d.PageSize), nil
}
