// Package query builds SQL statements from flat URL query parameters. It is
// the explicit replacement for the implicit query rewriting the rest of the
// app must never do: filtering, sorting, projection and pagination are
// composed stage by stage at the call site and executed by the caller, never
// injected invisibly.
package query

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/siddharthav19/ToursProj/internal/apperr"
)

// ErrBadOperator reports an unknown comparison operator in a bracketed
// filter key such as price[between]=100. It maps to HTTP 400 at the boundary.
var ErrBadOperator = fmt.Errorf("%w: unknown filter operator", apperr.ErrBadInput)

// reserved query keys consumed by the non-filter stages.
var reserved = map[string]bool{"sort": true, "page": true, "limit": true, "fields": true}

// operators maps the bracket operator words accepted in filter keys to
// their SQL comparison form.
var operators = map[string]string{
	"gt":  ">",
	"gte": ">=",
	"lt":  "<",
	"lte": "<=",
}

// operatorOrder fixes the clause order when several operators constrain the
// same field, keeping generated SQL deterministic.
var operatorOrder = []string{"gt", "gte", "lt", "lte"}

// Field declares one queryable attribute of a collection: the name clients
// use in query strings and the column it maps to. Internal fields are
// selectable but excluded from the default projection.
type Field struct {
	Name     string
	Column   string
	Internal bool
}

// Schema is the whitelist of fields a collection exposes to the query
// builder. Anything not declared here is silently ignored, which keeps
// arbitrary client input away from the generated SQL.
type Schema struct {
	Fields []Field
}

func (s Schema) column(name string) (string, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f.Column, true
		}
	}
	return "", false
}

// Features accumulates the clauses of one deferred SELECT. Stages must run
// in the order Filter, Sort, Select, Paginate; each returns the receiver so
// calls chain. Build produces the final statement without executing it.
type Features struct {
	schema Schema
	params url.Values

	where   []string
	args    []any
	orderBy []string
	columns []string
	limited bool
	limit   int
	offset  int
	err     error
}

// New returns a Features over the given parameter map and field whitelist.
func New(params url.Values, schema Schema) *Features {
	return &Features{schema: schema, params: params}
}

// Where deliberately adds a fixed condition, e.g. hiding soft-deleted users
// or secret tours. Placeholder args follow the condition.
func (f *Features) Where(cond string, args ...any) *Features {
	f.where = append(f.where, cond)
	f.args = append(f.args, args...)
	return f
}

// Filter turns the non-reserved parameters into WHERE clauses. Plain keys
// become equality constraints; keys of the form field[op] use the gt, gte,
// lt and lte comparison operators. Unknown fields are skipped, unknown
// operator words poison the builder with ErrBadOperator. Empty input adds
// no constraint.
func (f *Features) Filter() *Features {
	// Walk the whitelist rather than the raw map so clause order is stable.
	for _, fld := range f.schema.Fields {
		if vs, ok := f.params[fld.Name]; ok && len(vs) > 0 && vs[0] != "" {
			f.where = append(f.where, fld.Column+" = ?")
			f.args = append(f.args, vs[0])
		}
		for _, word := range operatorOrder {
			key := fld.Name + "[" + word + "]"
			sym := operators[word]
			if vs, ok := f.params[key]; ok && len(vs) > 0 && vs[0] != "" {
				f.where = append(f.where, fld.Column+" "+sym+" ?")
				f.args = append(f.args, vs[0])
			}
		}
	}
	// A bracketed key with an operator word outside the known set is a
	// caller input error, not something to drop on the floor.
	for key := range f.params {
		if reserved[key] {
			continue
		}
		open := strings.IndexByte(key, '[')
		if open < 0 || !strings.HasSuffix(key, "]") {
			continue
		}
		word := key[open+1 : len(key)-1]
		if _, ok := operators[word]; !ok {
			f.err = fmt.Errorf("%w %q", ErrBadOperator, word)
		}
	}
	return f
}

// Sort parses the comma-separated sort parameter; a leading '-' on a field
// name means descending. Later fields break ties of earlier ones. Without a
// sort parameter rows come back ascending by id so pagination stays
// deterministic.
func (f *Features) Sort() *Features {
	raw := f.params.Get("sort")
	if raw == "" {
		f.orderBy = []string{"id ASC"}
		return f
	}
	for _, name := range strings.Split(raw, ",") {
		name = strings.TrimSpace(name)
		dir := "ASC"
		if strings.HasPrefix(name, "-") {
			dir = "DESC"
			name = name[1:]
		}
		if col, ok := f.schema.column(name); ok {
			f.orderBy = append(f.orderBy, col+" "+dir)
		}
	}
	if len(f.orderBy) == 0 {
		f.orderBy = []string{"id ASC"}
	}
	return f
}

// Select restricts the projection to the comma-separated fields parameter.
// The id column is always kept so rows stay addressable. Without the
// parameter every whitelisted column except internal ones (the row version)
// is returned.
func (f *Features) Select() *Features {
	raw := f.params.Get("fields")
	if raw == "" {
		f.columns = f.defaultColumns()
		return f
	}
	cols := []string{"id"}
	for _, name := range strings.Split(raw, ",") {
		name = strings.TrimSpace(name)
		if name == "" || name == "id" {
			continue
		}
		if col, ok := f.schema.column(name); ok {
			cols = append(cols, col)
		}
	}
	if len(cols) == 1 {
		cols = f.defaultColumns()
	}
	f.columns = cols
	return f
}

func (f *Features) defaultColumns() []string {
	cols := make([]string, 0, len(f.schema.Fields))
	for _, fld := range f.schema.Fields {
		if fld.Internal {
			continue
		}
		cols = append(cols, fld.Column)
	}
	return cols
}

// Paginate reads page and limit, defaulting to page 1 and 100 rows.
// Non-numeric or out-of-range values fall back to the defaults instead of
// failing. The offset skips (page-1)*limit rows.
func (f *Features) Paginate() *Features {
	page, err := strconv.Atoi(f.params.Get("page"))
	if err != nil || page < 1 {
		page = 1
	}
	limit, err := strconv.Atoi(f.params.Get("limit"))
	if err != nil || limit < 1 {
		limit = 100
	}
	f.limited = true
	f.limit = limit
	f.offset = (page - 1) * limit
	return f
}

// Limit and Offset expose the pagination state for callers that page by hand.
func (f *Features) Limit() int  { return f.limit }
func (f *Features) Offset() int { return f.offset }

// Columns returns the projected column list in SELECT order.
func (f *Features) Columns() []string {
	if len(f.columns) == 0 {
		return f.defaultColumns()
	}
	return f.columns
}

// Build assembles the deferred statement for the given table together with
// its placeholder arguments. It returns the first error recorded by any
// stage instead of emitting SQL from poisoned input.
func (f *Features) Build(table string) (string, []any, error) {
	if f.err != nil {
		return "", nil, f.err
	}
	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(strings.Join(f.Columns(), ", "))
	b.WriteString(" FROM ")
	b.WriteString(table)
	if len(f.where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(f.where, " AND "))
	}
	if len(f.orderBy) > 0 {
		b.WriteString(" ORDER BY ")
		b.WriteString(strings.Join(f.orderBy, ", "))
	}
	args := append([]any{}, f.args...)
	if f.limited {
		b.WriteString(" LIMIT ? OFFSET ?")
		args = append(args, f.limit, f.offset)
	}
	return b.String(), args, nil
}
