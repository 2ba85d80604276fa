package core

import (
	"fmt"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/huangsam/sca/internal/contract"
	"github.com/huangsam/sca/schema"
	"github.com/pkg/errors"
)

// Query is the logical request handed to the translator.
// Empty filter values are ignored.
type Query struct {
	Filters map[string]string
	Offset  int
	Limit   int
	Sort    []schema.SortField
	Search  *schema.Search
	Select  []string
	Q       string
}

// NewQuery returns a query with the default page size.
func NewQuery() Query {
	return Query{Limit: schema.DefaultDatabaseLimit}
}

// Statement is a query bound for one agent database.
type Statement struct {
	Table *FieldTable

	SQL       string
	Args      []any
	CountSQL  string // empty when the total is computed in memory
	CountArgs []any

	Keys        []string // public keys kept in every shaped row, in output order
	Collections []string // nested collections attached to every shaped row

	// In-memory window, used when joins multiply rows.
	InMemory bool
	Offset   int
	Limit    int
	Sort     []schema.SortField
	Search   *schema.Search
}

// validatePage checks the pagination bounds shared by every listing.
func validatePage(offset, limit int) error {
	switch {
	case offset < 0:
		return errors.Wrapf(schema.ErrInvalidOffset, "offset %d", offset)
	case limit <= 0:
		return errors.Wrapf(schema.ErrLimitZero, "limit %d", limit)
	case limit > schema.MaxDatabaseLimit:
		return errors.Wrapf(schema.ErrLimitTooHigh, "limit %d, maximum %d", limit, schema.MaxDatabaseLimit)
	}
	return nil
}

// resolveSelect returns the scalar keys and nested collections requested by sel.
// An empty selection means every declared field and every collection.
func resolveSelect(table *FieldTable, sel []string) ([]string, []string, error) {
	if len(sel) == 0 {
		var keys []string
		for _, f := range table.TopLevel() {
			keys = append(keys, f.Name)
		}
		return keys, slices.Clone(table.Collections), nil
	}
	var keys, collections []string
	for _, name := range sel {
		name = strings.TrimSpace(name)
		switch {
		case table.HasCollection(name):
			if !slices.Contains(collections, name) {
				collections = append(collections, name)
			}
		default:
			f, ok := table.Lookup(name)
			if !ok {
				return nil, nil, errors.Wrapf(schema.ErrUnknownField, "select %q for %s", name, table.Entity)
			}
			if f.Collection != "" {
				if !slices.Contains(collections, f.Collection) {
					collections = append(collections, f.Collection)
				}
				continue
			}
			if !slices.Contains(keys, f.Name) {
				keys = append(keys, f.Name)
			}
		}
	}
	return keys, collections, nil
}

// resolveSort checks every sort key against the top-level fields of the table.
func resolveSort(table *FieldTable, fields []schema.SortField) ([]Field, error) {
	out := make([]Field, 0, len(fields))
	for _, s := range fields {
		f, ok := table.Lookup(s.Field)
		if !ok || f.Collection != "" {
			return nil, errors.Wrapf(schema.ErrUnknownField, "sort %q for %s", s.Field, table.Entity)
		}
		out = append(out, f)
	}
	return out, nil
}

// whereBuilder accumulates AND-ed predicates and their arguments.
type whereBuilder struct {
	dialect contract.Dialect
	table   *FieldTable
	preds   []string
	args    []any
}

func (w *whereBuilder) add(pred string, args ...any) {
	w.preds = append(w.preds, pred)
	w.args = append(w.args, args...)
}

// filters adds one equality predicate per non-empty filter, in name order.
func (w *whereBuilder) filters(filters map[string]string) error {
	names := make([]string, 0, len(filters))
	for name, value := range filters {
		if value != "" {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	for _, name := range names {
		f, ok := w.table.Lookup(name)
		if !ok || f.Collection != "" {
			return errors.Wrapf(schema.ErrUnknownField, "filter %q for %s", name, w.table.Entity)
		}
		arg, err := bindValue(f, filters[name])
		if err != nil {
			return err
		}
		w.add(w.dialect.Column(f.Table, f.Column)+" = ?", arg)
	}
	return nil
}

// search adds a substring match over every searchable top-level field.
func (w *whereBuilder) search(s *schema.Search) {
	if s == nil || s.Value == "" {
		return
	}
	pattern := contract.LikePattern(s.Value)
	var ors []string
	var args []any
	for _, f := range w.table.TopLevel() {
		if !f.Searchable {
			continue
		}
		ors = append(ors, w.dialect.Contains(w.dialect.Column(f.Table, f.Column)))
		args = append(args, pattern)
	}
	pred := "(" + strings.Join(ors, " OR ") + ")"
	if s.Negation {
		pred = "NOT " + pred
	}
	w.add(pred, args...)
}

// q adds the parsed q expression. Nested names are only allowed when the table has collections.
func (w *whereBuilder) q(expr string) error {
	node, err := parseQ(expr)
	if err != nil || node == nil {
		return err
	}
	for _, name := range collectFields(node) {
		if strings.Contains(name, ".") && len(w.table.Collections) == 0 {
			return errors.Wrapf(schema.ErrUnknownField, "q references nested field %q on %s", name, w.table.Entity)
		}
	}
	r := &qRenderer{dialect: w.dialect, table: w.table}
	sql, err := node.render(r)
	if err != nil {
		return err
	}
	w.add(sql, r.args...)
	return nil
}

func (w *whereBuilder) String() string {
	if len(w.preds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.preds, " AND ")
}

// bindValue converts a textual value to the argument type of the field.
func bindValue(f Field, value string) (any, error) {
	if !f.Numeric {
		return value, nil
	}
	n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil {
		return nil, errors.Wrapf(schema.ErrInvalidQuery, "%s expects an integer, got %q", f.Name, value)
	}
	return n, nil
}

// projection renders "col AS alias" for every field.
func projection(d contract.Dialect, fields []Field) string {
	cols := make([]string, len(fields))
	for i, f := range fields {
		cols[i] = fmt.Sprintf("%s AS %s", d.Column(f.Table, f.Column), d.Quote(f.Alias()))
	}
	return strings.Join(cols, ", ")
}

// BuildPolicyStatement translates a policy query. Filtering, sorting and paging run in SQL.
func BuildPolicyStatement(d contract.Dialect, q Query) (*Statement, error) {
	table := PolicyTable
	if err := validatePage(q.Offset, q.Limit); err != nil {
		return nil, err
	}
	keys, _, err := resolveSelect(table, q.Select)
	if err != nil {
		return nil, err
	}
	sortFields, err := resolveSort(table, q.Sort)
	if err != nil {
		return nil, err
	}

	w := &whereBuilder{dialect: d, table: table}
	if err := w.filters(q.Filters); err != nil {
		return nil, err
	}
	w.search(q.Search)
	if err := w.q(q.Q); err != nil {
		return nil, err
	}

	fields := make([]Field, 0, len(keys))
	for _, k := range keys {
		f, _ := table.Lookup(k)
		fields = append(fields, f)
	}

	var sb strings.Builder
	sb.WriteString("SELECT " + projection(d, fields) + " FROM " + table.From + w.String())
	if len(sortFields) > 0 {
		order := make([]string, len(sortFields))
		for i, f := range sortFields {
			dir := "ASC"
			if q.Sort[i].Desc {
				dir = "DESC"
			}
			order[i] = d.Column(f.Table, f.Column) + " " + dir
		}
		sb.WriteString(" ORDER BY " + strings.Join(order, ", "))
	}
	sb.WriteString(" LIMIT ? OFFSET ?")

	args := append(slices.Clone(w.args), q.Limit, q.Offset)
	return &Statement{
		Table:     table,
		SQL:       d.Rebind(sb.String()),
		Args:      args,
		CountSQL:  d.Rebind("SELECT COUNT(*) AS " + d.Quote("total") + " FROM " + table.From + w.String()),
		CountArgs: slices.Clone(w.args),
		Keys:      keys,
		Offset:    q.Offset,
		Limit:     q.Limit,
	}, nil
}

// BuildCheckStatement translates a check query for one policy.
// The joined rows are grouped per check before search, sort and paging run in memory.
func BuildCheckStatement(d contract.Dialect, policyID string, q Query) (*Statement, error) {
	table := CheckTable
	if err := validatePage(q.Offset, q.Limit); err != nil {
		return nil, err
	}
	keys, collections, err := resolveSelect(table, q.Select)
	if err != nil {
		return nil, err
	}
	if _, err := resolveSort(table, q.Sort); err != nil {
		return nil, err
	}

	w := &whereBuilder{dialect: d, table: table}
	policy, _ := table.Lookup("policy_id")
	id, _ := table.Lookup(table.IDField)
	w.add(d.Column(policy.Table, policy.Column)+" = ?", policyID)
	if err := w.filters(q.Filters); err != nil {
		return nil, err
	}
	if err := w.q(q.Q); err != nil {
		return nil, err
	}

	return &Statement{
		Table:       table,
		SQL:         d.Rebind("SELECT " + projection(d, table.Fields) + " FROM " + table.From + w.String() + " ORDER BY " + d.Column(id.Table, id.Column)),
		Args:        w.args,
		Keys:        keys,
		Collections: collections,
		InMemory:    true,
		Offset:      q.Offset,
		Limit:       q.Limit,
		Sort:        q.Sort,
		Search:      q.Search,
	}, nil
}
