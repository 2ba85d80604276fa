package core

import (
	"cmp"
	"slices"
	"strings"

	"github.com/huangsam/sca/schema"
)

// unalias restores the bare column name from whatever the query engine reported:
// quoted identifiers, table prefixes and "expr AS alias" forms.
func unalias(name string) string {
	name = strings.TrimSpace(name)
	if i := strings.LastIndex(strings.ToLower(name), " as "); i >= 0 {
		name = name[i+4:]
	}
	name = strings.NewReplacer("`", "", `"`, "").Replace(strings.TrimSpace(name))
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	return name
}

// shapeRows renames columns back to public field names and strips null values.
// Columns that match no declared field keep their un-aliased name.
func shapeRows(table *FieldTable, rows []schema.Row) []schema.Row {
	out := make([]schema.Row, 0, len(rows))
	for _, raw := range rows {
		row := make(schema.Row, len(raw))
		for k, v := range raw {
			if v == nil {
				continue
			}
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			name := unalias(k)
			if f, ok := table.FromAlias(name); ok {
				name = f.Name
			}
			row[name] = v
		}
		out = append(out, row)
	}
	return out
}

// groupRows folds joined rows into one record per id, in order of first appearance.
// Nested entries are collected per collection and deduplicated; a collection is only
// attached when it has at least one entry.
func groupRows(table *FieldTable, rows []schema.Row) []schema.Row {
	var order []string
	records := map[string]schema.Row{}
	seen := map[string]map[string]struct{}{}

	for _, row := range rows {
		id := schema.AsString(row[table.IDField])
		rec, ok := records[id]
		if !ok {
			rec = schema.Row{}
			for _, f := range table.TopLevel() {
				if v, ok := row[f.Name]; ok {
					rec[f.Name] = v
				}
			}
			records[id] = rec
			order = append(order, id)
		}
		for _, c := range table.Collections {
			entry := schema.Row{}
			var sig strings.Builder
			for _, f := range table.CollectionFields(c) {
				v, ok := row[f.Name]
				if !ok {
					continue
				}
				entry[f.Key()] = v
				sig.WriteString(f.Key() + "=" + schema.AsString(v) + "\x00")
			}
			if len(entry) == 0 {
				continue
			}
			key := id + "\x00" + c
			if seen[key] == nil {
				seen[key] = map[string]struct{}{}
			}
			if _, dup := seen[key][sig.String()]; dup {
				continue
			}
			seen[key][sig.String()] = struct{}{}
			entries, _ := rec[c].([]schema.Row)
			rec[c] = append(entries, entry)
		}
	}

	out := make([]schema.Row, 0, len(order))
	for _, id := range order {
		out = append(out, records[id])
	}
	return out
}

// matchesSearch reports whether any searchable value of the record contains the search text.
// Nested entries are searched too.
func matchesSearch(table *FieldTable, row schema.Row, needle string) bool {
	needle = strings.ToLower(needle)
	for _, f := range table.TopLevel() {
		if f.Searchable && strings.Contains(strings.ToLower(schema.AsString(row[f.Name])), needle) {
			return true
		}
	}
	for _, c := range table.Collections {
		entries, _ := row[c].([]schema.Row)
		for _, e := range entries {
			for _, f := range table.CollectionFields(c) {
				if f.Searchable && strings.Contains(strings.ToLower(schema.AsString(e[f.Key()])), needle) {
					return true
				}
			}
		}
	}
	return false
}

// filterSearch keeps the records matching s, or those not matching it on negation.
func filterSearch(table *FieldTable, rows []schema.Row, s *schema.Search) []schema.Row {
	if s == nil || s.Value == "" {
		return rows
	}
	out := rows[:0:0]
	for _, row := range rows {
		if matchesSearch(table, row, s.Value) != s.Negation {
			out = append(out, row)
		}
	}
	return out
}

// compareField orders two values of one field. Missing values sort first.
func compareField(f Field, a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	case f.Numeric:
		return cmp.Compare(schema.AsInt(a), schema.AsInt(b))
	default:
		return strings.Compare(schema.AsString(a), schema.AsString(b))
	}
}

// sortRows applies the sort keys left to right, keeping the incoming order on ties.
func sortRows(table *FieldTable, rows []schema.Row, keys []schema.SortField) {
	if len(keys) == 0 {
		return
	}
	fields := make([]Field, len(keys))
	for i, k := range keys {
		fields[i], _ = table.Lookup(k.Field)
	}
	slices.SortStableFunc(rows, func(a, b schema.Row) int {
		for i, k := range keys {
			c := compareField(fields[i], a[k.Field], b[k.Field])
			if k.Desc {
				c = -c
			}
			if c != 0 {
				return c
			}
		}
		return 0
	})
}

// window returns the page of rows starting at offset.
func window(rows []schema.Row, offset, limit int) []schema.Row {
	if offset >= len(rows) {
		return []schema.Row{}
	}
	end := min(offset+limit, len(rows))
	return rows[offset:end]
}

// project keeps only the requested keys and collections that are present on the row.
func project(row schema.Row, keys, collections []string) schema.Row {
	out := make(schema.Row, len(keys)+len(collections))
	for _, k := range keys {
		if v, ok := row[k]; ok {
			out[k] = v
		}
	}
	for _, c := range collections {
		if v, ok := row[c]; ok {
			out[c] = v
		}
	}
	return out
}

// assemble turns the raw rows of a statement into the page of shaped records and the
// total number of records before paging.
func assemble(stmt *Statement, raw []schema.Row) ([]schema.Row, int) {
	rows := shapeRows(stmt.Table, raw)
	total := len(rows)
	if stmt.InMemory {
		rows = groupRows(stmt.Table, rows)
		rows = filterSearch(stmt.Table, rows, stmt.Search)
		sortRows(stmt.Table, rows, stmt.Sort)
		total = len(rows)
		rows = window(rows, stmt.Offset, stmt.Limit)
	}
	out := make([]schema.Row, len(rows))
	for i, row := range rows {
		out[i] = project(row, stmt.Keys, stmt.Collections)
	}
	return out, total
}
