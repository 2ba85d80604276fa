// Package schema has models, constants and errors shared by all parts of sca.
package schema

// Row is a shaped, sparse projection of a single record.
// An absent key means the field does not apply to the record.
type Row map[string]any

// Clone returns a shallow copy of the row.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// DBResponse is the payload an agent database returns for one query.
// Rows live under ResponseItemsKey; a response without that key is malformed.
type DBResponse map[string]any

// ResponseItemsKey is the key holding the result rows inside a DBResponse.
const ResponseItemsKey = "items"

// Items extracts the row list from the response.
// The boolean is false when the items container is missing or has the wrong type.
func (r DBResponse) Items() ([]Row, bool) {
	raw, ok := r[ResponseItemsKey]
	if !ok {
		return nil, false
	}
	switch items := raw.(type) {
	case []Row:
		return items, true
	case []map[string]any:
		rows := make([]Row, len(items))
		for i, item := range items {
			rows[i] = item
		}
		return rows, true
	case nil:
		return nil, false
	default:
		return nil, false
	}
}

// SortField is one key of a multi-key sort.
type SortField struct {
	Field string
	Desc  bool
}

// Search is a substring search over the searchable fields of an entity.
type Search struct {
	Value    string
	Negation bool
}
