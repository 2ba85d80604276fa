package core

import (
	"fmt"
	"slices"
	"strings"

	"github.com/huangsam/sca/schema"
)

// Field maps one public field name to its storage column.
type Field struct {
	Name       string // public name, dotted for nested fields
	Table      string // table alias used in the FROM clause
	Column     string // storage column
	Collection string // nested collection owning the field, empty for top-level fields
	Searchable bool   // included in free-text search
	Numeric    bool   // compared as an integer
}

// Key returns the name the field carries inside a nested entry.
func (f Field) Key() string {
	if f.Collection == "" {
		return f.Name
	}
	return strings.TrimPrefix(f.Name, f.Collection+".")
}

// Alias returns the column alias used in the projection.
func (f Field) Alias() string {
	return strings.ReplaceAll(f.Name, ".", "_")
}

// FieldTable is the declared translation table of one entity.
type FieldTable struct {
	Entity      string
	From        string   // FROM clause without the keyword
	IDField     string   // field identifying a record; rows are grouped by it
	Collections []string // nested collections that may be attached to records
	Fields      []Field

	byName  map[string]Field
	byAlias map[string]Field
}

// Lookup resolves a public name, including dotted nested names.
func (t *FieldTable) Lookup(name string) (Field, bool) {
	f, ok := t.byName[name]
	return f, ok
}

// FromAlias resolves a projection alias back to its field.
func (t *FieldTable) FromAlias(alias string) (Field, bool) {
	f, ok := t.byAlias[alias]
	return f, ok
}

// TopLevel returns the fields that are not part of a nested collection.
func (t *FieldTable) TopLevel() []Field {
	var out []Field
	for _, f := range t.Fields {
		if f.Collection == "" {
			out = append(out, f)
		}
	}
	return out
}

// CollectionFields returns the fields of one nested collection, in declaration order.
func (t *FieldTable) CollectionFields(collection string) []Field {
	var out []Field
	for _, f := range t.Fields {
		if f.Collection == collection {
			out = append(out, f)
		}
	}
	return out
}

// HasCollection reports whether name is a nested collection of the entity.
func (t *FieldTable) HasCollection(name string) bool {
	return slices.Contains(t.Collections, name)
}

// validate checks the table for duplicates and dangling collection references.
func (t *FieldTable) validate() error {
	t.byName = make(map[string]Field, len(t.Fields))
	t.byAlias = make(map[string]Field, len(t.Fields))
	for _, f := range t.Fields {
		if f.Name == "" || f.Column == "" || f.Table == "" {
			return fmt.Errorf("%s: incomplete field %+v", t.Entity, f)
		}
		if _, dup := t.byName[f.Name]; dup {
			return fmt.Errorf("%s: duplicate field %q", t.Entity, f.Name)
		}
		if f.Collection != "" {
			if !t.HasCollection(f.Collection) {
				return fmt.Errorf("%s: field %q references unknown collection %q", t.Entity, f.Name, f.Collection)
			}
			if !strings.HasPrefix(f.Name, f.Collection+".") {
				return fmt.Errorf("%s: nested field %q must be prefixed by %q", t.Entity, f.Name, f.Collection)
			}
		}
		t.byName[f.Name] = f
		t.byAlias[f.Alias()] = f
	}
	if _, ok := t.byName[t.IDField]; !ok {
		return fmt.Errorf("%s: id field %q is not declared", t.Entity, t.IDField)
	}
	for _, c := range t.Collections {
		if len(t.CollectionFields(c)) == 0 {
			return fmt.Errorf("%s: collection %q has no fields", t.Entity, c)
		}
	}
	return nil
}

// mustTable validates a table at package initialisation.
func mustTable(t *FieldTable) *FieldTable {
	if err := t.validate(); err != nil {
		panic(err)
	}
	return t
}

// PolicyTable translates public policy fields to the policy and scan-info tables.
var PolicyTable = mustTable(&FieldTable{
	Entity:  "policy",
	From:    "sca_policy sca INNER JOIN sca_scan_info si ON sca.id = si.policy_id",
	IDField: "policy_id",
	Fields: []Field{
		{Name: "policy_id", Table: "sca", Column: "id", Searchable: true},
		{Name: "name", Table: "sca", Column: "name", Searchable: true},
		{Name: "description", Table: "sca", Column: "description", Searchable: true},
		{Name: "references", Table: "sca", Column: "references", Searchable: true},
		{Name: "pass", Table: "si", Column: "pass", Numeric: true},
		{Name: "fail", Table: "si", Column: "fail", Numeric: true},
		{Name: "score", Table: "si", Column: "score", Numeric: true},
	},
})

// CheckTable translates public check fields, including the nested compliance and rule
// entries reached through LEFT JOINs.
var CheckTable = mustTable(&FieldTable{
	Entity: "check",
	From: "sca_check chk " +
		"LEFT JOIN sca_check_compliance cmp ON chk.id = cmp.id_check " +
		"LEFT JOIN sca_check_rules rl ON chk.id = rl.id_check",
	IDField:     "id",
	Collections: []string{schema.ComplianceCollection, schema.RulesCollection},
	Fields: []Field{
		{Name: "id", Table: "chk", Column: "id", Numeric: true},
		{Name: "policy_id", Table: "chk", Column: "policy_id", Searchable: true},
		{Name: "title", Table: "chk", Column: "title", Searchable: true},
		{Name: "description", Table: "chk", Column: "description", Searchable: true},
		{Name: "rationale", Table: "chk", Column: "rationale", Searchable: true},
		{Name: "remediation", Table: "chk", Column: "remediation", Searchable: true},
		{Name: "file", Table: "chk", Column: "file", Searchable: true},
		{Name: "process", Table: "chk", Column: "process", Searchable: true},
		{Name: "directory", Table: "chk", Column: "directory", Searchable: true},
		{Name: "registry", Table: "chk", Column: "registry", Searchable: true},
		{Name: "references", Table: "chk", Column: "references", Searchable: true},
		{Name: "result", Table: "chk", Column: "result", Searchable: true},
		{Name: "condition", Table: "chk", Column: "condition", Searchable: true},
		{Name: "compliance.key", Table: "cmp", Column: "key", Collection: schema.ComplianceCollection, Searchable: true},
		{Name: "compliance.value", Table: "cmp", Column: "value", Collection: schema.ComplianceCollection, Searchable: true},
		{Name: "rules.type", Table: "rl", Column: "type", Collection: schema.RulesCollection, Searchable: true},
		{Name: "rules.rule", Table: "rl", Column: "rule", Collection: schema.RulesCollection, Searchable: true},
	},
})
