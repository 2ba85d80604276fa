package core

import (
	"testing"

	"github.com/huangsam/sca/schema"
	"github.com/stretchr/testify/assert"
)

func TestUnalias(t *testing.T) {
	tests := map[string]string{
		"score":                   "score",
		`"compliance_key"`:        "compliance_key",
		"`rules_type`":            "rules_type",
		`sca."id" AS "policy_id"`: "policy_id",
		"si.score":                "score",
		" total ":                 "total",
	}
	for in, expected := range tests {
		assert.Equal(t, expected, unalias(in), in)
	}
}

func TestShapeRows(t *testing.T) {
	rows := shapeRows(CheckTable, []schema.Row{
		{`"id"`: int64(1), "compliance_key": []byte("cis"), "file": nil, "extra": "x"},
	})
	assert.Equal(t, []schema.Row{{"id": int64(1), "compliance.key": "cis", "extra": "x"}}, rows)
}

func joinedCheckRows() []schema.Row {
	return []schema.Row{
		{"id": int64(2), "title": "b", "compliance.key": "cis", "compliance.value": "1", "rules.type": "file", "rules.rule": "f:x"},
		{"id": int64(2), "title": "b", "compliance.key": "cis", "compliance.value": "1", "rules.type": "command", "rules.rule": "c:y"},
		{"id": int64(2), "title": "b", "compliance.key": "pci", "compliance.value": "2", "rules.type": "file", "rules.rule": "f:x"},
		{"id": int64(2), "title": "b", "compliance.key": "pci", "compliance.value": "2", "rules.type": "command", "rules.rule": "c:y"},
		{"id": int64(1), "title": "a", "rules.type": "process", "rules.rule": "p:sshd"},
	}
}

func TestGroupRows(t *testing.T) {
	grouped := groupRows(CheckTable, joinedCheckRows())
	assert.Equal(t, []schema.Row{
		{
			"id":    int64(2),
			"title": "b",
			"compliance": []schema.Row{
				{"key": "cis", "value": "1"},
				{"key": "pci", "value": "2"},
			},
			"rules": []schema.Row{
				{"type": "file", "rule": "f:x"},
				{"type": "command", "rule": "c:y"},
			},
		},
		{
			"id":    int64(1),
			"title": "a",
			"rules": []schema.Row{{"type": "process", "rule": "p:sshd"}},
		},
	}, grouped)
}

func TestFilterSearch(t *testing.T) {
	rows := groupRows(CheckTable, joinedCheckRows())

	assert.Len(t, filterSearch(CheckTable, rows, nil), 2)
	assert.Len(t, filterSearch(CheckTable, rows, &schema.Search{}), 2)

	matched := filterSearch(CheckTable, rows, &schema.Search{Value: "SSHD"})
	assert.Equal(t, []int64{1}, ids(matched))

	excluded := filterSearch(CheckTable, rows, &schema.Search{Value: "pci", Negation: true})
	assert.Equal(t, []int64{1}, ids(excluded))

	// The id field is not searchable, nested values are.
	assert.Equal(t, []int64{2}, ids(filterSearch(CheckTable, rows, &schema.Search{Value: "1"})))
}

func TestSortRows(t *testing.T) {
	rows := []schema.Row{
		{"id": int64(10), "title": "b"},
		{"id": int64(9), "title": "a"},
		{"id": int64(100), "title": "b"},
		{"id": int64(1)},
	}

	sortRows(CheckTable, rows, []schema.SortField{{Field: "id"}})
	assert.Equal(t, []int64{1, 9, 10, 100}, ids(rows))

	sortRows(CheckTable, rows, []schema.SortField{{Field: "title", Desc: true}, {Field: "id"}})
	assert.Equal(t, []int64{10, 100, 9, 1}, ids(rows))
}

func TestWindow(t *testing.T) {
	rows := []schema.Row{{"id": 1}, {"id": 2}, {"id": 3}}
	assert.Len(t, window(rows, 0, 2), 2)
	assert.Len(t, window(rows, 2, 5), 1)
	assert.Empty(t, window(rows, 3, 5))
	assert.NotNil(t, window(rows, 10, 5))
}

func TestProject(t *testing.T) {
	row := schema.Row{"id": 1, "title": "t", "rules": []schema.Row{{"type": "file"}}}
	assert.Equal(t, schema.Row{"title": "t", "rules": row["rules"]}, project(row, []string{"title", "file"}, []string{"rules", "compliance"}))
}
