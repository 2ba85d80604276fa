package core

import (
	"testing"

	"github.com/huangsam/sca/internal/contract"
	"github.com/huangsam/sca/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseQ(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		node, err := parseQ("  ")
		require.NoError(t, err)
		assert.Nil(t, node)
	})

	t.Run("single condition", func(t *testing.T) {
		node, err := parseQ("score>=50")
		require.NoError(t, err)
		assert.Equal(t, qCondition{Field: "score", Op: ">=", Value: "50"}, node)
	})

	t.Run("and binds tighter than or", func(t *testing.T) {
		node, err := parseQ("a=1;b=2,c=3")
		require.NoError(t, err)
		assert.Equal(t, qGroup{Op: "OR", Children: []qNode{
			qGroup{Op: "AND", Children: []qNode{
				qCondition{Field: "a", Op: "=", Value: "1"},
				qCondition{Field: "b", Op: "=", Value: "2"},
			}},
			qCondition{Field: "c", Op: "=", Value: "3"},
		}}, node)
	})

	t.Run("parentheses", func(t *testing.T) {
		node, err := parseQ("(a=1,b!=2);c~x")
		require.NoError(t, err)
		assert.Equal(t, qGroup{Op: "AND", Children: []qNode{
			qGroup{Op: "OR", Children: []qNode{
				qCondition{Field: "a", Op: "=", Value: "1"},
				qCondition{Field: "b", Op: "!=", Value: "2"},
			}},
			qCondition{Field: "c", Op: "~", Value: "x"},
		}}, node)
		assert.Equal(t, []string{"a", "b", "c"}, collectFields(node))
	})

	t.Run("nested field names", func(t *testing.T) {
		node, err := parseQ("compliance.key=cis")
		require.NoError(t, err)
		assert.Equal(t, qCondition{Field: "compliance.key", Op: "=", Value: "cis"}, node)
	})

	invalid := []string{"score", "(a=1", "a=1)", "a=1;", "=1", "1a=2", "a=1,,b=2"}
	for _, q := range invalid {
		t.Run("invalid "+q, func(t *testing.T) {
			_, err := parseQ(q)
			assert.ErrorIs(t, err, schema.ErrInvalidQuery)
		})
	}
}

func TestQRender(t *testing.T) {
	tests := []struct {
		name     string
		backend  schema.DatabaseBackend
		table    *FieldTable
		q        string
		expected string
		args     []any
	}{
		{
			name:     "numeric comparison",
			backend:  schema.SQLiteBackend,
			table:    PolicyTable,
			q:        "score<55",
			expected: `si."score" < ?`,
			args:     []any{int64(55)},
		},
		{
			name:     "not equal and like",
			backend:  schema.SQLiteBackend,
			table:    PolicyTable,
			q:        "policy_id!=x,name~De%bian",
			expected: `(sca."id" <> ? OR LOWER(COALESCE(CAST(sca."name" AS TEXT), '')) LIKE ? ESCAPE '!')`,
			args:     []any{"x", "%de!%bian%"},
		},
		{
			name:     "mysql quoting",
			backend:  schema.MySQLBackend,
			table:    CheckTable,
			q:        "rules.type=file;id>3000",
			expected: "(rl.`type` = ? AND chk.`id` > ?)",
			args:     []any{"file", int64(3000)},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			node, err := parseQ(tt.q)
			require.NoError(t, err)
			r := &qRenderer{dialect: contract.NewDialect(tt.backend), table: tt.table}
			sql, err := node.render(r)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, sql)
			assert.Equal(t, tt.args, r.args)
		})
	}

	t.Run("unknown field", func(t *testing.T) {
		node, err := parseQ("owner=me")
		require.NoError(t, err)
		_, err = node.render(&qRenderer{dialect: contract.NewDialect(schema.SQLiteBackend), table: PolicyTable})
		assert.ErrorIs(t, err, schema.ErrUnknownField)
	})
}
