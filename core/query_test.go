package core

import (
	"testing"

	"github.com/huangsam/sca/internal/contract"
	"github.com/huangsam/sca/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePage(t *testing.T) {
	assert.NoError(t, validatePage(0, 1))
	assert.NoError(t, validatePage(10, schema.MaxDatabaseLimit))
	assert.ErrorIs(t, validatePage(-1, 10), schema.ErrInvalidOffset)
	assert.ErrorIs(t, validatePage(0, 0), schema.ErrLimitZero)
	assert.ErrorIs(t, validatePage(0, schema.MaxDatabaseLimit+1), schema.ErrLimitTooHigh)
}

func TestResolveSelect(t *testing.T) {
	t.Run("default", func(t *testing.T) {
		keys, collections, err := resolveSelect(CheckTable, nil)
		require.NoError(t, err)
		assert.Equal(t, schema.CheckFields, keys)
		assert.Equal(t, []string{schema.ComplianceCollection, schema.RulesCollection}, collections)
	})

	t.Run("collections and duplicates", func(t *testing.T) {
		keys, collections, err := resolveSelect(CheckTable, []string{"title", " id", "rules.rule", "rules", "title"})
		require.NoError(t, err)
		assert.Equal(t, []string{"title", "id"}, keys)
		assert.Equal(t, []string{schema.RulesCollection}, collections)
	})

	t.Run("unknown", func(t *testing.T) {
		_, _, err := resolveSelect(PolicyTable, []string{"name", "compliance"})
		assert.ErrorIs(t, err, schema.ErrUnknownField)
	})
}

func TestBuildPolicyStatement(t *testing.T) {
	q := NewQuery()
	q.Filters = map[string]string{"name": "CIS", "description": ""}
	q.Search = &schema.Search{Value: "deb", Negation: true}
	q.Q = "score>50"
	q.Select = []string{"policy_id", "score"}
	q.Sort = []schema.SortField{{Field: "score", Desc: true}, {Field: "name"}}
	q.Offset = 5
	q.Limit = 10

	stmt, err := BuildPolicyStatement(contract.NewDialect(schema.PostgreSQLBackend), q)
	require.NoError(t, err)

	where := ` WHERE sca."name" = $1 AND NOT (` +
		`LOWER(COALESCE(CAST(sca."id" AS TEXT), '')) LIKE $2 ESCAPE '!' OR ` +
		`LOWER(COALESCE(CAST(sca."name" AS TEXT), '')) LIKE $3 ESCAPE '!' OR ` +
		`LOWER(COALESCE(CAST(sca."description" AS TEXT), '')) LIKE $4 ESCAPE '!' OR ` +
		`LOWER(COALESCE(CAST(sca."references" AS TEXT), '')) LIKE $5 ESCAPE '!') AND si."score" > $6`
	assert.Equal(t,
		`SELECT sca."id" AS "policy_id", si."score" AS "score" FROM `+PolicyTable.From+where+
			` ORDER BY si."score" DESC, sca."name" ASC LIMIT $7 OFFSET $8`,
		stmt.SQL)
	assert.Equal(t, []any{"CIS", "%deb%", "%deb%", "%deb%", "%deb%", int64(50), 10, 5}, stmt.Args)
	assert.Equal(t, `SELECT COUNT(*) AS "total" FROM `+PolicyTable.From+where, stmt.CountSQL)
	assert.Len(t, stmt.CountArgs, 6)
	assert.Equal(t, []string{"policy_id", "score"}, stmt.Keys)
	assert.False(t, stmt.InMemory)
}

func TestBuildPolicyStatement_Errors(t *testing.T) {
	d := contract.NewDialect(schema.SQLiteBackend)

	q := NewQuery()
	q.Filters = map[string]string{"pass": "many"}
	_, err := BuildPolicyStatement(d, q)
	assert.ErrorIs(t, err, schema.ErrInvalidQuery)

	q = NewQuery()
	q.Sort = []schema.SortField{{Field: "agent"}}
	_, err = BuildPolicyStatement(d, q)
	assert.ErrorIs(t, err, schema.ErrUnknownField)
}

func TestBuildCheckStatement(t *testing.T) {
	q := NewQuery()
	q.Filters = map[string]string{"result": "failed"}
	q.Q = "compliance.key=cis"
	q.Search = &schema.Search{Value: "tmp"}
	q.Select = []string{"id", "compliance.value"}
	q.Sort = []schema.SortField{{Field: "title"}}
	q.Offset = 1
	q.Limit = 2

	stmt, err := BuildCheckStatement(contract.NewDialect(schema.MySQLBackend), "cis_debian10", q)
	require.NoError(t, err)

	assert.Contains(t, stmt.SQL, "chk.`id` AS `id`")
	assert.Contains(t, stmt.SQL, "cmp.`value` AS `compliance_value`")
	assert.Contains(t, stmt.SQL, "rl.`rule` AS `rules_rule`")
	assert.Contains(t, stmt.SQL, " WHERE chk.`policy_id` = ? AND chk.`result` = ? AND cmp.`key` = ?")
	assert.Contains(t, stmt.SQL, " ORDER BY chk.`id`")
	assert.NotContains(t, stmt.SQL, "LIMIT")
	assert.NotContains(t, stmt.SQL, "LIKE")
	assert.Equal(t, []any{"cis_debian10", "failed", "cis"}, stmt.Args)
	assert.Empty(t, stmt.CountSQL)

	assert.True(t, stmt.InMemory)
	assert.Equal(t, []string{"id"}, stmt.Keys)
	assert.Equal(t, []string{schema.ComplianceCollection}, stmt.Collections)
	assert.Equal(t, q.Search, stmt.Search)
	assert.Equal(t, q.Sort, stmt.Sort)
	assert.Equal(t, 1, stmt.Offset)
	assert.Equal(t, 2, stmt.Limit)
}

func TestBuildCheckStatement_Errors(t *testing.T) {
	d := contract.NewDialect(schema.SQLiteBackend)

	q := NewQuery()
	q.Filters = map[string]string{"compliance.key": "cis"}
	_, err := BuildCheckStatement(d, "p", q)
	assert.ErrorIs(t, err, schema.ErrUnknownField)

	q = NewQuery()
	q.Limit = -1
	_, err = BuildCheckStatement(d, "p", q)
	assert.ErrorIs(t, err, schema.ErrLimitZero)
}
