package schema

import (
	"fmt"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testMessages = ResultMessages{All: "all", Some: "some", None: "none"}

func TestErrorHelpers(t *testing.T) {
	assert.Equal(t, "Error 1406 - Limit must be greater than 0", ErrLimitZero.Error())

	wrapped := errors.Wrap(ErrAgentNotFound, "agent 099")
	coded, ok := AsError(wrapped)
	require.True(t, ok)
	assert.Same(t, ErrAgentNotFound, coded)
	assert.Equal(t, 1701, ErrorCode(wrapped))
	assert.True(t, IsAgentError(wrapped))

	assert.False(t, IsAgentError(fmt.Errorf("limit: %w", ErrLimitTooHigh)))
	assert.Equal(t, 1405, ErrorCode(fmt.Errorf("limit: %w", ErrLimitTooHigh)))

	plain := errors.New("boom")
	assert.Zero(t, ErrorCode(plain))
	assert.False(t, IsAgentError(plain))
	_, ok = AsError(nil)
	assert.False(t, ok)
}

func TestAffectedItemsResult(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		r := NewAffectedItemsResult(testMessages)
		assert.NotNil(t, r.AffectedItems)
		assert.NotNil(t, r.FailedItems)
		assert.Empty(t, r.Message)
	})

	t.Run("all", func(t *testing.T) {
		r := NewAffectedItemsResult(testMessages)
		r.AddAgentItems([]Row{{"id": 1}}, 3)
		r.AddAgentItems(nil, 0)
		assert.Len(t, r.AffectedItems, 1)
		assert.Equal(t, 3, r.TotalAffectedItems)
		assert.Equal(t, "all", r.Message)
	})

	t.Run("some", func(t *testing.T) {
		r := NewAffectedItemsResult(testMessages)
		r.AddFailedItem("003", errors.Wrap(ErrAgentNotFound, "missing"))
		r.AddAgentItems([]Row{{"id": 1}}, 1)
		r.AddFailedItem("002", ErrAgentNotFound)
		r.AddFailedItem("005", errors.New("socket closed"))

		assert.Equal(t, "some", r.Message)
		assert.Equal(t, 3, r.TotalFailedItems)
		assert.Equal(t, []string{"002", "003"}, r.FailedItems[ErrAgentNotFound.Error()])
		assert.Equal(t, []string{"005"}, r.FailedItems["socket closed"])
		assert.Equal(t, []string{"002", "003", "005"}, r.FailedAgents())
		assert.Equal(t, "1 affected items (1 total), 3 failed agents", r.String())
	})

	t.Run("none", func(t *testing.T) {
		r := NewAffectedItemsResult(testMessages)
		r.AddFailedItem("001", ErrBackendUnavailable)
		assert.Equal(t, "none", r.Message)
		assert.Empty(t, r.AffectedItems)
	})
}

func TestDBResponseItems(t *testing.T) {
	tests := []struct {
		name   string
		resp   DBResponse
		length int
		ok     bool
	}{
		{"rows", DBResponse{ResponseItemsKey: []Row{{"a": 1}, {"a": 2}}}, 2, true},
		{"maps", DBResponse{ResponseItemsKey: []map[string]any{{"a": 1}}}, 1, true},
		{"empty", DBResponse{ResponseItemsKey: []Row{}}, 0, true},
		{"missing", DBResponse{"data": []Row{}}, 0, false},
		{"nil", DBResponse{ResponseItemsKey: nil}, 0, false},
		{"wrong type", DBResponse{ResponseItemsKey: "rows"}, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, ok := tt.resp.Items()
			assert.Equal(t, tt.ok, ok)
			assert.Len(t, items, tt.length)
		})
	}
}

func TestRowClone(t *testing.T) {
	row := Row{"a": 1}
	clone := row.Clone()
	clone["a"] = 2
	assert.Equal(t, 1, row["a"])
}

func TestConversions(t *testing.T) {
	assert.Equal(t, "", AsString(nil))
	assert.Equal(t, "x", AsString([]byte("x")))
	assert.Equal(t, "42", AsString(int64(42)))

	assert.Equal(t, int64(7), AsInt(int64(7)))
	assert.Equal(t, int64(7), AsInt(7))
	assert.Equal(t, int64(7), AsInt(float64(7)))
	assert.Equal(t, int64(7), AsInt("7"))
	assert.Equal(t, int64(7), AsInt([]byte("7")))
	assert.Zero(t, AsInt("seven"))
	assert.Zero(t, AsInt(nil))
}

func TestRecordsFromRows(t *testing.T) {
	policy := PolicyFromRow(Row{"policy_id": "p", "name": []byte("n"), "score": int64(66)})
	assert.Equal(t, PolicyRecord{PolicyID: "p", Name: "n", Score: 66}, policy)

	check := CheckFromRow(Row{
		"id":                 int64(1),
		"title":              "t",
		ComplianceCollection: []Row{{"key": "cis", "value": "1.1"}},
		RulesCollection:      []Row{{"type": "file", "rule": "f:x"}},
	})
	assert.Equal(t, int64(1), check.ID)
	assert.Equal(t, []ComplianceEntry{{Key: "cis", Value: "1.1"}}, check.Compliance)
	assert.Equal(t, []RuleEntry{{Type: "file", Rule: "f:x"}}, check.Rules)
	assert.Empty(t, CheckFromRow(Row{"id": int64(2)}).Rules)
}
