package outwriter

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/huangsam/sca/internal/contract"
	"github.com/huangsam/sca/internal/parquet"
	"github.com/huangsam/sca/schema"
	pq "github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testMessages = schema.ResultMessages{
	All:  "All selected sca information was returned",
	Some: "Some sca information was not returned",
	None: "No sca information was returned",
}

func samplePolicyResult() *schema.AffectedItemsResult {
	result := schema.NewAffectedItemsResult(testMessages)
	result.AddAgentItems([]schema.Row{
		{"policy_id": "cis_debian10", "name": "CIS benchmark for Debian/Linux 10", "pass": int64(2), "fail": int64(1), "score": int64(66)},
		{"policy_id": "sca_unix_audit", "name": "System audit for Unix based systems", "pass": int64(1), "fail": int64(1), "score": int64(50)},
	}, 2)
	result.AddFailedItem("099", schema.ErrAgentNotFound)
	return result
}

func sampleCheckResult() *schema.AffectedItemsResult {
	result := schema.NewAffectedItemsResult(testMessages)
	result.AddAgentItems([]schema.Row{
		{
			"id":       int64(3000),
			"policy_id": "cis_debian10",
			"title":    "Ensure separate partition exists for /tmp",
			"result":   "failed",
			schema.ComplianceCollection: []schema.Row{
				{"key": "cis", "value": "1.1.2"},
				{"key": "pci_dss", "value": "2.2.4"},
			},
			schema.RulesCollection: []schema.Row{{"type": "file", "rule": "f:/etc/fstab -> r:/tmp"}},
		},
	}, 1)
	return result
}

func TestListingColumns(t *testing.T) {
	tests := []struct {
		name     string
		listing  listing
		sel      []string
		expected []string
	}{
		{"all policy columns", policyListing, nil, schema.PolicyFields},
		{
			name:     "all check columns",
			listing:  checkListing,
			expected: append(append([]string{}, schema.CheckFields...), "compliance", "rules"),
		},
		{"select order kept", policyListing, []string{"score", "name"}, []string{"score", "name"}},
		{
			name:     "dotted names collapse",
			listing:  checkListing,
			sel:      []string{"title", "compliance.key", "compliance.value", "rules.type"},
			expected: []string{"title", "compliance", "rules"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.listing.columns(tt.sel))
		})
	}
}

func TestGetMaxTableCellWidth(t *testing.T) {
	assert.Equal(t, 60, getMaxTableCellWidth(&contract.Config{Width: 400}, 2))
	assert.Equal(t, 12, getMaxTableCellWidth(&contract.Config{Width: 40}, 7))
	assert.Equal(t, 36, getMaxTableCellWidth(&contract.Config{Width: 120}, 3))
}

func TestPrintPoliciesJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policies.json")
	cfg := &contract.Config{Output: schema.JSONOut, OutputFile: path}
	require.NoError(t, PrintPolicies(samplePolicyResult(), cfg, time.Second))

	content, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(content, &decoded))
	assert.Equal(t, float64(2), decoded["total_affected_items"])
	assert.Equal(t, float64(1), decoded["total_failed_items"])
	assert.Equal(t, testMessages.Some, decoded["message"])
	assert.Len(t, decoded["affected_items"], 2)
	assert.Contains(t, decoded["failed_items"], schema.ErrAgentNotFound.Error())
}

func TestPrintChecksCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checks.csv")
	cfg := &contract.Config{Output: schema.CSVOut, OutputFile: path, Select: []string{"id", "result", "compliance"}}
	require.NoError(t, PrintChecks(sampleCheckResult(), cfg, time.Second))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "id,result,compliance", lines[0])
	assert.Equal(t, "3000,failed,cis:1.1.2|pci_dss:2.2.4", lines[1])
}

func TestPrintPoliciesTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policies.txt")
	cfg := &contract.Config{Output: schema.TextOut, OutputFile: path, Width: 200, Backend: schema.SQLiteBackend}
	require.NoError(t, PrintPolicies(samplePolicyResult(), cfg, time.Second))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(content)
	assert.Contains(t, out, "cis_debian10")
	assert.Contains(t, out, "sca_unix_audit")
	assert.Contains(t, out, "Showing 2 of 2 policies. "+testMessages.Some)
	assert.Contains(t, out, "Failed ("+schema.ErrAgentNotFound.Error()+"): 099")
	assert.Contains(t, out, "Backend: sqlite")
}

func TestPrintChecksTableColors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checks.txt")
	cfg := &contract.Config{Output: schema.TextOut, OutputFile: path, Width: 200, UseColors: true, Select: []string{"id", "result"}}
	require.NoError(t, PrintChecks(sampleCheckResult(), cfg, time.Second))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "failed")
	assert.Contains(t, string(content), "Showing 1 of 1 checks.")
}

func TestPrintChecksParquet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checks.parquet")
	cfg := &contract.Config{Output: schema.ParquetOut, OutputFile: path}
	require.NoError(t, PrintChecks(sampleCheckResult(), cfg, time.Second))

	rows, err := pq.ReadFile[parquet.Check](path)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(3000), rows[0].ID)
	assert.Len(t, rows[0].Compliance, 2)
}

func TestPrintParquetRequiresFile(t *testing.T) {
	cfg := &contract.Config{Output: schema.ParquetOut}
	err := PrintPolicies(samplePolicyResult(), cfg, time.Second)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires --output-file")
}
