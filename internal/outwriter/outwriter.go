// Package outwriter has output and writer logic.
package outwriter

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/huangsam/sca/internal/contract"
	"github.com/huangsam/sca/internal/parquet"
	"github.com/huangsam/sca/schema"
)

// listing describes how one kind of listing is rendered.
type listing struct {
	noun        string   // plural used in summaries
	fields      []string // scalar fields in declaration order
	collections []string // nested collections appended after the fields
	parquet     func(rows []schema.Row, path string) error
}

var policyListing = listing{
	noun:   "policies",
	fields: schema.PolicyFields,
	parquet: func(rows []schema.Row, path string) error {
		return parquet.WritePoliciesParquet(parquet.PoliciesFromRows(rows), path)
	},
}

var checkListing = listing{
	noun:        "checks",
	fields:      schema.CheckFields,
	collections: []string{schema.ComplianceCollection, schema.RulesCollection},
	parquet: func(rows []schema.Row, path string) error {
		return parquet.WriteChecksParquet(parquet.ChecksFromRows(rows), path)
	},
}

// PrintPolicies outputs a policy listing in the configured output format.
func PrintPolicies(result *schema.AffectedItemsResult, cfg *contract.Config, duration time.Duration) error {
	return printResult(policyListing, result, cfg, duration)
}

// PrintChecks outputs a check listing in the configured output format.
func PrintChecks(result *schema.AffectedItemsResult, cfg *contract.Config, duration time.Duration) error {
	return printResult(checkListing, result, cfg, duration)
}

// printResult dispatches on the output format configured.
func printResult(l listing, result *schema.AffectedItemsResult, cfg *contract.Config, duration time.Duration) error {
	columns := l.columns(cfg.Select)

	switch cfg.Output {
	case schema.JSONOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, result)
		}, "Wrote JSON"); err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
	case schema.CSVOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeCSVRows(w, columns, result.AffectedItems)
		}, "Wrote CSV"); err != nil {
			return fmt.Errorf("error writing CSV output: %w", err)
		}
	case schema.ParquetOut:
		if cfg.OutputFile == "" {
			return fmt.Errorf("parquet output requires --output-file")
		}
		if err := l.parquet(result.AffectedItems, cfg.OutputFile); err != nil {
			return fmt.Errorf("error writing Parquet output: %w", err)
		}
		fmt.Fprintf(os.Stderr, "💾 Wrote Parquet to %s\n", cfg.OutputFile)
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeTable(w, l, columns, result, cfg, duration)
		}, "Wrote table")
	}
	return nil
}

// columns returns the output columns for a selection.
// Dotted names collapse onto their collection; an empty selection yields every column.
func (l listing) columns(sel []string) []string {
	if len(sel) == 0 {
		return append(append([]string{}, l.fields...), l.collections...)
	}
	known := make(map[string]bool, len(l.fields)+len(l.collections))
	for _, name := range append(append([]string{}, l.fields...), l.collections...) {
		known[name] = true
	}
	seen := make(map[string]bool, len(sel))
	var out []string
	for _, name := range sel {
		if root, _, ok := cutDot(name); ok {
			name = root
		}
		if !known[name] || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}
