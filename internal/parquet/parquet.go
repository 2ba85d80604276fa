// Package parquet provides data structures and functions for exporting SCA
// listing results to Parquet files using github.com/parquet-go/parquet-go.
package parquet

import (
	"fmt"
	"os"

	"github.com/huangsam/sca/schema"
	"github.com/parquet-go/parquet-go"
)

// Policy is one policy row of a Parquet export.
// Optional columns are written as null when empty.
type Policy struct {
	PolicyID    string `parquet:"policy_id,snappy"`
	Name        string `parquet:"name,optional,snappy"`
	Description string `parquet:"description,optional,snappy"`
	References  string `parquet:"references,optional,snappy"`
	Pass        int64  `parquet:"pass,snappy"`
	Fail        int64  `parquet:"fail,snappy"`
	Score       int64  `parquet:"score,snappy"`
}

// Compliance is one compliance mapping nested in a Check row.
type Compliance struct {
	Key   string `parquet:"key"`
	Value string `parquet:"value"`
}

// Rule is one rule nested in a Check row.
type Rule struct {
	Type string `parquet:"type"`
	Rule string `parquet:"rule"`
}

// Check is one check row of a Parquet export, with its nested collections
// stored as repeated groups.
type Check struct {
	ID          int64        `parquet:"id,snappy"`
	PolicyID    string       `parquet:"policy_id,optional,snappy"`
	Title       string       `parquet:"title,optional,snappy"`
	Description string       `parquet:"description,optional,snappy"`
	Rationale   string       `parquet:"rationale,optional,snappy"`
	Remediation string       `parquet:"remediation,optional,snappy"`
	File        string       `parquet:"file,optional,snappy"`
	Process     string       `parquet:"process,optional,snappy"`
	Directory   string       `parquet:"directory,optional,snappy"`
	Registry    string       `parquet:"registry,optional,snappy"`
	References  string       `parquet:"references,optional,snappy"`
	Result      string       `parquet:"result,optional,snappy"`
	Condition   string       `parquet:"condition,optional,snappy"`
	Compliance  []Compliance `parquet:"compliance"`
	Rules       []Rule       `parquet:"rules"`
}

// PoliciesFromRows converts shaped policy rows to Parquet rows.
func PoliciesFromRows(rows []schema.Row) []Policy {
	out := make([]Policy, len(rows))
	for i, row := range rows {
		p := schema.PolicyFromRow(row)
		out[i] = Policy{
			PolicyID:    p.PolicyID,
			Name:        p.Name,
			Description: p.Description,
			References:  p.References,
			Pass:        p.Pass,
			Fail:        p.Fail,
			Score:       p.Score,
		}
	}
	return out
}

// ChecksFromRows converts shaped check rows to Parquet rows.
func ChecksFromRows(rows []schema.Row) []Check {
	out := make([]Check, len(rows))
	for i, row := range rows {
		c := schema.CheckFromRow(row)
		out[i] = Check{
			ID:          c.ID,
			PolicyID:    c.PolicyID,
			Title:       c.Title,
			Description: c.Description,
			Rationale:   c.Rationale,
			Remediation: c.Remediation,
			File:        c.File,
			Process:     c.Process,
			Directory:   c.Directory,
			Registry:    c.Registry,
			References:  c.References,
			Result:      c.Result,
			Condition:   c.Condition,
		}
		for _, e := range c.Compliance {
			out[i].Compliance = append(out[i].Compliance, Compliance{Key: e.Key, Value: e.Value})
		}
		for _, r := range c.Rules {
			out[i].Rules = append(out[i].Rules, Rule{Type: r.Type, Rule: r.Rule})
		}
	}
	return out
}

// WritePoliciesParquet writes policy rows to a Parquet file.
func WritePoliciesParquet(data []Policy, outputPath string) error {
	return writeParquet(data, outputPath)
}

// WriteChecksParquet writes check rows to a Parquet file.
func WriteChecksParquet(data []Check, outputPath string) error {
	return writeParquet(data, outputPath)
}

// writeParquet writes data to outputPath with a schema inferred from the struct tags of T.
func writeParquet[T any](data []T, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() { _ = file.Close() }()

	writer := parquet.NewGenericWriter[T](file)
	if _, err := writer.Write(data); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write data to parquet file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize parquet file: %w", err)
	}
	return nil
}
