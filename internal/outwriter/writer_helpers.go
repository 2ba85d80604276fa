package outwriter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/huangsam/sca/internal/contract"
	"github.com/huangsam/sca/schema"
)

// writeWithFile handles the common pattern of opening a file, writing to it, and cleaning up.
// It accepts a writer function that takes an io.Writer and returns an error.
func writeWithFile(outputFile string, writer func(io.Writer) error, successMsg string) error {
	file, err := contract.SelectOutputFile(outputFile)
	if err != nil {
		return err
	}
	// Only close if it's not stdout
	if file != os.Stdout {
		defer func() { _ = file.Close() }()
	}

	if err := writer(file); err != nil {
		return err
	}

	if file != os.Stdout {
		fmt.Fprintf(os.Stderr, "💾 %s to %s\n", successMsg, outputFile)
	}
	return nil
}

// writeJSON is a generic JSON encoder that handles indentation consistently.
func writeJSON(w io.Writer, data any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// writeCSVWithHeader handles the common pattern of creating a CSV writer,
// writing a header, and writing data rows.
func writeCSVWithHeader(w io.Writer, header []string, writeRows func(*csv.Writer) error) error {
	csvWriter := csv.NewWriter(w)
	defer csvWriter.Flush()

	if err := csvWriter.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	if err := writeRows(csvWriter); err != nil {
		return err
	}

	return nil
}

// writeCSVRows writes one CSV line per item with the given columns.
func writeCSVRows(w io.Writer, columns []string, rows []schema.Row) error {
	return writeCSVWithHeader(w, columns, func(csvWriter *csv.Writer) error {
		for _, row := range rows {
			record := make([]string, len(columns))
			for i, col := range columns {
				record[i] = formatCell(col, row[col])
			}
			if err := csvWriter.Write(record); err != nil {
				return fmt.Errorf("failed to write CSV row: %w", err)
			}
		}
		return nil
	})
}

// entryKeys is the display order of the keys of each nested collection.
var entryKeys = map[string][]string{
	schema.ComplianceCollection: schema.ComplianceFields,
	schema.RulesCollection:      schema.RuleFields,
}

// formatCell renders a shaped value as flat text.
// Nested entries become key:value pairs joined by "|"; absent values are empty.
func formatCell(column string, value any) string {
	entries, ok := value.([]schema.Row)
	if !ok {
		return schema.AsString(value)
	}
	keys := entryKeys[column]
	parts := make([]string, 0, len(entries))
	for _, entry := range entries {
		var values []string
		for _, key := range keys {
			if v, present := entry[key]; present {
				values = append(values, schema.AsString(v))
			}
		}
		parts = append(parts, strings.Join(values, ":"))
	}
	return strings.Join(parts, "|")
}

// cutDot splits a dotted field name into its collection and nested key.
func cutDot(name string) (root, key string, ok bool) {
	return strings.Cut(name, ".")
}

// sortedReasons returns the failure descriptions of a result in stable order.
func sortedReasons(failed map[string][]string) []string {
	reasons := make([]string, 0, len(failed))
	for reason := range failed {
		reasons = append(reasons, reason)
	}
	sort.Strings(reasons)
	return reasons
}
