package outwriter

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/huangsam/sca/internal/contract"
	"github.com/huangsam/sca/schema"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// numericColumns are right-aligned in tables.
var numericColumns = map[string]bool{"id": true, "pass": true, "fail": true, "score": true}

// writeTable generates and writes the human-readable table followed by a summary.
func writeTable(writer io.Writer, l listing, columns []string, result *schema.AffectedItemsResult, cfg *contract.Config, duration time.Duration) error {
	table := tablewriter.NewWriter(writer)
	table.Header(columns)

	table.Configure(func(tcfg *tablewriter.Config) {
		tcfg.Row.Alignment.PerColumn = columnAlignments(columns)
	})

	maxWidth := getMaxTableCellWidth(cfg, len(columns))
	var data [][]string
	for _, item := range result.AffectedItems {
		row := make([]string, len(columns))
		for i, col := range columns {
			cell := contract.TruncateText(formatCell(col, item[col]), maxWidth)
			if col == "result" && cfg.UseColors && cell != "" {
				cell = contract.GetColorResult(cell)
			}
			row[i] = cell
		}
		data = append(data, row)
	}

	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}

	if _, err := fmt.Fprintf(writer, "Showing %d of %d %s. %s\n",
		len(result.AffectedItems), result.TotalAffectedItems, l.noun, result.Message); err != nil {
		return err
	}
	for _, reason := range sortedReasons(result.FailedItems) {
		if _, err := fmt.Fprintf(writer, "Failed (%s): %s\n", reason, strings.Join(result.FailedItems[reason], ", ")); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(writer, "Query completed in %v. Backend: %s\n", duration, cfg.Backend); err != nil {
		return err
	}
	return nil
}

// columnAlignments right-aligns numeric columns and left-aligns the rest.
func columnAlignments(columns []string) []tw.Align {
	aligns := make([]tw.Align, len(columns))
	for i, col := range columns {
		if numericColumns[col] {
			aligns[i] = tw.AlignRight
		} else {
			aligns[i] = tw.AlignLeft
		}
	}
	return aligns
}
