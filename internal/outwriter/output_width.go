package outwriter

import (
	"os"

	"github.com/huangsam/sca/internal/contract"
	"golang.org/x/term"
)

// getMaxTableCellWidth calculates the maximum width for text cells in table output
// based on terminal width and the number of columns shown.
func getMaxTableCellWidth(cfg *contract.Config, numColumns int) int {
	var termWidth int

	// Check for absolute width override from flag/env
	if cfg.Width > 0 {
		termWidth = cfg.Width
	}

	if termWidth == 0 { // Not set by override
		detectedWidth, _, err := term.GetSize(int(os.Stdout.Fd()))
		if err != nil || detectedWidth <= 0 {
			termWidth = 120 // Conservative default for CI and pipes
		} else {
			termWidth = detectedWidth
		}
	}

	if numColumns < 1 {
		numColumns = 1
	}

	// Reserve three characters per column for borders and padding
	available := (termWidth - 3*numColumns - 1) / numColumns
	if available < 12 {
		return 12
	}
	if available > 60 {
		return 60
	}
	return available
}
