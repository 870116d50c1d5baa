// Package excel reads word lists from XLSX workbooks into catalog rows.
package excel

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/example/wordace/internal/catalog"
	"github.com/xuri/excelize/v2"
)

// ReadConfig defines which part of a workbook holds the word list
type ReadConfig struct {
	SheetName string // Empty means the first sheet
	StartRow  int    // 1-based position of the first data row among non-blank rows; the rows before it are headers
}

// DefaultReadConfig returns the default read configuration
func DefaultReadConfig() ReadConfig {
	return ReadConfig{
		StartRow: 2, // By default, skip a single header row
	}
}

// IsWorkbook reports whether a file name looks like an Excel workbook
func IsWorkbook(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm":
		return true
	}
	return false
}

// ReadRows reads the configured sheet. Columns are expected in the same order
// as the CSV format: list title, number, term, definition.
func ReadRows(r io.Reader, config ReadConfig) (catalog.ParseResult, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return catalog.ParseResult{}, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheet := config.SheetName
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return catalog.ParseResult{}, fmt.Errorf("workbook has no sheets")
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return catalog.ParseResult{}, fmt.Errorf("failed to get rows: %w", err)
	}

	start := config.StartRow
	if start < 1 {
		start = 1
	}

	var result catalog.ParseResult
	headers, width := 0, 0
	for i, row := range rows {
		if isBlank(row) {
			continue
		}
		result.Lines++
		// Skip header rows
		if headers < start-1 {
			headers++
			if len(row) > width {
				width = len(row)
			}
			continue
		}
		// GetRows drops trailing empty cells; restore them up to the header width
		for len(row) < width {
			row = append(row, "")
		}

		parsed, rowErr := catalog.RowFromCells(row, i+1)
		if rowErr != nil {
			result.Skipped = append(result.Skipped, rowErr)
			continue
		}
		result.Rows = append(result.Rows, parsed)
	}

	return result, nil
}

func isBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
