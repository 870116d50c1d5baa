// Package catalog turns raw word-list input into normalized list and entry drafts.
package catalog

import (
	"fmt"
	"math"
	"strings"
)

// MinColumns is the number of cells a data row needs: list title, sequence number, term, definition.
const MinColumns = 4

// Row is one parsed data row
type Row struct {
	ListTitle      string
	SequenceNumber int
	Term           string
	Definition     string
	Line           int
}

// ParseResult holds the rows that survived parsing and the ones that were dropped
type ParseResult struct {
	Rows    []Row
	Skipped []*MalformedRowError
	Lines   int
}

// Parse reads newline-delimited, comma-delimited text. The first non-blank
// line is a header and is discarded. Cells are split on every comma; quoting
// is not supported, so a term or definition cannot contain a comma.
func Parse(text string) ParseResult {
	var result ParseResult
	headerSeen := false

	for i, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		result.Lines++
		if !headerSeen {
			headerSeen = true
			continue
		}

		row, err := RowFromCells(strings.Split(line, ","), i+1)
		if err != nil {
			result.Skipped = append(result.Skipped, err)
			continue
		}
		result.Rows = append(result.Rows, row)
	}

	return result
}

// RowFromCells builds a row from already split cells. Cells past the fourth are ignored.
func RowFromCells(cells []string, line int) (Row, *MalformedRowError) {
	if len(cells) < MinColumns {
		return Row{}, &MalformedRowError{
			Line:   line,
			Reason: fmt.Sprintf("expected at least %d columns, got %d", MinColumns, len(cells)),
		}
	}
	return Row{
		ListTitle:      strings.TrimSpace(cells[0]),
		SequenceNumber: parseSequence(strings.TrimSpace(cells[1])),
		Term:           strings.TrimSpace(cells[2]),
		Definition:     strings.TrimSpace(cells[3]),
		Line:           line,
	}, nil
}

// parseSequence reads the leading integer of s ("12", "-3", "7th").
// Anything without leading digits, or too large for an int, is 0.
func parseSequence(s string) int {
	i := 0
	neg := false
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		neg = s[i] == '-'
		i++
	}
	start := i
	n := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		d := int(s[i] - '0')
		if n > (math.MaxInt-d)/10 {
			return 0
		}
		n = n*10 + d
		i++
	}
	if i == start {
		return 0
	}
	if neg {
		return -n
	}
	return n
}
