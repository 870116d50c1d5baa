package catalog

import "fmt"

// EmptyInputError is returned when the input holds no usable data rows.
// Nothing is written when it occurs.
type EmptyInputError struct {
	Lines   int // non-blank lines seen, header included
	Skipped int // data rows dropped as malformed
}

func (e *EmptyInputError) Error() string {
	if e.Skipped > 0 {
		return fmt.Sprintf("no usable rows: %d malformed rows skipped", e.Skipped)
	}
	return "input is empty or only contains a header"
}

// MalformedRowError describes one data row that was dropped during parsing.
type MalformedRowError struct {
	Line   int // 1-based line number in the raw input
	Reason string
}

func (e *MalformedRowError) Error() string {
	return fmt.Sprintf("row %d: %s", e.Line, e.Reason)
}
