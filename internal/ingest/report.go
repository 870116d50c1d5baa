package ingest

import (
	"fmt"
	"time"
)

// Reporter observes an ingestion run while it happens
type Reporter interface {
	Progress(percent int)
	Log(line string)
}

// Report is the outcome of an ingestion run
type Report struct {
	Percent    int      `json:"percent"`
	Lines      []string `json:"lines"`
	Lists      int      `json:"lists"`
	Entries    int      `json:"entries"`
	Skipped    int      `json:"skipped"`
	Duplicates int      `json:"duplicates"`
}

// run couples a report with an optional live reporter
type run struct {
	report   *Report
	reporter Reporter
	now      func() time.Time
}

func (r *run) logf(format string, args ...interface{}) {
	line := fmt.Sprintf("[%s] %s", r.now().Format("15:04:05"), fmt.Sprintf(format, args...))
	r.report.Lines = append(r.report.Lines, line)
	if r.reporter != nil {
		r.reporter.Log(line)
	}
}

func (r *run) progress(processed, total int) {
	if total <= 0 {
		return
	}
	percent := (processed*200 + total) / (total * 2) // rounded processed*100/total
	r.report.Percent = percent
	if r.reporter != nil {
		r.reporter.Progress(percent)
	}
}
