package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/example/wordace/internal/catalog"
	"github.com/example/wordace/internal/excel"
	"github.com/example/wordace/internal/logger"
	"github.com/example/wordace/pkg/models"
)

// ListRegistry upserts list metadata
type ListRegistry interface {
	Upsert(ctx context.Context, list models.CatalogList) error
}

// Importer runs complete ingestion passes: registry first, then entries
type Importer struct {
	registry ListRegistry
	writer   *Writer
	keywords []string
	log      *logger.Logger
	now      func() time.Time
}

// NewImporter creates an importer
func NewImporter(registry ListRegistry, writer *Writer, keywords []string, log *logger.Logger) *Importer {
	if log == nil {
		log = logger.Nop()
	}
	return &Importer{
		registry: registry,
		writer:   writer,
		keywords: keywords,
		log:      log.With("component", "ingest"),
		now:      time.Now,
	}
}

// ImportText parses CSV text and imports it.
func (i *Importer) ImportText(ctx context.Context, text string, reporter Reporter) (*Report, error) {
	r := i.start(reporter)
	r.logf("Starting CSV import")

	parsed := catalog.Parse(text)
	return i.importParsed(ctx, r, parsed)
}

// ImportWorkbook reads the first sheet of an XLSX workbook and imports it.
func (i *Importer) ImportWorkbook(ctx context.Context, src io.Reader, reporter Reporter) (*Report, error) {
	r := i.start(reporter)
	r.logf("Starting workbook import")

	parsed, err := excel.ReadRows(src, excel.DefaultReadConfig())
	if err != nil {
		r.logf("Error: %v", err)
		return r.report, err
	}
	return i.importParsed(ctx, r, parsed)
}

// Run writes already grouped lists.
func (i *Importer) Run(ctx context.Context, groups []catalog.Group, reporter Reporter) (*Report, error) {
	r := i.start(reporter)
	if len(groups) == 0 {
		err := &catalog.EmptyInputError{}
		r.logf("Error: %v", err)
		return r.report, err
	}
	err := i.write(ctx, r, groups)
	return r.report, err
}

func (i *Importer) start(reporter Reporter) *run {
	return &run{report: &Report{Lines: []string{}}, reporter: reporter, now: i.now}
}

func (i *Importer) importParsed(ctx context.Context, r *run, parsed catalog.ParseResult) (*Report, error) {
	for _, skipped := range parsed.Skipped {
		r.logf("Skipped %v", skipped)
	}
	r.report.Skipped = len(parsed.Skipped)

	groups, err := catalog.GroupRows(parsed.Rows, i.keywords)
	if err != nil {
		err = &catalog.EmptyInputError{Lines: parsed.Lines, Skipped: len(parsed.Skipped)}
		r.logf("Error: %v", err)
		i.log.Warn("import rejected", "error", err)
		return r.report, err
	}
	return r.report, i.write(ctx, r, groups)
}

func (i *Importer) write(ctx context.Context, r *run, groups []catalog.Group) error {
	total := len(groups)
	r.logf("Found %d unique lists", total)
	r.progress(0, total)

	for n, g := range groups {
		list := g.List
		list.UpdatedAt = i.now()
		r.logf("Processing list %q (%d entries)", list.Title, len(g.Entries))
		if g.DuplicateIDs > 0 {
			r.logf("Warning: %d rows of %q reuse a sequence number; the last one wins", g.DuplicateIDs, list.Title)
		}

		if err := i.registry.Upsert(ctx, list); err != nil {
			err = fmt.Errorf("failed to register list %s: %w", list.ID, err)
			return i.fail(r, err)
		}

		processed := n
		err := i.writer.Write(ctx, list.ID, g.Entries, func(start, end int) {
			r.logf("chunk [%d,%d) of %s", start, end, list.ID)
			if end == len(g.Entries) {
				processed = n + 1
			}
			r.progress(processed, total)
		})
		if err != nil {
			return i.fail(r, err)
		}

		r.report.Lists++
		r.report.Entries += len(g.Entries)
		r.report.Duplicates += g.DuplicateIDs
		i.log.Info("list imported", "list_id", list.ID, "entries", len(g.Entries), "priority", list.IsPriority)
	}

	r.logf("All imports completed successfully")
	return nil
}

func (i *Importer) fail(r *run, err error) error {
	var commitErr *BatchCommitError
	if errors.As(err, &commitErr) {
		i.log.Error("batch commit failed", "list_id", commitErr.ListID, "start", commitErr.Start, "end", commitErr.End, "error", commitErr.Err)
	} else {
		i.log.Error("import aborted", "error", err)
	}
	r.logf("Error: %v", err)
	return err
}
