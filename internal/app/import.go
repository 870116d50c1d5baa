package app

import (
	"context"
	"fmt"
	"os"

	"github.com/example/wordace/internal/database"
	"github.com/example/wordace/internal/excel"
	"github.com/example/wordace/internal/ingest"
)

// Import ingests one CSV or XLSX file into the configured store
func Import(ctx context.Context, path string, reporter ingest.Reporter, opts ...Option) (*ingest.Report, error) {
	a, err := newApplication(opts)
	if err != nil {
		return nil, err
	}
	defer a.log.Sync()

	db, err := database.Open(ctx, a.config.Database.Driver, a.config.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}
	defer db.Close()

	importer := newImporter(a.config, database.NewListRepository(db), database.NewEntryRepository(db), a.log)

	if excel.IsWorkbook(path) {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", path, err)
		}
		defer f.Close()
		return importer.ImportWorkbook(ctx, f, reporter)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return importer.ImportText(ctx, string(data), reporter)
}
