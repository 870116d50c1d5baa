package scheduler

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/example/wordace/internal/excel"
	"github.com/example/wordace/internal/ingest"
	"github.com/example/wordace/internal/logger"
)

// Subdirectories of the inbox that receive processed files
const (
	DoneDir   = "done"
	FailedDir = "failed"
)

// Importer runs ingestion for one file
type Importer interface {
	ImportText(ctx context.Context, text string, reporter ingest.Reporter) (*ingest.Report, error)
	ImportWorkbook(ctx context.Context, src io.Reader, reporter ingest.Reporter) (*ingest.Report, error)
}

// Notifier is told about every file the sweep imported
type Notifier interface {
	NotifyImport(name string, report *ingest.Report, err error)
}

// Scheduler periodically imports word lists dropped into an inbox directory
type Scheduler struct {
	scheduler *gocron.Scheduler
	importer  Importer
	notifier  Notifier
	inbox     string
	interval  time.Duration
	log       *logger.Logger

	mu sync.Mutex // one sweep at a time
}

// New creates a new scheduler instance. notifier may be nil.
func New(importer Importer, notifier Notifier, inbox string, interval time.Duration, log *logger.Logger) *Scheduler {
	if log == nil {
		log = logger.Nop()
	}
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		importer:  importer,
		notifier:  notifier,
		inbox:     inbox,
		interval:  interval,
		log:       log.With("component", "scheduler", "inbox", inbox),
	}
}

// Start sweeps the inbox now and then every interval until Stop
func (s *Scheduler) Start(ctx context.Context) error {
	for _, dir := range []string{s.inbox, filepath.Join(s.inbox, DoneDir), filepath.Join(s.inbox, FailedDir)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create inbox directory: %w", err)
		}
	}

	_, err := s.scheduler.Every(s.interval).SingletonMode().Do(func() {
		if _, err := s.SweepInbox(ctx); err != nil {
			s.log.Error("inbox sweep failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule inbox sweep: %w", err)
	}

	s.scheduler.StartAsync()
	s.log.Info("inbox sweep scheduled", "interval", s.interval)
	return nil
}

// Stop terminates all scheduled tasks
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

// SweepInbox imports every .csv and workbook file in the inbox, oldest name
// first, and moves each one to done/ or failed/. It returns how many files
// were processed.
func (s *Scheduler) SweepInbox(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dirEntries, err := os.ReadDir(s.inbox)
	if err != nil {
		return 0, fmt.Errorf("failed to read inbox: %w", err)
	}

	var names []string
	for _, e := range dirEntries {
		if e.IsDir() || !isImportable(e.Name()) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	processed := 0
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return processed, err
		}
		report, importErr := s.importFile(ctx, filepath.Join(s.inbox, name))
		if importErr != nil && ctx.Err() != nil {
			// interrupted, the file stays in the inbox for the next sweep
			return processed, ctx.Err()
		}

		target := DoneDir
		if importErr != nil {
			target = FailedDir
			s.log.Warn("inbox file failed", "file", name, "error", importErr)
		} else {
			s.log.Info("inbox file imported", "file", name, "lists", report.Lists, "entries", report.Entries)
		}
		if err := s.move(name, target); err != nil {
			return processed, err
		}
		processed++

		if s.notifier != nil {
			s.notifier.NotifyImport(name, report, importErr)
		}
	}
	return processed, nil
}

func (s *Scheduler) importFile(ctx context.Context, path string) (*ingest.Report, error) {
	if excel.IsWorkbook(path) {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", path, err)
		}
		defer f.Close()
		return s.importer.ImportWorkbook(ctx, f, nil)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return s.importer.ImportText(ctx, string(data), nil)
}

// move renames name into dir, prefixing a timestamp when the target exists
func (s *Scheduler) move(name, dir string) error {
	target := filepath.Join(s.inbox, dir, name)
	if _, err := os.Stat(target); err == nil {
		target = filepath.Join(s.inbox, dir, time.Now().UTC().Format("20060102T150405")+"_"+name)
	}
	if err := os.Rename(filepath.Join(s.inbox, name), target); err != nil {
		return fmt.Errorf("failed to move %s to %s: %w", name, dir, err)
	}
	return nil
}

func isImportable(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".csv") || excel.IsWorkbook(name)
}
