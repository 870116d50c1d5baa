package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/example/wordace/internal/catalog"
	"github.com/example/wordace/pkg/models"
)

// fakeStore records every call in order and keeps the last written state
type fakeStore struct {
	events  []string
	batches []int
	lists   map[string]models.CatalogList
	entries map[string]models.CatalogEntry
	failOn  int // 1-based commit number that fails; 0 never fails
	commits int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		lists:   make(map[string]models.CatalogList),
		entries: make(map[string]models.CatalogEntry),
	}
}

func (s *fakeStore) Upsert(_ context.Context, list models.CatalogList) error {
	s.events = append(s.events, "list:"+list.ID)
	s.lists[list.ID] = list
	return nil
}

func (s *fakeStore) CommitEntries(_ context.Context, entries []models.CatalogEntry) error {
	s.commits++
	if s.failOn == s.commits {
		return errors.New("store unavailable")
	}
	s.events = append(s.events, fmt.Sprintf("entries:%s:%d", entries[0].ListID, len(entries)))
	s.batches = append(s.batches, len(entries))
	for _, e := range entries {
		s.entries[e.ID] = e
	}
	return nil
}

type recorder struct {
	percents []int
	lines    []string
}

func (r *recorder) Progress(p int)   { r.percents = append(r.percents, p) }
func (r *recorder) Log(line string) { r.lines = append(r.lines, line) }

func newTestImporter(store *fakeStore, batchSize int) (*Importer, *[]time.Duration) {
	w := NewWriter(store, batchSize, DefaultThrottle)
	var pauses []time.Duration
	w.pause = func(_ context.Context, d time.Duration) error {
		pauses = append(pauses, d)
		return nil
	}
	imp := NewImporter(store, w, catalog.DefaultPriorityKeywords, nil)
	imp.now = func() time.Time { return time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC) }
	return imp, &pauses
}

func csvWith(title string, n int) string {
	var b strings.Builder
	b.WriteString("list,number,term,definition\n")
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&b, "%s,%d,word%d,meaning %d\n", title, i, i, i)
	}
	return b.String()
}

func TestBatchSizesNeverExceedLimit(t *testing.T) {
	tests := []struct {
		n    int
		want []int
	}{
		{449, []int{449}},
		{450, []int{450}},
		{451, []int{450, 1}},
		{900, []int{450, 450}},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.n), func(t *testing.T) {
			store := newFakeStore()
			imp, pauses := newTestImporter(store, MaxBatchSize)
			report, err := imp.ImportText(context.Background(), csvWith("Alpha", tt.n), nil)
			if err != nil {
				t.Fatalf("ImportText: %v", err)
			}
			if fmt.Sprint(store.batches) != fmt.Sprint(tt.want) {
				t.Errorf("batches = %v, want %v", store.batches, tt.want)
			}
			if len(*pauses) != len(tt.want) {
				t.Errorf("throttle ran %d times for %d commits", len(*pauses), len(tt.want))
			}
			if report.Entries != tt.n || report.Percent != 100 {
				t.Errorf("report = %+v", report)
			}
		})
	}
}

func TestWriterClampsBatchSize(t *testing.T) {
	for _, size := range []int{0, -1, 451, 10000} {
		if got := NewWriter(newFakeStore(), size, 0).BatchSize(); got != MaxBatchSize {
			t.Errorf("NewWriter(%d).BatchSize() = %d", size, got)
		}
	}
	if got := NewWriter(newFakeStore(), 7, 0).BatchSize(); got != 7 {
		t.Errorf("BatchSize = %d, want 7", got)
	}
}

func TestWriterNeverSkipsThrottle(t *testing.T) {
	for _, throttle := range []time.Duration{0, -time.Second, time.Microsecond} {
		w := NewWriter(newFakeStore(), 1, throttle)
		var pauses []time.Duration
		w.pause = func(_ context.Context, d time.Duration) error {
			pauses = append(pauses, d)
			return nil
		}
		entries := []models.CatalogEntry{{ID: "a_1"}, {ID: "a_2"}}
		if err := w.Write(context.Background(), "a", entries, nil); err != nil {
			t.Fatalf("Write: %v", err)
		}
		if len(pauses) != 2 || pauses[0] != MinThrottle || pauses[1] != MinThrottle {
			t.Errorf("throttle %v: pauses = %v, want two of %v", throttle, pauses, MinThrottle)
		}
	}
	if w := NewWriter(newFakeStore(), 1, DefaultThrottle); w.throttle != DefaultThrottle {
		t.Errorf("throttle = %v, want %v", w.throttle, DefaultThrottle)
	}
}

func TestRegistryBeforeEntries(t *testing.T) {
	store := newFakeStore()
	imp, _ := newTestImporter(store, 2)
	text := "h\nAlpha,1,a,A\nBeta,1,b,B\nAlpha,2,c,C\nAlpha,3,d,D\n"
	if _, err := imp.ImportText(context.Background(), text, nil); err != nil {
		t.Fatalf("ImportText: %v", err)
	}
	want := []string{
		"list:alpha", "entries:alpha:2", "entries:alpha:1",
		"list:beta", "entries:beta:1",
	}
	if fmt.Sprint(store.events) != fmt.Sprint(want) {
		t.Errorf("events = %v, want %v", store.events, want)
	}
}

func TestAlphaExample(t *testing.T) {
	store := newFakeStore()
	imp, _ := newTestImporter(store, MaxBatchSize)
	rec := &recorder{}
	text := "Book,No,Word,Meaning\nAlpha,1,apple,りんご\nAlpha,2,banana,バナナ\n"

	report, err := imp.ImportText(context.Background(), text, rec)
	if err != nil {
		t.Fatalf("ImportText: %v", err)
	}
	list := store.lists["alpha"]
	if list.Title != "Alpha" || list.EntryCount != 2 || list.IsPriority {
		t.Errorf("list = %+v", list)
	}
	if !list.UpdatedAt.Equal(time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)) {
		t.Errorf("updated at = %v", list.UpdatedAt)
	}
	e := store.entries["alpha_2"]
	if e.Term != "banana" || e.Definition != "バナナ" || e.SearchKey != "banana" {
		t.Errorf("entry = %+v", e)
	}
	if fmt.Sprint(rec.percents) != "[0 100]" {
		t.Errorf("percents = %v", rec.percents)
	}
	if len(rec.lines) != len(report.Lines) {
		t.Errorf("reporter saw %d lines, report has %d", len(rec.lines), len(report.Lines))
	}
	var sawChunk bool
	for _, line := range report.Lines {
		if !strings.HasPrefix(line, "[09:30:00] ") {
			t.Errorf("line without timestamp: %q", line)
		}
		if strings.Contains(line, "chunk [0,2) of alpha") {
			sawChunk = true
		}
	}
	if !sawChunk {
		t.Errorf("no chunk line in %v", report.Lines)
	}
}

func TestProgressIsMonotonic(t *testing.T) {
	store := newFakeStore()
	imp, _ := newTestImporter(store, 1)
	rec := &recorder{}
	text := "h\nA,1,a,a\nA,2,b,b\nB,1,c,c\nC,1,d,d\n"
	if _, err := imp.ImportText(context.Background(), text, rec); err != nil {
		t.Fatalf("ImportText: %v", err)
	}
	// A's first chunk leaves it unfinished, so 0 repeats before 33
	if want := "[0 0 33 67 100]"; fmt.Sprint(rec.percents) != want {
		t.Errorf("percents = %v, want %s", rec.percents, want)
	}
}

func TestReimportIsIdempotent(t *testing.T) {
	store := newFakeStore()
	imp, _ := newTestImporter(store, 3)
	text := csvWith("DUO 3.0", 10)

	if _, err := imp.ImportText(context.Background(), text, nil); err != nil {
		t.Fatal(err)
	}
	firstLists := fmt.Sprint(store.lists)
	firstEntries := fmt.Sprint(store.entries)

	if _, err := imp.ImportText(context.Background(), text, nil); err != nil {
		t.Fatal(err)
	}
	if fmt.Sprint(store.lists) != firstLists || fmt.Sprint(store.entries) != firstEntries {
		t.Error("second import changed stored state")
	}
	if !store.lists["duo_30"].IsPriority {
		t.Error("DUO list not flagged as priority")
	}
}

func TestEmptyInputWritesNothing(t *testing.T) {
	for name, text := range map[string]string{
		"empty":       "",
		"header only": "list,number,term,definition\n",
		"all short":   "h\nA,1,x\nB\n",
	} {
		t.Run(name, func(t *testing.T) {
			store := newFakeStore()
			imp, _ := newTestImporter(store, MaxBatchSize)
			_, err := imp.ImportText(context.Background(), text, nil)
			var empty *catalog.EmptyInputError
			if !errors.As(err, &empty) {
				t.Fatalf("err = %v, want EmptyInputError", err)
			}
			if len(store.events) != 0 {
				t.Errorf("store touched: %v", store.events)
			}
		})
	}
}

func TestMalformedRowsAreSkipped(t *testing.T) {
	store := newFakeStore()
	imp, _ := newTestImporter(store, MaxBatchSize)
	report, err := imp.ImportText(context.Background(), "h\nA,1,a,x\nbroken\nA,2,b,y\n", nil)
	if err != nil {
		t.Fatalf("ImportText: %v", err)
	}
	if report.Skipped != 1 || report.Entries != 2 {
		t.Errorf("report = %+v", report)
	}
}

func TestCommitFailureAbortsRemainingChunks(t *testing.T) {
	store := newFakeStore()
	store.failOn = 2
	imp, _ := newTestImporter(store, 2)
	text := "h\nA,1,a,a\nA,2,b,b\nA,3,c,c\nA,4,d,d\nA,5,e,e\nB,1,f,f\n"

	report, err := imp.ImportText(context.Background(), text, nil)
	var commitErr *BatchCommitError
	if !errors.As(err, &commitErr) {
		t.Fatalf("err = %v, want BatchCommitError", err)
	}
	if commitErr.ListID != "a" || commitErr.Start != 2 || commitErr.End != 4 {
		t.Errorf("commit error = %+v", commitErr)
	}
	if store.commits != 2 {
		t.Errorf("commits attempted = %d, want 2", store.commits)
	}
	if _, ok := store.entries["a_1"]; !ok {
		t.Error("first chunk was lost")
	}
	if _, ok := store.lists["b"]; ok {
		t.Error("later list was processed after failure")
	}
	last := report.Lines[len(report.Lines)-1]
	if !strings.Contains(last, "Error:") {
		t.Errorf("last line = %q", last)
	}
}

func TestWriteStopsWhenCancelled(t *testing.T) {
	store := newFakeStore()
	w := NewWriter(store, 1, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	entries := []models.CatalogEntry{{ID: "a_1", ListID: "a"}, {ID: "a_2", ListID: "a"}}
	if err := w.Write(ctx, "a", entries, nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if store.commits != 0 {
		t.Errorf("commits = %d after cancellation", store.commits)
	}
}

func TestImportWorkbook(t *testing.T) {
	f := excelize.NewFile()
	rows := [][]interface{}{
		{"Book", "No", "Word", "Meaning"},
		{"ターゲット1900", 1, "create", "創造する"},
		{"ターゲット1900", 2, "destroy", "破壊する"},
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow("Sheet1", cell, &row); err != nil {
			t.Fatal(err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatal(err)
	}

	store := newFakeStore()
	imp, _ := newTestImporter(store, MaxBatchSize)
	report, err := imp.ImportWorkbook(context.Background(), bytes.NewReader(buf.Bytes()), nil)
	if err != nil {
		t.Fatalf("ImportWorkbook: %v", err)
	}
	if report.Lists != 1 || report.Entries != 2 {
		t.Errorf("report = %+v", report)
	}
	for _, l := range store.lists {
		if !l.IsPriority {
			t.Errorf("list %q not flagged as priority", l.Title)
		}
	}
}
