package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/example/wordace/internal/catalog"
	"github.com/example/wordace/internal/database"
	"github.com/example/wordace/internal/ingest"
	"github.com/example/wordace/internal/progress"
	"github.com/example/wordace/internal/session"
	"github.com/example/wordace/internal/study"
)

const adminToken = "s3cret"

// testEnv wires the full stack on a temporary SQLite database
func testEnv(t *testing.T, token string) http.Handler {
	t.Helper()
	db, err := database.Open(context.Background(), database.DriverSQLite, filepath.Join(t.TempDir(), "api.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	lists := database.NewListRepository(db)
	entries := database.NewEntryRepository(db)
	progressRepo := database.NewProgressRepository(db)
	history := database.NewHistoryRepository(db)

	importer := ingest.NewImporter(lists, ingest.NewWriter(entries, ingest.MaxBatchSize, 0), catalog.DefaultPriorityKeywords, nil)
	svc := study.NewService(study.Deps{
		Lists:    lists,
		Entries:  entries,
		Progress: progressRepo,
		History:  history,
		Sessions: session.NewMemoryStore(time.Hour),
		Recorder: progress.NewMerger(progressRepo, history, nil),
	}, 10)
	return NewRouter(NewHandler(svc, importer, nil), token)
}

func do(t *testing.T, h http.Handler, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func csvList(title string, n int) string {
	var b strings.Builder
	b.WriteString("単語帳名,単語番号,単語,日本語訳\n")
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&b, "%s,%d,word%d,意味%d\n", title, i, i, i)
	}
	return b.String()
}

func importCSV(t *testing.T, h http.Handler, text string) {
	t.Helper()
	rec := do(t, h, http.MethodPost, "/admin/imports", text, "Authorization", "Bearer "+adminToken, "Content-Type", "text/csv")
	if rec.Code != http.StatusOK {
		t.Fatalf("import: %d %s", rec.Code, rec.Body.String())
	}
}

func TestAdminAuth(t *testing.T) {
	h := testEnv(t, adminToken)
	if rec := do(t, h, http.MethodGet, "/admin/learners", nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("no token: %d", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/admin/learners", nil, "Authorization", "Bearer wrong"); rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong token: %d", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/admin/learners", nil, "Authorization", "Bearer "+adminToken); rec.Code != http.StatusOK {
		t.Errorf("valid token: %d", rec.Code)
	}

	disabled := testEnv(t, "")
	if rec := do(t, disabled, http.MethodPost, "/admin/imports", "x", "Authorization", "Bearer "); rec.Code != http.StatusForbidden {
		t.Errorf("disabled admin: %d", rec.Code)
	}
}

func TestImportAndBrowse(t *testing.T) {
	h := testEnv(t, adminToken)
	importCSV(t, h, csvList("Alpha", 3)+"DUO 3.0,1,a,b\n")

	rec := do(t, h, http.MethodGet, "/lists", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("lists: %d", rec.Code)
	}
	lists := decode[struct {
		Lists []study.ListSummary `json:"lists"`
	}](t, rec).Lists
	if len(lists) != 2 || lists[0].ID != "duo_30" || !lists[0].IsPriority {
		t.Fatalf("lists = %+v", lists)
	}

	rec = do(t, h, http.MethodGet, "/lists/alpha/entries", nil)
	entries := decode[struct {
		Entries []struct {
			ID   string `json:"id"`
			Term string `json:"term"`
		} `json:"entries"`
	}](t, rec).Entries
	if len(entries) != 3 || entries[0].ID != "alpha_1" || entries[2].Term != "word3" {
		t.Errorf("entries = %+v", entries)
	}

	rec = do(t, h, http.MethodGet, "/entries?q=WORD&limit=2", nil)
	found := decode[struct {
		Entries []struct {
			ID string `json:"id"`
		} `json:"entries"`
	}](t, rec).Entries
	if len(found) != 2 {
		t.Errorf("search = %+v", found)
	}
	if rec := do(t, h, http.MethodGet, "/entries", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("search without q: %d", rec.Code)
	}

	if rec := do(t, h, http.MethodGet, "/lists/ghost", nil); rec.Code != http.StatusNotFound {
		t.Errorf("unknown list: %d", rec.Code)
	}

	rec = do(t, h, http.MethodGet, "/entries/alpha_1/example", nil)
	if rec.Code != http.StatusOK || decode[exampleResponse](t, rec).Sentence != "" {
		t.Errorf("example without generator: %d %s", rec.Code, rec.Body.String())
	}
}

func TestImportRejectsEmptyInput(t *testing.T) {
	h := testEnv(t, adminToken)
	rec := do(t, h, http.MethodPost, "/admin/imports", "header,only\n", "Authorization", "Bearer "+adminToken)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decode[map[string]any](t, rec)
	if body["report"] == nil {
		t.Error("report missing from failed import")
	}
}

func TestImportWorkbookUpload(t *testing.T) {
	h := testEnv(t, adminToken)

	f := excelize.NewFile()
	for i, row := range [][]interface{}{
		{"Book", "No", "Word", "Meaning"},
		{"Beta", 1, "one", "一"},
		{"Beta", 2, "two", "二"},
	} {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow("Sheet1", cell, &row); err != nil {
			t.Fatal(err)
		}
	}
	xlsx, err := f.WriteToBuffer()
	if err != nil {
		t.Fatal(err)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "beta.xlsx")
	if err != nil {
		t.Fatal(err)
	}
	part.Write(xlsx.Bytes())
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/admin/imports", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+adminToken)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("upload: %d %s", rec.Code, rec.Body.String())
	}
	if report := decode[ingest.Report](t, rec); report.Entries != 2 || report.Percent != 100 {
		t.Errorf("report = %+v", report)
	}
}

func TestQuizFlow(t *testing.T) {
	h := testEnv(t, adminToken)
	importCSV(t, h, csvList("Alpha", 6))

	rec := do(t, h, http.MethodPost, "/users/u1/quizzes", startQuizRequest{ListID: "alpha", Questions: 3})
	if rec.Code != http.StatusCreated {
		t.Fatalf("start: %d %s", rec.Code, rec.Body.String())
	}
	view := decode[SessionView](t, rec)
	if view.Total != 3 || view.State != "ready" || view.Question == nil || len(view.Question.Options) != 4 {
		t.Fatalf("view = %+v", view)
	}
	if strings.Contains(rec.Body.String(), "target") || strings.Contains(rec.Body.String(), "entry_id") {
		t.Error("session view leaks the answer")
	}

	if rec := do(t, h, http.MethodGet, "/users/u2/quizzes/"+view.ID, nil); rec.Code != http.StatusForbidden {
		t.Errorf("foreign session: %d", rec.Code)
	}
	if rec := do(t, h, http.MethodPost, "/users/u1/quizzes/"+view.ID+"/answers",
		answerRequest{Question: 0, OptionID: "nope"}); rec.Code != http.StatusBadRequest {
		t.Errorf("unknown option: %d", rec.Code)
	}

	var last AnswerPayload
	for i := 0; i < view.Total; i++ {
		rec := do(t, h, http.MethodGet, "/users/u1/quizzes/"+view.ID, nil)
		current := decode[SessionView](t, rec)
		rec = do(t, h, http.MethodPost, "/users/u1/quizzes/"+view.ID+"/answers",
			answerRequest{Question: current.Question.Index, OptionID: correctOption(t, current.Question)})
		if rec.Code != http.StatusOK {
			t.Fatalf("answer %d: %d %s", i, rec.Code, rec.Body.String())
		}
		last = decode[AnswerPayload](t, rec)
	}
	if !last.Complete || last.Score != 3 || last.Percent != 100 || last.AttemptID == "" {
		t.Errorf("last answer = %+v", last)
	}

	rec = do(t, h, http.MethodGet, "/entries/"+last.TargetID+"/example?session_id="+view.ID, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("example after reveal: %d %s", rec.Code, rec.Body.String())
	}

	rec = do(t, h, http.MethodPost, "/users/u1/quizzes/"+view.ID+"/answers", answerRequest{Question: 2, OptionID: "x"})
	if rec.Code != http.StatusConflict {
		t.Errorf("answer after completion: %d", rec.Code)
	}

	rec = do(t, h, http.MethodGet, "/users/u1/progress", nil)
	prog := decode[struct {
		Progress []study.ListProgress `json:"progress"`
	}](t, rec).Progress
	if len(prog) != 1 || len(prog[0].LearnedEntryIDs) != 3 || prog[0].MasteryPercent != 50 {
		t.Errorf("progress = %+v", prog)
	}

	rec = do(t, h, http.MethodGet, "/users/u1/history?limit=5", nil)
	hist := decode[map[string][]map[string]any](t, rec)["history"]
	if len(hist) != 1 || hist[0]["correct_count"].(float64) != 3 {
		t.Errorf("history = %+v", hist)
	}

	rec = do(t, h, http.MethodGet, "/admin/learners", nil, "Authorization", "Bearer "+adminToken)
	learners := decode[map[string][]map[string]any](t, rec)["learners"]
	if len(learners) != 1 || learners[0]["user_id"] != "u1" {
		t.Errorf("learners = %+v", learners)
	}
}

func TestStartQuizErrors(t *testing.T) {
	h := testEnv(t, adminToken)
	importCSV(t, h, csvList("Tiny", 3))

	if rec := do(t, h, http.MethodPost, "/users/u1/quizzes", startQuizRequest{ListID: "tiny"}); rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("tiny list: %d", rec.Code)
	}
	if rec := do(t, h, http.MethodPost, "/users/u1/quizzes", startQuizRequest{ListID: "ghost"}); rec.Code != http.StatusNotFound {
		t.Errorf("unknown list: %d", rec.Code)
	}
	if rec := do(t, h, http.MethodPost, "/users/u1/quizzes", startQuizRequest{}); rec.Code != http.StatusBadRequest {
		t.Errorf("missing list id: %d", rec.Code)
	}
	if rec := do(t, h, http.MethodPost, "/users/u1/quizzes", "{"); rec.Code != http.StatusBadRequest {
		t.Errorf("bad json: %d", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/users/u1/quizzes/missing", nil); rec.Code != http.StatusNotFound {
		t.Errorf("missing session: %d", rec.Code)
	}
}

// correctOption finds the option for the term; test lists pair wordN with 意味N
func correctOption(t *testing.T, q *QuestionView) string {
	t.Helper()
	if q == nil {
		t.Fatal("no open question")
	}
	want := "意味" + strings.TrimPrefix(q.Term, "word")
	for _, o := range q.Options {
		if o.Definition == want {
			return o.ID
		}
	}
	t.Fatalf("no option %q among %+v", want, q.Options)
	return ""
}

// AnswerPayload mirrors the JSON of study.AnswerResult
type AnswerPayload struct {
	Correct   bool   `json:"correct"`
	TargetID  string `json:"target_id"`
	Score     int    `json:"score"`
	Complete  bool   `json:"complete"`
	Percent   int    `json:"percent"`
	AttemptID string `json:"attempt_id"`
}
