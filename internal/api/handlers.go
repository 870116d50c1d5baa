package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/example/wordace/internal/excel"
	"github.com/example/wordace/internal/ingest"
	"github.com/example/wordace/internal/logger"
	"github.com/example/wordace/internal/study"
)

// MaxUploadBytes bounds an import request body
const MaxUploadBytes = 32 << 20

const workbookContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Handler holds API route handlers.
type Handler struct {
	svc      *study.Service
	importer *ingest.Importer
	log      *logger.Logger
}

// NewHandler creates a new Handler.
func NewHandler(svc *study.Service, importer *ingest.Importer, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.Nop()
	}
	return &Handler{svc: svc, importer: importer, log: log.With("component", "api")}
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.log.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeJSON(w, status, errorBody("internal error"))
		return
	}
	writeJSON(w, status, errorBody(err.Error()))
}

// ListLists handles GET /api/lists. With ?user_id= each list carries that
// learner's mastery.
func (h *Handler) ListLists(w http.ResponseWriter, r *http.Request) {
	lists, err := h.svc.Lists(r.Context(), r.URL.Query().Get("user_id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"lists": lists})
}

// GetList handles GET /api/lists/{listID}.
func (h *Handler) GetList(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.List(r.Context(), chi.URLParam(r, "listID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// ListEntries handles GET /api/lists/{listID}/entries.
func (h *Handler) ListEntries(w http.ResponseWriter, r *http.Request) {
	entries, err := h.svc.Entries(r.Context(), chi.URLParam(r, "listID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

// SearchEntries handles GET /api/entries?q=&limit=.
func (h *Handler) SearchEntries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if strings.TrimSpace(q) == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("q is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

// GetExample handles GET /api/entries/{entryID}/example?session_id=.
// An empty sentence means no example could be generated.
func (h *Handler) GetExample(w http.ResponseWriter, r *http.Request) {
	entryID := chi.URLParam(r, "entryID")
	sentence, err := h.svc.Example(r.Context(), entryID, r.URL.Query().Get("session_id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, exampleResponse{EntryID: entryID, Sentence: sentence})
}

// StartQuiz handles POST /api/users/{userID}/quizzes.
func (h *Handler) StartQuiz(w http.ResponseWriter, r *http.Request) {
	var req startQuizRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.ListID == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("list_id is required"))
		return
	}

	sess, err := h.svc.StartQuiz(r.Context(), chi.URLParam(r, "userID"), req.ListID, req.Questions)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newSessionView(sess))
}

// GetQuiz handles GET /api/users/{userID}/quizzes/{sessionID}.
func (h *Handler) GetQuiz(w http.ResponseWriter, r *http.Request) {
	sess, err := h.svc.Session(r.Context(), chi.URLParam(r, "sessionID"), chi.URLParam(r, "userID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newSessionView(sess))
}

// AnswerQuiz handles POST /api/users/{userID}/quizzes/{sessionID}/answers.
func (h *Handler) AnswerQuiz(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.OptionID == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("option_id is required"))
		return
	}

	res, err := h.svc.Answer(r.Context(), chi.URLParam(r, "sessionID"), chi.URLParam(r, "userID"), req.Question, req.OptionID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// GetProgress handles GET /api/users/{userID}/progress.
func (h *Handler) GetProgress(w http.ResponseWriter, r *http.Request) {
	progress, err := h.svc.Progress(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"progress": progress})
}

// GetHistory handles GET /api/users/{userID}/history?limit=.
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	history, err := h.svc.History(r.Context(), chi.URLParam(r, "userID"), limit)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"history": history})
}

// ListLearners handles GET /api/admin/learners.
func (h *Handler) ListLearners(w http.ResponseWriter, r *http.Request) {
	learners, err := h.svc.Learners(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"learners": learners})
}

// Import handles POST /api/admin/imports. The body is either CSV text, a
// raw XLSX workbook or a multipart form with a "file" field.
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBytes)

	data, name, err := readUpload(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	var report *ingest.Report
	if excel.IsWorkbook(name) || strings.HasPrefix(r.Header.Get("Content-Type"), workbookContentType) {
		report, err = h.importer.ImportWorkbook(r.Context(), bytes.NewReader(data), nil)
	} else {
		report, err = h.importer.ImportText(r.Context(), string(data), nil)
	}
	if err != nil {
		status := statusFor(err)
		h.log.Warn("import failed", "file", name, "status", status, "error", err)
		writeJSON(w, status, map[string]any{"error": err.Error(), "report": report})
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// readUpload returns the uploaded bytes and, for multipart uploads, the file name
func readUpload(r *http.Request) ([]byte, string, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		file, header, err := r.FormFile("file")
		if err != nil {
			return nil, "", err
		}
		defer file.Close()
		data, err := io.ReadAll(file)
		return data, header.Filename, err
	}
	data, err := io.ReadAll(r.Body)
	return data, "", err
}
