// Package scrapeapitest provides an in-process fake of the scrape backend
// for tests. Status responses are scripted per job and replayed in order.
package scrapeapitest

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/sells-group/pricescrape/pkg/scrapeapi"
)

// Upload records a received submission.
type Upload struct {
	Filename string
	Content  []byte
	Email    string
}

// Step is one scripted reply of the status endpoint. A non-zero Code makes
// the server answer with that HTTP status and no JSON body.
type Step struct {
	Code   int
	Status scrapeapi.StatusResponse
}

// Server is a scripted fake backend.
type Server struct {
	*httptest.Server

	mu          sync.Mutex
	jobID       string
	submitCode  int
	submitError string
	steps       map[string][]Step
	uploads     []Upload
	submits     int
	polls       map[string]int
}

// NewServer starts a fake backend that hands out jobID on submit.
// The server is closed on test cleanup.
func NewServer(t testing.TB, jobID string) *Server {
	t.Helper()
	s := &Server{
		jobID: jobID,
		steps: make(map[string][]Step),
		polls: make(map[string]int),
	}

	r := chi.NewRouter()
	r.Post("/api/scrape", s.handleSubmit)
	r.Get("/api/status/{jobID}", s.handleStatus)

	s.Server = httptest.NewServer(r)
	t.Cleanup(s.Close)
	return s
}

// SetJobID changes the id handed out by later submissions.
func (s *Server) SetJobID(jobID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobID = jobID
}

// FailSubmit makes the submit endpoint answer with code. A non-empty msg is
// sent as the JSON "error" field.
func (s *Server) FailSubmit(code int, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submitCode = code
	s.submitError = msg
}

// Script appends status replies for jobID. Once the script runs out the
// last step is repeated.
func (s *Server) Script(jobID string, steps ...Step) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.steps[jobID] = append(s.steps[jobID], steps...)
}

// Submits returns how many submissions reached the server.
func (s *Server) Submits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.submits
}

// Polls returns how many status requests for jobID reached the server.
func (s *Server) Polls(jobID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.polls[jobID]
}

// Uploads returns the submissions received so far.
func (s *Server) Uploads() []Upload {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Upload, len(s.uploads))
	copy(out, s.uploads)
	return out
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.submits++
	code, msg := s.submitCode, s.submitError
	s.mu.Unlock()

	if code != 0 {
		writeJSON(w, code, map[string]string{"error": msg})
		return
	}

	if err := r.ParseMultipartForm(10 << 20); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid multipart body"})
		return
	}
	f, hdr, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "No file provided"})
		return
	}
	defer f.Close() //nolint:errcheck
	content, err := io.ReadAll(f)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unreadable file"})
		return
	}

	s.mu.Lock()
	s.uploads = append(s.uploads, Upload{
		Filename: hdr.Filename,
		Content:  content,
		Email:    r.FormValue("email"),
	})
	jobID := s.jobID
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, scrapeapi.SubmitResponse{JobID: jobID})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")

	s.mu.Lock()
	s.polls[jobID]++
	steps := s.steps[jobID]
	var step Step
	switch {
	case len(steps) == 0:
		s.mu.Unlock()
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Job not found"})
		return
	case len(steps) == 1:
		step = steps[0]
	default:
		step = steps[0]
		s.steps[jobID] = steps[1:]
	}
	s.mu.Unlock()

	if step.Code != 0 {
		w.WriteHeader(step.Code)
		return
	}
	writeJSON(w, http.StatusOK, step.Status)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// Running is a convenience in-progress step.
func Running(current, total int, msg string) Step {
	return Step{Status: scrapeapi.StatusResponse{
		Status:   "running",
		Progress: scrapeapi.Progress{Current: current, Total: total},
		Message:  msg,
	}}
}

// Completed is a convenience completion step.
func Completed(total int) Step {
	return Step{Status: scrapeapi.StatusResponse{
		Status:   scrapeapi.StatusCompleted,
		Progress: scrapeapi.Progress{Current: total, Total: total},
		Message:  "Done",
	}}
}

// Failed is a convenience error step carrying msg.
func Failed(msg string) Step {
	return Step{Status: scrapeapi.StatusResponse{
		Status:  scrapeapi.StatusError,
		Message: msg,
	}}
}

// TransportError is a step that answers with HTTP 502 and no body.
func TransportError() Step {
	return Step{Code: http.StatusBadGateway}
}
