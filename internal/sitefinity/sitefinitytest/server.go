// Package sitefinitytest provides an in-memory Sitefinity OData fake for tests.
package sitefinitytest

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Request is a recorded call to the fake.
type Request struct {
	Method  string
	Service string
	Path    string
	Query   string
	Header  http.Header
	Body    map[string]any
}

// Server serves /api/default/<set> and /sf/system/<set>.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	sets     map[string][]map[string]any
	requests []Request
	failures []int
	omitID   bool
}

// NewServer starts a fake. Call Close when done.
func NewServer() *Server {
	s := &Server{sets: map[string][]map[string]any{}}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

// Seed replaces the contents of an entity set.
func (s *Server) Seed(set string, items ...map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sets[set] = append([]map[string]any(nil), items...)
}

// Items returns a copy of an entity set.
func (s *Server) Items(set string) []map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]map[string]any(nil), s.sets[set]...)
}

// FailNext makes the next len(statuses) requests fail with those statuses.
func (s *Server) FailNext(statuses ...int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, statuses...)
}

// OmitCreatedID makes creates answer without an Id field.
func (s *Server) OmitCreatedID(omit bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.omitID = omit
}

// Requests returns every call seen so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// LastRequest returns the most recent call.
func (s *Server) LastRequest() Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.requests) == 0 {
		return Request{}
	}
	return s.requests[len(s.requests)-1]
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	service, rest := splitService(r.URL.Path)

	req := Request{
		Method:  r.Method,
		Service: service,
		Path:    rest,
		Query:   r.URL.RawQuery,
		Header:  r.Header.Clone(),
	}
	if r.Body != nil {
		raw, _ := io.ReadAll(r.Body)
		if len(raw) > 0 {
			_ = json.Unmarshal(raw, &req.Body)
		}
	}

	s.mu.Lock()
	s.requests = append(s.requests, req)
	var fail int
	if len(s.failures) > 0 {
		fail = s.failures[0]
		s.failures = s.failures[1:]
	}
	s.mu.Unlock()

	if fail != 0 {
		writeError(w, fail, "injected failure")
		return
	}
	if service == "" {
		writeError(w, http.StatusNotFound, "unknown service")
		return
	}

	set, key := splitKey(rest)
	switch {
	case r.Method == http.MethodGet && key == "":
		s.list(w, r, set)
	case r.Method == http.MethodGet:
		s.item(w, set, key)
	case r.Method == http.MethodPost && key == "":
		s.create(w, set, req.Body)
	default:
		writeError(w, http.StatusMethodNotAllowed, "unsupported")
	}
}

func (s *Server) list(w http.ResponseWriter, r *http.Request, set string) {
	s.mu.Lock()
	items := append([]map[string]any(nil), s.sets[set]...)
	s.mu.Unlock()

	q := r.URL.Query()
	if skip, err := strconv.Atoi(q.Get("$skip")); err == nil && skip > 0 {
		if skip > len(items) {
			skip = len(items)
		}
		items = items[skip:]
	}
	if top, err := strconv.Atoi(q.Get("$top")); err == nil && top >= 0 && top < len(items) {
		items = items[:top]
	}
	if items == nil {
		items = []map[string]any{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"value": items})
}

func (s *Server) item(w http.ResponseWriter, set, key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, it := range s.sets[set] {
		if id, _ := it["Id"].(string); id == key {
			writeJSON(w, http.StatusOK, it)
			return
		}
	}
	writeError(w, http.StatusNotFound, "not found")
}

func (s *Server) create(w http.ResponseWriter, set string, body map[string]any) {
	if body == nil {
		writeError(w, http.StatusBadRequest, "body required")
		return
	}
	created := map[string]any{}
	for k, v := range body {
		created[k] = v
	}

	s.mu.Lock()
	omit := s.omitID
	if !omit {
		created["Id"] = uuid.NewString()
		if title, ok := created["Title"].(string); ok {
			created["ItemDefaultUrl"] = "/" + set + "/" + strings.ToLower(strings.ReplaceAll(title, " ", "-"))
		}
	}
	s.sets[set] = append(s.sets[set], created)
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, created)
}

func splitService(path string) (string, string) {
	for _, prefix := range []string{"/api/default/", "/sf/system/"} {
		if strings.HasPrefix(path, prefix) {
			return strings.Trim(prefix, "/"), strings.TrimPrefix(path, prefix)
		}
	}
	return "", path
}

// splitKey turns "blogposts(abc)" into ("blogposts", "abc").
func splitKey(rest string) (string, string) {
	open := strings.IndexByte(rest, '(')
	if open < 0 || !strings.HasSuffix(rest, ")") {
		return rest, ""
	}
	return rest[:open], strings.Trim(rest[open+1:len(rest)-1], "'")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"error": map[string]string{"message": msg}})
}
