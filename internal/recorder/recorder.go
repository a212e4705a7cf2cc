// Package recorder writes a JSONL trace of tool runs with simple rotation.
package recorder

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

const (
	DefaultMaxRotated = 3
	DefaultDir        = "traces"
)

// Event types written by the tool server.
const (
	EventToolCall     = "tool_call"
	EventToolError    = "tool_error"
	EventDraftCreated = "draft_created"
)

// Event is a single trace line.
type Event struct {
	Timestamp time.Time `json:"ts"`
	Type      string    `json:"type"`
	Tool      string    `json:"tool,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
	Data      any       `json:"data,omitempty"`
}

// Recorder owns one open trace file at a time.
type Recorder struct {
	mu         sync.Mutex
	file       *os.File
	encoder    *json.Encoder
	dir        string
	maxRotated int
	now        func() time.Time
}

// New creates the trace directory. maxRotated <= 0 means DefaultMaxRotated.
func New(dir string, maxRotated int) (*Recorder, error) {
	if dir == "" {
		dir = DefaultDir
	}
	if maxRotated <= 0 {
		maxRotated = DefaultMaxRotated
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create trace dir: %w", err)
	}
	return &Recorder{dir: dir, maxRotated: maxRotated, now: time.Now}, nil
}

// Start opens a fresh trace file named after runID, pruning older traces so
// at most maxRotated remain afterwards.
func (r *Recorder) Start(runID string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.file != nil {
		_ = r.file.Close()
		r.file, r.encoder = nil, nil
	}

	if err := r.rotate(); err != nil {
		return "", fmt.Errorf("rotate traces: %w", err)
	}

	name := fmt.Sprintf("trace_%s_%d.jsonl", sanitize(runID), r.now().UnixMilli())
	path := filepath.Join(r.dir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	r.file = f
	r.encoder = json.NewEncoder(f)
	return path, nil
}

// Log appends an event. It is a no-op on a nil or unstarted recorder.
func (r *Recorder) Log(eventType, tool, requestID string, data any) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.encoder == nil {
		return
	}
	_ = r.encoder.Encode(Event{
		Timestamp: r.now().UTC(),
		Type:      eventType,
		Tool:      tool,
		RequestID: requestID,
		Data:      data,
	})
}

// rotate keeps the newest maxRotated-1 traces, leaving room for the next one.
func (r *Recorder) rotate() error {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return err
	}

	type trace struct {
		name    string
		modTime time.Time
	}
	var traces []trace
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".jsonl" {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		traces = append(traces, trace{e.Name(), info.ModTime()})
	}

	sort.Slice(traces, func(i, j int) bool {
		if traces[i].modTime.Equal(traces[j].modTime) {
			return traces[i].name > traces[j].name
		}
		return traces[i].modTime.After(traces[j].modTime)
	})

	keep := r.maxRotated - 1
	for i := keep; i < len(traces); i++ {
		_ = os.Remove(filepath.Join(r.dir, traces[i].name))
	}
	return nil
}

// Close finishes the current trace.
func (r *Recorder) Close() error {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file, r.encoder = nil, nil
	return err
}

func sanitize(id string) string {
	return strings.Map(func(c rune) rune {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-':
			return c
		}
		return '_'
	}, id)
}
