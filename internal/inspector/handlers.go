package inspector

import (
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"sitefinity-mcp-server/internal/correlation"
	"sitefinity-mcp-server/internal/editor"
	"sitefinity-mcp-server/internal/mcp"
	"sitefinity-mcp-server/internal/render"
	"sitefinity-mcp-server/internal/sitefinity"
)

const maxBodyBytes = 1 << 20

type runToolRequest struct {
	Name   string                 `json:"name"`
	Params map[string]interface{} `json:"params"`
}

type editorRequest struct {
	Text string `json:"text"`
}

type notification struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

type response struct {
	Result       any           `json:"result,omitempty"`
	HTML         string        `json:"html,omitempty"`
	Text         string        `json:"text,omitempty"`
	Detail       string        `json:"detail,omitempty"`
	Notification *notification `json:"notification,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy", "version": s.version})
}

func (s *Server) handleListTools(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]mcp.ToolInfo{"tools": s.tools.Tools()})
}

func (s *Server) handleRunTool(w http.ResponseWriter, r *http.Request) {
	var req runToolRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, response{Detail: "Invalid request body: " + err.Error()})
		return
	}
	if !s.tools.HasTool(req.Name) {
		writeJSON(w, http.StatusNotFound, response{Detail: "Unknown tool: " + req.Name})
		return
	}

	result, err := s.tools.ExecuteTool(r.Context(), req.Name, req.Params)
	if err != nil {
		s.logToolError(r, req.Name, err)
		resp := response{Detail: "Error running tool: " + err.Error()}
		if _, isDraft := editor.Lookup(req.Name); isDraft {
			resp.HTML = string(s.renderer.DraftError(req.Name, err.Error()))
		}
		writeJSON(w, http.StatusInternalServerError, resp)
		return
	}

	writeJSON(w, http.StatusOK, response{Result: result, HTML: string(s.renderResult(req.Name, result))})
}

// handleEditor returns the editor document for a draft tool with parent_id
// filled from the parent listing. POST bodies carry the current editor text,
// which is kept when it parses.
func (s *Server) handleEditor(w http.ResponseWriter, r *http.Request) {
	tool := chi.URLParam(r, "tool")
	d, ok := editor.Lookup(tool)
	if !ok {
		writeJSON(w, http.StatusNotFound, response{Detail: "Unknown draft tool: " + tool})
		return
	}

	var req editorRequest
	if r.Method == http.MethodPost {
		if err := decodeBody(r, &req); err != nil {
			writeJSON(w, http.StatusBadRequest, response{Detail: "Invalid request body: " + err.Error()})
			return
		}
	}
	data, err := editor.Current(tool, req.Text)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, response{Detail: err.Error()})
		return
	}

	var (
		parents sitefinity.ParentList
		html    string
	)
	if d.ParentTool != "" {
		result, err := s.tools.ExecuteTool(r.Context(), d.ParentTool, nil)
		if err != nil {
			s.logToolError(r, d.ParentTool, err)
			writeJSON(w, http.StatusBadGateway, response{
				Detail:       fmt.Sprintf("Error loading %s: %v", d.ParentPlural, err),
				Notification: &notification{Level: "error", Message: "Could not load " + d.ParentPlural},
			})
			return
		}
		parents, _ = result.(sitefinity.ParentList)
		html = string(s.renderer.Result(d.ParentTool, parents))
	}

	text, err := editor.Annotate(tool, data, parents)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, response{Detail: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, response{Text: text, HTML: html})
}

// handleDraft creates a draft from editor text: strip comments, decode,
// validate, then run the tool.
func (s *Server) handleDraft(w http.ResponseWriter, r *http.Request) {
	tool := chi.URLParam(r, "tool")
	if _, ok := editor.Lookup(tool); !ok || !s.tools.HasTool(tool) {
		writeJSON(w, http.StatusNotFound, response{Detail: "Unknown draft tool: " + tool})
		return
	}
	noun := draftNoun(tool)

	var req editorRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, response{Detail: "Invalid request body: " + err.Error()})
		return
	}

	data, err := editor.Decode(req.Text)
	if err == nil {
		err = editor.Validate(tool, data)
	}
	if err != nil {
		s.draftFailure(w, tool, http.StatusUnprocessableEntity, err.Error())
		return
	}

	result, err := s.tools.ExecuteTool(r.Context(), tool, data)
	if err != nil {
		s.logToolError(r, tool, err)
		status := http.StatusInternalServerError
		if editor.IsValidation(err) {
			status = http.StatusUnprocessableEntity
		}
		s.draftFailure(w, tool, status, err.Error())
		return
	}

	item := toItem(result)
	if item.ID() == "" {
		msg := noun + " created but no ID was returned. Check results for details."
		writeJSON(w, http.StatusInternalServerError, response{
			Result:       result,
			Detail:       msg,
			HTML:         string(s.renderer.Raw(result)),
			Notification: &notification{Level: "error", Message: msg},
		})
		return
	}

	writeJSON(w, http.StatusOK, response{
		Result:       result,
		HTML:         string(s.renderer.Created(tool, item)),
		Notification: &notification{Level: "success", Message: noun + " draft created successfully!"},
	})
}

func (s *Server) draftFailure(w http.ResponseWriter, tool string, status int, message string) {
	writeJSON(w, status, response{
		Detail:       message,
		HTML:         string(s.renderer.DraftError(tool, message)),
		Notification: &notification{Level: "error", Message: message},
	})
}

// renderResult uses the created view for successful draft tools and the
// registered list or parent view for everything else.
func (s *Server) renderResult(tool string, result any) template.HTML {
	if _, isDraft := editor.Lookup(tool); isDraft {
		if item := toItem(result); item != nil {
			return s.renderer.Created(tool, item)
		}
	}
	return s.renderer.Result(tool, result)
}

func (s *Server) logToolError(r *http.Request, tool string, err error) {
	s.logger.Warn("tool run failed",
		zap.String("tool", tool),
		zap.String("request_id", correlation.RequestIDFromContext(r.Context())),
		zap.Error(err))
}

func draftNoun(tool string) string {
	if dv, ok := render.DraftViewFor(tool); ok {
		return dv.Noun
	}
	return "Item"
}

func toItem(result any) sitefinity.Item {
	switch v := result.(type) {
	case sitefinity.Item:
		return v
	case map[string]any:
		return sitefinity.Item(v)
	}
	return nil
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("empty body")
		}
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(data)
}
