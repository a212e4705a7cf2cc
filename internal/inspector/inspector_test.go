package inspector

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"sitefinity-mcp-server/internal/config"
	"sitefinity-mcp-server/internal/mcp"
	"sitefinity-mcp-server/internal/sitefinity"
	"sitefinity-mcp-server/internal/sitefinity/sitefinitytest"
)

const (
	blogID     = "6f1c2d3e-4b5a-4c6d-8e9f-0a1b2c3d4e5f"
	otherBlog  = "0b8a7c6d-1e2f-4a3b-9c8d-7e6f5a4b3c2d"
	testAPIKey = "s3cret"
)

type fixture struct {
	handler http.Handler
	fake    *sitefinitytest.Server
}

func newFixture(t *testing.T, mutate func(*config.Config)) fixture {
	t.Helper()
	fake := sitefinitytest.NewServer()
	t.Cleanup(fake.Close)

	cfg := config.DefaultConfig()
	cfg.Sitefinity.SitePrefix = fake.URL
	cfg.Sitefinity.Retry = config.RetryConfig{MaxAttempts: 1, MinWait: "1ms", MaxWait: "1ms"}
	if mutate != nil {
		mutate(&cfg)
	}

	tools, err := mcp.NewServer(cfg, sitefinity.NewClient(cfg.Sitefinity),
		mcp.WithClock(func() time.Time { return time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC) }))
	require.NoError(t, err)

	srv := New(cfg, tools, WithMCPHandler(cfg.MCP.GetHTTPPath(), tools.HTTPHandler()))
	return fixture{handler: srv.Handler(), fake: fake}
}

func (f fixture) do(t *testing.T, method, path string, body any, header http.Header) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	var decoded map[string]any
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded), rec.Body.String())
	}
	return rec, decoded
}

func TestHealth(t *testing.T) {
	f := newFixture(t, nil)
	rec, body := f.do(t, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, config.DefaultConfig().Server.Version, body["version"])
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))
}

func TestRequestIDIsReused(t *testing.T) {
	f := newFixture(t, nil)
	rec, _ := f.do(t, http.MethodGet, "/health", nil, http.Header{"X-Request-Id": {"Trace-ABC-123"}})
	assert.Equal(t, "trace-abc-123", rec.Header().Get(requestIDHeader))
}

func TestListTools(t *testing.T) {
	f := newFixture(t, nil)
	rec, body := f.do(t, http.MethodGet, "/api/list-tools", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	tools := body["tools"].([]any)
	assert.Len(t, tools, 29)
	first := tools[0].(map[string]any)
	assert.Equal(t, "getNews", first["name"])
	assert.NotEmpty(t, first["description"])
}

func TestRunTool(t *testing.T) {
	f := newFixture(t, nil)
	f.fake.Seed("newsitems", map[string]any{"Id": "n1", "Title": "Launch <b>day</b>", "Author": "Comms"})

	rec, body := f.do(t, http.MethodPost, "/api/run-tool", map[string]any{"name": "getNews", "params": map[string]any{}}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, body["result"], "Title: Launch <b>day</b>")
	html := body["html"].(string)
	assert.Contains(t, html, `<div class="formatted-results">`)
	assert.Contains(t, html, "Launch &lt;b&gt;day&lt;/b&gt;")
	assert.Contains(t, html, "Comms")
}

func TestRunToolParents(t *testing.T) {
	f := newFixture(t, nil)
	f.fake.Seed("calendars", map[string]any{"Id": "c1", "Title": "Main"})

	rec, body := f.do(t, http.MethodPost, "/api/run-tool", map[string]any{"name": "getCalendars"}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{"c1": "Main"}, body["result"])
	assert.Contains(t, body["html"], "Available Calendars")
}

func TestRunToolUnknown(t *testing.T) {
	f := newFixture(t, nil)
	rec, body := f.do(t, http.MethodPost, "/api/run-tool", map[string]any{"name": "getWidgets"}, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Unknown tool: getWidgets", body["detail"])
}

func TestRunToolBadBody(t *testing.T) {
	f := newFixture(t, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/run-tool", strings.NewReader("{"))
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRunToolFailure(t *testing.T) {
	f := newFixture(t, nil)
	f.fake.FailNext(http.StatusInternalServerError)

	rec, body := f.do(t, http.MethodPost, "/api/run-tool", map[string]any{"name": "getPages"}, nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.True(t, strings.HasPrefix(body["detail"].(string), "Error running tool: listing pages:"), body["detail"])
	assert.NotContains(t, body, "html")

	rec, body = f.do(t, http.MethodPost, "/api/run-tool", map[string]any{
		"name":   "createListItemDraft",
		"params": map[string]any{"title": "x"},
	}, nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, body["html"], "List item creation failed.")
	assert.Contains(t, body["html"], "Make sure you&#39;ve provided a valid parent list ID")
}

func TestRunToolDraftRendersCreatedView(t *testing.T) {
	f := newFixture(t, nil)

	rec, body := f.do(t, http.MethodPost, "/api/run-tool", map[string]any{
		"name":   "createBlogPostDraft",
		"params": map[string]any{"title": "Hello", "parent_id": blogID},
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, body["html"], "Blog post draft created successfully.")
}

func TestEditorAnnotatesParents(t *testing.T) {
	f := newFixture(t, nil)
	f.fake.Seed("blogs",
		map[string]any{"Id": blogID, "Title": "Company"},
		map[string]any{"Id": otherBlog, "Title": "Engineering"},
	)

	rec, body := f.do(t, http.MethodPost, "/api/editor/createBlogPostDraft", map[string]any{
		"text": "// keep my title\n{\"title\": \"Draft title\"}",
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	text := body["text"].(string)
	assert.True(t, strings.HasPrefix(text, "/* Available parent blogs:\nCompany (SELECTED): "+blogID+"\nEngineering: "+otherBlog+"\n*/\n"), text)
	assert.Contains(t, text, `"title": "Draft title"`)
	assert.Contains(t, text, `"parent_id": "`+blogID+`"`)
	assert.Contains(t, body["html"], "Available Parent Blogs")
}

func TestEditorWithoutParents(t *testing.T) {
	f := newFixture(t, nil)

	rec, body := f.do(t, http.MethodGet, "/api/editor/createImageDraft", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	text := body["text"].(string)
	assert.True(t, strings.HasPrefix(text, "/* WARNING: No albums found. You need a album to create an image. */\n"), text)
	assert.Contains(t, text, "REQUIRED - Use the Albums tool to get a valid ID")
}

func TestEditorParentFailure(t *testing.T) {
	f := newFixture(t, nil)
	f.fake.FailNext(http.StatusServiceUnavailable)

	rec, body := f.do(t, http.MethodGet, "/api/editor/createEventDraft", nil, nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.True(t, strings.HasPrefix(body["detail"].(string), "Error loading calendars:"), body["detail"])
}

func TestEditorUnknownTool(t *testing.T) {
	f := newFixture(t, nil)
	rec, _ := f.do(t, http.MethodGet, "/api/editor/getNews", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDraftCreated(t *testing.T) {
	f := newFixture(t, nil)

	text := "/* Available parent blogs:\nCompany (SELECTED): " + blogID + "\n*/\n{\n  \"title\": \"Hello World\", // inline\n  \"content\": \"<p>Hi</p>\",\n  \"parent_id\": \"" + blogID + "\"\n}"
	rec, body := f.do(t, http.MethodPost, "/api/drafts/createBlogPostDraft", map[string]any{"text": text}, nil)
	require.Equal(t, http.StatusOK, rec.Code, body)

	note := body["notification"].(map[string]any)
	assert.Equal(t, "success", note["level"])
	assert.Equal(t, "Blog post draft created successfully!", note["message"])
	assert.Contains(t, body["html"], "<h3>Hello World</h3>")
	assert.Contains(t, body["html"], "Draft")

	req := f.fake.LastRequest()
	assert.Equal(t, "sf/system", req.Service)
	assert.Equal(t, "hello-world", req.Body["UrlName"])
}

func TestDraftValidationErrors(t *testing.T) {
	f := newFixture(t, nil)

	tests := []struct {
		name   string
		tool   string
		text   string
		detail string
	}{
		{
			name:   "invalid json",
			tool:   "createBlogPostDraft",
			text:   "{title: nope}",
			detail: "invalid JSON:",
		},
		{
			name:   "placeholder parent",
			tool:   "createBlogPostDraft",
			text:   `{"title": "x", "parent_id": "REQUIRED - Use the Parent Blogs tool to get a valid ID"}`,
			detail: "Parent blog ID (parent_id) is required. Please use the Parent Blogs tool to get a valid ID.",
		},
		{
			name:   "bad event time",
			tool:   "createEventDraft",
			text:   `{"title": "x", "parent_id": "` + blogID + `", "eventstart": "soon", "eventend": "later"}`,
			detail: "failed to create event draft: Event time (eventstart) must be",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := f.do(t, http.MethodPost, "/api/drafts/"+tt.tool, map[string]any{"text": tt.text}, nil)
			assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
			assert.True(t, strings.HasPrefix(body["detail"].(string), tt.detail), body["detail"])
			assert.Equal(t, "error", body["notification"].(map[string]any)["level"])
			assert.Contains(t, body["html"], "alert error")
		})
	}
}

func TestDraftWithoutID(t *testing.T) {
	f := newFixture(t, nil)
	f.fake.OmitCreatedID(true)

	rec, body := f.do(t, http.MethodPost, "/api/drafts/createNewsItemDraft", map[string]any{"text": `{"title": "Press"}`}, nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "News item created but no ID was returned. Check results for details.", body["detail"])
	assert.Equal(t, "error", body["notification"].(map[string]any)["level"])
}

func TestDraftUpstreamFailure(t *testing.T) {
	f := newFixture(t, nil)
	f.fake.FailNext(http.StatusBadRequest)

	rec, body := f.do(t, http.MethodPost, "/api/drafts/createVideoDraft", map[string]any{
		"text": `{"title": "Clip", "parent_id": "` + blogID + `"}`,
	}, nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.True(t, strings.HasPrefix(body["detail"].(string), "failed to create video draft: sitefinity POST"), body["detail"])
	assert.Contains(t, body["html"], "Video Creation Error")
}

func TestAPIKey(t *testing.T) {
	f := newFixture(t, func(cfg *config.Config) { cfg.Inspector.APIKey = testAPIKey })

	rec, body := f.do(t, http.MethodGet, "/api/list-tools", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Missing or invalid API key", body["detail"])

	rec, _ = f.do(t, http.MethodGet, "/api/list-tools", nil, http.Header{"X-Api-Key": {testAPIKey}})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = f.do(t, http.MethodGet, "/api/list-tools", nil, http.Header{"Authorization": {"Bearer " + testAPIKey}})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = f.do(t, http.MethodPost, "/mcp", map[string]any{}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = f.do(t, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code, "health stays public")

	rec, _ = f.do(t, http.MethodGet, "/", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `id="api-key"`)
}

func TestCORS(t *testing.T) {
	f := newFixture(t, func(cfg *config.Config) {
		cfg.Inspector.CORSOrigins = []string{"https://editor.example.com/"}
	})

	rec, _ := f.do(t, http.MethodOptions, "/api/run-tool", nil, http.Header{"Origin": {"https://editor.example.com"}})
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://editor.example.com", rec.Header().Get("Access-Control-Allow-Origin"))

	rec, _ = f.do(t, http.MethodGet, "/health", nil, http.Header{"Origin": {"https://evil.example.com"}})
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))

	f = newFixture(t, nil)
	rec, _ = f.do(t, http.MethodGet, "/health", nil, http.Header{"Origin": {"https://any.example.com"}})
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestIndexPage(t *testing.T) {
	f := newFixture(t, nil)

	rec, _ := f.do(t, http.MethodGet, "/", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	page := rec.Body.String()

	assert.Contains(t, page, "<details open><summary>Content</summary>")
	assert.Contains(t, page, `data-tool="getNews"`)
	assert.Contains(t, page, `id="editor-createEventDraft"`)
	assert.Contains(t, page, "Load Calendars")
	assert.Contains(t, page, `<span class="toggle-text">Show Results</span> <span class="toggle-icon">↑</span>`)
	assert.Contains(t, page, "'Hide Results'")
	assert.Contains(t, page, `id="notification"`)
	assert.Contains(t, page, "const toastWait= 5000 ;")
	assert.NotContains(t, page, `id="api-key"`)
	assert.Contains(t, page, "<code>/mcp</code>")

	// news items have no parent, so no load button
	assert.NotContains(t, page, `class="secondary load" data-tool="createNewsItemDraft"`)
}

func TestRecovererReturnsJSON(t *testing.T) {
	h := recoverer(zap.NewNop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") }))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Internal server error")
}
