// Package editor backs the JSON text areas used to compose drafts: comment
// stripping, default documents, required-field checks and parent annotation.
package editor

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"sitefinity-mcp-server/internal/sitefinity"
)

// Draft describes the editor for one create tool.
type Draft struct {
	Tool string
	// ParentTool lists the containers; empty when the item needs no parent.
	ParentTool string
	// ParentLabel names ParentTool in messages, e.g. "Parent Blogs".
	ParentLabel  string
	ParentNoun   string
	ParentPlural string
	// Target completes "to create ..." in the no-parents warning.
	Target   string
	Defaults map[string]any
}

// Placeholder is the parent_id value of a fresh document.
func (d Draft) Placeholder() string {
	if d.ParentTool == "" {
		return ""
	}
	return "REQUIRED - Use the " + d.ParentLabel + " tool to get a valid ID"
}

var drafts = map[string]Draft{
	"createBlogPostDraft": {
		Tool: "createBlogPostDraft", ParentTool: "getParentBlogs",
		ParentLabel: "Parent Blogs", ParentNoun: "parent blog", ParentPlural: "parent blogs", Target: "a post",
		Defaults: map[string]any{"title": "", "content": "", "summary": "", "allow_comments": true, "draft": true},
	},
	"createNewsItemDraft": {
		Tool:     "createNewsItemDraft",
		Defaults: map[string]any{"title": "", "content": "", "summary": "", "author": "", "draft": true},
	},
	"createListItemDraft": {
		Tool: "createListItemDraft", ParentTool: "getParentLists",
		ParentLabel: "Parent Lists", ParentNoun: "parent list", ParentPlural: "parent lists", Target: "a list item",
		Defaults: map[string]any{"title": "", "content": "", "draft": true},
	},
	"createEventDraft": {
		Tool: "createEventDraft", ParentTool: "getCalendars",
		ParentLabel: "Calendars", ParentNoun: "calendar", ParentPlural: "calendars", Target: "an event",
		Defaults: map[string]any{
			"title": "", "summary": "", "content": "",
			"eventstart": "YYYY-MM-DDTHH:MM:SSZ", "eventend": "YYYY-MM-DDTHH:MM:SSZ", "draft": true,
		},
	},
	"createImageDraft": {
		Tool: "createImageDraft", ParentTool: "getAlbums",
		ParentLabel: "Albums", ParentNoun: "album", ParentPlural: "albums", Target: "an image",
		Defaults: map[string]any{"title": "", "alternative_text": "", "draft": true},
	},
	"createDocumentDraft": {
		Tool: "createDocumentDraft", ParentTool: "getDocumentLibraries",
		ParentLabel: "Document Libraries", ParentNoun: "document library", ParentPlural: "document libraries", Target: "a document",
		Defaults: map[string]any{"title": "", "content": "", "summary": "", "draft": true},
	},
	"createVideoDraft": {
		Tool: "createVideoDraft", ParentTool: "getVideoLibraries",
		ParentLabel: "Video Libraries", ParentNoun: "video library", ParentPlural: "video libraries", Target: "a video",
		Defaults: map[string]any{"title": "", "content": "", "draft": true},
	},
}

// Lookup returns the editor registered for a create tool.
func Lookup(tool string) (Draft, bool) {
	d, ok := drafts[tool]
	return d, ok
}

// Tools lists every create tool with an editor, sorted.
func Tools() []string {
	out := make([]string, 0, len(drafts))
	for name := range drafts {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// ValidationError reports a missing or malformed editor field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// StripComments removes /* */ and // comments that sit outside JSON strings.
// Line comments keep their terminating newline.
func StripComments(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	inString, escaped := false, false
	for i := 0; i < len(text); i++ {
		c := text[i]
		if inString {
			b.WriteByte(c)
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		if c == '"' {
			inString = true
			b.WriteByte(c)
			continue
		}
		if c == '/' && i+1 < len(text) {
			switch text[i+1] {
			case '*':
				end := strings.Index(text[i+2:], "*/")
				if end < 0 {
					return b.String()
				}
				i += end + 3
				continue
			case '/':
				nl := strings.IndexByte(text[i:], '\n')
				if nl < 0 {
					return b.String()
				}
				i += nl - 1
				continue
			}
		}
		b.WriteByte(c)
	}
	return b.String()
}

// Decode strips comments and parses the editor text as a JSON object.
func Decode(text string) (map[string]any, error) {
	var data map[string]any
	if err := json.Unmarshal([]byte(StripComments(text)), &data); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	if data == nil {
		return nil, errors.New("invalid JSON: expected an object")
	}
	return data, nil
}

// Template returns a fresh document for tool.
func Template(tool string) (map[string]any, error) {
	d, ok := drafts[tool]
	if !ok {
		return nil, fmt.Errorf("no editor for tool %q", tool)
	}
	doc := make(map[string]any, len(d.Defaults)+1)
	for k, v := range d.Defaults {
		doc[k] = v
	}
	if d.ParentTool != "" {
		doc["parent_id"] = d.Placeholder()
	}
	return doc, nil
}

// Current decodes the editor text, falling back to the default document when
// the text does not parse.
func Current(tool, text string) (map[string]any, error) {
	if data, err := Decode(text); err == nil {
		return data, nil
	}
	return Template(tool)
}

// Validate checks the fields a create tool cannot do without.
func Validate(tool string, data map[string]any) error {
	d, ok := drafts[tool]
	if !ok {
		return fmt.Errorf("no editor for tool %q", tool)
	}
	if title, _ := data["title"].(string); strings.TrimSpace(title) == "" {
		return &ValidationError{Field: "title", Message: "Title (title) is required."}
	}
	if d.ParentTool == "" {
		return nil
	}
	parentID, _ := data["parent_id"].(string)
	parentID = strings.TrimSpace(parentID)
	if parentID == "" || parentID == d.Placeholder() {
		return &ValidationError{
			Field:   "parent_id",
			Message: fmt.Sprintf("%s ID (parent_id) is required. Please use the %s tool to get a valid ID.", capitalize(d.ParentNoun), d.ParentLabel),
		}
	}
	if _, err := uuid.Parse(parentID); err != nil {
		return &ValidationError{
			Field:   "parent_id",
			Message: fmt.Sprintf("%s ID (parent_id) must be a GUID, got %q.", capitalize(d.ParentNoun), parentID),
		}
	}
	return nil
}

// Annotate selects the first parent and prefixes the document with a comment
// listing every candidate. With no parents it prefixes a warning instead.
func Annotate(tool string, data map[string]any, parents sitefinity.ParentList) (string, error) {
	d, ok := drafts[tool]
	if !ok {
		return "", fmt.Errorf("no editor for tool %q", tool)
	}
	if data == nil {
		data = map[string]any{}
	}

	var header strings.Builder
	switch {
	case d.ParentTool == "":
	case len(parents) == 0:
		fmt.Fprintf(&header, "/* WARNING: No %s found. You need a %s to create %s. */\n", d.ParentPlural, d.ParentNoun, d.Target)
	default:
		data["parent_id"] = parents[0].ID
		fmt.Fprintf(&header, "/* Available %s:\n", d.ParentPlural)
		for i, p := range parents {
			selected := ""
			if i == 0 {
				selected = " (SELECTED)"
			}
			fmt.Fprintf(&header, "%s%s: %s\n", sanitizeComment(p.Title), selected, p.ID)
		}
		header.WriteString("*/\n")
	}

	body, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding editor document: %w", err)
	}
	return header.String() + string(body), nil
}

// sanitizeComment keeps a title from closing the surrounding block comment.
func sanitizeComment(s string) string {
	return strings.ReplaceAll(s, "*/", "* /")
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
