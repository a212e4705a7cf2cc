package mcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	"sitefinity-mcp-server/internal/editor"
	"sitefinity-mcp-server/internal/sitefinity"
)

// eventLayouts are accepted for eventstart/eventend. Values without a zone
// are taken as UTC.
var eventLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

type draftSpec struct {
	name        string
	contentType string
	description string
	// extra adds the type-specific fields to the payload.
	extra func(args map[string]interface{}, payload map[string]any) error
}

var draftTools = []draftSpec{
	{
		name:        "createBlogPostDraft",
		contentType: "blogposts",
		description: "Create a blog post as a draft. parent_id must come from getParentBlogs.",
		extra: func(args map[string]interface{}, p map[string]any) error {
			p["Content"] = getStringArg(args, "content")
			p["Summary"] = getStringArg(args, "summary")
			p["AllowComments"] = getBoolArg(args, "allow_comments", true)
			p["IncludeInSitemap"] = true
			return nil
		},
	},
	{
		name:        "createNewsItemDraft",
		contentType: "news",
		description: "Create a news item as a draft.",
		extra: func(args map[string]interface{}, p map[string]any) error {
			p["Content"] = getStringArg(args, "content")
			p["Summary"] = getStringArg(args, "summary")
			if author := getStringArg(args, "author"); author != "" {
				p["Author"] = author
			}
			return nil
		},
	},
	{
		name:        "createListItemDraft",
		contentType: "listitems",
		description: "Create a list item as a draft. parent_id must come from getParentLists.",
		extra: func(args map[string]interface{}, p map[string]any) error {
			p["Content"] = getStringArg(args, "content")
			return nil
		},
	},
	{
		name:        "createEventDraft",
		contentType: "events",
		description: "Create a calendar event as a draft. parent_id must come from getCalendars; eventstart and eventend are ISO 8601 times.",
		extra: func(args map[string]interface{}, p map[string]any) error {
			start, err := parseEventTime(args, "eventstart")
			if err != nil {
				return err
			}
			end, err := parseEventTime(args, "eventend")
			if err != nil {
				return err
			}
			if end.Before(start) {
				return &editor.ValidationError{Field: "eventend", Message: "Event end (eventend) must not be before event start (eventstart)."}
			}
			p["Summary"] = getStringArg(args, "summary")
			p["Content"] = getStringArg(args, "content")
			p["EventStart"] = start.Format(time.RFC3339)
			p["EventEnd"] = end.Format(time.RFC3339)
			delete(p, "PublicationDate")
			return nil
		},
	},
	{
		name:        "createImageDraft",
		contentType: "images",
		description: "Create an image record as a draft. parent_id must come from getAlbums.",
		extra: func(args map[string]interface{}, p map[string]any) error {
			if alt := getStringArg(args, "alternative_text"); alt != "" {
				p["AlternativeText"] = alt
			}
			return nil
		},
	},
	{
		name:        "createDocumentDraft",
		contentType: "documents",
		description: "Create a document record as a draft. parent_id must come from getDocumentLibraries.",
		extra: func(args map[string]interface{}, p map[string]any) error {
			p["Content"] = getStringArg(args, "content")
			p["Summary"] = getStringArg(args, "summary")
			p["IncludeInSitemap"] = true
			return nil
		},
	},
	{
		name:        "createVideoDraft",
		contentType: "videos",
		description: "Create a video record as a draft. parent_id must come from getVideoLibraries.",
		extra: func(args map[string]interface{}, p map[string]any) error {
			p["Content"] = getStringArg(args, "content")
			return nil
		},
	},
}

// CreateDraftTool validates its arguments, builds the OData payload and
// posts it. With draft=false the item is created through the content service
// instead of the management service.
type CreateDraftTool struct {
	spec   draftSpec
	client *sitefinity.Client
	now    func() time.Time
}

func (t *CreateDraftTool) Name() string        { return t.spec.name }
func (t *CreateDraftTool) Description() string { return t.spec.description }
func (t *CreateDraftTool) InputSchema() map[string]interface{} {
	props := map[string]interface{}{
		"title": stringProp("Title of the new item"),
		"draft": boolProp("Create as an unpublished draft (default true)"),
	}
	required := []string{"title"}

	d, _ := editor.Lookup(t.spec.name)
	for key := range d.Defaults {
		if _, ok := props[key]; ok {
			continue
		}
		switch key {
		case "allow_comments":
			props[key] = boolProp("Allow comments on the post (default true)")
		case "eventstart", "eventend":
			props[key] = stringProp("ISO 8601 time, e.g. 2024-05-01T09:00:00Z")
			required = append(required, key)
		default:
			props[key] = stringProp(strings.ReplaceAll(key, "_", " "))
		}
	}
	if d.ParentTool != "" {
		props["parent_id"] = stringProp("ID of the " + d.ParentNoun + "; use " + d.ParentTool + " to list them")
		required = append(required, "parent_id")
	}
	return objectSchema(props, required...)
}

func (t *CreateDraftTool) Execute(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	ct, err := sitefinity.Lookup(t.spec.contentType)
	if err != nil {
		return nil, err
	}
	item, err := t.create(ctx, ct, args)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s draft: %w", ct.Noun, err)
	}
	return item, nil
}

func (t *CreateDraftTool) create(ctx context.Context, ct sitefinity.ContentType, args map[string]interface{}) (sitefinity.Item, error) {
	if err := editor.Validate(t.spec.name, args); err != nil {
		return nil, err
	}

	title := strings.TrimSpace(getStringArg(args, "title"))
	payload := map[string]any{
		"Title":           title,
		"UrlName":         sitefinity.GenerateURLName(title, sitefinity.MaxURLNameLength),
		"PublicationDate": t.now().UTC().Format(time.RFC3339),
	}
	if parentID := strings.TrimSpace(getStringArg(args, "parent_id")); parentID != "" && ct.Parent != "" {
		payload["ParentId"] = parentID
	}
	if t.spec.extra != nil {
		if err := t.spec.extra(args, payload); err != nil {
			return nil, err
		}
	}

	return t.client.Create(ctx, ct, payload, getBoolArg(args, "draft", true))
}

func parseEventTime(args map[string]interface{}, key string) (time.Time, error) {
	raw := strings.TrimSpace(getStringArg(args, key))
	if raw == "" {
		return time.Time{}, &editor.ValidationError{Field: key, Message: fmt.Sprintf("Event time (%s) is required.", key)}
	}
	for _, layout := range eventLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, &editor.ValidationError{
		Field:   key,
		Message: fmt.Sprintf("Event time (%s) must be an ISO 8601 time like 2024-05-01T09:00:00Z, got %q.", key, raw),
	}
}
