package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"sitefinity-mcp-server/internal/records"
	"sitefinity-mcp-server/internal/sitefinity"
)

const (
	formatText = "text"
	formatJSON = "json"
)

type listSpec struct {
	name        string
	contentType string
	description string
}

var listTools = []listSpec{
	{"getNews", "news", "Get the current news items and press releases: title, summary, author and publication date."},
	{"getBlogPosts", "blogposts", "Get blog posts: title, publication date, URL name, summary and parent blog."},
	{"getPages", "pages", "Get site pages: title, parent, URL name and publication date."},
	{"getPageTemplates", "templates", "Get page templates: name, title, framework and renderer."},
	{"getSites", "sites", "Get the sites in this Sitefinity instance: name, default flag and live URL."},
	{"getListItems", "listitems", "Get list items: title, publication date and content."},
	{"getEvents", "events", "Get calendar events: title, start, end, summary and content."},
	{"getSharedContent", "sharedcontent", "Get shared content blocks: title, content and publication date."},
	{"getImages", "images", "Get images: title, alternative text, dimensions, size and thumbnail."},
	{"getDocuments", "documents", "Get documents: title, file name, extension, size and URL."},
	{"getVideos", "videos", "Get videos: title, duration, size and URL."},
	{"getSearchIndexes", "searchindexes", "Get search indexes: name, description and active flag."},
	{"getTaxonomies", "taxonomies", "Get taxonomies: title, type and taxon name."},
	{"getSectionPresets", "sectionpresets", "Get page section presets: title and section name."},
	{"getForms", "forms", "Get forms: title, name and URL name."},
}

// ListContentTool lists one content type. The text format mirrors what the
// inspector parses: "Key: value" lines, items separated by a blank line.
type ListContentTool struct {
	spec   listSpec
	client *sitefinity.Client
}

func (t *ListContentTool) Name() string        { return t.spec.name }
func (t *ListContentTool) Description() string { return t.spec.description }
func (t *ListContentTool) InputSchema() map[string]interface{} {
	return objectSchema(map[string]interface{}{
		"top":     intProp("Maximum number of items to return"),
		"skip":    intProp("Number of items to skip"),
		"filter":  stringProp("OData $filter expression, e.g. \"Title eq 'Welcome'\""),
		"orderby": stringProp("OData $orderby expression, e.g. \"PublicationDate desc\""),
		"format":  map[string]interface{}{"type": "string", "enum": []string{formatText, formatJSON}, "description": "text (default) or json"},
	})
}

func (t *ListContentTool) Execute(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	ct, err := sitefinity.Lookup(t.spec.contentType)
	if err != nil {
		return nil, err
	}
	format := strings.ToLower(getStringArg(args, "format"))
	if format == "" {
		format = formatText
	}
	if format != formatText && format != formatJSON {
		return nil, fmt.Errorf("unsupported format %q (want text or json)", format)
	}

	opts := sitefinity.ListOptions{
		Top:     getIntArg(args, "top", 0),
		Skip:    getIntArg(args, "skip", 0),
		Filter:  getStringArg(args, "filter"),
		OrderBy: getStringArg(args, "orderby"),
	}
	if opts.Top < 0 || opts.Skip < 0 {
		return nil, errors.New("top and skip must not be negative")
	}

	col, err := t.client.List(ctx, ct, opts)
	if err != nil {
		return nil, err
	}
	if format == formatJSON {
		return col, nil
	}
	return records.Format(records.FromItems(col.Maps(), ct.Fields), ct.Fields), nil
}

type parentSpec struct {
	name        string
	contentType string
	description string
}

var parentTools = []parentSpec{
	{"getParentBlogs", "blogs", "Get the blogs a new blog post can belong to, as an ordered map of ID to title."},
	{"getParentLists", "lists", "Get the lists a new list item can belong to, as an ordered map of ID to title."},
	{"getCalendars", "calendars", "Get the calendars a new event can belong to, as an ordered map of ID to title."},
	{"getAlbums", "albums", "Get the albums a new image can belong to, as an ordered map of ID to title."},
	{"getDocumentLibraries", "documentlibraries", "Get the libraries a new document can belong to, as an ordered map of ID to title."},
	{"getVideoLibraries", "videolibraries", "Get the libraries a new video can belong to, as an ordered map of ID to title."},
}

// ParentsTool lists the containers a draft must name in parent_id.
type ParentsTool struct {
	spec   parentSpec
	client *sitefinity.Client
}

func (t *ParentsTool) Name() string        { return t.spec.name }
func (t *ParentsTool) Description() string { return t.spec.description }
func (t *ParentsTool) InputSchema() map[string]interface{} {
	return objectSchema(map[string]interface{}{})
}

func (t *ParentsTool) Execute(ctx context.Context, _ map[string]interface{}) (interface{}, error) {
	ct, err := sitefinity.Lookup(t.spec.contentType)
	if err != nil {
		return nil, err
	}
	return t.client.Parents(ctx, ct)
}

// GetBlogPostByIDTool fetches one blog post.
type GetBlogPostByIDTool struct {
	client *sitefinity.Client
}

func (t *GetBlogPostByIDTool) Name() string { return "getBlogPostById" }
func (t *GetBlogPostByIDTool) Description() string {
	return "Get a single blog post by its ID, with every field Sitefinity returns."
}
func (t *GetBlogPostByIDTool) InputSchema() map[string]interface{} {
	return objectSchema(map[string]interface{}{
		"id": stringProp("The blog post ID (GUID)"),
	}, "id")
}

func (t *GetBlogPostByIDTool) Execute(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	id := strings.TrimSpace(getStringArg(args, "id"))
	if id == "" {
		return nil, errors.New("id is required")
	}
	return t.client.Item(ctx, sitefinity.MustLookup("blogposts"), id)
}
