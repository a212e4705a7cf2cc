package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"sitefinity-mcp-server/internal/sitefinity"
)

const (
	resourceMIMEJSON = "application/json"
	maxResourceTop   = 200
)

func (s *Server) registerAllResources() {
	if s == nil || s.mcpServer == nil {
		return
	}

	s.mcpServer.AddResource(
		mcp.NewResource(
			"sitefinity://about",
			"Sitefinity MCP About",
			mcp.WithMIMEType(resourceMIMEJSON),
			mcp.WithResourceDescription("Server info, the configured site and the content types tools can reach."),
		),
		s.handleAboutResource,
	)

	s.mcpServer.AddResourceTemplate(
		mcp.NewResourceTemplate(
			"sitefinity://content/{type}{?top}",
			"Sitefinity Content",
			mcp.WithTemplateMIMEType(resourceMIMEJSON),
			mcp.WithTemplateDescription("Read a page of items of one content type (see sitefinity://about for type keys)."),
		),
		s.handleContentResource,
	)
}

func (s *Server) handleAboutResource(_ context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	types := sitefinity.ContentTypes()
	keys := make([]string, 0, len(types))
	for _, ct := range types {
		keys = append(keys, ct.Key)
	}

	payload := map[string]interface{}{
		"name":          s.cfg.Server.Name,
		"version":       s.cfg.Server.Version,
		"site_prefix":   s.cfg.Sitefinity.SitePrefix,
		"content_types": keys,
		"tools":         s.Tools(),
		"notes": []string{
			"Resources are read-only; use the create*Draft tools to add content.",
			"Drafts need a parent_id from the matching parent tool (getParentBlogs, getCalendars, ...).",
			"List tools return 'Key: value' text by default; pass format=json for the OData collection.",
		},
		"timestamp_ms": time.Now().UnixMilli(),
	}
	return jsonContents(request.Params.URI, payload)
}

func (s *Server) handleContentResource(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	key := argString(request.Params.Arguments["type"])
	if key == "" {
		return nil, fmt.Errorf("missing type")
	}
	ct, err := sitefinity.Lookup(key)
	if err != nil {
		return nil, err
	}
	top := getIntArg(map[string]interface{}{"top": argString(request.Params.Arguments["top"])}, "top", 25)
	if top <= 0 {
		top = 25
	}
	if top > maxResourceTop {
		top = maxResourceTop
	}

	col, err := s.client.List(ctx, ct, sitefinity.ListOptions{Top: top})
	if err != nil {
		return nil, err
	}
	payload := map[string]interface{}{
		"type":  ct.Key,
		"top":   top,
		"count": len(col.Value),
		"items": col.Value,
	}
	return jsonContents(request.Params.URI, payload)
}

func jsonContents(uri string, payload any) ([]mcp.ResourceContents, error) {
	text, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: resourceMIMEJSON,
			Text:     string(text),
		},
	}, nil
}

func argString(v any) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		return value
	case []string:
		if len(value) == 0 {
			return ""
		}
		return value[0]
	default:
		return fmt.Sprintf("%v", value)
	}
}
