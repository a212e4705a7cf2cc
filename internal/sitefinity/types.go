package sitefinity

import (
	"fmt"
	"sort"
)

// ContentType describes one OData entity set exposed by the content service.
type ContentType struct {
	// Key is the stable identifier used by tools and resource URIs.
	Key string
	// EntitySet is the OData collection segment, e.g. "blogposts".
	EntitySet string
	// Noun is the human name of a single item, e.g. "blog post".
	Noun string
	// Fields are projected, in order, when the listing is rendered as text.
	Fields []string
	// Parent is the Key of the container type new items must belong to.
	Parent string
}

var contentTypes = map[string]ContentType{
	"news": {
		Key: "news", EntitySet: "newsitems", Noun: "news item",
		Fields: []string{"Id", "Title", "PublicationDate", "Author", "Summary", "UrlName"},
	},
	"blogs": {
		Key: "blogs", EntitySet: "blogs", Noun: "blog",
		Fields: []string{"Id", "Title", "Summary", "PublicationDate"},
	},
	"blogposts": {
		Key: "blogposts", EntitySet: "blogposts", Noun: "blog post",
		Fields: []string{"Id", "Title", "PublicationDate", "UrlName", "Summary", "ParentId"},
		Parent: "blogs",
	},
	"calendars": {
		Key: "calendars", EntitySet: "calendars", Noun: "calendar",
		Fields: []string{"Id", "Title", "Summary"},
	},
	"events": {
		Key: "events", EntitySet: "eventsitems", Noun: "event",
		Fields: []string{"Id", "Title", "EventStart", "EventEnd", "Summary", "Content", "UrlName"},
		Parent: "calendars",
	},
	"lists": {
		Key: "lists", EntitySet: "lists", Noun: "list",
		Fields: []string{"Id", "Title", "Content", "PublicationDate"},
	},
	"listitems": {
		Key: "listitems", EntitySet: "listitems", Noun: "list item",
		Fields: []string{"Id", "Title", "PublicationDate", "Content"},
		Parent: "lists",
	},
	"sites": {
		Key: "sites", EntitySet: "sites", Noun: "site",
		Fields: []string{"Id", "Name", "IsDefault", "LiveUrl", "IsOffline"},
	},
	"pages": {
		Key: "pages", EntitySet: "pages", Noun: "page",
		Fields: []string{"Id", "Title", "ParentId", "UrlName", "PublicationDate"},
	},
	"templates": {
		Key: "templates", EntitySet: "templates", Noun: "page template",
		Fields: []string{"Id", "Name", "Title", "Framework"},
	},
	"sharedcontent": {
		Key: "sharedcontent", EntitySet: "contentitems", Noun: "shared content item",
		Fields: []string{"Id", "Title", "PublicationDate", "Content"},
	},
	"albums": {
		Key: "albums", EntitySet: "albums", Noun: "album",
		Fields: []string{"Id", "Title", "PublicationDate"},
	},
	"images": {
		Key: "images", EntitySet: "images", Noun: "image",
		Fields: []string{"Id", "Title", "ThumbnailUrl", "UrlName", "AlternativeText", "Width", "Height"},
		Parent: "albums",
	},
	"documentlibraries": {
		Key: "documentlibraries", EntitySet: "documentlibraries", Noun: "document library",
		Fields: []string{"Id", "Title", "PublicationDate"},
	},
	"documents": {
		Key: "documents", EntitySet: "documents", Noun: "document",
		Fields: []string{"Id", "Title", "Extension", "TotalSize", "Url", "UrlName"},
		Parent: "documentlibraries",
	},
	"videolibraries": {
		Key: "videolibraries", EntitySet: "videolibraries", Noun: "video library",
		Fields: []string{"Id", "Title", "PublicationDate"},
	},
	"videos": {
		Key: "videos", EntitySet: "videos", Noun: "video",
		Fields: []string{"Id", "Title", "PublicationDate", "UrlName", "Url"},
		Parent: "videolibraries",
	},
	"forms": {
		Key: "forms", EntitySet: "forms", Noun: "form",
		Fields: []string{"Id", "Title", "UrlName", "SuccessMessage"},
	},
	"taxonomies": {
		Key: "taxonomies", EntitySet: "taxonomies", Noun: "taxonomy",
		Fields: []string{"Id", "Title", "TaxonomyType", "TaxonName"},
	},
	"searchindexes": {
		Key: "searchindexes", EntitySet: "searchindexes", Noun: "search index",
		Fields: []string{"Id", "Name", "Description", "IsActive"},
	},
	"sectionpresets": {
		Key: "sectionpresets", EntitySet: "sectionpresets", Noun: "section preset",
		Fields: []string{"Id", "Title", "SectionName"},
	},
}

// Lookup returns the content type registered under key.
func Lookup(key string) (ContentType, error) {
	ct, ok := contentTypes[key]
	if !ok {
		return ContentType{}, fmt.Errorf("unknown content type %q", key)
	}
	return ct, nil
}

// MustLookup is Lookup for keys known at compile time.
func MustLookup(key string) ContentType {
	ct, err := Lookup(key)
	if err != nil {
		panic(err)
	}
	return ct
}

// ContentTypes lists every registered type sorted by key.
func ContentTypes() []ContentType {
	out := make([]ContentType, 0, len(contentTypes))
	for _, ct := range contentTypes {
		out = append(out, ct)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}
