package render

// Kind selects how a field value is displayed.
type Kind int

const (
	// Text shows the value as is.
	Text Kind = iota
	// Date parses an ISO timestamp and shows it in the renderer's location.
	Date
	// Truncate strips markup and cuts to previewLength characters.
	Truncate
	// Upper upper-cases the value.
	Upper
	// SizeKB shows a byte count as rounded kilobytes.
	SizeKB
	// Yes shows "Yes" for truthy values and hides the field otherwise.
	Yes
	// Image shows the value as a thumbnail.
	Image
	// Always shows the field even when empty, with "Unknown" in its place.
	Always
)

// Field is one displayed property of a record.
type Field struct {
	Label string
	// Keys are tried in order; the first non-empty value is used.
	Keys []string
	Kind Kind
}

// View describes how a list tool's records are rendered.
type View struct {
	Heading   string
	Empty     string
	TitleKeys []string
	Untitled  string
	Fields    []Field
}

// ParentView describes a parent picker listing.
type ParentView struct {
	Heading string
	Empty   string
	// Target completes "when creating ..." in the usage note.
	Target string
}

// DraftView describes the created and failed views of a draft tool.
type DraftView struct {
	// Noun is the sentence-case item name, e.g. "Blog post".
	Noun string
	// Title is used as the heading when the item has no title.
	Title     string
	Solutions []string
}

var (
	idField        = Field{Label: "ID", Keys: []string{"Id", "ID", "id"}, Kind: Always}
	publishedField = Field{Label: "Published", Keys: []string{"PublicationDate", "Publication Date"}, Kind: Date}
	urlNameField   = Field{Label: "URL Name", Keys: []string{"UrlName", "urlName", "URL Name"}}
	summaryField   = Field{Label: "Summary", Keys: []string{"Summary"}}
	contentField   = Field{Label: "Content", Keys: []string{"Content"}, Kind: Truncate}
	titleKeys      = []string{"Title"}
	nameKeys       = []string{"Name", "Title"}
)

var views = map[string]View{
	"getNews": {
		Heading: "News Items", Empty: "No news items found.",
		TitleKeys: titleKeys, Untitled: "Untitled News",
		Fields: []Field{idField, publishedField, {Label: "Author", Keys: []string{"Author"}}, summaryField, urlNameField},
	},
	"getBlogPosts": {
		Heading: "Blog Posts", Empty: "No blog posts found.",
		TitleKeys: titleKeys, Untitled: "Untitled Post",
		Fields: []Field{idField, publishedField, urlNameField, summaryField},
	},
	"getListItems": {
		Heading: "List Items", Empty: "No list items found.",
		TitleKeys: titleKeys, Untitled: "Untitled Item",
		Fields: []Field{idField, publishedField, contentField},
	},
	"getSites": {
		Heading: "Sites", Empty: "No sites found.",
		TitleKeys: nameKeys, Untitled: "Unnamed Site",
		Fields: []Field{idField, {Label: "Default Site", Keys: []string{"IsDefault"}, Kind: Yes}, {Label: "Live URL", Keys: []string{"LiveUrl"}}},
	},
	"getForms": {
		Heading: "Forms", Empty: "No forms found.",
		TitleKeys: titleKeys, Untitled: "Untitled Form",
		Fields: []Field{idField, urlNameField},
	},
	"getSearchIndexes": {
		Heading: "Search Indexes", Empty: "No search indexes found.",
		TitleKeys: nameKeys, Untitled: "Unnamed Index",
		Fields: []Field{idField, {Label: "Description", Keys: []string{"Description"}}},
	},
	"getTaxonomies": {
		Heading: "Taxonomies", Empty: "No taxonomies found.",
		TitleKeys: titleKeys, Untitled: "Untitled Taxonomy",
		Fields: []Field{idField, {Label: "Type", Keys: []string{"TaxonomyType", "Type"}}},
	},
	"getSectionPresets": {
		Heading: "Section Presets", Empty: "No section presets found.",
		TitleKeys: titleKeys, Untitled: "Untitled Preset",
		Fields: []Field{idField, {Label: "Section Name", Keys: []string{"SectionName"}}},
	},
	"getPages": {
		Heading: "Pages", Empty: "No pages found.",
		TitleKeys: titleKeys, Untitled: "Untitled Page",
		Fields: []Field{idField, {Label: "Parent ID", Keys: []string{"ParentId"}}, urlNameField},
	},
	"getEvents": {
		Heading: "Events", Empty: "No events found.",
		TitleKeys: titleKeys, Untitled: "Untitled Event",
		Fields: []Field{
			idField,
			{Label: "Start", Keys: []string{"EventStart", "Event Start"}, Kind: Date},
			{Label: "End", Keys: []string{"EventEnd", "Event End"}, Kind: Date},
			summaryField, contentField, urlNameField,
		},
	},
	"getSharedContent": {
		Heading: "Shared Content", Empty: "No shared content found.",
		TitleKeys: titleKeys, Untitled: "Untitled Content",
		Fields: []Field{idField, publishedField},
	},
	"getImages": {
		Heading: "Images", Empty: "No images found.",
		TitleKeys: titleKeys, Untitled: "Untitled Image",
		Fields: []Field{{Label: "Thumbnail", Keys: []string{"ThumbnailUrl"}, Kind: Image}, idField, urlNameField},
	},
	"getDocuments": {
		Heading: "Documents", Empty: "No documents found.",
		TitleKeys: titleKeys, Untitled: "Untitled Document",
		Fields: []Field{
			idField,
			{Label: "Type", Keys: []string{"Extension"}, Kind: Upper},
			{Label: "Size", Keys: []string{"TotalSize", "Total Size"}, Kind: SizeKB},
		},
	},
	"getVideos": {
		Heading: "Videos", Empty: "No videos found.",
		TitleKeys: titleKeys, Untitled: "Untitled Video",
		Fields: []Field{idField, publishedField, urlNameField},
	},
	"getPageTemplates": {
		Heading: "Page Templates", Empty: "No page templates found.",
		TitleKeys: []string{"Name"}, Untitled: "Unnamed Template",
		Fields: []Field{idField, {Label: "Title", Keys: []string{"Title"}}},
	},
	"getBlogPostById": {
		Heading: "Blog Post", Empty: "Blog post not found.",
		TitleKeys: titleKeys, Untitled: "Untitled Post",
		Fields: []Field{idField, publishedField, urlNameField, summaryField, contentField},
	},
}

var parentViews = map[string]ParentView{
	"getParentBlogs":       {Heading: "Available Parent Blogs", Empty: "No parent blogs found.", Target: "a blog post"},
	"getParentLists":       {Heading: "Available Parent Lists", Empty: "No parent lists found.", Target: "a list item"},
	"getAlbums":            {Heading: "Available Albums", Empty: "No albums found.", Target: "an image"},
	"getCalendars":         {Heading: "Available Calendars", Empty: "No calendars found.", Target: "an event"},
	"getDocumentLibraries": {Heading: "Available Document Libraries", Empty: "No document libraries found.", Target: "a document"},
	"getVideoLibraries":    {Heading: "Available Video Libraries", Empty: "No video libraries found.", Target: "a video"},
}

var commonSolutions = []string{"Verify that Sitefinity is accessible and working correctly"}

func draftView(noun, title, parent string) DraftView {
	var solutions []string
	if parent != "" {
		solutions = append(solutions, "Make sure you've provided a valid "+parent+" ID")
	}
	solutions = append(solutions, "Check that your "+title+" title and content are valid")
	return DraftView{Noun: noun, Title: "New " + titleCase(title), Solutions: append(solutions, commonSolutions...)}
}

var draftViews = map[string]DraftView{
	"createBlogPostDraft": draftView("Blog post", "blog post", "parent blog"),
	"createNewsItemDraft": draftView("News item", "news item", ""),
	"createListItemDraft": draftView("List item", "list item", "parent list"),
	"createEventDraft":    draftView("Event", "event", "calendar"),
	"createImageDraft":    draftView("Image", "image", "album"),
	"createDocumentDraft": draftView("Document", "document", "document library"),
	"createVideoDraft":    draftView("Video", "video", "video library"),
}

// ViewFor returns the list view registered for tool.
func ViewFor(tool string) (View, bool) {
	v, ok := views[tool]
	return v, ok
}

// ParentViewFor returns the parent picker view registered for tool.
func ParentViewFor(tool string) (ParentView, bool) {
	v, ok := parentViews[tool]
	return v, ok
}

// DraftViewFor returns the draft view registered for tool.
func DraftViewFor(tool string) (DraftView, bool) {
	v, ok := draftViews[tool]
	return v, ok
}
