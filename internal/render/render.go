// Package render turns tool results into HTML fragments for the inspector.
//
// Every list tool shares one template driven by the View table; parent
// pickers and draft outcomes have their own small tables. Values always pass
// through html/template, so CMS content is escaped.
package render

import (
	"bytes"
	"encoding/json"
	"html/template"
	"sort"
	"strings"
	"time"

	"sitefinity-mcp-server/internal/records"
	"sitefinity-mcp-server/internal/sitefinity"
)

var pageTemplates = template.Must(template.New("render").Funcs(template.FuncMap{
	"inc": func(i int) int { return i + 1 },
}).Parse(`
{{define "pre"}}<pre id="results">{{.}}</pre>{{end}}

{{define "list"}}<div class="formatted-results">
<h3>{{.Heading}} ({{len .Rows}} found)</h3>
{{range .Rows}}<div class="result-item">
<h3>{{.Title}}</h3>
{{range .Props}}{{template "prop" .}}{{end}}</div>
{{end}}</div>{{end}}

{{define "prop"}}{{if .Image}}<div class="result-property"><img src="{{.Value}}" alt="{{.Alt}}" class="thumbnail"></div>
{{else}}<div class="result-property"><span class="property-name">{{.Label}}:</span> <span class="property-value">{{.Value}}</span></div>
{{end}}{{end}}

{{define "parents"}}<div class="formatted-results">
<h3>{{.Heading}}</h3>
{{range .Parents}}<div class="result-item">
<h3>{{.Title}}</h3>
<div class="result-property"><span class="property-name">ID:</span> <span class="property-value">{{.ID}}</span></div>
</div>
{{end}}<div class="result-item"><div class="result-property"><p>Use one of these IDs in the 'parent_id' field when creating {{.Target}}.</p></div></div>
</div>{{end}}

{{define "created"}}<div class="formatted-results">
<div class="alert success"><strong>Success!</strong> {{.Noun}} draft created successfully.</div>
<div class="result-item">
<h3>{{.Title}}</h3>
{{range .Props}}{{template "prop" .}}{{end}}</div>
<div class="result-item"><div class="result-property"><p>The {{.Lower}} has been created as a draft. You can now edit, review, and publish it in the Sitefinity admin panel.</p></div></div>
</div>{{end}}

{{define "error"}}<div class="formatted-results">
<div class="alert error"><strong>Error!</strong> {{.Noun}} creation failed.</div>
<div class="result-item">
<h3>{{.Heading}}</h3>
{{range .Lines}}<div class="result-property"><span class="property-value">{{.}}</span></div>
{{end}}</div>
<div class="result-item">
<h3>Possible Solutions</h3>
<div class="result-property">
{{range $i, $s := .Solutions}}<p>{{inc $i}}. {{$s}}</p>
{{end}}</div>
</div>
</div>{{end}}

{{define "generic"}}{{range .}}<div class="result-property"><span class="property-name">{{.Label}}:</span> <span class="property-value">{{.Value}}</span></div>
{{end}}{{end}}

{{define "scalar"}}<div class="result-property">{{.}}</div>{{end}}
`))

type prop struct {
	Label string
	Value string
	Alt   string
	Image bool
}

type row struct {
	Title string
	Props []prop
}

// Renderer produces HTML fragments. It is safe for concurrent use.
type Renderer struct {
	loc *time.Location
}

// New returns a renderer that shows dates in loc (UTC when nil).
func New(loc *time.Location) *Renderer {
	if loc == nil {
		loc = time.UTC
	}
	return &Renderer{loc: loc}
}

// Result renders a tool's payload with the view registered for the tool,
// falling back to a preformatted dump.
func (r *Renderer) Result(tool string, payload any) template.HTML {
	if pv, ok := parentViews[tool]; ok {
		if parents, ok := toParents(payload); ok {
			return r.parents(pv, parents)
		}
		return r.Raw(payload)
	}
	if v, ok := views[tool]; ok {
		if recs, ok := toRecords(payload); ok {
			return r.List(v, recs)
		}
	}
	return r.Raw(payload)
}

// List renders records with v.
func (r *Renderer) List(v View, recs []records.Record) template.HTML {
	if len(recs) == 0 {
		return r.exec("pre", v.Empty)
	}
	rows := make([]row, 0, len(recs))
	for _, rec := range recs {
		title := rec.Get(v.TitleKeys...)
		if title == "" {
			title = v.Untitled
		}
		rows = append(rows, row{Title: title, Props: r.props(v.Fields, rec, title)})
	}
	return r.exec("list", struct {
		Heading string
		Rows    []row
	}{v.Heading, rows})
}

func (r *Renderer) props(fields []Field, rec records.Record, title string) []prop {
	out := make([]prop, 0, len(fields))
	for _, f := range fields {
		raw := rec.Get(f.Keys...)
		p := prop{Label: f.Label, Value: raw}
		switch f.Kind {
		case Always:
			if raw == "" {
				p.Value = "Unknown"
			}
			out = append(out, p)
			continue
		case Yes:
			if !truthy(raw) {
				continue
			}
			p.Value = "Yes"
			out = append(out, p)
			continue
		}
		if raw == "" {
			continue
		}
		switch f.Kind {
		case Date:
			p.Value = FormatDate(raw, r.loc)
		case Truncate:
			p.Value = Preview(raw)
		case Upper:
			p.Value = strings.ToUpper(raw)
		case SizeKB:
			kb, ok := SizeInKB(raw)
			if !ok {
				continue
			}
			p.Value = kb
		case Image:
			p.Image = true
			p.Alt = title
		}
		out = append(out, p)
	}
	return out
}

func (r *Renderer) parents(pv ParentView, parents sitefinity.ParentList) template.HTML {
	if len(parents) == 0 {
		return r.exec("pre", pv.Empty)
	}
	return r.exec("parents", struct {
		Heading string
		Target  string
		Parents sitefinity.ParentList
	}{pv.Heading, pv.Target, parents})
}

var (
	createdHead = []Field{{Label: "URL", Keys: []string{"ItemDefaultUrl"}}, idField}
	createdTail = []Field{{Label: "Created", Keys: []string{"PublicationDate"}, Kind: Date}, summaryField, contentField}
)

// Created renders the success view for a draft tool's result.
func (r *Renderer) Created(tool string, item map[string]any) template.HTML {
	dv := draftViewOrDefault(tool)
	rec := records.FromItems([]map[string]any{item}, nil)[0]
	title := rec.Get("Title")
	if title == "" {
		title = dv.Title
	}
	props := r.props(createdHead, rec, title)
	props = append(props, prop{Label: "Status", Value: "Draft"})
	props = append(props, r.props(createdTail, rec, title)...)
	return r.exec("created", struct {
		Noun  string
		Lower string
		Title string
		Props []prop
	}{dv.Noun, strings.ToLower(dv.Noun), title, props})
}

// DraftError renders the failure view for a draft tool.
func (r *Renderer) DraftError(tool, message string) template.HTML {
	dv := draftViewOrDefault(tool)
	lines := []string{message}
	if strings.Contains(strings.ToLower(message), "failed to create") {
		lines = lines[:0]
		for _, line := range strings.Split(message, "\n") {
			if strings.TrimSpace(line) != "" {
				lines = append(lines, line)
			}
		}
	}
	return r.exec("error", struct {
		Noun      string
		Heading   string
		Lines     []string
		Solutions []string
	}{dv.Noun, titleCase(dv.Noun) + " Creation Error", lines, dv.Solutions})
}

// Generic renders a property list for objects and a single line otherwise.
func (r *Renderer) Generic(value any) template.HTML {
	m, ok := value.(map[string]any)
	if !ok {
		if s, isString := value.(string); isString {
			return r.exec("scalar", s)
		}
		raw, _ := json.Marshal(value)
		return r.exec("scalar", string(raw))
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	props := make([]prop, 0, len(keys))
	for _, k := range keys {
		s, ok := records.Stringify(m[k])
		if !ok {
			s = "null"
		}
		props = append(props, prop{Label: k, Value: s})
	}
	return r.exec("generic", props)
}

// Raw renders strings verbatim and everything else as indented JSON.
func (r *Renderer) Raw(value any) template.HTML {
	if s, ok := value.(string); ok {
		return r.exec("pre", s)
	}
	raw, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return r.exec("pre", err.Error())
	}
	return r.exec("pre", string(raw))
}

func (r *Renderer) exec(name string, data any) template.HTML {
	var buf bytes.Buffer
	if err := pageTemplates.ExecuteTemplate(&buf, name, data); err != nil {
		return template.HTML(`<pre id="results">` + template.HTMLEscapeString(err.Error()) + `</pre>`)
	}
	return template.HTML(strings.TrimSpace(buf.String()))
}

func draftViewOrDefault(tool string) DraftView {
	if dv, ok := draftViews[tool]; ok {
		return dv
	}
	return DraftView{Noun: "Item", Title: "New Item", Solutions: commonSolutions}
}

// toRecords normalizes the payload shapes list tools produce.
func toRecords(payload any) ([]records.Record, bool) {
	switch p := payload.(type) {
	case nil:
		return nil, true
	case string:
		if strings.TrimSpace(p) == "" {
			return nil, true
		}
		decoded := records.Decode(p)
		if _, still := decoded.(string); still {
			return nil, false
		}
		return toRecords(decoded)
	case []records.Record:
		return p, true
	case sitefinity.Collection:
		return records.FromItems(p.Maps(), nil), true
	case sitefinity.Item:
		return records.FromItems([]map[string]any{p}, nil), true
	case []map[string]any:
		return records.FromItems(p, nil), true
	case map[string]any:
		if v, ok := p["value"]; ok {
			return toRecords(v)
		}
		return records.FromItems([]map[string]any{p}, nil), true
	case []any:
		items := make([]map[string]any, 0, len(p))
		for _, el := range p {
			m, ok := el.(map[string]any)
			if !ok {
				return nil, false
			}
			items = append(items, m)
		}
		return records.FromItems(items, nil), true
	default:
		v, ok := roundTrip(p)
		if !ok {
			return nil, false
		}
		return toRecords(v)
	}
}

func toParents(payload any) (sitefinity.ParentList, bool) {
	switch p := payload.(type) {
	case nil:
		return nil, true
	case sitefinity.ParentList:
		return p, true
	case map[string]string:
		return sitefinity.ParentsFromMap(p), true
	case map[string]any:
		m := make(map[string]string, len(p))
		for id, title := range p {
			s, ok := title.(string)
			if !ok {
				return nil, false
			}
			m[id] = s
		}
		return sitefinity.ParentsFromMap(m), true
	case string:
		var m map[string]any
		if err := json.Unmarshal([]byte(p), &m); err != nil {
			return nil, false
		}
		return toParents(m)
	default:
		v, ok := roundTrip(p)
		if !ok {
			return nil, false
		}
		return toParents(v)
	}
}

// roundTrip converts arbitrary values to their generic JSON form. Only
// objects and arrays are useful to the callers.
func roundTrip(v any) (any, bool) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, false
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, false
	}
	switch out.(type) {
	case map[string]any, []any:
		return out, true
	}
	return nil, false
}
