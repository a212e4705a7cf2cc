package sitefinity

import (
	"bytes"
	"encoding/json"
	"regexp"
	"sort"
	"strings"

	"sitefinity-mcp-server/internal/records"
)

// Item is a decoded OData entity.
type Item map[string]any

// String returns the text form of a field, empty when absent or null.
func (it Item) String(key string) string {
	s, _ := records.Stringify(it[key])
	return s
}

// ID returns the entity key.
func (it Item) ID() string { return it.String("Id") }

// Collection is an OData collection response.
type Collection struct {
	Count *int   `json:"@odata.count,omitempty"`
	Value []Item `json:"value"`
}

// Maps exposes the collection values as plain maps.
func (c Collection) Maps() []map[string]any {
	out := make([]map[string]any, len(c.Value))
	for i, it := range c.Value {
		out[i] = it
	}
	return out
}

// Parent is a container an item can be created in.
type Parent struct {
	ID    string
	Title string
}

// ParentList keeps parents in service order and marshals as an ordered
// {"<id>": "<title>"} object.
type ParentList []Parent

func (p ParentList) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, parent := range p {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(parent.ID)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(parent.Title)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON accepts the object form. Key order is not preserved by
// encoding/json, so entries come back sorted by title.
func (p *ParentList) UnmarshalJSON(data []byte) error {
	var m map[string]string
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	*p = ParentsFromMap(m)
	return nil
}

// ParentsFromMap builds a ParentList sorted by title, then id.
func ParentsFromMap(m map[string]string) ParentList {
	out := make(ParentList, 0, len(m))
	for id, title := range m {
		out = append(out, Parent{ID: id, Title: title})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Title != out[j].Title {
			return out[i].Title < out[j].Title
		}
		return out[i].ID < out[j].ID
	})
	return out
}

var (
	urlNameInvalid = regexp.MustCompile(`[^a-z0-9-]`)
	urlNameDashes  = regexp.MustCompile(`-+`)
)

// MaxURLNameLength is the longest UrlName Sitefinity accepts.
const MaxURLNameLength = 100

// GenerateURLName derives a Sitefinity UrlName from a title.
func GenerateURLName(title string, max int) string {
	name := strings.ToLower(title)
	name = strings.ReplaceAll(name, " ", "-")
	name = urlNameInvalid.ReplaceAllString(name, "")
	name = urlNameDashes.ReplaceAllString(name, "-")
	name = strings.Trim(name, "-")
	if max > 0 && len(name) > max {
		name = name[:max]
	}
	return name
}
