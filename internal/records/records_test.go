package records

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestParseText(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   []Record
		wantOK bool
	}{
		{
			name:   "two blocks",
			input:  "Title: First\nId: 1\n\nTitle: Second\nId: 2\n",
			want:   []Record{{"Title": "First", "Id": "1"}, {"Title": "Second", "Id": "2"}},
			wantOK: true,
		},
		{
			name:   "value keeps later colons",
			input:  "Url: https://example.com/a\nPublished: 2024-01-02T10:00:00Z",
			want:   []Record{{"Url": "https://example.com/a", "Published": "2024-01-02T10:00:00Z"}},
			wantOK: true,
		},
		{
			name:   "keys and values trimmed",
			input:  "  Title  :   Padded  \n Summary: s",
			want:   []Record{{"Title": "Padded", "Summary": "s"}},
			wantOK: true,
		},
		{
			name:   "blocks without fields dropped",
			input:  "just prose\n\nTitle: Kept\n\n\n\n   \n",
			want:   []Record{{"Title": "Kept"}},
			wantOK: true,
		},
		{
			name:   "empty value allowed",
			input:  "Summary:\nTitle: x",
			want:   []Record{{"Summary": "", "Title": "x"}},
			wantOK: true,
		},
		{
			name:   "crlf input",
			input:  "Title: a\r\n\r\nTitle: b",
			want:   []Record{{"Title": "a"}, {"Title": "b"}},
			wantOK: true,
		},
		{
			name:   "no fields at all",
			input:  "nothing to see here",
			wantOK: false,
		},
		{
			name:   "leading colon has no key",
			input:  ": orphan",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseText(tt.input)
			assert.Equal(t, tt.wantOK, ok)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ParseText mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDecode(t *testing.T) {
	t.Run("json wins", func(t *testing.T) {
		got := Decode(`{"value":[{"Title":"a"}]}`)
		m, ok := got.(map[string]any)
		require.True(t, ok, "expected JSON object, got %T", got)
		assert.Len(t, m["value"], 1)
	})

	t.Run("json array", func(t *testing.T) {
		got := Decode(` [1, 2] `)
		assert.Equal(t, []any{float64(1), float64(2)}, got)
	})

	t.Run("semi structured", func(t *testing.T) {
		got := Decode("Title: a\n\nTitle: b")
		assert.Equal(t, []Record{{"Title": "a"}, {"Title": "b"}}, got)
	})

	t.Run("unparseable returned verbatim", func(t *testing.T) {
		assert.Equal(t, "plain words", Decode("plain words"))
	})

	t.Run("empty string", func(t *testing.T) {
		assert.Equal(t, "", Decode(""))
	})
}

func TestFormatRoundTrip(t *testing.T) {
	fields := []string{"Id", "Title", "Summary", "PublicationDate"}
	recs := []Record{
		{"Id": "1", "Title": "Hello: world", "Summary": "", "PublicationDate": "2024-05-01T08:00:00Z"},
		{"Id": "2", "Title": "Second"},
		{"Id": "3", "Title": "Third", "Summary": "short"},
	}

	text := Format(recs, fields)
	assert.Equal(t, "Id: 1\nTitle: Hello: world\nSummary: \nPublicationDate: 2024-05-01T08:00:00Z\n\nId: 2\nTitle: Second\n\nId: 3\nTitle: Third\nSummary: short\n", text)

	back, ok := ParseText(text)
	require.True(t, ok)
	if diff := cmp.Diff(recs, back); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestFormatCollapsesNewlines(t *testing.T) {
	text := Format([]Record{{"Content": "line one\n\nline two\r\n  three"}}, []string{"Content"})
	assert.Equal(t, "Content: line one line two three\n", text)

	back, ok := ParseText(text)
	require.True(t, ok)
	assert.Equal(t, "line one line two three", back[0]["Content"])
}

func TestFromItems(t *testing.T) {
	items := []map[string]any{
		{
			"Id":        "a1",
			"Title":     "Post",
			"TotalSize": float64(20480),
			"IsDefault": true,
			"Ratio":     1.5,
			"Tags":      []any{"x", "y"},
			"Missing":   nil,
			"NotWanted": "drop",
		},
	}

	got := FromItems(items, []string{"Id", "Title", "TotalSize", "IsDefault", "Ratio", "Tags", "Missing"})
	want := []Record{{
		"Id":        "a1",
		"Title":     "Post",
		"TotalSize": "20480",
		"IsDefault": "True",
		"Ratio":     "1.5",
		"Tags":      `["x","y"]`,
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("FromItems mismatch (-want +got):\n%s", diff)
	}

	all := FromItems(items, nil)
	assert.Equal(t, "drop", all[0]["NotWanted"])
	_, hasMissing := all[0]["Missing"]
	assert.False(t, hasMissing)
}

func TestRecordGet(t *testing.T) {
	r := Record{"Title": "", "Name": "Site A"}
	assert.Equal(t, "Site A", r.Get("Title", "Name"))
	assert.Equal(t, "", r.Get("Nope"))
}
