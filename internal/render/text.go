package render

import (
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"golang.org/x/net/html"
)

const previewLength = 100

// DateLayout is how timestamps are shown.
const DateLayout = "Jan 2, 2006, 3:04:05 PM"

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// FormatDate renders an ISO timestamp in loc. Unparseable input is returned as is.
func FormatDate(raw string, loc *time.Location) string {
	raw = strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, raw)
		if err == nil {
			return t.In(loc).Format(DateLayout)
		}
	}
	return raw
}

// StripTags returns the text content of an HTML fragment with whitespace
// collapsed. Script and style bodies are dropped.
func StripTags(fragment string) string {
	z := html.NewTokenizer(strings.NewReader(fragment))
	var parts []string
	skip := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
		case html.StartTagToken:
			if name, _ := z.TagName(); isRawText(name) {
				skip++
			}
		case html.EndTagToken:
			if name, _ := z.TagName(); isRawText(name) && skip > 0 {
				skip--
			}
		case html.TextToken:
			if skip == 0 {
				parts = append(parts, string(z.Text()))
			}
		}
	}
}

func isRawText(name []byte) bool {
	s := string(name)
	return s == "script" || s == "style"
}

// Preview strips markup and cuts the text to the preview length.
func Preview(content string) string {
	text := StripTags(content)
	if utf8.RuneCountInString(text) <= previewLength {
		return text
	}
	runes := []rune(text)
	return string(runes[:previewLength]) + "..."
}

// SizeInKB renders a byte count as rounded kilobytes. The bool is false for
// empty, zero, or non-numeric input.
func SizeInKB(raw string) (string, bool) {
	n, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || n == 0 {
		return "", false
	}
	return strconv.FormatInt(int64(math.Round(n/1024)), 10) + " KB", true
}

func truthy(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "1", "yes":
		return true
	}
	return false
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, " ")
}
