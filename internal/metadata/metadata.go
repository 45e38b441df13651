package metadata

import (
	"html"
	"net/mail"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"wisgen/internal/model"

	"github.com/mrz1836/go-sanitize"
)

const ExcerptLength = 240

var (
	fromPattern    = regexp.MustCompile(`(?m)<!--\s*From:\s*(.*?)\s*$`)
	datePattern    = regexp.MustCompile(`(?m)<!--\s*.*\s*Date:\s*(.*?)\s*$`)
	subjectPattern = regexp.MustCompile(`\d{4}-\d{2}-\d{2}_(.*)\.html`)
	bareSubject    = regexp.MustCompile(`(.*)\.html`)

	commentPattern  = regexp.MustCompile(`(?s)<!--.*?-->`)
	invisibleBlocks = regexp.MustCompile(`(?is)<(script|style|head|noscript)[^>]*>.*?</(script|style|head|noscript)>`)
	zoneComment     = regexp.MustCompile(`\s*\([^)]*\)\s*$`)
)

var dateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC3339,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	"2 Jan 2006 15:04:05 -0700",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"January 2, 2006",
	"Jan 2, 2006",
}

// Extract derives list metadata for one newsletter file.
func Extract(filename, content string) model.Newsletter {
	n := model.Newsletter{
		Filename: filename,
		Source:   Source(content),
		Subject:  SubjectFromFilename(filename),
		Date:     Date(content),
		Excerpt:  Excerpt(content),
	}
	if t, ok := ParseDate(n.Date); ok {
		n.PublishedAt = t
	} else {
		n.PublishedAt = time.Unix(0, 0).UTC()
	}
	return n
}

// Source returns the sender name from a "<!-- From: ... -->" comment, without
// the email address.
func Source(content string) string {
	m := fromPattern.FindStringSubmatch(content)
	if m == nil {
		return model.UnknownSource
	}
	source := stripCommentEnd(m[1])
	if i := strings.Index(source, "<"); i >= 0 {
		source = source[:i]
	}
	source = strings.TrimSpace(source)
	if source == "" {
		return model.UnknownSource
	}
	return source
}

func Date(content string) string {
	m := datePattern.FindStringSubmatch(content)
	if m == nil {
		return model.UnknownDate
	}
	date := stripCommentEnd(m[1])
	if date == "" {
		return model.UnknownDate
	}
	return date
}

func stripCommentEnd(s string) string {
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "-->"))
}

// SubjectFromFilename drops a leading YYYY-MM-DD_ and the .html suffix and
// turns underscores into spaces.
func SubjectFromFilename(filename string) string {
	m := subjectPattern.FindStringSubmatch(filename)
	if m == nil {
		m = bareSubject.FindStringSubmatch(filename)
	}
	if m == nil {
		return filename
	}
	return strings.ReplaceAll(m[1], "_", " ")
}

// ParseDate understands RFC 5322 mail dates and a handful of common layouts.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" || s == model.UnknownDate {
		return time.Time{}, false
	}

	if t, err := mail.ParseDate(s); err == nil {
		return t, true
	}

	s = zoneComment.ReplaceAllString(s, "")
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Sort orders newsletters newest first. Equal dates, including every
// unparseable one, fall back to filename order.
func Sort(newsletters []model.Newsletter) {
	sort.SliceStable(newsletters, func(i, j int) bool {
		a, b := newsletters[i], newsletters[j]
		if !a.PublishedAt.Equal(b.PublishedAt) {
			return a.PublishedAt.After(b.PublishedAt)
		}
		return a.Filename < b.Filename
	})
}

// Excerpt returns the start of the visible text of an HTML document.
func Excerpt(content string) string {
	text := commentPattern.ReplaceAllString(content, " ")
	text = invisibleBlocks.ReplaceAllString(text, " ")
	// keep words from adjacent elements apart once tags are gone
	text = strings.ReplaceAll(text, "<", " <")
	text = html.UnescapeString(sanitize.HTML(text))
	text = strings.Join(strings.Fields(text), " ")

	if utf8.RuneCountInString(text) <= ExcerptLength {
		return text
	}

	runes := []rune(text)[:ExcerptLength]
	cut := string(runes)
	if i := strings.LastIndex(cut, " "); i > ExcerptLength/2 {
		cut = cut[:i]
	}
	return strings.TrimSpace(cut) + "..."
}
