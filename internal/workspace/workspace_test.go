package workspace

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-playground/assert/v2"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestListNewsletters(t *testing.T) {
	l := New(t.TempDir())

	_, err := l.ListNewsletters()
	assert.Equal(t, true, errors.Is(err, fs.ErrNotExist))

	writeFile(t, filepath.Join(l.Newsletters, "2024-02-01_Weekly.html"), "b")
	writeFile(t, filepath.Join(l.Newsletters, "2024-01-01_Daily.html"), "a")
	writeFile(t, filepath.Join(l.Newsletters, "notes.txt"), "x")
	if err := os.MkdirAll(filepath.Join(l.Newsletters, "archive.html"), 0755); err != nil {
		t.Fatal(err)
	}

	names, err := l.ListNewsletters()
	assert.Equal(t, nil, err)
	assert.Equal(t, []string{"2024-01-01_Daily.html", "2024-02-01_Weekly.html"}, names)
}

func TestProcessedIndex(t *testing.T) {
	l := New(t.TempDir())

	index, err := l.ProcessedIndex()
	assert.Equal(t, nil, err)
	assert.Equal(t, 0, len(index))

	writeFile(t, filepath.Join(l.Processed, "processed_2024-01-01_Daily.html"), "p")
	writeFile(t, filepath.Join(l.Processed, "processed_notes.md"), "p")
	writeFile(t, filepath.Join(l.Processed, "other.html"), "p")

	index, err = l.ProcessedIndex()
	assert.Equal(t, nil, err)
	assert.Equal(t, map[string]string{"2024-01-01_Daily.html": "processed_2024-01-01_Daily.html"}, index)
}

func TestReadNewsletter(t *testing.T) {
	l := New(t.TempDir())
	writeFile(t, filepath.Join(l.Newsletters, "a.html"), "raw")
	writeFile(t, filepath.Join(l.Processed, "processed_a.html"), "digest")

	content, isProcessed, err := l.ReadNewsletter("a.html")
	assert.Equal(t, nil, err)
	assert.Equal(t, false, isProcessed)
	assert.Equal(t, "raw", content)

	content, isProcessed, err = l.ReadNewsletter("processed_a.html")
	assert.Equal(t, nil, err)
	assert.Equal(t, true, isProcessed)
	assert.Equal(t, "digest", content)

	_, _, err = l.ReadNewsletter("missing.html")
	assert.Equal(t, ErrNotFound, err)

	for _, name := range []string{"", "../secret.html", "a/b.html", `a\b.html`, ".."} {
		_, _, err = l.ReadNewsletter(name)
		assert.Equal(t, true, errors.Is(err, ErrInvalidFilename))
	}
}

func TestWriteProcessed(t *testing.T) {
	l := New(t.TempDir())

	assert.Equal(t, false, l.HasProcessed("a.html"))

	name, err := l.WriteProcessed("a.html", "<html>digest</html>")
	assert.Equal(t, nil, err)
	assert.Equal(t, "processed_a.html", name)
	assert.Equal(t, true, l.HasProcessed("a.html"))

	data, err := os.ReadFile(filepath.Join(l.Processed, name))
	assert.Equal(t, nil, err)
	assert.Equal(t, "<html>digest</html>", string(data))

	entries, err := os.ReadDir(l.Processed)
	assert.Equal(t, nil, err)
	assert.Equal(t, 1, len(entries))
}

func TestLatestReport(t *testing.T) {
	l := New(t.TempDir())

	_, err := LatestReport(l.Insights, "trends_analysis_", ".html")
	assert.Equal(t, ErrNoReportDir, err)

	if err := os.MkdirAll(l.Insights, 0755); err != nil {
		t.Fatal(err)
	}
	_, err = LatestReport(l.Insights, "trends_analysis_", ".html")
	assert.Equal(t, ErrNoReport, err)

	writeFile(t, filepath.Join(l.Insights, "trends_analysis_2024-01-01.html"), "jan")
	writeFile(t, filepath.Join(l.Insights, "trends_analysis_2024-02-01.html"), "feb")
	writeFile(t, filepath.Join(l.Insights, "trends_analysis_2024-03-01.md"), "mar")
	writeFile(t, filepath.Join(l.Insights, "summary_2024-09-01.html"), "other")

	name, err := LatestReport(l.Insights, "trends_analysis_", ".html")
	assert.Equal(t, nil, err)
	assert.Equal(t, "trends_analysis_2024-02-01.html", name)

	name, err = LatestReport(l.Insights, "trends_analysis_", "")
	assert.Equal(t, nil, err)
	assert.Equal(t, "trends_analysis_2024-03-01.md", name)
}

func TestEnsureDirs(t *testing.T) {
	l := New(t.TempDir())
	assert.Equal(t, nil, l.EnsureDirs())

	for _, dir := range []string{l.Newsletters, l.Processed, l.Insights, l.InsightsDaily} {
		info, err := os.Stat(dir)
		assert.Equal(t, nil, err)
		assert.Equal(t, true, info.IsDir())
	}
}

func TestEllipsisFilename(t *testing.T) {
	l := New(t.TempDir())
	name := "2024-01-01_Wait..._what.html"
	writeFile(t, filepath.Join(l.Newsletters, name), "raw")

	names, err := l.ListNewsletters()
	assert.Equal(t, nil, err)
	assert.Equal(t, []string{name}, names)

	raw, err := l.ReadRaw(name)
	assert.Equal(t, nil, err)
	assert.Equal(t, "raw", raw)

	processed, err := l.WriteProcessed(name, "digest")
	assert.Equal(t, nil, err)
	assert.Equal(t, "processed_"+name, processed)
	assert.Equal(t, true, l.HasProcessed(name))

	content, isProcessed, err := l.ReadNewsletter(processed)
	assert.Equal(t, nil, err)
	assert.Equal(t, true, isProcessed)
	assert.Equal(t, "digest", content)
}

func TestValidateFilename(t *testing.T) {
	for _, name := range []string{"a.html", "Wait..._what.html", "..hidden.html", "v1.2..3.html"} {
		assert.Equal(t, nil, ValidateFilename(name))
	}
	for _, name := range []string{"", ".", "..", "../a.html", "a/b.html", `a\b.html`, "a\x00.html"} {
		assert.Equal(t, true, errors.Is(ValidateFilename(name), ErrInvalidFilename))
	}
}
