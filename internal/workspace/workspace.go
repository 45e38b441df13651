package workspace

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"wisgen/internal/model"
)

var (
	ErrInvalidFilename = errors.New("invalid filename")
	ErrNotFound        = errors.New("file not found")
	ErrNoReportDir     = errors.New("no insights directory found")
	ErrNoReport        = errors.New("no insights report found")
)

// Layout is the data directory convention under a workspace root.
type Layout struct {
	Root          string
	Newsletters   string
	Processed     string
	Insights      string
	InsightsDaily string
}

func New(root string) *Layout {
	data := filepath.Join(root, "data")
	return &Layout{
		Root:          root,
		Newsletters:   filepath.Join(data, "newsletters"),
		Processed:     filepath.Join(data, "processed"),
		Insights:      filepath.Join(data, "insights"),
		InsightsDaily: filepath.Join(data, "insights", "daily"),
	}
}

func (l *Layout) EnsureDirs() error {
	for _, dir := range []string{l.Newsletters, l.Processed, l.Insights, l.InsightsDaily} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return nil
}

// ListNewsletters returns the .html files of the newsletters directory sorted
// by name. A missing directory yields an error matching fs.ErrNotExist.
func (l *Layout) ListNewsletters() ([]string, error) {
	return listFiles(l.Newsletters, func(name string) bool {
		return strings.HasSuffix(name, ".html")
	})
}

// ProcessedIndex maps original filenames to their processed counterparts.
func (l *Layout) ProcessedIndex() (map[string]string, error) {
	index := make(map[string]string)

	names, err := listFiles(l.Processed, func(name string) bool {
		return strings.HasPrefix(name, model.ProcessedPrefix) && strings.HasSuffix(name, ".html")
	})
	if errors.Is(err, fs.ErrNotExist) {
		return index, nil
	}
	if err != nil {
		return nil, err
	}

	for _, name := range names {
		index[strings.TrimPrefix(name, model.ProcessedPrefix)] = name
	}
	return index, nil
}

// ReadNewsletter reads a raw newsletter, or a processed one when the name
// carries the processed prefix.
func (l *Layout) ReadNewsletter(filename string) (content string, isProcessed bool, err error) {
	if err := ValidateFilename(filename); err != nil {
		return "", false, err
	}

	dir := l.Newsletters
	if strings.HasPrefix(filename, model.ProcessedPrefix) {
		dir = l.Processed
		isProcessed = true
	}

	data, err := os.ReadFile(filepath.Join(dir, filename))
	if errors.Is(err, fs.ErrNotExist) {
		return "", isProcessed, ErrNotFound
	}
	if err != nil {
		return "", isProcessed, err
	}
	return string(data), isProcessed, nil
}

// ReadRaw reads from the newsletters directory regardless of the name.
func (l *Layout) ReadRaw(filename string) (string, error) {
	if err := ValidateFilename(filename); err != nil {
		return "", err
	}
	data, err := os.ReadFile(filepath.Join(l.Newsletters, filename))
	if errors.Is(err, fs.ErrNotExist) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (l *Layout) HasProcessed(filename string) bool {
	_, err := os.Stat(filepath.Join(l.Processed, model.ProcessedName(filename)))
	return err == nil
}

// WriteProcessed stores content as the processed counterpart of filename and
// returns the processed name. Readers never observe a partial file.
func (l *Layout) WriteProcessed(filename, content string) (string, error) {
	if err := ValidateFilename(filename); err != nil {
		return "", err
	}
	if err := os.MkdirAll(l.Processed, 0755); err != nil {
		return "", err
	}

	name := model.ProcessedName(filename)
	tmp, err := os.CreateTemp(l.Processed, ".tmp-"+name+"-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return "", err
	}
	if err := os.Rename(tmp.Name(), filepath.Join(l.Processed, name)); err != nil {
		return "", fmt.Errorf("failed to move %s into place: %w", name, err)
	}
	return name, nil
}

// LatestReport returns the lexicographically last file in dir starting with
// prefix and, when ext is non-empty, ending with ext.
func LatestReport(dir, prefix, ext string) (string, error) {
	names, err := listFiles(dir, func(name string) bool {
		return strings.HasPrefix(name, prefix) && (ext == "" || strings.HasSuffix(name, ext))
	})
	if errors.Is(err, fs.ErrNotExist) {
		return "", ErrNoReportDir
	}
	if err != nil {
		return "", err
	}
	if len(names) == 0 {
		return "", ErrNoReport
	}
	return names[len(names)-1], nil
}

func (l *Layout) ReadReport(name string) (string, error) {
	if err := ValidateFilename(name); err != nil {
		return "", err
	}
	data, err := os.ReadFile(filepath.Join(l.Insights, name))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// ValidateFilename accepts only a bare file name inside a data directory.
func ValidateFilename(name string) error {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) ||
		strings.ContainsRune(name, 0) {
		return fmt.Errorf("%w: %q", ErrInvalidFilename, name)
	}
	return nil
}

func listFiles(dir string, keep func(string) bool) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !keep(entry.Name()) {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}
