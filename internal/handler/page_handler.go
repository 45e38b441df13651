package handler

import (
	"embed"
	"errors"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"

	"wisgen/internal/metadata"
	"wisgen/internal/model"
	"wisgen/internal/render"
	"wisgen/internal/workspace"

	"github.com/gin-gonic/gin"
)

//go:embed templates/*.html
var templateFS embed.FS

// Templates parses the embedded page templates.
func Templates() (*template.Template, error) {
	return template.ParseFS(templateFS, "templates/*.html")
}

type ReportReader interface {
	LatestContent(format string) (*model.Report, error)
}

type PageHandler struct {
	store   NewsletterStore
	reports ReportReader
}

func NewPageHandler(store NewsletterStore, reports ReportReader) *PageHandler {
	return &PageHandler{store: store, reports: reports}
}

type listPage struct {
	Title       string
	Message     string
	Newsletters []model.Newsletter
}

type readerPage struct {
	Title       string
	Newsletter  model.Newsletter
	IsProcessed bool
	Content     template.HTML
}

type insightsPage struct {
	Title    string
	Message  string
	Filename string
	Content  template.HTML
}

func (h *PageHandler) Index(c *gin.Context) {
	page := listPage{Title: "Newsletters"}

	newsletters, err := loadNewsletters(h.store)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		page.Message = "No newsletters directory found"
	case err != nil:
		slog.Error("error listing newsletters", "error", err)
		c.HTML(http.StatusInternalServerError, "error.html", gin.H{"Title": "Error", "Message": "Failed to get newsletters"})
		return
	default:
		page.Newsletters = newsletters
	}

	c.HTML(http.StatusOK, "index.html", page)
}

// Reader shows one newsletter, preferring its processed version unless
// ?original=1 is given.
func (h *PageHandler) Reader(c *gin.Context) {
	filename := c.Param("filename")
	if err := workspace.ValidateFilename(filename); err != nil {
		c.HTML(http.StatusBadRequest, "error.html", gin.H{"Title": "Error", "Message": "Invalid filename"})
		return
	}

	raw, _, err := h.store.ReadNewsletter(filename)
	if errors.Is(err, workspace.ErrNotFound) {
		c.HTML(http.StatusNotFound, "error.html", gin.H{"Title": "Not found", "Message": "Newsletter file not found"})
		return
	}
	if err != nil {
		slog.Error("error reading newsletter", "filename", filename, "error", err)
		c.HTML(http.StatusInternalServerError, "error.html", gin.H{"Title": "Error", "Message": "Failed to get newsletter content"})
		return
	}

	content, isProcessed := raw, false
	if c.Query("original") != "1" {
		processed, _, err := h.store.ReadNewsletter(model.ProcessedName(filename))
		if err == nil {
			content, isProcessed = processed, true
		}
	}

	clean, err := render.Sanitize(content)
	if err != nil {
		slog.Error("error sanitizing newsletter", "filename", filename, "error", err)
		c.HTML(http.StatusInternalServerError, "error.html", gin.H{"Title": "Error", "Message": "Failed to render newsletter"})
		return
	}

	n := metadata.Extract(filename, raw)
	c.HTML(http.StatusOK, "reader.html", readerPage{
		Title:       n.Subject,
		Newsletter:  n,
		IsProcessed: isProcessed,
		Content:     template.HTML(clean),
	})
}

func (h *PageHandler) Insights(c *gin.Context) {
	page := insightsPage{Title: "Insights"}

	report, err := h.reports.LatestContent(model.FormatHTML)
	switch {
	case errors.Is(err, workspace.ErrNoReportDir):
		page.Message = "No insights directory found"
	case errors.Is(err, workspace.ErrNoReport):
		page.Message = "No insights analysis found"
	case err != nil:
		slog.Error("error reading insights", "error", err)
		c.HTML(http.StatusInternalServerError, "error.html", gin.H{"Title": "Error", "Message": "Failed to fetch insights"})
		return
	default:
		clean, err := render.Sanitize(report.Content)
		if err != nil {
			slog.Error("error sanitizing insights", "filename", report.Filename, "error", err)
			c.HTML(http.StatusInternalServerError, "error.html", gin.H{"Title": "Error", "Message": "Failed to fetch insights"})
			return
		}
		page.Filename = report.Filename
		page.Content = template.HTML(clean)
	}

	c.HTML(http.StatusOK, "insights.html", page)
}

func (h *PageHandler) GenerateInsights(c *gin.Context) {
	c.HTML(http.StatusOK, "generate.html", gin.H{"Title": "Generate insights"})
}
