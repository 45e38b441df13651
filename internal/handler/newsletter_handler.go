package handler

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"

	"wisgen/internal/ingest"
	"wisgen/internal/metadata"
	"wisgen/internal/model"
	"wisgen/internal/render"
	"wisgen/internal/runner"
	"wisgen/internal/workspace"

	"github.com/gin-gonic/gin"
)

type NewsletterStore interface {
	ListNewsletters() ([]string, error)
	ProcessedIndex() (map[string]string, error)
	ReadNewsletter(filename string) (string, bool, error)
}

type Puller interface {
	Pull(ctx context.Context) (*ingest.PullResult, error)
	ScriptPath() string
}

type NewsletterHandler struct {
	store  NewsletterStore
	puller Puller
}

func NewNewsletterHandler(store NewsletterStore, puller Puller) *NewsletterHandler {
	return &NewsletterHandler{store: store, puller: puller}
}

// List returns metadata for every pulled newsletter, newest first.
func (h *NewsletterHandler) List(c *gin.Context) {
	newsletters, err := loadNewsletters(h.store)
	if errors.Is(err, fs.ErrNotExist) {
		c.JSON(http.StatusOK, NewslettersResponse{
			Success:     false,
			Message:     "No newsletters directory found",
			Newsletters: []NewsletterResponse{},
		})
		return
	}
	if err != nil {
		slog.Error("error listing newsletters", "error", err)
		c.JSON(http.StatusInternalServerError, NewslettersResponse{
			Success:     false,
			Message:     "Failed to get newsletters",
			Error:       err.Error(),
			Newsletters: []NewsletterResponse{},
		})
		return
	}

	res := make([]NewsletterResponse, 0, len(newsletters))
	for _, n := range newsletters {
		item := NewsletterResponse{
			Source:   n.Source,
			Subject:  n.Subject,
			Date:     n.Date,
			Filename: n.Filename,
			Excerpt:  n.Excerpt,
		}
		if n.ProcessedFilename != "" {
			processed := n.ProcessedFilename
			item.ProcessedFilename = &processed
		}
		res = append(res, item)
	}

	c.JSON(http.StatusOK, NewslettersResponse{
		Success:     true,
		Message:     "Newsletters retrieved successfully",
		Newsletters: res,
	})
}

func loadNewsletters(store NewsletterStore) ([]model.Newsletter, error) {
	files, err := store.ListNewsletters()
	if err != nil {
		return nil, err
	}

	processed, err := store.ProcessedIndex()
	if err != nil {
		return nil, err
	}

	newsletters := make([]model.Newsletter, 0, len(files))
	for _, file := range files {
		content, _, err := store.ReadNewsletter(file)
		if err != nil {
			return nil, err
		}
		n := metadata.Extract(file, content)
		n.ProcessedFilename = processed[file]
		newsletters = append(newsletters, n)
	}

	metadata.Sort(newsletters)
	return newsletters, nil
}

// Content returns one newsletter, raw or processed depending on the name.
func (h *NewsletterHandler) Content(c *gin.Context) {
	filename := c.Query("filename")
	if filename == "" {
		fail(c, http.StatusBadRequest, "No filename provided", nil)
		return
	}

	content, isProcessed, err := h.store.ReadNewsletter(filename)
	switch {
	case errors.Is(err, workspace.ErrInvalidFilename):
		fail(c, http.StatusBadRequest, "Invalid filename", err)
		return
	case errors.Is(err, workspace.ErrNotFound):
		fail(c, http.StatusNotFound, "Newsletter file not found", nil)
		return
	case err != nil:
		slog.Error("error reading newsletter", "filename", filename, "error", err)
		fail(c, http.StatusInternalServerError, "Failed to get newsletter content", err)
		return
	}

	res := NewsletterContentResponse{Success: true, IsProcessed: isProcessed, Content: content}

	if c.Query("format") == model.FormatMarkdown {
		markdown, err := render.ToMarkdown(content)
		if err != nil {
			slog.Error("error converting newsletter", "filename", filename, "error", err)
			fail(c, http.StatusInternalServerError, "Failed to get newsletter content", err)
			return
		}
		res.Content = markdown
		res.Format = model.FormatMarkdown
	}

	c.JSON(http.StatusOK, res)
}

// Pull runs the pull script and digests the new newsletters.
func (h *NewsletterHandler) Pull(c *gin.Context) {
	result, err := h.puller.Pull(c.Request.Context())
	if err == nil {
		c.JSON(http.StatusOK, PullResponse{
			Success:        true,
			Message:        "Newsletters pulled and processed successfully",
			Output:         result.Output,
			BatchID:        result.BatchID,
			ProcessResults: toProcessResults(result.Results),
		})
		return
	}

	path := h.puller.ScriptPath()
	var scriptErr *ingest.ScriptError

	switch {
	case errors.Is(err, ingest.ErrBusy):
		fail(c, http.StatusConflict, "A newsletter pull is already running", nil)

	case errors.Is(err, ingest.ErrScriptNotFound):
		failWithPath(c, http.StatusInternalServerError, "Python script not found", "", path)

	case errors.As(err, &scriptErr):
		slog.Error("pull script failed", "kind", scriptErr.Result.Kind, "exit_code", scriptErr.Result.ExitCode)
		switch scriptErr.Result.Kind {
		case runner.KindSpawnError:
			failWithPath(c, http.StatusInternalServerError, "Failed to start Python process", scriptErr.Result.Message(), path)
		case runner.KindTimedOut:
			failWithPath(c, http.StatusGatewayTimeout, "Newsletter pull timed out", scriptErr.Result.Message(), path)
		default:
			failWithPath(c, http.StatusInternalServerError, "Failed to pull newsletters", scriptErr.Result.Message(), path)
		}

	case errors.Is(err, ingest.ErrPartial):
		res := PullResponse{
			Success: false,
			Message: "Newsletters pulled but processing failed",
			Error:   err.Error(),
		}
		if result != nil {
			res.Output = result.Output
			res.BatchID = result.BatchID
			res.ProcessResults = toProcessResults(result.Results)
		}
		c.JSON(http.StatusInternalServerError, res)

	default:
		slog.Error("error pulling newsletters", "error", err)
		fail(c, http.StatusInternalServerError, "Internal server error", err)
	}
}

func toProcessResults(results []model.ProcessResult) []ProcessResultResponse {
	res := make([]ProcessResultResponse, 0, len(results))
	for _, r := range results {
		res = append(res, ProcessResultResponse{
			Filename:          r.Filename,
			ProcessedFilename: r.ProcessedFilename,
			Status:            r.Status,
			Error:             r.Error,
			Fallback:          r.Fallback,
		})
	}
	return res
}
