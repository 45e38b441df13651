package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"wisgen/internal/model"
	"wisgen/internal/repository"

	"github.com/gin-gonic/gin"
)

type BatchReader interface {
	GetBatches(ctx context.Context, limit, offset int) ([]model.Batch, error)
	GetBatchTotal(ctx context.Context) (int, error)
	GetBatch(ctx context.Context, id string) (*model.Batch, error)
}

type BatchHandler struct {
	repository BatchReader
	root       string
}

// NewBatchHandler serves the ingestion manifest. root is the workspace
// directory checked by the health route.
func NewBatchHandler(repository BatchReader, root string) *BatchHandler {
	return &BatchHandler{repository: repository, root: root}
}

func (h *BatchHandler) GetBatches(c *gin.Context) {
	limit := getQueryLimit(c)
	offset := getQueryOffset(c)
	ctx := c.Request.Context()

	total, err := h.repository.GetBatchTotal(ctx)
	if err != nil {
		slog.Error("error fetching batch total", "error", err)
		fail(c, http.StatusInternalServerError, "Database error", err)
		return
	}

	batches, err := h.repository.GetBatches(ctx, limit, offset)
	if err != nil {
		slog.Error("error fetching batches", "error", err)
		fail(c, http.StatusInternalServerError, "Database error", err)
		return
	}

	res := make([]BatchResponse, 0, len(batches))
	for i := range batches {
		res = append(res, toBatchResponse(&batches[i]))
	}

	c.JSON(http.StatusOK, BatchesResponse{
		Success: true,
		Batches: res,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
	})
}

func (h *BatchHandler) GetBatch(c *gin.Context) {
	id := c.Param("id")

	batch, err := h.repository.GetBatch(c.Request.Context(), id)
	if errors.Is(err, repository.ErrBatchNotFound) {
		fail(c, http.StatusNotFound, "Batch not found", nil)
		return
	}
	if err != nil {
		slog.Error("error fetching batch", "batch_id", id, "error", err)
		fail(c, http.StatusInternalServerError, "Database error", err)
		return
	}

	c.JSON(http.StatusOK, SingleBatchResponse{Success: true, Batch: toBatchResponse(batch)})
}

func (h *BatchHandler) GetHealth(c *gin.Context) {
	workspace := "reachable"
	if info, err := os.Stat(h.root); err != nil || !info.IsDir() {
		workspace = "unreachable"
	}

	manifest := "connected"
	if _, err := h.repository.GetBatchTotal(c.Request.Context()); err != nil {
		manifest = "disconnected"
	}

	if workspace != "reachable" || manifest != "connected" {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":    "unhealthy",
			"workspace": workspace,
			"manifest":  manifest,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"workspace": workspace,
		"manifest":  manifest,
	})
}

func toBatchResponse(b *model.Batch) BatchResponse {
	res := BatchResponse{
		ID:         b.ID,
		Kind:       b.Kind,
		Status:     b.Status,
		Message:    b.Message,
		ReportFile: b.ReportFile,
		StartedAt:  formatTime(b.StartedAt),
		FinishedAt: formatTime(b.FinishedAt),
	}
	for _, e := range b.Entries {
		res.Entries = append(res.Entries, BatchEntryResponse{
			Filename:          e.Filename,
			ProcessedFilename: e.ProcessedFilename,
			Status:            e.Status,
			Error:             e.Error,
			Fallback:          e.Fallback,
		})
	}
	return res
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
