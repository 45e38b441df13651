package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"wisgen/internal/insights"
	"wisgen/internal/model"
	"wisgen/internal/runner"
	"wisgen/internal/workspace"

	"github.com/gin-gonic/gin"
)

type InsightsService interface {
	Analyze(ctx context.Context) (*insights.RunResult, error)
	RunScript(ctx context.Context) (*insights.RunResult, error)
	Latest() (*model.Report, error)
	LatestContent(format string) (*model.Report, error)
}

type InsightsHandler struct {
	service InsightsService
}

func NewInsightsHandler(service InsightsService) *InsightsHandler {
	return &InsightsHandler{service: service}
}

func (h *InsightsHandler) Analyze(c *gin.Context) {
	res, err := h.service.Analyze(c.Request.Context())
	if err != nil {
		h.analysisFailed(c, err, "Failed to analyze insights")
		return
	}

	c.JSON(http.StatusOK, AnalyzeResponse{
		Success:    true,
		Message:    "Insights analysis generated successfully",
		Output:     res.Output,
		ReportFile: res.ReportFile,
		BatchID:    res.BatchID,
	})
}

func (h *InsightsHandler) RunScript(c *gin.Context) {
	res, err := h.service.RunScript(c.Request.Context())
	if err != nil {
		h.analysisFailed(c, err, "Failed to run insights script")
		return
	}

	c.JSON(http.StatusOK, AnalyzeResponse{
		Success:    true,
		Message:    "Script executed successfully",
		Output:     res.Output,
		ReportFile: res.ReportFile,
		BatchID:    res.BatchID,
	})
}

func (h *InsightsHandler) analysisFailed(c *gin.Context, err error, message string) {
	var scriptErr *insights.ScriptError

	switch {
	case errors.Is(err, insights.ErrNoInsightsDir):
		fail(c, http.StatusBadRequest, "No insights directory found", nil)

	case errors.Is(err, insights.ErrBusy):
		fail(c, http.StatusConflict, "An insights analysis is already running", nil)

	case errors.As(err, &scriptErr):
		slog.Error("insights analysis failed", "kind", scriptErr.Result.Kind, "exit_code", scriptErr.Result.ExitCode)
		switch scriptErr.Result.Kind {
		case runner.KindTimedOut:
			fail(c, http.StatusGatewayTimeout, "Process timed out. This might be due to a long-running operation or an error in the Python script.", nil)
		case runner.KindSpawnError:
			fail(c, http.StatusInternalServerError, "Failed to start Python process", errors.New(scriptErr.Result.Message()))
		default:
			fail(c, http.StatusInternalServerError, message, errors.New(scriptErr.Result.Message()))
		}

	default:
		slog.Error("error analyzing insights", "error", err)
		fail(c, http.StatusInternalServerError, message, err)
	}
}

func (h *InsightsHandler) Latest(c *gin.Context) {
	report, err := h.service.Latest()
	if err != nil {
		reportFailed(c, err, "Failed to fetch insights")
		return
	}

	c.JSON(http.StatusOK, InsightsResponse{
		Success:  true,
		Content:  report.Content,
		Filename: report.Filename,
	})
}

func (h *InsightsHandler) LatestContent(c *gin.Context) {
	report, err := h.service.LatestContent(c.Query("format"))
	if err != nil {
		reportFailed(c, err, "Failed to fetch insights content")
		return
	}

	c.JSON(http.StatusOK, InsightsResponse{
		Success:  true,
		Content:  report.Content,
		Filename: report.Filename,
		Format:   report.Format,
	})
}

func reportFailed(c *gin.Context, err error, message string) {
	switch {
	case errors.Is(err, workspace.ErrNoReportDir):
		fail(c, http.StatusNotFound, "No insights directory found", nil)
	case errors.Is(err, workspace.ErrNoReport):
		fail(c, http.StatusNotFound, "No insights analysis found", nil)
	default:
		slog.Error("error reading insights", "error", err)
		fail(c, http.StatusInternalServerError, message, err)
	}
}
