package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"wisgen/internal/digest"

	"github.com/gin-gonic/gin"
)

type Digester interface {
	Transform(ctx context.Context, raw, model string) (*digest.Output, error)
}

type DigestHandler struct {
	digester     Digester
	defaultModel string
}

// NewDigestHandler expects a Digester that reports failures instead of
// falling back.
func NewDigestHandler(digester Digester, defaultModel string) *DigestHandler {
	return &DigestHandler{digester: digester, defaultModel: defaultModel}
}

func (h *DigestHandler) Process(c *gin.Context) {
	var req ProcessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if strings.TrimSpace(req.HTML) == "" {
		fail(c, http.StatusBadRequest, "No HTML content provided", nil)
		return
	}

	modelName := req.ModelName
	if modelName == "" {
		modelName = h.defaultModel
	}

	out, err := h.digester.Transform(c.Request.Context(), req.HTML, modelName)
	if err != nil {
		slog.Error("error processing html", "model", modelName, "error", err)
		fail(c, http.StatusInternalServerError, "Failed to process with Gemini", err)
		return
	}

	c.JSON(http.StatusOK, ProcessResponse{
		Success:  true,
		Content:  out.Content,
		Model:    out.ModelUsed,
		Fallback: out.Fallback,
	})
}
