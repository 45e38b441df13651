package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"wisgen/internal/digest"
	"wisgen/internal/ingest"
	"wisgen/internal/insights"
	"wisgen/internal/model"
	"wisgen/internal/repository"
	"wisgen/internal/workspace"

	"github.com/gin-gonic/gin"
)

type fakeStore struct {
	files    []string
	index    map[string]string
	contents map[string]string
	listErr  error
}

func (f *fakeStore) ListNewsletters() ([]string, error) {
	return f.files, f.listErr
}

func (f *fakeStore) ProcessedIndex() (map[string]string, error) {
	if f.index == nil {
		return map[string]string{}, nil
	}
	return f.index, nil
}

func (f *fakeStore) ReadNewsletter(filename string) (string, bool, error) {
	if err := workspace.ValidateFilename(filename); err != nil {
		return "", false, err
	}
	isProcessed := strings.HasPrefix(filename, model.ProcessedPrefix)
	content, ok := f.contents[filename]
	if !ok {
		return "", isProcessed, workspace.ErrNotFound
	}
	return content, isProcessed, nil
}

type fakePuller struct {
	result *ingest.PullResult
	err    error
	calls  int
}

func (f *fakePuller) Pull(ctx context.Context) (*ingest.PullResult, error) {
	f.calls++
	return f.result, f.err
}

func (f *fakePuller) ScriptPath() string {
	return "/srv/wisgen/main.py"
}

type fakeDigester struct {
	out       *digest.Output
	err       error
	gotModel  string
	gotHTML   string
	callCount int
}

func (f *fakeDigester) Transform(ctx context.Context, raw, model string) (*digest.Output, error) {
	f.callCount++
	f.gotHTML = raw
	f.gotModel = model
	return f.out, f.err
}

type fakeInsights struct {
	result    *insights.RunResult
	err       error
	report    *model.Report
	reportErr error
	gotFormat string
}

func (f *fakeInsights) Analyze(ctx context.Context) (*insights.RunResult, error) {
	return f.result, f.err
}

func (f *fakeInsights) RunScript(ctx context.Context) (*insights.RunResult, error) {
	return f.result, f.err
}

func (f *fakeInsights) Latest() (*model.Report, error) {
	return f.report, f.reportErr
}

func (f *fakeInsights) LatestContent(format string) (*model.Report, error) {
	f.gotFormat = format
	return f.report, f.reportErr
}

type fakeBatches struct {
	batches []model.Batch
	total   int
	err     error
}

func (f *fakeBatches) GetBatches(ctx context.Context, limit, offset int) ([]model.Batch, error) {
	return f.batches, f.err
}

func (f *fakeBatches) GetBatchTotal(ctx context.Context) (int, error) {
	return f.total, f.err
}

func (f *fakeBatches) GetBatch(ctx context.Context, id string) (*model.Batch, error) {
	if f.err != nil {
		return nil, f.err
	}
	for i := range f.batches {
		if f.batches[i].ID == id {
			return &f.batches[i], nil
		}
	}
	return nil, repository.ErrBatchNotFound
}

type testDeps struct {
	store    *fakeStore
	puller   *fakePuller
	digester *fakeDigester
	insights *fakeInsights
	batches  *fakeBatches
	root     string
}

func newTestRouter(t *testing.T, d testDeps) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	if d.store == nil {
		d.store = &fakeStore{}
	}
	if d.puller == nil {
		d.puller = &fakePuller{}
	}
	if d.digester == nil {
		d.digester = &fakeDigester{}
	}
	if d.insights == nil {
		d.insights = &fakeInsights{}
	}
	if d.batches == nil {
		d.batches = &fakeBatches{}
	}
	if d.root == "" {
		d.root = t.TempDir()
	}

	tmpl, err := Templates()
	if err != nil {
		t.Fatal(err)
	}

	r := gin.New()
	r.Use(Recovery())
	r.SetHTMLTemplate(tmpl)

	newsletters := NewNewsletterHandler(d.store, d.puller)
	digests := NewDigestHandler(d.digester, "gemini-test")
	reports := NewInsightsHandler(d.insights)
	batches := NewBatchHandler(d.batches, d.root)
	pages := NewPageHandler(d.store, d.insights)

	r.POST("/api/pull-newsletters", newsletters.Pull)
	r.GET("/api/get-newsletters", newsletters.List)
	r.GET("/api/get-newsletter-content", newsletters.Content)
	r.POST("/api/gemini-process", digests.Process)
	r.POST("/api/analyze-insights", reports.Analyze)
	r.GET("/api/run-python-script", reports.RunScript)
	r.GET("/api/get-insights", reports.Latest)
	r.GET("/api/get-insights-content", reports.LatestContent)
	r.GET("/api/batches", batches.GetBatches)
	r.GET("/api/batches/:id", batches.GetBatch)
	r.GET("/health", batches.GetHealth)
	r.GET("/", pages.Index)
	r.GET("/newsletter/:filename", pages.Reader)
	r.GET("/insights", pages.Insights)
	r.GET("/generate-insights", pages.GenerateInsights)
	r.GET("/panic", func(c *gin.Context) { panic("boom") })

	return r
}

func serve(r *gin.Engine, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("failed to parse response %q: %v", w.Body.String(), err)
	}
	return v
}
