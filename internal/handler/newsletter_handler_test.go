package handler

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"strings"
	"testing"

	"wisgen/internal/ingest"
	"wisgen/internal/model"
	"wisgen/internal/runner"

	"github.com/go-playground/assert/v2"
)

const (
	olderNewsletter = `<!-- From: Acme Corp <news@acme.com> -->
<!-- Date: Mon, 01 Jan 2024 09:00:00 +0000 -->
<html><body><p>Quarterly roundup</p></body></html>`

	newerNewsletter = `<!-- From: Daily Brief <brief@example.com> -->
<!-- Date: Thu, 01 Feb 2024 09:00:00 +0000 -->
<html><body><p>Markets <b>rallied</b> today</p><a href="https://example.com">more</a></body></html>`
)

func newsletterStore() *fakeStore {
	return &fakeStore{
		files: []string{"2024-01-01_Acme_Roundup.html", "2024-02-01_Daily_Brief.html"},
		index: map[string]string{"2024-02-01_Daily_Brief.html": "processed_2024-02-01_Daily_Brief.html"},
		contents: map[string]string{
			"2024-01-01_Acme_Roundup.html":           olderNewsletter,
			"2024-02-01_Daily_Brief.html":            newerNewsletter,
			"processed_2024-02-01_Daily_Brief.html": `<h1>Daily Brief</h1><p>Digest</p><script>alert(1)</script>`,
		},
	}
}

func TestList_NewestFirstWithProcessedName(t *testing.T) {
	r := newTestRouter(t, testDeps{store: newsletterStore()})

	w := serve(r, http.MethodGet, "/api/get-newsletters", "")

	assert.Equal(t, http.StatusOK, w.Code)
	res := decode[NewslettersResponse](t, w)
	assert.Equal(t, true, res.Success)
	assert.Equal(t, 2, len(res.Newsletters))

	first := res.Newsletters[0]
	assert.Equal(t, "2024-02-01_Daily_Brief.html", first.Filename)
	assert.Equal(t, "Daily Brief", first.Source)
	assert.Equal(t, "Daily Brief", first.Subject)
	assert.Equal(t, "processed_2024-02-01_Daily_Brief.html", *first.ProcessedFilename)

	second := res.Newsletters[1]
	assert.Equal(t, "Acme Corp", second.Source)
	assert.Equal(t, true, second.ProcessedFilename == nil)
}

func TestList_MissingDirectory(t *testing.T) {
	store := &fakeStore{listErr: fmt.Errorf("open newsletters: %w", fs.ErrNotExist)}
	r := newTestRouter(t, testDeps{store: store})

	w := serve(r, http.MethodGet, "/api/get-newsletters", "")

	assert.Equal(t, http.StatusOK, w.Code)
	res := decode[NewslettersResponse](t, w)
	assert.Equal(t, false, res.Success)
	assert.Equal(t, "No newsletters directory found", res.Message)
	assert.Equal(t, 0, len(res.Newsletters))
}

func TestList_ReadError(t *testing.T) {
	store := &fakeStore{listErr: errors.New("permission denied")}
	r := newTestRouter(t, testDeps{store: store})

	w := serve(r, http.MethodGet, "/api/get-newsletters", "")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	res := decode[NewslettersResponse](t, w)
	assert.Equal(t, false, res.Success)
	assert.Equal(t, "permission denied", res.Error)
}

func TestContent(t *testing.T) {
	tests := []struct {
		name          string
		query         string
		wantStatus    int
		wantProcessed bool
		wantMessage   string
	}{
		{"raw", "?filename=2024-01-01_Acme_Roundup.html", http.StatusOK, false, ""},
		{"processed", "?filename=processed_2024-02-01_Daily_Brief.html", http.StatusOK, true, ""},
		{"no filename", "", http.StatusBadRequest, false, "No filename provided"},
		{"traversal", "?filename=../secrets.html", http.StatusBadRequest, false, "Invalid filename"},
		{"missing", "?filename=2023-01-01_Gone.html", http.StatusNotFound, false, "Newsletter file not found"},
	}

	r := newTestRouter(t, testDeps{store: newsletterStore()})

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(r, http.MethodGet, "/api/get-newsletter-content"+tt.query, "")

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus != http.StatusOK {
				res := decode[ErrorResponse](t, w)
				assert.Equal(t, false, res.Success)
				assert.Equal(t, tt.wantMessage, res.Message)
				return
			}
			res := decode[NewsletterContentResponse](t, w)
			assert.Equal(t, true, res.Success)
			assert.Equal(t, tt.wantProcessed, res.IsProcessed)
		})
	}
}

func TestContent_Markdown(t *testing.T) {
	r := newTestRouter(t, testDeps{store: newsletterStore()})

	w := serve(r, http.MethodGet, "/api/get-newsletter-content?filename=processed_2024-02-01_Daily_Brief.html&format=markdown", "")

	assert.Equal(t, http.StatusOK, w.Code)
	res := decode[NewsletterContentResponse](t, w)
	assert.Equal(t, model.FormatMarkdown, res.Format)
	assert.Equal(t, true, strings.Contains(res.Content, "# Daily Brief"))
	assert.Equal(t, false, strings.Contains(res.Content, "<h1>"))
}

func TestPull_Success(t *testing.T) {
	puller := &fakePuller{result: &ingest.PullResult{
		BatchID: "b-1",
		Output:  "Fetched 1 newsletter\n",
		Results: []model.ProcessResult{
			{Filename: "a.html", ProcessedFilename: "processed_a.html", Status: model.StatusProcessed},
			{Filename: "b.html", ProcessedFilename: "processed_b.html", Status: model.StatusSkipped},
		},
	}}
	r := newTestRouter(t, testDeps{puller: puller})

	w := serve(r, http.MethodPost, "/api/pull-newsletters", "")

	assert.Equal(t, http.StatusOK, w.Code)
	res := decode[PullResponse](t, w)
	assert.Equal(t, true, res.Success)
	assert.Equal(t, "Fetched 1 newsletter\n", res.Output)
	assert.Equal(t, "b-1", res.BatchID)
	assert.Equal(t, 2, len(res.ProcessResults))
	assert.Equal(t, model.StatusSkipped, res.ProcessResults[1].Status)
}

func TestPull_Errors(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantMessage string
		wantPath    bool
	}{
		{"busy", ingest.ErrBusy, http.StatusConflict, "A newsletter pull is already running", false},
		{"script missing", ingest.ErrScriptNotFound, http.StatusInternalServerError, "Python script not found", true},
		{
			"spawn error",
			&ingest.ScriptError{Result: &runner.Result{Kind: runner.KindSpawnError, ExitCode: -1, Err: errors.New("exec: not found")}},
			http.StatusInternalServerError, "Failed to start Python process", true,
		},
		{
			"timeout",
			&ingest.ScriptError{Result: &runner.Result{Kind: runner.KindTimedOut, ExitCode: -1, Err: errors.New("deadline exceeded")}},
			http.StatusGatewayTimeout, "Newsletter pull timed out", true,
		},
		{
			"script failed",
			&ingest.ScriptError{Result: &runner.Result{Kind: runner.KindFailed, ExitCode: 1, Stderr: "Traceback"}},
			http.StatusInternalServerError, "Failed to pull newsletters", true,
		},
		{"unexpected", errors.New("disk full"), http.StatusInternalServerError, "Internal server error", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRouter(t, testDeps{puller: &fakePuller{err: tt.err}})

			w := serve(r, http.MethodPost, "/api/pull-newsletters", "")

			assert.Equal(t, tt.wantStatus, w.Code)
			res := decode[ErrorResponse](t, w)
			assert.Equal(t, false, res.Success)
			assert.Equal(t, tt.wantMessage, res.Message)
			if tt.wantPath {
				assert.Equal(t, "/srv/wisgen/main.py", res.Path)
			}
		})
	}
}

func TestPull_PartialReportsResults(t *testing.T) {
	puller := &fakePuller{
		result: &ingest.PullResult{
			BatchID: "b-2",
			Results: []model.ProcessResult{
				{Filename: "a.html", Status: model.StatusFailed, Error: "write failed"},
			},
		},
		err: fmt.Errorf("%w: write failed", ingest.ErrPartial),
	}
	r := newTestRouter(t, testDeps{puller: puller})

	w := serve(r, http.MethodPost, "/api/pull-newsletters", "")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	res := decode[PullResponse](t, w)
	assert.Equal(t, false, res.Success)
	assert.Equal(t, "Newsletters pulled but processing failed", res.Message)
	assert.Equal(t, 1, len(res.ProcessResults))
	assert.Equal(t, "write failed", res.ProcessResults[0].Error)
}

func TestRecovery(t *testing.T) {
	r := newTestRouter(t, testDeps{})

	w := serve(r, http.MethodGet, "/panic", "")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	res := decode[ErrorResponse](t, w)
	assert.Equal(t, false, res.Success)
	assert.Equal(t, "Internal server error", res.Message)
}

func TestList_EllipsisFilename(t *testing.T) {
	name := "2024-03-01_Wait..._what.html"
	store := &fakeStore{
		files:    []string{name},
		contents: map[string]string{name: "<!-- From: Daily Brief <brief@example.com> -->\n<p>hi</p>"},
	}
	r := newTestRouter(t, testDeps{store: store})

	w := serve(r, http.MethodGet, "/api/get-newsletters", "")

	assert.Equal(t, http.StatusOK, w.Code)
	res := decode[NewslettersResponse](t, w)
	assert.Equal(t, true, res.Success)
	assert.Equal(t, name, res.Newsletters[0].Filename)
	assert.Equal(t, "Wait... what", res.Newsletters[0].Subject)

	w = serve(r, http.MethodGet, "/newsletter/"+name, "")
	assert.Equal(t, http.StatusOK, w.Code)
}
