package optimize_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"cv-tailor-backend/internal/bootstrap"
	"cv-tailor-backend/internal/config"
	"cv-tailor-backend/internal/llm"
)

type fakeModel struct {
	mu    sync.Mutex
	resp  llm.Response
	err   error
	calls int
}

func (f *fakeModel) Invoke(ctx context.Context, instruction string, attachment *llm.Attachment) (llm.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return llm.Response{}, f.err
	}
	return f.resp, nil
}

func (f *fakeModel) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type testApp struct {
	router       *gin.Engine
	model        *fakeModel
	stagingDir   string
	generatedDir string
}

func newTestApp(t *testing.T, model *fakeModel) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Config{
		Port:               "0",
		Env:                "dev",
		CORSAllowOrigin:    []string{"http://localhost:5173"},
		AcceptedMediaTypes: []string{"application/pdf"},
		MaxUploadBytes:     1 << 20,
		StagingDir:         t.TempDir(),
		GeneratedDir:       t.TempDir(),
		ModelTimeout:       5 * time.Second,
		RenderTimeout:      10 * time.Second,
		PageSize:           "A4",
		PageMarginInches:   0.8,
	}

	app, err := bootstrap.Build(cfg)
	if err != nil {
		t.Fatalf("bootstrap build: %v", err)
	}
	app.OptimizeService.Model = model

	return &testApp{
		router:       app.Router,
		model:        model,
		stagingDir:   cfg.StagingDir,
		generatedDir: cfg.GeneratedDir,
	}
}

func multipartUpload(t *testing.T, fileField, fileName, contentType string, fileData []byte, jobDescription string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	if fileData != nil {
		header := textproto.MIMEHeader{}
		header.Set("Content-Disposition", `form-data; name="`+fileField+`"; filename="`+fileName+`"`)
		header.Set("Content-Type", contentType)
		part, err := writer.CreatePart(header)
		if err != nil {
			t.Fatalf("create part: %v", err)
		}
		if _, err := part.Write(fileData); err != nil {
			t.Fatalf("write part: %v", err)
		}
	}
	if jobDescription != "" {
		if err := writer.WriteField("jobDescription", jobDescription); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return body, writer.FormDataContentType()
}

func (a *testApp) post(t *testing.T, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/optimize-for-job", body)
	req.Header.Set("Content-Type", contentType)
	resp := httptest.NewRecorder()
	a.router.ServeHTTP(resp, req)
	return resp
}

func (a *testApp) assertDirEmpty(t *testing.T, dir string, label string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read %s dir: %v", label, err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected %s dir empty, found %d entries", label, len(entries))
	}
}

func pdfBytes() []byte {
	return bytes.Repeat([]byte("%PDF-1.4 fake resume content\n"), 64)
}

func TestOptimizeSuccessAndOneTimeDownload(t *testing.T) {
	app := newTestApp(t, &fakeModel{resp: llm.Response{
		Kind: llm.KindPlainText,
		Text: "Highlight your Go and Kubernetes experience first.",
	}})

	body, contentType := multipartUpload(t, "cv", "resume.pdf", "application/pdf", pdfBytes(), "Backend engineer, Go, Kubernetes")
	resp := app.post(t, body, contentType)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var result struct {
		Success  bool   `json:"success"`
		Message  string `json:"message"`
		Filename string `json:"filename"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !result.Success || result.Filename == "" {
		t.Fatalf("unexpected result: %+v", result)
	}

	// The staged source document must be gone on success too.
	app.assertDirEmpty(t, app.stagingDir, "staging")

	// First download succeeds with PDF content.
	reqGet := httptest.NewRequest(http.MethodGet, "/api/download/"+result.Filename, nil)
	respGet := httptest.NewRecorder()
	app.router.ServeHTTP(respGet, reqGet)

	if respGet.Code != http.StatusOK {
		t.Fatalf("expected 200 download, got %d", respGet.Code)
	}
	if got := respGet.Header().Get("Content-Type"); got != "application/pdf" {
		t.Fatalf("expected pdf content type, got %s", got)
	}
	if !bytes.HasPrefix(respGet.Body.Bytes(), []byte("%PDF")) {
		t.Fatalf("download is not a PDF")
	}

	// Second download of the same filename is a 404.
	reqAgain := httptest.NewRequest(http.MethodGet, "/api/download/"+result.Filename, nil)
	respAgain := httptest.NewRecorder()
	app.router.ServeHTTP(respAgain, reqAgain)
	if respAgain.Code != http.StatusNotFound {
		t.Fatalf("expected 404 on second download, got %d", respAgain.Code)
	}
}

func TestOptimizeStructuredAnalysisBody(t *testing.T) {
	app := newTestApp(t, &fakeModel{resp: llm.Response{
		Kind: llm.KindStructuredAnalysis,
		Structured: &llm.StructuredAnalysis{
			Score:           72,
			KeySkills:       []string{"Go"},
			MissingSkills:   []string{"Terraform"},
			Recommendations: "Lead with platform work.",
		},
	}})

	body, contentType := multipartUpload(t, "cv", "resume.pdf", "application/pdf", pdfBytes(), "Platform engineer")
	resp := app.post(t, body, contentType)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var result struct {
		Analysis struct {
			Score int `json:"score"`
		} `json:"analysis"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if result.Analysis.Score != 72 {
		t.Fatalf("expected analysis object with score, got %+v", result)
	}
}

func TestOptimizeMissingJobDescription(t *testing.T) {
	model := &fakeModel{}
	app := newTestApp(t, model)

	body, contentType := multipartUpload(t, "cv", "resume.pdf", "application/pdf", pdfBytes(), "")
	resp := app.post(t, body, contentType)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
	var result struct {
		Success bool `json:"success"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if result.Success {
		t.Fatalf("expected success false")
	}
	app.assertDirEmpty(t, app.stagingDir, "staging")
	if model.callCount() != 0 {
		t.Fatalf("model must not be called on validation failure")
	}
}

func TestOptimizeMissingFile(t *testing.T) {
	model := &fakeModel{}
	app := newTestApp(t, model)

	body, contentType := multipartUpload(t, "cv", "", "", nil, "Backend engineer")
	resp := app.post(t, body, contentType)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
	if model.callCount() != 0 {
		t.Fatalf("model must not be called without a file")
	}
}

func TestOptimizeDisallowedMediaType(t *testing.T) {
	model := &fakeModel{}
	app := newTestApp(t, model)

	body, contentType := multipartUpload(t, "cv", "resume.txt", "text/plain", []byte("plain resume"), "Backend engineer")
	resp := app.post(t, body, contentType)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
	app.assertDirEmpty(t, app.stagingDir, "staging")
	if model.callCount() != 0 {
		t.Fatalf("model must not be called for rejected media type")
	}
}

func TestOptimizeModelFailureCleansUp(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{name: "transport failure", err: llm.ErrTransport},
		{name: "empty response", err: llm.ErrEmptyResponse},
		{name: "malformed structured output", err: llm.ErrMalformedResponse},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			app := newTestApp(t, &fakeModel{err: tt.err})

			body, contentType := multipartUpload(t, "cv", "resume.pdf", "application/pdf", pdfBytes(), "Backend engineer")
			resp := app.post(t, body, contentType)

			if resp.Code != http.StatusInternalServerError {
				t.Fatalf("expected 500, got %d", resp.Code)
			}
			app.assertDirEmpty(t, app.stagingDir, "staging")
			app.assertDirEmpty(t, app.generatedDir, "generated")
		})
	}
}

func TestDownloadUnknownFilename(t *testing.T) {
	app := newTestApp(t, &fakeModel{})

	req := httptest.NewRequest(http.MethodGet, "/api/download/does-not-exist.pdf", nil)
	resp := httptest.NewRecorder()
	app.router.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
	var result struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if result.Success || result.Message == "" {
		t.Fatalf("unexpected 404 body: %+v", result)
	}
}
