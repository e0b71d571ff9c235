package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/wavecanvas/api/internal/model"
	"github.com/wavecanvas/api/internal/service"
	"github.com/wavecanvas/api/internal/store"
	"github.com/wavecanvas/api/internal/worker"
)

type noopBackend struct {
	cancelled []string
}

func (b *noopBackend) Enqueue(context.Context, string, model.JobKind) error { return nil }

func (b *noopBackend) Cancel(_ context.Context, jobID string) error {
	b.cancelled = append(b.cancelled, jobID)
	return nil
}

type fixedArtifacts struct {
	dir string
}

func (a fixedArtifacts) ArtifactPath(jobID string) string {
	return filepath.Join(a.dir, jobID+".mp4")
}

func (a fixedArtifacts) Cleanup(jobID string) {
	os.Remove(a.ArtifactPath(jobID))
}

type testApp struct {
	app     *fiber.App
	store   store.Store
	backend *noopBackend
	dir     string
}

// setupApp wires the handler onto a store-backed service the way main does,
// with a no-op scheduling backend so nothing actually runs.
func setupApp(t *testing.T) *testApp {
	t.Helper()

	s := store.NewMemoryStore()
	backend := &noopBackend{}
	dir := t.TempDir()

	svc := service.NewJobService(s, map[model.JobKind]worker.Backend{
		model.KindVisualizationRender: backend,
		model.KindImageGeneration:     backend,
	}, fixedArtifacts{dir: dir}, "openai")

	h := NewJobHandler(svc, validator.New())

	app := fiber.New()
	h.Register(app.Group("/api"))

	return &testApp{app: app, store: s, backend: backend, dir: dir}
}

func doRequest(app *fiber.App, method, path, body string) (*http.Response, error) {
	var bodyReader io.Reader
	if body != "" {
		bodyReader = strings.NewReader(body)
	}

	req, err := http.NewRequest(method, path, bodyReader)
	if err != nil {
		return nil, err
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	return app.Test(req, -1)
}

func assertStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		t.Fatalf("status = %d, want %d", resp.StatusCode, want)
	}
}

func parseJSON(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	var result map[string]interface{}
	if err := json.Unmarshal(b, &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, b)
	}
	return result
}

func errorCode(t *testing.T, resp *http.Response) string {
	t.Helper()
	result := parseJSON(t, resp)
	detail, ok := result["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("no error envelope in %v", result)
	}
	code, _ := detail["code"].(string)
	return code
}

func TestSubmitRender_Accepted(t *testing.T) {
	ta := setupApp(t)

	resp, err := doRequest(ta.app, http.MethodPost, "/api/visualization/render",
		`{"audioPath": "ode-to-joy/total.wav", "style": "bars"}`)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusAccepted)

	result := parseJSON(t, resp)
	if result["jobId"] == nil || result["jobId"] == "" {
		t.Error("expected 'jobId' in response")
	}
	if result["status"] != "pending" {
		t.Errorf("expected status 'pending', got %v", result["status"])
	}
}

func TestSubmitRender_MissingAudioPath(t *testing.T) {
	ta := setupApp(t)

	resp, err := doRequest(ta.app, http.MethodPost, "/api/visualization/render", `{"style": "bars"}`)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusBadRequest)
	if code := errorCode(t, resp); code != "VALIDATION_ERROR" {
		t.Errorf("code = %q", code)
	}
}

func TestSubmitRender_UnknownStyle(t *testing.T) {
	ta := setupApp(t)

	resp, err := doRequest(ta.app, http.MethodPost, "/api/visualization/render",
		`{"audioPath": "a.wav", "style": "cubist"}`)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusBadRequest)
}

func TestSubmitImage_Accepted(t *testing.T) {
	ta := setupApp(t)

	resp, err := doRequest(ta.app, http.MethodPost, "/api/image/generate",
		`{"audioPath": "a.wav", "aspectRatio": "16:9", "provider": "google"}`)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusAccepted)
}

func TestSubmitImage_UnknownProvider(t *testing.T) {
	ta := setupApp(t)

	resp, err := doRequest(ta.app, http.MethodPost, "/api/image/generate",
		`{"audioPath": "a.wav", "provider": "dalle"}`)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusBadRequest)
}

func TestStatus_ReturnsJob(t *testing.T) {
	ta := setupApp(t)

	submit, err := doRequest(ta.app, http.MethodPost, "/api/visualization/render", `{"audioPath": "a.wav"}`)
	if err != nil {
		t.Fatal(err)
	}
	jobID := parseJSON(t, submit)["jobId"].(string)

	resp, err := doRequest(ta.app, http.MethodGet, "/api/jobs/"+jobID, "")
	if err != nil {
		t.Fatal(err)
	}
	assertStatus(t, resp, http.StatusOK)

	job := parseJSON(t, resp)
	if job["id"] != jobID {
		t.Errorf("id = %v, want %s", job["id"], jobID)
	}
	if job["kind"] != "visualization-render" {
		t.Errorf("kind = %v", job["kind"])
	}
}

func TestStatus_UnknownJob(t *testing.T) {
	ta := setupApp(t)

	resp, err := doRequest(ta.app, http.MethodGet, "/api/jobs/no-such-job", "")
	if err != nil {
		t.Fatal(err)
	}
	assertStatus(t, resp, http.StatusNotFound)
	if code := errorCode(t, resp); code != "NOT_FOUND" {
		t.Errorf("code = %q", code)
	}
}

func TestList_ReturnsSubmittedJobs(t *testing.T) {
	ta := setupApp(t)

	for i := 0; i < 3; i++ {
		if _, err := doRequest(ta.app, http.MethodPost, "/api/visualization/render", `{"audioPath": "a.wav"}`); err != nil {
			t.Fatal(err)
		}
	}

	resp, err := doRequest(ta.app, http.MethodGet, "/api/jobs/", "")
	if err != nil {
		t.Fatal(err)
	}
	assertStatus(t, resp, http.StatusOK)

	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	var jobs []map[string]interface{}
	if err := json.Unmarshal(b, &jobs); err != nil {
		t.Fatalf("failed to parse list: %v", err)
	}
	if len(jobs) != 3 {
		t.Errorf("len = %d, want 3", len(jobs))
	}
}

func TestDelete_InProgressConflicts(t *testing.T) {
	ta := setupApp(t)

	job := &model.Job{ID: "active-1", Kind: model.KindVisualizationRender, Status: model.StatusRendering}
	if err := ta.store.Create(context.Background(), job); err != nil {
		t.Fatal(err)
	}

	resp, err := doRequest(ta.app, http.MethodDelete, "/api/jobs/active-1", "")
	if err != nil {
		t.Fatal(err)
	}
	assertStatus(t, resp, http.StatusConflict)
	if code := errorCode(t, resp); code != "CONFLICT" {
		t.Errorf("code = %q", code)
	}
}

func TestDelete_FinishedJob(t *testing.T) {
	ta := setupApp(t)

	job := &model.Job{ID: "done-1", Kind: model.KindImageGeneration, Status: model.StatusCompleted}
	if err := ta.store.Create(context.Background(), job); err != nil {
		t.Fatal(err)
	}

	resp, err := doRequest(ta.app, http.MethodDelete, "/api/jobs/done-1", "")
	if err != nil {
		t.Fatal(err)
	}
	assertStatus(t, resp, http.StatusOK)

	status, err := doRequest(ta.app, http.MethodGet, "/api/jobs/done-1", "")
	if err != nil {
		t.Fatal(err)
	}
	assertStatus(t, status, http.StatusNotFound)
}

func TestCancel_TerminalConflicts(t *testing.T) {
	ta := setupApp(t)

	job := &model.Job{ID: "done-2", Kind: model.KindVisualizationRender, Status: model.StatusFailed}
	if err := ta.store.Create(context.Background(), job); err != nil {
		t.Fatal(err)
	}

	resp, err := doRequest(ta.app, http.MethodPost, "/api/jobs/done-2/cancel", "")
	if err != nil {
		t.Fatal(err)
	}
	assertStatus(t, resp, http.StatusConflict)
}

func TestCancel_ActiveJob(t *testing.T) {
	ta := setupApp(t)

	job := &model.Job{ID: "active-2", Kind: model.KindVisualizationRender, Status: model.StatusRendering}
	if err := ta.store.Create(context.Background(), job); err != nil {
		t.Fatal(err)
	}

	resp, err := doRequest(ta.app, http.MethodPost, "/api/jobs/active-2/cancel", "")
	if err != nil {
		t.Fatal(err)
	}
	assertStatus(t, resp, http.StatusOK)

	result := parseJSON(t, resp)
	if result["revoked"] != true {
		t.Errorf("revoked = %v", result["revoked"])
	}
	if len(ta.backend.cancelled) != 1 || ta.backend.cancelled[0] != "active-2" {
		t.Errorf("backend cancel not invoked: %v", ta.backend.cancelled)
	}
}

func TestDownload_CompletedJobStreamsFile(t *testing.T) {
	ta := setupApp(t)

	job := &model.Job{ID: "vid-1", Kind: model.KindVisualizationRender, Status: model.StatusCompleted}
	if err := ta.store.Create(context.Background(), job); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(ta.dir, "vid-1.mp4"), []byte("mp4 bytes"), 0o644); err != nil {
		t.Fatal(err)
	}

	resp, err := doRequest(ta.app, http.MethodGet, "/api/visualization/download/vid-1", "")
	if err != nil {
		t.Fatal(err)
	}
	assertStatus(t, resp, http.StatusOK)

	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	if string(b) != "mp4 bytes" {
		t.Errorf("body = %q", b)
	}
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, "vid-1.mp4") {
		t.Errorf("content disposition = %q", cd)
	}
}

func TestDownload_ActiveJobConflicts(t *testing.T) {
	ta := setupApp(t)

	job := &model.Job{ID: "vid-2", Kind: model.KindVisualizationRender, Status: model.StatusAnalyzing}
	if err := ta.store.Create(context.Background(), job); err != nil {
		t.Fatal(err)
	}

	resp, err := doRequest(ta.app, http.MethodGet, "/api/visualization/download/vid-2", "")
	if err != nil {
		t.Fatal(err)
	}
	assertStatus(t, resp, http.StatusConflict)
}
