package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/docrank/internal/config"
	"github.com/dgallion1/docrank/internal/doctree"
	"github.com/dgallion1/docrank/internal/metrics"
	"github.com/dgallion1/docrank/internal/pipeline"
	"github.com/dgallion1/docrank/internal/rank"
)

const testKey = "secret"

const descriptor = `{
	"persona": {"role": "Travel Planner"},
	"job_to_be_done": {"task": "Plan a trip of 4 days for a group of 10 college friends."},
	"documents": [{"filename": "South of France - Cities.pdf"}]
}`

type fixture struct {
	srv  *Server
	orch *pipeline.Orchestrator
	rec  *metrics.Recorder
}

// newFixture builds a server whose orchestrator is never started, so
// submitted jobs stay queued.
func newFixture(t *testing.T, queueSize int) *fixture {
	t.Helper()
	log := slog.New(slog.DiscardHandler)
	rec := metrics.NewRecorder(time.Hour)
	orch := pipeline.NewOrchestrator(pipeline.OrchestratorConfig{
		InputDir:     t.TempDir(),
		WorkerCount:  1,
		MaxQueueSize: queueSize,
		JobTTL:       time.Hour,
	}, nil, rec, log)
	t.Cleanup(orch.Stop)

	cfg := config.Config{
		DocrankAPIKey:  testKey,
		MaxUploadBytes: 1 << 20,
		EmbedProvider:  "tei",
		EmbedModel:     "all-MiniLM-L6-v2",
		RerankProvider: "lexical",
	}
	return &fixture{srv: NewServer(orch, rec, log, cfg), orch: orch, rec: rec}
}

func (f *fixture) do(t *testing.T, method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Authorization", "Bearer "+testKey)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rr := httptest.NewRecorder()
	f.srv.ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &m))
	return m
}

func TestHealth(t *testing.T) {
	f := newFixture(t, 4)
	rr := httptest.NewRecorder()
	f.srv.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", decode(t, rr)["status"])
}

func TestAuth(t *testing.T) {
	f := newFixture(t, 4)

	rr := httptest.NewRecorder()
	f.srv.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/stats/models", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/stats/models", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rr = httptest.NewRecorder()
	f.srv.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "invalid api key", decode(t, rr)["error"])
}

func TestAnalyze_JSON(t *testing.T) {
	f := newFixture(t, 4)
	rr := f.do(t, http.MethodPost, "/api/analyze", strings.NewReader(descriptor), "application/json")
	require.Equal(t, http.StatusAccepted, rr.Code, rr.Body.String())

	body := decode(t, rr)
	id, _ := body["job_id"].(string)
	require.NotEmpty(t, id)
	assert.Equal(t, "/api/analyze/"+id, body["poll_url"])
	assert.Equal(t, 1, f.orch.QueueDepth())

	job := f.orch.GetJob(id)
	require.NotNil(t, job)
	assert.IsType(t, pipeline.DirSource{}, job.Source("input"))

	rr = f.do(t, http.MethodGet, "/api/analyze/"+id, nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	status := decode(t, rr)
	assert.Equal(t, id, status["job_id"])
	assert.Equal(t, "queued", status["status"])
	assert.Equal(t, "Travel Planner", status["persona"])
}

func TestAnalyze_InvalidDescriptor(t *testing.T) {
	f := newFixture(t, 4)
	for name, body := range map[string]string{
		"malformed":   `{"persona":`,
		"no persona":  `{"job_to_be_done": {"task": "t"}, "documents": [{"filename": "a.pdf"}]}`,
		"no document": `{"persona": {"role": "r"}, "job_to_be_done": {"task": "t"}, "documents": []}`,
	} {
		t.Run(name, func(t *testing.T) {
			rr := f.do(t, http.MethodPost, "/api/analyze", strings.NewReader(body), "application/json")
			assert.Equal(t, http.StatusBadRequest, rr.Code)
			assert.Contains(t, decode(t, rr)["error"], "invalid input descriptor")
		})
	}
	assert.Zero(t, f.orch.QueueDepth())
}

func TestAnalyze_QueueFull(t *testing.T) {
	f := newFixture(t, 1)
	rr := f.do(t, http.MethodPost, "/api/analyze", strings.NewReader(descriptor), "application/json")
	require.Equal(t, http.StatusAccepted, rr.Code)

	rr = f.do(t, http.MethodPost, "/api/analyze", strings.NewReader(descriptor), "application/json")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Contains(t, decode(t, rr)["error"], "queue is full")
}

func multipartBody(t *testing.T, input string, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if input != "" {
		require.NoError(t, mw.WriteField("input", input))
	}
	for name, content := range files {
		fw, err := mw.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestAnalyze_Multipart(t *testing.T) {
	f := newFixture(t, 4)
	body, ct := multipartBody(t, descriptor, map[string]string{
		"../South of France - Cities.pdf": "%PDF-1.4 stub",
	})
	rr := f.do(t, http.MethodPost, "/api/analyze", body, ct)
	require.Equal(t, http.StatusAccepted, rr.Code, rr.Body.String())

	job := f.orch.GetJob(decode(t, rr)["job_id"].(string))
	require.NotNil(t, job)
	src, ok := job.Source("input").(pipeline.MemorySource)
	require.True(t, ok)
	assert.Contains(t, src.Files, "South of France - Cities.pdf")
}

func TestAnalyze_MultipartRejects(t *testing.T) {
	f := newFixture(t, 4)

	body, ct := multipartBody(t, descriptor, map[string]string{"notes.txt": "hi"})
	rr := f.do(t, http.MethodPost, "/api/analyze", body, ct)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, decode(t, rr)["error"], "unsupported file type")

	body, ct = multipartBody(t, descriptor, nil)
	rr = f.do(t, http.MethodPost, "/api/analyze", body, ct)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	body, ct = multipartBody(t, "", map[string]string{"a.pdf": "%PDF"})
	rr = f.do(t, http.MethodPost, "/api/analyze", body, ct)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "input is required", decode(t, rr)["error"])
}

func TestAnalyzeStatus_NotFound(t *testing.T) {
	f := newFixture(t, 4)
	rr := f.do(t, http.MethodGet, "/api/analyze/nope", nil, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	rr = f.do(t, http.MethodGet, "/api/analyze/nope/report", nil, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestAnalyzeReport(t *testing.T) {
	f := newFixture(t, 4)
	in, err := config.DecodeInput(strings.NewReader(descriptor))
	require.NoError(t, err)
	job := pipeline.NewJob(in, nil)
	require.NoError(t, f.orch.Submit(job))

	rr := f.do(t, http.MethodGet, "/api/analyze/"+job.ID+"/report", nil, "")
	assert.Equal(t, http.StatusConflict, rr.Code)

	job.Finish(&pipeline.Result{
		Output: &pipeline.Output{
			Metadata: pipeline.Metadata{Persona: "Travel Planner", InputDocuments: in.Filenames()},
			ExtractedSections: []rank.RankedSection{
				{Document: "South of France - Cities.pdf", SectionTitle: "Coastal Adventures", ImportanceRank: 1, PageNumber: 2},
			},
			SubsectionAnalysis: []rank.Excerpt{
				{Document: "South of France - Cities.pdf", RefinedText: "Beaches all along the coast.", PageNumber: 2},
			},
		},
		Top: []rank.Candidate{{Section: doctree.Section{Title: "Coastal Adventures"}, Final: 1.5}},
	})

	rr = f.do(t, http.MethodGet, "/api/analyze/"+job.ID+"/report", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/html; charset=utf-8", rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Body.String(), "Coastal Adventures")

	rr = f.do(t, http.MethodGet, "/api/analyze/"+job.ID, nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	status := decode(t, rr)
	assert.Equal(t, "completed", status["status"])
	require.Contains(t, status, "output")
	sections := status["output"].(map[string]any)["extracted_sections"].([]any)
	assert.Len(t, sections, 1)
}

func TestModelStatsAndMetrics(t *testing.T) {
	f := newFixture(t, 4)
	f.rec.ObserveCall(metrics.OpEmbed, "tei:all-MiniLM-L6-v2", 40*time.Millisecond, nil)
	f.rec.AnalysisFinished("completed")

	rr := f.do(t, http.MethodGet, "/api/stats/models", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	body := decode(t, rr)
	assert.Equal(t, "tei:all-MiniLM-L6-v2", body["embed"])
	stats := body["stats"].(map[string]any)
	require.Contains(t, stats, "embed")
	assert.EqualValues(t, 1, stats["embed"].(map[string]any)["count"])

	rr = httptest.NewRecorder()
	f.srv.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `docrank_analyses_total{status="completed"} 1`)
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "guide.pdf", sanitizeFilename("../../etc/guide.pdf"))
	assert.Equal(t, "guide.pdf", sanitizeFilename(`C:\docs\guide.pdf`))
	assert.Equal(t, "unnamed", sanitizeFilename(""))
	assert.Equal(t, "unnamed", sanitizeFilename(".."))
	assert.Equal(t, "unnamed", sanitizeFilename("docs/.."))
	assert.Equal(t, "Nice..Guide.pdf", sanitizeFilename("Nice..Guide.pdf"))
}

func TestAnalyze_MultipartKeepsDottedNames(t *testing.T) {
	f := newFixture(t, 4)
	desc := `{"persona":{"role":"Travel Planner"},"job_to_be_done":{"task":"Plan a trip"},"documents":[{"filename":"Nice..Guide.pdf"}]}`
	body, ct := multipartBody(t, desc, map[string]string{"Nice..Guide.pdf": "%PDF-1.4 stub"})
	rr := f.do(t, http.MethodPost, "/api/analyze", body, ct)
	require.Equal(t, http.StatusAccepted, rr.Code, rr.Body.String())

	job := f.orch.GetJob(decode(t, rr)["job_id"].(string))
	require.NotNil(t, job)
	src, ok := job.Source("input").(pipeline.MemorySource)
	require.True(t, ok)
	for _, name := range job.Input().Filenames() {
		assert.Contains(t, src.Files, name)
	}
}
