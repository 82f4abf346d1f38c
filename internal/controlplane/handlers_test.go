package controlplane

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/idlab-discover/Multi-path-XR/internal/codec"
	"github.com/idlab-discover/Multi-path-XR/internal/model"
	"github.com/idlab-discover/Multi-path-XR/internal/registry"
	"github.com/idlab-discover/Multi-path-XR/internal/scheduler"
	"github.com/idlab-discover/Multi-path-XR/internal/supervisor"
	"github.com/idlab-discover/Multi-path-XR/pkg/logging"
)

func newTestRouter(t *testing.T, datasetsRoot string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	reg := registry.New()
	sup := supervisor.New(reg, func(model.Frame) {})
	sched := scheduler.New(reg, codec.NewPool(1), nil)
	rings := NewRingManager(nil)
	sockets := NewSocketRegistry()
	h := New(reg, sup, sched, rings, sockets, datasetsRoot, t.TempDir(), "", logging.NewLogger())

	r := gin.New()
	h.RegisterRoutes(r)
	return r
}

func decodeEnvelope(t *testing.T, body []byte) envelope {
	t.Helper()
	var e envelope
	if err := json.Unmarshal(body, &e); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	return e
}

func TestListDatasets(t *testing.T) {
	root := t.TempDir()
	if err := os.Mkdir(filepath.Join(root, "ds1"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	r := newTestRouter(t, root)

	req := httptest.NewRequest(http.MethodGet, "/datasets", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	e := decodeEnvelope(t, w.Body.Bytes())
	if e.Status != "success" {
		t.Fatalf("expected success envelope, got %+v", e)
	}
}

func TestStreamsListIncludesDefault(t *testing.T) {
	r := newTestRouter(t, t.TempDir())
	req := httptest.NewRequest(http.MethodGet, "/streams/list", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Data struct {
			Streams []model.StreamSummary `json:"streams"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	found := false
	for _, s := range resp.Data.Streams {
		if s.StreamID == model.DefaultStreamID {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected __default__ in /streams/list: %s", w.Body.String())
	}
}

func TestStreamsUpdateSettingsRejectsBadPercentages(t *testing.T) {
	r := newTestRouter(t, t.TempDir())
	req := httptest.NewRequest(http.MethodGet, "/streams/update_settings?stream_id=s1&max_point_percentages=60,50", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
	e := decodeEnvelope(t, w.Body.Bytes())
	if e.ErrorKind != model.ErrInvalidArgument {
		t.Fatalf("expected InvalidArgument, got %+v", e)
	}
}

func TestEgressUpdateSettingsRequiresProtocol(t *testing.T) {
	r := newTestRouter(t, t.TempDir())
	req := httptest.NewRequest(http.MethodGet, "/egress/update_settings", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestFramesReceiveIngestsFrame(t *testing.T) {
	r := newTestRouter(t, t.TempDir())

	c, _ := codec.ForFormat(model.FormatPly)
	encoded, err := c.Encode(model.Points{Positions: []model.Point3{{X: 1, Y: 2, Z: 3}}}, codec.Options{})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	body := `{"stream_id":"s1","frame_data":"` + base64.StdEncoding.EncodeToString(encoded) + `"}`

	req := httptest.NewRequest(http.MethodPost, "/frames/receive", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
}

func TestStartAndStopJobWithGenerator(t *testing.T) {
	r := newTestRouter(t, t.TempDir())

	req := httptest.NewRequest(http.MethodGet, "/start_job?generator_name=Basic&fps=50&presentation_time_offset=100&egress_protocol=File", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Status string `json:"status"`
		Data   struct {
			JobID string `json:"JobID"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Data.JobID == "" {
		t.Fatalf("expected a job_id in response: %s", w.Body.String())
	}

	stopReq := httptest.NewRequest(http.MethodGet, "/stop_job?job_id="+resp.Data.JobID, nil)
	stopW := httptest.NewRecorder()
	r.ServeHTTP(stopW, stopReq)
	if stopW.Code != http.StatusOK {
		t.Fatalf("expected 200 stopping job, got %d: %s", stopW.Code, stopW.Body.String())
	}
}

func TestStartJobMissingDatasetRejected(t *testing.T) {
	r := newTestRouter(t, t.TempDir())
	req := httptest.NewRequest(http.MethodGet, "/start_job?fps=10&presentation_time_offset=100&egress_protocol=File", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
}
