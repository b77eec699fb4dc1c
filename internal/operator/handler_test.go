package operator

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/eleven-am/vlm-docking/internal/auth"
	"github.com/eleven-am/vlm-docking/internal/camera"
	"github.com/eleven-am/vlm-docking/internal/command"
	"github.com/eleven-am/vlm-docking/internal/control"
	"github.com/eleven-am/vlm-docking/internal/decision"
	"github.com/eleven-am/vlm-docking/internal/dto"
	"github.com/eleven-am/vlm-docking/internal/shared"
	"github.com/eleven-am/vlm-docking/internal/telemetry"
	"github.com/eleven-am/vlm-docking/internal/vision"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

type fakeLoop struct {
	status   control.Status
	requests int
}

func (l *fakeLoop) Status() control.Status { return l.status }

func (l *fakeLoop) RequestCycle() bool {
	l.requests++
	return true
}

type fakeDecisions struct {
	records  []*decision.Record
	filter   decision.Filter
	counts   map[string]int64
	err      error
	countErr error
}

func (d *fakeDecisions) List(_ context.Context, f decision.Filter) ([]*decision.Record, error) {
	d.filter = f
	return d.records, d.err
}

func (d *fakeDecisions) GetByID(_ context.Context, id string) (*decision.Record, error) {
	if d.err != nil {
		return nil, d.err
	}
	for _, r := range d.records {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (d *fakeDecisions) CountByOutcome(context.Context, string) (map[string]int64, error) {
	return d.counts, d.countErr
}

type fakeMetrics struct {
	hours    int
	cameraID string
}

func (m *fakeMetrics) GetMetrics(_ context.Context, cameraID string, hours int) ([]*telemetry.Metrics, error) {
	m.cameraID = cameraID
	m.hours = hours
	return []*telemetry.Metrics{{CameraID: cameraID, Date: "2026-03-14", Hour: 15, Requests: 4, Applied: 3, AvgLatencyMs: 120}}, nil
}

type testEnv struct {
	h         *Handler
	commands  *command.State
	loop      *fakeLoop
	decisions *fakeDecisions
	metrics   *fakeMetrics
	samples   *vision.SampleStore
}

func newTestEnv(t *testing.T) *testEnv {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	env := &testEnv{
		commands:  command.NewState(),
		loop:      &fakeLoop{status: control.Status{Running: true, State: control.StateIdle}},
		decisions: &fakeDecisions{},
		metrics:   &fakeMetrics{},
		samples:   vision.NewSampleStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}), time.Minute, logger),
	}
	env.h = NewHandler(env.commands, env.loop, env.decisions, env.metrics, env.samples, logger)
	return env
}

func newContext(method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func asOperator(c echo.Context) {
	auth.SetClaimsForTest(c, &auth.Claims{OperatorID: "op_1", Name: "Pilot", Role: auth.RoleOperator})
}

func httpStatus(t *testing.T, err error) int {
	t.Helper()
	var httpErr *echo.HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected *echo.HTTPError, got %v", err)
	}
	return httpErr.Code
}

func TestHandler_RegisterRoutes(t *testing.T) {
	env := newTestEnv(t)
	e := echo.New()
	noop := func(next echo.HandlerFunc) echo.HandlerFunc { return next }

	env.h.RegisterRoutes(e.Group("/api"), noop, noop)

	expected := make(map[string]bool)
	for _, key := range []string{
		"GET /api/command",
		"POST /api/command",
		"GET /api/command/triggers",
		"GET /api/loop/status",
		"POST /api/loop/cycle",
		"GET /api/decisions",
		"GET /api/decisions/:id",
		"GET /api/metrics/cameras/:id",
		"GET /api/samples/:id",
		"GET /api/samples/:id/latest",
		"DELETE /api/samples/:id",
	} {
		expected[key] = false
	}
	for _, r := range e.Routes() {
		key := r.Method + " " + r.Path
		if _, ok := expected[key]; ok {
			expected[key] = true
		}
	}
	for key, found := range expected {
		if !found {
			t.Errorf("expected route %s to be registered", key)
		}
	}
}

func TestHandler_GetCommand_Default(t *testing.T) {
	env := newTestEnv(t)
	c, rec := newContext(http.MethodGet, "/command", "")

	if err := env.h.GetCommand(c); err != nil {
		t.Fatalf("GetCommand failed: %v", err)
	}

	var resp dto.CommandResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Command != command.DefaultCommand || resp.Revision != 0 {
		t.Errorf("unexpected command %+v", resp)
	}
}

func TestHandler_ListTriggers(t *testing.T) {
	env := newTestEnv(t)
	c, rec := newContext(http.MethodGet, "/command/triggers", "")

	if err := env.h.ListTriggers(c); err != nil {
		t.Fatalf("ListTriggers failed: %v", err)
	}

	var resp dto.TriggerListResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if len(resp.Triggers) != 12 {
		t.Fatalf("expected 12 triggers, got %d", len(resp.Triggers))
	}
	if resp.Triggers[0].Trigger != "forward" || resp.Triggers[0].Key != "1" {
		t.Errorf("unexpected first trigger %+v", resp.Triggers[0])
	}
	if resp.Triggers[10].Trigger != "align" || resp.Triggers[10].Key != "-" {
		t.Errorf("unexpected align trigger %+v", resp.Triggers[10])
	}
}

func TestHandler_SetCommand(t *testing.T) {
	tests := []struct {
		name    string
		trigger string
		want    string
	}{
		{name: "by name", trigger: "rotate_cw", want: "rotate_cw"},
		{name: "by key", trigger: "7", want: "rotate_cw"},
		{name: "mixed case", trigger: "Pitch_Up", want: "pitch_up"},
		{name: "align", trigger: "-", want: "align"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			c, rec := newContext(http.MethodPost, "/command", `{"trigger":"`+tt.trigger+`"}`)
			asOperator(c)

			if err := env.h.SetCommand(c); err != nil {
				t.Fatalf("SetCommand failed: %v", err)
			}
			if rec.Code != http.StatusOK {
				t.Errorf("expected 200, got %d", rec.Code)
			}
			if got := env.commands.Get(); got != tt.want {
				t.Errorf("expected command %q, got %q", tt.want, got)
			}

			var resp dto.CommandResponse
			_ = json.Unmarshal(rec.Body.Bytes(), &resp)
			if resp.Revision != 1 {
				t.Errorf("expected revision 1, got %d", resp.Revision)
			}
		})
	}
}

func TestHandler_SetCommand_Rejects(t *testing.T) {
	env := newTestEnv(t)

	c, _ := newContext(http.MethodPost, "/command", `{"trigger":"warp"}`)
	asOperator(c)
	if code := httpStatus(t, env.h.SetCommand(c)); code != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown trigger, got %d", code)
	}

	c, _ = newContext(http.MethodPost, "/command", `{"trigger":"forward"}`)
	if code := httpStatus(t, env.h.SetCommand(c)); code != http.StatusUnauthorized {
		t.Errorf("expected 401 without claims, got %d", code)
	}

	c, _ = newContext(http.MethodPost, "/command", `{"trigger":"forward"}`)
	auth.SetClaimsForTest(c, &auth.Claims{OperatorID: "v_1", Role: auth.RoleViewer})
	if code := httpStatus(t, env.h.SetCommand(c)); code != http.StatusForbidden {
		t.Errorf("expected 403 for viewer, got %d", code)
	}

	if got := env.commands.Get(); got != command.DefaultCommand {
		t.Errorf("rejected requests changed the command to %q", got)
	}
}

func TestHandler_GetLoopStatus(t *testing.T) {
	env := newTestEnv(t)
	env.decisions.counts = map[string]int64{"applied": 12, "failed": 3}
	at := time.Date(2026, 3, 14, 15, 30, 0, 0, time.UTC)
	env.loop.status = control.Status{
		Running:     true,
		State:       control.StateAwaitingResponses,
		CycleID:     "cyc_1",
		Cycles:      7,
		Outstanding: 2,
		Command:     "forward",
		LastCycleAt: at,
		LastDecisions: map[camera.ID]control.Decision{
			camera.Down: {CycleID: "cyc_0", CameraID: camera.Down, Action: "forward", Outcome: "applied", Confidence: 0.4},
		},
	}

	c, rec := newContext(http.MethodGet, "/loop/status", "")
	if err := env.h.GetLoopStatus(c); err != nil {
		t.Fatalf("GetLoopStatus failed: %v", err)
	}

	var resp dto.LoopStatusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.State != "awaiting_responses" || resp.Cycles != 7 || resp.Outstanding != 2 {
		t.Errorf("unexpected status %+v", resp)
	}
	if resp.LastCycleAt == nil || !resp.LastCycleAt.Equal(at) {
		t.Errorf("expected last cycle at %v, got %v", at, resp.LastCycleAt)
	}
	d, ok := resp.LastDecisions["down"]
	if !ok || d.Action != "forward" || d.Outcome != "applied" {
		t.Errorf("unexpected last decisions %+v", resp.LastDecisions)
	}
	if resp.OutcomeCounts["applied"] != 12 || resp.OutcomeCounts["failed"] != 3 {
		t.Errorf("unexpected outcome counts %+v", resp.OutcomeCounts)
	}
}

func TestHandler_GetLoopStatus_CountErrorStillServes(t *testing.T) {
	env := newTestEnv(t)
	env.decisions.countErr = errors.New("db down")

	c, rec := newContext(http.MethodGet, "/loop/status", "")
	if err := env.h.GetLoopStatus(c); err != nil {
		t.Fatalf("GetLoopStatus failed: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "outcome_counts") {
		t.Errorf("expected outcome_counts omitted, got %s", rec.Body.String())
	}
}

func TestHandler_GetLoopStatus_NeverCycled(t *testing.T) {
	env := newTestEnv(t)
	c, rec := newContext(http.MethodGet, "/loop/status", "")
	_ = env.h.GetLoopStatus(c)

	if strings.Contains(rec.Body.String(), "last_cycle_at") {
		t.Errorf("expected last_cycle_at omitted, got %s", rec.Body.String())
	}
}

func TestHandler_RequestCycle(t *testing.T) {
	env := newTestEnv(t)

	c, rec := newContext(http.MethodPost, "/loop/cycle", "")
	asOperator(c)
	if err := env.h.RequestCycle(c); err != nil {
		t.Fatalf("RequestCycle failed: %v", err)
	}
	if rec.Code != http.StatusAccepted {
		t.Errorf("expected 202, got %d", rec.Code)
	}
	if env.loop.requests != 1 {
		t.Errorf("expected 1 request, got %d", env.loop.requests)
	}

	env.loop.status.Running = false
	c, _ = newContext(http.MethodPost, "/loop/cycle", "")
	asOperator(c)
	if code := httpStatus(t, env.h.RequestCycle(c)); code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 when stopped, got %d", code)
	}
	if env.loop.requests != 1 {
		t.Errorf("stopped loop should not be asked for a cycle")
	}
}

func TestHandler_ListDecisions(t *testing.T) {
	env := newTestEnv(t)
	env.decisions.records = []*decision.Record{
		{ID: "dec_1", CycleID: "cyc_1", CameraID: "left", Action: "hold", Outcome: "hold"},
	}

	c, rec := newContext(http.MethodGet, "/decisions?camera_id=left&limit=5&outcome=hold", "")
	if err := env.h.ListDecisions(c); err != nil {
		t.Fatalf("ListDecisions failed: %v", err)
	}
	if env.decisions.filter.CameraID != "left" || env.decisions.filter.Limit != 5 || env.decisions.filter.Outcome != "hold" {
		t.Errorf("unexpected filter %+v", env.decisions.filter)
	}

	var resp dto.DecisionListResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if len(resp.Decisions) != 1 || resp.Decisions[0].ID != "dec_1" {
		t.Errorf("unexpected decisions %+v", resp.Decisions)
	}
}

func TestHandler_ListDecisions_BadQuery(t *testing.T) {
	env := newTestEnv(t)

	for _, target := range []string{"/decisions?camera_id=sideways", "/decisions?limit=-1", "/decisions?limit=abc"} {
		c, _ := newContext(http.MethodGet, target, "")
		if code := httpStatus(t, env.h.ListDecisions(c)); code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", target, code)
		}
	}
}

func TestHandler_ListDecisions_StoreError(t *testing.T) {
	env := newTestEnv(t)
	env.decisions.err = errors.New("db down")

	c, _ := newContext(http.MethodGet, "/decisions", "")
	if code := httpStatus(t, env.h.ListDecisions(c)); code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", code)
	}
}

func TestHandler_GetDecision(t *testing.T) {
	env := newTestEnv(t)
	env.decisions.records = []*decision.Record{
		{ID: "dec_1", CycleID: "cyc_1", CameraID: "up", Action: "forward", Outcome: "applied", Late: true},
	}

	c, rec := newContext(http.MethodGet, "/decisions/dec_1", "")
	c.SetParamNames("id")
	c.SetParamValues("dec_1")
	if err := env.h.GetDecision(c); err != nil {
		t.Fatalf("GetDecision failed: %v", err)
	}

	var resp dto.DecisionResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.ID != "dec_1" || resp.CameraID != "up" || !resp.Late {
		t.Errorf("unexpected decision %+v", resp)
	}

	c, _ = newContext(http.MethodGet, "/decisions/dec_missing", "")
	c.SetParamNames("id")
	c.SetParamValues("dec_missing")
	if code := httpStatus(t, env.h.GetDecision(c)); code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", code)
	}

	env.decisions.err = errors.New("db down")
	c, _ = newContext(http.MethodGet, "/decisions/dec_1", "")
	c.SetParamNames("id")
	c.SetParamValues("dec_1")
	if code := httpStatus(t, env.h.GetDecision(c)); code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", code)
	}
}

func TestHandler_GetCameraMetrics(t *testing.T) {
	tests := []struct {
		query string
		hours int
	}{
		{query: "", hours: 24},
		{query: "?hours=6", hours: 6},
		{query: "?hours=0", hours: 24},
		{query: "?hours=500", hours: 24},
	}

	for _, tt := range tests {
		env := newTestEnv(t)
		c, rec := newContext(http.MethodGet, "/metrics/cameras/forward"+tt.query, "")
		c.SetParamNames("id")
		c.SetParamValues("forward")

		if err := env.h.GetCameraMetrics(c); err != nil {
			t.Fatalf("GetCameraMetrics failed: %v", err)
		}
		if env.metrics.hours != tt.hours {
			t.Errorf("%q: expected %d hours, got %d", tt.query, tt.hours, env.metrics.hours)
		}

		var resp dto.CameraMetricsListResponse
		_ = json.Unmarshal(rec.Body.Bytes(), &resp)
		if resp.CameraID != "forward" || len(resp.Metrics) != 1 || resp.Metrics[0].Applied != 3 {
			t.Errorf("unexpected response %+v", resp)
		}
	}
}

func TestHandler_GetCameraMetrics_UnknownCamera(t *testing.T) {
	env := newTestEnv(t)
	c, _ := newContext(http.MethodGet, "/metrics/cameras/aft", "")
	c.SetParamNames("id")
	c.SetParamValues("aft")

	if code := httpStatus(t, env.h.GetCameraMetrics(c)); code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", code)
	}
}

func TestHandler_ListSamples(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	now := time.Now().UnixMilli()

	for i, cmd := range []string{"align with port", "forward", "hold"} {
		err := env.samples.StoreSample(ctx, &vision.Sample{
			CameraID:    camera.Down,
			Command:     cmd,
			Timestamp:   now - int64(3-i)*1000,
			ImageBase64: "aW1n",
		})
		if err != nil {
			t.Fatalf("StoreSample failed: %v", err)
		}
	}

	c, rec := newContext(http.MethodGet, "/samples/down?limit=2", "")
	c.SetParamNames("id")
	c.SetParamValues("down")
	asOperator(c)

	if err := env.h.ListSamples(c); err != nil {
		t.Fatalf("ListSamples failed: %v", err)
	}

	var resp dto.SampleListResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if len(resp.Samples) != 2 {
		t.Fatalf("expected 2 samples, got %d", len(resp.Samples))
	}
	if resp.Samples[0].Command != "align with port" || resp.Samples[1].Command != "forward" {
		t.Errorf("expected oldest first, got %+v", resp.Samples)
	}
}

func TestHandler_ListSamples_Unauthorized(t *testing.T) {
	env := newTestEnv(t)
	c, _ := newContext(http.MethodGet, "/samples/down", "")
	c.SetParamNames("id")
	c.SetParamValues("down")

	if code := httpStatus(t, env.h.ListSamples(c)); code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", code)
	}
}

func TestHandler_GetLatestSample(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	now := time.Now().UnixMilli()

	c, _ := newContext(http.MethodGet, "/samples/left/latest", "")
	c.SetParamNames("id")
	c.SetParamValues("left")
	asOperator(c)
	if code := httpStatus(t, env.h.GetLatestSample(c)); code != http.StatusNotFound {
		t.Errorf("expected 404 with no samples, got %d", code)
	}

	for i, cmd := range []string{"forward", "hold"} {
		_ = env.samples.StoreSample(ctx, &vision.Sample{
			CameraID:    camera.Left,
			Command:     cmd,
			Timestamp:   now - int64(2-i)*1000,
			ImageBase64: "aW1n",
		})
	}

	c, rec := newContext(http.MethodGet, "/samples/left/latest", "")
	c.SetParamNames("id")
	c.SetParamValues("left")
	asOperator(c)
	if err := env.h.GetLatestSample(c); err != nil {
		t.Fatalf("GetLatestSample failed: %v", err)
	}

	var resp dto.SampleResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Command != "hold" || resp.CameraID != "left" {
		t.Errorf("expected newest sample, got %+v", resp)
	}

	c, _ = newContext(http.MethodGet, "/samples/left/latest", "")
	c.SetParamNames("id")
	c.SetParamValues("left")
	if code := httpStatus(t, env.h.GetLatestSample(c)); code != http.StatusUnauthorized {
		t.Errorf("expected 401 without claims, got %d", code)
	}
}

func TestHandler_DeleteSamples(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_ = env.samples.StoreSample(ctx, &vision.Sample{
		CameraID:    camera.Right,
		Command:     "hold",
		Timestamp:   time.Now().UnixMilli(),
		ImageBase64: "aW1n",
	})

	c, _ := newContext(http.MethodDelete, "/samples/right", "")
	c.SetParamNames("id")
	c.SetParamValues("right")
	auth.SetClaimsForTest(c, &auth.Claims{OperatorID: "v_1", Role: auth.RoleViewer})
	if code := httpStatus(t, env.h.DeleteSamples(c)); code != http.StatusForbidden {
		t.Errorf("expected 403 for viewer, got %d", code)
	}
	if s, _ := env.samples.GetLatestSample(ctx, camera.Right); s == nil {
		t.Fatal("viewer request removed samples")
	}

	c, rec := newContext(http.MethodDelete, "/samples/right", "")
	c.SetParamNames("id")
	c.SetParamValues("right")
	asOperator(c)
	if err := env.h.DeleteSamples(c); err != nil {
		t.Fatalf("DeleteSamples failed: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}
	if s, _ := env.samples.GetLatestSample(ctx, camera.Right); s != nil {
		t.Errorf("expected samples cleared, got %+v", s)
	}
}

func TestRateLimiter(t *testing.T) {
	mw := RateLimiter(RateLimiterConfig{RequestsPerSecond: 1, Burst: 2, CleanupInterval: time.Hour})
	handler := mw(func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	call := func(operator string) error {
		c, _ := newContext(http.MethodPost, "/command", "")
		if operator != "" {
			auth.SetClaimsForTest(c, &auth.Claims{OperatorID: operator, Role: auth.RoleOperator})
		}
		return handler(c)
	}

	if err := call("op_1"); err != nil {
		t.Fatalf("first request should pass: %v", err)
	}
	if err := call("op_1"); err != nil {
		t.Fatalf("second request should pass: %v", err)
	}
	if code := httpStatus(t, call("op_1")); code != http.StatusTooManyRequests {
		t.Errorf("expected 429, got %d", code)
	}

	if err := call("op_2"); err != nil {
		t.Errorf("other operator should have its own bucket: %v", err)
	}
}
