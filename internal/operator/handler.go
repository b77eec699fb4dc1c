package operator

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"time"

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
)

const (
	defaultMetricsHours = 24
	maxMetricsHours     = 168
	defaultSampleLimit  = 20
)

type LoopController interface {
	Status() control.Status
	RequestCycle() bool
}

type DecisionReader interface {
	List(ctx context.Context, f decision.Filter) ([]*decision.Record, error)
	GetByID(ctx context.Context, id string) (*decision.Record, error)
	CountByOutcome(ctx context.Context, cameraID string) (map[string]int64, error)
}

type MetricsReader interface {
	GetMetrics(ctx context.Context, cameraID string, hours int) ([]*telemetry.Metrics, error)
}

type SampleStore interface {
	GetSamples(ctx context.Context, id camera.ID, startTime, endTime int64, limit int) ([]*vision.Sample, error)
	GetLatestSample(ctx context.Context, id camera.ID) (*vision.Sample, error)
	DeleteSamples(ctx context.Context, id camera.ID) error
}

type Handler struct {
	commands  *command.State
	loop      LoopController
	decisions DecisionReader
	metrics   MetricsReader
	samples   SampleStore
	logger    *slog.Logger
}

func NewHandler(commands *command.State, loop LoopController, decisions DecisionReader, metrics MetricsReader, samples SampleStore, logger *slog.Logger) *Handler {
	return &Handler{
		commands:  commands,
		loop:      loop,
		decisions: decisions,
		metrics:   metrics,
		samples:   samples,
		logger:    logger,
	}
}

// RegisterRoutes mounts reads openly and guards writes with authMW and
// limiter.
func (h *Handler) RegisterRoutes(g *echo.Group, authMW, limiter echo.MiddlewareFunc) {
	g.GET("/command", h.GetCommand)
	g.GET("/command/triggers", h.ListTriggers)
	g.POST("/command", h.SetCommand, authMW, limiter)

	g.GET("/loop/status", h.GetLoopStatus)
	g.POST("/loop/cycle", h.RequestCycle, authMW, limiter)

	g.GET("/decisions", h.ListDecisions)
	g.GET("/decisions/:id", h.GetDecision)
	g.GET("/metrics/cameras/:id", h.GetCameraMetrics)

	g.GET("/samples/:id", h.ListSamples, authMW)
	g.GET("/samples/:id/latest", h.GetLatestSample, authMW)
	g.DELETE("/samples/:id", h.DeleteSamples, authMW, limiter)
}

func commandResponse(s command.Snapshot) dto.CommandResponse {
	return dto.CommandResponse{
		Command:   s.Command,
		Revision:  s.Revision,
		UpdatedAt: s.UpdatedAt,
	}
}

// GetCommand godoc
// @Summary      Current command
// @Description  Returns the command text sent with every inference request
// @Tags         command
// @Produce      json
// @Success      200  {object}  dto.CommandResponse
// @Router       /command [get]
func (h *Handler) GetCommand(c echo.Context) error {
	return c.JSON(http.StatusOK, commandResponse(h.commands.Snapshot()))
}

// ListTriggers godoc
// @Summary      Operator triggers
// @Description  Lists the twelve triggers and their keys
// @Tags         command
// @Produce      json
// @Success      200  {object}  dto.TriggerListResponse
// @Router       /command/triggers [get]
func (h *Handler) ListTriggers(c echo.Context) error {
	keys := make(map[command.Trigger]string, len(command.DefaultKeymap))
	for key, t := range command.DefaultKeymap {
		keys[t] = key
	}

	resp := dto.TriggerListResponse{Triggers: make([]dto.TriggerInfo, 0, len(command.Triggers))}
	for _, t := range command.Triggers {
		resp.Triggers = append(resp.Triggers, dto.TriggerInfo{Trigger: string(t), Key: keys[t]})
	}
	return c.JSON(http.StatusOK, resp)
}

// SetCommand godoc
// @Summary      Fire a trigger
// @Description  Overwrites the command with the trigger's command string. Accepts a trigger name or key.
// @Tags         command
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      dto.SetCommandRequest  true  "Trigger"
// @Success      200      {object}  dto.CommandResponse
// @Failure      400      {object}  dto.ErrorResponse
// @Failure      401      {object}  dto.ErrorResponse
// @Failure      403      {object}  dto.ErrorResponse
// @Failure      429      {object}  dto.ErrorResponse
// @Router       /command [post]
func (h *Handler) SetCommand(c echo.Context) error {
	claims, err := auth.RequireOperator(c)
	if err != nil {
		return err
	}

	var req dto.SetCommandRequest
	if err := c.Bind(&req); err != nil {
		return shared.BadRequest("invalid_request", "invalid request body")
	}

	t, ok := command.ResolveTrigger(req.Trigger)
	if !ok {
		return shared.BadRequest("invalid_trigger", "unknown trigger")
	}

	if err := h.commands.Fire(t); err != nil {
		return shared.BadRequest("invalid_trigger", err.Error())
	}

	snap := h.commands.Snapshot()
	h.logger.Info("command set",
		"operator_id", claims.OperatorID,
		"trigger", t,
		"revision", snap.Revision)

	return c.JSON(http.StatusOK, commandResponse(snap))
}

func decisionResponse(d control.Decision) dto.DecisionResponse {
	return dto.DecisionResponse{
		CycleID:     d.CycleID,
		CameraID:    string(d.CameraID),
		Command:     d.Command,
		Action:      d.Action,
		Confidence:  d.Confidence,
		Outcome:     d.Outcome,
		FailureKind: string(d.FailureKind),
		Error:       d.Error,
		LatencyMs:   d.LatencyMs,
		Late:        d.Late,
		DecidedAt:   d.At,
	}
}

func recordResponse(r *decision.Record) dto.DecisionResponse {
	return dto.DecisionResponse{
		ID:          r.ID,
		CycleID:     r.CycleID,
		CameraID:    r.CameraID,
		Command:     r.Command,
		Action:      r.Action,
		Confidence:  r.Confidence,
		Outcome:     r.Outcome,
		FailureKind: r.FailureKind,
		Error:       r.Error,
		LatencyMs:   r.LatencyMs,
		Late:        r.Late,
		DecidedAt:   r.DecidedAt,
	}
}

// GetLoopStatus godoc
// @Summary      Control loop status
// @Tags         loop
// @Produce      json
// @Success      200  {object}  dto.LoopStatusResponse
// @Router       /loop/status [get]
func (h *Handler) GetLoopStatus(c echo.Context) error {
	st := h.loop.Status()

	resp := dto.LoopStatusResponse{
		Running:       st.Running,
		State:         string(st.State),
		CycleID:       st.CycleID,
		Cycles:        st.Cycles,
		Skipped:       st.Skipped,
		Outstanding:   st.Outstanding,
		Command:       st.Command,
		LastDecisions: make(map[string]dto.DecisionResponse, len(st.LastDecisions)),
	}
	if !st.LastCycleAt.IsZero() {
		at := st.LastCycleAt
		resp.LastCycleAt = &at
	}
	for id, d := range st.LastDecisions {
		resp.LastDecisions[string(id)] = decisionResponse(d)
	}

	counts, err := h.decisions.CountByOutcome(c.Request().Context(), "")
	if err != nil {
		h.logger.Warn("failed to count decisions", "error", err)
	} else {
		resp.OutcomeCounts = counts
	}

	return c.JSON(http.StatusOK, resp)
}

// RequestCycle godoc
// @Summary      Request a cycle now
// @Description  Queues a cycle that starts as soon as no requests are outstanding
// @Tags         loop
// @Produce      json
// @Security     BearerAuth
// @Success      202  {object}  dto.CycleRequestResponse
// @Failure      401  {object}  dto.ErrorResponse
// @Failure      503  {object}  dto.ErrorResponse
// @Router       /loop/cycle [post]
func (h *Handler) RequestCycle(c echo.Context) error {
	if _, err := auth.RequireOperator(c); err != nil {
		return err
	}
	if !h.loop.Status().Running {
		return shared.ServiceUnavailable("loop_stopped", "control loop is not running")
	}

	return c.JSON(http.StatusAccepted, dto.CycleRequestResponse{Queued: h.loop.RequestCycle()})
}

// ListDecisions godoc
// @Summary      Recent decisions
// @Tags         loop
// @Produce      json
// @Param        camera_id  query     string  false  "Camera id"
// @Param        outcome    query     string  false  "Outcome"
// @Param        limit      query     int     false  "Max records (default 50)"
// @Success      200        {object}  dto.DecisionListResponse
// @Failure      400        {object}  dto.ErrorResponse
// @Router       /decisions [get]
func (h *Handler) ListDecisions(c echo.Context) error {
	f := decision.Filter{Outcome: c.QueryParam("outcome")}

	if raw := c.QueryParam("camera_id"); raw != "" {
		id, err := camera.ParseID(raw)
		if err != nil {
			return shared.BadRequest("invalid_camera", "unknown camera id")
		}
		f.CameraID = string(id)
	}
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return shared.BadRequest("invalid_limit", "limit must be a positive integer")
		}
		f.Limit = n
	}

	records, err := h.decisions.List(c.Request().Context(), f)
	if err != nil {
		h.logger.Error("failed to list decisions", "error", err)
		return shared.InternalError("list_failed", "failed to list decisions")
	}

	resp := dto.DecisionListResponse{Decisions: make([]dto.DecisionResponse, len(records))}
	for i, r := range records {
		resp.Decisions[i] = recordResponse(r)
	}
	return c.JSON(http.StatusOK, resp)
}

// GetDecision godoc
// @Summary      Get decision
// @Tags         loop
// @Produce      json
// @Param        id   path      string  true  "Decision id"
// @Success      200  {object}  dto.DecisionResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /decisions/{id} [get]
func (h *Handler) GetDecision(c echo.Context) error {
	r, err := h.decisions.GetByID(c.Request().Context(), c.Param("id"))
	if errors.Is(err, shared.ErrNotFound) {
		return shared.NotFound("decision_not_found", "decision not found")
	}
	if err != nil {
		h.logger.Error("failed to get decision", "error", err)
		return shared.InternalError("get_failed", "failed to get decision")
	}
	return c.JSON(http.StatusOK, recordResponse(r))
}

func metricsToResponse(m *telemetry.Metrics) dto.CameraMetricsResponse {
	return dto.CameraMetricsResponse{
		Date:              m.Date,
		Hour:              m.Hour,
		Requests:          m.Requests,
		Applied:           m.Applied,
		Holds:             m.Holds,
		Unrecognized:      m.Unrecognized,
		NoReference:       m.NoReference,
		Failures:          m.Failures,
		TransportFailures: m.TransportFailures,
		ParseFailures:     m.ParseFailures,
		Stale:             m.Stale,
		Superseded:        m.Superseded,
		AvgLatencyMs:      m.AvgLatencyMs,
	}
}

// GetCameraMetrics godoc
// @Summary      Hourly camera metrics
// @Tags         metrics
// @Produce      json
// @Param        id     path      string  true   "Camera id"
// @Param        hours  query     int     false  "Hours to include (default 24, max 168)"
// @Success      200    {object}  dto.CameraMetricsListResponse
// @Failure      400    {object}  dto.ErrorResponse
// @Router       /metrics/cameras/{id} [get]
func (h *Handler) GetCameraMetrics(c echo.Context) error {
	id, err := camera.ParseID(c.Param("id"))
	if err != nil {
		return shared.BadRequest("invalid_camera", "unknown camera id")
	}

	hours := defaultMetricsHours
	if raw := c.QueryParam("hours"); raw != "" {
		if hr, err := strconv.Atoi(raw); err == nil && hr > 0 && hr <= maxMetricsHours {
			hours = hr
		}
	}

	metrics, err := h.metrics.GetMetrics(c.Request().Context(), string(id), hours)
	if err != nil {
		h.logger.Error("failed to get metrics", "error", err, "camera_id", id)
		return shared.InternalError("get_metrics_failed", "failed to get metrics")
	}

	resp := dto.CameraMetricsListResponse{
		CameraID: string(id),
		Hours:    hours,
		Metrics:  make([]dto.CameraMetricsResponse, len(metrics)),
	}
	for i, m := range metrics {
		resp.Metrics[i] = metricsToResponse(m)
	}
	return c.JSON(http.StatusOK, resp)
}

// ListSamples godoc
// @Summary      Recent dataset samples
// @Description  Encoded frames with the command they were sent with, oldest first
// @Tags         samples
// @Produce      json
// @Security     BearerAuth
// @Param        id     path      string  true   "Camera id"
// @Param        since  query     int     false  "Unix millis lower bound"
// @Param        limit  query     int     false  "Max samples (default 20)"
// @Success      200    {object}  dto.SampleListResponse
// @Failure      400    {object}  dto.ErrorResponse
// @Router       /samples/{id} [get]
func (h *Handler) ListSamples(c echo.Context) error {
	if _, err := auth.RequireAuth(c); err != nil {
		return err
	}

	id, err := camera.ParseID(c.Param("id"))
	if err != nil {
		return shared.BadRequest("invalid_camera", "unknown camera id")
	}

	var since int64
	if raw := c.QueryParam("since"); raw != "" {
		if since, err = strconv.ParseInt(raw, 10, 64); err != nil {
			return shared.BadRequest("invalid_since", "since must be unix millis")
		}
	}
	limit := defaultSampleLimit
	if raw := c.QueryParam("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	samples, err := h.samples.GetSamples(c.Request().Context(), id, since, time.Now().UnixMilli(), limit)
	if err != nil {
		h.logger.Error("failed to get samples", "error", err, "camera_id", id)
		return shared.InternalError("get_samples_failed", "failed to get samples")
	}

	sort.Slice(samples, func(i, j int) bool { return samples[i].Timestamp < samples[j].Timestamp })

	resp := dto.SampleListResponse{CameraID: string(id), Samples: make([]dto.SampleResponse, len(samples))}
	for i, s := range samples {
		resp.Samples[i] = sampleResponse(s)
	}
	return c.JSON(http.StatusOK, resp)
}

func sampleResponse(s *vision.Sample) dto.SampleResponse {
	return dto.SampleResponse{
		CameraID:    string(s.CameraID),
		Command:     s.Command,
		Timestamp:   s.Timestamp,
		ImageBase64: s.ImageBase64,
	}
}

// GetLatestSample godoc
// @Summary      Latest dataset sample
// @Tags         samples
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Camera id"
// @Success      200  {object}  dto.SampleResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /samples/{id}/latest [get]
func (h *Handler) GetLatestSample(c echo.Context) error {
	if _, err := auth.RequireAuth(c); err != nil {
		return err
	}

	id, err := camera.ParseID(c.Param("id"))
	if err != nil {
		return shared.BadRequest("invalid_camera", "unknown camera id")
	}

	sample, err := h.samples.GetLatestSample(c.Request().Context(), id)
	if err != nil {
		h.logger.Error("failed to get latest sample", "error", err, "camera_id", id)
		return shared.InternalError("get_samples_failed", "failed to get samples")
	}
	if sample == nil {
		return shared.NotFound("sample_not_found", "no samples for camera")
	}
	return c.JSON(http.StatusOK, sampleResponse(sample))
}

// DeleteSamples godoc
// @Summary      Clear dataset samples
// @Tags         samples
// @Security     BearerAuth
// @Param        id   path  string  true  "Camera id"
// @Success      204
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      401  {object}  dto.ErrorResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Router       /samples/{id} [delete]
func (h *Handler) DeleteSamples(c echo.Context) error {
	claims, err := auth.RequireOperator(c)
	if err != nil {
		return err
	}

	id, err := camera.ParseID(c.Param("id"))
	if err != nil {
		return shared.BadRequest("invalid_camera", "unknown camera id")
	}

	if err := h.samples.DeleteSamples(c.Request().Context(), id); err != nil {
		h.logger.Error("failed to delete samples", "error", err, "camera_id", id)
		return shared.InternalError("delete_samples_failed", "failed to delete samples")
	}

	h.logger.Info("samples cleared", "operator_id", claims.OperatorID, "camera_id", id)
	return c.NoContent(http.StatusNoContent)
}
