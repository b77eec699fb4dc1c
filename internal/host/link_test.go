package host

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/eleven-am/vlm-docking/internal/camera"
	"github.com/eleven-am/vlm-docking/internal/motion"
	"github.com/eleven-am/vlm-docking/internal/vehicle"
	"github.com/golang/geo/r3"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T, cfg Config) (*Link, string) {
	t.Helper()
	link := NewLink(cfg, vehicle.NewLifetime(), testLogger())

	e := echo.New()
	NewHandler(link, testLogger()).RegisterRoutes(e.Group("/v1"))
	server := httptest.NewServer(e)
	t.Cleanup(server.Close)

	return link, "ws" + strings.TrimPrefix(server.URL, "http") + "/v1/host/connect"
}

type fakeHost struct {
	ws *websocket.Conn
}

func dialHost(t *testing.T, url string) *fakeHost {
	t.Helper()
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial error: %v", err)
	}
	t.Cleanup(func() { ws.Close() })
	return &fakeHost{ws: ws}
}

func (h *fakeHost) send(t *testing.T, msg Message) {
	t.Helper()
	if err := h.ws.WriteJSON(msg); err != nil {
		t.Fatalf("write error: %v", err)
	}
}

func (h *fakeHost) read(t *testing.T) Message {
	t.Helper()
	_ = h.ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg Message
	if err := h.ws.ReadJSON(&msg); err != nil {
		t.Fatalf("read error: %v", err)
	}
	return msg
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition never met")
}

func connectHost(t *testing.T, link *Link, url string, cameras ...camera.ID) *fakeHost {
	t.Helper()
	before := link.Handle()
	h := dialHost(t, url)
	h.send(t, Message{Type: MessageTypeHello, Cameras: cameras})
	waitFor(t, func() bool {
		cur := link.Handle()
		return cur.Alive() && cur != before
	})
	return h
}

func TestLink_Disconnected(t *testing.T) {
	link := NewLink(Config{}, nil, nil)

	if link.Connected() {
		t.Error("expected not connected")
	}
	if link.Bound(camera.Forward) {
		t.Error("expected nothing bound")
	}
	if err := link.TriggerRender(context.Background(), camera.Forward); !errors.Is(err, ErrNotConnected) {
		t.Errorf("expected ErrNotConnected, got %v", err)
	}
	if _, _, _, err := link.ReadPixels(context.Background(), camera.Forward); !errors.Is(err, ErrNoFrame) {
		t.Errorf("expected ErrNoFrame, got %v", err)
	}
	if _, ok := link.Position(); ok {
		t.Error("expected no docking reference")
	}
	link.Translate(r3.Vector{X: 1})
	if link.Pose().Position.X != 1 {
		t.Error("expected local pose to move without a host")
	}
}

func TestLink_HelloSpawnsAndBinds(t *testing.T) {
	link, url := newTestServer(t, Config{})
	connectHost(t, link, url, camera.Forward, camera.Down, camera.ID("sideways"))

	if !link.Connected() {
		t.Error("expected connected")
	}
	if !link.Bound(camera.Forward) || !link.Bound(camera.Down) {
		t.Error("expected forward and down bound")
	}
	if link.Bound(camera.Up) {
		t.Error("expected up unbound")
	}
	if got := link.BoundCameras(); len(got) != 2 {
		t.Errorf("expected 2 bound cameras, got %v", got)
	}
}

func TestLink_RenderRoundTrip(t *testing.T) {
	link, url := newTestServer(t, Config{})
	h := connectHost(t, link, url, camera.Left)

	pixels := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	errCh := make(chan error, 1)
	go func() {
		errCh <- link.TriggerRender(context.Background(), camera.Left)
	}()

	req := h.read(t)
	if req.Type != MessageTypeRender || req.CameraID != camera.Left || req.RequestID == "" {
		t.Fatalf("unexpected render request %+v", req)
	}
	h.send(t, Message{
		Type:         MessageTypeFrame,
		RequestID:    req.RequestID,
		CameraID:     camera.Left,
		Width:        2,
		Height:       1,
		PixelsBase64: base64.StdEncoding.EncodeToString(pixels),
	})

	if err := <-errCh; err != nil {
		t.Fatalf("TriggerRender failed: %v", err)
	}

	w, hgt, got, err := link.ReadPixels(context.Background(), camera.Left)
	if err != nil {
		t.Fatalf("ReadPixels failed: %v", err)
	}
	if w != 2 || hgt != 1 || string(got) != string(pixels) {
		t.Errorf("unexpected frame %dx%d %v", w, hgt, got)
	}

	if _, _, _, err := link.ReadPixels(context.Background(), camera.Left); !errors.Is(err, ErrNoFrame) {
		t.Errorf("expected frame to be consumed, got %v", err)
	}
}

func TestLink_RenderError(t *testing.T) {
	link, url := newTestServer(t, Config{})
	h := connectHost(t, link, url, camera.Right)

	errCh := make(chan error, 1)
	go func() {
		errCh <- link.TriggerRender(context.Background(), camera.Right)
	}()

	req := h.read(t)
	h.send(t, Message{Type: MessageTypeRenderError, RequestID: req.RequestID, CameraID: camera.Right, Error: "no target"})

	if err := <-errCh; err == nil || !strings.Contains(err.Error(), "no target") {
		t.Errorf("expected host render error, got %v", err)
	}
}

func TestLink_RenderTimeout(t *testing.T) {
	link, url := newTestServer(t, Config{RenderTimeout: 50 * time.Millisecond})
	connectHost(t, link, url, camera.Up)

	err := link.TriggerRender(context.Background(), camera.Up)
	if !errors.Is(err, ErrRenderTimeout) {
		t.Errorf("expected ErrRenderTimeout, got %v", err)
	}
}

func TestLink_ActuationReachesHost(t *testing.T) {
	link, url := newTestServer(t, Config{})
	h := connectHost(t, link, url, camera.Forward)

	link.Translate(r3.Vector{X: 10})
	msg := h.read(t)
	if msg.Type != MessageTypeTranslate || msg.Delta == nil || msg.Delta.Vector() != (r3.Vector{X: 10}) {
		t.Errorf("unexpected translate message %+v", msg)
	}

	link.SetRotation(motion.Rotator{Yaw: 370})
	msg = h.read(t)
	if msg.Type != MessageTypeSetRotation || msg.Rotation == nil {
		t.Fatalf("unexpected rotation message %+v", msg)
	}
	if msg.Rotation.Yaw != 10 {
		t.Errorf("expected normalized yaw 10, got %v", msg.Rotation.Yaw)
	}
	if link.Pose().Rotation.Yaw != 10 {
		t.Errorf("expected local yaw 10, got %v", link.Pose().Rotation.Yaw)
	}
}

func TestLink_PoseAndDockReports(t *testing.T) {
	link, url := newTestServer(t, Config{})
	h := connectHost(t, link, url)

	pos := VecOf(r3.Vector{X: 1, Y: 2, Z: 3})
	rot := motion.Rotator{Pitch: 5, Yaw: 20}
	h.send(t, Message{Type: MessageTypePose, Position: &pos, Rotation: &rot})
	waitFor(t, func() bool { return link.Pose().Position == pos.Vector() })
	if link.Pose().Rotation.Yaw != 20 {
		t.Errorf("expected yaw 20, got %v", link.Pose().Rotation.Yaw)
	}

	dock := VecOf(r3.Vector{X: 500})
	h.send(t, Message{Type: MessageTypeDock, Position: &dock})
	waitFor(t, func() bool { _, ok := link.Position(); return ok })
	if p, _ := link.Position(); p.X != 500 {
		t.Errorf("expected dock at x=500, got %v", p)
	}

	h.send(t, Message{Type: MessageTypeDock, Clear: true})
	waitFor(t, func() bool { _, ok := link.Position(); return !ok })
}

func TestLink_DespawnAndDisconnectDestroyVehicle(t *testing.T) {
	link, url := newTestServer(t, Config{})
	h := connectHost(t, link, url, camera.Forward)

	first := link.Handle()
	h.send(t, Message{Type: MessageTypeDespawn})
	waitFor(t, func() bool { return !first.Alive() })
	if link.Bound(camera.Forward) {
		t.Error("expected cameras unbound after despawn")
	}

	h.send(t, Message{Type: MessageTypeHello, Cameras: []camera.ID{camera.Forward}})
	waitFor(t, func() bool { return link.Handle().Alive() })
	second := link.Handle()
	if second.Generation() == first.Generation() {
		t.Error("expected a new generation after respawn")
	}

	h.ws.Close()
	waitFor(t, func() bool { return !link.Connected() })
	if second.Alive() {
		t.Error("expected vehicle destroyed on disconnect")
	}
}

func TestLink_SecondHostReplacesFirst(t *testing.T) {
	link, url := newTestServer(t, Config{})
	first := connectHost(t, link, url, camera.Forward)
	old := link.Handle()

	connectHost(t, link, url, camera.Backward)
	if old.Alive() {
		t.Error("expected first host's vehicle destroyed")
	}
	if link.Bound(camera.Forward) || !link.Bound(camera.Backward) {
		t.Error("expected bindings from second host only")
	}

	_ = first.ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		if _, _, err := first.ws.ReadMessage(); err != nil {
			break
		}
	}
	if !link.Connected() {
		t.Error("expected second host to stay connected")
	}
}
