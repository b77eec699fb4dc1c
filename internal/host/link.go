package host

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/eleven-am/vlm-docking/internal/camera"
	"github.com/eleven-am/vlm-docking/internal/motion"
	"github.com/eleven-am/vlm-docking/internal/vehicle"
	"github.com/golang/geo/r3"
	"github.com/google/uuid"
)

var (
	ErrNotConnected  = errors.New("no host connected")
	ErrRenderTimeout = errors.New("render timed out")
	ErrNoFrame       = errors.New("no rendered frame")
)

type Config struct {
	RenderTimeout time.Duration
}

type renderReply struct {
	cameraID camera.ID
	frame    renderedFrame
	err      error
}

type renderedFrame struct {
	width, height int
	pixels        []byte
}

// Link is the core's view of the rendering host. It renders camera views,
// actuates the vehicle and reports the docking reference. One host is
// connected at a time.
type Link struct {
	cfg      Config
	lifetime *vehicle.Lifetime
	logger   *slog.Logger

	mu      sync.Mutex
	conn    *conn
	bound   map[camera.ID]bool
	pose    motion.Pose
	dock    r3.Vector
	hasDock bool
	pending map[string]chan renderReply
	frames  map[camera.ID]renderedFrame
}

func NewLink(cfg Config, lifetime *vehicle.Lifetime, logger *slog.Logger) *Link {
	if cfg.RenderTimeout <= 0 {
		cfg.RenderTimeout = 2 * time.Second
	}
	if lifetime == nil {
		lifetime = vehicle.NewLifetime()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Link{
		cfg:      cfg,
		lifetime: lifetime,
		logger:   logger.With("component", "host-link"),
		bound:    make(map[camera.ID]bool),
		pending:  make(map[string]chan renderReply),
		frames:   make(map[camera.ID]renderedFrame),
	}
}

func (l *Link) Connected() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.conn != nil
}

func (l *Link) Handle() vehicle.Handle {
	return l.lifetime.Current()
}

func (l *Link) Bound(id camera.ID) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.conn != nil && l.bound[id]
}

func (l *Link) BoundCameras() []camera.ID {
	l.mu.Lock()
	defer l.mu.Unlock()
	ids := make([]camera.ID, 0, len(l.bound))
	for _, id := range camera.AllIDs {
		if l.bound[id] {
			ids = append(ids, id)
		}
	}
	return ids
}

// TriggerRender asks the host to render id and waits for the frame. The frame
// is held for the next ReadPixels of the same camera.
func (l *Link) TriggerRender(ctx context.Context, id camera.ID) error {
	l.mu.Lock()
	c := l.conn
	if c == nil {
		l.mu.Unlock()
		return ErrNotConnected
	}
	reqID := uuid.NewString()
	reply := make(chan renderReply, 1)
	l.pending[reqID] = reply
	delete(l.frames, id)
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		delete(l.pending, reqID)
		l.mu.Unlock()
	}()

	if err := c.Send(&Message{Type: MessageTypeRender, RequestID: reqID, CameraID: id}); err != nil {
		return fmt.Errorf("send render request: %w", err)
	}

	timer := time.NewTimer(l.cfg.RenderTimeout)
	defer timer.Stop()

	select {
	case r := <-reply:
		if r.err != nil {
			return r.err
		}
		if r.cameraID != id {
			return fmt.Errorf("render for %s answered with camera %s", id, r.cameraID)
		}
		l.mu.Lock()
		l.frames[id] = r.frame
		l.mu.Unlock()
		return nil
	case <-timer.C:
		return fmt.Errorf("%w: %s after %v", ErrRenderTimeout, id, l.cfg.RenderTimeout)
	case <-c.Done():
		return ErrNotConnected
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ReadPixels hands over the frame produced by the last TriggerRender for id.
// Each frame is returned once.
func (l *Link) ReadPixels(_ context.Context, id camera.ID) (int, int, []byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, ok := l.frames[id]
	if !ok {
		return 0, 0, nil, fmt.Errorf("%w: %s", ErrNoFrame, id)
	}
	delete(l.frames, id)
	return f.width, f.height, f.pixels, nil
}

func (l *Link) Pose() motion.Pose {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pose
}

// Translate moves the local pose immediately and forwards the delta to the
// host, which reports the authoritative pose back.
func (l *Link) Translate(delta r3.Vector) {
	l.mu.Lock()
	l.pose.Position = l.pose.Position.Add(delta)
	c := l.conn
	l.mu.Unlock()

	d := VecOf(delta)
	l.sendTo(c, &Message{Type: MessageTypeTranslate, Delta: &d})
}

func (l *Link) SetRotation(rot motion.Rotator) {
	rot = rot.Normalize()

	l.mu.Lock()
	l.pose.Rotation = rot
	c := l.conn
	l.mu.Unlock()

	l.sendTo(c, &Message{Type: MessageTypeSetRotation, Rotation: &rot})
}

// Position is the docking reference, if the host has reported one.
func (l *Link) Position() (r3.Vector, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.dock, l.hasDock
}

func (l *Link) sendTo(c *conn, msg *Message) {
	if c == nil {
		l.logger.Debug("no host connected, actuation dropped", "type", msg.Type)
		return
	}
	if err := c.Send(msg); err != nil {
		l.logger.Warn("failed to send to host", "type", msg.Type, "error", err)
	}
}

func (l *Link) attach(c *conn) {
	l.mu.Lock()
	old := l.conn
	l.conn = c
	l.bound = make(map[camera.ID]bool)
	l.frames = make(map[camera.ID]renderedFrame)
	l.mu.Unlock()

	l.lifetime.Destroy()

	if old != nil {
		l.logger.Info("host replaced", "old", old.id, "new", c.id)
		_ = old.Close()
	}
}

func (l *Link) detach(c *conn) {
	l.mu.Lock()
	if l.conn != c {
		l.mu.Unlock()
		return
	}
	l.conn = nil
	l.bound = make(map[camera.ID]bool)
	l.hasDock = false
	l.mu.Unlock()

	l.lifetime.Destroy()
}

func (l *Link) handleMessage(c *conn, msg *Message) {
	l.mu.Lock()
	current := l.conn == c
	l.mu.Unlock()
	if !current {
		return
	}

	switch msg.Type {
	case MessageTypeHello:
		l.handleHello(msg)
	case MessageTypeFrame:
		l.handleFrame(msg)
	case MessageTypeRenderError:
		l.deliver(msg.RequestID, renderReply{
			cameraID: msg.CameraID,
			err:      fmt.Errorf("host render error: %s", msg.Error),
		})
	case MessageTypePose:
		l.handlePose(msg)
	case MessageTypeDock:
		l.mu.Lock()
		if msg.Clear || msg.Position == nil {
			l.hasDock = false
		} else {
			l.dock = msg.Position.Vector()
			l.hasDock = true
		}
		l.mu.Unlock()
	case MessageTypeDespawn:
		l.mu.Lock()
		l.bound = make(map[camera.ID]bool)
		l.mu.Unlock()
		l.lifetime.Destroy()
		l.logger.Info("vehicle despawned")
	default:
		l.logger.Warn("unknown host message", "type", msg.Type)
	}
}

func (l *Link) handleHello(msg *Message) {
	bound := make(map[camera.ID]bool, len(msg.Cameras))
	for _, id := range msg.Cameras {
		if _, err := camera.ParseID(string(id)); err != nil {
			l.logger.Warn("host announced unknown camera", "camera_id", id)
			continue
		}
		bound[id] = true
	}

	l.mu.Lock()
	l.bound = bound
	l.mu.Unlock()

	h := l.lifetime.Spawn()
	l.logger.Info("vehicle spawned", "generation", h.Generation(), "cameras", len(bound))
}

func (l *Link) handleFrame(msg *Message) {
	pixels, err := base64.StdEncoding.DecodeString(msg.PixelsBase64)
	if err != nil {
		l.deliver(msg.RequestID, renderReply{cameraID: msg.CameraID, err: fmt.Errorf("decode pixels: %w", err)})
		return
	}
	l.deliver(msg.RequestID, renderReply{
		cameraID: msg.CameraID,
		frame:    renderedFrame{width: msg.Width, height: msg.Height, pixels: pixels},
	})
}

func (l *Link) handlePose(msg *Message) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if msg.Position != nil {
		l.pose.Position = msg.Position.Vector()
	}
	if msg.Rotation != nil {
		l.pose.Rotation = msg.Rotation.Normalize()
	}
}

func (l *Link) deliver(reqID string, r renderReply) {
	l.mu.Lock()
	ch, ok := l.pending[reqID]
	l.mu.Unlock()
	if !ok {
		l.logger.Debug("late or unknown render reply dropped", "request_id", reqID)
		return
	}

	select {
	case ch <- r:
	default:
	}
}
