package host

import (
	"github.com/eleven-am/vlm-docking/internal/camera"
	"github.com/eleven-am/vlm-docking/internal/motion"
	"github.com/golang/geo/r3"
)

type MessageType string

// Sent to the host.
const (
	MessageTypeRender      MessageType = "render"
	MessageTypeTranslate   MessageType = "translate"
	MessageTypeSetRotation MessageType = "set_rotation"
)

// Received from the host.
const (
	MessageTypeHello       MessageType = "hello"
	MessageTypeFrame       MessageType = "frame"
	MessageTypeRenderError MessageType = "render_error"
	MessageTypePose        MessageType = "pose"
	MessageTypeDock        MessageType = "dock"
	MessageTypeDespawn     MessageType = "despawn"
)

// Vec3 is a vector on the wire: [x, y, z].
type Vec3 [3]float64

func VecOf(v r3.Vector) Vec3 {
	return Vec3{v.X, v.Y, v.Z}
}

func (v Vec3) Vector() r3.Vector {
	return r3.Vector{X: v[0], Y: v[1], Z: v[2]}
}

type Message struct {
	Type      MessageType `json:"type"`
	RequestID string      `json:"request_id,omitempty"`
	CameraID  camera.ID   `json:"camera_id,omitempty"`

	Cameras []camera.ID `json:"cameras,omitempty"`

	Width        int    `json:"width,omitempty"`
	Height       int    `json:"height,omitempty"`
	PixelsBase64 string `json:"pixels_base64,omitempty"`
	Error        string `json:"error,omitempty"`

	Delta    *Vec3           `json:"delta,omitempty"`
	Position *Vec3           `json:"position,omitempty"`
	Rotation *motion.Rotator `json:"rotation,omitempty"`
	Clear    bool            `json:"clear,omitempty"`
}
