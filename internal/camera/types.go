package camera

import (
	"errors"
	"fmt"

	"github.com/eleven-am/vlm-docking/internal/motion"
	"github.com/golang/geo/r3"
)

type ID string

const (
	Forward  ID = "forward"
	Backward ID = "backward"
	Left     ID = "left"
	Right    ID = "right"
	Up       ID = "up"
	Down     ID = "down"
)

var AllIDs = []ID{Forward, Backward, Left, Right, Up, Down}

var (
	ErrUnknownCamera      = errors.New("unknown camera")
	ErrCaptureUnavailable = errors.New("capture unavailable")
)

func (id ID) String() string {
	return string(id)
}

func ParseID(s string) (ID, error) {
	for _, id := range AllIDs {
		if string(id) == s {
			return id, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCamera, s)
}

// View is one fixed viewpoint on the vehicle. Width and Height are the render
// size every frame from this view must have.
type View struct {
	ID          ID
	Offset      r3.Vector
	Orientation motion.Rotator
	Width       int
	Height      int
}

// Frame is a raw RGBA8 capture, row-major, 4 bytes per pixel.
type Frame struct {
	CameraID ID
	Width    int
	Height   int
	Pixels   []byte
}

func (f *Frame) ExpectedSize() int {
	return f.Width * f.Height * 4
}

// DefaultRig is the six-camera layout of the docking vehicle. Offsets are in
// centimetres from the vehicle origin.
func DefaultRig(width, height int) []View {
	return []View{
		{ID: Forward, Offset: r3.Vector{X: 100}, Width: width, Height: height},
		{ID: Backward, Offset: r3.Vector{X: -100}, Orientation: motion.Rotator{Yaw: 180}, Width: width, Height: height},
		{ID: Left, Offset: r3.Vector{Y: -100}, Orientation: motion.Rotator{Yaw: -90}, Width: width, Height: height},
		{ID: Right, Offset: r3.Vector{Y: 100}, Orientation: motion.Rotator{Yaw: 90}, Width: width, Height: height},
		{ID: Up, Offset: r3.Vector{Z: 50}, Orientation: motion.Rotator{Pitch: 90}, Width: width, Height: height},
		{ID: Down, Offset: r3.Vector{Z: -50}, Orientation: motion.Rotator{Pitch: -90}, Width: width, Height: height},
	}
}
