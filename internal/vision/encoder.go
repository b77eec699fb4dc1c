package vision

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"
	"strings"

	"github.com/eleven-am/vlm-docking/internal/camera"
)

type Encoder struct {
	png png.Encoder
}

func NewEncoder(level png.CompressionLevel) *Encoder {
	return &Encoder{png: png.Encoder{CompressionLevel: level}}
}

// ParseCompression maps a config value onto a png compression level.
func ParseCompression(s string) png.CompressionLevel {
	switch strings.ToLower(s) {
	case "none":
		return png.NoCompression
	case "speed":
		return png.BestSpeed
	case "best":
		return png.BestCompression
	default:
		return png.DefaultCompression
	}
}

// Encode compresses the frame to PNG at native resolution and base64 encodes
// it. Output is deterministic for identical pixels.
func (e *Encoder) Encode(frame *camera.Frame) (EncodedImage, error) {
	if frame == nil {
		return EncodedImage{}, fmt.Errorf("no frame provided")
	}
	if frame.Width <= 0 || frame.Height <= 0 {
		return EncodedImage{}, fmt.Errorf("invalid frame dimensions: %dx%d", frame.Width, frame.Height)
	}
	if len(frame.Pixels) != frame.ExpectedSize() {
		return EncodedImage{}, fmt.Errorf("pixel buffer is %d bytes, want %d", len(frame.Pixels), frame.ExpectedSize())
	}

	img := &image.NRGBA{
		Pix:    frame.Pixels,
		Stride: frame.Width * 4,
		Rect:   image.Rect(0, 0, frame.Width, frame.Height),
	}

	var buf bytes.Buffer
	if err := e.png.Encode(&buf, img); err != nil {
		return EncodedImage{}, fmt.Errorf("png encode: %w", err)
	}

	return EncodedImage{
		CameraID: frame.CameraID,
		Base64:   base64.StdEncoding.EncodeToString(buf.Bytes()),
	}, nil
}
