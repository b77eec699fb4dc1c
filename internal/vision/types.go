package vision

import (
	"errors"
	"fmt"
	"time"

	"github.com/eleven-am/vlm-docking/internal/camera"
)

type Config struct {
	InferenceURL string
	Timeout      time.Duration
	SampleTTL    time.Duration
}

type EncodedImage struct {
	CameraID camera.ID
	Base64   string
}

type InferRequest struct {
	CameraID    camera.ID `json:"camera_id"`
	ImageBase64 string    `json:"image_base64"`
	Command     string    `json:"command"`
}

type InferResponse struct {
	Action     string  `json:"action"`
	Confidence float64 `json:"confidence"`
}

// Result is the single completion of a Send. Exactly one of Response and Err
// is set.
type Result struct {
	CameraID camera.ID
	Command  string
	Response *InferResponse
	Err      error
	Latency  time.Duration
}

type FailureKind string

const (
	FailureTransport FailureKind = "transport"
	FailureParse     FailureKind = "parse"
)

var ErrMissingField = errors.New("missing required field")

type Failure struct {
	Kind       FailureKind
	StatusCode int
	Err        error
}

func (f *Failure) Error() string {
	if f.StatusCode != 0 {
		return fmt.Sprintf("%s failure (status %d): %v", f.Kind, f.StatusCode, f.Err)
	}
	return fmt.Sprintf("%s failure: %v", f.Kind, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// KindOf returns the failure kind of err, or "" when err is not a Failure.
func KindOf(err error) FailureKind {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}
	return ""
}

type Sample struct {
	CameraID    camera.ID `json:"camera_id"`
	Command     string    `json:"command"`
	Timestamp   int64     `json:"timestamp"`
	ImageBase64 string    `json:"image_base64"`
}
