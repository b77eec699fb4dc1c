package camera

import (
	"context"
	"fmt"
)

// Renderer is the rendering host as seen from one vehicle. TriggerRender must
// draw the scene as it is at call time; ReadPixels returns that render.
type Renderer interface {
	Bound(id ID) bool
	TriggerRender(ctx context.Context, id ID) error
	ReadPixels(ctx context.Context, id ID) (width, height int, pixels []byte, err error)
}

type Source struct {
	view     View
	renderer Renderer
}

func NewSource(view View, renderer Renderer) *Source {
	return &Source{view: view, renderer: renderer}
}

func NewSources(views []View, renderer Renderer) []*Source {
	sources := make([]*Source, 0, len(views))
	for _, v := range views {
		sources = append(sources, NewSource(v, renderer))
	}
	return sources
}

func (s *Source) ID() ID {
	return s.view.ID
}

func (s *Source) View() View {
	return s.view
}

// Capture renders and reads one frame. Every failure, including an unbound
// surface, is reported as ErrCaptureUnavailable so callers can skip the camera
// for this cycle.
func (s *Source) Capture(ctx context.Context) (*Frame, error) {
	if s.renderer == nil || !s.renderer.Bound(s.view.ID) {
		return nil, fmt.Errorf("%w: %s has no bound surface", ErrCaptureUnavailable, s.view.ID)
	}

	if err := s.renderer.TriggerRender(ctx, s.view.ID); err != nil {
		return nil, fmt.Errorf("%w: render %s: %v", ErrCaptureUnavailable, s.view.ID, err)
	}

	width, height, pixels, err := s.renderer.ReadPixels(ctx, s.view.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrCaptureUnavailable, s.view.ID, err)
	}

	if width != s.view.Width || height != s.view.Height {
		return nil, fmt.Errorf("%w: %s rendered %dx%d, want %dx%d",
			ErrCaptureUnavailable, s.view.ID, width, height, s.view.Width, s.view.Height)
	}

	frame := &Frame{
		CameraID: s.view.ID,
		Width:    width,
		Height:   height,
		Pixels:   pixels,
	}
	if len(pixels) != frame.ExpectedSize() {
		return nil, fmt.Errorf("%w: %s buffer is %d bytes, want %d",
			ErrCaptureUnavailable, s.view.ID, len(pixels), frame.ExpectedSize())
	}

	return frame, nil
}
