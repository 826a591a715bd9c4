// Package media holds the video types shared between capture, the video
// sink and classifier backends.
package media

import (
	"context"
	"errors"
	"time"
)

// FacingEnvironment asks for the rear-facing camera when there is one.
const FacingEnvironment = "environment"

// ErrStreamEnded is returned by a Stream after it has been closed or the
// device stopped producing frames.
var ErrStreamEnded = errors.New("media: stream ended")

// Size is a pixel width and height.
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Valid reports whether both dimensions are positive.
func (s Size) Valid() bool {
	return s.Width > 0 && s.Height > 0
}

// Range bounds one capture dimension.
type Range struct {
	Ideal int `json:"ideal"`
	Max   int `json:"max"`
}

// Constraints describe the capture a caller wants.
type Constraints struct {
	Width      Range  `json:"width"`
	Height     Range  `json:"height"`
	FacingMode string `json:"facingMode"`
}

// ConstraintsFor builds constraints where ideal and max both equal the
// viewport, with the rear camera preferred.
func ConstraintsFor(viewport Size) Constraints {
	return Constraints{
		Width:      Range{Ideal: viewport.Width, Max: viewport.Width},
		Height:     Range{Ideal: viewport.Height, Max: viewport.Height},
		FacingMode: FacingEnvironment,
	}
}

// Frame is a single JPEG-encoded video frame.
type Frame struct {
	Data       []byte
	Width      int
	Height     int
	Seq        uint64
	CapturedAt time.Time
}

// Empty reports whether the frame carries no image data.
func (f Frame) Empty() bool {
	return len(f.Data) == 0
}

// Stream is a live source of frames.
type Stream interface {
	// ReadFrame blocks until the next frame is available.
	ReadFrame(ctx context.Context) (Frame, error)

	// Label names the underlying device.
	Label() string

	// Close releases the device. It is safe to call more than once.
	Close() error
}
