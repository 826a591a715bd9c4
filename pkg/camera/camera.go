package camera

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"

	"github.com/teslashibe/go-catcam/pkg/media"
	"github.com/teslashibe/go-catcam/pkg/trace"
)

// ErrFeatureUnsupported means the platform has no capture capability.
var ErrFeatureUnsupported = errors.New("camera: video capture is not supported")

// FeatureUnsupportedError is returned before any capture attempt when the
// capability is missing. It matches ErrFeatureUnsupported with errors.Is.
type FeatureUnsupportedError struct {
	Reason string
}

func (e *FeatureUnsupportedError) Error() string {
	if e.Reason == "" {
		return ErrFeatureUnsupported.Error()
	}
	return fmt.Sprintf("%v: %s", ErrFeatureUnsupported, e.Reason)
}

// Unwrap returns ErrFeatureUnsupported.
func (e *FeatureUnsupportedError) Unwrap() error {
	return ErrFeatureUnsupported
}

// AcquisitionError wraps a rejected capture request (permission denied, no
// device, device busy).
type AcquisitionError struct {
	Cause error
}

func (e *AcquisitionError) Error() string {
	return fmt.Sprintf("camera: acquisition failed: %v", e.Cause)
}

// Unwrap returns the underlying cause.
func (e *AcquisitionError) Unwrap() error {
	return e.Cause
}

// Capture is the platform capture capability.
type Capture interface {
	// Supported reports whether capture can be attempted at all.
	Supported() bool

	// RequestVideo opens a stream honouring c as far as the device allows.
	RequestVideo(ctx context.Context, c media.Constraints) (media.Stream, error)
}

// Acquisition requests a stream and binds it to the video sink.
type Acquisition struct {
	capture Capture
	sink    *media.VideoSink
	logger  *slog.Logger
}

// NewAcquisition creates an Acquisition. capture may be nil, in which case
// every acquisition reports FeatureUnsupportedError.
func NewAcquisition(capture Capture, sink *media.VideoSink, logger *slog.Logger) *Acquisition {
	if logger == nil {
		logger = slog.Default()
	}
	return &Acquisition{
		capture: capture,
		sink:    sink,
		logger:  logger.With("component", "camera"),
	}
}

// Supported is the capability pre-check. It never touches the device.
func (a *Acquisition) Supported() bool {
	return a.capture != nil && a.capture.Supported()
}

// Acquire builds constraints from the viewport, requests a stream and binds
// it to the sink. Without a capture capability it fails with
// *FeatureUnsupportedError and RequestVideo is never called.
func (a *Acquisition) Acquire(ctx context.Context, viewport media.Size) (stream media.Stream, err error) {
	ctx, span := trace.Start(ctx, "camera.acquire",
		attribute.Int("viewport.width", viewport.Width),
		attribute.Int("viewport.height", viewport.Height),
	)
	defer func() { trace.End(span, err) }()

	if !a.Supported() {
		return nil, &FeatureUnsupportedError{Reason: "no capture device"}
	}
	if !viewport.Valid() {
		return nil, &AcquisitionError{Cause: fmt.Errorf("invalid viewport %dx%d", viewport.Width, viewport.Height)}
	}

	constraints := media.ConstraintsFor(viewport)

	stream, err = a.capture.RequestVideo(ctx, constraints)
	if err != nil {
		return nil, &AcquisitionError{Cause: err}
	}

	a.logger.Info("using video device",
		"device", stream.Label(),
		"width", viewport.Width,
		"height", viewport.Height,
		"facing_mode", constraints.FacingMode,
	)

	a.sink.SetDimensions(viewport)
	a.sink.Attach(stream)

	return stream, nil
}
