package camera

import (
	"context"
	"fmt"
	"image"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-catcam/pkg/media"
)

// GoCVCapture opens local capture devices through OpenCV.
type GoCVCapture struct {
	config Config
}

// NewGoCVCapture creates a capture for the configured device.
func NewGoCVCapture(cfg Config) (*GoCVCapture, error) {
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("camera: invalid config: %v", errs)
	}
	return &GoCVCapture{config: cfg}, nil
}

// Supported reports true when a device is configured. Whether it can be
// opened is only known once RequestVideo runs.
func (c *GoCVCapture) Supported() bool {
	return c != nil && c.config.Device != ""
}

// RequestVideo opens the device picked by the facing mode and asks it for
// the ideal size. Frames larger than the max are scaled down.
func (c *GoCVCapture) RequestVideo(ctx context.Context, cons media.Constraints) (media.Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	device := c.config.deviceFor(cons.FacingMode)
	vc, err := gocv.OpenVideoCapture(openArg(device))
	if err != nil {
		return nil, fmt.Errorf("open device %q: %w", device, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("open device %q: not available", device)
	}

	if cons.Width.Ideal > 0 {
		vc.Set(gocv.VideoCaptureFrameWidth, float64(cons.Width.Ideal))
	}
	if cons.Height.Ideal > 0 {
		vc.Set(gocv.VideoCaptureFrameHeight, float64(cons.Height.Ideal))
	}
	if c.config.Framerate > 0 {
		vc.Set(gocv.VideoCaptureFPS, float64(c.config.Framerate))
	}

	return &gocvStream{
		vc:      vc,
		label:   fmt.Sprintf("opencv:%s", device),
		maxW:    cons.Width.Max,
		maxH:    cons.Height.Max,
		quality: c.config.Quality,
		img:     gocv.NewMat(),
	}, nil
}

type gocvStream struct {
	mu      sync.Mutex
	vc      *gocv.VideoCapture
	img     gocv.Mat
	label   string
	maxW    int
	maxH    int
	quality int
	seq     uint64
	closed  bool
}

func (s *gocvStream) ReadFrame(ctx context.Context) (media.Frame, error) {
	if err := ctx.Err(); err != nil {
		return media.Frame{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return media.Frame{}, media.ErrStreamEnded
	}
	if ok := s.vc.Read(&s.img); !ok || s.img.Empty() {
		return media.Frame{}, media.ErrStreamEnded
	}

	src := s.img
	if scale := fitScale(src.Cols(), src.Rows(), s.maxW, s.maxH); scale < 1 {
		resized := gocv.NewMat()
		defer resized.Close()
		gocv.Resize(src, &resized, image.Point{}, scale, scale, gocv.InterpolationArea)
		src = resized
	}

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, src, []int{int(gocv.IMWriteJpegQuality), s.quality})
	if err != nil {
		return media.Frame{}, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	// The native buffer is freed on Close, so copy out.
	data := append([]byte(nil), buf.GetBytes()...)

	s.seq++
	return media.Frame{
		Data:       data,
		Width:      src.Cols(),
		Height:     src.Rows(),
		Seq:        s.seq,
		CapturedAt: time.Now(),
	}, nil
}

func (s *gocvStream) Label() string {
	return s.label
}

func (s *gocvStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.img.Close()
	return s.vc.Close()
}

// fitScale returns the factor that fits w x h inside maxW x maxH, or 1 when
// it already fits or no max is set.
func fitScale(w, h, maxW, maxH int) float64 {
	scale := 1.0
	if maxW > 0 && w > maxW {
		scale = float64(maxW) / float64(w)
	}
	if maxH > 0 && h > maxH {
		if s := float64(maxH) / float64(h); s < scale {
			scale = s
		}
	}
	return scale
}

var (
	_ Capture      = (*GoCVCapture)(nil)
	_ media.Stream = (*gocvStream)(nil)
)
