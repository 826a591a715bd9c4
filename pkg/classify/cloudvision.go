package classify

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	vision "google.golang.org/api/vision/v1"

	"github.com/teslashibe/go-catcam/internal/httpc"
	"github.com/teslashibe/go-catcam/pkg/media"
)

// CloudVisionConfig configures the Google Cloud Vision label classifier.
type CloudVisionConfig struct {
	// APIKey authenticates with a key. When empty, application default
	// credentials are used.
	APIKey string

	// MaxResults caps the labels requested per frame.
	MaxResults int64

	// Timeout bounds one annotate request.
	Timeout time.Duration

	Logger *slog.Logger
}

// DefaultCloudVisionConfig returns sensible defaults.
func DefaultCloudVisionConfig() CloudVisionConfig {
	return CloudVisionConfig{
		MaxResults: 5,
		Timeout:    10 * time.Second,
		Logger:     slog.Default(),
	}
}

// CloudVisionLoader creates a Vision API client.
type CloudVisionLoader struct {
	config CloudVisionConfig
}

// NewCloudVisionLoader creates a loader. No network traffic happens until Load.
func NewCloudVisionLoader(cfg CloudVisionConfig) *CloudVisionLoader {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 5
	}
	return &CloudVisionLoader{config: cfg}
}

// Name implements Loader.
func (l *CloudVisionLoader) Name() string { return "cloudvision" }

// Load builds the Vision service with an API key or default credentials.
func (l *CloudVisionLoader) Load(ctx context.Context) (Model, error) {
	var opt option.ClientOption
	if l.config.APIKey != "" {
		opt = option.WithAPIKey(l.config.APIKey)
	} else {
		ts, err := google.DefaultTokenSource(httpc.WithOAuth2(ctx), vision.CloudVisionScope)
		if err != nil {
			return nil, WrapError("cloudvision", fmt.Errorf("default credentials: %w", err))
		}
		opt = option.WithTokenSource(oauth2.ReuseTokenSource(nil, ts))
	}

	svc, err := vision.NewService(ctx, opt)
	if err != nil {
		return nil, WrapError("cloudvision", fmt.Errorf("create service: %w", err))
	}

	l.config.Logger.Info("classifier loaded", "backend", "cloudvision", "max_results", l.config.MaxResults)

	return &CloudVisionModel{svc: svc, config: l.config}, nil
}

// CloudVisionModel classifies frames with LABEL_DETECTION.
type CloudVisionModel struct {
	svc    *vision.Service
	config CloudVisionConfig
}

// Classify sends the JPEG frame for label detection. Labels are lowercased so
// they compare like on-device class names.
func (m *CloudVisionModel) Classify(ctx context.Context, frame media.Frame) (Result, error) {
	if frame.Empty() {
		return nil, ErrEmptyFrame
	}

	if m.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.config.Timeout)
		defer cancel()
	}

	req := &vision.BatchAnnotateImagesRequest{
		Requests: []*vision.AnnotateImageRequest{{
			Image: &vision.Image{Content: base64.StdEncoding.EncodeToString(frame.Data)},
			Features: []*vision.Feature{{
				Type:       "LABEL_DETECTION",
				MaxResults: m.config.MaxResults,
			}},
		}},
	}

	resp, err := m.svc.Images.Annotate(req).Context(ctx).Do()
	if err != nil {
		return nil, WrapError("cloudvision", err)
	}
	if len(resp.Responses) == 0 {
		return Result{}, nil
	}

	r := resp.Responses[0]
	if r.Error != nil && r.Error.Code != 0 {
		return nil, &APIError{Code: int(r.Error.Code), Message: r.Error.Message, Provider: "cloudvision"}
	}

	return labelsToResult(r.LabelAnnotations), nil
}

func labelsToResult(labels []*vision.EntityAnnotation) Result {
	result := make(Result, 0, len(labels))
	for _, l := range labels {
		if l == nil {
			continue
		}
		result = append(result, Prediction{
			ClassName:   strings.ToLower(l.Description),
			Probability: l.Score,
		})
	}
	return result.Sorted(0)
}

// Close implements Model.
func (m *CloudVisionModel) Close() error {
	return nil
}

var (
	_ Loader = (*CloudVisionLoader)(nil)
	_ Model  = (*CloudVisionModel)(nil)
)
