package classify

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"os"
	"sync"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-catcam/pkg/media"
)

// DNNConfig configures the OpenCV DNN classifier.
type DNNConfig struct {
	ModelPath  string  // Path to an ONNX image classifier
	LabelsPath string  // One class name per line, in output order
	InputSize  int     // Square model input (224 for MobileNet)
	Scale      float64 // Pixel scale factor applied by BlobFromImage
	Mean       float64 // Per-channel mean subtracted before scaling
	SwapRB     bool    // OpenCV decodes BGR; most models want RGB
	Softmax    bool    // Apply softmax to raw logits
	TopK       int     // Predictions returned per frame
	Logger     *slog.Logger
}

// DefaultDNNConfig returns defaults for MobileNetV2 exported to ONNX.
func DefaultDNNConfig() DNNConfig {
	return DNNConfig{
		ModelPath:  "models/mobilenet_v2.onnx",
		LabelsPath: "models/imagenet_labels.txt",
		InputSize:  224,
		Scale:      1.0 / 127.5,
		Mean:       127.5,
		SwapRB:     true,
		Softmax:    true,
		TopK:       3,
		Logger:     slog.Default(),
	}
}

// DNNLoader loads an ONNX classifier through gocv.
type DNNLoader struct {
	config DNNConfig
}

// NewDNNLoader creates a loader. Nothing is read until Load.
func NewDNNLoader(cfg DNNConfig) *DNNLoader {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &DNNLoader{config: cfg}
}

// Name implements Loader.
func (l *DNNLoader) Name() string { return "dnn" }

// Load reads the labels and the network.
func (l *DNNLoader) Load(ctx context.Context) (Model, error) {
	cfg := l.config

	if cfg.ModelPath == "" {
		return nil, WrapError("dnn", ErrNoModel)
	}
	if _, err := os.Stat(cfg.ModelPath); os.IsNotExist(err) {
		return nil, WrapError("dnn", fmt.Errorf("model file not found: %s", cfg.ModelPath))
	}

	labels, err := LoadLabels(cfg.LabelsPath)
	if err != nil {
		return nil, WrapError("dnn", err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	net := gocv.ReadNetFromONNX(cfg.ModelPath)
	if net.Empty() {
		return nil, WrapError("dnn", fmt.Errorf("failed to load model from %s", cfg.ModelPath))
	}
	net.SetPreferableBackend(gocv.NetBackendDefault)
	net.SetPreferableTarget(gocv.NetTargetCPU)

	cfg.Logger.Info("classifier loaded",
		"backend", "dnn",
		"model", cfg.ModelPath,
		"labels", len(labels),
	)

	return &DNNModel{
		net:       net,
		labels:    labels,
		config:    cfg,
		inputSize: image.Pt(cfg.InputSize, cfg.InputSize),
	}, nil
}

// DNNModel classifies frames with an OpenCV network.
type DNNModel struct {
	net       gocv.Net
	labels    []string
	config    DNNConfig
	inputSize image.Point

	mu     sync.Mutex // gocv.Net is not safe for concurrent Forward
	closed bool
}

// Classify decodes the JPEG frame, runs a forward pass and ranks the output.
func (m *DNNModel) Classify(ctx context.Context, frame media.Frame) (Result, error) {
	if frame.Empty() {
		return nil, ErrEmptyFrame
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrModelClosed
	}

	img, err := gocv.IMDecode(frame.Data, gocv.IMReadColor)
	if err != nil {
		return nil, WrapError("dnn", fmt.Errorf("decode image: %w", err))
	}
	defer img.Close()

	if img.Empty() {
		return nil, ErrEmptyFrame
	}

	mean := m.config.Mean
	blob := gocv.BlobFromImage(img, m.config.Scale, m.inputSize,
		gocv.NewScalar(mean, mean, mean, 0), m.config.SwapRB, false)
	defer blob.Close()

	m.net.SetInput(blob, "")
	output := m.net.Forward("")
	defer output.Close()

	data, err := output.DataPtrFloat32()
	if err != nil {
		return nil, WrapError("dnn", fmt.Errorf("read output: %w", err))
	}

	scores := make([]float64, len(data))
	for i, v := range data {
		scores[i] = float64(v)
	}
	if m.config.Softmax {
		Softmax(scores)
	}

	return Rank(scores, m.labels, m.config.TopK)
}

// Close releases the network.
func (m *DNNModel) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	return m.net.Close()
}

var (
	_ Loader = (*DNNLoader)(nil)
	_ Model  = (*DNNModel)(nil)
)
