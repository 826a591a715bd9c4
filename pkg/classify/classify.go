// Package classify provides the image classifier capability used by the
// detection loop.
//
// A Loader produces a Model once per session; the Model classifies JPEG
// frames into predictions ordered by descending probability.
//
// Example usage:
//
//	loader := classify.NewDNNLoader(classify.DefaultDNNConfig())
//	model, err := loader.Load(ctx)
//	if err != nil {
//	    return err
//	}
//	defer model.Close()
//
//	result, err := model.Classify(ctx, frame)
//	fmt.Println(result.Top().ClassName)
package classify

import (
	"context"
	"sort"

	"github.com/teslashibe/go-catcam/pkg/media"
)

// Loader initializes a model.
type Loader interface {
	// Load prepares a model for classification. It may be slow.
	Load(ctx context.Context) (Model, error)

	// Name identifies the backend (e.g. "dnn", "cloudvision", "mock").
	Name() string
}

// Model classifies frames.
type Model interface {
	// Classify returns predictions ordered by descending probability.
	Classify(ctx context.Context, frame media.Frame) (Result, error)

	// Close releases any resources held by the model.
	Close() error
}

// Prediction is one label with its probability.
type Prediction struct {
	ClassName   string  `json:"className"`
	Probability float64 `json:"probability"`
}

// Result is an ordered list of predictions, most probable first.
type Result []Prediction

// Top returns the most probable prediction, or the zero value when empty.
func (r Result) Top() Prediction {
	if len(r) == 0 {
		return Prediction{}
	}
	return r[0]
}

// Empty reports whether there are no predictions.
func (r Result) Empty() bool {
	return len(r) == 0
}

// Sorted returns a copy ordered by descending probability, trimmed to k
// entries when k > 0. Ties keep their original order.
func (r Result) Sorted(k int) Result {
	out := append(Result(nil), r...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Probability > out[j].Probability
	})
	if k > 0 && len(out) > k {
		out = out[:k]
	}
	return out
}
