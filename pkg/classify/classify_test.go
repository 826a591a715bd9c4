package classify

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	vision "google.golang.org/api/vision/v1"

	"github.com/teslashibe/go-catcam/pkg/media"
)

func TestResultTopAndSorted(t *testing.T) {
	r := Result{
		{ClassName: "car", Probability: 0.1},
		{ClassName: "tabby cat", Probability: 0.8},
		{ClassName: "badger", Probability: 0.1},
	}

	sorted := r.Sorted(2)
	require.Len(t, sorted, 2)
	assert.Equal(t, "tabby cat", sorted.Top().ClassName)
	assert.Equal(t, "car", sorted[1].ClassName, "ties keep input order")

	assert.Equal(t, "car", r.Top().ClassName, "Sorted must not reorder the receiver")
	assert.Equal(t, Prediction{}, Result{}.Top())
	assert.True(t, Result(nil).Empty())
}

func TestParseLabels(t *testing.T) {
	labels, err := ParseLabels(strings.NewReader("tench\n\n goldfish \ntabby, tabby cat\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"tench", "goldfish", "tabby, tabby cat"}, labels)

	_, err = ParseLabels(strings.NewReader("\n\n"))
	assert.ErrorIs(t, err, ErrNoLabels)
}

func TestSoftmax(t *testing.T) {
	p := Softmax([]float64{1, 2, 3})

	var sum float64
	for _, v := range p {
		sum += v
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
	assert.Greater(t, p[2], p[1])
	assert.Greater(t, p[1], p[0])

	big := Softmax([]float64{1000, 1000})
	assert.False(t, math.IsNaN(big[0]))
	assert.InDelta(t, 0.5, big[0], 1e-9)
}

func TestRank(t *testing.T) {
	labels := []string{"car", "tabby cat", "badger"}

	r, err := Rank([]float64{0.2, 0.7, 0.1}, labels, 2)
	require.NoError(t, err)
	assert.Equal(t, Result{{"tabby cat", 0.7}, {"car", 0.2}}, r)

	// Background class in front.
	r, err = Rank([]float64{0.9, 0.0, 0.05, 0.05}, labels, 1)
	require.NoError(t, err)
	assert.Equal(t, "badger", r.Top().ClassName)

	_, err = Rank([]float64{1}, labels, 1)
	assert.Error(t, err)
}

func TestLabelsToResult(t *testing.T) {
	r := labelsToResult([]*vision.EntityAnnotation{
		{Description: "Whiskers", Score: 0.7},
		nil,
		{Description: "Cat", Score: 0.95},
	})

	require.Len(t, r, 2)
	assert.Equal(t, Prediction{ClassName: "cat", Probability: 0.95}, r.Top())
	assert.Equal(t, "whiskers", r[1].ClassName)
}

func TestMock(t *testing.T) {
	ctx := context.Background()
	mock := NewMock()

	model, err := mock.Load(ctx)
	require.NoError(t, err)

	r, err := model.Classify(ctx, media.Frame{Data: []byte{1}})
	require.NoError(t, err)
	assert.False(t, r.Empty())

	assert.Equal(t, 1, mock.CallCount("Load"))
	assert.Equal(t, 1, mock.CallCount("Classify"))
	assert.Len(t, mock.Calls(), 2)
}

func TestMockWithError(t *testing.T) {
	boom := errors.New("weights missing")
	_, err := WithError(boom).Load(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestScriptedMock(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")
	mock := NewScriptedMock(
		MockStep{Result: Result{{ClassName: "tabby cat", Probability: 0.9}}},
		MockStep{Err: boom},
	)

	r, err := mock.Classify(ctx, media.Frame{})
	require.NoError(t, err)
	assert.Equal(t, "tabby cat", r.Top().ClassName)

	_, err = mock.Classify(ctx, media.Frame{})
	assert.ErrorIs(t, err, boom)
	_, err = mock.Classify(ctx, media.Frame{})
	assert.ErrorIs(t, err, boom, "last step repeats")
}

func TestDNNLoader_MissingModel(t *testing.T) {
	cfg := DefaultDNNConfig()
	cfg.ModelPath = t.TempDir() + "/missing.onnx"

	_, err := NewDNNLoader(cfg).Load(context.Background())

	var be *BackendError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, "dnn", be.Backend)
}

func TestErrors(t *testing.T) {
	api := &APIError{Code: 7, Message: "permission denied", Provider: "cloudvision"}
	assert.Contains(t, api.Error(), "permission denied")

	wrapped := WrapError("dnn", ErrEmptyFrame)
	assert.ErrorIs(t, wrapped, ErrEmptyFrame)
	assert.Nil(t, WrapError("dnn", nil))
}
