package effects

import (
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-catcam/pkg/classify"
	"github.com/teslashibe/go-catcam/pkg/ui"
)

type recordingPlayer struct {
	mu     sync.Mutex
	played []int
}

func (p *recordingPlayer) Play(index int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.played = append(p.played, index)
}

func (p *recordingPlayer) Played() []int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]int(nil), p.played...)
}

func newDispatcher(t *testing.T) (*Dispatcher, *ui.Recorder, *recordingPlayer) {
	t.Helper()
	catalog, err := CatalogFromDir("audio", DefaultCueFiles...)
	require.NoError(t, err)
	rec := ui.NewRecorder()
	player := &recordingPlayer{}
	d := NewDispatcher(rec, catalog, []CuePlayer{player}, WithRand(rand.New(rand.NewPCG(7, 11))))
	return d, rec, player
}

func result(label string) classify.Result {
	return classify.Result{{ClassName: label, Probability: 0.5}, {ClassName: "other", Probability: 0.1}}
}

func TestDecide(t *testing.T) {
	tests := []struct {
		label string
		want  State
	}{
		{"cat_tabby", Cat},
		{"tabby cat", Cat},
		{"Egyptian cat", Cat},
		{"catamaran", Cat},
		{"badger", Badger},
		{"honey badger", None},
		{"Badger", None},
		{"car", None},
		{"", None},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			assert.Equal(t, tt.want, Decide(tt.label))
		})
	}
}

func TestDispatch_DecisionTable(t *testing.T) {
	d, rec, player := newDispatcher(t)

	out := d.Dispatch(result("cat_tabby"))
	assert.Equal(t, Cat, out.State)
	assert.Equal(t, ui.Effects{Cat: true}, rec.Effects())
	assert.Len(t, player.Played(), 1)
	assert.Equal(t, out.Cue, player.Played()[0])

	out = d.Dispatch(result("badger"))
	assert.Equal(t, Badger, out.State)
	assert.Equal(t, -1, out.Cue)
	assert.Equal(t, ui.Effects{Badger: true}, rec.Effects())

	out = d.Dispatch(result("car"))
	assert.Equal(t, None, out.State)
	assert.Equal(t, ui.Effects{}, rec.Effects())

	assert.Len(t, player.Played(), 1, "only cat detections play cues")
}

func TestDispatch_NeverBothFlags(t *testing.T) {
	d, rec, _ := newDispatcher(t)
	labels := []string{"tabby cat", "badger", "car", "badger", "tiger cat", "tabby cat", "badger", "lynx"}
	rng := rand.New(rand.NewPCG(3, 4))

	for i := 0; i < 500; i++ {
		d.Dispatch(result(labels[rng.IntN(len(labels))]))
	}

	for _, e := range rec.EffectHistory() {
		assert.False(t, e.Cat && e.Badger, "cat and badger signalled together")
	}
}

func TestDispatch_KeepsDetectingFlag(t *testing.T) {
	d, rec, _ := newDispatcher(t)
	d.SetDetecting(true)

	d.Dispatch(result("tabby cat"))
	assert.Equal(t, ui.Effects{Cat: true, Detecting: true}, rec.Effects())

	d.Dispatch(result("car"))
	assert.Equal(t, ui.Effects{Detecting: true}, rec.Effects())
	assert.Equal(t, rec.Effects(), d.Effects())
}

func TestCatalogPick_LastCueUnreachable(t *testing.T) {
	catalog, err := CatalogFromDir("audio", DefaultCueFiles...)
	require.NoError(t, err)
	require.Equal(t, 5, catalog.Len())

	rng := rand.New(rand.NewPCG(42, 42))
	seen := make(map[int]int)
	for i := 0; i < 10000; i++ {
		seen[catalog.Pick(rng)]++
	}

	assert.Zero(t, seen[4], "index 4 must never be selected")
	for i := 0; i <= 3; i++ {
		assert.Positive(t, seen[i], "index %d never selected", i)
	}
	assert.Len(t, seen, 4)
}

func TestCatalogPick_SingleCue(t *testing.T) {
	catalog, err := NewCatalog(Cue{Name: "cat", Path: "cat.mp3"})
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		assert.Equal(t, 0, catalog.Pick(nil))
	}
}

func TestCatalog(t *testing.T) {
	_, err := NewCatalog()
	assert.ErrorIs(t, err, ErrEmptyCatalog)

	catalog, err := CatalogFromDir("web/audio", "cat.mp3", "kat.mp3")
	require.NoError(t, err)
	assert.Equal(t, []Cue{
		{Name: "cat", Path: "web/audio/cat.mp3"},
		{Name: "kat", Path: "web/audio/kat.mp3"},
	}, catalog.Cues())
	assert.Equal(t, []string{"web/audio/cat.mp3", "web/audio/kat.mp3"}, catalog.Paths())
}

func TestCuePlayerFunc(t *testing.T) {
	var got int
	CuePlayerFunc(func(i int) { got = i }).Play(3)
	assert.Equal(t, 3, got)
}
