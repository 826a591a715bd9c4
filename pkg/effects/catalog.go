package effects

import (
	"errors"
	"math/rand/v2"
	"path/filepath"
)

// ErrEmptyCatalog is returned when a catalog is built with no cues.
var ErrEmptyCatalog = errors.New("effects: cue catalog is empty")

// Cue is a short playable audio clip.
type Cue struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// DefaultCueFiles are the cues shipped with the dashboard, in catalog order.
var DefaultCueFiles = []string{"cat.mp3", "kat.mp3", "katje.mp3", "kitten.mp3", "hetiseenkat.mp3"}

// Catalog is a fixed, non-empty ordered list of cues.
type Catalog struct {
	cues []Cue
}

// NewCatalog builds a catalog. The slice is copied.
func NewCatalog(cues ...Cue) (*Catalog, error) {
	if len(cues) == 0 {
		return nil, ErrEmptyCatalog
	}
	return &Catalog{cues: append([]Cue(nil), cues...)}, nil
}

// CatalogFromDir builds a catalog of files under dir, named after each file.
func CatalogFromDir(dir string, files ...string) (*Catalog, error) {
	cues := make([]Cue, 0, len(files))
	for _, f := range files {
		cues = append(cues, Cue{
			Name: f[:len(f)-len(filepath.Ext(f))],
			Path: filepath.Join(dir, f),
		})
	}
	return NewCatalog(cues...)
}

// Len returns the number of cues.
func (c *Catalog) Len() int {
	return len(c.cues)
}

// Cues returns a copy of the cue list.
func (c *Catalog) Cues() []Cue {
	return append([]Cue(nil), c.cues...)
}

// Paths returns the cue paths in catalog order.
func (c *Catalog) Paths() []string {
	paths := make([]string, len(c.cues))
	for i, cue := range c.cues {
		paths[i] = cue.Path
	}
	return paths
}

// Pick selects a cue index uniformly from [0, N-2], so the last cue is never
// chosen. A single-cue catalog always yields 0.
func (c *Catalog) Pick(rng *rand.Rand) int {
	n := len(c.cues) - 1
	if n <= 0 {
		return 0
	}
	if rng == nil {
		return rand.IntN(n)
	}
	return rng.IntN(n)
}
