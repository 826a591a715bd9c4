// Package ui defines the port the detection core drives to render state.
//
// The core never touches a rendering surface directly. The dashboard server
// in pkg/web implements Surface for browsers; Recorder implements it in
// memory for tests.
package ui

import "github.com/teslashibe/go-catcam/pkg/media"

// Banner is the coarse capability panel shown on the entry page. It is
// independent of which page is visible.
type Banner struct {
	Supported bool   `json:"supported"`
	Message   string `json:"message,omitempty"`
}

// Effects are the boolean style flags derived from detection.
type Effects struct {
	Cat       bool `json:"cat"`
	Badger    bool `json:"badger"`
	Detecting bool `json:"detecting"`
}

// Surface is the UI port.
type Surface interface {
	// SetPageVisible toggles a single page container.
	SetPageVisible(name string, visible bool)

	// SetBanner shows the supported or unsupported capability panel.
	SetBanner(b Banner)

	// SetErrorMessage renders text into the error surface.
	SetErrorMessage(msg string)

	// SetEffects replaces the detection style flags.
	SetEffects(e Effects)

	// VideoSink returns the element live capture is bound to.
	VideoSink() *media.VideoSink
}
