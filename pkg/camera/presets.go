package camera

import "github.com/teslashibe/go-catcam/pkg/media"

// Viewport preset names for common screen sizes.
const (
	PresetVGA      = "vga"
	Preset720p     = "720p"
	Preset1080p    = "1080p"
	Preset4K       = "4k"
	PresetPortrait = "portrait"
)

// Presets returns all available viewport presets.
func Presets() map[string]media.Size {
	return map[string]media.Size{
		PresetVGA:      {Width: 640, Height: 480},
		Preset720p:     {Width: 1280, Height: 720},
		Preset1080p:    {Width: 1920, Height: 1080},
		Preset4K:       {Width: 3840, Height: 2160},
		PresetPortrait: {Width: 720, Height: 1280}, // phone held upright
	}
}

