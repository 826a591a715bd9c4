// Package camera acquires the live video stream the detector classifies.
//
// Acquisition first checks that a capture capability exists at all. Only
// then is the device asked for a stream sized to the viewport, which is
// bound to the video sink on success.
package camera

import "strconv"

// Config holds capture device settings.
type Config struct {
	// Device is a gocv capture source: a device index ("0"), file or URL.
	Device string `json:"device"`

	// RearDevice is used when the rear-facing camera is preferred.
	// Empty falls back to Device.
	RearDevice string `json:"rear_device"`

	Framerate int `json:"framerate"` // Requested FPS, 0 for device default
	Quality   int `json:"quality"`   // JPEG quality 1-100
}

// DefaultConfig returns the default device at 15 FPS.
func DefaultConfig() Config {
	return Config{
		Device:    "0",
		Framerate: 15,
		Quality:   85,
	}
}

// Validate checks if the config values are within valid ranges.
// Returns a list of validation errors, or nil if valid.
func (c *Config) Validate() []string {
	var errors []string

	if c.Device == "" {
		errors = append(errors, "device is required")
	}
	if c.Framerate < 0 || c.Framerate > 120 {
		errors = append(errors, "framerate must be between 0 and 120")
	}
	if c.Quality < 1 || c.Quality > 100 {
		errors = append(errors, "quality must be between 1 and 100")
	}

	return errors
}

// deviceFor picks the device for a facing mode.
func (c *Config) deviceFor(facingMode string) string {
	if facingMode == "environment" && c.RearDevice != "" {
		return c.RearDevice
	}
	return c.Device
}

// openArg converts numeric device strings to the int index gocv expects.
func openArg(device string) interface{} {
	if id, err := strconv.Atoi(device); err == nil {
		return id
	}
	return device
}
