//go:build linux

package registry

import (
	_ "github.com/seatkit/seatkit/device/evdev" // Register evdev passthrough device handler
)
