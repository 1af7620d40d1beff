// Package registry pulls in all device handlers so that a blank import of
// this package registers every supported device type.
package registry

import (
	_ "github.com/seatkit/seatkit/device/virtkbd" // Register virtual keyboard device handler
)
