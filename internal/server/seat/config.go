package seat

// ManagerConfig represents the seat manager configuration.
type ManagerConfig struct {
	// DefaultLayoutName is the layout bound to keyboards created without an
	// explicit layout. Either the builtin "us" layout or a path to a YAML
	// layout file.
	DefaultLayoutName string `help:"Layout bound to new keyboards when none is provided, either \"us\" or a YAML layout file" default:"us" env:"SEATKIT_SEAT_DEFAULT_LAYOUT"`
}
