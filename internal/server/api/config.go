package api

import "time"

// ServerConfig represents the server subcommand configuration.
type ServerConfig struct {
	Addr                        string        `help:"API server listen address" default:":4242" env:"SEATKIT_API_ADDR"`
	DeviceHandlerConnectTimeout time.Duration `help:"Time before auto-cleanup occurs when device handler has no active connection" default:"5s" env:"SEATKIT_API_DEVICE_HANDLER_TIMEOUT"`
	Password                    string        `help:"Shared key required from clients; empty disables authentication" env:"SEATKIT_API_PASSWORD"`
	ConnectionTimeout           time.Duration `kong:"-"`
}
