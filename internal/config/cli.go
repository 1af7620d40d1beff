// Package config declares the top-level command line interface.
package config

import (
	"github.com/seatkit/seatkit/internal/cmd"
)

// CLI is the root Kong command tree.
type CLI struct {
	Log struct {
		Level   string `help:"Log level" enum:"trace,debug,info,warn,error" default:"info" env:"SEATKIT_LOG_LEVEL"`
		File    string `help:"Write logs to this file instead of the console" env:"SEATKIT_LOG_FILE"`
		RawFile string `help:"Write raw protocol traffic (hex dump) to this file" env:"SEATKIT_LOG_RAW_FILE"`
	} `embed:"" prefix:"log."`

	Config string `help:"Path to a configuration file (JSON, YAML or TOML)" env:"SEATKIT_CONFIG"`

	Server    cmd.Server        `cmd:"" default:"withargs" help:"Run the seat server"`
	Proxy     cmd.Proxy         `cmd:"" help:"Run a logging proxy in front of a seat server"`
	Keymap    cmd.Keymap        `cmd:"" help:"Compile and print a keyboard layout"`
	ConfigCmd cmd.ConfigCommand `cmd:"" name:"config" help:"Configuration utilities"`
	Install   cmd.Install       `cmd:"" help:"Install the server as a system service"`
	Uninstall cmd.Uninstall     `cmd:"" help:"Remove the installed system service"`
}
