package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/seatkit/seatkit/xkb"
)

type Keymap struct {
	Layout string `arg:"" help:"Path to a YAML layout file, or '-' for the built-in default"`
	Check  bool   `help:"Validate only, do not print the compiled keymap" env:"SEATKIT_KEYMAP_CHECK"`
}

// Run is called by Kong when the keymap command is executed.
func (k *Keymap) Run(logger *slog.Logger) error {
	var km *xkb.Keymap
	var err error

	if k.Layout == "-" {
		km, err = xkb.Compile(xkb.DefaultLayout())
	} else {
		var data []byte
		data, err = os.ReadFile(k.Layout)
		if err != nil {
			return fmt.Errorf("read layout: %w", err)
		}
		km, err = xkb.CompileYAML(data)
	}
	if err != nil {
		return err
	}
	defer km.Unref()

	logger.Info("Layout compiled", "name", km.Name(), "groups", km.NumGroups())
	if k.Check {
		return nil
	}

	s, err := km.AsString()
	if err != nil {
		return err
	}
	fmt.Print(s)
	return nil
}
