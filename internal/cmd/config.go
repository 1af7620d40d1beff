package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"unicode"

	"github.com/seatkit/seatkit/internal/configpaths"

	toml "github.com/pelletier/go-toml"
	yaml "gopkg.in/yaml.v3"
)

// ConfigCommand groups config-related subcommands.
type ConfigCommand struct {
	Init ConfigInit `cmd:"" help:"Write a starter config file with every option at its default"`
}

// ConfigInit writes a config file template for the server or proxy command.
// The template is built by reflecting over the command struct, so it stays in
// sync with the flags without a generated schema.
type ConfigInit struct {
	Command string `arg:"" name:"command" help:"Command to write a config for" enum:"server,proxy"`
	Format  string `help:"File format" enum:"json,yaml,toml" default:"json"`
	Output  string `help:"Where to write the file (default: <command>.<format> in the current directory)"`
	Force   bool   `help:"Replace an existing file"`
}

func (c *ConfigInit) Run() error {
	var root map[string]any
	switch c.Command {
	case "server":
		root = configTemplate(reflect.TypeOf(Server{}))
	case "proxy":
		root = configTemplate(reflect.TypeOf(Proxy{}))
	default:
		return fmt.Errorf("unknown command %q", c.Command)
	}

	dest := c.Output
	if dest == "" {
		dest = c.Command + "." + c.Format
	}
	if !c.Force {
		if _, err := os.Stat(dest); err == nil {
			return errors.New("destination exists; use --force to overwrite")
		}
	}
	if err := configpaths.EnsureDir(dest); err != nil {
		return err
	}

	var data []byte
	var err error
	switch c.Format {
	case "json":
		data, err = json.MarshalIndent(root, "", "  ")
	case "yaml":
		data, err = yaml.Marshal(root)
	case "toml":
		data, err = toml.Marshal(root)
	default:
		err = fmt.Errorf("unsupported format %q", c.Format)
	}
	if err != nil {
		return err
	}
	return os.WriteFile(dest, data, 0o644)
}

// configTemplate flattens a kong command struct into the nested map the config
// loaders expect: embedded fields with a prefix become sub-sections, everything
// else a lowerCamel key holding the tag default.
func configTemplate(t reflect.Type) map[string]any {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	out := map[string]any{}
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() || sf.Tag.Get("kong") == "-" {
			continue
		}

		if _, embedded := sf.Tag.Lookup("embed"); embedded {
			section := strings.TrimSuffix(sf.Tag.Get("prefix"), ".")
			sub := configTemplate(sf.Type)
			if section == "" {
				for k, v := range sub {
					out[k] = v
				}
			} else {
				out[section] = sub
			}
			continue
		}

		if v := fieldDefault(sf.Type, sf.Tag.Get("default")); v != nil {
			out[lowerCamel(sf.Name)] = v
		}
	}
	return out
}

func lowerCamel(s string) string {
	r := []rune(s)
	if len(r) == 0 {
		return s
	}
	r[0] = unicode.ToLower(r[0])
	return string(r)
}

// fieldDefault converts a kong default tag into a typed template value. A nil
// return omits the field from the template.
func fieldDefault(t reflect.Type, def string) any {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	// Durations render as their string form ("30s"), not nanoseconds.
	if t.PkgPath() == "time" && t.Name() == "Duration" {
		if def == "" {
			return "0s"
		}
		return def
	}
	switch t.Kind() {
	case reflect.String:
		return def
	case reflect.Bool:
		v, _ := strconv.ParseBool(def)
		return v
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		v, _ := strconv.ParseInt(def, 10, 64)
		return v
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		v, _ := strconv.ParseUint(def, 10, 64)
		return v
	case reflect.Float32, reflect.Float64:
		v, _ := strconv.ParseFloat(def, 64)
		return v
	case reflect.Struct:
		return configTemplate(t)
	default:
		return nil
	}
}
