// Package loader reads identifier catalogs and priority lists from disk,
// compiles them into engine types and validates them against each other.
package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/nathoo/aplcore/engine/state"
	"github.com/nathoo/aplcore/types"
)

// Format is a priority-list file format.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatLua  Format = "lua"
)

// FormatOf picks the format from a file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".lua":
		return FormatLua, nil
	default:
		return "", fmt.Errorf("unrecognized rotation file extension %q", filepath.Ext(path))
	}
}

// rawRotation is the format-independent shape every reader produces.
type rawRotation struct {
	Name    string     `yaml:"name"`
	Entries []rawEntry `yaml:"entries"`
}

type rawEntry struct {
	If     string    `yaml:"if"`
	Hide   bool      `yaml:"hide"`
	Action rawAction `yaml:",inline"`

	// cond is set by readers that carry structured conditions.
	cond *types.Condition
}

type rawAction struct {
	Type     string      `yaml:"action"`
	Spell    string      `yaml:"spell"`
	Max      int         `yaml:"max"`
	Overlap  string      `yaml:"overlap"`
	Duration string      `yaml:"duration"`
	Name     string      `yaml:"name"`
	Actions  []rawAction `yaml:"actions"`
}

// LoadRotation reads a priority list, choosing the reader by extension.
// A list without a name takes the file's base name.
func LoadRotation(path string, defs *state.Defs) (types.PriorityList, error) {
	format, err := FormatOf(path)
	if err != nil {
		return types.PriorityList{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return types.PriorityList{}, fmt.Errorf("reading rotation %s: %w", path, err)
	}
	list, err := ParseRotation(data, format, defs)
	if err != nil {
		return types.PriorityList{}, fmt.Errorf("rotation %s: %w", path, err)
	}
	if list.Name == "" {
		list.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return list, nil
}

// ParseRotation decodes, compiles and validates a priority list.
func ParseRotation(data []byte, format Format, defs *state.Defs) (types.PriorityList, error) {
	var (
		raw rawRotation
		err error
	)
	switch format {
	case FormatJSON:
		raw, err = readWire(data)
	case FormatYAML:
		err = yaml.Unmarshal(data, &raw)
		if err != nil {
			err = fmt.Errorf("decoding YAML: %w", err)
		}
	case FormatLua:
		raw, err = readLua(data)
	default:
		err = fmt.Errorf("unknown rotation format %q", format)
	}
	if err != nil {
		return types.PriorityList{}, err
	}

	list, err := compileRotation(raw, defs)
	if err != nil {
		return types.PriorityList{}, fmt.Errorf("compiling rotation: %w", err)
	}
	if err := validateRotation(list, defs); err != nil {
		return types.PriorityList{}, err
	}
	return list, nil
}
