package main

import (
	"encoding/json"
	"fmt"

	"github.com/dgallion1/docgraph/internal/config"
)

// ConfigsCmd prints parameter presets, resolved against an optional
// overrides file.
type ConfigsCmd struct {
	DocType string `arg:"" optional:"" help:"Preset to show (default: list all)"`
	Config  string `type:"existingfile" help:"YAML file with parsing overrides"`
	List    bool   `short:"l" help:"Print preset names only"`
}

// Run executes the configs command.
func (c *ConfigsCmd) Run(deps *Dependencies) error {
	if c.List {
		for _, t := range config.DocumentTypes() {
			fmt.Fprintln(deps.Stdout, t)
		}
		return nil
	}

	var overrides *config.File
	if c.Config != "" {
		f, err := config.LoadFile(c.Config)
		if err != nil {
			return err
		}
		overrides = f
	}

	types := config.DocumentTypes()
	if c.DocType != "" {
		types = []config.DocumentType{config.DocumentType(c.DocType)}
	}
	out := make(map[config.DocumentType]config.Parsing, len(types))
	for _, t := range types {
		p, err := config.Resolve(t, overrides)
		if err != nil {
			return err
		}
		out[t] = p
	}

	enc := json.NewEncoder(deps.Stdout)
	enc.SetIndent("", "  ")
	if c.DocType != "" {
		return enc.Encode(out[types[0]])
	}
	return enc.Encode(out)
}
