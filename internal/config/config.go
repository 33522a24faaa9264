// Package config loads layout settings from YAML or CUE files.
//
// Both formats describe the same document:
//
//	default_backend: struct
//	layouts:
//	  - type: github.com/acme/orders.Order
//	    name: orders/Order
//	    backend: func
//
// YAML is decoded strictly (unknown fields are errors). CUE files are
// unified with the embedded #Config definition and must be concrete.
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	"gopkg.in/yaml.v3"

	"github.com/roach88/layoutkit/internal/layout"
)

//go:embed schema.cue
var schemaCUE string

// File is the decoded settings document.
type File struct {
	DefaultBackend string  `json:"default_backend,omitempty" yaml:"default_backend"`
	Layouts        []Entry `json:"layouts,omitempty" yaml:"layouts"`
}

// Entry declares the marker of one type.
type Entry struct {
	Type    string `json:"type" yaml:"type"`
	Name    string `json:"name,omitempty" yaml:"name"`
	Backend string `json:"backend,omitempty" yaml:"backend"`
}

// Error is a settings error with an optional source position.
type Error struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *Error) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Load reads settings from path. The format follows the extension:
// .yaml and .yml for YAML, .cue for CUE.
func Load(path string) (layout.Settings, error) {
	f, err := LoadFile(path)
	if err != nil {
		return layout.Settings{}, err
	}
	return f.Settings()
}

// LoadFile reads and decodes path without converting it to Settings.
func LoadFile(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("read settings: %w", err)
	}

	switch ext := filepath.Ext(path); ext {
	case ".yaml", ".yml":
		return ParseYAML(data)
	case ".cue":
		return ParseCUE(path, data)
	default:
		return File{}, fmt.Errorf("read settings: unsupported file extension %q", ext)
	}
}

// ParseYAML decodes a YAML settings document. Unknown fields are errors.
func ParseYAML(data []byte) (File, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return File{}, &Error{Field: "yaml", Message: err.Error()}
	}
	return f, nil
}

// ParseCUE evaluates a CUE settings document against #Config.
// filename is used in error positions only.
func ParseCUE(filename string, data []byte) (File, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return File{}, fmt.Errorf("compile settings schema: %w", err)
	}

	v := ctx.CompileBytes(data, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return File{}, formatCUEError(err)
	}

	v = schema.LookupPath(cue.ParsePath("#Config")).Unify(v)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return File{}, formatCUEError(err)
	}

	var f File
	if err := v.Decode(&f); err != nil {
		return File{}, formatCUEError(err)
	}
	return f, nil
}

// Settings validates f and converts it to engine settings.
func (f File) Settings() (layout.Settings, error) {
	s := layout.Settings{
		DefaultBackend: f.DefaultBackend,
		Markers:        make(map[string]layout.Marker, len(f.Layouts)),
	}

	for i, e := range f.Layouts {
		field := fmt.Sprintf("layouts[%d]", i)
		if e.Type == "" {
			return layout.Settings{}, &Error{Field: field, Message: "type is required"}
		}
		if _, dup := s.Markers[e.Type]; dup {
			return layout.Settings{}, &Error{Field: field, Message: fmt.Sprintf("duplicate entry for type %q", e.Type)}
		}
		s.Markers[e.Type] = layout.Marker{Backend: e.Backend, Name: e.Name}
	}
	return s, nil
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	if positions := cueerrors.Positions(first); len(positions) > 0 {
		return &Error{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}
	return &Error{Field: "cue", Message: first.Error()}
}
