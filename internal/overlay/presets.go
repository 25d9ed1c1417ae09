// Package overlay decides how text elements become render operations:
// thesis overlays resolve to styled drawtext operations, subtitle
// layers collapse into one ordered cue list for a single burn-in pass.
package overlay

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// DrawSpec is the concrete styling a named preset resolves to.
// Background is "dark", "light" or empty (no box).
type DrawSpec struct {
	FontColor   string `json:"font_color" yaml:"font_color"`
	Shadow      bool   `json:"shadow" yaml:"shadow"`
	Background  string `json:"background,omitempty" yaml:"background,omitempty"`
	BorderWidth int    `json:"border_width,omitempty" yaml:"border_width,omitempty"`
	BorderColor string `json:"border_color,omitempty" yaml:"border_color,omitempty"`
	FontSize    int    `json:"font_size" yaml:"font_size"`
}

var defaultPresets = map[string]DrawSpec{
	"minimal":     {FontColor: "white", Shadow: true, FontSize: 48},
	"box_dark":    {FontColor: "white", Shadow: true, Background: "dark", FontSize: 48},
	"box_light":   {FontColor: "black", Background: "light", FontSize: 48},
	"outline":     {FontColor: "white", BorderWidth: 2, BorderColor: "black", FontSize: 48},
	"bold_center": {FontColor: "white", Shadow: true, FontSize: 72},
}

// Styles holds the available visual presets for thesis overlays.
type Styles struct {
	presets map[string]DrawSpec
}

// DefaultStyles returns the built-in preset table.
func DefaultStyles() *Styles {
	presets := make(map[string]DrawSpec, len(defaultPresets))
	for k, v := range defaultPresets {
		presets[k] = v
	}
	return &Styles{presets: presets}
}

// LoadStyles returns the built-in presets merged with overrides from a
// YAML file. Overrides may restyle existing presets or add new ones.
func LoadStyles(path string) (*Styles, error) {
	s := DefaultStyles()
	if path == "" {
		return s, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read styles file: %w", err)
	}

	overrides := make(map[string]DrawSpec)
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return nil, fmt.Errorf("parse styles file %s: %w", path, err)
	}
	for name, spec := range overrides {
		s.presets[name] = spec
	}
	return s, nil
}

// Lookup returns the spec for a named preset.
func (s *Styles) Lookup(name string) (DrawSpec, bool) {
	spec, ok := s.presets[name]
	return spec, ok
}

// Names returns the preset names sorted for stable API listings.
func (s *Styles) Names() []string {
	names := make([]string, 0, len(s.presets))
	for name := range s.presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
