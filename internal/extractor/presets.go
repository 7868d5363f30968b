package extractor

import (
	"maps"
	"slices"
)

// presets maps a preset name to its include patterns. "all" has none and
// therefore selects everything.
var presets = map[string][]string{
	"all":        nil,
	"blocks":     {`Block`},
	"pages":      {`^Page`, `PageObject`, `PageProperty`},
	"databases":  {`Database`, `DataSource`},
	"users":      {`User`, `^Person`, `^Bot`, `^Group`},
	"comments":   {`Comment`},
	"rich-text":  {`RichText`, `Mention`, `Equation`, `^Text(Request|Response)`},
	"properties": {`Property(Item)?(Object)?(Response|Request)?$`, `PropertyConfiguration`},
}

// Presets returns the preset names in sorted order.
func Presets() []string {
	return slices.Sorted(maps.Keys(presets))
}

// PresetPatterns returns the include patterns of a preset.
func PresetPatterns(name string) ([]string, bool) {
	patterns, ok := presets[name]
	return slices.Clone(patterns), ok
}
