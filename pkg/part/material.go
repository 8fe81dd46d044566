package part

import (
	"fmt"
	"sort"
	"strings"

	"github.com/samber/lo"
)

// Material gives a part a density. Density is in grams per cubic
// millimetre, so mass comes out in grams for millimetre models.
type Material struct {
	Name    string  `json:"name"`
	Density float64 `json:"density"`
}

// Common materials.
var (
	Steel    = Material{Name: "steel", Density: 7.85e-3}
	Aluminum = Material{Name: "aluminum", Density: 2.70e-3}
	Brass    = Material{Name: "brass", Density: 8.50e-3}
	ABS      = Material{Name: "abs", Density: 1.04e-3}
	PLA      = Material{Name: "pla", Density: 1.24e-3}
	Oak      = Material{Name: "oak", Density: 0.75e-3}
)

var presets = map[string]Material{
	Steel.Name:    Steel,
	Aluminum.Name: Aluminum,
	Brass.Name:    Brass,
	ABS.Name:      ABS,
	PLA.Name:      PLA,
	Oak.Name:      Oak,
}

// LookupMaterial finds a preset by case-insensitive name.
func LookupMaterial(name string) (Material, error) {
	m, ok := presets[strings.ToLower(name)]
	if !ok {
		return Material{}, fmt.Errorf("part: unknown material %q", name)
	}
	return m, nil
}

// MaterialNames lists the presets in sorted order.
func MaterialNames() []string {
	names := lo.Keys(presets)
	sort.Strings(names)
	return names
}
