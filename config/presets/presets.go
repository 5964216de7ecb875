// Package presets holds named configurations that replace the defaults
// before the config file and flags are applied.
package presets

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spacemeshos/go-researchsync/config"
)

var presets = map[string]config.Config{}

func register(name string, cfg config.Config) {
	if _, exist := presets[name]; exist {
		panic(fmt.Sprintf("preset with name %s already exists", name))
	}
	presets[name] = cfg
}

// Options returns the names of all registered presets.
func Options() []string {
	rst := make([]string, 0, len(presets))
	for name := range presets {
		rst = append(rst, name)
	}
	slices.Sort(rst)
	return rst
}

// Get returns the preset registered under name.
func Get(name string) (config.Config, error) {
	cfg, exists := presets[name]
	if !exists {
		return cfg, fmt.Errorf("preset %s is not registered. select one from: %s",
			name, strings.Join(Options(), ", "))
	}
	return cfg, nil
}
