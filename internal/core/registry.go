package core

import (
	"fmt"
	"sort"
	"sync"
)

// ChartDefinition describes a metric that can be plotted.
type ChartDefinition struct {
	Metric Metric `json:"key"`
	Group  string `json:"group"`
	Label  string `json:"label"` // i18n key
	Color  string `json:"color"` // hex
	Unit   string `json:"unit"`  // i18n unit key, empty for unitless
	Order  int    `json:"order"`
}

var (
	registry   = make(map[Metric]ChartDefinition)
	registryMu sync.RWMutex
)

// Register adds a chart definition to the registry.
// Panics if the metric is unknown or already registered.
func Register(def ChartDefinition) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if !def.Metric.Valid() {
		panic(fmt.Sprintf("chart for unknown metric: %s", def.Metric))
	}
	if _, exists := registry[def.Metric]; exists {
		panic(fmt.Sprintf("chart already registered: %s", def.Metric))
	}

	registry[def.Metric] = def
}

// Get returns a chart definition by metric.
// Returns false if not found.
func Get(m Metric) (ChartDefinition, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	def, ok := registry[m]
	return def, ok
}

// All returns all registered chart definitions in display order.
func All() []ChartDefinition {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]ChartDefinition, 0, len(registry))
	for _, def := range registry {
		result = append(result, def)
	}

	sortDefinitions(result)
	return result
}

// ByGroup returns the chart definitions of one group in display order.
func ByGroup(group string) []ChartDefinition {
	registryMu.RLock()
	defer registryMu.RUnlock()

	var result []ChartDefinition
	for _, def := range registry {
		if def.Group == group {
			result = append(result, def)
		}
	}

	sortDefinitions(result)
	return result
}

// Groups returns all unique group names, sorted alphabetically.
func Groups() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	seen := make(map[string]bool)
	for _, def := range registry {
		seen[def.Group] = true
	}

	groups := make([]string, 0, len(seen))
	for g := range seen {
		groups = append(groups, g)
	}

	sort.Strings(groups)
	return groups
}

// ChartCount returns the number of registered charts.
func ChartCount() int {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return len(registry)
}

// Clear removes all registered charts.
// Primarily useful for testing.
func Clear() {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = make(map[Metric]ChartDefinition)
}

func sortDefinitions(defs []ChartDefinition) {
	sort.Slice(defs, func(i, j int) bool {
		if defs[i].Order != defs[j].Order {
			return defs[i].Order < defs[j].Order
		}
		return defs[i].Metric < defs[j].Metric
	})
}
