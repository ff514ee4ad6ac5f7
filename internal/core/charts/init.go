// Package charts registers the plottable metrics with the core registry.
// Import this package to ensure all charts are registered.
package charts

// This file exists to provide a single import point.
// Each group file uses init() to register its charts.
