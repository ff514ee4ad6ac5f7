package charts

import "github.com/JonMunkholm/bodymetrics/internal/core"

const groupMass = "mass"

func init() {
	core.Register(core.ChartDefinition{
		Metric: core.MetricWeight,
		Group:  groupMass,
		Label:  "metrics.weight",
		Color:  "#64748b",
		Unit:   "kg",
		Order:  10,
	})
	core.Register(core.ChartDefinition{
		Metric: core.MetricBMI,
		Group:  groupMass,
		Label:  "metrics.bmi",
		Color:  "#ec4899",
		Order:  20,
	})
}
