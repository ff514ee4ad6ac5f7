package charts

import "github.com/JonMunkholm/bodymetrics/internal/core"

const groupComposition = "composition"

func init() {
	registerComposition(core.MetricBodyFat, "metrics.body_fat", "#f59e0b", "percent", 30)
	registerComposition(core.MetricMuscleMass, "metrics.muscle_mass", "#6366f1", "kg", 40)
	registerComposition(core.MetricBoneMass, "metrics.bone_mass", "#9ca3af", "kg", 50)
}

func registerComposition(m core.Metric, label, color, unit string, order int) {
	core.Register(core.ChartDefinition{
		Metric: m,
		Group:  groupComposition,
		Label:  label,
		Color:  color,
		Unit:   unit,
		Order:  order,
	})
}
