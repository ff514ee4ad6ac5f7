package charts

import "github.com/JonMunkholm/bodymetrics/internal/core"

const groupMetabolic = "metabolic"

func init() {
	core.Register(core.ChartDefinition{
		Metric: core.MetricDCI,
		Group:  groupMetabolic,
		Label:  "metrics.dci",
		Color:  "#10b981",
		Unit:   "kcal",
		Order:  60,
	})
	core.Register(core.ChartDefinition{
		Metric: core.MetricMetabolicAge,
		Group:  groupMetabolic,
		Label:  "metrics.metabolic_age",
		Color:  "#a855f7",
		Unit:   "years",
		Order:  70,
	})
	core.Register(core.ChartDefinition{
		Metric: core.MetricVisceralFat,
		Group:  groupMetabolic,
		Label:  "metrics.visceral_fat",
		Color:  "#d97706",
		Unit:   "rating",
		Order:  80,
	})
}
