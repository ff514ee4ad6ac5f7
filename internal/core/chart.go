package core

// chart.go turns a measurement history into plot geometry.
//
// All coordinates live in a 0..100 box where y=100 is the bottom edge. The
// area path closes through y=120 so the fill runs below the visible plot.

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
)

// niceSteps is the ladder of axis increments tried in order.
var niceSteps = []float64{0.1, 0.2, 0.5, 1, 2, 5, 10, 20, 50, 100}

const (
	axisDivisions   = 4
	edgePadding     = 0.1 // fraction of a step
	gridEpsilon     = 0.0001
	maxGridlines    = 64
	maxAlwaysLabels = 6
	sparseThreshold = 10
	sparseLabels    = 5
	rightSideX      = 60
	topY            = 25
	areaBaseline    = "120"
)

// ChartPoint is one plotted measurement.
type ChartPoint struct {
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Value       string  `json:"value"` // one decimal
	Date        string  `json:"date"`
	ShowLabel   bool    `json:"showLabel"`
	IsRightSide bool    `json:"isRightSide"`
	IsTop       bool    `json:"isTop"`
}

// Gridline is one horizontal axis line.
type Gridline struct {
	Y     float64 `json:"y"`
	Label float64 `json:"label"`
}

// Chart is the derived plot geometry of one metric over a history.
type Chart struct {
	Metric    Metric       `json:"metric"`
	AxisMin   float64      `json:"axisMin"`
	AxisMax   float64      `json:"axisMax"`
	Step      float64      `json:"step"`
	Points    []ChartPoint `json:"points"`
	Gridlines []Gridline   `json:"gridlines"`
	Polyline  string       `json:"polyline"`
	AreaPath  string       `json:"areaPath"`
}

// ComputeChart plots metric over history in chronological order.
// It returns nil for an empty history and ErrUnknownMetric for a metric
// that names no record field. The input slice is not reordered.
func ComputeChart(history []Record, metric Metric) (*Chart, error) {
	if !metric.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMetric, metric)
	}
	if len(history) == 0 {
		return nil, nil
	}

	sorted := slices.Clone(history)
	SortOldestFirst(sorted)

	values := make([]float64, len(sorted))
	for i := range sorted {
		v, _ := sorted[i].Value(metric)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			v = 0
		}
		values[i] = v
	}

	lo, hi := slices.Min(values), slices.Max(values)
	axisMin, axisMax, step := niceAxis(lo, hi)
	span := axisMax - axisMin

	chart := &Chart{
		Metric:    metric,
		AxisMin:   axisMin,
		AxisMax:   axisMax,
		Step:      step,
		Points:    make([]ChartPoint, len(sorted)),
		Gridlines: gridlines(axisMin, axisMax, step),
	}

	n := len(sorted)
	for i, rec := range sorted {
		x := 50.0
		if n > 1 {
			x = float64(i) * 100 / float64(n-1)
		}
		y := plotY(values[i], axisMin, span)

		chart.Points[i] = ChartPoint{
			X:           x,
			Y:           y,
			Value:       strconv.FormatFloat(values[i], 'f', 1, 64),
			Date:        rec.Date,
			ShowLabel:   showLabel(i, n),
			IsRightSide: x > rightSideX,
			IsTop:       y < topY,
		}
	}

	if n > 1 {
		pairs := make([]string, n)
		for i, p := range chart.Points {
			pairs[i] = formatCoord(p.X) + "," + formatCoord(p.Y)
		}
		chart.Polyline = strings.Join(pairs, " ")
		chart.AreaPath = "0," + areaBaseline + " " + chart.Polyline + " 100," + areaBaseline
	}

	return chart, nil
}

// niceAxis picks a human-friendly step and snaps the axis bounds to it.
// Extremes closer than a tenth of a step to an axis bound get one extra
// step of headroom.
func niceAxis(lo, hi float64) (axisMin, axisMax, step float64) {
	rawRange := hi - lo
	if rawRange == 0 {
		rawRange = 1
	}

	rough := rawRange / axisDivisions
	step = rough
	for _, s := range niceSteps {
		if s >= rough {
			step = s
			break
		}
	}
	if step > niceSteps[len(niceSteps)-1] {
		step = math.Pow(10, math.Floor(math.Log10(rawRange)))
	}

	axisMin = math.Floor(lo/step) * step
	axisMax = math.Ceil(hi/step) * step

	if lo-axisMin < step*edgePadding {
		axisMin -= step
	}
	if axisMax-hi < step*edgePadding {
		axisMax += step
	}

	// At huge magnitudes the padding is below float precision.
	if axisMax <= axisMin {
		axisMin = math.Nextafter(lo, math.Inf(-1))
		axisMax = math.Nextafter(hi, math.Inf(1))
		step = axisMax - axisMin
	}

	return axisMin, axisMax, step
}

// gridlines walks the axis one step at a time, top bound included.
func gridlines(axisMin, axisMax, step float64) []Gridline {
	span := axisMax - axisMin
	var lines []Gridline
	for v := axisMin; v <= axisMax+gridEpsilon && len(lines) < maxGridlines; v += step {
		lines = append(lines, Gridline{
			Y:     plotY(v, axisMin, span),
			Label: roundOneDecimal(v),
		})
	}
	return lines
}

func plotY(v, axisMin, span float64) float64 {
	return 100 - (v-axisMin)/span*100
}

// showLabel keeps short series fully labelled and thins long ones to the
// endpoints plus roughly five evenly spaced points.
func showLabel(i, n int) bool {
	if n <= maxAlwaysLabels || i == 0 || i == n-1 {
		return true
	}
	if n > sparseThreshold {
		every := int(math.Ceil(float64(n) / sparseLabels))
		return i%every == 0
	}
	return false
}

func roundOneDecimal(v float64) float64 {
	r, err := strconv.ParseFloat(strconv.FormatFloat(v, 'f', 1, 64), 64)
	if err != nil {
		return v
	}
	return r
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
