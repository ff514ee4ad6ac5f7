package core

// classify.go maps metric values onto health-status bands.
//
// Body fat bands follow the scale manufacturer's reference charts: a
// year-by-year table for ages 5 to 19 and three fixed brackets per gender
// for adults. Comparisons are strict except where noted on BMI.

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
)

// HealthStatus is the display category of one metric value.
type HealthStatus string

const (
	StatusUnder   HealthStatus = "under"
	StatusHealthy HealthStatus = "healthy"
	StatusOver    HealthStatus = "over"
	StatusObese   HealthStatus = "obese"
	StatusExcess  HealthStatus = "excess"
	StatusUnknown HealthStatus = "unknown"
)

// StatusColors is the presentation palette for each status.
var StatusColors = map[HealthStatus]string{
	StatusUnder:   "text-blue-500 bg-blue-50",
	StatusHealthy: "text-emerald-500 bg-emerald-50",
	StatusOver:    "text-amber-500 bg-amber-50",
	StatusObese:   "text-rose-500 bg-rose-50",
	StatusExcess:  "text-rose-500 bg-rose-50",
	StatusUnknown: "text-slate-400 bg-slate-100",
}

// Color returns the palette class for s, falling back to the unknown class.
func (s HealthStatus) Color() string {
	if c, ok := StatusColors[s]; ok {
		return c
	}
	return StatusColors[StatusUnknown]
}

// fatBand holds the three cut points of a body fat band.
// Values below under are under, below healthy are healthy, below over are
// over, and anything else is obese.
type fatBand struct {
	under, healthy, over float64
}

func (b fatBand) classify(fat float64) HealthStatus {
	switch {
	case fat < b.under:
		return StatusUnder
	case fat < b.healthy:
		return StatusHealthy
	case fat < b.over:
		return StatusOver
	default:
		return StatusObese
	}
}

const (
	minClassifiedAge = 5
	lastChildAge     = 19
)

// childFatBands is indexed by gender, then exact age in years.
var childFatBands = map[Gender]map[int]fatBand{
	GenderFemale: {
		5:  {13, 21, 25},
		6:  {13, 22, 26},
		7:  {14, 24, 28},
		8:  {14, 25, 29},
		9:  {15, 26, 30},
		10: {15, 27, 31},
		11: {15, 28, 32},
		12: {15, 28, 32},
		13: {15, 28, 32},
		14: {15, 29, 33},
		15: {15, 29, 33},
		16: {15, 29, 33},
		17: {15, 29, 34},
		18: {16, 30, 35},
		19: {18, 31, 36},
	},
	GenderMale: {
		5:  {11, 18, 22},
		6:  {11, 19, 23},
		7:  {12, 19, 24},
		8:  {12, 20, 25},
		9:  {12, 21, 26},
		10: {12, 22, 27},
		11: {12, 22, 27},
		12: {11, 22, 27},
		13: {11, 21, 26},
		14: {10, 20, 25},
		15: {9, 20, 24},
		16: {9, 19, 23},
		17: {9, 19, 23},
		18: {9, 19, 23},
		19: {8, 19, 23},
	},
}

// adultFatBracket covers ages strictly below maxAge.
type adultFatBracket struct {
	maxAge int
	band   fatBand
}

// adultFatBrackets are ordered by age; the last bracket is open-ended.
var adultFatBrackets = map[Gender][]adultFatBracket{
	GenderFemale: {
		{40, fatBand{20, 32, 38}},
		{60, fatBand{22, 33, 39}},
		{math.MaxInt, fatBand{23, 35, 41}},
	},
	GenderMale: {
		{40, fatBand{7, 19, 24}},
		{60, fatBand{10, 21, 27}},
		{math.MaxInt, fatBand{12, 24, 29}},
	},
}

// ClassifyBodyFat classifies a body fat percentage for the given gender and
// age. Age is floored. Ages below 5 are unknown; for ages 5 to 19 an
// unrecognized gender is also unknown. Adults of any gender other than
// female use the male brackets.
func ClassifyBodyFat(fat float64, gender Gender, age float64) HealthStatus {
	if math.IsNaN(age) || math.IsInf(age, -1) || math.IsNaN(fat) {
		return StatusUnknown
	}

	years := int(math.Floor(math.Min(age, math.MaxInt32)))
	if years < minClassifiedAge {
		return StatusUnknown
	}

	if years <= lastChildAge {
		table, ok := childFatBands[gender]
		if !ok {
			return StatusUnknown
		}
		band, ok := table[years]
		if !ok {
			band = table[lastChildAge]
		}
		return band.classify(fat)
	}

	if gender != GenderFemale {
		gender = GenderMale
	}
	brackets := adultFatBrackets[gender]
	for _, b := range brackets {
		if years < b.maxAge {
			return b.band.classify(fat)
		}
	}
	return brackets[len(brackets)-1].band.classify(fat)
}

// ClassifyVisceralFat classifies a visceral fat rating: 1 to 12 is healthy,
// 13 and above is excess, anything else is unknown.
func ClassifyVisceralFat(rating float64) HealthStatus {
	switch {
	case rating >= 1 && rating <= 12:
		return StatusHealthy
	case rating >= 13:
		return StatusExcess
	default:
		return StatusUnknown
	}
}

// ClassifyBMI applies the WHO bands. The healthy and over bands include
// their upper bound.
func ClassifyBMI(bmi float64) HealthStatus {
	switch {
	case math.IsNaN(bmi):
		return StatusUnknown
	case bmi < 18.5:
		return StatusUnder
	case bmi <= 25:
		return StatusHealthy
	case bmi <= 30:
		return StatusOver
	default:
		return StatusObese
	}
}

// ClassifyMetabolicAge is healthy when the metabolic age does not exceed
// the actual age, and over otherwise.
func ClassifyMetabolicAge(metabolicAge, actualAge float64) HealthStatus {
	if math.IsNaN(metabolicAge) || math.IsNaN(actualAge) {
		return StatusUnknown
	}
	if metabolicAge <= actualAge {
		return StatusHealthy
	}
	return StatusOver
}

// Indicator selects one classifier. The zero Indicator classifies
// everything as unknown; the exported variables are the only useful values.
type Indicator struct {
	tag      string
	classify func(value float64, rec *Record) HealthStatus
}

var (
	IndicatorBodyFat = Indicator{tag: "fat", classify: func(v float64, r *Record) HealthStatus {
		return ClassifyBodyFat(v, r.Gender, r.Age)
	}}
	IndicatorVisceralFat = Indicator{tag: "visceral", classify: func(v float64, _ *Record) HealthStatus {
		return ClassifyVisceralFat(v)
	}}
	IndicatorBMI = Indicator{tag: "bmi", classify: func(v float64, _ *Record) HealthStatus {
		return ClassifyBMI(v)
	}}
	IndicatorMetabolicAge = Indicator{tag: "meta", classify: func(v float64, r *Record) HealthStatus {
		return ClassifyMetabolicAge(v, r.Age)
	}}
)

// Indicators lists every indicator in display order.
var Indicators = []Indicator{IndicatorBodyFat, IndicatorVisceralFat, IndicatorBMI, IndicatorMetabolicAge}

// String returns the wire tag of the indicator.
func (i Indicator) String() string {
	return i.tag
}

// ErrUnknownIndicator is returned for a wire tag no indicator carries.
var ErrUnknownIndicator = errors.New("unknown indicator")

// ParseIndicator resolves a wire tag (fat, visceral, bmi, meta).
func ParseIndicator(tag string) (Indicator, error) {
	for _, ind := range Indicators {
		if ind.tag == tag {
			return ind, nil
		}
	}
	return Indicator{}, fmt.Errorf("%w %q", ErrUnknownIndicator, tag)
}

// Metric returns the record field the indicator reads. It is empty for
// the zero Indicator.
func (i Indicator) Metric() Metric {
	return indicatorMetrics[i.tag]
}

// Classify evaluates value with the indicator, using rec for age and gender.
// It never panics: a nil record, the zero indicator, a non-finite value, or
// a failure inside the classifier all yield StatusUnknown.
func Classify(ind Indicator, value float64, rec *Record) (status HealthStatus) {
	if rec == nil || ind.classify == nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return StatusUnknown
	}

	defer func() {
		if r := recover(); r != nil {
			slog.Warn("classification failed", "indicator", ind.tag, "panic", r)
			status = StatusUnknown
		}
	}()

	return ind.classify(value, rec)
}

// StatusColor returns the palette class for value under the indicator.
func StatusColor(ind Indicator, value float64, rec *Record) string {
	return Classify(ind, value, rec).Color()
}

// IndicatorStatus is the classification of one indicator on a record.
type IndicatorStatus struct {
	Indicator string       `json:"indicator"`
	Metric    Metric       `json:"metric"`
	Value     float64      `json:"value"`
	Status    HealthStatus `json:"status"`
	Color     string       `json:"color"`
}

// indicatorMetrics names the record field each indicator reads.
var indicatorMetrics = map[string]Metric{
	IndicatorBodyFat.tag:      MetricBodyFat,
	IndicatorVisceralFat.tag:  MetricVisceralFat,
	IndicatorBMI.tag:          MetricBMI,
	IndicatorMetabolicAge.tag: MetricMetabolicAge,
}

// ClassifyValue classifies value under ind, taking age and gender from rec.
func ClassifyValue(ind Indicator, value float64, rec *Record) IndicatorStatus {
	return IndicatorStatus{
		Indicator: ind.tag,
		Metric:    ind.Metric(),
		Value:     value,
		Status:    Classify(ind, value, rec),
		Color:     StatusColor(ind, value, rec),
	}
}

// AnnotateRecord classifies every indicator against the record's own values.
func AnnotateRecord(rec *Record) []IndicatorStatus {
	out := make([]IndicatorStatus, 0, len(Indicators))
	for _, ind := range Indicators {
		var value float64
		if rec != nil {
			value, _ = rec.Value(ind.Metric())
		}
		out = append(out, ClassifyValue(ind, value, rec))
	}
	return out
}
