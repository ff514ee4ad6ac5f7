// Package core provides the business logic for body-composition imports.
// This package has no transport dependencies and can be used by any frontend.
package core

import (
	"errors"
	"time"
)

var (
	// ErrInvalidFormat is returned when a round-trip file does not carry
	// enough columns to be one of our own exports.
	ErrInvalidFormat = errors.New("invalid format: not enough columns")

	// ErrInvalidCSV is returned when an upload cannot be tokenised as CSV.
	ErrInvalidCSV = errors.New("invalid csv")

	// ErrUnknownMetric is returned for a metric key no record field matches.
	ErrUnknownMetric = errors.New("unknown metric")

	// ErrNoRecords is returned when an export is requested for zero records.
	ErrNoRecords = errors.New("no records to export")
)

// Gender is the sex recorded by the scale. The device encodes it as "1"/"2".
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

// Metric names one numeric field of a Record. Values match the JSON keys.
type Metric string

const (
	MetricAge             Metric = "age"
	MetricHeight          Metric = "height"
	MetricActivityLevel   Metric = "activityLevel"
	MetricWeight          Metric = "weight"
	MetricBMI             Metric = "bmi"
	MetricBodyFat         Metric = "bodyFat"
	MetricMuscleMass      Metric = "muscleMass"
	MetricBoneMass        Metric = "boneMass"
	MetricVisceralFat     Metric = "visceralFat"
	MetricWaterPercentage Metric = "waterPercentage"
	MetricMetabolicAge    Metric = "metabolicAge"
	MetricDCI             Metric = "dci"
	MetricFatArmR         Metric = "fatArmR"
	MetricFatArmL         Metric = "fatArmL"
	MetricFatLegR         Metric = "fatLegR"
	MetricFatLegL         Metric = "fatLegL"
	MetricFatTrunk        Metric = "fatTrunk"
	MetricMuscleArmR      Metric = "muscleArmR"
	MetricMuscleArmL      Metric = "muscleArmL"
	MetricMuscleLegR      Metric = "muscleLegR"
	MetricMuscleLegL      Metric = "muscleLegL"
	MetricMuscleTrunk     Metric = "muscleTrunk"
)

// Record is one bioimpedance measurement session in canonical form.
// Records are built once by a parser and not mutated afterwards.
type Record struct {
	ID            string  `json:"id"`
	Date          string  `json:"date"` // DD/MM/YYYY
	Time          string  `json:"time"` // HH:MM
	Model         string  `json:"model"`
	Gender        Gender  `json:"gender"`
	Age           float64 `json:"age"`
	Height        float64 `json:"height"`
	ActivityLevel float64 `json:"activityLevel"`

	Weight          float64 `json:"weight"`
	BMI             float64 `json:"bmi"`
	BodyFat         float64 `json:"bodyFat"`
	MuscleMass      float64 `json:"muscleMass"`
	BoneMass        float64 `json:"boneMass"`
	VisceralFat     float64 `json:"visceralFat"`
	WaterPercentage float64 `json:"waterPercentage"`
	MetabolicAge    float64 `json:"metabolicAge"`
	DCI             float64 `json:"dci"`

	// Segmentals
	FatArmR     float64 `json:"fatArmR"`
	FatArmL     float64 `json:"fatArmL"`
	FatLegR     float64 `json:"fatLegR"`
	FatLegL     float64 `json:"fatLegL"`
	FatTrunk    float64 `json:"fatTrunk"`
	MuscleArmR  float64 `json:"muscleArmR"`
	MuscleArmL  float64 `json:"muscleArmL"`
	MuscleLegR  float64 `json:"muscleLegR"`
	MuscleLegL  float64 `json:"muscleLegL"`
	MuscleTrunk float64 `json:"muscleTrunk"`
}

// AllMetrics lists every numeric field in Record declaration order.
var AllMetrics = []Metric{
	MetricAge, MetricHeight, MetricActivityLevel,
	MetricWeight, MetricBMI, MetricBodyFat, MetricMuscleMass, MetricBoneMass,
	MetricVisceralFat, MetricWaterPercentage, MetricMetabolicAge, MetricDCI,
	MetricFatArmR, MetricFatArmL, MetricFatLegR, MetricFatLegL, MetricFatTrunk,
	MetricMuscleArmR, MetricMuscleArmL, MetricMuscleLegR, MetricMuscleLegL, MetricMuscleTrunk,
}

// metricFields resolves a Metric to the address of its field on a record.
// It is the single source of truth for metric lookup by key.
var metricFields = map[Metric]func(r *Record) *float64{
	MetricAge:             func(r *Record) *float64 { return &r.Age },
	MetricHeight:          func(r *Record) *float64 { return &r.Height },
	MetricActivityLevel:   func(r *Record) *float64 { return &r.ActivityLevel },
	MetricWeight:          func(r *Record) *float64 { return &r.Weight },
	MetricBMI:             func(r *Record) *float64 { return &r.BMI },
	MetricBodyFat:         func(r *Record) *float64 { return &r.BodyFat },
	MetricMuscleMass:      func(r *Record) *float64 { return &r.MuscleMass },
	MetricBoneMass:        func(r *Record) *float64 { return &r.BoneMass },
	MetricVisceralFat:     func(r *Record) *float64 { return &r.VisceralFat },
	MetricWaterPercentage: func(r *Record) *float64 { return &r.WaterPercentage },
	MetricMetabolicAge:    func(r *Record) *float64 { return &r.MetabolicAge },
	MetricDCI:             func(r *Record) *float64 { return &r.DCI },
	MetricFatArmR:         func(r *Record) *float64 { return &r.FatArmR },
	MetricFatArmL:         func(r *Record) *float64 { return &r.FatArmL },
	MetricFatLegR:         func(r *Record) *float64 { return &r.FatLegR },
	MetricFatLegL:         func(r *Record) *float64 { return &r.FatLegL },
	MetricFatTrunk:        func(r *Record) *float64 { return &r.FatTrunk },
	MetricMuscleArmR:      func(r *Record) *float64 { return &r.MuscleArmR },
	MetricMuscleArmL:      func(r *Record) *float64 { return &r.MuscleArmL },
	MetricMuscleLegR:      func(r *Record) *float64 { return &r.MuscleLegR },
	MetricMuscleLegL:      func(r *Record) *float64 { return &r.MuscleLegL },
	MetricMuscleTrunk:     func(r *Record) *float64 { return &r.MuscleTrunk },
}

// Valid reports whether m names a numeric record field.
func (m Metric) Valid() bool {
	_, ok := metricFields[m]
	return ok
}

// Value returns the value of metric m on the record.
// The second result is false if m is not a known metric.
func (r *Record) Value(m Metric) (float64, bool) {
	field, ok := metricFields[m]
	if !ok {
		return 0, false
	}
	return *field(r), true
}

// set assigns v to metric m. Unknown metrics are ignored.
func (r *Record) set(m Metric, v float64) {
	if field, ok := metricFields[m]; ok {
		*field(r) = v
	}
}

// Timestamp reconstructs the measurement instant from Date and Time.
// Malformed input yields the Unix epoch so such records sort first.
func (r *Record) Timestamp() time.Time {
	return ParseTimestamp(r.Date, r.Time)
}

// RecordID builds the natural dedup key of a session.
func RecordID(date, clock string) string {
	return date + "-" + clock
}

// DeviceFile is one raw device export handed to the batch parser.
type DeviceFile struct {
	Name string
	Data []byte
}

// ImportResult summarizes one import request.
type ImportResult struct {
	ID       string        `json:"id"`
	Files    int           `json:"files"`
	Parsed   int           `json:"parsed"`
	Added    int           `json:"added"`
	Replaced int           `json:"replaced"`
	Total    int           `json:"total"`
	Duration time.Duration `json:"duration"`
}
