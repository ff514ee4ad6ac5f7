package core

// roundtrip.go re-imports files produced by ExportCSV.
//
// Header labels are localized, so they are never matched by name. Column i
// of the file is read as RoundTripColumns[i]. A file whose columns were
// reordered by hand is therefore misread rather than rejected.

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
)

// minRoundTripColumns is the smallest header accepted as one of our exports.
const minRoundTripColumns = 15

// Column is one position of the shared CSV column contract.
// Metric is empty for the text columns.
type Column struct {
	Key    string
	Metric Metric
}

// Text reports whether the column holds a string field.
func (c Column) Text() bool {
	return c.Metric == ""
}

const (
	columnDate  = "date"
	columnTime  = "time"
	columnModel = "model"
)

// RoundTripColumns is the fixed column order written by ExportCSV and read
// back by ParseRoundTripCSV.
var RoundTripColumns = []Column{
	{Key: columnDate},
	{Key: columnTime},
	{Key: columnModel},
	{Key: string(MetricWeight), Metric: MetricWeight},
	{Key: string(MetricBMI), Metric: MetricBMI},
	{Key: string(MetricBodyFat), Metric: MetricBodyFat},
	{Key: string(MetricMuscleMass), Metric: MetricMuscleMass},
	{Key: string(MetricVisceralFat), Metric: MetricVisceralFat},
	{Key: string(MetricWaterPercentage), Metric: MetricWaterPercentage},
	{Key: string(MetricBoneMass), Metric: MetricBoneMass},
	{Key: string(MetricMetabolicAge), Metric: MetricMetabolicAge},
	{Key: string(MetricDCI), Metric: MetricDCI},
	{Key: string(MetricFatTrunk), Metric: MetricFatTrunk},
	{Key: string(MetricFatArmR), Metric: MetricFatArmR},
	{Key: string(MetricFatArmL), Metric: MetricFatArmL},
	{Key: string(MetricFatLegR), Metric: MetricFatLegR},
	{Key: string(MetricFatLegL), Metric: MetricFatLegL},
	{Key: string(MetricMuscleTrunk), Metric: MetricMuscleTrunk},
	{Key: string(MetricMuscleArmR), Metric: MetricMuscleArmR},
	{Key: string(MetricMuscleArmL), Metric: MetricMuscleArmL},
	{Key: string(MetricMuscleLegR), Metric: MetricMuscleLegR},
	{Key: string(MetricMuscleLegL), Metric: MetricMuscleLegL},
}

// textValue returns the string field a text column maps to.
func (r *Record) textValue(key string) string {
	switch key {
	case columnDate:
		return r.Date
	case columnTime:
		return r.Time
	case columnModel:
		return r.Model
	}
	return ""
}

func (r *Record) setText(key, v string) {
	switch key {
	case columnDate:
		r.Date = v
	case columnTime:
		r.Time = v
	case columnModel:
		r.Model = v
	}
}

// ParseRoundTripCSV parses a semicolon-delimited export back into records.
// It returns ErrInvalidFormat when the header has fewer than 15 columns.
func ParseRoundTripCSV(r io.Reader) ([]Record, error) {
	reader := csv.NewReader(NewCleanReader(r))
	reader.Comma = ';'
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("empty file: %w", ErrInvalidFormat)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCSV, err)
	}
	if len(header) < minRoundTripColumns {
		return nil, fmt.Errorf("%w: got %d columns", ErrInvalidFormat, len(header))
	}

	width := min(len(header), len(RoundTripColumns))

	var records []Record
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				continue
			}
			return nil, fmt.Errorf("%w: %w", ErrInvalidCSV, err)
		}

		if rec, ok := parseRoundTripRow(row, width); ok {
			records = append(records, rec)
		}
	}

	return records, nil
}

// parseRoundTripRow maps the first width cells of row onto the column
// contract. Rows without a date or with a zero weight are rejected.
func parseRoundTripRow(row []string, width int) (Record, bool) {
	var rec Record
	for i := 0; i < width && i < len(row); i++ {
		raw := CleanCell(row[i])
		if raw == "" {
			continue
		}

		col := RoundTripColumns[i]
		if col.Text() {
			rec.setText(col.Key, raw)
			continue
		}
		rec.set(col.Metric, ParseDecimalComma(raw))
	}

	if rec.Date == "" || rec.Weight == 0 {
		return Record{}, false
	}

	rec.Time = orDefault(rec.Time, DefaultTime)
	rec.Gender = GenderMale
	rec.ID = RecordID(rec.Date, rec.Time)

	return rec, true
}
