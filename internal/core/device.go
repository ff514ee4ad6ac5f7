package core

// device.go parses the raw CSV dumps written by the scale to its SD card.
//
// Device rows are not header-keyed. Each value is preceded by a two-letter
// key code in the same row ("Wk", "72.4"), and the order and density of the
// pairs vary by model and firmware. A row is therefore read by locating each
// key code and taking the token right after it.

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"
)

const (
	// DefaultModel is assumed when a row carries no model token.
	DefaultModel = "BC-601"

	// DefaultTime is assumed when a row carries no time token.
	DefaultTime = "00:00"

	// minDeviceRowTokens filters footer and noise lines.
	minDeviceRowTokens = 5

	codeDate   = "DT"
	codeWeight = "Wk"
)

// deviceField binds a key code to the record field it fills.
// apply receives "" when the code is absent from the row.
type deviceField struct {
	code  string
	apply func(r *Record, raw string)
}

// deviceFields is the key-code dictionary of the device export format.
var deviceFields = []deviceField{
	{code: codeDate, apply: func(r *Record, v string) { r.Date = v }},
	{code: "Ti", apply: func(r *Record, v string) { r.Time = orDefault(v, DefaultTime) }},
	{code: "MO", apply: func(r *Record, v string) { r.Model = orDefault(v, DefaultModel) }},
	{code: "GE", apply: func(r *Record, v string) { r.Gender = deviceGender(v) }},
	{code: "AG", apply: intMetric(MetricAge)},
	{code: "Hm", apply: floatMetric(MetricHeight)},
	{code: "AL", apply: intMetric(MetricActivityLevel)},

	{code: codeWeight, apply: floatMetric(MetricWeight)},
	{code: "MI", apply: floatMetric(MetricBMI)},
	{code: "FW", apply: floatMetric(MetricBodyFat)},
	{code: "mW", apply: floatMetric(MetricMuscleMass)},
	{code: "bW", apply: floatMetric(MetricBoneMass)},
	{code: "IF", apply: intMetric(MetricVisceralFat)},
	{code: "ww", apply: floatMetric(MetricWaterPercentage)},
	{code: "rA", apply: intMetric(MetricMetabolicAge)},
	{code: "rD", apply: intMetric(MetricDCI)},

	{code: "Fr", apply: floatMetric(MetricFatArmR)},
	{code: "Fl", apply: floatMetric(MetricFatArmL)},
	{code: "FR", apply: floatMetric(MetricFatLegR)},
	{code: "FL", apply: floatMetric(MetricFatLegL)},
	{code: "FT", apply: floatMetric(MetricFatTrunk)},
	{code: "mr", apply: floatMetric(MetricMuscleArmR)},
	{code: "ml", apply: floatMetric(MetricMuscleArmL)},
	{code: "mR", apply: floatMetric(MetricMuscleLegR)},
	{code: "mL", apply: floatMetric(MetricMuscleLegL)},
	{code: "mT", apply: floatMetric(MetricMuscleTrunk)},
}

func floatMetric(m Metric) func(*Record, string) {
	return func(r *Record, v string) { r.set(m, ParseLenientFloat(v)) }
}

func intMetric(m Metric) func(*Record, string) {
	return func(r *Record, v string) { r.set(m, ParseLenientInt(v)) }
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// deviceGender decodes the GE token: "2" is female, anything else male.
func deviceGender(v string) Gender {
	if v == "2" {
		return GenderFemale
	}
	return GenderMale
}

// rowTokens indexes the first position of every token in a device row.
type rowTokens struct {
	cells []string
	first map[string]int
}

func indexRow(row []string) rowTokens {
	first := make(map[string]int, len(row))
	for i, cell := range row {
		key := strings.TrimSpace(cell)
		if _, seen := first[key]; !seen {
			first[key] = i
		}
	}
	return rowTokens{cells: row, first: first}
}

// value returns the trimmed token following code, or "" if there is none.
func (t rowTokens) value(code string) string {
	i, ok := t.first[code]
	if !ok || i+1 >= len(t.cells) {
		return ""
	}
	return strings.TrimSpace(t.cells[i+1])
}

// ParseDeviceRow converts one tokenized row into a record.
// It reports false for noise rows and rows without a date or weight.
func ParseDeviceRow(row []string) (Record, bool) {
	if len(row) < minDeviceRowTokens {
		return Record{}, false
	}

	tokens := indexRow(row)
	if tokens.value(codeDate) == "" || tokens.value(codeWeight) == "" {
		return Record{}, false
	}

	var rec Record
	for _, f := range deviceFields {
		f.apply(&rec, tokens.value(f.code))
	}
	rec.ID = RecordID(rec.Date, rec.Time)

	return rec, true
}

// ParseDeviceCSV reads a device export and returns every valid measurement
// row in file order. Rows the CSV reader cannot tokenize are skipped.
func ParseDeviceCSV(r io.Reader) ([]Record, error) {
	data, err := io.ReadAll(NewCleanReader(r))
	if err != nil {
		return nil, fmt.Errorf("read device file: %w", err)
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = detectDelimiter(data)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

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

		if rec, ok := ParseDeviceRow(row); ok {
			records = append(records, rec)
		}
	}

	return records, nil
}

// delimiterCandidates are tried in order; ties keep the earlier candidate.
var delimiterCandidates = []rune{',', '\t', '|', ';'}

// detectDelimiter picks the candidate that occurs most often in the first
// non-empty line. Defaults to a comma.
func detectDelimiter(data []byte) rune {
	var line []byte
	for _, l := range bytes.Split(data, []byte("\n")) {
		if len(bytes.TrimSpace(l)) > 0 {
			line = l
			break
		}
	}

	best, bestCount := ',', 0
	for _, c := range delimiterCandidates {
		if n := bytes.Count(line, []byte(string(c))); n > bestCount {
			best, bestCount = c, n
		}
	}
	return best
}

// ParseDeviceFiles parses every file concurrently, with at most workers
// parses in flight (unbounded when workers <= 0). A file that fails to parse
// contributes no records; the batch continues. The combined result is
// deduplicated by ID, last occurrence winning, and sorted newest first.
func ParseDeviceFiles(ctx context.Context, files []DeviceFile, workers int) ([]Record, error) {
	results := make([][]Record, len(files))

	g, gctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}

	for i, f := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			recs, err := ParseDeviceCSV(bytes.NewReader(f.Data))
			if err != nil {
				slog.Warn("device file skipped", "file", f.Name, "error", err)
				return nil
			}

			slog.Debug("device file parsed", "file", f.Name, "records", len(recs))
			results[i] = recs
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := DedupByID(slices.Concat(results...))
	SortNewestFirst(merged)
	return merged, nil
}

// DedupByID collapses records sharing an ID. The last occurrence wins and
// keeps the position of the first.
func DedupByID(recs []Record) []Record {
	pos := make(map[string]int, len(recs))
	out := make([]Record, 0, len(recs))
	for _, r := range recs {
		if i, ok := pos[r.ID]; ok {
			out[i] = r
			continue
		}
		pos[r.ID] = len(out)
		out = append(out, r)
	}
	return out
}

// SortNewestFirst orders records by reconstructed timestamp, descending.
func SortNewestFirst(recs []Record) {
	slices.SortStableFunc(recs, func(a, b Record) int {
		return b.Timestamp().Compare(a.Timestamp())
	})
}

// SortOldestFirst orders records by reconstructed timestamp, ascending.
func SortOldestFirst(recs []Record) {
	slices.SortStableFunc(recs, func(a, b Record) int {
		return a.Timestamp().Compare(b.Timestamp())
	})
}
