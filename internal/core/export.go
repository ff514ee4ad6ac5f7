package core

// export.go serializes records for download.
//
// The CSV flavour targets spreadsheet software configured for European
// locales: semicolon separated, decimal comma, every cell quoted, and a
// UTF-8 BOM so the encoding is detected. ParseRoundTripCSV reads it back.

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Export formats accepted by Export.
const (
	FormatCSV  = "csv"
	FormatJSON = "json"
	FormatXML  = "xml"
)

const utf8BOM = "\uFEFF"

// ContentType returns the MIME type of an export format.
func ContentType(format string) string {
	switch format {
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatJSON:
		return "application/json"
	case FormatXML:
		return "application/xml"
	}
	return "application/octet-stream"
}

// Export writes recs to w in the named format. labels only affects CSV.
func Export(w io.Writer, format string, recs []Record, labels map[string]string) error {
	switch format {
	case FormatCSV:
		return ExportCSV(w, recs, labels)
	case FormatJSON:
		return ExportJSON(w, recs)
	case FormatXML:
		return ExportXML(w, recs)
	}
	return fmt.Errorf("unsupported export format %q", format)
}

// ExportCSV writes recs in the round-trip column order. Header cells use
// labels[key] when present and the column key otherwise. Rows are
// separated by a single newline with none after the last row.
func ExportCSV(w io.Writer, recs []Record, labels map[string]string) error {
	if len(recs) == 0 {
		return ErrNoRecords
	}

	var b strings.Builder
	b.WriteString(utf8BOM)

	for i, col := range RoundTripColumns {
		if i > 0 {
			b.WriteByte(';')
		}
		label := labels[col.Key]
		if label == "" {
			label = col.Key
		}
		writeQuoted(&b, label)
	}

	for i := range recs {
		b.WriteByte('\n')
		for j, col := range RoundTripColumns {
			if j > 0 {
				b.WriteByte(';')
			}
			if col.Text() {
				writeQuoted(&b, recs[i].textValue(col.Key))
				continue
			}
			v, _ := recs[i].Value(col.Metric)
			writeQuoted(&b, FormatDecimalComma(v))
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func writeQuoted(b *strings.Builder, s string) {
	b.WriteByte('"')
	b.WriteString(strings.ReplaceAll(s, `"`, `""`))
	b.WriteByte('"')
}

// ExportJSON writes recs as an indented JSON array.
func ExportJSON(w io.Writer, recs []Record) error {
	if len(recs) == 0 {
		return ErrNoRecords
	}
	data, err := json.MarshalIndent(recs, "", "  ")
	if err != nil {
		return fmt.Errorf("encode records: %w", err)
	}
	_, err = w.Write(data)
	return err
}

// ExportXML writes recs as a BodyMetrics document, one element per field.
func ExportXML(w io.Writer, recs []Record) error {
	if len(recs) == 0 {
		return ErrNoRecords
	}

	var b strings.Builder
	b.WriteString(xml.Header)
	b.WriteString("<BodyMetrics>\n")

	for i := range recs {
		b.WriteString("  <Record>\n")
		for _, f := range recordXMLFields(&recs[i]) {
			b.WriteString("    <" + f.key + ">")
			if err := xml.EscapeText(&b, []byte(f.value)); err != nil {
				return fmt.Errorf("encode record %s: %w", recs[i].ID, err)
			}
			b.WriteString("</" + f.key + ">\n")
		}
		b.WriteString("  </Record>\n")
	}
	b.WriteString("</BodyMetrics>")

	_, err := io.WriteString(w, b.String())
	return err
}

type xmlField struct {
	key, value string
}

// recordXMLFields lists the record's fields in declaration order.
func recordXMLFields(r *Record) []xmlField {
	fields := []xmlField{
		{"id", r.ID},
		{"date", r.Date},
		{"time", r.Time},
		{"model", r.Model},
		{"gender", string(r.Gender)},
	}
	for _, m := range AllMetrics {
		v, _ := r.Value(m)
		fields = append(fields, xmlField{string(m), strconv.FormatFloat(v, 'f', -1, 64)})
	}
	return fields
}
