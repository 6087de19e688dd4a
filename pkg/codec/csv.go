package codec

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/matzehuels/vizpage/pkg/table"
)

// csvCodec implements the CSV dialect described in the package docs. It does
// not use encoding/csv because that package cannot distinguish a null cell
// from an empty string in either direction.
type csvCodec struct{}

func (csvCodec) encode(t *table.Table) ([]byte, error) {
	var buf bytes.Buffer
	cols := t.Columns()
	if len(cols) == 0 {
		return nil, nil
	}
	for i, c := range cols {
		if i > 0 {
			buf.WriteByte(',')
		}
		writeCSVString(&buf, c.Name)
	}
	buf.WriteByte('\n')
	for r := 0; r < t.NumRows(); r++ {
		for c := range cols {
			if c > 0 {
				buf.WriteByte(',')
			}
			switch v := t.Value(c, r).(type) {
			case nil:
			case string:
				writeCSVString(&buf, v)
			default:
				buf.WriteString(table.FormatValue(v))
			}
		}
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

// writeCSVString writes s, quoting when it is empty or contains a delimiter,
// quote or line break.
func writeCSVString(buf *bytes.Buffer, s string) {
	if s != "" && !strings.ContainsAny(s, ",\"\r\n") {
		buf.WriteString(s)
		return
	}
	buf.WriteByte('"')
	buf.WriteString(strings.ReplaceAll(s, `"`, `""`))
	buf.WriteByte('"')
}

type csvField struct {
	text   string
	quoted bool
}

func (csvCodec) decode(payload []byte, cols []table.Column) (*table.Table, error) {
	b := table.NewBuilder(cols...)
	if len(cols) == 0 {
		return b.Build()
	}
	records, err := parseCSV(payload)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("missing header row")
	}
	header := records[0]
	if len(header) != len(cols) {
		return nil, fmt.Errorf("header has %d fields, want %d", len(header), len(cols))
	}
	for i, h := range header {
		if h.text != cols[i].Name {
			return nil, fmt.Errorf("header field %d is %q, want %q", i, h.text, cols[i].Name)
		}
	}
	row := make([]any, len(cols))
	for n, rec := range records[1:] {
		if len(rec) != len(cols) {
			return nil, fmt.Errorf("record %d has %d fields, want %d", n+1, len(rec), len(cols))
		}
		for i, f := range rec {
			v, err := parseField(cols[i].Kind, f)
			if err != nil {
				return nil, fmt.Errorf("record %d column %q: %w", n+1, cols[i].Name, err)
			}
			row[i] = v
		}
		if err := b.Append(row...); err != nil {
			return nil, err
		}
	}
	return b.Build()
}

func parseField(k table.Kind, f csvField) (any, error) {
	if f.text == "" && !f.quoted {
		return nil, nil
	}
	switch k {
	case table.KindInt:
		return strconv.ParseInt(f.text, 10, 64)
	case table.KindFloat:
		return strconv.ParseFloat(f.text, 64)
	case table.KindBool:
		return strconv.ParseBool(f.text)
	case table.KindTime:
		return time.Parse(time.RFC3339Nano, f.text)
	}
	return f.text, nil
}

// parseCSV splits an RFC 4180 payload into records, remembering whether each
// field was quoted. Both "\n" and "\r\n" terminate records outside quotes.
func parseCSV(data []byte) ([][]csvField, error) {
	var (
		records [][]csvField
		rec     []csvField
		field   strings.Builder
		quoted  bool
	)
	endField := func() {
		rec = append(rec, csvField{text: field.String(), quoted: quoted})
		field.Reset()
		quoted = false
	}
	endRecord := func() {
		endField()
		records = append(records, rec)
		rec = nil
	}

	i := 0
	atFieldStart := true
	for i < len(data) {
		c := data[i]
		if atFieldStart && c == '"' {
			quoted = true
			atFieldStart = false
			i++
			closed := false
			for i < len(data) {
				if data[i] == '"' {
					if i+1 < len(data) && data[i+1] == '"' {
						field.WriteByte('"')
						i += 2
						continue
					}
					closed = true
					i++
					break
				}
				field.WriteByte(data[i])
				i++
			}
			if !closed {
				return nil, fmt.Errorf("unterminated quoted field in record %d", len(records))
			}
			if i < len(data) && data[i] != ',' && data[i] != '\n' && data[i] != '\r' {
				return nil, fmt.Errorf("unexpected %q after quoted field in record %d", data[i], len(records))
			}
			continue
		}
		atFieldStart = false
		switch c {
		case ',':
			endField()
			atFieldStart = true
			i++
		case '\r':
			if i+1 < len(data) && data[i+1] == '\n' {
				i++
			}
			fallthrough
		case '\n':
			endRecord()
			atFieldStart = true
			i++
		default:
			if c == '"' {
				return nil, fmt.Errorf("bare quote in unquoted field in record %d", len(records))
			}
			field.WriteByte(c)
			i++
		}
	}
	if !atFieldStart || len(rec) > 0 {
		endRecord()
	}
	return records, nil
}
