package table

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"github.com/matzehuels/vizpage/pkg/errors"
)

// ReadFile loads a table from a .csv, .json or .parquet file. cols, when
// non-empty, declares column kinds for CSV and JSON input; otherwise kinds
// are inferred. Parquet files always use their stored schema.
func ReadFile(ctx context.Context, path string, cols []Column) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "read %s", path)
		}
		return nil, errors.Wrap(errors.ErrCodeIO, err, "read %s", path)
	}
	var t *Table
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		t, err = ReadCSV(bytes.NewReader(data), cols)
	case ".json":
		t, err = ReadJSON(bytes.NewReader(data), cols)
	case ".parquet":
		t, err = ReadParquet(ctx, bytes.NewReader(data))
	default:
		return nil, errors.New(errors.ErrCodeInvalidInput, "unsupported data file extension %q", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return t, nil
}

// ReadCSV reads a headered CSV stream. Empty cells become nulls. Without
// declared columns each column gets the narrowest kind that parses every
// non-empty cell, in the order int, float, bool, time, string.
func ReadCSV(r io.Reader, cols []Column) (*Table, error) {
	cr := csv.NewReader(r)
	records, err := cr.ReadAll()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "parse csv")
	}
	if len(records) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "csv has no header row")
	}
	header, body := records[0], records[1:]

	if len(cols) == 0 {
		cols = make([]Column, len(header))
		for i, name := range header {
			cells := make([]string, len(body))
			for r, rec := range body {
				cells[r] = rec[i]
			}
			cols[i] = Column{Name: name, Kind: inferKind(cells)}
		}
	} else if err := matchHeader(header, cols); err != nil {
		return nil, err
	}

	b := NewBuilder(cols...)
	row := make([]any, len(cols))
	for _, rec := range body {
		for i, cell := range rec {
			v, err := parseCell(cols[i].Kind, cell)
			if err != nil {
				return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "column %q", cols[i].Name)
			}
			row[i] = v
		}
		if err := b.Append(row...); err != nil {
			return nil, err
		}
	}
	return b.Build()
}

func matchHeader(header []string, cols []Column) error {
	if len(header) != len(cols) {
		return errors.New(errors.ErrCodeInvalidInput, "csv has %d columns, %d declared", len(header), len(cols))
	}
	for i := range header {
		if header[i] != cols[i].Name {
			return errors.New(errors.ErrCodeInvalidInput, "csv column %d is %q, declared %q", i, header[i], cols[i].Name)
		}
	}
	return nil
}

func inferKind(cells []string) Kind {
	for _, k := range []Kind{KindInt, KindFloat, KindBool, KindTime} {
		ok := true
		for _, c := range cells {
			if c == "" {
				continue
			}
			if _, err := parseCell(k, c); err != nil {
				ok = false
				break
			}
		}
		if ok {
			return k
		}
	}
	return KindString
}

func parseCell(k Kind, s string) (any, error) {
	if s == "" && k != KindString {
		return nil, nil
	}
	switch k {
	case KindInt:
		return strconv.ParseInt(s, 10, 64)
	case KindFloat:
		return strconv.ParseFloat(s, 64)
	case KindBool:
		return strconv.ParseBool(s)
	case KindTime:
		return parseTime(s)
	}
	if s == "" {
		return nil, nil
	}
	return s, nil
}

var timeLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02"}

func parseTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time %q", s)
}

// ReadJSON reads a JSON array of row objects. Columns appear in first-seen
// key order across all rows; keys missing from a row are null.
func ReadJSON(r io.Reader, cols []Column) (*Table, error) {
	var rows []map[string]json.RawMessage
	var order []string
	seen := make(map[string]bool)

	dec := json.NewDecoder(r)
	dec.UseNumber()
	if err := expectDelim(dec, '['); err != nil {
		return nil, err
	}
	for dec.More() {
		if err := expectDelim(dec, '{'); err != nil {
			return nil, err
		}
		row := make(map[string]json.RawMessage)
		for dec.More() {
			tok, err := dec.Token()
			if err != nil {
				return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "parse json")
			}
			key := tok.(string)
			var raw json.RawMessage
			if err := dec.Decode(&raw); err != nil {
				return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "parse json")
			}
			row[key] = raw
			if !seen[key] {
				seen[key] = true
				order = append(order, key)
			}
		}
		if err := expectDelim(dec, '}'); err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	if err := expectDelim(dec, ']'); err != nil {
		return nil, err
	}

	if len(cols) == 0 {
		cols = make([]Column, len(order))
		for i, name := range order {
			k, err := inferJSONKind(name, rows)
			if err != nil {
				return nil, err
			}
			cols[i] = Column{Name: name, Kind: k}
		}
	}

	b := NewBuilder(cols...)
	vals := make([]any, len(cols))
	for _, row := range rows {
		for i, c := range cols {
			v, err := jsonCell(c.Kind, row[c.Name])
			if err != nil {
				return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "column %q", c.Name)
			}
			vals[i] = v
		}
		if err := b.Append(vals...); err != nil {
			return nil, err
		}
	}
	return b.Build()
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "parse json")
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return errors.New(errors.ErrCodeInvalidInput, "parse json: expected %q, got %v", want, tok)
	}
	return nil
}

func inferJSONKind(name string, rows []map[string]json.RawMessage) (Kind, error) {
	var kind Kind
	for _, row := range rows {
		raw, ok := row[name]
		if !ok || isNull(raw) {
			continue
		}
		var k Kind
		switch raw[0] {
		case '"':
			var s string
			_ = json.Unmarshal(raw, &s)
			k = KindString
			if _, err := time.Parse(time.RFC3339Nano, s); err == nil {
				k = KindTime
			}
		case 't', 'f':
			k = KindBool
		default:
			k = KindFloat
			if _, err := strconv.ParseInt(string(raw), 10, 64); err == nil {
				k = KindInt
			}
		}
		switch {
		case kind == 0:
			kind = k
		case kind == k:
		case kind.Numeric() && k.Numeric():
			kind = KindFloat
		case (kind == KindTime && k == KindString) || (kind == KindString && k == KindTime):
			kind = KindString
		default:
			return 0, errors.New(errors.ErrCodeInvalidInput, "column %q mixes %s and %s values", name, kind, k)
		}
	}
	if kind == 0 {
		kind = KindString
	}
	return kind, nil
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}

func jsonCell(k Kind, raw json.RawMessage) (any, error) {
	if isNull(raw) {
		return nil, nil
	}
	switch k {
	case KindInt:
		return strconv.ParseInt(string(raw), 10, 64)
	case KindFloat:
		return strconv.ParseFloat(string(raw), 64)
	case KindBool:
		var b bool
		err := json.Unmarshal(raw, &b)
		return b, err
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	if k == KindTime {
		return parseTime(s)
	}
	return s, nil
}

// ReadParquet reads a Parquet file into a table.
func ReadParquet(ctx context.Context, r parquet.ReaderAtSeeker) (*Table, error) {
	tbl, err := pqarrow.ReadTable(ctx, r, parquet.NewReaderProperties(memory.DefaultAllocator), pqarrow.ArrowReadProperties{}, memory.DefaultAllocator)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "read parquet")
	}
	defer tbl.Release()
	return FromArrowTable(tbl)
}
