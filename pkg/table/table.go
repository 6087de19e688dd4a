package table

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/matzehuels/vizpage/pkg/errors"
)

// Column describes one named, typed column.
type Column struct {
	Name string
	Kind Kind
}

// Table is an immutable, Arrow-backed table with canonical column types.
type Table struct {
	cols []Column
	rec  arrow.Record
}

// Columns returns a copy of the column list in order.
func (t *Table) Columns() []Column {
	out := make([]Column, len(t.cols))
	copy(out, t.cols)
	return out
}

// NumRows returns the number of rows.
func (t *Table) NumRows() int { return int(t.rec.NumRows()) }

// NumCols returns the number of columns.
func (t *Table) NumCols() int { return len(t.cols) }

// ColumnIndex returns the position of the named column, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.cols {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Column looks up a column by name.
func (t *Table) Column(name string) (Column, bool) {
	if i := t.ColumnIndex(name); i >= 0 {
		return t.cols[i], true
	}
	return Column{}, false
}

// Record exposes the underlying Arrow record. Callers must not release it.
func (t *Table) Record() arrow.Record { return t.rec }

// Value returns the cell at (col, row) as int64, float64, string, bool,
// time.Time, or nil for null.
func (t *Table) Value(col, row int) any {
	return valueAt(t.rec.Column(col), row)
}

// Row returns all values of one row in column order.
func (t *Table) Row(row int) []any {
	out := make([]any, len(t.cols))
	for c := range t.cols {
		out[c] = t.Value(c, row)
	}
	return out
}

// Equal reports whether t and o have the same columns and identical cells.
// NaN equals NaN so that a table always equals itself.
func (t *Table) Equal(o *Table) bool {
	if t == o {
		return true
	}
	if t == nil || o == nil || len(t.cols) != len(o.cols) || t.NumRows() != o.NumRows() {
		return false
	}
	for i := range t.cols {
		if t.cols[i] != o.cols[i] {
			return false
		}
	}
	for c := range t.cols {
		for r := 0; r < t.NumRows(); r++ {
			if !cellEqual(t.Value(c, r), o.Value(c, r)) {
				return false
			}
		}
	}
	return true
}

func cellEqual(a, b any) bool {
	switch av := a.(type) {
	case float64:
		bv, ok := b.(float64)
		return ok && (av == bv || math.IsNaN(av) && math.IsNaN(bv))
	case time.Time:
		bv, ok := b.(time.Time)
		return ok && av.Equal(bv)
	}
	return a == b
}

// Fingerprint returns a stable hex SHA-256 digest over the schema and every
// cell. Equal tables have equal fingerprints.
func (t *Table) Fingerprint() string {
	h := sha256.New()
	var buf [8]byte
	writeStr := func(s string) {
		binary.LittleEndian.PutUint64(buf[:], uint64(len(s)))
		h.Write(buf[:])
		h.Write([]byte(s))
	}
	for _, c := range t.cols {
		writeStr(c.Name)
		writeStr(c.Kind.String())
	}
	binary.LittleEndian.PutUint64(buf[:], uint64(t.NumRows()))
	h.Write(buf[:])
	for c := range t.cols {
		for r := 0; r < t.NumRows(); r++ {
			switch v := t.Value(c, r).(type) {
			case nil:
				h.Write([]byte{0})
			case int64:
				h.Write([]byte{1})
				binary.LittleEndian.PutUint64(buf[:], uint64(v))
				h.Write(buf[:])
			case float64:
				h.Write([]byte{2})
				binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
				h.Write(buf[:])
			case string:
				h.Write([]byte{3})
				writeStr(v)
			case bool:
				if v {
					h.Write([]byte{4, 1})
				} else {
					h.Write([]byte{4, 0})
				}
			case time.Time:
				h.Write([]byte{5})
				binary.LittleEndian.PutUint64(buf[:], uint64(v.UnixMicro()))
				h.Write(buf[:])
			}
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Builder accumulates rows for a new Table.
type Builder struct {
	cols []Column
	rows [][]any
	err  error
}

// NewBuilder starts a table with the given columns.
func NewBuilder(cols ...Column) *Builder {
	b := &Builder{cols: cols}
	b.err = validateColumns(cols)
	return b
}

// Append adds one row. values must match the column count; nil appends a
// null. Accepted Go types per kind:
//
//	int     any signed or unsigned integer type
//	float   float32, float64, or any integer type
//	string  string
//	bool    bool
//	time    time.Time
//
// The first error is sticky and reported again by Build.
func (b *Builder) Append(values ...any) error {
	if b.err != nil {
		return b.err
	}
	if len(values) != len(b.cols) {
		b.err = errors.New(errors.ErrCodeInvalidInput, "row %d has %d values, want %d", len(b.rows), len(values), len(b.cols))
		return b.err
	}
	row := make([]any, len(values))
	for i, v := range values {
		cv, err := convert(b.cols[i].Kind, v)
		if err != nil {
			b.err = errors.Wrap(errors.ErrCodeInvalidInput, err, "row %d column %q", len(b.rows), b.cols[i].Name)
			return b.err
		}
		row[i] = cv
	}
	b.rows = append(b.rows, row)
	return nil
}

// Build materializes the accumulated rows into a Table.
func (b *Builder) Build() (*Table, error) {
	if b.err != nil {
		return nil, b.err
	}
	return buildTable(b.cols, len(b.rows), func(c, r int) any { return b.rows[r][c] }), nil
}

// MustBuild is like Build but panics on error. Intended for tests and
// examples with literal data.
func (b *Builder) MustBuild() *Table {
	t, err := b.Build()
	if err != nil {
		panic(err)
	}
	return t
}

// FromRecord adopts an Arrow record, widening supported narrower types to the
// canonical ones. Unsupported column types are an INVALID_INPUT error.
func FromRecord(rec arrow.Record) (*Table, error) {
	cols, err := columnsOf(rec.Schema())
	if err != nil {
		return nil, err
	}
	arrs := rec.Columns()
	return buildTable(cols, int(rec.NumRows()), func(c, r int) any { return valueAt(arrs[c], r) }), nil
}

// FromArrowTable adopts a chunked Arrow table such as one read from Parquet.
func FromArrowTable(tbl arrow.Table) (*Table, error) {
	cols, err := columnsOf(tbl.Schema())
	if err != nil {
		return nil, err
	}
	// Flatten chunk boundaries into a row index per column.
	type locator struct {
		chunks []arrow.Array
		starts []int
	}
	locs := make([]locator, len(cols))
	for i := range cols {
		var l locator
		off := 0
		for _, ch := range tbl.Column(i).Data().Chunks() {
			l.chunks = append(l.chunks, ch)
			l.starts = append(l.starts, off)
			off += ch.Len()
		}
		locs[i] = l
	}
	get := func(c, r int) any {
		l := locs[c]
		for k := len(l.starts) - 1; k >= 0; k-- {
			if r >= l.starts[k] {
				return valueAt(l.chunks[k], r-l.starts[k])
			}
		}
		return nil
	}
	return buildTable(cols, int(tbl.NumRows()), get), nil
}

func columnsOf(schema *arrow.Schema) ([]Column, error) {
	cols := make([]Column, schema.NumFields())
	for i, f := range schema.Fields() {
		k, ok := kindOf(f.Type)
		if !ok {
			return nil, errors.New(errors.ErrCodeInvalidInput, "column %q has unsupported type %s", f.Name, f.Type)
		}
		cols[i] = Column{Name: f.Name, Kind: k}
	}
	if err := validateColumns(cols); err != nil {
		return nil, err
	}
	return cols, nil
}

func validateColumns(cols []Column) error {
	seen := make(map[string]bool, len(cols))
	for _, c := range cols {
		if c.Name == "" {
			return errors.New(errors.ErrCodeInvalidInput, "column name cannot be empty")
		}
		if seen[c.Name] {
			return errors.New(errors.ErrCodeInvalidInput, "duplicate column %q", c.Name)
		}
		if c.Kind.arrowType() == nil {
			return errors.New(errors.ErrCodeInvalidInput, "column %q has invalid kind", c.Name)
		}
		seen[c.Name] = true
	}
	return nil
}

// Schema returns the canonical Arrow schema for cols.
func Schema(cols []Column) *arrow.Schema {
	fields := make([]arrow.Field, len(cols))
	for i, c := range cols {
		fields[i] = arrow.Field{Name: c.Name, Type: c.Kind.arrowType(), Nullable: true}
	}
	return arrow.NewSchema(fields, nil)
}

// buildTable assembles a canonical record. get must return values already
// converted to the canonical Go type for the column kind.
func buildTable(cols []Column, nrows int, get func(c, r int) any) *Table {
	rb := array.NewRecordBuilder(memory.NewGoAllocator(), Schema(cols))
	defer rb.Release()
	for c, col := range cols {
		fb := rb.Field(c)
		fb.Reserve(nrows)
		for r := 0; r < nrows; r++ {
			v := get(c, r)
			if v == nil {
				fb.AppendNull()
				continue
			}
			switch col.Kind {
			case KindInt:
				fb.(*array.Int64Builder).Append(v.(int64))
			case KindFloat:
				fb.(*array.Float64Builder).Append(v.(float64))
			case KindString:
				fb.(*array.StringBuilder).Append(v.(string))
			case KindBool:
				fb.(*array.BooleanBuilder).Append(v.(bool))
			case KindTime:
				fb.(*array.TimestampBuilder).Append(arrow.Timestamp(v.(time.Time).UnixMicro()))
			}
		}
	}
	out := make([]Column, len(cols))
	copy(out, cols)
	return &Table{cols: out, rec: rb.NewRecord()}
}

// valueAt reads one cell from any supported Arrow array as a canonical Go
// value.
func valueAt(arr arrow.Array, i int) any {
	if arr.IsNull(i) {
		return nil
	}
	switch a := arr.(type) {
	case *array.Int64:
		return a.Value(i)
	case *array.Int32:
		return int64(a.Value(i))
	case *array.Int16:
		return int64(a.Value(i))
	case *array.Int8:
		return int64(a.Value(i))
	case *array.Uint32:
		return int64(a.Value(i))
	case *array.Uint16:
		return int64(a.Value(i))
	case *array.Uint8:
		return int64(a.Value(i))
	case *array.Float64:
		return a.Value(i)
	case *array.Float32:
		return float64(a.Value(i))
	case *array.String:
		return a.Value(i)
	case *array.LargeString:
		return a.Value(i)
	case *array.Boolean:
		return a.Value(i)
	case *array.Timestamp:
		unit := a.DataType().(*arrow.TimestampType).Unit
		return a.Value(i).ToTime(unit).UTC().Truncate(time.Microsecond)
	case *array.Date32:
		return a.Value(i).ToTime().UTC()
	case *array.Date64:
		return a.Value(i).ToTime().UTC()
	}
	return nil
}

// convert normalizes a caller-supplied value to the canonical Go type for k.
func convert(k Kind, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch k {
	case KindInt:
		if n, ok := asInt(v); ok {
			return n, nil
		}
	case KindFloat:
		switch f := v.(type) {
		case float64:
			return f, nil
		case float32:
			return float64(f), nil
		}
		if n, ok := asInt(v); ok {
			return float64(n), nil
		}
	case KindString:
		if s, ok := v.(string); ok {
			return s, nil
		}
	case KindBool:
		if b, ok := v.(bool); ok {
			return b, nil
		}
	case KindTime:
		if tm, ok := v.(time.Time); ok {
			return tm.UTC().Truncate(time.Microsecond), nil
		}
	}
	return nil, fmt.Errorf("cannot store %T in %s column", v, k)
}

func asInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint:
		if uint64(n) <= math.MaxInt64 {
			return int64(n), true
		}
	case uint64:
		if n <= math.MaxInt64 {
			return int64(n), true
		}
	}
	return 0, false
}

// FormatValue renders a cell value as text: base-10 integers, shortest
// round-trip floats, true/false, RFC 3339 UTC times, and "" for null.
func FormatValue(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	case time.Time:
		return v.UTC().Format(time.RFC3339Nano)
	case string:
		return v
	}
	return fmt.Sprint(v)
}
