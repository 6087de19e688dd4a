package table

import (
	"strings"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/matzehuels/vizpage/pkg/errors"
)

// Kind is the logical type of a column.
type Kind int

// Supported column kinds.
const (
	KindInt Kind = iota + 1
	KindFloat
	KindString
	KindBool
	KindTime
)

var kindNames = map[Kind]string{
	KindInt:    "int",
	KindFloat:  "float",
	KindString: "string",
	KindBool:   "bool",
	KindTime:   "time",
}

// String returns the kind name as used in manifests and loader specs.
func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// Numeric reports whether values of kind k can be plotted on a numeric axis.
func (k Kind) Numeric() bool {
	return k == KindInt || k == KindFloat
}

// ParseKind parses a kind name (case-insensitive).
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "int", "integer", "int64":
		return KindInt, nil
	case "float", "double", "float64", "number":
		return KindFloat, nil
	case "string", "str", "text":
		return KindString, nil
	case "bool", "boolean":
		return KindBool, nil
	case "time", "timestamp", "datetime":
		return KindTime, nil
	}
	return 0, errors.New(errors.ErrCodeInvalidInput, "unknown column kind %q", s)
}

// timestampType is the Arrow type used for KindTime columns.
var timestampType = &arrow.TimestampType{Unit: arrow.Microsecond, TimeZone: "UTC"}

func (k Kind) arrowType() arrow.DataType {
	switch k {
	case KindInt:
		return arrow.PrimitiveTypes.Int64
	case KindFloat:
		return arrow.PrimitiveTypes.Float64
	case KindString:
		return arrow.BinaryTypes.String
	case KindBool:
		return arrow.FixedWidthTypes.Boolean
	case KindTime:
		return timestampType
	}
	return nil
}

// kindOf maps an Arrow type back to a Kind. Narrower integer and float types
// are accepted and widened when values are read.
func kindOf(dt arrow.DataType) (Kind, bool) {
	switch dt.ID() {
	case arrow.INT8, arrow.INT16, arrow.INT32, arrow.INT64,
		arrow.UINT8, arrow.UINT16, arrow.UINT32:
		return KindInt, true
	case arrow.FLOAT32, arrow.FLOAT64:
		return KindFloat, true
	case arrow.STRING, arrow.LARGE_STRING:
		return KindString, true
	case arrow.BOOL:
		return KindBool, true
	case arrow.TIMESTAMP, arrow.DATE32, arrow.DATE64:
		return KindTime, true
	}
	return 0, false
}
