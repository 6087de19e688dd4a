package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/matzehuels/vizpage/pkg/table"
)

// jsonCodec writes rows by hand so object keys keep column order, which
// encoding/json does not guarantee for maps.
type jsonCodec struct{}

func (jsonCodec) encode(t *table.Table) ([]byte, error) {
	cols := t.Columns()
	keys := make([][]byte, len(cols))
	for i, c := range cols {
		k, err := json.Marshal(c.Name)
		if err != nil {
			return nil, err
		}
		keys[i] = k
	}

	var buf bytes.Buffer
	buf.WriteByte('[')
	for r := 0; r < t.NumRows(); r++ {
		if r > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('{')
		for c := range cols {
			if c > 0 {
				buf.WriteByte(',')
			}
			buf.Write(keys[c])
			buf.WriteByte(':')
			if err := writeJSONValue(&buf, t.Value(c, r)); err != nil {
				return nil, fmt.Errorf("row %d column %q: %w", r, cols[c].Name, err)
			}
		}
		buf.WriteByte('}')
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

func writeJSONValue(buf *bytes.Buffer, v any) error {
	switch v := v.(type) {
	case nil:
		buf.WriteString("null")
	case int64:
		buf.WriteString(strconv.FormatInt(v, 10))
	case float64:
		if err := checkFinite(v); err != nil {
			return err
		}
		buf.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
	case bool:
		buf.WriteString(strconv.FormatBool(v))
	case string:
		s, err := json.Marshal(v)
		if err != nil {
			return err
		}
		buf.Write(s)
	case time.Time:
		s, _ := json.Marshal(v.UTC().Format(time.RFC3339Nano))
		buf.Write(s)
	default:
		return fmt.Errorf("unsupported value %T", v)
	}
	return nil
}

// checkFinite rejects NaN and infinities, which JSON cannot represent.
func checkFinite(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("non-finite float %v cannot be encoded as JSON", v)
	}
	return nil
}

func (jsonCodec) decode(payload []byte, cols []table.Column) (*table.Table, error) {
	if len(cols) == 0 {
		return table.NewBuilder().Build()
	}
	return table.ReadJSON(bytes.NewReader(payload), cols)
}
