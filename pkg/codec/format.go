package codec

import (
	"github.com/matzehuels/vizpage/pkg/errors"
)

// Format selects how a page's datasets are serialized and where they live.
type Format string

// Supported data formats.
const (
	CSVEmbedded     Format = "csv_embedded"
	JSONEmbedded    Format = "json_embedded"
	CSVExternal     Format = "csv_external"
	JSONExternal    Format = "json_external"
	ParquetExternal Format = "parquet_external"
)

// Formats lists every supported format in documentation order.
var Formats = []Format{CSVEmbedded, JSONEmbedded, CSVExternal, JSONExternal, ParquetExternal}

// DefaultFormat is used when a page does not choose one.
const DefaultFormat = CSVEmbedded

var descriptions = map[Format]string{
	CSVEmbedded:     "CSV text inlined in a hidden element; single portable file",
	JSONEmbedded:    "JSON rows inlined in a hidden element; single portable file",
	CSVExternal:     "CSV files under data/; fetched at load time",
	JSONExternal:    "JSON files under data/; fetched at load time",
	ParquetExternal: "Snappy-compressed Parquet files under data/; decoded in the browser",
}

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	f := Format(s)
	if err := f.Validate(); err != nil {
		return "", err
	}
	return f, nil
}

// Validate returns UNSUPPORTED_FORMAT for unknown formats.
func (f Format) Validate() error {
	if _, ok := descriptions[f]; !ok {
		return errors.New(errors.ErrCodeUnsupportedFormat, "unsupported data format %q (valid: %v)", string(f), Formats)
	}
	return nil
}

// Embedded reports whether datasets are inlined in the HTML.
func (f Format) Embedded() bool { return f == CSVEmbedded || f == JSONEmbedded }

// External reports whether datasets are written as files under data/.
func (f Format) External() bool { return f == CSVExternal || f == JSONExternal || f == ParquetExternal }

// Ext returns the file extension (without dot) of the serialized payload.
func (f Format) Ext() string {
	switch f {
	case CSVEmbedded, CSVExternal:
		return "csv"
	case JSONEmbedded, JSONExternal:
		return "json"
	case ParquetExternal:
		return "parquet"
	}
	return ""
}

// Description returns a one-line human description.
func (f Format) Description() string { return descriptions[f] }

func (f Format) String() string { return string(f) }
