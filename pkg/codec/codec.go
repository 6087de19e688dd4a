package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html"
	"strings"

	"github.com/matzehuels/vizpage/pkg/errors"
	"github.com/matzehuels/vizpage/pkg/sanitize"
	"github.com/matzehuels/vizpage/pkg/table"
)

// DataDir is the project-relative directory holding external payloads.
const DataDir = "data"

// ElementPrefix prefixes the DOM id of embedded payload containers.
const ElementPrefix = "vizpage-data-"

// Encoded is one dataset serialized for one format.
type Encoded struct {
	Name    string         // registry name, used as the loader key
	File    string         // sanitized stem for file names and DOM ids
	Format  Format         // format the payload is encoded in
	Payload []byte         // raw serialized bytes (unescaped)
	Columns []table.Column // column schema for client-side typing
}

// Path returns the project-relative path of an external payload, or "" for
// embedded formats.
func (e Encoded) Path() string {
	if !e.Format.External() {
		return ""
	}
	return DataDir + "/" + e.File + "." + e.Format.Ext()
}

// ElementID returns the DOM id of the embedded container.
func (e Encoded) ElementID() string {
	return ElementPrefix + e.File
}

// Container returns the hidden HTML element carrying an embedded payload, or
// "" for external formats. The payload is escaped so that the element's
// textContent is byte-identical to Payload.
func (e Encoded) Container() string {
	if !e.Format.Embedded() {
		return ""
	}
	return fmt.Sprintf(`<div hidden id="%s" data-format="%s" data-dataset="%s">%s</div>`,
		e.ElementID(), e.Format, html.EscapeString(e.Name), escapeText(e.Payload))
}

// Loader returns the JavaScript statement registering this dataset with the
// page runtime.
func (e Encoded) Loader() string {
	spec := loaderSpec{Format: e.Format}
	if e.Format.Embedded() {
		spec.Element = e.ElementID()
	} else {
		spec.Src = e.Path()
	}
	for _, c := range e.Columns {
		spec.Columns = append(spec.Columns, loaderColumn{Name: c.Name, Kind: c.Kind.String()})
	}
	name, _ := json.Marshal(e.Name)
	body, _ := json.Marshal(spec)
	return fmt.Sprintf("vizpage.register(%s, %s);", name, body)
}

type loaderSpec struct {
	Format  Format         `json:"format"`
	Element string         `json:"element,omitempty"`
	Src     string         `json:"src,omitempty"`
	Columns []loaderColumn `json:"columns"`
}

type loaderColumn struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
}

// escapeText escapes a payload for use as HTML text content. Carriage returns
// are written as character references since the HTML parser would otherwise
// normalize them to "\n".
func escapeText(p []byte) string {
	return strings.ReplaceAll(html.EscapeString(string(p)), "\r", "&#13;")
}

type payloadCodec interface {
	encode(t *table.Table) ([]byte, error)
	decode(payload []byte, cols []table.Column) (*table.Table, error)
}

func codecFor(f Format) (payloadCodec, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	switch f.Ext() {
	case "csv":
		return csvCodec{}, nil
	case "json":
		return jsonCodec{}, nil
	default:
		return parquetCodec{}, nil
	}
}

// Encode serializes t under the dataset name for format f.
func Encode(name string, t *table.Table, f Format) (Encoded, error) {
	c, err := codecFor(f)
	if err != nil {
		return Encoded{}, err
	}
	if t == nil {
		return Encoded{}, errors.New(errors.ErrCodeInvalidInput, "dataset %q has no table", name)
	}
	payload, err := c.encode(t)
	if err != nil {
		return Encoded{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "encode dataset %q as %s", name, f)
	}
	return FromPayload(name, t.Columns(), f, payload)
}

// FromPayload rebuilds an Encoded from a payload produced earlier by Encode,
// for example one read back from a cache.
func FromPayload(name string, cols []table.Column, f Format, payload []byte) (Encoded, error) {
	if err := f.Validate(); err != nil {
		return Encoded{}, err
	}
	if f.Embedded() && bytes.IndexByte(payload, 0) >= 0 {
		return Encoded{}, errors.New(errors.ErrCodeInvalidInput, "dataset %q contains NUL bytes which cannot be embedded in HTML", name)
	}
	return Encoded{
		Name:    name,
		File:    sanitize.Name(name),
		Format:  f,
		Payload: payload,
		Columns: cols,
	}, nil
}

// Decode parses a payload produced by Encode back into a table. cols is the
// schema recorded in Encoded.Columns; Parquet payloads carry their own.
func Decode(payload []byte, f Format, cols []table.Column) (*table.Table, error) {
	c, err := codecFor(f)
	if err != nil {
		return nil, err
	}
	t, err := c.decode(payload, cols)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode %s payload", f)
	}
	return t, nil
}
