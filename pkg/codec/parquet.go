package codec

import (
	"bytes"
	"context"

	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"github.com/matzehuels/vizpage/pkg/table"
)

type parquetCodec struct{}

func (parquetCodec) encode(t *table.Table) ([]byte, error) {
	rec := t.Record()
	var buf bytes.Buffer
	props := parquet.NewWriterProperties(parquet.WithCompression(compress.Codecs.Snappy))
	arrowProps := pqarrow.NewArrowWriterProperties(pqarrow.WithStoreSchema())

	w, err := pqarrow.NewFileWriter(rec.Schema(), &buf, props, arrowProps)
	if err != nil {
		return nil, err
	}
	if err := w.Write(rec); err != nil {
		w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (parquetCodec) decode(payload []byte, _ []table.Column) (*table.Table, error) {
	return table.ReadParquet(context.Background(), bytes.NewReader(payload))
}
