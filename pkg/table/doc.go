// Package table provides the in-memory tabular model consumed by charts and
// encoders.
//
// A [Table] is an ordered list of named, typed, nullable columns of equal
// length, backed by an Apache Arrow record. Five column kinds are supported:
//
//	int     int64
//	float   float64
//	string  utf8
//	bool    boolean
//	time    timestamp[us, UTC]
//
// Tables are built row by row with a [Builder] or adopted from an existing
// Arrow record with [FromRecord]. Once built a table is read-only: the report
// builder never mutates caller data.
//
// # Loading
//
// [ReadFile] loads CSV, JSON and Parquet files from disk, inferring column
// kinds unless an explicit column list is supplied.
package table
