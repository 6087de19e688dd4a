// Package codec serializes tables into page payloads and the matching
// client-side loader registrations.
//
// Five [Format] values are supported. Embedded formats inline the payload in
// a hidden container element of the HTML document; external formats write it
// to data/<name>.<ext> next to the page and the browser fetches it at load
// time.
//
// # Value encoding
//
// CSV payloads use a header row, comma delimiter, "\n" record terminator and
// RFC 4180 quoting. A null cell is an empty unquoted field while an empty
// string is written as "" so that the two survive a round trip. Floats use
// the shortest representation that parses back to the same value; times are
// RFC 3339 with nanoseconds in UTC.
//
// JSON payloads are an array of row objects whose keys follow column order.
// Nulls are JSON null. Non-finite floats cannot be represented and are
// rejected.
//
// Parquet payloads are written with the Arrow schema stored in the file
// metadata and Snappy compression.
//
// [Decode] is the exact inverse of [Encode] for every format. The browser
// runtime turns every number into a JavaScript Number, so int64 values
// beyond ±2^53 lose precision on the page even though the payload is exact.
package codec
