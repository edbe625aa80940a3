// Package merger reassembles a folder of chunk files into one CSV table with
// one row per source row.
//
// Files are visited in (row, chunk) order. A file whose chunk index is 1
// starts a new merged row, any later chunk index continues the current one.
// When the folder carries a manifest, rows that produced no chunks are
// emitted as empty rows so the output stays aligned with the source.
package merger
