// Package splitter turns one text column of a source table into a folder of
// single-chunk CSV files, one file per word-aligned chunk, plus a manifest
// recording how many chunks every row produced.
package splitter
