// Package chunk holds the word-aligned text splitting rule, the chunk file
// naming scheme and the small CSV file helpers shared by the splitter and
// the merger.
package chunk
