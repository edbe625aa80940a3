package chunk

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
)

// Extension is the file extension of every chunk file.
const Extension = ".csv"

// FileName returns the chunk file name for a 1-based row ordinal and a
// 1-based chunk index. Both numbers are zero-padded so that a plain
// lexicographic listing is already in (row, chunk) order.
func FileName(baseName string, row, chunk int) string {
	return fmt.Sprintf("%s_parte_%08d_%04d%s", baseName, row, chunk, Extension)
}

// nameRe matches the trailing "_<row>_<chunk>.csv" of both the padded names
// written by FileName and the older unpadded "_parte_2_1.csv" style.
var nameRe = regexp.MustCompile(`_(\d+)_(\d+)\.csv$`)

// ParseFileName extracts the row ordinal and chunk index from a chunk file
// name. ok is false when the name does not follow the naming scheme.
func ParseFileName(name string) (row, chunk int, ok bool) {
	m := nameRe.FindStringSubmatch(name)
	if m == nil {
		return 0, 0, false
	}
	row, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, 0, false
	}
	chunk, err = strconv.Atoi(m[2])
	if err != nil {
		return 0, 0, false
	}
	return row, chunk, true
}

// SortFileNames orders names by their parsed (row, chunk) pair. Names that
// do not parse come after the parsed ones, in lexicographic order.
func SortFileNames(names []string) {
	sort.SliceStable(names, func(i, j int) bool {
		ri, ci, oki := ParseFileName(names[i])
		rj, cj, okj := ParseFileName(names[j])
		switch {
		case oki && okj:
			if ri != rj {
				return ri < rj
			}
			if ci != cj {
				return ci < cj
			}
			return names[i] < names[j]
		case oki != okj:
			return oki
		default:
			return names[i] < names[j]
		}
	})
}
