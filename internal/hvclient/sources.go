package hvclient

import (
	"sort"
	"strings"
)

// sourceIDs is the curated instrument-name to sourceId table. It mirrors the
// stable ids of the public archive and exists purely as a convenience so
// callers do not need a catalog round trip for common instruments. Read-only
// process-wide state; accessors hand out copies.
var sourceIDs = map[string]int{
	"EIT 171":    0,
	"EIT 195":    1,
	"EIT 284":    2,
	"EIT 304":    3,
	"LASCO C2":   4,
	"LASCO C3":   5,
	"MDI Mag":    6,
	"MDI Int":    7,
	"AIA 94":     8,
	"AIA 131":    9,
	"AIA 171":    10,
	"AIA 193":    11,
	"AIA 211":    12,
	"AIA 304":    13,
	"AIA 335":    14,
	"AIA 1600":   15,
	"AIA 1700":   16,
	"AIA 4500":   17,
	"HMI Int":    18,
	"HMI Mag":    19,
	"EUVI-A 171": 20,
	"EUVI-A 195": 21,
	"EUVI-A 284": 22,
	"EUVI-A 304": 23,
	"EUVI-B 171": 24,
	"EUVI-B 195": 25,
	"EUVI-B 284": 26,
	"EUVI-B 304": 27,
	"COR1-A":     28,
	"COR2-A":     29,
	"COR1-B":     30,
	"COR2-B":     31,
}

// SourceIDs returns a copy of the curated name to sourceId table
func SourceIDs() map[string]int {
	out := make(map[string]int, len(sourceIDs))
	for k, v := range sourceIDs {
		out[k] = v
	}
	return out
}

// LookupSource resolves a curated instrument name to its sourceId,
// case-insensitively.
func LookupSource(name string) (int, bool) {
	needle := strings.ToLower(strings.TrimSpace(name))
	for k, v := range sourceIDs {
		if strings.ToLower(k) == needle {
			return v, true
		}
	}
	return 0, false
}

// SourceNames returns the curated instrument names, sorted by sourceId
func SourceNames() []string {
	names := make([]string, 0, len(sourceIDs))
	for k := range sourceIDs {
		names = append(names, k)
	}
	sort.Slice(names, func(i, j int) bool {
		return sourceIDs[names[i]] < sourceIDs[names[j]]
	})
	return names
}
