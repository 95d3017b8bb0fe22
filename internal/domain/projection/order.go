package projection

import (
	"slices"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// SkipRank in a priority list reserves a rank without pinning a column.
const SkipRank = "_"

// OrderedList returns discovered with the entries named in priority moved
// to the front, in priority order. Each priority entry claims at most one
// occurrence; duplicates in discovered are kept. The rest follow in their
// original order. A nil argument yields an empty list.
func OrderedList(discovered, priority []string) []string {
	if discovered == nil || priority == nil {
		return []string{}
	}
	out := make([]string, 0, len(discovered))
	used := make([]bool, len(discovered))
	for _, p := range priority {
		if p == SkipRank {
			continue
		}
		for i, d := range discovered {
			if !used[i] && d == p {
				used[i] = true
				out = append(out, d)
				break
			}
		}
	}
	for i, d := range discovered {
		if !used[i] {
			out = append(out, d)
		}
	}
	return out
}

// PatientColumnsFirst sorts event columns so that patient columns lead.
// Within each group columns are collated for the given language.
func PatientColumnsFirst(columns []string, tag language.Tag) []string {
	out := slices.Clone(columns)
	if out == nil {
		return []string{}
	}
	coll := collate.New(tag)
	slices.SortStableFunc(out, func(a, b string) int {
		ap, bp := isPatientColumn(a), isPatientColumn(b)
		switch {
		case ap && !bp:
			return -1
		case !ap && bp:
			return 1
		}
		return coll.CompareString(a, b)
	})
	return out
}

func isPatientColumn(c string) bool {
	return strings.Contains(strings.ToLower(c), "patient")
}
