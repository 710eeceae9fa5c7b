package columns

import (
	"sort"
	"strings"
)

// DefaultSet is used when no columns are requested.
const DefaultSet = "default"

// Sets defines named column groups that expand into lists of columns.
var Sets = map[string][]string{
	DefaultSet: {"code", "name", "amount", "est%", "est_gain", "est_time"},
	// settled and estimated NAV
	"nav": {"nav", "nav_date", "est_nav"},
	// needs the holdings section
	"holdings": {"coverage", "source"},
}

// ExpandSets returns the union of columns for the given set names.
// Set order and column order within each set are kept; the first occurrence
// of a column wins.
func ExpandSets(setNames []string) ([]string, error) {
	out := make([]string, 0, 16)
	seen := map[string]struct{}{}
	for _, name := range setNames {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		cols, ok := Sets[name]
		if !ok {
			return nil, &UnknownSetError{Name: name, Available: availableSets()}
		}
		for _, c := range cols {
			if _, ok := seen[c]; ok {
				continue
			}
			seen[c] = struct{}{}
			out = append(out, c)
		}
	}
	return out, nil
}

// UnknownSetError reports an unknown column set name.
type UnknownSetError struct {
	Name      string
	Available []string
}

func (e *UnknownSetError) Error() string {
	return "unknown column set: " + e.Name + "; available: " + strings.Join(e.Available, ", ")
}

func availableSets() []string {
	keys := make([]string, 0, len(Sets))
	for k := range Sets {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
