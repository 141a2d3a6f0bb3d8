package checks

import (
	"fmt"
	"sort"
	"strings"
)

// Lookup returns the built-in rule with the given id.
func Lookup(id string) (Rule, bool) {
	id = normalizeID(id)
	for _, r := range builtins {
		if r.ID == id {
			return r, true
		}
	}
	return Rule{}, false
}

// Select narrows rules to onlyIDs (when non-empty) minus skipIDs, keeping
// catalog order. Unknown ids in either list are an error so a typo cannot
// silently disable a rule.
func Select(rules []Rule, onlyIDs, skipIDs []string) ([]Rule, error) {
	known := make(map[string]struct{}, len(rules))
	for _, r := range rules {
		known[r.ID] = struct{}{}
	}

	onlySet, err := idSet(onlyIDs, known)
	if err != nil {
		return nil, err
	}
	skipSet, err := idSet(skipIDs, known)
	if err != nil {
		return nil, err
	}

	selected := make([]Rule, 0, len(rules))
	for _, r := range rules {
		if _, skip := skipSet[r.ID]; skip {
			continue
		}
		if len(onlySet) > 0 {
			if _, ok := onlySet[r.ID]; !ok {
				continue
			}
		}
		selected = append(selected, r)
	}
	if len(selected) == 0 {
		return nil, fmt.Errorf("rule selection is empty")
	}
	return selected, nil
}

func idSet(ids []string, known map[string]struct{}) (map[string]struct{}, error) {
	out := make(map[string]struct{}, len(ids))
	var unknown []string
	for _, raw := range ids {
		id := normalizeID(raw)
		if id == "" {
			continue
		}
		if _, ok := known[id]; !ok {
			unknown = append(unknown, id)
			continue
		}
		out[id] = struct{}{}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, fmt.Errorf("unknown rule id(s): %s", strings.Join(unknown, ", "))
	}
	return out, nil
}

func normalizeID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}
