package types

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// OptionGroup describes one configurable aspect of a commodity, e.g. "size".
type OptionGroup struct {
	Name     string   `json:"name"`
	Choices  []string `json:"choices"`
	Multiple bool     `json:"multiple"`
	Required bool     `json:"required"`
}

// OptionSelections maps an option group name to the chosen values.
type OptionSelections map[string][]string

// Normalize returns a copy with trimmed, de-duplicated and sorted choices and
// without empty groups.
func (s OptionSelections) Normalize() OptionSelections {
	out := OptionSelections{}
	for group, choices := range s {
		name := strings.TrimSpace(group)
		if name == "" {
			continue
		}
		seen := map[string]struct{}{}
		cleaned := make([]string, 0, len(choices))
		for _, choice := range choices {
			c := strings.TrimSpace(choice)
			if c == "" {
				continue
			}
			if _, ok := seen[c]; ok {
				continue
			}
			seen[c] = struct{}{}
			cleaned = append(cleaned, c)
		}
		if len(cleaned) == 0 {
			continue
		}
		sort.Strings(cleaned)
		out[name] = cleaned
	}
	return out
}

// Canonical renders the normalized selections as JSON. Map keys are sorted
// and separators inside choices are escaped, so distinct selections never
// share a rendering.
func (s OptionSelections) Canonical() string {
	raw, err := json.Marshal(s.Normalize())
	if err != nil {
		return ""
	}
	return string(raw)
}

// Fingerprint is a stable hash of the canonical selections. Identical
// selections in any order share a fingerprint.
func (s OptionSelections) Fingerprint() string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(s.Canonical()))
}

// Validate checks the selections against the commodity's option groups and
// returns the normalized form.
func (s OptionSelections) Validate(groups []OptionGroup) (OptionSelections, error) {
	normalized := s.Normalize()
	byName := make(map[string]OptionGroup, len(groups))
	for _, g := range groups {
		byName[g.Name] = g
	}

	for name, choices := range normalized {
		group, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("unknown option group %q", name)
		}
		if !group.Multiple && len(choices) > 1 {
			return nil, fmt.Errorf("option group %q accepts a single choice", name)
		}
		allowed := make(map[string]struct{}, len(group.Choices))
		for _, c := range group.Choices {
			allowed[c] = struct{}{}
		}
		for _, c := range choices {
			if _, ok := allowed[c]; !ok {
				return nil, fmt.Errorf("option %q is not offered in group %q", c, name)
			}
		}
	}
	for _, g := range groups {
		if g.Required && len(normalized[g.Name]) == 0 {
			return nil, fmt.Errorf("option group %q is required", g.Name)
		}
	}
	return normalized, nil
}
