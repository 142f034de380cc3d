package ioc

import (
	"sort"
	"strings"
)

// Set is a collection of IOCs with merge semantics. A Set may hold duplicate
// values between Extend calls; Merge collapses it to at most one IOC per
// distinct value.
type Set struct {
	IOCs []IOC `json:"iocs"`
}

// NewSet returns an empty Set.
func NewSet() *Set {
	return &Set{IOCs: []IOC{}}
}

// Extend appends IOCs without merging.
func (s *Set) Extend(iocs ...IOC) {
	s.IOCs = append(s.IOCs, iocs...)
}

// Len returns the number of IOCs currently held, merged or not.
func (s *Set) Len() int {
	return len(s.IOCs)
}

// Merge deduplicates the set by value and combines contexts.
//
// IOCs are grouped by value in first-seen order. A group's representative
// keeps the first member's type; its context is the non-empty contexts of
// all members joined with " | " in encounter order. Single-member groups are
// kept unchanged. The result is stable-sorted ascending by type, so IOCs
// with equal types retain their grouping order.
//
// The first-seen type preference is deliberate: when the same value shows up
// in several chunks, the earliest classification and context win. Merge is
// idempotent.
func (s *Set) Merge() {
	groups := make(map[string][]IOC, len(s.IOCs))
	order := make([]string, 0, len(s.IOCs))

	for _, item := range s.IOCs {
		if _, seen := groups[item.Value]; !seen {
			order = append(order, item.Value)
		}
		groups[item.Value] = append(groups[item.Value], item)
	}

	merged := make([]IOC, 0, len(order))
	for _, value := range order {
		group := groups[value]
		if len(group) == 1 {
			merged = append(merged, group[0])
			continue
		}
		contexts := make([]string, 0, len(group))
		for _, member := range group {
			if c := strings.TrimSpace(member.Context); c != "" {
				contexts = append(contexts, c)
			}
		}
		rep := group[0]
		rep.Context = strings.Join(contexts, " | ")
		merged = append(merged, rep)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Type < merged[j].Type
	})
	s.IOCs = merged
}
