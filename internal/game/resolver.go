package game

import "sort"

// FoundSet holds the indices of the regions already matched in the current level attempt.
type FoundSet map[int]struct{}

// NewFoundSet returns a set with the given indices.
func NewFoundSet(indices ...int) FoundSet {
	s := make(FoundSet, len(indices))
	for _, i := range indices {
		s[i] = struct{}{}
	}
	return s
}

// Has reports whether region i was already found. A nil set is empty.
func (s FoundSet) Has(i int) bool {
	_, ok := s[i]
	return ok
}

// Add marks region i as found.
func (s FoundSet) Add(i int) {
	s[i] = struct{}{}
}

// Len returns the number of found regions.
func (s FoundSet) Len() int {
	return len(s)
}

// Indices returns the found indices in increasing order.
func (s FoundSet) Indices() []int {
	indices := make([]int, 0, len(s))
	for i := range s {
		indices = append(indices, i)
	}
	sort.Ints(indices)
	return indices
}

// Clone returns an independent copy of the set.
func (s FoundSet) Clone() FoundSet {
	c := make(FoundSet, len(s))
	for i := range s {
		c[i] = struct{}{}
	}
	return c
}

// ClickResult is the outcome of testing one click against a level's regions.
type ClickResult struct {
	// Matched lists, in region order, every region hit by the click that was not found yet.
	Matched []int

	// AlreadyFoundHit is set if the click hit at least one region found earlier.
	AlreadyFoundHit bool
}

// MatchedIndex returns the first newly matched region, if any.
func (r ClickResult) MatchedIndex() (int, bool) {
	if len(r.Matched) == 0 {
		return -1, false
	}
	return r.Matched[0], true
}

// Wrong reports a click that hit no region at all, found or not.
// Hitting only already found regions is neutral, not wrong.
func (r ClickResult) Wrong() bool {
	return len(r.Matched) == 0 && !r.AlreadyFoundHit
}

// ResolveClick tests the base space point p against every region.
//
// All regions are evaluated: overlapping regions can all be hit by the same click, and every
// one of them not yet in found is reported as matched. found is not modified.
func ResolveClick(p Point, regions []Region, found FoundSet) ClickResult {
	var result ClickResult
	for i, region := range regions {
		if !region.Contains(p) {
			continue
		}
		if found.Has(i) {
			result.AlreadyFoundHit = true
			continue
		}
		result.Matched = append(result.Matched, i)
	}
	return result
}
