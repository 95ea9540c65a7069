package models

// Target is a candidate account: a unique handle plus an opaque locator the
// automation backend resolves to a profile view. Identity is the Identifier;
// two targets with the same identifier are the same account regardless of
// locator variance.
type Target struct {
	Identifier string `json:"identifier"`
	Locator    string `json:"locator"`
}

// TargetSet accumulates targets keyed by identifier while preserving
// first-seen order. Discovery and filtering iterate in insertion order so
// runs are deterministic for a given backend response sequence.
type TargetSet struct {
	order []string
	byID  map[string]Target
}

// NewTargetSet creates an empty target set.
func NewTargetSet() *TargetSet {
	return &TargetSet{byID: make(map[string]Target)}
}

// Add inserts a target if its identifier is not already present.
// Returns true if the target was added.
func (s *TargetSet) Add(t Target) bool {
	if t.Identifier == "" {
		return false
	}
	if _, exists := s.byID[t.Identifier]; exists {
		return false
	}
	s.byID[t.Identifier] = t
	s.order = append(s.order, t.Identifier)
	return true
}

// AddAll inserts every target from the slice, returning the number added.
func (s *TargetSet) AddAll(targets []Target) int {
	added := 0
	for _, t := range targets {
		if s.Add(t) {
			added++
		}
	}
	return added
}

// Contains reports whether an identifier is present.
func (s *TargetSet) Contains(identifier string) bool {
	_, ok := s.byID[identifier]
	return ok
}

// Len returns the number of distinct targets.
func (s *TargetSet) Len() int {
	return len(s.order)
}

// Slice returns the targets in first-seen order.
func (s *TargetSet) Slice() []Target {
	out := make([]Target, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id])
	}
	return out
}
