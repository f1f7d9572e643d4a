// Package state holds the numeric stat store for a playback session: three
// fixed categories of open-ended string→int mappings. Keys spring into
// existence the first time a delta or condition mentions them.
package state

// Category names one of the three stat groupings. The set is closed; there
// is no fourth category.
type Category string

const (
	CategoryRelationships Category = "relationships"
	CategoryInventory     Category = "inventory"
	CategorySkills        Category = "skills"
)

// Categories lists the fixed categories in lookup order. The order matters:
// flat deltas and conditions resolve a key against the first category that
// already holds it.
var Categories = []Category{CategoryRelationships, CategoryInventory, CategorySkills}

// PlayerState is the full stat store for one session. Zero values are never
// stored explicitly; an absent key reads as 0.
type PlayerState struct {
	Relationships map[string]int `json:"relationships"`
	Inventory     map[string]int `json:"inventory"`
	Skills        map[string]int `json:"skills"`
}

// Delta is a category-tagged partial update, merged additively into a
// PlayerState. Categories left nil are untouched.
type Delta struct {
	Relationships map[string]int `json:"relationships,omitempty"`
	Inventory     map[string]int `json:"inventory,omitempty"`
	Skills        map[string]int `json:"skills,omitempty"`
}

// New returns an empty player state with all three categories allocated.
func New() *PlayerState {
	return &PlayerState{
		Relationships: make(map[string]int),
		Inventory:     make(map[string]int),
		Skills:        make(map[string]int),
	}
}

func (s *PlayerState) category(c Category) map[string]int {
	switch c {
	case CategoryRelationships:
		return s.Relationships
	case CategoryInventory:
		return s.Inventory
	case CategorySkills:
		return s.Skills
	}
	return nil
}

// Get returns the value for key in the given category, 0 when the key is
// absent or the category is not one of the fixed three.
func (s *PlayerState) Get(c Category, key string) int {
	m := s.category(c)
	if m == nil {
		return 0
	}
	return m[key]
}

// Value looks key up across all categories, returning the value from the
// first category holding it, or 0. Choice conditions use this lookup.
func (s *PlayerState) Value(key string) int {
	for _, c := range Categories {
		if m := s.category(c); m != nil {
			if v, ok := m[key]; ok {
				return v
			}
		}
	}
	return 0
}

// Apply merges a flat stat delta additively. Each key lands in the category
// that already holds it; a key present in no category defaults into
// relationships, matching how earlier exports resolved untagged keys.
func (s *PlayerState) Apply(delta map[string]int) {
	s.ensure()
	for key, adj := range delta {
		target := s.Relationships
		for _, c := range Categories {
			if m := s.category(c); m != nil {
				if _, ok := m[key]; ok {
					target = m
					break
				}
			}
		}
		target[key] += adj
	}
}

// Merge applies a category-tagged delta additively, one category at a time.
func (s *PlayerState) Merge(d *Delta) {
	if d == nil {
		return
	}
	s.ensure()
	mergeInto(s.Relationships, d.Relationships)
	mergeInto(s.Inventory, d.Inventory)
	mergeInto(s.Skills, d.Skills)
}

func mergeInto(dst, src map[string]int) {
	for k, v := range src {
		dst[k] += v
	}
}

// Satisfies reports whether every stat in cond meets its minimum threshold.
// A nil or empty condition is always satisfied.
func (s *PlayerState) Satisfies(cond map[string]int) bool {
	for key, min := range cond {
		if s.Value(key) < min {
			return false
		}
	}
	return true
}

// Replace overwrites all three categories with the snapshot's values. The
// snapshot is copied; later mutation of either side does not leak across.
func (s *PlayerState) Replace(snapshot *PlayerState) {
	if snapshot == nil {
		s.Reset()
		return
	}
	s.Relationships = copyMap(snapshot.Relationships)
	s.Inventory = copyMap(snapshot.Inventory)
	s.Skills = copyMap(snapshot.Skills)
}

// Reset empties all three categories. There is no partial reset.
func (s *PlayerState) Reset() {
	s.Relationships = make(map[string]int)
	s.Inventory = make(map[string]int)
	s.Skills = make(map[string]int)
}

// Snapshot returns a deep copy, safe to persist while the session keeps
// mutating the live state.
func (s *PlayerState) Snapshot() *PlayerState {
	return &PlayerState{
		Relationships: copyMap(s.Relationships),
		Inventory:     copyMap(s.Inventory),
		Skills:        copyMap(s.Skills),
	}
}

// ensure backfills nil category maps, which appear after JSON decoding of
// older snapshots that omitted empty categories.
func (s *PlayerState) ensure() {
	if s.Relationships == nil {
		s.Relationships = make(map[string]int)
	}
	if s.Inventory == nil {
		s.Inventory = make(map[string]int)
	}
	if s.Skills == nil {
		s.Skills = make(map[string]int)
	}
}

func copyMap(m map[string]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
