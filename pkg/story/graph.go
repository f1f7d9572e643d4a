package story

import (
	"fmt"
)

// MinAct and MaxAct bound the act numbers a story document may carry.
const (
	MinAct = 1
	MaxAct = 5
)

// Graph is the canonical, immutable form of a story document: an ordered
// list of scenes plus the act number the document belongs to. Once built it
// is shared read-only by every component.
type Graph struct {
	Act    int     `json:"act"`
	Scenes []Scene `json:"scenes"`

	index map[string]int
}

// NewGraph builds a graph from ordered scenes and validates its structural
// invariants. Scene IDs must be unique, every non-terminal scene must have
// at least one choice, and every choice target must resolve to a scene in
// the same graph.
func NewGraph(act int, scenes []Scene) (*Graph, error) {
	if len(scenes) == 0 {
		return nil, fmt.Errorf("%w: story has no scenes", ErrMalformedDocument)
	}
	if act < MinAct || act > MaxAct {
		act = MinAct
	}

	g := &Graph{
		Act:    act,
		Scenes: scenes,
		index:  make(map[string]int, len(scenes)),
	}
	for i := range scenes {
		id := scenes[i].ID
		if id == "" {
			return nil, fmt.Errorf("%w: scene at position %d has no identifier", ErrMalformedDocument, i)
		}
		if _, dup := g.index[id]; dup {
			return nil, fmt.Errorf("%w: duplicate scene identifier %q", ErrMalformedDocument, id)
		}
		g.index[id] = i
	}

	for i := range scenes {
		if err := g.validateScene(&scenes[i]); err != nil {
			return nil, err
		}
	}
	return g, nil
}

func (g *Graph) validateScene(s *Scene) error {
	if s.Terminal() {
		return nil
	}
	if len(s.Choices.Items) == 0 {
		return fmt.Errorf("%w: scene %q is not terminal but has no choices", ErrMalformedDocument, s.ID)
	}
	for i := range s.Choices.Items {
		ch := &s.Choices.Items[i]
		if ch.Next == "" {
			return fmt.Errorf("%w: choice %q in scene %q has no target", ErrMalformedDocument, ch.ID, s.ID)
		}
		if _, ok := g.index[ch.Next]; !ok {
			return fmt.Errorf("%w: choice %q in scene %q targets unknown scene %q", ErrMalformedDocument, ch.ID, s.ID, ch.Next)
		}
		if ch.FailNext != "" {
			if _, ok := g.index[ch.FailNext]; !ok {
				return fmt.Errorf("%w: choice %q in scene %q has unknown fail target %q", ErrMalformedDocument, ch.ID, s.ID, ch.FailNext)
			}
		}
	}
	return nil
}

// Scene returns the scene with the given identifier.
func (g *Graph) Scene(id string) (*Scene, bool) {
	i, ok := g.index[id]
	if !ok {
		return nil, false
	}
	return &g.Scenes[i], true
}

// First returns the opening scene of the act.
func (g *Graph) First() *Scene {
	return &g.Scenes[0]
}
