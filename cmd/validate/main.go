// Command validate lints story documents before they are shipped to the
// data directory: it normalizes the document (accepting any of the legacy
// shapes), then reports structural problems the normalizer tolerates but an
// author probably does not want.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/jwebster45206/novel-engine/pkg/story"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <story.json> [more.json ...]\n", os.Args[0])
		os.Exit(1)
	}

	failed := false
	for _, filename := range os.Args[1:] {
		v := &storyValidator{}
		if err := v.validateFile(filename); err != nil {
			fmt.Fprintf(os.Stderr, "%s: FAILED\n%v\n", filename, err)
			failed = true
			continue
		}
		fmt.Printf("%s: OK\n", filename)
	}
	if failed {
		os.Exit(1)
	}
}

type storyValidator struct {
	warnings []string
}

func (v *storyValidator) validateFile(filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	if !json.Valid(data) {
		return fmt.Errorf("file contains invalid JSON")
	}

	graph, err := story.Normalize(data)
	if err != nil {
		return err
	}

	v.lintGraph(graph)

	if len(v.warnings) > 0 {
		return fmt.Errorf("lint errors:\n  %s", strings.Join(v.warnings, "\n  "))
	}

	fmt.Printf("  act %d, %d scenes\n", graph.Act, len(graph.Scenes))
	return nil
}

func (v *storyValidator) warnf(format string, args ...any) {
	v.warnings = append(v.warnings, fmt.Sprintf(format, args...))
}

func (v *storyValidator) lintGraph(g *story.Graph) {
	reachable := reachableScenes(g)
	terminals := 0

	for i := range g.Scenes {
		s := &g.Scenes[i]
		if s.Terminal() {
			terminals++
		}
		if s.Setting == "" {
			v.warnf("scene %q has no setting label", s.ID)
		}
		if !reachable[s.ID] {
			v.warnf("scene %q is unreachable from the opening scene", s.ID)
		}

		seen := make(map[string]bool)
		for j := range s.Choices.Items {
			ch := &s.Choices.Items[j]
			if ch.ID == "" {
				v.warnf("scene %q has a choice with no identifier", s.ID)
				continue
			}
			if seen[ch.ID] {
				v.warnf("scene %q has duplicate choice identifier %q", s.ID, ch.ID)
			}
			seen[ch.ID] = true
			if ch.Label == "" {
				v.warnf("choice %q in scene %q has no label", ch.ID, s.ID)
			}
			if ch.FailNext != "" && len(ch.Condition) == 0 {
				v.warnf("choice %q in scene %q has a fail target but no condition", ch.ID, s.ID)
			}
		}

		for j := range s.Dialogue {
			if s.Dialogue[j].Text == "" {
				v.warnf("scene %q dialogue line %d is empty", s.ID, j)
			}
		}
	}

	if terminals == 0 {
		v.warnf("story has no terminal scene; the act can never complete")
	}
}

// reachableScenes walks choice edges from the opening scene.
func reachableScenes(g *story.Graph) map[string]bool {
	reachable := make(map[string]bool, len(g.Scenes))
	queue := []string{g.First().ID}

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if reachable[id] {
			continue
		}
		reachable[id] = true

		s, ok := g.Scene(id)
		if !ok {
			continue
		}
		for i := range s.Choices.Items {
			ch := &s.Choices.Items[i]
			queue = append(queue, ch.Next)
			if ch.FailNext != "" {
				queue = append(queue, ch.FailNext)
			}
		}
	}
	return reachable
}
