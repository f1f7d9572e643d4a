package story

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
)

// ErrMalformedDocument is returned when a raw story document matches none of
// the known shapes, or when its choice targets do not resolve. Loading fails
// outright; no partial graph is ever returned.
var ErrMalformedDocument = errors.New("malformed story document")

var (
	actLabelRe = regexp.MustCompile(`(?i)act\D{0,3}([1-5])`)
	digitsRe   = regexp.MustCompile(`\d+`)
)

// Normalize converts a raw story document into the canonical Graph. Three
// shapes are recognized, distinguished structurally rather than by a version
// tag:
//
//  1. Canonical: {"scenes": [...], "act": n}, decoded directly.
//  2. Flat scene map: {"scene1": {...}, "scene2": {...}}, where scene IDs
//     come from the map keys and the act number is read out of a scene's
//     setting label ("Act 2: ...") when present.
//  3. Act-wrapped map: {"act2": {"scene1": {...}, ...}}, one top-level
//     container key, parsed numerically for the act number, wrapping a flat
//     scene map.
//
// Normalize is pure: same bytes in, same graph out, no I/O.
func Normalize(raw []byte) (*Graph, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil {
		return nil, fmt.Errorf("%w: not a JSON object: %v", ErrMalformedDocument, err)
	}
	if len(top) == 0 {
		return nil, fmt.Errorf("%w: empty document", ErrMalformedDocument)
	}

	if scenesRaw, ok := top["scenes"]; ok {
		return normalizeCanonical(top, scenesRaw)
	}

	if container, key, ok := actContainer(top); ok {
		scenes, err := decodeSceneMap(container)
		if err != nil {
			return nil, err
		}
		return NewGraph(actFromKey(key), scenes)
	}

	if sceneMap, ok := flatSceneMap(top); ok {
		scenes, err := decodeSceneMap(sceneMap)
		if err != nil {
			return nil, err
		}
		return NewGraph(actFromLabels(scenes), scenes)
	}

	return nil, fmt.Errorf("%w: document matches no known shape", ErrMalformedDocument)
}

func normalizeCanonical(top map[string]json.RawMessage, scenesRaw json.RawMessage) (*Graph, error) {
	var scenes []Scene
	if err := json.Unmarshal(scenesRaw, &scenes); err != nil {
		return nil, fmt.Errorf("%w: bad scenes array: %v", ErrMalformedDocument, err)
	}

	act := MinAct
	if actRaw, ok := top["act"]; ok {
		if err := json.Unmarshal(actRaw, &act); err != nil {
			return nil, fmt.Errorf("%w: bad act number: %v", ErrMalformedDocument, err)
		}
	}
	return NewGraph(act, scenes)
}

// actContainer reports whether the document is shape 3: exactly one
// top-level key whose value is a map of scene-shaped objects. A single
// top-level key whose value is itself scene-shaped is a one-scene flat map,
// not a container.
func actContainer(top map[string]json.RawMessage) (map[string]json.RawMessage, string, bool) {
	if len(top) != 1 {
		return nil, "", false
	}
	var key string
	var val json.RawMessage
	for k, v := range top {
		key, val = k, v
	}
	if looksLikeScene(val) {
		return nil, "", false
	}

	var inner map[string]json.RawMessage
	if err := json.Unmarshal(val, &inner); err != nil || len(inner) == 0 {
		return nil, "", false
	}
	for _, v := range inner {
		if !looksLikeScene(v) {
			return nil, "", false
		}
	}
	return inner, key, true
}

// flatSceneMap reports whether the document is shape 2: every top-level
// value is a scene-shaped object.
func flatSceneMap(top map[string]json.RawMessage) (map[string]json.RawMessage, bool) {
	for _, v := range top {
		if !looksLikeScene(v) {
			return nil, false
		}
	}
	return top, true
}

// looksLikeScene checks for the fields a scene object carries. Used only for
// shape sniffing; real decoding happens afterwards.
func looksLikeScene(raw json.RawMessage) bool {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return false
	}
	for _, field := range []string{"dialogue", "choices", "setting"} {
		if _, ok := obj[field]; ok {
			return true
		}
	}
	return false
}

// decodeSceneMap converts a scene map into an ordered scene slice. The map
// key is authoritative for the scene ID; any name the scene object itself
// carries is ignored so identifiers cannot drift from the references
// pointing at them. Keys are ordered naturally, so "scene2" sorts before
// "scene10".
func decodeSceneMap(m map[string]json.RawMessage) ([]Scene, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return naturalLess(keys[i], keys[j]) })

	scenes := make([]Scene, 0, len(keys))
	for _, k := range keys {
		var s Scene
		if err := json.Unmarshal(m[k], &s); err != nil {
			return nil, fmt.Errorf("%w: scene %q: %v", ErrMalformedDocument, k, err)
		}
		s.ID = k
		scenes = append(scenes, s)
	}
	return scenes, nil
}

// actFromKey pulls the act number out of a container key like "act2".
// Containers without a usable number default to act 1.
func actFromKey(key string) int {
	digits := digitsRe.FindString(key)
	if digits == "" {
		return MinAct
	}
	n, err := strconv.Atoi(digits)
	if err != nil || n < MinAct || n > MaxAct {
		return MinAct
	}
	return n
}

// actFromLabels scans scene settings in order for an "Act N" hint.
func actFromLabels(scenes []Scene) int {
	for i := range scenes {
		m := actLabelRe.FindStringSubmatch(scenes[i].Setting)
		if m == nil {
			continue
		}
		if n, err := strconv.Atoi(m[1]); err == nil {
			return n
		}
	}
	return MinAct
}

// naturalLess orders strings with embedded numbers numerically, so scene9
// precedes scene10.
func naturalLess(a, b string) bool {
	for len(a) > 0 && len(b) > 0 {
		aDigit, bDigit := isDigit(a[0]), isDigit(b[0])
		if aDigit && bDigit {
			aNum, aRest := leadingInt(a)
			bNum, bRest := leadingInt(b)
			if aNum != bNum {
				return aNum < bNum
			}
			a, b = aRest, bRest
			continue
		}
		if a[0] != b[0] {
			return a[0] < b[0]
		}
		a, b = a[1:], b[1:]
	}
	return len(a) < len(b)
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func leadingInt(s string) (int, string) {
	i := 0
	for i < len(s) && isDigit(s[i]) {
		i++
	}
	n, _ := strconv.Atoi(s[:i])
	return n, s[i:]
}
