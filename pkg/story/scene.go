package story

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// DialogueLine is a single beat of dialogue: who speaks, and what they say.
// Lines are immutable once the scene is loaded.
type DialogueLine struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
}

// UnmarshalJSON accepts both the plain form {"speaker": ..., "text": "..."}
// and the legacy form where text is wrapped in an object carrying its own
// "text" field, e.g. {"speaker": ..., "text": {"text": "..."}}.
func (d *DialogueLine) UnmarshalJSON(data []byte) error {
	var raw struct {
		Speaker string          `json:"speaker"`
		Text    json.RawMessage `json:"text"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	d.Speaker = raw.Speaker

	text, err := unwrapText(raw.Text)
	if err != nil {
		return err
	}
	d.Text = text
	return nil
}

// unwrapText resolves a dialogue text payload to a plain string, peeling
// legacy {"text": ...} wrappers however deeply they are nested.
func unwrapText(raw json.RawMessage) (string, error) {
	for depth := 0; depth < 8; depth++ {
		if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
			return "", nil
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s, nil
		}
		var wrapper struct {
			Text json.RawMessage `json:"text"`
		}
		if err := json.Unmarshal(raw, &wrapper); err != nil {
			return "", fmt.Errorf("dialogue text is neither a string nor a text object: %w", err)
		}
		raw = wrapper.Text
	}
	return "", fmt.Errorf("dialogue text wrapper nested too deeply")
}

// Choice is a player-selectable edge out of a scene. A condition maps stat
// keys to minimum thresholds that must ALL hold for the choice to be
// satisfied. A delta maps stat keys to signed adjustments applied when the
// choice is taken. FailNext is followed, with no delta applied, when a
// condition exists and is not satisfied.
type Choice struct {
	ID          string         `json:"id"`
	Label       string         `json:"label"`
	Description string         `json:"description,omitempty"`
	Condition   map[string]int `json:"condition,omitempty"`
	Delta       map[string]int `json:"delta,omitempty"`
	Next        string         `json:"next"`
	FailNext    string         `json:"failNext,omitempty"`
}

// ChoiceList distinguishes a terminal scene (no choices possible, the act
// ends here) from a scene that simply has not listed its choices yet. The
// two serialize differently: terminal is JSON null, everything else is an
// array.
type ChoiceList struct {
	Terminal bool
	Items    []Choice
}

// UnmarshalJSON accepts three encodings: JSON null (terminal), the literal
// string "null" (a serialization artifact in older exports, also terminal),
// and a plain array of choices.
func (c *ChoiceList) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		c.Terminal = true
		c.Items = nil
		return nil
	}

	var s string
	if err := json.Unmarshal(trimmed, &s); err == nil {
		if s == "null" {
			c.Terminal = true
			c.Items = nil
			return nil
		}
		return fmt.Errorf("unexpected string choice list %q", s)
	}

	var items []Choice
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return fmt.Errorf("choices must be an array or null: %w", err)
	}
	c.Terminal = false
	c.Items = items
	return nil
}

// MarshalJSON writes terminal choice lists as JSON null.
func (c ChoiceList) MarshalJSON() ([]byte, error) {
	if c.Terminal {
		return []byte("null"), nil
	}
	if c.Items == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(c.Items)
}

// Scene is a node in the story graph: a setting, an ordered run of dialogue
// lines, and the choices leading out of it.
type Scene struct {
	ID       string         `json:"id"`
	Setting  string         `json:"setting"`
	Image    string         `json:"image,omitempty"`
	Dialogue []DialogueLine `json:"dialogue"`
	Choices  ChoiceList     `json:"choices"`
}

// Terminal reports whether reaching the end of this scene ends the act.
func (s *Scene) Terminal() bool {
	return s.Choices.Terminal
}

// Choice returns the outgoing choice with the given ID.
func (s *Scene) Choice(id string) (*Choice, bool) {
	for i := range s.Choices.Items {
		if s.Choices.Items[i].ID == id {
			return &s.Choices.Items[i], true
		}
	}
	return nil, false
}
