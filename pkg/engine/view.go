package engine

import (
	"github.com/jwebster45206/novel-engine/pkg/reveal"
	"github.com/jwebster45206/novel-engine/pkg/state"
	"github.com/jwebster45206/novel-engine/pkg/story"
)

// ChoiceView is a choice annotated with whether the player currently meets
// its condition. Unsatisfied choices remain selectable; the annotation lets
// the presentation layer grey them out or warn.
type ChoiceView struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
	Satisfied   bool   `json:"satisfied"`
}

// View is everything the presentation layer needs after a transition: the
// current scene, the revealed dialogue so far, the annotated choices, and
// the player state. It carries copies; mutating a View never touches the
// engine.
type View struct {
	Act     int    `json:"act"`
	SceneID string `json:"scene_id"`
	Setting string `json:"setting"`
	Image   string `json:"image,omitempty"`
	Phase   Phase  `json:"phase"`

	Speaker        string       `json:"speaker,omitempty"`
	Text           string       `json:"text"`
	FullText       string       `json:"full_text"`
	RevealComplete bool         `json:"reveal_complete"`
	TextSpeed      reveal.Speed `json:"text_speed"`

	Log     []story.DialogueLine `json:"log,omitempty"`
	Choices []ChoiceView         `json:"choices,omitempty"`
	State   *state.PlayerState   `json:"state"`
}

// View renders the current presentation snapshot.
func (e *Engine) View() View {
	v := View{
		Act:            e.graph.Act,
		Phase:          e.phase,
		Text:           e.sched.Text(),
		FullText:       e.sched.Full(),
		RevealComplete: e.sched.IsComplete(),
		TextSpeed:      e.sched.Speed(),
		State:          e.st.Snapshot(),
	}

	if e.scene == nil {
		return v
	}
	v.SceneID = e.scene.ID
	v.Setting = e.scene.Setting
	v.Image = e.scene.Image

	if len(e.scene.Dialogue) > 0 {
		v.Speaker = e.scene.Dialogue[e.lineIndex].Speaker
	}

	if len(e.dialogueLog) > 0 {
		v.Log = make([]story.DialogueLine, len(e.dialogueLog))
		copy(v.Log, e.dialogueLog)
	}

	if e.phase == PhaseShowingChoices {
		v.Choices = make([]ChoiceView, 0, len(e.scene.Choices.Items))
		for i := range e.scene.Choices.Items {
			ch := &e.scene.Choices.Items[i]
			v.Choices = append(v.Choices, ChoiceView{
				ID:          ch.ID,
				Label:       ch.Label,
				Description: ch.Description,
				Satisfied:   e.st.Satisfies(ch.Condition),
			})
		}
	}
	return v
}
