package main

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/jwebster45206/novel-engine/pkg/engine"
	"github.com/jwebster45206/novel-engine/pkg/state"
	"github.com/jwebster45206/novel-engine/pkg/textfilter"
)

const tickInterval = 50 * time.Millisecond

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	settingStyle = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("245"))
	speakerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	textStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	cursorStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	lockedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	statStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("110"))
	endedStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("220"))
	noticeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("156"))
)

type keyMap struct {
	Advance key.Binding
	Up      key.Binding
	Down    key.Binding
	Select  key.Binding
	Copy    key.Binding
	Reset   key.Binding
	Quit    key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Advance, k.Up, k.Down, k.Select, k.Copy, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Advance, k.Select},
		{k.Up, k.Down},
		{k.Copy, k.Reset, k.Quit},
	}
}

var keys = keyMap{
	Advance: key.NewBinding(
		key.WithKeys("enter", " "),
		key.WithHelp("enter", "advance"),
	),
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "down"),
	),
	Select: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "choose"),
	),
	Copy: key.NewBinding(
		key.WithKeys("y"),
		key.WithHelp("y", "copy transcript"),
	),
	Reset: key.NewBinding(
		key.WithKeys("R"),
		key.WithHelp("R", "reset stats"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

type playOptions struct {
	storyPath string
	rating    textfilter.Rating
}

// tickMsg drives the typewriter: while a reveal is running the model polls
// the scheduler on every tick and re-renders.
type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

type model struct {
	eng    *engine.Engine
	opts   playOptions
	filter *textfilter.Filter

	title  string
	cursor int
	width  int
	notice string
	help   help.Model
}

func newModel(eng *engine.Engine, opts playOptions) model {
	base := strings.TrimSuffix(filepath.Base(opts.storyPath), filepath.Ext(opts.storyPath))
	base = strings.NewReplacer("_", " ", "-", " ").Replace(base)
	return model{
		eng:    eng,
		opts:   opts,
		filter: textfilter.New(opts.rating),
		title:  cases.Title(language.English).String(base),
		width:  80,
		help:   help.New(),
	}
}

func (m model) Init() tea.Cmd {
	m.eng.Start(context.Background())
	return tick()
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil

	case tickMsg:
		return m, tick()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	ctx := context.Background()
	m.notice = ""

	switch {
	case key.Matches(msg, keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, keys.Copy):
		m.copyTranscript()
		return m, nil

	case key.Matches(msg, keys.Reset):
		m.eng.ResetState()
		m.notice = "stats reset"
		return m, nil
	}

	switch m.eng.Phase() {
	case engine.PhaseAwaitingAdvance:
		if key.Matches(msg, keys.Advance) {
			m.eng.Advance(ctx)
			m.cursor = 0
		}

	case engine.PhaseShowingChoices:
		v := m.eng.View()
		switch {
		case key.Matches(msg, keys.Up):
			if m.cursor > 0 {
				m.cursor--
			}
		case key.Matches(msg, keys.Down):
			if m.cursor < len(v.Choices)-1 {
				m.cursor++
			}
		case key.Matches(msg, keys.Select):
			if m.cursor < len(v.Choices) {
				m.eng.SelectChoice(ctx, v.Choices[m.cursor].ID)
				m.cursor = 0
			}
		}

	case engine.PhaseEnded:
		if key.Matches(msg, keys.Advance) {
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m *model) copyTranscript() {
	v := m.eng.View()
	var b strings.Builder
	for _, line := range v.Log {
		if line.Speaker != "" {
			fmt.Fprintf(&b, "%s: %s\n", line.Speaker, m.filter.Clean(line.Text))
			continue
		}
		b.WriteString(m.filter.Clean(line.Text))
		b.WriteByte('\n')
	}
	if err := clipboard.WriteAll(b.String()); err != nil {
		m.notice = "clipboard unavailable"
		return
	}
	m.notice = "transcript copied"
}

func (m model) View() string {
	v := m.eng.View()
	wrap := m.width - 4
	if wrap < 20 {
		wrap = 20
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render(fmt.Sprintf("%s — Act %d", m.title, v.Act)))
	b.WriteByte('\n')
	if v.Setting != "" {
		b.WriteString(settingStyle.Render(v.Setting))
		b.WriteByte('\n')
	}
	b.WriteByte('\n')

	if v.Speaker != "" {
		b.WriteString(speakerStyle.Render(v.Speaker + ":"))
		b.WriteByte('\n')
	}
	b.WriteString(textStyle.Render(wordwrap.String(m.filter.Clean(v.Text), wrap)))
	b.WriteString("\n\n")

	switch v.Phase {
	case engine.PhaseAwaitingAdvance:
		if v.RevealComplete {
			b.WriteString(lockedStyle.Render("▸ press enter"))
		}
		b.WriteByte('\n')

	case engine.PhaseShowingChoices:
		for i, ch := range v.Choices {
			line := ch.Label
			if ch.Description != "" {
				line += " — " + ch.Description
			}
			if !ch.Satisfied {
				line += " (locked)"
			}
			if i == m.cursor {
				b.WriteString(cursorStyle.Render("> " + line))
			} else if !ch.Satisfied {
				b.WriteString(lockedStyle.Render("  " + line))
			} else {
				b.WriteString("  " + line)
			}
			b.WriteByte('\n')
		}

	case engine.PhaseEnded:
		b.WriteString(endedStyle.Render(fmt.Sprintf("End of Act %d", v.Act)))
		b.WriteString("\n")
		b.WriteString(lockedStyle.Render("progress saved — press enter to exit"))
		b.WriteByte('\n')
	}

	b.WriteByte('\n')
	b.WriteString(renderStats(v.State))
	b.WriteByte('\n')

	if m.notice != "" {
		b.WriteString(noticeStyle.Render(m.notice))
		b.WriteByte('\n')
	}
	b.WriteString(m.help.View(keys))
	return b.String()
}

// renderStats formats the non-zero player stats as a single status line,
// grouped by category.
func renderStats(st *state.PlayerState) string {
	if st == nil {
		return ""
	}
	var parts []string
	for _, c := range state.Categories {
		keyset := make([]string, 0)
		var vals map[string]int
		switch c {
		case state.CategoryRelationships:
			vals = st.Relationships
		case state.CategoryInventory:
			vals = st.Inventory
		case state.CategorySkills:
			vals = st.Skills
		}
		for k := range vals {
			keyset = append(keyset, k)
		}
		sort.Strings(keyset)
		for _, k := range keyset {
			parts = append(parts, fmt.Sprintf("%s %d", k, vals[k]))
		}
	}
	if len(parts) == 0 {
		return statStyle.Render("no stats yet")
	}
	return statStyle.Render(strings.Join(parts, " · "))
}
