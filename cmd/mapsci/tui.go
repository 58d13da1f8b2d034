package main

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mapsc-lang/mapsc/maps"
	"github.com/mapsc-lang/mapsc/session"
)

var (
	accentColor    = lipgloss.Color("#3B82F6")
	successColor   = lipgloss.Color("#10B981")
	errorColor     = lipgloss.Color("#EF4444")
	mutedColor     = lipgloss.Color("#6B7280")
	highlightColor = lipgloss.Color("#F59E0B")

	promptStyle = lipgloss.NewStyle().
			Foreground(accentColor).
			Bold(true)

	resultStyle = lipgloss.NewStyle().
			Foreground(successColor)

	errorStyle = lipgloss.NewStyle().
			Foreground(errorColor)

	mutedStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	headerStyle = lipgloss.NewStyle().
			Foreground(accentColor).
			Bold(true).
			Padding(0, 1)

	helpKeyStyle = lipgloss.NewStyle().
			Foreground(highlightColor)

	helpDescStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	borderStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accentColor).
			Padding(0, 1)
)

// transcriptEntry is one input line with whatever the session wrote in
// response.
type transcriptEntry struct {
	input  string
	output string
	errors string
}

type tuiModel struct {
	textInput   textinput.Model
	ctx         context.Context
	session     *session.Session
	stdout      *bytes.Buffer
	stderr      *bytes.Buffer
	entries     []transcriptEntry
	cmdHistory  []string
	historyIdx  int
	width       int
	height      int
	showHelp    bool
	showVars    bool
	quitting    bool
	initialized bool
}

type keyMap struct {
	Up    key.Binding
	Down  key.Binding
	Enter key.Binding
	CtrlC key.Binding
	CtrlD key.Binding
	CtrlL key.Binding
	Tab   key.Binding
	CtrlV key.Binding
	CtrlK key.Binding
}

var keys = keyMap{
	Up: key.NewBinding(
		key.WithKeys("up"),
		key.WithHelp("↑", "previous input"),
	),
	Down: key.NewBinding(
		key.WithKeys("down"),
		key.WithHelp("↓", "next input"),
	),
	Enter: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "submit line"),
	),
	CtrlC: key.NewBinding(
		key.WithKeys("ctrl+c"),
		key.WithHelp("ctrl+c", "quit"),
	),
	CtrlD: key.NewBinding(
		key.WithKeys("ctrl+d"),
		key.WithHelp("ctrl+d", "quit"),
	),
	CtrlL: key.NewBinding(
		key.WithKeys("ctrl+l"),
		key.WithHelp("ctrl+l", "clear"),
	),
	Tab: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("tab", "autocomplete"),
	),
	CtrlV: key.NewBinding(
		key.WithKeys("ctrl+v"),
		key.WithHelp("ctrl+v", "toggle vars"),
	),
	CtrlK: key.NewBinding(
		key.WithKeys("ctrl+k"),
		key.WithHelp("ctrl+k", "toggle help"),
	),
}

// newTUIModel builds the full-screen shell. opts.Stdout and opts.Stderr are
// replaced with buffers the view drains after every line.
func newTUIModel(ctx context.Context, opts session.Options) (tuiModel, error) {
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	opts.Stdout = stdout
	opts.Stderr = stderr
	opts.Color = false
	s, err := session.New(opts)
	if err != nil {
		return tuiModel{}, err
	}

	ti := textinput.New()
	ti.Placeholder = "type an expression..."
	ti.Focus()
	ti.CharLimit = 2000
	ti.Width = 60
	ti.PromptStyle = promptStyle
	ti.Prompt = s.Prompt()

	m := tuiModel{
		textInput:  ti,
		ctx:        ctx,
		session:    s,
		stdout:     stdout,
		stderr:     stderr,
		historyIdx: -1,
	}
	if lines, err := s.History().Load(); err == nil {
		m.cmdHistory = lines
	}
	return m, nil
}

func (m tuiModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.textInput.Width = msg.Width - 10
		m.initialized = true
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.CtrlC), key.Matches(msg, keys.CtrlD):
			if key.Matches(msg, keys.CtrlC) && m.session.Pending() {
				m.session.Discard()
				m.textInput.SetValue("")
				m.textInput.Prompt = m.prompt()
				return m, nil
			}
			m.quitting = true
			return m, tea.Quit

		case key.Matches(msg, keys.CtrlL):
			m.entries = nil
			return m, nil

		case key.Matches(msg, keys.CtrlV):
			m.showVars = !m.showVars
			return m, nil

		case key.Matches(msg, keys.CtrlK):
			m.showHelp = !m.showHelp
			return m, nil

		case key.Matches(msg, keys.Up):
			if len(m.cmdHistory) > 0 {
				if m.historyIdx == -1 {
					m.historyIdx = len(m.cmdHistory) - 1
				} else if m.historyIdx > 0 {
					m.historyIdx--
				}
				m.textInput.SetValue(m.cmdHistory[m.historyIdx])
				m.textInput.CursorEnd()
			}
			return m, nil

		case key.Matches(msg, keys.Down):
			if m.historyIdx != -1 {
				if m.historyIdx < len(m.cmdHistory)-1 {
					m.historyIdx++
					m.textInput.SetValue(m.cmdHistory[m.historyIdx])
				} else {
					m.historyIdx = -1
					m.textInput.SetValue("")
				}
				m.textInput.CursorEnd()
			}
			return m, nil

		case key.Matches(msg, keys.Tab):
			m = m.handleAutocomplete()
			return m, nil

		case key.Matches(msg, keys.Enter):
			return m.submit(m.textInput.Value())
		}
	}

	m.textInput, cmd = m.textInput.Update(msg)
	return m, cmd
}

// submit feeds one line to the session and records what it printed.
func (m tuiModel) submit(line string) (tea.Model, tea.Cmd) {
	trimmed := strings.TrimSpace(line)
	m.textInput.SetValue("")
	m.historyIdx = -1
	if trimmed == "" && !m.session.Pending() {
		return m, nil
	}
	if trimmed == ":clear" && !m.session.Pending() {
		m.entries = nil
		return m, nil
	}
	if trimmed != "" {
		m.cmdHistory = append(m.cmdHistory, line)
	}

	_, err := m.session.Feed(m.ctx, line)
	entry := transcriptEntry{
		input:  line,
		output: strings.TrimRight(m.stdout.String(), "\n"),
		errors: strings.TrimRight(m.stderr.String(), "\n"),
	}
	m.stdout.Reset()
	m.stderr.Reset()
	if err != nil {
		entry.errors = err.Error()
	}
	m.entries = append(m.entries, entry)
	m.textInput.Prompt = m.prompt()

	if m.session.Terminated() {
		m.quitting = true
		return m, tea.Quit
	}
	return m, nil
}

func (m tuiModel) prompt() string {
	if p := m.session.Prompt(); p != "" {
		return p
	}
	return session.DefaultPrompt
}

func (m tuiModel) handleAutocomplete() tuiModel {
	input := m.textInput.Value()
	if input == "" {
		return m
	}
	completions := m.session.Complete(input)
	if len(completions) == 1 {
		m.textInput.SetValue(completions[0])
		m.textInput.CursorEnd()
	} else if len(completions) > 1 {
		words := make([]string, len(completions))
		for i, c := range completions {
			words[i] = lastWord(c)
		}
		m.entries = append(m.entries, transcriptEntry{
			output: "completions: " + strings.Join(words, ", "),
		})
	}
	return m
}

func lastWord(s string) string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return !(r == '_' || r == '\'' || 'a' <= r && r <= 'z' || 'A' <= r && r <= 'Z' || '0' <= r && r <= '9')
	})
	if len(fields) == 0 {
		return s
	}
	return fields[len(fields)-1]
}

func (m tuiModel) View() string {
	if !m.initialized {
		return "Loading..."
	}

	if m.quitting {
		return mutedStyle.Render("bye\n")
	}

	var b strings.Builder

	header := headerStyle.Render("mapsci")
	version := mutedStyle.Render("language " + maps.LanguageVersion)
	b.WriteString(header + " " + version + "\n")
	b.WriteString(mutedStyle.Render(strings.Repeat("─", max(min(m.width-2, 60), 0))) + "\n\n")

	reservedLines := 8
	if m.showHelp {
		reservedLines += 10
	}
	if m.showVars {
		reservedLines += len(m.session.Env().Names()) + 3
	}
	availableHeight := max(m.height-reservedLines, 1)

	start := 0
	if len(m.entries) > availableHeight {
		start = len(m.entries) - availableHeight
	}
	for _, entry := range m.entries[start:] {
		if entry.input != "" {
			b.WriteString(mutedStyle.Render("  › ") + entry.input + "\n")
		}
		for _, line := range splitNonEmpty(entry.output) {
			b.WriteString("  " + resultStyle.Render("→ "+line) + "\n")
		}
		for _, line := range splitNonEmpty(entry.errors) {
			b.WriteString("  " + errorStyle.Render("✗ "+line) + "\n")
		}
	}
	b.WriteString("\n")

	if m.showVars {
		b.WriteString(renderVarsPanel(m.session.Env()))
		b.WriteString("\n")
	}

	if m.showHelp {
		b.WriteString(renderHelpPanel())
		b.WriteString("\n")
	}

	b.WriteString(m.textInput.View() + "\n\n")

	footer := helpKeyStyle.Render("ctrl+k") + helpDescStyle.Render(" help  ") +
		helpKeyStyle.Render("ctrl+v") + helpDescStyle.Render(" vars  ") +
		helpKeyStyle.Render("ctrl+l") + helpDescStyle.Render(" clear  ") +
		helpKeyStyle.Render("ctrl+d") + helpDescStyle.Render(" quit")
	b.WriteString(footer)

	return b.String()
}

func splitNonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

func renderVarsPanel(env *maps.Env) string {
	names := env.Names()
	if len(names) == 0 {
		return borderStyle.Render(mutedStyle.Render("no bindings"))
	}

	var lines []string
	lines = append(lines, lipgloss.NewStyle().Bold(true).Foreground(accentColor).Render("Bindings"))
	nameStyle := lipgloss.NewStyle().Foreground(highlightColor)
	for _, name := range names {
		val, _ := env.Lookup(name)
		lines = append(lines, fmt.Sprintf("  %s = %s", nameStyle.Render(name), val.Inspect()))
	}
	return borderStyle.Render(strings.Join(lines, "\n"))
}

func renderHelpPanel() string {
	help := []struct {
		key  string
		desc string
	}{
		{"↑/↓", "Navigate input history"},
		{"Tab", "Autocomplete"},
		{"Enter", "Submit line"},
		{":help", "List shell commands"},
		{":vars", "Print bindings"},
		{":clear", "Clear the transcript"},
		{":reset", "Reset environment"},
		{":quit", "Exit"},
	}

	var lines []string
	lines = append(lines, lipgloss.NewStyle().Bold(true).Foreground(accentColor).Render("Help"))
	for _, h := range help {
		line := fmt.Sprintf("  %s  %s",
			helpKeyStyle.Render(fmt.Sprintf("%-8s", h.key)),
			helpDescStyle.Render(h.desc))
		lines = append(lines, line)
	}

	return borderStyle.Render(strings.Join(lines, "\n"))
}

func runTUI(ctx context.Context, opts session.Options) error {
	m, err := newTUIModel(ctx, opts)
	if err != nil {
		return err
	}
	defer m.session.Close()
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err = p.Run()
	return err
}
