package main

import (
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mapsc-lang/mapsc/session"
)

func newTestModel(t *testing.T) tuiModel {
	t.Helper()
	m, err := newTUIModel(context.Background(), session.Options{Mode: session.ModeInteractive, NoHistory: true})
	if err != nil {
		t.Fatalf("new model: %v", err)
	}
	t.Cleanup(func() { m.session.Close() })
	return m
}

func enter(t *testing.T, m tuiModel, line string) (tuiModel, tea.Cmd) {
	t.Helper()
	m.textInput.SetValue(line)
	model, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	next, ok := model.(tuiModel)
	if !ok {
		t.Fatalf("unexpected model type %T", model)
	}
	return next, cmd
}

func TestQuitCommandReturnsQuit(t *testing.T) {
	m, cmd := enter(t, newTestModel(t), ":quit")
	if !m.quitting {
		t.Fatalf("quitting flag not set")
	}
	if m.textInput.Value() != "" {
		t.Fatalf("input not cleared after quit command")
	}
	if cmd == nil {
		t.Fatalf("expected tea.Quit command")
	}
	if msg := cmd(); msg != nil {
		if _, ok := msg.(tea.QuitMsg); !ok {
			t.Fatalf("expected QuitMsg, got %T", msg)
		}
	}
}

func TestEvaluationIsRecorded(t *testing.T) {
	m, cmd := enter(t, newTestModel(t), "1 + 2")
	if cmd != nil {
		t.Fatalf("expected no command for an expression")
	}
	if len(m.entries) != 1 || m.entries[0].output != "3" || m.entries[0].errors != "" {
		t.Fatalf("unexpected entries %+v", m.entries)
	}

	m, _ = enter(t, m, "nope")
	if last := m.entries[len(m.entries)-1]; !strings.Contains(last.errors, "unbound identifier nope") {
		t.Fatalf("expected error entry, got %+v", last)
	}
}

func TestMultiLineInputUsesContinuationPrompt(t *testing.T) {
	m, _ := enter(t, newTestModel(t), "let f x =")
	if m.textInput.Prompt != session.DefaultContinuationPrompt {
		t.Fatalf("expected continuation prompt, got %q", m.textInput.Prompt)
	}
	m, _ = enter(t, m, "  x + 1")
	if m.textInput.Prompt != session.DefaultPrompt {
		t.Fatalf("expected primary prompt, got %q", m.textInput.Prompt)
	}
	m, _ = enter(t, m, "f(1)")
	if last := m.entries[len(m.entries)-1]; last.output != "2" {
		t.Fatalf("unexpected result %+v", last)
	}
	if _, ok := m.session.Env().Get("f"); !ok {
		t.Fatalf("f should be bound in the session")
	}
}

func TestCtrlCDiscardsPendingInput(t *testing.T) {
	m, _ := enter(t, newTestModel(t), "let f x =")
	model, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	m = model.(tuiModel)
	if cmd != nil || m.quitting {
		t.Fatalf("ctrl+c with pending input should not quit")
	}
	if m.session.Pending() {
		t.Fatalf("pending input should be discarded")
	}
}

func TestClearAndAutocomplete(t *testing.T) {
	m, _ := enter(t, newTestModel(t), "1")
	m, _ = enter(t, m, ":clear")
	if len(m.entries) != 0 {
		t.Fatalf(":clear should empty the transcript")
	}

	m.textInput.SetValue("whi")
	model, _ := m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m = model.(tuiModel)
	if m.textInput.Value() != "while" {
		t.Fatalf("expected single completion, got %q", m.textInput.Value())
	}

	m.textInput.SetValue("x + print")
	model, _ = m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m = model.(tuiModel)
	if len(m.entries) != 1 || m.entries[0].output != "completions: print, println" {
		t.Fatalf("unexpected completion entries %+v", m.entries)
	}
}

func TestViewShowsTranscript(t *testing.T) {
	m := newTestModel(t)
	model, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 40})
	m = model.(tuiModel)
	m, _ = enter(t, m, "let a = 40")
	m, _ = enter(t, m, "a + 2")
	m.showVars = true
	view := m.View()
	for _, want := range []string{"mapsci", "a + 2", "42", "Bindings"} {
		if !strings.Contains(view, want) {
			t.Fatalf("view missing %q:\n%s", want, view)
		}
	}
}
