package session

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mapsc-lang/mapsc/maps"
)

var (
	errorColor   = lipgloss.Color("#EF4444")
	warningColor = lipgloss.Color("#F59E0B")
	mutedColor   = lipgloss.Color("#6B7280")
	successColor = lipgloss.Color("#10B981")
)

type styles struct {
	enabled bool
	err     lipgloss.Style
	warning lipgloss.Style
	muted   lipgloss.Style
	value   lipgloss.Style
}

func newStyles(enabled bool) styles {
	return styles{
		enabled: enabled,
		err:     lipgloss.NewStyle().Foreground(errorColor).Bold(true),
		warning: lipgloss.NewStyle().Foreground(warningColor),
		muted:   lipgloss.NewStyle().Foreground(mutedColor),
		value:   lipgloss.NewStyle().Foreground(successColor),
	}
}

func (st styles) render(style lipgloss.Style, text string) string {
	if !st.enabled {
		return text
	}
	return style.Render(text)
}

// RenderDiagnostic formats a diagnostic with its code frame. file prefixes
// the header when set.
func RenderDiagnostic(d maps.Diagnostic, file string) string {
	return newStyles(false).diagnostic(d, file)
}

func (st styles) diagnostic(d maps.Diagnostic, file string) string {
	header := d.String()
	if file != "" {
		header = file + ": " + header
	}
	style := st.err
	if !d.IsError() {
		style = st.warning
	}

	var b strings.Builder
	b.WriteString(st.render(style, header))
	// Detail repeats the message on its first line; the rest is the code
	// frame and call stack.
	if _, rest, ok := strings.Cut(d.Detail, "\n"); ok && rest != "" {
		b.WriteString("\n")
		b.WriteString(st.render(st.muted, rest))
	}
	return b.String()
}

func (s *Session) report(unit *Unit) {
	if unit.Skipped {
		if !s.opts.Quiet && unit.Program != nil {
			fmt.Fprintln(s.opts.Stdout, maps.Format(unit.Program))
		}
		return
	}

	for _, d := range unit.Diagnostics {
		fmt.Fprintln(s.opts.Stderr, s.styles.diagnostic(d, s.file))
	}

	if unit.Failed() || s.opts.Quiet || s.opts.Mode != ModeInteractive || unit.Value.IsUnit() {
		return
	}
	if unit.Output != "" && !strings.HasSuffix(unit.Output, "\n") {
		fmt.Fprintln(s.opts.Stdout)
	}
	fmt.Fprintln(s.opts.Stdout, s.styles.render(s.styles.value, unit.Value.Inspect()))
}
