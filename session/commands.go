package session

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/mapsc-lang/mapsc/maps"
)

const helpText = `Commands:
  :q, :quit, :exit      leave the shell
  :help                 show this help
  :vars                 list bindings in the root environment
  :reset                start over with an empty environment
  :discard              drop a partially entered unit
  :history              show recorded input
  :t <expr>             evaluate expr and print its shape
  :parsed <src>         print src fully parenthesised
  :toggle <name>        flip eval, quiet or quit_on_error`

func (s *Session) runCommand(ctx context.Context, input string) {
	command, arg, _ := strings.Cut(input, " ")
	arg = strings.TrimSpace(arg)
	out := s.opts.Stdout

	switch command {
	case ":q", ":quit", ":exit", ":e", ":c", ":close":
		s.state = Terminated
	case ":help", ":h":
		fmt.Fprintln(out, helpText)
	case ":vars", ":v":
		names := s.env.Names()
		if len(names) == 0 {
			fmt.Fprintln(out, "no bindings")
			return
		}
		for _, name := range names {
			val, _ := s.env.Lookup(name)
			fmt.Fprintf(out, "%s = %s\n", name, val.Inspect())
		}
	case ":discard", ":d":
		if !s.Pending() {
			fmt.Fprintln(out, "nothing pending")
			return
		}
		s.pending = nil
		fmt.Fprintln(out, "pending input discarded")
	case ":reset", ":r":
		s.env = s.engine.NewRootEnv()
		fmt.Fprintln(out, "environment reset")
	case ":history":
		lines, err := s.history.Load()
		if err != nil {
			fmt.Fprintln(s.opts.Stderr, err)
			return
		}
		for i, line := range lines {
			fmt.Fprintf(out, "%4d  %s\n", i+1, line)
		}
	case ":t":
		s.typeCommand(ctx, arg)
	case ":parsed":
		program, err := maps.Parse(arg)
		if err != nil {
			fmt.Fprintln(s.opts.Stderr, s.styles.diagnostic(maps.DiagnosticFrom(err), ""))
			return
		}
		fmt.Fprintln(out, maps.Format(program))
	case ":toggle":
		s.toggle(arg)
	default:
		fmt.Fprintf(s.opts.Stderr, "%q is not a command\n", command)
	}
}

// typeCommand evaluates in a child scope so let bindings do not leak.
func (s *Session) typeCommand(ctx context.Context, src string) {
	program, err := maps.Parse(src)
	if err != nil {
		fmt.Fprintln(s.opts.Stderr, s.styles.diagnostic(maps.DiagnosticFrom(err), ""))
		return
	}
	result, err := s.engine.Eval(ctx, program, maps.NewEnv(s.env))
	if err != nil {
		fmt.Fprintln(s.opts.Stderr, s.styles.diagnostic(maps.DiagnosticFrom(err), ""))
		return
	}
	fmt.Fprintln(s.opts.Stdout, maps.TypeOf(result.Value))
}

func (s *Session) toggle(name string) {
	var on bool
	switch name {
	case "eval":
		s.evalEnabled = !s.evalEnabled
		on = s.evalEnabled
	case "quiet":
		s.opts.Quiet = !s.opts.Quiet
		on = s.opts.Quiet
	case "quit_on_error", "stop_on_error":
		s.opts.QuitOnError = !s.opts.QuitOnError
		on = s.opts.QuitOnError
	default:
		fmt.Fprintf(s.opts.Stderr, "%q is not a toggle\n", name)
		return
	}
	state := "off"
	if on {
		state = "on"
	}
	fmt.Fprintf(s.opts.Stdout, "%s %s\n", name, state)
}

// Complete offers completions of the last word of line: keywords, builtins
// and root bindings.
func (s *Session) Complete(line string) []string {
	start := strings.LastIndexFunc(line, func(r rune) bool {
		return !(r == '_' || r == '\'' || 'a' <= r && r <= 'z' || 'A' <= r && r <= 'Z' || '0' <= r && r <= '9')
	}) + 1
	prefix, word := line[:start], line[start:]
	if word == "" {
		return nil
	}

	candidates := maps.Keywords()
	for name := range s.engine.Builtins() {
		candidates = append(candidates, name)
	}
	candidates = append(candidates, s.env.Names()...)
	slices.Sort(candidates)
	candidates = slices.Compact(candidates)

	var out []string
	for _, c := range candidates {
		if strings.HasPrefix(c, word) {
			out = append(out, prefix+c)
		}
	}
	return out
}
