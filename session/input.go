package session

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/peterh/liner"
)

// ErrInterrupted is returned by a LineReader when the user aborts the
// current line.
var ErrInterrupted = errors.New("input interrupted")

// LineReader supplies interactive input one line at a time. ReadLine returns
// io.EOF at end of input.
type LineReader interface {
	ReadLine(prompt string) (string, error)
	AppendHistory(line string)
	LoadHistory(lines []string)
	Close() error
}

type linerReader struct {
	ln *liner.State
}

// NewLinerReader reads from the terminal with line editing and history
// recall. complete may be nil.
func NewLinerReader(complete func(string) []string) LineReader {
	ln := liner.NewLiner()
	ln.SetCtrlCAborts(true)
	ln.SetMultiLineMode(true)
	if complete != nil {
		ln.SetCompleter(complete)
	}
	return &linerReader{ln: ln}
}

func (r *linerReader) ReadLine(prompt string) (string, error) {
	line, err := r.ln.Prompt(prompt)
	if errors.Is(err, liner.ErrPromptAborted) {
		return "", ErrInterrupted
	}
	return line, err
}

func (r *linerReader) AppendHistory(line string) {
	if line = flattenHistoryLine(line); line != "" {
		r.ln.AppendHistory(line)
	}
}

func (r *linerReader) LoadHistory(lines []string) {
	_, _ = r.ln.ReadHistory(strings.NewReader(strings.Join(lines, "\n")))
}

func (r *linerReader) Close() error {
	return r.ln.Close()
}

type plainReader struct {
	in  *bufio.Reader
	out io.Writer
}

// NewPlainReader reads lines from in, writing prompts to out. It is used for
// piped input and transcripts.
func NewPlainReader(in io.Reader, out io.Writer) LineReader {
	return &plainReader{in: bufio.NewReader(in), out: out}
}

func (r *plainReader) ReadLine(prompt string) (string, error) {
	if prompt != "" && r.out != nil {
		fmt.Fprint(r.out, prompt)
	}
	line, err := r.in.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return strings.TrimRight(line, "\r"), nil
		}
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (r *plainReader) AppendHistory(string) {}
func (r *plainReader) LoadHistory([]string) {}
func (r *plainReader) Close() error         { return nil }

// Run drives the session from r until end of input or termination. An
// interrupt while a unit is evaluating cancels that unit only.
func (s *Session) Run(ctx context.Context, r LineReader) error {
	s.state = AwaitingInput
	if lines, err := s.history.Load(); err != nil {
		s.logger.Warn("history load failed", "error", err)
	} else {
		r.LoadHistory(lines)
	}

	for s.state != Terminated {
		if ctx.Err() != nil {
			break
		}
		line, err := r.ReadLine(s.Prompt())
		switch {
		case errors.Is(err, io.EOF):
			if _, err := s.Flush(ctx); err != nil && !errors.Is(err, ErrTerminated) {
				return err
			}
			s.state = Terminated
			return nil
		case errors.Is(err, ErrInterrupted):
			s.Discard()
			continue
		case err != nil:
			return fmt.Errorf("read input: %w", err)
		}

		if strings.TrimSpace(line) != "" {
			r.AppendHistory(line)
		}
		evalCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
		_, err = s.Feed(evalCtx, line)
		stop()
		if err != nil && !errors.Is(err, ErrTerminated) {
			return err
		}
	}
	s.state = Terminated
	return nil
}
