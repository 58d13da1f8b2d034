package main

import (
	"context"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/mapsc-lang/mapsc/internal/cli"
	"github.com/mapsc-lang/mapsc/session"
)

type shellOptions struct {
	configPath    string
	historyFile   string
	quiet         bool
	noHistory     bool
	quitOnError   bool
	noPrompt      bool
	e2e           bool
	transactional bool
	nonPersistent bool
	tui           bool
	verbose       bool
}

func main() {
	cmd := newRootCmd(os.Stdin, os.Stdout, os.Stderr)
	os.Exit(cli.Exit(cmd.ExecuteContext(context.Background()), os.Stderr))
}

func newRootCmd(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	var opts shellOptions
	cmd := &cobra.Command{
		Use:   "mapsci [flags]",
		Short: "Interactive Mapsc shell",
		Long: `mapsci reads Mapsc input a line at a time, evaluating each complete
statement as soon as it parses and keeping bindings between statements.
Lines starting with ':' are shell commands; see :help.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShell(cmd, opts, stdin, stdout, stderr)
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	flags := cmd.Flags()
	flags.StringVar(&opts.configPath, "config", "", "config file")
	flags.StringVar(&opts.historyFile, "history-file", "", "history location; .db/.sqlite selects a SQLite store")
	flags.BoolVarP(&opts.quiet, "quiet", "q", false, "do not echo values")
	flags.BoolVar(&opts.noHistory, "no-history", false, "neither read nor write history")
	flags.BoolVar(&opts.quitOnError, "quit-on-error", false, "exit with status 1 at the first failing statement")
	flags.BoolVar(&opts.noPrompt, "no-prompt", false, "do not print prompts")
	flags.BoolVar(&opts.e2e, "e2e-tests-mode", false, "shorthand for --no-history --quit-on-error --no-prompt")
	flags.BoolVar(&opts.transactional, "transactional", false, "drop the bindings of a failed statement")
	flags.BoolVar(&opts.nonPersistent, "non-persistent", false, "evaluate every statement in a fresh environment")
	flags.BoolVar(&opts.tui, "tui", false, "full-screen interface")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")
	return cmd
}

func runShell(cmd *cobra.Command, opts shellOptions, stdin io.Reader, stdout, stderr io.Writer) error {
	env, err := cli.Setup(opts.configPath, opts.verbose, stderr)
	if err != nil {
		return err
	}
	sessOpts := sessionOptions(cmd, opts, env)

	if opts.tui {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()
		return runTUI(ctx, sessOpts)
	}

	s, err := session.New(sessOpts)
	if err != nil {
		return err
	}
	defer s.Close()

	var reader session.LineReader
	if cli.IsTerminal(stdin) && cli.IsTerminal(stdout) {
		reader = session.NewLinerReader(s.Complete)
	} else {
		reader = session.NewPlainReader(stdin, stdout)
	}
	defer reader.Close()

	if err := s.Run(cmd.Context(), reader); err != nil {
		return err
	}
	if sessOpts.QuitOnError && s.Failed() {
		return cli.ErrFailed
	}
	return nil
}

// sessionOptions merges the config file with flags; explicitly set flags win.
func sessionOptions(cmd *cobra.Command, opts shellOptions, env *cli.Env) session.Options {
	cfg := env.Config
	flags := cmd.Flags()

	o := session.Options{
		Mode:               session.ModeInteractive,
		Quiet:              opts.quiet,
		NoHistory:          cfg.REPL.NoHistory,
		QuitOnError:        opts.quitOnError,
		NonPersistent:      opts.nonPersistent,
		Transactional:      cfg.REPL.Transactional,
		NoPrompt:           opts.noPrompt,
		Prompt:             cfg.REPL.Prompt,
		ContinuationPrompt: cfg.REPL.ContinuationPrompt,
		HistoryPath:        cfg.REPL.HistoryFile,
		RecursionLimit:     cfg.Engine.RecursionLimit,
		StepQuota:          cfg.Engine.StepQuota,
		Timeout:            cfg.Engine.Timeout.Duration,
		Stdout:             cmd.OutOrStdout(),
		Stderr:             cmd.ErrOrStderr(),
		Color:              cli.ColorEnabled(cfg.REPL.Color, cmd.ErrOrStderr()),
		Logger:             env.Logger,
	}
	if flags.Changed("no-history") {
		o.NoHistory = opts.noHistory
	}
	if flags.Changed("transactional") {
		o.Transactional = opts.transactional
	}
	if flags.Changed("history-file") {
		o.HistoryPath = opts.historyFile
	}
	if o.HistoryPath == "" {
		o.HistoryPath = session.DefaultHistoryPath()
	}
	if opts.e2e {
		o.NoHistory = true
		o.QuitOnError = true
		o.NoPrompt = true
	}
	return o
}
