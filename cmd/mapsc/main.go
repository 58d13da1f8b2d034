package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/mapsc-lang/mapsc/internal/cli"
	"github.com/mapsc-lang/mapsc/maps"
	"github.com/mapsc-lang/mapsc/session"
)

type runOptions struct {
	configPath     string
	check          bool
	printParsed    bool
	tokens         bool
	quitOnError    bool
	quiet          bool
	verbose        bool
	stepQuota      int
	recursionLimit int
	timeout        time.Duration
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	cmd := newRootCmd(os.Stdout, os.Stderr)
	code := cli.Exit(cmd.ExecuteContext(ctx), os.Stderr)
	stop()
	os.Exit(code)
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var opts runOptions
	cmd := &cobra.Command{
		Use:   "mapsc [flags] file.maps...",
		Short: "Run Mapsc programs",
		Long: `mapsc parses each file and evaluates its top-level statements in order,
sharing one environment per file. It exits with status 1 when any
statement fails.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFiles(cmd, opts, args, stdout, stderr)
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	flags := cmd.Flags()
	flags.StringVar(&opts.configPath, "config", "", "config file (default: $MAPSC_CONFIG, ./mapsc.toml, $XDG_CONFIG_HOME/mapsc/config.toml)")
	flags.BoolVar(&opts.check, "check", false, "parse only, report syntax errors")
	flags.BoolVar(&opts.printParsed, "print-parsed", false, "print the fully parenthesised program instead of running it")
	flags.BoolVar(&opts.tokens, "tokens", false, "print the token stream instead of running")
	flags.BoolVar(&opts.quitOnError, "quit-on-error", false, "stop at the first failing statement")
	flags.BoolVarP(&opts.quiet, "quiet", "q", false, "suppress non-essential output")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")
	flags.IntVar(&opts.stepQuota, "step-quota", 0, "evaluation steps allowed per statement (0 = unlimited)")
	flags.IntVar(&opts.recursionLimit, "recursion-limit", 0, "maximum call depth (0 = default)")
	flags.DurationVar(&opts.timeout, "timeout", 0, "time allowed per statement (0 = unbounded)")
	return cmd
}

func runFiles(cmd *cobra.Command, opts runOptions, paths []string, stdout, stderr io.Writer) error {
	env, err := cli.Setup(opts.configPath, opts.verbose, stderr)
	if err != nil {
		return err
	}
	cfg := env.Config
	if !cmd.Flags().Changed("step-quota") {
		opts.stepQuota = cfg.Engine.StepQuota
	}
	if !cmd.Flags().Changed("recursion-limit") {
		opts.recursionLimit = cfg.Engine.RecursionLimit
	}
	if !cmd.Flags().Changed("timeout") {
		opts.timeout = cfg.Engine.Timeout.Duration
	}
	color := cli.ColorEnabled(cfg.REPL.Color, stderr)

	ctx := cmd.Context()
	failed := false
	for _, path := range paths {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		data, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(stderr, "%s: %v\n", path, err)
			failed = true
			continue
		}
		source := string(data)

		if opts.tokens {
			failed = !printTokens(stdout, stderr, path, source) || failed
			continue
		}
		if opts.check || opts.printParsed {
			var parseOpts []maps.ParseOption
			if opts.verbose {
				parseOpts = append(parseOpts, maps.WithTokenTrace(env.Logger))
			}
			program, err := maps.Parse(source, parseOpts...)
			if err != nil {
				fmt.Fprintln(stderr, session.RenderDiagnostic(maps.DiagnosticFrom(err), path))
				failed = true
				continue
			}
			if opts.printParsed {
				fmt.Fprintln(stdout, maps.Format(program))
			}
			continue
		}

		s, err := session.New(session.Options{
			Mode:           session.ModeBatch,
			Quiet:          opts.quiet,
			QuitOnError:    opts.quitOnError,
			RecursionLimit: opts.recursionLimit,
			StepQuota:      opts.stepQuota,
			Timeout:        opts.timeout,
			Stdout:         stdout,
			Stderr:         stderr,
			Color:          color,
			Logger:         env.Logger.With("file", path),
		})
		if err != nil {
			return err
		}
		_, err = s.RunBatch(ctx, path, source)
		closeErr := s.Close()
		if err != nil {
			return err
		}
		if closeErr != nil {
			return closeErr
		}
		if s.Failed() {
			failed = true
			if opts.quitOnError {
				break
			}
		}
	}
	if failed {
		return cli.ErrFailed
	}
	return nil
}

func printTokens(stdout, stderr io.Writer, path, source string) bool {
	tokens, err := maps.Tokenize(source)
	for _, tok := range tokens {
		fmt.Fprintf(stdout, "%d:%d\t%s\t%q\n", tok.Pos.Line, tok.Pos.Column, tok.Type, tok.Literal)
	}
	if err != nil {
		fmt.Fprintln(stderr, session.RenderDiagnostic(maps.DiagnosticFrom(err), path))
		return false
	}
	return true
}
