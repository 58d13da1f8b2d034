package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/mapsc-lang/mapsc/internal/cli"
	"github.com/mapsc-lang/mapsc/verify"
)

type verifyOptions struct {
	configPath string
	jobs       int
	format     string
	watch      bool
	verbose    bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	cmd := newRootCmd(os.Stdout, os.Stderr)
	code := cli.Exit(cmd.ExecuteContext(ctx), os.Stderr)
	stop()
	os.Exit(code)
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var opts verifyOptions
	cmd := &cobra.Command{
		Use:   "verify_mapsc [flags] path...",
		Short: "Check Mapsc programs and transcripts against their expectations",
		Long: `verify_mapsc runs every .maps and .mapsci file under the given paths and
compares each statement with the expectation comments next to it:

  expr        // => value
  expr        // error: Kind[: message substring]
  println(x)  // out: printed line
  let a = 1   // defines: a

A <file>.expect.yaml sidecar may set requires, skip, quit_on_error, exit
and stdout.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(cmd, opts, args, stdout, stderr)
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	flags := cmd.Flags()
	flags.StringVar(&opts.configPath, "config", "", "config file")
	flags.IntVarP(&opts.jobs, "jobs", "j", 0, "files verified in parallel (0 = one per CPU)")
	flags.StringVar(&opts.format, "format", "", "report format: text or yaml")
	flags.BoolVarP(&opts.watch, "watch", "w", false, "re-run when corpus files change")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "list passing files and log at debug level")
	return cmd
}

func runVerify(cmd *cobra.Command, opts verifyOptions, paths []string, stdout, stderr io.Writer) error {
	env, err := cli.Setup(opts.configPath, opts.verbose, stderr)
	if err != nil {
		return err
	}
	cfg := env.Config
	if !cmd.Flags().Changed("jobs") {
		opts.jobs = cfg.Verify.Jobs
	}
	if opts.format == "" {
		opts.format = cfg.Verify.Format
	}
	if opts.format != "text" && opts.format != "yaml" {
		return fmt.Errorf("unknown report format %q", opts.format)
	}

	v := verify.New(verify.Options{
		Jobs:           opts.jobs,
		RecursionLimit: cfg.Engine.RecursionLimit,
		StepQuota:      cfg.Engine.StepQuota,
		Timeout:        cfg.Engine.Timeout.Duration,
		Logger:         env.Logger,
	})

	if opts.watch {
		return v.Watch(cmd.Context(), paths, func(r *verify.Report) {
			if err := r.Write(stdout, opts.format, opts.verbose); err != nil {
				env.Logger.Warn("write report", "error", err)
			}
		})
	}

	report, err := v.Run(cmd.Context(), paths)
	if err != nil {
		return err
	}
	if err := report.Write(stdout, opts.format, opts.verbose); err != nil {
		return err
	}
	if !report.OK() {
		return cli.ErrFailed
	}
	return nil
}
