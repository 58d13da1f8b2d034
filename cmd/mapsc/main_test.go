package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mapsc-lang/mapsc/internal/cli"
)

func writeScript(t *testing.T, source string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "prog.maps")
	if err := os.WriteFile(path, []byte(source), 0o644); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return path
}

func runMapsc(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("MAPSC_CONFIG", "")
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd(&stdout, &stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestRunsProgram(t *testing.T) {
	path := writeScript(t, "let a = 2\nprintln(a * 21)\n")
	stdout, stderr, err := runMapsc(t, path)
	if err != nil {
		t.Fatalf("mapsc failed: %v\n%s", err, stderr)
	}
	if stdout != "42\n" {
		t.Fatalf("unexpected stdout %q", stdout)
	}
}

func TestFailureExitsNonZeroAndContinues(t *testing.T) {
	path := writeScript(t, "println(1)\nnope\nprintln(2)\n")
	stdout, stderr, err := runMapsc(t, path)
	if !errors.Is(err, cli.ErrFailed) {
		t.Fatalf("expected ErrFailed, got %v", err)
	}
	if stdout != "1\n2\n" {
		t.Fatalf("later statements should still run, stdout %q", stdout)
	}
	if !strings.Contains(stderr, path+": error[UnboundIdentifier] 2:1: unbound identifier nope") {
		t.Fatalf("unexpected stderr %q", stderr)
	}
}

func TestQuitOnError(t *testing.T) {
	path := writeScript(t, "println(1)\nnope\nprintln(2)\n")
	stdout, _, err := runMapsc(t, "--quit-on-error", path)
	if !errors.Is(err, cli.ErrFailed) {
		t.Fatalf("expected ErrFailed, got %v", err)
	}
	if stdout != "1\n" {
		t.Fatalf("expected to stop after the failure, stdout %q", stdout)
	}
}

func TestCheckOnly(t *testing.T) {
	path := writeScript(t, "println(1)\n")
	stdout, _, err := runMapsc(t, "--check", path)
	if err != nil || stdout != "" {
		t.Fatalf("check should not run the program: %q, %v", stdout, err)
	}

	bad := writeScript(t, "let = 1\n")
	_, stderr, err := runMapsc(t, "--check", bad)
	if !errors.Is(err, cli.ErrFailed) {
		t.Fatalf("expected ErrFailed, got %v", err)
	}
	if !strings.Contains(stderr, "error[ParseError] 1:5: expected identifier, got '='") {
		t.Fatalf("unexpected stderr %q", stderr)
	}
}

func TestPrintParsed(t *testing.T) {
	path := writeScript(t, "1 + 2 * 3\n")
	stdout, _, err := runMapsc(t, "--print-parsed", path)
	if err != nil {
		t.Fatalf("print-parsed failed: %v", err)
	}
	if stdout != "(1 + (2 * 3))\n" {
		t.Fatalf("unexpected stdout %q", stdout)
	}
}

func TestTokens(t *testing.T) {
	path := writeScript(t, "let x = 1")
	stdout, _, err := runMapsc(t, "--tokens", path)
	if err != nil {
		t.Fatalf("tokens failed: %v", err)
	}
	want := "1:1\tLET\t\"let\"\n1:5\tIDENT\t\"x\"\n1:7\t=\t\"=\"\n1:9\tINT\t\"1\"\n"
	if !strings.HasPrefix(stdout, want) || !strings.Contains(stdout, "\tEOF\t") {
		t.Fatalf("unexpected token dump %q", stdout)
	}
}

func TestStepQuotaFlag(t *testing.T) {
	path := writeScript(t, "while true { 1 }\n")
	_, stderr, err := runMapsc(t, "--step-quota", "1000", path)
	if !errors.Is(err, cli.ErrFailed) {
		t.Fatalf("expected ErrFailed, got %v", err)
	}
	if !strings.Contains(stderr, "StepQuota") {
		t.Fatalf("expected step quota diagnostic, got %q", stderr)
	}
}

func TestConfigFileSetsLimits(t *testing.T) {
	path := writeScript(t, "while true { 1 }\n")
	cfg := filepath.Join(t.TempDir(), "mapsc.toml")
	if err := os.WriteFile(cfg, []byte("[engine]\nstep_quota = 500\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	_, stderr, err := runMapsc(t, "--config", cfg, path)
	if !errors.Is(err, cli.ErrFailed) || !strings.Contains(stderr, "StepQuota") {
		t.Fatalf("config step quota not applied: %v %q", err, stderr)
	}
}

func TestRequiresFile(t *testing.T) {
	if _, _, err := runMapsc(t); err == nil {
		t.Fatalf("expected argument error")
	}
	_, stderr, err := runMapsc(t, filepath.Join(t.TempDir(), "missing.maps"))
	if !errors.Is(err, cli.ErrFailed) || !strings.Contains(stderr, "missing.maps") {
		t.Fatalf("expected read failure, got %v %q", err, stderr)
	}
}
