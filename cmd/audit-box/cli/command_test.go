// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/spf13/pflag"
)

func noop(context.Context, []string, *slog.Logger) error { return nil }

func TestCommand_Execute_DispatchesToSubcommand(t *testing.T) {
	var called string

	root := &Command{
		Name: "audit-box",
		Subcommands: []*Command{
			{
				Name: "status",
				Run: func(context.Context, []string, *slog.Logger) error {
					called = "status"
					return nil
				},
			},
			{
				Name: "apply",
				Run: func(context.Context, []string, *slog.Logger) error {
					called = "apply"
					return nil
				},
			},
		},
	}

	if err := root.Execute(context.Background(), []string{"apply"}); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if called != "apply" {
		t.Errorf("dispatched to %q, want %q", called, "apply")
	}
}

func TestCommand_Execute_ParamsAndArgs(t *testing.T) {
	type applyParams struct {
		JSONOutput
		Yes     bool `flag:"yes,y" desc:"skip confirmation"`
		Workers int  `flag:"workers" desc:"parallel commits" default:"1"`
	}
	var params applyParams
	var receivedArgs []string
	var receivedLogger *slog.Logger

	root := &Command{
		Name: "audit-box",
		Subcommands: []*Command{{
			Name:   "apply",
			Params: func() any { return &params },
			Run: func(_ context.Context, args []string, logger *slog.Logger) error {
				receivedArgs = args
				receivedLogger = logger
				return nil
			},
		}},
	}

	err := root.Execute(context.Background(), []string{"apply", "-y", "--workers", "4", "--json", "src/main.go", "--", "--odd-name"})
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if !params.Yes || params.Workers != 4 || !params.OutputJSON {
		t.Errorf("params = %+v", params)
	}
	if strings.Join(receivedArgs, " ") != "src/main.go --odd-name" {
		t.Errorf("args = %v", receivedArgs)
	}
	if receivedLogger == nil {
		t.Error("Run received a nil logger")
	}
}

func TestCommand_Execute_DebugFlag(t *testing.T) {
	var debugEnabled bool
	command := &Command{
		Name: "status",
		Run: func(ctx context.Context, _ []string, logger *slog.Logger) error {
			debugEnabled = logger.Enabled(ctx, slog.LevelDebug)
			return nil
		},
	}

	t.Setenv(DebugEnvironmentVariable, "")
	if err := command.Execute(context.Background(), nil); err != nil {
		t.Fatal(err)
	}
	if debugEnabled {
		t.Error("debug enabled without --debug")
	}
	if err := command.Execute(context.Background(), []string{"--debug"}); err != nil {
		t.Fatal(err)
	}
	if !debugEnabled {
		t.Error("--debug did not enable debug logging")
	}

	t.Setenv(DebugEnvironmentVariable, "1")
	if err := command.Execute(context.Background(), nil); err != nil {
		t.Fatal(err)
	}
	if !debugEnabled {
		t.Errorf("%s=1 did not enable debug logging", DebugEnvironmentVariable)
	}
}

func TestCommand_Execute_FlagsFunc(t *testing.T) {
	var overlay string
	command := &Command{
		Name: "status",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("status", pflag.ContinueOnError)
			flagSet.StringVar(&overlay, "overlay", "", "overlay root")
			return flagSet
		},
		Run: noop,
	}
	if err := command.Execute(context.Background(), []string{"--overlay", "/tmp/upper"}); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if overlay != "/tmp/upper" {
		t.Errorf("overlay = %q", overlay)
	}
}

func TestCommand_Execute_UnknownFlagSuggestion(t *testing.T) {
	type params struct {
		Digests bool `flag:"digests" desc:"include digests"`
	}
	command := &Command{
		Name:   "status",
		Params: func() any { return &params{} },
		Run:    noop,
	}

	err := command.Execute(context.Background(), []string{"--digets"})
	if err == nil {
		t.Fatal("Execute() = nil, want error for unknown flag")
	}
	errStr := err.Error()
	if !strings.Contains(errStr, "did you mean --digests") {
		t.Errorf("error = %q, want suggestion for '--digests'", errStr)
	}
	if !strings.Contains(errStr, "--help") {
		t.Errorf("error = %q, should point to --help", errStr)
	}
	var toolError *ToolError
	if !errors.As(err, &toolError) || toolError.Category != CategoryValidation {
		t.Errorf("error = %#v, want a validation ToolError", err)
	}
}

func TestCommand_Execute_UnknownFlagNoSuggestion(t *testing.T) {
	command := &Command{Name: "status", Run: noop}

	err := command.Execute(context.Background(), []string{"--zzzzzzzzz"})
	if err == nil {
		t.Fatal("Execute() = nil, want error for unknown flag")
	}
	if strings.Contains(err.Error(), "did you mean") {
		t.Errorf("error = %q, should not suggest for distant flag", err.Error())
	}
}

func TestCommand_Execute_UnknownSubcommand(t *testing.T) {
	root := &Command{
		Name: "audit-box",
		Subcommands: []*Command{
			{Name: "status", Run: noop},
			{Name: "review", Run: noop},
			{Name: "discard", Run: noop},
		},
	}

	err := root.Execute(context.Background(), []string{"reveiw"})
	if err == nil || !strings.Contains(err.Error(), `did you mean "review"`) {
		t.Errorf("error = %v, want suggestion for 'review'", err)
	}

	err = root.Execute(context.Background(), []string{"zzzzzzz"})
	if err == nil || strings.Contains(err.Error(), "did you mean") {
		t.Errorf("error = %v, want no suggestion for distant input", err)
	}
}

func TestCommand_Execute_HelpFlag(t *testing.T) {
	for _, helpArg := range []string{"-h", "--help", "help"} {
		t.Run(helpArg, func(t *testing.T) {
			root := &Command{
				Name:        "audit-box",
				Subcommands: []*Command{{Name: "status", Summary: "List changes", Run: noop}},
			}
			if err := root.Execute(context.Background(), []string{helpArg}); err != nil {
				t.Errorf("Execute(%q) error: %v", helpArg, err)
			}
		})
	}
}

func TestCommand_Execute_NoArgsShowsHelp(t *testing.T) {
	root := &Command{
		Name:        "audit-box",
		Subcommands: []*Command{{Name: "status", Run: noop}},
	}

	err := root.Execute(context.Background(), nil)
	if err == nil || !strings.Contains(err.Error(), "subcommand required") {
		t.Errorf("error = %v, want 'subcommand required'", err)
	}
}

func TestCommand_Execute_PropagatesRunError(t *testing.T) {
	want := &ExitError{Code: 1}
	command := &Command{
		Name: "apply",
		Run:  func(context.Context, []string, *slog.Logger) error { return want },
	}
	err := command.Execute(context.Background(), nil)
	var exitError *ExitError
	if !errors.As(err, &exitError) || exitError.ExitCode() != 1 {
		t.Errorf("error = %v, want exit code 1", err)
	}
}

func TestCommand_PrintHelp(t *testing.T) {
	command := &Command{
		Name:        "audit-box",
		Description: "Review what a sandboxed process changed.",
		Subcommands: []*Command{
			{Name: "status", Summary: "List overlay changes"},
			{Name: "apply", Summary: "Copy changes into the base"},
		},
		Examples: []Example{{
			Description: "Apply everything after review",
			Command:     "audit-box apply --all",
		}},
	}

	var buffer bytes.Buffer
	command.PrintHelp(&buffer)
	output := buffer.String()

	for _, want := range []string{
		"Review what a sandboxed process changed.",
		"Usage:",
		"audit-box <command> [flags]",
		"Commands:",
		"List overlay changes",
		"Copy changes into the base",
		"Examples:",
		"# Apply everything after review",
		"audit-box apply --all",
		"Run 'audit-box <command> --help'",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("help output missing %q\n\nFull output:\n%s", want, output)
		}
	}
}

func TestCommand_PrintHelp_WithFlags(t *testing.T) {
	type params struct {
		Workers int `flag:"workers" desc:"parallel commits"`
	}
	command := &Command{
		Name:   "apply",
		Usage:  "audit-box apply [flags] PATH...",
		Params: func() any { return &params{} },
		Run:    noop,
	}

	var buffer bytes.Buffer
	command.PrintHelp(&buffer)
	output := buffer.String()

	for _, want := range []string{"audit-box apply [flags] PATH...", "Flags:", "--workers", "parallel commits", "--debug"} {
		if !strings.Contains(output, want) {
			t.Errorf("help output missing %q\n\nFull output:\n%s", want, output)
		}
	}
}

func TestCommand_FullName(t *testing.T) {
	root := &Command{Name: "audit-box"}
	apply := &Command{Name: "apply", parent: root}

	if got := root.fullName(); got != "audit-box" {
		t.Errorf("root.fullName() = %q", got)
	}
	if got := apply.fullName(); got != "audit-box apply" {
		t.Errorf("apply.fullName() = %q", got)
	}
}
