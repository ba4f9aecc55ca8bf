// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/bureau-foundation/auditbox/cmd/audit-box/cli"
	"github.com/bureau-foundation/auditbox/lib/config"
	"github.com/bureau-foundation/auditbox/lib/testutil"
)

// setupConfig points AUDITBOX_CONFIG at a configuration whose session
// state and temporary directories live under t.TempDir.
func setupConfig(t *testing.T) {
	t.Helper()
	directory := t.TempDir()
	tempRoot := filepath.Join(directory, "tmp")
	if err := os.Mkdir(tempRoot, 0o755); err != nil {
		t.Fatal(err)
	}
	configPath := filepath.Join(directory, "config.yaml")
	content := "session:\n" +
		"  directory: " + filepath.Join(directory, "state") + "\n" +
		"  temp_root: " + tempRoot + "\n" +
		"apply:\n" +
		"  fsync: false\n"
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(config.EnvironmentVariable, configPath)
}

// execute runs the command tree with args, feeding stdin and capturing
// stdout.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var stdout bytes.Buffer
	previousStdout, previousStdin := cli.Stdout, cli.Stdin
	cli.Stdout, cli.Stdin = &stdout, strings.NewReader(stdin)
	t.Cleanup(func() { cli.Stdout, cli.Stdin = previousStdout, previousStdin })

	err := Root().Execute(context.Background(), args)
	return stdout.String(), err
}

func mustExecute(t *testing.T, args ...string) string {
	t.Helper()
	output, err := execute(t, "", args...)
	if err != nil {
		t.Fatalf("%s: %v", strings.Join(args, " "), err)
	}
	return output
}

func requireCategory(t *testing.T, err error, want cli.ErrorCategory) {
	t.Helper()
	var toolError *cli.ToolError
	if !errors.As(err, &toolError) {
		t.Fatalf("error = %v (%T), want a %s ToolError", err, err, want)
	}
	if toolError.Category != want {
		t.Fatalf("category = %s, want %s (error: %v)", toolError.Category, want, err)
	}
}

func requireExitCode(t *testing.T, err error, want int) {
	t.Helper()
	var exitError *cli.ExitError
	if !errors.As(err, &exitError) {
		t.Fatalf("error = %v, want exit code %d", err, want)
	}
	if exitError.Code != want {
		t.Fatalf("exit code = %d, want %d", exitError.Code, want)
	}
}

// startSession creates a session over a base holding baseFiles and
// writes overlayFiles into its overlay, as a sandboxed command would.
func startSession(t *testing.T, baseFiles, overlayFiles map[string]string) newResult {
	t.Helper()
	setupConfig(t)
	base := t.TempDir()
	testutil.WriteTree(t, base, baseFiles)

	var created newResult
	if err := json.Unmarshal([]byte(mustExecute(t, "new", "--base", base, "--json")), &created); err != nil {
		t.Fatalf("decoding new output: %v", err)
	}
	testutil.WriteTree(t, created.Overlay, overlayFiles)
	return created
}

func TestNewCreatesSession(t *testing.T) {
	created := startSession(t, map[string]string{"a.txt": "a\n"}, nil)

	for _, path := range []string{created.Overlay, created.Work} {
		if info, err := os.Stat(path); err != nil || !info.IsDir() {
			t.Errorf("%s: not a directory (%v)", path, err)
		}
	}
	if created.Command[0] != "bwrap" {
		t.Errorf("command starts with %q, want bwrap", created.Command[0])
	}
	overlayIndex := slices.Index(created.Command, "--overlay")
	if overlayIndex < 0 || created.Command[overlayIndex+1] != created.Overlay || created.Command[overlayIndex+3] != created.Base {
		t.Errorf("command does not mount the overlay: %v", created.Command)
	}
	if last := created.Command[len(created.Command)-1]; last != "/bin/bash" {
		t.Errorf("command ends with %q, want the configured shell", last)
	}
}

func TestRunDryRun(t *testing.T) {
	created := startSession(t, nil, nil)

	output := mustExecute(t, "run", "--dry-run", "--", "make", "install")
	if !strings.HasPrefix(output, "bwrap ") {
		t.Errorf("output = %q, want a bwrap command line", output)
	}
	if !strings.Contains(output, created.Overlay) || !strings.HasSuffix(strings.TrimSpace(output), "-- make install") {
		t.Errorf("output = %q", output)
	}
}

func TestStatus(t *testing.T) {
	startSession(t,
		map[string]string{"mod.txt": "old\n", "same.txt": "same\n"},
		map[string]string{"mod.txt": "new\n", "same.txt": "same\n", "dir/new.txt": "hello\n"},
	)

	var result struct {
		Entries []struct {
			Path   string `json:"path"`
			Kind   string `json:"kind"`
			Status string `json:"status"`
			Digest string `json:"digest"`
		} `json:"entries"`
		Identical int `json:"identical"`
	}
	if err := json.Unmarshal([]byte(mustExecute(t, "status", "--json", "--digests")), &result); err != nil {
		t.Fatal(err)
	}
	var paths []string
	for _, entry := range result.Entries {
		paths = append(paths, entry.Path+":"+entry.Status)
		if entry.Kind == "file" && len(entry.Digest) != 64 {
			t.Errorf("%s: digest %q", entry.Path, entry.Digest)
		}
	}
	if want := []string{"dir:none", "dir/new.txt:new", "mod.txt:modified"}; !slices.Equal(paths, want) {
		t.Errorf("entries = %v, want %v", paths, want)
	}
	if result.Identical != 1 {
		t.Errorf("identical = %d, want 1", result.Identical)
	}

	text := mustExecute(t, "status")
	for _, want := range []string{"  dir/\n", "N   new.txt\n", "M mod.txt\n", "1 new, 1 modified (1 identical to base)"} {
		if !strings.Contains(text, want) {
			t.Errorf("status output missing %q:\n%s", want, text)
		}
	}
}

func TestStatusExplicitRoots(t *testing.T) {
	setupConfig(t)
	overlayRoot, baseRoot := testutil.Roots(t)
	testutil.WriteTree(t, overlayRoot, map[string]string{"x": "x\n"})

	output := mustExecute(t, "status", "--overlay", overlayRoot, "--base", baseRoot)
	if !strings.Contains(output, "N x\n") {
		t.Errorf("output = %q", output)
	}

	_, err := execute(t, "", "status", "--overlay", overlayRoot)
	requireCategory(t, err, cli.CategoryValidation)

	_, err = execute(t, "", "status", "--overlay", overlayRoot, "--base", filepath.Join(baseRoot, "missing"))
	requireCategory(t, err, cli.CategoryValidation)
}

func TestNoSession(t *testing.T) {
	setupConfig(t)
	_, err := execute(t, "", "status")
	requireCategory(t, err, cli.CategoryNotFound)
}

func TestDiff(t *testing.T) {
	startSession(t,
		map[string]string{"mod.txt": "one\ntwo\n"},
		map[string]string{"mod.txt": "one\nthree\n"},
	)

	output := mustExecute(t, "diff", "--color", "never", "mod.txt")
	for _, want := range []string{"-two\n", "+three\n", " one\n"} {
		if !strings.Contains(output, want) {
			t.Errorf("diff missing %q:\n%s", want, output)
		}
	}

	_, err := execute(t, "", "diff", "other.txt")
	requireCategory(t, err, cli.CategoryNotFound)

	_, err = execute(t, "", "diff")
	requireCategory(t, err, cli.CategoryValidation)

	_, err = execute(t, "", "diff", "--color", "sometimes", "mod.txt")
	requireCategory(t, err, cli.CategoryValidation)
}

func TestApply(t *testing.T) {
	created := startSession(t,
		map[string]string{"keep.txt": "base\n"},
		map[string]string{"src/a.go": "package a\n", "src/b.go": "package b\n", "keep.txt": "overlay\n"},
	)

	// Declining leaves both sides alone.
	_, err := execute(t, "n\n", "apply", "src")
	requireExitCode(t, err, 1)
	if files := testutil.ReadTree(t, created.Base); len(files) != 1 {
		t.Fatalf("base changed after declining: %v", files)
	}

	output, err := execute(t, "yes\n", "apply", "src")
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !strings.Contains(output, "src/a.go") || !strings.Contains(output, "applied") {
		t.Errorf("output = %q", output)
	}
	base := testutil.ReadTree(t, created.Base)
	if base["src/a.go"] != "package a\n" || base["src/b.go"] != "package b\n" || base["keep.txt"] != "base\n" {
		t.Errorf("base = %v", base)
	}
	if remaining := testutil.ReadTree(t, created.Overlay); len(remaining) != 1 || remaining["keep.txt"] != "overlay\n" {
		t.Errorf("overlay = %v, want only keep.txt", remaining)
	}

	var records []struct {
		Operation string `json:"operation"`
		Path      string `json:"path"`
		Result    string `json:"result"`
		Digest    string `json:"digest"`
	}
	if err := json.Unmarshal([]byte(mustExecute(t, "log", "--json")), &records); err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 || records[0].Path != "src/a.go" || records[0].Operation != "apply" || records[0].Result != "applied" {
		t.Errorf("journal = %+v", records)
	}
	if records[0].Digest == "" {
		t.Error("journal record has no digest")
	}
}

func TestApplySelectionErrors(t *testing.T) {
	startSession(t, nil, map[string]string{"a.txt": "a\n"})

	tests := []struct {
		name string
		args []string
		want cli.ErrorCategory
	}{
		{name: "no paths", args: []string{"apply", "--yes"}, want: cli.CategoryValidation},
		{name: "all with paths", args: []string{"apply", "--yes", "--all", "a.txt"}, want: cli.CategoryValidation},
		{name: "unknown path", args: []string{"apply", "--yes", "b.txt"}, want: cli.CategoryNotFound},
		{name: "escaping path", args: []string{"apply", "--yes", "../a.txt"}, want: cli.CategoryValidation},
		{name: "negative workers", args: []string{"apply", "--yes", "--workers", "-1", "a.txt"}, want: cli.CategoryValidation},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := execute(t, "", test.args...)
			requireCategory(t, err, test.want)
		})
	}
}

func TestApplyAllJSON(t *testing.T) {
	created := startSession(t, nil, map[string]string{"a.txt": "a\n", "b/c.txt": "c\n"})

	var entries []struct {
		Path   string `json:"path"`
		Result string `json:"result"`
	}
	if err := json.Unmarshal([]byte(mustExecute(t, "apply", "--all", "--yes", "--json")), &entries); err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 || entries[0].Path != "a.txt" || entries[1].Result != "applied" {
		t.Fatalf("entries = %+v", entries)
	}
	if files := testutil.ReadTree(t, created.Base); len(files) != 2 {
		t.Errorf("base = %v", files)
	}
}

func TestDiscard(t *testing.T) {
	created := startSession(t,
		map[string]string{"a.txt": "base\n"},
		map[string]string{"a.txt": "overlay\n", "build/out.o": "obj", "build/tmp/x": "x"},
	)

	output := mustExecute(t, "discard", "--yes", "build")
	if !strings.Contains(output, "build") || !strings.Contains(output, "deleted") {
		t.Errorf("output = %q", output)
	}
	if _, err := os.Stat(filepath.Join(created.Overlay, "build")); !os.IsNotExist(err) {
		t.Errorf("build still in overlay: %v", err)
	}
	if files := testutil.ReadTree(t, created.Overlay); len(files) != 1 {
		t.Errorf("overlay = %v", files)
	}
	if files := testutil.ReadTree(t, created.Base); files["a.txt"] != "base\n" {
		t.Errorf("discard touched the base: %v", files)
	}

	_, err := execute(t, "", "discard", "--yes", ".")
	requireCategory(t, err, cli.CategoryValidation)

	_, err = execute(t, "", "discard", "a.txt")
	requireExitCode(t, err, 1)
	if files := testutil.ReadTree(t, created.Overlay); len(files) != 1 {
		t.Errorf("declined discard removed files: %v", files)
	}
}

func TestLogEmpty(t *testing.T) {
	startSession(t, nil, nil)
	if output := mustExecute(t, "log"); !strings.Contains(output, "Nothing applied") {
		t.Errorf("output = %q", output)
	}
}

func TestClose(t *testing.T) {
	created := startSession(t, nil, map[string]string{"a.txt": "a\n"})

	_, err := execute(t, "", "close")
	requireExitCode(t, err, 1)
	if _, err := os.Stat(created.Directory); err != nil {
		t.Fatalf("declined close removed the session: %v", err)
	}

	mustExecute(t, "close", "--yes")
	if _, err := os.Stat(created.Directory); !os.IsNotExist(err) {
		t.Errorf("session directory still exists: %v", err)
	}
	_, err = execute(t, "", "status")
	requireCategory(t, err, cli.CategoryNotFound)
}

func TestReviewRequiresTerminal(t *testing.T) {
	setupConfig(t)
	if cli.IsTerminal() {
		t.Skip("stdout is a terminal")
	}
	_, err := execute(t, "", "review")
	requireCategory(t, err, cli.CategoryValidation)
}

func TestVersion(t *testing.T) {
	output := mustExecute(t, "version")
	if !strings.HasPrefix(output, "audit-box ") {
		t.Errorf("output = %q", output)
	}
}

func TestUnknownCommandSuggests(t *testing.T) {
	_, err := execute(t, "", "stauts")
	requireCategory(t, err, cli.CategoryValidation)
	if !strings.Contains(err.Error(), `did you mean "status"`) {
		t.Errorf("error = %v", err)
	}
}
