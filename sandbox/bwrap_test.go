// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sandbox

import (
	"context"
	"slices"
	"strings"
	"testing"
)

func TestBwrapBuilder(t *testing.T) {
	builder := NewBwrapBuilder()
	args, err := builder.Build(&Options{
		Base:      "/home/dev/project",
		Upper:     "/tmp/audit-box-1/overlay",
		Work:      "/tmp/audit-box-1/work",
		ExtraArgs: []string{"--unshare-net"},
		Command:   []string{"make", "test"},
	})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	want := []string{
		"--ro-bind", "/", "/",
		"--tmpfs", "/tmp",
		"--unshare-pid",
		"--dev", "/dev",
		"--overlay-src", "/home/dev/project",
		"--overlay", "/tmp/audit-box-1/overlay", "/tmp/audit-box-1/work", "/home/dev/project",
		"--chdir", "/home/dev/project",
		"--new-session",
		"--die-with-parent",
		"--unshare-net",
		"--",
		"make", "test",
	}
	if !slices.Equal(args, want) {
		t.Errorf("args =\n  %s\nwant\n  %s", strings.Join(args, " "), strings.Join(want, " "))
	}
}

func TestBwrapBuilderOverlaySourcePrecedesOverlay(t *testing.T) {
	args, err := NewBwrapBuilder().Build(&Options{Base: "/b", Upper: "/u", Work: "/w", Command: []string{"sh"}})
	if err != nil {
		t.Fatal(err)
	}
	source := slices.Index(args, "--overlay-src")
	mount := slices.Index(args, "--overlay")
	if source < 0 || mount < 0 || source > mount {
		t.Errorf("--overlay-src (%d) must precede --overlay (%d)", source, mount)
	}
}

func TestBwrapBuilderRequiredFields(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		wantErr string
	}{
		{"no base", Options{Upper: "/u", Work: "/w", Command: []string{"sh"}}, "base"},
		{"no upper", Options{Base: "/b", Work: "/w", Command: []string{"sh"}}, "upper"},
		{"no work", Options{Base: "/b", Upper: "/u", Command: []string{"sh"}}, "work"},
		{"no command", Options{Base: "/b", Upper: "/u", Work: "/w"}, "command"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := NewBwrapBuilder().Build(&test.opts)
			if err == nil || !strings.Contains(err.Error(), test.wantErr) {
				t.Errorf("Build error = %v, want mention of %q", err, test.wantErr)
			}
		})
	}

	_, err := NewBwrapBuilder().Build(&Options{})
	if err == nil {
		t.Fatal("Build of empty options should fail")
	}
	for _, field := range []string{"base", "upper", "work", "command"} {
		if !strings.Contains(err.Error(), field) {
			t.Errorf("joined error %q missing %s", err, field)
		}
	}
}

func TestCommand(t *testing.T) {
	cmd, err := Command(context.Background(), "/usr/bin/bwrap", &Options{
		Base: "/b", Upper: "/u", Work: "/w", Command: []string{"/bin/bash", "-l"},
	})
	if err != nil {
		t.Fatalf("Command: %v", err)
	}
	if cmd.Path != "/usr/bin/bwrap" {
		t.Errorf("Path = %s", cmd.Path)
	}
	if cmd.Args[0] != "/usr/bin/bwrap" {
		t.Errorf("Args[0] = %s", cmd.Args[0])
	}
	if got := cmd.Args[len(cmd.Args)-2:]; !slices.Equal(got, []string{"/bin/bash", "-l"}) {
		t.Errorf("command tail = %v", got)
	}

	if _, err := Command(context.Background(), "/usr/bin/bwrap", &Options{}); err == nil {
		t.Error("Command with empty options should fail")
	}
}

func TestFormatCommand(t *testing.T) {
	args, err := NewBwrapBuilder().Build(&Options{
		Base:    "/home/dev/my project",
		Upper:   "/tmp/o",
		Work:    "/tmp/w",
		Command: []string{"sh", "-c", "echo 'hi' --loud"},
	})
	if err != nil {
		t.Fatal(err)
	}
	got := FormatCommand("bwrap", args)

	for _, want := range []string{
		"bwrap \\\n    --ro-bind / / \\\n",
		"--overlay-src '/home/dev/my project'",
		`-- sh -c 'echo '\''hi'\'' --loud'`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("FormatCommand output missing %q:\n%s", want, got)
		}
	}
}

func TestShellQuote(t *testing.T) {
	tests := map[string]string{
		"":               "''",
		"plain":          "plain",
		"/usr/bin/bwrap": "/usr/bin/bwrap",
		"has space":      "'has space'",
		"it's":           `'it'\''s'`,
		"$HOME":          "'$HOME'",
	}
	for input, want := range tests {
		if got := shellQuote(input); got != want {
			t.Errorf("shellQuote(%q) = %q, want %q", input, got, want)
		}
	}
}
