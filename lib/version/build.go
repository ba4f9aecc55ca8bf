// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"fmt"
	"os"
	"runtime"

	"github.com/bureau-foundation/auditbox/lib/binhash"
)

// Build is the machine-readable form of the version information, as
// printed by "audit-box version --json".
type Build struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Dirty     bool   `json:"dirty"`
	BuildTime string `json:"build_time"`
	Go        string `json:"go"`
	Platform  string `json:"platform"`

	// Binary and Digest identify the running executable. They are
	// empty when the executable could not be read.
	Binary string `json:"binary,omitempty"`
	Digest string `json:"digest,omitempty"`
}

// Current returns the build information of the running binary. A
// failure to hash the executable is returned alongside the rest of the
// information, which is still filled in.
func Current() (Build, error) {
	build := Build{
		Version:   Version,
		Commit:    GitCommit,
		Dirty:     GitDirty == "true",
		BuildTime: BuildTime,
		Go:        runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
	digest, binaryPath, err := ComputeSelfHash()
	if err != nil {
		return build, err
	}
	build.Digest = digest
	build.Binary = binaryPath
	return build, nil
}

// ComputeSelfHash returns the BLAKE3 hex digest and absolute path of
// the running binary. On Linux os.Executable reads /proc/self/exe,
// which names the binary the process started from even if it has
// since been replaced on disk.
func ComputeSelfHash() (hash string, binaryPath string, err error) {
	executable, err := os.Executable()
	if err != nil {
		return "", "", fmt.Errorf("resolving own executable path: %w", err)
	}
	digest, err := binhash.HashFile(executable)
	if err != nil {
		return "", "", fmt.Errorf("hashing own binary at %s: %w", executable, err)
	}
	return binhash.FormatDigest(digest), executable, nil
}
