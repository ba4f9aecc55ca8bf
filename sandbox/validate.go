// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sandbox

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"golang.org/x/sys/unix"
)

// ValidationResult holds the result of a validation check.
type ValidationResult struct {
	Name    string `json:"name"`
	Passed  bool   `json:"passed"`
	Message string `json:"message"`
	Warning bool   `json:"warning,omitempty"` // True if this is a warning, not an error.
}

// Validator performs pre-flight checks before "audit-box run" starts
// bwrap.
type Validator struct {
	results []ValidationResult
	errors  int
}

// NewValidator creates a new validator.
func NewValidator() *Validator {
	return &Validator{
		results: make([]ValidationResult, 0),
	}
}

// Results returns all validation results.
func (v *Validator) Results() []ValidationResult {
	return v.results
}

// HasErrors returns true if any validation failed.
func (v *Validator) HasErrors() bool {
	return v.errors > 0
}

// Err joins the failed checks into one error, or returns nil.
func (v *Validator) Err() error {
	var errs []error
	for _, result := range v.results {
		if !result.Passed {
			errs = append(errs, fmt.Errorf("%s: %s", result.Name, result.Message))
		}
	}
	return errors.Join(errs...)
}

func (v *Validator) pass(name, message string) {
	v.results = append(v.results, ValidationResult{Name: name, Passed: true, Message: message})
}

func (v *Validator) warn(name, message string) {
	v.results = append(v.results, ValidationResult{Name: name, Passed: true, Message: message, Warning: true})
}

func (v *Validator) fail(name, message string) {
	v.results = append(v.results, ValidationResult{Name: name, Passed: false, Message: message})
	v.errors++
}

// Validate runs every check for opts with the bwrap binary at
// bwrapPath and returns the joined failures.
func Validate(bwrapPath string, opts *Options) error {
	validator := NewValidator()
	validator.ValidateAll(bwrapPath, opts)
	return validator.Err()
}

// ValidateAll runs all checks.
func (v *Validator) ValidateAll(bwrapPath string, opts *Options) {
	v.ValidateBwrap(bwrapPath)
	v.ValidateUserNamespaces()
	v.ValidateDirectories(opts)
}

// ValidateBwrap checks that bwrapPath is an executable file and asks
// it for its version.
func (v *Validator) ValidateBwrap(bwrapPath string) {
	if bwrapPath == "" {
		v.fail("bwrap", "no bubblewrap binary configured")
		return
	}
	info, err := os.Stat(bwrapPath)
	if err != nil {
		v.fail("bwrap", fmt.Sprintf("cannot stat %s: %v", bwrapPath, err))
		return
	}
	if info.Mode()&0o111 == 0 {
		v.fail("bwrap", fmt.Sprintf("%s is not executable", bwrapPath))
		return
	}

	output, err := exec.Command(bwrapPath, "--version").Output()
	if err != nil {
		v.warn("bwrap", fmt.Sprintf("found at %s but --version failed", bwrapPath))
		return
	}
	v.pass("bwrap", fmt.Sprintf("available: %s (%s)", bwrapPath, strings.TrimSpace(string(output))))
}

// ValidateUserNamespaces checks the Debian/Ubuntu sysctl that disables
// unprivileged user namespaces. Kernels without the sysctl allow them.
func (v *Validator) ValidateUserNamespaces() {
	data, err := os.ReadFile("/proc/sys/kernel/unprivileged_userns_clone")
	if err != nil {
		v.pass("userns", "no unprivileged_userns_clone sysctl; assuming enabled")
		return
	}
	if strings.TrimSpace(string(data)) == "0" {
		v.fail("userns", "unprivileged user namespaces disabled (set kernel.unprivileged_userns_clone=1)")
		return
	}
	v.pass("userns", "unprivileged user namespaces enabled")
}

// ValidateDirectories checks that the base, upper, and work
// directories exist, and that upper and work share a filesystem as
// overlayfs requires.
func (v *Validator) ValidateDirectories(opts *Options) {
	devices := make(map[string]uint64)
	ok := true
	for _, directory := range []struct {
		name string
		path string
	}{
		{"base", opts.Base},
		{"upper", opts.Upper},
		{"work", opts.Work},
	} {
		if directory.path == "" {
			v.fail(directory.name, "path not set")
			ok = false
			continue
		}
		var stat unix.Stat_t
		if err := unix.Stat(directory.path, &stat); err != nil {
			v.fail(directory.name, fmt.Sprintf("%s: %v", directory.path, err))
			ok = false
			continue
		}
		if stat.Mode&unix.S_IFMT != unix.S_IFDIR {
			v.fail(directory.name, fmt.Sprintf("%s is not a directory", directory.path))
			ok = false
			continue
		}
		devices[directory.name] = uint64(stat.Dev)
		v.pass(directory.name, directory.path)
	}
	if !ok {
		return
	}
	if devices["upper"] != devices["work"] {
		v.fail("overlay", fmt.Sprintf("upper %s and work %s are on different filesystems", opts.Upper, opts.Work))
		return
	}
	v.pass("overlay", "upper and work share a filesystem")
}

// PrintResults writes validation results to a writer.
func (v *Validator) PrintResults(w io.Writer) {
	for _, r := range v.results {
		var prefix string
		if r.Passed {
			if r.Warning {
				prefix = "⚠"
			} else {
				prefix = "✓"
			}
		} else {
			prefix = "✗"
		}
		fmt.Fprintf(w, "%s %s: %s\n", prefix, r.Name, r.Message)
	}

	fmt.Fprintln(w)
	if v.HasErrors() {
		fmt.Fprintf(w, "Validation failed with %d error(s)\n", v.errors)
	} else {
		fmt.Fprintln(w, "Ready to run sandbox")
	}
}
