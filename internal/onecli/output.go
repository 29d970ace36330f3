package onecli

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/spf13/afero"
)

var (
	idPattern   = regexp.MustCompile(`(?i)\bID:\s*(\d+)`)
	vmIDPattern = regexp.MustCompile(`(?i)^\s*VM ID:\s*(\d+)\s*$`)
)

// ErrNoID is returned by ParseID when the output carries no "ID: n" marker.
var ErrNoID = errors.New("no ID found in command output")

// ParseID extracts the identifier printed by create-style commands
// ("ID: 42").
func ParseID(out string) (string, error) {
	m := idPattern.FindStringSubmatch(out)
	if m == nil {
		return "", ErrNoID
	}
	return m[1], nil
}

// VMIDs returns every id announced on a "VM ID: n" line, in order.
func VMIDs(out string) []string {
	var ids []string
	for _, line := range strings.Split(out, "\n") {
		if m := vmIDPattern.FindStringSubmatch(line); m != nil {
			ids = append(ids, m[1])
		}
	}
	return ids
}

// WithTempFile writes content to a fresh temporary file on fs, calls fn with
// its path, and removes the file afterwards.
func WithTempFile(fs afero.Fs, pattern, content string, fn func(path string) error) error {
	f, err := afero.TempFile(fs, "", pattern)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	path := f.Name()
	defer func() { _ = fs.Remove(path) }()

	if _, err := f.WriteString(content); err != nil {
		_ = f.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	return fn(path)
}
