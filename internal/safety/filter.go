// Package safety provides the guards wrapped around OpenNebula tools: the
// write-access gate, tool filtering, confirmation tokens and the audit trail.
package safety

import (
	"strings"

	"github.com/IGLOU-EU/go-wildcard/v2"
)

// Filter decides which tools are registered, using allowlist and denylist
// wildcard patterns ("*" any run, "?" one character).
//
// Rules:
//   - If both lists are empty (or nil), every tool is allowed.
//   - The denylist always takes priority over the allowlist.
//   - If a non-empty allowlist is present, a tool must match at least one
//     allowlist pattern to be permitted (after the denylist check).
type Filter struct {
	allowlist []string
	denylist  []string
}

// NewFilter constructs a Filter. Blank patterns are ignored.
func NewFilter(allowlist, denylist []string) *Filter {
	return &Filter{
		allowlist: compact(allowlist),
		denylist:  compact(denylist),
	}
}

// IsAllowed reports whether name is permitted. A nil filter allows all.
func (f *Filter) IsAllowed(name string) bool {
	if f == nil {
		return true
	}
	for _, pattern := range f.denylist {
		if wildcard.Match(pattern, name) {
			return false
		}
	}

	if len(f.allowlist) == 0 {
		return true
	}

	for _, pattern := range f.allowlist {
		if wildcard.Match(pattern, name) {
			return true
		}
	}
	return false
}

func compact(patterns []string) []string {
	out := make([]string, 0, len(patterns))
	for _, p := range patterns {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
