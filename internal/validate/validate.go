// Package validate holds the string checks applied to tool parameters before
// any command is issued. Identifiers stay strings until they pass.
package validate

import (
	"net/netip"
	"strings"

	"github.com/jamesprial/opennebula-mcp/internal/xmlresult"
	"github.com/samber/lo"
)

// IsNonNegInt reports whether s is a non-empty run of ASCII decimal digits.
// Signs, spaces and separators are rejected; "0" is valid.
func IsNonNegInt(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// IsPositiveInt reports whether s is a digit string denoting a value above
// zero. Leading zeros are allowed ("007").
func IsPositiveInt(s string) bool {
	return IsNonNegInt(s) && strings.Trim(s, "0") != ""
}

// IsMultiTarget reports whether s names more than one VM, either as a comma
// list or as a range.
func IsMultiTarget(s string) bool {
	return strings.Contains(s, ",") || strings.Contains(s, "..")
}

// SplitIDs splits a comma list, trimming members and dropping empty ones.
func SplitIDs(s string) []string {
	parts := lo.Map(strings.Split(s, ","), func(p string, _ int) string {
		return strings.TrimSpace(p)
	})
	return lo.Compact(parts)
}

// IsIPAddress reports whether s is a literal IPv4 or IPv6 address.
func IsIPAddress(s string) bool {
	_, err := netip.ParseAddr(s)
	return err == nil
}

// ID returns an InvalidIdentifier error when value is not a non-negative
// integer, nil otherwise.
func ID(field, value string) *xmlresult.Error {
	if IsNonNegInt(value) {
		return nil
	}
	return xmlresult.Errorf(xmlresult.InvalidIdentifier, "%s must be a non-negative integer", field)
}

// Positive returns an InvalidParameter error when value is not a strictly
// positive integer, nil otherwise.
func Positive(field, value string) *xmlresult.Error {
	if IsPositiveInt(value) {
		return nil
	}
	return xmlresult.Errorf(xmlresult.InvalidParameter, "%s must be a positive integer", field)
}

// IDs validates several identifier fields in order and returns the first
// failure. Pairs are given as field, value, field, value...
func IDs(pairs ...string) *xmlresult.Error {
	for _, pair := range lo.Chunk(pairs, 2) {
		if len(pair) != 2 {
			break
		}
		if err := ID(pair[0], pair[1]); err != nil {
			return err
		}
	}
	return nil
}
