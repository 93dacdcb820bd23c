package utils

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/mod/semver"
)

// TruncateString truncates a string to maxLength, adding "..." if truncated
func TruncateString(s string, maxLength int) string {
	if len(s) <= maxLength {
		return s
	}
	if maxLength <= 3 {
		return s[:maxLength]
	}
	return s[:maxLength-3] + "..."
}

// ShellQuote wraps a string in single quotes with proper escaping for safe
// use in shell commands. Single quotes within the string are handled by ending
// the quoted section, adding an escaped single quote, and resuming quoting.
func ShellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "'\"'\"'") + "'"
}

// SplitTrim splits s on sep, trims every part and drops empty parts.
func SplitTrim(s, sep string) []string {
	var parts []string
	for _, part := range strings.Split(s, sep) {
		part = strings.TrimSpace(part)
		if part != "" {
			parts = append(parts, part)
		}
	}
	return parts
}

// CanonicalVersion converts a dotted numeric version such as "22.04" or "8.1"
// into the semver form understood by golang.org/x/mod/semver ("v22.4", "v8.1").
// Leading zeros are dropped per component because semver forbids them.
func CanonicalVersion(version string) (string, error) {
	version = strings.TrimPrefix(strings.TrimSpace(version), "v")
	if version == "" {
		return "", fmt.Errorf("empty version")
	}

	parts := strings.Split(version, ".")
	if len(parts) > 3 {
		parts = parts[:3]
	}
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return "", fmt.Errorf("invalid version %q", version)
		}
		parts[i] = strconv.Itoa(n)
	}

	v := "v" + strings.Join(parts, ".")
	if !semver.IsValid(v) {
		return "", fmt.Errorf("invalid version %q", version)
	}
	return v, nil
}

// CompareVersions compares two dotted numeric versions.
// Returns: 1 if a > b, -1 if a < b, 0 if equal.
func CompareVersions(a, b string) (int, error) {
	va, err := CanonicalVersion(a)
	if err != nil {
		return 0, err
	}
	vb, err := CanonicalVersion(b)
	if err != nil {
		return 0, err
	}
	return semver.Compare(va, vb), nil
}
