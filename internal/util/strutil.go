package util

import "strings"

// FirstNonEmpty returns v if it contains non-whitespace content; otherwise fallback.
func FirstNonEmpty(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}

// MaskID shortens an identifier for log output, keeping only the first and
// last four characters. Short values are fully masked.
func MaskID(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return "(not set)"
	}
	if len(v) > 8 {
		return v[:4] + "..." + v[len(v)-4:]
	}
	return "***"
}
