// Package security provides input validation and log sanitization for
// values that arrive over the HTTP API.
package security

import (
	"path/filepath"
	"strings"
	"unicode"
)

// Path validation errors.
var (
	ErrPathEmpty     = &PathError{Reason: "path is empty"}
	ErrPathNullByte  = &PathError{Reason: "path contains null byte"}
	ErrPathTraversal = &PathError{Reason: "path traversal detected"}
	ErrPathAbsolute  = &PathError{Reason: "absolute path not allowed"}
	ErrPathTooLong   = &PathError{Reason: "path exceeds maximum length"}
)

// PathError represents a path validation error.
type PathError struct {
	Reason string
	Path   string
}

func (e *PathError) Error() string {
	if e.Path != "" {
		return e.Reason + ": " + e.Path
	}
	return e.Reason
}

// MaxPathLength is the maximum allowed path length.
const MaxPathLength = 1024

// ValidateRelativePath checks that path stays inside whatever directory it is
// later joined to. Report targets requested over HTTP go through this.
func ValidateRelativePath(path string) error {
	if path == "" {
		return ErrPathEmpty
	}
	if strings.ContainsRune(path, 0) {
		return &PathError{Reason: ErrPathNullByte.Reason, Path: "[contains null byte]"}
	}
	if len(path) > MaxPathLength {
		return &PathError{Reason: ErrPathTooLong.Reason, Path: path[:50] + "..."}
	}
	if filepath.IsAbs(path) || strings.HasPrefix(path, "/") || filepath.VolumeName(path) != "" {
		return &PathError{Reason: ErrPathAbsolute.Reason, Path: SanitizeForLog(path)}
	}

	for _, part := range strings.Split(filepath.ToSlash(filepath.Clean(path)), "/") {
		if part == ".." {
			return &PathError{Reason: ErrPathTraversal.Reason, Path: SanitizeForLog(path)}
		}
	}
	return nil
}

// JoinWithin validates rel and joins it under base.
func JoinWithin(base, rel string) (string, error) {
	if err := ValidateRelativePath(rel); err != nil {
		return "", err
	}
	return filepath.Join(base, filepath.Clean(rel)), nil
}

// SanitizeForLog escapes control characters and truncates to 200 runes.
func SanitizeForLog(s string) string {
	return SanitizeForLogWithLength(s, 200)
}

// SanitizeForLogWithLength sanitizes a string for logging with a custom max length.
func SanitizeForLogWithLength(s string, maxLen int) string {
	if s == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(min(len(s), maxLen+10))

	count := 0
	for _, r := range s {
		if count >= maxLen {
			b.WriteString("...")
			break
		}

		switch r {
		case '\n':
			b.WriteString("\\n")
			count += 2
		case '\r':
			b.WriteString("\\r")
			count += 2
		case '\t':
			b.WriteString("\\t")
			count += 2
		default:
			if !unicode.IsControl(r) {
				b.WriteRune(r)
				count++
			}
		}
	}

	return b.String()
}

var sensitiveFieldPatterns = []string{
	"password",
	"secret",
	"token",
	"key",
	"credential",
	"auth",
}

// MaskSensitiveMap copies m with values of secret-looking keys redacted.
func MaskSensitiveMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}

	masked := make(map[string]any, len(m))
	for key, value := range m {
		if isSensitiveKey(key) {
			masked[key] = "[REDACTED]"
		} else {
			masked[key] = value
		}
	}
	return masked
}

func isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, pattern := range sensitiveFieldPatterns {
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	return false
}
