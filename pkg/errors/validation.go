package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// ValidateModuleName validates a module name for safety and correctness.
// It rejects names that could be used for path traversal or injection
// attacks.
//
// The validation rules are intentionally conservative:
//   - No empty names
//   - No control characters
//   - No path traversal sequences (.., //, etc.)
//   - No null bytes
//   - Maximum length of 256 characters
//
// Registry-specific slug validation is done separately by
// ValidateModuleSlug.
func ValidateModuleName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidModule, "module name cannot be empty")
	}

	if len(name) > 256 {
		return New(ErrCodeInvalidModule, "module name too long (max 256 characters)")
	}

	// Check for control characters and null bytes
	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidModule, "module name contains invalid control characters")
		}
	}

	// Check for path traversal patterns
	dangerousPatterns := []string{
		"..",   // Parent directory
		"//",   // Double slash
		"\x00", // Null byte
		"\\",   // Backslash (Windows path)
	}

	for _, pattern := range dangerousPatterns {
		if strings.Contains(name, pattern) {
			return New(ErrCodeInvalidModule, "module name contains invalid characters: %q", pattern)
		}
	}

	return nil
}

// moduleSlugRegex matches normalized registry slugs: owner-name, both
// parts lowercase alphanumeric with the name part allowing underscores.
var moduleSlugRegex = regexp.MustCompile(`^[a-z0-9]+-[a-z0-9_]+$`)

// ValidateModuleSlug validates a normalized registry module slug.
func ValidateModuleSlug(slug string) error {
	if err := ValidateModuleName(slug); err != nil {
		return err
	}

	if !moduleSlugRegex.MatchString(slug) {
		return New(ErrCodeInvalidModule, "invalid module slug: %q (expected owner-name)", slug)
	}

	return nil
}

// ValidatePath validates a file path for safety. It prevents path
// traversal attacks and ensures reasonable path length.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 500 characters
//   - No null bytes or control characters
//   - No path traversal sequences (..)
//   - No backslashes (Windows-style paths)
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 500
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	// Check for null bytes and control characters
	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}

	// Check for path traversal
	if strings.Contains(path, "..") {
		return New(ErrCodeInvalidPath, "path cannot contain path traversal sequences (..)")
	}

	// No backslashes (potential Windows path injection)
	if strings.Contains(path, "\\") {
		return New(ErrCodeInvalidPath, "path cannot contain backslashes")
	}

	return nil
}

// ValidateURL validates a URL string for safety.
// It ensures the URL has a safe scheme (http or https).
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidInput, "URL cannot be empty")
	}

	// Simple scheme validation without full URL parsing
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return New(ErrCodeInvalidInput, "URL must use http or https scheme")
	}

	return nil
}

// constraintRegex matches one requirement clause: an optional operator
// followed by a version. A full constraint is one or more clauses.
var constraintRegex = regexp.MustCompile(`^(?:(?:>=|<=|>|<|=|~>)\s*)?[0-9][0-9A-Za-z.\-]*$`)

// ValidateConstraint performs a shallow syntactic check on a version
// requirement string. The version package remains the authority on
// what parses; this only guards API inputs against garbage.
func ValidateConstraint(constraint string) error {
	s := strings.TrimSpace(constraint)
	if s == "" {
		return New(ErrCodeInvalidConstraint, "constraint cannot be empty")
	}
	if len(s) > 128 {
		return New(ErrCodeInvalidConstraint, "constraint too long (max 128 characters)")
	}

	for _, clause := range splitClauses(s) {
		if !constraintRegex.MatchString(clause) && !isWildcard(clause) {
			return New(ErrCodeInvalidConstraint, "invalid constraint clause: %q", clause)
		}
	}
	return nil
}

func splitClauses(s string) []string {
	fields := strings.Fields(s)
	var clauses []string
	for i := 0; i < len(fields); i++ {
		f := fields[i]
		if isOperator(f) && i+1 < len(fields) {
			clauses = append(clauses, f+" "+fields[i+1])
			i++
			continue
		}
		clauses = append(clauses, f)
	}
	return clauses
}

func isOperator(s string) bool {
	switch s {
	case ">=", "<=", ">", "<", "=", "~>":
		return true
	}
	return false
}

func isWildcard(clause string) bool {
	v := strings.TrimSpace(strings.TrimLeft(clause, "><=~ "))
	return strings.HasSuffix(v, ".x") || strings.HasSuffix(v, ".X") || v == "x" || v == "X"
}
