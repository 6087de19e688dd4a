package errors

import (
	"strings"
	"unicode"
)

// ValidateName validates a dataset name or chart id before it is used as a
// key. kind is used in the message ("dataset", "chart").
//
// Names may contain any printable characters; they are sanitized separately
// before being used as file stems or DOM ids.
func ValidateName(kind, name string) error {
	if name == "" {
		return New(ErrCodeInvalidInput, "%s name cannot be empty", kind)
	}

	if len(name) > 256 {
		return New(ErrCodeInvalidInput, "%s name too long (max 256 characters)", kind)
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "%s name contains invalid control characters", kind)
		}
	}

	return nil
}

// ValidatePath validates a file path relative to a project directory.
// It prevents writes escaping the project root.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 500 characters
//   - No null bytes or control characters
//   - No absolute paths (must be relative)
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

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}

	if strings.HasPrefix(path, "/") {
		return New(ErrCodeInvalidPath, "path must be relative (cannot start with /)")
	}

	if strings.Contains(path, "..") {
		return New(ErrCodeInvalidPath, "path cannot contain path traversal sequences (..)")
	}

	if strings.Contains(path, "\\") {
		return New(ErrCodeInvalidPath, "path cannot contain backslashes")
	}

	return nil
}

// ValidateURL validates a script or stylesheet URL referenced by a page.
// Absolute URLs must use http or https; protocol-relative and scheme-less
// relative URLs are rejected since generated pages are opened from file://.
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidInput, "URL cannot be empty")
	}

	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return New(ErrCodeInvalidInput, "URL must use http or https scheme: %q", rawURL)
	}

	if strings.ContainsAny(rawURL, "\"<> \n") {
		return New(ErrCodeInvalidInput, "URL contains invalid characters: %q", rawURL)
	}

	return nil
}
