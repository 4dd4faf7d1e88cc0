package export

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"
)

// ErrInvalidOutputDir wraps every ValidateOutputDir failure.
var ErrInvalidOutputDir = errors.New("invalid output_dir")

// SanitizeName makes s safe for an EDL title or clip comment: control
// characters are dropped, anything outside a small punctuation set
// becomes '_', and the result is capped at maxLen runes.
func SanitizeName(s string, maxLen int) string {
	cleaned := strings.TrimSpace(strings.Map(func(r rune) rune {
		switch {
		case unicode.IsControl(r):
			return -1
		case unicode.IsLetter(r), unicode.IsDigit(r):
			return r
		case strings.ContainsRune(" -_.,()", r):
			return r
		default:
			return '_'
		}
	}, s))

	if runes := []rune(cleaned); maxLen > 0 && len(runes) > maxLen {
		cleaned = string(runes[:maxLen])
	}
	return cleaned
}

// ValidateOutputDir accepts only clean, existing directories without
// parent traversal.
func ValidateOutputDir(dir string) error {
	if strings.TrimSpace(dir) == "" {
		return fmt.Errorf("%w: required", ErrInvalidOutputDir)
	}
	for _, part := range strings.Split(filepath.ToSlash(dir), "/") {
		if part == ".." {
			return fmt.Errorf("%w: path traversal", ErrInvalidOutputDir)
		}
	}
	if filepath.Clean(dir) != dir {
		return fmt.Errorf("%w: must be a clean path", ErrInvalidOutputDir)
	}

	info, err := os.Stat(dir)
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: does not exist", ErrInvalidOutputDir)
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidOutputDir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: not a directory", ErrInvalidOutputDir)
	}
	return nil
}
