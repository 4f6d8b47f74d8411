package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"
)

const maxFileNameLen = 120

// SanitizeName keeps letters, digits and a few punctuation marks, replaces
// everything else with '_' and drops control characters.
func SanitizeName(s string, maxLen int) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsControl(r) {
			continue
		}
		if isAllowedNameRune(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}

	cleaned := strings.TrimSpace(b.String())
	if maxLen > 0 {
		runes := []rune(cleaned)
		if len(runes) > maxLen {
			cleaned = strings.TrimSpace(string(runes[:maxLen]))
		}
	}
	return cleaned
}

func isAllowedNameRune(r rune) bool {
	if unicode.IsLetter(r) || unicode.IsDigit(r) {
		return true
	}
	switch r {
	case ' ', '-', '_', '.', ',', '(', ')':
		return true
	default:
		return false
	}
}

// FileName builds "<name>.<format>" from a user supplied name, falling back to
// "summary_<videoID>". Leading dots are stripped so the result is never hidden.
func FileName(name, videoID, format string) string {
	base := strings.TrimLeft(SanitizeName(name, maxFileNameLen), ".")
	base = strings.TrimSuffix(base, "."+format)
	if base == "" {
		base = strings.TrimLeft(SanitizeName("summary_"+videoID, maxFileNameLen), ".")
	}
	return base + "." + format
}

func ValidateOutputDir(dir string) error {
	if strings.TrimSpace(dir) == "" {
		return fmt.Errorf("output_dir is required")
	}

	for _, part := range strings.Split(filepath.ToSlash(dir), "/") {
		if part == ".." {
			return fmt.Errorf("output_dir cannot contain path traversal")
		}
	}

	cleaned := filepath.Clean(dir)
	if cleaned != dir {
		return fmt.Errorf("output_dir must be clean path")
	}

	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("output_dir does not exist")
		}
		return fmt.Errorf("invalid output_dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("output_dir is not a directory")
	}

	return nil
}

// ResolveOutputDir validates dir, or creates and returns fallback when dir is
// empty.
func ResolveOutputDir(dir, fallback string) (string, error) {
	if strings.TrimSpace(dir) != "" {
		return dir, ValidateOutputDir(dir)
	}
	if fallback == "" {
		return "", fmt.Errorf("output_dir is required")
	}
	if err := os.MkdirAll(fallback, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}
	return fallback, nil
}
