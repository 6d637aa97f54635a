package language

import (
	"fmt"
	"strings"

	xlanguage "golang.org/x/text/language"
)

// Normalize canonicalizes a language code into BCP-47 form (e.g. "si-lk"
// becomes "si-LK", "EN_us" becomes "en-US"). It rejects codes the tag parser
// cannot make sense of.
func Normalize(code string) (string, error) {
	trimmed := strings.TrimSpace(strings.ReplaceAll(code, "_", "-"))
	if trimmed == "" {
		return "", fmt.Errorf("language code is empty")
	}
	tag, err := xlanguage.Parse(trimmed)
	if err != nil {
		return "", fmt.Errorf("parse language code %q: %w", code, err)
	}
	return tag.String(), nil
}

// Base returns the lowercase base language (e.g. "si" for "si-LK"), or the
// lowercased input when it cannot be parsed.
func Base(code string) string {
	trimmed := strings.TrimSpace(strings.ReplaceAll(code, "_", "-"))
	if trimmed == "" {
		return ""
	}
	tag, err := xlanguage.Parse(trimmed)
	if err != nil {
		return strings.ToLower(trimmed)
	}
	base, _ := tag.Base()
	return base.String()
}

// Equal reports whether two codes share the same base language regardless of
// region or casing.
func Equal(a, b string) bool {
	if strings.TrimSpace(a) == "" || strings.TrimSpace(b) == "" {
		return false
	}
	return Base(a) == Base(b)
}
