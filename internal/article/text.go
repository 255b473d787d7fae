// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package article

import (
	"regexp"
	"strings"
)

var (
	tagPattern        = regexp.MustCompile(`<[^>]+>`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// PlainText removes every markup tag, collapses whitespace runs to a single
// space, and trims the result.
func PlainText(markup string) string {
	text := tagPattern.ReplaceAllString(markup, " ")
	text = whitespacePattern.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
