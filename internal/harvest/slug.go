// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package harvest

import (
	"regexp"
	"strings"
)

var unsafeRun = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Slug derives the output subdirectory name for keyword. Runs of characters
// outside [A-Za-z0-9._-] collapse to a single underscore and leading or
// trailing underscores are trimmed. A keyword with nothing usable maps to
// "keyword".
func Slug(keyword string) string {
	s := unsafeRun.ReplaceAllString(strings.TrimSpace(keyword), "_")
	s = strings.Trim(s, "_")
	if s == "" {
		return "keyword"
	}
	return s
}
