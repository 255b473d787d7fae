// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package article

import (
	"path/filepath"
	"strings"

	"github.com/pdiddy/pmc-harvester/pkg/types"
)

// NumericID strips the display prefix from a PMC identifier:
// "PMC12345" and "12345" both yield "12345".
func NumericID(id string) string {
	id = strings.TrimSpace(id)
	return strings.TrimPrefix(id, types.DisplayPrefix)
}

// DisplayID returns the prefixed form used for filenames and log output.
func DisplayID(id string) string {
	return types.DisplayPrefix + NumericID(id)
}

// OutputPath returns the deterministic file path for id in dir.
func OutputPath(dir, id string, format types.OutputFormat) string {
	return filepath.Join(dir, DisplayID(id)+format.Extension())
}
