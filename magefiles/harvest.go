//go:build mage

package main

import (
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Harvest builds the binary and runs a batch over keywordsFile without
// prompting.
func Harvest(keywordsFile string) error {
	mg.Deps(Build)
	return sh.RunV(filepath.Join(binDir, binName), "batch", "--yes", keywordsFile)
}
