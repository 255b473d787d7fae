// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads credentials from a directory of plain-text files.
// Each file in the directory represents one secret: the filename is the key
// name and the file contents (trimmed) are the value.
//
// Supported key files: ncbi-api-key, ncbi-email.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

const (
	// DefaultDir is the secrets directory relative to the working directory.
	DefaultDir = ".secrets"

	// NCBIAPIKey and NCBIEmail are the recognized key files.
	NCBIAPIKey = "ncbi-api-key"
	NCBIEmail  = "ncbi-email"

	// LegacyAPIKeyFile is the single-file location older setups used.
	LegacyAPIKeyFile = "archive/ncbi_api_key.txt"
)

// Load reads all files in dir and returns a map of filename to trimmed contents.
// A missing directory or missing files are not errors; Load returns an empty map.
// Unreadable files are logged as warnings but do not abort.
func Load(dir string, log *zap.Logger) (map[string]string, error) {
	if log == nil {
		log = zap.NewNop()
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		value, err := readValue(filepath.Join(dir, name))
		if err != nil {
			log.Warn("could not read secret", zap.String("name", name), zap.Error(err))
			continue
		}
		if value != "" {
			secrets[name] = value
		}
	}

	return secrets, nil
}

// APIKey picks the NCBI API key: explicit (flag, config, or environment)
// first, then the loaded secrets, then the legacy key file. It returns the
// key and a label for where it came from, or two empty strings.
func APIKey(explicit string, loaded map[string]string, legacyPath string) (key, source string) {
	if v := strings.TrimSpace(explicit); v != "" {
		return v, "config"
	}
	if v := loaded[NCBIAPIKey]; v != "" {
		return v, filepath.Join(DefaultDir, NCBIAPIKey)
	}
	if legacyPath != "" {
		if v, err := readValue(legacyPath); err == nil && v != "" {
			return v, legacyPath
		}
	}
	return "", ""
}

func readValue(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
