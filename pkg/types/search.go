// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// SearchResult is a bounded page of PMC identifiers in server relevance
// order. TotalAvailable counts every match server-side, not only the
// identifiers returned.
type SearchResult struct {
	IDs            []string `json:"ids" yaml:"ids"`
	TotalAvailable int      `json:"total_available" yaml:"total_available"`
}
