// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package artifact

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/market-edge/pkg/types"
)

// ExportYAML writes the stored artifacts to dir/index/export.yaml and
// returns the path written. kind filters as in List.
func (s *Store) ExportYAML(ctx context.Context, kind types.ArtifactKind) (string, error) {
	artifacts, err := s.List(ctx, kind)
	if err != nil {
		return "", fmt.Errorf("querying for export: %w", err)
	}
	data, err := yaml.Marshal(artifacts)
	if err != nil {
		return "", fmt.Errorf("marshaling YAML: %w", err)
	}
	return s.writeExport("export.yaml", data)
}

// ExportJSON writes the stored artifacts to dir/index/export.json.
func (s *Store) ExportJSON(ctx context.Context, kind types.ArtifactKind) (string, error) {
	artifacts, err := s.List(ctx, kind)
	if err != nil {
		return "", fmt.Errorf("querying for export: %w", err)
	}
	if artifacts == nil {
		artifacts = []types.Artifact{}
	}
	data, err := json.MarshalIndent(artifacts, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling JSON: %w", err)
	}
	return s.writeExport("export.json", data)
}

func (s *Store) writeExport(name string, data []byte) (string, error) {
	path := filepath.Join(s.dir, indexDir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", name, err)
	}
	return path, nil
}
