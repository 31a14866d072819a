package importer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Manifest lists statement files to import in one batch, typically fed
// to the CLI.
type Manifest struct {
	Statements []Statement `yaml:"statements"`
}

// Statement is a single entry of a Manifest.
type Statement struct {
	FilePath  string `yaml:"file"`
	AccountID uint   `yaml:"account_id"`
	UseAI     bool   `yaml:"ai"`
}

// File returns the absolute path to the statement file, expanding ~.
func (s *Statement) File() (string, error) {
	if strings.HasPrefix(s.FilePath, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, s.FilePath[2:]), nil
	}
	return s.FilePath, nil
}

// ManifestFromFile reads a manifest from a YAML file.
func ManifestFromFile(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var manifest Manifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	return &manifest, nil
}

// ImportManifest imports every statement in the manifest, continuing
// past per-file failures. It returns the total number of transactions
// written across all files.
func (imp *Importer) ImportManifest(ctx context.Context, ownerID uint, m *Manifest) (int, error) {
	total := 0
	for _, stmt := range m.Statements {
		path, err := stmt.File()
		if err != nil {
			return total, err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			imp.logger.Warn("skipping unreadable statement file", "file", path, "error", err)
			continue
		}
		processed, err := imp.Import(ctx, ownerID, stmt.AccountID, data, filepath.Base(path), stmt.UseAI)
		if err != nil {
			imp.logger.Warn("statement import failed", "file", path, "error", err)
			continue
		}
		total += processed
	}
	return total, nil
}
