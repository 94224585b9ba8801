package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// sectionComments documents each top-level section of a generated file.
var sectionComments = map[string]string{
	"logging":  "Logging: level (DEBUG, INFO, WARN, ERROR), format (text, json), output (stderr, stdout, file path)",
	"store":    "Object store: type selects the section used (memory, s3)",
	"index":    "Path-existence index consulted before naming a destination: none, memory, badger",
	"mutation": "Move/copy/rename: collision attempts, batch size, rate limit, cross-org destinations",
	"versions": "Version snapshots: key prefix, URL base, write attempts",
	"gc":       "Orphan snapshot collection (run with `dittostore gc`)",
	"acl":      "Permission rules; deny rules win over allow rules",
	"metrics":  "Prometheus metrics server",
}

// InitConfig writes a default configuration file to the default location.
//
// Returns:
//   - string: Path of the written file
//   - error: If the file exists and force is false, or on write failure
func InitConfig(force bool) (string, error) {
	path := GetDefaultConfigPath()
	if err := InitConfigToPath(path, force); err != nil {
		return "", err
	}
	return path, nil
}

// InitConfigToPath writes a default configuration file to path, creating
// parent directories as needed.
func InitConfigToPath(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("config file already exists at %s (use --force to overwrite)", path)
	}

	content, err := generateYAMLWithComments(GetDefaultConfig())
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// RenderYAML renders cfg as YAML, with comments on every section.
func RenderYAML(cfg *Config) (string, error) {
	return generateYAMLWithComments(cfg)
}

func generateYAMLWithComments(cfg *Config) (string, error) {
	var doc yaml.Node
	if err := doc.Encode(cfg); err != nil {
		return "", fmt.Errorf("failed to encode config: %w", err)
	}

	// Mapping nodes alternate key and value children.
	for i := 0; i+1 < len(doc.Content); i += 2 {
		key := doc.Content[i]
		if comment, ok := sectionComments[key.Value]; ok {
			key.HeadComment = comment
		}
	}

	var b strings.Builder
	b.WriteString("# DittoStore Configuration File\n")
	b.WriteString("# Environment variables (DITTOSTORE_<SECTION>_<KEY>) override these values.\n\n")

	enc := yaml.NewEncoder(&b)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return "", fmt.Errorf("failed to render config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("failed to render config: %w", err)
	}

	return b.String(), nil
}
