package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"pipegen-cli/internal/domain"

	"gopkg.in/yaml.v3"
)

// LoadSettings reads generation settings from a YAML or JSON file. Unknown
// keys are rejected. An empty path or empty file yields default settings.
func LoadSettings(path string) (*domain.UserSettings, error) {
	settings := &domain.UserSettings{}
	if path == "" {
		return settings, nil
	}
	if err := decodeFile(path, settings, true); err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	return settings, nil
}

// LoadAnalysis reads a stack analysis from a YAML or JSON file. Extra keys
// are ignored so a full detection result can be used as well.
func LoadAnalysis(path string) (*domain.StackAnalysis, error) {
	analysis := &domain.StackAnalysis{}
	if err := decodeFile(path, analysis, false); err != nil {
		return nil, fmt.Errorf("failed to load analysis: %w", err)
	}
	return analysis, nil
}

func decodeFile(path string, out any, strict bool) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	dec := yaml.NewDecoder(bytes.NewReader(content))
	dec.KnownFields(strict)
	if err := dec.Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: %s: %w", domain.ErrInvalidInput, path, err)
	}
	return nil
}
