package scenario

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/easeaico/project-keeper/internal/check"
)

//go:embed default.yaml
var defaultCatalogYAML []byte

// Default returns the built-in catalog.
func Default() *Catalog {
	c, err := Parse(defaultCatalogYAML)
	if err != nil {
		panic(fmt.Sprintf("built-in scenario catalog is invalid: %v", err))
	}
	return c
}

// Parse decodes and validates a YAML catalog.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to decode scenario catalog: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Load reads a catalog file. An empty path yields Default().
func Load(path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario catalog %s: %w", path, err)
	}
	return Parse(data)
}

// LoadRulebook reads the DC rulebook table. An empty path yields the built-in one.
func LoadRulebook(path string) (check.Rulebook, error) {
	if strings.TrimSpace(path) == "" {
		return check.DefaultRulebook(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return check.Rulebook{}, fmt.Errorf("failed to read rulebook %s: %w", path, err)
	}
	var rb check.Rulebook
	if err := yaml.Unmarshal(data, &rb); err != nil {
		return check.Rulebook{}, fmt.Errorf("failed to decode rulebook: %w", err)
	}
	if rb.Overrides == nil {
		rb.Overrides = map[string]int{}
	}
	return rb, nil
}
