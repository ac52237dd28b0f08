package knowledge

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/bryanwahyu/docimpact/internal/domain/analysis"
)

//go:embed default_catalog.yaml
var defaultCatalog []byte

// System is a team-owned component a document can impact.
type System struct {
	Name           string               `yaml:"name"`
	Description    string               `yaml:"description"`
	Level          analysis.ImpactLevel `yaml:"level"`
	Keywords       []string             `yaml:"keywords"`
	Conflict       string               `yaml:"conflict"`
	Recommendation string               `yaml:"recommendation"`
	Owner          analysis.Contact     `yaml:"owner"`
}

// Reference is an existing document that may relate to an upload.
type Reference struct {
	Title       string   `yaml:"title"`
	Type        string   `yaml:"type"`
	LastUpdated string   `yaml:"lastUpdated"`
	Tags        []string `yaml:"tags"`
	Keywords    []string `yaml:"keywords"`
}

type Catalog struct {
	Systems   []System    `yaml:"systems"`
	Documents []Reference `yaml:"documents"`
}

// Default returns the built-in catalog.
func Default() *Catalog {
	c, err := Parse(defaultCatalog)
	if err != nil {
		panic(fmt.Sprintf("knowledge: invalid built-in catalog: %v", err))
	}
	return c
}

// Load baca catalog dari file YAML. An empty path yields the default catalog.
func Load(path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	for i, s := range c.Systems {
		if s.Name == "" {
			return nil, fmt.Errorf("catalog system %d has no name", i)
		}
		if s.Level.Rank() == 0 {
			return nil, fmt.Errorf("catalog system %q has invalid level %q", s.Name, s.Level)
		}
		for j, k := range s.Keywords {
			c.Systems[i].Keywords[j] = strings.ToLower(k)
		}
	}
	for i, d := range c.Documents {
		for j, k := range d.Keywords {
			c.Documents[i].Keywords[j] = strings.ToLower(k)
		}
	}
	return &c, nil
}
