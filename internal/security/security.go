// Package security holds the OWASP Top 10 teaching catalogue shown to admins.
package security

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var catalogYAML []byte

// Scenario describes one OWASP category as it applies to the portal.
type Scenario struct {
	ID         string `yaml:"id"`
	Title      string `yaml:"title"`
	Summary    string `yaml:"summary"`
	Route      string `yaml:"route"`
	PoC        string `yaml:"poc"`
	Mitigation string `yaml:"mitigation"`
}

type Catalog struct {
	scenarios []Scenario
	byID      map[string]*Scenario
}

// Parse decodes a YAML list of scenarios. Duplicate ids are rejected.
func Parse(data []byte) (*Catalog, error) {
	var list []Scenario
	if err := yaml.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("parse security catalog: %w", err)
	}
	c := &Catalog{scenarios: list, byID: make(map[string]*Scenario, len(list))}
	for i := range c.scenarios {
		s := &c.scenarios[i]
		if s.ID == "" {
			return nil, fmt.Errorf("security catalog entry %d has no id", i)
		}
		if _, dup := c.byID[s.ID]; dup {
			return nil, fmt.Errorf("duplicate security scenario %q", s.ID)
		}
		c.byID[s.ID] = s
	}
	return c, nil
}

// Default returns the embedded catalogue. It panics if the embedded file is broken.
func Default() *Catalog {
	c, err := Parse(catalogYAML)
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Catalog) All() []Scenario {
	out := make([]Scenario, len(c.scenarios))
	copy(out, c.scenarios)
	return out
}

func (c *Catalog) Find(id string) (Scenario, bool) {
	s, ok := c.byID[id]
	if !ok {
		return Scenario{}, false
	}
	return *s, true
}
