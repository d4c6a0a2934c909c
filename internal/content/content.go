// Package content holds the static dashboard content: home cards, seed
// datasets and the awareness guidelines
package content

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/abelzeko/dengue-watch/internal/entities"
)

//go:embed content.yaml
var defaultContent []byte

// Content is the parsed content file
type Content struct {
	Cards          []entities.FeatureCard    `yaml:"cards"`
	Fumigation     []entities.FumigationCity `yaml:"fumigation"`
	Neighbourhoods []string                  `yaml:"neighbourhoods"`
	Tips           []string                  `yaml:"tips"`
	Symptoms       []string                  `yaml:"symptoms"`
	Myths          []entities.Myth           `yaml:"myths"`
}

// Parse decodes a content document and checks it is usable
func Parse(data []byte) (*Content, error) {
	var c Content
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse content: %w", err)
	}
	if len(c.Fumigation) == 0 {
		return nil, fmt.Errorf("content has no fumigation cities")
	}
	for _, city := range c.Fumigation {
		if city.EstimatedDays <= 0 {
			return nil, fmt.Errorf("fumigation city %s has no estimated completion", city.City)
		}
	}
	if len(c.Neighbourhoods) == 0 {
		return nil, fmt.Errorf("content has no neighbourhoods")
	}
	return &c, nil
}

// Default returns the embedded content. The embedded file is validated by
// tests, so a parse failure here is a build defect
func Default() *Content {
	c, err := Parse(defaultContent)
	if err != nil {
		panic(err)
	}
	return c
}
