// Package content serves the static health information shown on the portal
// pages: the emergency banner, programs, news and complaint guides.
package content

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed content.yaml
var contentYAML []byte

type Banner struct {
	Active  bool   `yaml:"active"`
	Level   string `yaml:"level"`
	Title   string `yaml:"title"`
	Message string `yaml:"message"`
	Contact string `yaml:"contact"`
}

type News struct {
	Title   string `yaml:"title"`
	Summary string `yaml:"summary"`
	Target  string `yaml:"target"`
	Channel string `yaml:"channel"`
}

type Program struct {
	ID          string   `yaml:"id"`
	Name        string   `yaml:"name"`
	Category    string   `yaml:"category"`
	Eligibility string   `yaml:"eligibility"`
	HowToApply  string   `yaml:"how_to_apply"`
	Contact     string   `yaml:"contact"`
	Documents   []string `yaml:"documents"`
}

// ComplaintType explains one complaint category. Code matches the stored category.
type ComplaintType struct {
	Category     string `yaml:"category"`
	Code         string `yaml:"code"`
	Description  string `yaml:"description"`
	SLADays      string `yaml:"sla_days"`
	RequiredDocs string `yaml:"required_docs"`
}

type StatusFAQ struct {
	Status      string `yaml:"status"`
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
}

type FAQ struct {
	Question string `yaml:"question"`
	Answer   string `yaml:"answer"`
}

type Content struct {
	EmergencyBanner    Banner          `yaml:"emergency_banner"`
	HealthNews         []News          `yaml:"health_news"`
	HealthPrograms     []Program       `yaml:"health_programs"`
	ComplaintTypeGuide []ComplaintType `yaml:"complaint_type_guide"`
	ComplaintStatusFAQ []StatusFAQ     `yaml:"complaint_status_faq"`
	HealthFAQ          []FAQ           `yaml:"health_faq"`
}

func Parse(data []byte) (*Content, error) {
	var c Content
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse health content: %w", err)
	}
	return &c, nil
}

// Default returns the embedded content. It panics if the embedded file is broken.
func Default() *Content {
	c, err := Parse(contentYAML)
	if err != nil {
		panic(err)
	}
	return c
}

// StatusTitle returns the display title of a complaint status, or the status itself.
func (c *Content) StatusTitle(status string) string {
	for _, f := range c.ComplaintStatusFAQ {
		if f.Status == status {
			return f.Title
		}
	}
	return status
}
