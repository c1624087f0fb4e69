// Package templates renders reminder messages from a YAML catalog file.
package templates

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"reminder_service/internal/domain/reminder"

	yaml "go.yaml.in/yaml/v3"
)

// Template is one catalog entry. A missing Enabled field means enabled.
type Template struct {
	Subject string `yaml:"subject"`
	Body    string `yaml:"body"`
	Enabled *bool  `yaml:"enabled,omitempty"`
}

func (t Template) IsEnabled() bool {
	return t.Enabled == nil || *t.Enabled
}

// Catalog maps template keys to templates.
type Catalog struct {
	templates map[string]Template
}

type catalogFile struct {
	Templates map[string]Template `yaml:"templates"`
}

// LoadFile reads a catalog such as:
//
//	templates:
//	  anniversary_reminder:
//	    subject: "{{title}} in {{days_until}} days"
//	    body: "..."
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read template catalog: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("yaml unmarshal: %w", err)
	}
	if f.Templates == nil {
		f.Templates = map[string]Template{}
	}
	return &Catalog{templates: f.Templates}, nil
}

// Keys returns the template keys in lexical order.
func (c *Catalog) Keys() []string {
	keys := make([]string, 0, len(c.templates))
	for k := range c.templates {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (c *Catalog) Get(key string) (Template, bool) {
	t, ok := c.templates[key]
	return t, ok
}

// Render implements reminder.TemplateRenderer.
func (c *Catalog) Render(_ context.Context, key string, vars map[string]string) (reminder.Message, bool, error) {
	t, ok := c.templates[key]
	if !ok || !t.IsEnabled() {
		return reminder.Message{}, false, nil
	}
	return reminder.Message{
		Subject: Apply(t.Subject, vars),
		Body:    Apply(t.Body, vars),
	}, true, nil
}

var placeholderRe = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_]+)\s*\}\}`)

// Apply replaces {{name}} placeholders with vars[name]. Unknown placeholders
// are left as they are so a typo is visible in the delivered message.
func Apply(text string, vars map[string]string) string {
	if !strings.Contains(text, "{{") {
		return text
	}
	return placeholderRe.ReplaceAllStringFunc(text, func(m string) string {
		name := placeholderRe.FindStringSubmatch(m)[1]
		if v, ok := vars[name]; ok {
			return v
		}
		return m
	})
}
