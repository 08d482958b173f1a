// Package catalog holds the localized email copy used for restock notifications.
// The catalog is parsed once from an embedded YAML resource and never mutated.
package catalog

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/shaharia-lab/restock-notifier/internal/restock"
)

// DefaultFallbackLanguage is used when no fallback language is configured.
const DefaultFallbackLanguage = "nl"

//go:embed templates.yaml
var templatesYAML []byte

// EmailTemplate is the copy for one language.
type EmailTemplate struct {
	Language      string `yaml:"code"`
	SubjectSuffix string `yaml:"subject_suffix"`
	Heading       string `yaml:"heading"`
	ImageAlt      string `yaml:"image_alt"`
	Greeting      string `yaml:"greeting"`
	BodyLead      string `yaml:"body_lead"`
	BodyTail      string `yaml:"body_tail"`
	CTALabel      string `yaml:"cta_label"`
	Thanks        string `yaml:"thanks"`
}

type catalogFile struct {
	Languages []EmailTemplate `yaml:"languages"`
}

// Catalog maps language codes to templates and knows its fallback language.
type Catalog struct {
	templates map[string]EmailTemplate
	order     []string
	fallback  string
}

// Load parses the embedded templates. fallback must be one of the catalog's
// languages; an empty fallback selects DefaultFallbackLanguage.
func Load(fallback string) (*Catalog, error) {
	return Parse(templatesYAML, fallback)
}

// Parse builds a Catalog from YAML data.
func Parse(data []byte, fallback string) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing template catalog: %w", err)
	}
	if len(f.Languages) == 0 {
		return nil, fmt.Errorf("template catalog has no languages")
	}

	c := &Catalog{templates: make(map[string]EmailTemplate, len(f.Languages))}
	for _, t := range f.Languages {
		t.Language = restock.NormalizeLanguage(t.Language)
		if t.Language == "" {
			return nil, fmt.Errorf("template catalog entry without a language code")
		}
		if t.SubjectSuffix == "" {
			return nil, fmt.Errorf("template %q: subject_suffix is empty", t.Language)
		}
		if _, dup := c.templates[t.Language]; dup {
			return nil, fmt.Errorf("template %q defined twice", t.Language)
		}
		c.templates[t.Language] = t
		c.order = append(c.order, t.Language)
	}

	if fallback == "" {
		fallback = DefaultFallbackLanguage
	}
	fallback = restock.NormalizeLanguage(fallback)
	if _, ok := c.templates[fallback]; !ok {
		return nil, fmt.Errorf("fallback language %q not in catalog (have %s)", fallback, strings.Join(c.order, ", "))
	}
	c.fallback = fallback
	return c, nil
}

// Fallback returns the fallback language code.
func (c *Catalog) Fallback() string { return c.fallback }

// Languages returns the catalog languages in declaration order.
func (c *Catalog) Languages() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Template returns the template for lang, or the fallback template when lang
// is unknown. The second result reports whether lang itself was found.
func (c *Catalog) Template(lang string) (EmailTemplate, bool) {
	if t, ok := c.templates[restock.NormalizeLanguage(lang)]; ok {
		return t, true
	}
	return c.templates[c.fallback], false
}

// Resolve returns lang when the catalog has a template for it, else the fallback.
func (c *Catalog) Resolve(lang string) string {
	lang = restock.NormalizeLanguage(lang)
	if _, ok := c.templates[lang]; ok {
		return lang
	}
	return c.fallback
}
