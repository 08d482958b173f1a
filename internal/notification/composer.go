package notification

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/shaharia-lab/restock-notifier/internal/catalog"
	"github.com/shaharia-lab/restock-notifier/internal/restock"
)

// ErrNoProductName is returned by Render when the name set is empty in every language.
var ErrNoProductName = errors.New("no product name available")

// Rendered is a composed notification for one recipient.
type Rendered struct {
	Language    string
	ProductName string
	Subject     string
	HTMLBody    string
	Text        string
}

// Message turns the rendered content into a deliverable Message with the
// inline image attached.
func (r Rendered) Message(from, to string) Message {
	return Message{
		From:    from,
		To:      to,
		Subject: r.Subject,
		HTML:    r.HTMLBody,
		Text:    r.Text,
		Inline:  []Attachment{InlineImage()},
	}
}

// Composer renders restock emails from the localization catalog. It performs
// no I/O and renders identical inputs to identical output.
type Composer struct {
	catalog     *catalog.Catalog
	shopBaseURL string
}

// NewComposer creates a Composer. shopBaseURL prefixes the product links.
func NewComposer(c *catalog.Catalog, shopBaseURL string) *Composer {
	return &Composer{catalog: c, shopBaseURL: strings.TrimRight(shopBaseURL, "/")}
}

// Render composes the subject and body for reg in its language, falling back
// to the catalog's fallback language for the template and for the product name.
func (c *Composer) Render(reg restock.EmailRegistration, names restock.ProductNameSet) (Rendered, error) {
	tmpl, found := c.catalog.Template(reg.Language)

	// The name follows the copy when the recipient's language has no template.
	lang := restock.NormalizeLanguage(reg.Language)
	if !found {
		lang = tmpl.Language
	}
	name, ok := c.productName(lang, names)
	if !ok {
		return Rendered{}, ErrNoProductName
	}

	productURL := c.productURL(name)
	html, err := buildEmailHTML(emailData{
		Name:       name,
		Heading:    tmpl.Heading,
		ImageCID:   InlineImageCID,
		ImageAlt:   tmpl.ImageAlt,
		Greeting:   tmpl.Greeting,
		BodyLead:   tmpl.BodyLead,
		BodyTail:   tmpl.BodyTail,
		ProductURL: productURL,
		CTALabel:   tmpl.CTALabel,
		Thanks:     tmpl.Thanks,
	})
	if err != nil {
		return Rendered{}, fmt.Errorf("rendering %s template: %w", tmpl.Language, err)
	}

	text := fmt.Sprintf("%s\n\n%s \"%s\" %s\n\n%s: %s\n\n%s\n",
		tmpl.Greeting, tmpl.BodyLead, name, tmpl.BodyTail, tmpl.CTALabel, productURL, tmpl.Thanks)

	return Rendered{
		Language:    tmpl.Language,
		ProductName: name,
		Subject:     name + " " + tmpl.SubjectSuffix,
		HTMLBody:    html,
		Text:        text,
	}, nil
}

// productName picks the name for lang, then the fallback language, then the
// first catalog language that has one.
func (c *Composer) productName(lang string, names restock.ProductNameSet) (string, bool) {
	if name, ok := names.Get(lang); ok {
		return name, true
	}
	if name, ok := names.Get(c.catalog.Fallback()); ok {
		return name, true
	}
	for _, l := range c.catalog.Languages() {
		if name, ok := names.Get(l); ok {
			return name, true
		}
	}
	for _, l := range names.Languages() {
		if name, ok := names.Get(l); ok {
			return name, true
		}
	}
	return "", false
}

func (c *Composer) productURL(name string) string {
	return c.shopBaseURL + "/product/" + url.PathEscape(name)
}
