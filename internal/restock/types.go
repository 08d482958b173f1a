// Package restock holds the domain types of the restock notification pipeline:
// stock change events, email registrations, localized product names and the
// coded errors shared by every stage.
package restock

import (
	"sort"
	"strings"

	"golang.org/x/text/language"
)

// EmailRegistration is one customer's request to be told when a product is back.
type EmailRegistration struct {
	Email            string `json:"email"`
	EntryID          string `json:"entry_id"`
	Language         string `json:"language"`
	RelatedProductID string `json:"related_product_id"`
}

// ProductNameSet maps a base language code ("en", "nl", ...) to the product name
// in that language.
type ProductNameSet map[string]string

// Get returns the trimmed name for lang and whether it is non-empty.
func (s ProductNameSet) Get(lang string) (string, bool) {
	name := strings.TrimSpace(s[lang])
	return name, name != ""
}

// HasAny reports whether at least one language carries a non-empty name.
func (s ProductNameSet) HasAny() bool {
	for _, v := range s {
		if strings.TrimSpace(v) != "" {
			return true
		}
	}
	return false
}

// Languages returns the languages with a non-empty name, sorted.
func (s ProductNameSet) Languages() []string {
	langs := make([]string, 0, len(s))
	for k, v := range s {
		if strings.TrimSpace(v) != "" {
			langs = append(langs, k)
		}
	}
	sort.Strings(langs)
	return langs
}

// StockChangeEvent is the validated form of an inbound content-store webhook.
type StockChangeEvent struct {
	ProductID   string
	InStock     bool
	Names       ProductNameSet
	Revision    int
	ContentType string
}

// NormalizeLanguage reduces a locale tag such as "pt-BR" or "en_US" to its base
// language code ("pt", "en"). Unparseable input is lower-cased and returned as is.
func NormalizeLanguage(tag string) string {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return ""
	}
	t, err := language.Parse(strings.ReplaceAll(tag, "_", "-"))
	if err != nil {
		return strings.ToLower(tag)
	}
	base, _ := t.Base()
	return base.String()
}
