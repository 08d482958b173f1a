package restock

import (
	"bytes"
	"encoding/json"
	"sort"
	"strings"
)

// DefaultLocale is the content-store locale under which single-locale fields are stored.
const DefaultLocale = "en-US"

// nameFields maps the per-language product name fields of the product content
// type to the language they carry.
var nameFields = []struct {
	field string
	lang  string
}{
	{"productNameEnglish", "en"},
	{"productNameDutch", "nl"},
	{"productNamePortuguese", "pt"},
	{"productNameGerman", "de"},
}

type rawLink struct {
	Sys struct {
		ID string `json:"id"`
	} `json:"sys"`
}

type rawSys struct {
	ID          string  `json:"id"`
	Type        string  `json:"type"`
	Revision    int     `json:"revision"`
	ContentType rawLink `json:"contentType"`
}

type rawEvent struct {
	Sys    *rawSys                    `json:"sys"`
	Fields map[string]json.RawMessage `json:"fields"`
}

// ParseStockChangeEvent decodes and validates a webhook body.
//
// A body without a sys or fields section yields a ValidationError with
// CodeInvalidPayload. An event whose inStock flag is anything but the JSON
// literal true is returned with InStock false and no name validation. An
// in-stock event without a product id, or without any product name, yields
// CodeMissingProductInfo. The legacy "name" field is filed under fallbackLang.
func ParseStockChangeEvent(body []byte, fallbackLang string) (*StockChangeEvent, error) {
	var raw rawEvent
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, &ValidationError{Code: CodeInvalidPayload, Message: "empty body"}
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, &ValidationError{Code: CodeInvalidPayload, Message: "body is not a JSON object: " + err.Error()}
	}
	if raw.Sys == nil {
		return nil, &ValidationError{Code: CodeInvalidPayload, Field: "sys", Message: "section is missing"}
	}
	if raw.Fields == nil {
		return nil, &ValidationError{Code: CodeInvalidPayload, Field: "fields", Message: "section is missing"}
	}

	ev := &StockChangeEvent{
		ProductID:   strings.TrimSpace(raw.Sys.ID),
		InStock:     isLiteralTrue(localized(raw.Fields["inStock"])[DefaultLocale]),
		Revision:    raw.Sys.Revision,
		ContentType: raw.Sys.ContentType.Sys.ID,
	}
	if !ev.InStock {
		return ev, nil
	}

	ev.Names = extractNames(raw.Fields, fallbackLang)
	if ev.ProductID == "" {
		return nil, &ValidationError{Code: CodeMissingProductInfo, Field: "sys.id", Message: "product id is empty"}
	}
	if !ev.Names.HasAny() {
		return nil, &ValidationError{Code: CodeMissingProductInfo, Field: "fields", Message: "no product name in any language"}
	}
	return ev, nil
}

func extractNames(fields map[string]json.RawMessage, fallbackLang string) ProductNameSet {
	names := ProductNameSet{}
	set := func(lang, value string) {
		value = strings.TrimSpace(value)
		if lang == "" || value == "" {
			return
		}
		if _, ok := names.Get(lang); !ok {
			names[lang] = value
		}
	}

	for _, nf := range nameFields {
		set(nf.lang, localizedString(fields[nf.field], DefaultLocale))
	}
	localizedNames := localized(fields["productName"])
	tags := make([]string, 0, len(localizedNames))
	for tag := range localizedNames {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	for _, tag := range tags {
		set(NormalizeLanguage(tag), asString(localizedNames[tag]))
	}
	set(fallbackLang, localizedString(fields["name"], DefaultLocale))
	return names
}

// localized decodes a {"<locale>": <value>} field. Anything else yields nil.
func localized(raw json.RawMessage) map[string]json.RawMessage {
	if len(raw) == 0 {
		return nil
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil
	}
	return m
}

func localizedString(raw json.RawMessage, locale string) string {
	return asString(localized(raw)[locale])
}

func asString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

func isLiteralTrue(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("true"))
}
