package notification_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaharia-lab/restock-notifier/internal/catalog"
	"github.com/shaharia-lab/restock-notifier/internal/notification"
	"github.com/shaharia-lab/restock-notifier/internal/restock"
)

func newComposer(t *testing.T, fallback string) *notification.Composer {
	t.Helper()
	c, err := catalog.Load(fallback)
	require.NoError(t, err)
	return notification.NewComposer(c, "https://shop.example.com/")
}

func TestRender_RecipientLanguage(t *testing.T) {
	composer := newComposer(t, "nl")
	names := restock.ProductNameSet{"nl": "Honingpot", "pt": "Pote de Mel"}

	out, err := composer.Render(restock.EmailRegistration{Email: "a@example.com", Language: "pt"}, names)
	require.NoError(t, err)

	assert.Equal(t, "pt", out.Language)
	assert.Equal(t, "Pote de Mel está de Volta ao Estoque!", out.Subject)
	assert.Contains(t, out.HTMLBody, "Olá!")
	assert.Contains(t, out.HTMLBody, `<strong>"Pote de Mel"</strong>`)
	assert.Contains(t, out.HTMLBody, `href="https://shop.example.com/product/Pote%20de%20Mel"`)
	assert.Contains(t, out.HTMLBody, `src="cid:beeImage"`)
	assert.Contains(t, out.Text, "Pote de Mel")
}

func TestRender_EmptyNameFallsBack(t *testing.T) {
	composer := newComposer(t, "nl")
	names := restock.ProductNameSet{"nl": "Honingpot", "pt": ""}

	out, err := composer.Render(restock.EmailRegistration{Language: "pt"}, names)
	require.NoError(t, err)

	// Portuguese copy, Dutch name.
	assert.Equal(t, "Honingpot está de Volta ao Estoque!", out.Subject)
	assert.Equal(t, "Honingpot", out.ProductName)
}

func TestRender_UnknownLanguageUsesFallbackTemplate(t *testing.T) {
	composer := newComposer(t, "en")
	names := restock.ProductNameSet{"en": "Honey Jar"}

	out, err := composer.Render(restock.EmailRegistration{Language: "fr"}, names)
	require.NoError(t, err)

	assert.Equal(t, "en", out.Language)
	assert.Equal(t, "Honey Jar is Back in Stock!", out.Subject)
	assert.Contains(t, out.HTMLBody, "Check it out!")
}

func TestRender_UnknownLanguageNameMatchesCopy(t *testing.T) {
	composer := newComposer(t, "nl")
	names := restock.ProductNameSet{"fr": "Pot de Miel", "nl": "Honingpot"}

	out, err := composer.Render(restock.EmailRegistration{Language: "fr"}, names)
	require.NoError(t, err)

	assert.Equal(t, "nl", out.Language)
	assert.Equal(t, "Honingpot", out.ProductName)
	assert.Equal(t, "Honingpot is Terug op Voorraad!", out.Subject)
}

func TestRender_NoFallbackNameUsesAnyName(t *testing.T) {
	composer := newComposer(t, "nl")
	names := restock.ProductNameSet{"de": "Honigglas"}

	out, err := composer.Render(restock.EmailRegistration{Language: "en"}, names)
	require.NoError(t, err)
	assert.Equal(t, "Honigglas is Back in Stock!", out.Subject)
}

func TestRender_NoNames(t *testing.T) {
	composer := newComposer(t, "nl")

	_, err := composer.Render(restock.EmailRegistration{Language: "en"}, restock.ProductNameSet{"en": "  "})
	assert.ErrorIs(t, err, notification.ErrNoProductName)
}

func TestRender_EscapesName(t *testing.T) {
	composer := newComposer(t, "en")
	names := restock.ProductNameSet{"en": `<script>alert("x")</script>`}

	out, err := composer.Render(restock.EmailRegistration{Language: "en"}, names)
	require.NoError(t, err)
	assert.NotContains(t, out.HTMLBody, "<script>")
}

func TestRender_Deterministic(t *testing.T) {
	composer := newComposer(t, "nl")
	reg := restock.EmailRegistration{Email: "a@example.com", EntryID: "e1", Language: "de"}
	names := restock.ProductNameSet{"nl": "Honingpot", "de": "Honigglas"}

	first, err := composer.Render(reg, names)
	require.NoError(t, err)
	second, err := composer.Render(reg, names)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestRendered_Message(t *testing.T) {
	r := notification.Rendered{Subject: "s", HTMLBody: "<p>b</p>", Text: "b"}
	msg := r.Message("shop@example.com", "a@example.com")

	assert.Equal(t, "shop@example.com", msg.From)
	assert.Equal(t, "a@example.com", msg.To)
	require.Len(t, msg.Inline, 1)
	assert.Equal(t, notification.InlineImageCID, msg.Inline[0].ContentID)
	assert.Equal(t, "bee.gif", msg.Inline[0].Filename)
	assert.NotEmpty(t, msg.Inline[0].Data)
}
