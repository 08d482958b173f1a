package notification

import (
	"bytes"
	_ "embed"
	"html/template"
)

// InlineImageCID is the content-id under which the bee image is embedded.
const InlineImageCID = "beeImage"

//go:embed assets/bee.gif
var beeGIF []byte

// emailTmpl is the HTML layout of a restock notification.
// All fields are auto-escaped by html/template.
var emailTmpl = template.Must(template.New("restock").Parse(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px; border: 1px solid #eee; border-radius: 10px; background-color: #f9f9f9;">
  <h2 style="color: #652911; text-align: center;">🎉 {{.Name}} {{.Heading}} 🎉</h2>
  <div style="text-align: center;">
    <img src="cid:{{.ImageCID}}" alt="{{.ImageAlt}}" style="max-width: 150px; margin: 10px auto;" />
  </div>
  <p style="font-size: 16px; color: #333;">{{.Greeting}}</p>
  <p style="font-size: 16px; color: #333;">{{.BodyLead}} <strong>"{{.Name}}"</strong> {{.BodyTail}}</p>
  <div style="text-align: center; margin: 20px 0;">
    <a href="{{.ProductURL}}" style="padding: 10px 20px; background-color: #61892F; color: white; text-decoration: none; font-weight: bold; border-radius: 5px;">
      {{.CTALabel}}
    </a>
  </div>
  <p style="font-size: 14px; color: #777; text-align: center;">{{.Thanks}}</p>
</div>
`))

type emailData struct {
	Name       string
	Heading    string
	ImageCID   string
	ImageAlt   string
	Greeting   string
	BodyLead   string
	BodyTail   string
	ProductURL string
	CTALabel   string
	Thanks     string
}

// buildEmailHTML renders the HTML email template with the given data.
func buildEmailHTML(data emailData) (string, error) {
	var buf bytes.Buffer
	if err := emailTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// InlineImage returns the static image embedded in every notification.
func InlineImage() Attachment {
	return Attachment{Filename: "bee.gif", ContentID: InlineImageCID, Data: beeGIF}
}
