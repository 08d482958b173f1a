// Package notification renders restock emails and delivers them through a
// mail Provider (SMTP via go-mail).
package notification

import "context"

// Attachment is a file carried by a Message. Inline attachments are referenced
// from the HTML body as cid:<ContentID>.
type Attachment struct {
	Filename  string
	ContentID string
	Data      []byte
}

// Message is the content to be delivered by a Provider.
type Message struct {
	From    string
	To      string
	Subject string
	HTML    string
	Text    string
	Inline  []Attachment
}

// Provider is the interface for mail delivery backends.
type Provider interface {
	// Name returns the provider identifier (e.g. "smtp").
	Name() string
	// Send delivers the message using the provider's transport.
	Send(ctx context.Context, msg Message) error
}
