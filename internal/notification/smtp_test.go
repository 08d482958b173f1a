package notification

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wneessen/go-mail"
)

func TestTLSPolicyFromEncryption(t *testing.T) {
	tests := []struct {
		enc  string
		want mail.TLSPolicy
	}{
		{"ssl_tls", mail.TLSMandatory},
		{"starttls", mail.TLSMandatory},
		{"opportunistic", mail.TLSOpportunistic},
		{"none", mail.NoTLS},
		{"", mail.NoTLS},
	}
	for _, tt := range tests {
		t.Run(tt.enc, func(t *testing.T) {
			assert.Equal(t, tt.want, tlsPolicyFromEncryption(tt.enc))
		})
	}
}

func TestNewSMTPProvider_FromDefaultsToUsername(t *testing.T) {
	p := NewSMTPProvider(SMTPConfig{Username: "shop@example.com"})
	assert.Equal(t, "shop@example.com", p.config.FromAddr)
	assert.Equal(t, "smtp", p.Name())
}

func TestBuildMsg(t *testing.T) {
	p := NewSMTPProvider(SMTPConfig{Username: "shop@example.com"})

	m, err := p.buildMsg(Message{
		To:      "customer@example.com",
		Subject: "Honey Jar is Back in Stock!",
		HTML:    "<p>hi</p>",
		Text:    "hi",
		Inline:  []Attachment{InlineImage()},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Honey Jar is Back in Stock!"}, m.GetGenHeader(mail.HeaderSubject))
	assert.Len(t, m.GetEmbeds(), 1)
}

func TestBuildMsg_Errors(t *testing.T) {
	p := NewSMTPProvider(SMTPConfig{Username: "shop@example.com"})

	_, err := p.buildMsg(Message{To: ""})
	assert.Error(t, err)

	_, err = p.buildMsg(Message{From: "not an address", To: "customer@example.com"})
	assert.Error(t, err)

	_, err = p.buildMsg(Message{To: "not an address"})
	assert.Error(t, err)
}

func TestSend_UnreachableServer(t *testing.T) {
	p := NewSMTPProvider(SMTPConfig{
		Host:     "localhost",
		Port:     9999, // will fail to connect
		Username: "shop@example.com",
		Timeout:  time.Second,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := p.Send(ctx, Message{To: "customer@example.com", Subject: "s", HTML: "<p>b</p>"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "customer@example.com")
}
