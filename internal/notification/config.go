package notification

import "time"

// SMTPConfig holds connection parameters for the SMTP provider.
type SMTPConfig struct {
	Host       string
	Port       int
	Username   string
	Password   string
	FromAddr   string
	Encryption string // "none", "opportunistic", "starttls", "ssl_tls"
	// Timeout bounds a single dial-and-send. Zero uses go-mail's default.
	Timeout time.Duration
}
