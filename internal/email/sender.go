package email

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"net/smtp"
	"strings"
	"time"

	"carmarket/api/internal/config"
)

// Message is a plain-text email. Topic identifies the kind of notification
// and is used as a lookup key by the Redis mailbox.
type Message struct {
	To      []string
	Subject string
	Topic   string
	Body    string
}

// Raw renders the message with RFC 5322 headers.
func (m Message) Raw(from string) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "From: %s\r\n", from)
	fmt.Fprintf(&buf, "To: %s\r\n", strings.Join(m.To, ", "))
	fmt.Fprintf(&buf, "Subject: %s\r\n", m.Subject)
	fmt.Fprintf(&buf, "Date: %s\r\n", time.Now().UTC().Format(time.RFC1123Z))
	buf.WriteString("MIME-Version: 1.0\r\n")
	buf.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n\r\n")
	buf.WriteString(m.Body)
	return buf.Bytes()
}

// Sender delivers a Message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPSender sends mail through net/smtp.
type SMTPSender struct {
	from string
	auth smtp.Auth
	addr string
}

// NewSMTPSender returns an SMTPSender, or a LoggingSender when no SMTP host is configured.
func NewSMTPSender(cfg *config.Config) Sender {
	if cfg.SmtpHost == "" {
		log.Println("SMTP host not configured, using logging email sender.")
		return &LoggingSender{from: cfg.SmtpFromAddress}
	}
	return &SMTPSender{
		from: cfg.SmtpFromAddress,
		auth: smtp.PlainAuth("", cfg.SmtpUsername, cfg.SmtpPassword, cfg.SmtpHost),
		addr: fmt.Sprintf("%s:%d", cfg.SmtpHost, cfg.SmtpPort),
	}
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if err := smtp.SendMail(s.addr, s.auth, s.from, msg.To, msg.Raw(s.from)); err != nil {
		log.Printf("Failed to send email via SMTP to %v: %v", msg.To, err)
		return fmt.Errorf("smtp error: %w", err)
	}
	log.Printf("Email sent via SMTP to %v (Subject: %s)", msg.To, msg.Subject)
	return nil
}

// LoggingSender writes messages to the log. Used in development.
type LoggingSender struct {
	from string
}

func (s *LoggingSender) Send(ctx context.Context, msg Message) error {
	log.Printf("--- Email (logged) to %v, topic %s ---\n%s\n--- End Email ---", msg.To, msg.Topic, msg.Raw(s.from))
	return nil
}
