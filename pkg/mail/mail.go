// Package mail delivers the generated quiz artifact over SMTP.
package mail

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"mime"
	"net/smtp"
	"regexp"
	"time"
)

// ErrDelivery reports that the mail could not be handed to the SMTP server.
var ErrDelivery = errors.New("email delivery failed")

// Subject and body used for quiz delivery.
const (
	QuizSubject = "Generated Quiz"

	QuizBody = `
Hi,

Hope you are doing well.
PFA the quiz we generated as part of conversation.
All the best for your learning!!

Regards,
IP Tutor
`
)

var recipientPattern = regexp.MustCompile(`[\w.-]+@[\w.-]+\.\w+`)

// ExtractRecipients scans texts for email addresses, preserving first-seen
// order and dropping duplicates.
func ExtractRecipients(texts []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, text := range texts {
		for _, addr := range recipientPattern.FindAllString(text, -1) {
			if !seen[addr] {
				seen[addr] = true
				out = append(out, addr)
			}
		}
	}
	return out
}

// Attachment is a file attached to a message.
type Attachment struct {
	Filename string
	Content  []byte
}

// Message is an outbound email.
type Message struct {
	To          []string
	Subject     string
	Body        string
	Attachments []Attachment
}

// Sender delivers messages.
type Sender interface {
	Send(ctx context.Context, msg *Message) error
}

// sendFunc matches smtp.SendMail and is replaceable in tests.
type sendFunc func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error

// SMTPSender delivers mail through an SMTP server using PLAIN auth over
// STARTTLS (the net/smtp default when the server advertises it).
type SMTPSender struct {
	host     string
	port     int
	from     string
	password string
	timeout  time.Duration
	send     sendFunc
}

// SMTPConfig configures an SMTPSender.
type SMTPConfig struct {
	Host     string
	Port     int
	From     string
	Password string
	Timeout  time.Duration // default 30s
}

// NewSMTPSender creates an SMTP-backed sender.
func NewSMTPSender(cfg SMTPConfig) (*SMTPSender, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("SMTP host is required")
	}
	if cfg.Port <= 0 {
		return nil, fmt.Errorf("SMTP port is required")
	}
	if cfg.From == "" {
		return nil, fmt.Errorf("sender address is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &SMTPSender{
		host:     cfg.Host,
		port:     cfg.Port,
		from:     cfg.From,
		password: cfg.Password,
		timeout:  timeout,
		send:     smtp.SendMail,
	}, nil
}

// Send delivers one copy of the message per recipient. The first failure
// aborts the whole operation; recipients after the failed one get nothing.
// The timeout covers the whole operation, not each transaction.
func (s *SMTPSender) Send(ctx context.Context, msg *Message) error {
	if len(msg.To) == 0 {
		return fmt.Errorf("%w: no recipients", ErrDelivery)
	}

	addr := fmt.Sprintf("%s:%d", s.host, s.port)
	auth := smtp.PlainAuth("", s.from, s.password, s.host)

	timer := time.NewTimer(s.timeout)
	defer timer.Stop()

	for _, recipient := range msg.To {
		payload, err := encodeMessage(s.from, recipient, msg)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrDelivery, err)
		}

		done := make(chan error, 1)
		go func() {
			done <- s.send(addr, auth, s.from, []string{recipient}, payload)
		}()

		select {
		case err := <-done:
			if err != nil {
				return fmt.Errorf("%w: %s: %v", ErrDelivery, recipient, err)
			}
		case <-timer.C:
			return fmt.Errorf("%w: timed out after %s", ErrDelivery, s.timeout)
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", ErrDelivery, ctx.Err())
		}
	}
	return nil
}

// encodeMessage renders the RFC 2045 multipart payload for one recipient.
func encodeMessage(from, to string, msg *Message) ([]byte, error) {
	var buf bytes.Buffer

	const boundary = "sme-agent-mime-boundary"

	fmt.Fprintf(&buf, "From: %s\r\n", from)
	fmt.Fprintf(&buf, "To: %s\r\n", to)
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject))
	buf.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: multipart/mixed; boundary=%q\r\n", boundary)
	buf.WriteString("\r\n")

	fmt.Fprintf(&buf, "--%s\r\n", boundary)
	buf.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	buf.WriteString("\r\n")
	buf.WriteString(msg.Body)
	buf.WriteString("\r\n")

	for _, att := range msg.Attachments {
		if att.Filename == "" {
			return nil, fmt.Errorf("attachment filename is required")
		}
		fmt.Fprintf(&buf, "--%s\r\n", boundary)
		buf.WriteString("Content-Type: application/octet-stream\r\n")
		buf.WriteString("Content-Transfer-Encoding: base64\r\n")
		fmt.Fprintf(&buf, "Content-Disposition: attachment; filename=%q\r\n", att.Filename)
		buf.WriteString("\r\n")

		encoded := base64.StdEncoding.EncodeToString(att.Content)
		for len(encoded) > 76 {
			buf.WriteString(encoded[:76])
			buf.WriteString("\r\n")
			encoded = encoded[76:]
		}
		buf.WriteString(encoded)
		buf.WriteString("\r\n")
	}

	fmt.Fprintf(&buf, "--%s--\r\n", boundary)
	return buf.Bytes(), nil
}
