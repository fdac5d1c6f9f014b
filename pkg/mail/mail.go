// Package mail provides a small fluent SMTP mailer used for order receipts.
//
//	mailer.To(order.CustomerEmail).
//	    Subject("Confirmación de compra").
//	    Body(html).
//	    Send()
package mail

import (
	"crypto/tls"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/jarafer/armatutienda-backend/pkg/config"
)

// Mailer holds SMTP credentials and builds messages.
type Mailer struct {
	cfg config.MailConfig
}

// New returns a Mailer for the configured SMTP account.
func New(cfg config.MailConfig) *Mailer {
	return &Mailer{cfg: cfg}
}

// Enabled reports whether the mailer has credentials to send with.
func (m *Mailer) Enabled() bool {
	return m.cfg.Host != "" && m.cfg.Username != ""
}

// Message is a fluent builder for a single email.
type Message struct {
	mailer  *Mailer
	to      []string
	replyTo string
	subject string
	body    string
	isHTML  bool
}

// To starts a message addressed to the given recipients.
func (m *Mailer) To(addresses ...string) *Message {
	return &Message{mailer: m, to: addresses, isHTML: true}
}

// ReplyTo sets the Reply-To header, typically the seller's address.
func (msg *Message) ReplyTo(address string) *Message {
	msg.replyTo = address
	return msg
}

// Subject sets the subject line.
func (msg *Message) Subject(s string) *Message {
	msg.subject = s
	return msg
}

// Body sets an HTML body.
func (msg *Message) Body(html string) *Message {
	msg.body = html
	msg.isHTML = true
	return msg
}

// Text sets a plain-text body.
func (msg *Message) Text(text string) *Message {
	msg.body = text
	msg.isHTML = false
	return msg
}

// Send delivers the message. Port 465 uses implicit TLS, anything else
// goes through the stdlib STARTTLS path.
func (msg *Message) Send() error {
	cfg := msg.mailer.cfg
	if !msg.mailer.Enabled() {
		return fmt.Errorf("mail: smtp credentials not configured")
	}
	if len(msg.to) == 0 {
		return fmt.Errorf("mail: no recipients")
	}

	from := fmt.Sprintf("%s <%s>", cfg.FromName, cfg.From)
	raw := msg.buildRaw(from)

	addr := cfg.Host + ":" + cfg.Port
	auth := smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)

	if cfg.Port == "465" {
		return msg.sendImplicitTLS(addr, auth, cfg.From, raw, cfg.Host)
	}
	return smtp.SendMail(addr, auth, cfg.From, msg.to, raw)
}

func (msg *Message) sendImplicitTLS(addr string, auth smtp.Auth, from string, raw []byte, host string) error {
	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: host})
	if err != nil {
		return fmt.Errorf("mail: tls dial: %w", err)
	}
	client, err := smtp.NewClient(conn, host)
	if err != nil {
		return err
	}
	defer client.Quit()

	if err := client.Auth(auth); err != nil {
		return err
	}
	if err := client.Mail(from); err != nil {
		return err
	}
	for _, rcpt := range msg.to {
		if err := client.Rcpt(rcpt); err != nil {
			return err
		}
	}
	w, err := client.Data()
	if err != nil {
		return err
	}
	defer w.Close()
	_, err = w.Write(raw)
	return err
}

func (msg *Message) buildRaw(from string) []byte {
	contentType := "text/plain"
	if msg.isHTML {
		contentType = "text/html"
	}

	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + strings.Join(msg.to, ", ") + "\r\n")
	if msg.replyTo != "" {
		b.WriteString("Reply-To: " + msg.replyTo + "\r\n")
	}
	b.WriteString("Subject: " + msg.subject + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString(fmt.Sprintf("Content-Type: %s; charset=\"UTF-8\"\r\n", contentType))
	b.WriteString("\r\n")
	b.WriteString(msg.body)
	return []byte(b.String())
}
