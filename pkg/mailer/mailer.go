package mailer

import (
	"bytes"
	"fmt"
	"net/smtp"

	"github.com/jordan-wright/email"

	"github.com/noah-isme/school-fees-api/pkg/config"
)

// Attachment is an in-memory file attached to an outgoing message.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Message is one outbound email.
type Message struct {
	To          string
	Subject     string
	HTMLBody    string
	Attachments []Attachment
}

// Sender dispatches email over SMTP.
type Sender interface {
	Send(msg Message) error
}

// SMTPSender is the production Sender backed by a plain SMTP relay.
type SMTPSender struct {
	cfg config.SMTPConfig
}

// NewSMTPSender constructs an SMTPSender.
func NewSMTPSender(cfg config.SMTPConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg}
}

// Send delivers the message. Errors are returned to the caller; retry policy
// belongs to the dispatch queue, not here.
func (s *SMTPSender) Send(msg Message) error {
	if msg.To == "" {
		return fmt.Errorf("mail requires a recipient")
	}

	e := email.NewEmail()
	e.From = s.cfg.From
	e.To = []string{msg.To}
	e.Subject = msg.Subject
	e.HTML = []byte(msg.HTMLBody)

	for _, att := range msg.Attachments {
		if _, err := e.Attach(bytes.NewReader(att.Data), att.Filename, att.ContentType); err != nil {
			return fmt.Errorf("attach %s: %w", att.Filename, err)
		}
	}

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}
	if err := e.Send(addr, auth); err != nil {
		return fmt.Errorf("send mail to %s: %w", msg.To, err)
	}
	return nil
}
