package utils

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"

	"mailgate/config"
)

// contactTemplate renders the message forwarded to the site owner's inbox.
var contactTemplate = template.Must(template.New("contact").Parse(`<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>New contact message</title>
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { color: #2c3e50; border-bottom: 1px solid #eee; padding-bottom: 10px; }
        .meta { font-size: 13px; color: #7f8c8d; margin: 10px 0; }
        .message { margin: 20px 0; white-space: pre-wrap; }
        .footer { margin-top: 30px; font-size: 12px; color: #7f8c8d; text-align: center; }
    </style>
</head>
<body>
    <div class="header">
        <h2>New contact form message</h2>
    </div>

    <div class="meta">From: {{.FromEmail}} (verified)</div>

    <div class="message">{{.Message}}</div>

    <div class="footer">
        <p>Sent by the portfolio contact form. Reply goes directly to the visitor.</p>
        <p>&copy; {{.Year}}</p>
    </div>
</body>
</html>`))

// Mailer dispatches gated contact messages over SMTP.
type Mailer struct {
	cfg    config.SMTPConfig
	logger *logrus.Logger
}

func NewMailer(cfg config.SMTPConfig, logger *logrus.Logger) *Mailer {
	return &Mailer{cfg: cfg, logger: logger}
}

// SendContactMessage forwards a visitor's message to the configured inbox with
// Reply-To set to the visitor, so answering the mail answers the visitor.
// Callers must have passed the send gate before invoking this.
func (m *Mailer) SendContactMessage(visitorEmail, message string) error {
	if m.cfg.Host == "" || m.cfg.ToEmail == "" {
		return fmt.Errorf("mailer: SMTP host or destination address not configured")
	}

	var body bytes.Buffer
	err := contactTemplate.Execute(&body, struct {
		FromEmail string
		Message   string
		Year      int
	}{
		FromEmail: visitorEmail,
		Message:   message,
		Year:      time.Now().Year(),
	})
	if err != nil {
		return fmt.Errorf("mailer: render template: %w", err)
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", msg.FormatAddress(m.cfg.FromEmail, m.cfg.FromName))
	msg.SetHeader("To", m.cfg.ToEmail)
	msg.SetHeader("Reply-To", visitorEmail)
	msg.SetHeader("Subject", "New message from your portfolio contact form")
	msg.SetBody("text/html", body.String())

	dialer := gomail.NewDialer(m.cfg.Host, m.cfg.Port, m.cfg.Username, m.cfg.Password)
	if err := dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("mailer: send failed: %w", err)
	}

	m.logger.Info("contact message dispatched")
	return nil
}
