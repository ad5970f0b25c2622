package mailer

import (
	"fmt"
	"net/smtp"
	"strings"
)

// Mailer sends plain-text mail over SMTP with PLAIN auth. Rendering stays
// minimal here; HTML templating belongs to the main site, not the ledger.
type Mailer struct {
	addr string
	from string
	auth smtp.Auth
}

func New(addr, from, password string) *Mailer {
	host := addr
	if i := strings.IndexByte(addr, ':'); i >= 0 {
		host = addr[:i]
	}
	return &Mailer{
		addr: addr,
		from: from,
		auth: smtp.PlainAuth("", from, password, host),
	}
}

func (m *Mailer) Send(to, subject, body string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s",
		m.from, to, subject, body)
	if err := smtp.SendMail(m.addr, m.auth, m.from, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	return nil
}
