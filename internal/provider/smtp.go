package provider

import (
	"context"
	"fmt"
	"mime/quotedprintable"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SMTPProvider sends mail through a plain SMTP relay (MailHog in dev,
// a real relay in production).
type SMTPProvider struct {
	host        string
	port        int
	username    string
	password    string
	useTLS      bool
	fromAddress string
	fromName    string

	// sendMail is swappable for tests.
	sendMail func(addr string, auth smtp.Auth, from string, to []string, body []byte) error
}

func NewSMTPProvider(cfg Config) (*SMTPProvider, error) {
	if cfg.SMTP == nil || strings.TrimSpace(cfg.SMTP.Host) == "" {
		return nil, fmt.Errorf("provider smtp: host is required")
	}

	port := cfg.SMTP.Port
	if port <= 0 {
		port = 587
	}

	return &SMTPProvider{
		host:        cfg.SMTP.Host,
		port:        port,
		username:    cfg.SMTP.Username,
		password:    cfg.SMTP.Password,
		useTLS:      cfg.SMTP.UseTLS,
		fromAddress: cfg.FromAddress,
		fromName:    cfg.FromName,
		sendMail:    smtp.SendMail,
	}, nil
}

func (p *SMTPProvider) Name() string { return KindSMTP.String() }

func (p *SMTPProvider) Send(ctx context.Context, msg Message) (*Response, error) {
	if p == nil || p.sendMail == nil {
		return nil, fmt.Errorf("provider smtp is not initialized")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	messageID := fmt.Sprintf("<%s@%s>", uuid.NewString(), senderDomain(p.fromAddress))
	body := p.buildMIME(msg, messageID)

	var auth smtp.Auth
	if p.username != "" && p.password != "" {
		auth = smtp.PlainAuth("", p.username, p.password, p.host)
	}

	addr := net.JoinHostPort(p.host, fmt.Sprintf("%d", p.port))

	done := make(chan error, 1)
	go func() {
		done <- p.sendMail(addr, auth, p.fromAddress, []string{msg.To}, body)
	}()

	select {
	case <-ctx.Done():
		return nil, &ProviderError{
			Provider:  p.Name(),
			Code:      CodeProviderTimeout,
			Message:   "smtp send canceled",
			Transient: true,
			Cause:     ctx.Err(),
		}
	case err := <-done:
		if err != nil {
			return nil, p.wrapSendError(err)
		}
	}

	return &Response{MessageID: messageID}, nil
}

func (p *SMTPProvider) wrapSendError(err error) error {
	code := CodeNetworkError
	if isTimeoutTransport(err) {
		code = CodeProviderTimeout
	}
	if strings.Contains(strings.ToLower(err.Error()), "authentication") {
		return &ProviderError{
			Provider:  p.Name(),
			Code:      CodeAuthFailure,
			Message:   "smtp authentication failed",
			Transient: false,
			Cause:     err,
		}
	}

	return &ProviderError{
		Provider:  p.Name(),
		Code:      code,
		Message:   "smtp send failed",
		Transient: true,
		Cause:     err,
	}
}

func (p *SMTPProvider) buildMIME(msg Message, messageID string) []byte {
	boundary := strings.ReplaceAll(uuid.NewString(), "-", "")

	from := p.fromAddress
	if p.fromName != "" {
		from = fmt.Sprintf("%s <%s>", p.fromName, p.fromAddress)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	fmt.Fprintf(&b, "Message-ID: %s\r\n", messageID)
	fmt.Fprintf(&b, "Date: %s\r\n", time.Now().UTC().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&b, "Content-Type: multipart/alternative; boundary=%q\r\n\r\n", boundary)

	if msg.Text != "" {
		writeMIMEPart(&b, boundary, "text/plain", msg.Text)
	}
	writeMIMEPart(&b, boundary, "text/html", msg.HTML)
	fmt.Fprintf(&b, "--%s--\r\n", boundary)

	return []byte(b.String())
}

func writeMIMEPart(b *strings.Builder, boundary, contentType, content string) {
	fmt.Fprintf(b, "--%s\r\n", boundary)
	fmt.Fprintf(b, "Content-Type: %s; charset=utf-8\r\n", contentType)
	b.WriteString("Content-Transfer-Encoding: quoted-printable\r\n\r\n")

	qp := quotedprintable.NewWriter(b)
	_, _ = qp.Write([]byte(content))
	_ = qp.Close()
	b.WriteString("\r\n")
}

func senderDomain(address string) string {
	if idx := strings.LastIndex(address, "@"); idx >= 0 && idx < len(address)-1 {
		return address[idx+1:]
	}
	return "localhost"
}
