package email

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"net/textproto"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	appErrors "github.com/unclebandit/emailace-backend/internal/errors"
)

// SMTPConfig describes an account that authenticates with an app password.
type SMTPConfig struct {
	Host       string
	Port       int
	Username   string
	Password   string
	SenderName string
}

// SMTPSender delivers through an authenticated SMTP relay. Port 465 uses
// implicit TLS, any other port upgrades with STARTTLS.
type SMTPSender struct {
	cfg  SMTPConfig
	now  func() time.Time
	dial func(ctx context.Context, addr string) (net.Conn, error)
}

func NewSMTPSender(cfg SMTPConfig) (*SMTPSender, error) {
	const op = "smtp"
	if cfg.Username == "" || cfg.Password == "" {
		return nil, appErrors.NewConfiguration(op, "EMAIL_USER and EMAIL_APP_PASSWORD must be set", nil)
	}
	if !ValidAddress(cfg.Username) {
		return nil, appErrors.NewConfiguration(op, fmt.Sprintf("EMAIL_USER %q is not a valid sender address", cfg.Username), nil)
	}
	if cfg.Host == "" || cfg.Port <= 0 {
		return nil, appErrors.NewConfiguration(op, "SMTP_HOST and SMTP_PORT must be set", nil)
	}

	s := &SMTPSender{cfg: cfg, now: time.Now}
	s.dial = s.dialServer
	return s, nil
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) (string, error) {
	const op = "smtp.send"
	if !ValidAddress(msg.To) {
		return "", appErrors.NewDelivery(op, fmt.Errorf("invalid recipient %q", msg.To))
	}

	from := s.cfg.Username
	messageID := fmt.Sprintf("<%s@%s>", uuid.NewString(), domainOf(from))
	raw := buildMessage(s.fromHeader(), msg.To, msg.Subject, msg.Body, messageID, s.now())

	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	conn, err := s.dial(ctx, addr)
	if err != nil {
		return "", appErrors.NewDelivery(op, err)
	}
	defer conn.Close()
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		return "", appErrors.NewDelivery(op, err)
	}
	defer client.Close()

	if s.cfg.Port != 465 {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(&tls.Config{ServerName: s.cfg.Host}); err != nil {
				return "", appErrors.NewDelivery(op, err)
			}
		}
	}

	auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	if err := client.Auth(auth); err != nil {
		// rejected credentials are fatal for every remaining recipient
		return "", appErrors.NewConfiguration(op, "mail server rejected credentials", err)
	}

	if err := client.Mail(from); err != nil {
		return "", classifySMTPError(op, err)
	}
	if err := client.Rcpt(msg.To); err != nil {
		return "", classifySMTPError(op, err)
	}

	w, err := client.Data()
	if err != nil {
		return "", classifySMTPError(op, err)
	}
	if _, err := w.Write(raw); err != nil {
		return "", appErrors.NewDelivery(op, err)
	}
	if err := w.Close(); err != nil {
		return "", classifySMTPError(op, err)
	}
	_ = client.Quit()

	return messageID, nil
}

func (s *SMTPSender) dialServer(ctx context.Context, addr string) (net.Conn, error) {
	dialer := &net.Dialer{Timeout: 15 * time.Second}
	if s.cfg.Port == 465 {
		td := &tls.Dialer{NetDialer: dialer, Config: &tls.Config{ServerName: s.cfg.Host}}
		return td.DialContext(ctx, "tcp", addr)
	}
	return dialer.DialContext(ctx, "tcp", addr)
}

// fromHeader always names the authenticated account; relays reject other senders.
func (s *SMTPSender) fromHeader() string {
	if s.cfg.SenderName == "" {
		return s.cfg.Username
	}
	return fmt.Sprintf("%s <%s>", mime.QEncoding.Encode("utf-8", s.cfg.SenderName), s.cfg.Username)
}

// classifySMTPError treats 530/535 (authentication) as configuration failures.
func classifySMTPError(op string, err error) error {
	var tpErr *textproto.Error
	if errors.As(err, &tpErr) && (tpErr.Code == 530 || tpErr.Code == 535) {
		return appErrors.NewConfiguration(op, "mail server rejected credentials", err)
	}
	return appErrors.NewDelivery(op, err)
}

// buildMessage renders a plain-text RFC 5322 message with CRLF line endings.
func buildMessage(from, to, subject, body, messageID string, date time.Time) []byte {
	var b bytes.Buffer
	header := func(k, v string) {
		b.WriteString(k)
		b.WriteString(": ")
		b.WriteString(v)
		b.WriteString("\r\n")
	}
	header("From", from)
	header("To", to)
	header("Subject", mime.QEncoding.Encode("utf-8", subject))
	header("Date", date.Format(time.RFC1123Z))
	if messageID != "" {
		header("Message-ID", messageID)
	}
	header("MIME-Version", "1.0")
	header("Content-Type", `text/plain; charset="utf-8"`)
	header("Content-Transfer-Encoding", "8bit")
	b.WriteString("\r\n")

	body = strings.ReplaceAll(body, "\r\n", "\n")
	for i, line := range strings.Split(body, "\n") {
		if i > 0 {
			b.WriteString("\r\n")
		}
		// dot-stuffing is handled by the DATA writer
		b.WriteString(line)
	}
	b.WriteString("\r\n")
	return b.Bytes()
}

func domainOf(addr string) string {
	if i := strings.LastIndex(addr, "@"); i >= 0 {
		return addr[i+1:]
	}
	return "localhost"
}
