package email

import (
	"context"
	"net"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/unclebandit/emailace-backend/internal/errors"
)

// fakeSMTP speaks just enough SMTP for net/smtp over a pipe.
func fakeSMTP(conn net.Conn, authCode, rcptCode int, data chan<- string) {
	defer conn.Close()
	tp := textproto.NewConn(conn)
	tp.PrintfLine("220 localhost ESMTP")
	for {
		line, err := tp.ReadLine()
		if err != nil {
			return
		}
		switch strings.ToUpper(strings.SplitN(line, " ", 2)[0]) {
		case "EHLO":
			tp.PrintfLine("250-localhost")
			tp.PrintfLine("250 AUTH PLAIN")
		case "AUTH":
			if authCode == 235 {
				tp.PrintfLine("235 2.7.0 accepted")
			} else {
				tp.PrintfLine("%d 5.7.8 bad credentials", authCode)
			}
		case "RCPT":
			if rcptCode == 250 {
				tp.PrintfLine("250 OK")
			} else {
				tp.PrintfLine("%d 5.1.1 mailbox unavailable", rcptCode)
			}
		case "DATA":
			tp.PrintfLine("354 go ahead")
			lines, _ := tp.ReadDotLines()
			data <- strings.Join(lines, "\n")
			tp.PrintfLine("250 queued")
		case "QUIT":
			tp.PrintfLine("221 bye")
			return
		default:
			tp.PrintfLine("250 OK")
		}
	}
}

func newTestSender(t *testing.T, authCode, rcptCode int) (*SMTPSender, chan string) {
	t.Helper()
	s, err := NewSMTPSender(SMTPConfig{
		Host:       "localhost",
		Port:       587,
		Username:   "recruiter@example.com",
		Password:   "app-password",
		SenderName: "Recruiting Desk",
	})
	require.NoError(t, err)

	data := make(chan string, 1)
	s.now = func() time.Time { return time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC) }
	s.dial = func(ctx context.Context, addr string) (net.Conn, error) {
		client, server := net.Pipe()
		go fakeSMTP(server, authCode, rcptCode, data)
		return client, nil
	}
	return s, data
}

func TestSMTPSend(t *testing.T) {
	s, data := newTestSender(t, 235, 250)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	id, err := s.Send(ctx, Message{To: "jobs@charite.de", Subject: "Application", Body: "Hello\nWorld"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(id, "<"))
	assert.True(t, strings.HasSuffix(id, "@example.com>"))

	raw := <-data
	assert.Contains(t, raw, "To: jobs@charite.de")
	assert.Contains(t, raw, "Subject: Application")
	assert.Contains(t, raw, "Message-ID: "+id)
	assert.Contains(t, raw, "Recruiting Desk <recruiter@example.com>")
	assert.True(t, strings.HasSuffix(raw, "Hello\nWorld"))
}

func TestSMTPSendRejectedCredentials(t *testing.T) {
	s, _ := newTestSender(t, 535, 250)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := s.Send(ctx, Message{To: "jobs@charite.de", Subject: "s", Body: "b"})
	require.Error(t, err)
	assert.True(t, appErrors.IsKind(err, appErrors.KindConfiguration))
}

func TestSMTPSendRejectedRecipient(t *testing.T) {
	s, _ := newTestSender(t, 235, 550)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := s.Send(ctx, Message{To: "gone@charite.de", Subject: "s", Body: "b"})
	require.Error(t, err)
	assert.True(t, appErrors.IsKind(err, appErrors.KindDelivery))
	assert.Contains(t, err.Error(), "550")
}

func TestSMTPSendInvalidRecipient(t *testing.T) {
	s, _ := newTestSender(t, 235, 250)
	_, err := s.Send(context.Background(), Message{To: "nope", Subject: "s", Body: "b"})
	assert.True(t, appErrors.IsKind(err, appErrors.KindDelivery))
}

func TestNewSMTPSenderConfiguration(t *testing.T) {
	tests := []struct {
		name string
		cfg  SMTPConfig
	}{
		{"missing password", SMTPConfig{Host: "smtp.gmail.com", Port: 587, Username: "a@b.com"}},
		{"missing user", SMTPConfig{Host: "smtp.gmail.com", Port: 587, Password: "x"}},
		{"user not an address", SMTPConfig{Host: "smtp.gmail.com", Port: 587, Username: "alice", Password: "x"}},
		{"missing host", SMTPConfig{Port: 587, Username: "a@b.com", Password: "x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSMTPSender(tt.cfg)
			assert.True(t, appErrors.IsKind(err, appErrors.KindConfiguration))
		})
	}
}

func TestBuildMessage(t *testing.T) {
	date := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	raw := string(buildMessage("a@b.com", "c@d.com", "Grüße", "line1\r\nline2", "", date))

	assert.Contains(t, raw, "Subject: =?utf-8?q?Gr=C3=BC=C3=9Fe?=\r\n")
	assert.Contains(t, raw, "Date: Sun, 01 Jun 2025 09:00:00 +0000\r\n")
	assert.NotContains(t, raw, "Message-ID")
	assert.True(t, strings.HasSuffix(raw, "\r\n\r\nline1\r\nline2\r\n"))
}

func TestValidAddress(t *testing.T) {
	assert.True(t, ValidAddress("jane.doe@clinic.de"))
	assert.False(t, ValidAddress("jane doe@clinic.de"))
	assert.False(t, ValidAddress("jane@clinic"))
	assert.False(t, ValidAddress(""))
}
