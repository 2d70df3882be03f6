package email

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	appErrors "github.com/unclebandit/emailace-backend/internal/errors"
)

// GmailConfig holds OAuth2 client credentials and a refresh token for the sender mailbox.
type GmailConfig struct {
	ClientID      string
	ClientSecret  string
	RefreshToken  string
	SenderAddress string
	SenderName    string
}

// GmailSender implements Sender using the Gmail API.
type GmailSender struct {
	service       *gmail.Service
	senderAddress string
	senderName    string
}

func NewGmailSender(ctx context.Context, cfg GmailConfig) (*GmailSender, error) {
	const op = "gmail"
	if cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.RefreshToken == "" {
		return nil, appErrors.NewConfiguration(op, "GMAIL_CLIENT_ID, GMAIL_CLIENT_SECRET and GMAIL_REFRESH_TOKEN must be set", nil)
	}
	if !ValidAddress(cfg.SenderAddress) {
		return nil, appErrors.NewConfiguration(op, "EMAIL_USER must be the sending mailbox address", nil)
	}

	oauthCfg := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{gmail.GmailSendScope},
	}
	client := oauthCfg.Client(ctx, &oauth2.Token{RefreshToken: cfg.RefreshToken})

	svc, err := gmail.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, appErrors.NewConfiguration(op, "failed to create gmail service", err)
	}

	return &GmailSender{
		service:       svc,
		senderAddress: cfg.SenderAddress,
		senderName:    cfg.SenderName,
	}, nil
}

// Send posts the raw message and returns the Gmail message id.
func (g *GmailSender) Send(ctx context.Context, msg Message) (string, error) {
	const op = "gmail.send"
	if !ValidAddress(msg.To) {
		return "", appErrors.NewDelivery(op, fmt.Errorf("invalid recipient %q", msg.To))
	}

	from := g.senderAddress
	if g.senderName != "" {
		from = fmt.Sprintf("%s <%s>", mime.QEncoding.Encode("utf-8", g.senderName), g.senderAddress)
	}
	// Gmail assigns its own Message-ID
	raw := buildMessage(from, msg.To, msg.Subject, msg.Body, "", time.Now())

	sent, err := g.service.Users.Messages.Send("me", &gmail.Message{
		Raw: base64.URLEncoding.EncodeToString(raw),
	}).Context(ctx).Do()
	if err != nil {
		return "", classifyGmailError(op, err)
	}
	return sent.Id, nil
}

func classifyGmailError(op string, err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && (apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden) {
		return appErrors.NewConfiguration(op, "gmail rejected credentials", err)
	}
	var tokenErr *oauth2.RetrieveError
	if errors.As(err, &tokenErr) {
		return appErrors.NewConfiguration(op, "failed to refresh gmail token", err)
	}
	return appErrors.NewDelivery(op, err)
}
