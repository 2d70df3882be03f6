package email

import (
	"context"
	"regexp"
	"strings"
)

// Sender hands one message to an external mail service and returns the
// provider's message id.
type Sender interface {
	Send(ctx context.Context, msg Message) (string, error)
}

// Message is a plain-text email. From may be empty, in which case the
// sender's configured account is used.
type Message struct {
	From    string
	To      string
	Subject string
	Body    string
}

var addressPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidAddress applies the loose address check used for list entries and send requests.
func ValidAddress(addr string) bool {
	return addressPattern.MatchString(strings.TrimSpace(addr))
}
