package appErrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")

	assert.Equal(t, KindValidation, KindOf(NewValidation("campaign", "name is required")))
	assert.Equal(t, KindConfiguration, KindOf(NewConfiguration("smtp", "missing credentials", nil)))
	assert.Equal(t, KindDelivery, KindOf(NewDelivery("smtp.send", cause)))
	assert.Equal(t, KindClassification, KindOf(NewClassification("classify", "bad category", nil)))
	assert.Equal(t, KindNotFound, KindOf(NewCampaignNotFound("42")))
	assert.Equal(t, KindInternal, KindOf(cause))

	wrapped := fmt.Errorf("send: %w", NewDelivery("smtp.send", cause))
	assert.Equal(t, KindDelivery, KindOf(wrapped))
	assert.ErrorIs(t, wrapped, cause)
	assert.False(t, IsKind(nil, KindInternal))
}

func TestErrorIsMatchesKind(t *testing.T) {
	err := NewNotFound("template", "abc")
	assert.ErrorIs(t, err, &Error{Kind: KindNotFound})
	assert.NotErrorIs(t, err, &Error{Kind: KindValidation})
}

func TestErrorFormatting(t *testing.T) {
	err := NewConfiguration("smtp", "mail server rejected credentials", errors.New("535 bad auth"))
	assert.Equal(t, "smtp: mail server rejected credentials: 535 bad auth", err.Error())
	assert.Equal(t, "mail server rejected credentials", Message(err))

	assert.Equal(t, "smtp.send: timeout", NewDelivery("smtp.send", errors.New("timeout")).Error())
	assert.Equal(t, "plain", Message(errors.New("plain")))
}
