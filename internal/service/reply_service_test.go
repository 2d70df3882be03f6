package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/unclebandit/emailace-backend/internal/errors"
	"github.com/unclebandit/emailace-backend/internal/model"
	"github.com/unclebandit/emailace-backend/internal/service"
)

func TestClassifyReply(t *testing.T) {
	m := &MockModel{text: `{"summary": "The recipient is not interested right now.", "category": "No"}`}
	svc := &service.ReplyService{Model: m}

	cls, err := svc.ClassifyReply(context.Background(), "Thanks, not interested at this time")
	require.NoError(t, err)
	assert.Equal(t, model.ReplyNo, cls.Category)
	assert.NotEmpty(t, cls.Summary)
	assert.Contains(t, m.request.Prompt, "Thanks, not interested at this time")
	assert.Zero(t, m.request.Temperature)
}

func TestClassifyReplyTrimsCategory(t *testing.T) {
	svc := &service.ReplyService{Model: &MockModel{text: `{"summary":"Wants to talk.","category":" Yes "}`}}
	cls, err := svc.ClassifyReply(context.Background(), "Call me tomorrow")
	require.NoError(t, err)
	assert.Equal(t, model.ReplyYes, cls.Category)
}

func TestClassifyReplyFailures(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name  string
		model *MockModel
		reply string
		kind  appErrors.Kind
	}{
		{"empty reply", &MockModel{}, "  ", appErrors.KindValidation},
		{"model error", &MockModel{err: errors.New("quota")}, "hi", appErrors.KindClassification},
		{"out of enum category", &MockModel{text: `{"summary":"s","category":"Maybe"}`}, "hi", appErrors.KindClassification},
		{"lowercase category", &MockModel{text: `{"summary":"s","category":"yes"}`}, "hi", appErrors.KindClassification},
		{"empty summary", &MockModel{text: `{"summary":"","category":"Other"}`}, "hi", appErrors.KindClassification},
		{"garbage", &MockModel{text: `I think it's a no`}, "hi", appErrors.KindClassification},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := (&service.ReplyService{Model: tt.model}).ClassifyReply(ctx, tt.reply)
			require.Error(t, err)
			assert.Equal(t, tt.kind, appErrors.KindOf(err))
		})
	}

	_, err := (&service.ReplyService{}).ClassifyReply(ctx, "hi")
	assert.True(t, appErrors.IsKind(err, appErrors.KindConfiguration))
}

func TestClassifyReplyTimeout(t *testing.T) {
	svc := &service.ReplyService{
		Model:   &MockModel{text: `{"summary":"s","category":"No"}`, delay: time.Second},
		Timeout: 20 * time.Millisecond,
	}
	_, err := svc.ClassifyReply(context.Background(), "hi")
	assert.True(t, appErrors.IsKind(err, appErrors.KindClassification))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
