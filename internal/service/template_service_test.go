package service_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/unclebandit/emailace-backend/internal/model"
	"github.com/unclebandit/emailace-backend/internal/service"
)

func TestRenderTemplate(t *testing.T) {
	tests := []struct {
		name     string
		template string
		data     map[string]string
		want     string
	}{
		{
			name:     "unknown placeholder passes through",
			template: "Hi {{candidateName}}, re {{unknownField}}",
			data:     map[string]string{"candidateName": "Alice"},
			want:     "Hi Alice, re {{unknownField}}",
		},
		{
			name:     "inner whitespace",
			template: "{{ candidateName }} / {{position}}",
			data:     map[string]string{"candidateName": "Alice", "position": "Nurse"},
			want:     "Alice / Nurse",
		},
		{
			name:     "repeated token",
			template: "{{a}}{{a}}",
			data:     map[string]string{"a": "x"},
			want:     "xx",
		},
		{
			name:     "empty value replaces",
			template: "at {{company}}.",
			data:     map[string]string{"company": ""},
			want:     "at .",
		},
		{
			name:     "single braces untouched",
			template: "{candidateName}",
			data:     map[string]string{"candidateName": "Alice"},
			want:     "{candidateName}",
		},
		{
			name:     "values are not rendered again",
			template: "{{a}}",
			data:     map[string]string{"a": "{{b}}", "b": "nope"},
			want:     "{{b}}",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, service.RenderTemplate(tt.template, tt.data))
		})
	}
}

func TestBuildFields(t *testing.T) {
	c := &model.Candidate{
		Name:          "Alice Martin",
		DateOfBirth:   time.Date(1996, 6, 2, 0, 0, 0, 0, time.UTC),
		LanguageLevel: model.LanguageNative,
		Information:   "ICU nurse",
	}
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	fields := service.BuildFields(c, "Position: Senior Nurse\nBerlin", "Jane.Doe+jobs@st-marien.com", now)

	assert.Equal(t, "Alice Martin", fields["candidateName"])
	assert.Equal(t, "28", fields["age"])
	assert.Equal(t, "1996-06-02", fields["dateOfBirth"])
	assert.Equal(t, "Native", fields["languageLevel"])
	assert.Equal(t, "Senior Nurse", fields["position"])
	assert.Equal(t, "St Marien", fields["company"])
	assert.Equal(t, "Jane Doe", fields["recipientName"])
	assert.Equal(t, "ICU nurse", fields["candidateInformation"])
}

func TestBuildFieldsFreeMailAndRoleMailbox(t *testing.T) {
	fields := service.BuildFields(nil, "", "careers@gmail.com", time.Now())
	assert.Equal(t, "", fields["company"])
	assert.Equal(t, "Hiring Team", fields["recipientName"])
	_, hasAge := fields["age"]
	assert.False(t, hasAge)

	fields = service.BuildFields(nil, "", "hr@klinikum.co.uk", time.Now())
	assert.Equal(t, "Klinikum", fields["company"])
}
