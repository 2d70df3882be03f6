package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `{"a":1}`, `{"a":1}`},
		{"fenced", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"surrounding prose", "Sure! Here it is: {\"a\":{\"b\":2}} Hope that helps.", `{"a":{"b":2}}`},
		{"no object", "  nothing here  ", "nothing here"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractJSON(tt.in))
		})
	}
}

func TestDecode(t *testing.T) {
	var out struct {
		Summary  string `json:"summary"`
		Category string `json:"category"`
	}
	require.NoError(t, Decode("```json\n{\"summary\":\"s\",\"category\":\"No\"}\n```", &out))
	assert.Equal(t, "No", out.Category)

	assert.ErrorContains(t, Decode("no json", &out), "malformed model response")
}

func TestReplySchemaRestrictsCategory(t *testing.T) {
	s := ReplySchema()
	assert.Equal(t, genai.TypeObject, s.Type)
	assert.Equal(t, []string{"Yes", "No", "Other"}, s.Properties["category"].Enum)
	assert.ElementsMatch(t, []string{"summary", "category"}, s.Required)
}

func TestPromptsCarryInputs(t *testing.T) {
	p := NewPromptBuilder()
	draft := p.BuildDraftPrompt("Alice", "ICU nurse", "Night shifts", "Dear {{recipientName}}")
	for _, want := range []string{"Alice", "ICU nurse", "Night shifts", "Dear {{recipientName}}", `"emailDraft"`} {
		assert.Contains(t, draft, want)
	}
	assert.Contains(t, p.BuildReplyPrompt("Not interested"), "Not interested")
}

func TestNewGeminiClientRequiresKey(t *testing.T) {
	_, err := NewGeminiClient(t.Context(), "", "gemini-2.5-flash", 2, nil)
	assert.Error(t, err)
}
