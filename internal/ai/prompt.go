package ai

import (
	"fmt"

	"google.golang.org/genai"
)

type PromptBuilder struct{}

func NewPromptBuilder() *PromptBuilder {
	return &PromptBuilder{}
}

// BuildDraftPrompt asks for a personalized application email built on the rendered template.
func (p *PromptBuilder) BuildDraftPrompt(candidateName, candidateInformation, jobDescription, emailTemplate string) string {
	return fmt.Sprintf(`You write job application emails on behalf of a recruiting agency.

Write a personalized email presenting the candidate for the position below. Start from the
email template, keep its structure and tone, and weave in the candidate details that match
the job description. Do not invent qualifications that are not in the candidate information.
Return plain text only, without a subject line and without markdown.

CANDIDATE NAME:
%s

CANDIDATE INFORMATION:
%s

JOB DESCRIPTION:
%s

EMAIL TEMPLATE:
%s

Respond with JSON in exactly this shape:
{"emailDraft": "<the complete email body>"}`,
		candidateName, candidateInformation, jobDescription, emailTemplate)
}

// BuildReplyPrompt asks for a one-sentence summary and a closed category.
func (p *PromptBuilder) BuildReplyPrompt(reply string) string {
	return fmt.Sprintf(`You triage replies to job application emails.

Summarize the reply below in one or two sentences and categorize it:
- "Yes": the employer is interested, wants an interview, CV or further contact.
- "No": the employer is not interested, the position is filled or they decline.
- "Other": automated responses, out-of-office notices, or anything unclear.

REPLY:
%s

Respond with JSON in exactly this shape:
{"summary": "<short summary>", "category": "Yes" | "No" | "Other"}`, reply)
}

func DraftSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"emailDraft": {Type: genai.TypeString, Description: "The generated email body."},
		},
		Required: []string{"emailDraft"},
	}
}

func ReplySchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"summary":  {Type: genai.TypeString, Description: "Short summary of the reply."},
			"category": {Type: genai.TypeString, Enum: []string{"Yes", "No", "Other"}},
		},
		Required: []string{"summary", "category"},
	}
}
