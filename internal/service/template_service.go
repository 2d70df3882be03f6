// internal/service/template_service.go
package service

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/unclebandit/emailace-backend/internal/model"
)

var placeholderPattern = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_]+)\s*\}\}`)

// RenderTemplate replaces {{name}} tokens with data[name]. Tokens whose name
// is not in data are left exactly as written.
func RenderTemplate(template string, data map[string]string) string {
	return placeholderPattern.ReplaceAllStringFunc(template, func(token string) string {
		name := placeholderPattern.FindStringSubmatch(token)[1]
		if v, ok := data[name]; ok {
			return v
		}
		return token
	})
}

// RenderEmail renders a subject and body pair with the same fields.
func RenderEmail(subjectTemplate, bodyTemplate string, data map[string]string) (string, string) {
	return RenderTemplate(subjectTemplate, data), RenderTemplate(bodyTemplate, data)
}

// BuildFields assembles the placeholder values for one recipient.
func BuildFields(c *model.Candidate, jobDescription, recipient string, now time.Time) map[string]string {
	fields := map[string]string{
		"jobDescription": jobDescription,
		"position":       positionFrom(jobDescription),
		"company":        companyFrom(recipient),
		"recipientName":  recipientNameFrom(recipient),
		"recipientEmail": strings.TrimSpace(recipient),
	}
	if c != nil {
		fields["candidateName"] = c.Name
		fields["candidateInformation"] = c.Information
		fields["languageLevel"] = string(c.LanguageLevel)
		if !c.DateOfBirth.IsZero() {
			fields["age"] = strconv.Itoa(c.AgeAt(now))
			fields["dateOfBirth"] = c.DateOfBirth.Format("2006-01-02")
		}
	}
	return fields
}

// positionFrom takes the first non-empty line of the job description.
func positionFrom(jobDescription string) string {
	for _, line := range strings.Split(jobDescription, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		line = strings.TrimPrefix(line, "#")
		for _, prefix := range []string{"Position:", "Job title:", "Role:"} {
			if len(line) >= len(prefix) && strings.EqualFold(line[:len(prefix)], prefix) {
				line = line[len(prefix):]
			}
		}
		return strings.TrimSpace(line)
	}
	return ""
}

var freeMailDomains = map[string]bool{
	"gmail":      true,
	"googlemail": true,
	"yahoo":      true,
	"hotmail":    true,
	"outlook":    true,
	"live":       true,
	"icloud":     true,
	"aol":        true,
	"gmx":        true,
	"web":        true,
	"proton":     true,
	"protonmail": true,
	"mail":       true,
	"yandex":     true,
}

// second-level labels that sit in front of a country code, as in acme.co.uk
var secondLevelLabels = map[string]bool{"co": true, "com": true, "org": true, "net": true, "ac": true, "gov": true, "edu": true}

// companyFrom derives an organisation name from the recipient domain, blank for free-mail providers.
func companyFrom(recipient string) string {
	at := strings.LastIndex(recipient, "@")
	if at < 0 {
		return ""
	}
	labels := strings.Split(strings.ToLower(strings.TrimSpace(recipient[at+1:])), ".")
	if len(labels) < 2 {
		return ""
	}
	name := labels[len(labels)-2]
	if len(labels) >= 3 && len(labels[len(labels)-1]) == 2 && secondLevelLabels[name] {
		name = labels[len(labels)-3]
	}
	if freeMailDomains[name] {
		return ""
	}
	return titleWords(name)
}

var roleMailboxes = map[string]bool{
	"hr":          true,
	"jobs":        true,
	"job":         true,
	"careers":     true,
	"career":      true,
	"recruiting":  true,
	"recruitment": true,
	"bewerbung":   true,
	"info":        true,
	"contact":     true,
	"office":      true,
	"hello":       true,
	"talent":      true,
	"apply":       true,
}

// recipientNameFrom turns jane.doe@ into "Jane Doe" and role mailboxes into "Hiring Team".
func recipientNameFrom(recipient string) string {
	at := strings.Index(recipient, "@")
	if at <= 0 {
		return "Hiring Team"
	}
	local := strings.ToLower(strings.TrimSpace(recipient[:at]))
	if i := strings.Index(local, "+"); i >= 0 {
		local = local[:i]
	}
	if roleMailboxes[local] {
		return "Hiring Team"
	}
	name := titleWords(strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return -1
		}
		return r
	}, local))
	if name == "" {
		return "Hiring Team"
	}
	return name
}

// titleWords splits on . _ - and capitalises each part.
func titleWords(s string) string {
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == '.' || r == '_' || r == '-' || unicode.IsSpace(r)
	})
	for i, p := range parts {
		runes := []rune(p)
		runes[0] = unicode.ToUpper(runes[0])
		parts[i] = string(runes)
	}
	return strings.Join(parts, " ")
}
