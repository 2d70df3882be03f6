// internal/model/candidate.go
package model

import "time"

type LanguageLevel string

const (
	LanguageBeginner     LanguageLevel = "Beginner"
	LanguageIntermediate LanguageLevel = "Intermediate"
	LanguageAdvanced     LanguageLevel = "Advanced"
	LanguageNative       LanguageLevel = "Native"
)

func (l LanguageLevel) Valid() bool {
	switch l {
	case LanguageBeginner, LanguageIntermediate, LanguageAdvanced, LanguageNative:
		return true
	}
	return false
}

type Candidate struct {
	ID            string        `db:"id" json:"id"`
	Name          string        `db:"name" json:"name"`
	DateOfBirth   time.Time     `db:"date_of_birth" json:"date_of_birth"`
	LanguageLevel LanguageLevel `db:"language_level" json:"language_level"`
	Information   string        `db:"information" json:"information"`
	CVURL         string        `db:"cv_url" json:"cv_url,omitempty"`
	PassportURL   string        `db:"passport_url" json:"passport_url,omitempty"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt     *time.Time    `db:"updated_at" json:"updated_at,omitempty"`
}

// AgeAt returns the candidate's age in whole years at t.
func (c *Candidate) AgeAt(t time.Time) int {
	if c.DateOfBirth.IsZero() {
		return 0
	}
	age := t.Year() - c.DateOfBirth.Year()
	if t.Month() < c.DateOfBirth.Month() || (t.Month() == c.DateOfBirth.Month() && t.Day() < c.DateOfBirth.Day()) {
		age--
	}
	if age < 0 {
		return 0
	}
	return age
}
