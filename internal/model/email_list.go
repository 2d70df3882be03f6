package model

import "time"

// EmailList holds an ordered, deduplicated set of recipient addresses.
type EmailList struct {
	ID        string     `db:"id" json:"id"`
	Name      string     `db:"name" json:"name"`
	Emails    []string   `db:"emails" json:"emails"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt *time.Time `db:"updated_at" json:"updated_at,omitempty"`
}

type EmailTemplate struct {
	ID              string     `db:"id" json:"id"`
	Name            string     `db:"name" json:"name"`
	SubjectTemplate string     `db:"subject_template" json:"subject_template"`
	BodyTemplate    string     `db:"body_template" json:"body_template"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       *time.Time `db:"updated_at" json:"updated_at,omitempty"`
}
