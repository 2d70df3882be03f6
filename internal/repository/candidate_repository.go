package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/unclebandit/emailace-backend/internal/model"
)

// CandidateRepository is the Postgres implementation
type CandidateRepository struct {
	DB *sql.DB
}

const candidateColumns = `id, name, date_of_birth, language_level, information, cv_url, passport_url, created_at, updated_at`

func (r *CandidateRepository) Create(ctx context.Context, c *model.Candidate) error {
	query := `
        INSERT INTO candidates (name, date_of_birth, language_level, information, cv_url, passport_url)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id, created_at
    `
	err := r.DB.QueryRowContext(ctx, query,
		c.Name, c.DateOfBirth, c.LanguageLevel, c.Information, c.CVURL, c.PassportURL,
	).Scan(&c.ID, &c.CreatedAt)
	return translate(err, "candidate", c.ID)
}

func (r *CandidateRepository) Update(ctx context.Context, c *model.Candidate) error {
	query := `
        UPDATE candidates
        SET name=$1, date_of_birth=$2, language_level=$3, information=$4, cv_url=$5, passport_url=$6, updated_at=NOW()
        WHERE id=$7
        RETURNING updated_at
    `
	var updated time.Time
	err := r.DB.QueryRowContext(ctx, query,
		c.Name, c.DateOfBirth, c.LanguageLevel, c.Information, c.CVURL, c.PassportURL, c.ID,
	).Scan(&updated)
	if err != nil {
		return translate(err, "candidate", c.ID)
	}
	c.UpdatedAt = &updated
	return nil
}

// GetByID fetches a candidate by ID
func (r *CandidateRepository) GetByID(ctx context.Context, id string) (*model.Candidate, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+candidateColumns+` FROM candidates WHERE id = $1`, id)
	c, err := scanCandidate(row)
	if err != nil {
		return nil, translate(err, "candidate", id)
	}
	return c, nil
}

// List returns candidates, newest first
func (r *CandidateRepository) List(ctx context.Context) ([]model.Candidate, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+candidateColumns+` FROM candidates ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	candidates := []model.Candidate{}
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, *c)
	}
	return candidates, rows.Err()
}

func (r *CandidateRepository) Delete(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM candidates WHERE id = $1`, id)
	if err != nil {
		return translate(err, "candidate", id)
	}
	return requireAffected(res, "candidate", id)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCandidate(row rowScanner) (*model.Candidate, error) {
	var c model.Candidate
	var level string
	if err := row.Scan(&c.ID, &c.Name, &c.DateOfBirth, &level, &c.Information, &c.CVURL, &c.PassportURL, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.LanguageLevel = model.LanguageLevel(level)
	return &c, nil
}

var _ CandidateRepositoryInterface = (*CandidateRepository)(nil)
