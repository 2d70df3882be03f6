package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/unclebandit/emailace-backend/internal/model"
)

type TemplateRepository struct {
	DB *sql.DB
}

func (r *TemplateRepository) Create(ctx context.Context, t *model.EmailTemplate) error {
	query := `
        INSERT INTO email_templates (name, subject_template, body_template)
        VALUES ($1, $2, $3)
        RETURNING id, created_at
    `
	err := r.DB.QueryRowContext(ctx, query, t.Name, t.SubjectTemplate, t.BodyTemplate).Scan(&t.ID, &t.CreatedAt)
	return translate(err, "template", t.ID)
}

func (r *TemplateRepository) Update(ctx context.Context, t *model.EmailTemplate) error {
	query := `
        UPDATE email_templates
        SET name=$1, subject_template=$2, body_template=$3, updated_at=NOW()
        WHERE id=$4
        RETURNING updated_at
    `
	var updated time.Time
	if err := r.DB.QueryRowContext(ctx, query, t.Name, t.SubjectTemplate, t.BodyTemplate, t.ID).Scan(&updated); err != nil {
		return translate(err, "template", t.ID)
	}
	t.UpdatedAt = &updated
	return nil
}

func (r *TemplateRepository) GetByID(ctx context.Context, id string) (*model.EmailTemplate, error) {
	query := `SELECT id, name, subject_template, body_template, created_at, updated_at FROM email_templates WHERE id=$1`
	var t model.EmailTemplate
	err := r.DB.QueryRowContext(ctx, query, id).Scan(&t.ID, &t.Name, &t.SubjectTemplate, &t.BodyTemplate, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, translate(err, "template", id)
	}
	return &t, nil
}

func (r *TemplateRepository) List(ctx context.Context) ([]model.EmailTemplate, error) {
	query := `SELECT id, name, subject_template, body_template, created_at, updated_at FROM email_templates ORDER BY created_at DESC`
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	templates := []model.EmailTemplate{}
	for rows.Next() {
		var t model.EmailTemplate
		if err := rows.Scan(&t.ID, &t.Name, &t.SubjectTemplate, &t.BodyTemplate, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		templates = append(templates, t)
	}
	return templates, rows.Err()
}

func (r *TemplateRepository) Delete(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM email_templates WHERE id=$1`, id)
	if err != nil {
		return translate(err, "template", id)
	}
	return requireAffected(res, "template", id)
}

var _ TemplateRepositoryInterface = (*TemplateRepository)(nil)
