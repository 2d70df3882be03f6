package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"

	"github.com/unclebandit/emailace-backend/internal/model"
)

type EmailListRepository struct {
	DB *sql.DB
}

func (r *EmailListRepository) Create(ctx context.Context, l *model.EmailList) error {
	query := `
        INSERT INTO email_lists (name, emails)
        VALUES ($1, $2)
        RETURNING id, created_at
    `
	err := r.DB.QueryRowContext(ctx, query, l.Name, pq.StringArray(l.Emails)).Scan(&l.ID, &l.CreatedAt)
	return translate(err, "email list", l.ID)
}

// Update replaces the whole address set.
func (r *EmailListRepository) Update(ctx context.Context, l *model.EmailList) error {
	query := `UPDATE email_lists SET name=$1, emails=$2, updated_at=NOW() WHERE id=$3 RETURNING updated_at`
	var updated time.Time
	if err := r.DB.QueryRowContext(ctx, query, l.Name, pq.StringArray(l.Emails), l.ID).Scan(&updated); err != nil {
		return translate(err, "email list", l.ID)
	}
	l.UpdatedAt = &updated
	return nil
}

func (r *EmailListRepository) GetByID(ctx context.Context, id string) (*model.EmailList, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT id, name, emails, created_at, updated_at FROM email_lists WHERE id=$1`, id)
	l, err := scanEmailList(row)
	if err != nil {
		return nil, translate(err, "email list", id)
	}
	return l, nil
}

func (r *EmailListRepository) List(ctx context.Context) ([]model.EmailList, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id, name, emails, created_at, updated_at FROM email_lists ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	lists := []model.EmailList{}
	for rows.Next() {
		l, err := scanEmailList(rows)
		if err != nil {
			return nil, err
		}
		lists = append(lists, *l)
	}
	return lists, rows.Err()
}

func (r *EmailListRepository) Delete(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM email_lists WHERE id=$1`, id)
	if err != nil {
		return translate(err, "email list", id)
	}
	return requireAffected(res, "email list", id)
}

func scanEmailList(row rowScanner) (*model.EmailList, error) {
	var l model.EmailList
	var emails pq.StringArray
	if err := row.Scan(&l.ID, &l.Name, &emails, &l.CreatedAt, &l.UpdatedAt); err != nil {
		return nil, err
	}
	l.Emails = []string(emails)
	if l.Emails == nil {
		l.Emails = []string{}
	}
	return &l, nil
}

var _ EmailListRepositoryInterface = (*EmailListRepository)(nil)
