package repository

import (
	"database/sql"
	"errors"

	"github.com/lib/pq"

	appErrors "github.com/unclebandit/emailace-backend/internal/errors"
)

const (
	pgForeignKeyViolation = "23503"
	pgUniqueViolation     = "23505"
	pgInvalidText         = "22P02"
)

// translate maps driver errors onto the application error kinds.
func translate(err error, entity, id string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.NewNotFound(entity, id)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pgForeignKeyViolation:
			return appErrors.NewValidation(entity, "referenced record does not exist")
		case pgUniqueViolation:
			return appErrors.NewValidation(entity, "duplicate %s", entity)
		case pgInvalidText:
			// malformed uuid in a lookup
			return appErrors.NewNotFound(entity, id)
		}
	}
	return err
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func requireAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return appErrors.NewNotFound(entity, id)
	}
	return nil
}
