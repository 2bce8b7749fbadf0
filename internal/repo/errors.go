package repo

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound — строки нет.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists — нарушена уникальность: имя script или ключ
	// идемпотентности evaluation.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidState — переход статуса невозможен, например Claim
	// уже не PENDING evaluation.
	ErrInvalidState = errors.New("invalid state")
)

// uniqueViolation — SQLSTATE нарушения UNIQUE.
const uniqueViolation = "23505"

// isUniqueViolation сообщает, вызвана ли ошибка нарушением UNIQUE.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
