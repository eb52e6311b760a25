// Package repository holds the MySQL data access layer.  Repositories
// return the sentinel errors below (or the typed scheduling errors for
// reservation writes) so handlers can pick a status code without looking
// at driver errors.
package repository

import (
	"errors"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/go-sql-driver/mysql"
)

var (
	// ErrNotFound is returned when the requested row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrForbidden is returned when the caller attempts an operation
	// on a resource they do not own.  Handlers translate this into 403.
	ErrForbidden = errors.New("forbidden")

	// ErrConflict is returned when a delete or update cannot be
	// performed because of conflicting state, such as deleting a
	// location that still has reservations or reusing a unique code.
	ErrConflict = errors.New("conflict")

	ErrEmailExists    = errors.New("email already exists")
	ErrUsernameExists = errors.New("username already exists")

	ErrAlreadyRegistered = errors.New("already registered")
	ErrCourseFull        = errors.New("course is full")
	ErrCourseClosed      = errors.New("course is not open for registration")

	// ErrUnknownField rejects a PATCH naming a column that is not editable.
	ErrUnknownField = errors.New("field cannot be updated")
)

// MySQL error numbers the repositories react to.
const (
	errDupEntry        = 1062
	errNoReferenceRow  = 1452
	errRowIsReferenced = 1451
)

// builder produces MySQL-style "?" placeholders.
var builder = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question)

func mysqlErrNo(err error) uint16 {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number
	}
	return 0
}

func isDuplicate(err error) bool {
	return mysqlErrNo(err) == errDupEntry || (err != nil && strings.Contains(err.Error(), "1062"))
}

func isMissingParent(err error) bool { return mysqlErrNo(err) == errNoReferenceRow }

func isReferenced(err error) bool { return mysqlErrNo(err) == errRowIsReferenced }
