// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow handlers to distinguish between
// failure scenarios without inspecting driver errors.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when the addressed row does not exist.
var ErrNotFound = errors.New("not found")

// ErrForbidden is returned when the caller attempts an operation on a
// resource assigned to someone else. Handlers translate it into 403.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when an update cannot be applied because the row
// is not in the expected state, or a unique key is already taken.
// Handlers translate it into 409.
var ErrConflict = errors.New("conflict")

// ErrBlocked is returned when a plain delete is refused because dependent
// rows still reference the target. Only the cascade purge may remove it.
var ErrBlocked = errors.New("delete blocked by dependent rows")

const (
	mysqlDuplicateEntry  = 1062
	mysqlRowIsReferenced = 1451
)

func mysqlCode(err error) uint16 {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number
	}
	return 0
}

func isDuplicate(err error) bool { return mysqlCode(err) == mysqlDuplicateEntry }

func isReferenced(err error) bool { return mysqlCode(err) == mysqlRowIsReferenced }
