// Package repository defines the persistence contracts of the service and
// their MySQL and in-memory implementations.  The sentinel values below
// are shared across repositories so that services can distinguish
// failure scenarios without inspecting driver errors.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when a lookup matches no row.  SQL repositories
// translate sql.ErrNoRows into this value.
var ErrNotFound = errors.New("not found")

// ErrEmailExists is returned by Users.Create when the normalized email is
// already registered.
var ErrEmailExists = errors.New("email already exists")

// ErrDuplicate signals a unique-key collision other than the user email,
// e.g. two ledger rows with the same token hash.
var ErrDuplicate = errors.New("duplicate key")

// mysqlDuplicateEntry is the server error number for ER_DUP_ENTRY.
const mysqlDuplicateEntry = 1062

func isDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}
