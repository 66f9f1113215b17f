package db

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/mattn/go-sqlite3"
)

var (
	// ErrSlotOverlap is returned when the bookings exclusion trigger rejects a write.
	ErrSlotOverlap = errors.New("slot unavailable")
	// ErrDuplicate is returned when a unique constraint rejects a write.
	ErrDuplicate = errors.New("duplicate row")
)

type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

// Queries holds the hand-written statements for every aggregate. It is bound
// either to the pool or to a transaction (see DB.WithTx).
type Queries struct {
	db DBTX
}

func NewQueries(db DBTX) *Queries {
	return &Queries{db: db}
}

// translateWriteError maps SQLite constraint failures onto the package's
// sentinel errors so callers never inspect driver errors.
func translateWriteError(err error) error {
	if err == nil {
		return nil
	}
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return err
	}
	if sqliteErr.Code != sqlite3.ErrConstraint {
		return err
	}
	switch {
	case strings.Contains(sqliteErr.Error(), ErrSlotOverlap.Error()):
		return errors.Join(ErrSlotOverlap, err)
	case sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique,
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey:
		return errors.Join(ErrDuplicate, err)
	}
	return err
}

type scanner interface {
	Scan(dest ...any) error
}
