package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	mysqlDriver "github.com/go-sql-driver/mysql"
)

var (
	ErrResourceNotFound = errors.New("payable resource not found")
	ErrAuditKeyExists   = errors.New("audit record key already exists")
)

// ApplyResult tells whether a conditional payment write changed the resource.
type ApplyResult int

const (
	ApplyResultApplied ApplyResult = iota + 1
	// ApplyResultUnchanged means the resource exists but the guard rejected
	// the write: the same payment is already recorded or a newer one is.
	ApplyResultUnchanged
)

func (r ApplyResult) String() string {
	switch r {
	case ApplyResultApplied:
		return "applied"
	case ApplyResultUnchanged:
		return "unchanged"
	default:
		return "unknown"
	}
}

type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func isDuplicateEntryError(err error) bool {
	var mysqlErr *mysqlDriver.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == 1062
}

func nullableStringValue(v string) interface{} {
	if v == "" {
		return nil
	}
	return v
}

func stringPtrFromNull(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func timePtrFromNull(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time.UTC()
	return &t
}
