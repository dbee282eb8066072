// Package storage declares the credential store contract shared by the
// PostgreSQL, file-backed and in-memory implementations.
package storage

import (
	"context"
	"database/sql"

	"github.com/patric-chuzhbe/imgsearch/internal/user"
)

type Storage interface {
	// FindUserByUsername reports found=false, with a nil error, when no user
	// has the given username.
	FindUserByUsername(
		ctx context.Context,
		username string,
		transaction *sql.Tx,
	) (*user.User, bool, error)

	// InsertUser stores usr and returns it with its generated ID. It returns
	// models.ErrUserAlreadyExists if the username is taken.
	InsertUser(
		ctx context.Context,
		usr *user.User,
		transaction *sql.Tx,
	) (*user.User, error)

	BeginTransaction(ctx context.Context) (*sql.Tx, error)

	RollbackTransaction(transaction *sql.Tx) error

	CommitTransaction(transaction *sql.Tx) error

	Ping(ctx context.Context) error

	Close() error
}
