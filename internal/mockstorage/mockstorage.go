// Package mockstorage provides a testify-based mock implementation
// of the credential store. It is used for unit testing the service and
// auth layers by simulating storage behavior.
package mockstorage

import (
	"context"
	"database/sql"

	"github.com/stretchr/testify/mock"

	"github.com/patric-chuzhbe/imgsearch/internal/user"
)

// StorageMock is a testify mock that implements storage.Storage.
type StorageMock struct {
	mock.Mock
}

// Ping mocks the storage health check.
func (m *StorageMock) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// BeginTransaction mocks the beginning of a transaction.
func (m *StorageMock) BeginTransaction(ctx context.Context) (*sql.Tx, error) {
	args := m.Called(ctx)
	tx, _ := args.Get(0).(*sql.Tx)
	return tx, args.Error(1)
}

// CommitTransaction mocks committing a transaction.
func (m *StorageMock) CommitTransaction(tx *sql.Tx) error {
	args := m.Called(tx)
	return args.Error(0)
}

// RollbackTransaction mocks rolling back a transaction.
func (m *StorageMock) RollbackTransaction(tx *sql.Tx) error {
	args := m.Called(tx)
	return args.Error(0)
}

// FindUserByUsername mocks a user lookup.
func (m *StorageMock) FindUserByUsername(
	ctx context.Context,
	username string,
	tx *sql.Tx,
) (*user.User, bool, error) {
	args := m.Called(ctx, username, tx)
	usr, _ := args.Get(0).(*user.User)
	return usr, args.Bool(1), args.Error(2)
}

// InsertUser mocks a user insert.
func (m *StorageMock) InsertUser(
	ctx context.Context,
	usr *user.User,
	tx *sql.Tx,
) (*user.User, error) {
	args := m.Called(ctx, usr, tx)
	inserted, _ := args.Get(0).(*user.User)
	return inserted, args.Error(1)
}

// Close mocks releasing the storage.
func (m *StorageMock) Close() error {
	args := m.Called()
	return args.Error(0)
}
