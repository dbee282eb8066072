package postgresdb

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patric-chuzhbe/imgsearch/internal/models"
	"github.com/patric-chuzhbe/imgsearch/internal/user"
)

const migrationsDir = `../../../cmd/imgsearch/migrations`

// setupTestDB connects to the database named by TEST_DATABASE_DSN,
// e.g. "host=localhost user=imgsearch password=imgsearch dbname=imgsearch_test sslmode=disable".
func setupTestDB(t *testing.T) *PostgresDB {
	t.Helper()
	databaseDSN := os.Getenv("TEST_DATABASE_DSN")
	if databaseDSN == "" {
		t.Skip("TEST_DATABASE_DSN is not set")
	}

	db, err := New(
		context.Background(),
		databaseDSN,
		5*time.Second,
		migrationsDir,
		WithDBPreReset(true),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, db.Close())
	})

	return db
}

func TestInsertAndFindUser(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	_, found, err := db.FindUserByUsername(ctx, "alice", nil)
	require.NoError(t, err)
	assert.False(t, found)

	inserted, err := db.InsertUser(ctx, &user.User{
		Username:     "alice",
		Email:        "alice@x.com",
		PasswordHash: "hash",
	}, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, inserted.ID)

	usr, found, err := db.FindUserByUsername(ctx, "alice", nil)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, inserted, usr)
}

func TestInsertUserUniqueViolation(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	_, err := db.InsertUser(ctx, &user.User{Username: "alice", PasswordHash: "hash"}, nil)
	require.NoError(t, err)

	_, err = db.InsertUser(ctx, &user.User{Username: "alice", PasswordHash: "hash"}, nil)
	assert.ErrorIs(t, err, models.ErrUserAlreadyExists)
}

func TestRolledBackInsertIsDiscarded(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	tx, err := db.BeginTransaction(ctx)
	require.NoError(t, err)

	_, err = db.InsertUser(ctx, &user.User{Username: "bob", PasswordHash: "hash"}, tx)
	require.NoError(t, err)

	_, found, err := db.FindUserByUsername(ctx, "bob", tx)
	require.NoError(t, err)
	assert.True(t, found)

	require.NoError(t, db.RollbackTransaction(tx))

	_, found, err = db.FindUserByUsername(ctx, "bob", nil)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestPing(t *testing.T) {
	db := setupTestDB(t)
	assert.NoError(t, db.Ping(context.Background()))
}
