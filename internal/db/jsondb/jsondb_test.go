package jsondb

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patric-chuzhbe/imgsearch/internal/models"
	"github.com/patric-chuzhbe/imgsearch/internal/user"
)

func newTestDB(t *testing.T) (*JSONDB, string) {
	t.Helper()
	fileName := filepath.Join(t.TempDir(), "db_test.json")
	db, err := New(fileName)
	require.NoError(t, err)
	return db, fileName
}

func TestInsertAndFindUser(t *testing.T) {
	db, _ := newTestDB(t)
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

func TestInsertUserRejectsDuplicateUsername(t *testing.T) {
	db, _ := newTestDB(t)
	ctx := context.Background()

	_, err := db.InsertUser(ctx, &user.User{Username: "alice", PasswordHash: "first"}, nil)
	require.NoError(t, err)

	_, err = db.InsertUser(ctx, &user.User{Username: "alice", PasswordHash: "second"}, nil)
	assert.ErrorIs(t, err, models.ErrUserAlreadyExists)

	usr, found, err := db.FindUserByUsername(ctx, "alice", nil)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "first", usr.PasswordHash)
	assert.Len(t, db.Cache.Users, 1)
}

func TestConcurrentInsertsKeepOneRecord(t *testing.T) {
	db, _ := newTestDB(t)
	ctx := context.Background()

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := db.InsertUser(ctx, &user.User{Username: "alice"}, nil); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Len(t, db.Cache.Users, 1)
}

func TestClosePersistsUsers(t *testing.T) {
	db, fileName := newTestDB(t)
	ctx := context.Background()

	inserted, err := db.InsertUser(ctx, &user.User{Username: "alice", Email: "alice@x.com"}, nil)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	reopened, err := New(fileName)
	require.NoError(t, err)

	usr, found, err := reopened.FindUserByUsername(ctx, "alice", nil)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, inserted.ID, usr.ID)
	assert.Equal(t, "alice@x.com", usr.Email)
}

func TestFoundUserIsACopy(t *testing.T) {
	db, _ := newTestDB(t)
	ctx := context.Background()

	_, err := db.InsertUser(ctx, &user.User{Username: "alice", Email: "alice@x.com"}, nil)
	require.NoError(t, err)

	usr, _, err := db.FindUserByUsername(ctx, "alice", nil)
	require.NoError(t, err)
	usr.Email = "changed@x.com"

	again, _, err := db.FindUserByUsername(ctx, "alice", nil)
	require.NoError(t, err)
	assert.Equal(t, "alice@x.com", again.Email)
}
