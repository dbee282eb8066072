// Package jsondb is a file-backed credential store. Users are kept in
// memory and flushed to a JSON file on Close.
package jsondb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/google/uuid"

	"github.com/patric-chuzhbe/imgsearch/internal/models"
	"github.com/patric-chuzhbe/imgsearch/internal/user"
)

type JSONDB struct {
	fileName string
	mu       sync.RWMutex
	Cache    CacheStruct
}

// CacheStruct is the on-disk layout. Users are keyed by username.
type CacheStruct struct {
	Users map[string]*user.User
}

// New loads fileName, creating an empty database file if it does not exist.
func New(fileName string) (*JSONDB, error) {
	db := &JSONDB{
		fileName: fileName,
		Cache:    CacheStruct{},
	}

	err := parseJSONFile(db.fileName, &db.Cache)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		if err := writeToJSONFile(fileName, CacheStruct{Users: map[string]*user.User{}}); err != nil {
			return nil, err
		}
	}

	if db.Cache.Users == nil {
		db.Cache.Users = map[string]*user.User{}
	}

	return db, nil
}

// BeginTransaction is a no-op; inserts are atomic under the store lock.
func (db *JSONDB) BeginTransaction(ctx context.Context) (*sql.Tx, error) {
	return nil, nil
}

func (db *JSONDB) CommitTransaction(transaction *sql.Tx) error {
	return nil
}

func (db *JSONDB) RollbackTransaction(transaction *sql.Tx) error {
	return nil
}

func (db *JSONDB) FindUserByUsername(
	ctx context.Context,
	username string,
	transaction *sql.Tx,
) (*user.User, bool, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	usr, found := db.Cache.Users[username]
	if !found {
		return nil, false, nil
	}
	userCopy := *usr

	return &userCopy, true, nil
}

func (db *JSONDB) InsertUser(
	ctx context.Context,
	usr *user.User,
	transaction *sql.Tx,
) (*user.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, exists := db.Cache.Users[usr.Username]; exists {
		return nil, models.ErrUserAlreadyExists
	}

	stored := *usr
	stored.ID = uuid.New().String()
	db.Cache.Users[stored.Username] = &stored

	result := stored

	return &result, nil
}

func (db *JSONDB) Ping(ctx context.Context) error {
	return nil
}

// Close writes the current state to the database file.
func (db *JSONDB) Close() error {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return writeToJSONFile(db.fileName, db.Cache)
}

func writeToJSONFile(fileName string, cache interface{}) error {
	jsonData, err := json.MarshalIndent(cache, "", "\t")
	if err != nil {
		return fmt.Errorf("error marshaling JSON: %w", err)
	}

	if err := os.WriteFile(fileName, jsonData, 0600); err != nil {
		return fmt.Errorf("error writing to file: %w", err)
	}

	return nil
}

func parseJSONFile(fileName string, cache *CacheStruct) error {
	file, err := os.Open(fileName)
	if err != nil {
		return err
	}
	defer file.Close()

	return json.NewDecoder(file).Decode(cache)
}
