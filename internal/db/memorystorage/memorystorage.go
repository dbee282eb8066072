package memorystorage

import (
	"github.com/patric-chuzhbe/imgsearch/internal/db/jsondb"
	"github.com/patric-chuzhbe/imgsearch/internal/user"
)

// MemoryStorage is a JSONDB that is never written to disk.
type MemoryStorage struct {
	*jsondb.JSONDB
}

func New() (*MemoryStorage, error) {
	return &MemoryStorage{
		JSONDB: &jsondb.JSONDB{
			Cache: jsondb.CacheStruct{
				Users: map[string]*user.User{},
			},
		},
	}, nil
}

func (theStorage *MemoryStorage) Close() error {
	return nil
}
