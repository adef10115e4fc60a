package badgerdb

import (
	"fmt"
	"path/filepath"

	"github.com/dgraph-io/badger/v4"
	"github.com/timshannon/badgerhold/v4"
)

const maxRetries = 10

func createStore(dir string, inMemory bool, logger badger.Logger) (*badgerhold.Store, error) {
	opts := badgerhold.DefaultOptions
	if inMemory {
		opts.Options = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts.Options = badger.DefaultOptions(dir)
	}
	opts.Options.Logger = logger

	store, err := badgerhold.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger store at %s: %w", dir, err)
	}
	return store, nil
}

func subDir(baseDir, name string) string {
	if len(baseDir) == 0 {
		return ""
	}
	return filepath.Join(baseDir, name)
}
