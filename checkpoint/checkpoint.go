// Persist USN journal cursors so a listener can pick up where a
// previous run stopped.

package checkpoint

import (
	"sync"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/pkg/errors"
	"www.velocidex.com/golang/ntfsmon/json"
)

const keyPrefix = "cursor:"

var (
	ErrNotFound = errors.New("No checkpoint for volume")
)

// Cursor is the position of a listener in a volume's journal. A
// cursor is only valid against the journal it was taken from.
type Cursor struct {
	Volume    string    `json:"volume"`
	JournalID uint64    `json:"journal_id"`
	NextUsn   int64     `json:"next_usn"`
	Updated   time.Time `json:"updated"`
}

type Store struct {
	mu sync.Mutex
	db *badger.DB
}

// Open opens or creates a store in the directory at path.
func Open(path string) (*Store, error) {
	opts := badger.DefaultOptions(path).
		WithLoggingLevel(badger.WARNING).
		WithCompression(options.None)

	return open(opts)
}

// OpenInMemory creates a store which is discarded on Close.
func OpenInMemory() (*Store, error) {
	opts := badger.DefaultOptions("").
		WithInMemory(true).
		WithLoggingLevel(badger.WARNING)

	return open(opts)
}

func open(opts badger.Options) (*Store, error) {
	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrap(err, "checkpoint.Open")
	}
	return &Store{db: db}, nil
}

func key(volume string) []byte {
	return []byte(keyPrefix + volume)
}

func (self *Store) Save(cursor *Cursor) error {
	self.mu.Lock()
	defer self.mu.Unlock()

	serialized, err := json.Marshal(cursor)
	if err != nil {
		return errors.Wrap(err, "checkpoint.Save")
	}

	return self.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key(cursor.Volume), serialized)
	})
}

// Load returns the cursor saved for volume, or ErrNotFound.
func (self *Store) Load(volume string) (*Cursor, error) {
	self.mu.Lock()
	defer self.mu.Unlock()

	result := &Cursor{}
	err := self.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key(volume))
		if err == badger.ErrKeyNotFound {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, result)
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// List returns all saved cursors ordered by volume.
func (self *Store) List() ([]*Cursor, error) {
	self.mu.Lock()
	defer self.mu.Unlock()

	result := []*Cursor{}
	err := self.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(keyPrefix)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				cursor := &Cursor{}
				err := json.Unmarshal(val, cursor)
				if err != nil {
					// Skip corrupted entries
					return nil
				}
				result = append(result, cursor)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})

	return result, err
}

func (self *Store) Delete(volume string) error {
	self.mu.Lock()
	defer self.mu.Unlock()

	return self.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key(volume))
	})
}

func (self *Store) Close() error {
	return self.db.Close()
}
