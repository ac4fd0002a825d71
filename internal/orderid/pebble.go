package orderid

import (
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"
)

// keys: oid:<client id> -> exchange id
var keyPrefix = []byte("oid:")

func entryKey(clientID string) []byte {
	return append(append([]byte{}, keyPrefix...), clientID...)
}

// keyUpperBound returns the exclusive upper bound for a prefix scan.
func keyUpperBound(prefix []byte) []byte {
	bound := make([]byte, len(prefix))
	copy(bound, prefix)
	bound[len(bound)-1]++
	return bound
}

// PebbleStore is a Store backed by a Pebble database.
type PebbleStore struct {
	db *pebble.DB
}

// OpenPebble opens (or creates) a Pebble database at path.
func OpenPebble(path string) (*PebbleStore, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open order id store: %w", err)
	}
	return &PebbleStore{db: db}, nil
}

// Put writes one entry.
func (s *PebbleStore) Put(clientID, exchangeID string) error {
	if err := s.db.Set(entryKey(clientID), []byte(exchangeID), pebble.Sync); err != nil {
		return fmt.Errorf("put %s: %w", clientID, err)
	}
	return nil
}

// Get reads one entry.
func (s *PebbleStore) Get(clientID string) (string, bool, error) {
	val, closer, err := s.db.Get(entryKey(clientID))
	if errors.Is(err, pebble.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %s: %w", clientID, err)
	}
	defer closer.Close()
	return string(val), true, nil
}

// Load calls fn for every stored entry.
func (s *PebbleStore) Load(fn func(clientID, exchangeID string)) error {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: keyPrefix,
		UpperBound: keyUpperBound(keyPrefix),
	})
	if err != nil {
		return fmt.Errorf("iterate order ids: %w", err)
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		clientID := string(iter.Key()[len(keyPrefix):])
		fn(clientID, string(iter.Value()))
	}
	return iter.Error()
}

func (s *PebbleStore) Close() error { return s.db.Close() }

var _ Store = (*PebbleStore)(nil)
