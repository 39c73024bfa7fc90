// Package checkpoint persists training snapshots in BadgerDB so an
// interrupted run can resume with its weights and Adam moments intact.
package checkpoint

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/pkg/errors"
	"texel-tuner/tuner"
)

// Storage keys
const (
	keyLatest = "latest"
	keyPrefix = "ckpt/"
)

// ErrNotFound is returned when the store holds no matching snapshot.
var ErrNotFound = errors.New("checkpoint not found")

// Store wraps BadgerDB. It implements tuner.Checkpointer.
type Store struct {
	db   *badger.DB
	keep int
}

var _ tuner.Checkpointer = (*Store)(nil)

// Open opens (or creates) a store in dir. An empty dir keeps everything in
// memory. keep bounds the number of snapshots retained; 0 keeps all.
func Open(dir string, keep int) (*Store, error) {
	opts := badger.DefaultOptions(dir)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	opts.Logger = nil // Disable logging

	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrapf(err, "opening checkpoint store %q", dir)
	}
	return &Store{db: db, keep: keep}, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func epochKey(epoch int) []byte {
	return []byte(fmt.Sprintf("%s%010d", keyPrefix, epoch))
}

// Save stores snap under its epoch and marks it as the latest. Snapshots of
// later epochs are left over from an earlier run and are dropped, and at most
// keep snapshots up to snap.Epoch are retained.
func (s *Store) Save(snap *tuner.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return errors.Wrap(err, "encoding snapshot")
	}
	epochs, err := s.Epochs()
	if err != nil {
		return err
	}
	var stale, older []int
	for _, e := range epochs {
		switch {
		case e > snap.Epoch:
			stale = append(stale, e)
		case e < snap.Epoch:
			older = append(older, e)
		}
	}
	if s.keep > 0 && len(older) > s.keep-1 {
		stale = append(stale, older[:len(older)-(s.keep-1)]...)
	}

	key := epochKey(snap.Epoch)
	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(key, data); err != nil {
			return err
		}
		if err := txn.Set([]byte(keyLatest), key); err != nil {
			return err
		}
		for _, e := range stale {
			if err := txn.Delete(epochKey(e)); err != nil {
				return err
			}
		}
		return nil
	})
	return errors.Wrapf(err, "saving epoch %d", snap.Epoch)
}

// Latest loads the most recently saved snapshot.
func (s *Store) Latest() (*tuner.Snapshot, error) {
	var snap *tuner.Snapshot
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyLatest))
		if err == badger.ErrKeyNotFound {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		key, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		snap, err = get(txn, key)
		return err
	})
	return snap, err
}

// Load returns the snapshot saved for epoch.
func (s *Store) Load(epoch int) (*tuner.Snapshot, error) {
	var snap *tuner.Snapshot
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		snap, err = get(txn, epochKey(epoch))
		return err
	})
	return snap, err
}

func get(txn *badger.Txn, key []byte) (*tuner.Snapshot, error) {
	item, err := txn.Get(key)
	if err == badger.ErrKeyNotFound {
		return nil, errors.Wrapf(ErrNotFound, "key %s", key)
	}
	if err != nil {
		return nil, err
	}
	snap := &tuner.Snapshot{}
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, snap)
	})
	return snap, errors.Wrapf(err, "decoding %s", key)
}

// Epochs lists the stored epochs in ascending order.
func (s *Store) Epochs() ([]int, error) {
	var epochs []int
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(keyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			key := string(it.Item().Key())
			n, err := strconv.Atoi(strings.TrimPrefix(key, keyPrefix))
			if err != nil {
				return errors.Wrapf(err, "bad checkpoint key %q", key)
			}
			epochs = append(epochs, n)
		}
		return nil
	})
	return epochs, err
}

// Prune deletes all but the newest keep snapshots. The snapshot marked as
// latest is never deleted.
func (s *Store) Prune(keep int) error {
	epochs, err := s.Epochs()
	if err != nil {
		return err
	}
	if len(epochs) <= keep {
		return nil
	}
	return s.db.Update(func(txn *badger.Txn) error {
		latest, err := txn.Get([]byte(keyLatest))
		var pinned []byte
		switch {
		case err == nil:
			if pinned, err = latest.ValueCopy(nil); err != nil {
				return err
			}
		case err != badger.ErrKeyNotFound:
			return err
		}
		for _, e := range epochs[:len(epochs)-keep] {
			key := epochKey(e)
			if string(key) == string(pinned) {
				continue
			}
			if err := txn.Delete(key); err != nil {
				return err
			}
		}
		return nil
	})
}
