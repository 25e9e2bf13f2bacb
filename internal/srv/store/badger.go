package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/jypelle/papier/apimodel"
)

const (
	recordPrefix   = "record/"
	locationPrefix = "location/"
)

// BadgerManifest keeps records in a badger database, with a secondary location index used to probe
// blob name collisions.
type BadgerManifest struct {
	db *badger.DB
}

var _ Manifest = (*BadgerManifest)(nil)

// OpenBadgerManifest opens (or creates) the database in folder. An empty folder opens an in-memory database.
func OpenBadgerManifest(folder string) (*BadgerManifest, error) {
	var opts badger.Options
	if folder == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(folder, 0770); err != nil {
			return nil, fmt.Errorf("unable to create manifest folder: %w", err)
		}
		opts = badger.DefaultOptions(folder)
	}
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("unable to open manifest database: %w", err)
	}
	return &BadgerManifest{db: db}, nil
}

func (m *BadgerManifest) Get(id string) (*Record, error) {
	var record *Record
	err := m.db.View(func(txn *badger.Txn) error {
		r, err := getRecord(txn, id)
		record = r
		return err
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

func getRecord(txn *badger.Txn, id string) (*Record, error) {
	item, err := txn.Get([]byte(recordPrefix + id))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}
	var record Record
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &record)
	})
	if err != nil {
		return nil, fmt.Errorf("corrupted manifest record %s: %w", id, err)
	}
	return &record, nil
}

// List iterates in key order, which is identifier order.
func (m *BadgerManifest) List() ([]Record, error) {
	var records []Record
	err := m.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(recordPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var record Record
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &record)
			})
			if err != nil {
				return fmt.Errorf("corrupted manifest record %s: %w", it.Item().Key(), err)
			}
			records = append(records, record)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (m *BadgerManifest) Add(record Record) error {
	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("unable to encode manifest record %s: %w", record.Id, err)
	}

	return m.db.Update(func(txn *badger.Txn) error {
		existing, err := getRecord(txn, record.Id)
		if err != nil {
			return err
		}
		if existing != nil {
			return apimodel.AlreadyExistsf("manifest record %s", record.Id)
		}
		if _, err := txn.Get([]byte(locationPrefix + record.StorageLocation)); err == nil {
			return apimodel.AlreadyExistsf("storage location %s", record.StorageLocation)
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		if err := txn.Set([]byte(recordPrefix+record.Id), raw); err != nil {
			return err
		}
		return txn.Set([]byte(locationPrefix+record.StorageLocation), []byte(record.Id))
	})
}

func (m *BadgerManifest) Remove(id string) (bool, error) {
	removed := false
	err := m.db.Update(func(txn *badger.Txn) error {
		record, err := getRecord(txn, id)
		if err != nil || record == nil {
			return err
		}
		if err := txn.Delete([]byte(recordPrefix + id)); err != nil {
			return err
		}
		if err := txn.Delete([]byte(locationPrefix + record.StorageLocation)); err != nil {
			return err
		}
		removed = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return removed, nil
}

func (m *BadgerManifest) HasLocation(location string) (bool, error) {
	exists := false
	err := m.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(locationPrefix + location))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		exists = true
		return nil
	})
	return exists, err
}

func (m *BadgerManifest) Close() error {
	return m.db.Close()
}
