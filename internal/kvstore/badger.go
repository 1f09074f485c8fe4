package kvstore

import (
	"context"

	"github.com/dgraph-io/badger/v4"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/varoOP/shinkrorec/internal/domain"
)

// Badger implements domain.KeyValueStore on a badger database
type Badger struct {
	log zerolog.Logger
	db  *badger.DB
}

var _ domain.KeyValueStore = (*Badger)(nil)

// NewBadger opens (or creates) a badger database in dir
func NewBadger(dir string, log zerolog.Logger) (*Badger, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil
	opts.SyncWrites = true

	return openBadger(opts, log.With().Str("path", dir).Logger())
}

// NewBadgerInMemory opens a badger database that lives only in memory
func NewBadgerInMemory(log zerolog.Logger) (*Badger, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil

	return openBadger(opts, log)
}

func openBadger(opts badger.Options, log zerolog.Logger) (*Badger, error) {
	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrap(err, "unable to open badger db")
	}

	b := &Badger{
		log: log.With().Str("module", "badger").Logger(),
		db:  db,
	}
	b.log.Debug().Msg("Badger database opened")

	return b, nil
}

func (b *Badger) Get(_ context.Context, key string) ([]byte, error) {
	var value []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, domain.ErrKeyNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", key)
	}

	return value, nil
}

func (b *Badger) Set(_ context.Context, key string, value []byte) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
	if err != nil {
		return errors.Wrapf(err, "failed to write %s", key)
	}

	return nil
}

func (b *Badger) Close() error {
	return b.db.Close()
}
