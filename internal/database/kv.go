package database

import (
	"context"
	"database/sql"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/varoOP/shinkrorec/internal/domain"
)

// KVRepo implements domain.KeyValueStore on the kv_store table
type KVRepo struct {
	log zerolog.Logger
	db  *DB
}

var _ domain.KeyValueStore = (*KVRepo)(nil)

// NewKVRepo creates a new key value repository
func NewKVRepo(log zerolog.Logger, db *DB) *KVRepo {
	return &KVRepo{
		log: log.With().Str("repo", "kv").Logger(),
		db:  db,
	}
}

// Get returns the raw value stored under key
func (r *KVRepo) Get(ctx context.Context, key string) ([]byte, error) {
	queryBuilder := r.db.squirrel.
		Select("value").
		From("kv_store").
		Where(sq.Eq{"key": key})

	query, args, err := queryBuilder.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "error building query")
	}

	r.log.Trace().Str("query", query).Interface("args", args).Msg("Get")

	r.db.lock.RLock()
	defer r.db.lock.RUnlock()

	var value []byte
	err = r.db.handler.QueryRowContext(ctx, query, args...).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrKeyNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "error executing query")
	}

	return value, nil
}

// Set inserts or replaces the value stored under key
func (r *KVRepo) Set(ctx context.Context, key string, value []byte) error {
	now := time.Now().Format(time.RFC3339)

	queryBuilder := r.db.squirrel.
		Replace("kv_store").
		Columns("key", "value", "updated_at").
		Values(key, value, now)

	query, args, err := queryBuilder.ToSql()
	if err != nil {
		return errors.Wrap(err, "error building query")
	}

	r.log.Trace().Str("query", query).Str("key", key).Msg("Set")

	r.db.lock.Lock()
	defer r.db.lock.Unlock()

	if _, err := r.db.handler.ExecContext(ctx, query, args...); err != nil {
		return errors.Wrap(err, "error executing query")
	}

	return nil
}

// Close closes the underlying database
func (r *KVRepo) Close() error {
	return r.db.Close()
}
