package store

import (
	"context"
	_ "embed"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ArushKapoorJuspay/mock-three-ds-server/internal/transport"
)

// PGDB is implemented by pgx.Tx, pgx.Conn & pgxpool.Pool
// accessing a postgres database through this common interface simplifies testing
type PGDB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

//go:embed transaction_store_schema.sql
var schemaScriptTpl string

// TransactionStoreMigrate creates the transaction table in dbschema.
func TransactionStoreMigrate(pgconn *pgx.Conn, dbschema string) error {
	schemaName := pgx.Identifier{dbschema}.Sanitize()
	schemaScript := strings.ReplaceAll(schemaScriptTpl, "${schema_name}", schemaName)

	_, err := pgconn.Exec(context.Background(), schemaScript)

	return wrapError(err, "failed db schema initialization") // nil if err is nil
}

// PGStore is a Store backed by a postgres database. Records are JSON values in
// the three_ds_transaction table, expiry is enforced by filtering on the
// expires_at column. Expired rows pile up until PurgeExpired runs.
type PGStore[V Keyed] struct {
	DB  PGDB
	srz transport.Serializer
	ttl time.Duration

	pool *pgxpool.Pool
}

// NewPGStore opens a connection pool to the postgres database at dsn.
func NewPGStore[V Keyed](ctx context.Context, dsn string, ttl time.Duration) (*PGStore[V], error) {
	if ttl <= 0 {
		return nil, newError("invalid ttl %v", ttl)
	}
	pool, err := pgxpool.New(ctx, dsn)
	if nil != err {
		return nil, wrapError(err, "failed connection pool creation")
	}

	return &PGStore[V]{
		DB:   pool,
		srz:  transport.WrapInSafeSerializer(transport.JSONSerializer{}),
		ttl:  ttl,
		pool: pool,
	}, nil
}

// Save implements Store.
func (self *PGStore[V]) Save(ctx context.Context, v V) error {
	data, err := self.srz.Marshal(v)
	if nil != err {
		return wrapError(err, "failed serializing record")
	}
	_, err = self.DB.Exec(
		ctx,
		`INSERT INTO three_ds_transaction(key, acs_key, data, expires_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (key) DO UPDATE SET
		 acs_key = EXCLUDED.acs_key,
		 data = EXCLUDED.data,
		 expires_at = EXCLUDED.expires_at`,
		v.Key(),
		v.ACSKey(),
		data,
		time.Now().Add(self.ttl),
	)

	return wrapError(err, "failed saving record") // nil if err is nil
}

// Update implements Store. The row expiry is preserved.
func (self *PGStore[V]) Update(ctx context.Context, v V) error {
	data, err := self.srz.Marshal(v)
	if nil != err {
		return wrapError(err, "failed serializing record")
	}
	var updated int
	row := self.DB.QueryRow(
		ctx,
		`WITH updated AS (
		   UPDATE three_ds_transaction
		   SET acs_key = $2, data = $3
		   WHERE key = $1 AND expires_at > now()
		   RETURNING key
		 )
		 SELECT count(key) FROM updated`,
		v.Key(),
		v.ACSKey(),
		data,
	)
	err = row.Scan(&updated)
	if nil != err {
		return wrapError(err, "failed UPDATE query")
	}
	if 0 == updated {
		return flagError(ErrNotFound, "no live record under %s", v.Key())
	}

	return nil
}

// Load implements Store.
func (self *PGStore[V]) Load(ctx context.Context, key uuid.UUID) (V, error) {
	return self.queryOne(
		ctx,
		`SELECT data FROM three_ds_transaction
		 WHERE key = $1 AND expires_at > now()`,
		key,
	)
}

// FindByACSKey implements Store.
func (self *PGStore[V]) FindByACSKey(ctx context.Context, acsKey uuid.UUID) (V, error) {
	return self.queryOne(
		ctx,
		`SELECT data FROM three_ds_transaction
		 WHERE acs_key = $1 AND expires_at > now()`,
		acsKey,
	)
}

// PurgeExpired removes expired rows and returns how many were dropped.
func (self *PGStore[V]) PurgeExpired(ctx context.Context) (int, error) {
	var purged int
	row := self.DB.QueryRow(
		ctx,
		`WITH deleted AS (
		   DELETE FROM three_ds_transaction WHERE expires_at <= now() RETURNING key
		 )
		 SELECT count(key) FROM deleted`,
	)
	err := row.Scan(&purged)
	return purged, wrapError(err, "failed DELETE query") // nil if err is nil
}

// Close implements Store.
func (self *PGStore[V]) Close() error {
	if nil != self.pool {
		self.pool.Close()
	}
	return nil
}

func (self *PGStore[V]) queryOne(ctx context.Context, sql string, arg any) (V, error) {
	var zero V

	var data []byte
	row := self.DB.QueryRow(ctx, sql, arg)
	err := row.Scan(&data)
	if nil != err {
		if errors.Is(err, pgx.ErrNoRows) {
			return zero, flagError(ErrNotFound, "no live record under %v", arg)
		}
		return zero, wrapError(err, "failed SELECT query")
	}

	var v V
	err = self.srz.Unmarshal(data, &v)
	if nil != err {
		return zero, wrapError(err, "failed deserializing record")
	}
	return v, nil
}
