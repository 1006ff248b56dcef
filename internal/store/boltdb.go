package store

import (
	"context"
	"crypto"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"
	_ "golang.org/x/crypto/blake2s"

	"github.com/ArushKapoorJuspay/mock-three-ds-server/internal/transport"
)

const (
	connectTimeout = 5 * time.Second
	hashAlgo       = crypto.BLAKE2s_256
)

// boltRecord wraps a serialized transaction with its expiry. Expiry lives in
// the value, boltdb has no native TTL.
type boltRecord struct {
	ExpiresAt int64  `cbor:"1,keyasint"`
	Data      []byte `cbor:"2,keyasint"`
}

// BoltStore is a Store that keeps transaction records in a single file boltdb
// database, CBOR encoded. The database holds a transactionTbl bucket keyed by
// the threeDSServerTransID and an acsIdx bucket mapping hashed acsTransIDs to
// primary keys. Expired records are dropped lazily when touched.
type BoltStore[V Keyed] struct {
	dbpath string
	srz    transport.Serializer
	ttl    time.Duration
}

// NewBoltStore returns a BoltStore persisting to the dbpath file.
// It errors if the database schema can not be created.
func NewBoltStore[V Keyed](dbpath string, ttl time.Duration) (*BoltStore[V], error) {
	if ttl <= 0 {
		return nil, newError("invalid ttl %v", ttl)
	}

	db, err := bolt.Open(dbpath, 0600, &bolt.Options{Timeout: connectTimeout})
	if nil != err {
		return nil, wrapError(err, "failed connecting to database")
	}
	defer db.Close()

	err = db.Update(func(tx *bolt.Tx) error {
		var err error
		for _, bucketname := range []string{"transactionTbl", "acsIdx"} {
			_, err = tx.CreateBucketIfNotExists([]byte(bucketname))
			if nil != err {
				return wrapError(err, "failed %s bucket creation", bucketname)
			}
		}

		return nil
	})
	if nil != err {
		return nil, wrapError(err, "failed db initialization")
	}

	return &BoltStore[V]{
		dbpath: dbpath,
		srz:    transport.WrapInSafeSerializer(transport.CBORSerializer{}),
		ttl:    ttl,
	}, nil
}

// Save implements Store.
func (self *BoltStore[V]) Save(ctx context.Context, v V) error {
	srzrec, err := self.encode(v, time.Now().Add(self.ttl))
	if nil != err {
		return err
	}

	db, err := bolt.Open(self.dbpath, 0600, &bolt.Options{Timeout: connectTimeout})
	if nil != err {
		return wrapError(err, "failed connecting to database")
	}
	defer db.Close()

	err = db.Update(func(tx *bolt.Tx) error {
		sch, err := loadSchema(tx)
		if nil != err {
			return wrapError(err, "failed loadSchema")
		}

		key := v.Key()
		err = sch.transactionTbl.Put(key[:], srzrec)
		if nil != err {
			return wrapError(err, "failed storing record in bucket")
		}
		err = sch.acsIdx.Put(hashedACSKey(v.ACSKey()), key[:])
		if nil != err {
			return wrapError(err, "failed updating the acsIdx bucket")
		}

		return nil
	})

	return wrapError(err, "failed db.Update") // nil if err is nil
}

// Update implements Store. The stored expiry is preserved.
func (self *BoltStore[V]) Update(ctx context.Context, v V) error {
	db, err := bolt.Open(self.dbpath, 0600, &bolt.Options{Timeout: connectTimeout})
	if nil != err {
		return wrapError(err, "failed connecting to database")
	}
	defer db.Close()

	err = db.Update(func(tx *bolt.Tx) error {
		sch, err := loadSchema(tx)
		if nil != err {
			return wrapError(err, "failed loadSchema")
		}

		key := v.Key()
		var current boltRecord
		found, err := sch.loadRecord(key, &current)
		if nil != err {
			return wrapError(err, "failed loading existing record")
		}
		if !found || expired(current) {
			return flagError(ErrNotFound, "no live record under %s", key)
		}

		srzrec, err := self.encode(v, time.Unix(current.ExpiresAt, 0))
		if nil != err {
			return err
		}
		err = sch.transactionTbl.Put(key[:], srzrec)
		if nil != err {
			return wrapError(err, "failed storing record in bucket")
		}
		err = sch.acsIdx.Put(hashedACSKey(v.ACSKey()), key[:])
		if nil != err {
			return wrapError(err, "failed updating the acsIdx bucket")
		}

		return nil
	})

	return err
}

// Load implements Store.
func (self *BoltStore[V]) Load(ctx context.Context, key uuid.UUID) (V, error) {
	var zero V

	db, err := bolt.Open(self.dbpath, 0600, &bolt.Options{Timeout: connectTimeout})
	if nil != err {
		return zero, wrapError(err, "failed connecting to database")
	}
	defer db.Close()

	var v V
	err = db.Update(func(tx *bolt.Tx) error {
		sch, err := loadSchema(tx)
		if nil != err {
			return wrapError(err, "failed loadSchema")
		}

		var rec boltRecord
		found, err := sch.loadRecord(key, &rec)
		if nil != err {
			return wrapError(err, "failed loading record")
		}
		if !found {
			return flagError(ErrNotFound, "no live record under %s", key)
		}
		if expired(rec) {
			_ = sch.transactionTbl.Delete(key[:])
			return flagError(ErrNotFound, "no live record under %s", key)
		}

		return self.decode(rec, &v)
	})
	if nil != err {
		return zero, err
	}

	return v, nil
}

// FindByACSKey implements Store.
func (self *BoltStore[V]) FindByACSKey(ctx context.Context, acsKey uuid.UUID) (V, error) {
	var zero V

	db, err := bolt.Open(self.dbpath, 0600, &bolt.Options{Timeout: connectTimeout})
	if nil != err {
		return zero, wrapError(err, "failed connecting to database")
	}
	defer db.Close()

	var v V
	err = db.View(func(tx *bolt.Tx) error {
		sch, err := loadSchema(tx)
		if nil != err {
			return wrapError(err, "failed loadSchema")
		}

		keyBytes := sch.acsIdx.Get(hashedACSKey(acsKey))
		if nil == keyBytes {
			return flagError(ErrNotFound, "no record indexed under %s", acsKey)
		}
		key, err := uuid.FromBytes(keyBytes)
		if nil != err {
			return wrapError(err, "corrupted acsIdx entry")
		}

		var rec boltRecord
		found, err := sch.loadRecord(key, &rec)
		if nil != err {
			return wrapError(err, "failed loading record")
		}
		if !found || expired(rec) {
			return flagError(ErrNotFound, "no live record under %s", key)
		}

		return self.decode(rec, &v)
	})
	if nil != err {
		return zero, err
	}

	return v, nil
}

// Close implements Store. The BoltStore opens the database per operation, there
// is nothing to release.
func (self *BoltStore[V]) Close() error {
	return nil
}

func (self *BoltStore[V]) encode(v V, expiresAt time.Time) ([]byte, error) {
	data, err := self.srz.Marshal(v)
	if nil != err {
		return nil, wrapError(err, "failed serializing record")
	}
	srzrec, err := self.srz.Marshal(boltRecord{ExpiresAt: expiresAt.Unix(), Data: data})
	if nil != err {
		return nil, wrapError(err, "failed serializing record envelope")
	}
	return srzrec, nil
}

func (self *BoltStore[V]) decode(rec boltRecord, dst *V) error {
	err := self.srz.Unmarshal(rec.Data, dst)
	return wrapError(err, "failed deserializing record") // nil if err is nil
}

func expired(rec boltRecord) bool {
	return time.Now().Unix() >= rec.ExpiresAt
}

// schema holds BoltStore buckets reference
type schema struct {
	transactionTbl *bolt.Bucket
	acsIdx         *bolt.Bucket
}

func loadSchema(tx *bolt.Tx) (schema, error) {
	rv := schema{
		transactionTbl: tx.Bucket([]byte("transactionTbl")),
		acsIdx:         tx.Bucket([]byte("acsIdx")),
	}
	var err error
	if nil == rv.transactionTbl || nil == rv.acsIdx {
		err = newError("1 or more bucket is missing")
	}

	return rv, err
}

func (self schema) loadRecord(key uuid.UUID, dst *boltRecord) (bool, error) {
	srzrec := self.transactionTbl.Get(key[:])
	if nil == srzrec {
		return false, nil
	}
	err := transport.CBORSerializer{}.Unmarshal(srzrec, dst)
	return true, wrapError(err, "failed decoding stored record") // nil if err is nil
}

// hashedACSKey returns the acsIdx bucket key for acsKey.
// The identifier is hashed to keep index keys uniform.
func hashedACSKey(acsKey uuid.UUID) []byte {
	h := hashAlgo.New()
	h.Write(acsKey[:])
	return h.Sum(nil)
}
