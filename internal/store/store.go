// Package store implements the Record Store (spec.md C1): a durable
// (name,type) -> Record table. It is grounded in the teacher's
// internal/cache.Cache: a single LMDB environment opened with MaxDBs(1),
// all writes funnelled through env.Update (LMDB's single-writer-many-reader
// discipline is exactly the "single writer" contract spec.md §4.1 and §9
// require), and a fixed-header encoding/binary record layout adapted from
// the teacher's FixedSizeCacheItem.Pack/Unpack.
//
// A process-local, mutex-guarded in-memory index mirrors the LMDB contents
// so list() and find_unique() never pay a transaction round trip. It is
// rebuilt from LMDB on Open (loadFromEnv, mirroring the teacher's
// loadFromDB) and kept in lockstep on every Upsert/Delete.
package store

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"github.com/bmatsuo/lmdb-go/lmdb"
	"go.uber.org/zap"

	"swandns/internal/errs"
	"swandns/internal/record"
)

const dbName = "records"

// defaultMapSize matches the teacher's cache (1<<30): generous headroom
// for an mmap-backed table of small fixed records.
const defaultMapSize = 1 << 30

// Store is the durable Record Store. It is safe for concurrent use.
type Store struct {
	env *lmdb.Env
	dbi lmdb.DBI

	mu    sync.RWMutex
	index map[record.Key]record.Record

	log *zap.SugaredLogger
}

// SetLogger wires a logger for this store's write path (Upsert, Delete).
// Left unset, those calls log nothing.
func (s *Store) SetLogger(log *zap.SugaredLogger) {
	s.log = log
}

func (s *Store) logger() *zap.SugaredLogger {
	if s.log != nil {
		return s.log
	}
	return zap.NewNop().Sugar()
}

// Open opens (creating if absent) the LMDB environment at path and loads
// its contents into the in-memory index.
func Open(path string) (*Store, error) {
	env, err := lmdb.NewEnv()
	if err != nil {
		return nil, errs.Wrap(errs.KindBindFailed, "lmdb: new env", err)
	}
	if err := env.SetMaxDBs(1); err != nil {
		return nil, errs.Wrap(errs.KindBindFailed, "lmdb: set max dbs", err)
	}
	if err := env.SetMapSize(defaultMapSize); err != nil {
		return nil, errs.Wrap(errs.KindBindFailed, "lmdb: set map size", err)
	}
	if err := env.Open(path, 0, 0644); err != nil {
		return nil, errs.Wrap(errs.KindBindFailed, "lmdb: open "+path, err)
	}

	var dbi lmdb.DBI
	err = env.Update(func(txn *lmdb.Txn) error {
		var err error
		dbi, err = txn.OpenDBI(dbName, lmdb.Create)
		return err
	})
	if err != nil {
		env.Close()
		return nil, errs.Wrap(errs.KindBindFailed, "lmdb: open dbi", err)
	}

	s := &Store{env: env, dbi: dbi, index: make(map[record.Key]record.Record)}
	if err := s.loadFromEnv(); err != nil {
		env.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	s.env.Close()
	return nil
}

func (s *Store) loadFromEnv() error {
	return s.env.View(func(txn *lmdb.Txn) error {
		cursor, err := txn.OpenCursor(s.dbi)
		if err != nil {
			return err
		}
		defer cursor.Close()

		for {
			k, v, err := cursor.Get(nil, nil, lmdb.Next)
			if lmdb.IsNotFound(err) {
				break
			}
			if err != nil {
				return err
			}
			key, err := unpackKey(k)
			if err != nil {
				return err
			}
			rec, err := unpackRecord(key, v)
			if err != nil {
				return err
			}
			s.index[key] = rec
		}
		return nil
	})
}

// Upsert inserts or updates the record for (name,type). created_at is set
// only on insert; updated_at advances on every call. Fails with
// InvalidArgument if data is not a valid IP literal of the address family
// implied by typ.
func (s *Store) Upsert(name string, typ record.Type, data string, ttl uint32) (record.Record, error) {
	if err := record.ValidateData(typ, data); err != nil {
		return record.Record{}, err
	}
	name = record.NormalizeName(name)
	key := record.Key{Name: name, Type: typ}
	now := time.Now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.index[key]
	rec := record.Record{
		Name:      name,
		Type:      typ,
		Data:      data,
		TTL:       ttl,
		UpdatedAt: now,
	}
	if ok {
		rec.CreatedAt = existing.CreatedAt
	} else {
		rec.CreatedAt = now
	}

	if err := s.writeToEnv(key, rec); err != nil {
		return record.Record{}, err
	}
	s.index[key] = rec
	s.logger().Debugw("store: upserted record", "name", name, "type", typ, "created", !ok)
	return rec, nil
}

// FindUnique returns the record for (name,type), or a NotFound error.
func (s *Store) FindUnique(name string, typ record.Type) (record.Record, error) {
	name = record.NormalizeName(name)
	key := record.Key{Name: name, Type: typ}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.index[key]
	if !ok {
		return record.Record{}, errs.ErrNotFound
	}
	return rec, nil
}

// List returns a snapshot of all records. Order is unspecified but stable
// within one call.
func (s *Store) List() []record.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]record.Record, 0, len(s.index))
	for _, rec := range s.index {
		out = append(out, rec)
	}
	return out
}

// Delete removes at most one row. Succeeds whether or not the row existed.
func (s *Store) Delete(name string, typ record.Type) error {
	name = record.NormalizeName(name)
	key := record.Key{Name: name, Type: typ}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.index[key]; !ok {
		return nil
	}
	if err := s.deleteFromEnv(key); err != nil {
		return err
	}
	delete(s.index, key)
	s.logger().Debugw("store: deleted record", "name", name, "type", typ)
	return nil
}

// Stats reports ambient observability consumed by internal/metrics: the
// record count and the oldest updated_at across the table.
type Stats struct {
	Count   int
	Oldest  time.Time
	HasData bool
}

func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Stats{Count: len(s.index)}
	for _, rec := range s.index {
		if !st.HasData || rec.UpdatedAt.Before(st.Oldest) {
			st.Oldest = rec.UpdatedAt
			st.HasData = true
		}
	}
	return st
}

func (s *Store) writeToEnv(key record.Key, rec record.Record) error {
	k := packKey(key)
	v := packRecord(rec)
	err := s.env.Update(func(txn *lmdb.Txn) error {
		return txn.Put(s.dbi, k, v, 0)
	})
	if err != nil {
		return errs.Wrap(errs.KindTransient, "lmdb: put", err)
	}
	return nil
}

func (s *Store) deleteFromEnv(key record.Key) error {
	k := packKey(key)
	err := s.env.Update(func(txn *lmdb.Txn) error {
		err := txn.Del(s.dbi, k, nil)
		if lmdb.IsNotFound(err) {
			return nil
		}
		return err
	})
	if err != nil {
		return errs.Wrap(errs.KindTransient, "lmdb: del", err)
	}
	return nil
}

// packKey/unpackKey encode the primary key as "type\x00name" so the
// lexical LMDB key order groups records by type, then name.
func packKey(key record.Key) []byte {
	buf := bytes.Buffer{}
	buf.WriteString(string(key.Type))
	buf.WriteByte(0)
	buf.WriteString(key.Name)
	return buf.Bytes()
}

func unpackKey(k []byte) (record.Key, error) {
	i := bytes.IndexByte(k, 0)
	if i < 0 {
		return record.Key{}, fmt.Errorf("store: malformed key %q", k)
	}
	return record.Key{Type: record.Type(k[:i]), Name: string(k[i+1:])}, nil
}

// packRecord/unpackRecord encode a Record as a fixed-header layout
// (created_at, updated_at, ttl, then length-prefixed data), the same shape
// as the teacher's FixedSizeCacheItem.Pack/Unpack, repurposed for a record
// instead of a cached DNS message.
func packRecord(rec record.Record) []byte {
	buf := &bytes.Buffer{}
	binary.Write(buf, binary.BigEndian, rec.CreatedAt.Unix())
	binary.Write(buf, binary.BigEndian, rec.UpdatedAt.Unix())
	binary.Write(buf, binary.BigEndian, rec.TTL)
	binary.Write(buf, binary.BigEndian, uint32(len(rec.Data)))
	buf.WriteString(rec.Data)
	return buf.Bytes()
}

func unpackRecord(key record.Key, v []byte) (record.Record, error) {
	r := bytes.NewReader(v)
	var createdUnix, updatedUnix int64
	var ttl, dataLen uint32

	if err := binary.Read(r, binary.BigEndian, &createdUnix); err != nil {
		return record.Record{}, fmt.Errorf("store: unpack created_at: %w", err)
	}
	if err := binary.Read(r, binary.BigEndian, &updatedUnix); err != nil {
		return record.Record{}, fmt.Errorf("store: unpack updated_at: %w", err)
	}
	if err := binary.Read(r, binary.BigEndian, &ttl); err != nil {
		return record.Record{}, fmt.Errorf("store: unpack ttl: %w", err)
	}
	if err := binary.Read(r, binary.BigEndian, &dataLen); err != nil {
		return record.Record{}, fmt.Errorf("store: unpack data length: %w", err)
	}
	data := make([]byte, dataLen)
	if _, err := r.Read(data); err != nil {
		return record.Record{}, fmt.Errorf("store: unpack data: %w", err)
	}

	return record.Record{
		Name:      key.Name,
		Type:      key.Type,
		Data:      string(data),
		TTL:       ttl,
		CreatedAt: time.Unix(createdUnix, 0).UTC(),
		UpdatedAt: time.Unix(updatedUnix, 0).UTC(),
	}, nil
}
