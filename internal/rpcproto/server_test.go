package rpcproto

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"swandns/internal/errs"
	"swandns/internal/record"
	"swandns/internal/workerpool"
)

// fakeStore is a minimal in-memory RecordStore for exercising the wire
// protocol without pulling in LMDB.
type fakeStore struct {
	records map[record.Key]record.Record
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: make(map[record.Key]record.Record)}
}

func (f *fakeStore) Upsert(name string, typ record.Type, data string, ttl uint32) (record.Record, error) {
	if err := record.ValidateData(typ, data); err != nil {
		return record.Record{}, err
	}
	key := record.Key{Name: record.NormalizeName(name), Type: typ}
	now := time.Now().UTC()
	rec, ok := f.records[key]
	if !ok {
		rec.CreatedAt = now
	}
	rec.Name, rec.Type, rec.Data, rec.TTL, rec.UpdatedAt = key.Name, typ, data, ttl, now
	f.records[key] = rec
	return rec, nil
}

func (f *fakeStore) FindUnique(name string, typ record.Type) (record.Record, error) {
	key := record.Key{Name: record.NormalizeName(name), Type: typ}
	rec, ok := f.records[key]
	if !ok {
		return record.Record{}, errs.ErrNotFound
	}
	return rec, nil
}

func (f *fakeStore) List() []record.Record {
	out := make([]record.Record, 0, len(f.records))
	for _, rec := range f.records {
		out = append(out, rec)
	}
	return out
}

func (f *fakeStore) Delete(name string, typ record.Type) error {
	delete(f.records, record.Key{Name: record.NormalizeName(name), Type: typ})
	return nil
}

func startTestServer(t *testing.T) (*Client, func()) {
	t.Helper()
	store := newFakeStore()
	log := zap.NewNop().Sugar()
	pool := workerpool.New(4, 4)
	pool.Start()

	srv := NewServer(store, log, pool)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	go srv.Serve(addr)
	time.Sleep(20 * time.Millisecond)

	client := NewClient(addr, 2*time.Second)
	cleanup := func() {
		srv.Close()
		pool.Stop()
	}
	return client, cleanup
}

func TestPingPong(t *testing.T) {
	client, cleanup := startTestServer(t)
	defer cleanup()

	require.NoError(t, client.Ping())
}

func TestUpsertFindUniqueDelete(t *testing.T) {
	client, cleanup := startTestServer(t)
	defer cleanup()

	rec, err := client.Upsert("example.com", "A", "127.0.0.1", 30)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1", rec.Data)
	assert.True(t, rec.Healthy)

	found, err := client.FindUnique("example.com", "A")
	require.NoError(t, err)
	assert.Equal(t, rec.Data, found.Data)

	require.NoError(t, client.Delete("example.com", "A"))

	_, err = client.FindUnique("example.com", "A")
	assert.Error(t, err)
}

func TestUpsertRejectsAddressFamilyMismatch(t *testing.T) {
	client, cleanup := startTestServer(t)
	defer cleanup()

	_, err := client.Upsert("example.com", "A", "::1", 30)
	assert.Error(t, err)
}

func TestListStreamsAllRecords(t *testing.T) {
	client, cleanup := startTestServer(t)
	defer cleanup()

	_, err := client.Upsert("a.example.com", "A", "127.0.0.1", 30)
	require.NoError(t, err)
	_, err = client.Upsert("b.example.com", "AAAA", "::1", 30)
	require.NoError(t, err)

	records, err := client.List()
	require.NoError(t, err)
	assert.Len(t, records, 2)
}
