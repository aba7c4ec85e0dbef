package dynclient

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"swandns/internal/config"
	"swandns/internal/errs"
	"swandns/internal/record"
	"swandns/internal/rpcproto"
	"swandns/internal/workerpool"
)

type memStore struct {
	records map[record.Key]record.Record
}

func (m *memStore) Upsert(name string, typ record.Type, data string, ttl uint32) (record.Record, error) {
	if err := record.ValidateData(typ, data); err != nil {
		return record.Record{}, err
	}
	key := record.Key{Name: record.NormalizeName(name), Type: typ}
	now := time.Now().UTC()
	rec := m.records[key]
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.Name, rec.Type, rec.Data, rec.TTL, rec.UpdatedAt = key.Name, typ, data, ttl, now
	m.records[key] = rec
	return rec, nil
}

func (m *memStore) FindUnique(name string, typ record.Type) (record.Record, error) {
	rec, ok := m.records[record.Key{Name: record.NormalizeName(name), Type: typ}]
	if !ok {
		return record.Record{}, errs.ErrNotFound
	}
	return rec, nil
}

func (m *memStore) List() []record.Record {
	out := make([]record.Record, 0, len(m.records))
	for _, rec := range m.records {
		out = append(out, rec)
	}
	return out
}

func (m *memStore) Delete(name string, typ record.Type) error {
	delete(m.records, record.Key{Name: record.NormalizeName(name), Type: typ})
	return nil
}

func startServer(t *testing.T) string {
	t.Helper()
	store := &memStore{records: make(map[record.Key]record.Record)}
	pool := workerpool.New(2, 2)
	pool.Start()
	srv := rpcproto.NewServer(store, zap.NewNop().Sugar(), pool)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	go srv.Serve(addr)
	t.Cleanup(func() { srv.Close(); pool.Stop() })
	time.Sleep(20 * time.Millisecond)
	return addr
}

func TestRunOncePublishesLoopbackAddress(t *testing.T) {
	addr := startServer(t)

	cfg := &config.ClientConfig{
		DefaultServerURL: addr,
		DefaultProtocol:  "ipv4",
		Records: []config.ClientRecordConfig{
			{Name: "host.example.com", Bind: "127.0.0.1"},
		},
	}
	client := New(cfg, zap.NewNop().Sugar())

	failed := client.RunOnce(context.Background())
	assert.Empty(t, failed)
}

func TestFibonacciBackoffCapsAndAdvances(t *testing.T) {
	b := newFibonacciBackoff(5*time.Second, 0)
	first := b.next()
	second := b.next()
	third := b.next()

	assert.Equal(t, time.Second, first)
	assert.Equal(t, time.Second, second)
	assert.LessOrEqual(t, third, 5*time.Second)
}
