package store

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swandns/internal/errs"
	"swandns/internal/record"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dir, err := os.MkdirTemp("", "swandns-store-*")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })

	s, err := Open(dir)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestUpsertThenFindUnique(t *testing.T) {
	s := openTestStore(t)

	rec, err := s.Upsert("foo.example.com", record.TypeA, "127.0.0.3", 30)
	require.NoError(t, err)
	assert.Equal(t, "foo.example.com", rec.Name)
	assert.True(t, rec.Healthy(time.Now().UTC()))

	found, err := s.FindUnique("foo.example.com", record.TypeA)
	require.NoError(t, err)
	assert.Equal(t, rec.Data, found.Data)
	assert.Equal(t, rec.TTL, found.TTL)
}

func TestUpsertRejectsMismatchedAddressFamily(t *testing.T) {
	s := openTestStore(t)

	_, err := s.Upsert("example.com", record.TypeA, "::1", 30)
	require.Error(t, err)
	assert.Equal(t, errs.KindInvalidArgument, errs.KindOf(err))
}

func TestUpsertIsIdempotentOnKey(t *testing.T) {
	s := openTestStore(t)

	first, err := s.Upsert("example.com", record.TypeAAAA, "::1", 30)
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)

	second, err := s.Upsert("example.com", record.TypeAAAA, "::1", 30)
	require.NoError(t, err)

	assert.Equal(t, first.CreatedAt, second.CreatedAt)
	assert.True(t, !second.UpdatedAt.Before(first.UpdatedAt))
}

func TestDeleteIsIdempotent(t *testing.T) {
	s := openTestStore(t)

	_, err := s.Upsert("example.com", record.TypeA, "127.0.0.1", 30)
	require.NoError(t, err)

	require.NoError(t, s.Delete("example.com", record.TypeA))
	_, err = s.FindUnique("example.com", record.TypeA)
	assert.ErrorIs(t, err, errs.ErrNotFound)

	require.NoError(t, s.Delete("example.com", record.TypeA))
}

func TestListReflectsDeletes(t *testing.T) {
	s := openTestStore(t)

	_, err := s.Upsert("example.com", record.TypeA, "127.0.0.1", 30)
	require.NoError(t, err)
	_, err = s.Upsert("example.com", record.TypeAAAA, "::1", 30)
	require.NoError(t, err)

	assert.Len(t, s.List(), 2)

	require.NoError(t, s.Delete("example.com", record.TypeA))
	assert.Len(t, s.List(), 1)
}

func TestNameNormalizationMatchesOnTrailingDot(t *testing.T) {
	s := openTestStore(t)

	_, err := s.Upsert("Example.com.", record.TypeA, "127.0.0.1", 30)
	require.NoError(t, err)

	_, err = s.FindUnique("example.com", record.TypeA)
	require.NoError(t, err)
}

func TestReopenReloadsFromDisk(t *testing.T) {
	dir, err := os.MkdirTemp("", "swandns-store-reopen-*")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })

	s1, err := Open(dir)
	require.NoError(t, err)
	_, err = s1.Upsert("example.com", record.TypeA, "127.0.0.1", 30)
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	s2, err := Open(dir)
	require.NoError(t, err)
	defer s2.Close()

	rec, err := s2.FindUnique("example.com", record.TypeA)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1", rec.Data)
}
