package authority

import (
	"context"
	"testing"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swandns/internal/errs"
)

func TestNewStaticRejectsInvalidIPLiteral(t *testing.T) {
	_, err := NewStatic("example.com", []StaticRecord{{Key: "@", Value: "not-an-ip"}})
	assert.Error(t, err)
}

func TestStaticLookupApexAndLabel(t *testing.T) {
	s, err := NewStatic("example.com", []StaticRecord{
		{Key: "@", Value: "127.0.0.2"},
		{Key: "www", Value: "127.0.0.1"},
	})
	require.NoError(t, err)

	rrs, err := s.Lookup(context.Background(), "www.example.com", dns.TypeA)
	require.NoError(t, err)
	require.Len(t, rrs, 1)
	assert.Equal(t, "127.0.0.1", rrs[0].(*dns.A).A.String())

	rrs, err = s.Lookup(context.Background(), "example.com", dns.TypeA)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.2", rrs[0].(*dns.A).A.String())
}

func TestStaticLookupMissReturnsNotFound(t *testing.T) {
	s, err := NewStatic("example.com", nil)
	require.NoError(t, err)

	_, err = s.Lookup(context.Background(), "missing.example.com", dns.TypeA)
	assert.Equal(t, errs.KindNotFound, errs.KindOf(err))
}
