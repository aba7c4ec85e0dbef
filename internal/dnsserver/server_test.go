package dnsserver

import (
	"context"
	"net"
	"testing"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swandns/internal/authority"
	"swandns/internal/errs"
)

type nxAuthority struct{}

func (nxAuthority) Lookup(context.Context, string, uint16) ([]dns.RR, error) {
	return nil, errs.ErrNotFound
}

type fixedAuthority struct {
	rrs []dns.RR
}

func (f fixedAuthority) Lookup(context.Context, string, uint16) ([]dns.RR, error) {
	return f.rrs, nil
}

func buildCatalog(t *testing.T) *authority.Catalog {
	t.Helper()
	static, err := authority.NewStatic("example.com", []authority.StaticRecord{
		{Key: "www", Value: "127.0.0.1"},
		{Key: "@", Value: "127.0.0.2"},
	})
	require.NoError(t, err)

	split := &authority.Split{
		Origin:  "example.com",
		Static:  static,
		Dynamic: nxAuthority{},
		Forward: nxAuthority{},
	}

	cat := authority.NewCatalog()
	cat.Add("example.com", split)
	return cat
}

func TestCatalogMatchLongestSuffix(t *testing.T) {
	cat := buildCatalog(t)

	assert.NotNil(t, cat.Match("www.example.com."))
	assert.NotNil(t, cat.Match("example.com."))
	assert.Nil(t, cat.Match("example.org."))

	sub := &authority.Split{Origin: "sub.example.com", Static: nxAuthority{}, Dynamic: nxAuthority{}, Forward: nxAuthority{}}
	cat.Add("sub.example.com", sub)
	assert.Same(t, sub, cat.Match("www.sub.example.com."))
	assert.NotSame(t, sub, cat.Match("www.example.com."))
}

func TestSplitPrecedenceStaticOverDynamic(t *testing.T) {
	cat := buildCatalog(t)
	split := cat.Match("www.example.com.")
	require.NotNil(t, split)
	split.Dynamic = fixedAuthority{rrs: []dns.RR{&dns.A{
		Hdr: dns.RR_Header{Name: "www.example.com.", Rrtype: dns.TypeA, Class: dns.ClassINET, Ttl: 30},
		A:   net.ParseIP("127.0.0.9").To4(),
	}}}

	rrs, err := split.Lookup(context.Background(), "www.example.com.", dns.TypeA)
	require.NoError(t, err)
	require.Len(t, rrs, 1)

	a, ok := rrs[0].(*dns.A)
	require.True(t, ok)
	assert.Equal(t, "127.0.0.1", a.A.String())
}

func TestSplitApexRecord(t *testing.T) {
	cat := buildCatalog(t)
	split := cat.Match("example.com.")
	require.NotNil(t, split)

	rrs, err := split.Lookup(context.Background(), "example.com.", dns.TypeA)
	require.NoError(t, err)
	require.Len(t, rrs, 1)
	a := rrs[0].(*dns.A)
	assert.Equal(t, "127.0.0.2", a.A.String())
}

func TestSplitZoneTypeAlwaysForward(t *testing.T) {
	cat := buildCatalog(t)
	split := cat.Match("example.com.")
	require.NotNil(t, split)
	assert.Equal(t, authority.ZoneTypeForward, split.ZoneType())
}
