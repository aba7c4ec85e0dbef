package authority

import (
	"context"
	"net"
	"testing"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swandns/internal/errs"
)

type stubAuthority struct {
	rrs []dns.RR
	err error
}

func (s stubAuthority) Lookup(context.Context, string, uint16) ([]dns.RR, error) {
	return s.rrs, s.err
}

func rrA(name, ip string) dns.RR {
	return &dns.A{Hdr: dns.RR_Header{Name: dns.Fqdn(name), Rrtype: dns.TypeA, Class: dns.ClassINET, Ttl: 30}, A: net.ParseIP(ip).To4()}
}

func TestSplitTriesStaticThenDynamicThenForward(t *testing.T) {
	split := &Split{
		Static:  stubAuthority{err: errs.ErrNotFound},
		Dynamic: stubAuthority{err: errs.ErrNotFound},
		Forward: stubAuthority{rrs: []dns.RR{rrA("example.com", "9.9.9.9")}},
	}

	rrs, err := split.Lookup(context.Background(), "example.com", dns.TypeA)
	require.NoError(t, err)
	assert.Len(t, rrs, 1)
}

func TestSplitDemotesOnAnyTierError(t *testing.T) {
	split := &Split{
		Static:  stubAuthority{err: errs.New(errs.KindTransient, "boom")},
		Dynamic: stubAuthority{err: errs.ErrNotFound},
		Forward: stubAuthority{err: errs.Wrap(errs.KindUpstream, "upstream down", nil)},
	}

	_, err := split.Lookup(context.Background(), "example.com", dns.TypeA)
	require.Error(t, err)
	assert.Equal(t, errs.KindUpstream, errs.KindOf(err))
}

func TestSplitStaticPrecedesDynamic(t *testing.T) {
	split := &Split{
		Static:  stubAuthority{rrs: []dns.RR{rrA("example.com", "1.1.1.1")}},
		Dynamic: stubAuthority{rrs: []dns.RR{rrA("example.com", "2.2.2.2")}},
		Forward: stubAuthority{err: errs.ErrNotFound},
	}

	rrs, err := split.Lookup(context.Background(), "example.com", dns.TypeA)
	require.NoError(t, err)
	require.Len(t, rrs, 1)
	a := rrs[0].(*dns.A)
	assert.Equal(t, "1.1.1.1", a.A.String())
}

func TestSplitUpdateRefused(t *testing.T) {
	split := &Split{}
	err := split.Update(context.Background())
	assert.Equal(t, errs.KindNotImplemented, errs.KindOf(err))
}
