package authority

import (
	"testing"
	"time"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
)

func TestForwardCacheClampsTTLAndExpires(t *testing.T) {
	c := newForwardCache(1, 10, 50*time.Millisecond, time.Second)
	rr := &dns.A{Hdr: dns.RR_Header{Name: "example.com.", Rrtype: dns.TypeA, Ttl: 1}}

	c.set("example.com.", dns.TypeA, []dns.RR{rr})

	answers, ok := c.get("example.com.", dns.TypeA)
	assert.True(t, ok)
	assert.Len(t, answers, 1)

	time.Sleep(80 * time.Millisecond)
	_, ok = c.get("example.com.", dns.TypeA)
	assert.False(t, ok)
}

func TestForwardCacheEvictsOldestOnOverflow(t *testing.T) {
	c := newForwardCache(1, 2, time.Minute, time.Hour)

	for i := 0; i < 3; i++ {
		name := dns.Fqdn(string(rune('a' + i)) + ".example.com")
		rr := &dns.A{Hdr: dns.RR_Header{Name: name, Rrtype: dns.TypeA, Ttl: 30}}
		c.set(name, dns.TypeA, []dns.RR{rr})
	}

	_, okFirst := c.get(dns.Fqdn("a.example.com"), dns.TypeA)
	_, okLast := c.get(dns.Fqdn("c.example.com"), dns.TypeA)
	assert.False(t, okFirst)
	assert.True(t, okLast)
}
