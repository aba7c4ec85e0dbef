package authority

import (
	"context"
	"fmt"
	"net"
	"strings"

	"github.com/miekg/dns"
	"go.uber.org/zap"

	"swandns/internal/errs"
)

// StaticRecord is one boot-time configured (key, value) pair of a
// ZoneSpec, rendered against the zone apex before being handed to Static.
type StaticRecord struct {
	Key   string // "@" for the apex, or a single label
	Value string // IP literal
}

// Static is the Static Authority (spec.md §4.2): a fixed, read-only record
// set built once at boot. It is grounded in the teacher's
// plugins/authoritative.Zone record map, trimmed to fixed-TTL, A/AAAA-only
// records. Several values configured for the same name are all kept, and
// Lookup returns every one whose type matches.
type Static struct {
	apex    string
	records map[string][]dns.RR // key: normalized fqdn, lower-case, no trailing dot
	log     *zap.SugaredLogger
}

// SetLogger wires a logger for this authority's decision points. Left
// unset, Lookup logs nothing.
func (s *Static) SetLogger(log *zap.SugaredLogger) {
	s.log = log
}

func (s *Static) logger() *zap.SugaredLogger {
	if s.log != nil {
		return s.log
	}
	return zap.NewNop().Sugar()
}

// staticTTL is the fixed TTL spec.md §4.6 mandates for statically
// configured answers.
const staticTTL = 30

// NewStatic builds a Static Authority for the given zone apex from its
// configured (key,value) pairs. Every key must render to a name strictly
// within the zone (spec.md §3 ZoneSpec invariant); malformed IP literals
// are rejected at construction since static configuration is parsed once,
// at boot.
func NewStatic(apex string, recs []StaticRecord) (*Static, error) {
	apex = strings.ToLower(strings.TrimSuffix(apex, "."))
	s := &Static{apex: apex, records: make(map[string][]dns.RR)}

	for _, r := range recs {
		name := renderKey(r.Key, apex)
		if name != apex && !strings.HasSuffix(name, "."+apex) {
			return nil, errs.New(errs.KindInvalidConfig, fmt.Sprintf("static record key %q does not resolve within zone %q", r.Key, apex))
		}

		ip := net.ParseIP(r.Value)
		if ip == nil {
			return nil, errs.New(errs.KindInvalidConfig, fmt.Sprintf("static record %q: %q is not a valid IP literal", name, r.Value))
		}

		var rr dns.RR
		fqdn := dns.Fqdn(name)
		if v4 := ip.To4(); v4 != nil {
			rr = &dns.A{
				Hdr: dns.RR_Header{Name: fqdn, Rrtype: dns.TypeA, Class: dns.ClassINET, Ttl: staticTTL},
				A:   v4,
			}
		} else {
			rr = &dns.AAAA{
				Hdr:  dns.RR_Header{Name: fqdn, Rrtype: dns.TypeAAAA, Class: dns.ClassINET, Ttl: staticTTL},
				AAAA: ip,
			}
		}
		s.records[name] = append(s.records[name], rr)
	}

	return s, nil
}

// renderKey implements spec.md §4.2: "@" renders to the zone apex; any
// other key renders to key + "." + apex.
func renderKey(key, apex string) string {
	if key == "@" {
		return apex
	}
	return key + "." + apex
}

// Lookup returns the configured records for name/qtype, or NotFound.
func (s *Static) Lookup(_ context.Context, name string, qtype uint16) ([]dns.RR, error) {
	name = strings.ToLower(strings.TrimSuffix(name, "."))

	rrs, ok := s.records[name]
	if !ok {
		s.logger().Debugw("static: no record for name", "apex", s.apex, "name", name)
		return nil, errs.ErrNotFound
	}

	matched := make([]dns.RR, 0, len(rrs))
	for _, rr := range rrs {
		if rr.Header().Rrtype == qtype {
			matched = append(matched, rr)
		}
	}
	if len(matched) == 0 {
		s.logger().Debugw("static: record exists but no qtype match", "apex", s.apex, "name", name, "qtype", qtype)
		return nil, errs.ErrNotFound
	}
	return matched, nil
}
