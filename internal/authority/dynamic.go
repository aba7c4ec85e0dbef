package authority

import (
	"context"
	"net"
	"strings"

	"github.com/miekg/dns"
	"go.uber.org/zap"

	"swandns/internal/errs"
	"swandns/internal/record"
)

// RecordFinder is the subset of the Record Store the Dynamic Authority
// needs. Satisfied by *store.Store.
type RecordFinder interface {
	FindUnique(name string, typ record.Type) (record.Record, error)
}

// Dynamic is the Dynamic Authority (spec.md §4.3): a thin adapter from the
// Record Store into the Authority contract. It supports only A/AAAA and
// serves a single answer per lookup, matching the teacher's
// plugins/authoritative single-RR-per-query answer shape for this record
// kind.
type Dynamic struct {
	store RecordFinder
	log   *zap.SugaredLogger
}

func NewDynamic(store RecordFinder) *Dynamic {
	return &Dynamic{store: store}
}

// SetLogger wires a logger for this authority's decision points. Left
// unset, Lookup logs nothing.
func (d *Dynamic) SetLogger(log *zap.SugaredLogger) {
	d.log = log
}

func (d *Dynamic) logger() *zap.SugaredLogger {
	if d.log != nil {
		return d.log
	}
	return zap.NewNop().Sugar()
}

func (d *Dynamic) Lookup(_ context.Context, name string, qtype uint16) ([]dns.RR, error) {
	var typ record.Type
	switch qtype {
	case dns.TypeA:
		typ = record.TypeA
	case dns.TypeAAAA:
		typ = record.TypeAAAA
	default:
		return nil, errs.ErrNotImplemented
	}

	rec, err := d.store.FindUnique(record.NormalizeName(name), typ)
	if err != nil {
		d.logger().Debugw("dynamic: store miss", "name", name, "type", typ, "err", err)
		return nil, err
	}

	fqdn := dns.Fqdn(strings.TrimSuffix(name, "."))
	ip := net.ParseIP(rec.Data)
	var rr dns.RR
	switch typ {
	case record.TypeA:
		rr = &dns.A{
			Hdr: dns.RR_Header{Name: fqdn, Rrtype: dns.TypeA, Class: dns.ClassINET, Ttl: rec.TTL},
			A:   ip.To4(),
		}
	case record.TypeAAAA:
		rr = &dns.AAAA{
			Hdr:  dns.RR_Header{Name: fqdn, Rrtype: dns.TypeAAAA, Class: dns.ClassINET, Ttl: rec.TTL},
			AAAA: ip.To16(),
		}
	}
	return []dns.RR{rr}, nil
}
