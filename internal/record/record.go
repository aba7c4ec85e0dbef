// Package record defines the Record entity shared by the Record Store, the
// authorities, and the RPC surface.
package record

import (
	"net"
	"strings"
	"time"

	"swandns/internal/errs"
)

// Type is the DNS record type this core supports.
type Type string

const (
	TypeA    Type = "A"
	TypeAAAA Type = "AAAA"
)

// ParseType validates a textual record type, rejecting everything but A and
// AAAA per spec.md §1 non-goals.
func ParseType(s string) (Type, error) {
	switch strings.ToUpper(s) {
	case string(TypeA):
		return TypeA, nil
	case string(TypeAAAA):
		return TypeAAAA, nil
	default:
		return "", errs.Wrap(errs.KindNotImplemented, "unsupported record type", errs.New(errs.KindInvalidArgument, s))
	}
}

// Record is the persisted entity: a (name,type) keyed mapping to an IP
// literal with a TTL and bookkeeping timestamps.
type Record struct {
	Name      string
	Type      Type
	Data      string
	TTL       uint32
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Key identifies a Record by its primary key.
type Key struct {
	Name string
	Type Type
}

// NormalizeName lower-cases and strips a single trailing dot, matching the
// "record rendering quirk" spec.md §9 calls out: lookup and upsert paths
// must normalise identically or a trailing-dot mismatch silently produces
// NotFound.
func NormalizeName(name string) string {
	name = strings.ToLower(name)
	return strings.TrimSuffix(name, ".")
}

// ValidateData checks that data is a valid IP literal of the address family
// implied by typ. This is the validation spec.md §9 flags as missing from
// the source's RPC upsert path and requires as a fix.
func ValidateData(typ Type, data string) error {
	ip := net.ParseIP(data)
	if ip == nil {
		return errs.New(errs.KindInvalidArgument, "data is not a valid IP literal: "+data)
	}
	switch typ {
	case TypeA:
		if ip.To4() == nil {
			return errs.New(errs.KindInvalidArgument, "data is not an IPv4 literal for type A: "+data)
		}
	case TypeAAAA:
		if ip.To4() != nil || ip.To16() == nil {
			return errs.New(errs.KindInvalidArgument, "data is not an IPv6 literal for type AAAA: "+data)
		}
	default:
		return errs.New(errs.KindNotImplemented, "unsupported record type")
	}
	return nil
}

// Healthy is the derived, non-persisted attribute: updated no more than 7
// minutes before now.
func (r Record) Healthy(now time.Time) bool {
	return now.Sub(r.UpdatedAt) <= 7*time.Minute
}
