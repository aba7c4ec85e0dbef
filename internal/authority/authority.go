// Package authority implements the three lookup tiers (Static, Dynamic,
// Forward) and their per-zone composition (Split), the fall-through core
// of spec.md §4.2-4.5. The tiered-capability-interface shape is grounded
// in the teacher's internal/plugins.Plugin / PluginManager chain ("loop
// until one plugin reports the message handled"), generalised here from a
// chain of mutating plugins to a chain of read-only lookup tiers.
package authority

import (
	"context"

	"github.com/miekg/dns"
)

// Authority is a capability able to answer a DNS lookup within a zone. It
// corresponds to spec.md's "small capability interface lookup(name, type)
// -> LookupResult" design note (§9, Authority polymorphism).
type Authority interface {
	// Lookup returns the matching resource records for name/qtype, or a
	// typed error (errs.ErrNotFound demotes to the next tier; so does any
	// other error, per spec.md §4.5).
	Lookup(ctx context.Context, name string, qtype uint16) ([]dns.RR, error)
}

// ZoneType mirrors the original source's Authority::zone_type: every tier
// composed behind a Split Authority reports "Forward" to the catalog,
// which is the documented, intentionally-preserved quirk from spec.md §9
// ("possibly-buggy source behaviour... Leave as-is; document").
type ZoneType string

const ZoneTypeForward ZoneType = "Forward"

// errDemote reports whether err should cause the Split Authority to try
// the next tier. Per spec.md §4.5, any error demotes, not just NotFound.
func errDemote(err error) bool {
	return err != nil
}
