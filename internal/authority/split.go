package authority

import (
	"context"

	"github.com/miekg/dns"
	"go.uber.org/zap"

	"swandns/internal/errs"
	"swandns/internal/metrics"
)

// Split is the Split Authority (spec.md §4.5): per zone, composes
// (Static, Dynamic, Forward) into one logical authority with fixed
// priority fall-through. It is grounded in the teacher's
// internal/plugins.PluginManager.ExecutePlugins loop ("try each in order
// until one reports handled"), generalised from mutating plugins to
// read-only lookup tiers.
//
// It is stateless per request: all mutation happens through the RPC
// surface (internal/store), never through this type.
//
// Log is optional: the zero value logs nothing, so existing callers that
// build a Split by struct literal (notably tests) keep working unchanged.
// Production wiring sets it via cmd/swandns-server/main.go.
type Split struct {
	Origin  string
	Static  Authority
	Dynamic Authority
	Forward Authority
	Log     *zap.SugaredLogger
}

func (s *Split) logger() *zap.SugaredLogger {
	if s.Log != nil {
		return s.Log
	}
	return zap.NewNop().Sugar()
}

// ZoneType always reports ZoneTypeForward, even when the zone has a
// populated Static/Dynamic tier. This is the documented, intentionally
// preserved quirk from spec.md §9: "consistent with the server catalog's
// routing but may surprise tests that assert zone type. Leave as-is."
func (s *Split) ZoneType() ZoneType { return ZoneTypeForward }

// IsAXFRAllowed is always false: AXFR is an explicit non-goal (spec.md §1).
func (s *Split) IsAXFRAllowed() bool { return false }

// Update refuses DNS-level UPDATE messages, per spec.md §4.5 and §1.
func (s *Split) Update(context.Context) error {
	return errs.ErrNotImplemented
}

// GetNSECRecords is explicitly unimplemented, per spec.md §4.4/§4.5.
func (s *Split) GetNSECRecords(context.Context) ([]dns.RR, error) {
	return nil, errs.ErrNotImplemented
}

// Lookup applies the fixed priority order: Static, then Dynamic, then
// Forward. Any error from a tier — not just NotFound — demotes to the
// next tier (spec.md §4.5: "the source demotes on any error, not just
// NXDOMAIN"). The Forward tier's result (including any error) is returned
// verbatim, since there is no further tier to fall through to.
func (s *Split) Lookup(ctx context.Context, name string, qtype uint16) ([]dns.RR, error) {
	if rrs, err := s.Static.Lookup(ctx, name, qtype); !errDemote(err) {
		metrics.QueryTierHits.WithLabelValues("static").Inc()
		return rrs, nil
	} else {
		s.logger().Debugw("split: static tier demoted", "origin", s.Origin, "name", name, "err", err)
	}

	if rrs, err := s.Dynamic.Lookup(ctx, name, qtype); !errDemote(err) {
		metrics.QueryTierHits.WithLabelValues("dynamic").Inc()
		return rrs, nil
	} else {
		s.logger().Debugw("split: dynamic tier demoted", "origin", s.Origin, "name", name, "err", err)
	}

	rrs, err := s.Forward.Lookup(ctx, name, qtype)
	if err != nil {
		s.logger().Debugw("split: forward tier exhausted", "origin", s.Origin, "name", name, "err", err)
		return nil, err
	}
	metrics.QueryTierHits.WithLabelValues("forward").Inc()
	return rrs, nil
}
