package authority

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/miekg/dns"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"swandns/internal/errs"
	"swandns/internal/metrics"
)

// Forward is the Forward Authority (spec.md §4.4): delegates unanswered
// queries to a configured list of upstream nameservers over UDP first,
// falling back to TCP on truncation or failure, then to the next
// configured upstream. This is the teacher's resolver.query multi-server
// retry shape (internal/resolver/resolver.go), minus the iterative
// root-to-leaf walk: spec.md caps forwarding at a single hop to the
// configured upstream list.
//
// In-flight identical (name,qtype) forwards are coalesced with
// singleflight.Group, grounded in the same package's use in the teacher's
// resolver plus its query_coalescer plugin. Successful responses are
// cached positively via forwardCache; negative caching is out of scope.
type Forward struct {
	upstreams []string // host:port, round-robin order
	client    *dns.Client
	tcp       *dns.Client
	timeout   time.Duration

	cache *forwardCache
	sf    singleflight.Group

	next uint64
	log  *zap.SugaredLogger
}

func NewForward(upstreams []string, timeout time.Duration) *Forward {
	return &Forward{
		upstreams: upstreams,
		client:    &dns.Client{Net: "udp", Timeout: timeout},
		tcp:       &dns.Client{Net: "tcp", Timeout: timeout},
		timeout:   timeout,
		cache:     newForwardCache(16, 2048, 5*time.Second, 300*time.Second),
	}
}

// SetLogger wires a logger for this authority's decision points (each
// upstream attempt and the cache hit/miss outcome). Left unset, Lookup
// and query log nothing.
func (f *Forward) SetLogger(log *zap.SugaredLogger) {
	f.log = log
}

func (f *Forward) logger() *zap.SugaredLogger {
	if f.log != nil {
		return f.log
	}
	return zap.NewNop().Sugar()
}

func (f *Forward) Lookup(ctx context.Context, name string, qtype uint16) ([]dns.RR, error) {
	if qtype != dns.TypeA && qtype != dns.TypeAAAA {
		return nil, errs.ErrNotImplemented
	}
	if len(f.upstreams) == 0 {
		return nil, errs.Wrap(errs.KindUpstream, "no upstreams configured", nil)
	}

	fqdn := dns.Fqdn(name)
	if answers, ok := f.cache.get(fqdn, qtype); ok {
		metrics.ForwardCacheHits.Inc()
		return answers, nil
	}
	metrics.ForwardCacheMisses.Inc()

	key := cacheKey(fqdn, qtype)
	v, err, _ := f.sf.Do(key, func() (interface{}, error) {
		return f.query(ctx, fqdn, qtype)
	})
	if err != nil {
		return nil, err
	}

	answers := v.([]dns.RR)
	f.cache.set(fqdn, qtype, answers)
	return answers, nil
}

// query round-robins across f.upstreams, trying UDP then TCP (on
// truncation or exchange failure) per upstream before moving to the next,
// the same per-attempt escalation as the teacher's resolver.query.
func (f *Forward) query(ctx context.Context, fqdn string, qtype uint16) ([]dns.RR, error) {
	msg := &dns.Msg{}
	msg.SetQuestion(fqdn, qtype)
	msg.RecursionDesired = true

	// lastErr keeps the Kind the branch that produced it actually
	// observed: a dial/exchange failure (the upstream was not reached) or
	// a non-NXDOMAIN error rcode (reached but failing) is KindUpstream ->
	// SERVFAIL at the DNS listener; a reached upstream's genuine
	// NXDOMAIN or an empty (NODATA) answer means the name is legitimately
	// absent (errs.ErrNotFound -> NXDOMAIN). Collapsing both into one
	// Kind at the end would make every exhausted Forward lookup answer
	// SERVFAIL, even for names the upstream correctly reports as absent.
	var lastErr error
	n := len(f.upstreams)
	for i := 0; i < n; i++ {
		upstream := f.upstreams[f.rotate(n)]

		resp, _, err := f.client.ExchangeContext(ctx, msg, upstream)
		if err != nil || resp == nil || resp.Truncated {
			resp, _, err = f.tcp.ExchangeContext(ctx, msg, upstream)
		}
		if err != nil {
			lastErr = errs.Wrap(errs.KindUpstream, fmt.Sprintf("upstream %s unreachable", upstream), err)
			f.logger().Debugw("forward: upstream unreachable", "upstream", upstream, "name", fqdn, "err", err)
			continue
		}
		switch resp.Rcode {
		case dns.RcodeSuccess:
			if len(resp.Answer) == 0 {
				lastErr = errs.ErrNotFound
				f.logger().Debugw("forward: upstream returned empty answer", "upstream", upstream, "name", fqdn)
				continue
			}
			return resp.Answer, nil
		case dns.RcodeNameError:
			lastErr = errs.ErrNotFound
			f.logger().Debugw("forward: upstream reports NXDOMAIN", "upstream", upstream, "name", fqdn)
			continue
		default:
			lastErr = errs.Wrap(errs.KindUpstream, fmt.Sprintf("upstream %s: %s", upstream, dns.RcodeToString[resp.Rcode]), nil)
			f.logger().Debugw("forward: upstream returned bad rcode", "upstream", upstream, "name", fqdn, "rcode", dns.RcodeToString[resp.Rcode])
			continue
		}
	}

	if lastErr == nil {
		lastErr = errs.New(errs.KindUpstream, "all upstreams exhausted")
	}
	return nil, lastErr
}

func (f *Forward) rotate(n int) int {
	idx := atomic.AddUint64(&f.next, 1) - 1
	return int(idx % uint64(n))
}
