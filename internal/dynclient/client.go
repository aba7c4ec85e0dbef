// Package dynclient implements the Dynamic Client (spec.md C8): the
// external collaborator that periodically resolves a local interface
// address and publishes it via the RPC Upsert call. It is specified only
// at its interface with the core (spec.md §4.8), but is built here so the
// client/server contract is exercised end to end.
package dynclient

import (
	"context"
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"

	"swandns/internal/config"
	"swandns/internal/rpcproto"
)

// upsertTTL is the fixed TTL the Dynamic Client publishes with, per
// spec.md §4.8.
const upsertTTL = 30

// minRetryAttempts is the floor spec.md §4.8 mandates: "at least 5
// attempts before the failure is surfaced and logged".
const minRetryAttempts = 5

// backoffCap bounds the capped fibonacci sequence (SPEC_FULL.md §4.8).
const backoffCap = 60 * time.Second

// Client runs one or more iterations of publishing configured records.
type Client struct {
	cfg *config.ClientConfig
	log *zap.SugaredLogger

	// backoffs persists one fibonacciBackoff per record name across
	// RunOnce iterations, so a record that degraded in a prior iteration
	// and is still failing keeps escalating instead of restarting at the
	// base delay every time Scheduler fires RunOnce again.
	backoffs map[string]*fibonacciBackoff
}

func New(cfg *config.ClientConfig, log *zap.SugaredLogger) *Client {
	return &Client{cfg: cfg, log: log, backoffs: make(map[string]*fibonacciBackoff)}
}

func (c *Client) backoffFor(name string) *fibonacciBackoff {
	b, ok := c.backoffs[name]
	if !ok {
		b = newFibonacciBackoff(backoffCap, 0.2)
		c.backoffs[name] = b
	}
	return b
}

// RunOnce publishes every configured record exactly once, returning the
// names that failed after exhausting retries.
func (c *Client) RunOnce(ctx context.Context) []string {
	var failed []string
	for _, rec := range c.cfg.Records {
		if err := c.publish(ctx, rec); err != nil {
			c.log.Warnw("dynclient: publish failed after retries", "name", rec.Name, "err", err)
			failed = append(failed, rec.Name)
		}
	}
	return failed
}

func (c *Client) publish(ctx context.Context, rec config.ClientRecordConfig) error {
	serverURL := rec.ServerURL
	if serverURL == "" {
		serverURL = c.cfg.DefaultServerURL
	}
	bind := rec.Bind
	if bind == "" {
		bind = c.cfg.DefaultBind
	}
	protocol := rec.Protocol
	if protocol == "" {
		protocol = c.cfg.DefaultProtocol
	}

	addr, typ, err := resolveInterfaceAddress(bind, protocol)
	if err != nil {
		return fmt.Errorf("dynclient: resolve %s: %w", bind, err)
	}

	client := rpcproto.NewClient(serverURL, 5*time.Second)
	backoff := c.backoffFor(rec.Name)

	var lastErr error
	for attempt := 1; attempt <= minRetryAttempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		_, err := client.Upsert(rec.Name, typ, addr, upsertTTL)
		if err == nil {
			backoff.reset()
			return nil
		}
		lastErr = err
		c.log.Infow("dynclient: upsert attempt failed, retrying", "name", rec.Name, "attempt", attempt, "err", err)

		if attempt == minRetryAttempts {
			break
		}
		select {
		case <-time.After(backoff.next()):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return lastErr
}

// resolveInterfaceAddress resolves the local address of the named
// interface (or, if bind parses as a literal IP, uses it directly),
// choosing A or AAAA based on the address family per spec.md §4.8.
func resolveInterfaceAddress(bind, protocol string) (addr, typ string, err error) {
	if ip := net.ParseIP(bind); ip != nil {
		return addressFromIP(ip, protocol)
	}

	iface, err := net.InterfaceByName(bind)
	if err != nil {
		return "", "", fmt.Errorf("interface %q: %w", bind, err)
	}
	addrs, err := iface.Addrs()
	if err != nil {
		return "", "", err
	}

	wantV6 := protocol == "ipv6"
	for _, a := range addrs {
		ipNet, ok := a.(*net.IPNet)
		if !ok {
			continue
		}
		ip := ipNet.IP
		isV4 := ip.To4() != nil
		if isV4 == !wantV6 {
			return addressFromIP(ip, protocol)
		}
	}
	return "", "", fmt.Errorf("interface %q has no %s address", bind, protocol)
}

func addressFromIP(ip net.IP, protocol string) (addr, typ string, err error) {
	if v4 := ip.To4(); v4 != nil && protocol != "ipv6" {
		return v4.String(), "A", nil
	}
	if ip.To16() != nil && protocol == "ipv6" {
		return ip.String(), "AAAA", nil
	}
	return "", "", fmt.Errorf("address %s does not match requested protocol %s", ip, protocol)
}
