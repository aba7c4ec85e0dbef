// Package dnsserver implements the Zone Catalog + DNS Listener (spec.md
// C6): UDP and TCP *dns.Server bound to the same address, exactly as the
// teacher's main.go does it (net.ListenPacket("udp", ...) /
// net.Listen("tcp", ...), one dns.Server per transport, a sync.WaitGroup
// joined on shutdown). Each accepted request is dispatched through
// internal/workerpool (adapted from the teacher's root worker_pool.go) so
// the listener's goroutine never blocks past the bounded worker count.
package dnsserver

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/miekg/dns"
	"go.uber.org/zap"

	"swandns/internal/authority"
	"swandns/internal/errs"
	"swandns/internal/metrics"
	"swandns/internal/workerpool"
)

// streamRequestTimeout is the per-stream-request deadline spec.md §4.6
// and §5 mandate.
const streamRequestTimeout = 3 * time.Second

// Server is the DNS listener: it binds UDP and TCP on the same
// address:port and answers queries by routing them through a Catalog of
// Split Authorities.
type Server struct {
	catalog *authority.Catalog
	pool    *workerpool.WorkerPool
	log     *zap.SugaredLogger

	udpServer *dns.Server
	tcpServer *dns.Server
	wg        sync.WaitGroup
}

func New(catalog *authority.Catalog, pool *workerpool.WorkerPool, log *zap.SugaredLogger) *Server {
	return &Server{catalog: catalog, pool: pool, log: log}
}

// ListenAndServe binds addr on both UDP and TCP and serves until Shutdown
// is called or a fatal bind error occurs, matching spec.md §4.6's failure
// semantics: transport-level errors on an individual request never
// terminate the server, only a fatal bind failure or shutdown does.
func (s *Server) ListenAndServe(addr string) error {
	mux := dns.NewServeMux()
	mux.HandleFunc(".", s.handleRequest)

	udpConn, err := net.ListenPacket("udp", addr)
	if err != nil {
		return err
	}
	tcpListener, err := net.Listen("tcp", addr)
	if err != nil {
		udpConn.Close()
		return err
	}

	s.udpServer = &dns.Server{PacketConn: udpConn, Handler: mux}
	s.tcpServer = &dns.Server{Listener: tcpListener, Handler: mux}

	errCh := make(chan error, 2)
	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		errCh <- s.udpServer.ActivateAndServe()
	}()
	go func() {
		defer s.wg.Done()
		errCh <- s.tcpServer.ActivateAndServe()
	}()

	return <-errCh
}

// Shutdown closes both listeners and waits for the serve goroutines to
// return, within the bounded drain window the caller's context enforces.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.udpServer != nil {
		s.udpServer.ShutdownContext(ctx)
	}
	if s.tcpServer != nil {
		s.tcpServer.ShutdownContext(ctx)
	}
	s.wg.Wait()
	return nil
}

// handleRequest is the dns.Handler entry point. It dispatches the actual
// work through the worker pool so this goroutine (owned by miekg/dns's
// accept loop) never blocks past the bounded worker count.
func (s *Server) handleRequest(w dns.ResponseWriter, r *dns.Msg) {
	transport := "udp"
	if _, ok := w.RemoteAddr().(*net.TCPAddr); ok {
		transport = "tcp"
	}
	metrics.QueriesTotal.WithLabelValues(transport).Inc()

	job := requestJob{server: s, w: w, r: r, transport: transport}
	if !s.pool.Submit(job) {
		// Pool stopped; refuse rather than hang the client.
		s.writeRefused(w, r)
	}
}

type requestJob struct {
	server    *Server
	w         dns.ResponseWriter
	r         *dns.Msg
	transport string
}

func (j requestJob) Execute() {
	ctx := context.Background()
	if j.transport == "tcp" {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, streamRequestTimeout)
		defer cancel()
	}
	j.server.answer(ctx, j.w, j.r)
}

func (s *Server) answer(ctx context.Context, w dns.ResponseWriter, r *dns.Msg) {
	if r.Opcode == dns.OpcodeUpdate {
		s.writeRcode(w, r, dns.RcodeNotImplemented)
		return
	}
	if len(r.Question) != 1 {
		s.writeRefused(w, r)
		return
	}

	q := r.Question[0]
	split := s.catalog.Match(q.Name)
	if split == nil {
		s.log.Debugw("dnsserver: no zone matched, refusing", "name", q.Name)
		s.writeRefused(w, r)
		return
	}

	rrs, err := split.Lookup(ctx, q.Name, q.Qtype)
	msg := new(dns.Msg)
	msg.SetReply(r)
	msg.Authoritative = true

	if err != nil {
		// spec.md §7: fall-through exhaustion maps to SERVFAIL on an
		// Upstream error (no upstream reached, none configured, or an
		// upstream answering with a failing rcode) or an expired request
		// deadline, and to NXDOMAIN otherwise (the name is absent from
		// every tier).
		code := dns.RcodeNameError
		if errs.KindOf(err) == errs.KindUpstream || ctx.Err() != nil {
			code = dns.RcodeServerFailure
		}
		msg.Rcode = code
		s.log.Debugw("dnsserver: query fell through every tier", "name", q.Name, "qtype", q.Qtype, "rcode", dns.RcodeToString[code], "err", err)
		metrics.ResponseCodes.WithLabelValues(dns.RcodeToString[code]).Inc()
		w.WriteMsg(msg)
		return
	}

	msg.Answer = rrs
	metrics.ResponseCodes.WithLabelValues(dns.RcodeToString[dns.RcodeSuccess]).Inc()
	w.WriteMsg(msg)
}

func (s *Server) writeRefused(w dns.ResponseWriter, r *dns.Msg) {
	s.writeRcode(w, r, dns.RcodeRefused)
}

func (s *Server) writeRcode(w dns.ResponseWriter, r *dns.Msg, rcode int) {
	msg := new(dns.Msg)
	msg.SetReply(r)
	msg.Rcode = rcode
	metrics.ResponseCodes.WithLabelValues(dns.RcodeToString[rcode]).Inc()
	w.WriteMsg(msg)
}
