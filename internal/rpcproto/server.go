package rpcproto

import (
	"encoding/json"
	"net"
	"time"

	"go.uber.org/zap"

	"swandns/internal/errs"
	"swandns/internal/metrics"
	"swandns/internal/record"
	"swandns/internal/workerpool"
)

// RecordStore is the subset of internal/store.Store the RPC surface
// needs.
type RecordStore interface {
	Upsert(name string, typ record.Type, data string, ttl uint32) (record.Record, error)
	FindUnique(name string, typ record.Type) (record.Record, error)
	List() []record.Record
	Delete(name string, typ record.Type) error
}

// Server accepts TCP connections and dispatches framed RPC requests
// against a RecordStore. Connections are dispatched through a
// workerpool.WorkerPool so one slow client cannot starve the others;
// requests within a connection are still handled one at a time, in
// arrival order.
type Server struct {
	store RecordStore
	log   *zap.SugaredLogger
	pool  *workerpool.WorkerPool

	listener net.Listener
}

func NewServer(store RecordStore, log *zap.SugaredLogger, pool *workerpool.WorkerPool) *Server {
	return &Server{store: store, log: log, pool: pool}
}

// Serve binds addr and accepts connections until the listener is closed.
func (s *Server) Serve(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return errs.Wrap(errs.KindBindFailed, "rpcproto: listen "+addr, err)
	}
	s.listener = ln

	for {
		conn, err := ln.Accept()
		if err != nil {
			return err
		}
		s.pool.Submit(connJob{conn: conn, server: s})
	}
}

func (s *Server) Close() error {
	if s.listener == nil {
		return nil
	}
	return s.listener.Close()
}

// connJob implements workerpool.Job: one accepted connection, dispatched
// to a pool worker so the accept loop never blocks on a slow client.
type connJob struct {
	conn   net.Conn
	server *Server
}

func (j connJob) Execute() {
	defer j.conn.Close()
	j.server.handleConn(j.conn)
}

func (s *Server) handleConn(conn net.Conn) {
	for {
		req, err := ReadFrame(conn)
		if err != nil {
			return
		}

		resp := s.dispatch(req)
		if err := WriteFrame(conn, resp); err != nil {
			s.log.Warnw("rpcproto: write response failed", "err", err)
			return
		}

		if req.Service == ServiceRecords && req.Method == MethodList {
			s.streamList(conn)
		}
	}
}

func (s *Server) dispatch(req Frame) Frame {
	resp := s.dispatchMethod(req)

	outcome := "ok"
	if isErrorFrame(resp) {
		outcome = "error"
	}
	metrics.RPCRequestsTotal.WithLabelValues(req.Method, outcome).Inc()

	return resp
}

func (s *Server) dispatchMethod(req Frame) Frame {
	switch {
	case req.Service == ServicePing && req.Method == MethodPing:
		return s.handlePing()
	case req.Service == ServiceRecords && req.Method == MethodUpsert:
		return s.handleUpsert(req)
	case req.Service == ServiceRecords && req.Method == MethodFindUnique:
		return s.handleFindUnique(req)
	case req.Service == ServiceRecords && req.Method == MethodDelete:
		return s.handleDelete(req)
	case req.Service == ServiceRecords && req.Method == MethodList:
		// Acknowledged here; the record stream itself follows via
		// streamList once this response frame is written.
		return Frame{Service: req.Service, Method: req.Method}
	default:
		return errorFrame(req, errs.New(errs.KindNotImplemented, "unknown method "+req.Service+"."+req.Method))
	}
}

// isErrorFrame reports whether resp carries an Error payload: every
// success payload shape (RecordReply, PingReply, EmptyReply, a List
// acknowledgement) omits the "kind" field Error alone sets.
func isErrorFrame(resp Frame) bool {
	var probe struct {
		Kind string `json:"kind"`
	}
	if err := json.Unmarshal(resp.Payload, &probe); err != nil {
		return false
	}
	return probe.Kind != ""
}

func (s *Server) handlePing() Frame {
	payload, _ := encodePayload(PingReply{Message: "pong"})
	return Frame{Service: ServicePing, Method: MethodPing, Payload: payload}
}

func (s *Server) handleUpsert(req Frame) Frame {
	var r UpsertRecordRequest
	if err := json.Unmarshal(req.Payload, &r); err != nil {
		return errorFrame(req, errs.New(errs.KindInvalidArgument, "malformed request"))
	}

	typ, err := record.ParseType(r.Type)
	if err != nil {
		return errorFrame(req, err)
	}

	rec, err := s.store.Upsert(r.Name, typ, r.Value, r.TTL)
	if err != nil {
		return errorFrame(req, err)
	}

	payload, _ := encodePayload(toRecordReply(rec))
	return Frame{Service: req.Service, Method: req.Method, Payload: payload}
}

func (s *Server) handleFindUnique(req Frame) Frame {
	var r FindUniqueRecordRequest
	if err := json.Unmarshal(req.Payload, &r); err != nil {
		return errorFrame(req, errs.New(errs.KindInvalidArgument, "malformed request"))
	}

	typ, err := record.ParseType(r.Type)
	if err != nil {
		return errorFrame(req, err)
	}

	rec, err := s.store.FindUnique(r.Name, typ)
	if err != nil {
		return errorFrame(req, err)
	}

	payload, _ := encodePayload(toRecordReply(rec))
	return Frame{Service: req.Service, Method: req.Method, Payload: payload}
}

func (s *Server) handleDelete(req Frame) Frame {
	var r DeleteRecordRequest
	if err := json.Unmarshal(req.Payload, &r); err != nil {
		return errorFrame(req, errs.New(errs.KindInvalidArgument, "malformed request"))
	}

	typ, err := record.ParseType(r.Type)
	if err != nil {
		return errorFrame(req, err)
	}

	// Delete succeeds whether or not the row existed (spec.md §4.7); store
	// errors here are only ever I/O failures, reported with the "transient"
	// wire tag rather than surfaced raw.
	if err := s.store.Delete(r.Name, typ); err != nil {
		return errorFrame(req, errs.Wrap(errs.KindTransient, "delete failed", err))
	}

	payload, _ := encodePayload(EmptyReply{})
	return Frame{Service: req.Service, Method: req.Method, Payload: payload}
}

// streamList pushes a snapshot of the store, taken at call-acceptance
// time, through a small buffered channel fed by a producer goroutine —
// the design spec.md §9 calls for explicitly ("Streaming List... a
// producer task pushing into a bounded channel... the producer blocks on
// a slow consumer"). It ends the stream with a list_end frame.
func (s *Server) streamList(conn net.Conn) {
	records := s.store.List()

	ch := make(chan record.Record, 8)
	done := make(chan struct{})
	go func() {
		defer close(ch)
		for _, rec := range records {
			select {
			case ch <- rec:
			case <-done:
				return
			}
		}
	}()

	for rec := range ch {
		payload, _ := encodePayload(toRecordReply(rec))
		frame := Frame{Service: ServiceRecords, Method: MethodList, Payload: payload}
		if err := WriteFrame(conn, frame); err != nil {
			close(done)
			return
		}
	}

	endPayload, _ := encodePayload(ListEnd{})
	_ = WriteFrame(conn, Frame{Service: ServiceRecords, Method: MethodListEnd, Payload: endPayload})
}

func toRecordReply(rec record.Record) RecordReply {
	now := time.Now().UTC()
	return RecordReply{
		Name:      rec.Name,
		Type:      string(rec.Type),
		Data:      rec.Data,
		TTL:       rec.TTL,
		CreatedAt: rec.CreatedAt.Unix(),
		UpdatedAt: rec.UpdatedAt.Unix(),
		Healthy:   rec.Healthy(now),
	}
}

// errorFrame maps a store/validation error into the wire Error shape
// (spec.md §7: InvalidArgument -> argument-invalid, NotFound -> not-found,
// unexpected store failures -> internal). It never panics on a store
// error — the "required fix" spec.md §9 flags against the source's
// unconditional panics on upsert/delete/list.
func errorFrame(req Frame, err error) Frame {
	kind := errs.KindOf(err)
	tag := "internal"
	switch kind {
	case errs.KindInvalidArgument:
		tag = "argument-invalid"
	case errs.KindNotFound:
		tag = "not-found"
	case errs.KindNotImplemented:
		tag = "not-implemented"
	case errs.KindTransient:
		tag = "transient"
	case errs.KindUpstream:
		tag = "upstream"
	}
	payload, _ := encodePayload(Error{Kind: tag, Message: err.Error()})
	return Frame{Service: req.Service, Method: req.Method, Payload: payload}
}
