// Package rpcproto implements the RPC Surface (spec.md C7): a
// length-prefixed framed protocol over a plain TCP stream, with message
// shapes bit-exact to spec.md §6's IDL. No example in the retrieved pack
// ships a wired, protoc-generated client/server pair for a DNS-adjacent
// RPC service (see SPEC_FULL.md §6) — hand-authoring fake generated stubs
// would fabricate a dependency rather than ground one, so this protocol
// is grounded directly in the teacher's own TCP-framing idiom (the same
// length-prefix-then-payload shape github.com/miekg/dns uses for its TCP
// transport) and its dashboard plugin's JSON zone-CRUD serialization.
package rpcproto

import "encoding/json"

// Frame is one length-prefixed RPC message: Service/Method identify the
// call, Payload carries the request or response body as raw JSON.
type Frame struct {
	Service string          `json:"service"`
	Method  string          `json:"method"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Error is the structured error shape returned in place of a normal
// payload on failure, mapping internal/errs.Kind to a wire tag (spec.md
// §7: "the RPC surface maps InvalidArgument to argument-invalid, NotFound
// to not-found, unexpected store failures to internal").
type Error struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

const (
	ServicePing    = "Ping"
	ServiceRecords = "Records"
)

const (
	MethodPing       = "ping"
	MethodFindUnique = "find_unique"
	MethodUpsert     = "upsert"
	MethodList       = "list"
	MethodDelete     = "delete"
)

// PingRequest/PingReply implement Ping.ping (spec.md §6): returns the
// literal "pong".
type PingRequest struct{}

type PingReply struct {
	Message string `json:"message"`
}

// UpsertRecordRequest is spec.md §6's UpsertRecordRequest, bit-exact.
type UpsertRecordRequest struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Value string `json:"value"`
	TTL   uint32 `json:"ttl"`
}

// FindUniqueRecordRequest is spec.md §6's FindUniqueRecordRequest.
type FindUniqueRecordRequest struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// RecordsQueryRequest is spec.md §6's RecordsQueryRequest: empty.
type RecordsQueryRequest struct{}

// DeleteRecordRequest mirrors FindUniqueRecordRequest's shape; spec.md §6
// specifies Delete(name,type) without naming the request type separately.
type DeleteRecordRequest struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// RecordReply is spec.md §6's RecordReply, bit-exact.
type RecordReply struct {
	Name      string `json:"name"`
	Type      string `json:"type"`
	Data      string `json:"data"`
	TTL       uint32 `json:"ttl"`
	CreatedAt int64  `json:"created_at"`
	UpdatedAt int64  `json:"updated_at"`
	Healthy   bool   `json:"healthy"`
}

// EmptyReply is spec.md §6's EmptyReply.
type EmptyReply struct{}

// ListEnd is sent as the final frame of a List server-stream, signalling
// clean stream termination (spec.md §4.7: "stream ends cleanly after the
// last record").
type ListEnd struct{}

const MethodListEnd = "list_end"
