package rpcproto

import (
	"encoding/json"
	"fmt"
	"net"
	"time"

	"swandns/internal/errs"
)

// Client is a thin synchronous client for the framed RPC protocol, used
// by the Dynamic Client (C8) to call Upsert against the server.
type Client struct {
	addr    string
	timeout time.Duration
}

func NewClient(addr string, timeout time.Duration) *Client {
	return &Client{addr: addr, timeout: timeout}
}

// call opens a fresh connection, writes one request frame, and reads back
// one response frame. The RPC surface does not specify connection reuse,
// and a short-lived connection per call keeps the client's retry logic
// (internal/dynclient) simple: a failed call never leaves a stale
// connection behind.
func (c *Client) call(service, method string, reqPayload interface{}) (Frame, error) {
	conn, err := net.DialTimeout("tcp", c.addr, c.timeout)
	if err != nil {
		return Frame{}, errs.Wrap(errs.KindTransient, "rpcproto: dial "+c.addr, err)
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(c.timeout))

	payload, err := encodePayload(reqPayload)
	if err != nil {
		return Frame{}, err
	}

	if err := WriteFrame(conn, Frame{Service: service, Method: method, Payload: payload}); err != nil {
		return Frame{}, errs.Wrap(errs.KindTransient, "rpcproto: write request", err)
	}

	resp, err := ReadFrame(conn)
	if err != nil {
		return Frame{}, errs.Wrap(errs.KindTransient, "rpcproto: read response", err)
	}
	return resp, nil
}

// Ping calls Ping.ping and expects the literal "pong".
func (c *Client) Ping() error {
	resp, err := c.call(ServicePing, MethodPing, PingRequest{})
	if err != nil {
		return err
	}
	var reply PingReply
	if err := json.Unmarshal(resp.Payload, &reply); err != nil {
		return fmt.Errorf("rpcproto: decode ping reply: %w", err)
	}
	if reply.Message != "pong" {
		return fmt.Errorf("rpcproto: unexpected ping reply %q", reply.Message)
	}
	return nil
}

// Upsert calls Records.upsert.
func (c *Client) Upsert(name, typ, value string, ttl uint32) (RecordReply, error) {
	resp, err := c.call(ServiceRecords, MethodUpsert, UpsertRecordRequest{Name: name, Type: typ, Value: value, TTL: ttl})
	if err != nil {
		return RecordReply{}, err
	}
	return decodeRecordOrError(resp)
}

// FindUnique calls Records.find_unique.
func (c *Client) FindUnique(name, typ string) (RecordReply, error) {
	resp, err := c.call(ServiceRecords, MethodFindUnique, FindUniqueRecordRequest{Name: name, Type: typ})
	if err != nil {
		return RecordReply{}, err
	}
	return decodeRecordOrError(resp)
}

// Delete calls Records.delete.
func (c *Client) Delete(name, typ string) error {
	resp, err := c.call(ServiceRecords, MethodDelete, DeleteRecordRequest{Name: name, Type: typ})
	if err != nil {
		return err
	}
	if wireErr, ok := decodeError(resp); ok {
		return fmt.Errorf("rpcproto: delete: %s: %s", wireErr.Kind, wireErr.Message)
	}
	return nil
}

// List calls Records.list and drains the server-pushed stream, returning
// every record present at call-acceptance time.
func (c *Client) List() ([]RecordReply, error) {
	conn, err := net.DialTimeout("tcp", c.addr, c.timeout)
	if err != nil {
		return nil, errs.Wrap(errs.KindTransient, "rpcproto: dial "+c.addr, err)
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(c.timeout))

	payload, _ := encodePayload(RecordsQueryRequest{})
	if err := WriteFrame(conn, Frame{Service: ServiceRecords, Method: MethodList, Payload: payload}); err != nil {
		return nil, errs.Wrap(errs.KindTransient, "rpcproto: write request", err)
	}

	// First frame acknowledges the call; subsequent frames are the
	// streamed records, terminated by a list_end frame.
	if _, err := ReadFrame(conn); err != nil {
		return nil, errs.Wrap(errs.KindTransient, "rpcproto: read ack", err)
	}

	var out []RecordReply
	for {
		frame, err := ReadFrame(conn)
		if err != nil {
			return nil, errs.Wrap(errs.KindTransient, "rpcproto: read stream", err)
		}
		if frame.Method == MethodListEnd {
			return out, nil
		}
		var rec RecordReply
		if err := json.Unmarshal(frame.Payload, &rec); err != nil {
			return nil, fmt.Errorf("rpcproto: decode record: %w", err)
		}
		out = append(out, rec)
	}
}

func decodeRecordOrError(resp Frame) (RecordReply, error) {
	if wireErr, ok := decodeError(resp); ok {
		return RecordReply{}, fmt.Errorf("rpcproto: %s: %s", wireErr.Kind, wireErr.Message)
	}
	var rec RecordReply
	if err := json.Unmarshal(resp.Payload, &rec); err != nil {
		return RecordReply{}, fmt.Errorf("rpcproto: decode record: %w", err)
	}
	return rec, nil
}

// decodeError attempts to interpret resp.Payload as a wire Error. Since
// both replies and errors are untagged JSON objects, it treats the
// presence of a non-empty "kind" field as the discriminator.
func decodeError(resp Frame) (Error, bool) {
	var probe struct {
		Kind string `json:"kind"`
	}
	if err := json.Unmarshal(resp.Payload, &probe); err != nil || probe.Kind == "" {
		return Error{}, false
	}
	var wireErr Error
	json.Unmarshal(resp.Payload, &wireErr)
	return wireErr, true
}
