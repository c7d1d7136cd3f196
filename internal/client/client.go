// Package client talks to a hexstore server over TCP.
package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/roach88/hexstore/internal/protocol"
)

// ErrUnexpectedReply means the server answered with the wrong packet
// count or type.
var ErrUnexpectedReply = errors.New("client: unexpected reply")

// ResponseError is an ErrorResponse returned by the server.
type ResponseError struct {
	Code    uint16
	Message string
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("server error %d: %s", e.Code, e.Message)
}

// Client is a single connection to a server.
//
// Thread-safety: requests are serialised on the connection, so a Client
// may be shared between goroutines.
type Client struct {
	mu   sync.Mutex
	conn net.Conn
}

// Dial connects to addr.
func Dial(ctx context.Context, addr string) (*Client, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	return New(conn), nil
}

// New wraps an established connection.
func New(conn net.Conn) *Client {
	return &Client{conn: conn}
}

// Close closes the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Do sends msg and waits for the reply. If ctx ends before the reply
// arrives the connection is closed and ctx.Err() is returned.
func (c *Client) Do(ctx context.Context, msg protocol.Message) (protocol.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	stop := context.AfterFunc(ctx, func() { c.conn.Close() })
	defer stop()

	if _, err := c.conn.Write(protocol.Encode(msg)); err != nil {
		return protocol.Message{}, fmt.Errorf("send: %w", contextErr(ctx, err))
	}
	reply, err := protocol.ReadMessage(c.conn)
	if err != nil {
		return protocol.Message{}, fmt.Errorf("receive: %w", contextErr(ctx, err))
	}
	return reply, nil
}

// roundTrip sends a single packet and returns the single reply packet.
// An ErrorResponse is returned as a *ResponseError.
func (c *Client) roundTrip(ctx context.Context, p protocol.Packet) (protocol.Packet, error) {
	reply, err := c.Do(ctx, protocol.Message{
		Version: protocol.CurrentVersion,
		Packets: []protocol.Packet{p},
	})
	if err != nil {
		return nil, err
	}
	if len(reply.Packets) != 1 {
		return nil, fmt.Errorf("%w: %d packets", ErrUnexpectedReply, len(reply.Packets))
	}
	if resp, ok := reply.Packets[0].(protocol.ErrorResponse); ok {
		return nil, &ResponseError{Code: resp.Code, Message: resp.Message}
	}
	return reply.Packets[0], nil
}

// Put stores payload under pattern.
func (c *Client) Put(ctx context.Context, pattern string, payload []byte) (protocol.PutSuccess, error) {
	if payload == nil {
		payload = []byte{}
	}
	p, err := c.roundTrip(ctx, protocol.TryPut{Pattern: protocol.Str(pattern), Payload: payload})
	if err != nil {
		return protocol.PutSuccess{}, err
	}
	put, ok := p.(protocol.PutSuccess)
	if !ok {
		return protocol.PutSuccess{}, fmt.Errorf("%w: %s", ErrUnexpectedReply, p.Type())
	}
	return put, nil
}

// Get fetches the payload stored under pattern.
func (c *Client) Get(ctx context.Context, pattern string) ([]byte, error) {
	p, err := c.roundTrip(ctx, protocol.TryGet{Pattern: protocol.Str(pattern)})
	if err != nil {
		return nil, err
	}
	get, ok := p.(protocol.GetSuccess)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnexpectedReply, p.Type())
	}
	return get.Payload, nil
}

// Delete asks the server to drop the record under pattern. The server
// reports success whether or not capability matched.
func (c *Client) Delete(ctx context.Context, pattern string, capability []byte) error {
	if capability == nil {
		capability = []byte{}
	}
	p, err := c.roundTrip(ctx, protocol.TryDelete{Pattern: protocol.Str(pattern), Capability: capability})
	if err != nil {
		return err
	}
	if _, ok := p.(protocol.DeleteSuccess); !ok {
		return fmt.Errorf("%w: %s", ErrUnexpectedReply, p.Type())
	}
	return nil
}

func contextErr(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return err
}
