package client

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/alignecoderepos/heron/internal/protocol"
)

// ErrUnexpectedStatus is returned when the server answers with a status the
// call does not expect.
var ErrUnexpectedStatus = errors.New("unexpected response status")

// Status is re-exported so callers outside this module can inspect results.
type Status = protocol.Status

const (
	StatusAdded    = protocol.StatusAdded
	StatusReplaced = protocol.StatusReplaced
	StatusGotten   = protocol.StatusGotten
	StatusNotFound = protocol.StatusNotFound
	StatusRemoved  = protocol.StatusRemoved
	StatusCleared  = protocol.StatusCleared
)

// Client represents a heron client. Calls are serialized over a single
// connection; a Client is safe for concurrent use.
type Client struct {
	mu         sync.Mutex
	conn       net.Conn
	parser     *protocol.Parser
	writer     *bufio.Writer
	serializer Serializer
}

type options struct {
	dialTimeout time.Duration
	serializer  Serializer
}

// Option configures a Client.
type Option func(*options)

// WithDialTimeout bounds how long New waits for the connection.
func WithDialTimeout(d time.Duration) Option {
	return func(o *options) { o.dialTimeout = d }
}

// WithSerializer replaces the default gob serializer.
func WithSerializer(s Serializer) Option {
	return func(o *options) { o.serializer = s }
}

// New creates a new client connection
func New(address string, opts ...Option) (*Client, error) {
	o := options{dialTimeout: 5 * time.Second}
	for _, opt := range opts {
		opt(&o)
	}

	ctx, cancel := context.WithTimeout(context.Background(), o.dialTimeout)
	defer cancel()
	return Dial(ctx, address, opts...)
}

// Dial connects to address, honouring ctx for the connection attempt.
func Dial(ctx context.Context, address string, opts ...Option) (*Client, error) {
	o := options{serializer: GobSerializer{}}
	for _, opt := range opts {
		opt(&o)
	}
	if o.serializer == nil {
		o.serializer = GobSerializer{}
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, err
	}
	return newClient(conn, o.serializer), nil
}

func newClient(conn net.Conn, serializer Serializer) *Client {
	return &Client{
		conn:       conn,
		parser:     protocol.NewParser(conn, 0),
		writer:     bufio.NewWriter(conn),
		serializer: serializer,
	}
}

// WithClient connects to address, runs fn and always closes the connection.
func WithClient(address string, fn func(*Client) error, opts ...Option) (err error) {
	c, err := New(address, opts...)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := c.Close(); err == nil {
			err = cerr
		}
	}()
	return fn(c)
}

// Close closes the client connection
func (c *Client) Close() error {
	return c.conn.Close()
}

// Do sends req and waits for its response. If the server drops the request
// the call fails with the connection error.
func (c *Client) Do(req *protocol.Request) (*protocol.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := protocol.WriteRequest(c.writer, req); err != nil {
		return nil, err
	}
	if err := c.writer.Flush(); err != nil {
		return nil, err
	}
	return c.parser.ReadResponse()
}

// Put serializes value and stores it under key with no TTL.
func (c *Client) Put(key string, value any) (Status, error) {
	return c.PutTTL(key, value, 0)
}

// PutTTL serializes value and stores it under key. A non-positive ttl means
// the entry never expires. The server counts TTLs in whole milliseconds;
// ttl is rounded up to the next one.
func (c *Client) PutTTL(key string, value any, ttl time.Duration) (Status, error) {
	data, err := c.serializer.Serialize(value)
	if err != nil {
		return 0, err
	}
	return c.put(key, data, data != nil, ttl)
}

// PutBytes stores raw bytes under key.
func (c *Client) PutBytes(key string, data []byte, ttl time.Duration) (Status, error) {
	return c.put(key, data, true, ttl)
}

func (c *Client) put(key string, data []byte, hasData bool, ttl time.Duration) (Status, error) {
	req := protocol.NewRequest(protocol.CommandPut).WithKey(key)
	if ttl > 0 {
		req.WithTTL(ttlMillis(ttl))
	}
	if hasData {
		req.WithData(data)
	}

	resp, err := c.Do(req)
	if err != nil {
		return 0, err
	}
	return expect(resp, StatusAdded, StatusReplaced)
}

// ttlMillis converts a positive ttl to milliseconds, rounding up so a
// sub-millisecond ttl does not become zero.
func ttlMillis(ttl time.Duration) int64 {
	return int64((ttl + time.Millisecond - 1) / time.Millisecond)
}

// Get fetches key and deserializes it into out. It reports false when the
// key is absent.
func (c *Client) Get(key string, out any) (bool, error) {
	data, ok, err := c.GetBytes(key)
	if err != nil || !ok || data == nil {
		return false, err
	}
	if err := c.serializer.Deserialize(data, out); err != nil {
		return false, err
	}
	return true, nil
}

// GetBytes fetches the raw bytes stored under key.
func (c *Client) GetBytes(key string) ([]byte, bool, error) {
	resp, err := c.Do(protocol.NewRequest(protocol.CommandGet).WithKey(key))
	if err != nil {
		return nil, false, err
	}

	status, err := expect(resp, StatusGotten, StatusNotFound)
	if err != nil || status == StatusNotFound {
		return nil, false, err
	}
	return resp.Data, true, nil
}

// Remove deletes key.
func (c *Client) Remove(key string) (Status, error) {
	resp, err := c.Do(protocol.NewRequest(protocol.CommandRemove).WithKey(key))
	if err != nil {
		return 0, err
	}
	return expect(resp, StatusRemoved, StatusNotFound)
}

// Clear drops every key on the server.
func (c *Client) Clear() (Status, error) {
	resp, err := c.Do(protocol.NewRequest(protocol.CommandClear))
	if err != nil {
		return 0, err
	}
	return expect(resp, StatusCleared)
}

func expect(resp *protocol.Response, allowed ...Status) (Status, error) {
	if lo.Contains(allowed, resp.Status) {
		return resp.Status, nil
	}
	return resp.Status, fmt.Errorf("%w: %s", ErrUnexpectedStatus, resp.Status)
}
