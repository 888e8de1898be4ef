package client

import (
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alignecoderepos/heron/internal/protocol"
)

// fakeServer answers each request on conn with the next canned response and
// records what it received.
type fakeServer struct {
	requests chan *protocol.Request
}

func newPipeClient(t *testing.T, responses ...*protocol.Response) (*Client, *fakeServer) {
	t.Helper()
	clientConn, serverConn := net.Pipe()

	fs := &fakeServer{requests: make(chan *protocol.Request, len(responses))}
	go func() {
		defer serverConn.Close()
		parser := protocol.NewParser(serverConn, 0)
		for _, resp := range responses {
			req, err := parser.ReadRequest()
			if err != nil {
				return
			}
			fs.requests <- req
			if err := protocol.WriteResponse(serverConn, resp); err != nil {
				return
			}
		}
	}()

	c := newClient(clientConn, GobSerializer{})
	t.Cleanup(func() { c.Close() })
	return c, fs
}

func (fs *fakeServer) next(t *testing.T) *protocol.Request {
	t.Helper()
	select {
	case req := <-fs.requests:
		return req
	case <-time.After(time.Second):
		t.Fatal("no request received")
		return nil
	}
}

func TestClient_Do(t *testing.T) {
	c, fs := newPipeClient(t, protocol.NewResponse(protocol.StatusCleared, nil))

	resp, err := c.Do(protocol.NewRequest(protocol.CommandClear))
	require.NoError(t, err)
	assert.Equal(t, StatusCleared, resp.Status)
	assert.Equal(t, protocol.NewRequest(protocol.CommandClear), fs.next(t))
}

func TestClient_Put(t *testing.T) {
	c, fs := newPipeClient(t,
		protocol.NewResponse(protocol.StatusAdded, nil),
		protocol.NewResponse(protocol.StatusReplaced, nil),
	)

	status, err := c.Put("key", "value")
	require.NoError(t, err)
	assert.Equal(t, StatusAdded, status)

	expected, err := GobSerializer{}.Serialize("value")
	require.NoError(t, err)
	assert.Equal(t, protocol.NewRequest(protocol.CommandPut).WithKey("key").WithData(expected), fs.next(t))

	status, err = c.PutTTL("key", "value", 1500*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, StatusReplaced, status)
	assert.Equal(t, protocol.NewRequest(protocol.CommandPut).WithKey("key").WithTTL(1500).WithData(expected), fs.next(t))
}

func TestClient_Put_NilValueSendsNoData(t *testing.T) {
	c, fs := newPipeClient(t, protocol.NewResponse(protocol.StatusAdded, nil))

	_, err := c.Put("key", nil)
	require.NoError(t, err)

	req := fs.next(t)
	assert.False(t, req.HasData())
	assert.False(t, req.HasTTL)
}

func TestClient_Put_NonPositiveTTL(t *testing.T) {
	c, fs := newPipeClient(t, protocol.NewResponse(protocol.StatusAdded, nil))

	_, err := c.PutBytes("key", []byte{1}, -time.Second)
	require.NoError(t, err)
	assert.False(t, fs.next(t).HasTTL)
}

func TestClient_Put_SubMillisecondTTL(t *testing.T) {
	c, fs := newPipeClient(t,
		protocol.NewResponse(protocol.StatusAdded, nil),
		protocol.NewResponse(protocol.StatusReplaced, nil),
	)

	_, err := c.PutBytes("key", []byte{1}, 500*time.Microsecond)
	require.NoError(t, err)
	req := fs.next(t)
	assert.True(t, req.HasTTL)
	assert.Equal(t, int64(1), req.TTL)

	_, err = c.PutBytes("key", []byte{1}, 1500*time.Microsecond)
	require.NoError(t, err)
	assert.Equal(t, int64(2), fs.next(t).TTL)
}

func TestTTLMillis(t *testing.T) {
	tests := []struct {
		ttl  time.Duration
		want int64
	}{
		{time.Nanosecond, 1},
		{time.Millisecond, 1},
		{time.Millisecond + time.Nanosecond, 2},
		{time.Second, 1000},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ttlMillis(tt.ttl), tt.ttl.String())
	}
}

func TestClient_Get(t *testing.T) {
	data, err := GobSerializer{}.Serialize("value")
	require.NoError(t, err)

	c, fs := newPipeClient(t,
		protocol.NewResponse(protocol.StatusGotten, data),
		protocol.NewResponse(protocol.StatusNotFound, nil),
	)

	var got string
	ok, err := c.Get("key", &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "value", got)
	assert.Equal(t, protocol.NewRequest(protocol.CommandGet).WithKey("key"), fs.next(t))

	ok, err = c.Get("key", &got)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestClient_Remove_Clear(t *testing.T) {
	c, fs := newPipeClient(t,
		protocol.NewResponse(protocol.StatusRemoved, nil),
		protocol.NewResponse(protocol.StatusCleared, nil),
	)

	status, err := c.Remove("key")
	require.NoError(t, err)
	assert.Equal(t, StatusRemoved, status)
	assert.Equal(t, protocol.NewRequest(protocol.CommandRemove).WithKey("key"), fs.next(t))

	status, err = c.Clear()
	require.NoError(t, err)
	assert.Equal(t, StatusCleared, status)
	assert.Equal(t, protocol.NewRequest(protocol.CommandClear), fs.next(t))
}

func TestClient_UnexpectedStatus(t *testing.T) {
	c, _ := newPipeClient(t, protocol.NewResponse(protocol.StatusGotten, nil))

	_, err := c.Clear()
	assert.ErrorIs(t, err, ErrUnexpectedStatus)
}

func TestClient_KeyTooLongSendsNothing(t *testing.T) {
	c, fs := newPipeClient(t)

	_, err := c.PutBytes(string(make([]byte, 128)), []byte{1}, 0)
	assert.ErrorIs(t, err, protocol.ErrKeyTooLong)

	select {
	case req := <-fs.requests:
		t.Fatalf("unexpected request %s", req)
	default:
	}
}

func TestClient_ServerGone(t *testing.T) {
	c, _ := newPipeClient(t)

	_, err := c.Clear()
	assert.Error(t, err)
}

func TestGobSerializer(t *testing.T) {
	type business struct {
		Name  string
		Count int
	}

	s := GobSerializer{}

	data, err := s.Serialize(business{Name: "TEST", Count: 3})
	require.NoError(t, err)

	var out business
	require.NoError(t, s.Deserialize(data, &out))
	assert.Equal(t, business{Name: "TEST", Count: 3}, out)

	data, err = s.Serialize(nil)
	require.NoError(t, err)
	assert.Nil(t, data)

	_, err = s.Serialize(func() {})
	assert.True(t, errors.Is(err, ErrSerialize))

	err = s.Deserialize([]byte{0xFF, 0x00, 0x13}, &out)
	assert.ErrorIs(t, err, ErrDeserialize)
}
