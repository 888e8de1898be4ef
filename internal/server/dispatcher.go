package server

import (
	"errors"
	"fmt"

	"github.com/alignecoderepos/heron/internal/protocol"
)

var (
	ErrNilRequest  = errors.New("request without command")
	ErrMissingKey  = errors.New("request without key")
	ErrUnsupported = errors.New("unsupported command")
)

// Storage is the subset of the store the dispatcher routes requests to.
type Storage interface {
	Put(key string, ttlMs *int64, value []byte) protocol.Status
	Get(key string) ([]byte, bool)
	Remove(key string) protocol.Status
	Clear() protocol.Status
}

// Dispatcher maps a decoded request onto a storage operation.
type Dispatcher struct {
	storage Storage
}

func NewDispatcher(storage Storage) *Dispatcher {
	return &Dispatcher{storage: storage}
}

// Handle executes req and builds its response. Requests that cannot be
// executed return an error and no response.
func (d *Dispatcher) Handle(req *protocol.Request) (*protocol.Response, error) {
	if req == nil {
		return nil, ErrNilRequest
	}

	switch req.Command {
	case protocol.CommandClear:
		return d.handleClear()
	case protocol.CommandPut:
		return d.handlePut(req)
	case protocol.CommandGet:
		return d.handleGet(req)
	case protocol.CommandRemove:
		return d.handleRemove(req)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, req.Command)
	}
}

func (d *Dispatcher) handleClear() (*protocol.Response, error) {
	return protocol.NewResponse(d.storage.Clear(), nil), nil
}

func (d *Dispatcher) handlePut(req *protocol.Request) (*protocol.Response, error) {
	if !req.HasKey {
		return nil, fmt.Errorf("%w: %s", ErrMissingKey, req)
	}

	var ttl *int64
	if req.HasTTL {
		ttlMs := req.TTL
		ttl = &ttlMs
	}
	return protocol.NewResponse(d.storage.Put(req.Key, ttl, req.Data), nil), nil
}

func (d *Dispatcher) handleGet(req *protocol.Request) (*protocol.Response, error) {
	if !req.HasKey {
		return nil, fmt.Errorf("%w: %s", ErrMissingKey, req)
	}

	// An entry stored by a PUT without data has no payload to return.
	value, ok := d.storage.Get(req.Key)
	if !ok || value == nil {
		return protocol.NewResponse(protocol.StatusNotFound, nil), nil
	}
	return protocol.NewResponse(protocol.StatusGotten, value), nil
}

func (d *Dispatcher) handleRemove(req *protocol.Request) (*protocol.Response, error) {
	if !req.HasKey {
		return nil, fmt.Errorf("%w: %s", ErrMissingKey, req)
	}
	return protocol.NewResponse(d.storage.Remove(req.Key), nil), nil
}
