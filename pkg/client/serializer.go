package client

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
)

var (
	ErrSerialize   = errors.New("can't convert value to bytes")
	ErrDeserialize = errors.New("can't convert bytes to value")
)

// Serializer turns values into payload bytes and back.
type Serializer interface {
	// Serialize encodes v. A nil v encodes to nil.
	Serialize(v any) ([]byte, error)
	// Deserialize decodes data into out, which must be a pointer.
	Deserialize(data []byte, out any) error
}

// GobSerializer encodes values with encoding/gob. Interface-typed values
// must have their concrete types registered with gob.Register.
type GobSerializer struct{}

func (GobSerializer) Serialize(v any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerialize, err)
	}
	return buf.Bytes(), nil
}

func (GobSerializer) Deserialize(data []byte, out any) error {
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrDeserialize, err)
	}
	return nil
}
