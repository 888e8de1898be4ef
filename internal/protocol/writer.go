package protocol

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// EncodeRequest builds the complete wire frame for req. Nothing is produced
// when the request is invalid.
func EncodeRequest(req *Request) ([]byte, error) {
	if !req.Command.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownCommand, byte(req.Command))
	}
	if req.HasKey {
		if err := ValidateKey(req.Key); err != nil {
			return nil, err
		}
	}
	if len(req.Data) > math.MaxInt32 {
		return nil, fmt.Errorf("%w: %d bytes", ErrDataTooLarge, len(req.Data))
	}

	size := 3
	if req.HasKey {
		size += 1 + len(req.Key)
	}
	if req.HasTTL {
		size += 8
	}
	if req.HasData() {
		size += 4 + len(req.Data)
	}

	buf := make([]byte, 0, size)
	buf = append(buf, Version, byte(req.Command), req.flags())
	if req.HasKey {
		buf = append(buf, byte(len(req.Key)))
		buf = append(buf, req.Key...)
	}
	if req.HasTTL {
		buf = binary.BigEndian.AppendUint64(buf, uint64(req.TTL))
	}
	if req.HasData() {
		buf = binary.BigEndian.AppendUint32(buf, uint32(len(req.Data)))
		buf = append(buf, req.Data...)
	}
	return buf, nil
}

// EncodeResponse builds the complete wire frame for resp.
func EncodeResponse(resp *Response) ([]byte, error) {
	if !resp.Status.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownStatus, byte(resp.Status))
	}
	if len(resp.Data) > math.MaxInt32 {
		return nil, fmt.Errorf("%w: %d bytes", ErrDataTooLarge, len(resp.Data))
	}

	var flags byte
	size := 3
	if resp.HasData() {
		flags |= flagResponseData
		size += 4 + len(resp.Data)
	}

	buf := make([]byte, 0, size)
	buf = append(buf, Version, byte(resp.Status), flags)
	if resp.HasData() {
		buf = binary.BigEndian.AppendUint32(buf, uint32(len(resp.Data)))
		buf = append(buf, resp.Data...)
	}
	return buf, nil
}

// WriteRequest encodes req and writes it with a single Write call.
func WriteRequest(w io.Writer, req *Request) error {
	frame, err := EncodeRequest(req)
	if err != nil {
		return err
	}
	_, err = w.Write(frame)
	return err
}

// WriteResponse encodes resp and writes it with a single Write call.
func WriteResponse(w io.Writer, resp *Response) error {
	frame, err := EncodeResponse(resp)
	if err != nil {
		return err
	}
	_, err = w.Write(frame)
	return err
}

// ValidateKey checks that key fits in a frame: at most MaxKeyLength bytes,
// all ASCII.
func ValidateKey(key string) error {
	if len(key) > MaxKeyLength {
		return fmt.Errorf("%w: %d bytes, max %d", ErrKeyTooLong, len(key), MaxKeyLength)
	}
	for i := 0; i < len(key); i++ {
		if key[i] > 0x7F {
			return fmt.Errorf("%w: byte 0x%02x at %d", ErrInvalidKey, key[i], i)
		}
	}
	return nil
}
