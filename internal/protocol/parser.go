package protocol

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Parser decodes frames from a byte stream. A Parser is not safe for
// concurrent use.
type Parser struct {
	reader  *bufio.Reader
	maxData int
}

// NewParser creates a new protocol parser. maxData caps the length of a
// decoded data field; zero or less means no cap.
func NewParser(r io.Reader, maxData int) *Parser {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(r)
	}
	return &Parser{
		reader:  br,
		maxData: maxData,
	}
}

// ReadRequest decodes one request frame. io.EOF is returned only when the
// stream ends cleanly between frames; a frame cut short yields
// io.ErrUnexpectedEOF.
func (p *Parser) ReadRequest() (*Request, error) {
	code, flags, err := p.readHeader()
	if err != nil {
		return nil, err
	}

	req := &Request{Command: Command(code)}

	if flags&flagKey != 0 {
		key, err := p.readKey()
		if err != nil {
			return nil, err
		}
		req.Key = key
		req.HasKey = true
	}

	if flags&flagTTL != 0 {
		var buf [8]byte
		if err := p.readFull(buf[:]); err != nil {
			return nil, err
		}
		req.TTL = int64(binary.BigEndian.Uint64(buf[:]))
		req.HasTTL = true
	}

	if flags&flagData != 0 {
		data, err := p.readData()
		if err != nil {
			return nil, err
		}
		req.Data = data
	}

	// The whole frame is consumed before the command is checked so an
	// unknown command leaves the stream aligned.
	if _, err := ParseCommand(code); err != nil {
		return nil, err
	}
	return req, nil
}

// ReadResponse decodes one response frame.
func (p *Parser) ReadResponse() (*Response, error) {
	code, flags, err := p.readHeader()
	if err != nil {
		return nil, err
	}

	resp := &Response{Status: Status(code)}

	if flags&flagResponseData != 0 {
		data, err := p.readData()
		if err != nil {
			return nil, err
		}
		resp.Data = data
	}

	if _, err := ParseStatus(code); err != nil {
		return nil, err
	}
	return resp, nil
}

// readHeader reads the version, op code and flags bytes.
func (p *Parser) readHeader() (code byte, flags byte, err error) {
	version, err := p.reader.ReadByte()
	if err != nil {
		return 0, 0, err
	}
	if version != Version {
		return 0, 0, fmt.Errorf("%w: 0x%02x", ErrUnsupportedVersion, version)
	}

	var buf [2]byte
	if err := p.readFull(buf[:]); err != nil {
		return 0, 0, err
	}
	return buf[0], buf[1], nil
}

func (p *Parser) readKey() (string, error) {
	length, err := p.reader.ReadByte()
	if err != nil {
		return "", unexpected(err)
	}
	if length > MaxKeyLength {
		return "", fmt.Errorf("%w: key length %d", ErrMalformedFrame, length)
	}

	key := make([]byte, length)
	if err := p.readFull(key); err != nil {
		return "", err
	}
	return string(key), nil
}

func (p *Parser) readData() ([]byte, error) {
	var buf [4]byte
	if err := p.readFull(buf[:]); err != nil {
		return nil, err
	}

	length := int32(binary.BigEndian.Uint32(buf[:]))
	if length < 0 {
		return nil, fmt.Errorf("%w: data length %d", ErrMalformedFrame, length)
	}

	if p.maxData > 0 && int(length) > p.maxData {
		// Skip the payload so the next frame can still be read.
		if _, err := io.CopyN(io.Discard, p.reader, int64(length)); err != nil {
			return nil, unexpected(err)
		}
		return nil, fmt.Errorf("%w: %d bytes exceeds %d", ErrDataTooLarge, length, p.maxData)
	}

	data := make([]byte, length)
	if err := p.readFull(data); err != nil {
		return nil, err
	}
	return data, nil
}

// readFull reads len(buf) bytes of a frame already in progress.
func (p *Parser) readFull(buf []byte) error {
	_, err := io.ReadFull(p.reader, buf)
	return unexpected(err)
}

// unexpected turns io.EOF into io.ErrUnexpectedEOF: once a frame has
// started, running out of input means it was truncated.
func unexpected(err error) error {
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}
