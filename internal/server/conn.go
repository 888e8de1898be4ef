package server

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"syscall"
	"time"

	"github.com/alignecoderepos/heron/internal/logging"
	"github.com/alignecoderepos/heron/internal/protocol"
)

// connHandler serves one accepted connection: read a request, dispatch it,
// write the response, repeat.
type connHandler struct {
	conn       net.Conn
	dispatcher *Dispatcher
	maxData    int
	slowlog    time.Duration

	closeOnce sync.Once
}

func newConnHandler(conn net.Conn, dispatcher *Dispatcher, maxData int, slowlog time.Duration) *connHandler {
	return &connHandler{
		conn:       conn,
		dispatcher: dispatcher,
		maxData:    maxData,
		slowlog:    slowlog,
	}
}

// serve runs the request loop until the peer goes away, an unrecoverable
// error occurs or ctx is cancelled. Cancellation is observed between
// requests; a read blocked waiting for the next request is woken up.
func (h *connHandler) serve(ctx context.Context) {
	defer h.close()

	remote := h.conn.RemoteAddr().String()

	stopWatch := context.AfterFunc(ctx, func() {
		h.conn.SetReadDeadline(time.Now())
	})
	defer stopWatch()

	parser := protocol.NewParser(h.conn, h.maxData)
	writer := bufio.NewWriter(h.conn)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		req, err := parser.ReadRequest()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			// Unknown commands and skipped oversized data leave the stream
			// aligned. Anything else loses the frame boundary, so the
			// connection is dropped instead of decoding garbage.
			if protocol.IsRecoverable(err) {
				logging.Errorf("Handle request failed: %s: %v", remote, err)
				continue
			}
			h.handleIOError(remote, err)
			return
		}

		start := time.Now()
		resp, err := h.dispatcher.Handle(req)
		if err != nil {
			logging.Errorf("Handle request failed: %s: %v", remote, err)
			continue
		}

		frame, err := protocol.EncodeResponse(resp)
		if err != nil {
			logging.Errorf("Encode response failed: %s: %v", remote, err)
			continue
		}
		if _, err := writer.Write(frame); err != nil {
			h.handleIOError(remote, err)
			return
		}
		if err := writer.Flush(); err != nil {
			h.handleIOError(remote, err)
			return
		}

		if logging.Enabled(logging.LevelDebug) {
			logging.Debugf("Command %s -> %s", req, resp)
		}

		if duration := time.Since(start); h.slowlog > 0 && duration > h.slowlog {
			logging.Warnf("Slow command: %s took %v", req, duration)
		}
	}
}

func (h *connHandler) handleIOError(remote string, err error) {
	switch {
	case isPeerClosed(err):
		logging.Infof("Remote client connection closed: %s: %v", remote, err)
	case errors.Is(err, net.ErrClosed):
		// Closed locally, nothing to report.
	case errors.Is(err, protocol.ErrUnsupportedVersion), errors.Is(err, protocol.ErrMalformedFrame):
		logging.Errorf("Protocol error, closing connection %s: %v", remote, err)
	default:
		logging.Errorf("IO error on %s: %v", remote, err)
	}
}

func (h *connHandler) close() {
	h.closeOnce.Do(func() {
		if err := h.conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			logging.Errorf("Close connection failed: %v", err)
		}
	})
}

// isPeerClosed reports whether err means the remote side went away.
func isPeerClosed(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE)
}
