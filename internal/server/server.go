package server

import (
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"

	"github.com/samber/lo"

	"github.com/alignecoderepos/heron/internal/config"
	"github.com/alignecoderepos/heron/internal/logging"
	"github.com/alignecoderepos/heron/internal/storage"
)

// ErrServerStarted is returned by Start on a server that is not new.
var ErrServerStarted = errors.New("server already started or stopped, create a new instance")

const (
	stateNew int32 = iota
	stateStarted
	stateStopped
)

// Server represents the heron server
type Server struct {
	config     *config.Config
	store      *storage.Store
	dispatcher *Dispatcher
	pool       *WorkerPool
	listener   net.Listener

	state atomic.Int32

	// Shutdown handling
	shutdown    chan struct{}
	stopOnce    sync.Once
	destroyOnce sync.Once
	done        chan struct{}
	signals     chan os.Signal
}

// New creates a new server instance
func New(cfg *config.Config) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	store := storage.New(cfg)

	return &Server{
		config:     cfg,
		store:      store,
		dispatcher: NewDispatcher(store),
		pool:       NewWorkerPool(cfg.InitWorkers, cfg.MaxWorkers, cfg.WorkerIdleTimeout()),
		shutdown:   make(chan struct{}),
		done:       make(chan struct{}),
		signals:    make(chan os.Signal, 1),
	}, nil
}

// Start binds the listening socket, installs the exit hook and runs the
// accept loop in the background. It can only be called once.
func (s *Server) Start() error {
	if !s.state.CompareAndSwap(stateNew, stateStarted) {
		return ErrServerStarted
	}

	listener, err := net.Listen("tcp", s.config.Address())
	if err != nil {
		s.destroy()
		return fmt.Errorf("can't listen on %s: %w", s.config.Address(), err)
	}
	s.listener = listener

	s.registerExitHook()

	go s.acceptLoop()

	logging.Infof("Server started on %s: %s", listener.Addr(), s.config)
	return nil
}

// Stop signals the accept loop to exit and closes the listening socket.
// In-flight requests are not interrupted; teardown follows once the accept
// loop has exited.
func (s *Server) Stop() {
	logging.Infof("Detected stop cmd")

	s.stopOnce.Do(func() { close(s.shutdown) })

	if s.state.Load() == stateNew {
		s.destroy()
		return
	}

	if s.listener != nil {
		if err := s.listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			logging.Warnf("Error during close server socket: %v", err)
		}
	}
}

// Addr returns the actual listening address (useful for testing with
// auto-assigned ports).
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.config.Address()
}

// Done is closed once the server has been torn down.
func (s *Server) Done() <-chan struct{} {
	return s.done
}

// Stopped reports whether teardown has completed.
func (s *Server) Stopped() bool {
	return s.state.Load() == stateStopped
}

func (s *Server) acceptLoop() {
	defer s.destroy()

	for {
		select {
		case <-s.shutdown:
			return
		default:
		}

		conn, err := s.listener.Accept()
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				logging.Errorf("Can't accept client socket: %v", err)
			}
			return
		}

		handler := newConnHandler(conn, s.dispatcher, s.config.MaxValueBytes, s.config.SlowlogThreshold())
		if err := s.pool.Submit(handler.serve); err != nil {
			logging.Errorf("All workers are busy, connection from %s rejected: %v", conn.RemoteAddr(), err)
			handler.close()
			continue
		}
		logging.Infof("A new client connection established: %s", conn.RemoteAddr())
	}
}

// registerExitHook tears the server down on SIGINT/SIGTERM if Stop was
// never called.
func (s *Server) registerExitHook() {
	signal.Notify(s.signals, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-s.signals:
			logging.Infof("Received %v", sig)
			s.Stop()
		case <-s.done:
		}
	}()
}

// destroy releases the store and the worker pool. Both the accept loop and
// the exit hook end up here; only the first call does anything.
func (s *Server) destroy() {
	s.destroyOnce.Do(func() {
		signal.Stop(s.signals)

		if err := s.store.Close(); err != nil {
			logging.Errorf("Close storage failed: %v", err)
		}
		s.pool.ShutdownNow()

		logging.Infof("Server stopped: %s", formatStats(s.store.Stats()))
		s.state.Store(stateStopped)
		close(s.done)
	})
}

func formatStats(stats map[string]string) string {
	keys := lo.Keys(stats)
	slices.Sort(keys)
	return strings.Join(lo.Map(keys, func(k string, _ int) string {
		return k + "=" + stats[k]
	}), " ")
}
