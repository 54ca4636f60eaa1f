package tcp

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"novelhub/internal/events"
	"novelhub/pkg/logger"
)

// Server is the receiving end of the notifier protocol. It stands in for
// the notification collaborator in local runs and tests.
type Server struct {
	addr     string
	listener net.Listener
	handler  events.Handler
	connMu   sync.Mutex
	conns    map[net.Conn]struct{}
	stop     chan struct{}
	stopped  chan struct{}
}

// NewServer creates a server passing every received event to handler
func NewServer(addr string, handler events.Handler) *Server {
	return &Server{
		addr:    addr,
		handler: handler,
		conns:   make(map[net.Conn]struct{}),
		stop:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

// Start listens and serves in the background
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("tcp listen failed on %s: %w", s.addr, err)
	}

	s.listener = listener
	logger.Infof("TCP event listener started on %s", listener.Addr())

	go s.acceptLoop()
	return nil
}

// Addr returns the bound address, useful with port 0
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.addr
	}
	return s.listener.Addr().String()
}

// Stop stops the TCP server gracefully
func (s *Server) Stop() {
	close(s.stop)

	s.connMu.Lock()
	if s.listener != nil {
		s.listener.Close()
	}
	for conn := range s.conns {
		conn.Close()
	}
	s.connMu.Unlock()

	// Wait for accept loop to exit
	select {
	case <-s.stopped:
		logger.Info("TCP event listener stopped")
	case <-time.After(5 * time.Second):
		logger.Warn("TCP event listener forced stop after timeout")
	}
}

// acceptLoop accepts incoming TCP connections
func (s *Server) acceptLoop() {
	defer close(s.stopped)

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.stop:
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			logger.Warnf("TCP accept error: %v", err)
			continue
		}

		s.connMu.Lock()
		s.conns[conn] = struct{}{}
		s.connMu.Unlock()

		go s.handleConnection(conn)
	}
}

// handleConnection reads frames until the peer hangs up
func (s *Server) handleConnection(conn net.Conn) {
	clientAddr := conn.RemoteAddr().String()
	defer func() {
		conn.Close()
		s.connMu.Lock()
		delete(s.conns, conn)
		s.connMu.Unlock()
	}()

	reader := bufio.NewReader(conn)
	ctx := context.Background()

	for {
		conn.SetReadDeadline(time.Now().Add(30 * time.Second))

		var e events.Event
		err := ReadFrame(reader, &e)
		switch {
		case err == nil:
		case errors.Is(err, io.EOF), errors.Is(err, ErrFrameSize), errors.Is(err, net.ErrClosed):
			return
		default:
			var netErr net.Error
			if errors.As(err, &netErr) {
				return
			}
			logger.Warnf("TCP bad frame from %s: %v", clientAddr, err)
			s.reply(conn, Ack{Status: "error", Message: err.Error()})
			continue
		}

		if err := validateEvent(e); err != nil {
			s.reply(conn, Ack{Status: "error", Message: err.Error()})
			continue
		}

		if s.handler != nil {
			if err := s.handler(ctx, e); err != nil {
				s.reply(conn, Ack{Status: "error", Message: err.Error()})
				continue
			}
		}
		s.reply(conn, Ack{Status: "success"})
	}
}

func validateEvent(e events.Event) error {
	switch e.Name {
	case events.CommentCreated, events.ReportOpened, events.CommentHidden:
	default:
		return fmt.Errorf("unknown event %q", e.Name)
	}
	if e.CommentID <= 0 {
		return errors.New("commentId is required")
	}
	return nil
}

func (s *Server) reply(conn net.Conn, ack Ack) {
	conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	if err := WriteFrame(conn, ack); err != nil {
		logger.Warnf("TCP response write error: %v", err)
	}
}
