package tcp

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"novelhub/internal/events"
	"novelhub/pkg/logger"
)

// RejectedError is a negative acknowledgment; the connection stays usable
type RejectedError struct {
	Event   events.Name
	Message string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("notifier rejected %s: %s", e.Event, e.Message)
}

var (
	// ErrQueueFull is returned by Publish when the delivery backlog is full
	ErrQueueFull = errors.New("notifier queue is full")

	// ErrNotifierClosed is returned by Publish after Close
	ErrNotifierClosed = errors.New("notifier is closed")
)

const (
	defaultQueueSize = 256
	deliveryTimeout  = 5 * time.Second
)

// Notifier is an events.Sink that keeps one connection to the notification
// collaborator and redials after failures. Publish only enqueues; a single
// goroutine delivers in order. Outgoing frames are rate limited.
type Notifier struct {
	addr    string
	limiter *rate.Limiter
	timeout time.Duration

	queue     chan events.Event
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once

	mu     sync.Mutex
	conn   net.Conn
	reader *bufio.Reader
}

var _ events.Sink = (*Notifier)(nil)

// NewNotifier creates a notifier for addr sending at most r frames/sec
func NewNotifier(addr string, r float64, burst int) *Notifier {
	return newNotifier(addr, r, burst, defaultQueueSize)
}

func newNotifier(addr string, r float64, burst, queueSize int) *Notifier {
	if r <= 0 {
		r = 100
	}
	if burst <= 0 {
		burst = 50
	}
	ctx, cancel := context.WithCancel(context.Background())
	n := &Notifier{
		addr:    addr,
		limiter: rate.NewLimiter(rate.Limit(r), burst),
		timeout: 2 * time.Second,
		queue:   make(chan events.Event, queueSize),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	go n.run()
	return n
}

// Publish queues e for delivery and returns without waiting on the network
func (n *Notifier) Publish(_ context.Context, e events.Event) error {
	select {
	case <-n.ctx.Done():
		return ErrNotifierClosed
	default:
	}

	select {
	case n.queue <- e:
		return nil
	default:
		return ErrQueueFull
	}
}

func (n *Notifier) run() {
	defer close(n.done)
	for {
		select {
		case <-n.ctx.Done():
			if dropped := len(n.queue); dropped > 0 {
				logger.Warnf("Notifier closed with %d undelivered events", dropped)
			}
			return
		case e := <-n.queue:
			ctx, cancel := context.WithTimeout(n.ctx, deliveryTimeout)
			if err := n.Send(ctx, e); err != nil {
				logger.Warnf("Notifier failed to deliver %s for comment %d: %v", e.Name, e.CommentID, err)
			}
			cancel()
		}
	}
}

// Send delivers e and waits for the acknowledgment
func (n *Notifier) Send(ctx context.Context, e events.Event) error {
	if err := n.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("notifier rate limit: %w", err)
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	err := n.send(ctx, e)
	var rejected *RejectedError
	if err != nil && !errors.As(err, &rejected) && ctx.Err() == nil {
		// stale connection, retry once on a fresh one
		n.closeLocked()
		err = n.send(ctx, e)
	}
	if err != nil {
		if !errors.As(err, &rejected) {
			n.closeLocked()
		}
		return err
	}

	logger.TCP(string(e.Name), n.addr, e.CommentID)
	return nil
}

func (n *Notifier) send(ctx context.Context, e events.Event) error {
	if n.conn == nil {
		d := net.Dialer{Timeout: n.timeout}
		conn, err := d.DialContext(ctx, "tcp", n.addr)
		if err != nil {
			return fmt.Errorf("dial tcp: %w", err)
		}
		n.conn = conn
		n.reader = bufio.NewReader(conn)
	}

	conn := n.conn
	deadline := time.Now().Add(n.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	conn.SetDeadline(deadline)
	// cancellation unblocks a pending write or ack read
	stop := context.AfterFunc(ctx, func() { conn.SetDeadline(time.Now()) })
	defer stop()

	if err := WriteFrame(conn, e); err != nil {
		return err
	}

	var ack Ack
	if err := ReadFrame(n.reader, &ack); err != nil {
		return fmt.Errorf("read ack: %w", err)
	}
	if ack.Status != "success" {
		return &RejectedError{Event: e.Name, Message: ack.Message}
	}
	return nil
}

func (n *Notifier) closeLocked() {
	if n.conn != nil {
		n.conn.Close()
		n.conn = nil
		n.reader = nil
	}
}

// Close stops delivery and drops the current connection. Queued events
// that were not sent yet are discarded.
func (n *Notifier) Close() error {
	n.closeOnce.Do(func() {
		n.cancel()
		<-n.done
	})

	n.mu.Lock()
	defer n.mu.Unlock()
	n.closeLocked()
	return nil
}
