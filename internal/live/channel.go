package live

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/matheus3301/duo/internal/bus"
	"github.com/matheus3301/duo/internal/logging"
	"github.com/matheus3301/duo/internal/message"
	"github.com/matheus3301/duo/internal/status"
	"go.uber.org/zap"
)

var (
	// ErrChannelFailure reports a transport error on the live connection.
	ErrChannelFailure = errors.New("live channel failure")
	// ErrSendFailure reports that an outbound frame could not be transmitted.
	ErrSendFailure = errors.New("send failure")
	// ErrClosed is returned by Open when Close won the race against the dial.
	ErrClosed = errors.New("live channel closed")
)

const defaultReadLimit = 1 << 20

// Options configures a Channel.
type Options struct {
	// URL is the WebSocket base, e.g. wss://chat.example.com. The identity is appended as /ws/{owner}.
	URL        string
	Dialect    Dialect
	ReadLimit  int64
	HTTPClient *http.Client
}

// Channel is the single live connection of one local identity. It is shared by
// every conversation view of that identity and is the only path for outbound frames.
type Channel struct {
	owner   string
	opts    Options
	bus     *bus.Bus
	logger  *zap.Logger
	machine *status.Machine

	mu      sync.Mutex
	conn    *websocket.Conn
	opened  bool
	closing bool
	err     error
	done    chan struct{}
	// stop releases a read loop waiting on a slow live.message consumer.
	stop context.CancelFunc
}

// New creates a channel for owner in the connecting state. Call Open to dial.
func New(owner string, opts Options, b *bus.Bus, logger *zap.Logger) *Channel {
	if opts.ReadLimit <= 0 {
		opts.ReadLimit = defaultReadLimit
	}
	if opts.Dialect == "" {
		opts.Dialect = Canonical
	}
	return &Channel{
		owner:   owner,
		opts:    opts,
		bus:     b,
		logger:  logging.OrNop(logger).With(zap.String("component", "live")),
		machine: status.NewMachine(owner, b),
		done:    make(chan struct{}),
	}
}

// Owner returns the identity the channel was opened for.
func (c *Channel) Owner() string {
	return c.owner
}

// State returns the current connection state.
func (c *Channel) State() status.State {
	return c.machine.Current()
}

// Done is closed when the read loop exits, after a failure or Close.
func (c *Channel) Done() <-chan struct{} {
	return c.done
}

// Err returns the failure that moved the channel to failed, if any.
func (c *Channel) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Endpoint returns the URL dialed for the owner.
func (c *Channel) Endpoint() string {
	return strings.TrimRight(c.opts.URL, "/") + "/ws/" + url.PathEscape(c.owner)
}

// Open dials the server and starts delivering inbound frames on the bus.
// A dial error leaves the channel failed; reconnecting means creating a new Channel.
func (c *Channel) Open(ctx context.Context) error {
	c.mu.Lock()
	if c.closing {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.opened {
		c.mu.Unlock()
		return fmt.Errorf("live channel for %s already opened", c.owner)
	}
	c.opened = true
	c.mu.Unlock()

	c.logger.Info("connecting", zap.String("endpoint", c.Endpoint()))
	conn, _, err := websocket.Dial(ctx, c.Endpoint(), &websocket.DialOptions{HTTPClient: c.opts.HTTPClient})
	if err != nil {
		err = fmt.Errorf("%w: dial: %w", ErrChannelFailure, err)
		c.fail(err)
		close(c.done)
		return err
	}
	conn.SetReadLimit(c.opts.ReadLimit)

	c.mu.Lock()
	if c.closing {
		c.mu.Unlock()
		_ = conn.CloseNow()
		close(c.done)
		return ErrClosed
	}
	c.conn = conn
	loopCtx, stop := context.WithCancel(context.Background())
	c.stop = stop
	c.mu.Unlock()

	if err := c.machine.Transition(status.Open); err != nil {
		_ = conn.CloseNow()
		close(c.done)
		return err
	}
	c.logger.Info("live channel open")

	go c.readLoop(loopCtx, conn)
	return nil
}

// readLoop hands frames over one at a time; a consumer that falls behind slows
// the reads instead of losing frames.
func (c *Channel) readLoop(ctx context.Context, conn *websocket.Conn) {
	defer close(c.done)
	for {
		_, data, err := conn.Read(context.Background())
		if err != nil {
			if c.isClosing() {
				return
			}
			c.fail(fmt.Errorf("%w: %w", ErrChannelFailure, err))
			_ = conn.CloseNow()
			return
		}

		msg, err := message.Decode(data)
		if err != nil {
			c.logger.Warn("dropping malformed frame", zap.Error(err), zap.Int("bytes", len(data)))
			continue
		}
		if err := c.bus.PublishContext(ctx, bus.NewEvent(bus.KindLiveMessage, msg)); err != nil {
			return
		}
	}
}

// Send transmits an outbound frame without waiting for any acknowledgment.
// clientID is carried only by the canonical dialect.
func (c *Channel) Send(ctx context.Context, recipient, body, clientID string) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	if state := c.machine.Current(); conn == nil || state != status.Open {
		return fmt.Errorf("%w: channel is %s", ErrSendFailure, state)
	}
	if err := wsjson.Write(ctx, conn, c.opts.Dialect.frame(recipient, body, clientID)); err != nil {
		return fmt.Errorf("%w: %w", ErrSendFailure, err)
	}
	return nil
}

// Close shuts the connection down gracefully and waits for the read loop.
// It is safe to call on every exit path and more than once.
func (c *Channel) Close() error {
	c.mu.Lock()
	if c.closing {
		c.mu.Unlock()
		return nil
	}
	c.closing = true
	conn := c.conn
	opened := c.opened
	stop := c.stop
	c.mu.Unlock()

	if stop != nil {
		stop()
	}
	if !c.machine.Current().Terminal() {
		_ = c.machine.Transition(status.Closed)
	}
	if conn != nil {
		if err := conn.Close(websocket.StatusNormalClosure, "closing"); err != nil {
			c.logger.Debug("close handshake", zap.Error(err))
		}
	}
	if opened && conn != nil {
		<-c.done
	}
	c.logger.Info("live channel closed")
	return nil
}

func (c *Channel) isClosing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closing
}

func (c *Channel) fail(err error) {
	c.mu.Lock()
	if c.err == nil {
		c.err = err
	}
	c.mu.Unlock()

	if c.machine.Current().Terminal() {
		return
	}
	if tErr := c.machine.Transition(status.Failed); tErr != nil {
		return
	}
	c.logger.Error("live channel failed", zap.Error(err))
	c.bus.Publish(bus.NewEvent(bus.KindLiveFailed, err))
}
