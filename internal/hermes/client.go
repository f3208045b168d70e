// Package hermes connects chatexport to the swarm's NATS bus: capture agents
// publish scrape passes, the service publishes merged transcripts.
package hermes

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
)

// drainTimeout bounds how long Close waits for in-flight passes to be merged.
const drainTimeout = 10 * time.Second

// Client publishes JSON events and dispatches subscribed subjects. Each
// subscription's handler runs on its own goroutine, one message at a time,
// so passes for a subject are merged in arrival order.
type Client struct {
	conn   *nats.Conn
	logger *slog.Logger

	mu   sync.Mutex
	subs map[string]*nats.Subscription

	closed    chan struct{}
	closeOnce sync.Once
}

// NewClient connects to url. When ctx carries a deadline it bounds the
// initial connection attempt; after that the client keeps reconnecting.
func NewClient(ctx context.Context, url, token string, logger *slog.Logger) (*Client, error) {
	c := &Client{
		logger: logger,
		subs:   make(map[string]*nats.Subscription),
		closed: make(chan struct{}),
	}

	opts := []nats.Option{
		nats.Name("chatexport"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(60),
		nats.ReconnectWait(2 * time.Second),
		nats.DrainTimeout(drainTimeout),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", "url", nc.ConnectedUrl())
		}),
		nats.ErrorHandler(func(_ *nats.Conn, sub *nats.Subscription, err error) {
			subject := ""
			if sub != nil {
				subject = sub.Subject
			}
			// Slow consumer errors mean passes were dropped before merging.
			logger.Error("nats async error", "subject", subject, "error", err)
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			close(c.closed)
		}),
	}
	if token != "" {
		opts = append(opts, nats.Token(token))
	}
	if deadline, ok := ctx.Deadline(); ok {
		opts = append(opts, nats.Timeout(time.Until(deadline)))
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	c.conn = nc
	return c, nil
}

// Publish sends data as JSON on subject.
func (c *Client) Publish(subject string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", subject, err)
	}
	if err := c.conn.Publish(subject, payload); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

// Subscribe registers handler for subject. Subscribing to the same subject
// twice replaces the earlier handler.
func (c *Client) Subscribe(subject string, handler func(subject string, data []byte)) error {
	sub, err := c.conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(msg.Subject, msg.Data)
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", subject, err)
	}

	c.mu.Lock()
	prev := c.subs[subject]
	c.subs[subject] = sub
	c.mu.Unlock()

	if prev != nil {
		_ = prev.Unsubscribe()
	}
	c.logger.Info("subscribed", "subject", subject)
	return nil
}

// Connected reports whether the client currently has a server connection.
func (c *Client) Connected() bool {
	return c.conn.IsConnected()
}

// Close drains subscriptions, letting handlers finish the passes already
// delivered, then closes the connection.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		if err := c.conn.Drain(); err != nil {
			c.logger.Warn("nats drain failed, closing", "error", err)
			c.conn.Close()
		}
		select {
		case <-c.closed:
		case <-time.After(drainTimeout + time.Second):
			c.logger.Warn("timed out waiting for nats to close")
		}
	})
}
