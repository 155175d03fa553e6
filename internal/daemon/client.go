// internal/daemon/client.go
//
// Client for the provisioning daemon's wake-up protocol.
//
// Context
// -------
// The daemon listens on a local TCP port and speaks a tiny line protocol.
// Every reply starts with a three-digit code, and 250 means success:
//
//	S: 250 <greeting>
//	C: helo <panel version>
//	S: 250 ...
//	C: execute query
//	S: 250 ...
//	C: bye
//	S: 250 ...
//
// "execute query" tells the daemon to scan the schema for pending rows.  The
// daemon does not say which rows it will process; the task queue learns that
// later by watching the rows settle.
//
// Notes
// -----
//   - Each Notify uses a fresh connection; the daemon closes it after bye.
//   - Dial and per-line I/O deadlines come from config.
package daemon

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/yanizio/panel/internal/metrics"
)

// Notifier wakes the provisioning daemon.
type Notifier interface {
	Notify(ctx context.Context) error
}

// ErrUnexpectedReply wraps any reply whose code is not 250.
var ErrUnexpectedReply = errors.New("daemon: unexpected reply")

// Config holds connection tunables.
type Config struct {
	Addr        string
	Version     string
	DialTimeout time.Duration
	IOTimeout   time.Duration
}

// Client implements Notifier over TCP.  Safe for concurrent use.
type Client struct {
	cfg    Config
	dialer net.Dialer
}

// New returns a Client.  Zero timeouts fall back to five seconds.
func New(cfg Config) *Client {
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 5 * time.Second
	}
	if cfg.IOTimeout <= 0 {
		cfg.IOTimeout = 5 * time.Second
	}
	return &Client{cfg: cfg, dialer: net.Dialer{Timeout: cfg.DialTimeout}}
}

// Notify runs one full conversation with the daemon.
func (c *Client) Notify(ctx context.Context) error {
	err := c.notify(ctx)
	if err != nil {
		metrics.DaemonRequestsTotal.WithLabelValues("error").Inc()
		zap.S().Errorw("daemon request failed", "addr", c.cfg.Addr, "err", err)
		return err
	}
	metrics.DaemonRequestsTotal.WithLabelValues("ok").Inc()
	zap.S().Debugw("daemon request sent", "addr", c.cfg.Addr)
	return nil
}

func (c *Client) notify(ctx context.Context) error {
	conn, err := c.dialer.DialContext(ctx, "tcp", c.cfg.Addr)
	if err != nil {
		return fmt.Errorf("daemon: connect %s: %w", c.cfg.Addr, err)
	}
	defer conn.Close()

	// Honour cancellation while blocked on I/O.
	stop := context.AfterFunc(ctx, func() { _ = conn.SetDeadline(time.Now()) })
	defer stop()

	s := session{conn: conn, r: bufio.NewReader(conn), timeout: c.cfg.IOTimeout}

	if err := s.expect(); err != nil {
		return fmt.Errorf("daemon: greeting: %w", err)
	}
	for _, cmd := range []string{"helo " + c.cfg.Version, "execute query", "bye"} {
		if err := s.send(cmd); err != nil {
			return fmt.Errorf("daemon: send %q: %w", cmd, err)
		}
		if err := s.expect(); err != nil {
			return fmt.Errorf("daemon: after %q: %w", cmd, err)
		}
	}
	return nil
}

type session struct {
	conn    net.Conn
	r       *bufio.Reader
	timeout time.Duration
}

func (s *session) send(cmd string) error {
	if err := s.conn.SetWriteDeadline(time.Now().Add(s.timeout)); err != nil {
		return err
	}
	_, err := s.conn.Write([]byte(cmd + "\n"))
	return err
}

func (s *session) expect() error {
	if err := s.conn.SetReadDeadline(time.Now().Add(s.timeout)); err != nil {
		return err
	}
	line, err := s.r.ReadString('\n')
	if err != nil && line == "" {
		return err
	}
	line = strings.TrimRight(line, "\r\n")
	code, _, _ := strings.Cut(line, " ")
	if code != "250" {
		return fmt.Errorf("%w: %q", ErrUnexpectedReply, line)
	}
	return nil
}

// Nop is used when the panel runs without the daemon (for example when a
// cron job scans the schema instead).  Notify always succeeds.
type Nop struct{}

func (Nop) Notify(context.Context) error { return nil }
