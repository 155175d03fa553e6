// internal/daemon/client_test.go
//
// Unit-tests for the daemon client against an in-process fake daemon.
//
// Run: go test ./internal/daemon -v

package daemon

import (
	"bufio"
	"context"
	"errors"
	"net"
	"strings"
	"sync"
	"testing"
	"time"
)

// fakeDaemon answers every line with the next scripted reply and records
// what it received.
type fakeDaemon struct {
	ln      net.Listener
	replies []string

	mu   sync.Mutex
	got  []string
	done chan struct{}
}

func startFake(t *testing.T, replies ...string) *fakeDaemon {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	f := &fakeDaemon{ln: ln, replies: replies, done: make(chan struct{})}
	t.Cleanup(func() { ln.Close() })
	go f.serve()
	return f
}

func (f *fakeDaemon) serve() {
	defer close(f.done)
	conn, err := f.ln.Accept()
	if err != nil {
		return
	}
	defer conn.Close()

	r := bufio.NewReader(conn)
	for i, reply := range f.replies {
		if i > 0 {
			line, err := r.ReadString('\n')
			if err != nil {
				return
			}
			f.mu.Lock()
			f.got = append(f.got, strings.TrimSpace(line))
			f.mu.Unlock()
		}
		if _, err := conn.Write([]byte(reply + "\n")); err != nil {
			return
		}
	}
}

func (f *fakeDaemon) received() []string {
	<-f.done
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.got...)
}

func TestNotifyConversation(t *testing.T) {
	f := startFake(t,
		"250 OK panel daemon ready",
		"250 OK helo accepted",
		"250 OK query scheduled",
		"250 OK bye",
	)
	c := New(Config{Addr: f.ln.Addr().String(), Version: "1.5.3", IOTimeout: time.Second})

	if err := c.Notify(context.Background()); err != nil {
		t.Fatalf("Notify: %v", err)
	}

	want := []string{"helo 1.5.3", "execute query", "bye"}
	got := f.received()
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("commands = %q, want %q", got, want)
	}
}

func TestNotifyRejectedReply(t *testing.T) {
	f := startFake(t,
		"250 OK ready",
		"500 unknown version",
	)
	c := New(Config{Addr: f.ln.Addr().String(), Version: "0.0", IOTimeout: time.Second})

	err := c.Notify(context.Background())
	if !errors.Is(err, ErrUnexpectedReply) {
		t.Fatalf("Notify err = %v, want ErrUnexpectedReply", err)
	}
}

func TestNotifyNoDaemon(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close() // nothing listens there any more

	c := New(Config{Addr: addr, DialTimeout: 200 * time.Millisecond})
	if err := c.Notify(context.Background()); err == nil {
		t.Fatal("Notify succeeded without a daemon")
	}
}

func TestNotifyHonoursContext(t *testing.T) {
	// The fake greets, then never answers helo.
	f := startFake(t, "250 OK ready")
	c := New(Config{Addr: f.ln.Addr().String(), IOTimeout: 10 * time.Second})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	if err := c.Notify(ctx); err == nil {
		t.Fatal("Notify succeeded against a silent daemon")
	}
	if time.Since(start) > 5*time.Second {
		t.Fatal("Notify ignored context cancellation")
	}
}

func TestNop(t *testing.T) {
	if err := (Nop{}).Notify(context.Background()); err != nil {
		t.Fatalf("Nop.Notify: %v", err)
	}
}
