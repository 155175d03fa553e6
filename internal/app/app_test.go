package app

import (
	"testing"
	"time"

	"github.com/yanizio/panel/internal/config"
	"github.com/yanizio/panel/internal/daemon"
)

func TestNewNotifier(t *testing.T) {
	if _, ok := NewNotifier(config.Daemon{Type: "none"}).(daemon.Nop); !ok {
		t.Error("type none did not give daemon.Nop")
	}
	if _, ok := NewNotifier(config.Daemon{Type: "imscp", Addr: "127.0.0.1:9876"}).(*daemon.Client); !ok {
		t.Error("type imscp did not give *daemon.Client")
	}
}

func TestTaskConfig(t *testing.T) {
	got := TaskConfig(config.Queue{Lease: time.Minute, MaxAttempts: 3, BatchSize: 10})
	if got.Lease != time.Minute || got.MaxAttempts != 3 || got.BatchSize != 10 || got.PollInterval != 0 {
		t.Fatalf("TaskConfig = %+v", got)
	}
}
