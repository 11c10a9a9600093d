package transport

import (
	"errors"
	"testing"
)

// fakeConn records every message written to it and can be told to fail.
type fakeConn struct {
	messages []any
	fail     bool
	closed   bool
}

func (c *fakeConn) WriteJSON(v any) error {
	if c.fail {
		return errors.New("write failed")
	}
	c.messages = append(c.messages, v)
	return nil
}

func (c *fakeConn) Close() error {
	c.closed = true
	return nil
}

func TestBroadcastReachesAllInScope(t *testing.T) {
	r := NewRegistry()
	a, b, other := &fakeConn{}, &fakeConn{}, &fakeConn{}
	r.Attach("g1", a, 1)
	r.Attach("g1", b, 2)
	r.Attach("g2", other, 1)

	r.Broadcast("g1", "hello")

	if len(a.messages) != 1 || len(b.messages) != 1 {
		t.Fatalf("expected both g1 connections to receive, got %d/%d", len(a.messages), len(b.messages))
	}
	if len(other.messages) != 0 {
		t.Fatal("g2 connection should not receive g1 broadcasts")
	}
}

func TestSendTargetsSlotOnly(t *testing.T) {
	r := NewRegistry()
	player, spectator := &fakeConn{}, &fakeConn{}
	r.Attach("g1", player, 1)
	r.Attach("g1", spectator, SpectatorSlot)

	r.Send("g1", 1, "secret")

	if len(player.messages) != 1 {
		t.Fatal("slot 1 should receive its message")
	}
	if len(spectator.messages) != 0 {
		t.Fatal("spectator should not receive slot-addressed messages")
	}
}

func TestBroadcastExceptSkipsSlot(t *testing.T) {
	r := NewRegistry()
	a, b := &fakeConn{}, &fakeConn{}
	r.Attach("g1", a, 1)
	r.Attach("g1", b, 2)

	r.BroadcastExcept("g1", 1, "msg")

	if len(a.messages) != 0 {
		t.Fatal("excluded slot should not receive")
	}
	if len(b.messages) != 1 {
		t.Fatal("other slot should receive")
	}
}

func TestFailedWriteDetaches(t *testing.T) {
	r := NewRegistry()
	bad, good := &fakeConn{fail: true}, &fakeConn{}
	r.Attach("g1", bad, 1)
	r.Attach("g1", good, 2)

	r.Broadcast("g1", "first")
	if !r.HasConnections("g1") {
		t.Fatal("healthy connection should remain")
	}

	bad.fail = false
	r.Broadcast("g1", "second")
	if len(bad.messages) != 0 {
		t.Fatal("failed connection should have been detached after first broadcast")
	}
	if len(good.messages) != 2 {
		t.Fatalf("healthy connection should have both messages, got %d", len(good.messages))
	}
}

func TestDetachRemovesScopeWhenEmpty(t *testing.T) {
	r := NewRegistry()
	a := &fakeConn{}
	r.Attach("g1", a, 1)
	r.Detach("g1", a)
	if r.HasConnections("g1") {
		t.Fatal("scope should be empty after detaching its only connection")
	}
}

func TestCloseScopeClosesConnections(t *testing.T) {
	r := NewRegistry()
	a := &fakeConn{}
	r.Attach("g1", a, 1)
	r.CloseScope("g1")
	if !a.closed {
		t.Fatal("CloseScope should close the connection")
	}
	if r.HasConnections("g1") {
		t.Fatal("scope should be gone")
	}
}
