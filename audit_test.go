package authkit

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"
)

func TestChannelSinkReceivesEvents(t *testing.T) {
	sink := NewChannelSink(4)
	cfg := fastConfig()
	env := newTestEngineWithSink(t, cfg, sink)

	_, _ = env.engine.Login(context.Background(), "ghost@x.com", "whatever")

	select {
	case event := <-sink.Events():
		if event.EventType != auditEventLoginFailure {
			t.Fatalf("event type = %q", event.EventType)
		}
		if event.Success {
			t.Fatal("failure event marked success")
		}
		if event.Metadata["email"] != "g****@x.com" {
			t.Fatalf("metadata email = %q", event.Metadata["email"])
		}
	case <-time.After(time.Second):
		t.Fatal("no audit event received")
	}
}

func TestJSONWriterSinkWritesNDJSON(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONWriterSink(&buf)

	sink.Emit(context.Background(), AuditEvent{
		Timestamp: time.Unix(1_700_000_000, 0).UTC(),
		EventType: auditEventRegister,
		AccountID: "a1",
		Success:   true,
	})

	var decoded AuditEvent
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded.EventType != auditEventRegister || decoded.AccountID != "a1" {
		t.Fatalf("decoded event: %+v", decoded)
	}
	if buf.Bytes()[buf.Len()-1] != '\n' {
		t.Fatal("missing trailing newline")
	}
}

// collectingSink records events synchronously for assertions.
type collectingSink struct {
	mu     sync.Mutex
	events []AuditEvent
}

func (s *collectingSink) Emit(_ context.Context, event AuditEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func (s *collectingSink) all() []AuditEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]AuditEvent, len(s.events))
	copy(out, s.events)
	return out
}

func TestAsyncSinkDeliversAndFlushesOnClose(t *testing.T) {
	inner := &collectingSink{}
	sink := NewAsyncSink(inner, 16, false)

	for i := 0; i < 10; i++ {
		sink.Emit(context.Background(), AuditEvent{EventType: auditEventOTPIssued})
	}
	sink.Close()

	if got := len(inner.all()); got != 10 {
		t.Fatalf("delivered %d events, want 10", got)
	}
	if sink.Dropped() != 0 {
		t.Fatalf("dropped = %d, want 0", sink.Dropped())
	}

	// Emit after close is a silent no-op.
	sink.Emit(context.Background(), AuditEvent{EventType: auditEventOTPIssued})
	if got := len(inner.all()); got != 10 {
		t.Fatalf("post-close emit delivered: %d events", got)
	}
}

func TestAsyncSinkDropsWhenFull(t *testing.T) {
	block := make(chan struct{})
	inner := blockingSink{release: block}
	sink := NewAsyncSink(inner, 1, true)

	// First event occupies the worker, second fills the buffer, the rest drop.
	for i := 0; i < 10; i++ {
		sink.Emit(context.Background(), AuditEvent{EventType: auditEventOTPIssued})
	}
	close(block)
	sink.Close()

	if sink.Dropped() == 0 {
		t.Fatal("expected dropped events under backpressure")
	}
}

// blockingSink blocks every Emit until release is closed.
type blockingSink struct {
	release chan struct{}
}

func (s blockingSink) Emit(context.Context, AuditEvent) {
	<-s.release
}

func TestEngineAuditDropped(t *testing.T) {
	env := newTestEngine(t, fastConfig())
	if env.engine.AuditDropped() != 0 {
		t.Fatal("synchronous sink reported drops")
	}
}

func TestAuditEventsCarryClientIP(t *testing.T) {
	sink := &collectingSink{}
	env := newTestEngineWithSink(t, fastConfig(), sink)

	ctx := WithClientIP(context.Background(), "10.1.2.3")
	_, _ = env.engine.Login(ctx, "ghost@x.com", "whatever")

	events := sink.all()
	if len(events) == 0 {
		t.Fatal("no audit events recorded")
	}
	if events[0].IP != "10.1.2.3" {
		t.Fatalf("event ip = %q", events[0].IP)
	}
}
