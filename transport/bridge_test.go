package transport

import (
	"testing"
	"time"
)

func TestBridgeSendInvokesCallback(t *testing.T) {
	b := NewBridge()
	var got []byte
	b.OnSend = func(data []byte) error {
		got = data
		return nil
	}
	if err := b.Send([]byte("hello")); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if string(got) != "hello" {
		t.Fatalf("OnSend got %q, want %q", got, "hello")
	}
}

func TestBridgeNotifyMessageDeliversBytesEvent(t *testing.T) {
	b := NewBridge()
	b.NotifyMessage([]byte("payload"))
	select {
	case ev := <-b.Events():
		if ev.Kind != Bytes || string(ev.Data) != "payload" {
			t.Fatalf("got %+v, want Bytes event with payload", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for Bytes event")
	}
}

func TestBridgeCloseInvokesOnCloseAndEmitsClosed(t *testing.T) {
	b := NewBridge()
	closed := false
	b.OnClose = func() error {
		closed = true
		return nil
	}
	if err := b.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !closed {
		t.Fatal("OnClose was not invoked")
	}
	select {
	case ev := <-b.Events():
		if ev.Kind != Closed {
			t.Fatalf("got %+v, want Closed event", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for Closed event")
	}
}

func TestBridgeTimerRoundTrip(t *testing.T) {
	b := NewBridge()
	b.Connect(nil, "")
	b.ArmTimer(0, 10*time.Millisecond)
	select {
	case ev := <-b.Events():
		if ev.Kind != TimerExpired {
			t.Fatalf("got %+v, want TimerExpired", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for TimerExpired")
	}
}

func TestBridgeCancelTimerSuppressesExpiry(t *testing.T) {
	b := NewBridge()
	b.Connect(nil, "")
	b.ArmTimer(0, 10*time.Millisecond)
	b.CancelTimer(0)
	select {
	case ev := <-b.Events():
		t.Fatalf("got unexpected event %+v after CancelTimer", ev)
	case <-time.After(40 * time.Millisecond):
	}
}
