package timerset

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestArmFiresOnce(t *testing.T) {
	r := New()
	var fired int32
	r.Arm(PingreqSend, 10*time.Millisecond, func() { atomic.AddInt32(&fired, 1) })
	time.Sleep(60 * time.Millisecond)
	if got := atomic.LoadInt32(&fired); got != 1 {
		t.Fatalf("fired = %d, want 1", got)
	}
}

func TestArmResetsPriorArming(t *testing.T) {
	r := New()
	var fired int32
	r.Arm(PingreqSend, 10*time.Millisecond, func() { atomic.AddInt32(&fired, 1) })
	r.Arm(PingreqSend, 50*time.Millisecond, func() { atomic.AddInt32(&fired, 1) })
	time.Sleep(20 * time.Millisecond)
	if got := atomic.LoadInt32(&fired); got != 0 {
		t.Fatalf("fired = %d after 20ms, want 0 (prior arming should have been cancelled)", got)
	}
	time.Sleep(60 * time.Millisecond)
	if got := atomic.LoadInt32(&fired); got != 1 {
		t.Fatalf("fired = %d, want 1", got)
	}
}

func TestCancelSuppressesFire(t *testing.T) {
	r := New()
	var fired int32
	r.Arm(PingreqSend, 10*time.Millisecond, func() { atomic.AddInt32(&fired, 1) })
	r.Cancel(PingreqSend)
	time.Sleep(40 * time.Millisecond)
	if got := atomic.LoadInt32(&fired); got != 0 {
		t.Fatalf("fired = %d, want 0 after Cancel", got)
	}
	if r.Armed(PingreqSend) {
		t.Fatal("Armed() = true after Cancel")
	}
}

func TestClearAllSuppressesPendingFires(t *testing.T) {
	r := New()
	var fired int32
	r.Arm(PingreqSend, 5*time.Millisecond, func() { atomic.AddInt32(&fired, 1) })
	r.Arm(PingrespRecv, 5*time.Millisecond, func() { atomic.AddInt32(&fired, 1) })
	r.ClearAll()
	time.Sleep(40 * time.Millisecond)
	if got := atomic.LoadInt32(&fired); got != 0 {
		t.Fatalf("fired = %d, want 0 after ClearAll", got)
	}
}

func TestClearAllThenReopenAllowsArming(t *testing.T) {
	r := New()
	r.ClearAll()
	var fired int32
	r.Arm(PingreqSend, 5*time.Millisecond, func() { atomic.AddInt32(&fired, 1) })
	time.Sleep(30 * time.Millisecond)
	if got := atomic.LoadInt32(&fired); got != 0 {
		t.Fatalf("fired = %d after Arm while closed, want 0", got)
	}
	r.Reopen()
	r.Arm(PingreqSend, 5*time.Millisecond, func() { atomic.AddInt32(&fired, 1) })
	time.Sleep(30 * time.Millisecond)
	if got := atomic.LoadInt32(&fired); got != 1 {
		t.Fatalf("fired = %d after Reopen+Arm, want 1", got)
	}
}
