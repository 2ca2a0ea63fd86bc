package transport

import (
	"context"
	"sync"
	"time"

	"github.com/arrowmq/endpoint/timerset"
)

// Bridge is the host-provided Transport spec §4.6/§6 describes: an
// external layer (a browser WebSocket polyfill, a language binding's
// own socket) performs the actual I/O and drives this type through its
// Notify* methods, while the endpoint loop drives the host through the
// OnSend/OnClose callbacks Bridge invokes. Connect on a Bridge has
// nothing to dial — the host is assumed to already be opening its own
// connection — so it only arms the pending-connect bookkeeping and
// waits for NotifyConnected/NotifyError.
type Bridge struct {
	OnSend  func(b []byte) error
	OnClose func() error

	mu      sync.Mutex
	events  chan Event
	timers  *timerset.Registry
	started bool
}

// NewBridge returns a Bridge with OnSend/OnClose left for the caller to
// set before the endpoint's Connect is issued.
func NewBridge() *Bridge {
	return &Bridge{
		events: make(chan Event, 64),
		timers: timerset.New(),
	}
}

// Connect is a no-op beyond bookkeeping: the host is responsible for
// establishing its own connection and calling NotifyConnected or
// NotifyError once it knows the outcome.
func (b *Bridge) Connect(ctx context.Context, url string) error {
	b.mu.Lock()
	b.started = true
	b.timers.Reopen()
	b.mu.Unlock()
	return nil
}

func (b *Bridge) Send(data []byte) error {
	if b.OnSend == nil {
		return nil
	}
	return b.OnSend(data)
}

func (b *Bridge) Close() error {
	var err error
	if b.OnClose != nil {
		err = b.OnClose()
	}
	b.timers.ClearAll()
	b.events <- Event{Kind: Closed}
	return err
}

func (b *Bridge) Events() <-chan Event { return b.events }

func (b *Bridge) ArmTimer(kind timerset.Kind, d time.Duration) {
	b.timers.Arm(kind, d, func() {
		b.events <- Event{Kind: TimerExpired, Timer: kind}
	})
}

func (b *Bridge) CancelTimer(kind timerset.Kind) {
	b.timers.Cancel(kind)
}

// NotifyConnected tells the endpoint loop the host's connection is up.
func (b *Bridge) NotifyConnected() { b.events <- Event{Kind: Connected} }

// NotifyMessage delivers host-received bytes upward.
func (b *Bridge) NotifyMessage(data []byte) { b.events <- Event{Kind: Bytes, Data: data} }

// NotifyError reports a host-side transport failure.
func (b *Bridge) NotifyError(err error) { b.events <- Event{Kind: Error, Err: err} }

// NotifyClosed reports that the host's connection has ended.
func (b *Bridge) NotifyClosed() {
	b.timers.ClearAll()
	b.events <- Event{Kind: Closed}
}
