package notify

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/nicholas-fedor/shoutrrr"

	"storagemon/internal/events"
)

// Sender abstracts message dispatch so the dispatcher can be tested without
// hitting real services.
type Sender interface {
	Send(shoutrrrURL, message string) error
}

// ShoutrrrSender dispatches via the Shoutrrr library.
type ShoutrrrSender struct{}

func (ShoutrrrSender) Send(url, message string) error {
	return shoutrrr.Send(url, message)
}

// Dispatcher subscribes to the event bus, filters by severity, enforces a
// per-event-type cooldown, and dispatches via Shoutrrr.
type Dispatcher struct {
	url         string
	minSeverity events.Severity
	cooldown    time.Duration
	sender      Sender

	mu       sync.Mutex
	lastSent map[events.EventType]time.Time

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewDispatcher creates a dispatcher for the given Shoutrrr URL. A nil sender
// selects the production Shoutrrr sender.
func NewDispatcher(url string, minSeverity events.Severity, cooldown time.Duration, sender Sender) *Dispatcher {
	if sender == nil {
		sender = ShoutrrrSender{}
	}
	return &Dispatcher{
		url:         url,
		minSeverity: minSeverity,
		cooldown:    cooldown,
		sender:      sender,
		lastSent:    make(map[events.EventType]time.Time),
		stopCh:      make(chan struct{}),
	}
}

// Start subscribes to all events and begins dispatching.
func (d *Dispatcher) Start(bus *events.Bus) {
	ch := make(chan events.Event, 256)

	bus.Subscribe(func(e events.Event) {
		select {
		case ch <- e:
		default:
			log.Printf("notify: event queue full, dropping %s event", e.Type)
		}
	})

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for {
			select {
			case e := <-ch:
				d.handle(e)
			case <-d.stopCh:
				// Drain remaining events
				for {
					select {
					case e := <-ch:
						d.handle(e)
					default:
						return
					}
				}
			}
		}
	}()
}

// Stop drains pending events and shuts the dispatcher down.
func (d *Dispatcher) Stop() {
	close(d.stopCh)
	d.wg.Wait()
}

func (d *Dispatcher) handle(e events.Event) {
	if d.url == "" || e.Severity < d.minSeverity {
		return
	}
	if !d.claimSlot(e.Type, e.Timestamp) {
		return
	}

	msg := fmt.Sprintf("[%s] %s: %s", e.Severity, e.Type, e.Message)
	if err := d.sender.Send(d.url, msg); err != nil {
		log.Printf("notify: dispatch of %s failed: %v", e.Type, err)
	}
}

// claimSlot enforces the per-type cooldown; it records the send time only
// when the send is allowed.
func (d *Dispatcher) claimSlot(t events.EventType, at time.Time) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if last, ok := d.lastSent[t]; ok && at.Sub(last) < d.cooldown {
		return false
	}
	d.lastSent[t] = at
	return true
}
