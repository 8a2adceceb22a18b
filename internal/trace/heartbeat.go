package trace

import (
	"fmt"
	"sync/atomic"
	"time"
)

// Heartbeat emits a liveness event every interval, carrying the last status
// set by the build. A stream that keeps beating with an unchanged status
// and no span ends points at a stuck phase.
type Heartbeat struct {
	tracer   Tracer
	interval time.Duration
	status   atomic.Pointer[string]
	stop     chan struct{}
	done     chan struct{}
	once     atomic.Bool
}

// StartHeartbeat starts beating. It returns nil when tracing is off; all
// methods accept a nil receiver.
func StartHeartbeat(tracer Tracer, interval time.Duration) *Heartbeat {
	if tracer == nil || !tracer.Enabled() || interval <= 0 {
		return nil
	}
	h := &Heartbeat{
		tracer:   tracer,
		interval: interval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go h.run()
	return h
}

// SetStatus replaces the status reported by the next beats.
func (h *Heartbeat) SetStatus(s string) {
	if h == nil {
		return
	}
	h.status.Store(&s)
}

func (h *Heartbeat) run() {
	defer close(h.done)
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	var beats uint64
	for {
		select {
		case <-h.stop:
			return
		case <-ticker.C:
			beats++
			detail := fmt.Sprintf("#%d", beats)
			if s := h.status.Load(); s != nil && *s != "" {
				detail += " " + *s
			}
			h.tracer.Emit(&Event{
				Time:   time.Now(),
				Kind:   KindHeartbeat,
				Scope:  ScopeDriver,
				GID:    getGoroutineID(),
				Name:   "heartbeat",
				Detail: detail,
			})
		}
	}
}

// Stop ends the beat loop and waits for it. Safe to call twice.
func (h *Heartbeat) Stop() {
	if h == nil || !h.once.CompareAndSwap(false, true) {
		return
	}
	close(h.stop)
	<-h.done
}
