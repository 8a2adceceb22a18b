package watch

import (
	"context"
	"slices"
	"sort"
	"time"
)

// Debouncer merges bursts of change events. A merged event is emitted after
// quietPeriod without input, or maxWait after the first pending event,
// whichever comes first. The merged kind is the strongest kind seen.
type Debouncer struct {
	input       <-chan ChangeEvent
	output      chan ChangeEvent
	quietPeriod time.Duration
	maxWait     time.Duration
}

// NewDebouncer creates a new event debouncer.
func NewDebouncer(input <-chan ChangeEvent, quietPeriod, maxWait time.Duration) *Debouncer {
	return &Debouncer{
		input:       input,
		output:      make(chan ChangeEvent, 4),
		quietPeriod: quietPeriod,
		maxWait:     maxWait,
	}
}

// Start begins processing events with debouncing.
func (d *Debouncer) Start(ctx context.Context) {
	go d.run(ctx)
}

// Output returns the channel of debounced events. It is closed when the
// input closes or ctx is done.
func (d *Debouncer) Output() <-chan ChangeEvent {
	return d.output
}

func (d *Debouncer) run(ctx context.Context) {
	defer close(d.output)
	var (
		pending  *ChangeEvent
		quiet    <-chan time.Time
		deadline <-chan time.Time
	)
	flush := func() {
		if pending == nil {
			return
		}
		sort.Strings(pending.Paths)
		pending.Timestamp = time.Now()
		select {
		case d.output <- *pending:
		case <-ctx.Done():
		}
		pending, quiet, deadline = nil, nil, nil
	}

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-d.input:
			if !ok {
				flush()
				return
			}
			if pending == nil {
				pending = &ChangeEvent{Kind: ev.Kind}
				deadline = time.After(d.maxWait)
			}
			pending.Kind = max(pending.Kind, ev.Kind)
			for _, p := range ev.Paths {
				if !slices.Contains(pending.Paths, p) {
					pending.Paths = append(pending.Paths, p)
				}
			}
			quiet = time.After(d.quietPeriod)

		case <-quiet:
			flush()

		case <-deadline:
			flush()
		}
	}
}
