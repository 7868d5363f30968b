// Package metrics aggregates counters, gauges and a stage into snapshots
// that subscribers can follow in real time.
package metrics

import (
	"maps"
	"sync"
	"time"
)

// Stage is the lifecycle position of the observed operation.
type Stage string

const (
	StageIdle       Stage = "idle"
	StageRequesting Stage = "requesting"
	StageRetry      Stage = "retry"
	StageTimeout    Stage = "timeout"
	StageError      Stage = "error"
	StageComplete   Stage = "complete"
)

// Delta is a partial update. Counters are added, gauges replace the
// previous value and a non-empty Stage replaces the current stage.
type Delta struct {
	Stage    Stage
	Counters map[string]int64
	Gauges   map[string]float64
}

// Snapshot is the aggregated state after Seq deltas.
type Snapshot struct {
	Seq       uint64
	Stage     Stage
	Counters  map[string]int64
	Gauges    map[string]float64
	UpdatedAt time.Time
}

// Counter returns the named counter, zero when unset.
func (s Snapshot) Counter(name string) int64 { return s.Counters[name] }

// Gauge returns the named gauge, zero when unset.
func (s Snapshot) Gauge(name string) float64 { return s.Gauges[name] }

func (s Snapshot) clone() Snapshot {
	s.Counters = maps.Clone(s.Counters)
	s.Gauges = maps.Clone(s.Gauges)
	return s
}

// Reporter is safe for concurrent use. A nil *Reporter discards updates.
type Reporter struct {
	mu     sync.Mutex
	state  Snapshot
	subs   map[int]chan Snapshot
	nextID int
	closed bool
	now    func() time.Time
}

// NewReporter returns a reporter in the idle stage.
func NewReporter() *Reporter {
	r := &Reporter{
		subs: make(map[int]chan Snapshot),
		now:  time.Now,
	}
	r.state = Snapshot{
		Stage:     StageIdle,
		Counters:  make(map[string]int64),
		Gauges:    make(map[string]float64),
		UpdatedAt: r.now(),
	}
	return r
}

// Apply folds d into the state and publishes the result.
func (r *Reporter) Apply(d Delta) Snapshot {
	if r == nil {
		return Snapshot{}
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	for k, v := range d.Counters {
		r.state.Counters[k] += v
	}
	for k, v := range d.Gauges {
		r.state.Gauges[k] = v
	}
	if d.Stage != "" {
		r.state.Stage = d.Stage
	}
	r.state.Seq++
	r.state.UpdatedAt = r.now()

	snap := r.state.clone()
	if !r.closed {
		for _, ch := range r.subs {
			push(ch, snap.clone())
		}
	}
	return snap
}

// Incr adds n to a counter.
func (r *Reporter) Incr(name string, n int64) {
	r.Apply(Delta{Counters: map[string]int64{name: n}})
}

// SetGauge replaces a gauge.
func (r *Reporter) SetGauge(name string, v float64) {
	r.Apply(Delta{Gauges: map[string]float64{name: v}})
}

// SetStage moves to stage s.
func (r *Reporter) SetStage(s Stage) {
	r.Apply(Delta{Stage: s})
}

// Snapshot returns a copy of the current state.
func (r *Reporter) Snapshot() Snapshot {
	if r == nil {
		return Snapshot{}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.clone()
}

// Subscribe returns a channel that receives the current snapshot
// immediately and then one snapshot per applied delta. When the buffer is
// full the oldest pending snapshot is dropped, so the latest state always
// arrives. The returned func unsubscribes and closes the channel.
func (r *Reporter) Subscribe(buffer int) (<-chan Snapshot, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Snapshot, buffer)
	if r == nil {
		close(ch)
		return ch, func() {}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		close(ch)
		return ch, func() {}
	}
	id := r.nextID
	r.nextID++
	r.subs[id] = ch
	push(ch, r.state.clone())

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			if c, ok := r.subs[id]; ok {
				delete(r.subs, id)
				close(c)
			}
		})
	}
}

// Close closes every subscriber channel. Later deltas still update the
// state but are not published.
func (r *Reporter) Close() {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.closed = true
	for id, ch := range r.subs {
		delete(r.subs, id)
		close(ch)
	}
}

// push never blocks: a full channel loses its oldest snapshot.
func push(ch chan Snapshot, s Snapshot) {
	select {
	case ch <- s:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- s:
	default:
	}
}
