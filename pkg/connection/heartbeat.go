package connection

import (
	"log/slog"
	"sync"
	"time"
)

// heartbeat is the liveness state machine for one open connection.
//
// Each tick either terminates a connection whose missed count exceeded
// the threshold, or sends one probe, increments the missed count, and
// reschedules itself. A liveness reply resets the count; that is the
// only path that prevents the degraded connection from being
// terminated. The missed counter tolerates transient delay while
// bounding total staleness to maxMissed+1 intervals.
//
// At most one timer is pending per heartbeat; stop cancels it.
type heartbeat struct {
	interval  time.Duration
	maxMissed int
	log       *slog.Logger

	// probe sends one liveness frame; terminate force-closes the
	// transport without a close handshake, since a remote this stale
	// may not answer a graceful one.
	probe     func() error
	terminate func()

	mu      sync.Mutex
	missed  int
	timer   *time.Timer
	stopped bool
}

func newHeartbeat(interval time.Duration, maxMissed int, log *slog.Logger, probe func() error, terminate func()) *heartbeat {
	if log == nil {
		log = slog.Default()
	}

	return &heartbeat{
		interval:  interval,
		maxMissed: maxMissed,
		log:       log.With("component", "connection.heartbeat"),
		probe:     probe,
		terminate: terminate,
	}
}

// start schedules the first tick.
func (h *heartbeat) start() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.stopped || h.timer != nil {
		return
	}
	h.timer = time.AfterFunc(h.interval, h.tick)
}

// stop cancels the pending tick. Safe to call repeatedly.
func (h *heartbeat) stop() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.stopped = true
	if h.timer != nil {
		h.timer.Stop()
		h.timer = nil
	}
}

// reset clears the missed count after a liveness reply.
func (h *heartbeat) reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.missed = 0
}

// missedCount returns probes sent since the last reply.
func (h *heartbeat) missedCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.missed
}

// tick runs one heartbeat step.
func (h *heartbeat) tick() {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return
	}

	if h.missed > h.maxMissed {
		h.stopped = true
		h.timer = nil
		missed := h.missed
		h.mu.Unlock()

		h.log.Error("Connection lost: heartbeat threshold exceeded", "missed", missed, "max_missed", h.maxMissed)
		h.terminate()
		return
	}

	h.missed++
	h.mu.Unlock()

	if err := h.probe(); err != nil {
		h.log.Warn("Failed to send heartbeat probe", "error", err)
	}

	h.mu.Lock()
	if !h.stopped {
		h.timer = time.AfterFunc(h.interval, h.tick)
	}
	h.mu.Unlock()
}
