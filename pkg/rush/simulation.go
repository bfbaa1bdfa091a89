package rush

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// simulate advances the sandbox delivery through the canonical status
// sequence one stage per tick. Each stage goes through the same status-update
// path as live polling: the sandbox is told what to report, and the next real
// poll picks it up. The driver stops itself once the poll loop is no longer
// active or the sequence is exhausted.
func (d *Delivery) simulate(delay time.Duration) {
	if delay <= 0 {
		delay = defaultSimulationInterval
	}

	d.mu.Lock()
	d.stopSimulationLocked()
	stop := make(chan struct{})
	d.simStop = stop
	d.mu.Unlock()

	d.logger.Debug("simulating delivery",
		zap.Duration("stage_delay", delay),
	)

	go func() {
		sequence := SimulationSequence()
		next := 0

		ticker := time.NewTicker(delay)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
			}

			if !d.Polling() || next >= len(sequence) {
				d.mu.Lock()
				if d.simStop == stop {
					d.simStop = nil
				}
				d.mu.Unlock()
				return
			}

			d.updateStatus(context.Background(), sequence[next])
			next++
		}
	}()
}
