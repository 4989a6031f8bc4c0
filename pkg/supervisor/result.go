package supervisor

import (
	"time"

	"github.com/cuemby/dataprocessor/pkg/events"
	"github.com/cuemby/dataprocessor/pkg/metrics"
)

// resultLoop drains every manager's result queue once per sweep
// (spec.md §4.G). Each item is popped exactly once and forwarded
// verbatim: the Python original's documented bug forwarded a second,
// separately-dequeued item instead of the one it already had in hand,
// silently dropping whatever that second pop returned. This reads the
// single item once and ships exactly that.
func (s *Supervisor) resultLoop() {
	defer s.wg.Done()

	for {
		select {
		case <-s.stopCh:
			return
		default:
		}

		time.Sleep(resultPollInterval)

		s.mu.RLock()
		managers := s.managers
		s.mu.RUnlock()

		for _, h := range managers {
			s.forwardOne(h)
		}
	}
}

func (s *Supervisor) forwardOne(h *managerHandle) {
	item, ok := h.mgr.ResultQueue().PopNoWait()
	if !ok {
		return
	}
	if h.resultSender == nil {
		// result_socket == "none": drop silently, per spec.md §4.F/G.
		return
	}
	if err := h.resultSender.Send(s.ctx, item); err != nil {
		s.logger.Error().Err(err).Str("manager", h.mgr.Name()).Msg("failed to forward result")
		metrics.PayloadsDroppedTotal.WithLabelValues(h.mgr.Name(), "send_error").Inc()
		s.publishEvent(events.EventPayloadDropped, "result send failed", map[string]string{"manager": h.mgr.Name(), "reason": "send_error"})
		return
	}
	metrics.ResultsForwardedTotal.WithLabelValues(h.mgr.Name()).Inc()
	s.publishEvent(events.EventResultForwarded, "result forwarded", map[string]string{"manager": h.mgr.Name()})
}
