package supervisor

import (
	"time"

	"github.com/cuemby/dataprocessor/pkg/events"
	"github.com/cuemby/dataprocessor/pkg/metrics"
	"github.com/cuemby/dataprocessor/pkg/queue"
	"github.com/cuemby/dataprocessor/pkg/transport"
)

// idleBackoff is how long an ingestion task sleeps between polls while
// stopdata is set, to avoid a tight spin.
const idleBackoff = 10 * time.Millisecond

// ingestLoop is the body of one of the two per-flow ingestion tasks
// spec.md §4.F describes (lp and hp); priority tags every item it
// produces for every manager's queue.
func (s *Supervisor) ingestLoop(recv transport.Receiver, priority queue.Priority, label string) {
	defer s.wg.Done()

	for {
		select {
		case <-s.stopCh:
			return
		default:
		}

		if s.StopDataInput() {
			time.Sleep(idleBackoff)
			continue
		}

		raw, err := recv.Recv(s.ctx)
		if err != nil {
			if s.ctx.Err() != nil {
				return
			}
			s.logger.Error().Err(err).Str("flow", label).Msg("ingestion receive failed")
			continue
		}

		items, err := s.decodeToItems(raw)
		if err != nil {
			s.logger.Warn().Err(err).Str("flow", label).Msg("dropping payload: decode failed")
			metrics.PayloadsDroppedTotal.WithLabelValues(s.fullname, "decode_error").Inc()
			s.publishEvent(events.EventPayloadDropped, "decode failed", map[string]string{"flow": label, "reason": "decode_error"})
			continue
		}

		s.mu.RLock()
		managers := s.managers
		s.mu.RUnlock()

		for _, item := range items {
			for _, h := range managers {
				h.mgr.Enqueue(item, priority)
				metrics.PayloadsIngestedTotal.WithLabelValues(h.mgr.Name(), priority.String()).Inc()
			}
		}
	}
}

// decodeToItems turns one received message into the sequence of items to
// enqueue, per spec.md §4.F's three dataflow_type behaviors.
func (s *Supervisor) decodeToItems(raw []byte) ([][]byte, error) {
	switch s.record.DataflowType {
	case "filename":
		return s.hooks.OpenFile(string(raw))
	case "string":
		return [][]byte{raw}, nil
	default: // "binary"
		return [][]byte{s.hooks.DecodeData(raw)}, nil
	}
}
