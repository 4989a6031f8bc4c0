package supervisor

import (
	"time"

	"github.com/cuemby/dataprocessor/pkg/events"
	"github.com/cuemby/dataprocessor/pkg/manager"
	"github.com/cuemby/dataprocessor/pkg/metrics"
	"github.com/cuemby/dataprocessor/pkg/transport"
)

// commandLoop is the command listener described in spec.md §4.H: it
// blocks on the command endpoint, parses each message as JSON, logs it
// unconditionally, and only dispatches when the target matches.
func (s *Supervisor) commandLoop() {
	defer s.wg.Done()

	for {
		select {
		case <-s.stopCh:
			return
		default:
		}

		raw, err := s.command.Recv(s.ctx)
		if err != nil {
			if s.ctx.Err() != nil {
				return
			}
			s.logger.Error().Err(err).Msg("command receive failed")
			continue
		}

		msg, err := transport.DecodeCommand(raw)
		if err != nil {
			s.logger.Warn().Err(err).Msg("ignoring malformed command")
			continue
		}

		s.logger.Info().
			Str("subtype", msg.Header.Subtype).
			Str("pidtarget", msg.Header.PidTarget).
			Str("pidsource", msg.Header.PidSource).
			Msg("received command")

		s.publishEvent(events.EventCommandReceived, msg.Header.Subtype, map[string]string{
			"subtype":   msg.Header.Subtype,
			"pidsource": msg.Header.PidSource,
		})

		if !transport.TargetsPid(msg.Header.PidTarget, s.name) {
			continue
		}

		timer := metrics.NewTimer()
		s.dispatch(msg.Header.Subtype, msg.Header.PidSource)
		timer.ObserveDurationVec(metrics.CommandDispatchDuration, msg.Header.Subtype)
		metrics.CommandsTotal.WithLabelValues(msg.Header.Subtype).Inc()
	}
}

func (s *Supervisor) dispatch(subtype, pidsource string) {
	switch subtype {
	case "start":
		s.CommandStart()
	case "stop":
		s.CommandStop()
	case "stopdata":
		s.CommandStopData()
	case "startdata":
		s.CommandStartData()
	case "reset":
		s.CommandReset()
	case "getstatus":
		s.CommandGetStatus(pidsource)
	case "shutdown":
		s.CommandShutdown()
	case "cleanedshutdown":
		s.CommandCleanedShutdown()
	default:
		s.logger.Warn().Str("subtype", subtype).Msg("ignoring unknown command subtype")
	}
}

func (s *Supervisor) withManagers(fn func(*managerHandle)) {
	s.mu.RLock()
	managers := s.managers
	s.mu.RUnlock()
	for _, h := range managers {
		fn(h)
	}
}

// CommandStart implements the "start" subtype: enter Processing and open
// the gate on every manager's workers.
func (s *Supervisor) CommandStart() {
	s.setState(StateProcessing)
	s.withManagers(func(h *managerHandle) {
		h.mgr.SetState(manager.StatusProcessing)
		h.mgr.SetProcessData(1)
	})
}

// CommandStop implements the "stop" subtype: enter Waiting and close the
// gate on every manager's workers.
func (s *Supervisor) CommandStop() {
	s.setState(StateWaiting)
	s.withManagers(func(h *managerHandle) {
		h.mgr.SetState(manager.StatusWaiting)
		h.mgr.SetProcessData(0)
	})
}

// CommandStopData implements "stopdata": ingestion tasks stop enqueuing.
func (s *Supervisor) CommandStopData() {
	s.mu.Lock()
	s.stopdata = true
	s.mu.Unlock()
	s.withManagers(func(h *managerHandle) { h.mgr.SetStopDataInput(true) })
}

// CommandStartData implements "startdata": ingestion resumes enqueuing.
func (s *Supervisor) CommandStartData() {
	s.mu.Lock()
	s.stopdata = false
	s.mu.Unlock()
	s.withManagers(func(h *managerHandle) { h.mgr.SetStopDataInput(false) })
}

// CommandGetStatus implements "getstatus": every manager's reporter sends
// one directed snapshot addressed to pidsource.
func (s *Supervisor) CommandGetStatus(pidsource string) {
	s.withManagers(func(h *managerHandle) { h.mgr.RequestDirectedStatus(pidsource) })
}

// CommandReset implements "reset": only valid from Processing or Waiting;
// stops data and processing, empties every manager's queues, and returns
// to Waiting.
func (s *Supervisor) CommandReset() {
	state := s.State()
	if state != StateProcessing && state != StateWaiting {
		s.logger.Warn().Str("state", string(state)).Msg("reset ignored: not in Processing or Waiting")
		return
	}
	s.CommandStopData()
	s.CommandStop()
	s.withManagers(func(h *managerHandle) {
		h.mgr.CleanQueue()
		s.logger.Info().Str("manager", h.mgr.Name()).Msg("manager queues reset")
	})
	s.setState(StateWaiting)
}

// CommandShutdown implements "shutdown": a forced, immediate shutdown
// that does not wait for queue drain.
func (s *Supervisor) CommandShutdown() {
	s.CommandStopData()
	s.CommandStop()
	s.stopAll(true)
	s.setState(StateShutdown)
}

// CommandCleanedShutdown implements "cleanedshutdown": only waits for a
// graceful drain when the supervisor is in Processing; otherwise it warns
// and falls through to a forced shutdown, matching spec.md §4.F.
func (s *Supervisor) CommandCleanedShutdown() {
	if s.State() == StateProcessing {
		s.setState(StateEndingProcessing)
		s.CommandStopData()
		s.withManagers(func(h *managerHandle) {
			h.mgr.SetState(manager.StatusEndingProcessing)
			s.logger.Info().Str("manager", h.mgr.Name()).Msg("waiting for manager queues to drain")
			for !h.mgr.QueuesEmpty() {
				select {
				case <-s.stopCh:
					return
				default:
				}
				time.Sleep(cleanedShutdownPollInterval)
			}
			h.mgr.SetState(manager.StatusShutdown)
		})
	} else {
		s.logger.Warn().Str("state", string(s.State())).Msg("not in Processing state for a cleaned shutdown, forcing shutdown")
	}
	s.CommandStop()
	s.stopAll(false)
	s.setState(StateShutdown)
}

// stopAll tears down every manager and background task. fast controls
// whether thread-mode managers wait for their workers to finish their
// current item; process-mode managers are always stopped with fast=false
// (spec.md §4.F: "if manager.processingtype == process: manager.stop(False)").
func (s *Supervisor) stopAll(fast bool) {
	s.shutdownOnce.Do(func() {
		s.logger.Info().Bool("fast", fast).Msg("stopping all managers and workers")

		s.CommandStopData()
		s.CommandStop()
		time.Sleep(100 * time.Millisecond)

		s.withManagers(func(h *managerHandle) {
			if h.mgr.ProcessingType() == "process" {
				h.mgr.Stop(false)
			} else {
				h.mgr.Stop(fast)
			}
			s.publishEvent(events.EventManagerStopped, h.mgr.Name()+" stopped", map[string]string{"manager": h.mgr.Name()})
		})

		// Close the sockets the ingestion and command loops block on
		// first, so a pending Recv unblocks with an error; only then
		// signal stopCh so the next loop iteration sees it and returns,
		// and only then wait for those goroutines to exit. Closing
		// stopCh before the sockets would leave a loop parked inside a
		// blocking Recv with nothing to wake it.
		s.dataLP.Close()
		s.dataHP.Close()
		s.command.Close()

		close(s.stopCh)
		s.wg.Wait()

		s.cancel()
		s.monitoring.Close()
		s.withManagers(func(h *managerHandle) {
			if h.resultSender != nil {
				h.resultSender.Close()
			}
		})

		s.logger.Info().Msg("all managers and workers terminated")
		if s.eventBroker != nil {
			s.eventBroker.Stop()
		}
		close(s.shutdownDone)
	})
}
