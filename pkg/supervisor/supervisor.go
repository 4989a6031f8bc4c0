package supervisor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cuemby/dataprocessor/pkg/config"
	"github.com/cuemby/dataprocessor/pkg/events"
	"github.com/cuemby/dataprocessor/pkg/log"
	"github.com/cuemby/dataprocessor/pkg/manager"
	"github.com/cuemby/dataprocessor/pkg/metrics"
	"github.com/cuemby/dataprocessor/pkg/monitor"
	"github.com/cuemby/dataprocessor/pkg/queue"
	"github.com/cuemby/dataprocessor/pkg/transport"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// State is the supervisor's own lifecycle state (spec.md §3).
type State string

const (
	StateInitialised      State = "Initialised"
	StateWaiting          State = "Waiting"
	StateProcessing       State = "Processing"
	StateEndingProcessing State = "EndingProcessing"
	StateShutdown         State = "Shutdown"
)

// DefaultReportInterval is the monitoring cadence handed to every
// manager's reporter unless Config overrides it (spec.md §4.C).
const DefaultReportInterval = time.Second

// resultPollInterval is the sleep between result-forwarder sweeps
// (spec.md §5: "suspends on a small fixed sleep (~1ms)").
const resultPollInterval = time.Millisecond

// cleanedShutdownPollInterval is how often cleanedshutdown checks a
// manager's queues for drain completion (spec.md §5: "polls queue sizes
// every 100 ms").
const cleanedShutdownPollInterval = 100 * time.Millisecond

// Config describes one supervisor instance: the named configuration
// record selected at startup, plus the hooks a concrete data processor
// supplies.
type Config struct {
	Name           string
	Record         *config.Record
	ShmDir         string
	ReportInterval time.Duration
	Hooks          Hooks
}

// managerHandle pairs a manager with the egress endpoint its results are
// forwarded to, since that socket is owned by the supervisor, not the
// manager itself (spec.md §3 Ownership).
type managerHandle struct {
	mgr              *manager.Manager
	resultSocket     string
	resultSocketType string
	resultDataflow   string
	resultSender     transport.Sender
}

// Supervisor is the top-level runtime described in spec.md §4.F.
type Supervisor struct {
	mu sync.RWMutex

	name     string
	fullname string
	record   *config.Record
	shmDir   string
	interval time.Duration
	hooks    Hooks

	ctx    context.Context
	cancel context.CancelFunc

	dataLP     transport.Receiver
	dataHP     transport.Receiver
	command    transport.Receiver
	monitoring transport.Sender

	managers []*managerHandle

	state    State
	stopdata bool

	stopCh       chan struct{}
	wg           sync.WaitGroup
	shutdownOnce sync.Once
	shutdownDone chan struct{}

	eventBroker *events.Broker

	logger zerolog.Logger
}

// New builds a Supervisor in the Initialised state: it validates the
// configuration record and binds/connects every transport endpoint
// spec.md §4.F names, but does not yet start managers or workers.
func New(cfg Config) (*Supervisor, error) {
	if cfg.Record == nil {
		return nil, fmt.Errorf("supervisor %q: no configuration record supplied", cfg.Name)
	}
	if err := cfg.Record.Require(); err != nil {
		return nil, err
	}

	interval := cfg.ReportInterval
	if interval <= 0 {
		interval = DefaultReportInterval
	}

	hooks := cfg.Hooks
	if hooks.DecodeData == nil || hooks.OpenFile == nil || hooks.NewProcess == nil || hooks.NewChildProcess == nil {
		hooks = DefaultHooks()
	}

	fullname := "Supervisor-" + cfg.Name
	ctx, cancel := context.WithCancel(context.Background())

	eventBroker := events.NewBroker()
	eventBroker.Start()

	s := &Supervisor{
		name:         cfg.Name,
		fullname:     fullname,
		record:       cfg.Record,
		shmDir:       cfg.ShmDir,
		interval:     interval,
		hooks:        hooks,
		ctx:          ctx,
		cancel:       cancel,
		state:        StateInitialised,
		shutdownDone: make(chan struct{}),
		eventBroker:  eventBroker,
		logger:       log.WithSupervisor(cfg.Name),
	}

	dataLP, err := transport.NewDataIngress(ctx, cfg.Record.DataSocketType, cfg.Record.DataLPSocket)
	if err != nil {
		cancel()
		return nil, err
	}
	dataHP, err := transport.NewDataIngress(ctx, cfg.Record.DataSocketType, cfg.Record.DataHPSocket)
	if err != nil {
		cancel()
		dataLP.Close()
		return nil, err
	}
	command, err := transport.NewSubConnect(ctx, cfg.Record.CommandSocket)
	if err != nil {
		cancel()
		dataLP.Close()
		dataHP.Close()
		return nil, err
	}
	monitoring, err := transport.NewPushConnect(ctx, cfg.Record.MonitoringSocket)
	if err != nil {
		cancel()
		dataLP.Close()
		dataHP.Close()
		command.Close()
		return nil, err
	}

	s.dataLP = dataLP
	s.dataHP = dataHP
	s.command = command
	s.monitoring = monitoring

	s.logger.Info().
		Str("dataflow", cfg.Record.DataflowType).
		Str("processing", cfg.Record.ProcessingType).
		Str("datasocket", cfg.Record.DataSocketType).
		Msg("supervisor initialised")

	return s, nil
}

// State returns the supervisor's current lifecycle state.
func (s *Supervisor) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Supervisor) setState(state State) {
	s.mu.Lock()
	prev := s.state
	s.state = state
	s.mu.Unlock()

	metrics.SupervisorStatus.WithLabelValues(s.name, string(prev)).Set(0)
	metrics.SupervisorStatus.WithLabelValues(s.name, string(state)).Set(1)
	s.logger.Info().Str("from", string(prev)).Str("to", string(state)).Msg("supervisor state transition")
	s.publishEvent(events.EventSupervisorStateChanged, fmt.Sprintf("%s -> %s", prev, state), map[string]string{
		"from": string(prev),
		"to":   string(state),
	})
}

// Events returns the supervisor's event broker so a caller can subscribe
// to its own lifecycle and data-plane events.
func (s *Supervisor) Events() *events.Broker { return s.eventBroker }

func (s *Supervisor) publishEvent(typ events.EventType, message string, metadata map[string]string) {
	if s.eventBroker == nil {
		return
	}
	s.eventBroker.Publish(&events.Event{
		ID:       uuid.NewString(),
		Type:     typ,
		Message:  message,
		Metadata: metadata,
	})
}

// StopDataInput reports whether ingestion tasks are currently paused.
func (s *Supervisor) StopDataInput() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stopdata
}

// start_managers equivalent: creates one WorkerManager per entry in the
// config record's manager_*[] lists, wiring each one's result egress
// socket per spec.md §4.F (skipping the "none" sentinel).
func (s *Supervisor) startManagers() error {
	for i, numWorkers := range s.record.ManagerNumWorkers {
		mgrCfg := manager.Config{
			SupervisorName: s.name,
			Name:           fmt.Sprintf("Generic%d", i),
			ProcessingType: s.record.ProcessingType,
			NumWorkers:     numWorkers,
			ShmDir:         s.shmDir,
		}
		mgr, err := manager.New(mgrCfg)
		if err != nil {
			return err
		}

		h := &managerHandle{mgr: mgr}
		if i < len(s.record.ManagerResultSocket) {
			h.resultSocket = s.record.ManagerResultSocket[i]
		}
		if i < len(s.record.ManagerResultSocketType) {
			h.resultSocketType = s.record.ManagerResultSocketType[i]
		}
		if i < len(s.record.ManagerResultDataflow) {
			h.resultDataflow = s.record.ManagerResultDataflow[i]
		}

		if h.resultSocket != "" && h.resultSocket != "none" {
			sender, err := transport.NewResultEgress(s.ctx, h.resultSocketType, h.resultSocket)
			if err != nil {
				return err
			}
			h.resultSender = sender
			s.logger.Info().Str("manager", mgr.Name()).Str("socket", h.resultSocket).Msg("result egress configured")
		}

		s.managers = append(s.managers, h)
	}
	return nil
}

// startWorkers spawns each manager's reporter and worker pool (spec.md
// §4.E). Thread- and process-mode hooks are built per manager so the
// thread-mode closure can capture that manager's own result queue.
func (s *Supervisor) startWorkers() {
	for _, h := range s.managers {
		threadHook := s.hooks.NewProcess(h.mgr.ResultQueue())
		childHook := s.hooks.NewChildProcess()
		var sender monitor.Sender = s.monitoring
		h.mgr.Start(sender, s.interval, threadHook, childHook)
		s.publishEvent(events.EventManagerStarted, h.mgr.Name()+" started", map[string]string{"manager": h.mgr.Name()})
	}
}

// Start brings the supervisor fully online: managers, their worker
// pools, and the four background tasks (lp ingest, hp ingest, result
// forwarder, command listener). On return the supervisor is Waiting.
func (s *Supervisor) Start() error {
	if err := s.startManagers(); err != nil {
		return err
	}
	s.startWorkers()

	s.stopCh = make(chan struct{})

	s.wg.Add(4)
	go s.ingestLoop(s.dataLP, queue.Low, "lp")
	go s.ingestLoop(s.dataHP, queue.High, "hp")
	go s.resultLoop()
	go s.commandLoop()

	s.setState(StateWaiting)
	return nil
}

// Wait blocks until the supervisor has fully shut down, mirroring the
// Python original's blocking main loop without tying it to a single OS
// thread. Callers drive signal handling externally (cmd/dataprocessor)
// and invoke HandleSignal, which is the idiomatic-Go split of
// responsibility: a supervisor owns its state machine, main owns the
// process's signal channel.
func (s *Supervisor) Wait() {
	<-s.shutdownDone
}

// HandleSignal maps an OS signal to the command it triggers per spec.md
// §4.F: SIGTERM → cleanedshutdown, SIGINT → shutdown, anything else →
// shutdown (forced).
func (s *Supervisor) HandleSignal(name string) {
	switch name {
	case "SIGTERM":
		s.logger.Info().Msg("SIGTERM received, terminating with cleanedshutdown")
		s.CommandCleanedShutdown()
	case "SIGINT":
		s.logger.Info().Msg("SIGINT received, terminating with shutdown")
		s.CommandShutdown()
	default:
		s.logger.Info().Str("signal", name).Msg("signal received, terminating with shutdown")
		s.CommandShutdown()
	}
}
