package monitor

import (
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shirou/gopsutil/v3/process"
)

// StateSource is the read-only view a Point needs of the manager it
// watches. It is an interface, not a direct dependency on pkg/manager, so
// that package can depend on this one (to spawn a Reporter) without
// creating an import cycle.
type StateSource interface {
	Status() string
	StopDataInput() bool
	QueueSizes() (lp, hp, result int)
	NumWorkers() int
	WorkerRate(workerID int) float32
	WorkerCount(workerID int) float32
	WorkerStatus(workerID int) int
}

// ProcInfo mirrors original_source/workers/MonitoringPoint.py's "procinfo"
// sub-object.
type ProcInfo struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemoryRSS  uint64  `json:"memory_usage"`
}

// Header is the envelope every monitoring snapshot carries. ID is a
// per-message correlation id, distinct from the header fields spec.md §3
// names, so a downstream consumer can deduplicate or trace one broadcast
// across the monitoring and metrics paths.
type Header struct {
	ID        string  `json:"id"`
	Type      int     `json:"type"`
	Time      float64 `json:"time"`
	PidSource string  `json:"pidsource"`
	PidTarget string  `json:"pidtarget"`
}

// Snapshot is the full wire shape of one monitoring message, matching
// spec.md §3's monitoring snapshot layout.
type Snapshot struct {
	Header            Header             `json:"header"`
	ManagerStatus     string             `json:"workermanagerstatus"`
	StopDataInput     bool               `json:"stopdatainput"`
	ProcInfo          ProcInfo           `json:"procinfo"`
	QueueLPSize       int                `json:"queue_lp_size"`
	QueueHPSize       int                `json:"queue_hp_size"`
	QueueResultSize   int                `json:"queue_result_size"`
	WorkerRates       map[int]float32    `json:"worker_rates"`
	WorkerTotalEvents map[int]float32    `json:"worker_tot_events"`
	WorkerStatus      map[int]int        `json:"worker_status"`
	Extra             map[string]any     `json:"extra,omitempty"`
}

// Point is the mutable per-manager monitoring object described in
// spec.md §4.B. It samples the host process's own CPU/memory usage and a
// manager's live queue and worker state on demand.
type Point struct {
	mu     sync.Mutex
	name   string
	source StateSource
	proc   *process.Process
	extra  map[string]any
}

// NewPoint creates a monitoring point for the manager named name, reading
// live state through source.
func NewPoint(name string, source StateSource) (*Point, error) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, err
	}
	return &Point{name: name, source: source, proc: proc, extra: make(map[string]any)}, nil
}

// Update stashes an arbitrary extra key/value pair into the next
// snapshot, mirroring MonitoringPoint.update's free-form extension hook.
func (p *Point) Update(key string, value any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.extra[key] = value
}

// Snapshot samples the process and the manager's live state and returns a
// copy of the monitoring point suitable for serialization. CPU sampling
// uses a ~1s probe per spec.md §4.B and §7, so callers must not invoke
// Snapshot from a latency-critical path.
func (p *Point) Snapshot(pidtarget string) Snapshot {
	cpuPercent, _ := p.proc.Percent(time.Second)
	memInfo, _ := p.proc.MemoryInfo()

	var rss uint64
	if memInfo != nil {
		rss = memInfo.RSS
	}

	lp, hp, result := p.source.QueueSizes()

	rates := make(map[int]float32, p.source.NumWorkers())
	totals := make(map[int]float32, p.source.NumWorkers())
	statuses := make(map[int]int, p.source.NumWorkers())
	for id := 0; id < p.source.NumWorkers(); id++ {
		rates[id] = p.source.WorkerRate(id)
		totals[id] = p.source.WorkerCount(id)
		statuses[id] = p.source.WorkerStatus(id)
	}

	p.mu.Lock()
	extra := make(map[string]any, len(p.extra))
	for k, v := range p.extra {
		extra[k] = v
	}
	p.mu.Unlock()

	return Snapshot{
		Header: Header{
			ID:        uuid.New().String(),
			Type:      1,
			Time:      float64(time.Now().UnixNano()) / 1e9,
			PidSource: p.name,
			PidTarget: pidtarget,
		},
		ManagerStatus:     p.source.Status(),
		StopDataInput:     p.source.StopDataInput(),
		ProcInfo:          ProcInfo{CPUPercent: cpuPercent, MemoryRSS: rss},
		QueueLPSize:       lp,
		QueueHPSize:       hp,
		QueueResultSize:   result,
		WorkerRates:       rates,
		WorkerTotalEvents: totals,
		WorkerStatus:      statuses,
		Extra:             extra,
	}
}
