package supervisor

import (
	"github.com/cuemby/dataprocessor/pkg/queue"
	"github.com/cuemby/dataprocessor/pkg/worker"
)

// Hooks holds the extension points spec.md §6 requires a concrete
// implementation to let the user override. NewProcess/NewChildProcess are
// factories rather than plain functions because the thread-mode hook
// closes over the owning manager's result queue (§4.D: thread workers see
// the manager directly), something a bare ProcessFunc cannot express.
type Hooks struct {
	// DecodeData transforms a raw binary payload before it is enqueued.
	// Used only when dataflow_type is "binary".
	DecodeData func(data []byte) []byte

	// OpenFile turns a received filename into the sequence of items to
	// enqueue. Used only when dataflow_type is "filename".
	OpenFile func(name string) ([][]byte, error)

	// NewProcess builds the process_data hook a thread-mode worker calls
	// directly; results are pushed onto resultQueue by the closure itself.
	NewProcess func(resultQueue *queue.Queue) worker.ProcessFunc

	// NewChildProcess builds the process_data hook invoked inside a
	// re-exec'd process-mode worker subprocess; it returns the result
	// payload (if any) for the parent to forward.
	NewChildProcess func() worker.ChildProcessFunc
}

// DefaultHooks returns the generic pass-through behavior: decode_data and
// open_file are identity operations (spec.md §6 defaults), and
// process_data simply forwards the payload to the manager's result queue
// unchanged. A concrete data processor overrides some or all of these.
func DefaultHooks() Hooks {
	return Hooks{
		DecodeData: func(data []byte) []byte { return data },
		OpenFile: func(name string) ([][]byte, error) {
			return [][]byte{[]byte(name)}, nil
		},
		NewProcess: func(resultQueue *queue.Queue) worker.ProcessFunc {
			return func(payload []byte, _ queue.Priority) error {
				resultQueue.Push(payload)
				return nil
			}
		},
		NewChildProcess: func() worker.ChildProcessFunc {
			return func(payload []byte, _ queue.Priority) ([]byte, error) {
				return payload, nil
			}
		},
	}
}
