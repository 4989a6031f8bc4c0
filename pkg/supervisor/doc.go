/*
Package supervisor implements Supervisor: the top-level process described by
original_source/workers/Supervisor.py. It owns the transport endpoints, the
control-plane state machine, the lp/hp data-ingestion tasks, the result
forwarder, and the command listener, and holds one or more WorkerManagers
(pkg/manager).

A Supervisor is built from one config.Record (spec.md §3) and a set of
Hooks supplying the domain-specific decode_data/open_file/process_data
extension points a concrete data processor plugs in; DefaultHooks gives a
passthrough implementation suitable for a generic instance.
*/
package supervisor
