/*
Package manager implements WorkerManager: one logical processing stage,
owning a pair of priority queues, a result queue, a worker pool (thread- or
process-mode), and that pool's monitoring reporter.

A WorkerManager does not own any transport endpoint itself — per spec.md
§4.F/§4.E that belongs to the supervisor, which enqueues onto a manager's
ingress queues, drains its result queue, and supplies the shared PUSH
monitoring sender its reporter publishes through. This keeps a manager
testable with fakes and makes the supervisor the single place socket
lifetime is owned.
*/
package manager
