/*
Package worker implements the per-manager worker pool: the core processdata-gated,
priority-aware polling loop, in two flavors.

A ThreadWorker runs the loop as a goroutine sharing the manager's address
space, polling a *queue.PriorityQueue directly and writing its metrics into
an in-process *shm.Region. A ProcessWorker runs the same loop inside a
re-exec'd OS subprocess (see cmd/dataprocessor's hidden __process-worker
command): the parent pumps queue items to the child and reads results back
over pkg/ipc, while both sides see the same metrics through a file-backed
*shm.Region.

Every 10 seconds each worker's rate timer recomputes its processing rate
and publishes it, and its running total, into the shared region; the timer
is cancelled the moment the worker is told to stop.
*/
package worker
