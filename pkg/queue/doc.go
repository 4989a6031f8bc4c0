/*
Package queue implements the unbounded FIFO queues a worker manager owns:
a low-priority and a high-priority ingress queue, and one result queue.

Queue itself is a plain unbounded FIFO (backed by container/list) with a
non-blocking Pop and a bounded-wait Pop, matching Python's queue.Queue
get_nowait()/get(timeout=...). PriorityQueue composes a high- and a
low-priority Queue with strict, non-preemptive priority: a caller draining a
PriorityQueue always drains everything available on the high-priority side
before waiting on the low-priority side.

Queues are never capacity-bounded: per spec this implementation favors
fidelity to the original's plain queue.Queue/multiprocessing.Queue semantics
over backpressure.
*/
package queue
