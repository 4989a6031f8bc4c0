/*
Package shm implements the shared per-worker metrics region that lets a
process-mode worker publish its processing rate, total processed count, and
status to its manager across an OS process boundary, and lets the manager
flip the shared "process data" flag that gates every worker in the pool —
mirroring Python's multiprocessing.Array/multiprocessing.Value.

On Linux, the region is a file-backed mmap opened with MAP_SHARED: the
manager creates and truncates a temp file, maps it, and the same path is
reopened and mapped again inside the re-exec'd worker subprocess, so writes
on either side are visible to the other without any IPC round-trip. On
platforms where this isn't available, the region degrades to a plain
in-process array — fine for thread-mode workers, and a graceful no-op for a
process-mode worker that exists only for local development on that platform.

Thread-mode workers use the same Region type and simply skip the file-backed
path entirely (see NewLocalRegion), since they already share the manager's
address space.
*/
package shm
