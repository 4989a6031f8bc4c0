/*
Package ipc implements the framed control/data channel between a manager
and a process-mode worker it has re-exec'd as a separate OS process.

A manager creates a connected pair of unix-domain sockets with NewSocketPair,
keeps one end, and passes the other to the worker subprocess by inheriting it
as an extra file descriptor across exec. Both ends then exchange
length-prefixed, JSON-encoded Messages: the manager forwards queue payloads
to the worker (Kind Data) and tells it to exit (Kind Stop); the worker
forwards its processing results back (Kind Result).

Per-worker rate/count/status and the shared process-data gate flag do not
travel over this channel — those live in the mmap-backed region implemented
by pkg/shm, exactly as Python's multiprocessing.Array/Value would.
*/
package ipc
