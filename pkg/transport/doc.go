/*
Package transport wires up the supervisor's ZeroMQ-semantics endpoints:
PUSH/PULL for data and results, PUB/SUB for commands and monitoring.

Endpoint roles follow spec.md §6 exactly: PULL sockets bind (after rewriting
their configured address with ToBindAddress), PUSH sockets connect, SUB
sockets connect and subscribe to every topic, and PUB sockets bind. The
underlying wire protocol is ZMTP v3 via github.com/go-zeromq/zmq4, a pure-Go
implementation chosen because no repository in this project's reference
corpus implements ZeroMQ itself.
*/
package transport
