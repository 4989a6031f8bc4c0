package transport

import (
	"context"
	"fmt"

	"github.com/cuemby/dataprocessor/pkg/config"
	"github.com/go-zeromq/zmq4"
)

// BindError is returned when the supervisor fails to acquire a transport
// endpoint during startup. Startup errors of this kind are fatal.
type BindError struct {
	Address string
	Err     error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("transport: bind %q: %v", e.Address, e.Err)
}

func (e *BindError) Unwrap() error { return e.Err }

// SendError is returned when a send on an egress endpoint fails. Per
// spec.md §7 this is logged and the payload dropped; it is never fatal.
type SendError struct {
	Address string
	Err     error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("transport: send to %q: %v", e.Address, e.Err)
}

func (e *SendError) Unwrap() error { return e.Err }

// Receiver is anything that yields a stream of payloads.
type Receiver interface {
	Recv(ctx context.Context) ([]byte, error)
	Close() error
}

// Sender is anything that accepts a stream of payloads.
type Sender interface {
	Send(ctx context.Context, payload []byte) error
	Close() error
}

// pullEndpoint wraps a bound PULL socket.
type pullEndpoint struct{ sock zmq4.Socket }

// NewPullBind binds a PULL socket at the bind-side rewrite of address.
func NewPullBind(ctx context.Context, address string) (Receiver, error) {
	sock := zmq4.NewPull(ctx)
	bindAddr := config.ToBindAddress(address)
	if err := sock.Listen(bindAddr); err != nil {
		return nil, &BindError{Address: bindAddr, Err: err}
	}
	return &pullEndpoint{sock: sock}, nil
}

func (p *pullEndpoint) Recv(ctx context.Context) ([]byte, error) {
	msg, err := p.sock.Recv()
	if err != nil {
		return nil, err
	}
	return msg.Bytes(), nil
}

func (p *pullEndpoint) Close() error { return p.sock.Close() }

// subEndpoint wraps a connected SUB socket subscribed to every topic.
type subEndpoint struct{ sock zmq4.Socket }

// NewSubConnect connects a SUB socket to address and subscribes to all
// topics (the empty-string subscription).
func NewSubConnect(ctx context.Context, address string) (Receiver, error) {
	sock := zmq4.NewSub(ctx)
	if err := sock.Dial(address); err != nil {
		return nil, &BindError{Address: address, Err: err}
	}
	if err := sock.SetOption(zmq4.OptionSubscribe, ""); err != nil {
		sock.Close()
		return nil, &BindError{Address: address, Err: err}
	}
	return &subEndpoint{sock: sock}, nil
}

func (s *subEndpoint) Recv(ctx context.Context) ([]byte, error) {
	msg, err := s.sock.Recv()
	if err != nil {
		return nil, err
	}
	return msg.Bytes(), nil
}

func (s *subEndpoint) Close() error { return s.sock.Close() }

// pushEndpoint wraps a connected PUSH socket.
type pushEndpoint struct {
	sock    zmq4.Socket
	address string
}

// NewPushConnect connects a PUSH socket to address.
func NewPushConnect(ctx context.Context, address string) (Sender, error) {
	sock := zmq4.NewPush(ctx)
	if err := sock.Dial(address); err != nil {
		return nil, &BindError{Address: address, Err: err}
	}
	return &pushEndpoint{sock: sock, address: address}, nil
}

func (p *pushEndpoint) Send(ctx context.Context, payload []byte) error {
	if err := p.sock.Send(zmq4.NewMsg(payload)); err != nil {
		return &SendError{Address: p.address, Err: err}
	}
	return nil
}

func (p *pushEndpoint) Close() error { return p.sock.Close() }

// pubEndpoint wraps a bound PUB socket.
type pubEndpoint struct {
	sock    zmq4.Socket
	address string
}

// NewPubBind binds a PUB socket at the bind-side rewrite of address.
func NewPubBind(ctx context.Context, address string) (Sender, error) {
	sock := zmq4.NewPub(ctx)
	bindAddr := config.ToBindAddress(address)
	if err := sock.Listen(bindAddr); err != nil {
		return nil, &BindError{Address: bindAddr, Err: err}
	}
	return &pubEndpoint{sock: sock, address: bindAddr}, nil
}

func (p *pubEndpoint) Send(ctx context.Context, payload []byte) error {
	if err := p.sock.Send(zmq4.NewMsg(payload)); err != nil {
		return &SendError{Address: p.address, Err: err}
	}
	return nil
}

func (p *pubEndpoint) Close() error { return p.sock.Close() }

// NewDataIngress creates the receive-side endpoint for one data flow (lp or
// hp), selecting bind-PULL or connect-SUB per socketType.
func NewDataIngress(ctx context.Context, socketType, address string) (Receiver, error) {
	switch socketType {
	case "pubsub":
		return NewSubConnect(ctx, address)
	default: // "pushpull"
		return NewPullBind(ctx, address)
	}
}

// NewResultEgress creates the send-side endpoint for one manager's result
// channel, selecting connect-PUSH or bind-PUB per socketType. Callers must
// check for the "none" sentinel themselves before calling this (per
// spec.md §4.F, a manager with result_socket == "none" sends nothing).
func NewResultEgress(ctx context.Context, socketType, address string) (Sender, error) {
	switch socketType {
	case "pubsub":
		return NewPubBind(ctx, address)
	default: // "pushpull"
		return NewPushConnect(ctx, address)
	}
}
