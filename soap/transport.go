package soap

import (
	"context"
	"fmt"
	"io"
	"net"
	"time"
)

// Transport carries one raw request to address and returns every byte the
// peer sent back.
type Transport interface {
	RoundTrip(ctx context.Context, address string, request []byte) ([]byte, error)
}

// TransportError is returned whenever the connection fails
type TransportError struct {
	// Op is the failing step: "dial", "deadline", "write" or "read".
	Op   string
	Addr string
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Addr, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// TCPTransport writes the request on a fresh TCP connection and reads until
// EOF. The response is not framed: a peer that never closes the connection
// blocks the read forever unless ReadTimeout is set.
type TCPTransport struct {
	// DialTimeout bounds the connect. Zero means no limit.
	DialTimeout time.Duration
	// ReadTimeout is a deadline for write and read once connected.
	// Zero means no deadline.
	ReadTimeout time.Duration
}

func (t *TCPTransport) RoundTrip(ctx context.Context, address string, request []byte) ([]byte, error) {
	d := net.Dialer{Timeout: t.DialTimeout}
	conn, err := d.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, &TransportError{Op: "dial", Addr: address, Err: err}
	}
	defer func() {
		_ = conn.Close()
	}()
	return t.exchange(conn, address, request)
}

// exchange writes request on an open conn and reads the reply to EOF.
func (t *TCPTransport) exchange(conn net.Conn, address string, request []byte) ([]byte, error) {
	if t.ReadTimeout > 0 {
		if err := conn.SetDeadline(time.Now().Add(t.ReadTimeout)); err != nil {
			return nil, &TransportError{Op: "deadline", Addr: address, Err: err}
		}
	}

	if err := writeFull(conn, request); err != nil {
		return nil, &TransportError{Op: "write", Addr: address, Err: err}
	}

	resp, err := io.ReadAll(conn)
	if err != nil {
		return resp, &TransportError{Op: "read", Addr: address, Err: err}
	}
	return resp, nil
}

func writeFull(w io.Writer, b []byte) error {
	for len(b) > 0 {
		n, err := w.Write(b)
		if err != nil {
			return err
		}
		if n == 0 {
			return io.ErrShortWrite
		}
		b = b[n:]
	}
	return nil
}
