// Package ssc implements the line-oriented JSON control protocol spoken by
// the studio monitors on TCP port 45.
//
// Every request opens a fresh connection, writes one payload terminated by
// CRLF, reads a single response and closes the connection again. There is no
// pooling and no retry: the caller decides when to try again.
package ssc

import (
	"context"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/jmylchreest/volctrld/internal/errors"
)

const (
	// DefaultPort is the well-known TCP port of the protocol.
	DefaultPort = 45
	// DefaultTimeout bounds connect, write and read of one request.
	DefaultTimeout = time.Second
	// BufferSize is the largest response read from a device.
	BufferSize = 512
	// Terminator ends every request payload.
	Terminator = "\r\n"
)

// Sender sends one payload to a device and returns its raw response.
type Sender interface {
	Send(ctx context.Context, address string, payload []byte) ([]byte, error)
}

// Transport is the TCP Sender used against real devices.
type Transport struct {
	port    int
	timeout time.Duration
	logger  *slog.Logger
	dialer  net.Dialer
}

// NewTransport creates a Transport. Zero values select the protocol defaults.
func NewTransport(port int, timeout time.Duration, logger *slog.Logger) *Transport {
	if port <= 0 {
		port = DefaultPort
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Transport{
		port:    port,
		timeout: timeout,
		logger:  logger,
		dialer:  net.Dialer{Timeout: timeout},
	}
}

// Send implements Sender.
func (t *Transport) Send(ctx context.Context, address string, payload []byte) ([]byte, error) {
	target, err := t.target(address)
	if err != nil {
		return nil, err
	}

	conn, err := t.dialer.DialContext(ctx, "tcp", target)
	if err != nil {
		return nil, errors.Transportf("connect %s: %v", target, err)
	}
	defer func() { _ = conn.Close() }()

	if err := conn.SetDeadline(time.Now().Add(t.timeout)); err != nil {
		return nil, errors.Transportf("set deadline %s: %v", target, err)
	}

	msg := make([]byte, 0, len(payload)+len(Terminator))
	msg = append(msg, payload...)
	msg = append(msg, Terminator...)
	if _, err := conn.Write(msg); err != nil {
		return nil, errors.Transportf("send to %s: %v", target, err)
	}

	buf := make([]byte, BufferSize)
	n, err := conn.Read(buf)
	if n <= 0 {
		return nil, errors.Transportf("receive from %s: %v", target, err)
	}

	t.logger.Debug("ssc: exchange", "device", address, "request", string(payload), "response", string(buf[:n]))
	return buf[:n], nil
}

// target turns a device address into host:port. Addresses that already carry
// a port are used as is; bare hostnames and IPv6 literals get the default.
func (t *Transport) target(address string) (string, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return "", errors.Transportf("parse address: empty")
	}
	if host, port, err := net.SplitHostPort(address); err == nil {
		if host == "" || port == "" {
			return "", errors.Transportf("parse address %q", address)
		}
		return address, nil
	}

	host := strings.TrimSuffix(strings.TrimPrefix(address, "["), "]")
	if strings.ContainsAny(host, "[]/ ") {
		return "", errors.Transportf("parse address %q", address)
	}
	return net.JoinHostPort(host, strconv.Itoa(t.port)), nil
}
