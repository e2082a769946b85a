// Package transport binds the broker's TCP listener and runs the
// accept loop that admits and spawns client sessions.
package transport

import (
	"errors"
	"fmt"
	"net"

	"go.uber.org/zap"

	"psbroker/internal/gate"
	"psbroker/internal/session"
	"psbroker/internal/stats"
	"psbroker/internal/topic"
)

// Listener binds a TCP socket and hands every accepted connection to
// a freshly constructed client session.
type Listener struct {
	table *topic.Table
	stats *stats.Stats
	gate  *gate.Gate
	log   *zap.Logger

	ln net.Listener
}

// New creates a listener wired to the broker's shared state.
func New(table *topic.Table, st *stats.Stats, g *gate.Gate, log *zap.Logger) *Listener {
	return &Listener{table: table, stats: st, gate: g, log: log}
}

// Bind listens on the given port (0 means "any free port"). The
// backlog argument is accepted but not applied: the listen queue
// length is the system default, not the admission gate's capacity.
// Returns the port actually bound, which the caller must announce on
// the diagnostic stream per the protocol.
func (l *Listener) Bind(port, backlog int) (int, error) {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return 0, err
	}
	l.ln = ln
	_ = backlog // net.Listen has no explicit backlog knob in the standard library; the kernel default applies.

	addr, ok := ln.Addr().(*net.TCPAddr)
	if !ok {
		return 0, fmt.Errorf("unexpected listener address type %T", ln.Addr())
	}
	return addr.Port, nil
}

// Serve runs the accept loop until the listener is closed. Each
// iteration waits for an admission permit before accepting; on an
// accept error the permit is released immediately since it was never
// consumed by a live connection. On success the permit is handed to
// the spawned session, which releases it during its own teardown.
func (l *Listener) Serve() {
	for {
		l.gate.Acquire()

		conn, err := l.ln.Accept()
		if err != nil {
			l.gate.Release()
			if errors.Is(err, net.ErrClosed) {
				return
			}
			if l.log != nil {
				l.log.Debug("accept error", zap.Error(err))
			}
			continue
		}

		l.stats.IncConnected()
		go session.New(conn, l.table, l.stats, l.gate, l.log).Run()
	}
}

// Close shuts down the listener, causing Serve to return.
func (l *Listener) Close() error {
	if l.ln == nil {
		return nil
	}
	return l.ln.Close()
}
