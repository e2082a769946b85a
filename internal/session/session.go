// Package session implements the per-connection protocol state
// machine: parsing one command line at a time, dispatching it against
// the topic table and stats record, and tearing the session down when
// its input stream ends.
package session

import (
	"bufio"
	"net"
	"strings"
	"sync"

	"go.uber.org/zap"

	"psbroker/internal/gate"
	"psbroker/internal/stats"
	"psbroker/internal/topic"
)

// Session is per-connection state. It starts Unnamed and transitions
// to Named on the first valid "name" command; it is removed from
// every topic it subscribed to when its input stream ends.
type Session struct {
	conn   net.Conn
	reader *bufio.Reader

	writeMu sync.Mutex
	writer  *bufio.Writer

	table *topic.Table
	stats *stats.Stats
	gate  *gate.Gate
	log   *zap.Logger

	name  string
	named bool
}

// New creates a session for an accepted connection. The caller is
// expected to call Run on the returned session, typically from its
// own goroutine.
func New(conn net.Conn, table *topic.Table, st *stats.Stats, g *gate.Gate, log *zap.Logger) *Session {
	return &Session{
		conn:   conn,
		reader: bufio.NewReader(conn),
		writer: bufio.NewWriter(conn),
		table:  table,
		stats:  st,
		gate:   g,
		log:    log,
	}
}

// Name returns the client's chosen name. Valid only once Named.
func (s *Session) Name() string {
	return s.name
}

// Deliver writes one fanned-out line to this session's output stream
// and flushes it. Safe for concurrent use — a publisher's fan-out
// write and this session's own protocol replies share the same
// underlying connection and must not interleave.
func (s *Session) Deliver(line []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if _, err := s.writer.Write(line); err != nil {
		return err
	}
	return s.writer.Flush()
}

// Run reads and dispatches command lines until the input stream ends,
// then tears the session down. It blocks until the connection closes.
//
// The caller must already hold an admission permit for this session
// (acquired by the listener before spawning it) and must already have
// incremented the connected-clients gauge; Run releases the permit and
// decrements the gauge during teardown.
func (s *Session) Run() {
	for {
		line, err := s.reader.ReadString('\n')
		if line != "" {
			s.dispatch(strings.TrimRight(line, "\r\n"))
		}
		if err != nil {
			break
		}
	}

	s.teardown()
}

func (s *Session) dispatch(line string) {
	if !s.named {
		s.dispatchUnnamed(line)
		return
	}
	s.dispatchNamed(line)
}

// dispatchUnnamed handles the Unnamed state: only a valid "name"
// command has any effect; anything else is silently dropped, with no
// reply and no counters touched.
func (s *Session) dispatchUnnamed(line string) {
	verb, rest, hasRest := splitVerb(line)
	if verb != "name" || !hasRest {
		return
	}
	if !validField(rest) {
		return
	}
	s.name = rest
	s.named = true
}

// dispatchNamed handles the Named state per the dispatch table in
// the protocol spec: valid name lines are ignored, valid sub/unsub/pub
// lines are acted on, and anything else gets a literal ":invalid"
// reply.
func (s *Session) dispatchNamed(line string) {
	verb, rest, hasRest := splitVerb(line)
	if !hasRest {
		s.reject()
		return
	}

	switch verb {
	case "name":
		// A valid name command received while Named is ignored; a
		// malformed one is rejected like any other invalid line.
		if !validField(rest) {
			s.reject()
		}
		return
	case "sub":
		if !validField(rest) {
			s.reject()
			return
		}
		s.subscribe(rest)
	case "unsub":
		if !validField(rest) {
			s.reject()
			return
		}
		s.unsubscribe(rest)
	case "pub":
		topicName, value, ok := splitPub(rest)
		if !ok {
			s.reject()
			return
		}
		s.publish(topicName, value)
	default:
		s.reject()
	}
}

func (s *Session) subscribe(topicName string) {
	s.table.Lock()
	s.table.Subscribe(topicName, s)
	s.stats.IncSub()
	s.table.Unlock()
}

func (s *Session) unsubscribe(topicName string) {
	s.table.Lock()
	removed := s.table.Unsubscribe(topicName, s)
	if removed {
		// Only count an unsubscribe that actually removed a
		// subscription, matching the original server's behavior:
		// unsubbing from a topic the client was never on is a
		// silent no-op, not a counted operation.
		s.stats.IncUnsub()
	}
	s.table.Unlock()
}

func (s *Session) publish(topicName, value string) {
	line := formatPublish(s.name, topicName, value)
	s.table.Lock()
	s.table.Publish(topicName, func(sub topic.Subscriber) {
		_ = sub.Deliver(line) // a failed write never aborts the publish; a stalled subscriber's write still blocks here
	})
	s.stats.IncPub()
	s.table.Unlock()
}

func (s *Session) reject() {
	_ = s.Deliver([]byte(":invalid\n"))
}

// teardown removes the session from every topic it subscribed to (if
// it was ever Named), then closes streams, frees the name, updates
// stats, and releases the admission slot. Mutating the table happens
// before the admission slot is released so that a subsequent acceptor
// never reuses resources while a stale reference could still exist.
func (s *Session) teardown() {
	if s.named {
		s.table.Lock()
		s.table.RemoveSubscriber(s)
		s.table.Unlock()
	}

	_ = s.conn.Close()
	s.name = ""
	s.stats.DecConnected()
	s.gate.Release()

	if s.log != nil {
		s.log.Debug("session closed")
	}
}

// formatPublish builds the fan-out wire line as raw bytes. Publisher
// name, topic, and value are untrusted client input and are written as
// data, never interpolated into a format string.
func formatPublish(publisher, topicName, value string) []byte {
	buf := make([]byte, 0, len(publisher)+len(topicName)+len(value)+3)
	buf = append(buf, publisher...)
	buf = append(buf, ':')
	buf = append(buf, topicName...)
	buf = append(buf, ':')
	buf = append(buf, value...)
	buf = append(buf, '\n')
	return buf
}

// splitVerb splits a command line into its leading verb and the
// remainder of the line after the first space. hasRest is false if
// there is no space at all (a bare word with no argument).
func splitVerb(line string) (verb, rest string, hasRest bool) {
	idx := strings.IndexByte(line, ' ')
	if idx < 0 {
		return line, "", false
	}
	return line[:idx], line[idx+1:], true
}

// splitPub splits a "pub" command's remainder into TOPIC and VALUE and
// validates both. VALUE is the literal remainder of the line after the
// single space following TOPIC, and may itself contain spaces.
func splitPub(rest string) (topicName, value string, ok bool) {
	idx := strings.IndexByte(rest, ' ')
	if idx < 0 {
		return "", "", false
	}
	topicName, value = rest[:idx], rest[idx+1:]
	if !validField(topicName) || value == "" || strings.ContainsRune(value, ':') {
		return "", "", false
	}
	return topicName, value, true
}

// validField reports whether a NAME or TOPIC field is well-formed: a
// single token (no embedded space), non-empty, and free of colons.
// Newlines are structurally impossible since lines are already split
// on them before reaching here.
func validField(s string) bool {
	return s != "" && !strings.ContainsRune(s, ' ') && !strings.ContainsRune(s, ':')
}
