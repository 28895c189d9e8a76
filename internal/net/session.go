package net

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

const banner = "gloam console, type help for commands\n"

// reply is one command result. last closes the session once written.
type reply struct {
	text string
	last bool
}

// Session is a single console connection. The reader and writer goroutines
// own the socket; commands execute on the game loop through the Console.
type Session struct {
	ID   uint64
	conn net.Conn
	IP   string

	console      *Console
	replyTimeout time.Duration

	InQueue  chan string // read loop → command loop
	OutQueue chan reply  // command loop → write loop

	closeCh   chan struct{}
	closeOnce sync.Once
	closed    atomic.Bool

	// Per-second line rate limiter (readLoop goroutine only, no lock needed)
	linesPerSec int
	lineCount   int
	lineResetAt int64

	log *zap.Logger
}

func NewSession(conn net.Conn, id uint64, console *Console, linesPerSec int, replyTimeout time.Duration, log *zap.Logger) *Session {
	if replyTimeout <= 0 {
		replyTimeout = 2 * time.Second
	}
	return &Session{
		ID:           id,
		conn:         conn,
		IP:           conn.RemoteAddr().String(),
		console:      console,
		replyTimeout: replyTimeout,
		InQueue:      make(chan string, 16),
		OutQueue:     make(chan reply, 16),
		closeCh:      make(chan struct{}),
		linesPerSec:  linesPerSec,
		log:          log.With(zap.Uint64("session", id)),
	}
}

// Start writes the banner and launches the reader, command and writer
// goroutines.
func (s *Session) Start() {
	s.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	if _, err := s.conn.Write([]byte(banner)); err != nil {
		s.log.Debug("banner write failed", zap.Error(err))
		s.Close()
		return
	}
	go s.readLoop()
	go s.commandLoop()
	go s.writeLoop()
}

// Done is closed when the session ends.
func (s *Session) Done() <-chan struct{} { return s.closeCh }

// Close shuts the session down. Safe to call more than once.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		close(s.closeCh)
		s.conn.Close()
	})
}

func (s *Session) IsClosed() bool {
	return s.closed.Load()
}

// send queues a reply. A client that doesn't read its replies is dropped.
func (s *Session) send(r reply) {
	select {
	case s.OutQueue <- r:
	case <-s.closeCh:
	default:
		s.log.Warn("console output queue full, dropping slow client")
		s.Close()
	}
}

// readLoop reads lines from the socket and pushes them onto InQueue.
func (s *Session) readLoop() {
	defer s.Close()

	sc := bufio.NewScanner(s.conn)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}

		if s.linesPerSec > 0 {
			now := time.Now().Unix()
			if now != s.lineResetAt {
				s.lineCount = 0
				s.lineResetAt = now
			}
			s.lineCount++
			if s.lineCount > s.linesPerSec {
				s.log.Warn("console line rate exceeded, disconnecting", zap.Int("lps", s.lineCount))
				return
			}
		}

		select {
		case s.InQueue <- line:
		case <-s.closeCh:
			return
		}
	}
	if err := sc.Err(); err != nil && !s.closed.Load() {
		s.log.Debug("console read error", zap.Error(err))
	}
}

// commandLoop executes queued lines one at a time, in order.
func (s *Session) commandLoop() {
	for {
		select {
		case line := <-s.InQueue:
			s.log.Debug("console command", zap.String("line", line))
			ctx, cancel := context.WithTimeout(context.Background(), s.replyTimeout)
			out, err := s.console.Execute(ctx, line)
			cancel()
			s.send(format(out, err))
			if errors.Is(err, ErrQuit) {
				return
			}
		case <-s.closeCh:
			return
		}
	}
}

// writeLoop writes replies to the socket.
func (s *Session) writeLoop() {
	defer s.Close()

	for {
		select {
		case r := <-s.OutQueue:
			s.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if _, err := s.conn.Write([]byte(r.text)); err != nil {
				if !s.closed.Load() {
					s.log.Debug("console write error", zap.Error(err))
				}
				return
			}
			if r.last {
				return
			}
		case <-s.closeCh:
			return
		}
	}
}

// format renders a reply: the output lines, then "ok" or "error: <msg>".
func format(out string, err error) reply {
	var b strings.Builder
	if out != "" {
		b.WriteString(out)
		b.WriteByte('\n')
	}
	switch {
	case errors.Is(err, ErrQuit):
		b.WriteString("bye\n")
		return reply{text: b.String(), last: true}
	case err != nil:
		fmt.Fprintf(&b, "error: %v\n", err)
	default:
		b.WriteString("ok\n")
	}
	return reply{text: b.String()}
}
