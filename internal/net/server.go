package net

import (
	"net"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/peterm94/gloam-engine-archive/internal/config"
)

// Server accepts console connections and runs one Session per connection.
type Server struct {
	listener net.Listener
	nextID   atomic.Uint64
	console  *Console
	cfg      config.ConsoleConfig
	log      *zap.Logger
	closeCh  chan struct{}

	mu       sync.Mutex
	sessions map[uint64]*Session
	wg       sync.WaitGroup
}

func NewServer(cfg config.ConsoleConfig, console *Console, log *zap.Logger) (*Server, error) {
	ln, err := net.Listen("tcp", cfg.BindAddress)
	if err != nil {
		return nil, err
	}
	s := &Server{
		listener: ln,
		console:  console,
		cfg:      cfg,
		log:      log,
		closeCh:  make(chan struct{}),
		sessions: make(map[uint64]*Session),
	}
	return s, nil
}

// AcceptLoop runs in its own goroutine until Shutdown.
func (s *Server) AcceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.closeCh:
				return
			default:
			}
			s.log.Error("console accept failed", zap.Error(err))
			continue
		}

		if s.cfg.MaxSessions > 0 && s.Sessions() >= s.cfg.MaxSessions {
			s.log.Warn("console session limit reached, rejecting", zap.String("ip", conn.RemoteAddr().String()))
			conn.Write([]byte("error: too many sessions\n"))
			conn.Close()
			continue
		}

		id := s.nextID.Add(1)
		sess := NewSession(conn, id, s.console, s.cfg.LinesPerSec, s.cfg.ReplyTimeout, s.log)
		s.mu.Lock()
		s.sessions[id] = sess
		s.mu.Unlock()

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			<-sess.Done()
			s.mu.Lock()
			delete(s.sessions, id)
			s.mu.Unlock()
			s.log.Info("console session closed", zap.Uint64("session", id))
		}()

		s.log.Info("console session opened", zap.Uint64("session", id), zap.String("ip", sess.IP))
		sess.Start()
	}
}

// Sessions returns the number of open sessions.
func (s *Server) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Shutdown stops accepting, closes every session and waits for them.
func (s *Server) Shutdown() {
	close(s.closeCh)
	s.listener.Close()

	s.mu.Lock()
	for _, sess := range s.sessions {
		sess.Close()
	}
	s.mu.Unlock()
	s.wg.Wait()
}

// Addr returns the listener's address.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}
