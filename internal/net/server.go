package net

import (
	"net"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// ServerOptions configures the admin console listener.
type ServerOptions struct {
	InSize       int
	OutSize      int
	LinesPerSec  int
	PasswordHash string // bcrypt
	LoginTimeout time.Duration
}

// Server accepts admin console connections and creates Sessions.
// New/dead sessions are communicated to the game loop via channels.
type Server struct {
	listener net.Listener
	nextID   atomic.Uint64
	newConns chan *Session
	deadCh   chan uint64 // session IDs of dead sessions
	opts     ServerOptions
	log      *zap.Logger
	closeCh  chan struct{}
}

func NewServer(bindAddr string, opts ServerOptions, log *zap.Logger) (*Server, error) {
	ln, err := net.Listen("tcp", bindAddr)
	if err != nil {
		return nil, err
	}
	if opts.InSize <= 0 {
		opts.InSize = 16
	}
	if opts.OutSize <= 0 {
		opts.OutSize = 64
	}
	s := &Server{
		listener: ln,
		newConns: make(chan *Session, 16),
		deadCh:   make(chan uint64, 16),
		opts:     opts,
		log:      log,
		closeCh:  make(chan struct{}),
	}
	return s, nil
}

// AcceptLoop runs in its own goroutine. It accepts connections, starts their
// sessions, and pushes them onto the newConns channel.
func (s *Server) AcceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.closeCh:
				return // server shutting down
			default:
			}
			s.log.Error("連線接受失敗", zap.Error(err))
			continue
		}

		id := s.nextID.Add(1)
		sess := NewSession(conn, id, SessionOptions{
			InSize:       s.opts.InSize,
			OutSize:      s.opts.OutSize,
			LinesPerSec:  s.opts.LinesPerSec,
			PasswordHash: s.opts.PasswordHash,
			LoginTimeout: s.opts.LoginTimeout,
			OnClose:      s.NotifyDead,
		}, s.log)

		select {
		case s.newConns <- sess:
		default:
			s.log.Warn("連線佇列已滿，拒絕新連線")
			conn.Close()
			continue
		}
		sess.Start()
		s.log.Info("管理連線", zap.Uint64("session", id), zap.String("ip", sess.IP))
	}
}

// NewSessions returns the channel of newly connected sessions.
func (s *Server) NewSessions() <-chan *Session {
	return s.newConns
}

// NotifyDead reports a dead session ID to the game loop.
func (s *Server) NotifyDead(sessionID uint64) {
	select {
	case s.deadCh <- sessionID:
	default:
	}
}

// DeadSessions returns the channel of dead session IDs.
func (s *Server) DeadSessions() <-chan uint64 {
	return s.deadCh
}

// Shutdown stops accepting new connections.
func (s *Server) Shutdown() {
	close(s.closeCh)
	s.listener.Close()
}

// Addr returns the listener's address.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

func listen(addr string) (net.Listener, error) {
	return net.Listen("tcp", addr)
}
