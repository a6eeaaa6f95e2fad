package net

import (
	"bufio"
	"fmt"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// SessionState is the console session's protocol phase.
type SessionState int32

const (
	StateLogin SessionState = iota // waiting for the password line
	StateAuthenticated
	StateDisconnecting
)

func (s SessionState) String() string {
	switch s {
	case StateLogin:
		return "Login"
	case StateAuthenticated:
		return "Authenticated"
	case StateDisconnecting:
		return "Disconnecting"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

// Session is one admin console connection. Network I/O runs in dedicated
// goroutines; command lines reach the game loop through InQueue.
type Session struct {
	ID   uint64
	conn net.Conn

	state atomic.Int32 // SessionState

	InQueue  chan string // game loop reads command lines from here
	OutQueue chan string // writer goroutine reads from here

	IP string

	outBuf []string // buffered replies, flushed once per tick (game loop only)

	closeCh   chan struct{}
	closeOnce sync.Once
	closed    atomic.Bool
	onClose   func(id uint64)

	passwordHash []byte
	loginTimeout time.Duration

	// Per-second line rate limiter (readLoop goroutine only, no lock needed)
	linesPerSec int
	lineCount   int
	lineResetAt int64

	log *zap.Logger
}

// SessionOptions carries the per-server session settings.
type SessionOptions struct {
	InSize       int
	OutSize      int
	LinesPerSec  int
	PasswordHash string
	LoginTimeout time.Duration
	OnClose      func(id uint64)
}

func NewSession(conn net.Conn, id uint64, opts SessionOptions, log *zap.Logger) *Session {
	s := &Session{
		ID:           id,
		conn:         conn,
		InQueue:      make(chan string, opts.InSize),
		OutQueue:     make(chan string, opts.OutSize),
		IP:           conn.RemoteAddr().String(),
		closeCh:      make(chan struct{}),
		onClose:      opts.OnClose,
		passwordHash: []byte(opts.PasswordHash),
		loginTimeout: opts.LoginTimeout,
		linesPerSec:  opts.LinesPerSec,
		log:          log.With(zap.Uint64("session", id)),
	}
	s.state.Store(int32(StateLogin))
	return s
}

func (s *Session) State() SessionState {
	return SessionState(s.state.Load())
}

func (s *Session) SetState(st SessionState) {
	s.state.Store(int32(st))
}

// Start launches the reader and writer goroutines. The reader handles the
// login exchange itself so bcrypt never runs on the game loop.
func (s *Session) Start() {
	go s.readLoop()
	go s.writeLoop()
}

// Send buffers a reply line. Called only from the game loop goroutine.
func (s *Session) Send(line string) {
	if s.closed.Load() {
		return
	}
	s.outBuf = append(s.outBuf, line)
}

// FlushOutput drains the output buffer to OutQueue for the writeLoop goroutine.
// Non-blocking: if OutQueue is full, the session is disconnected (backpressure).
func (s *Session) FlushOutput() {
	for _, line := range s.outBuf {
		select {
		case s.OutQueue <- line:
		default:
			s.log.Warn("輸出佇列已滿，斷開慢速連線")
			s.Close()
			s.outBuf = s.outBuf[:0]
			return
		}
	}
	s.outBuf = s.outBuf[:0]
}

// Close shuts the session down once.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.SetState(StateDisconnecting)
		close(s.closeCh)
		s.conn.Close()
		if s.onClose != nil {
			s.onClose(s.ID)
		}
	})
}

func (s *Session) IsClosed() bool {
	return s.closed.Load()
}

// login reads the password line and checks it against the bcrypt hash.
func (s *Session) login(r *bufio.Reader) bool {
	if len(s.passwordHash) == 0 {
		s.writeDirect("console disabled: no admin password configured")
		return false
	}
	s.writeDirect("convoyd admin console")
	s.writeDirect("password:")
	if s.loginTimeout > 0 {
		s.conn.SetReadDeadline(time.Now().Add(s.loginTimeout))
	}
	line, err := ReadLine(r)
	if err != nil {
		return false
	}
	s.conn.SetReadDeadline(time.Time{})
	if bcrypt.CompareHashAndPassword(s.passwordHash, []byte(strings.TrimSpace(line))) != nil {
		s.log.Warn("管理密碼錯誤", zap.String("ip", s.IP))
		s.writeDirect("login failed")
		return false
	}
	s.SetState(StateAuthenticated)
	s.writeDirect("ok")
	return true
}

// writeDirect writes during login, before the writer goroutine owns output.
func (s *Session) writeDirect(line string) {
	s.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	if err := WriteLine(s.conn, line); err != nil && !s.closed.Load() {
		s.log.Debug("寫入錯誤", zap.Error(err))
	}
}

// readLoop runs in its own goroutine. After login it pushes every non-empty
// line onto InQueue for the game loop to consume.
func (s *Session) readLoop() {
	defer s.Close()

	r := bufio.NewReaderSize(s.conn, MaxLineLen)
	if !s.login(r) {
		return
	}

	for {
		line, err := ReadLine(r)
		if err != nil {
			if !s.closed.Load() {
				s.log.Debug("讀取錯誤", zap.Error(err))
			}
			return
		}
		line = strings.TrimSpace(line)
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
				s.log.Warn("指令速率超限，斷開連線", zap.Int("lps", s.lineCount))
				return
			}
		}

		select {
		case s.InQueue <- line:
		case <-s.closeCh:
			return
		}
	}
}

// writeLoop runs in its own goroutine and writes reply lines to the socket.
func (s *Session) writeLoop() {
	defer s.Close()

	for {
		select {
		case line := <-s.OutQueue:
			s.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := WriteLine(s.conn, line); err != nil {
				if !s.closed.Load() {
					s.log.Debug("寫入錯誤", zap.Error(err))
				}
				return
			}
		case <-s.closeCh:
			return
		}
	}
}
