// Package server exposes the conversation engine over a unix socket.
// The wire protocol is one JSON record per newline-terminated line.
package server

import (
	"bufio"
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"runtime/debug"
	"sync"

	"github.com/google/uuid"

	"github.com/soyeahso/ezra/internal/chat"
	"github.com/soyeahso/ezra/internal/domain"
	"github.com/soyeahso/ezra/internal/logging"
	"github.com/soyeahso/ezra/internal/model"
)

// Store is the persistence surface the server needs: the conversation
// engine's operations plus listing for the "list" request.
type Store interface {
	chat.Store
	ListConversations() ([]domain.ConversationInfo, error)
}

// Server accepts local connections and runs one session handler per
// connection. The store and gateway are shared across connections;
// everything else is per-connection state.
type Server struct {
	socketPath string
	system     string
	limit      int
	store      Store
	gateway    model.Gateway
	exec       chat.Executor
	log        *logging.Logger
	root       *logging.Logger

	listener net.Listener
	wg       sync.WaitGroup
}

// Option configures a Server.
type Option func(*Server)

// WithSystemPrompt sets the system prompt for conversations started
// implicitly by a text request on an unbound session.
func WithSystemPrompt(p string) Option {
	return func(s *Server) { s.system = p }
}

// WithHistoryLimit bounds the message window hydrated on connect and
// presented to the model.
func WithHistoryLimit(n int) Option {
	return func(s *Server) { s.limit = n }
}

// WithExecutor sets the tool executor used during turns.
func WithExecutor(e chat.Executor) Option {
	return func(s *Server) { s.exec = e }
}

// New creates a server listening on the given unix socket path.
func New(socketPath string, st Store, gw model.Gateway, log *logging.Logger, opts ...Option) *Server {
	s := &Server{
		socketPath: socketPath,
		system:     chat.DefaultSystemPrompt,
		limit:      chat.DefaultHistoryLimit,
		store:      st,
		gateway:    gw,
		exec:       chat.StubExecutor{},
		log:        log.Sub("server"),
		root:       log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Serve listens on the socket and handles connections until ctx is
// cancelled. A stale socket file from a previous run is removed.
func (s *Server) Serve(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Dir(s.socketPath), 0o700); err != nil {
		return err
	}
	_ = os.Remove(s.socketPath)

	ln, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return err
	}
	s.listener = ln
	s.log.Info().Str("socket", s.socketPath).Str("gateway", s.gateway.Name()).Msg("listening")

	go func() {
		<-ctx.Done()
		_ = s.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
				break
			}
			s.log.Warn().Err(err).Msg("accept failed")
			continue
		}
		s.wg.Add(1)
		go s.handleConn(ctx, conn)
	}

	s.wg.Wait()
	s.log.Info().Msg("server stopped")
	return nil
}

// Close stops the listener and unlinks the socket. In-flight
// connections are interrupted via their contexts.
func (s *Server) Close() error {
	if s.listener != nil {
		_ = s.listener.Close()
	}
	_ = os.Remove(s.socketPath)
	return nil
}

// handleConn runs the per-connection protocol loop. The whole exchange
// is single-goroutine: the next request is not read while a turn is in
// flight, so within-connection ordering is total.
func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	// Unblock a pending read when the server shuts down.
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	connID := uuid.NewString()[:8]
	log := s.log.Sub("conn")
	log.Info().Str("conn", connID).Msg("connected")

	sess := &session{
		srv: s,
		w:   bufio.NewWriter(conn),
		log: log,
		id:  connID,
	}

	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("conn", connID).Any("panic", r).Msg("handler panicked")
			_ = writeRecord(sess.w, uncaughtReply{
				Type:      "uncaught",
				Traceback: string(debug.Stack()),
			})
		}
	}()

	reader := bufio.NewReader(conn)
	for {
		line, err := reader.ReadBytes('\n')
		if err != nil {
			// EOF and peer resets are normal disconnects.
			log.Info().Str("conn", connID).Msg("disconnected")
			return
		}

		done, err := sess.handle(ctx, line)
		if err != nil {
			// Upstream failure: best-effort diagnostic, then teardown.
			log.Error().Str("conn", connID).Err(err).Msg("session failed")
			_ = writeRecord(sess.w, uncaughtReply{Type: "uncaught", Traceback: err.Error()})
			return
		}
		if done {
			log.Info().Str("conn", connID).Msg("closed by client")
			return
		}
	}
}
