package ipc

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"sync"

	"github.com/kpcyrd/brchd/internal/logging"
	"github.com/kpcyrd/brchd/internal/scheduler"
)

// Server accepts IPC connections and translates messages into scheduler
// commands. One handler goroutine runs per accepted connection.
type Server struct {
	sched      *scheduler.Scheduler
	logger     *logging.Logger
	listener   net.Listener
	socketPath string

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer creates a server bound to socketPath once Start is called.
func NewServer(sched *scheduler.Scheduler, logger *logging.Logger, socketPath string) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		sched:      sched,
		logger:     logger,
		socketPath: socketPath,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Start binds the socket, removing any stale file left by a prior crashed
// daemon, and begins accepting connections in the background.
func (s *Server) Start() error {
	if err := os.MkdirAll(filepath.Dir(s.socketPath), 0o700); err != nil {
		return fmt.Errorf("creating socket directory: %w", err)
	}

	if err := os.Remove(s.socketPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing stale socket: %w", err)
	}

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("binding ipc socket: %w", err)
	}
	s.listener = listener

	if err := os.Chmod(s.socketPath, 0o600); err != nil {
		s.listener.Close()
		return fmt.Errorf("setting socket permissions: %w", err)
	}

	s.logger.Info().Str("socket", s.socketPath).Msg("ipc server listening")

	s.wg.Add(1)
	go s.acceptLoop()
	return nil
}

// Stop closes the listener, waits for in-flight handlers to finish, and
// removes the socket file.
func (s *Server) Stop() {
	s.cancel()
	if s.listener != nil {
		s.listener.Close()
	}
	s.wg.Wait()
	os.Remove(s.socketPath)
	s.logger.Info().Msg("ipc server stopped")
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.ctx.Done():
				return
			default:
				s.logger.Warn().Err(err).Msg("ipc accept failed")
				continue
			}
		}

		s.wg.Add(1)
		go s.handleConnection(conn)
	}
}

// handleConnection reads messages from one client until it disconnects or
// sends a message not valid in this role, per §4.7: an unexpected message
// terminates the connection with an error but never poisons the scheduler.
func (s *Server) handleConnection(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	r := bufio.NewReader(conn)

	for {
		msg, err := ReadMessage(r)
		if err != nil {
			if err != io.EOF {
				s.logger.Warn().Err(err).Msg("ipc read failed")
			}
			return
		}

		switch msg.Type {
		case MsgSubscribe:
			s.pumpSubscriber(conn)
			return

		case MsgQueueReq:
			tasks, err := s.sched.FetchQueue(s.ctx)
			if err != nil {
				return
			}
			if err := WriteMessage(conn, QueueResp(tasks)); err != nil {
				return
			}

		case MsgPushQueue:
			if msg.Task == nil {
				s.logger.Warn().Msg("ipc PushQueue missing task payload")
				return
			}
			s.sched.PushQueue(s.ctx, *msg.Task)

		case MsgShutdown:
			s.sched.Shutdown(s.ctx)
			return

		default:
			s.logger.Warn().Str("type", string(msg.Type)).Msg("unexpected ipc message for server role")
			return
		}
	}
}

// pumpSubscriber streams status broadcasts to conn until either side closes.
func (s *Server) pumpSubscriber(conn net.Conn) {
	updates, err := s.sched.Subscribe(s.ctx)
	if err != nil {
		return
	}
	for {
		select {
		case st, ok := <-updates:
			if !ok {
				return
			}
			if err := WriteMessage(conn, StatusResp(st)); err != nil {
				return
			}
		case <-s.ctx.Done():
			return
		}
	}
}
