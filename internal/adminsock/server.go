// Package adminsock implements the Manager's read-only operator socket:
// a Unix domain socket speaking newline-delimited JSON, disabled unless
// config.OperatorConfig.Enabled is set (spec.md §6 names no such
// surface; this is ambient ops tooling, not a garage feature, so it
// ships off by default and never influences admission/billing
// decisions — it only reads them).
package adminsock

import (
	"encoding/json"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"go.uber.org/zap"
)

const (
	maxConcurrentConns = 4
	maxRequestBytes    = 4096
	connTimeout        = 10 * time.Second
)

// LevelStatus is a snapshot of one level's occupancy and alarm state.
type LevelStatus struct {
	Level       int  `json:"level"`
	Occupied    int  `json:"occupied"`
	Capacity    int  `json:"capacity"`
	AlarmActive bool `json:"alarm_active"`
}

// Status is a full read-only snapshot of the Manager's state.
type Status struct {
	Levels              []LevelStatus `json:"levels"`
	BillingTotalDollars float64       `json:"billing_total_dollars"`
}

// StatusProvider is implemented by the Manager. The operator socket
// never mutates anything through it — every command is a read.
type StatusProvider interface {
	Status() Status
}

// Request is the JSON structure for operator commands.
type Request struct {
	Cmd string `json:"cmd"` // status | billing
}

// Response is the JSON structure for operator command responses.
type Response struct {
	OK                  bool          `json:"ok"`
	Error               string        `json:"error,omitempty"`
	Levels              []LevelStatus `json:"levels,omitempty"`
	BillingTotalDollars float64       `json:"billing_total_dollars,omitempty"`
}

// Server is the Manager's read-only admin socket server.
type Server struct {
	socketPath string
	provider   StatusProvider
	log        *zap.Logger
	sem        chan struct{}
	lis        net.Listener
	done       chan struct{}
}

// NewServer creates a Server bound to socketPath, not yet listening.
func NewServer(socketPath string, provider StatusProvider, log *zap.Logger) *Server {
	return &Server{
		socketPath: socketPath,
		provider:   provider,
		log:        log,
		sem:        make(chan struct{}, maxConcurrentConns),
		done:       make(chan struct{}),
	}
}

// Start removes any stale socket file, binds, sets 0600 permissions, and
// begins accepting connections in a background goroutine.
func (s *Server) Start() error {
	if err := os.Remove(s.socketPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("adminsock: remove stale socket %q: %w", s.socketPath, err)
	}

	lis, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("adminsock: listen %q: %w", s.socketPath, err)
	}
	if err := os.Chmod(s.socketPath, 0o600); err != nil {
		lis.Close()
		return fmt.Errorf("adminsock: chmod %q: %w", s.socketPath, err)
	}

	s.lis = lis
	go s.acceptLoop()
	return nil
}

// Stop closes the listener, causing acceptLoop to return.
func (s *Server) Stop() {
	if s.lis != nil {
		s.lis.Close()
	}
	<-s.done
}

func (s *Server) acceptLoop() {
	defer close(s.done)
	for {
		conn, err := s.lis.Accept()
		if err != nil {
			return // listener closed by Stop
		}

		select {
		case s.sem <- struct{}{}:
		default:
			if s.log != nil {
				s.log.Warn("adminsock: max connections reached, rejecting")
			}
			conn.Close()
			continue
		}

		go func(c net.Conn) {
			defer func() { <-s.sem }()
			defer c.Close()
			s.handleConn(c)
		}(conn)
	}
}

func (s *Server) handleConn(conn net.Conn) {
	_ = conn.SetDeadline(time.Now().Add(connTimeout))

	buf := make([]byte, maxRequestBytes)
	n, err := conn.Read(buf)
	if err != nil && err != io.EOF {
		if s.log != nil {
			s.log.Warn("adminsock: read error", zap.Error(err))
		}
		return
	}

	var req Request
	if err := json.Unmarshal(buf[:n], &req); err != nil {
		s.writeResponse(conn, Response{OK: false, Error: "invalid JSON: " + err.Error()})
		return
	}
	s.writeResponse(conn, s.dispatch(req))
}

func (s *Server) dispatch(req Request) Response {
	status := s.provider.Status()
	switch req.Cmd {
	case "status":
		return Response{OK: true, Levels: status.Levels, BillingTotalDollars: status.BillingTotalDollars}
	case "billing":
		return Response{OK: true, BillingTotalDollars: status.BillingTotalDollars}
	default:
		return Response{OK: false, Error: fmt.Sprintf("unknown command %q (valid: status billing)", req.Cmd)}
	}
}

func (s *Server) writeResponse(conn net.Conn, resp Response) {
	data, _ := json.Marshal(resp)
	data = append(data, '\n')
	_, _ = conn.Write(data)
}
