// Package server hosts the duality chat WebSocket transport: actors join a
// group room and every command reply is broadcast to the room.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/louisbranch/dualitydice/internal/duality/command"
	"github.com/louisbranch/dualitydice/internal/duality/service"
	"github.com/louisbranch/dualitydice/internal/platform/timeouts"
)

const (
	maxFramePayloadBytes   = 16 * 1024
	maxFramesPerSecond     = 40
	maxDecodeErrorsPerConn = 3

	maxCommandRunes         = 2000
	maxClientMessageIDRunes = 128

	maxRoomMessages      = 1000
	maxIdempotencyRecord = 4000
)

// Frame types exchanged on /ws.
const (
	frameJoin          = "duality.join"
	frameJoined        = "duality.joined"
	frameCommand       = "duality.command"
	frameAck           = "duality.ack"
	frameMessage       = "duality.message"
	frameHistoryBefore = "duality.history.before"
	frameError         = "duality.error"
)

// Config defines the inputs for the chat transport boundary.
type Config struct {
	HTTPAddr          string
	ReadHeaderTimeout time.Duration
	ShutdownTimeout   time.Duration
	// CommandTimeout bounds one command, store round trips included.
	CommandTimeout time.Duration
}

// Executor runs one command line.
type Executor interface {
	Execute(ctx context.Context, req service.Request) (command.Reply, error)
}

// Server hosts the chat HTTP/WebSocket process.
//
// Rolls are resolved by the executor; the server only owns rooms and
// connection limits.
type Server struct {
	httpAddr        string
	shutdownTimeout time.Duration
	httpServer      *http.Server
}

type wsFrame struct {
	Type      string          `json:"type"`
	RequestID string          `json:"request_id,omitempty"`
	Payload   json.RawMessage `json:"payload"`
}

type wsErrorEnvelope struct {
	Error wsError `json:"error"`
}

type wsError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

type joinPayload struct {
	GroupID   string `json:"group_id"`
	ActorID   string `json:"actor_id"`
	ActorName string `json:"actor_name"`
	Locale    string `json:"locale,omitempty"`
}

type joinedPayload struct {
	GroupID          string `json:"group_id"`
	ActorID          string `json:"actor_id"`
	LatestSequenceID int64  `json:"latest_sequence_id"`
	ServerTime       string `json:"server_time"`
}

type commandPayload struct {
	ClientMessageID string `json:"client_message_id"`
	Text            string `json:"text"`
}

type historyBeforePayload struct {
	BeforeSequenceID int64 `json:"before_sequence_id"`
	Limit            int   `json:"limit"`
}

type messageEnvelope struct {
	Message replyMessage `json:"message"`
}

// replyMessage is one command and its rendered reply, shared with the room.
type replyMessage struct {
	MessageID       string       `json:"message_id"`
	GroupID         string       `json:"group_id"`
	SequenceID      int64        `json:"sequence_id"`
	SentAt          string       `json:"sent_at"`
	Actor           messageActor `json:"actor"`
	Command         string       `json:"command"`
	Body            string       `json:"body"`
	OK              bool         `json:"ok"`
	ShowHelp        bool         `json:"show_help,omitempty"`
	Code            string       `json:"code,omitempty"`
	ClientMessageID string       `json:"client_message_id,omitempty"`
}

type messageActor struct {
	ActorID string `json:"actor_id"`
	Name    string `json:"name"`
}

type ackEnvelope struct {
	Result ackResult `json:"result"`
}

type ackResult struct {
	Status     string `json:"status"`
	MessageID  string `json:"message_id,omitempty"`
	SequenceID int64  `json:"sequence_id,omitempty"`
	Count      int    `json:"count,omitempty"`
}

// NewServer builds a configured chat server around exec.
func NewServer(config Config, exec Executor) (*Server, error) {
	httpAddr := strings.TrimSpace(config.HTTPAddr)
	if httpAddr == "" {
		return nil, errors.New("http address is required")
	}
	if exec == nil {
		return nil, errors.New("command executor is required")
	}
	if config.ReadHeaderTimeout <= 0 {
		config.ReadHeaderTimeout = timeouts.ReadHeader
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = timeouts.Shutdown
	}

	return &Server{
		httpAddr:        httpAddr,
		shutdownTimeout: config.ShutdownTimeout,
		httpServer: &http.Server{
			Addr:              httpAddr,
			Handler:           NewHandler(exec, config.CommandTimeout),
			ReadHeaderTimeout: config.ReadHeaderTimeout,
		},
	}, nil
}

// Run creates and serves a chat server until the context ends.
func Run(ctx context.Context, config Config, exec Executor) error {
	server, err := NewServer(config, exec)
	if err != nil {
		return fmt.Errorf("init chat server: %w", err)
	}

	if err := server.ListenAndServe(ctx); err != nil {
		return fmt.Errorf("serve chat: %w", err)
	}
	return nil
}

// ListenAndServe runs the HTTP server until the context ends.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s == nil {
		return errors.New("chat server is nil")
	}
	if ctx == nil {
		return errors.New("context is required")
	}

	serveErr := make(chan error, 1)
	log.Printf("chat server listening on %s", s.httpAddr)
	go func() {
		serveErr <- s.httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		err := s.httpServer.Shutdown(shutdownCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	}
}
