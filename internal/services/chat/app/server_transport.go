package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/louisbranch/dualitydice/internal/duality/service"
	"github.com/louisbranch/dualitydice/internal/platform/timeouts"
	"github.com/louisbranch/dualitydice/internal/storage"
	"golang.org/x/net/websocket"
)

// NewHandler creates the chat routes. A non-positive commandTimeout uses
// timeouts.Command.
func NewHandler(exec Executor, commandTimeout time.Duration) http.Handler {
	if commandTimeout <= 0 {
		commandTimeout = timeouts.Command
	}
	hub := newRoomHub()
	mux := http.NewServeMux()
	mux.HandleFunc("/up", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	wsHandler := websocket.Handler(func(conn *websocket.Conn) {
		handleWSConn(conn, hub, exec, commandTimeout)
	})

	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		wsHandler.ServeHTTP(w, r)
	})

	return mux
}

func handleWSConn(conn *websocket.Conn, hub *roomHub, exec Executor, commandTimeout time.Duration) {
	defer func() {
		_ = conn.Close()
	}()

	decoder := json.NewDecoder(conn)
	session := newWSSession(newWSPeer(json.NewEncoder(conn)))
	defer func() {
		if _, _, room := session.current(); room != nil {
			leaveGroupRoom(hub, room, session.peer)
		}
	}()

	ctx := context.Background()
	if request := conn.Request(); request != nil {
		ctx = request.Context()
	}

	windowStart := time.Now()
	framesInWindow := 0
	decodeErrors := 0

	for {
		var frame wsFrame
		if err := decoder.Decode(&frame); err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			decodeErrors++
			_ = writeWSError(session.peer, "", "INVALID_ARGUMENT", "invalid frame payload")
			if decodeErrors >= maxDecodeErrorsPerConn {
				return
			}
			continue
		}
		decodeErrors = 0

		if len(frame.Payload) > maxFramePayloadBytes {
			_ = writeWSError(session.peer, frame.RequestID, "INVALID_ARGUMENT", "payload too large")
			continue
		}

		now := time.Now()
		if now.Sub(windowStart) >= time.Second {
			windowStart = now
			framesInWindow = 0
		}
		framesInWindow++
		if framesInWindow > maxFramesPerSecond {
			_ = writeWSError(session.peer, frame.RequestID, "RESOURCE_EXHAUSTED", "rate limit exceeded")
			return
		}

		switch frame.Type {
		case frameJoin:
			handleJoinFrame(session, hub, frame)
		case frameCommand:
			handleCommandFrame(ctx, session, exec, commandTimeout, frame)
		case frameHistoryBefore:
			handleHistoryBeforeFrame(session, frame)
		default:
			_ = writeWSError(session.peer, frame.RequestID, "INVALID_ARGUMENT", "unsupported frame type")
		}
	}
}

func leaveGroupRoom(hub *roomHub, room *groupRoom, peer *wsPeer) {
	if room == nil || peer == nil {
		return
	}
	if room.leave(peer) {
		hub.release(room)
	}
}

// handleJoinFrame binds the connection to an actor and joins the actor's
// group room. A later join rebinds the connection.
func handleJoinFrame(session *wsSession, hub *roomHub, frame wsFrame) {
	var payload joinPayload
	if err := json.Unmarshal(frame.Payload, &payload); err != nil {
		_ = writeWSError(session.peer, frame.RequestID, "INVALID_ARGUMENT", "invalid join payload")
		return
	}

	actor := storage.Actor{
		ID:      strings.TrimSpace(payload.ActorID),
		Name:    strings.TrimSpace(payload.ActorName),
		GroupID: strings.TrimSpace(payload.GroupID),
	}
	if actor.GroupID == "" {
		_ = writeWSError(session.peer, frame.RequestID, "INVALID_ARGUMENT", "group_id is required")
		return
	}
	if actor.ID == "" {
		_ = writeWSError(session.peer, frame.RequestID, "INVALID_ARGUMENT", "actor_id is required")
		return
	}
	if actor.Name == "" {
		actor.Name = actor.ID
	}

	room := hub.room(actor.GroupID)
	previous := session.bind(actor, strings.TrimSpace(payload.Locale), room)
	if previous != nil && previous != room {
		leaveGroupRoom(hub, previous, session.peer)
	}
	latest := room.join(session.peer)

	_ = session.peer.writeFrame(wsFrame{
		Type:      frameJoined,
		RequestID: frame.RequestID,
		Payload: mustJSON(joinedPayload{
			GroupID:          actor.GroupID,
			ActorID:          actor.ID,
			LatestSequenceID: latest,
			ServerTime:       time.Now().UTC().Format(time.RFC3339),
		}),
	})
}

// handleCommandFrame executes a command line and broadcasts the reply to the
// caller's room. The caller also receives an ack before the broadcast.
func handleCommandFrame(ctx context.Context, session *wsSession, exec Executor, timeout time.Duration, frame wsFrame) {
	var payload commandPayload
	if err := json.Unmarshal(frame.Payload, &payload); err != nil {
		_ = writeWSError(session.peer, frame.RequestID, "INVALID_ARGUMENT", "invalid command payload")
		return
	}

	clientMessageID := strings.TrimSpace(payload.ClientMessageID)
	if utf8.RuneCountInString(clientMessageID) > maxClientMessageIDRunes {
		_ = writeWSError(session.peer, frame.RequestID, "INVALID_ARGUMENT", "client_message_id must be at most 128 characters")
		return
	}
	text := strings.TrimSpace(payload.Text)
	if text == "" {
		_ = writeWSError(session.peer, frame.RequestID, "INVALID_ARGUMENT", "text is required")
		return
	}
	if utf8.RuneCountInString(text) > maxCommandRunes {
		_ = writeWSError(session.peer, frame.RequestID, "INVALID_ARGUMENT", "text must be at most 2000 characters")
		return
	}

	actor, locale, room := session.current()
	if room == nil {
		_ = writeWSError(session.peer, frame.RequestID, "FORBIDDEN", "must join a group room before sending commands")
		return
	}
	for {
		existing, done, wait := room.reserve(clientMessageID)
		if done {
			writeAck(session.peer, frame.RequestID, existing)
			return
		}
		if wait == nil {
			break
		}
		select {
		case <-wait:
		case <-ctx.Done():
			return
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	reply, err := exec.Execute(callCtx, service.Request{Actor: actor, Text: text, Locale: locale})
	cancel()
	if err != nil {
		room.unreserve(clientMessageID)
		if errors.Is(err, service.ErrNotCommand) {
			_ = writeWSError(session.peer, frame.RequestID, "INVALID_ARGUMENT", "text is not a command line")
			return
		}
		log.Printf("chat: command failed group=%q actor=%q err=%v", actor.GroupID, actor.ID, err)
		_ = writeWSError(session.peer, frame.RequestID, "UNAVAILABLE", "command execution unavailable")
		return
	}

	msg, duplicate, subscribers := room.appendReply(actor, text, reply, clientMessageID)
	writeAck(session.peer, frame.RequestID, msg)
	if duplicate {
		return
	}

	messageFrame := wsFrame{
		Type:    frameMessage,
		Payload: mustJSON(messageEnvelope{Message: msg}),
	}
	for _, subscriber := range subscribers {
		_ = subscriber.writeFrame(messageFrame)
	}
}

func writeAck(peer *wsPeer, requestID string, msg replyMessage) {
	_ = peer.writeFrame(wsFrame{
		Type:      frameAck,
		RequestID: requestID,
		Payload: mustJSON(ackEnvelope{
			Result: ackResult{
				Status:     "ok",
				MessageID:  msg.MessageID,
				SequenceID: msg.SequenceID,
			},
		}),
	})
}

func handleHistoryBeforeFrame(session *wsSession, frame wsFrame) {
	var payload historyBeforePayload
	if err := json.Unmarshal(frame.Payload, &payload); err != nil {
		_ = writeWSError(session.peer, frame.RequestID, "INVALID_ARGUMENT", "invalid history payload")
		return
	}
	if payload.BeforeSequenceID < 1 {
		_ = writeWSError(session.peer, frame.RequestID, "INVALID_ARGUMENT", "before_sequence_id must be >= 1")
		return
	}
	if payload.Limit <= 0 {
		payload.Limit = 50
	}
	if payload.Limit > 200 {
		payload.Limit = 200
	}

	_, _, room := session.current()
	if room == nil {
		_ = writeWSError(session.peer, frame.RequestID, "FORBIDDEN", "must join a group room before requesting history")
		return
	}

	history := room.historyBefore(payload.BeforeSequenceID, payload.Limit)
	for _, msg := range history {
		_ = session.peer.writeFrame(wsFrame{
			Type:    frameMessage,
			Payload: mustJSON(messageEnvelope{Message: msg}),
		})
	}
	_ = session.peer.writeFrame(wsFrame{
		Type:      frameAck,
		RequestID: frame.RequestID,
		Payload: mustJSON(ackEnvelope{
			Result: ackResult{
				Status: "ok",
				Count:  len(history),
			},
		}),
	})
}

func writeWSError(peer *wsPeer, requestID string, code string, message string) error {
	return peer.writeFrame(wsFrame{
		Type:      frameError,
		RequestID: requestID,
		Payload: mustJSON(wsErrorEnvelope{
			Error: wsError{
				Code:      code,
				Message:   message,
				Retryable: code == "UNAVAILABLE",
			},
		}),
	})
}

func mustJSON(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		log.Printf("failed to marshal websocket frame payload: %v", err)
		return nil
	}
	return b
}
