package server

import (
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/louisbranch/dualitydice/internal/duality/command"
	"github.com/louisbranch/dualitydice/internal/storage"
)

type wsSession struct {
	mu     sync.Mutex
	actor  storage.Actor
	locale string
	room   *groupRoom
	peer   *wsPeer
}

func newWSSession(peer *wsPeer) *wsSession {
	return &wsSession{peer: peer}
}

// bind records the joined identity and room and returns the previous room.
func (s *wsSession) bind(actor storage.Actor, locale string, next *groupRoom) *groupRoom {
	s.mu.Lock()
	previous := s.room
	s.actor = actor
	s.locale = locale
	s.room = next
	s.mu.Unlock()
	return previous
}

func (s *wsSession) current() (storage.Actor, string, *groupRoom) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.actor, s.locale, s.room
}

type wsPeer struct {
	mu      sync.Mutex
	encoder *json.Encoder
}

func newWSPeer(encoder *json.Encoder) *wsPeer {
	return &wsPeer{encoder: encoder}
}

func (p *wsPeer) writeFrame(frame wsFrame) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.encoder.Encode(frame)
}

type roomHub struct {
	mu    sync.Mutex
	rooms map[string]*groupRoom
}

func newRoomHub() *roomHub {
	return &roomHub{rooms: make(map[string]*groupRoom)}
}

func (h *roomHub) room(groupID string) *groupRoom {
	h.mu.Lock()
	defer h.mu.Unlock()

	room, ok := h.rooms[groupID]
	if ok {
		return room
	}

	room = newGroupRoom(groupID)
	h.rooms[groupID] = room
	return room
}

// release drops an empty room so its history does not outlive its members.
func (h *roomHub) release(room *groupRoom) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[room.groupID] == room && room.empty() {
		delete(h.rooms, room.groupID)
	}
}

// groupRoom holds the subscribers and reply history of one group. pending
// holds the client message ids whose command is still executing.
type groupRoom struct {
	mu               sync.Mutex
	groupID          string
	nextSequence     int64
	messages         []replyMessage
	idempotencyBy    map[string]replyMessage
	idempotencyOrder []string
	pending          map[string]chan struct{}
	subscribers      map[*wsPeer]struct{}
}

func newGroupRoom(groupID string) *groupRoom {
	return &groupRoom{
		groupID:       groupID,
		idempotencyBy: make(map[string]replyMessage),
		pending:       make(map[string]chan struct{}),
		subscribers:   make(map[*wsPeer]struct{}),
	}
}

func (r *groupRoom) join(peer *wsPeer) int64 {
	r.mu.Lock()
	r.subscribers[peer] = struct{}{}
	latest := r.nextSequence
	r.mu.Unlock()
	return latest
}

func (r *groupRoom) leave(peer *wsPeer) bool {
	r.mu.Lock()
	delete(r.subscribers, peer)
	empty := len(r.subscribers) == 0
	r.mu.Unlock()
	return empty
}

func (r *groupRoom) empty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subscribers) == 0
}

// reserve claims clientMessageID for one execution. It reports the recorded
// message when the id already completed. While another execution holds the
// id, it returns a channel that closes once that execution finishes; the
// caller waits and reserves again. An empty id is never reserved.
func (r *groupRoom) reserve(clientMessageID string) (replyMessage, bool, <-chan struct{}) {
	if clientMessageID == "" {
		return replyMessage{}, false, nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if msg, ok := r.idempotencyBy[clientMessageID]; ok {
		return msg, true, nil
	}
	if wait, ok := r.pending[clientMessageID]; ok {
		return replyMessage{}, false, wait
	}
	r.pending[clientMessageID] = make(chan struct{})
	return replyMessage{}, false, nil
}

// unreserve drops a reservation whose execution failed so a retry can run.
func (r *groupRoom) unreserve(clientMessageID string) {
	if clientMessageID == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finishPending(clientMessageID)
}

func (r *groupRoom) finishPending(clientMessageID string) {
	if wait, ok := r.pending[clientMessageID]; ok {
		close(wait)
		delete(r.pending, clientMessageID)
	}
}

// appendReply records a command reply and returns the subscribers to notify.
// A replayed clientMessageID returns the recorded message and no subscribers.
func (r *groupRoom) appendReply(actor storage.Actor, text string, reply command.Reply, clientMessageID string) (replyMessage, bool, []*wsPeer) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if clientMessageID != "" {
		if existing, ok := r.idempotencyBy[clientMessageID]; ok {
			return existing, true, nil
		}
	}

	r.nextSequence++
	msg := replyMessage{
		MessageID:  uuid.NewString(),
		GroupID:    r.groupID,
		SequenceID: r.nextSequence,
		SentAt:     time.Now().UTC().Format(time.RFC3339),
		Actor: messageActor{
			ActorID: actor.ID,
			Name:    strings.TrimSpace(actor.Name),
		},
		Command:         text,
		Body:            reply.Text,
		OK:              reply.OK,
		ShowHelp:        reply.ShowHelp,
		Code:            string(reply.Code),
		ClientMessageID: clientMessageID,
	}

	r.messages = append(r.messages, msg)
	if len(r.messages) > maxRoomMessages {
		r.messages = r.messages[len(r.messages)-maxRoomMessages:]
	}

	if clientMessageID != "" {
		r.finishPending(clientMessageID)
		r.idempotencyBy[clientMessageID] = msg
		r.idempotencyOrder = append(r.idempotencyOrder, clientMessageID)
		if len(r.idempotencyOrder) > maxIdempotencyRecord {
			evict := r.idempotencyOrder[0]
			r.idempotencyOrder = r.idempotencyOrder[1:]
			delete(r.idempotencyBy, evict)
		}
	}

	subscribers := make([]*wsPeer, 0, len(r.subscribers))
	for subscriber := range r.subscribers {
		subscribers = append(subscribers, subscriber)
	}
	return msg, false, subscribers
}

func (r *groupRoom) historyBefore(beforeSequenceID int64, limit int) []replyMessage {
	r.mu.Lock()
	defer r.mu.Unlock()

	history := make([]replyMessage, 0, limit)
	for _, msg := range r.messages {
		if msg.SequenceID < beforeSequenceID {
			history = append(history, msg)
		}
	}
	if len(history) > limit {
		history = history[len(history)-limit:]
	}
	return history
}
