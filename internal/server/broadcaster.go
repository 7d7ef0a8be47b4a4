package server

import (
	"github.com/rs/zerolog/log"

	"spectrum/internal/model"
)

// broadcast sends an event to every connected player in the room. A failed
// write only drops that one recipient; the transport will surface the broken
// connection through its own read loop.
func (h *Handler) broadcast(room *model.Room, event string, payload any) {
	room.Mutex.Lock()
	defer room.Mutex.Unlock()
	for _, p := range room.Players {
		if p.Conn == nil || !p.IsConnected {
			continue
		}
		if err := p.Conn.Send(model.Event{Type: event, Payload: payload}); err != nil {
			log.Warn().Err(err).Str("room", room.ID).Str("player", p.ID).Str("event", event).Msg("broadcast write failed")
		}
	}
}

// broadcastExcept is broadcast minus the originating connection, for events
// the sender does not need echoed back.
func (h *Handler) broadcastExcept(room *model.Room, exceptConnID, event string, payload any) {
	room.Mutex.Lock()
	defer room.Mutex.Unlock()
	for _, p := range room.Players {
		if p.Conn == nil || !p.IsConnected || p.ConnID == exceptConnID {
			continue
		}
		if err := p.Conn.Send(model.Event{Type: event, Payload: payload}); err != nil {
			log.Warn().Err(err).Str("room", room.ID).Str("player", p.ID).Str("event", event).Msg("broadcast write failed")
		}
	}
}
