package game

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"spectrum/internal/database"
	"spectrum/internal/model"
)

const maxPlayerNameLen = 32

// Registry is the single in-process owner of live room state. It bridges the
// in-memory cache to the durable store: every successful state update is
// written through before the caller proceeds.
type Registry struct {
	store       *database.Store
	gracePeriod time.Duration

	mu    sync.Mutex
	rooms map[string]*model.Room
}

// StateUpdate is a partial room update: nil fields are left untouched.
type StateUpdate struct {
	GameState *model.GameState
	Teams     map[string]model.Team
}

func NewRegistry(store *database.Store, gracePeriod time.Duration) *Registry {
	return &Registry{
		store:       store,
		gracePeriod: gracePeriod,
		rooms:       make(map[string]*model.Room),
	}
}

// Load reconstructs every active room from the store. Nobody is connected
// after a restart, so connection maps start empty. A load failure means the
// process cannot safely run; callers treat it as fatal.
func (reg *Registry) Load() error {
	records, err := reg.store.ListActiveRooms()
	if err != nil {
		return err
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()
	for _, rec := range records {
		room, err := reg.rebuildRoom(rec)
		if err != nil {
			return err
		}
		reg.rooms[rec.RoomID] = room
	}
	log.Info().Int("rooms", len(reg.rooms)).Msg("loaded active rooms from database")
	return nil
}

func (reg *Registry) rebuildRoom(rec database.RoomRecord) (*model.Room, error) {
	room := &model.Room{
		ID:             rec.RoomID,
		Mode:           rec.Mode,
		Players:        make(map[string]*model.Player),
		Teams:          make(map[string]model.Team),
		Conns:          make(map[string]string),
		CreatedAt:      time.UnixMilli(rec.CreatedAt),
		LastActivityAt: time.UnixMilli(rec.LastActivity),
		IsActive:       true,
	}

	raw, err := reg.store.GetGameState(rec.RoomID)
	if errors.Is(err, model.ErrRoomNotFound) {
		// Room created but never played; nothing to restore.
		return room, nil
	}
	if err != nil {
		return nil, err
	}

	var snap model.RoomSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("%w: corrupt snapshot for room %s: %v", model.ErrStorage, rec.RoomID, err)
	}
	for _, p := range snap.Players {
		room.Players[p.ID] = &model.Player{
			ID:       p.ID,
			Name:     p.Name,
			JoinedAt: time.UnixMilli(p.JoinedAt),
		}
		room.Order = append(room.Order, p.ID)
	}
	for _, entry := range snap.PlayerTeams {
		room.Teams[entry.PlayerID] = entry.Team
	}
	room.GameState = snap.GameState
	return room, nil
}

// CreateRoom registers a new room, persisting its record before caching it.
func (reg *Registry) CreateRoom(roomID string, mode model.GameMode) (*model.Room, error) {
	reg.mu.Lock()
	if _, exists := reg.rooms[roomID]; exists {
		reg.mu.Unlock()
		return nil, model.ErrRoomExists
	}
	reg.mu.Unlock()

	if err := reg.store.CreateRoom(roomID, mode); err != nil {
		return nil, err
	}

	now := time.Now()
	room := &model.Room{
		ID:             roomID,
		Mode:           mode,
		Players:        make(map[string]*model.Player),
		Teams:          make(map[string]model.Team),
		Conns:          make(map[string]string),
		CreatedAt:      now,
		LastActivityAt: now,
		IsActive:       true,
	}

	reg.mu.Lock()
	reg.rooms[roomID] = room
	reg.mu.Unlock()

	reg.store.LogEvent(roomID, "room_created", map[string]any{"mode": mode})
	log.Info().Str("room", roomID).Str("mode", string(mode)).Msg("room created")
	return room, nil
}

// GetRoom is a pure cache lookup, no I/O.
func (reg *Registry) GetRoom(roomID string) (*model.Room, bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	room, ok := reg.rooms[roomID]
	return room, ok
}

// AddPlayer adds a player to a room, or reattaches a returning player: a known
// player id means reconnection, which only refreshes the connection info and
// never creates a duplicate entry.
func (reg *Registry) AddPlayer(roomID, playerID, name, connID string, conn *model.Conn) (*model.Player, error) {
	room, ok := reg.GetRoom(roomID)
	if !ok {
		return nil, model.ErrRoomNotFound
	}

	name = strings.TrimSpace(name)
	if runes := []rune(name); len(runes) > maxPlayerNameLen {
		name = string(runes[:maxPlayerNameLen])
	}

	room.Mutex.Lock()
	if existing, ok := room.Players[playerID]; ok {
		existing.Conn = conn
		existing.ConnID = connID
		existing.IsConnected = true
		if name != "" {
			existing.Name = name
		}
		room.Conns[connID] = playerID
		room.Mutex.Unlock()

		reg.store.LogEvent(roomID, "player_reconnected", map[string]any{"playerId": playerID})
		log.Info().Str("room", roomID).Str("player", playerID).Msg("player reconnected")
		return existing, nil
	}

	player := &model.Player{
		ID:          playerID,
		Name:        name,
		IsConnected: true,
		JoinedAt:    time.Now(),
		ConnID:      connID,
		Conn:        conn,
	}
	room.Players[playerID] = player
	room.Order = append(room.Order, playerID)
	room.Conns[connID] = playerID
	room.Mutex.Unlock()

	reg.store.LogEvent(roomID, "player_joined", map[string]any{"playerId": playerID, "playerName": name})
	log.Info().Str("room", roomID).Str("player", playerID).Msg("player joined")
	return player, nil
}

// RemoveConnection detaches a transport connection from its player. The player
// record stays so the same player id can reconnect later. When the last
// connected player leaves, a deferred check marks the room inactive after the
// grace period, debouncing transient reconnects.
func (reg *Registry) RemoveConnection(roomID, connID string) string {
	room, ok := reg.GetRoom(roomID)
	if !ok {
		return ""
	}

	room.Mutex.Lock()
	playerID, ok := room.Conns[connID]
	if ok {
		delete(room.Conns, connID)
		if p := room.Players[playerID]; p != nil && p.ConnID == connID {
			p.IsConnected = false
			p.Conn = nil
			p.ConnID = ""
		}
	}
	anyConnected := anyConnectedLocked(room)
	room.Mutex.Unlock()

	if !ok {
		return ""
	}
	reg.store.LogEvent(roomID, "player_disconnected", map[string]any{"playerId": playerID})
	log.Info().Str("room", roomID).Str("player", playerID).Msg("player disconnected")

	if !anyConnected {
		time.AfterFunc(reg.gracePeriod, func() {
			reg.deactivateIfAbandoned(roomID)
		})
	}
	return playerID
}

func (reg *Registry) deactivateIfAbandoned(roomID string) {
	room, ok := reg.GetRoom(roomID)
	if !ok {
		return
	}
	room.Mutex.Lock()
	abandoned := !anyConnectedLocked(room)
	if abandoned {
		room.IsActive = false
	}
	room.Mutex.Unlock()

	if !abandoned {
		return
	}
	if err := reg.store.MarkInactive(roomID); err != nil {
		log.Error().Err(err).Str("room", roomID).Msg("mark room inactive")
		return
	}
	log.Info().Str("room", roomID).Msg("room marked inactive")
}

func anyConnectedLocked(room *model.Room) bool {
	for _, p := range room.Players {
		if p.IsConnected {
			return true
		}
	}
	return false
}

// ApplyStateUpdate shallow-merges the update into the cached room and writes
// the full serialized snapshot through to the store. The merge happens first,
// so in-memory readers always see the latest state even if the write fails;
// that trade-off is reported to the caller, never hidden.
func (reg *Registry) ApplyStateUpdate(roomID string, update StateUpdate) (*model.RoomSnapshot, error) {
	room, ok := reg.GetRoom(roomID)
	if !ok {
		return nil, model.ErrRoomNotFound
	}

	room.Mutex.Lock()
	if update.GameState != nil {
		room.GameState = update.GameState
	}
	if update.Teams != nil {
		room.Teams = update.Teams
	}
	room.LastActivityAt = time.Now()
	snap := snapshotLocked(room)
	data, err := json.Marshal(snap)
	room.Mutex.Unlock()
	if err != nil {
		return nil, fmt.Errorf("%w: serialize room %s: %v", model.ErrStorage, roomID, err)
	}

	if err := reg.store.SaveGameState(roomID, data); err != nil {
		return nil, err
	}
	return snap, nil
}

// Snapshot returns the transport-safe view of a room.
func (reg *Registry) Snapshot(room *model.Room) *model.RoomSnapshot {
	room.Mutex.Lock()
	defer room.Mutex.Unlock()
	return snapshotLocked(room)
}

func snapshotLocked(room *model.Room) *model.RoomSnapshot {
	snap := &model.RoomSnapshot{
		RoomID:         room.ID,
		Mode:           room.Mode,
		Players:        make([]model.PlayerInfo, 0, len(room.Order)),
		PlayerTeams:    make([]model.TeamEntry, 0, len(room.Teams)),
		GameState:      room.GameState,
		CreatedAt:      room.CreatedAt.UnixMilli(),
		LastActivityAt: room.LastActivityAt.UnixMilli(),
	}
	for _, id := range room.Order {
		p, ok := room.Players[id]
		if !ok {
			continue
		}
		snap.Players = append(snap.Players, model.PlayerInfo{
			ID:          p.ID,
			Name:        p.Name,
			IsConnected: p.IsConnected,
			JoinedAt:    p.JoinedAt.UnixMilli(),
		})
		if team, ok := room.Teams[id]; ok {
			snap.PlayerTeams = append(snap.PlayerTeams, model.TeamEntry{PlayerID: id, Team: team})
		}
	}
	return snap
}

// Players returns the room's roster in join order.
func (reg *Registry) Players(roomID string) []model.PlayerInfo {
	room, ok := reg.GetRoom(roomID)
	if !ok {
		return nil
	}
	room.Mutex.Lock()
	defer room.Mutex.Unlock()

	players := make([]model.PlayerInfo, 0, len(room.Order))
	for _, id := range room.Order {
		if p, ok := room.Players[id]; ok {
			players = append(players, model.PlayerInfo{
				ID:          p.ID,
				Name:        p.Name,
				IsConnected: p.IsConnected,
				JoinedAt:    p.JoinedAt.UnixMilli(),
			})
		}
	}
	return players
}

// CleanupInactive expires long-abandoned rooms: the store purges inactive
// records past the retention window, and matching rooms are evicted from the
// cache. Invoked on a fixed interval.
func (reg *Registry) CleanupInactive(maxAge time.Duration) (int64, error) {
	purged, err := reg.store.PurgeInactive(maxAge)
	if err != nil {
		return 0, err
	}

	cutoff := time.Now().Add(-maxAge)
	reg.mu.Lock()
	for id, room := range reg.rooms {
		room.Mutex.Lock()
		stale := !anyConnectedLocked(room) && room.LastActivityAt.Before(cutoff)
		room.Mutex.Unlock()
		if stale {
			delete(reg.rooms, id)
		}
	}
	reg.mu.Unlock()

	if purged > 0 {
		log.Info().Int64("purged", purged).Msg("cleaned up inactive rooms")
	}
	return purged, nil
}
