package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"spectrum/internal/database"
	"spectrum/internal/game"
	"spectrum/internal/model"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

var roomCodePattern = regexp.MustCompile(`^[A-Z0-9]{6}$`)

// Handler routes inbound player intents to the registry and the classic-mode
// transitions, and fans the results back out to the room.
type Handler struct {
	registry    *game.Registry
	store       *database.Store
	strictTeams bool
}

func NewHandler(registry *game.Registry, store *database.Store, strictTeams bool) *Handler {
	return &Handler{registry: registry, store: store, strictTeams: strictTeams}
}

// handleGameWS runs the per-connection loop. Each intent is handled to
// completion, including the persistence write, before the next one is read,
// and broadcasts are issued only after the write succeeded.
func (h *Handler) handleGameWS(c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	conn := model.NewConn(ws)
	connID := uuid.NewString()

	var curRoomID, curPlayerID string

	defer func() {
		if curRoomID != "" {
			playerID := h.registry.RemoveConnection(curRoomID, connID)
			if room, ok := h.registry.GetRoom(curRoomID); ok && playerID != "" {
				h.broadcastExcept(room, connID, "player_left", gin.H{"playerId": playerID})
				h.broadcast(room, "players", gin.H{"players": h.registry.Players(curRoomID)})
			}
		}
		conn.Close()
	}()

	for {
		msg, err := conn.ReadMessage()
		if err != nil {
			break
		}

		switch msg.Type {
		case "create-room":
			h.handleCreateRoom(conn, connID, msg.Payload, &curRoomID, &curPlayerID)
		case "join-room":
			h.handleJoinRoom(conn, connID, msg.Payload, &curRoomID, &curPlayerID)
		case "init-game":
			h.handleInitGame(conn, msg.Payload)
		case "join-team":
			h.handleJoinTeam(conn, msg.Payload)
		case "start-game":
			h.handleStartGame(conn, msg.Payload)
		case "submit-clue":
			h.handleSubmitClue(conn, msg.Payload)
		case "submit-guess":
			h.handleSubmitGuess(conn, curPlayerID, msg.Payload)
		case "update-guess":
			h.handleUpdateGuess(conn, connID, msg.Payload)
		case "submit-counter-guess":
			h.handleSubmitCounterGuess(conn, curPlayerID, msg.Payload)
		case "next-round":
			h.handleNextRound(conn, msg.Payload)
		case "ping":
			conn.Send(model.Event{Type: "pong"})
		default:
			h.sendError(conn, fmt.Errorf("%w: unknown event %q", model.ErrValidation, msg.Type))
		}
	}
}

func (h *Handler) handleCreateRoom(conn *model.Conn, connID string, raw json.RawMessage, curRoomID, curPlayerID *string) {
	var in model.CreateRoomIntent
	if err := json.Unmarshal(raw, &in); err != nil {
		h.sendError(conn, fmt.Errorf("%w: malformed create-room payload", model.ErrValidation))
		return
	}
	if !roomCodePattern.MatchString(in.RoomID) {
		h.sendError(conn, fmt.Errorf("%w: room code must be 6 uppercase characters", model.ErrValidation))
		return
	}
	if in.Mode == "" {
		in.Mode = model.ModeClassic
	}
	if in.Mode != model.ModeClassic && in.Mode != model.ModePulseCheck {
		h.sendError(conn, fmt.Errorf("%w: unknown game mode %q", model.ErrValidation, in.Mode))
		return
	}
	if in.PlayerID == "" || in.PlayerName == "" {
		h.sendError(conn, fmt.Errorf("%w: playerId and playerName are required", model.ErrValidation))
		return
	}

	if _, ok := h.registry.GetRoom(in.RoomID); !ok {
		// A racing creator losing here simply joins the room that won.
		if _, err := h.registry.CreateRoom(in.RoomID, in.Mode); err != nil && !errors.Is(err, model.ErrRoomExists) {
			h.sendError(conn, err)
			return
		}
	}
	h.joinPlayer(conn, connID, in.RoomID, in.PlayerID, in.PlayerName, curRoomID, curPlayerID)
}

func (h *Handler) handleJoinRoom(conn *model.Conn, connID string, raw json.RawMessage, curRoomID, curPlayerID *string) {
	var in model.JoinRoomIntent
	if err := json.Unmarshal(raw, &in); err != nil {
		h.sendError(conn, fmt.Errorf("%w: malformed join-room payload", model.ErrValidation))
		return
	}
	if in.PlayerID == "" || in.PlayerName == "" {
		h.sendError(conn, fmt.Errorf("%w: playerId and playerName are required", model.ErrValidation))
		return
	}
	h.joinPlayer(conn, connID, in.RoomID, in.PlayerID, in.PlayerName, curRoomID, curPlayerID)
}

func (h *Handler) joinPlayer(conn *model.Conn, connID, roomID, playerID, playerName string, curRoomID, curPlayerID *string) {
	player, err := h.registry.AddPlayer(roomID, playerID, playerName, connID, conn)
	if err != nil {
		h.sendError(conn, err)
		return
	}
	*curRoomID = roomID
	*curPlayerID = playerID

	room, ok := h.registry.GetRoom(roomID)
	if !ok {
		h.sendError(conn, model.ErrRoomNotFound)
		return
	}

	conn.Send(model.Event{Type: "joined", Payload: gin.H{
		"roomId":   roomID,
		"mode":     room.Mode,
		"playerId": playerID,
		"state":    h.registry.Snapshot(room),
	}})
	h.broadcastExcept(room, connID, "player_joined", gin.H{"player": model.PlayerInfo{
		ID:          player.ID,
		Name:        player.Name,
		IsConnected: player.IsConnected,
		JoinedAt:    player.JoinedAt.UnixMilli(),
	}})
	h.broadcast(room, "players", gin.H{"players": h.registry.Players(roomID)})
}

func (h *Handler) handleInitGame(conn *model.Conn, raw json.RawMessage) {
	var in model.InitGameIntent
	if err := json.Unmarshal(raw, &in); err != nil {
		h.sendError(conn, fmt.Errorf("%w: malformed init-game payload", model.ErrValidation))
		return
	}
	room, ok := h.registry.GetRoom(in.RoomID)
	if !ok {
		h.sendError(conn, model.ErrRoomNotFound)
		return
	}
	if room.Mode != model.ModeClassic {
		h.sendError(conn, fmt.Errorf("%w: room is not in classic mode", model.ErrValidation))
		return
	}

	room.Mutex.Lock()
	game.InitializeGame(room)
	gs := room.GameState
	teams := room.Teams
	room.Mutex.Unlock()

	snap, err := h.registry.ApplyStateUpdate(in.RoomID, game.StateUpdate{GameState: gs, Teams: teams})
	if err != nil {
		h.sendError(conn, err)
		return
	}
	h.broadcast(room, "game_initialized", gin.H{
		"gameState":   snap.GameState,
		"playerTeams": snap.PlayerTeams,
	})
}

func (h *Handler) handleJoinTeam(conn *model.Conn, raw json.RawMessage) {
	var in model.JoinTeamIntent
	if err := json.Unmarshal(raw, &in); err != nil {
		h.sendError(conn, fmt.Errorf("%w: malformed join-team payload", model.ErrValidation))
		return
	}
	if in.Team != model.TeamLeft && in.Team != model.TeamRight && in.Team != model.TeamUnset {
		h.sendError(conn, fmt.Errorf("%w: unknown team %q", model.ErrValidation, in.Team))
		return
	}
	room, ok := h.registry.GetRoom(in.RoomID)
	if !ok {
		h.sendError(conn, model.ErrRoomNotFound)
		return
	}

	room.Mutex.Lock()
	game.JoinTeam(room, in.PlayerID, in.Team)
	teams := room.Teams
	room.Mutex.Unlock()

	snap, err := h.registry.ApplyStateUpdate(in.RoomID, game.StateUpdate{Teams: teams})
	if err != nil {
		h.sendError(conn, err)
		return
	}
	h.broadcast(room, "team_updated", gin.H{
		"playerId":    in.PlayerID,
		"team":        in.Team,
		"playerTeams": snap.PlayerTeams,
	})
}

func (h *Handler) handleStartGame(conn *model.Conn, raw json.RawMessage) {
	var in model.StartGameIntent
	if err := json.Unmarshal(raw, &in); err != nil {
		h.sendError(conn, fmt.Errorf("%w: malformed start-game payload", model.ErrValidation))
		return
	}
	room, ok := h.registry.GetRoom(in.RoomID)
	if !ok {
		h.sendError(conn, model.ErrRoomNotFound)
		return
	}

	room.Mutex.Lock()
	if err := game.StartGame(room, in.StartingPlayerID, in.Theme); err != nil {
		room.Mutex.Unlock()
		h.sendError(conn, err)
		return
	}
	gs := room.GameState
	card := game.CardAt(gs.Theme, gs.DeckIndex, game.SeedValue(gs.DeckSeed))
	room.Mutex.Unlock()

	snap, err := h.registry.ApplyStateUpdate(in.RoomID, game.StateUpdate{GameState: gs})
	if err != nil {
		h.sendError(conn, err)
		return
	}
	h.broadcast(room, "game_started", gin.H{
		"gameState":    snap.GameState,
		"spectrumCard": card,
	})
}

func (h *Handler) handleSubmitClue(conn *model.Conn, raw json.RawMessage) {
	var in model.SubmitClueIntent
	if err := json.Unmarshal(raw, &in); err != nil {
		h.sendError(conn, fmt.Errorf("%w: malformed submit-clue payload", model.ErrValidation))
		return
	}
	room, ok := h.registry.GetRoom(in.RoomID)
	if !ok {
		h.sendError(conn, model.ErrRoomNotFound)
		return
	}

	room.Mutex.Lock()
	if err := game.SubmitClue(room, in.PlayerID, in.Clue); err != nil {
		room.Mutex.Unlock()
		h.sendError(conn, err)
		return
	}
	gs := room.GameState
	room.Mutex.Unlock()

	snap, err := h.registry.ApplyStateUpdate(in.RoomID, game.StateUpdate{GameState: gs})
	if err != nil {
		h.sendError(conn, err)
		return
	}
	h.broadcast(room, "clue_submitted", gin.H{"gameState": snap.GameState})
}

func (h *Handler) handleSubmitGuess(conn *model.Conn, playerID string, raw json.RawMessage) {
	var in model.SubmitGuessIntent
	if err := json.Unmarshal(raw, &in); err != nil {
		h.sendError(conn, fmt.Errorf("%w: malformed submit-guess payload", model.ErrValidation))
		return
	}
	room, ok := h.registry.GetRoom(in.RoomID)
	if !ok {
		h.sendError(conn, model.ErrRoomNotFound)
		return
	}

	room.Mutex.Lock()
	if h.strictTeams && room.GameState != nil &&
		room.Teams[playerID] != room.Teams[room.GameState.ClueGiver] {
		room.Mutex.Unlock()
		h.sendError(conn, fmt.Errorf("%w: only the clue giver's team may guess", model.ErrUnauthorized))
		return
	}
	if err := game.SubmitGuess(room, in.Guess); err != nil {
		room.Mutex.Unlock()
		h.sendError(conn, err)
		return
	}
	gs := room.GameState
	room.Mutex.Unlock()

	snap, err := h.registry.ApplyStateUpdate(in.RoomID, game.StateUpdate{GameState: gs})
	if err != nil {
		h.sendError(conn, err)
		return
	}
	h.broadcast(room, "guess_submitted", gin.H{"gameState": snap.GameState})
}

// handleUpdateGuess relays the live slider position to the rest of the room.
// Deliberately not persisted: it is an ephemeral preview, not a state change.
func (h *Handler) handleUpdateGuess(conn *model.Conn, connID string, raw json.RawMessage) {
	var in model.UpdateGuessIntent
	if err := json.Unmarshal(raw, &in); err != nil {
		h.sendError(conn, fmt.Errorf("%w: malformed update-guess payload", model.ErrValidation))
		return
	}
	room, ok := h.registry.GetRoom(in.RoomID)
	if !ok {
		h.sendError(conn, model.ErrRoomNotFound)
		return
	}
	h.broadcastExcept(room, connID, "guess_updated", gin.H{"guess": in.Guess})
}

func (h *Handler) handleSubmitCounterGuess(conn *model.Conn, playerID string, raw json.RawMessage) {
	var in model.SubmitCounterGuessIntent
	if err := json.Unmarshal(raw, &in); err != nil {
		h.sendError(conn, fmt.Errorf("%w: malformed submit-counter-guess payload", model.ErrValidation))
		return
	}
	room, ok := h.registry.GetRoom(in.RoomID)
	if !ok {
		h.sendError(conn, model.ErrRoomNotFound)
		return
	}

	room.Mutex.Lock()
	if h.strictTeams && room.GameState != nil &&
		room.Teams[playerID] != room.Teams[room.GameState.ClueGiver].Opposite() {
		room.Mutex.Unlock()
		h.sendError(conn, fmt.Errorf("%w: only the opposing team may counter-guess", model.ErrUnauthorized))
		return
	}
	if err := game.SubmitCounterGuess(room, in.Direction); err != nil {
		room.Mutex.Unlock()
		h.sendError(conn, err)
		return
	}
	gs := room.GameState
	over := game.IsGameOver(room)
	var winner *model.Team
	if over {
		w := game.Winner(room)
		winner = &w
	}
	room.Mutex.Unlock()

	snap, err := h.registry.ApplyStateUpdate(in.RoomID, game.StateUpdate{GameState: gs})
	if err != nil {
		h.sendError(conn, err)
		return
	}
	h.broadcast(room, "counter_guess_submitted", gin.H{
		"gameState":  snap.GameState,
		"isGameOver": over,
		"winner":     winner,
	})
}

func (h *Handler) handleNextRound(conn *model.Conn, raw json.RawMessage) {
	var in model.NextRoundIntent
	if err := json.Unmarshal(raw, &in); err != nil {
		h.sendError(conn, fmt.Errorf("%w: malformed next-round payload", model.ErrValidation))
		return
	}
	room, ok := h.registry.GetRoom(in.RoomID)
	if !ok {
		h.sendError(conn, model.ErrRoomNotFound)
		return
	}

	room.Mutex.Lock()
	gs := room.GameState
	if gs == nil {
		room.Mutex.Unlock()
		h.sendError(conn, model.ErrInvalidTransition)
		return
	}
	// The outgoing round's card is needed for the recap, so it is computed
	// before the deck index moves on.
	seed := game.SeedValue(gs.DeckSeed)
	lastCard := game.CardAt(gs.Theme, gs.DeckIndex, seed)
	if err := game.NextRound(room, in.NextClueGiverID, lastCard); err != nil {
		room.Mutex.Unlock()
		h.sendError(conn, err)
		return
	}
	nextCard := game.CardAt(gs.Theme, gs.DeckIndex, seed)
	room.Mutex.Unlock()

	snap, err := h.registry.ApplyStateUpdate(in.RoomID, game.StateUpdate{GameState: gs})
	if err != nil {
		h.sendError(conn, err)
		return
	}
	h.broadcast(room, "round_started", gin.H{
		"gameState":    snap.GameState,
		"spectrumCard": nextCard,
	})
}

// sendError reports a failure to the initiating connection only. Other room
// members never see it, and nothing has been persisted at this point.
func (h *Handler) sendError(conn *model.Conn, err error) {
	if sendErr := conn.Send(model.Event{Type: "error", Payload: gin.H{"message": err.Error()}}); sendErr != nil {
		log.Warn().Err(sendErr).Msg("write error event")
	}
}
