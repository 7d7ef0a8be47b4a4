package model

import (
	"sync"
	"time"
)

type GameMode string

const (
	ModeClassic    GameMode = "classic"
	ModePulseCheck GameMode = "pulsecheck"
)

type Team string

const (
	TeamUnset Team = "unset"
	TeamLeft  Team = "left"
	TeamRight Team = "right"
)

// Opposite returns the other team, or TeamUnset for TeamUnset.
func (t Team) Opposite() Team {
	switch t {
	case TeamLeft:
		return TeamRight
	case TeamRight:
		return TeamLeft
	default:
		return TeamUnset
	}
}

type Phase string

const (
	PhaseSetup        Phase = "setup"
	PhasePickTeams    Phase = "pick_teams"
	PhaseGiveClue     Phase = "give_clue"
	PhaseMakeGuess    Phase = "make_guess"
	PhaseCounterGuess Phase = "counter_guess"
	PhaseViewScore    Phase = "view_score"
)

// Counter-guess directions relative to the submitted guess.
const (
	DirectionLeft  = "left"
	DirectionRight = "right"
)

// Card is one spectrum card: the two labeled ends of the axis.
type Card struct {
	Left  string `json:"left"`
	Right string `json:"right"`
}

type Player struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	IsConnected bool      `json:"isConnected"`
	JoinedAt    time.Time `json:"joinedAt"`
	ConnID      string    `json:"-"`
	Conn        *Conn     `json:"-"`
}

// TurnSummary is the recap of a finished round, shown while the next one runs.
type TurnSummary struct {
	SpectrumCard   Card   `json:"spectrumCard"`
	ClueGiverName  string `json:"clueGiverName"`
	Clue           string `json:"clue"`
	SpectrumTarget int    `json:"spectrumTarget"`
	Guess          int    `json:"guess"`
}

type GameState struct {
	Phase          Phase        `json:"phase"`
	TurnsTaken     int          `json:"turnsTaken"`
	DeckSeed       string       `json:"deckSeed"`
	DeckIndex      int          `json:"deckIndex"`
	SpectrumTarget int          `json:"spectrumTarget"`
	Clue           string       `json:"clue"`
	Guess          int          `json:"guess"`
	CounterGuess   string       `json:"counterGuess"`
	ClueGiver      string       `json:"clueGiver"`
	LeftScore      int          `json:"leftScore"`
	RightScore     int          `json:"rightScore"`
	PreviousTurn   *TurnSummary `json:"previousTurn"`
	Theme          string       `json:"theme,omitempty"`
}

// Room is the authoritative in-memory state of one game session. The registry
// owns all mutation; Conns maps transport connection ids to player ids and is
// never persisted.
type Room struct {
	ID             string             `json:"roomId"`
	Mode           GameMode           `json:"mode"`
	Players        map[string]*Player `json:"players"`
	Order          []string           `json:"playerOrder"`
	Teams          map[string]Team    `json:"playerTeams"`
	GameState      *GameState         `json:"gameState"`
	CreatedAt      time.Time          `json:"createdAt"`
	LastActivityAt time.Time          `json:"lastActivityAt"`
	IsActive       bool               `json:"isActive"`
	Conns          map[string]string  `json:"-"`
	Mutex          sync.Mutex         `json:"-"`
}

// PlayerInfo is the public view of a player, safe for roster broadcasts.
type PlayerInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	IsConnected bool   `json:"isConnected"`
	JoinedAt    int64  `json:"joinedAt"`
}

// TeamEntry keeps team assignments as an explicit pair list so snapshots have a
// stable shape regardless of map iteration order.
type TeamEntry struct {
	PlayerID string `json:"playerId"`
	Team     Team   `json:"team"`
}

// RoomSnapshot is the storage- and transport-safe form of a Room: players in
// join order, teams as pairs, timestamps in Unix milliseconds, no connections.
type RoomSnapshot struct {
	RoomID         string       `json:"roomId"`
	Mode           GameMode     `json:"mode"`
	Players        []PlayerInfo `json:"players"`
	PlayerTeams    []TeamEntry  `json:"playerTeams"`
	GameState      *GameState   `json:"gameState"`
	CreatedAt      int64        `json:"createdAt"`
	LastActivityAt int64        `json:"lastActivityAt"`
}
