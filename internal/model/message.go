package model

import "encoding/json"

// Message is an inbound client intent: a tag plus its raw payload. The gateway
// decodes Payload into the matching intent struct before touching game state.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Event is an outbound server message.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type CreateRoomIntent struct {
	RoomID     string   `json:"roomId"`
	Mode       GameMode `json:"mode"`
	PlayerID   string   `json:"playerId"`
	PlayerName string   `json:"playerName"`
}

type JoinRoomIntent struct {
	RoomID     string `json:"roomId"`
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
}

type InitGameIntent struct {
	RoomID string `json:"roomId"`
}

type JoinTeamIntent struct {
	RoomID   string `json:"roomId"`
	PlayerID string `json:"playerId"`
	Team     Team   `json:"team"`
}

type StartGameIntent struct {
	RoomID           string `json:"roomId"`
	StartingPlayerID string `json:"startingPlayerId"`
	Theme            string `json:"theme"`
}

type SubmitClueIntent struct {
	RoomID   string `json:"roomId"`
	PlayerID string `json:"playerId"`
	Clue     string `json:"clue"`
}

type SubmitGuessIntent struct {
	RoomID string `json:"roomId"`
	Guess  int    `json:"guess"`
}

type UpdateGuessIntent struct {
	RoomID string `json:"roomId"`
	Guess  int    `json:"guess"`
}

type SubmitCounterGuessIntent struct {
	RoomID    string `json:"roomId"`
	Direction string `json:"direction"`
}

type NextRoundIntent struct {
	RoomID          string `json:"roomId"`
	NextClueGiverID string `json:"nextClueGiverId"`
}
