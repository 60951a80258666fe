package types

import (
	"encoding/json"

	"github.com/DoyleJ11/codenames-client/internal/engine"
)

// Frame is the envelope of every WebSocket text message in both directions.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Outbound event names.
const (
	EvtCreateRoom = "createRoom"
	EvtJoinRoom   = "joinRoom"
	EvtSetRole    = "setRole"
	EvtStartGame  = "startGame"
	EvtGiveClue   = "giveClue"
	EvtMakeGuess  = "makeGuess"
	EvtEndTurn    = "endTurn"
)

type CreateRoom struct {
	CustomName string `json:"customName,omitempty"`
	Username   string `json:"username"`
	UserID     string `json:"userId"`
}

type JoinRoom struct {
	RoomCode string `json:"roomCode"`
	Username string `json:"username"`
	UserID   string `json:"userId"`
}

type SetRole struct {
	Team engine.Team `json:"team"`
	Role engine.Role `json:"role"`
}

type GiveClue struct {
	Clue  string `json:"clue"`
	Count int    `json:"count"`
}

type MakeGuess struct {
	CardIndex int `json:"cardIndex"`
}

// Lifecycle payloads raised by the transport itself.

type Handshake struct {
	ID string `json:"id"`
}

type ConnectErrorData struct {
	Message string `json:"message"`
	Attempt int    `json:"attempt"`
}

type DisconnectData struct {
	Reason    string `json:"reason"`
	WillRetry bool   `json:"willRetry"`
}

type ReconnectAttemptData struct {
	Attempt int `json:"attempt"`
}

type ReconnectFailedData struct {
	Message string `json:"message"`
}

// NewFrame marshals v as the frame payload; a nil v sends no data.
func NewFrame(event string, v any) (Frame, error) {
	if v == nil {
		return Frame{Event: event}, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return Frame{}, err
	}
	return Frame{Event: event, Data: data}, nil
}
