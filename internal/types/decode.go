package types

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/DoyleJ11/codenames-client/internal/engine"
)

// InboundEvents lists every event name the client subscribes to, server events
// and transport lifecycle events alike.
var InboundEvents = []string{
	engine.EvtConnect,
	engine.EvtConnectError,
	engine.EvtDisconnect,
	engine.EvtReconnectAttempt,
	engine.EvtReconnectFailed,
	engine.EvtRoomCreated,
	engine.EvtRoomUpdate,
	engine.EvtRoomError,
	engine.EvtGameStarted,
	engine.EvtGameUpdate,
	engine.EvtClueGiven,
	engine.EvtCardRevealed,
	engine.EvtGameError,
	engine.EvtClueError,
	engine.EvtGuessError,
	engine.EvtRoleError,
	engine.EvtPlayerDisconnected,
	engine.EvtPlayerReconnected,
}

type decodeFunc func(name string, data json.RawMessage) (engine.Event, error)

var decoders = map[string]decodeFunc{
	engine.EvtConnect:            decodeConnect,
	engine.EvtConnectError:       decodeConnectError,
	engine.EvtDisconnect:         decodeDisconnect,
	engine.EvtReconnectAttempt:   decodeReconnectAttempt,
	engine.EvtReconnectFailed:    decodeReconnectFailed,
	engine.EvtRoomCreated:        decodeRoomCreated,
	engine.EvtRoomUpdate:         decodeRoomUpdate,
	engine.EvtRoomError:          decodeServerError,
	engine.EvtGameStarted:        decodeGameStarted,
	engine.EvtGameUpdate:         decodeGameUpdate,
	engine.EvtClueGiven:          decodeClueGiven,
	engine.EvtCardRevealed:       decodeCardRevealed,
	engine.EvtGameError:          decodeServerError,
	engine.EvtClueError:          decodeServerError,
	engine.EvtGuessError:         decodeServerError,
	engine.EvtRoleError:          decodeServerError,
	engine.EvtPlayerDisconnected: decodePresence,
	engine.EvtPlayerReconnected:  decodePresence,
}

// Decode turns one inbound frame into a reducer event. Unknown names wrap
// engine.ErrUnsupportedEvent, bad payloads wrap engine.ErrMalformedEvent.
func Decode(name string, data json.RawMessage) (engine.Event, error) {
	fn, ok := decoders[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", engine.ErrUnsupportedEvent, name)
	}
	ev, err := fn(name, data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", engine.ErrMalformedEvent, name, err)
	}
	return ev, nil
}

type wirePlayer struct {
	ID       string `json:"id"`
	SocketID string `json:"socketId"`
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Team     string `json:"team"`
	Role     string `json:"role"`
}

func (p wirePlayer) toEngine() (engine.Player, error) {
	id := p.SocketID
	if id == "" {
		id = p.ID
	}
	team := engine.Team(p.Team)
	if team != engine.TeamNone && !team.Valid() {
		return engine.Player{}, fmt.Errorf("player %q: unknown team %q", p.Username, p.Team)
	}
	role := engine.Role(p.Role)
	if role != engine.RoleNone && !role.Valid() {
		return engine.Player{}, fmt.Errorf("player %q: unknown role %q", p.Username, p.Role)
	}
	return engine.Player{ID: id, UserID: p.UserID, Username: p.Username, Team: team, Role: role}, nil
}

func toPlayers(in []wirePlayer) ([]engine.Player, error) {
	out := make([]engine.Player, 0, len(in))
	for _, wp := range in {
		p, err := wp.toEngine()
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

type wireCard struct {
	Word     string `json:"word"`
	Type     string `json:"type"`
	Revealed bool   `json:"revealed"`
}

func (c wireCard) toEngine() (engine.Card, error) {
	t := engine.CardType(c.Type)
	switch {
	case t == "" || t == engine.CardUnknown:
		t = ""
	case !t.Valid():
		return engine.Card{}, fmt.Errorf("unknown card type %q", c.Type)
	}
	return engine.Card{Word: c.Word, Type: t, Revealed: c.Revealed}, nil
}

func toBoard(in []wireCard) (engine.Board, error) {
	var b engine.Board
	if len(in) != engine.BoardSize {
		return b, fmt.Errorf("board has %d cards", len(in))
	}
	for i, wc := range in {
		c, err := wc.toEngine()
		if err != nil {
			return b, fmt.Errorf("card %d: %w", i, err)
		}
		b[i] = c
	}
	return b, nil
}

func isNull(data json.RawMessage) bool {
	d := bytes.TrimSpace(data)
	return len(d) == 0 || bytes.Equal(d, []byte("null"))
}

func decodeConnect(_ string, data json.RawMessage) (engine.Event, error) {
	var h Handshake
	if !isNull(data) {
		if err := json.Unmarshal(data, &h); err != nil {
			return nil, err
		}
	}
	return engine.Connected{SelfID: h.ID}, nil
}

func decodeConnectError(_ string, data json.RawMessage) (engine.Event, error) {
	var d ConnectErrorData
	if !isNull(data) {
		if err := json.Unmarshal(data, &d); err != nil {
			return nil, err
		}
	}
	return engine.ConnectError{Message: d.Message, Attempt: d.Attempt}, nil
}

func decodeDisconnect(_ string, data json.RawMessage) (engine.Event, error) {
	var d DisconnectData
	if !isNull(data) {
		if err := json.Unmarshal(data, &d); err != nil {
			return nil, err
		}
	}
	return engine.Disconnected{Reason: d.Reason, WillRetry: d.WillRetry}, nil
}

func decodeReconnectAttempt(_ string, data json.RawMessage) (engine.Event, error) {
	var d ReconnectAttemptData
	if !isNull(data) {
		if err := json.Unmarshal(data, &d); err != nil {
			return nil, err
		}
	}
	return engine.ReconnectAttempt{Attempt: d.Attempt}, nil
}

func decodeReconnectFailed(_ string, data json.RawMessage) (engine.Event, error) {
	var d ReconnectFailedData
	if !isNull(data) {
		if err := json.Unmarshal(data, &d); err != nil {
			return nil, err
		}
	}
	return engine.ConnectionFailed{Message: d.Message}, nil
}

func decodeRoomCreated(_ string, data json.RawMessage) (engine.Event, error) {
	var d struct {
		Code    string       `json:"code"`
		Players []wirePlayer `json:"players"`
	}
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, err
	}
	players, err := toPlayers(d.Players)
	if err != nil {
		return nil, err
	}
	return engine.RoomCreated{Code: d.Code, Players: players}, nil
}

// roomUpdate arrives either as a bare player array or wrapped in {players}.
func decodeRoomUpdate(_ string, data json.RawMessage) (engine.Event, error) {
	var wps []wirePlayer
	d := bytes.TrimSpace(data)
	if len(d) > 0 && d[0] == '[' {
		if err := json.Unmarshal(d, &wps); err != nil {
			return nil, err
		}
	} else {
		var wrapped struct {
			Players []wirePlayer `json:"players"`
		}
		if err := json.Unmarshal(d, &wrapped); err != nil {
			return nil, err
		}
		if wrapped.Players == nil {
			return nil, errors.New("missing players")
		}
		wps = wrapped.Players
	}
	players, err := toPlayers(wps)
	if err != nil {
		return nil, err
	}
	return engine.RoomUpdated{Players: players}, nil
}

func decodeGameStarted(_ string, data json.RawMessage) (engine.Event, error) {
	var d struct {
		Board       []wireCard   `json:"board"`
		CurrentTurn string       `json:"currentTurn"`
		CurrentTeam string       `json:"currentTeam"`
		FirstTeam   string       `json:"firstTeam"`
		Players     []wirePlayer `json:"players"`
	}
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, err
	}
	board, err := toBoard(d.Board)
	if err != nil {
		return nil, err
	}
	ev := engine.GameStarted{
		Board:       board,
		CurrentTeam: engine.Team(firstNonEmpty(d.CurrentTurn, d.CurrentTeam)),
		FirstTeam:   engine.Team(d.FirstTeam),
	}
	if d.Players != nil {
		if ev.Players, err = toPlayers(d.Players); err != nil {
			return nil, err
		}
	}
	return ev, nil
}

// gameUpdate is a partial snapshot, so presence of each key matters: an absent
// key is left alone and an explicit null clue clears it.
func decodeGameUpdate(_ string, data json.RawMessage) (engine.Event, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	var ev engine.GameUpdated

	for _, key := range []string{"currentTurn", "currentTeam"} {
		raw, ok := fields[key]
		if !ok || isNull(raw) {
			continue
		}
		var team engine.Team
		if err := json.Unmarshal(raw, &team); err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		ev.CurrentTeam = &team
		break
	}

	if raw, ok := fields["clue"]; ok {
		if isNull(raw) {
			ev.ClearClue = true
		} else {
			var clue string
			if err := json.Unmarshal(raw, &clue); err != nil {
				return nil, fmt.Errorf("clue: %w", err)
			}
			if clue == "" {
				ev.ClearClue = true
			} else {
				ev.Clue = &clue
			}
		}
	}

	for _, key := range []string{"clueCount", "count"} {
		raw, ok := fields[key]
		if !ok || isNull(raw) {
			continue
		}
		var n int
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		if n != 0 {
			ev.ClueCount = &n
		}
		break
	}

	if raw, ok := fields["guessesLeft"]; ok && !isNull(raw) {
		var n int
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, fmt.Errorf("guessesLeft: %w", err)
		}
		ev.GuessesLeft = &n
	}

	if raw, ok := fields["board"]; ok && !isNull(raw) {
		var cards []wireCard
		if err := json.Unmarshal(raw, &cards); err != nil {
			return nil, fmt.Errorf("board: %w", err)
		}
		board, err := toBoard(cards)
		if err != nil {
			return nil, err
		}
		ev.Board = &board
	}

	if raw, ok := fields["winner"]; ok && !isNull(raw) {
		var w engine.Team
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, fmt.Errorf("winner: %w", err)
		}
		ev.Winner = &w
	}
	return ev, nil
}

func decodeClueGiven(_ string, data json.RawMessage) (engine.Event, error) {
	var d struct {
		Clue  string      `json:"clue"`
		Count int         `json:"count"`
		Team  engine.Team `json:"team"`
	}
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, err
	}
	return engine.ClueGiven{Clue: d.Clue, Count: d.Count, Team: d.Team}, nil
}

func decodeCardRevealed(_ string, data json.RawMessage) (engine.Event, error) {
	var d struct {
		CardIndex *int     `json:"cardIndex"`
		Card      wireCard `json:"card"`
	}
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, err
	}
	if d.CardIndex == nil {
		return nil, errors.New("missing cardIndex")
	}
	card, err := d.Card.toEngine()
	if err != nil {
		return nil, err
	}
	return engine.CardRevealed{Index: *d.CardIndex, Card: card}, nil
}

// Error events carry either a bare string or {message} / {msg}.
func decodeServerError(name string, data json.RawMessage) (engine.Event, error) {
	ev := engine.ServerError{Event: name}
	d := bytes.TrimSpace(data)
	switch {
	case isNull(d):
	case d[0] == '"':
		if err := json.Unmarshal(d, &ev.Message); err != nil {
			return nil, err
		}
	default:
		var obj struct {
			Message string `json:"message"`
			Msg     string `json:"msg"`
		}
		if err := json.Unmarshal(d, &obj); err != nil {
			return nil, err
		}
		ev.Message = firstNonEmpty(obj.Message, obj.Msg)
	}
	return ev, nil
}

func decodePresence(name string, data json.RawMessage) (engine.Event, error) {
	var d struct {
		Username string `json:"username"`
	}
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, err
	}
	if d.Username == "" {
		return nil, errors.New("missing username")
	}
	return engine.PresenceChanged{Username: d.Username, Online: name == engine.EvtPlayerReconnected}, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
