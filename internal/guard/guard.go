// Package guard validates locally initiated actions against the current session
// before anything reaches the network. Guards are advisory: the server re-checks
// everything and its *Error events are authoritative.
package guard

import (
	"errors"
	"strings"

	"github.com/DoyleJ11/codenames-client/internal/engine"
)

// Reason is a stable, machine-readable rejection code.
type Reason string

const (
	NotConnected     Reason = "NOT_CONNECTED"
	NotInLobby       Reason = "NOT_IN_LOBBY"
	NotInRoom        Reason = "NOT_IN_ROOM"
	NotInGame        Reason = "NOT_IN_GAME"
	GameOver         Reason = "GAME_OVER"
	InvalidRole      Reason = "INVALID_ROLE"
	NotHost          Reason = "NOT_HOST"
	MissingSpymaster Reason = "MISSING_SPYMASTER"
	TooFewPlayers    Reason = "TOO_FEW_PLAYERS"
	NotSpymaster     Reason = "NOT_SPYMASTER"
	NotGuesser       Reason = "NOT_GUESSER"
	NotYourTurn      Reason = "NOT_YOUR_TURN"
	InvalidClue      Reason = "INVALID_CLUE"
	ClueAlreadyGiven Reason = "CLUE_ALREADY_GIVEN"
	NoGuessesLeft    Reason = "NO_GUESSES_LEFT"
	AlreadyRevealed  Reason = "ALREADY_REVEALED"
	IndexOutOfRange  Reason = "INDEX_OUT_OF_RANGE"
	InvalidUsername  Reason = "INVALID_USERNAME"
	InvalidRoomCode  Reason = "INVALID_ROOM_CODE"
	Pending          Reason = "PENDING"
)

// Rejection is returned by every guard that refuses an action.
type Rejection struct {
	Reason Reason
}

func (r *Rejection) Error() string { return "action rejected: " + strings.ToLower(string(r.Reason)) }

// Is matches any *Rejection carrying the same reason.
func (r *Rejection) Is(target error) bool {
	t, ok := target.(*Rejection)
	return ok && t.Reason == r.Reason
}

func reject(reason Reason) error { return &Rejection{Reason: reason} }

// ReasonOf extracts the reason code from a guard error, or "" for anything else.
func ReasonOf(err error) Reason {
	var r *Rejection
	if errors.As(err, &r) {
		return r.Reason
	}
	return ""
}

func CreateRoom(s engine.Session, customName, username string) error {
	if s.Phase != engine.PhaseInLobby {
		return inLobbyReason(s)
	}
	if _, err := ValidateUsername(username); err != nil {
		return err
	}
	if customName != "" {
		if _, err := NormalizeRoomCode(customName); err != nil {
			return err
		}
	}
	return nil
}

func JoinRoom(s engine.Session, code, username string) error {
	if s.Phase != engine.PhaseInLobby {
		return inLobbyReason(s)
	}
	if _, err := ValidateUsername(username); err != nil {
		return err
	}
	if _, err := NormalizeRoomCode(code); err != nil {
		return err
	}
	return nil
}

func inLobbyReason(s engine.Session) error {
	if s.Connection != engine.ConnConnected {
		return reject(NotConnected)
	}
	return reject(NotInLobby)
}

// SetRole only checks the session is in a room and the pair is well formed;
// conflicts are for the server to resolve.
func SetRole(s engine.Session, team engine.Team, role engine.Role) error {
	if !s.Phase.InRoom() {
		return reject(NotInRoom)
	}
	if !team.Valid() || !role.Valid() {
		return reject(InvalidRole)
	}
	return nil
}

// LeaveRoom is local only: any session holding a room may drop it.
func LeaveRoom(s engine.Session) error {
	if s.Room == nil {
		return reject(NotInRoom)
	}
	return nil
}

func StartGame(s engine.Session) error {
	if !s.Phase.InRoom() {
		return reject(NotInRoom)
	}
	if !s.IsHost() {
		return reject(NotHost)
	}
	if !engine.SpymastersReady(s.Room.Players) {
		return reject(MissingSpymaster)
	}
	if len(s.Room.Players) < engine.MinPlayers {
		return reject(TooFewPlayers)
	}
	return nil
}

func GiveClue(s engine.Session, text string, count int) error {
	seat, err := inGame(s)
	if err != nil {
		return err
	}
	if seat.Role != engine.RoleSpymaster {
		return reject(NotSpymaster)
	}
	if s.Turn.CurrentTeam != seat.Team {
		return reject(NotYourTurn)
	}
	if s.Turn.Clue != "" {
		return reject(ClueAlreadyGiven)
	}
	if strings.TrimSpace(text) == "" || count < engine.MinClueCount || count > engine.MaxClueCount {
		return reject(InvalidClue)
	}
	return nil
}

func MakeGuess(s engine.Session, cardIndex int) error {
	seat, err := inGame(s)
	if err != nil {
		return err
	}
	if seat.Role != engine.RoleGuesser {
		return reject(NotGuesser)
	}
	if s.Turn.CurrentTeam != seat.Team {
		return reject(NotYourTurn)
	}
	if cardIndex < 0 || cardIndex >= engine.BoardSize {
		return reject(IndexOutOfRange)
	}
	if s.Turn.GuessesLeft <= 0 {
		return reject(NoGuessesLeft)
	}
	if s.Board[cardIndex].Revealed {
		return reject(AlreadyRevealed)
	}
	return nil
}

// EndTurn accepts either role on the current team; the server decides.
func EndTurn(s engine.Session) error {
	seat, err := inGame(s)
	if err != nil {
		return err
	}
	if s.Turn.CurrentTeam != seat.Team {
		return reject(NotYourTurn)
	}
	return nil
}

func inGame(s engine.Session) (engine.Seat, error) {
	if s.Phase == engine.PhaseGameOver {
		return engine.Seat{}, reject(GameOver)
	}
	if !s.Phase.InGame() {
		return engine.Seat{}, reject(NotInGame)
	}
	seat, ok := s.SelfSeat()
	if !ok || !seat.Team.Valid() {
		return engine.Seat{}, reject(NotYourTurn)
	}
	return seat, nil
}
