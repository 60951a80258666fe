package engine

// Event is the closed set of inputs the reducer understands. Server events are
// decoded from the wire by the types package; the rest are raised locally by the
// transport lifecycle or by the client when it emits an intent.
type Event interface {
	isEvent()
	Name() string
}

// Event names as they appear on the wire.
const (
	EvtConnect            = "connect"
	EvtConnectError       = "connect_error"
	EvtDisconnect         = "disconnect"
	EvtReconnectAttempt   = "reconnect_attempt"
	EvtReconnectFailed    = "reconnect_failed"
	EvtRoomCreated        = "roomCreated"
	EvtRoomUpdate         = "roomUpdate"
	EvtRoomError          = "roomError"
	EvtGameStarted        = "gameStarted"
	EvtGameUpdate         = "gameUpdate"
	EvtClueGiven          = "clueGiven"
	EvtCardRevealed       = "cardRevealed"
	EvtGameError          = "gameError"
	EvtClueError          = "clueError"
	EvtGuessError         = "guessError"
	EvtRoleError          = "roleError"
	EvtPlayerDisconnected = "playerDisconnected"
	EvtPlayerReconnected  = "playerReconnected"
)

type Connected struct{ SelfID string }

type ConnectError struct {
	Message string
	Attempt int
}

type Disconnected struct {
	Reason    string
	WillRetry bool
}

type ReconnectAttempt struct{ Attempt int }

type ConnectionFailed struct{ Message string }

type RoomCreated struct {
	Code    string
	Players []Player
}

// RoomUpdated is a wholesale roster snapshot, not a diff.
type RoomUpdated struct{ Players []Player }

type GameStarted struct {
	Board       Board
	CurrentTeam Team
	FirstTeam   Team
	Players     []Player // nil keeps the current roster
}

// GameUpdated is a partial snapshot: nil fields were absent on the wire and are
// left untouched. ClearClue is set when the server sent an explicit null clue.
type GameUpdated struct {
	CurrentTeam *Team
	Clue        *string
	ClearClue   bool
	ClueCount   *int
	GuessesLeft *int
	Board       *Board
	Winner      *Team
}

type ClueGiven struct {
	Clue  string
	Count int
	Team  Team
}

type CardRevealed struct {
	Index int
	Card  Card
}

// ServerError covers roomError, gameError, clueError, guessError and roleError.
type ServerError struct {
	Event   string
	Message string
}

type PresenceChanged struct {
	Username string
	Online   bool
}

// Local events.

type ConnectRequested struct{ Identity Identity }

type JoinRequested struct{ Code string }

// JoinAbandoned drops a pending join the server refused or that was never sent.
type JoinAbandoned struct{}

// RoomLeft returns a connected session to the lobby. The server has no leave
// event, so only local state changes.
type RoomLeft struct{}

type LoggedOut struct{}

func (Connected) isEvent()        {}
func (ConnectError) isEvent()     {}
func (Disconnected) isEvent()     {}
func (ReconnectAttempt) isEvent() {}
func (ConnectionFailed) isEvent() {}
func (RoomCreated) isEvent()      {}
func (RoomUpdated) isEvent()      {}
func (GameStarted) isEvent()      {}
func (GameUpdated) isEvent()      {}
func (ClueGiven) isEvent()        {}
func (CardRevealed) isEvent()     {}
func (ServerError) isEvent()      {}
func (PresenceChanged) isEvent()  {}
func (ConnectRequested) isEvent() {}
func (JoinRequested) isEvent()    {}
func (JoinAbandoned) isEvent()    {}
func (RoomLeft) isEvent()         {}
func (LoggedOut) isEvent()        {}

func (Connected) Name() string        { return EvtConnect }
func (ConnectError) Name() string     { return EvtConnectError }
func (Disconnected) Name() string     { return EvtDisconnect }
func (ReconnectAttempt) Name() string { return EvtReconnectAttempt }
func (ConnectionFailed) Name() string { return EvtReconnectFailed }
func (RoomCreated) Name() string      { return EvtRoomCreated }
func (RoomUpdated) Name() string      { return EvtRoomUpdate }
func (GameStarted) Name() string      { return EvtGameStarted }
func (GameUpdated) Name() string      { return EvtGameUpdate }
func (ClueGiven) Name() string        { return EvtClueGiven }
func (CardRevealed) Name() string     { return EvtCardRevealed }
func (e ServerError) Name() string    { return e.Event }
func (ConnectRequested) Name() string { return "local:connect" }
func (JoinRequested) Name() string    { return "local:joinRoom" }
func (JoinAbandoned) Name() string    { return "local:joinAbandoned" }
func (RoomLeft) Name() string         { return "local:leaveRoom" }
func (LoggedOut) Name() string        { return "local:logout" }

func (e PresenceChanged) Name() string {
	if e.Online {
		return EvtPlayerReconnected
	}
	return EvtPlayerDisconnected
}
