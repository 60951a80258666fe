package engine

import (
	"errors"
	"fmt"
)

var ErrUnexpectedEvent = errors.New("event not valid in current phase")
var ErrMalformedEvent = errors.New("malformed event")
var ErrUnsupportedEvent = errors.New("unsupported event")

type Team string

const (
	TeamNone Team = ""
	TeamRed  Team = "RED"
	TeamBlue Team = "BLUE"
)

func (t Team) Valid() bool { return t == TeamRed || t == TeamBlue }

type Role string

const (
	RoleNone      Role = ""
	RoleSpymaster Role = "SPYMASTER"
	RoleGuesser   Role = "GUESSER"
)

func (r Role) Valid() bool { return r == RoleSpymaster || r == RoleGuesser }

type CardType string

const (
	CardUnknown  CardType = "UNKNOWN"
	CardRed      CardType = "RED"
	CardBlue     CardType = "BLUE"
	CardInnocent CardType = "INNOCENT"
	CardAssassin CardType = "ASSASSIN"
)

// Valid reports whether t is one of the four real card identities.
func (t CardType) Valid() bool {
	switch t {
	case CardRed, CardBlue, CardInnocent, CardAssassin:
		return true
	}
	return false
}

const (
	BoardSize    = 25
	MinClueCount = 1
	MaxClueCount = 9
	MaxGuesses   = MaxClueCount + 1
	MinPlayers   = 4
)

type Card struct {
	Word     string   `json:"word"`
	Type     CardType `json:"type"`
	Revealed bool     `json:"revealed"`
}

// Board is index-addressed; the index is the only stable card identifier.
type Board [BoardSize]Card

type Player struct {
	ID       string `json:"id"`
	UserID   string `json:"userId,omitempty"`
	Username string `json:"username"`
	Team     Team   `json:"team,omitempty"`
	Role     Role   `json:"role,omitempty"`
	Offline  bool   `json:"offline,omitempty"`
}

type Room struct {
	Code         string
	Players      []Player
	HostPlayerID string
}

type TurnState struct {
	CurrentTeam Team
	FirstTeam   Team
	Clue        string // empty until a clue is accepted this turn
	ClueCount   int
	GuessesLeft int
}

type Outcome struct {
	Winner Team
}

type Identity struct {
	UserID    string
	Username  string
	AuthToken string
}

type Connection string

const (
	ConnDisconnected Connection = "disconnected"
	ConnConnecting   Connection = "connecting"
	ConnConnected    Connection = "connected"
	ConnReconnecting Connection = "reconnecting"
)

type Phase string

const (
	PhaseIdle            Phase = "idle"
	PhaseConnecting      Phase = "connecting"
	PhaseInLobby         Phase = "in_lobby"
	PhaseWaitingForRoles Phase = "waiting_for_roles"
	PhaseReady           Phase = "ready"
	PhaseClueWait        Phase = "clue_wait"
	PhaseGuessPhase      Phase = "guess_phase"
	PhaseTurnOver        Phase = "turn_over"
	PhaseGameOver        Phase = "game_over"
)

func (p Phase) InRoom() bool { return p == PhaseWaitingForRoles || p == PhaseReady }

func (p Phase) InGame() bool {
	return p == PhaseClueWait || p == PhaseGuessPhase || p == PhaseTurnOver
}

// Seat is a player's (team, role) pair.
type Seat struct {
	Team Team
	Role Role
}

type Session struct {
	Identity     Identity
	Connection   Connection
	Phase        Phase
	Room         *Room
	Board        *Board
	Turn         *TurnState
	Outcome      *Outcome
	SelfPlayerID string

	// FrozenSeat is set when the game starts; before that the seat is read from Room.Players.
	FrozenSeat *Seat
	// PendingJoin is the code of a joinRoom still waiting for its first roomUpdate.
	PendingJoin string
	// Resyncing is set on a reconnect while holding a room; the next game snapshot is authoritative.
	Resyncing bool
}

type NoticeKind string

const (
	NoticeServerError      NoticeKind = "server_error"
	NoticeConnectError     NoticeKind = "connect_error"
	NoticeConnectionFailed NoticeKind = "connection_failed"
	NoticePresence         NoticeKind = "presence"
	NoticeGameOver         NoticeKind = "game_over"
)

// Notice is something the Presentation Layer should surface; it never carries state.
type Notice struct {
	Kind    NoticeKind
	Event   string
	Message string
}

// Apply folds one event into the session. A non-nil error means the event was
// ignored and the returned session is s unchanged.
func Apply(s Session, ev Event) ([]Notice, Session, error) {
	if ev == nil {
		return nil, s, ErrUnsupportedEvent
	}

	next := s.clone()
	var notices []Notice

	switch e := ev.(type) {
	case ConnectRequested:
		next = Session{Identity: e.Identity, Connection: ConnConnecting}

	case Connected:
		if s.Connection == ConnConnected {
			return nil, s, unexpected(ev, s)
		}
		next.Connection = ConnConnected
		next.SelfPlayerID = e.SelfID
		if next.Room != nil {
			next.Resyncing = true
		}

	case ConnectError:
		if s.Connection == ConnConnected {
			return nil, s, unexpected(ev, s)
		}
		notices = append(notices, Notice{Kind: NoticeConnectError, Event: ev.Name(), Message: e.Message})
		return notices, s, nil

	case Disconnected:
		if e.WillRetry {
			next.Connection = ConnReconnecting
		} else {
			next.Connection = ConnDisconnected
		}
		next.Resyncing = false

	case ReconnectAttempt:
		if s.Connection == ConnConnected {
			return nil, s, unexpected(ev, s)
		}
		next.Connection = ConnReconnecting

	case ConnectionFailed:
		next.Connection = ConnDisconnected
		notices = append(notices, Notice{Kind: NoticeConnectionFailed, Event: ev.Name(), Message: e.Message})

	case LoggedOut:
		next = Session{Connection: ConnDisconnected}

	case JoinRequested:
		if s.Phase != PhaseInLobby {
			return nil, s, unexpected(ev, s)
		}
		next.PendingJoin = e.Code

	case JoinAbandoned:
		if s.PendingJoin == "" {
			return nil, s, unexpected(ev, s)
		}
		next.PendingJoin = ""

	case RoomLeft:
		if s.Room == nil {
			return nil, s, unexpected(ev, s)
		}
		next.Room, next.Board, next.Turn, next.Outcome = nil, nil, nil, nil
		next.FrozenSeat = nil
		next.PendingJoin = ""
		next.Resyncing = false

	case RoomCreated:
		if s.Phase != PhaseInLobby {
			return nil, s, unexpected(ev, s)
		}
		if e.Code == "" {
			return nil, s, malformed(ev, "missing room code")
		}
		players, err := uniquePlayers(e.Players)
		if err != nil {
			return nil, s, malformed(ev, err.Error())
		}
		next.Room = &Room{Code: e.Code, Players: players, HostPlayerID: hostOf(players)}
		next.PendingJoin = ""

	case RoomUpdated:
		players, err := uniquePlayers(e.Players)
		if err != nil {
			return nil, s, malformed(ev, err.Error())
		}
		switch {
		case s.Room != nil:
			next.Room.Players = players
			next.Room.HostPlayerID = hostOf(players)
		case s.Phase == PhaseInLobby && s.PendingJoin != "":
			next.Room = &Room{Code: s.PendingJoin, Players: players, HostPlayerID: hostOf(players)}
			next.PendingJoin = ""
		default:
			return nil, s, unexpected(ev, s)
		}

	case GameStarted:
		if !s.Phase.InRoom() && !(s.Resyncing && s.Phase.InGame()) {
			return nil, s, unexpected(ev, s)
		}
		if !e.CurrentTeam.Valid() {
			return nil, s, malformed(ev, "invalid current team")
		}
		players := next.Room.Players
		if e.Players != nil {
			var err error
			if players, err = uniquePlayers(e.Players); err != nil {
				return nil, s, malformed(ev, err.Error())
			}
		}
		turn := &TurnState{CurrentTeam: e.CurrentTeam, FirstTeam: e.FirstTeam}
		if s.Resyncing && next.Board != nil {
			// Same game seen again after a reconnect: reveals only accumulate and
			// the turn in progress survives unless the server moved it on.
			mergeBoard(next.Board, &e.Board, true)
			if next.Turn != nil && next.Turn.CurrentTeam == e.CurrentTeam {
				turn = next.Turn
			}
		} else {
			board := e.Board
			next.Board = &board
			next.FrozenSeat = nil
		}
		next.Turn = turn
		next.Room.Players = players
		next.Room.HostPlayerID = hostOf(players)
		if next.FrozenSeat == nil {
			if seat, ok := next.selfSeatFromRoster(); ok {
				next.FrozenSeat = &seat
			}
		}
		next.Resyncing = false

	case ClueGiven:
		if !s.Phase.InGame() {
			return nil, s, unexpected(ev, s)
		}
		if e.Clue == "" || e.Count < MinClueCount || e.Count > MaxClueCount {
			return nil, s, malformed(ev, fmt.Sprintf("clue %q count %d", e.Clue, e.Count))
		}
		next.Turn.Clue = e.Clue
		next.Turn.ClueCount = e.Count
		next.Turn.GuessesLeft = e.Count + 1
		if e.Team.Valid() {
			next.Turn.CurrentTeam = e.Team
		}

	case CardRevealed:
		if !s.Phase.InGame() {
			return nil, s, unexpected(ev, s)
		}
		if e.Index < 0 || e.Index >= BoardSize {
			return nil, s, malformed(ev, fmt.Sprintf("card index %d", e.Index))
		}
		cur := next.Board[e.Index]
		if cur.Revealed {
			// Duplicate delivery: the first reveal already counted.
			return nil, s, nil
		}
		card := e.Card
		if card.Word == "" {
			card.Word = cur.Word
		}
		if card.Type == "" {
			card.Type = cur.Type
		}
		card.Revealed = true
		next.Board[e.Index] = card
		if next.Turn.GuessesLeft > 0 {
			next.Turn.GuessesLeft--
		}

	case GameUpdated:
		if !s.Phase.InGame() {
			return nil, s, unexpected(ev, s)
		}
		if err := mergeGameUpdate(&next, e); err != nil {
			return nil, s, malformed(ev, err.Error())
		}
		next.Resyncing = false
		if next.Outcome != nil {
			msg := fmt.Sprintf("%s team wins", next.Outcome.Winner)
			notices = append(notices, Notice{Kind: NoticeGameOver, Event: ev.Name(), Message: msg})
		}

	case ServerError:
		notices = append(notices, Notice{Kind: NoticeServerError, Event: e.Event, Message: e.Message})
		return notices, s, nil

	case PresenceChanged:
		if s.Room == nil {
			return nil, s, unexpected(ev, s)
		}
		for i := range next.Room.Players {
			if next.Room.Players[i].Username == e.Username {
				next.Room.Players[i].Offline = !e.Online
			}
		}
		notices = append(notices, Notice{Kind: NoticePresence, Event: ev.Name(), Message: e.Username})

	default:
		return nil, s, ErrUnsupportedEvent
	}

	next.Phase = DerivePhase(next)
	return notices, next, nil
}

func mergeGameUpdate(next *Session, e GameUpdated) error {
	turn := next.Turn

	if e.CurrentTeam != nil {
		if !e.CurrentTeam.Valid() {
			return fmt.Errorf("invalid current team %q", *e.CurrentTeam)
		}
		if *e.CurrentTeam != turn.CurrentTeam && e.Clue == nil && !e.ClearClue {
			turn.Clue, turn.ClueCount = "", 0
		}
		turn.CurrentTeam = *e.CurrentTeam
	}
	if e.ClearClue {
		turn.Clue, turn.ClueCount = "", 0
	}
	if e.Clue != nil {
		turn.Clue = *e.Clue
	}
	if e.ClueCount != nil {
		if *e.ClueCount < MinClueCount || *e.ClueCount > MaxClueCount {
			return fmt.Errorf("clue count %d", *e.ClueCount)
		}
		turn.ClueCount = *e.ClueCount
	}
	if e.GuessesLeft != nil {
		if *e.GuessesLeft < 0 || *e.GuessesLeft > MaxGuesses {
			return fmt.Errorf("guesses left %d", *e.GuessesLeft)
		}
		turn.GuessesLeft = *e.GuessesLeft
	}
	if e.Board != nil {
		mergeBoard(next.Board, e.Board, next.Resyncing)
	}
	if e.Winner != nil {
		if !e.Winner.Valid() {
			return fmt.Errorf("invalid winner %q", *e.Winner)
		}
		next.Outcome = &Outcome{Winner: *e.Winner}
	}
	return nil
}

// mergeBoard never reverts a reveal. Only a resync snapshot may flip a card to
// revealed; otherwise cardRevealed is the sole authority.
func mergeBoard(dst, src *Board, resync bool) {
	for i := range dst {
		old, in := dst[i], src[i]
		if old.Revealed {
			continue
		}
		if in.Word != "" {
			old.Word = in.Word
		}
		if in.Type != "" {
			old.Type = in.Type
		}
		if resync && in.Revealed {
			old.Revealed = true
		}
		dst[i] = old
	}
}

func unexpected(ev Event, s Session) error {
	return fmt.Errorf("%w: %s in %s", ErrUnexpectedEvent, ev.Name(), s.Phase)
}

func malformed(ev Event, detail string) error {
	return fmt.Errorf("%w: %s: %s", ErrMalformedEvent, ev.Name(), detail)
}
