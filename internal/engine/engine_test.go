package engine

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBoard() Board {
	var b Board
	types := []CardType{CardRed, CardBlue, CardInnocent}
	for i := range b {
		b[i] = Card{Word: fmt.Sprintf("word%02d", i), Type: types[i%len(types)]}
	}
	b[24].Type = CardAssassin
	return b
}

func fourPlayers() []Player {
	return []Player{
		{ID: "p1", UserID: "u1", Username: "host", Team: TeamRed, Role: RoleSpymaster},
		{ID: "p2", UserID: "u2", Username: "bea", Team: TeamBlue, Role: RoleSpymaster},
		{ID: "p3", UserID: "u3", Username: "cal", Team: TeamRed, Role: RoleGuesser},
		{ID: "p4", UserID: "u4", Username: "dee", Team: TeamBlue, Role: RoleGuesser},
	}
}

// mustApply folds events in order and fails on the first rejected one.
func mustApply(t *testing.T, s Session, events ...Event) Session {
	t.Helper()
	for _, ev := range events {
		var err error
		_, s, err = Apply(s, ev)
		require.NoError(t, err, "apply %s", ev.Name())
	}
	return s
}

func lobbySession(t *testing.T, selfID string) Session {
	t.Helper()
	return mustApply(t, NewSession(),
		ConnectRequested{Identity: Identity{UserID: "u3", Username: "cal", AuthToken: "tok"}},
		Connected{SelfID: selfID},
	)
}

func gameSession(t *testing.T, selfID string) Session {
	t.Helper()
	s := lobbySession(t, selfID)
	return mustApply(t, s,
		RoomCreated{Code: "ABC123", Players: fourPlayers()},
		GameStarted{Board: testBoard(), CurrentTeam: TeamRed, FirstTeam: TeamRed},
	)
}

func TestApply_ConnectLifecycle(t *testing.T) {
	s := NewSession()
	assert.Equal(t, PhaseIdle, s.Phase)

	s = mustApply(t, s, ConnectRequested{Identity: Identity{Username: "cal"}})
	assert.Equal(t, PhaseConnecting, s.Phase)
	assert.Equal(t, ConnConnecting, s.Connection)

	notices, s2, err := Apply(s, ConnectError{Message: "refused", Attempt: 1})
	require.NoError(t, err)
	assert.Equal(t, s, s2)
	require.Len(t, notices, 1)
	assert.Equal(t, NoticeConnectError, notices[0].Kind)

	s = mustApply(t, s, Connected{SelfID: "p3"})
	assert.Equal(t, PhaseInLobby, s.Phase)
	assert.Equal(t, "p3", s.SelfPlayerID)

	_, _, err = Apply(s, Connected{SelfID: "again"})
	assert.ErrorIs(t, err, ErrUnexpectedEvent)
}

func TestApply_RoomCreatedAndRoles(t *testing.T) {
	s := lobbySession(t, "p1")
	players := fourPlayers()
	players[1].Role = RoleGuesser

	s = mustApply(t, s, RoomCreated{Code: "ABC123", Players: players})
	require.NotNil(t, s.Room)
	assert.Equal(t, "ABC123", s.Room.Code)
	assert.Equal(t, "p1", s.Room.HostPlayerID)
	assert.Equal(t, PhaseWaitingForRoles, s.Phase)

	s = mustApply(t, s, RoomUpdated{Players: fourPlayers()})
	assert.Equal(t, PhaseReady, s.Phase)
	assert.True(t, s.IsHost())
}

func TestApply_JoinThenRoomUpdateCreatesRoom(t *testing.T) {
	s := lobbySession(t, "p3")

	_, _, err := Apply(s, RoomUpdated{Players: fourPlayers()})
	assert.ErrorIs(t, err, ErrUnexpectedEvent, "roomUpdate without a pending join")

	s = mustApply(t, s, JoinRequested{Code: "XYZ789"}, RoomUpdated{Players: fourPlayers()})
	require.NotNil(t, s.Room)
	assert.Equal(t, "XYZ789", s.Room.Code)
	assert.Empty(t, s.PendingJoin)
	assert.False(t, s.IsHost())
}

func TestApply_AbandonedJoinDoesNotBuildRoom(t *testing.T) {
	s := mustApply(t, lobbySession(t, "p3"), JoinRequested{Code: "XYZ789"}, JoinAbandoned{})
	assert.Empty(t, s.PendingJoin)

	_, _, err := Apply(s, RoomUpdated{Players: fourPlayers()})
	assert.ErrorIs(t, err, ErrUnexpectedEvent)

	_, _, err = Apply(s, JoinAbandoned{})
	assert.ErrorIs(t, err, ErrUnexpectedEvent, "nothing left to abandon")
}

func TestApply_RoomLeftReturnsToLobby(t *testing.T) {
	s := mustApply(t, gameSession(t, "p3"),
		ClueGiven{Clue: "ocean", Count: 1, Team: TeamRed},
		Disconnected{WillRetry: true},
		Connected{SelfID: "p3b"},
	)
	require.True(t, s.Resyncing)

	s = mustApply(t, s, RoomLeft{})
	assert.Equal(t, PhaseInLobby, s.Phase)
	assert.Nil(t, s.Room)
	assert.Nil(t, s.Board)
	assert.Nil(t, s.Turn)
	assert.Nil(t, s.FrozenSeat)
	assert.False(t, s.Resyncing)
	assert.Equal(t, "tok", s.Identity.AuthToken, "identity survives leaving a room")

	_, _, err := Apply(s, RoomLeft{})
	assert.ErrorIs(t, err, ErrUnexpectedEvent)

	s = mustApply(t, s, JoinRequested{Code: "XYZ789"}, RoomUpdated{Players: fourPlayers()})
	assert.Equal(t, "XYZ789", s.Room.Code)
}

func TestApply_RejectsDuplicatePlayerIDs(t *testing.T) {
	s := lobbySession(t, "p1")
	players := fourPlayers()
	players[3].ID = "p1"

	_, next, err := Apply(s, RoomCreated{Code: "ABC123", Players: players})
	assert.ErrorIs(t, err, ErrMalformedEvent)
	assert.Equal(t, s, next)
}

func TestApply_GameStartedFreezesSeat(t *testing.T) {
	s := gameSession(t, "p3")
	assert.Equal(t, PhaseClueWait, s.Phase)

	seat, ok := s.SelfSeat()
	require.True(t, ok)
	assert.Equal(t, Seat{Team: TeamRed, Role: RoleGuesser}, seat)

	swapped := fourPlayers()
	swapped[2].Team, swapped[2].Role = TeamBlue, RoleSpymaster
	s = mustApply(t, s, RoomUpdated{Players: swapped})

	seat, _ = s.SelfSeat()
	assert.Equal(t, Seat{Team: TeamRed, Role: RoleGuesser}, seat, "seat is frozen for the game")
}

func TestApply_ClueResetLaw(t *testing.T) {
	for c := MinClueCount; c <= MaxClueCount; c++ {
		t.Run(fmt.Sprintf("count=%d", c), func(t *testing.T) {
			s := mustApply(t, gameSession(t, "p3"), ClueGiven{Clue: "ocean", Count: c, Team: TeamRed})
			assert.Equal(t, c+1, s.Turn.GuessesLeft)
			assert.Equal(t, PhaseGuessPhase, s.Phase)

			for i := 0; i < c+1; i++ {
				s = mustApply(t, s, CardRevealed{Index: i, Card: Card{Word: fmt.Sprintf("word%02d", i), Type: CardRed, Revealed: true}})
			}
			assert.Equal(t, 0, s.Turn.GuessesLeft)
			assert.Equal(t, PhaseTurnOver, s.Phase)
		})
	}
}

func TestApply_ClueGivenRejectsOutOfRangeCount(t *testing.T) {
	s := gameSession(t, "p3")
	for _, n := range []int{0, 10, -1} {
		_, _, err := Apply(s, ClueGiven{Clue: "ocean", Count: n, Team: TeamRed})
		assert.ErrorIs(t, err, ErrMalformedEvent, "count %d", n)
	}
}

func TestApply_CardRevealedIsIdempotent(t *testing.T) {
	s := mustApply(t, gameSession(t, "p3"), ClueGiven{Clue: "ocean", Count: 2, Team: TeamRed})
	ev := CardRevealed{Index: 4, Card: Card{Word: "word04", Type: CardBlue, Revealed: true}}

	once := mustApply(t, s, ev)
	twice := mustApply(t, once, ev)

	assert.Equal(t, *once.Board, *twice.Board)
	assert.Equal(t, 2, once.Turn.GuessesLeft)
	assert.Equal(t, 2, twice.Turn.GuessesLeft)
}

func TestApply_RevealIsMonotonic(t *testing.T) {
	s := mustApply(t, gameSession(t, "p3"),
		ClueGiven{Clue: "ocean", Count: 3, Team: TeamRed},
		CardRevealed{Index: 0, Card: Card{Type: CardRed, Revealed: true}},
	)

	unrevealed := testBoard()
	team := TeamBlue
	inputs := []Event{
		CardRevealed{Index: 0, Card: Card{Word: "word00", Type: CardRed, Revealed: false}},
		GameUpdated{Board: &unrevealed},
		GameUpdated{CurrentTeam: &team, Board: &unrevealed},
		RoomUpdated{Players: fourPlayers()},
	}
	for _, ev := range inputs {
		_, next, err := Apply(s, ev)
		if err == nil {
			s = next
		}
		assert.True(t, s.Board[0].Revealed, "after %s", ev.Name())
	}
	// The reveal keeps the type it was revealed with.
	assert.Equal(t, CardRed, s.Board[0].Type)

	// A gameStarted replayed after a reconnect is a snapshot, not a new board.
	s = mustApply(t, s,
		Disconnected{Reason: "read: EOF", WillRetry: true},
		Connected{SelfID: "p3b"},
		GameStarted{Board: testBoard(), CurrentTeam: TeamRed, FirstTeam: TeamRed},
	)
	assert.True(t, s.Board[0].Revealed)
	assert.Equal(t, CardRed, s.Board[0].Type)
	assert.False(t, s.Resyncing)
}

func TestApply_ResyncGameStartedKeepsTurnAndSeat(t *testing.T) {
	s := mustApply(t, gameSession(t, "p3"),
		ClueGiven{Clue: "ocean", Count: 2, Team: TeamRed},
		CardRevealed{Index: 3, Card: Card{Type: CardRed, Revealed: true}},
	)
	server := testBoard()
	server[9].Revealed = true

	s = mustApply(t, s,
		Disconnected{WillRetry: true},
		Connected{SelfID: "p3b"},
		GameStarted{Board: server, CurrentTeam: TeamRed, Players: []Player{
			{ID: "p1b", UserID: "u1", Username: "host", Team: TeamBlue, Role: RoleGuesser},
			{ID: "p3b", UserID: "u3", Username: "cal", Team: TeamBlue, Role: RoleSpymaster},
		}},
	)
	assert.True(t, s.Board[3].Revealed)
	assert.True(t, s.Board[9].Revealed)
	assert.Equal(t, "ocean", s.Turn.Clue)
	assert.Equal(t, 2, s.Turn.GuessesLeft)
	assert.Equal(t, PhaseGuessPhase, s.Phase)

	seat, ok := s.SelfSeat()
	require.True(t, ok)
	assert.Equal(t, Seat{Team: TeamRed, Role: RoleGuesser}, seat, "seat stays frozen for the game")
}

func TestSelf_FallsBackToUserIDWithoutHandshake(t *testing.T) {
	s := mustApply(t, NewSession(),
		ConnectRequested{Identity: Identity{UserID: "u1", Username: "host", AuthToken: "tok"}},
		Connected{SelfID: ""},
		RoomCreated{Code: "ABC123", Players: fourPlayers()},
	)
	self, ok := s.Self()
	require.True(t, ok)
	assert.Equal(t, "p1", self.ID)
	assert.True(t, s.IsHost())
	assert.Equal(t, PhaseReady, s.Phase)

	s = mustApply(t, s, GameStarted{Board: testBoard(), CurrentTeam: TeamRed})
	require.NotNil(t, s.FrozenSeat)
	assert.Equal(t, Seat{Team: TeamRed, Role: RoleSpymaster}, *s.FrozenSeat)
}

func TestSelf_UnknownConnectionIDFallsBackToUserID(t *testing.T) {
	s := mustApply(t, NewSession(),
		ConnectRequested{Identity: Identity{UserID: "u2", Username: "bea"}},
		Connected{SelfID: "stale"},
		RoomCreated{Code: "ABC123", Players: fourPlayers()},
	)
	self, ok := s.Self()
	require.True(t, ok)
	assert.Equal(t, "p2", self.ID)
	assert.False(t, s.IsHost())

	s = mustApply(t, NewSession(), ConnectRequested{}, Connected{}, RoomCreated{Code: "ABC123", Players: fourPlayers()})
	_, ok = s.Self()
	assert.False(t, ok, "no connection id and no account id")
}

func TestApply_DoesNotMutateInput(t *testing.T) {
	s := mustApply(t, gameSession(t, "p3"), ClueGiven{Clue: "ocean", Count: 1, Team: TeamRed})
	before := s.Clone()

	_ = mustApply(t, s,
		CardRevealed{Index: 3, Card: Card{Type: CardRed, Revealed: true}},
		PresenceChanged{Username: "bea", Online: false},
	)
	assert.Equal(t, before, s)
}

func TestApply_GuessesDecrementOnAnyRevealType(t *testing.T) {
	s := mustApply(t, gameSession(t, "p3"), ClueGiven{Clue: "ocean", Count: 3, Team: TeamRed})
	require.Equal(t, 4, s.Turn.GuessesLeft)

	for i := 0; i < 3; i++ {
		s = mustApply(t, s, CardRevealed{Index: i * 3, Card: Card{Type: CardRed, Revealed: true}})
	}
	assert.Equal(t, 1, s.Turn.GuessesLeft)

	s = mustApply(t, s, CardRevealed{Index: 24, Card: Card{Type: CardAssassin, Revealed: true}})
	assert.Equal(t, 0, s.Turn.GuessesLeft)
	assert.Nil(t, s.Outcome, "outcome only comes from gameUpdate.winner")
	assert.Equal(t, PhaseTurnOver, s.Phase)
}

func TestApply_GameUpdateMergesPresentFieldsOnly(t *testing.T) {
	s := mustApply(t, gameSession(t, "p3"), ClueGiven{Clue: "ocean", Count: 2, Team: TeamRed})

	left := 1
	s = mustApply(t, s, GameUpdated{GuessesLeft: &left})
	assert.Equal(t, "ocean", s.Turn.Clue)
	assert.Equal(t, 2, s.Turn.ClueCount)
	assert.Equal(t, TeamRed, s.Turn.CurrentTeam)
	assert.Equal(t, 1, s.Turn.GuessesLeft)

	s = mustApply(t, s, GameUpdated{ClearClue: true})
	assert.Empty(t, s.Turn.Clue)
	assert.Equal(t, PhaseClueWait, s.Phase)
}

func TestApply_TurnChangeClearsClue(t *testing.T) {
	s := mustApply(t, gameSession(t, "p3"), ClueGiven{Clue: "ocean", Count: 2, Team: TeamRed})
	blue, zero := TeamBlue, 0

	s = mustApply(t, s, GameUpdated{CurrentTeam: &blue, GuessesLeft: &zero})
	assert.Equal(t, TeamBlue, s.Turn.CurrentTeam)
	assert.Empty(t, s.Turn.Clue)
	assert.Equal(t, PhaseClueWait, s.Phase)
}

func TestApply_GameUpdateRejectsOutOfRange(t *testing.T) {
	s := gameSession(t, "p3")
	bad := MaxGuesses + 1
	_, next, err := Apply(s, GameUpdated{GuessesLeft: &bad})
	assert.ErrorIs(t, err, ErrMalformedEvent)
	assert.Equal(t, s, next)
}

func TestApply_WinnerIsTerminal(t *testing.T) {
	s := mustApply(t, gameSession(t, "p3"), ClueGiven{Clue: "ocean", Count: 3, Team: TeamRed})
	blue := TeamBlue

	notices, s, err := Apply(s, GameUpdated{Winner: &blue})
	require.NoError(t, err)
	assert.Equal(t, PhaseGameOver, s.Phase)
	require.Len(t, notices, 1)
	assert.Equal(t, NoticeGameOver, notices[0].Kind)

	frozen := *s.Board
	for _, ev := range []Event{
		CardRevealed{Index: 5, Card: Card{Type: CardBlue, Revealed: true}},
		ClueGiven{Clue: "late", Count: 1, Team: TeamBlue},
		GameUpdated{Winner: &blue},
	} {
		_, _, err := Apply(s, ev)
		assert.ErrorIs(t, err, ErrUnexpectedEvent, ev.Name())
	}
	assert.Equal(t, frozen, *s.Board)
}

func TestApply_SnapshotResyncAfterReconnect(t *testing.T) {
	s := mustApply(t, lobbySession(t, "p1"), RoomCreated{Code: "ABC123", Players: fourPlayers()[:2]})

	s = mustApply(t, s,
		Disconnected{Reason: "read: EOF", WillRetry: true},
		Connected{SelfID: "p1-new"},
	)
	assert.True(t, s.Resyncing)
	assert.True(t, s.Phase.InRoom(), "phase is kept across a reconnect")

	fresh := []Player{
		{ID: "p9", Username: "zed", Team: TeamBlue, Role: RoleGuesser},
		{ID: "p1-new", UserID: "u1", Username: "host"},
	}
	s = mustApply(t, s, RoomUpdated{Players: fresh})
	assert.Equal(t, fresh, s.Room.Players)
}

func TestApply_ResyncBoardUnionsReveals(t *testing.T) {
	s := mustApply(t, gameSession(t, "p3"), ClueGiven{Clue: "ocean", Count: 2, Team: TeamRed})
	server := testBoard()
	server[7].Revealed = true
	left := 2

	// Outside resync a board replacement never flips a card.
	live := mustApply(t, s, GameUpdated{Board: &server})
	assert.False(t, live.Board[7].Revealed)

	s = mustApply(t, s, Disconnected{WillRetry: true}, Connected{SelfID: "p3b"})
	s = mustApply(t, s, GameUpdated{Board: &server, GuessesLeft: &left})
	assert.True(t, s.Board[7].Revealed)
	assert.False(t, s.Resyncing)
	assert.Equal(t, 2, s.Turn.GuessesLeft)
}

func TestApply_ServerErrorsNeverMutate(t *testing.T) {
	s := gameSession(t, "p3")
	for _, name := range []string{EvtRoomError, EvtGameError, EvtClueError, EvtGuessError, EvtRoleError} {
		notices, next, err := Apply(s, ServerError{Event: name, Message: "nope"})
		require.NoError(t, err)
		assert.Equal(t, s, next)
		require.Len(t, notices, 1)
		assert.Equal(t, "nope", notices[0].Message)
	}
}

func TestApply_IgnoresEventsForWrongPhase(t *testing.T) {
	s := lobbySession(t, "p1")
	cases := []Event{
		GameStarted{Board: testBoard(), CurrentTeam: TeamRed},
		ClueGiven{Clue: "ocean", Count: 1},
		CardRevealed{Index: 0},
		GameUpdated{},
		PresenceChanged{Username: "bea"},
	}
	for _, ev := range cases {
		t.Run(ev.Name(), func(t *testing.T) {
			_, next, err := Apply(s, ev)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrUnexpectedEvent))
			assert.Equal(t, s, next)
		})
	}
}

func TestApply_PresenceFlag(t *testing.T) {
	s := gameSession(t, "p3")
	s = mustApply(t, s, PresenceChanged{Username: "bea", Online: false})
	assert.True(t, s.Room.Players[1].Offline)

	s = mustApply(t, s, PresenceChanged{Username: "bea", Online: true})
	assert.False(t, s.Room.Players[1].Offline)
}

func TestApply_ConnectionFailedAndLogout(t *testing.T) {
	s := mustApply(t, gameSession(t, "p3"), Disconnected{WillRetry: true}, ReconnectAttempt{Attempt: 1})
	assert.Equal(t, ConnReconnecting, s.Connection)

	notices, s, err := Apply(s, ConnectionFailed{Message: "gave up after 5 attempts"})
	require.NoError(t, err)
	require.Len(t, notices, 1)
	assert.Equal(t, ConnDisconnected, s.Connection)
	assert.Equal(t, PhaseClueWait, s.Phase, "a failed session stays inspectable")

	s = mustApply(t, s, LoggedOut{})
	assert.Equal(t, PhaseIdle, s.Phase)
	assert.Nil(t, s.Room)
	assert.Empty(t, s.Identity.AuthToken)
}

func TestDerivePhase(t *testing.T) {
	board := testBoard()
	cases := []struct {
		name string
		s    Session
		want Phase
	}{
		{"idle", Session{}, PhaseIdle},
		{"reconnecting without room", Session{Connection: ConnReconnecting}, PhaseConnecting},
		{"lobby", Session{Connection: ConnConnected}, PhaseInLobby},
		{"room short", Session{Room: &Room{Players: fourPlayers()[:3]}}, PhaseWaitingForRoles},
		{"room ready", Session{Room: &Room{Players: fourPlayers()}}, PhaseReady},
		{"clue wait", Session{Board: &board, Turn: &TurnState{}}, PhaseClueWait},
		{"guessing", Session{Board: &board, Turn: &TurnState{Clue: "x", GuessesLeft: 1}}, PhaseGuessPhase},
		{"turn over", Session{Board: &board, Turn: &TurnState{Clue: "x"}}, PhaseTurnOver},
		{"game over", Session{Board: &board, Turn: &TurnState{}, Outcome: &Outcome{Winner: TeamRed}}, PhaseGameOver},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := DerivePhase(tc.s); got != tc.want {
				t.Fatalf("got %s, want %s", got, tc.want)
			}
		})
	}
}

func TestRosterReadyRequiresExactlyOneSpymasterPerTeam(t *testing.T) {
	players := fourPlayers()
	assert.True(t, RosterReady(players))

	players[3].Role = RoleSpymaster
	assert.False(t, RosterReady(players), "two blue spymasters")
}
