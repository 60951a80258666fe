package engine

import (
	"fmt"
	"slices"
)

// Teams in display order.
var Teams = []Team{TeamRed, TeamBlue}

func NewSession() Session {
	s := Session{Connection: ConnDisconnected}
	s.Phase = DerivePhase(s)
	return s
}

// DerivePhase is the only place the top-level state is computed; the reducer
// stores its result on every transition.
func DerivePhase(s Session) Phase {
	switch {
	case s.Outcome != nil:
		return PhaseGameOver
	case s.Board != nil && s.Turn != nil:
		switch {
		case s.Turn.Clue == "":
			return PhaseClueWait
		case s.Turn.GuessesLeft > 0:
			return PhaseGuessPhase
		default:
			return PhaseTurnOver
		}
	case s.Room != nil:
		if RosterReady(s.Room.Players) {
			return PhaseReady
		}
		return PhaseWaitingForRoles
	case s.Connection == ConnConnected:
		return PhaseInLobby
	case s.Connection == ConnConnecting || s.Connection == ConnReconnecting:
		return PhaseConnecting
	default:
		return PhaseIdle
	}
}

// RosterReady reports whether each team has exactly one spymaster and the room
// has the minimum number of players.
func RosterReady(players []Player) bool {
	return len(players) >= MinPlayers && SpymastersReady(players)
}

func SpymastersReady(players []Player) bool {
	for _, team := range Teams {
		if CountRole(players, team, RoleSpymaster) != 1 {
			return false
		}
	}
	return true
}

func CountRole(players []Player, team Team, role Role) int {
	n := 0
	for _, p := range players {
		if p.Team == team && p.Role == role {
			n++
		}
	}
	return n
}

// Self returns the local player's roster entry, if present. The connection id
// wins; without one (no handshake, or an id the roster does not know) the
// account id is used.
func (s Session) Self() (Player, bool) {
	if s.Room == nil {
		return Player{}, false
	}
	if s.SelfPlayerID != "" {
		if i := slices.IndexFunc(s.Room.Players, func(p Player) bool { return p.ID == s.SelfPlayerID }); i >= 0 {
			return s.Room.Players[i], true
		}
	}
	return s.selfByUserID()
}

func (s Session) selfByUserID() (Player, bool) {
	if s.Identity.UserID == "" {
		return Player{}, false
	}
	i := slices.IndexFunc(s.Room.Players, func(p Player) bool { return p.UserID == s.Identity.UserID })
	if i < 0 {
		return Player{}, false
	}
	return s.Room.Players[i], true
}

// SelfSeat is the frozen seat during a game, else the current roster seat.
func (s Session) SelfSeat() (Seat, bool) {
	if s.FrozenSeat != nil {
		return *s.FrozenSeat, true
	}
	return s.selfSeatFromRoster()
}

func (s Session) selfSeatFromRoster() (Seat, bool) {
	p, ok := s.Self()
	if !ok {
		return Seat{}, false
	}
	return Seat{Team: p.Team, Role: p.Role}, true
}

// IsHost reports whether the local player is players[0].
func (s Session) IsHost() bool {
	if s.Room == nil || len(s.Room.Players) == 0 {
		return false
	}
	self, ok := s.Self()
	return ok && self.ID == s.Room.Players[0].ID
}

func (s Session) clone() Session {
	c := s
	if s.Room != nil {
		r := *s.Room
		r.Players = slices.Clone(s.Room.Players)
		c.Room = &r
	}
	if s.Board != nil {
		b := *s.Board
		c.Board = &b
	}
	if s.Turn != nil {
		t := *s.Turn
		c.Turn = &t
	}
	if s.Outcome != nil {
		o := *s.Outcome
		c.Outcome = &o
	}
	if s.FrozenSeat != nil {
		seat := *s.FrozenSeat
		c.FrozenSeat = &seat
	}
	return c
}

// Clone returns a deep copy safe to hand to other goroutines.
func (s Session) Clone() Session { return s.clone() }

func uniquePlayers(players []Player) ([]Player, error) {
	seen := make(map[string]bool, len(players))
	out := make([]Player, 0, len(players))
	for _, p := range players {
		if p.ID == "" {
			return nil, fmt.Errorf("player %q has no id", p.Username)
		}
		if seen[p.ID] {
			return nil, fmt.Errorf("duplicate player id %q", p.ID)
		}
		seen[p.ID] = true
		out = append(out, p)
	}
	return out, nil
}

func hostOf(players []Player) string {
	if len(players) == 0 {
		return ""
	}
	return players[0].ID
}
