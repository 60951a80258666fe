// Package view derives what a given role may see. Project is the only function
// that decides whether an unrevealed card's type is exposed; everything handed
// to the presentation layer goes through it.
package view

import (
	"github.com/DoyleJ11/codenames-client/internal/engine"
	"github.com/DoyleJ11/codenames-client/internal/guard"
)

type ProjectedCard struct {
	Word        string          `json:"word"`
	Revealed    bool            `json:"revealed"`
	DisplayType engine.CardType `json:"displayType"`
}

// Project hides the type of every unrevealed card unless role is SPYMASTER.
// A card whose type the server omitted projects as UNKNOWN for every role.
func Project(board engine.Board, role engine.Role) []ProjectedCard {
	out := make([]ProjectedCard, len(board))
	for i, c := range board {
		display := engine.CardUnknown
		if (c.Revealed || role == engine.RoleSpymaster) && c.Type.Valid() {
			display = c.Type
		}
		out[i] = ProjectedCard{Word: c.Word, Revealed: c.Revealed, DisplayType: display}
	}
	return out
}

// Remaining counts the unrevealed words each team still has, from the types
// the server sent. It exposes counts only, never positions.
func Remaining(board engine.Board) map[engine.Team]int {
	left := map[engine.Team]int{engine.TeamRed: 0, engine.TeamBlue: 0}
	for _, c := range board {
		if c.Revealed {
			continue
		}
		switch c.Type {
		case engine.CardRed:
			left[engine.TeamRed]++
		case engine.CardBlue:
			left[engine.TeamBlue]++
		}
	}
	return left
}

type PlayerView struct {
	ID       string      `json:"id"`
	Username string      `json:"username"`
	Team     engine.Team `json:"team,omitempty"`
	Role     engine.Role `json:"role,omitempty"`
	Host     bool        `json:"host,omitempty"`
	Self     bool        `json:"self,omitempty"`
	Offline  bool        `json:"offline,omitempty"`
}

// View is the role-scoped rendering input. It never carries raw card types.
type View struct {
	Phase       engine.Phase        `json:"phase"`
	Connection  engine.Connection   `json:"connection"`
	RoomCode    string              `json:"roomCode,omitempty"`
	Players     []PlayerView        `json:"players,omitempty"`
	MyTeam      engine.Team         `json:"myTeam,omitempty"`
	MyRole      engine.Role         `json:"myRole,omitempty"`
	CanStart    bool                `json:"canStart"`
	Board       []ProjectedCard     `json:"board,omitempty"`
	CurrentTeam engine.Team         `json:"currentTeam,omitempty"`
	Clue        string              `json:"clue,omitempty"`
	ClueCount   int                 `json:"clueCount,omitempty"`
	GuessesLeft int                 `json:"guessesLeft"`
	MyTurn      bool                `json:"myTurn"`
	CanGiveClue bool                `json:"canGiveClue"`
	CanEndTurn  bool                `json:"canEndTurn"`
	CanGuess    []bool              `json:"canGuess,omitempty"`
	Remaining   map[engine.Team]int `json:"remaining,omitempty"`
	Winner      engine.Team         `json:"winner,omitempty"`
	IWon        bool                `json:"iWon,omitempty"`
}

// Build assembles the view for the local player.
func Build(s engine.Session) View {
	v := View{Phase: s.Phase, Connection: s.Connection}
	seat, _ := s.SelfSeat()
	v.MyTeam, v.MyRole = seat.Team, seat.Role

	if s.Room != nil {
		v.RoomCode = s.Room.Code
		v.Players = make([]PlayerView, len(s.Room.Players))
		self, _ := s.Self()
		for i, p := range s.Room.Players {
			v.Players[i] = PlayerView{
				ID:       p.ID,
				Username: p.Username,
				Team:     p.Team,
				Role:     p.Role,
				Host:     i == 0,
				Self:     p.ID == self.ID && self.ID != "",
				Offline:  p.Offline,
			}
		}
		v.CanStart = guard.StartGame(s) == nil
	}

	if s.Board != nil {
		v.Board = Project(*s.Board, seat.Role)
		v.Remaining = Remaining(*s.Board)
		v.CanGuess = make([]bool, engine.BoardSize)
		for i := range v.CanGuess {
			v.CanGuess[i] = guard.MakeGuess(s, i) == nil
		}
	}

	if s.Turn != nil {
		v.CurrentTeam = s.Turn.CurrentTeam
		v.Clue = s.Turn.Clue
		v.ClueCount = s.Turn.ClueCount
		v.GuessesLeft = s.Turn.GuessesLeft
		v.MyTurn = s.Outcome == nil && seat.Team.Valid() && seat.Team == s.Turn.CurrentTeam
		v.CanGiveClue = guard.GiveClue(s, "clue", engine.MinClueCount) == nil
		v.CanEndTurn = guard.EndTurn(s) == nil
	}

	if s.Outcome != nil {
		v.Winner = s.Outcome.Winner
		v.IWon = seat.Team.Valid() && seat.Team == s.Outcome.Winner
	}
	return v
}
