package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/skip2/go-qrcode"

	"github.com/DoyleJ11/codenames-client/internal/engine"
	"github.com/DoyleJ11/codenames-client/internal/view"
)

const boardColumns = 5

var typeMarks = map[engine.CardType]string{
	engine.CardRed:      "R",
	engine.CardBlue:     "B",
	engine.CardInnocent: "i",
	engine.CardAssassin: "X",
}

// renderBoard prints the projected board as a 5x5 grid. Revealed cards are
// starred; a type mark appears only where the projection exposes one.
func renderBoard(w io.Writer, v view.View) {
	if len(v.Board) == 0 {
		fmt.Fprintln(w, "no board yet")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for i, c := range v.Board {
		cell := fmt.Sprintf("%2d %s", i, c.Word)
		if mark, ok := typeMarks[c.DisplayType]; ok {
			cell += "(" + mark + ")"
		}
		if c.Revealed {
			cell += "*"
		}
		sep := "\t"
		if (i+1)%boardColumns == 0 {
			sep = "\n"
		}
		fmt.Fprint(tw, cell+sep)
	}
	_ = tw.Flush()
	renderStatus(w, v)
}

func renderStatus(w io.Writer, v view.View) {
	if v.CurrentTeam == "" {
		return
	}
	turn := fmt.Sprintf("turn: %s", v.CurrentTeam)
	if v.MyTurn {
		turn += " (you)"
	}
	parts := []string{turn}
	if v.Clue != "" {
		parts = append(parts, fmt.Sprintf("clue: %q x%d", v.Clue, v.ClueCount), fmt.Sprintf("guesses left: %d", v.GuessesLeft))
	}
	if v.Remaining != nil {
		parts = append(parts, fmt.Sprintf("left RED %d / BLUE %d", v.Remaining[engine.TeamRed], v.Remaining[engine.TeamBlue]))
	}
	fmt.Fprintln(w, strings.Join(parts, " | "))
}

func renderPlayers(w io.Writer, v view.View) {
	if v.RoomCode == "" {
		fmt.Fprintln(w, "not in a room")
		return
	}
	fmt.Fprintf(w, "room %s\n", v.RoomCode)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, p := range v.Players {
		var tags []string
		if p.Host {
			tags = append(tags, "host")
		}
		if p.Self {
			tags = append(tags, "you")
		}
		if p.Offline {
			tags = append(tags, "offline")
		}
		fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n", p.Username, orDash(string(p.Team)), orDash(string(p.Role)), strings.Join(tags, ","))
	}
	_ = tw.Flush()
	if v.CanStart {
		fmt.Fprintln(w, "ready to start")
	}
}

func renderQR(w io.Writer, code string) error {
	q, err := qrcode.New(code, qrcode.Medium)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, q.ToSmallString(false))
	return err
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
