package service

import (
	"github.com/wricardo/zero-blast/game/session"
)

// Game results from one player's point of view
const (
	ResultWon  = "won"
	ResultLost = "lost"
)

// CellView is a cell as a player is allowed to see it. Value is nil while
// the cell is hidden.
type CellView struct {
	Index    int  `json:"index"`
	Revealed bool `json:"revealed"`
	Value    *int `json:"value,omitempty"`
}

// StateView is the personalized game state sent to one participant
type StateView struct {
	SessionID   string         `json:"sessionId"`
	Board       []CellView     `json:"board"`
	MySlot      session.Slot   `json:"mySlot"`
	OpponentID  string         `json:"opponentId"`
	CurrentSlot session.Slot   `json:"currentSlot"`
	IsMyTurn    bool           `json:"isMyTurn"`
	Status      session.Status `json:"status"`
	Revealed    int            `json:"revealed"`
	WinnerSlot  session.Slot   `json:"winnerSlot,omitempty"`
	Result      string         `json:"result,omitempty"`
}

// NewStateView renders snap for the player in slot. Hidden values are only
// disclosed once the game is finished.
func NewStateView(snap session.Snapshot, slot session.Slot) StateView {
	finished := snap.Finished()

	board := make([]CellView, len(snap.Cells))
	for i, cell := range snap.Cells {
		board[i] = CellView{Index: i, Revealed: cell.Revealed}
		if cell.Revealed || finished {
			v := cell.Value
			board[i].Value = &v
		}
	}

	view := StateView{
		SessionID:   snap.ID,
		Board:       board,
		MySlot:      slot,
		OpponentID:  snap.PlayerID(slot.Other()),
		CurrentSlot: snap.CurrentSlot,
		IsMyTurn:    !finished && snap.CurrentSlot == slot,
		Status:      snap.Status,
		Revealed:    snap.Revealed,
	}

	if finished {
		view.WinnerSlot = snap.WinnerSlot
		view.Result = ResultLost
		if snap.WinnerSlot == slot {
			view.Result = ResultWon
		}
	}

	return view
}

func stateEvent(snap session.Snapshot, slot session.Slot) Event {
	return Event{Name: EventState, Data: NewStateView(snap, slot)}
}

func matchFoundEvent(room *session.Room, slot session.Slot) Event {
	return Event{Name: EventMatchFound, Data: MatchFound{
		SessionID:  room.SessionID,
		MySlot:     slot,
		OpponentID: room.Opponent(slot),
		IsMyTurn:   slot == session.Slot1,
	}}
}

func gameOverEvent(snap session.Snapshot) Event {
	over := GameOver{
		WinnerPlayerID: snap.PlayerID(snap.WinnerSlot),
		WinnerSlot:     snap.WinnerSlot,
		SessionID:      snap.ID,
	}
	if snap.FinishedAt != nil {
		over.EndTime = *snap.FinishedAt
	}
	return Event{Name: EventGameOver, Data: over}
}
