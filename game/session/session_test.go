package session

import (
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/wricardo/zero-blast/game/engine"
)

// board layout used across tests: index 1 and 3 are loss markers
func createTestSession() *Session {
	board := engine.NewBoardFromValues([]int{10, 0, 20, 0, 30, 40})
	return New("test-session", "alice", "bob", board)
}

func TestSlotOther(t *testing.T) {
	if Slot1.Other() != Slot2 || Slot2.Other() != Slot1 {
		t.Error("Expected slots 1 and 2 to oppose each other")
	}
	if NoSlot.Other() != NoSlot {
		t.Error("Expected NoSlot to have no opponent")
	}
}

func TestNew(t *testing.T) {
	sess := createTestSession()
	snap := sess.Snapshot()

	if snap.Status != Playing {
		t.Errorf("Expected status playing, got %s", snap.Status)
	}
	if snap.CurrentSlot != Slot1 {
		t.Errorf("Expected slot 1 to move first, got %d", snap.CurrentSlot)
	}
	if snap.WinnerSlot != NoSlot {
		t.Errorf("Expected no winner, got %d", snap.WinnerSlot)
	}
	if sess.SlotOf("alice") != Slot1 || sess.SlotOf("bob") != Slot2 || sess.SlotOf("carol") != NoSlot {
		t.Error("Unexpected slot resolution")
	}
	if sess.PlayerID(Slot2) != "bob" || sess.PlayerID(NoSlot) != "" {
		t.Error("Unexpected player resolution")
	}
}

func TestApplyMove_SafeRevealFlipsTurn(t *testing.T) {
	sess := createTestSession()

	outcome, err := sess.ApplyMove("alice", 0)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if outcome.Reveal != engine.Safe || outcome.Value != 10 {
		t.Errorf("Unexpected outcome: %+v", outcome)
	}
	if outcome.CurrentSlot != Slot2 {
		t.Errorf("Expected turn to pass to slot 2, got %d", outcome.CurrentSlot)
	}
	if outcome.Finished() || outcome.WinnerSlot != NoSlot {
		t.Error("Safe reveal must not finish the game")
	}

	snap := sess.Snapshot()
	if snap.Status != Playing || snap.CurrentSlot != Slot2 || snap.WinnerSlot != NoSlot {
		t.Errorf("Unexpected state after safe reveal: %+v", snap)
	}
	if !snap.Cells[0].Revealed || snap.Revealed != 1 {
		t.Error("Expected cell 0 to be revealed")
	}
}

func TestApplyMove_LossRevealFinishes(t *testing.T) {
	sess := createTestSession()

	if _, err := sess.ApplyMove("alice", 0); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	outcome, err := sess.ApplyMove("bob", 1)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if outcome.Reveal != engine.Loss || !outcome.Finished() {
		t.Errorf("Expected loss to finish the game: %+v", outcome)
	}
	if outcome.WinnerSlot != Slot1 {
		t.Errorf("Expected slot 1 to win, got %d", outcome.WinnerSlot)
	}
	if outcome.MovedSlot != Slot2 {
		t.Errorf("Expected slot 2 to have moved, got %d", outcome.MovedSlot)
	}

	snap := sess.Snapshot()
	if snap.CurrentSlot != Slot2 {
		t.Errorf("Turn must not flip on a loss, got %d", snap.CurrentSlot)
	}
	if snap.FinishedAt == nil || snap.FinishedAt.IsZero() {
		t.Error("Expected finish time to be set")
	}
	if !sess.Finished() {
		t.Error("Expected session to be finished")
	}

	t.Run("terminal state", func(t *testing.T) {
		before := sess.Snapshot()
		for _, player := range []string{"alice", "bob"} {
			if _, err := sess.ApplyMove(player, 2); !errors.Is(err, ErrGameAlreadyFinished) {
				t.Errorf("Expected ErrGameAlreadyFinished for %s, got %v", player, err)
			}
		}
		after := sess.Snapshot()
		if after.Revealed != before.Revealed || after.CurrentSlot != before.CurrentSlot || after.WinnerSlot != before.WinnerSlot {
			t.Error("Moves after finish must not mutate state")
		}
	})
}

func TestApplyMove_Failures(t *testing.T) {
	t.Run("not your turn", func(t *testing.T) {
		sess := createTestSession()
		if _, err := sess.ApplyMove("bob", 0); !errors.Is(err, ErrNotYourTurn) {
			t.Errorf("Expected ErrNotYourTurn, got %v", err)
		}
		if sess.Snapshot().Revealed != 0 {
			t.Error("Failed move must not reveal anything")
		}
	})

	t.Run("not a participant", func(t *testing.T) {
		sess := createTestSession()
		if _, err := sess.ApplyMove("mallory", 0); !errors.Is(err, ErrNotParticipant) {
			t.Errorf("Expected ErrNotParticipant, got %v", err)
		}
	})

	t.Run("already revealed", func(t *testing.T) {
		sess := createTestSession()
		sess.ApplyMove("alice", 0)
		before := sess.Snapshot()

		if _, err := sess.ApplyMove("bob", 0); !errors.Is(err, engine.ErrAlreadyRevealed) {
			t.Errorf("Expected ErrAlreadyRevealed, got %v", err)
		}

		after := sess.Snapshot()
		if after.CurrentSlot != before.CurrentSlot || after.Status != before.Status || after.Revealed != before.Revealed {
			t.Error("Already-revealed move must leave state unchanged")
		}
	})

	t.Run("out of range", func(t *testing.T) {
		sess := createTestSession()
		if _, err := sess.ApplyMove("alice", 99); !errors.Is(err, engine.ErrOutOfRange) {
			t.Errorf("Expected ErrOutOfRange, got %v", err)
		}
		if sess.Snapshot().CurrentSlot != Slot1 {
			t.Error("Out of range move must not pass the turn")
		}
	})
}

func TestApplyMove_ConcurrentSameTurn(t *testing.T) {
	sess := createTestSession()

	var wg sync.WaitGroup
	var mu sync.Mutex
	successes := 0

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			if _, err := sess.ApplyMove("alice", []int{0, 2, 4, 5}[idx%4]); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	if successes != 1 {
		t.Errorf("Expected exactly one move to win the race, got %d", successes)
	}
	if sess.Snapshot().Revealed != 1 {
		t.Errorf("Expected exactly one revealed cell, got %d", sess.Snapshot().Revealed)
	}
}

func TestSnapshotIsolation(t *testing.T) {
	sess := createTestSession()
	snap := sess.Snapshot()
	snap.Cells[0].Revealed = true

	if sess.Snapshot().Cells[0].Revealed {
		t.Error("Snapshot must not alias session state")
	}
	if snap.PlayerID(Slot1) != "alice" {
		t.Errorf("Expected alice in slot 1, got %s", snap.PlayerID(Slot1))
	}
}

func TestSnapshotJSON_FinishedAt(t *testing.T) {
	sess := createTestSession()

	data, err := json.Marshal(sess.Snapshot())
	if err != nil {
		t.Fatalf("Failed to marshal snapshot: %v", err)
	}
	if strings.Contains(string(data), "finished_at") {
		t.Errorf("Expected no finished_at while playing, got %s", data)
	}

	if _, err := sess.ApplyMove("alice", 1); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	data, err = json.Marshal(sess.Snapshot())
	if err != nil {
		t.Fatalf("Failed to marshal snapshot: %v", err)
	}
	if !strings.Contains(string(data), "finished_at") {
		t.Errorf("Expected finished_at once finished, got %s", data)
	}
}
