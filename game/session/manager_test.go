package session

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/wricardo/zero-blast/game/engine"
)

func createRoomSession(id string) *Session {
	return New(id, id+"-p1", id+"-p2", engine.NewBoardFromValues([]int{1, 0, 2}))
}

func TestDirectory_Create(t *testing.T) {
	dir := NewDirectory()

	t.Run("create room", func(t *testing.T) {
		called := false
		room, err := dir.Create(createRoomSession("s1"), "c1", "c2", func(r *Room) {
			called = true
			if r.SessionID != "s1" {
				t.Errorf("Expected onCreate to receive room s1, got %s", r.SessionID)
			}
		})
		if err != nil {
			t.Fatalf("Failed to create room: %v", err)
		}
		if !called {
			t.Error("Expected onCreate to be called")
		}
		if room.Player1ID != "s1-p1" || room.Connection2 != "c2" {
			t.Errorf("Unexpected room: %+v", room)
		}
		if dir.Count() != 1 {
			t.Errorf("Expected 1 room, got %d", dir.Count())
		}
	})

	t.Run("duplicate session", func(t *testing.T) {
		_, err := dir.Create(createRoomSession("s1"), "c3", "c4", nil)
		if err != ErrRoomAlreadyExists {
			t.Errorf("Expected ErrRoomAlreadyExists, got %v", err)
		}
	})

	t.Run("invalid session", func(t *testing.T) {
		if _, err := dir.Create(nil, "c5", "c6", nil); err != ErrInvalidSessionID {
			t.Errorf("Expected ErrInvalidSessionID, got %v", err)
		}
	})
}

func TestDirectory_Lookups(t *testing.T) {
	dir := NewDirectory()
	room, _ := dir.Create(createRoomSession("s1"), "c1", "c2", nil)

	t.Run("by connection", func(t *testing.T) {
		for _, conn := range []string{"c1", "c2"} {
			got, ok := dir.FindByConnection(conn)
			if !ok || got != room {
				t.Errorf("Expected room for connection %s", conn)
			}
		}
		if _, ok := dir.FindByConnection("c9"); ok {
			t.Error("Expected no room for unknown connection")
		}
	})

	t.Run("by player", func(t *testing.T) {
		got, ok := dir.FindByPlayer("s1-p2")
		if !ok || got != room {
			t.Error("Expected room for player s1-p2")
		}
	})

	t.Run("by session", func(t *testing.T) {
		if _, err := dir.Get("s1"); err != nil {
			t.Errorf("Expected room s1, got %v", err)
		}
		if _, err := dir.Get("missing"); err != ErrRoomNotFound {
			t.Errorf("Expected ErrRoomNotFound, got %v", err)
		}
	})

	t.Run("slots", func(t *testing.T) {
		if room.SlotOfConnection("c2") != Slot2 || room.SlotOfConnection("x") != NoSlot {
			t.Error("Unexpected connection slot")
		}
		if room.SlotOf("s1-p1") != Slot1 {
			t.Error("Unexpected player slot")
		}
		if room.ConnectionOf(Slot1) != "c1" || room.PlayerID(Slot2) != "s1-p2" {
			t.Error("Unexpected slot lookups")
		}
	})
}

func TestDirectory_Remove(t *testing.T) {
	dir := NewDirectory()
	dir.Create(createRoomSession("s1"), "c1", "c2", nil)

	if err := dir.Remove("s1"); err != nil {
		t.Fatalf("Failed to remove room: %v", err)
	}
	if dir.Count() != 0 {
		t.Errorf("Expected 0 rooms, got %d", dir.Count())
	}
	if _, ok := dir.FindByConnection("c1"); ok {
		t.Error("Connection index must be cleared")
	}
	if _, ok := dir.FindByPlayer("s1-p1"); ok {
		t.Error("Player index must be cleared")
	}
	if err := dir.Remove("s1"); err != ErrRoomNotFound {
		t.Errorf("Expected ErrRoomNotFound on second remove, got %v", err)
	}
}

func TestDirectory_RemoveKeepsNewerIndexes(t *testing.T) {
	dir := NewDirectory()
	dir.Create(New("old", "alice", "bob", engine.NewBoardFromValues([]int{1})), "c1", "c2", nil)
	newer, _ := dir.Create(New("new", "alice", "carol", engine.NewBoardFromValues([]int{1})), "c3", "c4", nil)

	dir.Remove("old")

	got, ok := dir.FindByPlayer("alice")
	if !ok || got != newer {
		t.Error("Removing an old room must not drop the player's newer room")
	}
}

func TestRoom_DoAndClose(t *testing.T) {
	t.Run("do runs under lock and retires on finish", func(t *testing.T) {
		dir := NewDirectory()
		room, _ := dir.Create(createRoomSession("s1"), "c1", "c2", nil)

		retired, err := room.Do(func() error {
			_, err := room.Session.ApplyMove("s1-p1", 0)
			return err
		})
		if err != nil || retired {
			t.Fatalf("Expected live room after safe move, retired=%v err=%v", retired, err)
		}

		retired, err = room.Do(func() error {
			_, err := room.Session.ApplyMove("s1-p2", 1)
			return err
		})
		if err != nil || !retired {
			t.Fatalf("Expected room to retire after loss, retired=%v err=%v", retired, err)
		}
		if !room.Closed() {
			t.Error("Expected retired room to be closed")
		}

		if _, err := room.Do(func() error { return nil }); !errors.Is(err, ErrRoomClosed) {
			t.Errorf("Expected ErrRoomClosed, got %v", err)
		}
	})

	t.Run("do propagates errors", func(t *testing.T) {
		room := newRoom(createRoomSession("s2"), "c1", "c2")
		boom := fmt.Errorf("boom")
		if _, err := room.Do(func() error { return boom }); err != boom {
			t.Errorf("Expected fn error, got %v", err)
		}
		if room.Closed() {
			t.Error("Failed fn must not close the room")
		}
	})

	t.Run("close runs once", func(t *testing.T) {
		room := newRoom(createRoomSession("s3"), "c1", "c2")
		calls := 0
		if !room.Close(func() { calls++ }) {
			t.Error("Expected first close to succeed")
		}
		if room.Close(func() { calls++ }) {
			t.Error("Expected second close to report false")
		}
		if calls != 1 {
			t.Errorf("Expected close callback once, got %d", calls)
		}
	})
}

func TestDirectory_ConcurrentAccess(t *testing.T) {
	dir := NewDirectory()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			sid := fmt.Sprintf("s%d", id)
			dir.Create(createRoomSession(sid), sid+"-a", sid+"-b", nil)
			dir.FindByConnection(sid + "-a")
			dir.List()
		}(i)
	}
	wg.Wait()

	if dir.Count() != 20 {
		t.Errorf("Expected 20 rooms, got %d", dir.Count())
	}

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			dir.Remove(fmt.Sprintf("s%d", id))
		}(i)
	}
	wg.Wait()

	if dir.Count() != 0 {
		t.Errorf("Expected 0 rooms, got %d", dir.Count())
	}
}
