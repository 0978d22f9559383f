package session

import (
	"testing"
	"time"

	"github.com/discourselab/cosmos/internal/cosmos"
)

func TestEnsureSessionGeneratesAndReuses(t *testing.T) {
	store := NewInMemoryStore()

	a, err := store.EnsureSession("", time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.ID() == "" {
		t.Fatalf("expected a generated session id")
	}

	b, err := store.EnsureSession(a.ID(), time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b != a {
		t.Fatalf("ensure with a live id must reuse the session")
	}
}

func TestExpiredSessionsAreSwept(t *testing.T) {
	store := NewInMemoryStore()

	sess, _ := store.EnsureSession("", -time.Second)
	if _, ok := store.GetSession(sess.ID()); ok {
		t.Fatalf("expired session should have been swept")
	}
}

func TestSwipesAndPosition(t *testing.T) {
	store := NewInMemoryStore()
	sess, _ := store.EnsureSession("", time.Minute)

	sess.AddSwipe(cosmos.SwipeEvent{PostID: "p1", Reaction: "agree"})
	sess.AddSwipe(cosmos.SwipeEvent{PostID: "", Reaction: "skip"}) // dropped
	sess.AddSwipe(cosmos.SwipeEvent{PostID: "p1", Reaction: "disagree"})

	swipes := sess.Swipes()
	if len(swipes) != 2 {
		t.Fatalf("expected 2 recorded swipes, got %d", len(swipes))
	}
	if swipes[1].Reaction != "disagree" {
		t.Fatalf("arrival order lost: %v", swipes)
	}

	if sess.Position() != nil {
		t.Fatalf("position should start unset")
	}
	sess.SetPosition(cosmos.UserPosition{Position: cosmos.Position{X: 1, Y: 2, Z: 3}})
	pos := sess.Position()
	if pos == nil || pos.Z != 3 {
		t.Fatalf("unexpected position: %+v", pos)
	}
}
