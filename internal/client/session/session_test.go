package session

import (
	"errors"
	"fmt"
	"testing"

	"github.com/atinyakov/kidcoin/internal/models"
)

func loggedIn(t *testing.T, balance int64) *Session {
	t.Helper()
	s := New()
	acc := models.NewAccount("alice", "pw", "")
	acc.Balance = balance
	s.SetCurrent(*acc)
	return s
}

func TestCredit(t *testing.T) {
	s := loggedIn(t, 100)
	if err := s.Credit(50); err != nil {
		t.Fatalf("Credit failed: %v", err)
	}
	cur, _ := s.Current()
	if cur.Balance != 150 {
		t.Errorf("expected balance 150, got %d", cur.Balance)
	}
}

func TestCredit_NonPositive(t *testing.T) {
	for _, amount := range []int64{0, -5} {
		s := loggedIn(t, 100)
		if err := s.Credit(amount); !errors.Is(err, ErrNonPositiveAmount) {
			t.Errorf("Credit(%d): expected ErrNonPositiveAmount, got %v", amount, err)
		}
		cur, _ := s.Current()
		if cur.Balance != 100 {
			t.Errorf("Credit(%d): balance changed to %d", amount, cur.Balance)
		}
	}
}

func TestCredit_NoCurrentUser(t *testing.T) {
	s := New()
	if err := s.Credit(10); !errors.Is(err, ErrNoCurrentUser) {
		t.Errorf("expected ErrNoCurrentUser, got %v", err)
	}
}

func TestDebit_ClampsAtZero(t *testing.T) {
	tests := []struct {
		balance, amount, want int64
	}{
		{100, 40, 60},
		{100, 100, 0},
		{100, 5000, 0},
		{0, 1, 0},
	}
	for _, tt := range tests {
		s := loggedIn(t, tt.balance)
		if err := s.Debit(tt.amount); err != nil {
			t.Fatalf("Debit failed: %v", err)
		}
		cur, _ := s.Current()
		if cur.Balance != tt.want {
			t.Errorf("Debit(%d) from %d: expected %d, got %d",
				tt.amount, tt.balance, tt.want, cur.Balance)
		}
	}
}

func TestApplyProfileFields(t *testing.T) {
	s := loggedIn(t, 100)
	bio := "new bio"
	contacts := models.Contacts{Email: "a@b.c"}
	if !s.ApplyProfileFields(models.ProfileFields{Bio: &bio, Contacts: &contacts}) {
		t.Fatal("expected fields to apply")
	}

	cur, _ := s.Current()
	if cur.Bio != "new bio" {
		t.Errorf("bio not merged, got %q", cur.Bio)
	}
	if cur.Contacts.Email != "a@b.c" {
		t.Errorf("contacts not merged, got %+v", cur.Contacts)
	}
	// Untouched fields stay put.
	if cur.Balance != 100 || cur.Username != "alice" {
		t.Errorf("unrelated fields changed: %+v", cur)
	}
}

func TestApplyProfileFields_NoCurrentUser(t *testing.T) {
	s := New()
	bio := "x"
	if s.ApplyProfileFields(models.ProfileFields{Bio: &bio}) {
		t.Error("expected no-op when logged out")
	}
}

func TestMarkApplied_Dedup(t *testing.T) {
	s := New()
	if !s.MarkApplied("ev-1") {
		t.Fatal("first MarkApplied should succeed")
	}
	if s.MarkApplied("ev-1") {
		t.Error("second MarkApplied should report a duplicate")
	}
	if !s.MarkApplied("ev-2") {
		t.Error("a distinct id should succeed")
	}
}

func TestMarkApplied_WindowBounded(t *testing.T) {
	s := New()
	for i := 0; i < appliedWindow+10; i++ {
		s.MarkApplied(fmt.Sprintf("ev-%d", i))
	}
	if len(s.appliedSet) != appliedWindow {
		t.Errorf("expected window of %d ids, got %d", appliedWindow, len(s.appliedSet))
	}
	// The oldest ids fell out of the window and would be re-applied.
	if !s.MarkApplied("ev-0") {
		t.Error("expected evicted id to be accepted again")
	}
}

func TestActivityFeed(t *testing.T) {
	s := New()
	s.AddActivity("first")
	s.AddActivity("second")

	feed := s.Activity()
	if len(feed) != 2 || feed[0] != "second" || feed[1] != "first" {
		t.Errorf("expected newest-first feed, got %v", feed)
	}

	for i := 0; i < feedLimit+20; i++ {
		s.AddActivity("line")
	}
	if got := len(s.Activity()); got != feedLimit {
		t.Errorf("expected feed capped at %d, got %d", feedLimit, got)
	}
}

func TestOnChange(t *testing.T) {
	s := New()
	var seen []int64
	s.OnChange(func(acc models.UserAccount) { seen = append(seen, acc.Balance) })

	acc := models.NewAccount("alice", "pw", "")
	s.SetCurrent(*acc)
	_ = s.Credit(10)
	_ = s.Debit(5)

	want := []int64{500, 510, 505}
	if len(seen) != len(want) {
		t.Fatalf("expected %d notifications, got %d", len(want), len(seen))
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("notification %d: expected balance %d, got %d", i, want[i], seen[i])
		}
	}
}
