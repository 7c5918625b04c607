// Package session holds the in-memory ledger state of one client: the
// current user, the duplicate-event window, and the activity feed.
package session

import (
	"errors"
	"sync"

	"github.com/atinyakov/kidcoin/internal/models"
)

var (
	// ErrNoCurrentUser is returned when a mutation needs a logged-in user.
	ErrNoCurrentUser = errors.New("no current user")
	// ErrNonPositiveAmount is returned by Credit for amounts <= 0.
	ErrNonPositiveAmount = errors.New("amount must be positive")
)

const (
	// appliedWindow bounds the set of remembered transfer-event ids.
	appliedWindow = 128
	// feedLimit bounds the in-memory activity feed.
	feedLimit = 100
)

// Session is the ledger state of a single client. All methods are safe
// for concurrent use; the network dispatcher and the UI loop share it.
type Session struct {
	mu sync.Mutex

	current    *models.UserAccount
	applied    []string
	appliedSet map[string]struct{}
	feed       []string

	// onChange, when set, fires after every account mutation. It is the
	// re-render signal; the session itself never renders.
	onChange func(models.UserAccount)
}

func New() *Session {
	return &Session{appliedSet: make(map[string]struct{})}
}

// OnChange registers the re-render callback. Pass nil to clear it.
func (s *Session) OnChange(fn func(models.UserAccount)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = fn
}

// SetCurrent replaces the current user wholesale (login/signup path).
func (s *Session) SetCurrent(acc models.UserAccount) {
	s.mu.Lock()
	s.current = &acc
	fn, cur := s.onChange, acc
	s.mu.Unlock()
	if fn != nil {
		fn(cur)
	}
}

// Current returns a copy of the current user, if any.
func (s *Session) Current() (models.UserAccount, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return models.UserAccount{}, false
	}
	return *s.current, true
}

// ApplyProfileFields shallow-merges the non-nil fields into the current
// user. It is a no-op when nobody is logged in.
func (s *Session) ApplyProfileFields(f models.ProfileFields) bool {
	s.mu.Lock()
	if s.current == nil {
		s.mu.Unlock()
		return false
	}
	if f.Avatar != nil {
		s.current.Avatar = *f.Avatar
	}
	if f.Bio != nil {
		s.current.Bio = *f.Bio
	}
	if f.Contacts != nil {
		s.current.Contacts = *f.Contacts
	}
	if f.Settings != nil {
		s.current.Settings = *f.Settings
	}
	fn, cur := s.onChange, *s.current
	s.mu.Unlock()
	if fn != nil {
		fn(cur)
	}
	return true
}

// Credit adds amount to the balance. Amounts <= 0 are rejected.
func (s *Session) Credit(amount int64) error {
	s.mu.Lock()
	if s.current == nil {
		s.mu.Unlock()
		return ErrNoCurrentUser
	}
	if amount <= 0 {
		s.mu.Unlock()
		return ErrNonPositiveAmount
	}
	s.current.Balance += amount
	fn, cur := s.onChange, *s.current
	s.mu.Unlock()
	if fn != nil {
		fn(cur)
	}
	return nil
}

// Debit subtracts amount from the balance, flooring the result at zero.
// The clamp is a tolerance policy for inbound events the client cannot
// validate against a remote source of truth.
func (s *Session) Debit(amount int64) error {
	s.mu.Lock()
	if s.current == nil {
		s.mu.Unlock()
		return ErrNoCurrentUser
	}
	s.current.Balance -= amount
	if s.current.Balance < 0 {
		s.current.Balance = 0
	}
	fn, cur := s.onChange, *s.current
	s.mu.Unlock()
	if fn != nil {
		fn(cur)
	}
	return nil
}

// MarkApplied records a transfer-event id. It returns false when the id
// was already recorded, which means the event is a duplicate delivery
// and must not be applied again. The window is bounded; ids older than
// the window are forgotten.
func (s *Session) MarkApplied(id string) bool {
	if id == "" {
		return true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.appliedSet[id]; ok {
		return false
	}
	s.appliedSet[id] = struct{}{}
	s.applied = append(s.applied, id)
	if len(s.applied) > appliedWindow {
		oldest := s.applied[0]
		s.applied = s.applied[1:]
		delete(s.appliedSet, oldest)
	}
	return true
}

// AddActivity prepends a line to the bounded activity feed.
func (s *Session) AddActivity(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.feed = append([]string{text}, s.feed...)
	if len(s.feed) > feedLimit {
		s.feed = s.feed[:feedLimit]
	}
}

// Activity returns a copy of the feed, newest first.
func (s *Session) Activity() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.feed))
	copy(out, s.feed)
	return out
}
