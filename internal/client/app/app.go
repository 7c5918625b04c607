// Package app implements the account and transfer operations of the
// KidCoin client: validate input, mutate the session, persist, and
// broadcast the change when a publisher is connected.
package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/atinyakov/kidcoin/internal/client/session"
	"github.com/atinyakov/kidcoin/internal/models"
)

// Store is the persistence contract the operations need.
type Store interface {
	// Save durably overwrites the single persisted record.
	Save(acc *models.UserAccount) error
	// Load returns the last saved record, or absent.
	Load() (*models.UserAccount, bool)
}

// Publisher broadcasts events to the sync channels. Publishing is
// best-effort; failures are logged, never retried, and never roll back
// the local state.
type Publisher interface {
	Publish(ctx context.Context, channel, name string, payload any) error
}

// App wires the session, the profile store, and the publisher into the
// state-changing operations.
type App struct {
	store   Store
	session *session.Session
	pub     Publisher
	log     *zap.Logger
}

// New constructs an App. pub may be a no-op publisher for the offline
// variant but must not be nil.
func New(store Store, sess *session.Session, pub Publisher, log *zap.Logger) *App {
	return &App{store: store, session: sess, pub: pub, log: log}
}

// Session exposes the ledger state for read access and event dispatch.
func (a *App) Session() *session.Session {
	return a.session
}

// CreateOrLogin adopts the persisted account when username and password
// match it, rejects a wrong password for an existing username, and
// otherwise bootstraps a fresh account with the initial balance. The
// fresh-account path is what makes the same username denote different
// accounts on different devices; that divergence is intentional.
func (a *App) CreateOrLogin(ctx context.Context, username, password, avatar string) (models.UserAccount, error) {
	username = strings.TrimSpace(username)
	password = strings.TrimSpace(password)
	if username == "" {
		return models.UserAccount{}, ErrUsernameRequired
	}
	if password == "" {
		return models.UserAccount{}, ErrPasswordRequired
	}

	if saved, ok := a.store.Load(); ok && saved.Username == username {
		if saved.Password != password {
			// Fail closed: a record under this username already exists
			// on this device.
			return models.UserAccount{}, ErrPasswordMismatch
		}
		a.session.SetCurrent(*saved)
		a.publishProfile(ctx, *saved)
		return *saved, nil
	}

	acc := models.NewAccount(username, password, strings.TrimSpace(avatar))
	if err := a.store.Save(acc); err != nil {
		return models.UserAccount{}, &PersistenceError{Err: err}
	}
	a.session.SetCurrent(*acc)
	a.publishProfile(ctx, *acc)
	return *acc, nil
}

// Transfer debits amount from the current user and broadcasts the
// movement. The debit is optimistic: it is applied and persisted before
// any delivery outcome is known, and there is no rollback if the
// publish fails.
func (a *App) Transfer(ctx context.Context, to string, amount int64) error {
	cur, ok := a.session.Current()
	if !ok {
		return ErrNotLoggedIn
	}
	to = strings.TrimSpace(to)
	if to == "" {
		return ErrRecipientRequired
	}
	if amount <= 0 {
		return ErrAmountNotPositive
	}
	if to == cur.Username {
		return ErrSelfTransfer
	}
	if cur.Balance < amount {
		return ErrInsufficientFunds
	}

	ev := models.TransferEvent{
		ID:     uuid.NewString(),
		From:   cur.Username,
		To:     to,
		Amount: amount,
	}

	next := cur
	next.Balance -= amount
	if err := a.store.Save(&next); err != nil {
		return &PersistenceError{Err: err}
	}
	a.session.SetCurrent(next)
	// Remember our own event id so the echoed broadcast is dropped.
	a.session.MarkApplied(ev.ID)

	text := fmt.Sprintf("%s sent %d KC to %s", cur.Username, amount, to)
	a.session.AddActivity(text)

	a.publish(ctx, models.ChannelTransactions, models.EventTransfer, ev)
	a.publish(ctx, models.ChannelActivity, models.EventLog, models.ActivityEvent{Text: text})
	return nil
}

// UpdateProfile replaces bio and contacts and, when avatar is non-empty,
// the avatar. The change is persisted before it is committed.
func (a *App) UpdateProfile(ctx context.Context, bio, email, phone, avatar string) error {
	cur, ok := a.session.Current()
	if !ok {
		return ErrNotLoggedIn
	}

	next := cur
	next.Bio = strings.TrimSpace(bio)
	next.Contacts.Email = strings.TrimSpace(email)
	next.Contacts.Phone = strings.TrimSpace(phone)
	if avatar = strings.TrimSpace(avatar); avatar != "" {
		next.Avatar = avatar
	}

	if err := a.store.Save(&next); err != nil {
		return &PersistenceError{Err: err}
	}
	a.session.SetCurrent(next)
	a.publishProfile(ctx, next)
	return nil
}

// UpdateSettings replaces the settings wholesale.
func (a *App) UpdateSettings(ctx context.Context, st models.Settings) error {
	cur, ok := a.session.Current()
	if !ok {
		return ErrNotLoggedIn
	}
	if !models.ValidTheme(st.Theme) {
		return ErrUnknownTheme
	}

	next := cur
	next.Settings = st
	if err := a.store.Save(&next); err != nil {
		return &PersistenceError{Err: err}
	}
	a.session.SetCurrent(next)
	a.publishProfile(ctx, next)
	return nil
}

// HandleTransfer applies an inbound transfer event. Duplicate ids are
// dropped; a debit the balance cannot cover is clamped at zero.
func (a *App) HandleTransfer(ev models.TransferEvent) {
	if !a.session.MarkApplied(ev.ID) {
		return
	}
	cur, ok := a.session.Current()
	if !ok {
		return
	}

	switch cur.Username {
	case ev.From:
		if err := a.session.Debit(ev.Amount); err == nil {
			a.persistCurrent()
		}
	case ev.To:
		if err := a.session.Credit(ev.Amount); err != nil {
			a.log.Warn("ignoring transfer credit", zap.String("id", ev.ID), zap.Error(err))
		} else {
			a.persistCurrent()
		}
	}

	a.session.AddActivity(fmt.Sprintf("%s sent %d KC to %s", ev.From, ev.Amount, ev.To))
}

// HandleProfileUpdate merges an inbound profile update addressed to the
// current user; updates for anyone else are ignored.
func (a *App) HandleProfileUpdate(ev models.ProfileUpdateEvent) {
	cur, ok := a.session.Current()
	if !ok || cur.Username != ev.Username {
		return
	}
	if a.session.ApplyProfileFields(ev.Profile) {
		a.persistCurrent()
	}
}

// HandleLog appends an inbound activity line to the feed.
func (a *App) HandleLog(ev models.ActivityEvent) {
	a.session.AddActivity(ev.Text)
}

func (a *App) persistCurrent() {
	cur, ok := a.session.Current()
	if !ok {
		return
	}
	if err := a.store.Save(&cur); err != nil {
		a.log.Error("persist after inbound event", zap.Error(err))
	}
}

func (a *App) publishProfile(ctx context.Context, acc models.UserAccount) {
	a.publish(ctx, models.ChannelProfiles, models.EventProfileUpdate, models.ProfileUpdateEvent{
		Username: acc.Username,
		Profile:  models.ProfileFieldsOf(acc),
	})
	a.publish(ctx, models.ChannelActivity, models.EventLog, models.ActivityEvent{
		Text: fmt.Sprintf("%s updated their profile.", acc.Username),
	})
}

func (a *App) publish(ctx context.Context, channel, name string, payload any) {
	if err := a.pub.Publish(ctx, channel, name, payload); err != nil {
		a.log.Warn("publish failed",
			zap.String("channel", channel),
			zap.String("event", name),
			zap.Error(err),
		)
	}
}
