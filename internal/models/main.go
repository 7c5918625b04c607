// Package models defines the core data structures for accounts, sync
// events, and the relay wire protocol.
package models

import (
	"encoding/json"
	"time"
)

// InitialBalance is the KidCoin balance granted to every freshly
// created account.
const InitialBalance int64 = 500

// Channel names on the messaging relay. Each channel carries exactly
// one event type.
const (
	// ChannelProfiles carries ProfileUpdateEvent messages.
	ChannelProfiles = "kidcoin:profiles"
	// ChannelTransactions carries TransferEvent messages.
	ChannelTransactions = "kidcoin:transactions"
	// ChannelActivity carries ActivityEvent messages.
	ChannelActivity = "kidcoin:activity"
)

// Event names used on the channels.
const (
	// EventProfileUpdate tags profile updates on ChannelProfiles.
	EventProfileUpdate = "profile:update"
	// EventTransfer tags coin movements on ChannelTransactions.
	EventTransfer = "transfer"
	// EventLog tags human-readable log lines on ChannelActivity.
	EventLog = "log"
)

// Channels returns the fixed set of channel names a client subscribes to.
func Channels() []string {
	return []string{ChannelProfiles, ChannelTransactions, ChannelActivity}
}

// Theme identifiers accepted in Settings.Theme.
const (
	ThemeDark  = "dark"
	ThemeLight = "light"
	ThemeMint  = "mint"
)

// ValidTheme reports whether theme names one of the known themes.
func ValidTheme(theme string) bool {
	switch theme {
	case ThemeDark, ThemeLight, ThemeMint:
		return true
	}
	return false
}

// Contacts holds the optional contact details of an account.
type Contacts struct {
	// Email is the contact email address, may be empty.
	Email string `json:"email"`
	// Phone is the contact phone number, may be empty.
	Phone string `json:"phone"`
}

// Settings holds per-account presentation preferences.
type Settings struct {
	// Theme is one of the Theme* constants.
	Theme string `json:"theme"`
	// ShowEmail controls whether the email is visible to peers.
	ShowEmail bool `json:"showEmail"`
	// ShowPhone controls whether the phone is visible to peers.
	ShowPhone bool `json:"showPhone"`
	// Sound toggles the transfer sound effect.
	Sound bool `json:"sound"`
}

// DefaultSettings returns the settings a new account starts with.
func DefaultSettings() Settings {
	return Settings{Theme: ThemeDark, ShowEmail: false, ShowPhone: false, Sound: true}
}

// UserAccount is the single per-device account record. The password is
// stored and compared verbatim; it is not a security boundary.
type UserAccount struct {
	// Username is the identity key across the sync channels.
	Username string `json:"username"`
	// Password is the plaintext password chosen at bootstrap.
	Password string `json:"password"`
	// Avatar is empty, a remote URL, or an inline image payload.
	Avatar string `json:"avatar"`
	// Balance is the KidCoin balance; never negative.
	Balance int64 `json:"balance"`
	// Bio is an optional free-text description.
	Bio string `json:"bio"`
	// Contacts holds the optional contact details.
	Contacts Contacts `json:"contacts"`
	// Settings holds the presentation preferences.
	Settings Settings `json:"settings"`
}

// NewAccount creates a fresh account with the initial balance and
// default settings.
func NewAccount(username, password, avatar string) *UserAccount {
	return &UserAccount{
		Username: username,
		Password: password,
		Avatar:   avatar,
		Balance:  InitialBalance,
		Contacts: Contacts{},
		Settings: DefaultSettings(),
	}
}

// TransferEvent describes one coin movement. ID is assigned by the
// sender at publish time so receivers can drop duplicate deliveries.
type TransferEvent struct {
	ID     string `json:"id"`
	From   string `json:"from"`
	To     string `json:"to"`
	Amount int64  `json:"amount"`
}

// ProfileFields is the partial account payload of a ProfileUpdateEvent.
// Nil fields are left untouched when merged into a local account.
type ProfileFields struct {
	Avatar   *string   `json:"avatar,omitempty"`
	Bio      *string   `json:"bio,omitempty"`
	Contacts *Contacts `json:"contacts,omitempty"`
	Settings *Settings `json:"settings,omitempty"`
}

// ProfileUpdateEvent announces a profile change; only the client whose
// current user matches Username applies it.
type ProfileUpdateEvent struct {
	Username string        `json:"username"`
	Profile  ProfileFields `json:"profile"`
}

// ProfileFieldsOf extracts the shareable profile fields of an account.
func ProfileFieldsOf(acc UserAccount) ProfileFields {
	contacts := acc.Contacts
	settings := acc.Settings
	return ProfileFields{
		Avatar:   &acc.Avatar,
		Bio:      &acc.Bio,
		Contacts: &contacts,
		Settings: &settings,
	}
}

// ActivityEvent is one human-readable activity log line.
type ActivityEvent struct {
	Text string `json:"text"`
}

// ActivityRecord is an activity line retained by the relay.
type ActivityRecord struct {
	ID        int64     `json:"id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// Credential is the short-lived token issued by the relay. It grants
// publish and subscribe on exactly the three fixed channels.
type Credential struct {
	// Token is the signed bearer token presented on websocket connect.
	Token string `json:"token"`
	// Expires is the expiry time as a Unix timestamp in seconds.
	Expires int64 `json:"expires"`
}

// Frame types exchanged between client and relay.
const (
	// FramePublish asks the relay to fan a message out (client → relay).
	FramePublish = "publish"
	// FrameSubscribe registers interest in a channel (client → relay).
	FrameSubscribe = "subscribe"
	// FrameMessage delivers a published message (relay → client).
	FrameMessage = "message"
	// FramePing and FramePong keep the connection alive.
	FramePing = "ping"
	FramePong = "pong"
	// FrameError reports a protocol-level problem (relay → client).
	FrameError = "error"
)

// Frame is the envelope for every websocket message between a client
// and the relay.
type Frame struct {
	Type    string          `json:"type"`
	Channel string          `json:"channel,omitempty"`
	Name    string          `json:"name,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// NewMessageFrame builds a delivery frame for a published payload.
func NewMessageFrame(channel, name string, data json.RawMessage) Frame {
	return Frame{Type: FrameMessage, Channel: channel, Name: name, Data: data}
}
