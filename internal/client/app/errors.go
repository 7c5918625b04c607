package app

import "fmt"

// ValidationError marks invalid user input. The operation that returned
// it made no state change.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// Validation failures an operation can return. Compared by identity
// with errors.Is.
var (
	ErrUsernameRequired  = &ValidationError{Reason: "username is required"}
	ErrPasswordRequired  = &ValidationError{Reason: "password is required"}
	ErrPasswordMismatch  = &ValidationError{Reason: "wrong password for this device's account"}
	ErrNotLoggedIn       = &ValidationError{Reason: "please log in first"}
	ErrRecipientRequired = &ValidationError{Reason: "recipient is required"}
	ErrAmountNotPositive = &ValidationError{Reason: "amount must be a positive number"}
	ErrSelfTransfer      = &ValidationError{Reason: "you cannot send to yourself"}
	ErrInsufficientFunds = &ValidationError{Reason: "not enough KidCoin"}
	ErrUnknownTheme      = &ValidationError{Reason: "unknown theme"}
)

// PersistenceError marks a failed store write. The operation that
// returned it was aborted before the session was mutated.
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string { return fmt.Sprintf("persist account: %v", e.Err) }

func (e *PersistenceError) Unwrap() error { return e.Err }
