package core

import "errors"

// Container errors. Key file failures abort an extraction; slot
// failures are recorded on the slot.
var (
	ErrKeyFileNotFound    = errors.New("key file not found")
	ErrInvalidSalt        = errors.New("invalid salt length")
	ErrInvalidLocalKey    = errors.New("invalid local key")
	ErrWrongPasscode      = errors.New("wrong passcode")
	ErrUnsupportedFormat  = errors.New("unsupported user auth format")
	ErrUnsupportedDC      = errors.New("unsupported data center")
	ErrInvalidAuthConfig  = errors.New("invalid user auth config")
	ErrNoAccounts         = errors.New("no accounts")
	ErrInvalidActiveIndex = errors.New("active index out of range")
	ErrInvalidContainer   = errors.New("not a valid tdata directory")
)

// Credential store errors
var (
	ErrStoreNotInitialized = errors.New("credential store not initialized")
	ErrStoreExists         = errors.New("credential store already exists")
	ErrWrongPassword       = errors.New("wrong password")
)
