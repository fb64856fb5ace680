package repositories

import "errors"

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrEmailTaken       = errors.New("email already taken")
	ErrAPIKeyNotFound   = errors.New("api key not found")
	ErrIntentNotFound   = errors.New("intent not found")
	ErrPaymentNotFound  = errors.New("payment not found")
	ErrSettingsNotFound = errors.New("settings not found")
	ErrDeliveryNotFound = errors.New("delivery not found")
	ErrKeyLimitReached  = errors.New("api key limit reached")

	// ErrIntentNotPending means the conditional status update matched no row:
	// the intent left pending, expired, or lost a concurrent submission.
	ErrIntentNotPending = errors.New("intent is not pending")
	// ErrCreditsExhausted means the key was disabled or drained between
	// admission and commit.
	ErrCreditsExhausted = errors.New("api key has no remaining credits")
	// ErrDuplicateTransaction means another completed payment already holds
	// the transaction id.
	ErrDuplicateTransaction = errors.New("transaction id already used")
)
