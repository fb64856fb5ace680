// Package errors defines the domain error taxonomy shared by services and
// HTTP handlers. Expected failures are *DomainError values; anything else is
// reported to clients as INTERNAL.
package errors

import (
	stderrors "errors"
	"net/http"
)

// Kind groups error codes into broad classes.
type Kind string

const (
	KindUnauthenticated     Kind = "unauthenticated"
	KindForbidden           Kind = "forbidden"
	KindNotFound            Kind = "not_found"
	KindInvalidInput        Kind = "invalid_input"
	KindConflict            Kind = "conflict"
	KindRateLimited         Kind = "rate_limited"
	KindInsufficientCredits Kind = "insufficient_credits"
	KindUpstream            Kind = "upstream_failure"
	KindInternal            Kind = "internal"
)

type DomainError struct {
	Kind    Kind
	Code    string
	Message string
	// Detail carries provider or validation text for the caller.
	Detail string
	Status int
}

func (e *DomainError) Error() string {
	if e.Detail != "" {
		return e.Message + ": " + e.Detail
	}
	return e.Message
}

// Is matches any DomainError with the same code, so copies made by
// WithDetail still satisfy errors.Is against the sentinel.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithDetail returns a copy of e carrying detail.
func (e *DomainError) WithDetail(detail string) *DomainError {
	cp := *e
	cp.Detail = detail
	return &cp
}

// WithMessage returns a copy of e with a different message.
func (e *DomainError) WithMessage(msg string) *DomainError {
	cp := *e
	cp.Message = msg
	return &cp
}

// As extracts a *DomainError from err's chain.
func As(err error) (*DomainError, bool) {
	var de *DomainError
	if stderrors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// Is is errors.Is, re-exported so callers need only this package.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// New is errors.New, re-exported for the same reason.
func New(text string) error {
	return stderrors.New(text)
}

func newError(kind Kind, status int, code, msg string) *DomainError {
	return &DomainError{Kind: kind, Code: code, Message: msg, Status: status}
}

var (
	ErrUnauthenticated = newError(KindUnauthenticated, http.StatusUnauthorized,
		"UNAUTHENTICATED", "Invalid or missing API key")
	ErrKeyDisabled = newError(KindUnauthenticated, http.StatusUnauthorized,
		"KEY_DISABLED", "API key is disabled")
	ErrInvalidSession = newError(KindUnauthenticated, http.StatusUnauthorized,
		"UNAUTHENTICATED", "Unauthorized")
	ErrInvalidCredentials = newError(KindUnauthenticated, http.StatusUnauthorized,
		"INVALID_CREDENTIALS", "Invalid email or password")

	ErrForbidden = newError(KindForbidden, http.StatusForbidden,
		"FORBIDDEN", "Unauthorized access to this resource")
	ErrRegistrationClosed = newError(KindForbidden, http.StatusForbidden,
		"REGISTRATION_CLOSED", "Registration is currently limited to waitlist members")

	ErrIntentNotFound = newError(KindNotFound, http.StatusNotFound,
		"INTENT_NOT_FOUND", "Payment intent not found")
	ErrKeyNotFound = newError(KindNotFound, http.StatusNotFound,
		"API_KEY_NOT_FOUND", "API key not found")
	ErrDeliveryNotFound = newError(KindNotFound, http.StatusNotFound,
		"DELIVERY_NOT_FOUND", "Webhook delivery not found")
	ErrUserNotFound = newError(KindNotFound, http.StatusNotFound,
		"USER_NOT_FOUND", "User not found")

	ErrInvalidAmount = newError(KindInvalidInput, http.StatusBadRequest,
		"INVALID_AMOUNT", "Amount must be greater than 0")
	ErrMissingTransactionID = newError(KindInvalidInput, http.StatusBadRequest,
		"MISSING_TRANSACTION_ID", "Transaction ID is required")
	ErrInvalidInput = newError(KindInvalidInput, http.StatusBadRequest,
		"INVALID_INPUT", "Invalid request")
	ErrInvalidBankAccount = newError(KindInvalidInput, http.StatusBadRequest,
		"INVALID_BANK_ACCOUNT", "Invalid bank account number format")

	ErrDuplicateTransaction = newError(KindConflict, http.StatusBadRequest,
		"DUPLICATE_TRANSACTION", "This transaction has already been used for another payment")
	ErrIntentNotPending = newError(KindConflict, http.StatusBadRequest,
		"INTENT_NOT_PENDING", "Payment intent is not in pending status")
	ErrIntentExpired = newError(KindConflict, http.StatusBadRequest,
		"INTENT_EXPIRED", "Payment intent has expired")
	ErrBankNotConfigured = newError(KindConflict, http.StatusBadRequest,
		"BANK_NOT_CONFIGURED", "Merchant bank details not configured")
	ErrVerificationFailed = newError(KindConflict, http.StatusBadRequest,
		"VERIFICATION_FAILED", "Payment verification failed")
	ErrKeyExists = newError(KindConflict, http.StatusConflict,
		"API_KEY_EXISTS", "You can only have one API key")
	ErrEmailTaken = newError(KindConflict, http.StatusConflict,
		"EMAIL_TAKEN", "Email already registered")
	ErrDeliverySucceeded = newError(KindConflict, http.StatusBadRequest,
		"DELIVERY_SUCCEEDED", "Cannot retry a successful delivery")
	ErrWebhookNotConfigured = newError(KindConflict, http.StatusBadRequest,
		"WEBHOOK_NOT_CONFIGURED", "Webhook is not configured")
	ErrIdempotencyInProgress = newError(KindConflict, http.StatusConflict,
		"IDEMPOTENCY_IN_PROGRESS", "A request with this Idempotency-Key is still being processed")

	ErrRateLimited = newError(KindRateLimited, http.StatusTooManyRequests,
		"RATE_LIMITED", "Rate limit exceeded")
	ErrInsufficientCredits = newError(KindInsufficientCredits, http.StatusPaymentRequired,
		"INSUFFICIENT_CREDITS", "Insufficient credits")

	ErrVerificationUnavailable = newError(KindUpstream, http.StatusBadGateway,
		"VERIFICATION_UNAVAILABLE", "Payment verification service unavailable")
	ErrWebhookUnreachable = newError(KindUpstream, http.StatusBadGateway,
		"WEBHOOK_UNREACHABLE", "Webhook endpoint did not accept the delivery")

	ErrInternal = newError(KindInternal, http.StatusInternalServerError,
		"INTERNAL", "Internal server error")
)
