package authkit

import (
	"context"

	"github.com/parley-chat/authkit/accounts"
)

// Account is re-exported so integrators do not need the accounts package for
// the common read path.
type Account = accounts.Account

// LoginResult is returned by [Engine.Login]. OTPRequired is always true on
// success: a password match never yields a session directly, it opens the
// emailed-OTP step. MaskedTarget is the obfuscated delivery address shown to
// the user ("a**@example.com").
type LoginResult struct {
	OTPRequired  bool
	MaskedTarget string
}

// ResetRequestResult is returned by [Engine.RequestPasswordReset]. The shape
// is identical whether or not the email maps to an account; MaskedTarget is
// derived from the submitted address, so an unknown email produces an
// indistinguishable response.
type ResetRequestResult struct {
	MaskedTarget string
}

// Notifier delivers a challenge secret to the user out-of-band. authkit
// treats delivery as part of issuance: when Send fails or times out, the
// just-created challenge is rolled back and the caller sees
// [ErrDeliveryFailed].
//
// Implementations are constructed by the integrator and injected through
// [Builder.WithNotifier]; authkit never caches or lazily initializes a
// transport of its own.
type Notifier interface {
	Send(ctx context.Context, to, subject, textBody, htmlBody string) error
}

// NotifierFunc adapts a plain function to the [Notifier] interface.
type NotifierFunc func(ctx context.Context, to, subject, textBody, htmlBody string) error

// Send describes the send operation and its observable behavior.
//
// Send may return an error when input validation, dependency calls, or security checks fail.
// Send does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (f NotifierFunc) Send(ctx context.Context, to, subject, textBody, htmlBody string) error {
	return f(ctx, to, subject, textBody, htmlBody)
}
