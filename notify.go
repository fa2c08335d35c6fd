package authkit

import (
	"context"
	"fmt"
	"time"
)

// otpEmail renders the text and HTML bodies for a challenge code email.
func otpEmail(appName, code string, ttl time.Duration) (string, string) {
	minutes := int(ttl.Minutes())
	if minutes < 1 {
		minutes = 1
	}

	text := fmt.Sprintf(
		"Your %s verification code is %s. It expires in %d minutes.\n\nIf you did not request this code, you can ignore this message.",
		appName, code, minutes,
	)
	html := fmt.Sprintf(
		`<p>Your %s verification code is <strong>%s</strong>.</p><p>It expires in %d minutes.</p><p>If you did not request this code, you can ignore this message.</p>`,
		appName, code, minutes,
	)
	return text, html
}

// sendTimed runs the notifier under the configured delivery timeout. The
// caller treats any error as grounds to roll back the challenge it was
// announcing.
func (e *Engine) sendTimed(ctx context.Context, to, subject, textBody, htmlBody string) error {
	if e.notifier == nil {
		return ErrEngineNotReady
	}

	timeout := e.config.Notify.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	sendCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	return e.notifier.Send(sendCtx, to, subject, textBody, htmlBody)
}
