package authkit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/parley-chat/authkit/internal/stores"
)

// ChallengeStatus is a redacted view of one pending challenge, intended for
// support tooling and debugging endpoints. It never carries the code or
// token digest.
type ChallengeStatus struct {
	Kind         string    `json:"kind"`
	MaskedTarget string    `json:"masked_target"`
	Attempts     int       `json:"attempts"`
	RequestedAt  time.Time `json:"requested_at"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// PendingChallenges reports the live challenges for an account across all
// flows. Expired records are purged as a side effect of the lookup, so the
// result only contains challenges a correct secret could still satisfy.
func (e *Engine) PendingChallenges(ctx context.Context, accountID string) ([]ChallengeStatus, error) {
	if e.challenges == nil {
		return nil, ErrEngineNotReady
	}

	var out []ChallengeStatus
	for _, kind := range []stores.Kind{stores.KindLoginOTP, stores.KindResetOTP, stores.KindResetToken} {
		record, err := e.challenges.Get(ctx, kind, accountID)
		if err != nil {
			if errors.Is(err, stores.ErrChallengeNotFound) || errors.Is(err, stores.ErrChallengeExpired) {
				continue
			}
			return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
		}
		out = append(out, ChallengeStatus{
			Kind:         challengeKindLabel(kind),
			MaskedTarget: maskEmail(record.Target),
			Attempts:     int(record.Attempts),
			RequestedAt:  time.Unix(record.RequestedAt, 0).UTC(),
			ExpiresAt:    time.Unix(record.ExpiresAt, 0).UTC(),
		})
	}
	return out, nil
}
