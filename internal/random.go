package internal

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
	"strings"
)

const (
	// MinOTPDigits and MaxOTPDigits bound the configurable code length.
	MinOTPDigits = 4
	MaxOTPDigits = 10

	resetTokenRawSize = 48
	resetSecretSize   = 32
)

// ChallengeID identifies one issued challenge. It binds a bearer reset token
// to the exact record that minted it, so a token cannot be replayed against
// a later re-issue for the same account.
type ChallengeID [16]byte

// NewChallengeID returns a random challenge identifier.
func NewChallengeID() (ChallengeID, error) {
	var id ChallengeID
	_, err := rand.Read(id[:])
	return id, err
}

func (id ChallengeID) String() string {
	// base64url, no padding, compact
	return base64.RawURLEncoding.EncodeToString(id[:])
}

// ParseChallengeID decodes the compact string form produced by String.
func ParseChallengeID(challengeID string) (ChallengeID, error) {
	var id ChallengeID

	raw, err := base64.RawURLEncoding.DecodeString(challengeID)
	if err != nil {
		return id, err
	}
	if len(raw) != len(id) {
		return id, errors.New("invalid challenge id size")
	}

	copy(id[:], raw)
	return id, nil
}

// NewOTP returns a uniformly random numeric code of exactly the requested
// number of digits. Leading zeros are preserved: every value in
// [0, 10^digits) is equally likely.
func NewOTP(digits int) (string, error) {
	if digits < MinOTPDigits || digits > MaxOTPDigits {
		return "", errors.New("invalid otp digits")
	}

	var b strings.Builder
	b.Grow(digits)

	max := big.NewInt(10)
	for i := 0; i < digits; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + n.Int64()))
	}

	otp := b.String()
	if len(otp) != digits {
		return "", fmt.Errorf("invalid otp generation length")
	}
	return otp, nil
}

// NewResetSecret returns the random half of a reset bearer token: 32 bytes
// of cryptographically secure randomness.
func NewResetSecret() ([resetSecretSize]byte, error) {
	var secret [resetSecretSize]byte
	_, err := rand.Read(secret[:])
	return secret, err
}

// EncodeResetSecret is the canonical string form of a reset secret, the
// value that gets argon2-hashed and later verified.
func EncodeResetSecret(secret [resetSecretSize]byte) string {
	return base64.RawURLEncoding.EncodeToString(secret[:])
}

// EncodeResetToken packs a challenge id and its secret into the opaque
// bearer string handed to the user: 16 id bytes, 32 secret bytes, base64url
// without padding.
func EncodeResetToken(challengeID string, secret [resetSecretSize]byte) (string, error) {
	id, err := ParseChallengeID(challengeID)
	if err != nil {
		return "", err
	}

	var raw [resetTokenRawSize]byte
	copy(raw[:len(id)], id[:])
	copy(raw[len(id):], secret[:])

	return base64.RawURLEncoding.EncodeToString(raw[:]), nil
}

// DecodeResetToken splits a bearer token back into its challenge id and
// secret. Any malformed input fails; the caller treats that exactly like a
// wrong secret.
func DecodeResetToken(token string) (string, [resetSecretSize]byte, error) {
	var secret [resetSecretSize]byte

	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return "", secret, err
	}
	if len(raw) != resetTokenRawSize {
		return "", secret, errors.New("invalid reset token size")
	}

	var id ChallengeID
	copy(id[:], raw[:len(id)])
	copy(secret[:], raw[len(id):])

	return id.String(), secret, nil
}

// IsNumericString reports whether v consists solely of ASCII digits.
func IsNumericString(v string) bool {
	if v == "" {
		return false
	}
	for i := 0; i < len(v); i++ {
		if v[i] < '0' || v[i] > '9' {
			return false
		}
	}
	return true
}
