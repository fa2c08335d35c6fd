package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type fakeVerifier struct {
	accountID string
	err       error
	gotToken  string
}

func (f *fakeVerifier) VerifySession(_ context.Context, token string) (string, error) {
	f.gotToken = token
	if f.err != nil {
		return "", f.err
	}
	return f.accountID, nil
}

func protected(t *testing.T, wantID string) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := AccountIDFromContext(r.Context())
		if !ok {
			t.Error("account id missing from context")
		}
		if id != wantID {
			t.Errorf("account id = %q, want %q", id, wantID)
		}
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestRequireSessionAcceptsValidToken(t *testing.T) {
	verifier := &fakeVerifier{accountID: "acct-1"}
	handler := RequireSession(verifier)(protected(t, "acct-1"))

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if verifier.gotToken != "good-token" {
		t.Fatalf("verifier saw token %q", verifier.gotToken)
	}
}

func TestRequireSessionRejections(t *testing.T) {
	cases := []struct {
		name   string
		header string
		err    error
	}{
		{"missing header", "", nil},
		{"wrong scheme", "Basic abc123", nil},
		{"empty token", "Bearer ", nil},
		{"verifier failure", "Bearer bad-token", errors.New("invalid session token")},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			verifier := &fakeVerifier{accountID: "acct-1", err: tc.err}
			handler := RequireSession(verifier)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
				t.Error("handler reached despite rejection")
			}))

			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("status = %d, want 401", rec.Code)
			}
		})
	}
}

func TestRequireSessionNilVerifier(t *testing.T) {
	handler := RequireSession(nil)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Error("handler reached with nil verifier")
	}))

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}
