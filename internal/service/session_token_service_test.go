package service

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/qcom/otpd/internal/config"
)

const testSessionSecret = "0123456789abcdef0123456789abcdef"

func newTestSessionTokenService(t *testing.T, lifetime time.Duration) *SessionTokenService {
	t.Helper()
	svc, err := NewSessionTokenService(&config.SessionConfig{
		SecretKey: testSessionSecret,
		Lifetime:  lifetime,
	}, quietLogger())
	if err != nil {
		t.Fatalf("NewSessionTokenService failed: %v", err)
	}
	return svc
}

func TestSessionTokenRoundTrip(t *testing.T) {
	svc := newTestSessionTokenService(t, time.Hour)

	token, sessionID, err := svc.Issue()
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	claims, err := svc.Verify(token)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if claims.SessionID != sessionID {
		t.Errorf("expected session id %q, got %q", sessionID, claims.SessionID)
	}

	_, otherID, _ := svc.Issue()
	if otherID == sessionID {
		t.Error("expected distinct session ids")
	}
}

func TestSessionTokenRejected(t *testing.T) {
	svc := newTestSessionTokenService(t, time.Hour)
	token, _, _ := svc.Issue()

	other, err := NewSessionTokenService(&config.SessionConfig{
		SecretKey: "ffffffffffffffffffffffffffffffff",
		Lifetime:  time.Hour,
	}, quietLogger())
	if err != nil {
		t.Fatalf("NewSessionTokenService failed: %v", err)
	}

	expired := newTestSessionTokenService(t, -time.Minute)
	expiredToken, _, _ := expired.Issue()

	none := jwt.NewWithClaims(jwt.SigningMethodNone, &SessionClaims{SessionID: "x"})
	noneToken, _ := none.SignedString(jwt.UnsafeAllowNoneSignatureType)

	tests := []struct {
		name  string
		svc   *SessionTokenService
		token string
	}{
		{"garbage", svc, "not-a-token"},
		{"wrong key", other, token},
		{"expired", svc, expiredToken},
		{"unsigned", svc, noneToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.svc.Verify(tt.token); !errors.Is(err, ErrInvalidSessionToken) {
				t.Errorf("expected ErrInvalidSessionToken, got %v", err)
			}
		})
	}
}

func TestSessionTokenShortSecret(t *testing.T) {
	_, err := NewSessionTokenService(&config.SessionConfig{SecretKey: "short", Lifetime: time.Hour}, quietLogger())
	if err == nil {
		t.Error("expected error for short secret")
	}
}
