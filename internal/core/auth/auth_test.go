package auth

import (
	"encoding/hex"
	"errors"
	"testing"
	"time"
)

const testKeyID = "0123456789abcdef0123456789abcdef"

var testSecret = []byte("testsecret1234567890abcdefghijklmnop")

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestSignVerifyRoundTrip(t *testing.T) {
	now := time.Unix(1_800_000_000, 0)
	signer := &Signer{KeyID: testKeyID, Secret: testSecret, Now: fixedClock(now)}
	a := NewAuthenticator(map[string][]byte{testKeyID: testSecret})
	a.now = fixedClock(now.Add(30 * time.Second))

	body := []byte(`{"id":"root","combinator":"AND","rules":[]}`)
	sig := signer.Sign("post", "/api/v1/query", body)

	h := sig.Headers()
	parsed, err := ParseSignature(h[HeaderKeyID], h[HeaderTimestamp], h[HeaderSignature])
	if err != nil {
		t.Fatalf("ParseSignature failed: %v", err)
	}
	if err := a.Verify(parsed, "POST", "/api/v1/query", body); err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
}

func TestVerify_Failures(t *testing.T) {
	now := time.Unix(1_800_000_000, 0)
	signer := &Signer{KeyID: testKeyID, Secret: testSecret, Now: fixedClock(now)}
	body := []byte(`{"rules":[]}`)
	sig := signer.Sign("POST", "/save-data", body)

	tests := []struct {
		name    string
		sig     Signature
		path    string
		body    []byte
		clock   time.Time
		wantErr error
	}{
		{"tampered body", sig, "/save-data", []byte(`{"rules":[{}]}`), now, ErrInvalidSignature},
		{"different path", sig, "/api/v1/query", body, now, ErrInvalidSignature},
		{"unknown key", Signature{KeyID: "fedcba9876543210fedcba9876543210", Timestamp: sig.Timestamp, MAC: sig.MAC}, "/save-data", body, now, ErrUnknownKey},
		{"stale", sig, "/save-data", body, now.Add(MaxClockSkew + time.Second), ErrStaleTimestamp},
		{"future", sig, "/save-data", body, now.Add(-MaxClockSkew - time.Second), ErrStaleTimestamp},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewAuthenticator(map[string][]byte{testKeyID: testSecret})
			a.now = fixedClock(tt.clock)
			if err := a.Verify(tt.sig, "POST", tt.path, tt.body); !errors.Is(err, tt.wantErr) {
				t.Errorf("got %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseSignature(t *testing.T) {
	validMAC := hex.EncodeToString(make([]byte, 32))

	tests := []struct {
		name                 string
		keyID, ts, signature string
		wantErr              error
	}{
		{"valid", testKeyID, "1800000000", validMAC, nil},
		{"all missing", "", "", "", ErrMissingSignature},
		{"short key id", "abc", "1800000000", validMAC, ErrInvalidFormat},
		{"uppercase key id", "0123456789ABCDEF0123456789abcdef", "1800000000", validMAC, ErrInvalidFormat},
		{"bad timestamp", testKeyID, "yesterday", validMAC, ErrInvalidFormat},
		{"short mac", testKeyID, "1800000000", "abcd", ErrInvalidFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSignature(tt.keyID, tt.ts, tt.signature)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("got %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestEnabled(t *testing.T) {
	var nilAuth *Authenticator
	if nilAuth.Enabled() {
		t.Error("nil authenticator should be disabled")
	}
	if NewAuthenticator(nil).Enabled() {
		t.Error("authenticator without secrets should be disabled")
	}
	if !NewAuthenticator(map[string][]byte{testKeyID: testSecret}).Enabled() {
		t.Error("authenticator with secrets should be enabled")
	}
}

func TestCanonicalPayload(t *testing.T) {
	got := string(CanonicalPayload(42, "post", "/save-data", []byte("{}")))
	want := "42\nPOST\n/save-data\n{}"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
