package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"
)

// Header and metadata names carrying a request signature. gRPC metadata
// keys are the lowercase forms.
const (
	HeaderKeyID     = "X-QK-Key-Id"
	HeaderTimestamp = "X-QK-Timestamp"
	HeaderSignature = "X-QK-Signature"
)

// MaxClockSkew bounds how far a signed timestamp may drift from server time.
const MaxClockSkew = 5 * time.Minute

// Signature is the parsed form of the three signature headers.
type Signature struct {
	KeyID     string
	Timestamp int64 // unix seconds
	MAC       []byte
}

// Headers renders s for transport.
func (s Signature) Headers() map[string]string {
	return map[string]string{
		HeaderKeyID:     s.KeyID,
		HeaderTimestamp: strconv.FormatInt(s.Timestamp, 10),
		HeaderSignature: hex.EncodeToString(s.MAC),
	}
}

// ParseSignature validates raw header values.
// Returns ErrMissingSignature when all are empty, ErrInvalidFormat otherwise.
func ParseSignature(keyID, timestamp, signature string) (Signature, error) {
	if keyID == "" && timestamp == "" && signature == "" {
		return Signature{}, ErrMissingSignature
	}
	if !isLowerHex(keyID) || len(keyID) != 32 {
		return Signature{}, ErrInvalidFormat
	}
	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return Signature{}, ErrInvalidFormat
	}
	if len(signature) != 2*sha256.Size || !isLowerHex(signature) {
		return Signature{}, ErrInvalidFormat
	}
	mac, err := hex.DecodeString(signature)
	if err != nil {
		return Signature{}, ErrInvalidFormat
	}
	return Signature{KeyID: keyID, Timestamp: ts, MAC: mac}, nil
}

// CanonicalPayload is the byte string both sides sign:
// timestamp, method and path on separate lines, then the raw body.
func CanonicalPayload(timestamp int64, method, path string, body []byte) []byte {
	var b strings.Builder
	b.WriteString(strconv.FormatInt(timestamp, 10))
	b.WriteByte('\n')
	b.WriteString(strings.ToUpper(method))
	b.WriteByte('\n')
	b.WriteString(path)
	b.WriteByte('\n')
	b.Write(body)
	return []byte(b.String())
}

// ComputeHMAC computes the HMAC-SHA256 of payload using secret.
func ComputeHMAC(secret, payload []byte) []byte {
	h := hmac.New(sha256.New, secret)
	h.Write(payload)
	return h.Sum(nil)
}

// VerifyHMAC compares two MACs in constant time.
func VerifyHMAC(expected, computed []byte) bool {
	return hmac.Equal(expected, computed)
}

// Signer produces signatures with one configured secret.
type Signer struct {
	KeyID  string
	Secret []byte
	Now    func() time.Time
}

// NewSigner creates a Signer using the wall clock.
func NewSigner(keyID string, secret []byte) *Signer {
	return &Signer{KeyID: keyID, Secret: secret, Now: time.Now}
}

// Sign signs one request.
func (s *Signer) Sign(method, path string, body []byte) Signature {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	ts := now().Unix()
	return Signature{
		KeyID:     s.KeyID,
		Timestamp: ts,
		MAC:       ComputeHMAC(s.Secret, CanonicalPayload(ts, method, path, body)),
	}
}

func isLowerHex(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')) {
			return false
		}
	}
	return true
}
