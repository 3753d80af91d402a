// Package auth provides HMAC request signing and verification for the
// QueryKeeper HTTP and gRPC services.
package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"
)

// contextKey is a typed key for context values to avoid collisions.
type contextKey string

// keyIDKey is the context key for the authenticated secret id.
const keyIDKey = contextKey("key_id")

// Authenticator verifies request signatures against configured secrets.
// A nil or empty secret map disables verification.
type Authenticator struct {
	secrets map[string][]byte
	now     func() time.Time
}

// NewAuthenticator creates an authenticator over secret_id -> secret.
func NewAuthenticator(secrets map[string][]byte) *Authenticator {
	return &Authenticator{secrets: secrets, now: time.Now}
}

// Enabled reports whether any secret is configured.
func (a *Authenticator) Enabled() bool {
	return a != nil && len(a.secrets) > 0
}

// Verify checks sig over the canonical payload of one request.
func (a *Authenticator) Verify(sig Signature, method, path string, body []byte) error {
	secret, ok := a.secrets[sig.KeyID]
	if !ok {
		return ErrUnknownKey
	}

	skew := a.now().Sub(time.Unix(sig.Timestamp, 0))
	if skew < -MaxClockSkew || skew > MaxClockSkew {
		return ErrStaleTimestamp
	}

	computed := ComputeHMAC(secret, CanonicalPayload(sig.Timestamp, method, path, body))
	if !VerifyHMAC(sig.MAC, computed) {
		return ErrInvalidSignature
	}
	return nil
}

// WithKeyID records the authenticated secret id in ctx.
func WithKeyID(ctx context.Context, keyID string) context.Context {
	return context.WithValue(ctx, keyIDKey, keyID)
}

// KeyIDFromContext extracts the authenticated secret id.
// Returns empty string for unauthenticated requests.
func KeyIDFromContext(ctx context.Context) string {
	if keyID, ok := ctx.Value(keyIDKey).(string); ok {
		return keyID
	}
	return ""
}

// grpcPayload encodes a request message for signing. Deterministic
// marshaling keeps map-valued messages stable between client and server.
func grpcPayload(req any) ([]byte, error) {
	msg, ok := req.(proto.Message)
	if !ok {
		return nil, errors.New("request is not a protobuf message")
	}
	return proto.MarshalOptions{Deterministic: true}.Marshal(msg)
}

// UnaryInterceptor returns a gRPC interceptor that verifies signed requests.
// The signed path is the full method name.
func (a *Authenticator) UnaryInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if !a.Enabled() || isHealthMethod(info.FullMethod) {
			return handler(ctx, req)
		}

		md, _ := metadata.FromIncomingContext(ctx)
		sig, err := ParseSignature(
			first(md, HeaderKeyID),
			first(md, HeaderTimestamp),
			first(md, HeaderSignature),
		)
		if err != nil {
			return nil, status.Error(codes.Unauthenticated, err.Error())
		}

		body, err := grpcPayload(req)
		if err != nil {
			return nil, status.Error(codes.Internal, err.Error())
		}
		if err := a.Verify(sig, "POST", info.FullMethod, body); err != nil {
			return nil, status.Error(codes.Unauthenticated, err.Error())
		}

		return handler(WithKeyID(ctx, sig.KeyID), req)
	}
}

// UnaryClientInterceptor signs outgoing gRPC requests with signer.
func UnaryClientInterceptor(signer *Signer) grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		body, err := grpcPayload(req)
		if err != nil {
			return err
		}
		for k, v := range signer.Sign("POST", method, body).Headers() {
			ctx = metadata.AppendToOutgoingContext(ctx, k, v)
		}
		return invoker(ctx, method, req, reply, cc, opts...)
	}
}

func isHealthMethod(fullMethod string) bool {
	return strings.HasPrefix(fullMethod, "/grpc.health.v1.Health/")
}

// first returns the first metadata value for key, matched case-insensitively.
func first(md metadata.MD, key string) string {
	if vals := md.Get(key); len(vals) > 0 {
		return vals[0]
	}
	return ""
}
