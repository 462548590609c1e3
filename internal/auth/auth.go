package auth

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/grpc/metadata"
)

// Gate authorizes a single data-bearing operation. It is consulted on every
// call; implementations must not grant trust based on earlier decisions.
type Gate interface {
	Authorize(ctx context.Context, credential, operation string) error
}

// ErrUnauthorized is the only error a Gate returns. Wrong credential, missing
// credential and unknown operation all produce the same text.
var ErrUnauthorized = errors.New("unauthorized")

// ExtractCredential reads the presented credential from gRPC metadata
// ("authorization: Bearer <credential>").
func ExtractCredential(ctx context.Context) (string, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", ErrUnauthorized
	}
	values := md.Get("authorization")
	if len(values) == 0 {
		return "", ErrUnauthorized
	}

	token := values[0]
	// RFC 6750: the "Bearer" scheme is case-insensitive.
	if len(token) > 7 && strings.EqualFold(token[:7], "bearer ") {
		token = token[7:]
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrUnauthorized
	}
	return token, nil
}

// WithCredential attaches a credential to an outgoing gRPC context.
func WithCredential(ctx context.Context, credential string) context.Context {
	return metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+credential)
}
