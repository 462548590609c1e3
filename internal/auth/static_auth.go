package auth

import (
	"context"
	"crypto/subtle"
)

// StaticGate checks the presented credential against a single configured
// secret. An empty secret denies everything.
type StaticGate struct {
	secret     []byte
	operations map[string]struct{}
}

// NewStaticGate creates a gate accepting secret for the listed operations only.
func NewStaticGate(secret string, operations ...string) *StaticGate {
	ops := make(map[string]struct{}, len(operations))
	for _, op := range operations {
		ops[op] = struct{}{}
	}
	return &StaticGate{
		secret:     []byte(secret),
		operations: ops,
	}
}

func (g *StaticGate) Authorize(ctx context.Context, credential, operation string) error {
	if ctx.Err() != nil {
		return ErrUnauthorized
	}
	_, known := g.operations[operation]

	// Compare even when the operation is unknown so both paths cost the same.
	match := subtle.ConstantTimeCompare([]byte(credential), g.secret) == 1
	if !known || !match || len(g.secret) == 0 || credential == "" {
		return ErrUnauthorized
	}
	return nil
}

var _ Gate = (*StaticGate)(nil)
