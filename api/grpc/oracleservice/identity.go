package oracleservice

import (
	"context"
	"fmt"

	"google.golang.org/grpc/metadata"
)

// callerIdentity extracts the opaque identity string internal/oracle's
// AdminACL and SubmissionLimiter key on, from the same "authorization:
// Bearer <token>" metadata api/grpc/server's apiKeyUnaryInterceptor
// already authenticates against. An unauthenticated call (no API keys
// configured, or a pre-TLS-only deployment) resolves to the empty
// identity, which AdminACL's default policy governs like any other
// unrecognized caller.
func callerIdentity(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	for _, v := range md.Get("authorization") {
		var token string
		if _, err := fmt.Sscanf(v, "Bearer %s", &token); err == nil && token != "" {
			return token
		}
	}
	return ""
}
