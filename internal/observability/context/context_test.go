package context

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequestAndActorRoundTrip(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-1")
	ctx = WithActor(ctx, ActorTypeStaff, "42")

	assert.Equal(t, "req-1", RequestIDFromContext(ctx))
	actorType, actorID := ActorFromContext(ctx)
	assert.Equal(t, ActorTypeStaff, actorType)
	assert.Equal(t, "42", actorID)

	actorType, actorID = ActorFromContext(context.Background())
	assert.Empty(t, actorType)
	assert.Empty(t, actorID)
}

func TestClientRoundTrip(t *testing.T) {
	ctx := WithClient(context.Background(), "203.0.113.7", "curl/8.0")

	ip, userAgent := ClientFromContext(ctx)
	assert.Equal(t, "203.0.113.7", ip)
	assert.Equal(t, "curl/8.0", userAgent)
}
