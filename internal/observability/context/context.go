package context

import "context"

type ctxKey int

const (
	requestIDKey ctxKey = iota
	actorTypeKey
	actorIDKey
	clientIPKey
	userAgentKey
)

const (
	ActorTypeUser      = "user"
	ActorTypeStaff     = "staff"
	ActorTypeGateway   = "gateway"
	ActorTypeScheduler = "scheduler"
)

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(requestIDKey).(string)
	return value
}

func WithActor(ctx context.Context, actorType, actorID string) context.Context {
	ctx = context.WithValue(ctx, actorTypeKey, actorType)
	return context.WithValue(ctx, actorIDKey, actorID)
}

func ActorFromContext(ctx context.Context) (string, string) {
	if ctx == nil {
		return "", ""
	}
	actorType, _ := ctx.Value(actorTypeKey).(string)
	actorID, _ := ctx.Value(actorIDKey).(string)
	return actorType, actorID
}

// WithClient records the caller's address and user agent for audit entries.
func WithClient(ctx context.Context, ip, userAgent string) context.Context {
	ctx = context.WithValue(ctx, clientIPKey, ip)
	return context.WithValue(ctx, userAgentKey, userAgent)
}

func ClientFromContext(ctx context.Context) (string, string) {
	if ctx == nil {
		return "", ""
	}
	ip, _ := ctx.Value(clientIPKey).(string)
	userAgent, _ := ctx.Value(userAgentKey).(string)
	return ip, userAgent
}
