// Package context carries request metadata through context.Context
package context

import "context"

type ContextKey string

var (
	RequestIDKey = ContextKey("X-Request-Id")
	MethodKey    = ContextKey("X-Method")
	RouteKey     = ContextKey("X-Route")
	RemoteIPKey  = ContextKey("X-Remote-Ip")
	UserIDKey    = ContextKey("X-User-Id")
	PassKey      = ContextKey("X-Pass")
)

func set(ctx context.Context, key ContextKey, value string) context.Context {
	return context.WithValue(ctx, key, value)
}

func get(ctx context.Context, key ContextKey) string {
	value, _ := ctx.Value(key).(string)
	return value
}

func SetRequestID(ctx context.Context, requestID string) context.Context {
	return set(ctx, RequestIDKey, requestID)
}

func GetRequestID(ctx context.Context) string {
	return get(ctx, RequestIDKey)
}

func SetMethod(ctx context.Context, method string) context.Context {
	return set(ctx, MethodKey, method)
}

func GetMethod(ctx context.Context) string {
	return get(ctx, MethodKey)
}

func SetRoute(ctx context.Context, route string) context.Context {
	return set(ctx, RouteKey, route)
}

func GetRoute(ctx context.Context) string {
	return get(ctx, RouteKey)
}

func SetRemoteIP(ctx context.Context, remoteIP string) context.Context {
	return set(ctx, RemoteIPKey, remoteIP)
}

func GetRemoteIP(ctx context.Context) string {
	return get(ctx, RemoteIPKey)
}

// SetUserID records who is acting, used as the reviewer on resolutions
func SetUserID(ctx context.Context, userID string) context.Context {
	return set(ctx, UserIDKey, userID)
}

func GetUserID(ctx context.Context) string {
	return get(ctx, UserIDKey)
}

// SetPass tags work done on behalf of a batch pass
func SetPass(ctx context.Context, pass string) context.Context {
	return set(ctx, PassKey, pass)
}

func GetPass(ctx context.Context) string {
	return get(ctx, PassKey)
}

// Fields returns the populated metadata as log fields
func Fields(ctx context.Context) map[string]any {
	fields := map[string]any{}
	for _, key := range []ContextKey{RequestIDKey, MethodKey, RouteKey, RemoteIPKey, UserIDKey, PassKey} {
		if value := get(ctx, key); value != "" {
			fields[string(key)] = value
		}
	}
	return fields
}
