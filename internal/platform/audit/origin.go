package audit

import "context"

// Origin is the network origin of the request behind an entry: client IP
// and the opaque client identifier sent as User-Agent.
type Origin struct {
	IP        string
	UserAgent string
}

type originKey struct{}

// WithOrigin stashes the request origin so entries built below the HTTP
// layer still carry it.
func WithOrigin(ctx context.Context, o Origin) context.Context {
	return context.WithValue(ctx, originKey{}, o)
}

// OriginFromContext returns the stashed origin, zero when none was set.
func OriginFromContext(ctx context.Context) Origin {
	o, _ := ctx.Value(originKey{}).(Origin)
	return o
}
