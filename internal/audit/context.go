package audit

import "context"

type ipKey struct{}

// WithIP attaches the client address recorded on audit rows
func WithIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, ipKey{}, ip)
}

// IPFrom returns the address set by WithIP, or an empty string
func IPFrom(ctx context.Context) string {
	ip, _ := ctx.Value(ipKey{}).(string)
	return ip
}
