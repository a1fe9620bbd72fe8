package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
)

type channelKey struct{}
type roleKey struct{}

var (
	ChannelContextKey = channelKey{}
	RoleContextKey    = roleKey{}
)

const (
	HeaderAPIKey = "X-API-Key"

	RoleAdmin  = "admin"
	RoleMember = "member"
)

// deriveChannelFromAPIKey guesses the sales channel from the API key prefix.
func deriveChannelFromAPIKey(key string) string {
	switch {
	case strings.HasPrefix(key, "pos_"):
		return "pos"
	case strings.HasPrefix(key, "web_"):
		return "online"
	case strings.HasPrefix(key, "partner_"):
		return "partner"
	default:
		return "api"
	}
}

// Channel stores the caller's channel and role on the request context. The
// channel comes from the X-API-Key prefix; the admin role is granted only to
// keys listed in adminKeys (ACCESS_CONTROL.ADMIN_KEYS).
func Channel(adminKeys ...string) gin.HandlerFunc {
	admins := make(map[string]struct{}, len(adminKeys))
	for _, k := range adminKeys {
		if k = strings.TrimSpace(k); k != "" {
			admins[k] = struct{}{}
		}
	}

	return func(c *gin.Context) {
		key := c.GetHeader(HeaderAPIKey)
		role := RoleMember
		if _, ok := admins[key]; ok && key != "" {
			role = RoleAdmin
		}
		ctx := WithChannel(c.Request.Context(), deriveChannelFromAPIKey(key))
		ctx = context.WithValue(ctx, RoleContextKey, role)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func WithChannel(ctx context.Context, channel string) context.Context {
	return context.WithValue(ctx, ChannelContextKey, channel)
}

// FromChannel reports whether ctx originates from channel want.
func FromChannel(ctx context.Context, want string) bool {
	ch, ok := ctx.Value(ChannelContextKey).(string)
	return ok && ch == want
}

// GetChannel returns the current channel, "api" by default.
func GetChannel(ctx context.Context) string {
	ch, ok := ctx.Value(ChannelContextKey).(string)
	if !ok {
		return "api"
	}
	return ch
}

func GetRole(ctx context.Context) string {
	role, ok := ctx.Value(RoleContextKey).(string)
	if !ok {
		return RoleMember
	}
	return role
}
