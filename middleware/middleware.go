// Package middleware provides HTTP authorization middleware for Bastion.
package middleware

import (
	"encoding/json"

	"github.com/xraph/forge"

	"github.com/xraph/bastion"
	"github.com/xraph/bastion/level"
)

// Require enforces a permission node. The principal is resolved from the
// request context (Forge user ID, anonymous otherwise); the guild and
// channel come from route parameters.
func Require(eng *bastion.Engine, node string) forge.Middleware {
	return func(next forge.Handler) forge.Handler {
		return func(ctx forge.Context) error {
			req := requestFromContext(ctx, node)

			if err := eng.Enforce(ctx.Context(), req); err != nil {
				return denyResponse(ctx)
			}
			return next(ctx)
		}
	}
}

// RequireAny allows the request if ANY of the nodes is permitted.
func RequireAny(eng *bastion.Engine, nodes ...string) forge.Middleware {
	return func(next forge.Handler) forge.Handler {
		return func(ctx forge.Context) error {
			for _, node := range nodes {
				req := requestFromContext(ctx, node)
				allowed, err := eng.HasPermission(ctx.Context(), req)
				if err == nil && allowed {
					return next(ctx)
				}
			}
			return denyResponse(ctx)
		}
	}
}

// RequireAll allows the request only if ALL nodes are permitted.
func RequireAll(eng *bastion.Engine, nodes ...string) forge.Middleware {
	return func(next forge.Handler) forge.Handler {
		return func(ctx forge.Context) error {
			for _, node := range nodes {
				req := requestFromContext(ctx, node)
				if err := eng.Enforce(ctx.Context(), req); err != nil {
					return denyResponse(ctx)
				}
			}
			return next(ctx)
		}
	}
}

// RequireLevel allows the request when the principal's effective level
// in the guild meets the minimum.
func RequireLevel(eng *bastion.Engine, min level.Level) forge.Middleware {
	return func(next forge.Handler) forge.Handler {
		return func(ctx forge.Context) error {
			lvl, err := eng.EffectiveLevel(ctx.Context(), ctx.Param("guildId"), resolvePrincipal(ctx))
			if err != nil || !lvl.AtLeast(min) {
				return denyResponse(ctx)
			}
			return next(ctx)
		}
	}
}

func requestFromContext(ctx forge.Context, node string) *bastion.ResolveRequest {
	return &bastion.ResolveRequest{
		Principal: resolvePrincipal(ctx),
		GuildID:   ctx.Param("guildId"),
		ChannelID: ctx.Param("channelId"),
		Node:      node,
	}
}

// resolvePrincipal extracts the principal from context.
// Priority: Forge user ID (from Authsome) → anonymous.
func resolvePrincipal(ctx forge.Context) bastion.Principal {
	if userID := forge.UserIDFromContext(ctx.Context()); userID != "" {
		return bastion.Principal{UserID: userID}
	}
	return bastion.Principal{UserID: "anonymous"}
}

func denyResponse(ctx forge.Context) error {
	ctx.SetHeader("Content-Type", "application/json")
	ctx.Response().WriteHeader(403)
	return json.NewEncoder(ctx.Response()).Encode(map[string]string{"error": "access denied"})
}
