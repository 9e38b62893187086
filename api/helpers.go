package api

import (
	"context"
	"errors"

	"github.com/xraph/forge"

	"github.com/xraph/bastion"
)

// mapError maps domain errors to Forge HTTP errors.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, bastion.ErrUnknownNode) {
		return forge.NotFound(err.Error())
	}
	if errors.Is(err, bastion.ErrInvalidRequest) || errors.Is(err, bastion.ErrUnknownLevel) {
		return forge.BadRequest(err.Error())
	}
	if errors.Is(err, bastion.ErrInvalidOverride) || errors.Is(err, bastion.ErrDuplicateNode) {
		return forge.BadRequest(err.Error())
	}
	if errors.Is(err, bastion.ErrAccessDenied) {
		return forge.Forbidden(err.Error())
	}
	return err
}

// actorCtx threads the authenticated user into the engine's audit trail.
func actorCtx(ctx forge.Context) context.Context {
	c := ctx.Context()
	if userID := forge.UserIDFromContext(c); userID != "" {
		return bastion.WithActor(c, userID)
	}
	return c
}

func defaultLimit(limit int) int {
	if limit <= 0 {
		return 50
	}
	if limit > 1000 {
		return 1000
	}
	return limit
}
