package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/xraph/forge"

	"github.com/xraph/bastion/override"
)

func (a *API) registerOverrideRoutes(router forge.Router) error {
	g := router.Group("/v1/guilds/:guildId", forge.WithGroupTags("overrides"))

	if err := g.POST("/overrides", a.addOverride,
		forge.WithSummary("Add override"),
		forge.WithDescription("Grants or denies one node to a user or role within a scope."),
		forge.WithOperationID("addOverride"),
		forge.WithRequestSchema(AddOverrideRequest{}),
		forge.WithCreatedResponse(&override.Override{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.DELETE("/overrides", a.removeOverride,
		forge.WithSummary("Remove overrides"),
		forge.WithDescription("Removes all overrides matching (target, node), optionally narrowed to one scope."),
		forge.WithOperationID("removeOverride"),
		forge.WithRequestSchema(RemoveOverrideRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Removed overrides", []*override.Override{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	return g.GET("/overrides", a.listOverrides,
		forge.WithSummary("List overrides"),
		forge.WithDescription("Lists a guild's overrides with optional filters."),
		forge.WithOperationID("listOverrides"),
		forge.WithRequestSchema(ListOverridesRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Override list", []*override.Override{}),
		forge.WithErrorResponses(),
	)
}

func (a *API) addOverride(ctx forge.Context, req *AddOverrideRequest) (*override.Override, error) {
	guildID := ctx.Param("guildId")
	if req.TargetID == "" || req.Node == "" {
		return nil, forge.BadRequest("target_id and node are required")
	}

	scope, err := parseScope(guildID, req.ScopeKind, req.ScopeID)
	if err != nil {
		return nil, err
	}

	o := &override.Override{
		GuildID:    guildID,
		TargetKind: override.TargetKind(req.TargetKind),
		TargetID:   req.TargetID,
		Node:       req.Node,
		Granted:    req.Granted,
		Scope:      scope,
		Reason:     req.Reason,
	}

	if req.ExpiresAt != "" {
		t, err := time.Parse(time.RFC3339, req.ExpiresAt)
		if err != nil {
			return nil, forge.BadRequest("invalid expires_at timestamp")
		}
		o.ExpiresAt = &t
	}

	created, err := a.eng.AddOverride(actorCtx(ctx), o)
	if err != nil {
		return nil, mapError(err)
	}

	return created, ctx.JSON(http.StatusCreated, created)
}

func (a *API) removeOverride(ctx forge.Context, req *RemoveOverrideRequest) ([]*override.Override, error) {
	guildID := ctx.Param("guildId")
	if req.TargetID == "" || req.Node == "" {
		return nil, forge.BadRequest("target_id and node are required")
	}

	var scope *override.Scope
	if req.ScopeKind != "" {
		s, err := parseScope(guildID, req.ScopeKind, req.ScopeID)
		if err != nil {
			return nil, err
		}
		scope = &s
	}

	removed, err := a.eng.RemoveOverride(actorCtx(ctx), guildID,
		override.TargetKind(req.TargetKind), req.TargetID, req.Node, scope)
	if err != nil {
		return nil, mapError(err)
	}

	return removed, ctx.JSON(http.StatusOK, removed)
}

func (a *API) listOverrides(ctx forge.Context, req *ListOverridesRequest) ([]*override.Override, error) {
	filter := &override.ListFilter{
		GuildID:    ctx.Param("guildId"),
		Node:       req.Node,
		TargetKind: override.TargetKind(req.TargetKind),
		Limit:      defaultLimit(req.Limit),
		Offset:     req.Offset,
	}
	if req.TargetID != "" {
		filter.TargetIDs = []string{req.TargetID}
	}

	overrides, err := a.eng.Store().ListOverrides(ctx.Context(), filter)
	if err != nil {
		return nil, mapError(err)
	}

	return overrides, ctx.JSON(http.StatusOK, overrides)
}

func parseScope(guildID, kind, scopeID string) (override.Scope, error) {
	switch override.ScopeKind(kind) {
	case override.ScopeGlobal:
		return override.GlobalScope, nil
	case override.ScopeGuild, "":
		return override.GuildScope(guildID), nil
	case override.ScopeChannel:
		if scopeID == "" {
			return override.Scope{}, forge.BadRequest("channel scope requires scope_id")
		}
		return override.ChannelScope(scopeID), nil
	default:
		return override.Scope{}, forge.BadRequest(fmt.Sprintf("unknown scope kind %q", kind))
	}
}
