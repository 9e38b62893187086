package api

import (
	"net/http"

	"github.com/xraph/forge"

	"github.com/xraph/bastion"
	"github.com/xraph/bastion/level"
)

func (a *API) registerResolveRoutes(router forge.Router) error {
	g := router.Group("/v1/authz", forge.WithGroupTags("authorization"))

	if err := g.POST("/resolve", a.resolve,
		forge.WithSummary("Resolve permission"),
		forge.WithDescription("Evaluates whether the principal may perform the node's operation."),
		forge.WithOperationID("authzResolve"),
		forge.WithRequestSchema(ResolveRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Resolution", ResolveResponse{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.POST("/enforce", a.enforce,
		forge.WithSummary("Enforce permission"),
		forge.WithDescription("Returns 200 if allowed, 403 if denied."),
		forge.WithOperationID("authzEnforce"),
		forge.WithRequestSchema(ResolveRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Allowed", ResolveResponse{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.POST("/batch-resolve", a.batchResolve,
		forge.WithSummary("Batch permission resolution"),
		forge.WithDescription("Evaluates multiple resolutions in one request."),
		forge.WithOperationID("authzBatchResolve"),
		forge.WithRequestSchema(BatchResolveRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Batch results", BatchResolveResponse{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	return g.POST("/effective-level", a.effectiveLevel,
		forge.WithSummary("Effective level"),
		forge.WithDescription("Computes the principal's authority level in a guild."),
		forge.WithOperationID("authzEffectiveLevel"),
		forge.WithRequestSchema(EffectiveLevelRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Effective level", EffectiveLevelResponse{}),
		forge.WithErrorResponses(),
	)
}

func (a *API) resolve(ctx forge.Context, req *ResolveRequest) (*ResolveResponse, error) {
	if req.UserID == "" || req.GuildID == "" || req.Node == "" {
		return nil, forge.BadRequest("user_id, guild_id, and node are required")
	}

	res, err := a.eng.Resolve(ctx.Context(), toResolveRequest(req))
	if err != nil {
		return nil, mapError(err)
	}

	resp := toResolveResponse(res)
	return resp, ctx.JSON(http.StatusOK, resp)
}

func (a *API) enforce(ctx forge.Context, req *ResolveRequest) (*ResolveResponse, error) {
	if req.UserID == "" || req.GuildID == "" || req.Node == "" {
		return nil, forge.BadRequest("user_id, guild_id, and node are required")
	}

	res, err := a.eng.Resolve(ctx.Context(), toResolveRequest(req))
	if err != nil {
		return nil, mapError(err)
	}

	resp := toResolveResponse(res)
	if !res.Allowed {
		return resp, ctx.JSON(http.StatusForbidden, resp)
	}
	return resp, ctx.JSON(http.StatusOK, resp)
}

func (a *API) batchResolve(ctx forge.Context, req *BatchResolveRequest) (*BatchResolveResponse, error) {
	if len(req.Resolutions) == 0 {
		return nil, forge.BadRequest("resolutions cannot be empty")
	}

	results := make([]ResolveResponse, len(req.Resolutions))
	for i, r := range req.Resolutions {
		res, err := a.eng.Resolve(ctx.Context(), toResolveRequest(&r))
		if err != nil {
			return nil, mapError(err)
		}
		results[i] = *toResolveResponse(res)
	}

	resp := &BatchResolveResponse{Results: results}
	return resp, ctx.JSON(http.StatusOK, resp)
}

func (a *API) effectiveLevel(ctx forge.Context, req *EffectiveLevelRequest) (*EffectiveLevelResponse, error) {
	if req.UserID == "" || req.GuildID == "" {
		return nil, forge.BadRequest("user_id and guild_id are required")
	}

	lvl, err := a.eng.EffectiveLevel(ctx.Context(), req.GuildID, bastion.Principal{
		UserID:  req.UserID,
		RoleIDs: req.RoleIDs,
	})
	if err != nil {
		return nil, mapError(err)
	}

	resp := &EffectiveLevelResponse{Level: lvl.String(), Value: int(lvl)}
	return resp, ctx.JSON(http.StatusOK, resp)
}

func toResolveRequest(r *ResolveRequest) *bastion.ResolveRequest {
	return &bastion.ResolveRequest{
		Principal: bastion.Principal{UserID: r.UserID, RoleIDs: r.RoleIDs},
		GuildID:   r.GuildID,
		ChannelID: r.ChannelID,
		Node:      r.Node,
	}
}

func toResolveResponse(r *bastion.Resolution) *ResolveResponse {
	return &ResolveResponse{
		Allowed:        r.Allowed,
		Factor:         string(r.Factor),
		EffectiveLevel: r.EffectiveLevel.String(),
		RequiredLevel:  r.RequiredLevel.String(),
		Reason:         r.Reason,
		EvalTimeNs:     r.EvalTimeNs,
	}
}

func parseLevel(s string) (level.Level, error) {
	lvl, err := level.Parse(s)
	if err != nil {
		return level.Everyone, forge.BadRequest(err.Error())
	}
	return lvl, nil
}
