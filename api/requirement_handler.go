package api

import (
	"net/http"

	"github.com/xraph/forge"

	"github.com/xraph/bastion/requirement"
)

func (a *API) registerRequirementRoutes(router forge.Router) error {
	g := router.Group("/v1/guilds/:guildId", forge.WithGroupTags("requirements"))

	if err := g.PUT("/requirements/:node", a.setRequirement,
		forge.WithSummary("Set requirement"),
		forge.WithDescription("Replaces the node's default required level for this guild."),
		forge.WithOperationID("setRequirement"),
		forge.WithRequestSchema(SetRequirementRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Requirement", &requirement.Requirement{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.DELETE("/requirements/:node", a.clearRequirement,
		forge.WithSummary("Clear requirement"),
		forge.WithDescription("Restores the node's registered default level. Clearing an absent requirement is a no-op."),
		forge.WithOperationID("clearRequirement"),
		forge.WithNoContentResponse(),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	return g.GET("/requirements", a.listRequirements,
		forge.WithSummary("List requirements"),
		forge.WithDescription("Lists a guild's per-node level requirements."),
		forge.WithOperationID("listRequirements"),
		forge.WithResponseSchema(http.StatusOK, "Requirement list", []*requirement.Requirement{}),
		forge.WithErrorResponses(),
	)
}

func (a *API) setRequirement(ctx forge.Context, req *SetRequirementRequest) (*requirement.Requirement, error) {
	guildID := ctx.Param("guildId")
	nodeName := ctx.Param("node")
	if req.Level == "" {
		return nil, forge.BadRequest("level is required")
	}

	lvl, err := parseLevel(req.Level)
	if err != nil {
		return nil, err
	}

	r, err := a.eng.SetRequirement(actorCtx(ctx), guildID, nodeName, lvl)
	if err != nil {
		return nil, mapError(err)
	}

	return r, ctx.JSON(http.StatusOK, r)
}

func (a *API) clearRequirement(ctx forge.Context, _ *struct{}) (*struct{}, error) {
	guildID := ctx.Param("guildId")
	nodeName := ctx.Param("node")

	if _, err := a.eng.ClearRequirement(actorCtx(ctx), guildID, nodeName); err != nil {
		return nil, mapError(err)
	}

	return nil, ctx.NoContent(http.StatusNoContent)
}

func (a *API) listRequirements(ctx forge.Context, _ *struct{}) ([]*requirement.Requirement, error) {
	requirements, err := a.eng.Store().ListRequirements(ctx.Context(), ctx.Param("guildId"))
	if err != nil {
		return nil, mapError(err)
	}

	return requirements, ctx.JSON(http.StatusOK, requirements)
}
