package api

import (
	"net/http"

	"github.com/xraph/forge"

	"github.com/xraph/bastion"
)

func (a *API) registerGuildRoutes(router forge.Router) error {
	g := router.Group("/v1/guilds/:guildId", forge.WithGroupTags("guilds"))

	if err := g.POST("/auto-configure", a.autoConfigure,
		forge.WithSummary("Auto-configure guild"),
		forge.WithDescription("Classifies the guild's roles and binds levels for authority roles. Manual bindings are never touched."),
		forge.WithOperationID("autoConfigureGuild"),
		forge.WithRequestSchema(AutoConfigureRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Auto-configure report", &bastion.AutoConfigureReport{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	return g.POST("/reset", a.resetGuild,
		forge.WithSummary("Reset guild"),
		forge.WithDescription("Removes all of a guild's bindings, requirements, and overrides. Audit history is preserved."),
		forge.WithOperationID("resetGuild"),
		forge.WithNoContentResponse(),
		forge.WithErrorResponses(),
	)
}

func (a *API) autoConfigure(ctx forge.Context, req *AutoConfigureRequest) (*bastion.AutoConfigureReport, error) {
	guildID := ctx.Param("guildId")
	if len(req.Roles) == 0 {
		return nil, forge.BadRequest("roles cannot be empty")
	}

	report, err := a.eng.AutoConfigure(actorCtx(ctx), guildID, req.Roles)
	if err != nil {
		return nil, mapError(err)
	}

	return report, ctx.JSON(http.StatusOK, report)
}

func (a *API) resetGuild(ctx forge.Context, _ *struct{}) (*struct{}, error) {
	if err := a.eng.ResetGuild(actorCtx(ctx), ctx.Param("guildId")); err != nil {
		return nil, mapError(err)
	}

	return nil, ctx.NoContent(http.StatusNoContent)
}
