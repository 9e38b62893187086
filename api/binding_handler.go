package api

import (
	"net/http"

	"github.com/xraph/forge"

	"github.com/xraph/bastion/binding"
)

func (a *API) registerBindingRoutes(router forge.Router) error {
	g := router.Group("/v1/guilds/:guildId", forge.WithGroupTags("bindings"))

	if err := g.PUT("/bindings/:roleId", a.bindRole,
		forge.WithSummary("Bind role"),
		forge.WithDescription("Binds a guild role to an authority level."),
		forge.WithOperationID("bindRole"),
		forge.WithRequestSchema(BindRoleRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Binding", &binding.Binding{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.DELETE("/bindings/:roleId", a.unbindRole,
		forge.WithSummary("Unbind role"),
		forge.WithDescription("Removes a role's level binding. Removing an absent binding is a no-op."),
		forge.WithOperationID("unbindRole"),
		forge.WithNoContentResponse(),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	return g.GET("/bindings", a.listBindings,
		forge.WithSummary("List bindings"),
		forge.WithDescription("Lists a guild's role bindings."),
		forge.WithOperationID("listBindings"),
		forge.WithRequestSchema(ListBindingsRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Binding list", []*binding.Binding{}),
		forge.WithErrorResponses(),
	)
}

func (a *API) bindRole(ctx forge.Context, req *BindRoleRequest) (*binding.Binding, error) {
	guildID := ctx.Param("guildId")
	roleID := ctx.Param("roleId")
	if req.Level == "" {
		return nil, forge.BadRequest("level is required")
	}

	lvl, err := parseLevel(req.Level)
	if err != nil {
		return nil, err
	}

	b, err := a.eng.BindRole(actorCtx(ctx), guildID, roleID, lvl)
	if err != nil {
		return nil, mapError(err)
	}

	return b, ctx.JSON(http.StatusOK, b)
}

func (a *API) unbindRole(ctx forge.Context, _ *struct{}) (*struct{}, error) {
	guildID := ctx.Param("guildId")
	roleID := ctx.Param("roleId")

	if _, err := a.eng.UnbindRole(actorCtx(ctx), guildID, roleID); err != nil {
		return nil, mapError(err)
	}

	return nil, ctx.NoContent(http.StatusNoContent)
}

func (a *API) listBindings(ctx forge.Context, req *ListBindingsRequest) ([]*binding.Binding, error) {
	filter := &binding.ListFilter{
		GuildID: ctx.Param("guildId"),
		Source:  binding.Source(req.Source),
		Limit:   defaultLimit(req.Limit),
		Offset:  req.Offset,
	}

	bindings, err := a.eng.Store().ListBindings(ctx.Context(), filter)
	if err != nil {
		return nil, mapError(err)
	}

	return bindings, ctx.JSON(http.StatusOK, bindings)
}
