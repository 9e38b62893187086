package api

import (
	"net/http"
	"time"

	"github.com/xraph/forge"

	"github.com/xraph/bastion/audit"
)

func (a *API) registerAuditRoutes(router forge.Router) error {
	g := router.Group("/v1/guilds/:guildId", forge.WithGroupTags("audit"))

	return g.GET("/audit", a.listAudits,
		forge.WithSummary("Query audit log"),
		forge.WithDescription("Returns a guild's configuration audit entries, newest first."),
		forge.WithOperationID("listAudits"),
		forge.WithRequestSchema(ListAuditsRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Audit entries", []*audit.Entry{}),
		forge.WithErrorResponses(),
	)
}

func (a *API) listAudits(ctx forge.Context, req *ListAuditsRequest) ([]*audit.Entry, error) {
	filter := &audit.QueryFilter{
		GuildID: ctx.Param("guildId"),
		ActorID: req.ActorID,
		Action:  audit.Action(req.Action),
		Limit:   defaultLimit(req.Limit),
		Offset:  req.Offset,
	}

	if req.After != "" {
		t, err := time.Parse(time.RFC3339, req.After)
		if err != nil {
			return nil, forge.BadRequest("invalid after timestamp")
		}
		filter.After = &t
	}
	if req.Before != "" {
		t, err := time.Parse(time.RFC3339, req.Before)
		if err != nil {
			return nil, forge.BadRequest("invalid before timestamp")
		}
		filter.Before = &t
	}

	entries, err := a.eng.Store().ListAudits(ctx.Context(), filter)
	if err != nil {
		return nil, mapError(err)
	}

	return entries, ctx.JSON(http.StatusOK, entries)
}
