package bastion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/xraph/bastion/binding"
	"github.com/xraph/bastion/classify"
	"github.com/xraph/bastion/level"
	"github.com/xraph/bastion/node"
	"github.com/xraph/bastion/override"
	"github.com/xraph/bastion/plugin"
	"github.com/xraph/bastion/store"
)

// Engine is the main entry point for permission resolution and guild
// configuration. Create one with NewEngine and share it across goroutines.
type Engine struct {
	store      store.Store
	registry   *node.Registry
	classifier *classify.Classifier
	cache      Cache
	plugins    *plugin.Registry
	logger     *slog.Logger
	config     Config
	clock      func() time.Time

	botOwners map[string]struct{}
	botAdmins map[string]struct{}

	// guildMu serializes configuration mutations per guild. Resolutions
	// never take it.
	guildMu sync.Map
	flight  singleflight.Group

	pendingPlugins []plugin.Plugin
}

// NewEngine creates a new Bastion engine.
func NewEngine(opts ...Option) (*Engine, error) {
	e := &Engine{
		config: DefaultConfig(),
		logger: slog.Default(),
		clock:  time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.store == nil {
		return nil, errors.New("bastion: store is required")
	}
	if e.registry == nil {
		e.registry = node.NewRegistry()
		if err := node.Defaults(e.registry); err != nil {
			return nil, err
		}
	}
	if e.classifier == nil {
		e.classifier = classify.New(classify.Options{
			DeepAnalysisLimit:  e.config.DeepAnalysisLimit,
			RoleCountThreshold: e.config.RoleCountThreshold,
		})
	}

	e.plugins = plugin.NewRegistry(e.logger)
	for _, p := range e.pendingPlugins {
		e.plugins.Register(p)
	}
	e.pendingPlugins = nil

	e.botOwners = idSet(e.config.BotOwnerIDs)
	e.botAdmins = idSet(e.config.BotAdminIDs)

	return e, nil
}

// Store returns the underlying storage backend.
func (e *Engine) Store() store.Store { return e.store }

// Registry returns the permission node registry.
func (e *Engine) Registry() *node.Registry { return e.registry }

// Plugins returns the plugin registry.
func (e *Engine) Plugins() *plugin.Registry { return e.plugins }

// Close notifies plugins of shutdown and closes the store.
func (e *Engine) Close(ctx context.Context) error {
	e.plugins.EmitShutdown(ctx)
	return e.store.Close()
}

// Resolve evaluates whether the principal may perform the node's
// operation. Precedence, highest first: user-targeted overrides,
// bot-owner status, banned bindings, role-targeted overrides (deny
// wins on conflict), then the effective-versus-required level
// comparison.
//
// A cached resolution is served without touching the store, so warm
// queries survive a store outage. Storage failures on a cold query
// return an error wrapping ErrStoreUnavailable and no resolution;
// callers must treat that as a denial.
func (e *Engine) Resolve(ctx context.Context, req *ResolveRequest) (*Resolution, error) {
	start := time.Now()

	if err := validateRequest(req); err != nil {
		return nil, err
	}

	e.plugins.EmitBeforeResolve(ctx, req)

	if e.cache != nil {
		if cached, ok := e.cache.Get(ctx, req); ok {
			res := *cached
			res.EvalTimeNs = time.Since(start).Nanoseconds()
			e.plugins.EmitAfterResolve(ctx, req, &res)
			return &res, nil
		}
	}

	required, err := e.requiredLevel(ctx, req.GuildID, req.Node)
	if err != nil {
		return nil, err
	}

	v, err, _ := e.flight.Do(req.flightKey(), func() (any, error) {
		return e.evaluate(ctx, req, required)
	})
	if err != nil {
		return nil, err
	}

	// Concurrent callers share the flight result; each gets its own copy.
	shared := v.(*Resolution)
	res := *shared
	res.EvalTimeNs = time.Since(start).Nanoseconds()

	if e.cache != nil {
		e.cache.Set(ctx, req, shared)
	}
	e.plugins.EmitAfterResolve(ctx, req, &res)

	return &res, nil
}

// HasPermission is a convenience wrapper around Resolve.
func (e *Engine) HasPermission(ctx context.Context, req *ResolveRequest) (bool, error) {
	res, err := e.Resolve(ctx, req)
	if err != nil {
		return false, err
	}
	return res.Allowed, nil
}

// Enforce resolves the request and returns an error wrapping
// ErrAccessDenied when it is not allowed.
func (e *Engine) Enforce(ctx context.Context, req *ResolveRequest) error {
	res, err := e.Resolve(ctx, req)
	if err != nil {
		return err
	}
	if !res.Allowed {
		return fmt.Errorf("%w: %s may not perform %s", ErrAccessDenied, req.Principal.UserID, req.Node)
	}
	return nil
}

// EffectiveLevel computes the principal's authority level in a guild:
// the highest level among their role bindings, Banned if any binding is
// banned, floored at BotAdmin for configured bot admins, and BotOwner
// for configured bot owners.
func (e *Engine) EffectiveLevel(ctx context.Context, guildID string, p Principal) (level.Level, error) {
	if e.cache != nil {
		if lvl, ok := e.cache.GetLevel(ctx, guildID, p.UserID); ok {
			return lvl, nil
		}
	}

	sctx, cancel := e.storeCtx(ctx)
	defer cancel()

	lvl, err := e.computeEffectiveLevel(sctx, guildID, p)
	if err != nil {
		return level.Everyone, err
	}

	if e.cache != nil {
		e.cache.SetLevel(ctx, guildID, p.UserID, lvl)
	}
	return lvl, nil
}

// ──────────────────────────────────────────────────
// Resolution internals
// ──────────────────────────────────────────────────

func (e *Engine) evaluate(ctx context.Context, req *ResolveRequest, required level.Level) (*Resolution, error) {
	now := e.clock()

	sctx, cancel := e.storeCtx(ctx)
	defer cancel()

	userOvs, err := e.store.ListOverrides(sctx, &override.ListFilter{
		GuildID:    req.GuildID,
		Node:       req.Node,
		TargetKind: override.TargetUser,
		TargetIDs:  []string{req.Principal.UserID},
	})
	if err != nil {
		return nil, storeErr(err)
	}

	var roleOvs []*override.Override
	if len(req.Principal.RoleIDs) > 0 {
		roleOvs, err = e.store.ListOverrides(sctx, &override.ListFilter{
			GuildID:    req.GuildID,
			Node:       req.Node,
			TargetKind: override.TargetRole,
			TargetIDs:  req.Principal.RoleIDs,
		})
		if err != nil {
			return nil, storeErr(err)
		}
	}

	eff, err := e.computeEffectiveLevel(sctx, req.GuildID, req.Principal)
	if err != nil {
		return nil, err
	}

	res := &Resolution{EffectiveLevel: eff, RequiredLevel: required}
	scopes := override.CandidateScopes(req.GuildID, req.ChannelID)

	// A user-targeted override settles the outcome outright. It sits
	// above the bot-owner check so an explicit deny reaches bot owners.
	if win := override.Resolve(userOvs, scopes, now); win != nil {
		res.Allowed = win.Granted
		res.Factor = FactorOverrideUser
		res.Reason = overrideReason(win)
		return res, nil
	}

	if e.isBotOwner(req.Principal.UserID) {
		res.Allowed = true
		res.Factor = FactorBotOwner
		res.Reason = "bot owner"
		return res, nil
	}

	// A ban blocks everything below it; only a user-targeted grant
	// pierces it. Role-targeted grants never reach a banned principal.
	if eff == level.Banned {
		res.Allowed = false
		res.Factor = FactorBanned
		res.Reason = "principal holds a banned role"
		return res, nil
	}

	// Role-targeted overrides at the most specific matching scope.
	// When the principal's roles disagree, deny wins.
	if matches := override.ResolveAll(roleOvs, scopes, now); len(matches) > 0 {
		win := matches[0]
		allowed := true
		for _, m := range matches {
			if !m.Granted {
				allowed = false
				win = m
			}
		}
		res.Allowed = allowed
		res.Factor = FactorOverrideRole
		res.Reason = overrideReason(win)
		return res, nil
	}

	res.Allowed = eff.AtLeast(required)
	res.Factor = FactorLevel
	if res.Allowed {
		res.Reason = fmt.Sprintf("effective level %s meets required %s", eff, required)
	} else {
		res.Reason = fmt.Sprintf("effective level %s below required %s", eff, required)
	}
	return res, nil
}

// requiredLevel returns the guild's requirement for the node, falling
// back to the node's registered default. Unknown nodes fail resolution.
func (e *Engine) requiredLevel(ctx context.Context, guildID, nodeName string) (level.Level, error) {
	n, err := e.registry.Lookup(nodeName)
	if err != nil {
		return level.Everyone, err
	}

	sctx, cancel := e.storeCtx(ctx)
	defer cancel()

	req, err := e.store.GetRequirement(sctx, guildID, nodeName)
	if err != nil {
		return level.Everyone, storeErr(err)
	}
	if req != nil {
		return req.Level, nil
	}
	return n.DefaultLevel, nil
}

// computeEffectiveLevel derives the level from role bindings. A single
// banned binding dominates everything except bot-owner status.
func (e *Engine) computeEffectiveLevel(ctx context.Context, guildID string, p Principal) (level.Level, error) {
	if e.isBotOwner(p.UserID) {
		return level.BotOwner, nil
	}

	eff := level.Everyone
	if len(p.RoleIDs) > 0 {
		bindings, err := e.store.ListBindings(ctx, &binding.ListFilter{
			GuildID: guildID,
			RoleIDs: p.RoleIDs,
		})
		if err != nil {
			return level.Everyone, storeErr(err)
		}
		for _, b := range bindings {
			if b.Level == level.Banned {
				return level.Banned, nil
			}
			eff = level.Max(eff, b.Level)
		}
	}

	if e.isBotAdmin(p.UserID) {
		eff = level.Max(eff, level.BotAdmin)
	}
	return eff, nil
}

func (e *Engine) isBotOwner(userID string) bool {
	_, ok := e.botOwners[userID]
	return ok
}

func (e *Engine) isBotAdmin(userID string) bool {
	_, ok := e.botAdmins[userID]
	return ok
}

// storeCtx bounds a storage round trip with the configured timeout.
func (e *Engine) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.config.StoreTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, e.config.StoreTimeout)
}

func validateRequest(req *ResolveRequest) error {
	switch {
	case req == nil:
		return fmt.Errorf("%w: nil request", ErrInvalidRequest)
	case req.Principal.UserID == "":
		return fmt.Errorf("%w: missing user id", ErrInvalidRequest)
	case req.GuildID == "":
		return fmt.Errorf("%w: missing guild id", ErrInvalidRequest)
	case req.Node == "":
		return fmt.Errorf("%w: missing node", ErrInvalidRequest)
	}
	return nil
}

func overrideReason(o *override.Override) string {
	verb := "denied"
	if o.Granted {
		verb = "granted"
	}
	if o.Reason != "" {
		return fmt.Sprintf("%s by %s override at %s scope: %s", verb, o.TargetKind, o.Scope.Kind, o.Reason)
	}
	return fmt.Sprintf("%s by %s override at %s scope", verb, o.TargetKind, o.Scope.Kind)
}

func storeErr(err error) error {
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}

func idSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func knownLevel(l level.Level) bool {
	for _, k := range level.Known() {
		if k == l {
			return true
		}
	}
	return false
}
