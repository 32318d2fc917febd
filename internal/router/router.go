// Package router selects a model route from task type, token estimate, and
// optional override.
package router

import (
	"strings"

	"github.com/zoonderkins/augment-lite/internal/config"
)

// Route names used by auto selection.
const (
	RouteSmallFast        = "small-fast"
	RouteGeneral          = "general"
	RouteReasonLarge      = "reason-large"
	RouteBigMid           = "big-mid"
	RouteLongContext      = "long-context"
	RouteUltraLongContext = "ultra-long-context"
)

// RouteConfig is the resolved (model, output budget) bundle.
type RouteConfig struct {
	// Model is the provider alias to call.
	Model string `json:"model"`

	// MaxOutputTokens is the output budget after floors are applied.
	MaxOutputTokens int `json:"max_output_tokens"`
}

// Router maps (task, token estimate, override) to a route.
type Router struct {
	models config.ModelsConfig
}

// New creates a router over the models configuration.
func New(models config.ModelsConfig) *Router {
	return &Router{models: models}
}

// thresholds returns the configured breakpoints with spec defaults.
func (r *Router) thresholds() (small, bigMid, longCtx int) {
	t := r.models.Thresholds
	small, bigMid, longCtx = t.SmallMaxTokens, t.BigMidMaxTokens, t.LongContextMaxTokens
	if small <= 0 {
		small = 200_000
	}
	if bigMid <= 0 {
		bigMid = 400_000
	}
	if longCtx <= 0 {
		longCtx = 1_000_000
	}
	return
}

// GetRouteConfig resolves the route for a request.
//
// Selection order: a known route override wins; a known provider override
// uses that provider with the default output budget; otherwise the token
// estimate picks a context tier, and below the smallest tier the task type
// decides.
func (r *Router) GetRouteConfig(taskType string, totalTokensEst int, routeOverride string) RouteConfig {
	if routeOverride != "" && routeOverride != "auto" {
		if route, ok := r.models.Routes[routeOverride]; ok {
			return r.finalize(route)
		}
		if _, ok := r.models.Providers[routeOverride]; ok {
			return r.finalize(config.Route{
				Model:           routeOverride,
				MaxOutputTokens: r.defaultMaxOutput(),
			})
		}
		// Unknown override falls through to the general route.
		return r.finalize(r.routeOrGeneral(RouteGeneral))
	}

	small, bigMid, longCtx := r.thresholds()

	// At an exact threshold the higher tier wins.
	var name string
	switch {
	case totalTokensEst >= longCtx:
		name = RouteUltraLongContext
	case totalTokensEst >= bigMid:
		name = RouteLongContext
	case totalTokensEst >= small:
		name = RouteBigMid
	default:
		switch taskType {
		case "lookup", "small_fix":
			name = RouteSmallFast
		case "refactor", "reason":
			name = RouteReasonLarge
		default:
			name = RouteGeneral
		}
	}

	return r.finalize(r.routeOrGeneral(name))
}

func (r *Router) routeOrGeneral(name string) config.Route {
	if route, ok := r.models.Routes[name]; ok {
		return route
	}
	return r.models.Routes[RouteGeneral]
}

func (r *Router) defaultMaxOutput() int {
	if r.models.Defaults.MaxOutputTokens > 0 {
		return r.models.Defaults.MaxOutputTokens
	}
	return 4096
}

// finalize applies defaults and per-model output floors.
func (r *Router) finalize(route config.Route) RouteConfig {
	out := RouteConfig{
		Model:           route.Model,
		MaxOutputTokens: route.MaxOutputTokens,
	}
	if out.MaxOutputTokens <= 0 {
		out.MaxOutputTokens = r.defaultMaxOutput()
	}

	// Model id, not alias, is what the floor patterns describe; fall back to
	// the alias when the provider is unknown.
	modelID := out.Model
	if p, ok := r.models.Providers[out.Model]; ok && p.ModelID != "" {
		modelID = p.ModelID
	}
	for _, floor := range r.models.Floors {
		if floor.Pattern == "" {
			continue
		}
		if strings.Contains(strings.ToLower(modelID), strings.ToLower(floor.Pattern)) &&
			out.MaxOutputTokens < floor.MinTokens {
			out.MaxOutputTokens = floor.MinTokens
		}
	}
	return out
}
