// Package gateway implements the stateless router gateway from spec.md
// §4.8: it accepts the same RPC surface as the catalog/id-allocator/tso
// groups and forwards each call to that group's leader router, so a client
// fleet can point at a stable set of gateway addresses instead of tracking
// the Raft peer set directly.
package gateway

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/gottingen/sirius-go/internal/raftgroup"
	"github.com/gottingen/sirius-go/internal/router"
	"github.com/gottingen/sirius-go/internal/telemetry/logger"
)

// Limits caps the request rate the gateway accepts per upstream group,
// protecting the leader router (and the leader it targets) from a burst of
// client retries during a redirect storm.
type Limits struct {
	RequestsPerSecond float64
	Burst             int
}

// DefaultLimits allows a generous but bounded fan-in per group.
func DefaultLimits() Limits {
	return Limits{RequestsPerSecond: 2000, Burst: 500}
}

// Gateway holds one Router per Raft group plus a limiter gating fan-in.
type Gateway struct {
	routers  map[raftgroup.GroupID]*router.Router
	limiters map[raftgroup.GroupID]*rate.Limiter
	log      logger.Logger
}

// New builds a Gateway over the given per-group routers.
func New(routers map[raftgroup.GroupID]*router.Router, limits Limits, log logger.Logger) *Gateway {
	if log == nil {
		log = logger.Default()
	}
	limiters := make(map[raftgroup.GroupID]*rate.Limiter, len(routers))
	for group := range routers {
		limiters[group] = rate.NewLimiter(rate.Limit(limits.RequestsPerSecond), limits.Burst)
	}
	return &Gateway{routers: routers, limiters: limiters, log: log}
}

// Forward rate-limits then forwards req to the leader of group, returning
// whatever envelope that group's leader router produced.
func (g *Gateway) Forward(ctx context.Context, group raftgroup.GroupID, req any) (router.Envelope, error) {
	limiter, ok := g.limiters[group]
	if !ok {
		return nil, fmt.Errorf("gateway: no router configured for group %s", group)
	}
	if err := limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("gateway: rate limit wait: %w", err)
	}

	r := g.routers[group]
	env, err := r.Send(ctx, req)
	if err != nil {
		g.log.Warn("gateway forward failed", "group", group.String(), "error", err)
		return nil, err
	}
	return env, nil
}
