// Package router implements the client-side leader router described in
// spec.md §4.7: cache the current group leader, retry through transport
// failures and NotLeader redirects, and hand any other response straight
// back to the caller. Its only user is the router gateway (internal/gateway);
// neither the CLI nor the config watcher uses it.
package router

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/gottingen/sirius-go/internal/statemachine"
	"github.com/gottingen/sirius-go/internal/telemetry/logger"
	"github.com/gottingen/sirius-go/pkg/idgen"
)

// Envelope is the shape every RPC response on this surface shares: an
// error code/message pair and, when the code is NotLeader, a leader hint.
type Envelope interface {
	ErrCode() string
	ErrMsg() string
	LeaderHint() string
}

// Transport issues one RPC call against endpoint and returns the decoded
// envelope, or a transport-level error (dial/timeout/stream failure).
// This module ships no implementation of it outside tests.
type Transport interface {
	Call(ctx context.Context, endpoint string, logID uint64, req any) (Envelope, error)
}

// Config holds the tunables named in spec.md §4.7.
type Config struct {
	Peers            []string
	RetryTimes       int
	ConnectTimeout   time.Duration
	RequestTimeout   time.Duration
	BetweenErrorWait time.Duration
}

// DefaultConfig mirrors the source's compiled-in defaults (timeout_ms=300,
// connect_timeout_ms=500, between_meta_connect_error_ms=1000, kRetryTimes=3).
func DefaultConfig(peers []string) Config {
	return Config{
		Peers:            peers,
		RetryTimes:       3,
		ConnectTimeout:   500 * time.Millisecond,
		RequestTimeout:   300 * time.Millisecond,
		BetweenErrorWait: time.Second,
	}
}

// Router tracks the cached leader endpoint for one Raft group and retries
// requests through leader changes per spec.md §4.7's numbered algorithm.
type Router struct {
	mu        sync.Mutex
	leader    string
	cfg       Config
	transport Transport
	log       logger.Logger
}

// New creates a Router over transport with the given peer/retry config.
func New(transport Transport, cfg Config, log logger.Logger) *Router {
	if log == nil {
		log = logger.Default()
	}
	return &Router{cfg: cfg, transport: transport, log: log}
}

// LeaderHint returns the currently cached leader endpoint, or empty if
// unknown.
func (r *Router) LeaderHint() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.leader
}

// SetLeaderHint seeds or overrides the cached leader, used when a caller
// already knows the leader (e.g. from a prior NotLeader response).
func (r *Router) SetLeaderHint(endpoint string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leader = endpoint
}

func (r *Router) pickEndpoint() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.leader != "" {
		return r.leader, nil
	}
	if len(r.cfg.Peers) == 0 {
		return "", fmt.Errorf("router: no peers configured")
	}
	return r.cfg.Peers[rand.Intn(len(r.cfg.Peers))], nil
}

func (r *Router) clearLeader() {
	r.mu.Lock()
	r.leader = ""
	r.mu.Unlock()
}

func (r *Router) setLeader(endpoint string) {
	r.mu.Lock()
	r.leader = endpoint
	r.mu.Unlock()
}

// maxRedirects bounds NotLeader-driven retries, which don't count against
// the attempt budget but must still terminate if redirects never settle.
const maxRedirects = 16

// Send executes req against the group's leader with up to RetryTimes
// attempts, implementing spec.md §4.7 steps 1-5.
func (r *Router) Send(ctx context.Context, req any) (Envelope, error) {
	logID := idgen.Default().LogID()
	var lastErr error
	redirects := 0

	for attempt := 0; attempt < r.cfg.RetryTimes; attempt++ {
		endpoint, err := r.pickEndpoint()
		if err != nil {
			return nil, err
		}

		callCtx, cancel := context.WithTimeout(ctx, r.cfg.RequestTimeout)
		env, err := r.transport.Call(callCtx, endpoint, logID, req)
		cancel()

		if err != nil {
			// transport failure: clear leader cache, sleep, retry.
			r.log.Warn("router transport failure", "endpoint", endpoint, "error", err)
			r.clearLeader()
			lastErr = err
			r.sleepBetweenAttempts(ctx)
			continue
		}

		switch env.ErrCode() {
		case "HaveNotInit":
			r.clearLeader()
			lastErr = statemachine.ErrHaveNotInit.WithDetails(env.ErrMsg())
			r.sleepBetweenAttempts(ctx)
			continue

		case "NotLeader":
			hint := env.LeaderHint()
			if hint != "" {
				r.setLeader(hint)
			}
			lastErr = statemachine.ErrNotLeader.WithDetails(hint)
			redirects++
			if redirects >= maxRedirects {
				return nil, fmt.Errorf("router: exceeded %d leader redirects: %w", maxRedirects, lastErr)
			}
			// retry without counting against the attempt budget.
			attempt--
			continue

		default:
			return env, nil
		}
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("router: exhausted %d attempts", r.cfg.RetryTimes)
	}
	return nil, lastErr
}

func (r *Router) sleepBetweenAttempts(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(r.cfg.BetweenErrorWait):
	}
}
