package router

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type fakeEnvelope struct {
	code   string
	msg    string
	leader string
}

func (e *fakeEnvelope) ErrCode() string    { return e.code }
func (e *fakeEnvelope) ErrMsg() string     { return e.msg }
func (e *fakeEnvelope) LeaderHint() string { return e.leader }

type fakeTransport struct {
	calls   int32
	handler func(endpoint string, call int32) (Envelope, error)
}

func (f *fakeTransport) Call(_ context.Context, endpoint string, _ uint64, _ any) (Envelope, error) {
	n := atomic.AddInt32(&f.calls, 1)
	return f.handler(endpoint, n)
}

func fastConfig(peers []string) Config {
	cfg := DefaultConfig(peers)
	cfg.BetweenErrorWait = time.Millisecond
	cfg.RequestTimeout = 50 * time.Millisecond
	return cfg
}

// Property 2: sending to a non-leader returns NotLeader with the real
// leader's endpoint, and the router completes the request against that
// leader within the configured retry budget.
func TestProperty_LeaderRedirect(t *testing.T) {
	transport := &fakeTransport{handler: func(endpoint string, call int32) (Envelope, error) {
		if endpoint != "nodeA" {
			return &fakeEnvelope{code: "NotLeader", leader: "nodeA"}, nil
		}
		return &fakeEnvelope{code: "Success"}, nil
	}}

	r := New(transport, fastConfig([]string{"nodeB", "nodeC"}), nil)
	r.SetLeaderHint("nodeB")

	env, err := r.Send(context.Background(), "request")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if env.ErrCode() != "Success" {
		t.Fatalf("ErrCode() = %q, want Success", env.ErrCode())
	}
	if r.LeaderHint() != "nodeA" {
		t.Fatalf("LeaderHint() = %q, want nodeA", r.LeaderHint())
	}
}

func TestTransportFailureRetriesThenGivesUp(t *testing.T) {
	transport := &fakeTransport{handler: func(endpoint string, call int32) (Envelope, error) {
		return nil, errors.New("dial refused")
	}}

	r := New(transport, fastConfig([]string{"nodeA"}), nil)
	if _, err := r.Send(context.Background(), "request"); err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if transport.calls < 1 {
		t.Fatal("expected at least one attempt")
	}
}

func TestHaveNotInitClearsLeaderAndRetries(t *testing.T) {
	transport := &fakeTransport{handler: func(endpoint string, call int32) (Envelope, error) {
		if call == 1 {
			return &fakeEnvelope{code: "HaveNotInit"}, nil
		}
		return &fakeEnvelope{code: "Success"}, nil
	}}

	r := New(transport, fastConfig([]string{"nodeA"}), nil)
	env, err := r.Send(context.Background(), "request")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if env.ErrCode() != "Success" {
		t.Fatalf("ErrCode() = %q, want Success", env.ErrCode())
	}
}
