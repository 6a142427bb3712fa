package tracer

import (
	"context"
	"errors"
	"testing"
)

func TestNew(t *testing.T) {
	p, err := New("sirius-server", "localhost:4317")
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if p == nil {
		t.Fatal("New returned nil provider")
	}
	if p.serviceName != "sirius-server" {
		t.Errorf("serviceName = %q, want sirius-server", p.serviceName)
	}
}

func TestNew_EmptyEndpoint(t *testing.T) {
	p, err := New("sirius-server", "")
	if err != nil {
		t.Fatalf("New with empty endpoint returned error: %v", err)
	}
	if p == nil {
		t.Fatal("New with empty endpoint returned nil")
	}
}

func TestProvider_Shutdown(t *testing.T) {
	p, _ := New("sirius-server", "localhost:4317")
	if err := p.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown returned error: %v", err)
	}
}

func TestProvider_Shutdown_Multiple(t *testing.T) {
	p, _ := New("sirius-server", "localhost:4317")
	ctx := context.Background()
	if err := p.Shutdown(ctx); err != nil {
		t.Errorf("first shutdown: %v", err)
	}
	if err := p.Shutdown(ctx); err != nil {
		t.Errorf("second shutdown: %v", err)
	}
}

func TestProvider_StartSpan(t *testing.T) {
	p, _ := New("sirius-server", "")
	ctx, span := p.StartSpan(context.Background(), "RaftControl")
	if ctx == nil {
		t.Error("StartSpan returned nil context")
	}
	if span == nil {
		t.Fatal("StartSpan returned nil span")
	}
	span.SetAttribute("group", "catalog")
	span.End()
}

func TestStartSpan_PackageDefault(t *testing.T) {
	ctx, span := StartSpan(context.Background(), "DiscoveryQuery")
	if ctx == nil {
		t.Error("StartSpan returned nil context")
	}
	if span == nil {
		t.Fatal("StartSpan returned nil span")
	}
	span.End()
}

func TestStartSpan_NestedSpans(t *testing.T) {
	ctx := context.Background()
	ctx1, span1 := StartSpan(ctx, "parent")
	ctx2, span2 := StartSpan(ctx1, "child")
	_, span3 := StartSpan(ctx2, "grandchild")

	span3.End()
	span2.End()
	span1.End()
}

func TestSpanFromContext(t *testing.T) {
	ctx, started := StartSpan(context.Background(), "DiscoveryManager")
	got := SpanFromContext(ctx)
	if got != started {
		t.Error("SpanFromContext did not return the span started on ctx")
	}
}

func TestSpanFromContext_NoSpan(t *testing.T) {
	span := SpanFromContext(context.Background())
	if span == nil {
		t.Fatal("expected a non-nil fallback span")
	}
	// Must not panic when used like a real span.
	span.SetAttribute("k", "v")
	span.RecordError(nil)
	span.End()
}

func TestSpan_SetAttribute(t *testing.T) {
	_, span := StartSpan(context.Background(), "test")
	span.SetAttribute("string-key", "string-value")
	span.SetAttribute("int-key", 42)
	span.SetAttribute("bool-key", true)
	span.End()
}

func TestSpan_RecordError(t *testing.T) {
	_, span := StartSpan(context.Background(), "test")
	span.RecordError(errors.New("boom"))
	span.RecordError(nil)
	span.End()
}

func TestSpan_Interface(t *testing.T) {
	var s Span
	_, s = StartSpan(context.Background(), "test")
	s.End()
	s.SetAttribute("key", "value")
	s.RecordError(errors.New("error"))
}

func TestMultipleProviders(t *testing.T) {
	p1, err1 := New("sirius-server", "localhost:4317")
	p2, err2 := New("siriusctl", "localhost:4318")
	if err1 != nil || err2 != nil {
		t.Fatal("creating multiple providers should not error")
	}
	ctx := context.Background()
	if err := p1.Shutdown(ctx); err != nil {
		t.Errorf("shutdown p1: %v", err)
	}
	if err := p2.Shutdown(ctx); err != nil {
		t.Errorf("shutdown p2: %v", err)
	}
}
