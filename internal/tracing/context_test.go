package tracing

import (
	"context"
	"testing"
)

func TestNewRequestID(t *testing.T) {
	id1 := NewRequestID()
	id2 := NewRequestID()

	if id1 == "" {
		t.Error("NewRequestID returned empty string")
	}

	if id1 == id2 {
		t.Error("NewRequestID returned duplicate IDs")
	}

	// Verify it's a valid UUID format
	if len(id1) != 36 {
		t.Errorf("Expected UUID format (36 chars), got %d chars", len(id1))
	}
}

func TestWithRequestID(t *testing.T) {
	ctx := context.Background()
	requestID := "test-request-id"

	ctx = WithRequestID(ctx, requestID)

	retrieved := GetRequestID(ctx)
	if retrieved != requestID {
		t.Errorf("Expected request ID %s, got %s", requestID, retrieved)
	}
}

func TestWithOperation(t *testing.T) {
	ctx := context.Background()

	ctx = WithOperation(ctx, "search_flights")

	retrieved := GetOperation(ctx)
	if retrieved != "search_flights" {
		t.Errorf("Expected operation search_flights, got %s", retrieved)
	}
}

func TestGetRequestIDEmpty(t *testing.T) {
	ctx := context.Background()

	requestID := GetRequestID(ctx)
	if requestID != "" {
		t.Errorf("Expected empty request ID, got %s", requestID)
	}
}

func TestGetOperationEmpty(t *testing.T) {
	ctx := context.Background()

	operation := GetOperation(ctx)
	if operation != "" {
		t.Errorf("Expected empty operation, got %s", operation)
	}
}

func TestEnsureRequestIDGenerates(t *testing.T) {
	ctx := context.Background()

	ctx, id := EnsureRequestID(ctx)
	if id == "" {
		t.Fatal("EnsureRequestID returned empty ID")
	}

	if GetRequestID(ctx) != id {
		t.Error("Generated request ID not attached to context")
	}
}

func TestEnsureRequestIDKeepsExisting(t *testing.T) {
	ctx := WithRequestID(context.Background(), "caller-supplied")

	_, id := EnsureRequestID(ctx)
	if id != "caller-supplied" {
		t.Errorf("Expected caller-supplied, got %s", id)
	}
}

func TestContextPropagation(t *testing.T) {
	// Create parent context carrying the request ID
	parentCtx := context.Background()
	parentCtx = WithRequestID(parentCtx, "req-parent")
	parentCtx = WithOperation(parentCtx, "price_offer")

	// Propagate the request ID into a fresh child context, as the fallback
	// path does when it retries on the other transport
	childCtx := context.Background()
	childCtx = WithRequestID(childCtx, GetRequestID(parentCtx))

	if GetRequestID(childCtx) != "req-parent" {
		t.Error("Request ID not propagated to child context")
	}

	if GetOperation(childCtx) != "" {
		t.Error("Operation should not leak into child context")
	}
}
