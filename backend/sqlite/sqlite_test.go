package sqlite

import (
	"errors"
	"testing"

	"github.com/henrlaas/medialib/data"
)

func TestWrapError_ConstraintIsNotUnavailable(t *testing.T) {
	ctx := t.Context()

	sb, err := NewSQLiteBackend(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteBackend failed: %v", err)
	}
	defer sb.Close(ctx)

	first := data.NewMediaMetadata("internal", "a.pdf", "a.pdf", "application/pdf", 1, nil, "user-1")
	if err := sb.UpsertMetadata(ctx, first); err != nil {
		t.Fatalf("UpsertMetadata failed: %v", err)
	}

	// Same id on another path violates the unique id index
	second := first.Clone()
	second.FilePath = "b.pdf"
	err = sb.UpsertMetadata(ctx, second)
	if err == nil {
		t.Fatal("Expected a constraint violation for a duplicate id")
	}
	if errors.Is(err, data.ErrStoreUnavailable) {
		t.Errorf("Expected a constraint violation not to be retryable, got %v", err)
	}
}

func TestWrapError_ClosedIsUnavailable(t *testing.T) {
	ctx := t.Context()

	sb, err := NewSQLiteBackend(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteBackend failed: %v", err)
	}
	if err := sb.Close(ctx); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if _, err := sb.GetMetadata(ctx, "internal", "a.pdf"); !errors.Is(err, data.ErrStoreUnavailable) {
		t.Errorf("Expected ErrStoreUnavailable after close, got %v", err)
	}
}

func TestWrapError_PassesThroughNil(t *testing.T) {
	if err := wrapError(nil, "noop"); err != nil {
		t.Errorf("Expected nil, got %v", err)
	}
}
