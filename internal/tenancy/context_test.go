package tenancy

import (
	"context"
	"testing"
)

func TestClinicIDRoundTrip(t *testing.T) {
	ctx := WithClinicID(context.Background(), "clinic-1")
	got, ok := ClinicIDFromContext(ctx)
	if !ok || got != "clinic-1" {
		t.Fatalf("expected clinic-1, got %q ok=%v", got, ok)
	}
}

func TestClinicIDMissing(t *testing.T) {
	if _, ok := ClinicIDFromContext(context.Background()); ok {
		t.Fatal("expected no clinic id in empty context")
	}
	// An empty stored value is treated as absent.
	ctx := WithClinicID(context.Background(), "")
	if _, ok := ClinicIDFromContext(ctx); ok {
		t.Fatal("expected empty clinic id to be treated as missing")
	}
}

func TestMatches(t *testing.T) {
	ctx := WithClinicID(context.Background(), "clinic-1")
	if !Matches(ctx, "clinic-1") {
		t.Fatal("expected matching clinic to pass")
	}
	if Matches(ctx, "clinic-2") {
		t.Fatal("expected mismatched clinic to fail")
	}
	if Matches(context.Background(), "clinic-1") {
		t.Fatal("expected missing session tenancy to fail")
	}
}
