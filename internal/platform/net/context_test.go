package net_test

import (
	"context"
	"testing"

	pnet "claimguard/internal/platform/net"
)

func TestWithRequest(t *testing.T) {
	base := context.Background()

	ctx := pnet.WithRequest(base, "req-123")
	if got := pnet.RequestID(ctx); got != "req-123" {
		t.Fatalf("RequestID got %q want %q", got, "req-123")
	}

	if pnet.WithRequest(base, "") != base {
		t.Fatal("expected ctx to be unchanged for an empty id")
	}
	if got := pnet.RequestID(base); got != "" {
		t.Fatalf("RequestID got %q want empty", got)
	}
}

func TestWithClient(t *testing.T) {
	base := context.Background()

	ctx := pnet.WithClient(base, "ops")
	if got := pnet.ClientID(ctx); got != "ops" {
		t.Fatalf("ClientID got %q want %q", got, "ops")
	}
	if pnet.WithClient(base, "") != base {
		t.Fatal("expected ctx to be unchanged for an empty client")
	}
	if got := pnet.ClientID(base); got != "" {
		t.Fatalf("ClientID got %q want empty", got)
	}
}
