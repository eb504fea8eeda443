package ch

import (
	"context"
	"testing"
)

// TestOpen builds a lazy pool without dialing
func TestOpen(t *testing.T) {
	t.Parallel()

	cl, err := Open(context.Background(), Config{URL: "clickhouse://127.0.0.1:9000/default", Role: "test", Tag: "dev"})
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	if cl == nil {
		t.Fatalf("Open returned nil client")
	}
	if err := cl.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
}

// TestOpen_BadDSN surfaces parse errors
func TestOpen_BadDSN(t *testing.T) {
	t.Parallel()

	if _, err := Open(context.Background(), Config{URL: "clickhouse://[::1"}); err == nil {
		t.Fatalf("expected parse error")
	}
}

// TestNilClient returns errors instead of panicking
func TestNilClient(t *testing.T) {
	t.Parallel()

	var cl *CH
	ctx := context.Background()
	if err := cl.Insert(ctx, "t", [][]any{{1}}); err == nil {
		t.Fatalf("Insert on nil client should fail")
	}
	if err := cl.Exec(ctx, "SELECT 1"); err == nil {
		t.Fatalf("Exec on nil client should fail")
	}
	if _, err := cl.Query(ctx, "SELECT 1"); err == nil {
		t.Fatalf("Query on nil client should fail")
	}
	if err := cl.Ping(ctx); err == nil {
		t.Fatalf("Ping on nil client should fail")
	}
	if err := cl.Close(); err != nil {
		t.Fatalf("Close on nil client: %v", err)
	}
}

// TestInsert_EmptyIsNoop skips the round trip
func TestInsert_EmptyIsNoop(t *testing.T) {
	t.Parallel()

	cl, err := Open(context.Background(), Config{URL: "clickhouse://127.0.0.1:9000/default"})
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = cl.Close() }()
	if err := cl.Insert(context.Background(), "t", nil); err != nil {
		t.Fatalf("empty insert: %v", err)
	}
}

// TestBuildClientInfo reports role and tag products
func TestBuildClientInfo(t *testing.T) {
	t.Parallel()

	ci := BuildClientInfo(" api ", "v1")
	found := map[string]string{}
	for _, p := range ci.Products {
		found[p.Name] = p.Version
	}
	if found["role"] != "api" || found["claimguard"] != "v1" {
		t.Fatalf("products = %+v", ci.Products)
	}
}
