// Package testkit holds helpers shared by package tests
package testkit

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// ShortHeader is a comma separated claims header using the short column aliases
const ShortHeader = "NPI,CODE,MONTH,BENE_COUNT,CLAIM_COUNT,AMOUNT"

// MustPanic fails t unless fn panics
func MustPanic(t *testing.T, fn func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Fatal("expected a panic")
		}
	}()
	fn()
}

// MustNotPanic fails t when fn panics
func MustNotPanic(t *testing.T, fn func()) {
	t.Helper()
	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("unexpected panic: %v", r)
		}
	}()
	fn()
}

// WriteFile writes body to name inside a fresh temp dir and returns the path
func WriteFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", p, err)
	}
	return p
}

// ClaimsCSV writes a claims.csv with header followed by rows, one per line
func ClaimsCSV(t *testing.T, header string, rows ...string) string {
	t.Helper()
	return WriteFile(t, "claims.csv", header+"\n"+strings.Join(rows, "\n")+"\n")
}
